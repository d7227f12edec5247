package modem

import (
	"errors"
	"fmt"
)

var (
	// ErrModemNotFound means no candidate port is left after removing the
	// ports the OS already describes.
	ErrModemNotFound = errors.New("no 4G modem detected")

	// ErrModemAmbiguous means several candidate ports exist and none of them
	// answered the echo probe.
	ErrModemAmbiguous = errors.New("modem port ambiguous: no candidate answered the echo probe")

	// ErrSetupCancelled is returned when the user picks "Exit Setup".
	ErrSetupCancelled = errors.New("configuration terminated by user")
)

// TransportError reports a port that could not be opened for a session
type TransportError struct {
	Device string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("open %s: %v", e.Device, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
