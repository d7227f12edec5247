package modem

import (
	"bytes"
	"log/slog"

	"nwksetup/serial"
)

// PortProber reports which port names currently open
type PortProber interface {
	Probe() serial.PortSet
}

// Location is where the modem was found and what kind it is
type Location struct {
	Device     string
	Variant    Variant
	Candidates []string
}

// Locator finds the modem's AT port among the system's serial ports
type Locator struct {
	enumerator serial.Enumerator
	prober     PortProber
	sessions   *SessionManager
	logger     *slog.Logger
}

// NewLocator creates a new Locator
func NewLocator(enumerator serial.Enumerator, prober PortProber, sessions *SessionManager, logger *slog.Logger) *Locator {
	return &Locator{
		enumerator: enumerator,
		prober:     prober,
		sessions:   sessions,
		logger:     logger,
	}
}

// Locate classifies the modem variant and picks its port. The candidates are
// the probed ports minus the enumerated ones. With one candidate it is used
// as is; with several, each is sent an echo probe and the first to answer
// wins. The returned Location carries the variant even when err is non-nil.
func (l *Locator) Locate() (Location, error) {
	ports, err := l.enumerator.Enumerate()
	if err != nil {
		l.logger.Warn("Port enumeration failed, continuing with none", "error", err)
		ports = nil
	}
	for _, p := range ports {
		l.logger.Debug("Port found", "device", p.Device, "description", p.Description)
	}

	loc := Location{Variant: Classify(ports)}
	if loc.Variant == NWK200 {
		l.logger.Info("nwk200 card found.")
	} else {
		l.logger.Info("nwk100 card found. NOTE: If user is expecting an nwk200 card then system has failed detection.")
	}

	loc.Candidates = Candidates(l.prober.Probe(), ports)
	l.logger.Debug("Candidate modem ports", "candidates", loc.Candidates)

	switch len(loc.Candidates) {
	case 0:
		return loc, ErrModemNotFound
	case 1:
		loc.Device = loc.Candidates[0]
		return loc, nil
	}

	device, ok := l.echoProbe(loc.Candidates)
	if !ok {
		return loc, ErrModemAmbiguous
	}
	loc.Device = device
	return loc, nil
}

// echoProbe sends the echo command to every candidate and returns the first
// that answers with the expected echo. Every probe session is closed again.
func (l *Locator) echoProbe(candidates []string) (string, bool) {
	var selected string
	found := false

	for _, device := range candidates {
		matched := l.probeOne(device)
		l.logger.Debug("Echo probe result", "device", device, "matched", matched)
		if matched && !found {
			selected = device
			found = true
		}
	}

	return selected, found
}

func (l *Locator) probeOne(device string) bool {
	session, err := l.sessions.Open(device)
	if err != nil {
		l.logger.Debug("Skipping candidate (can't open)", "device", device, "error", err)
		return false
	}
	defer session.Close()

	if err := session.Write([]byte(CmdEcho)); err != nil {
		l.logger.Debug("Echo probe write failed", "device", device, "error", err)
		return false
	}

	reply := session.ReadLine()
	l.logger.Debug("Echo probe reply", "device", device, "reply", string(reply))
	return bytes.Equal(reply, []byte(EchoResponse))
}
