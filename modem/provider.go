package modem

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Provider is the carrier token written into AT!IMPREF
type Provider string

const (
	ProviderATT     Provider = "ATT"
	ProviderVerizon Provider = "VERIZON"
)

// ParseProvider accepts "att" or "verizon" in any case
func ParseProvider(s string) (Provider, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(ProviderATT), "AT&T":
		return ProviderATT, nil
	case string(ProviderVerizon):
		return ProviderVerizon, nil
	default:
		return "", fmt.Errorf("unknown provider %q, must be att or verizon", s)
	}
}

// ProviderSelector chooses the carrier profile for an NWK200.
// Returning ErrSetupCancelled stops the setup without touching the modem.
type ProviderSelector interface {
	SelectProvider() (Provider, error)
}

// StaticSelector always returns the same provider
type StaticSelector Provider

// SelectProvider implements ProviderSelector
func (s StaticSelector) SelectProvider() (Provider, error) {
	return Provider(s), nil
}

// ProviderMenu is shown before every read of the user's choice
const ProviderMenu = "Select a provider:\n1.)AT&T\n2.)Verizon\n3.)Exit Setup\n"

// Prompt asks the user on a terminal which provider to configure
type Prompt struct {
	in     *bufio.Reader
	out    io.Writer
	logger *slog.Logger
}

// NewPrompt creates a Prompt reading choices from in and writing the menu to out
func NewPrompt(in io.Reader, out io.Writer, logger *slog.Logger) *Prompt {
	return &Prompt{
		in:     bufio.NewReader(in),
		out:    out,
		logger: logger,
	}
}

// SelectProvider shows the menu until the user answers 1, 2 or 3.
// End of input counts as choosing Exit.
func (p *Prompt) SelectProvider() (Provider, error) {
	for {
		if _, err := io.WriteString(p.out, ProviderMenu); err != nil {
			return "", fmt.Errorf("failed to write provider menu: %w", err)
		}

		line, err := p.in.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("failed to read provider selection: %w", err)
		}

		switch strings.TrimSpace(line) {
		case "1":
			p.logger.Info("User selected: ATT")
			return ProviderATT, nil
		case "2":
			p.logger.Info("User selected: VERIZON")
			return ProviderVerizon, nil
		case "3":
			p.logger.Info("Configuration terminated by user")
			return "", ErrSetupCancelled
		}

		if errors.Is(err, io.EOF) {
			p.logger.Info("Configuration terminated by user", "reason", "end of input")
			return "", ErrSetupCancelled
		}

		p.logger.Debug("Ignoring provider selection", "input", strings.TrimSpace(line))
	}
}
