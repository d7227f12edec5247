package setup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"nwksetup/modem"
	"nwksetup/output"
	"nwksetup/serial"
)

// State represents where a sequencer is in its run
type State int

const (
	StateInit State = iota
	StateConfiguring
	StateClosed
)

// DefaultLineSettleTime is waited before reading each response line
const DefaultLineSettleTime = 1 * time.Second

// ErrInterrupted is returned when the run's context is cancelled (Ctrl-C)
// between or during steps. The session is still closed.
var ErrInterrupted = errors.New("setup interrupted")

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateConfiguring:
		return "configuring"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Result summarizes a completed (or cancelled) command sequence
type Result struct {
	Device   string
	Variant  modem.Variant
	Provider modem.Provider
	Steps    int // steps whose command was written
	Stats    serial.PortStats
}

// SleepFunc waits for d or until ctx is done
type SleepFunc func(ctx context.Context, d time.Duration) error

// Session is the part of a modem session the sequencer drives
type Session interface {
	Device() string
	Write(cmd []byte) error
	ReadLine() []byte
	Close() error
	Stats() serial.PortStats
}

// SequencerConfig contains configuration for Sequencer
type SequencerConfig struct {
	Selector   modem.ProviderSelector // asked before an NWK200 script
	LineSettle time.Duration          // pause before each response line
	Sleep      SleepFunc              // nil = real sleep
	OnEvent    output.EventCallback   // optional
	Logger     *slog.Logger
}

// Sequencer writes a variant's command script to a session, reading the
// scripted number of response lines after each command. Responses are logged
// and never checked; a missing or odd reply does not stop the sequence.
type Sequencer struct {
	selector   modem.ProviderSelector
	lineSettle time.Duration
	sleep      SleepFunc
	onEvent    output.EventCallback
	logger     *slog.Logger

	state      State
	stateMutex sync.RWMutex
}

// NewSequencer creates a new Sequencer
func NewSequencer(cfg *SequencerConfig) *Sequencer {
	sleep := cfg.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	return &Sequencer{
		selector:   cfg.Selector,
		lineSettle: cfg.LineSettle,
		sleep:      sleep,
		onEvent:    cfg.OnEvent,
		logger:     cfg.Logger,
		state:      StateInit,
	}
}

// Run configures the modem on session. The session is always closed when Run
// returns. For NWK200 the provider is chosen first; if the user cancels, no
// command is written and modem.ErrSetupCancelled is returned.
func (s *Sequencer) Run(ctx context.Context, session Session, variant modem.Variant) (*Result, error) {
	result := &Result{Device: session.Device(), Variant: variant}
	defer func() {
		if err := session.Close(); err != nil {
			s.logger.Warn("Failed to close modem port", "device", result.Device, "error", err)
		}
		result.Stats = session.Stats()
		s.setState(StateClosed)
	}()

	if variant == modem.NWK200 {
		provider, err := s.selectProvider()
		if err != nil {
			return result, err
		}
		result.Provider = provider
		s.emit(output.Event{
			Type:    output.EventProviderChosen,
			Device:  result.Device,
			Variant: variant.String(),
			Message: "User selected: " + string(provider),
			Details: map[string]any{"provider": string(provider)},
		})
	}

	script := modem.ScriptFor(variant, result.Provider)
	s.setState(StateConfiguring)
	s.logger.Info("Configuring modem",
		"device", result.Device,
		"variant", variant.String(),
		"steps", len(script))

	for i, step := range script {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("%w before step %d: %w", ErrInterrupted, i+1, err)
		}

		if err := s.runStep(ctx, session, step); err != nil {
			return result, err
		}
		result.Steps++
	}

	return result, nil
}

func (s *Sequencer) runStep(ctx context.Context, session Session, step modem.Step) error {
	s.logger.Info("Sending command", "device", session.Device(), "command", string(step.Command))

	if err := session.Write(step.Command); err != nil {
		// Logged only; the following steps still run
		s.logger.Warn("Command write failed", "device", session.Device(), "error", err)
	}

	for n := 0; n < step.ReadLines; n++ {
		if s.lineSettle > 0 {
			if err := s.sleep(ctx, s.lineSettle); err != nil {
				return fmt.Errorf("%w: %w", ErrInterrupted, err)
			}
		}
		line := session.ReadLine()
		s.logger.Info("Modem response", "device", session.Device(), "response", string(line))
	}

	if step.Pause > 0 {
		s.logger.Debug("Waiting for modem", "device", session.Device(), "pause", step.Pause)
		if err := s.sleep(ctx, step.Pause); err != nil {
			return fmt.Errorf("%w: %w", ErrInterrupted, err)
		}
	}

	return nil
}

func (s *Sequencer) selectProvider() (modem.Provider, error) {
	if s.selector == nil {
		return "", fmt.Errorf("no provider selector configured for nwk200")
	}
	return s.selector.SelectProvider()
}

func (s *Sequencer) setState(state State) {
	s.stateMutex.Lock()
	old := s.state
	s.state = state
	s.stateMutex.Unlock()

	if old != state {
		s.logger.Debug("Sequencer state change", "from", old.String(), "to", state.String())
		s.emit(output.Event{
			Type:    output.EventStateChange,
			Message: old.String() + " -> " + state.String(),
			Details: map[string]any{
				"old_state": old.String(),
				"new_state": state.String(),
			},
		})
	}
}

// State returns the current state
func (s *Sequencer) State() State {
	s.stateMutex.RLock()
	defer s.stateMutex.RUnlock()
	return s.state
}

func (s *Sequencer) emit(event output.Event) {
	if s.onEvent != nil {
		s.onEvent(event)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
