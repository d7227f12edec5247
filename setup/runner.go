package setup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"nwksetup/modem"
	"nwksetup/output"
)

// Locator finds the modem port and variant
type Locator interface {
	Locate() (modem.Location, error)
}

// SessionOpener opens a modem session on a device
type SessionOpener interface {
	Open(device string) (*modem.Session, error)
}

// RunnerConfig contains the collaborators a Runner drives
type RunnerConfig struct {
	Locator   Locator
	Sessions  SessionOpener
	Sequencer *Sequencer
	Events    *output.EventPublisher // nil disables event publishing
	Version   string
	Logger    *slog.Logger
}

// Runner performs one complete modem setup: locate, open, configure
type Runner struct {
	locator   Locator
	sessions  SessionOpener
	sequencer *Sequencer
	events    *output.EventPublisher
	version   string
	logger    *slog.Logger
}

// NewRunner creates a new Runner
func NewRunner(cfg *RunnerConfig) *Runner {
	return &Runner{
		locator:   cfg.Locator,
		sessions:  cfg.Sessions,
		sequencer: cfg.Sequencer,
		events:    cfg.Events,
		version:   cfg.Version,
		logger:    cfg.Logger,
	}
}

// Run executes the setup. A missing or unresolvable modem is logged as a
// warning and is not an error. User cancellation returns
// modem.ErrSetupCancelled; a port that cannot be opened returns a
// *modem.TransportError.
func (r *Runner) Run(ctx context.Context) error {
	r.events.PublishSetupStart(r.version)

	loc, err := r.locator.Locate()
	variant := loc.Variant.String()
	r.events.PublishVariantDetected(variant)

	switch {
	case errors.Is(err, modem.ErrModemNotFound):
		r.logger.Warn("No 4G modem detected. Please ensure a 4G modem is installed in your machine.",
			"variant", variant)
		r.events.PublishModemNotFound(variant, err.Error(), loc.Candidates)
		return nil
	case errors.Is(err, modem.ErrModemAmbiguous):
		r.logger.Warn("Could not tell which port is the 4G modem; no candidate answered ATE1.",
			"variant", variant,
			"candidates", loc.Candidates)
		r.events.PublishModemNotFound(variant, err.Error(), loc.Candidates)
		return nil
	case err != nil:
		r.events.PublishError("", err.Error())
		return fmt.Errorf("failed to locate modem: %w", err)
	}

	r.events.PublishModemLocated(loc.Device, variant, loc.Candidates)

	session, err := r.sessions.Open(loc.Device)
	if err != nil {
		r.logger.Error("Failed to open modem port", "device", loc.Device, "error", err)
		r.events.PublishError(loc.Device, err.Error())
		return err
	}

	r.logger.Info("Modem Port", "device", session.Device())
	r.logger.Info("Device Opening", "open", session.IsOpen())

	result, err := r.sequencer.Run(ctx, session, loc.Variant)
	switch {
	case errors.Is(err, modem.ErrSetupCancelled):
		r.events.PublishSetupCancelled(loc.Device, variant)
		return err
	case errors.Is(err, ErrInterrupted):
		r.logger.Warn("Modem setup interrupted", "device", loc.Device, "steps_sent", result.Steps)
		r.events.PublishError(loc.Device, err.Error())
		return err
	case err != nil:
		r.logger.Error("Modem setup stopped", "device", loc.Device, "steps_sent", result.Steps, "error", err)
		r.events.PublishError(loc.Device, err.Error())
		return err
	}

	r.logger.Info("Modem configured",
		"device", result.Device,
		"variant", variant,
		"provider", string(result.Provider),
		"steps", result.Steps,
		"bytes_written", result.Stats.BytesWritten,
		"lines_read", result.Stats.LinesRead,
		"empty_reads", result.Stats.EmptyReads)

	details := map[string]any{
		"steps":         result.Steps,
		"bytes_written": result.Stats.BytesWritten,
		"lines_read":    result.Stats.LinesRead,
		"empty_reads":   result.Stats.EmptyReads,
	}
	if result.Provider != "" {
		details["provider"] = string(result.Provider)
	}
	r.events.PublishSetupComplete(result.Device, variant, details)

	return nil
}
