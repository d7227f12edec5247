package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	slogmulti "github.com/samber/slog-multi"
	"gopkg.in/natefinch/lumberjack.v2"

	"nwksetup/config"
	"nwksetup/modem"
	"nwksetup/output"
	"nwksetup/serial"
	"nwksetup/setup"
)

const (
	appName    = "NWKSetup"
	appVersion = "1.0.0"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Parse command-line flags
	configPath := flag.String("config", "", "Path to configuration file (JSON or YAML, optional)")
	debug := flag.Bool("debug", false, "Enable debug logging on the console")
	version := flag.Bool("version", false, "Show version and exit")
	provider := flag.String("provider", "", "Preselect the NWK200 provider (att or verizon) instead of asking")
	flag.Parse()

	// Handle version flag
	if *version {
		fmt.Printf("%s v%s\n", appName, appVersion)
		return 0
	}

	// Load configuration
	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Printf("Failed to load configuration: %v", err)
			return 1
		}
		cfg = loaded
	}
	if *provider != "" {
		if err := cfg.SetProvider(*provider); err != nil {
			log.Printf("Invalid -provider: %v", err)
			return 1
		}
	}

	// Setup logging
	logger, closeLog := setupLogging(cfg, *debug)
	defer closeLog()

	logger.Info("Starting 4G modem setup",
		"version", appVersion,
		"instance", cfg.App.InstanceID,
		"config", *configPath)

	// Cancel between steps on Ctrl-C
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// NATS is optional; setup works the same without it
	var natsConn *output.NATSConnection
	if cfg.NATS.Enabled() {
		conn, err := output.NewNATSConnection(
			cfg.NATS.URL,
			fmt.Sprintf("%s-%s", cfg.App.Name, cfg.App.InstanceID),
			cfg.NATS.MaxReconnects,
			cfg.NATS.ReconnectWait(),
			logger,
		)
		if err != nil {
			logger.Warn("NATS unavailable, continuing without event reporting", "error", err)
		} else {
			natsConn = conn
			defer natsConn.Close()
		}
	}
	logger.Debug("Event reporting", "nats_enabled", cfg.NATS.Enabled(), "nats_connected", natsConn.IsConnected())

	events := output.NewEventPublisher(&output.EventPublisherConfig{
		Conn:       natsConn.Conn(),
		Subject:    output.BuildEventsSubject(cfg.NATS.SubjectPrefix, cfg.App.InstanceID),
		InstanceID: cfg.App.InstanceID,
		Logger:     logger,
	})
	defer events.Flush(2 * time.Second)

	opener := serial.SystemOpener{}
	sessions := modem.NewSessionManager(opener, logger)

	if cfg.Logging.Transcript != "" {
		transcript := output.NewTranscript(&output.TranscriptConfig{
			InstanceID:  cfg.App.InstanceID,
			Path:        cfg.Logging.Transcript,
			MaxSizeMB:   cfg.Logging.MaxSizeMB,
			MaxBackups:  cfg.Logging.MaxBackups,
			Compress:    cfg.Logging.Compress,
			NATSConn:    natsConn.Conn(),
			NATSSubject: output.BuildTranscriptSubject(cfg.NATS.SubjectPrefix, cfg.App.InstanceID),
			Logger:      logger,
		})
		defer transcript.Close()
		sessions.SetRecorder(transcript)
	}

	selector, err := providerSelector(cfg.Setup.Provider, logger)
	if err != nil {
		logger.Error("Invalid provider", "error", err)
		return 1
	}

	prober := serial.NewProber(opener, cfg.Probe.Namespace(), logger)
	locator := modem.NewLocator(serial.SystemEnumerator{}, prober, sessions, logger)

	runner := setup.NewRunner(&setup.RunnerConfig{
		Locator:  locator,
		Sessions: sessions,
		Sequencer: setup.NewSequencer(&setup.SequencerConfig{
			Selector:   selector,
			LineSettle: cfg.Setup.LineSettle(),
			OnEvent:    events.Callback(),
			Logger:     logger,
		}),
		Events:  events,
		Version: appVersion,
		Logger:  logger,
	})

	code := exitCode(runner.Run(ctx), logger)
	if code == 0 && ctx.Err() == nil {
		fmt.Println("Setup complete!")
	}
	return code
}

// Exit codes
const (
	exitOK          = 0
	exitFailed      = 1
	exitInterrupted = 130 // 128 + SIGINT, the shell convention
)

// exitCode logs how the run ended and maps it to a process exit code.
// Choosing "Exit Setup" is a normal end; a signal is an interruption,
// not a failure.
func exitCode(err error, logger *slog.Logger) int {
	var transportErr *modem.TransportError
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, modem.ErrSetupCancelled):
		logger.Info("Configuration terminated by user")
		return exitOK
	case errors.Is(err, setup.ErrInterrupted):
		logger.Warn("Setup interrupted by signal; the modem may be partially configured", "error", err)
		return exitInterrupted
	case errors.As(err, &transportErr):
		logger.Error("Could not open modem port", "device", transportErr.Device, "error", transportErr.Err)
		return exitFailed
	default:
		logger.Error("Setup failed", "error", err)
		return exitFailed
	}
}

// providerSelector returns a fixed selector when the provider is preselected,
// otherwise the interactive console menu
func providerSelector(name string, logger *slog.Logger) (modem.ProviderSelector, error) {
	if name == "" {
		return modem.NewPrompt(os.Stdin, os.Stdout, logger), nil
	}
	p, err := modem.ParseProvider(name)
	if err != nil {
		return nil, err
	}
	logger.Info("Using preselected provider", "provider", string(p))
	return modem.StaticSelector(p), nil
}

// setupLogging sends everything at DEBUG to the rotating log file and
// INFO and above to the console. The returned func closes the log file.
func setupLogging(cfg *config.Config, debug bool) (*slog.Logger, func()) {
	consoleLevel := parseLevel(cfg.Logging.Level)
	if debug {
		consoleLevel = slog.LevelDebug
	}

	console := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: consoleLevel})

	writer := &lumberjack.Logger{
		Filename:   cfg.Logging.File,
		MaxSize:    cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		Compress:   cfg.Logging.Compress,
	}
	fileHandler := newFileHandler(writer, cfg.Logging.JSON)

	logger := slog.New(slogmulti.Fanout(fileHandler, console)).With("app", cfg.App.Name)

	return logger, func() {
		if err := writer.Close(); err != nil {
			log.Printf("Warning: failed to close log file: %v", err)
		}
	}
}

func newFileHandler(w io.Writer, asJSON bool) slog.Handler {
	opts := &slog.HandlerOptions{Level: slog.LevelDebug}
	if asJSON {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// parseLevel converts a config level string to slog.Level
func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
