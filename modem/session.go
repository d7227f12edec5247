package modem

import (
	"fmt"
	"log/slog"

	"nwksetup/serial"
)

// Recorder receives every byte written to or read from a session
type Recorder interface {
	RecordTX(device string, data []byte)
	RecordRX(device string, data []byte)
}

// SessionManager opens modem sessions with the fixed modem parameters
type SessionManager struct {
	opener   serial.Opener
	recorder Recorder
	logger   *slog.Logger
}

// NewSessionManager creates a new SessionManager
func NewSessionManager(opener serial.Opener, logger *slog.Logger) *SessionManager {
	return &SessionManager{
		opener: opener,
		logger: logger,
	}
}

// SetRecorder attaches a transcript recorder to sessions opened afterwards
func (m *SessionManager) SetRecorder(r Recorder) {
	m.recorder = r
}

// Open opens device at 115200 8-N-1 with a 15s read timeout. The port is
// closed and reopened once right away so the session starts from a fresh
// handle. Failures are returned as *TransportError and never retried.
func (m *SessionManager) Open(device string) (*Session, error) {
	cfg := serial.ModemSerialConfig()
	m.logger.Info("Setting parameters for port", "device", device,
		"baud", cfg.BaudRate,
		"data_bits", cfg.DataBits,
		"parity", cfg.Parity,
		"stop_bits", cfg.StopBits,
		"read_timeout", cfg.ReadTimeout)

	port, err := m.opener.Open(device, cfg)
	if err != nil {
		return nil, &TransportError{Device: device, Err: err}
	}

	if err := port.Close(); err != nil {
		m.logger.Debug("Failed to close port before reopen", "device", device, "error", err)
	}

	port, err = m.opener.Open(device, cfg)
	if err != nil {
		return nil, &TransportError{Device: device, Err: err}
	}

	return &Session{
		device:   device,
		config:   cfg,
		port:     serial.NewPortWithStats(port),
		recorder: m.recorder,
		logger:   m.logger,
	}, nil
}

// Session exclusively owns one open modem port
type Session struct {
	device   string
	config   serial.SerialConfig
	port     *serial.PortWithStats
	recorder Recorder
	closed   bool
	logger   *slog.Logger
}

// Device returns the device name
func (s *Session) Device() string {
	return s.device
}

// Config returns the parameters the port was opened with
func (s *Session) Config() serial.SerialConfig {
	return s.config
}

// Write sends cmd to the modem. Errors are returned for logging only; the
// caller is not expected to stop.
func (s *Session) Write(cmd []byte) error {
	if s.closed {
		return fmt.Errorf("session %s is closed", s.device)
	}
	if s.recorder != nil {
		s.recorder.RecordTX(s.device, cmd)
	}
	if _, err := s.port.Write(cmd); err != nil {
		return fmt.Errorf("write to %s: %w", s.device, err)
	}
	return nil
}

// ReadLine returns the next response line. A timeout yields an empty slice,
// and read errors are logged and yield whatever was received.
func (s *Session) ReadLine() []byte {
	if s.closed {
		return nil
	}
	line, err := s.port.ReadLine()
	if err != nil {
		s.logger.Warn("Read from modem failed", "device", s.device, "error", err)
	}
	if s.recorder != nil {
		s.recorder.RecordRX(s.device, line)
	}
	return line
}

// Close releases the port. Closing twice is a no-op.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.port.Close()
}

// IsOpen reports whether the session still holds the port
func (s *Session) IsOpen() bool {
	return !s.closed
}

// Stats returns traffic counters for the session
func (s *Session) Stats() serial.PortStats {
	return s.port.Stats()
}
