package output

import (
	"io"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Transcript records raw modem traffic to a rotating file and, when a NATS
// connection is given, mirrors every line to a subject.
type Transcript struct {
	instanceID  string
	file        io.WriteCloser
	natsConn    *nats.Conn
	natsSubject string
	logger      *slog.Logger
	now         func() time.Time
	mu          sync.Mutex
}

// TranscriptConfig contains configuration for Transcript
type TranscriptConfig struct {
	InstanceID  string
	Path        string
	MaxSizeMB   int
	MaxBackups  int
	Compress    bool
	NATSConn    *nats.Conn
	NATSSubject string
	Logger      *slog.Logger
}

// NewTranscript creates a new Transcript
func NewTranscript(cfg *TranscriptConfig) *Transcript {
	file := &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		Compress:   cfg.Compress,
	}

	cfg.Logger.Debug("Initialized transcript",
		"path", cfg.Path,
		"nats_subject", cfg.NATSSubject,
		"nats_enabled", cfg.NATSConn != nil)

	return &Transcript{
		instanceID:  cfg.InstanceID,
		file:        file,
		natsConn:    cfg.NATSConn,
		natsSubject: cfg.NATSSubject,
		logger:      cfg.Logger,
		now:         time.Now,
	}
}

// RecordTX records bytes written to the modem
func (t *Transcript) RecordTX(device string, data []byte) {
	t.record(device, "TX", data)
}

// RecordRX records bytes read from the modem. An empty read is recorded as a timeout.
func (t *Transcript) RecordRX(device string, data []byte) {
	t.record(device, "RX", data)
}

func (t *Transcript) record(device, direction string, data []byte) {
	body := strconv.Quote(string(data))
	if direction == "RX" && len(data) == 0 {
		body = "(timeout)"
	}
	line := BuildHeader(t.instanceID, device, direction, t.now()) + body + "\n"

	t.mu.Lock()
	defer t.mu.Unlock()

	// File is the primary output
	if _, err := io.WriteString(t.file, line); err != nil {
		t.logger.Warn("Failed to write transcript", "device", device, "error", err)
	}

	// NATS is secondary - continue on failure
	if t.natsConn != nil {
		if err := t.natsConn.Publish(t.natsSubject, []byte(line)); err != nil {
			t.logger.Warn("Failed to publish transcript line",
				"device", device,
				"subject", t.natsSubject,
				"error", err)
		}
	}
}

// Close closes the transcript file
func (t *Transcript) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.file.Close()
}
