package output

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

// NATSConnection manages NATS connection
type NATSConnection struct {
	conn   *nats.Conn
	url    string
	logger *slog.Logger
	mu     sync.RWMutex
}

// NewNATSConnection creates a new NATS connection
func NewNATSConnection(url, name string, maxReconnects int, reconnectWait time.Duration, logger *slog.Logger) (*NATSConnection, error) {
	opts := []nats.Option{
		nats.Name(name),
		nats.MaxReconnects(maxReconnects),
		nats.ReconnectWait(reconnectWait),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("Reconnected to NATS", "url", nc.ConnectedUrl())
		}),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				logger.Warn("Disconnected from NATS", "error", err)
			}
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logger.Debug("NATS connection closed")
		}),
	}

	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}

	logger.Info("Connected to NATS", "url", url)

	return &NATSConnection{
		conn:   conn,
		url:    url,
		logger: logger,
	}, nil
}

// Close drains pending publishes and closes the NATS connection
func (nc *NATSConnection) Close() {
	nc.mu.Lock()
	defer nc.mu.Unlock()

	if nc.conn != nil {
		if err := nc.conn.Drain(); err != nil {
			nc.conn.Close()
		}
		nc.conn = nil
	}
}

// Conn returns the underlying NATS connection
func (nc *NATSConnection) Conn() *nats.Conn {
	if nc == nil {
		return nil
	}
	nc.mu.RLock()
	defer nc.mu.RUnlock()
	return nc.conn
}

// IsConnected returns true if connected to NATS
func (nc *NATSConnection) IsConnected() bool {
	if nc == nil {
		return false
	}
	nc.mu.RLock()
	defer nc.mu.RUnlock()
	return nc.conn != nil && nc.conn.IsConnected()
}
