package output

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// Event types - these are the discrete events we publish
const (
	EventSetupStart      = "setup_start"
	EventVariantDetected = "variant_detected"
	EventModemLocated    = "modem_located"
	EventModemNotFound   = "modem_not_found"
	EventProviderChosen  = "provider_selected"
	EventStateChange     = "state_change"
	EventSetupComplete   = "setup_complete"
	EventSetupCancelled  = "setup_cancelled"
	EventError           = "error"
)

// Event is the base structure for all events published to NATS.
// Keep it simple and flat for easy querying.
type Event struct {
	Timestamp  time.Time      `json:"ts"`
	Type       string         `json:"type"`
	InstanceID string         `json:"instance"`
	Device     string         `json:"dev,omitempty"`     // COM5, /dev/ttyUSB2, etc
	Variant    string         `json:"variant,omitempty"` // nwk100 / nwk200
	Message    string         `json:"msg,omitempty"`     // Human-readable message
	Details    map[string]any `json:"details,omitempty"` // Optional extra data
}

// EventCallback is the function signature for event handlers.
// The sequencer calls this when events occur; it doesn't know about NATS.
type EventCallback func(event Event)

// EventPublisher publishes discrete setup events to NATS.
// It's designed to be optional - if nil, nothing breaks.
type EventPublisher struct {
	conn       *nats.Conn
	subject    string
	instanceID string
	logger     *slog.Logger
}

// EventPublisherConfig contains configuration for EventPublisher
type EventPublisherConfig struct {
	Conn       *nats.Conn
	Subject    string // e.g., "nwk.events.store-0412"
	InstanceID string
	Logger     *slog.Logger
}

// NewEventPublisher creates a new EventPublisher.
// Returns nil if conn is nil (disabled mode).
func NewEventPublisher(cfg *EventPublisherConfig) *EventPublisher {
	if cfg == nil || cfg.Conn == nil {
		return nil
	}

	return &EventPublisher{
		conn:       cfg.Conn,
		subject:    cfg.Subject,
		instanceID: cfg.InstanceID,
		logger:     cfg.Logger,
	}
}

// Publish sends an event to NATS. Safe to call on nil receiver.
func (e *EventPublisher) Publish(event Event) {
	if e == nil || e.conn == nil || !e.conn.IsConnected() {
		return
	}

	data, err := e.encode(event)
	if err != nil {
		e.logger.Error("Failed to marshal event", "error", err, "type", event.Type)
		return
	}

	if err := e.conn.Publish(e.subject, data); err != nil {
		e.logger.Warn("Failed to publish event", "error", err, "type", event.Type)
		return
	}

	e.logger.Debug("Published event",
		"type", event.Type,
		"device", event.Device,
		"message", event.Message)
}

func (e *EventPublisher) encode(event Event) ([]byte, error) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.InstanceID == "" {
		event.InstanceID = e.instanceID
	}
	return json.Marshal(event)
}

// Callback returns an EventCallback that publishes through e.
// Safe to call on nil receiver.
func (e *EventPublisher) Callback() EventCallback {
	return func(event Event) {
		e.Publish(event)
	}
}

// Flush waits for published events to reach the server
func (e *EventPublisher) Flush(timeout time.Duration) {
	if e == nil || e.conn == nil || !e.conn.IsConnected() {
		return
	}
	if err := e.conn.FlushTimeout(timeout); err != nil {
		e.logger.Warn("Failed to flush events", "error", err)
	}
}

// PublishSetupStart publishes a setup start event
func (e *EventPublisher) PublishSetupStart(version string) {
	e.Publish(Event{
		Type:    EventSetupStart,
		Message: "4G modem setup started",
		Details: map[string]any{"version": version},
	})
}

// PublishVariantDetected publishes the modem classification
func (e *EventPublisher) PublishVariantDetected(variant string) {
	e.Publish(Event{
		Type:    EventVariantDetected,
		Variant: variant,
		Message: variant + " card found",
	})
}

// PublishModemLocated publishes the selected modem port
func (e *EventPublisher) PublishModemLocated(device, variant string, candidates []string) {
	e.Publish(Event{
		Type:    EventModemLocated,
		Device:  device,
		Variant: variant,
		Message: "Modem port selected",
		Details: map[string]any{"candidates": candidates},
	})
}

// PublishModemNotFound publishes a detection failure
func (e *EventPublisher) PublishModemNotFound(variant, reason string, candidates []string) {
	e.Publish(Event{
		Type:    EventModemNotFound,
		Variant: variant,
		Message: reason,
		Details: map[string]any{"candidates": candidates},
	})
}

// PublishSetupComplete publishes a finished sequence with session counters
func (e *EventPublisher) PublishSetupComplete(device, variant string, details map[string]any) {
	e.Publish(Event{
		Type:    EventSetupComplete,
		Device:  device,
		Variant: variant,
		Message: "4G modem setup complete",
		Details: details,
	})
}

// PublishSetupCancelled publishes a user cancellation
func (e *EventPublisher) PublishSetupCancelled(device, variant string) {
	e.Publish(Event{
		Type:    EventSetupCancelled,
		Device:  device,
		Variant: variant,
		Message: "Configuration terminated by user",
	})
}

// PublishError publishes an error event
func (e *EventPublisher) PublishError(device, errMsg string) {
	e.Publish(Event{
		Type:    EventError,
		Device:  device,
		Message: errMsg,
	})
}

// BuildEventsSubject constructs the events subject from state prefix and hostname
// Format: {state}.events.{hostname}
func BuildEventsSubject(subjectPrefix, instanceID string) string {
	// subjectPrefix is like "nwk.setup", we want "nwk.events.{instance}"
	state := subjectPrefix
	for i, c := range subjectPrefix {
		if c == '.' {
			state = subjectPrefix[:i]
			break
		}
	}
	return state + ".events." + instanceID
}

// BuildTranscriptSubject constructs the transcript subject
// Format: {prefix}.transcript.{hostname}
func BuildTranscriptSubject(subjectPrefix, instanceID string) string {
	return subjectPrefix + ".transcript." + instanceID
}
