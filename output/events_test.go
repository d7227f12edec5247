package output

import (
	"encoding/json"
	"log/slog"
	"os"
	"testing"
	"time"
)

func TestNewEventPublisherDisabled(t *testing.T) {
	if p := NewEventPublisher(nil); p != nil {
		t.Error("NewEventPublisher(nil) should return nil")
	}
	if p := NewEventPublisher(&EventPublisherConfig{Subject: "nwk.events.x"}); p != nil {
		t.Error("NewEventPublisher without Conn should return nil")
	}
}

func TestEventPublisherNilSafe(t *testing.T) {
	var p *EventPublisher

	// None of these may panic
	p.Publish(Event{Type: EventError})
	p.PublishSetupStart("1.0.0")
	p.PublishVariantDetected("nwk100")
	p.PublishModemLocated("COM5", "nwk100", []string{"COM5"})
	p.PublishModemNotFound("nwk200", "no candidates", nil)
	p.PublishSetupComplete("COM5", "nwk100", nil)
	p.PublishSetupCancelled("COM5", "nwk200")
	p.PublishError("COM5", "boom")
	p.Callback()(Event{Type: EventStateChange})
	p.Flush(time.Second)
}

func TestEventEncode(t *testing.T) {
	p := &EventPublisher{
		subject:    "nwk.events.store-0412",
		instanceID: "store-0412",
		logger:     slog.New(slog.NewTextHandler(os.Stderr, nil)),
	}

	data, err := p.encode(Event{
		Type:    EventModemLocated,
		Device:  "COM5",
		Variant: "nwk200",
	})
	if err != nil {
		t.Fatalf("encode() error = %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("encoded event is not JSON: %v", err)
	}
	if got["instance"] != "store-0412" {
		t.Errorf("instance = %v, want store-0412", got["instance"])
	}
	if got["type"] != EventModemLocated {
		t.Errorf("type = %v, want %s", got["type"], EventModemLocated)
	}
	if got["dev"] != "COM5" || got["variant"] != "nwk200" {
		t.Errorf("dev/variant = %v/%v", got["dev"], got["variant"])
	}
	if _, ok := got["ts"]; !ok {
		t.Error("ts should be filled in")
	}
	if _, ok := got["details"]; ok {
		t.Error("empty details should be omitted")
	}
}

func TestBuildSubjects(t *testing.T) {
	tests := []struct {
		prefix string
		want   string
	}{
		{"nwk.setup", "nwk.events.store-0412"},
		{"nwk", "nwk.events.store-0412"},
		{"a.b.c", "a.events.store-0412"},
	}
	for _, tt := range tests {
		if got := BuildEventsSubject(tt.prefix, "store-0412"); got != tt.want {
			t.Errorf("BuildEventsSubject(%q) = %q, want %q", tt.prefix, got, tt.want)
		}
	}

	if got := BuildTranscriptSubject("nwk.setup", "store-0412"); got != "nwk.setup.transcript.store-0412" {
		t.Errorf("BuildTranscriptSubject() = %q", got)
	}
}

func TestNATSConnectionNilSafeEvents(t *testing.T) {
	var nc *NATSConnection
	if nc.IsConnected() {
		t.Error("nil NATSConnection should not be connected")
	}
	if nc.Conn() != nil {
		t.Error("nil NATSConnection should have nil Conn")
	}
}
