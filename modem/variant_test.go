package modem

import (
	"io"
	"log/slog"
	"reflect"
	"testing"

	"nwksetup/serial"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		ports []serial.PortDescriptor
		want  Variant
	}{
		{
			name: "no ports",
			want: NWK100,
		},
		{
			name: "plain com port",
			ports: []serial.PortDescriptor{
				{Device: "COM1", Description: "Communications Port (COM1)"},
			},
			want: NWK100,
		},
		{
			name: "nmea marker",
			ports: []serial.PortDescriptor{
				{Device: "COM1", Description: "Communications Port (COM1)"},
				{Device: "COM7", Description: "Sierra Wireless X7 LTE-A NMEA Port (COM7)"},
			},
			want: NWK200,
		},
		{
			name: "marker is case sensitive",
			ports: []serial.PortDescriptor{
				{Device: "COM7", Description: "x7 lte-a nmea port"},
			},
			want: NWK100,
		},
		{
			name: "marker in device name does not count",
			ports: []serial.PortDescriptor{
				{Device: "X7 LTE-A NMEA Port", Description: "n/a"},
			},
			want: NWK100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.ports); got != tt.want {
				t.Errorf("Classify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVariantString(t *testing.T) {
	tests := []struct {
		v    Variant
		want string
	}{
		{NWK100, "nwk100"},
		{NWK200, "nwk200"},
		{Variant(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.v.String(); got != tt.want {
			t.Errorf("Variant(%d).String() = %q, want %q", tt.v, got, tt.want)
		}
	}
}

func TestCandidates(t *testing.T) {
	probed := serial.NewPortSet("COM1", "COM3", "COM4", "COM6")
	ports := []serial.PortDescriptor{
		{Device: "COM1"},
		{Device: "COM4"},
		{Device: "COM9"},
	}

	want := []string{"COM3", "COM6"}
	if got := Candidates(probed, ports); !reflect.DeepEqual(got, want) {
		t.Errorf("Candidates() = %v, want %v", got, want)
	}

	reordered := []serial.PortDescriptor{ports[2], ports[0], ports[1]}
	if got := Candidates(probed, reordered); !reflect.DeepEqual(got, want) {
		t.Errorf("Candidates() with reordered descriptors = %v, want %v", got, want)
	}
}
