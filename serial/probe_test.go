package serial_test

import (
	"errors"
	"io"
	"log/slog"
	"reflect"
	"testing"

	"nwksetup/serial"
	"nwksetup/serial/serialtest"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNamespaceNames(t *testing.T) {
	tests := []struct {
		name string
		ns   serial.Namespace
		want []string
	}{
		{
			name: "small range",
			ns:   serial.Namespace{Prefix: "COM", First: 1, Last: 3},
			want: []string{"COM1", "COM2", "COM3"},
		},
		{
			name: "single",
			ns:   serial.Namespace{Prefix: "/dev/ttyUSB", First: 0, Last: 0},
			want: []string{"/dev/ttyUSB0"},
		},
		{
			name: "empty when last < first",
			ns:   serial.Namespace{Prefix: "COM", First: 5, Last: 4},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.ns.Names()
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Names() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNamespaceFor(t *testing.T) {
	win := serial.NamespaceFor("windows")
	if win.Prefix != "COM" || win.First != 1 || win.Last != 255 {
		t.Errorf("windows namespace = %+v, want COM1..COM255", win)
	}
	if n := len(win.Names()); n != 255 {
		t.Errorf("windows namespace has %d names, want 255", n)
	}

	linux := serial.NamespaceFor("linux")
	if linux.Prefix != "/dev/ttyUSB" || linux.First != 0 || linux.Last != 255 {
		t.Errorf("linux namespace = %+v, want /dev/ttyUSB0..255", linux)
	}
}

func TestPortSetMinus(t *testing.T) {
	set := serial.NewPortSet("COM4", "COM1", "COM7", "COM3")

	got := set.Minus([]string{"COM1", "COM3", "COM9"})
	want := []string{"COM4", "COM7"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Minus() = %v, want %v", got, want)
	}

	if got := set.Minus([]string{"COM1", "COM3", "COM4", "COM7"}); len(got) != 0 {
		t.Errorf("Minus() of everything = %v, want empty", got)
	}
}

func TestPortSetSortedNumericOrder(t *testing.T) {
	tests := []struct {
		name  string
		ports []string
		want  []string
	}{
		{
			name:  "windows numbers",
			ports: []string{"COM10", "COM3", "COM100", "COM2"},
			want:  []string{"COM2", "COM3", "COM10", "COM100"},
		},
		{
			name:  "unix numbers",
			ports: []string{"/dev/ttyUSB12", "/dev/ttyUSB1", "/dev/ttyUSB0"},
			want:  []string{"/dev/ttyUSB0", "/dev/ttyUSB1", "/dev/ttyUSB12"},
		},
		{
			name:  "prefix first",
			ports: []string{"COM2", "/dev/ttyUSB9", "COM", "/dev/ttyACM10"},
			want:  []string{"/dev/ttyACM10", "/dev/ttyUSB9", "COM", "COM2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := serial.NewPortSet(tt.ports...).Sorted()
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Sorted() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPortSetMinusKeepsNamespaceOrder(t *testing.T) {
	set := serial.NewPortSet(serial.Namespace{Prefix: "COM", First: 1, Last: 12}.Names()...)

	got := set.Minus([]string{"COM1", "COM2", "COM4", "COM5", "COM6", "COM7", "COM8", "COM9", "COM11"})
	want := []string{"COM3", "COM10", "COM12"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Minus() = %v, want %v", got, want)
	}
}

func TestPortSetMinusOrderIndependent(t *testing.T) {
	a := serial.NewPortSet("COM9", "COM2", "COM5")
	b := serial.NewPortSet("COM5", "COM9", "COM2")

	got1 := a.Minus([]string{"COM2", "COM1"})
	got2 := b.Minus([]string{"COM1", "COM2"})
	if !reflect.DeepEqual(got1, got2) {
		t.Errorf("Minus() depends on input order: %v vs %v", got1, got2)
	}
}

func TestProberFindsPopulatedPorts(t *testing.T) {
	com2 := serialtest.NewPort("COM2")
	com5 := serialtest.NewPort("COM5")
	opener := serialtest.NewOpener(com2, com5)

	prober := serial.NewProber(opener, serial.Namespace{Prefix: "COM", First: 1, Last: 6}, testLogger())
	found := prober.Probe()

	want := []string{"COM2", "COM5"}
	if got := found.Sorted(); !reflect.DeepEqual(got, want) {
		t.Errorf("Probe() = %v, want %v", got, want)
	}

	if calls := len(opener.Calls()); calls != 6 {
		t.Errorf("Open called %d times, want 6", calls)
	}
}

func TestProberLeavesPortsClosed(t *testing.T) {
	com2 := serialtest.NewPort("COM2")
	com3 := serialtest.NewPort("COM3")
	opener := serialtest.NewOpener(com2, com3)

	serial.NewProber(opener, serial.Namespace{Prefix: "COM", First: 1, Last: 4}, testLogger()).Probe()

	for _, p := range []*serialtest.Port{com2, com3} {
		if p.IsOpen() {
			t.Errorf("%s left open after probe", p.DeviceName)
		}
		if p.Closes() != 1 {
			t.Errorf("%s closed %d times, want 1", p.DeviceName, p.Closes())
		}
	}
}

func TestProberSkipsBusyPorts(t *testing.T) {
	com1 := serialtest.NewPort("COM1")
	com2 := serialtest.NewPort("COM2")
	opener := serialtest.NewOpener(com1, com2)
	opener.Fail("COM1", errors.New("access denied"))

	found := serial.NewProber(opener, serial.Namespace{Prefix: "COM", First: 1, Last: 2}, testLogger()).Probe()

	if found.Contains("COM1") {
		t.Error("busy COM1 should not be reported as populated")
	}
	if !found.Contains("COM2") {
		t.Error("COM2 should be reported as populated")
	}
}

func TestProberUsesDefaultParameters(t *testing.T) {
	opener := serialtest.NewOpener(serialtest.NewPort("COM1"))

	serial.NewProber(opener, serial.Namespace{Prefix: "COM", First: 1, Last: 1}, testLogger()).Probe()

	calls := opener.Calls()
	if len(calls) != 1 {
		t.Fatalf("Open called %d times, want 1", len(calls))
	}
	if calls[0].Config.BaudRate != 9600 {
		t.Errorf("probe baud = %d, want 9600", calls[0].Config.BaudRate)
	}
}

func TestDeviceNames(t *testing.T) {
	ports := []serial.PortDescriptor{
		{Device: "COM1", Description: "Communications Port"},
		{Device: "COM4", Description: "X7 LTE-A NMEA Port"},
	}
	want := []string{"COM1", "COM4"}
	if got := serial.DeviceNames(ports); !reflect.DeepEqual(got, want) {
		t.Errorf("DeviceNames() = %v, want %v", got, want)
	}
}

func BenchmarkPortSetMinus(b *testing.B) {
	names := serial.NamespaceFor("windows").Names()
	set := serial.NewPortSet(names...)
	exclude := names[:200]

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		set.Minus(exclude)
	}
}
