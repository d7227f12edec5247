package serial

import (
	"fmt"
	"strings"

	"go.bug.st/serial/enumerator"
)

// PortDescriptor describes one serial endpoint registered with the OS
type PortDescriptor struct {
	Device      string `json:"device"`
	Description string `json:"description"`
}

// Enumerator lists the serial ports the OS knows about
type Enumerator interface {
	Enumerate() ([]PortDescriptor, error)
}

// SystemEnumerator queries the host device registry via go.bug.st/serial/enumerator
type SystemEnumerator struct{}

// Enumerate implements Enumerator
func (SystemEnumerator) Enumerate() ([]PortDescriptor, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate serial ports: %w", err)
	}

	ports := make([]PortDescriptor, 0, len(details))
	for _, d := range details {
		ports = append(ports, PortDescriptor{
			Device:      d.Name,
			Description: describe(d),
		})
	}

	return ports, nil
}

// describe builds a human-readable description from enumerator details.
// The product string carries the interface name (e.g. "X7 LTE-A NMEA Port").
func describe(d *enumerator.PortDetails) string {
	desc := strings.TrimSpace(d.Product)
	if desc == "" && d.IsUSB {
		desc = fmt.Sprintf("USB VID:PID=%s:%s", d.VID, d.PID)
	}
	if desc == "" {
		desc = "n/a"
	}
	return desc
}

// DeviceNames returns the device names of descriptors, in input order
func DeviceNames(ports []PortDescriptor) []string {
	names := make([]string, 0, len(ports))
	for _, p := range ports {
		names = append(names, p.Device)
	}
	return names
}
