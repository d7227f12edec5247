package modem

import (
	"strings"

	"nwksetup/serial"
)

// Variant identifies which modem family is installed
type Variant int

const (
	// NWK100 is the default when no NWK200 marker is found
	NWK100 Variant = iota
	NWK200
)

// NWK200Marker appears in the description of the NWK200's NMEA interface
const NWK200Marker = "X7 LTE-A NMEA Port"

func (v Variant) String() string {
	switch v {
	case NWK100:
		return "nwk100"
	case NWK200:
		return "nwk200"
	default:
		return "unknown"
	}
}

// Classify returns NWK200 when any descriptor carries the NWK200 marker.
// Anything else is treated as NWK100; there is no "unknown" outcome, so a
// machine with an undetected NWK200 will be configured as an NWK100.
func Classify(ports []serial.PortDescriptor) Variant {
	for _, p := range ports {
		if strings.Contains(p.Description, NWK200Marker) {
			return NWK200
		}
	}
	return NWK100
}

// Candidates returns the probed ports that the OS does not describe, sorted.
// The modem's AT port is expected to be among them.
func Candidates(probed serial.PortSet, ports []serial.PortDescriptor) []string {
	return probed.Minus(serial.DeviceNames(ports))
}
