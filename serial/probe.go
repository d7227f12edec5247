package serial

import (
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"strconv"
)

// Probe range defaults
const (
	// DefaultProbeLast is the highest port number tried
	DefaultProbeLast = 255

	windowsPrefix = "COM"
	unixPrefix    = "/dev/ttyUSB"
)

// Namespace is the numbered device-name space scanned by the Prober,
// e.g. COM1..COM255.
type Namespace struct {
	Prefix string
	First  int
	Last   int
}

// DefaultNamespace returns COM1..COM255 on Windows and /dev/ttyUSB0..255 elsewhere
func DefaultNamespace() Namespace {
	return NamespaceFor(runtime.GOOS)
}

// NamespaceFor returns the default namespace for goos
func NamespaceFor(goos string) Namespace {
	if goos == "windows" {
		return Namespace{Prefix: windowsPrefix, First: 1, Last: DefaultProbeLast}
	}
	return Namespace{Prefix: unixPrefix, First: 0, Last: DefaultProbeLast}
}

// Names returns every device name in the namespace, in numeric order
func (n Namespace) Names() []string {
	if n.Last < n.First {
		return nil
	}
	names := make([]string, 0, n.Last-n.First+1)
	for i := n.First; i <= n.Last; i++ {
		names = append(names, fmt.Sprintf("%s%d", n.Prefix, i))
	}
	return names
}

// PortSet is a set of device names that currently open successfully
type PortSet map[string]struct{}

// NewPortSet creates a PortSet holding names
func NewPortSet(names ...string) PortSet {
	s := make(PortSet, len(names))
	for _, name := range names {
		s.Add(name)
	}
	return s
}

// Add inserts name into the set
func (s PortSet) Add(name string) {
	s[name] = struct{}{}
}

// Contains reports whether name is in the set
func (s PortSet) Contains(name string) bool {
	_, ok := s[name]
	return ok
}

// Sorted returns the members in namespace order: by prefix, then by port
// number, so COM3 comes before COM10.
func (s PortSet) Sorted() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return portLess(names[i], names[j])
	})
	return names
}

// portLess orders device names by prefix and then numerically by their
// trailing digits. Names without a number sort before numbered ones.
func portLess(a, b string) bool {
	pa, na, oka := splitPortNumber(a)
	pb, nb, okb := splitPortNumber(b)
	if pa != pb {
		return pa < pb
	}
	if oka != okb {
		return !oka
	}
	if na != nb {
		return na < nb
	}
	return a < b
}

func splitPortNumber(name string) (prefix string, n int, ok bool) {
	i := len(name)
	for i > 0 && name[i-1] >= '0' && name[i-1] <= '9' {
		i--
	}
	if i == len(name) {
		return name, 0, false
	}
	n, err := strconv.Atoi(name[i:])
	if err != nil {
		return name, 0, false
	}
	return name[:i], n, true
}

// Minus returns the members not listed in exclude, in Sorted order
func (s PortSet) Minus(exclude []string) []string {
	skip := make(map[string]struct{}, len(exclude))
	for _, name := range exclude {
		skip[name] = struct{}{}
	}

	var out []string
	for _, name := range s.Sorted() {
		if _, ok := skip[name]; !ok {
			out = append(out, name)
		}
	}
	return out
}

// Prober finds which names in a namespace can currently be opened
type Prober struct {
	opener    Opener
	namespace Namespace
	logger    *slog.Logger
}

// NewProber creates a new Prober
func NewProber(opener Opener, namespace Namespace, logger *slog.Logger) *Prober {
	return &Prober{
		opener:    opener,
		namespace: namespace,
		logger:    logger,
	}
}

// Probe opens and immediately closes every name in the namespace. Names that
// fail to open are skipped; that is the normal case for unpopulated slots.
// No port is left open when Probe returns.
func (p *Prober) Probe() PortSet {
	found := NewPortSet()
	cfg := DefaultSerialConfig(9600)

	for _, name := range p.namespace.Names() {
		port, err := p.opener.Open(name, cfg)
		if err != nil {
			p.logger.Debug("Port is not populated", "device", name, "error", err)
			continue
		}

		if err := port.Close(); err != nil {
			p.logger.Debug("Failed to close probed port", "device", name, "error", err)
		}

		found.Add(name)
		p.logger.Debug("Port is populated", "device", name)
	}

	p.logger.Debug("Probe complete",
		"prefix", p.namespace.Prefix,
		"first", p.namespace.First,
		"last", p.namespace.Last,
		"populated", len(found))

	return found
}
