package serial

import (
	"fmt"
	"io"
	"sync"
	"time"

	"go.bug.st/serial"
)

// Timeouts used when opening ports
const (
	// ModemReadTimeout bounds every ReadLine on a modem session. A read that
	// hits it returns whatever arrived, possibly nothing.
	ModemReadTimeout = 15 * time.Second

	// ProbeReadTimeout is used for ports opened only to check they exist.
	ProbeReadTimeout = 1 * time.Second

	// ModemBaudRate is the fixed line speed of both supported modems.
	ModemBaudRate = 115200
)

// SerialConfig holds the communication parameters for opening a port
type SerialConfig struct {
	BaudRate    int
	DataBits    int
	Parity      string // "none", "odd", "even"
	StopBits    int
	ReadTimeout time.Duration
}

// DefaultSerialConfig returns an 8-N-1 config at the given baud rate
func DefaultSerialConfig(baudRate int) SerialConfig {
	return SerialConfig{
		BaudRate:    baudRate,
		DataBits:    8,
		Parity:      "none",
		StopBits:    1,
		ReadTimeout: ProbeReadTimeout,
	}
}

// ModemSerialConfig returns the parameters every modem session is opened with:
// 115200 baud, 8 data bits, no parity, 1 stop bit, 15s read timeout.
func ModemSerialConfig() SerialConfig {
	cfg := DefaultSerialConfig(ModemBaudRate)
	cfg.ReadTimeout = ModemReadTimeout
	return cfg
}

// Port is an open serial line that the modem code talks through
type Port interface {
	io.Writer
	io.Closer
	// ReadLine returns bytes up to and including '\n'. On timeout it returns
	// what was received so far with a nil error.
	ReadLine() ([]byte, error)
	Device() string
}

// Opener opens serial ports by device name
type Opener interface {
	Open(device string, cfg SerialConfig) (Port, error)
}

// SystemOpener opens real ports through go.bug.st/serial
type SystemOpener struct{}

// Open implements Opener
func (SystemOpener) Open(device string, cfg SerialConfig) (Port, error) {
	port, err := NewRealPort(device, cfg)
	if err != nil {
		return nil, err
	}
	return port, nil
}

// RealPort implements Port using go.bug.st/serial
type RealPort struct {
	device string
	config SerialConfig
	port   serial.Port
	isOpen bool
	mu     sync.Mutex
}

// NewRealPort opens device with cfg
func NewRealPort(device string, cfg SerialConfig) (*RealPort, error) {
	p := &RealPort{
		device: device,
		config: cfg,
	}

	if err := p.open(); err != nil {
		return nil, err
	}

	return p, nil
}

func (p *RealPort) open() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.isOpen {
		return fmt.Errorf("port already open")
	}

	mode, err := p.config.mode()
	if err != nil {
		return err
	}

	port, err := serial.Open(p.device, mode)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", p.device, err)
	}

	if p.config.ReadTimeout > 0 {
		if err := port.SetReadTimeout(p.config.ReadTimeout); err != nil {
			port.Close()
			return fmt.Errorf("failed to set read timeout: %w", err)
		}
	}

	p.port = port
	p.isOpen = true

	return nil
}

func (c SerialConfig) mode() (*serial.Mode, error) {
	mode := &serial.Mode{
		BaudRate: c.BaudRate,
		DataBits: c.DataBits,
	}

	switch c.Parity {
	case "", "none":
		mode.Parity = serial.NoParity
	case "odd":
		mode.Parity = serial.OddParity
	case "even":
		mode.Parity = serial.EvenParity
	default:
		return nil, fmt.Errorf("unsupported parity %q", c.Parity)
	}

	switch c.StopBits {
	case 0, 1:
		mode.StopBits = serial.OneStopBit
	case 2:
		mode.StopBits = serial.TwoStopBits
	default:
		return nil, fmt.Errorf("unsupported stop bits %d", c.StopBits)
	}

	return mode, nil
}

// Write implements io.Writer
func (p *RealPort) Write(b []byte) (int, error) {
	p.mu.Lock()
	port := p.port
	p.mu.Unlock()

	if port == nil {
		return 0, fmt.Errorf("port not open")
	}

	return port.Write(b)
}

// ReadLine reads one byte at a time so nothing past the newline is consumed.
// The whole line is bounded by the configured read timeout.
func (p *RealPort) ReadLine() ([]byte, error) {
	p.mu.Lock()
	port := p.port
	p.mu.Unlock()

	if port == nil {
		return nil, fmt.Errorf("port not open")
	}

	return readLine(port, p.device, p.config.ReadTimeout)
}

// byteSource is the part of serial.Port that readLine needs
type byteSource interface {
	SetReadTimeout(t time.Duration) error
	Read(p []byte) (int, error)
}

// readLine collects bytes up to and including '\n'. The read timeout is
// re-armed with the remaining budget before every read. A read returning no
// bytes is a timeout: the partial line is returned with a nil error.
func readLine(src byteSource, device string, timeout time.Duration) ([]byte, error) {
	var line []byte
	buf := make([]byte, 1)
	deadline := time.Now().Add(timeout)

	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return line, nil
		}
		if err := src.SetReadTimeout(remaining); err != nil {
			return line, fmt.Errorf("failed to set read timeout: %w", err)
		}

		n, err := src.Read(buf)
		if err != nil {
			return line, fmt.Errorf("read %s: %w", device, err)
		}
		if n == 0 {
			return line, nil
		}

		line = append(line, buf[0])
		if buf[0] == '\n' {
			return line, nil
		}
	}
}

// Close implements io.Closer
func (p *RealPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.isOpen || p.port == nil {
		return nil
	}

	err := p.port.Close()
	p.port = nil
	p.isOpen = false

	return err
}

// Device returns the device path
func (p *RealPort) Device() string {
	return p.device
}

// PortWithStats wraps a Port to track traffic statistics
type PortWithStats struct {
	port         Port
	bytesWritten int64
	bytesRead    int64
	linesRead    int64
	emptyReads   int64
	errors       int64
	mu           sync.RWMutex
}

// PortStats is a snapshot of PortWithStats counters
type PortStats struct {
	BytesWritten int64 `json:"bytes_written"`
	BytesRead    int64 `json:"bytes_read"`
	LinesRead    int64 `json:"lines_read"`
	EmptyReads   int64 `json:"empty_reads"`
	Errors       int64 `json:"errors"`
}

// NewPortWithStats creates a new PortWithStats
func NewPortWithStats(port Port) *PortWithStats {
	return &PortWithStats{
		port: port,
	}
}

// Write implements io.Writer and counts bytes written
func (p *PortWithStats) Write(b []byte) (int, error) {
	n, err := p.port.Write(b)

	p.mu.Lock()
	p.bytesWritten += int64(n)
	if err != nil {
		p.errors++
	}
	p.mu.Unlock()

	return n, err
}

// ReadLine implements Port and counts lines and timeouts
func (p *PortWithStats) ReadLine() ([]byte, error) {
	line, err := p.port.ReadLine()

	p.mu.Lock()
	p.bytesRead += int64(len(line))
	if len(line) == 0 {
		p.emptyReads++
	} else {
		p.linesRead++
	}
	if err != nil {
		p.errors++
	}
	p.mu.Unlock()

	return line, err
}

// Close implements io.Closer
func (p *PortWithStats) Close() error {
	return p.port.Close()
}

// Device returns the device path
func (p *PortWithStats) Device() string {
	return p.port.Device()
}

// Stats returns current statistics
func (p *PortWithStats) Stats() PortStats {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return PortStats{
		BytesWritten: p.bytesWritten,
		BytesRead:    p.bytesRead,
		LinesRead:    p.linesRead,
		EmptyReads:   p.emptyReads,
		Errors:       p.errors,
	}
}
