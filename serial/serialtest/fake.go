// Package serialtest provides in-memory serial ports for tests.
package serialtest

import (
	"errors"
	"fmt"
	"sync"

	"nwksetup/serial"
)

// ErrNoSuchPort is returned by Opener for device names it does not know
var ErrNoSuchPort = errors.New("serial port not found")

// ---- Port ----

// Port is a scripted serial.Port. Each ReadLine pops the next queued
// response; an empty queue behaves like a read timeout.
type Port struct {
	DeviceName string
	WriteErr   error
	CloseErr   error

	mu        sync.Mutex
	responses [][]byte
	writes    [][]byte
	reads     int
	open      bool
	closes    int
}

// NewPort creates an open Port that will answer with responses in order
func NewPort(device string, responses ...string) *Port {
	p := &Port{DeviceName: device, open: true}
	p.Queue(responses...)
	return p
}

// Queue appends responses to the read queue
func (p *Port) Queue(responses ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, r := range responses {
		p.responses = append(p.responses, []byte(r))
	}
}

func (p *Port) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.open {
		return 0, fmt.Errorf("%s: port not open", p.DeviceName)
	}
	if p.WriteErr != nil {
		return 0, p.WriteErr
	}
	p.writes = append(p.writes, append([]byte(nil), b...))
	return len(b), nil
}

func (p *Port) ReadLine() ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.open {
		return nil, fmt.Errorf("%s: port not open", p.DeviceName)
	}
	p.reads++
	if len(p.responses) == 0 {
		return nil, nil
	}
	line := p.responses[0]
	p.responses = p.responses[1:]
	return line, nil
}

func (p *Port) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.open = false
	p.closes++
	return p.CloseErr
}

func (p *Port) Device() string { return p.DeviceName }

// Writes returns a copy of everything written, one entry per Write call
func (p *Port) Writes() [][]byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([][]byte, len(p.writes))
	copy(out, p.writes)
	return out
}

// Reads returns the number of ReadLine calls
func (p *Port) Reads() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reads
}

// IsOpen reports whether the port is currently open
func (p *Port) IsOpen() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.open
}

// Closes returns how many times Close was called
func (p *Port) Closes() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closes
}

func (p *Port) reopen() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.open = true
}

// ---- Opener ----

// OpenCall records a single Open invocation
type OpenCall struct {
	Device string
	Config serial.SerialConfig
}

// Opener hands out registered Ports by device name. Opening a registered
// port again reopens the same Port, so its queue and history carry over.
type Opener struct {
	mu    sync.Mutex
	ports map[string]*Port
	fail  map[string]error
	calls []OpenCall
}

// NewOpener creates an Opener serving ports
func NewOpener(ports ...*Port) *Opener {
	o := &Opener{
		ports: make(map[string]*Port),
		fail:  make(map[string]error),
	}
	for _, p := range ports {
		o.ports[p.DeviceName] = p
	}
	return o
}

// Fail makes opening device return err (e.g. a busy port)
func (o *Opener) Fail(device string, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.fail[device] = err
}

func (o *Opener) Open(device string, cfg serial.SerialConfig) (serial.Port, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls = append(o.calls, OpenCall{Device: device, Config: cfg})

	if err, ok := o.fail[device]; ok {
		return nil, err
	}
	p, ok := o.ports[device]
	if !ok {
		return nil, fmt.Errorf("%s: %w", device, ErrNoSuchPort)
	}
	p.reopen()
	return p, nil
}

// Calls returns every Open invocation, successful or not
func (o *Opener) Calls() []OpenCall {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]OpenCall, len(o.calls))
	copy(out, o.calls)
	return out
}

// SuccessfulOpens returns the devices that were opened successfully, in order
func (o *Opener) SuccessfulOpens() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []string
	for _, c := range o.calls {
		if _, failed := o.fail[c.Device]; failed {
			continue
		}
		if _, ok := o.ports[c.Device]; ok {
			out = append(out, c.Device)
		}
	}
	return out
}

// ---- Enumerator ----

// Enumerator returns a fixed descriptor list
type Enumerator struct {
	Ports []serial.PortDescriptor
	Err   error
	Calls int
}

func (e *Enumerator) Enumerate() ([]serial.PortDescriptor, error) {
	e.Calls++
	if e.Err != nil {
		return nil, e.Err
	}
	out := make([]serial.PortDescriptor, len(e.Ports))
	copy(out, e.Ports)
	return out, nil
}
