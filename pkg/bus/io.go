package bus

import (
	"errors"
	"fmt"
	"slices"
	"sync"
)

var (
	ErrNoDevice  = errors.New("no device on port")
	ErrPortInUse = errors.New("port already connected")
)

// IOError reports a failed port access.
type IOError struct {
	Op   string // "in" or "out"
	Port uint8
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("io %s port %02Xh: %v", e.Op, e.Port, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// InterruptState holds the interrupt flip-flops and mode. The CPU mutates it
// directly on DI, EI, IM and RETN.
type InterruptState struct {
	IFF1 bool
	IFF2 bool
	Mode uint8 // 0, 1 or 2
}

// IO is the port surface of the machine plus its interrupt state.
type IO interface {
	Read(port uint8) (uint8, error)
	Write(port uint8, v uint8) error
	Interrupts() *InterruptState
}

// InterruptKind distinguishes the non-maskable line from INT.
type InterruptKind uint8

const (
	NMI InterruptKind = iota
	IRQ
)

func (k InterruptKind) String() string {
	if k == NMI {
		return "NMI"
	}
	return "INT"
}

// Interrupt is one request presented to the CPU. Data is the byte the device
// places on the data bus during acknowledge: an opcode in mode 0, the low
// vector byte in mode 2, ignored otherwise.
type Interrupt struct {
	Kind InterruptKind
	Data uint8
}

// PortDevice is a peripheral connected to one or more ports.
type PortDevice interface {
	In(port uint8) (uint8, error)
	Out(port uint8, v uint8) error
}

// Interrupter is implemented by devices able to request interrupts.
type Interrupter interface {
	PendingInterrupt() (Interrupt, bool)
	AckInterrupt()
}

// Ticker is implemented by devices that keep time with the CPU, such as
// timers. Tick is called after every instruction with its T-states.
type Ticker interface {
	Tick(cycles int)
}

// Ports maps port numbers to devices. It implements IO. The zero value has
// no devices and interrupts disabled.
type Ports struct {
	mu      sync.Mutex
	devices [256]PortDevice
	order   []PortDevice
	state   InterruptState
	pending []Interrupt
}

// NewPorts returns an empty port map.
func NewPorts() *Ports {
	return &Ports{}
}

// AddDevice connects d to every port in ports. Connecting a port twice fails
// with ErrPortInUse and leaves the map unchanged.
func (p *Ports) AddDevice(d PortDevice, ports ...uint8) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, port := range ports {
		if p.devices[port] != nil {
			return &IOError{Op: "connect", Port: port, Err: ErrPortInUse}
		}
	}
	for _, port := range ports {
		p.devices[port] = d
	}
	p.order = append(p.order, d)
	return nil
}

// RemoveDevice disconnects d from every port it holds so they can be
// connected again. It fails with ErrNoDevice if d was never added.
func (p *Ports) RemoveDevice(d PortDevice) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	i := slices.Index(p.order, d)
	if i < 0 {
		return ErrNoDevice
	}
	p.order = slices.Delete(p.order, i, i+1)
	for port := range p.devices {
		if p.devices[port] == d {
			p.devices[port] = nil
		}
	}
	return nil
}

// Tick advances every connected Ticker by cycles. Devices may raise
// interrupts from Tick.
func (p *Ports) Tick(cycles int) {
	p.mu.Lock()
	devices := slices.Clone(p.order)
	p.mu.Unlock()
	for _, d := range devices {
		if t, ok := d.(Ticker); ok {
			t.Tick(cycles)
		}
	}
}

func (p *Ports) Read(port uint8) (uint8, error) {
	d := p.devices[port]
	if d == nil {
		return 0, &IOError{Op: "in", Port: port, Err: ErrNoDevice}
	}
	v, err := d.In(port)
	if err != nil {
		return 0, &IOError{Op: "in", Port: port, Err: err}
	}
	return v, nil
}

func (p *Ports) Write(port uint8, v uint8) error {
	d := p.devices[port]
	if d == nil {
		return &IOError{Op: "out", Port: port, Err: ErrNoDevice}
	}
	if err := d.Out(port, v); err != nil {
		return &IOError{Op: "out", Port: port, Err: err}
	}
	return nil
}

func (p *Ports) Interrupts() *InterruptState {
	return &p.state
}

// Raise queues an interrupt request from outside any device.
func (p *Ports) Raise(i Interrupt) {
	p.mu.Lock()
	p.pending = append(p.pending, i)
	p.mu.Unlock()
}

// PendingInterrupt returns the next request the CPU should accept and
// consumes it. NMI is always accepted; INT only while IFF1 is set. Queued
// requests come before device requests, and an NMI anywhere wins over INT.
func (p *Ports) PendingInterrupt() (Interrupt, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, req := range p.pending {
		if req.Kind == NMI {
			p.pending = append(p.pending[:i], p.pending[i+1:]...)
			return req, true
		}
	}
	for _, d := range p.order {
		if src, ok := d.(Interrupter); ok {
			if req, ok := src.PendingInterrupt(); ok && req.Kind == NMI {
				src.AckInterrupt()
				return req, true
			}
		}
	}
	if !p.state.IFF1 {
		return Interrupt{}, false
	}
	if len(p.pending) > 0 {
		req := p.pending[0]
		p.pending = p.pending[1:]
		return req, true
	}
	for _, d := range p.order {
		if src, ok := d.(Interrupter); ok {
			if req, ok := src.PendingInterrupt(); ok {
				src.AckInterrupt()
				return req, true
			}
		}
	}
	return Interrupt{}, false
}

// Latch is a byte register per port: OUT stores, IN returns the last value
// stored. It can also raise a mode-0/2 interrupt carrying a fixed data byte.
type Latch struct {
	mu     sync.Mutex
	values map[uint8]uint8
	irq    bool
	data   uint8
}

// NewLatch returns a latch with every port reading zero.
func NewLatch() *Latch {
	return &Latch{values: make(map[uint8]uint8)}
}

func (l *Latch) In(port uint8) (uint8, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.values[port], nil
}

func (l *Latch) Out(port uint8, v uint8) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.values[port] = v
	return nil
}

// Request asserts INT with data on the bus until acknowledged.
func (l *Latch) Request(data uint8) {
	l.mu.Lock()
	l.irq, l.data = true, data
	l.mu.Unlock()
}

func (l *Latch) PendingInterrupt() (Interrupt, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Interrupt{Kind: IRQ, Data: l.data}, l.irq
}

func (l *Latch) AckInterrupt() {
	l.mu.Lock()
	l.irq = false
	l.mu.Unlock()
}

// Open is an IO that reads 0xFF from every port and discards writes, like an
// unloaded data bus.
type Open struct {
	State InterruptState
}

func (o *Open) Read(uint8) (uint8, error)   { return 0xFF, nil }
func (o *Open) Write(uint8, uint8) error    { return nil }
func (o *Open) Interrupts() *InterruptState { return &o.State }
