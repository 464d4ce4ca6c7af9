// Package emu ties a CPU core to memory and IO and drives it: single steps,
// or a throttled run loop with breakpoints and stop reasons.
package emu

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/oisee/z80-emulator/pkg/bus"
	"github.com/oisee/z80-emulator/pkg/inst"
	"github.com/sirupsen/logrus"
)

// ErrHalted is returned by Step while the CPU sits on a HALT.
var ErrHalted = errors.New("cpu is halted")

// InterruptSource is polled before every instruction. bus.Ports implements
// it.
type InterruptSource interface {
	PendingInterrupt() (bus.Interrupt, bool)
}

// Emulator owns a CPU and the memory and IO it runs against.
type Emulator struct {
	CPU         CPU
	Memory      bus.Memory
	IO          bus.IO
	Breakpoints []uint16
	Cycles      uint64

	Log logrus.FieldLogger
}

// Option configures an Emulator built by New.
type Option func(*Emulator)

func WithMemory(m bus.Memory) Option { return func(e *Emulator) { e.Memory = m } }
func WithIO(p bus.IO) Option         { return func(e *Emulator) { e.IO = p } }

func WithLogger(l logrus.FieldLogger) Option { return func(e *Emulator) { e.Log = l } }

func WithBreakpoints(addrs ...uint16) Option {
	return func(e *Emulator) { e.Breakpoints = append(e.Breakpoints, addrs...) }
}

// New returns an emulator for t with 64 KiB of RAM and an empty port map
// unless options say otherwise.
func New(t CPUType, opts ...Option) *Emulator {
	e := &Emulator{
		CPU:    NewCPU(t),
		Memory: bus.NewRAM(),
		IO:     bus.NewPorts(),
		Log:    logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Type reports the current core.
func (e *Emulator) Type() CPUType { return TypeOf(e.CPU) }

// SetCPUType swaps in a fresh core of type t. Asking for the current type
// keeps the existing core and its state.
func (e *Emulator) SetCPUType(t CPUType) {
	if e.Type() == t {
		return
	}
	e.CPU = NewCPU(t)
}

// Reset resets the core, the interrupt flip-flops and the cycle counter.
// Memory is left alone.
func (e *Emulator) Reset() {
	e.CPU.Reset()
	*e.IO.Interrupts() = bus.InterruptState{}
	e.Cycles = 0
}

// Load copies a binary image into memory at org.
func (e *Emulator) Load(r io.Reader, org uint16) (int, error) {
	return bus.Load(e.Memory, r, org)
}

// AddBreakpoint stops Run when PC reaches addr.
func (e *Emulator) AddBreakpoint(addr uint16) {
	if !slices.Contains(e.Breakpoints, addr) {
		e.Breakpoints = append(e.Breakpoints, addr)
	}
}

func (e *Emulator) RemoveBreakpoint(addr uint16) {
	e.Breakpoints = slices.DeleteFunc(e.Breakpoints, func(a uint16) bool { return a == addr })
}

// Step accepts a pending interrupt, then executes one instruction. It
// returns ErrHalted when the CPU is halted and nothing woke it.
func (e *Emulator) Step() (inst.Instruction, error) {
	return e.step(false)
}

// step runs one instruction and advances the IO devices by its T-states.
// With idle set a halted CPU is stepped anyway
// so it burns HALT cycles while waiting for an interrupt.
func (e *Emulator) step(idle bool) (inst.Instruction, error) {
	if err := e.poll(); err != nil {
		return inst.Instruction{}, err
	}
	if e.CPU.Halted() && !idle {
		return inst.Instruction{}, ErrHalted
	}
	in, err := e.CPU.Step(e.Memory, e.IO)
	if err != nil {
		return in, err
	}
	e.Cycles += uint64(in.Cycles)
	if t, ok := e.IO.(bus.Ticker); ok {
		t.Tick(in.Cycles)
	}
	return in, nil
}

// poll hands the next pending interrupt to the CPU unless the instruction
// just executed was EI.
func (e *Emulator) poll() error {
	src, ok := e.IO.(InterruptSource)
	if !ok || e.CPU.InterruptsBlocked() {
		return nil
	}
	req, ok := src.PendingInterrupt()
	if !ok {
		return nil
	}
	n, err := e.CPU.Interrupt(e.Memory, e.IO, req)
	if err != nil {
		return fmt.Errorf("accept %v: %w", req.Kind, err)
	}
	e.Cycles += uint64(n)
	return nil
}

// StopReason tells why Run returned.
type StopReason int

const (
	StopBreakpoint StopReason = iota
	StopHalt
	StopError
	StopCancelled
	StopCycleLimit
)

var stopNames = [...]string{"breakpoint", "halt", "error", "cancelled", "cycle limit"}

func (s StopReason) String() string {
	if int(s) < len(stopNames) {
		return stopNames[s]
	}
	return fmt.Sprintf("StopReason(%d)", int(s))
}

// Config controls Run. The zero value runs unthrottled until the CPU halts
// or hits a breakpoint.
type Config struct {
	Frequency     float64 // target clock in Hz; 0 runs as fast as possible
	TicksPerChunk int     // T-states executed between throttle sleeps
	MaxCycles     uint64  // stop after this many T-states; 0 means no limit
	IdleOnHalt    bool    // keep a halted CPU ticking while interrupts are enabled
	Trace         bool    // log every instruction at debug level
}

// DefaultTicksPerChunk is used when Config.TicksPerChunk is zero.
const DefaultTicksPerChunk = 10000

// Callback is invoked after every executed instruction with the address it
// was fetched from.
type Callback func(e *Emulator, pc uint16, in inst.Instruction)

// Run executes instructions until a stop condition. Time is checked once
// per chunk: if the chunk ran faster than Frequency allows, Run sleeps off
// the difference. The returned error is set for StopError and StopCancelled.
func (e *Emulator) Run(ctx context.Context, cfg Config, cb Callback) (StopReason, error) {
	chunk := cfg.TicksPerChunk
	if chunk <= 0 {
		chunk = DefaultTicksPerChunk
	}
	var tick time.Duration
	if cfg.Frequency > 0 {
		tick = time.Duration(float64(time.Second) / cfg.Frequency)
	}
	start := e.Cycles
	warned := false

	stop := func(reason StopReason, err error) (StopReason, error) {
		fields := logrus.Fields{
			"reason": reason.String(),
			"pc":     fmt.Sprintf("%04X", e.CPU.Registers().PC),
			"cycles": e.Cycles - start,
		}
		if err != nil {
			e.Log.WithFields(fields).WithError(err).Info("emulator stopped")
		} else {
			e.Log.WithFields(fields).Info("emulator stopped")
		}
		return reason, err
	}

	ticks := 0
	for {
		if err := ctx.Err(); err != nil {
			return stop(StopCancelled, err)
		}
		began := time.Now()
		before := e.Cycles
		for ticks < chunk {
			pc := e.CPU.Registers().PC
			idle := cfg.IdleOnHalt && e.IO.Interrupts().IFF1
			in, err := e.step(idle)
			if err != nil {
				return stop(StopError, err)
			}
			ticks += int(e.Cycles - before)
			before = e.Cycles

			if cfg.Trace {
				e.Log.WithFields(logrus.Fields{
					"pc":     fmt.Sprintf("%04X", pc),
					"op":     in.String(),
					"cycles": in.Cycles,
				}).Debug("step")
			}
			if cb != nil {
				cb(e, pc, in)
			}

			if e.CPU.Halted() && !(cfg.IdleOnHalt && e.IO.Interrupts().IFF1) {
				return stop(StopHalt, nil)
			}
			if slices.Contains(e.Breakpoints, e.CPU.Registers().PC) {
				return stop(StopBreakpoint, nil)
			}
			if cfg.MaxCycles > 0 && e.Cycles-start >= cfg.MaxCycles {
				return stop(StopCycleLimit, nil)
			}
		}

		if tick > 0 {
			expected := tick * time.Duration(ticks)
			if wait := expected - time.Since(began); wait > 0 {
				t := time.NewTimer(wait)
				select {
				case <-ctx.Done():
					t.Stop()
					return stop(StopCancelled, ctx.Err())
				case <-t.C:
				}
			} else if !warned {
				e.Log.WithField("frequency", cfg.Frequency).Warn("host cannot keep up with the requested clock")
				warned = true
			}
		}
		ticks %= chunk
	}
}
