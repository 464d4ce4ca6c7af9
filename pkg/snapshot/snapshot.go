// Package snapshot saves and restores emulator state with encoding/gob.
package snapshot

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/oisee/z80-emulator/pkg/bus"
	"github.com/oisee/z80-emulator/pkg/cpu"
	"github.com/oisee/z80-emulator/pkg/emu"
)

// Version is bumped whenever Snapshot changes incompatibly.
const Version = 1

var ErrVersion = errors.New("unsupported snapshot version")

// Snapshot is everything needed to resume an emulator: the core, its
// interrupt flip-flops and the mapped memory.
type Snapshot struct {
	Version     int
	CPU         emu.CPUType
	Registers   cpu.Registers
	Interrupts  bus.InterruptState
	Halted      bool
	Cycles      uint64
	Breakpoints []uint16
	Memory      []uint8
}

// Capture copies the state of e. Memory is read from address 0 up to the
// size of the map (64 KiB for flat RAM).
func Capture(e *emu.Emulator) (*Snapshot, error) {
	n := 0x10000
	if s, ok := e.Memory.(interface{ Size() int }); ok {
		n = min(s.Size(), n)
	}
	mem, err := bus.Dump(e.Memory, 0, n)
	if err != nil {
		return nil, fmt.Errorf("dump memory: %w", err)
	}
	return &Snapshot{
		Version:     Version,
		CPU:         e.Type(),
		Registers:   *e.CPU.Registers(),
		Interrupts:  *e.IO.Interrupts(),
		Halted:      e.CPU.Halted(),
		Cycles:      e.Cycles,
		Breakpoints: append([]uint16(nil), e.Breakpoints...),
		Memory:      mem,
	}, nil
}

// Restore puts s into e, switching the core type if needed. Read-only
// regions are written through.
func (s *Snapshot) Restore(e *emu.Emulator) error {
	if s.Version != Version {
		return fmt.Errorf("%w: %d", ErrVersion, s.Version)
	}
	if _, err := bus.Load(e.Memory, bytes.NewReader(s.Memory), 0); err != nil {
		return fmt.Errorf("restore memory: %w", err)
	}
	e.SetCPUType(s.CPU)
	e.CPU.SetRegisters(s.Registers)
	e.CPU.SetHalted(s.Halted)
	*e.IO.Interrupts() = s.Interrupts
	e.Cycles = s.Cycles
	e.Breakpoints = append([]uint16(nil), s.Breakpoints...)
	return nil
}

// Write encodes s to w.
func Write(w io.Writer, s *Snapshot) error {
	return gob.NewEncoder(w).Encode(s)
}

// Read decodes a snapshot from r.
func Read(r io.Reader) (*Snapshot, error) {
	var s Snapshot
	if err := gob.NewDecoder(r).Decode(&s); err != nil {
		return nil, err
	}
	if s.Version != Version {
		return nil, fmt.Errorf("%w: %d", ErrVersion, s.Version)
	}
	return &s, nil
}

// Save writes s to a file.
func Save(path string, s *Snapshot) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Write(f, s); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Load reads a snapshot file.
func Load(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f)
}
