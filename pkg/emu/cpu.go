package emu

import (
	"fmt"
	"strings"

	"github.com/oisee/z80-emulator/pkg/bus"
	"github.com/oisee/z80-emulator/pkg/cpu"
	"github.com/oisee/z80-emulator/pkg/i8080"
	"github.com/oisee/z80-emulator/pkg/inst"
	"github.com/oisee/z80-emulator/pkg/z80"
	"github.com/spf13/pflag"
)

// CPU is the interface shared by the Z80 and 8080 cores.
type CPU interface {
	Set() inst.Set
	Step(mem bus.Memory, io bus.IO) (inst.Instruction, error)
	Interrupt(mem bus.Memory, io bus.IO, req bus.Interrupt) (int, error)
	Registers() *cpu.Registers
	SetRegisters(r cpu.Registers)
	Halted() bool
	SetHalted(h bool)
	InterruptsBlocked() bool
	Reset()
}

var (
	_ CPU = (*z80.CPU)(nil)
	_ CPU = (*i8080.CPU)(nil)
)

// CPUType selects a core. It implements pflag.Value so commands can take
// --cpu z80|i8080.
type CPUType uint8

const (
	Z80 CPUType = iota
	I8080
)

var _ pflag.Value = (*CPUType)(nil)

var cpuNames = [...]string{Z80: "z80", I8080: "i8080"}

func (t CPUType) String() string {
	if int(t) < len(cpuNames) {
		return cpuNames[t]
	}
	return fmt.Sprintf("CPUType(%d)", t)
}

// Set parses a CPU name. "8080" is accepted for i8080.
func (t *CPUType) Set(s string) error {
	v, err := ParseCPUType(s)
	if err != nil {
		return err
	}
	*t = v
	return nil
}

func (t *CPUType) Type() string { return "cpu" }

// ParseCPUType returns the CPUType named by s.
func ParseCPUType(s string) (CPUType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "z80":
		return Z80, nil
	case "i8080", "8080":
		return I8080, nil
	}
	return 0, fmt.Errorf("unknown cpu %q (want z80 or i8080)", s)
}

// InstructionSet returns the catalog set decoded by the core.
func (t CPUType) InstructionSet() inst.Set {
	if t == I8080 {
		return inst.I8080
	}
	return inst.Z80
}

// NewCPU returns a core of type t in its reset state.
func NewCPU(t CPUType) CPU {
	if t == I8080 {
		return i8080.New()
	}
	return z80.New()
}

// TypeOf reports the CPUType of c.
func TypeOf(c CPU) CPUType {
	if c.Set() == inst.I8080 {
		return I8080
	}
	return Z80
}
