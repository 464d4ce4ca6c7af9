package fuzz

import (
	"github.com/koron-go/z80"
	"github.com/oisee/z80-emulator/pkg/bus"
	"github.com/oisee/z80-emulator/pkg/cpu"
	"github.com/oisee/z80-emulator/pkg/inst"
	z80core "github.com/oisee/z80-emulator/pkg/z80"
)

// Outcome is the machine state after one step.
type Outcome struct {
	Regs   cpu.Registers
	Ints   bus.InterruptState
	Halted bool
	Memory []uint8
	Writes []PortWrite
}

// PortWrite is one OUT seen on the bus.
type PortWrite struct {
	Port, Value uint8
}

// Machine executes a single instruction of a case.
type Machine interface {
	Name() string
	Run(c *Case) (Outcome, error)
}

// Supporter is implemented by machines that cover only part of the
// instruction set. Cases for other instructions are skipped.
type Supporter interface {
	Supports(op inst.OpCode) bool
}

func supports(m Machine, op inst.OpCode) bool {
	s, ok := m.(Supporter)
	return !ok || s.Supports(op)
}

// ports answers every read with a fixed value and records writes. It
// serves both cores.
type ports struct {
	input  uint8
	state  bus.InterruptState
	writes []PortWrite
}

func (p *ports) Read(uint8) (uint8, error)       { return p.input, nil }
func (p *ports) Interrupts() *bus.InterruptState { return &p.state }

func (p *ports) Write(port uint8, v uint8) error {
	p.Out(port, v)
	return nil
}

func (p *ports) In(uint8) uint8 { return p.input }

func (p *ports) Out(port uint8, v uint8) {
	p.writes = append(p.writes, PortWrite{Port: port, Value: v})
}

// Native runs the case on this module's Z80 core.
type Native struct{}

func (Native) Name() string { return "native" }

func (Native) Run(c *Case) (Outcome, error) {
	mem := bus.NewRAM()
	copy(mem.Bytes(), c.image())
	io := &ports{input: c.Input, state: c.Ints}

	core := z80core.New()
	core.SetRegisters(c.Regs)
	if _, err := core.Step(mem, io); err != nil {
		return Outcome{}, err
	}
	return Outcome{
		Regs:   *core.Registers(),
		Ints:   io.state,
		Halted: core.Halted(),
		Memory: mem.Bytes(),
		Writes: io.writes,
	}, nil
}

// flat adapts a byte slice to the koron-go/z80 memory interface.
type flat []uint8

func (m flat) Get(addr uint16) uint8    { return m[addr] }
func (m flat) Set(addr uint16, v uint8) { m[addr] = v }

// Koron runs the case on github.com/koron-go/z80.
type Koron struct{}

func (Koron) Name() string { return "koron-go/z80" }

// Supports leaves out what koron-go/z80 does not implement or gets wrong:
// the DDCB forms copying their result into a register, IN (C), OUT (C),0,
// RETI (no IFF2 to IFF1 copy) and the single-step block IO instructions
// (port taken from B).
func (Koron) Supports(op inst.OpCode) bool {
	info := &inst.Catalog[op]
	switch info.Class {
	case inst.Reti, inst.BlockIn, inst.BlockOut:
		return false
	case inst.InC:
		return info.Dst != inst.NoOperand
	case inst.OutC:
		return info.Src != inst.Zero
	}
	return info.Layout != inst.DispOp || info.Src == inst.NoOperand
}

func (Koron) Run(c *Case) (Outcome, error) {
	mem := flat(c.image())
	io := &ports{input: c.Input}

	r := &c.Regs
	ref := &z80.CPU{Memory: mem, IO: io}
	ref.States = z80.States{
		GPR:       gpr(r.Bank),
		Alternate: gpr(r.Shadow),
		SPR: z80.SPR{
			IR: z80.Register{Hi: r.I, Lo: r.R},
			IX: r.IX,
			IY: r.IY,
			SP: r.SP,
			PC: r.PC,
		},
		IFF1: c.Ints.IFF1,
		IFF2: c.Ints.IFF2,
		IM:   int(c.Ints.Mode),
	}
	ref.Step()

	s := &ref.States
	return Outcome{
		Regs: cpu.Registers{
			Bank:   bank(s.GPR),
			Shadow: bank(s.Alternate),
			IX:     s.IX,
			IY:     s.IY,
			SP:     s.SP,
			PC:     s.PC,
			I:      s.IR.Hi,
			R:      s.IR.Lo,
		},
		Ints:   bus.InterruptState{IFF1: s.IFF1, IFF2: s.IFF2, Mode: uint8(s.IM)},
		Halted: ref.HALT,
		Memory: mem,
		Writes: io.writes,
	}, nil
}

func gpr(b cpu.Bank) z80.GPR {
	return z80.GPR{
		AF: z80.Register{Hi: b.A, Lo: b.F},
		BC: z80.Register{Hi: b.B, Lo: b.C},
		DE: z80.Register{Hi: b.D, Lo: b.E},
		HL: z80.Register{Hi: b.H, Lo: b.L},
	}
}

func bank(g z80.GPR) cpu.Bank {
	return cpu.Bank{
		A: g.AF.Hi, F: g.AF.Lo,
		B: g.BC.Hi, C: g.BC.Lo,
		D: g.DE.Hi, E: g.DE.Lo,
		H: g.HL.Hi, L: g.HL.Lo,
	}
}
