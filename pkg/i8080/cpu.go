// Package i8080 executes Intel 8080 instructions decoded by package inst. It
// shares the register file and bus contracts with package z80; only the
// flag rules, timings and interrupt model differ.
package i8080

import (
	"github.com/oisee/z80-emulator/pkg/bus"
	"github.com/oisee/z80-emulator/pkg/cpu"
	"github.com/oisee/z80-emulator/pkg/inst"
)

var hltOp, _ = inst.Lookup(inst.I8080, 0x76)

// CPU is an 8080 core.
type CPU struct {
	Regs cpu.Registers

	halted    bool
	eiPending bool
}

// New returns a CPU in its reset state.
func New() *CPU {
	c := &CPU{}
	c.Reset()
	return c
}

func (c *CPU) Set() inst.Set                { return inst.I8080 }
func (c *CPU) Registers() *cpu.Registers    { return &c.Regs }
func (c *CPU) Halted() bool                 { return c.halted }
func (c *CPU) SetHalted(h bool)             { c.halted = h }
func (c *CPU) InterruptsBlocked() bool      { return c.eiPending }
func (c *CPU) SetRegisters(r cpu.Registers) { c.Regs = r }

// Reset zeroes the registers except for the fixed PSW bit.
func (c *CPU) Reset() {
	*c = CPU{}
	c.Regs.F = flagOne
}

// Step executes one instruction. A halted CPU reports HLT at 4 cycles per
// step and leaves PC on the HLT opcode until an interrupt arrives.
func (c *CPU) Step(mem bus.Memory, io bus.IO) (inst.Instruction, error) {
	c.eiPending = false
	if c.halted {
		in := inst.New(hltOp, 0, 0)
		in.Cycles = 4
		return in, nil
	}

	in, err := inst.Decode(inst.I8080, mem, c.Regs.PC)
	if err != nil {
		return inst.Instruction{}, err
	}

	saved := c.Regs
	if err := c.execute(&in, mem, io); err != nil {
		c.Regs = saved
		c.halted = false
		return in, err
	}
	if in.AutoIncrementPC() {
		c.Regs.PC += uint16(in.Len())
	}
	return in, nil
}

// Interrupt accepts a maskable request while interrupts are enabled. The
// device places an RST opcode in req.Data; anything else vectors to 0038h.
// The 8080 has no NMI input, so NMI requests are ignored.
func (c *CPU) Interrupt(mem bus.Memory, io bus.IO, req bus.Interrupt) (int, error) {
	st := io.Interrupts()
	if req.Kind == bus.NMI || !st.IFF1 {
		return 0, nil
	}
	ret := c.Regs.PC
	if c.halted {
		ret++
	}
	target := uint16(0x0038)
	if req.Data&0xC7 == 0xC7 {
		target = uint16(req.Data & 0x38)
	}
	if err := c.push(mem, ret); err != nil {
		return 0, err
	}
	st.IFF1, st.IFF2 = false, false
	c.halted = false
	c.Regs.PC = target
	return 11, nil
}

func (c *CPU) push(mem bus.Memory, v uint16) error {
	sp := c.Regs.SP - 2
	if err := mem.Write16(sp, v); err != nil {
		return err
	}
	c.Regs.SP = sp
	return nil
}

func (c *CPU) pop(mem bus.Memory) (uint16, error) {
	v, err := mem.Read16(c.Regs.SP)
	if err != nil {
		return 0, err
	}
	c.Regs.SP += 2
	return v, nil
}
