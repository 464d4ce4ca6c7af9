// Package z80 executes Zilog Z80 instructions decoded by package inst
// against a bus.Memory and a bus.IO.
package z80

import (
	"github.com/oisee/z80-emulator/pkg/bus"
	"github.com/oisee/z80-emulator/pkg/cpu"
	"github.com/oisee/z80-emulator/pkg/inst"
)

// haltOp is the catalog entry reported for steps taken while halted.
var haltOp, _ = inst.Lookup(inst.Z80, 0x76)

// CPU is a Z80 core. The zero value is a CPU after reset: every register
// zero, running.
type CPU struct {
	Regs cpu.Registers

	halted bool
	// eiPending blocks interrupts until the instruction after EI completes.
	eiPending bool
}

// New returns a CPU in its reset state.
func New() *CPU {
	return &CPU{}
}

func (c *CPU) Set() inst.Set                { return inst.Z80 }
func (c *CPU) Registers() *cpu.Registers    { return &c.Regs }
func (c *CPU) Halted() bool                 { return c.halted }
func (c *CPU) SetHalted(h bool)             { c.halted = h }
func (c *CPU) InterruptsBlocked() bool      { return c.eiPending }
func (c *CPU) SetRegisters(r cpu.Registers) { c.Regs = r }

// Reset clears the register file and leaves the halted state.
func (c *CPU) Reset() {
	*c = CPU{}
}

// Step decodes and executes one instruction at PC and returns it with its
// Cycles set to the T-states actually spent.
//
// While halted, Step executes nothing, leaves PC on the HALT opcode and
// reports the HALT instruction at 4 T-states; the refresh counter keeps
// running. On error the registers are left as they were before the call.
func (c *CPU) Step(mem bus.Memory, io bus.IO) (inst.Instruction, error) {
	c.eiPending = false
	if c.halted {
		c.Regs.IncR(1)
		return inst.New(haltOp, 0, 0), nil
	}

	in, err := inst.Decode(inst.Z80, mem, c.Regs.PC)
	if err != nil {
		return inst.Instruction{}, err
	}

	saved := c.Regs
	c.Regs.IncR(in.Info().Fetches)
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

// Interrupt accepts req and returns the T-states spent. A maskable request
// is ignored (0 T-states) while IFF1 is clear.
//
// NMI pushes PC and jumps to 0066h, clearing IFF1 but keeping IFF2. INT
// clears both flip-flops and then depends on the mode: mode 0 executes
// req.Data (an RST), mode 1 jumps to 0038h and mode 2 jumps through the
// table entry at I<<8 | req.Data.
func (c *CPU) Interrupt(mem bus.Memory, io bus.IO, req bus.Interrupt) (int, error) {
	st := io.Interrupts()
	if req.Kind != bus.NMI && !st.IFF1 {
		return 0, nil
	}
	ret := c.Regs.PC
	if c.halted {
		ret++
	}

	var target uint16
	var cycles int
	switch {
	case req.Kind == bus.NMI:
		target, cycles = 0x0066, 11
	case st.Mode == 2:
		v, err := mem.Read16(uint16(c.Regs.I)<<8 | uint16(req.Data))
		if err != nil {
			return 0, err
		}
		target, cycles = v, 19
	case st.Mode == 1:
		target, cycles = 0x0038, 13
	default:
		// Mode 0 devices put an RST on the bus; anything else lands on 38h
		// as if the bus floated to FFh.
		target, cycles = 0x0038, 13
		if req.Data&0xC7 == 0xC7 {
			target = uint16(req.Data & 0x38)
		}
	}

	if err := c.push(mem, ret); err != nil {
		return 0, err
	}
	if req.Kind == bus.NMI {
		st.IFF1 = false
	} else {
		st.IFF1, st.IFF2 = false, false
	}
	c.halted = false
	c.Regs.IncR(1)
	c.Regs.PC = target
	return cycles, nil
}

// push writes v below SP and moves SP only once both bytes are stored.
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
