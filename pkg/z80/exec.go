package z80

import (
	"fmt"

	"github.com/oisee/z80-emulator/pkg/bus"
	"github.com/oisee/z80-emulator/pkg/cpu"
	"github.com/oisee/z80-emulator/pkg/inst"
)

// read8 fetches an 8-bit source operand.
func (c *CPU) read8(mem bus.Memory, o inst.Operand, in *inst.Instruction) (uint8, error) {
	switch o {
	case inst.ImmN:
		return uint8(in.Imm), nil
	case inst.Zero:
		return 0, nil
	}
	if cpu.IsMem(o) {
		return mem.Read8(c.Regs.Addr(o, in))
	}
	return c.Regs.Get8(o), nil
}

// write8 stores v in an 8-bit destination operand.
func (c *CPU) write8(mem bus.Memory, o inst.Operand, in *inst.Instruction, v uint8) error {
	if cpu.IsMem(o) {
		return mem.Write8(c.Regs.Addr(o, in), v)
	}
	c.Regs.Set8(o, v)
	return nil
}

// execute applies in. Every fallible read happens before the first write,
// and memory is written before registers and flags change.
func (c *CPU) execute(in *inst.Instruction, mem bus.Memory, io bus.IO) error {
	info := in.Info()
	r := &c.Regs
	next := r.PC + uint16(in.Len())

	switch info.Class {
	case inst.Nop:
	case inst.Halt:
		c.halted = true

	case inst.Ld8:
		v, err := c.read8(mem, info.Src, in)
		if err != nil {
			return err
		}
		return c.write8(mem, info.Dst, in, v)

	case inst.LdAIR:
		v := r.Get8(info.Src)
		r.A = v
		r.F = cpu.LdAIR(v, io.Interrupts().IFF2, r.F)

	case inst.Ld16:
		var v uint16
		switch info.Src {
		case inst.ImmNN:
			v = in.Imm
		case inst.MemNN:
			var err error
			if v, err = mem.Read16(in.Imm); err != nil {
				return err
			}
		default:
			v = r.Get16(info.Src)
		}
		if info.Dst == inst.MemNN {
			return mem.Write16(in.Imm, v)
		}
		r.Set16(info.Dst, v)

	case inst.Push:
		return c.push(mem, r.Get16(info.Src))

	case inst.Pop:
		v, err := c.pop(mem)
		if err != nil {
			return err
		}
		r.Set16(info.Dst, v)

	case inst.ExDEHL:
		de, hl := r.DE(), r.HL()
		r.SetDE(hl)
		r.SetHL(de)

	case inst.ExAF:
		r.ExAF()

	case inst.Exx:
		r.Exx()

	case inst.ExSP:
		v, err := mem.Read16(r.SP)
		if err != nil {
			return err
		}
		if err := mem.Write16(r.SP, r.Get16(info.Src)); err != nil {
			return err
		}
		r.Set16(info.Src, v)

	case inst.Add, inst.Adc, inst.Sub, inst.Sbc, inst.And, inst.Xor, inst.Or, inst.Cp:
		b, err := c.read8(mem, info.Src, in)
		if err != nil {
			return err
		}
		carry := r.F&cpu.FlagC != 0
		switch info.Class {
		case inst.Add:
			r.A, r.F = cpu.Add8(r.A, b, false)
		case inst.Adc:
			r.A, r.F = cpu.Add8(r.A, b, carry)
		case inst.Sub:
			r.A, r.F = cpu.Sub8(r.A, b, false)
		case inst.Sbc:
			r.A, r.F = cpu.Sub8(r.A, b, carry)
		case inst.And:
			r.A, r.F = cpu.And8(r.A, b)
		case inst.Xor:
			r.A, r.F = cpu.Xor8(r.A, b)
		case inst.Or:
			r.A, r.F = cpu.Or8(r.A, b)
		case inst.Cp:
			r.F = cpu.Cp8(r.A, b)
		}

	case inst.Inc8, inst.Dec8:
		v, err := c.read8(mem, info.Dst, in)
		if err != nil {
			return err
		}
		var res, f uint8
		if info.Class == inst.Inc8 {
			res, f = cpu.Inc8(v, r.F)
		} else {
			res, f = cpu.Dec8(v, r.F)
		}
		if err := c.write8(mem, info.Dst, in, res); err != nil {
			return err
		}
		r.F = f

	case inst.Inc16:
		r.Set16(info.Dst, r.Get16(info.Dst)+1)
	case inst.Dec16:
		r.Set16(info.Dst, r.Get16(info.Dst)-1)

	case inst.Add16:
		v, f := cpu.Add16(r.Get16(info.Dst), r.Get16(info.Src), r.F)
		r.Set16(info.Dst, v)
		r.F = f
	case inst.Adc16:
		v, f := cpu.Adc16(r.Get16(info.Dst), r.Get16(info.Src), r.F)
		r.Set16(info.Dst, v)
		r.F = f
	case inst.Sbc16:
		v, f := cpu.Sbc16(r.Get16(info.Dst), r.Get16(info.Src), r.F)
		r.Set16(info.Dst, v)
		r.F = f

	case inst.Rlca:
		r.A, r.F = cpu.Rlca(r.A, r.F)
	case inst.Rrca:
		r.A, r.F = cpu.Rrca(r.A, r.F)
	case inst.Rla:
		r.A, r.F = cpu.Rla(r.A, r.F)
	case inst.Rra:
		r.A, r.F = cpu.Rra(r.A, r.F)
	case inst.Daa:
		r.A, r.F = cpu.Daa(r.A, r.F)
	case inst.Cpl:
		r.A, r.F = cpu.Cpl(r.A, r.F)
	case inst.Scf:
		r.F = cpu.Scf(r.A, r.F)
	case inst.Ccf:
		r.F = cpu.Ccf(r.A, r.F)
	case inst.Neg:
		r.A, r.F = cpu.Neg8(r.A)

	case inst.Rlc, inst.Rrc, inst.Rl, inst.Rr, inst.Sla, inst.Sra, inst.Sll, inst.Srl:
		v, err := c.read8(mem, info.Dst, in)
		if err != nil {
			return err
		}
		res, f := shift(info.Class, v, r.F)
		if err := c.write8(mem, info.Dst, in, res); err != nil {
			return err
		}
		r.Set8(info.Src, res)
		r.F = f

	case inst.TestBit:
		v, err := c.read8(mem, info.Dst, in)
		if err != nil {
			return err
		}
		xy := v
		if cpu.IsMem(info.Dst) {
			xy = uint8(r.Addr(info.Dst, in) >> 8)
		}
		r.F = cpu.Bit(info.Bit, v, xy, r.F)

	case inst.ResetBit, inst.SetBit:
		v, err := c.read8(mem, info.Dst, in)
		if err != nil {
			return err
		}
		if info.Class == inst.SetBit {
			v |= 1 << info.Bit
		} else {
			v &^= 1 << info.Bit
		}
		if err := c.write8(mem, info.Dst, in, v); err != nil {
			return err
		}
		r.Set8(info.Src, v)

	case inst.Rld, inst.Rrd:
		hl := r.HL()
		v, err := mem.Read8(hl)
		if err != nil {
			return err
		}
		var m, a uint8
		if info.Class == inst.Rld {
			m, a = v<<4|r.A&0x0F, r.A&0xF0|v>>4
		} else {
			m, a = r.A<<4|v>>4, r.A&0xF0|v&0x0F
		}
		if err := mem.Write8(hl, m); err != nil {
			return err
		}
		r.A = a
		r.F = cpu.InC(a, r.F)

	case inst.Jp:
		if r.Test(info.Cond) {
			r.PC = in.Imm
		} else {
			r.PC = next
			in.Cycles = info.TStatesAlt
		}
	case inst.JpInd:
		r.PC = r.Get16(info.Src)
	case inst.Jr:
		if r.Test(info.Cond) {
			r.PC = in.Target(r.PC)
		} else {
			r.PC = next
			in.Cycles = info.TStatesAlt
		}
	case inst.Djnz:
		r.B--
		if r.B != 0 {
			r.PC = in.Target(r.PC)
		} else {
			r.PC = next
			in.Cycles = info.TStatesAlt
		}
	case inst.Call:
		if !r.Test(info.Cond) {
			r.PC = next
			in.Cycles = info.TStatesAlt
			break
		}
		if err := c.push(mem, next); err != nil {
			return err
		}
		r.PC = in.Imm
	case inst.Ret:
		if !r.Test(info.Cond) {
			r.PC = next
			in.Cycles = info.TStatesAlt
			break
		}
		v, err := c.pop(mem)
		if err != nil {
			return err
		}
		r.PC = v
	case inst.Reti, inst.Retn:
		v, err := c.pop(mem)
		if err != nil {
			return err
		}
		st := io.Interrupts()
		st.IFF1 = st.IFF2
		r.PC = v
	case inst.Rst:
		if err := c.push(mem, next); err != nil {
			return err
		}
		r.PC = uint16(info.Bit)

	case inst.Di:
		st := io.Interrupts()
		st.IFF1, st.IFF2 = false, false
	case inst.Ei:
		st := io.Interrupts()
		st.IFF1, st.IFF2 = true, true
		c.eiPending = true
	case inst.Im:
		io.Interrupts().Mode = info.Bit

	case inst.InN:
		v, err := io.Read(uint8(in.Imm))
		if err != nil {
			return err
		}
		r.A = v
	case inst.InC:
		v, err := io.Read(r.C)
		if err != nil {
			return err
		}
		r.Set8(info.Dst, v)
		r.F = cpu.InC(v, r.F)
	case inst.OutN:
		return io.Write(uint8(in.Imm), r.A)
	case inst.OutC:
		v, err := c.read8(mem, info.Src, in)
		if err != nil {
			return err
		}
		return io.Write(r.C, v)

	case inst.BlockLd, inst.BlockCp, inst.BlockIn, inst.BlockOut:
		return c.block(in, info, mem, io, next)

	default:
		return fmt.Errorf("z80: unhandled class %v (%s)", info.Class, info.Mnemonic)
	}
	return nil
}

// shift dispatches the CB rotate and shift group.
func shift(class inst.Class, v, f uint8) (uint8, uint8) {
	switch class {
	case inst.Rlc:
		return cpu.Rlc(v)
	case inst.Rrc:
		return cpu.Rrc(v)
	case inst.Rl:
		return cpu.Rl(v, f)
	case inst.Rr:
		return cpu.Rr(v, f)
	case inst.Sla:
		return cpu.Sla(v)
	case inst.Sra:
		return cpu.Sra(v)
	case inst.Sll:
		return cpu.Sll(v)
	}
	return cpu.Srl(v)
}

// block executes one iteration of LDI/CPI/INI/OUTI and their decrementing
// and repeating forms. A repeating form leaves PC on itself until its
// counter runs out.
func (c *CPU) block(in *inst.Instruction, info *inst.Info, mem bus.Memory, io bus.IO, next uint16) error {
	r := &c.Regs
	step := uint16(1)
	if info.Down {
		step = 0xFFFF
	}
	hl := r.HL()
	more := false

	switch info.Class {
	case inst.BlockLd:
		v, err := mem.Read8(hl)
		if err != nil {
			return err
		}
		if err := mem.Write8(r.DE(), v); err != nil {
			return err
		}
		bc := r.BC() - 1
		r.SetHL(hl + step)
		r.SetDE(r.DE() + step)
		r.SetBC(bc)
		r.F = cpu.Ldi(r.A, v, bc, r.F)
		more = bc != 0

	case inst.BlockCp:
		v, err := mem.Read8(hl)
		if err != nil {
			return err
		}
		bc := r.BC() - 1
		r.SetHL(hl + step)
		r.SetBC(bc)
		r.F = cpu.Cpi(r.A, v, bc, r.F)
		more = bc != 0 && r.F&cpu.FlagZ == 0

	case inst.BlockIn:
		v, err := io.Read(r.C)
		if err != nil {
			return err
		}
		if err := mem.Write8(hl, v); err != nil {
			return err
		}
		r.B--
		r.SetHL(hl + step)
		k := uint16(v) + uint16(r.C+uint8(step))
		r.F = cpu.BlockIO(r.B, v, k)
		more = r.B != 0

	case inst.BlockOut:
		v, err := mem.Read8(hl)
		if err != nil {
			return err
		}
		if err := io.Write(r.C, v); err != nil {
			return err
		}
		r.B--
		r.SetHL(hl + step)
		k := uint16(v) + uint16(r.L)
		r.F = cpu.BlockIO(r.B, v, k)
		more = r.B != 0
	}

	if !info.Repeat {
		return nil
	}
	if more {
		return nil
	}
	r.PC = next
	in.Cycles = info.TStatesAlt
	return nil
}
