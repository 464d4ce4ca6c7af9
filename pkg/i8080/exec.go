package i8080

import (
	"fmt"

	"github.com/oisee/z80-emulator/pkg/bus"
	"github.com/oisee/z80-emulator/pkg/cpu"
	"github.com/oisee/z80-emulator/pkg/inst"
)

func (c *CPU) read8(mem bus.Memory, o inst.Operand, in *inst.Instruction) (uint8, error) {
	if o == inst.ImmN {
		return uint8(in.Imm), nil
	}
	if cpu.IsMem(o) {
		return mem.Read8(c.Regs.Addr(o, in))
	}
	return c.Regs.Get8(o), nil
}

func (c *CPU) write8(mem bus.Memory, o inst.Operand, in *inst.Instruction, v uint8) error {
	if cpu.IsMem(o) {
		return mem.Write8(c.Regs.Addr(o, in), v)
	}
	c.Regs.Set8(o, v)
	return nil
}

// execute applies in with 8080 flag rules.
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
		v := r.Get16(info.Src)
		if info.Src == inst.PairAF {
			v = v&0xFF00 | uint16(PSW(r.F))
		}
		return c.push(mem, v)

	case inst.Pop:
		v, err := c.pop(mem)
		if err != nil {
			return err
		}
		r.Set16(info.Dst, v)
		if info.Dst == inst.PairAF {
			r.F = PSW(r.F)
		}

	case inst.ExDEHL:
		de, hl := r.DE(), r.HL()
		r.SetDE(hl)
		r.SetHL(de)

	case inst.ExSP:
		v, err := mem.Read16(r.SP)
		if err != nil {
			return err
		}
		if err := mem.Write16(r.SP, r.HL()); err != nil {
			return err
		}
		r.SetHL(v)

	case inst.Add, inst.Adc, inst.Sub, inst.Sbc, inst.And, inst.Xor, inst.Or, inst.Cp:
		b, err := c.read8(mem, info.Src, in)
		if err != nil {
			return err
		}
		carry := r.F&flagC != 0
		switch info.Class {
		case inst.Add:
			r.A, r.F = Add(r.A, b, false)
		case inst.Adc:
			r.A, r.F = Add(r.A, b, carry)
		case inst.Sub:
			r.A, r.F = Sub(r.A, b, false)
		case inst.Sbc:
			r.A, r.F = Sub(r.A, b, carry)
		case inst.And:
			r.A, r.F = Ana(r.A, b)
		case inst.Xor:
			r.A, r.F = Xra(r.A, b)
		case inst.Or:
			r.A, r.F = Ora(r.A, b)
		case inst.Cp:
			r.F = Cmp(r.A, b)
		}

	case inst.Inc8, inst.Dec8:
		v, err := c.read8(mem, info.Dst, in)
		if err != nil {
			return err
		}
		var res, f uint8
		if info.Class == inst.Inc8 {
			res, f = Inr(v, r.F)
		} else {
			res, f = Dcr(v, r.F)
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
		v, f := Dad(r.HL(), r.Get16(info.Src), r.F)
		r.SetHL(v)
		r.F = f

	case inst.Rlca:
		r.A, r.F = Rlc(r.A, r.F)
	case inst.Rrca:
		r.A, r.F = Rrc(r.A, r.F)
	case inst.Rla:
		r.A, r.F = Ral(r.A, r.F)
	case inst.Rra:
		r.A, r.F = Rar(r.A, r.F)
	case inst.Daa:
		r.A, r.F = Daa(r.A, r.F)
	case inst.Cpl:
		r.A = ^r.A
	case inst.Scf:
		r.F |= flagC
	case inst.Ccf:
		r.F ^= flagC

	case inst.Jp:
		if r.Test(info.Cond) {
			r.PC = in.Imm
		} else {
			r.PC = next
			in.Cycles = info.TStatesAlt
		}
	case inst.JpInd:
		r.PC = r.HL()
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

	case inst.InN:
		v, err := io.Read(uint8(in.Imm))
		if err != nil {
			return err
		}
		r.A = v
	case inst.OutN:
		return io.Write(uint8(in.Imm), r.A)

	default:
		return fmt.Errorf("i8080: unhandled class %v (%s)", info.Class, info.Mnemonic)
	}
	return nil
}
