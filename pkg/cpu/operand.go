package cpu

import "github.com/oisee/z80-emulator/pkg/inst"

// Get8 returns an 8-bit register named by o. Memory and immediate operands
// are resolved by the executor; they read as zero here.
func (r *Registers) Get8(o inst.Operand) uint8 {
	switch o {
	case inst.RegA:
		return r.A
	case inst.RegB:
		return r.B
	case inst.RegC:
		return r.C
	case inst.RegD:
		return r.D
	case inst.RegE:
		return r.E
	case inst.RegH:
		return r.H
	case inst.RegL:
		return r.L
	case inst.RegIXH:
		return r.IXH()
	case inst.RegIXL:
		return r.IXL()
	case inst.RegIYH:
		return r.IYH()
	case inst.RegIYL:
		return r.IYL()
	case inst.RegI:
		return r.I
	case inst.RegR:
		return r.R
	}
	return 0
}

// Set8 stores v in the 8-bit register named by o and reports whether o was
// a register.
func (r *Registers) Set8(o inst.Operand, v uint8) bool {
	switch o {
	case inst.RegA:
		r.A = v
	case inst.RegB:
		r.B = v
	case inst.RegC:
		r.C = v
	case inst.RegD:
		r.D = v
	case inst.RegE:
		r.E = v
	case inst.RegH:
		r.H = v
	case inst.RegL:
		r.L = v
	case inst.RegIXH:
		r.SetIXH(v)
	case inst.RegIXL:
		r.SetIXL(v)
	case inst.RegIYH:
		r.SetIYH(v)
	case inst.RegIYL:
		r.SetIYL(v)
	case inst.RegI:
		r.I = v
	case inst.RegR:
		r.R = v
	default:
		return false
	}
	return true
}

// Get16 returns the register pair named by o.
func (r *Registers) Get16(o inst.Operand) uint16 {
	switch o {
	case inst.PairAF:
		return r.AF()
	case inst.PairBC:
		return r.BC()
	case inst.PairDE:
		return r.DE()
	case inst.PairHL:
		return r.HL()
	case inst.PairSP:
		return r.SP
	case inst.PairIX:
		return r.IX
	case inst.PairIY:
		return r.IY
	}
	return 0
}

// Set16 stores v in the register pair named by o.
func (r *Registers) Set16(o inst.Operand, v uint16) {
	switch o {
	case inst.PairAF:
		r.SetAF(v)
	case inst.PairBC:
		r.SetBC(v)
	case inst.PairDE:
		r.SetDE(v)
	case inst.PairHL:
		r.SetHL(v)
	case inst.PairSP:
		r.SP = v
	case inst.PairIX:
		r.IX = v
	case inst.PairIY:
		r.IY = v
	}
}

// Addr returns the effective address of a memory operand of in.
func (r *Registers) Addr(o inst.Operand, in *inst.Instruction) uint16 {
	switch o {
	case inst.MemBC:
		return r.BC()
	case inst.MemDE:
		return r.DE()
	case inst.MemHL:
		return r.HL()
	case inst.MemSP:
		return r.SP
	case inst.MemIX:
		return r.IX + uint16(int16(in.Disp))
	case inst.MemIY:
		return r.IY + uint16(int16(in.Disp))
	case inst.MemNN, inst.PortN:
		return in.Imm
	}
	return 0
}

// IsMem reports whether o names a byte in memory.
func IsMem(o inst.Operand) bool {
	switch o {
	case inst.MemBC, inst.MemDE, inst.MemHL, inst.MemSP, inst.MemIX, inst.MemIY, inst.MemNN:
		return true
	}
	return false
}

// Test evaluates a branch condition against F.
func (r *Registers) Test(c inst.Cond) bool {
	switch c {
	case inst.CondNZ:
		return r.F&FlagZ == 0
	case inst.CondZ:
		return r.F&FlagZ != 0
	case inst.CondNC:
		return r.F&FlagC == 0
	case inst.CondC:
		return r.F&FlagC != 0
	case inst.CondPO:
		return r.F&FlagP == 0
	case inst.CondPE:
		return r.F&FlagP != 0
	case inst.CondP:
		return r.F&FlagS == 0
	case inst.CondM:
		return r.F&FlagS != 0
	}
	return true
}
