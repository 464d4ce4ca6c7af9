package cpu

// Bank is one set of the 8-bit general purpose registers. The Z80 has a main
// bank and a shadow bank swapped by EX AF,AF' and EXX.
type Bank struct {
	A, F, B, C, D, E, H, L uint8
}

// Registers is the complete register file shared by the Z80 and 8080 cores.
// The 8080 leaves Shadow, IX, IY, I and R untouched.
//
// Pairs compose high:low, so BC = B<<8 | C.
type Registers struct {
	Bank
	Shadow Bank

	IX, IY uint16
	SP, PC uint16

	I uint8 // interrupt vector base
	R uint8 // memory refresh counter, 7-bit
}

func pair(hi, lo uint8) uint16 {
	return uint16(hi)<<8 | uint16(lo)
}

func split(v uint16) (hi, lo uint8) {
	return uint8(v >> 8), uint8(v)
}

func (r *Registers) AF() uint16 { return pair(r.A, r.F) }
func (r *Registers) BC() uint16 { return pair(r.B, r.C) }
func (r *Registers) DE() uint16 { return pair(r.D, r.E) }
func (r *Registers) HL() uint16 { return pair(r.H, r.L) }

func (r *Registers) SetAF(v uint16) { r.A, r.F = split(v) }
func (r *Registers) SetBC(v uint16) { r.B, r.C = split(v) }
func (r *Registers) SetDE(v uint16) { r.D, r.E = split(v) }
func (r *Registers) SetHL(v uint16) { r.H, r.L = split(v) }

// Shadow pairs (AF', BC', DE', HL').
func (r *Registers) AF2() uint16 { return pair(r.Shadow.A, r.Shadow.F) }
func (r *Registers) BC2() uint16 { return pair(r.Shadow.B, r.Shadow.C) }
func (r *Registers) DE2() uint16 { return pair(r.Shadow.D, r.Shadow.E) }
func (r *Registers) HL2() uint16 { return pair(r.Shadow.H, r.Shadow.L) }

func (r *Registers) SetAF2(v uint16) { r.Shadow.A, r.Shadow.F = split(v) }
func (r *Registers) SetBC2(v uint16) { r.Shadow.B, r.Shadow.C = split(v) }
func (r *Registers) SetDE2(v uint16) { r.Shadow.D, r.Shadow.E = split(v) }
func (r *Registers) SetHL2(v uint16) { r.Shadow.H, r.Shadow.L = split(v) }

// Index register halves (undocumented IXH/IXL/IYH/IYL).
func (r *Registers) IXH() uint8 { return uint8(r.IX >> 8) }
func (r *Registers) IXL() uint8 { return uint8(r.IX) }
func (r *Registers) IYH() uint8 { return uint8(r.IY >> 8) }
func (r *Registers) IYL() uint8 { return uint8(r.IY) }

func (r *Registers) SetIXH(v uint8) { r.IX = r.IX&0x00FF | uint16(v)<<8 }
func (r *Registers) SetIXL(v uint8) { r.IX = r.IX&0xFF00 | uint16(v) }
func (r *Registers) SetIYH(v uint8) { r.IY = r.IY&0x00FF | uint16(v)<<8 }
func (r *Registers) SetIYL(v uint8) { r.IY = r.IY&0xFF00 | uint16(v) }

// Flag reports whether every bit of mask is set in F.
func (r *Registers) Flag(mask uint8) bool {
	return r.F&mask == mask
}

// SetFlag sets or clears the bits of mask in F.
func (r *Registers) SetFlag(mask uint8, on bool) {
	if on {
		r.F |= mask
	} else {
		r.F &^= mask
	}
}

func (r *Registers) Carry() bool          { return r.Flag(FlagC) }
func (r *Registers) AddSub() bool         { return r.Flag(FlagN) }
func (r *Registers) ParityOverflow() bool { return r.Flag(FlagP) }
func (r *Registers) Bit3() bool           { return r.Flag(Flag3) }
func (r *Registers) HalfCarry() bool      { return r.Flag(FlagH) }
func (r *Registers) Bit5() bool           { return r.Flag(Flag5) }
func (r *Registers) Zero() bool           { return r.Flag(FlagZ) }
func (r *Registers) Sign() bool           { return r.Flag(FlagS) }

func (r *Registers) SetCarry(on bool)          { r.SetFlag(FlagC, on) }
func (r *Registers) SetAddSub(on bool)         { r.SetFlag(FlagN, on) }
func (r *Registers) SetParityOverflow(on bool) { r.SetFlag(FlagP, on) }
func (r *Registers) SetBit3(on bool)           { r.SetFlag(Flag3, on) }
func (r *Registers) SetHalfCarry(on bool)      { r.SetFlag(FlagH, on) }
func (r *Registers) SetBit5(on bool)           { r.SetFlag(Flag5, on) }
func (r *Registers) SetZero(on bool)           { r.SetFlag(FlagZ, on) }
func (r *Registers) SetSign(on bool)           { r.SetFlag(FlagS, on) }

// ExAF swaps AF with AF'.
func (r *Registers) ExAF() {
	r.A, r.Shadow.A = r.Shadow.A, r.A
	r.F, r.Shadow.F = r.Shadow.F, r.F
}

// Exx swaps BC, DE and HL with their shadow copies.
func (r *Registers) Exx() {
	r.B, r.Shadow.B = r.Shadow.B, r.B
	r.C, r.Shadow.C = r.Shadow.C, r.C
	r.D, r.Shadow.D = r.Shadow.D, r.D
	r.E, r.Shadow.E = r.Shadow.E, r.E
	r.H, r.Shadow.H = r.Shadow.H, r.H
	r.L, r.Shadow.L = r.Shadow.L, r.L
}

// IncR advances the refresh counter by n fetches. Only the low 7 bits count;
// bit 7 is whatever LD R,A last stored.
func (r *Registers) IncR(n int) {
	r.R = r.R&0x80 | (r.R+uint8(n))&0x7F
}

// Equal returns true if two register files are identical.
func (r Registers) Equal(o Registers) bool {
	return r == o
}
