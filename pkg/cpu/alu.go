package cpu

// Flag computation library. Every function is pure: it takes the operands and,
// where the hardware depends on them, the incoming flags, and returns the
// result together with the complete new F value. Callers store both.
//
// The 8-bit arithmetic helpers are ported from remogatto/z80.

// lookup8 builds the half-carry/overflow table index from bit 3 and bit 7 of
// the first operand, the second operand and the result.
func lookup8(a, b uint8, res uint16) uint8 {
	return ((a & 0x88) >> 3) | ((b & 0x88) >> 2) | uint8((res&0x88)>>1)
}

// lookup16 is lookup8 for bits 11 and 15 of 16-bit operands.
func lookup16(a, b uint16, res uint32) uint8 {
	return uint8(((uint32(a) & 0x8800) >> 11) | ((uint32(b) & 0x8800) >> 10) | ((res & 0x8800) >> 9))
}

// Add8 computes ADD (carry=false) or ADC A, b.
func Add8(a, b uint8, carry bool) (uint8, uint8) {
	sum := uint16(a) + uint16(b)
	if carry {
		sum++
	}
	lookup := lookup8(a, b, sum)
	res := uint8(sum)
	return res, bsel(sum&0x100 != 0, FlagC, 0) |
		HalfcarryAddTable[lookup&0x07] |
		OverflowAddTable[lookup>>4] |
		Sz53Table[res]
}

// Sub8 computes SUB (carry=false) or SBC A, b.
func Sub8(a, b uint8, carry bool) (uint8, uint8) {
	diff := uint16(a) - uint16(b)
	if carry {
		diff--
	}
	lookup := lookup8(a, b, diff)
	res := uint8(diff)
	return res, bsel(diff&0x100 != 0, FlagC, 0) | FlagN |
		HalfcarrySubTable[lookup&0x07] |
		OverflowSubTable[lookup>>4] |
		Sz53Table[res]
}

// Cp8 returns the flags of CP b. A is not modified; bits 3 and 5 come from
// the operand rather than the result.
func Cp8(a, b uint8) uint8 {
	_, f := Sub8(a, b, false)
	return f&^Flag53 | b&Flag53
}

// Neg8 computes NEG (0 - a).
func Neg8(a uint8) (uint8, uint8) {
	return Sub8(0, a, false)
}

func And8(a, b uint8) (uint8, uint8) {
	res := a & b
	return res, FlagH | Sz53pTable[res]
}

func Or8(a, b uint8) (uint8, uint8) {
	res := a | b
	return res, Sz53pTable[res]
}

func Xor8(a, b uint8) (uint8, uint8) {
	res := a ^ b
	return res, Sz53pTable[res]
}

// Inc8 computes INC r. The carry flag passes through untouched.
func Inc8(v, f uint8) (uint8, uint8) {
	res := v + 1
	return res, (f & FlagC) |
		bsel(res == 0x80, FlagV, 0) |
		bsel(res&0x0F != 0, 0, FlagH) |
		Sz53Table[res]
}

// Dec8 computes DEC r. The carry flag passes through untouched.
func Dec8(v, f uint8) (uint8, uint8) {
	res := v - 1
	return res, (f & FlagC) | FlagN |
		bsel(v&0x0F != 0, 0, FlagH) |
		bsel(res == 0x7F, FlagV, 0) |
		Sz53Table[res]
}

// Daa adjusts A after a BCD addition or subtraction.
func Daa(a, f uint8) (uint8, uint8) {
	var add uint8
	carry := f & FlagC
	if f&FlagH != 0 || a&0x0F > 9 {
		add = 6
	}
	if carry != 0 || a > 0x99 {
		add |= 0x60
	}
	if a > 0x99 {
		carry = FlagC
	}
	var res, nf uint8
	if f&FlagN != 0 {
		res, nf = Sub8(a, add, false)
	} else {
		res, nf = Add8(a, add, false)
	}
	return res, nf&^(FlagC|FlagP) | carry | ParityTable[res]
}

func Cpl(a, f uint8) (uint8, uint8) {
	res := ^a
	return res, f&(FlagS|FlagZ|FlagP|FlagC) | FlagH | FlagN | res&Flag53
}

func Scf(a, f uint8) uint8 {
	return f&(FlagS|FlagZ|FlagP) | FlagC | a&Flag53
}

// Ccf complements carry; H receives the previous carry.
func Ccf(a, f uint8) uint8 {
	return f&(FlagS|FlagZ|FlagP) |
		bsel(f&FlagC != 0, FlagH, FlagC) |
		a&Flag53
}

// Accumulator rotates keep S, Z and P/V.

func Rlca(a, f uint8) (uint8, uint8) {
	res := a<<1 | a>>7
	return res, f&(FlagS|FlagZ|FlagP) | res&(Flag53|FlagC)
}

func Rrca(a, f uint8) (uint8, uint8) {
	res := a>>1 | a<<7
	return res, f&(FlagS|FlagZ|FlagP) | a&FlagC | res&Flag53
}

func Rla(a, f uint8) (uint8, uint8) {
	res := a<<1 | f&FlagC
	return res, f&(FlagS|FlagZ|FlagP) | res&Flag53 | a>>7
}

func Rra(a, f uint8) (uint8, uint8) {
	res := a>>1 | f<<7
	return res, f&(FlagS|FlagZ|FlagP) | res&Flag53 | a&FlagC
}

// CB-prefix rotate/shift helpers. All set S, Z, P (parity), 5, 3 from the
// result, clear H and N, and put the bit shifted out in C.

func Rlc(v uint8) (uint8, uint8) {
	res := v<<1 | v>>7
	return res, res&FlagC | Sz53pTable[res]
}

func Rrc(v uint8) (uint8, uint8) {
	res := v>>1 | v<<7
	return res, v&FlagC | Sz53pTable[res]
}

func Rl(v, f uint8) (uint8, uint8) {
	res := v<<1 | f&FlagC
	return res, v>>7 | Sz53pTable[res]
}

func Rr(v, f uint8) (uint8, uint8) {
	res := v>>1 | f<<7
	return res, v&FlagC | Sz53pTable[res]
}

func Sla(v uint8) (uint8, uint8) {
	res := v << 1
	return res, v>>7 | Sz53pTable[res]
}

// Sra keeps bit 7.
func Sra(v uint8) (uint8, uint8) {
	res := v&0x80 | v>>1
	return res, v&FlagC | Sz53pTable[res]
}

// Sll is the undocumented shift that feeds a one into bit 0.
func Sll(v uint8) (uint8, uint8) {
	res := v<<1 | 0x01
	return res, v>>7 | Sz53pTable[res]
}

func Srl(v uint8) (uint8, uint8) {
	res := v >> 1
	return res, v&FlagC | Sz53pTable[res]
}

// Add16 computes ADD HL/IX/IY, rr: H from bit 11, C from bit 15, bits 3 and 5
// from the high byte of the result. S, Z and P/V are preserved.
func Add16(x, y uint16, f uint8) (uint16, uint8) {
	sum := uint32(x) + uint32(y)
	hc := (x & 0x0FFF) + (y & 0x0FFF)
	res := uint16(sum)
	return res, f&(FlagS|FlagZ|FlagP) |
		bsel(hc&0x1000 != 0, FlagH, 0) |
		bsel(sum&0x10000 != 0, FlagC, 0) |
		uint8(res>>8)&Flag53
}

// Adc16 computes ADC HL, rr.
func Adc16(x, y uint16, f uint8) (uint16, uint8) {
	sum := uint32(x) + uint32(y) + uint32(f&FlagC)
	lookup := lookup16(x, y, sum)
	res := uint16(sum)
	return res, bsel(sum&0x10000 != 0, FlagC, 0) |
		OverflowAddTable[lookup>>4] |
		uint8(res>>8)&(Flag53|FlagS) |
		HalfcarryAddTable[lookup&0x07] |
		bsel(res != 0, 0, FlagZ)
}

// Sbc16 computes SBC HL, rr.
func Sbc16(x, y uint16, f uint8) (uint16, uint8) {
	diff := uint32(x) - uint32(y) - uint32(f&FlagC)
	lookup := lookup16(x, y, diff)
	res := uint16(diff)
	return res, bsel(diff&0x10000 != 0, FlagC, 0) | FlagN |
		OverflowSubTable[lookup>>4] |
		uint8(res>>8)&(Flag53|FlagS) |
		HalfcarrySubTable[lookup&0x07] |
		bsel(res != 0, 0, FlagZ)
}

// Bit returns the flags of BIT n, v. Bits 3 and 5 are taken from xy: the
// operand for register forms, the high byte of the effective address for
// indexed forms.
func Bit(n, v, xy, f uint8) uint8 {
	nf := f&FlagC | FlagH | xy&Flag53
	if v&(1<<n) == 0 {
		nf |= FlagP | FlagZ
	}
	if n == 7 && v&0x80 != 0 {
		nf |= FlagS
	}
	return nf
}

// LdAIR returns the flags of LD A,I and LD A,R: P/V mirrors IFF2.
func LdAIR(v uint8, iff2 bool, f uint8) uint8 {
	return f&FlagC | Sz53Table[v] | bsel(iff2, FlagP, 0)
}

// InC returns the flags of IN r,(C), RLD and RRD: carry kept, S Z 5 3 P from v.
func InC(v, f uint8) uint8 {
	return f&FlagC | Sz53pTable[v]
}

// Ldi returns the flags of LDI/LDD/LDIR/LDDR after copying v with A in the
// accumulator and bc the decremented counter.
func Ldi(a, v uint8, bc uint16, f uint8) uint8 {
	n := a + v
	return f&(FlagS|FlagZ|FlagC) |
		bsel(bc != 0, FlagV, 0) |
		n&Flag3 | (n&0x02)<<4
}

// Cpi returns the flags of CPI/CPD/CPIR/CPDR comparing A with v.
func Cpi(a, v uint8, bc uint16, f uint8) uint8 {
	res := a - v
	h := (a ^ v ^ res) & FlagH
	n := res
	if h != 0 {
		n--
	}
	return f&FlagC | FlagN | h |
		Sz53Table[res]&(FlagS|FlagZ) |
		bsel(bc != 0, FlagV, 0) |
		n&Flag3 | (n&0x02)<<4
}

// BlockIO returns the flags of INI/IND/OUTI/OUTD and their repeating forms.
// b is the decremented B, v the byte transferred and k the sum defined for
// each instruction (v plus C±1 for input, v plus L for output).
func BlockIO(b, v uint8, k uint16) uint8 {
	return Sz53Table[b] |
		bsel(v&0x80 != 0, FlagN, 0) |
		bsel(k > 0xFF, FlagH|FlagC, 0) |
		ParityTable[uint8(k&0x07)^b]
}

// bsel returns a if cond is true, else b. Branchless flag selection.
func bsel(cond bool, a, b uint8) uint8 {
	if cond {
		return a
	}
	return b
}
