package i8080

import "github.com/oisee/z80-emulator/pkg/cpu"

// PSW bits. The 8080 shares the Z80 flag positions for S, Z, AC, P and CY;
// bit 1 always reads 1 and bits 3 and 5 always read 0.
const (
	flagC   = cpu.FlagC
	flagOne = 0x02
	flagP   = cpu.FlagP
	flagAC  = cpu.FlagH
	flagZ   = cpu.FlagZ
	flagS   = cpu.FlagS
)

// PSW forces the fixed bits of a flag byte.
func PSW(f uint8) uint8 {
	return f&^(cpu.Flag53|flagOne) | flagOne
}

// szp returns S, Z and P for v with the fixed bits set.
func szp(v uint8) uint8 {
	return cpu.Sz53pTable[v]&^cpu.Flag53 | flagOne
}

func carryIf(cond bool, mask uint8) uint8 {
	if cond {
		return mask
	}
	return 0
}

// Add returns a+b+carry. AC is the carry out of bit 3.
func Add(a, b uint8, carry bool) (uint8, uint8) {
	sum := uint16(a) + uint16(b)
	if carry {
		sum++
	}
	res := uint8(sum)
	f := szp(res) | carryIf(sum > 0xFF, flagC) | carryIf((a^b^res)&0x10 != 0, flagAC)
	return res, f
}

// Sub returns a-b-borrow, computed as a + ^b + !borrow with CY inverted the
// way the 8080 ALU does it.
func Sub(a, b uint8, borrow bool) (uint8, uint8) {
	res, f := Add(a, ^b, !borrow)
	return res, f ^ flagC
}

// Cmp returns the flags of a-b.
func Cmp(a, b uint8) uint8 {
	_, f := Sub(a, b, false)
	return f
}

// Ana ANDs a with b. AC takes the OR of bit 3 of both operands.
func Ana(a, b uint8) (uint8, uint8) {
	res := a & b
	return res, szp(res) | carryIf((a|b)&0x08 != 0, flagAC)
}

func Xra(a, b uint8) (uint8, uint8) {
	res := a ^ b
	return res, szp(res)
}

func Ora(a, b uint8) (uint8, uint8) {
	res := a | b
	return res, szp(res)
}

// Inr increments v. CY is kept.
func Inr(v, f uint8) (uint8, uint8) {
	res := v + 1
	return res, szp(res) | f&flagC | carryIf(res&0x0F == 0, flagAC)
}

// Dcr decrements v. CY is kept.
func Dcr(v, f uint8) (uint8, uint8) {
	res := v - 1
	return res, szp(res) | f&flagC | carryIf(res&0x0F != 0x0F, flagAC)
}

// Dad adds two pairs and changes only CY.
func Dad(x, y uint16, f uint8) (uint16, uint8) {
	sum := uint32(x) + uint32(y)
	return uint16(sum), f&^flagC | carryIf(sum > 0xFFFF, flagC)
}

func Rlc(a, f uint8) (uint8, uint8) {
	c := a >> 7
	return a<<1 | c, f&^flagC | c
}

func Rrc(a, f uint8) (uint8, uint8) {
	c := a & 1
	return a>>1 | c<<7, f&^flagC | c
}

func Ral(a, f uint8) (uint8, uint8) {
	return a<<1 | f&flagC, f&^flagC | a>>7
}

func Rar(a, f uint8) (uint8, uint8) {
	return a>>1 | (f&flagC)<<7, f&^flagC | a&1
}

// Daa adjusts A after a BCD addition. CY is set by the adjustment or kept.
func Daa(a, f uint8) (uint8, uint8) {
	lsb, msb := a&0x0F, a>>4
	cy := f & flagC
	var correction uint8
	if lsb > 9 || f&flagAC != 0 {
		correction += 0x06
	}
	if cy != 0 || msb > 9 || (msb >= 9 && lsb > 9) {
		correction += 0x60
		cy = flagC
	}
	res, nf := Add(a, correction, false)
	return res, nf&^flagC | cy
}
