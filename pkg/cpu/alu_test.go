package cpu

import (
	"testing"
)

// TestFlagTables verifies our precomputed tables match expected values.
func TestFlagTables(t *testing.T) {
	if Sz53Table[0]&FlagZ == 0 {
		t.Error("Sz53Table[0] should have Z flag")
	}
	if Sz53pTable[0]&FlagZ == 0 {
		t.Error("Sz53pTable[0] should have Z flag")
	}
	if Sz53Table[0x80]&FlagS == 0 {
		t.Error("Sz53Table[0x80] should have S flag")
	}
	if Sz53Table[0x28] != Flag3|Flag5 {
		t.Errorf("Sz53Table[0x28] = %02X, want %02X", Sz53Table[0x28], Flag3|Flag5)
	}
	if !Parity(0x00) || Parity(0x01) || !Parity(0xFF) || !Parity(0x03) {
		t.Error("parity table mismatch for 00/01/FF/03")
	}
}

// TestAddFlags verifies ADD A, n flag behavior for key cases.
func TestAddFlags(t *testing.T) {
	tests := []struct {
		a, val       uint8
		wantA        uint8
		wantCarry    bool
		wantZero     bool
		wantSign     bool
		wantHalf     bool
		wantOverflow bool
	}{
		{0, 0, 0, false, true, false, false, false},
		{1, 1, 2, false, false, false, false, false},
		{0xFF, 1, 0, true, true, false, true, false},
		{0x0F, 1, 0x10, false, false, false, true, false},
		{0x0E, 1, 0x0F, false, false, false, false, false},
		{0x7F, 1, 0x80, false, false, true, true, true}, // overflow: pos + pos = neg
		{0x80, 0x80, 0, true, true, false, false, true}, // overflow: neg + neg = pos
	}

	for _, tc := range tests {
		a, f := Add8(tc.a, tc.val, false)
		if a != tc.wantA {
			t.Errorf("ADD A=%02X + %02X: got A=%02X, want %02X", tc.a, tc.val, a, tc.wantA)
		}
		if (f&FlagC != 0) != tc.wantCarry {
			t.Errorf("ADD A=%02X + %02X: carry=%v, want %v", tc.a, tc.val, f&FlagC != 0, tc.wantCarry)
		}
		if (f&FlagZ != 0) != tc.wantZero {
			t.Errorf("ADD A=%02X + %02X: zero=%v, want %v", tc.a, tc.val, f&FlagZ != 0, tc.wantZero)
		}
		if (f&FlagS != 0) != tc.wantSign {
			t.Errorf("ADD A=%02X + %02X: sign=%v, want %v", tc.a, tc.val, f&FlagS != 0, tc.wantSign)
		}
		if (f&FlagH != 0) != tc.wantHalf {
			t.Errorf("ADD A=%02X + %02X: half=%v, want %v", tc.a, tc.val, f&FlagH != 0, tc.wantHalf)
		}
		if (f&FlagV != 0) != tc.wantOverflow {
			t.Errorf("ADD A=%02X + %02X: overflow=%v, want %v", tc.a, tc.val, f&FlagV != 0, tc.wantOverflow)
		}
		if f&FlagN != 0 {
			t.Errorf("ADD A=%02X + %02X: N set", tc.a, tc.val)
		}
		if f&Flag53 != a&Flag53 {
			t.Errorf("ADD A=%02X + %02X: bits 3/5 = %02X, want %02X", tc.a, tc.val, f&Flag53, a&Flag53)
		}
	}
}

// TestHalfCarryBoundary checks the carry out of bit 3.
func TestHalfCarryBoundary(t *testing.T) {
	if _, f := Add8(0x0F, 0x01, false); f&FlagH == 0 {
		t.Error("0x0F + 0x01 should set H")
	}
	if _, f := Add8(0x0E, 0x01, false); f&FlagH != 0 {
		t.Error("0x0E + 0x01 should not set H")
	}
}

// TestAdcDeterministic runs every ADC input twice.
func TestAdcDeterministic(t *testing.T) {
	for a := 0; a < 256; a++ {
		for b := 0; b < 256; b++ {
			for _, c := range []bool{false, true} {
				r1, f1 := Add8(uint8(a), uint8(b), c)
				r2, f2 := Add8(uint8(a), uint8(b), c)
				if r1 != r2 || f1 != f2 {
					t.Fatalf("ADC %02X,%02X,%v not deterministic: %02X/%02X vs %02X/%02X", a, b, c, r1, f1, r2, f2)
				}
				want := uint8(a + b)
				if c {
					want++
				}
				if r1 != want {
					t.Fatalf("ADC %02X,%02X,%v = %02X, want %02X", a, b, c, r1, want)
				}
			}
		}
	}
}

// TestSubFlags verifies SUB/SBC flag behavior.
func TestSubFlags(t *testing.T) {
	tests := []struct {
		a, val    uint8
		carry     bool
		wantA     uint8
		wantFlags uint8 // S Z H V N C only
	}{
		{0x10, 0x01, false, 0x0F, FlagH | FlagN},
		{0x00, 0x01, false, 0xFF, FlagS | FlagH | FlagN | FlagC},
		{0x80, 0x01, false, 0x7F, FlagH | FlagV | FlagN},
		{0x05, 0x05, false, 0x00, FlagZ | FlagN},
		{0x05, 0x04, true, 0x00, FlagZ | FlagN},
	}
	const mask = FlagS | FlagZ | FlagH | FlagV | FlagN | FlagC
	for _, tc := range tests {
		a, f := Sub8(tc.a, tc.val, tc.carry)
		if a != tc.wantA {
			t.Errorf("SBC %02X-%02X-%v: got A=%02X, want %02X", tc.a, tc.val, tc.carry, a, tc.wantA)
		}
		if f&mask != tc.wantFlags {
			t.Errorf("SBC %02X-%02X-%v: flags %02X, want %02X", tc.a, tc.val, tc.carry, f&mask, tc.wantFlags)
		}
	}
}

// TestCpUsesOperandBits verifies CP takes bits 3/5 from the operand.
func TestCpUsesOperandBits(t *testing.T) {
	f := Cp8(0x10, 0x28)
	if f&Flag53 != 0x28 {
		t.Errorf("CP 28h: bits 3/5 = %02X, want 28", f&Flag53)
	}
	if f&FlagC == 0 || f&FlagN == 0 || f&FlagZ != 0 {
		t.Errorf("CP 10h,28h: F=%02X, want C and N set, Z clear", f)
	}
	if f := Cp8(0x42, 0x42); f&FlagZ == 0 {
		t.Errorf("CP equal: F=%02X, want Z", f)
	}
}

func TestAndOrXor(t *testing.T) {
	if a, f := And8(0xF0, 0x3C); a != 0x30 || f != FlagH|Sz53pTable[0x30] {
		t.Errorf("AND F0,3C: got A=%02X F=%02X", a, f)
	}
	if a, f := Or8(0x00, 0x00); a != 0 || f != FlagZ|FlagP {
		t.Errorf("OR 0,0: got A=%02X F=%02X", a, f)
	}
	if a, f := Xor8(0xFF, 0x7F); a != 0x80 || f != FlagS {
		t.Errorf("XOR FF,7F: got A=%02X F=%02X", a, f)
	}
}

// TestIncDecPreserveCarry covers every value with carry set and clear.
func TestIncDecPreserveCarry(t *testing.T) {
	for v := 0; v < 256; v++ {
		for _, c := range []uint8{0, FlagC} {
			if _, f := Inc8(uint8(v), c|FlagN); f&FlagC != c {
				t.Fatalf("INC %02X with C=%d: carry changed (F=%02X)", v, c, f)
			}
			if _, f := Dec8(uint8(v), c); f&FlagC != c {
				t.Fatalf("DEC %02X with C=%d: carry changed (F=%02X)", v, c, f)
			}
		}
	}
}

func TestIncDecFlags(t *testing.T) {
	tests := []struct {
		name  string
		fn    func(v, f uint8) (uint8, uint8)
		v     uint8
		want  uint8
		wantF uint8
	}{
		{"INC 7F", Inc8, 0x7F, 0x80, FlagS | FlagH | FlagV},
		{"INC FF", Inc8, 0xFF, 0x00, FlagZ | FlagH},
		{"INC 00", Inc8, 0x00, 0x01, 0},
		{"DEC 80", Dec8, 0x80, 0x7F, FlagH | FlagV | FlagN | Flag5 | Flag3},
		{"DEC 01", Dec8, 0x01, 0x00, FlagZ | FlagN},
		{"DEC 00", Dec8, 0x00, 0xFF, FlagS | Flag5 | FlagH | Flag3 | FlagN},
	}
	for _, tc := range tests {
		v, f := tc.fn(tc.v, 0)
		if v != tc.want || f != tc.wantF {
			t.Errorf("%s: got %02X F=%02X, want %02X F=%02X", tc.name, v, f, tc.want, tc.wantF)
		}
	}
}

// TestCBRotates verifies rotate/shift results and flags.
func TestCBRotates(t *testing.T) {
	tests := []struct {
		name  string
		fn    func(v uint8) (uint8, uint8)
		v     uint8
		want  uint8
		wantF uint8
	}{
		{"RLC 80", Rlc, 0x80, 0x01, FlagC},
		{"RLC 81", Rlc, 0x81, 0x03, 0x05},
		{"RRC 03", Rrc, 0x03, 0x81, 0x85},
		{"SLA 81", Sla, 0x81, 0x02, 0x01},
		{"SRL 02", Srl, 0x02, 0x01, 0x00},
		{"SRL 01", Srl, 0x01, 0x00, 0x45},
		{"SRA 81", Sra, 0x81, 0xC0, FlagS | FlagP | FlagC},
		{"SLL 00", Sll, 0x00, 0x01, 0x00},
	}
	for _, tc := range tests {
		v, f := tc.fn(tc.v)
		if v != tc.want || f != tc.wantF {
			t.Errorf("%s: got %02X F=%02X, want %02X F=%02X", tc.name, v, f, tc.want, tc.wantF)
		}
	}

	// RL/RR shift the previous carry in.
	if v, f := Rl(0x80, FlagC); v != 0x01 || f&FlagC == 0 {
		t.Errorf("RL 80 C=1: got %02X F=%02X", v, f)
	}
	if v, f := Rr(0x01, 0); v != 0x00 || f != FlagZ|FlagP|FlagC {
		t.Errorf("RR 01 C=0: got %02X F=%02X", v, f)
	}
}

func TestAccumulatorRotates(t *testing.T) {
	if a, f := Rlca(0x80, FlagS|FlagZ); a != 0x01 || f != 0xC1 {
		t.Errorf("RLCA 80: got %02X F=%02X, want 01 F=C1", a, f)
	}
	if a, f := Rrca(0x01, 0); a != 0x80 || f != FlagC {
		t.Errorf("RRCA 01: got %02X F=%02X", a, f)
	}
	if a, f := Rla(0x80, 0); a != 0x00 || f != FlagC {
		t.Errorf("RLA 80: got %02X F=%02X", a, f)
	}
	if a, f := Rra(0x01, FlagC); a != 0x80 || f != FlagC {
		t.Errorf("RRA 01 C=1: got %02X F=%02X", a, f)
	}
}

func TestSpecialOps(t *testing.T) {
	if a, f := Cpl(0x55, 0); a != 0xAA || f&(FlagH|FlagN) != FlagH|FlagN {
		t.Errorf("CPL 55: got %02X F=%02X", a, f)
	}
	if f := Scf(0, 0); f != FlagC {
		t.Errorf("SCF: F=%02X", f)
	}
	if f := Ccf(0, FlagC); f&FlagC != 0 || f&FlagH == 0 {
		t.Errorf("CCF with C=1: F=%02X, want C clear and H set", f)
	}
	if a, f := Neg8(0x01); a != 0xFF || f != 0xBB {
		t.Errorf("NEG 01: got %02X F=%02X, want FF F=BB", a, f)
	}
	if a, f := Neg8(0x80); a != 0x80 || f&FlagV == 0 {
		t.Errorf("NEG 80: got %02X F=%02X, want overflow", a, f)
	}
}

// TestDAA verifies DAA for a selection of key cases.
func TestDAA(t *testing.T) {
	tests := []struct {
		a         uint8
		f         uint8 // input flags
		want      uint8
		wantCarry bool
		name      string
	}{
		{0x15, 0, 0x15, false, "BCD 15 no adjust"},
		{0x1A, 0, 0x20, false, "BCD adjust low nibble"},
		{0xA0, 0, 0x00, true, "BCD adjust high nibble"},
		{0x9A, 0, 0x00, true, "BCD 9A -> 00"},
		{0x0F, FlagN, 0x09, false, "after subtract"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			a, f := Daa(tc.a, tc.f)
			if a != tc.want {
				t.Errorf("DAA A=%02X F=%02X: got A=%02X want %02X (F=%02X)", tc.a, tc.f, a, tc.want, f)
			}
			if (f&FlagC != 0) != tc.wantCarry {
				t.Errorf("DAA A=%02X: carry=%v, want %v", tc.a, f&FlagC != 0, tc.wantCarry)
			}
			if (f&FlagP != 0) != Parity(a) {
				t.Errorf("DAA A=%02X: P does not match parity of %02X", tc.a, a)
			}
		})
	}
}

func TestAdd16(t *testing.T) {
	if v, f := Add16(0x0FFF, 0x0001, 0xC4); v != 0x1000 || f != 0xD4 {
		t.Errorf("ADD 0FFF+1: got %04X F=%02X, want 1000 F=D4", v, f)
	}
	if v, f := Add16(0xFFFF, 0x0001, 0); v != 0 || f != FlagH|FlagC {
		t.Errorf("ADD FFFF+1: got %04X F=%02X", v, f)
	}
}

// TestAdcSbc16CrossCheck verifies ADC/SBC HL results and the N flag.
func TestAdcSbc16CrossCheck(t *testing.T) {
	for x := uint32(0); x < 0x10000; x += 0x1111 {
		for y := uint32(0); y < 0x10000; y += 0x1111 {
			for carry := uint8(0); carry <= 1; carry++ {
				v, f := Adc16(uint16(x), uint16(y), carry)
				if f&FlagN != 0 {
					t.Fatalf("ADC %04X,%04X: N set", x, y)
				}
				if v != uint16(x+y+uint32(carry)) {
					t.Fatalf("ADC %04X,%04X,%d: got %04X", x, y, carry, v)
				}
				if (f&FlagZ != 0) != (v == 0) {
					t.Fatalf("ADC %04X,%04X,%d: Z mismatch F=%02X", x, y, carry, f)
				}
				v, f = Sbc16(uint16(x), uint16(y), carry)
				if f&FlagN == 0 {
					t.Fatalf("SBC %04X,%04X: N clear", x, y)
				}
				if v != uint16(x-y-uint32(carry)) {
					t.Fatalf("SBC %04X,%04X,%d: got %04X", x, y, carry, v)
				}
			}
		}
	}
	if v, f := Sbc16(0x0001, 0x8000, 0); v != 0x8001 || f&(FlagC|FlagS) != FlagC|FlagS {
		t.Errorf("SBC 0001-8000: got %04X F=%02X, want 8001 with C and S", v, f)
	}
}

func TestBit(t *testing.T) {
	if f := Bit(0, 0x01, 0x01, 0); f != FlagH {
		t.Errorf("BIT 0 of 01: F=%02X, want 10", f)
	}
	if f := Bit(7, 0x01, 0x01, 0); f != 0x54 {
		t.Errorf("BIT 7 of 01: F=%02X, want 54", f)
	}
	if f := Bit(7, 0x80, 0x80, FlagC); f != FlagS|FlagH|FlagC {
		t.Errorf("BIT 7 of 80: F=%02X", f)
	}
	if f := Bit(0, 0x01, 0x28, 0); f&Flag53 != Flag53 {
		t.Errorf("BIT bits 3/5 should come from xy: F=%02X", f)
	}
}

func TestBlockFlags(t *testing.T) {
	if f := Ldi(0x00, 0x0A, 1, 0); f != FlagV|Flag3|Flag5 {
		t.Errorf("LDI flags: %02X, want 2C", f)
	}
	if f := Ldi(0x00, 0x00, 0, FlagC|FlagZ); f != FlagC|FlagZ {
		t.Errorf("LDI last: %02X", f)
	}
	if f := Cpi(0x42, 0x42, 0, 0); f&(FlagZ|FlagN|FlagV) != FlagZ|FlagN {
		t.Errorf("CPI match with BC=0: %02X", f)
	}
	if f := BlockIO(0, 0x80, 0x100); f&(FlagZ|FlagN|FlagH|FlagC) != FlagZ|FlagN|FlagH|FlagC {
		t.Errorf("block IO flags: %02X", f)
	}
}
