package z80

import (
	"errors"
	"testing"

	"github.com/oisee/z80-emulator/pkg/bus"
	"github.com/oisee/z80-emulator/pkg/cpu"
)

// load places code at org in a fresh RAM and returns a CPU with PC on it.
func load(org uint16, code ...uint8) (*CPU, *bus.RAM, *bus.Open) {
	m := bus.NewRAM()
	copy(m.Bytes()[org:], code)
	c := New()
	c.Regs.PC = org
	return c, m, &bus.Open{}
}

func step(t *testing.T, c *CPU, m bus.Memory, io bus.IO) int {
	t.Helper()
	in, err := c.Step(m, io)
	if err != nil {
		t.Fatalf("Step at %04X: %v", c.Regs.PC, err)
	}
	return in.Cycles
}

func TestRLCMemHL(t *testing.T) {
	c, m, io := load(0, 0xCB, 0x06)
	c.Regs.SetHL(0x1234)
	m.Bytes()[0x1234] = 0x80

	if cycles := step(t, c, m, io); cycles != 15 {
		t.Errorf("cycles = %d, want 15", cycles)
	}
	if v := m.Bytes()[0x1234]; v != 0x01 {
		t.Errorf("(HL) = %02X, want 01", v)
	}
	if !c.Regs.Carry() || c.Regs.Zero() || c.Regs.Sign() {
		t.Errorf("F = %02X", c.Regs.F)
	}
	if c.Regs.PC != 2 || c.Regs.R != 2 {
		t.Errorf("PC = %04X R = %02X", c.Regs.PC, c.Regs.R)
	}
}

func TestRetConditional(t *testing.T) {
	tests := []struct {
		f      uint8
		pc     uint16
		sp     uint16
		cycles int
	}{
		{cpu.FlagZ, 0x1234, 0x8002, 11},
		{0, 0x0001, 0x8000, 5},
	}
	for _, tc := range tests {
		c, m, io := load(0, 0xC8)
		c.Regs.SP = 0x8000
		c.Regs.F = tc.f
		m.Bytes()[0x8000], m.Bytes()[0x8001] = 0x34, 0x12
		if cycles := step(t, c, m, io); cycles != tc.cycles {
			t.Errorf("F=%02X: cycles = %d, want %d", tc.f, cycles, tc.cycles)
		}
		if c.Regs.PC != tc.pc || c.Regs.SP != tc.sp {
			t.Errorf("F=%02X: PC = %04X SP = %04X, want %04X %04X", tc.f, c.Regs.PC, c.Regs.SP, tc.pc, tc.sp)
		}
	}
}

func TestBranchCycles(t *testing.T) {
	tests := []struct {
		name   string
		code   []uint8
		f      uint8
		b      uint8
		pc     uint16
		cycles int
	}{
		{"JR NZ taken", []uint8{0x20, 0x10}, 0, 0, 0x12, 12},
		{"JR NZ not taken", []uint8{0x20, 0x10}, cpu.FlagZ, 0, 0x02, 7},
		{"JR back", []uint8{0x18, 0xFE}, 0, 0, 0x00, 12},
		{"DJNZ loop", []uint8{0x10, 0xFE}, 0, 2, 0x00, 13},
		{"DJNZ exit", []uint8{0x10, 0xFE}, 0, 1, 0x02, 8},
		{"JP C taken", []uint8{0xDA, 0x00, 0x40}, cpu.FlagC, 0, 0x4000, 10},
		{"JP C not taken", []uint8{0xDA, 0x00, 0x40}, 0, 0, 0x03, 10},
		{"CALL PE not taken", []uint8{0xEC, 0x00, 0x40}, 0, 0, 0x03, 10},
		{"CALL PE taken", []uint8{0xEC, 0x00, 0x40}, cpu.FlagP, 0, 0x4000, 17},
	}
	for _, tc := range tests {
		c, m, io := load(0, tc.code...)
		c.Regs.F = tc.f
		c.Regs.B = tc.b
		c.Regs.SP = 0x8000
		cycles := step(t, c, m, io)
		if c.Regs.PC != tc.pc || cycles != tc.cycles {
			t.Errorf("%s: PC = %04X cycles = %d, want %04X %d", tc.name, c.Regs.PC, cycles, tc.pc, tc.cycles)
		}
	}
}

func TestCallRstRet(t *testing.T) {
	c, m, io := load(0x0100, 0xCD, 0x34, 0x12)
	m.Bytes()[0x1234] = 0xFF // RST 38h
	m.Bytes()[0x0038] = 0xC9 // RET

	if cycles := step(t, c, m, io); cycles != 17 {
		t.Errorf("CALL cycles = %d", cycles)
	}
	if c.Regs.SP != 0xFFFE || m.Bytes()[0xFFFE] != 0x03 || m.Bytes()[0xFFFF] != 0x01 {
		t.Errorf("CALL stack: SP=%04X %02X %02X", c.Regs.SP, m.Bytes()[0xFFFE], m.Bytes()[0xFFFF])
	}
	step(t, c, m, io)
	if c.Regs.PC != 0x0038 || c.Regs.SP != 0xFFFC {
		t.Errorf("RST: PC=%04X SP=%04X", c.Regs.PC, c.Regs.SP)
	}
	step(t, c, m, io)
	if c.Regs.PC != 0x1235 {
		t.Errorf("RET: PC=%04X, want 1235", c.Regs.PC)
	}
}

func TestExchanges(t *testing.T) {
	c, m, io := load(0, 0xD9, 0x08, 0xEB, 0xE3)
	c.Regs.Bank = cpu.Bank{A: 1, F: 2, B: 3, C: 4, D: 5, E: 6, H: 7, L: 8}
	c.Regs.Shadow = cpu.Bank{A: 0x11, F: 0x12, B: 0x13, C: 0x14, D: 0x15, E: 0x16, H: 0x17, L: 0x18}
	c.Regs.SP = 0x9000
	m.Bytes()[0x9000], m.Bytes()[0x9001] = 0xCD, 0xAB

	step(t, c, m, io) // EXX
	if c.Regs.BC() != 0x1314 || c.Regs.HL2() != 0x0708 || c.Regs.A != 1 {
		t.Errorf("EXX: BC=%04X HL'=%04X A=%02X", c.Regs.BC(), c.Regs.HL2(), c.Regs.A)
	}
	step(t, c, m, io) // EX AF,AF'
	if c.Regs.AF() != 0x1112 || c.Regs.AF2() != 0x0102 {
		t.Errorf("EX AF: AF=%04X AF'=%04X", c.Regs.AF(), c.Regs.AF2())
	}
	step(t, c, m, io) // EX DE,HL
	if c.Regs.DE() != 0x1718 || c.Regs.HL() != 0x1516 {
		t.Errorf("EX DE,HL: DE=%04X HL=%04X", c.Regs.DE(), c.Regs.HL())
	}
	step(t, c, m, io) // EX (SP),HL
	if c.Regs.HL() != 0xABCD || m.Bytes()[0x9000] != 0x16 || m.Bytes()[0x9001] != 0x15 {
		t.Errorf("EX (SP),HL: HL=%04X", c.Regs.HL())
	}
}

func TestRefreshWraps(t *testing.T) {
	tests := []struct {
		code []uint8
		r    uint8
		want uint8
	}{
		{[]uint8{0x00}, 0x7F, 0x00},
		{[]uint8{0x00}, 0xFF, 0x80},
		{[]uint8{0xCB, 0x00}, 0x7E, 0x00},
		{[]uint8{0xDD, 0x21, 0x00, 0x00}, 0x05, 0x07},
		{[]uint8{0xDD, 0xCB, 0x00, 0x06}, 0x85, 0x87},
	}
	for _, tc := range tests {
		c, m, io := load(0, tc.code...)
		c.Regs.R = tc.r
		step(t, c, m, io)
		if c.Regs.R != tc.want {
			t.Errorf("% X: R %02X -> %02X, want %02X", tc.code, tc.r, c.Regs.R, tc.want)
		}
	}
}

func TestLdAR(t *testing.T) {
	c, m, io := load(0, 0xED, 0x5F)
	c.Regs.R = 0x10
	io.State.IFF2 = true
	step(t, c, m, io)
	if c.Regs.A != 0x12 {
		t.Errorf("A = %02X, want 12", c.Regs.A)
	}
	if !c.Regs.ParityOverflow() || c.Regs.Zero() {
		t.Errorf("F = %02X", c.Regs.F)
	}
}

func TestIncDecPreserveCarry(t *testing.T) {
	for v := 0; v < 256; v++ {
		for _, carry := range []uint8{0, cpu.FlagC} {
			for _, op := range []uint8{0x3C, 0x3D, 0x34} {
				c, m, io := load(0, op)
				c.Regs.A = uint8(v)
				c.Regs.SetHL(0x4000)
				m.Bytes()[0x4000] = uint8(v)
				c.Regs.F = carry
				step(t, c, m, io)
				if c.Regs.F&cpu.FlagC != carry {
					t.Fatalf("%02X on %02X: carry %02X -> F %02X", op, v, carry, c.Regs.F)
				}
			}
		}
	}
}

func TestIndexed(t *testing.T) {
	c, m, io := load(0, 0xDD, 0x36, 0x05, 0x42, 0xDD, 0xCB, 0x02, 0x00, 0xFD, 0x7E, 0xFE)
	c.Regs.IX = 0x2000
	c.Regs.IY = 0x2004
	m.Bytes()[0x2002] = 0x81

	if cycles := step(t, c, m, io); cycles != 19 || m.Bytes()[0x2005] != 0x42 {
		t.Errorf("LD (IX+5),42h: cycles=%d (IX+5)=%02X", cycles, m.Bytes()[0x2005])
	}
	if cycles := step(t, c, m, io); cycles != 23 {
		t.Errorf("LD B,RLC (IX+2) cycles = %d", cycles)
	}
	if m.Bytes()[0x2002] != 0x03 || c.Regs.B != 0x03 || !c.Regs.Carry() {
		t.Errorf("LD B,RLC (IX+2): mem=%02X B=%02X F=%02X", m.Bytes()[0x2002], c.Regs.B, c.Regs.F)
	}
	step(t, c, m, io) // LD A,(IY-2)
	if c.Regs.A != 0x03 || c.Regs.PC != 11 {
		t.Errorf("LD A,(IY-2): A=%02X PC=%04X", c.Regs.A, c.Regs.PC)
	}
}

func TestLDIR(t *testing.T) {
	c, m, io := load(0, 0xED, 0xB0)
	c.Regs.SetHL(0x1000)
	c.Regs.SetDE(0x2000)
	c.Regs.SetBC(3)
	copy(m.Bytes()[0x1000:], []uint8{1, 2, 3})

	want := []int{21, 21, 16}
	for i, w := range want {
		if cycles := step(t, c, m, io); cycles != w {
			t.Errorf("iteration %d: cycles = %d, want %d", i, cycles, w)
		}
	}
	if c.Regs.PC != 2 || c.Regs.BC() != 0 || c.Regs.HL() != 0x1003 || c.Regs.DE() != 0x2003 {
		t.Errorf("PC=%04X BC=%04X HL=%04X DE=%04X", c.Regs.PC, c.Regs.BC(), c.Regs.HL(), c.Regs.DE())
	}
	if got := m.Bytes()[0x2000:0x2003]; got[0] != 1 || got[1] != 2 || got[2] != 3 {
		t.Errorf("copied % X", got)
	}
	if c.Regs.ParityOverflow() {
		t.Error("P/V set with BC=0")
	}
}

func TestCPIRAndLDD(t *testing.T) {
	c, m, io := load(0, 0xED, 0xB1, 0xED, 0xA8)
	c.Regs.A = 3
	c.Regs.SetHL(0x1000)
	c.Regs.SetBC(10)
	copy(m.Bytes()[0x1000:], []uint8{1, 2, 3, 4})
	for c.Regs.PC == 0 {
		step(t, c, m, io)
	}
	if !c.Regs.Zero() || c.Regs.BC() != 7 || c.Regs.HL() != 0x1003 {
		t.Errorf("CPIR: F=%02X BC=%04X HL=%04X", c.Regs.F, c.Regs.BC(), c.Regs.HL())
	}

	c.Regs.SetDE(0x3000)
	if cycles := step(t, c, m, io); cycles != 16 {
		t.Errorf("LDD cycles = %d", cycles)
	}
	if m.Bytes()[0x3000] != 4 || c.Regs.HL() != 0x1002 || c.Regs.DE() != 0x2FFF || c.Regs.BC() != 6 {
		t.Errorf("LDD: HL=%04X DE=%04X BC=%04X", c.Regs.HL(), c.Regs.DE(), c.Regs.BC())
	}
}

func TestInOut(t *testing.T) {
	ports := bus.NewPorts()
	latch := bus.NewLatch()
	if err := ports.AddDevice(latch, 0xFE); err != nil {
		t.Fatal(err)
	}
	m := bus.NewRAM()
	copy(m.Bytes(), []uint8{
		0xD3, 0xFE, // OUT (0FEh),A
		0xDB, 0xFE, // IN A,(0FEh)
		0xED, 0x40, // IN B,(C)
		0xED, 0x71, // OUT (C),0
		0xED, 0x70, // IN (C)
		0xDB, 0x10, // IN A,(10h)
	})
	c := New()
	c.Regs.A = 0x5A
	c.Regs.C = 0xFE

	step(t, c, m, ports)
	step(t, c, m, ports)
	if c.Regs.A != 0x5A {
		t.Errorf("IN A,(0FEh) = %02X", c.Regs.A)
	}
	step(t, c, m, ports)
	if c.Regs.B != 0x5A || !c.Regs.ParityOverflow() || c.Regs.Zero() || c.Regs.Sign() {
		t.Errorf("IN B,(C): B=%02X F=%02X", c.Regs.B, c.Regs.F)
	}
	step(t, c, m, ports)
	if v, _ := latch.In(0xFE); v != 0 {
		t.Errorf("OUT (C),0 wrote %02X", v)
	}
	step(t, c, m, ports)
	if !c.Regs.Zero() || c.Regs.B != 0x5A {
		t.Errorf("IN (C): F=%02X B=%02X", c.Regs.F, c.Regs.B)
	}

	before := c.Regs
	_, err := c.Step(m, ports)
	if !errors.Is(err, bus.ErrNoDevice) {
		t.Errorf("IN from empty port: %v", err)
	}
	if c.Regs != before {
		t.Error("registers changed by failed IN")
	}
}

func TestHaltAndResume(t *testing.T) {
	c, m, io := load(0x0100, 0x76)
	c.Regs.SP = 0x8000
	io.State.IFF1, io.State.IFF2, io.State.Mode = true, true, 1

	if cycles := step(t, c, m, io); cycles != 4 || !c.Halted() || c.Regs.PC != 0x0100 {
		t.Fatalf("HALT: cycles=%d halted=%v PC=%04X", cycles, c.Halted(), c.Regs.PC)
	}
	r := c.Regs.R
	for i := 0; i < 3; i++ {
		in, err := c.Step(m, io)
		if err != nil || in.Cycles != 4 || in.String() != "HALT" {
			t.Fatalf("halted step: %v %d %v", in, in.Cycles, err)
		}
	}
	if c.Regs.PC != 0x0100 || c.Regs.R != r+3 {
		t.Errorf("halted: PC=%04X R=%02X", c.Regs.PC, c.Regs.R)
	}

	cycles, err := c.Interrupt(m, io, bus.Interrupt{Kind: bus.IRQ})
	if err != nil || cycles != 13 {
		t.Fatalf("IM1: %d %v", cycles, err)
	}
	if c.Halted() || c.Regs.PC != 0x0038 || m.Bytes()[0x7FFE] != 0x01 || m.Bytes()[0x7FFF] != 0x01 {
		t.Errorf("IM1: halted=%v PC=%04X ret=%02X%02X", c.Halted(), c.Regs.PC, m.Bytes()[0x7FFF], m.Bytes()[0x7FFE])
	}
	if io.State.IFF1 || io.State.IFF2 {
		t.Error("IFFs left set after INT")
	}
}

func TestInterruptModes(t *testing.T) {
	c, m, io := load(0x1234)
	c.Regs.SP = 0x8000
	io.State.IFF1, io.State.IFF2 = true, true

	if n, _ := c.Interrupt(m, io, bus.Interrupt{Kind: bus.NMI}); n != 11 || c.Regs.PC != 0x0066 {
		t.Fatalf("NMI: cycles=%d PC=%04X", n, c.Regs.PC)
	}
	if io.State.IFF1 || !io.State.IFF2 {
		t.Errorf("NMI: IFF1=%v IFF2=%v", io.State.IFF1, io.State.IFF2)
	}
	if n, _ := c.Interrupt(m, io, bus.Interrupt{Kind: bus.IRQ}); n != 0 || c.Regs.PC != 0x0066 {
		t.Errorf("INT accepted with IFF1 clear: %d", n)
	}

	copy(m.Bytes()[0x0066:], []uint8{0xED, 0x45}) // RETN
	step(t, c, m, io)
	if c.Regs.PC != 0x1234 || !io.State.IFF1 || c.Regs.SP != 0x8000 {
		t.Errorf("RETN: PC=%04X IFF1=%v SP=%04X", c.Regs.PC, io.State.IFF1, c.Regs.SP)
	}

	io.State.Mode = 2
	c.Regs.I = 0x90
	m.Bytes()[0x9010], m.Bytes()[0x9011] = 0x00, 0xA0
	if n, _ := c.Interrupt(m, io, bus.Interrupt{Kind: bus.IRQ, Data: 0x10}); n != 19 || c.Regs.PC != 0xA000 {
		t.Errorf("IM2: cycles=%d PC=%04X", n, c.Regs.PC)
	}

	io.State.IFF1, io.State.Mode = true, 0
	if n, _ := c.Interrupt(m, io, bus.Interrupt{Kind: bus.IRQ, Data: 0xD7}); n != 13 || c.Regs.PC != 0x0010 {
		t.Errorf("IM0 RST 10h: cycles=%d PC=%04X", n, c.Regs.PC)
	}
}

func TestEIDelay(t *testing.T) {
	c, m, io := load(0, 0xFB, 0x00, 0xF3, 0xED, 0x5E)
	step(t, c, m, io)
	if !c.InterruptsBlocked() || !io.State.IFF1 {
		t.Error("EI: interrupts not blocked for one instruction")
	}
	step(t, c, m, io)
	if c.InterruptsBlocked() {
		t.Error("still blocked after the following instruction")
	}
	step(t, c, m, io)
	if io.State.IFF1 || io.State.IFF2 {
		t.Error("DI left IFFs set")
	}
	step(t, c, m, io)
	if io.State.Mode != 2 {
		t.Errorf("IM 2: mode %d", io.State.Mode)
	}
}

func TestMemoryErrorLeavesState(t *testing.T) {
	m := bus.NewBanked(bus.NewBank(0x100, false))
	io := &bus.Open{}
	tests := []struct {
		name string
		code []uint8
	}{
		{"LD (HL),A", []uint8{0x77}},
		{"PUSH BC", []uint8{0xC5}},
		{"CALL", []uint8{0xCD, 0x00, 0x00}},
		{"LD A,(nn)", []uint8{0x3A, 0x00, 0x90}},
		{"INC (HL)", []uint8{0x34}},
	}
	for _, tc := range tests {
		for i, b := range tc.code {
			m.Write8(uint16(i), b)
		}
		c := New()
		c.Regs.SetHL(0x8000)
		c.Regs.SP = 0x9000
		c.Regs.A = 0x42
		before := c.Regs
		_, err := c.Step(m, io)
		if !errors.Is(err, bus.ErrUnmapped) {
			t.Errorf("%s: err = %v", tc.name, err)
		}
		if !c.Regs.Equal(before) {
			t.Errorf("%s: registers changed\n got %+v\nwant %+v", tc.name, c.Regs, before)
		}
	}
}

func TestStackWriteStraddlingEnd(t *testing.T) {
	tests := []struct {
		name string
		code uint8
		sp   uint16
	}{
		{"PUSH BC", 0xC5, 0x0101},    // writes 00FF and 0100
		{"EX (SP),HL", 0xE3, 0x00FF}, // reads and writes 00FF and 0100
	}
	for _, tc := range tests {
		m := bus.NewBanked(bus.NewBank(0x100, false))
		m.Write8(0, tc.code)
		m.Write8(0xFF, 0x5A)
		c := New()
		c.Regs.SP = tc.sp
		c.Regs.SetBC(0x1234)
		c.Regs.SetHL(0x1234)
		if _, err := c.Step(m, &bus.Open{}); !errors.Is(err, bus.ErrUnmapped) {
			t.Errorf("%s: err = %v", tc.name, err)
		}
		if v, _ := m.Read8(0xFF); v != 0x5A {
			t.Errorf("%s: (00FF) = %02X, want 5A", tc.name, v)
		}
		if c.Regs.SP != tc.sp {
			t.Errorf("%s: SP = %04X", tc.name, c.Regs.SP)
		}
	}
}

func TestDecodeErrorLeavesState(t *testing.T) {
	c, m, io := load(0, 0xDD, 0xDD, 0x00)
	before := c.Regs
	if _, err := c.Step(m, io); err == nil {
		t.Fatal("DD DD decoded")
	}
	if c.Regs != before {
		t.Error("registers changed")
	}
}

func TestRLDAndDAA(t *testing.T) {
	c, m, io := load(0, 0xED, 0x6F, 0xED, 0x67, 0x3E, 0x15, 0xC6, 0x27, 0x27)
	c.Regs.SetHL(0x5000)
	c.Regs.A = 0x7A
	m.Bytes()[0x5000] = 0x31

	step(t, c, m, io) // RLD
	if c.Regs.A != 0x73 || m.Bytes()[0x5000] != 0x1A {
		t.Errorf("RLD: A=%02X (HL)=%02X", c.Regs.A, m.Bytes()[0x5000])
	}
	step(t, c, m, io) // RRD
	if c.Regs.A != 0x7A || m.Bytes()[0x5000] != 0x31 {
		t.Errorf("RRD: A=%02X (HL)=%02X", c.Regs.A, m.Bytes()[0x5000])
	}
	step(t, c, m, io)
	step(t, c, m, io)
	step(t, c, m, io) // 15h + 27h = 3Ch, DAA -> 42h
	if c.Regs.A != 0x42 || c.Regs.Carry() {
		t.Errorf("DAA: A=%02X F=%02X", c.Regs.A, c.Regs.F)
	}
}
