package inst

import "fmt"

// OpCode is a compact identifier for one catalog entry (not the raw byte
// encoding). The same opcode byte decodes to different entries depending on
// the prefix bytes in front of it and on the instruction set.
type OpCode uint16

// Invalid marks a slot in a decode table with no instruction behind it.
const Invalid OpCode = 0xFFFF

// Set selects an instruction set.
type Set uint8

const (
	Z80 Set = iota
	I8080
)

func (s Set) String() string {
	switch s {
	case Z80:
		return "z80"
	case I8080:
		return "i8080"
	}
	return fmt.Sprintf("Set(%d)", uint8(s))
}

// Instruction is one decoded instruction. It is a small value, trivially
// copyable; everything static lives in the catalog entry Op points at.
//
// Cycles starts at the entry's base T-states. Conditional instructions
// replace it with the not-taken count while executing.
type Instruction struct {
	Op     OpCode
	Imm    uint16 // 8 or 16-bit immediate
	Disp   int8   // index displacement or relative jump offset
	Cycles int
}

// New returns an instruction for op with its base cycle count.
func New(op OpCode, imm uint16, disp int8) Instruction {
	return Instruction{Op: op, Imm: imm, Disp: disp, Cycles: Catalog[op].TStates}
}

// Info returns the catalog entry.
func (in Instruction) Info() *Info {
	return &Catalog[in.Op]
}

// Len returns the encoded length in bytes.
func (in Instruction) Len() int {
	return Catalog[in.Op].Len()
}

// AutoIncrementPC reports whether the executor advances PC by Len after
// execution. Control-flow instructions set PC themselves.
func (in Instruction) AutoIncrementPC() bool {
	return !Catalog[in.Op].Flow
}

// Target returns the destination of a relative jump located at addr.
func (in Instruction) Target(addr uint16) uint16 {
	return addr + uint16(in.Len()) + uint16(int16(in.Disp))
}

// Bytes returns the machine encoding. Decoding the result yields an
// instruction with the same Op, Imm and Disp.
func (in Instruction) Bytes() []uint8 {
	info := &Catalog[in.Op]
	out := make([]uint8, 0, info.Len())
	switch info.Layout {
	case None:
		out = append(out, info.Bytes...)
	case Imm8:
		out = append(out, info.Bytes...)
		out = append(out, uint8(in.Imm))
	case Imm16:
		out = append(out, info.Bytes...)
		out = append(out, uint8(in.Imm), uint8(in.Imm>>8))
	case Rel, Disp:
		out = append(out, info.Bytes...)
		out = append(out, uint8(in.Disp))
	case DispImm8:
		out = append(out, info.Bytes...)
		out = append(out, uint8(in.Disp), uint8(in.Imm))
	case DispOp:
		// DD CB d op: the displacement sits before the final opcode byte.
		out = append(out, info.Bytes[0], info.Bytes[1], uint8(in.Disp), info.Bytes[2])
	}
	return out
}

func (in Instruction) String() string {
	if int(in.Op) >= len(Catalog) {
		return fmt.Sprintf("OpCode(%d)", in.Op)
	}
	return Disassemble(in)
}

// Layout describes the operand bytes following the opcode bytes.
type Layout uint8

const (
	None     Layout = iota
	Imm8            // n
	Imm16           // nn, little endian
	Rel             // e, signed offset from the next instruction
	Disp            // d
	DispImm8        // d n
	DispOp          // DD CB d op
)

var layoutSize = [...]int{None: 0, Imm8: 1, Imm16: 2, Rel: 1, Disp: 1, DispImm8: 2, DispOp: 1}

// Operand names a register, memory reference or immediate an instruction
// reads or writes.
type Operand uint8

const (
	NoOperand Operand = iota
	RegA
	RegB
	RegC
	RegD
	RegE
	RegH
	RegL
	RegIXH
	RegIXL
	RegIYH
	RegIYL
	RegI
	RegR
	PairAF
	PairBC
	PairDE
	PairHL
	PairSP
	PairIX
	PairIY
	MemBC // (BC)
	MemDE // (DE)
	MemHL // (HL)
	MemSP // (SP)
	MemIX // (IX+d)
	MemIY // (IY+d)
	MemNN // (nn)
	ImmN
	ImmNN
	PortN // (n)
	PortC // (C)
	Zero  // OUT (C),0
	RelE
)

var operandText = [...]string{
	NoOperand: "",
	RegA:      "A", RegB: "B", RegC: "C", RegD: "D", RegE: "E", RegH: "H", RegL: "L",
	RegIXH: "IXH", RegIXL: "IXL", RegIYH: "IYH", RegIYL: "IYL",
	RegI: "I", RegR: "R",
	PairAF: "AF", PairBC: "BC", PairDE: "DE", PairHL: "HL", PairSP: "SP",
	PairIX: "IX", PairIY: "IY",
	MemBC: "(BC)", MemDE: "(DE)", MemHL: "(HL)", MemSP: "(SP)",
	MemIX: "(IX+d)", MemIY: "(IY+d)", MemNN: "(nn)",
	ImmN: "n", ImmNN: "nn",
	PortN: "(n)", PortC: "(C)",
	Zero: "0",
	RelE: "e",
}

// String returns the Zilog spelling used in mnemonic templates.
func (o Operand) String() string {
	if int(o) < len(operandText) {
		return operandText[o]
	}
	return fmt.Sprintf("Operand(%d)", uint8(o))
}

// Is8 reports whether o is an 8-bit register or memory byte.
func (o Operand) Is8() bool {
	return o >= RegA && o <= RegR || o >= MemBC && o <= MemNN && o != MemSP
}

// Indexed reports whether o is an (IX+d)/(IY+d) reference.
func (o Operand) Indexed() bool {
	return o == MemIX || o == MemIY
}

// Cond is a branch condition tested against F.
type Cond uint8

const (
	Always Cond = iota
	CondNZ
	CondZ
	CondNC
	CondC
	CondPO
	CondPE
	CondP
	CondM
)

var condText = [...]string{"", "NZ", "Z", "NC", "C", "PO", "PE", "P", "M"}

func (c Cond) String() string {
	if int(c) < len(condText) {
		return condText[c]
	}
	return fmt.Sprintf("Cond(%d)", uint8(c))
}

// Class is the operation an entry performs. The executors switch over it;
// operands and condition come from the entry.
type Class uint8

const (
	Nop Class = iota
	Halt

	Ld8    // Dst <- Src, 8 bit
	Ld16   // Dst <- Src, 16 bit
	LdAIR  // LD A,I / LD A,R (flags from IFF2)
	Push   // Src
	Pop    // Dst
	ExDEHL // EX DE,HL
	ExAF   // EX AF,AF'
	Exx
	ExSP // EX (SP),Src

	Add // 8-bit ALU on A with Src
	Adc
	Sub
	Sbc
	And
	Xor
	Or
	Cp
	Inc8 // Dst
	Dec8
	Inc16
	Dec16
	Add16 // Dst += Src
	Adc16
	Sbc16

	Rlca
	Rrca
	Rla
	Rra
	Daa
	Cpl
	Scf
	Ccf
	Neg

	// CB rotates and shifts on Dst. Src, when set, receives a copy of the
	// result (undocumented DDCB forms).
	Rlc
	Rrc
	Rl
	Rr
	Sla
	Sra
	Sll
	Srl
	TestBit  // BIT Bit, Dst
	ResetBit // RES Bit, Dst (copy in Src)
	SetBit   // SET Bit, Dst (copy in Src)
	Rld
	Rrd

	Jp    // JP [Cond,] nn
	JpInd // JP (Src)
	Jr    // JR [Cond,] e
	Djnz
	Call
	Ret
	Reti
	Retn
	Rst // vector in Bit

	Di
	Ei
	Im // mode in Bit

	InN  // IN A,(n)
	InC  // IN r,(C), flags; Dst none for IN (C)
	OutN // OUT (n),A
	OutC // OUT (C),r

	BlockLd // LDI/LDD/LDIR/LDDR
	BlockCp
	BlockIn
	BlockOut

	ClassCount
)

var classText = [...]string{
	Nop: "nop", Halt: "halt",
	Ld8: "ld8", Ld16: "ld16", LdAIR: "ld-a-ir", Push: "push", Pop: "pop",
	ExDEHL: "ex-de-hl", ExAF: "ex-af", Exx: "exx", ExSP: "ex-sp",
	Add: "add", Adc: "adc", Sub: "sub", Sbc: "sbc", And: "and", Xor: "xor", Or: "or", Cp: "cp",
	Inc8: "inc8", Dec8: "dec8", Inc16: "inc16", Dec16: "dec16",
	Add16: "add16", Adc16: "adc16", Sbc16: "sbc16",
	Rlca: "rlca", Rrca: "rrca", Rla: "rla", Rra: "rra",
	Daa: "daa", Cpl: "cpl", Scf: "scf", Ccf: "ccf", Neg: "neg",
	Rlc: "rlc", Rrc: "rrc", Rl: "rl", Rr: "rr", Sla: "sla", Sra: "sra", Sll: "sll", Srl: "srl",
	TestBit: "bit", ResetBit: "res", SetBit: "set", Rld: "rld", Rrd: "rrd",
	Jp: "jp", JpInd: "jp-ind", Jr: "jr", Djnz: "djnz", Call: "call",
	Ret: "ret", Reti: "reti", Retn: "retn", Rst: "rst",
	Di: "di", Ei: "ei", Im: "im",
	InN: "in-n", InC: "in-c", OutN: "out-n", OutC: "out-c",
	BlockLd: "block-ld", BlockCp: "block-cp", BlockIn: "block-in", BlockOut: "block-out",
}

func (c Class) String() string {
	if int(c) < len(classText) && classText[c] != "" {
		return classText[c]
	}
	return fmt.Sprintf("Class(%d)", uint8(c))
}

// DecodeError reports bytes with no instruction behind them.
type DecodeError struct {
	Set   Set
	Addr  uint16
	Bytes []uint8
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: no instruction for % X at %04Xh", e.Set, e.Bytes, e.Addr)
}
