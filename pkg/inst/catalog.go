package inst

import "fmt"

// Info holds static metadata for a catalog entry.
type Info struct {
	Mnemonic string  // template: n, nn, d (index displacement), e (relative target)
	Set      Set     // instruction set the entry belongs to
	Bytes    []uint8 // prefix and opcode bytes, without operands
	Layout   Layout
	Class    Class
	Dst, Src Operand
	Cond     Cond
	Bit      uint8 // bit number, RST vector or interrupt mode
	Down     bool  // block op walks downwards
	Repeat   bool  // block op repeats until done

	TStates    int // clock cycles, branch taken / block op repeating
	TStatesAlt int // clock cycles when a condition is not met, 0 if unconditional
	Fetches    int // opcode fetch cycles (M1), each advances R
	Flow       bool
	Alias      bool // duplicate encoding of another entry, skipped by Parse
}

// Len returns the total byte size (encoding plus operands).
func (i *Info) Len() int {
	return len(i.Bytes) + layoutSize[i.Layout]
}

// Conditional reports whether the entry has a not-taken cycle count.
func (i *Info) Conditional() bool {
	return i.TStatesAlt != 0
}

// Catalog holds every entry of every instruction set. It is built once at
// package initialisation and never modified afterwards.
var Catalog []Info

// templates holds each entry's mnemonic in the form Parse compares against.
var templates []string

// decodeTable maps opcode bytes to catalog entries for one instruction set.
// Z80 prefixed tables are indexed by the byte after the prefix; index[0] is
// DD (IX), index[1] is FD (IY).
type decodeTable struct {
	base  [256]OpCode
	cb    [256]OpCode
	ed    [256]OpCode
	index [2]struct{ main, bit [256]OpCode }
}

var tables [2]*decodeTable

func newDecodeTable() *decodeTable {
	t := &decodeTable{}
	for i := range 256 {
		t.base[i], t.cb[i], t.ed[i] = Invalid, Invalid, Invalid
		for k := range t.index {
			t.index[k].main[i], t.index[k].bit[i] = Invalid, Invalid
		}
	}
	return t
}

// slot returns the decode table cell for an encoding.
func (t *decodeTable) slot(set Set, info *Info) *OpCode {
	b := info.Bytes
	if set == I8080 || len(b) == 1 {
		return &t.base[b[0]]
	}
	switch b[0] {
	case 0xCB:
		return &t.cb[b[1]]
	case 0xED:
		return &t.ed[b[1]]
	case 0xDD, 0xFD:
		k := 0
		if b[0] == 0xFD {
			k = 1
		}
		if info.Layout == DispOp {
			return &t.index[k].bit[b[2]]
		}
		return &t.index[k].main[b[1]]
	}
	panic(fmt.Sprintf("inst: bad encoding % X", b))
}

// add appends info to the catalog and registers it for decoding.
func add(set Set, info Info) OpCode {
	info.Set = set
	info.Fetches = 1
	if set == Z80 && len(info.Bytes) > 1 {
		info.Fetches = 2
	}
	switch info.Class {
	case Halt, Jp, JpInd, Jr, Djnz, Call, Ret, Reti, Retn, Rst:
		info.Flow = true
	case BlockLd, BlockCp, BlockIn, BlockOut:
		info.Flow = info.Repeat
	}
	op := OpCode(len(Catalog))
	Catalog = append(Catalog, info)
	templates = append(templates, normalize(info.Mnemonic))
	cell := tables[set].slot(set, &Catalog[op])
	if *cell != Invalid {
		panic(fmt.Sprintf("inst: %s %q collides with %q", set, info.Mnemonic, Catalog[*cell].Mnemonic))
	}
	*cell = op
	return op
}

// Ops returns the canonical (non-alias) entries of an instruction set.
func Ops(set Set) []OpCode {
	ops := make([]OpCode, 0, 512)
	for i := range Catalog {
		if Catalog[i].Set == set && !Catalog[i].Alias {
			ops = append(ops, OpCode(i))
		}
	}
	return ops
}

// Lookup returns the entry for an exact byte encoding without operands,
// e.g. {0xCB, 0x06}. DDCB encodings are given as {DD, CB, op}.
func Lookup(set Set, enc ...uint8) (OpCode, bool) {
	for i := range Catalog {
		info := &Catalog[i]
		if info.Set == set && string(info.Bytes) == string(enc) {
			return OpCode(i), true
		}
	}
	return Invalid, false
}

// TStates returns the base T-state cost of an instruction.
func TStates(op OpCode) int {
	return Catalog[op].TStates
}

// ByteSize returns the total byte size of an instruction (encoding + operands).
func ByteSize(op OpCode) int {
	return Catalog[op].Len()
}

// SeqByteSize returns total byte size for a sequence of instructions.
func SeqByteSize(seq []Instruction) int {
	n := 0
	for i := range seq {
		n += ByteSize(seq[i].Op)
	}
	return n
}

// SeqTStates returns total T-states for a sequence of instructions.
func SeqTStates(seq []Instruction) int {
	t := 0
	for i := range seq {
		t += TStates(seq[i].Op)
	}
	return t
}

func init() {
	tables[Z80] = newDecodeTable()
	tables[I8080] = newDecodeTable()
	buildZ80()
	build8080()
}

// Operand selectors in opcode-field order.
var (
	r8    = [8]Operand{RegB, RegC, RegD, RegE, RegH, RegL, MemHL, RegA}
	rp    = [4]Operand{PairBC, PairDE, PairHL, PairSP}
	rp2   = [4]Operand{PairBC, PairDE, PairHL, PairAF}
	conds = [8]Cond{CondNZ, CondZ, CondNC, CondC, CondPO, CondPE, CondP, CondM}
	alu   = [8]Class{Add, Adc, Sub, Sbc, And, Xor, Or, Cp}
	rot   = [8]Class{Rlc, Rrc, Rl, Rr, Sla, Sra, Sll, Srl}
)

var (
	aluZ80 = [8]string{"ADD A,", "ADC A,", "SUB", "SBC A,", "AND", "XOR", "OR", "CP"}
	rotZ80 = [8]string{"RLC", "RRC", "RL", "RR", "SLA", "SRA", "SLL", "SRL"}
	accZ80 = [8]string{"RLCA", "RRCA", "RLA", "RRA", "DAA", "CPL", "SCF", "CCF"}
	accOps = [8]Class{Rlca, Rrca, Rla, Rra, Daa, Cpl, Scf, Ccf}
	imMode = [8]uint8{0, 0, 1, 2, 0, 0, 1, 2}
)

// mn joins a mnemonic word and Zilog operand texts: mn("LD", RegA, ImmN) is
// "LD A, n".
func mn(word string, ops ...Operand) string {
	s := word
	for i, o := range ops {
		if i == 0 {
			s += " "
		} else {
			s += ", "
		}
		s += o.String()
	}
	return s
}

func hl(o Operand) bool { return o == MemHL }

// cost returns m when o is (HL), otherwise r. Register forms and their
// memory forms differ only in cycle count.
func cost(o Operand, r, m int) int {
	if hl(o) {
		return m
	}
	return r
}

func buildZ80() {
	z80Base()
	z80CB()
	z80ED()
	z80Index(0xDD, PairIX, MemIX, RegIXH, RegIXL)
	z80Index(0xFD, PairIY, MemIY, RegIYH, RegIYL)
}

func z80Base() {
	for i := range 256 {
		op := uint8(i)
		x, y, z := op>>6, (op>>3)&7, op&7
		p, q := y>>1, y&1
		enc := []uint8{op}
		switch x {
		case 0:
			switch z {
			case 0:
				switch y {
				case 0:
					add(Z80, Info{Mnemonic: "NOP", Bytes: enc, Class: Nop, TStates: 4})
				case 1:
					add(Z80, Info{Mnemonic: "EX AF, AF'", Bytes: enc, Class: ExAF, TStates: 4})
				case 2:
					add(Z80, Info{Mnemonic: "DJNZ e", Bytes: enc, Layout: Rel, Class: Djnz, Src: RelE, TStates: 13, TStatesAlt: 8})
				case 3:
					add(Z80, Info{Mnemonic: "JR e", Bytes: enc, Layout: Rel, Class: Jr, Src: RelE, TStates: 12})
				default:
					c := conds[y-4]
					add(Z80, Info{Mnemonic: "JR " + c.String() + ", e", Bytes: enc, Layout: Rel, Class: Jr, Src: RelE, Cond: c, TStates: 12, TStatesAlt: 7})
				}
			case 1:
				if q == 0 {
					add(Z80, Info{Mnemonic: mn("LD", rp[p], ImmNN), Bytes: enc, Layout: Imm16, Class: Ld16, Dst: rp[p], Src: ImmNN, TStates: 10})
				} else {
					add(Z80, Info{Mnemonic: mn("ADD HL,", rp[p]), Bytes: enc, Class: Add16, Dst: PairHL, Src: rp[p], TStates: 11})
				}
			case 2:
				type ld struct {
					mem, reg Operand
					class    Class
					t        int
				}
				m := [4]ld{{MemBC, RegA, Ld8, 7}, {MemDE, RegA, Ld8, 7}, {MemNN, PairHL, Ld16, 16}, {MemNN, RegA, Ld8, 13}}[p]
				layout := None
				if m.mem == MemNN {
					layout = Imm16
				}
				if q == 0 {
					add(Z80, Info{Mnemonic: mn("LD", m.mem, m.reg), Bytes: enc, Layout: layout, Class: m.class, Dst: m.mem, Src: m.reg, TStates: m.t})
				} else {
					add(Z80, Info{Mnemonic: mn("LD", m.reg, m.mem), Bytes: enc, Layout: layout, Class: m.class, Dst: m.reg, Src: m.mem, TStates: m.t})
				}
			case 3:
				if q == 0 {
					add(Z80, Info{Mnemonic: mn("INC", rp[p]), Bytes: enc, Class: Inc16, Dst: rp[p], TStates: 6})
				} else {
					add(Z80, Info{Mnemonic: mn("DEC", rp[p]), Bytes: enc, Class: Dec16, Dst: rp[p], TStates: 6})
				}
			case 4:
				add(Z80, Info{Mnemonic: mn("INC", r8[y]), Bytes: enc, Class: Inc8, Dst: r8[y], TStates: cost(r8[y], 4, 11)})
			case 5:
				add(Z80, Info{Mnemonic: mn("DEC", r8[y]), Bytes: enc, Class: Dec8, Dst: r8[y], TStates: cost(r8[y], 4, 11)})
			case 6:
				add(Z80, Info{Mnemonic: mn("LD", r8[y], ImmN), Bytes: enc, Layout: Imm8, Class: Ld8, Dst: r8[y], Src: ImmN, TStates: cost(r8[y], 7, 10)})
			case 7:
				add(Z80, Info{Mnemonic: accZ80[y], Bytes: enc, Class: accOps[y], TStates: 4})
			}
		case 1:
			if op == 0x76 {
				add(Z80, Info{Mnemonic: "HALT", Bytes: enc, Class: Halt, TStates: 4})
				continue
			}
			t := 4
			if hl(r8[y]) || hl(r8[z]) {
				t = 7
			}
			add(Z80, Info{Mnemonic: mn("LD", r8[y], r8[z]), Bytes: enc, Class: Ld8, Dst: r8[y], Src: r8[z], TStates: t})
		case 2:
			add(Z80, Info{Mnemonic: mn(aluZ80[y], r8[z]), Bytes: enc, Class: alu[y], Dst: RegA, Src: r8[z], TStates: cost(r8[z], 4, 7)})
		case 3:
			switch z {
			case 0:
				add(Z80, Info{Mnemonic: "RET " + conds[y].String(), Bytes: enc, Class: Ret, Cond: conds[y], TStates: 11, TStatesAlt: 5})
			case 1:
				if q == 0 {
					add(Z80, Info{Mnemonic: mn("POP", rp2[p]), Bytes: enc, Class: Pop, Dst: rp2[p], TStates: 10})
					continue
				}
				switch p {
				case 0:
					add(Z80, Info{Mnemonic: "RET", Bytes: enc, Class: Ret, TStates: 10})
				case 1:
					add(Z80, Info{Mnemonic: "EXX", Bytes: enc, Class: Exx, TStates: 4})
				case 2:
					add(Z80, Info{Mnemonic: "JP (HL)", Bytes: enc, Class: JpInd, Src: PairHL, TStates: 4})
				case 3:
					add(Z80, Info{Mnemonic: "LD SP, HL", Bytes: enc, Class: Ld16, Dst: PairSP, Src: PairHL, TStates: 6})
				}
			case 2:
				add(Z80, Info{Mnemonic: "JP " + conds[y].String() + ", nn", Bytes: enc, Layout: Imm16, Class: Jp, Src: ImmNN, Cond: conds[y], TStates: 10, TStatesAlt: 10})
			case 3:
				switch y {
				case 0:
					add(Z80, Info{Mnemonic: "JP nn", Bytes: enc, Layout: Imm16, Class: Jp, Src: ImmNN, TStates: 10})
				case 2:
					add(Z80, Info{Mnemonic: "OUT (n), A", Bytes: enc, Layout: Imm8, Class: OutN, Dst: PortN, Src: RegA, TStates: 11})
				case 3:
					add(Z80, Info{Mnemonic: "IN A, (n)", Bytes: enc, Layout: Imm8, Class: InN, Dst: RegA, Src: PortN, TStates: 11})
				case 4:
					add(Z80, Info{Mnemonic: "EX (SP), HL", Bytes: enc, Class: ExSP, Dst: MemSP, Src: PairHL, TStates: 19})
				case 5:
					add(Z80, Info{Mnemonic: "EX DE, HL", Bytes: enc, Class: ExDEHL, TStates: 4})
				case 6:
					add(Z80, Info{Mnemonic: "DI", Bytes: enc, Class: Di, TStates: 4})
				case 7:
					add(Z80, Info{Mnemonic: "EI", Bytes: enc, Class: Ei, TStates: 4})
				}
			case 4:
				add(Z80, Info{Mnemonic: "CALL " + conds[y].String() + ", nn", Bytes: enc, Layout: Imm16, Class: Call, Src: ImmNN, Cond: conds[y], TStates: 17, TStatesAlt: 10})
			case 5:
				if q == 0 {
					add(Z80, Info{Mnemonic: mn("PUSH", rp2[p]), Bytes: enc, Class: Push, Src: rp2[p], TStates: 11})
				} else if p == 0 {
					add(Z80, Info{Mnemonic: "CALL nn", Bytes: enc, Layout: Imm16, Class: Call, Src: ImmNN, TStates: 17})
				}
			case 6:
				add(Z80, Info{Mnemonic: mn(aluZ80[y], ImmN), Bytes: enc, Layout: Imm8, Class: alu[y], Dst: RegA, Src: ImmN, TStates: 7})
			case 7:
				add(Z80, Info{Mnemonic: "RST " + string(appendHex8(nil, y*8)), Bytes: enc, Class: Rst, Bit: y * 8, TStates: 11})
			}
		}
	}
}

func z80CB() {
	for i := range 256 {
		op := uint8(i)
		x, y, z := op>>6, (op>>3)&7, op&7
		r := r8[z]
		enc := []uint8{0xCB, op}
		switch x {
		case 0:
			add(Z80, Info{Mnemonic: mn(rotZ80[y], r), Bytes: enc, Class: rot[y], Dst: r, TStates: cost(r, 8, 15)})
		case 1:
			add(Z80, Info{Mnemonic: fmt.Sprintf("BIT %d, %s", y, r), Bytes: enc, Class: TestBit, Dst: r, Bit: y, TStates: cost(r, 8, 12)})
		case 2:
			add(Z80, Info{Mnemonic: fmt.Sprintf("RES %d, %s", y, r), Bytes: enc, Class: ResetBit, Dst: r, Bit: y, TStates: cost(r, 8, 15)})
		case 3:
			add(Z80, Info{Mnemonic: fmt.Sprintf("SET %d, %s", y, r), Bytes: enc, Class: SetBit, Dst: r, Bit: y, TStates: cost(r, 8, 15)})
		}
	}
}

var blockZ80 = [4][4]string{
	{"LDI", "LDD", "LDIR", "LDDR"},
	{"CPI", "CPD", "CPIR", "CPDR"},
	{"INI", "IND", "INIR", "INDR"},
	{"OUTI", "OUTD", "OTIR", "OTDR"},
}

var blockClass = [4]Class{BlockLd, BlockCp, BlockIn, BlockOut}

func z80ED() {
	for i := 0x40; i < 0x80; i++ {
		op := uint8(i)
		y, z := (op>>3)&7, op&7
		p, q := y>>1, y&1
		enc := []uint8{0xED, op}
		switch z {
		case 0:
			if y == 6 {
				add(Z80, Info{Mnemonic: "IN (C)", Bytes: enc, Class: InC, Src: PortC, TStates: 12})
			} else {
				add(Z80, Info{Mnemonic: mn("IN", r8[y], PortC), Bytes: enc, Class: InC, Dst: r8[y], Src: PortC, TStates: 12})
			}
		case 1:
			src := r8[y]
			if y == 6 {
				src = Zero
			}
			add(Z80, Info{Mnemonic: mn("OUT", PortC, src), Bytes: enc, Class: OutC, Dst: PortC, Src: src, TStates: 12})
		case 2:
			if q == 0 {
				add(Z80, Info{Mnemonic: mn("SBC HL,", rp[p]), Bytes: enc, Class: Sbc16, Dst: PairHL, Src: rp[p], TStates: 15})
			} else {
				add(Z80, Info{Mnemonic: mn("ADC HL,", rp[p]), Bytes: enc, Class: Adc16, Dst: PairHL, Src: rp[p], TStates: 15})
			}
		case 3:
			// ED 63 and ED 6B duplicate the shorter unprefixed HL forms.
			if q == 0 {
				add(Z80, Info{Mnemonic: mn("LD", MemNN, rp[p]), Bytes: enc, Layout: Imm16, Class: Ld16, Dst: MemNN, Src: rp[p], TStates: 20, Alias: p == 2})
			} else {
				add(Z80, Info{Mnemonic: mn("LD", rp[p], MemNN), Bytes: enc, Layout: Imm16, Class: Ld16, Dst: rp[p], Src: MemNN, TStates: 20, Alias: p == 2})
			}
		case 4:
			add(Z80, Info{Mnemonic: "NEG", Bytes: enc, Class: Neg, TStates: 8, Alias: y != 0})
		case 5:
			if y == 1 {
				add(Z80, Info{Mnemonic: "RETI", Bytes: enc, Class: Reti, TStates: 14})
			} else {
				add(Z80, Info{Mnemonic: "RETN", Bytes: enc, Class: Retn, TStates: 14, Alias: y != 0})
			}
		case 6:
			canonical := y == 0 || y == 2 || y == 3
			add(Z80, Info{Mnemonic: fmt.Sprintf("IM %d", imMode[y]), Bytes: enc, Class: Im, Bit: imMode[y], TStates: 8, Alias: !canonical})
		case 7:
			switch y {
			case 0:
				add(Z80, Info{Mnemonic: "LD I, A", Bytes: enc, Class: Ld8, Dst: RegI, Src: RegA, TStates: 9})
			case 1:
				add(Z80, Info{Mnemonic: "LD R, A", Bytes: enc, Class: Ld8, Dst: RegR, Src: RegA, TStates: 9})
			case 2:
				add(Z80, Info{Mnemonic: "LD A, I", Bytes: enc, Class: LdAIR, Dst: RegA, Src: RegI, TStates: 9})
			case 3:
				add(Z80, Info{Mnemonic: "LD A, R", Bytes: enc, Class: LdAIR, Dst: RegA, Src: RegR, TStates: 9})
			case 4:
				add(Z80, Info{Mnemonic: "RRD", Bytes: enc, Class: Rrd, TStates: 18})
			case 5:
				add(Z80, Info{Mnemonic: "RLD", Bytes: enc, Class: Rld, TStates: 18})
			}
		}
	}
	for y := uint8(4); y < 8; y++ {
		for z := uint8(0); z < 4; z++ {
			info := Info{
				Mnemonic: blockZ80[z][y-4],
				Bytes:    []uint8{0xED, 0x80 | y<<3 | z},
				Class:    blockClass[z],
				Down:     y&1 == 1,
				Repeat:   y >= 6,
				TStates:  16,
			}
			if info.Repeat {
				info.TStates, info.TStatesAlt = 21, 16
			}
			add(Z80, info)
		}
	}
}

// z80Index builds the DD or FD table: every unprefixed instruction that
// names HL, H, L or (HL) gets an index form. When (HL) becomes (IX+d), H and
// L in the same instruction stay H and L.
func z80Index(prefix uint8, idx, mem, hi, lo Operand) {
	sub := func(o Operand) Operand {
		switch o {
		case RegH:
			return hi
		case RegL:
			return lo
		case PairHL:
			return idx
		case MemHL:
			return mem
		}
		return o
	}
	enc := func(op uint8) []uint8 { return []uint8{prefix, op} }
	name := idx.String()

	for p := range uint8(4) {
		src := sub(rp[p])
		add(Z80, Info{Mnemonic: mn("ADD "+name+",", src), Bytes: enc(0x09 | p<<4), Class: Add16, Dst: idx, Src: src, TStates: 15})
	}
	add(Z80, Info{Mnemonic: mn("LD", idx, ImmNN), Bytes: enc(0x21), Layout: Imm16, Class: Ld16, Dst: idx, Src: ImmNN, TStates: 14})
	add(Z80, Info{Mnemonic: mn("LD", MemNN, idx), Bytes: enc(0x22), Layout: Imm16, Class: Ld16, Dst: MemNN, Src: idx, TStates: 20})
	add(Z80, Info{Mnemonic: mn("INC", idx), Bytes: enc(0x23), Class: Inc16, Dst: idx, TStates: 10})
	add(Z80, Info{Mnemonic: mn("INC", hi), Bytes: enc(0x24), Class: Inc8, Dst: hi, TStates: 8})
	add(Z80, Info{Mnemonic: mn("DEC", hi), Bytes: enc(0x25), Class: Dec8, Dst: hi, TStates: 8})
	add(Z80, Info{Mnemonic: mn("LD", hi, ImmN), Bytes: enc(0x26), Layout: Imm8, Class: Ld8, Dst: hi, Src: ImmN, TStates: 11})
	add(Z80, Info{Mnemonic: mn("LD", idx, MemNN), Bytes: enc(0x2A), Layout: Imm16, Class: Ld16, Dst: idx, Src: MemNN, TStates: 20})
	add(Z80, Info{Mnemonic: mn("DEC", idx), Bytes: enc(0x2B), Class: Dec16, Dst: idx, TStates: 10})
	add(Z80, Info{Mnemonic: mn("INC", lo), Bytes: enc(0x2C), Class: Inc8, Dst: lo, TStates: 8})
	add(Z80, Info{Mnemonic: mn("DEC", lo), Bytes: enc(0x2D), Class: Dec8, Dst: lo, TStates: 8})
	add(Z80, Info{Mnemonic: mn("LD", lo, ImmN), Bytes: enc(0x2E), Layout: Imm8, Class: Ld8, Dst: lo, Src: ImmN, TStates: 11})
	add(Z80, Info{Mnemonic: mn("INC", mem), Bytes: enc(0x34), Layout: Disp, Class: Inc8, Dst: mem, TStates: 23})
	add(Z80, Info{Mnemonic: mn("DEC", mem), Bytes: enc(0x35), Layout: Disp, Class: Dec8, Dst: mem, TStates: 23})
	add(Z80, Info{Mnemonic: mn("LD", mem, ImmN), Bytes: enc(0x36), Layout: DispImm8, Class: Ld8, Dst: mem, Src: ImmN, TStates: 19})

	for op := 0x40; op < 0x80; op++ {
		if op == 0x76 {
			continue
		}
		y, z := (op>>3)&7, op&7
		dst, src := r8[y], r8[z]
		switch {
		case hl(dst) || hl(src):
			if hl(dst) {
				dst = mem
			} else {
				src = mem
			}
			add(Z80, Info{Mnemonic: mn("LD", dst, src), Bytes: enc(uint8(op)), Layout: Disp, Class: Ld8, Dst: dst, Src: src, TStates: 19})
		case y == 4 || y == 5 || z == 4 || z == 5:
			dst, src = sub(dst), sub(src)
			add(Z80, Info{Mnemonic: mn("LD", dst, src), Bytes: enc(uint8(op)), Class: Ld8, Dst: dst, Src: src, TStates: 8})
		}
	}
	for op := 0x80; op < 0xC0; op++ {
		y, z := (op>>3)&7, op&7
		switch z {
		case 4, 5:
			src := sub(r8[z])
			add(Z80, Info{Mnemonic: mn(aluZ80[y], src), Bytes: enc(uint8(op)), Class: alu[y], Dst: RegA, Src: src, TStates: 8})
		case 6:
			add(Z80, Info{Mnemonic: mn(aluZ80[y], mem), Bytes: enc(uint8(op)), Layout: Disp, Class: alu[y], Dst: RegA, Src: mem, TStates: 19})
		}
	}
	add(Z80, Info{Mnemonic: mn("POP", idx), Bytes: enc(0xE1), Class: Pop, Dst: idx, TStates: 14})
	add(Z80, Info{Mnemonic: mn("EX (SP),", idx), Bytes: enc(0xE3), Class: ExSP, Dst: MemSP, Src: idx, TStates: 23})
	add(Z80, Info{Mnemonic: mn("PUSH", idx), Bytes: enc(0xE5), Class: Push, Src: idx, TStates: 15})
	add(Z80, Info{Mnemonic: "JP (" + name + ")", Bytes: enc(0xE9), Class: JpInd, Src: idx, TStates: 8})
	add(Z80, Info{Mnemonic: mn("LD SP,", idx), Bytes: enc(0xF9), Class: Ld16, Dst: PairSP, Src: idx, TStates: 10})

	// DD CB d op. Register fields other than 6 select an undocumented copy
	// of the result into that register; for BIT they are plain aliases.
	for i := range 256 {
		op := uint8(i)
		x, y, z := op>>6, (op>>3)&7, op&7
		bytes := []uint8{prefix, 0xCB, op}
		var copyTo Operand
		if z != 6 {
			copyTo = r8[z]
		}
		var text string
		var class Class
		switch x {
		case 0:
			class, text = rot[y], mn(rotZ80[y], mem)
		case 1:
			add(Z80, Info{Mnemonic: fmt.Sprintf("BIT %d, %s", y, mem), Bytes: bytes, Layout: DispOp, Class: TestBit, Dst: mem, Bit: y, TStates: 20, Alias: z != 6})
			continue
		case 2:
			class, text = ResetBit, fmt.Sprintf("RES %d, %s", y, mem)
		case 3:
			class, text = SetBit, fmt.Sprintf("SET %d, %s", y, mem)
		}
		if copyTo != NoOperand {
			text = "LD " + copyTo.String() + ", " + text
		}
		add(Z80, Info{Mnemonic: text, Bytes: bytes, Layout: DispOp, Class: class, Dst: mem, Src: copyTo, Bit: y, TStates: 23})
	}
}
