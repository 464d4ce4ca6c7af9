package inst

// Intel 8080 entries. They share Class and Operand values with the Z80 so
// the decoder and the tooling treat both sets alike; only the mnemonics,
// the cycle counts and the flag rules in the executor differ.

var (
	intelReg  = map[Operand]string{RegA: "A", RegB: "B", RegC: "C", RegD: "D", RegE: "E", RegH: "H", RegL: "L", MemHL: "M"}
	intelPair = map[Operand]string{PairBC: "B", PairDE: "D", PairHL: "H", PairSP: "SP", PairAF: "PSW"}

	alu8080    = [8]string{"ADD", "ADC", "SUB", "SBB", "ANA", "XRA", "ORA", "CMP"}
	aluImm8080 = [8]string{"ADI", "ACI", "SUI", "SBI", "ANI", "XRI", "ORI", "CPI"}
	acc8080    = [8]string{"RLC", "RRC", "RAL", "RAR", "DAA", "CMA", "STC", "CMC"}
)

func build8080() {
	for i := range 256 {
		op := uint8(i)
		x, y, z := op>>6, (op>>3)&7, op&7
		p, q := y>>1, y&1
		enc := []uint8{op}
		r := r8[y]
		switch x {
		case 0:
			switch z {
			case 0:
				// 08, 10, ... 38 execute as NOP on silicon.
				add(I8080, Info{Mnemonic: "NOP", Bytes: enc, Class: Nop, TStates: 4, Alias: y != 0})
			case 1:
				if q == 0 {
					add(I8080, Info{Mnemonic: "LXI " + intelPair[rp[p]] + ", nn", Bytes: enc, Layout: Imm16, Class: Ld16, Dst: rp[p], Src: ImmNN, TStates: 10})
				} else {
					add(I8080, Info{Mnemonic: "DAD " + intelPair[rp[p]], Bytes: enc, Class: Add16, Dst: PairHL, Src: rp[p], TStates: 10})
				}
			case 2:
				switch y {
				case 0:
					add(I8080, Info{Mnemonic: "STAX B", Bytes: enc, Class: Ld8, Dst: MemBC, Src: RegA, TStates: 7})
				case 1:
					add(I8080, Info{Mnemonic: "LDAX B", Bytes: enc, Class: Ld8, Dst: RegA, Src: MemBC, TStates: 7})
				case 2:
					add(I8080, Info{Mnemonic: "STAX D", Bytes: enc, Class: Ld8, Dst: MemDE, Src: RegA, TStates: 7})
				case 3:
					add(I8080, Info{Mnemonic: "LDAX D", Bytes: enc, Class: Ld8, Dst: RegA, Src: MemDE, TStates: 7})
				case 4:
					add(I8080, Info{Mnemonic: "SHLD nn", Bytes: enc, Layout: Imm16, Class: Ld16, Dst: MemNN, Src: PairHL, TStates: 16})
				case 5:
					add(I8080, Info{Mnemonic: "LHLD nn", Bytes: enc, Layout: Imm16, Class: Ld16, Dst: PairHL, Src: MemNN, TStates: 16})
				case 6:
					add(I8080, Info{Mnemonic: "STA nn", Bytes: enc, Layout: Imm16, Class: Ld8, Dst: MemNN, Src: RegA, TStates: 13})
				case 7:
					add(I8080, Info{Mnemonic: "LDA nn", Bytes: enc, Layout: Imm16, Class: Ld8, Dst: RegA, Src: MemNN, TStates: 13})
				}
			case 3:
				if q == 0 {
					add(I8080, Info{Mnemonic: "INX " + intelPair[rp[p]], Bytes: enc, Class: Inc16, Dst: rp[p], TStates: 5})
				} else {
					add(I8080, Info{Mnemonic: "DCX " + intelPair[rp[p]], Bytes: enc, Class: Dec16, Dst: rp[p], TStates: 5})
				}
			case 4:
				add(I8080, Info{Mnemonic: "INR " + intelReg[r], Bytes: enc, Class: Inc8, Dst: r, TStates: cost(r, 5, 10)})
			case 5:
				add(I8080, Info{Mnemonic: "DCR " + intelReg[r], Bytes: enc, Class: Dec8, Dst: r, TStates: cost(r, 5, 10)})
			case 6:
				add(I8080, Info{Mnemonic: "MVI " + intelReg[r] + ", n", Bytes: enc, Layout: Imm8, Class: Ld8, Dst: r, Src: ImmN, TStates: cost(r, 7, 10)})
			case 7:
				add(I8080, Info{Mnemonic: acc8080[y], Bytes: enc, Class: accOps[y], TStates: 4})
			}
		case 1:
			if op == 0x76 {
				add(I8080, Info{Mnemonic: "HLT", Bytes: enc, Class: Halt, TStates: 7})
				continue
			}
			src := r8[z]
			t := 5
			if hl(r) || hl(src) {
				t = 7
			}
			add(I8080, Info{Mnemonic: "MOV " + intelReg[r] + ", " + intelReg[src], Bytes: enc, Class: Ld8, Dst: r, Src: src, TStates: t})
		case 2:
			src := r8[z]
			add(I8080, Info{Mnemonic: alu8080[y] + " " + intelReg[src], Bytes: enc, Class: alu[y], Dst: RegA, Src: src, TStates: cost(src, 4, 7)})
		case 3:
			switch z {
			case 0:
				add(I8080, Info{Mnemonic: "R" + conds[y].String(), Bytes: enc, Class: Ret, Cond: conds[y], TStates: 11, TStatesAlt: 5})
			case 1:
				switch {
				case q == 0:
					add(I8080, Info{Mnemonic: "POP " + intelPair[rp2[p]], Bytes: enc, Class: Pop, Dst: rp2[p], TStates: 10})
				case p == 0 || p == 1:
					add(I8080, Info{Mnemonic: "RET", Bytes: enc, Class: Ret, TStates: 10, Alias: p == 1})
				case p == 2:
					add(I8080, Info{Mnemonic: "PCHL", Bytes: enc, Class: JpInd, Src: PairHL, TStates: 5})
				case p == 3:
					add(I8080, Info{Mnemonic: "SPHL", Bytes: enc, Class: Ld16, Dst: PairSP, Src: PairHL, TStates: 5})
				}
			case 2:
				add(I8080, Info{Mnemonic: "J" + conds[y].String() + " nn", Bytes: enc, Layout: Imm16, Class: Jp, Src: ImmNN, Cond: conds[y], TStates: 10, TStatesAlt: 10})
			case 3:
				switch y {
				case 0, 1:
					add(I8080, Info{Mnemonic: "JMP nn", Bytes: enc, Layout: Imm16, Class: Jp, Src: ImmNN, TStates: 10, Alias: y == 1})
				case 2:
					add(I8080, Info{Mnemonic: "OUT n", Bytes: enc, Layout: Imm8, Class: OutN, Dst: PortN, Src: RegA, TStates: 10})
				case 3:
					add(I8080, Info{Mnemonic: "IN n", Bytes: enc, Layout: Imm8, Class: InN, Dst: RegA, Src: PortN, TStates: 10})
				case 4:
					add(I8080, Info{Mnemonic: "XTHL", Bytes: enc, Class: ExSP, Dst: MemSP, Src: PairHL, TStates: 18})
				case 5:
					add(I8080, Info{Mnemonic: "XCHG", Bytes: enc, Class: ExDEHL, TStates: 4})
				case 6:
					add(I8080, Info{Mnemonic: "DI", Bytes: enc, Class: Di, TStates: 4})
				case 7:
					add(I8080, Info{Mnemonic: "EI", Bytes: enc, Class: Ei, TStates: 4})
				}
			case 4:
				add(I8080, Info{Mnemonic: "C" + conds[y].String() + " nn", Bytes: enc, Layout: Imm16, Class: Call, Src: ImmNN, Cond: conds[y], TStates: 17, TStatesAlt: 11})
			case 5:
				if q == 0 {
					add(I8080, Info{Mnemonic: "PUSH " + intelPair[rp2[p]], Bytes: enc, Class: Push, Src: rp2[p], TStates: 11})
				} else {
					// DD, ED and FD are undocumented CALL aliases.
					add(I8080, Info{Mnemonic: "CALL nn", Bytes: enc, Layout: Imm16, Class: Call, Src: ImmNN, TStates: 17, Alias: p != 0})
				}
			case 6:
				add(I8080, Info{Mnemonic: aluImm8080[y] + " n", Bytes: enc, Layout: Imm8, Class: alu[y], Dst: RegA, Src: ImmN, TStates: 7})
			case 7:
				add(I8080, Info{Mnemonic: "RST " + string('0'+y), Bytes: enc, Class: Rst, Bit: y * 8, TStates: 11})
			}
		}
	}
}
