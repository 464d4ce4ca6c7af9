package inst

import (
	"errors"
	"io"
)

// Reader is the read side of a memory.
type Reader interface {
	Read8(addr uint16) (uint8, error)
}

// Decode reads the instruction at pos. It walks the prefix bytes (CB, ED,
// DD/FD and DD CB d), resolves the opcode to a catalog entry and captures
// any immediate or displacement. It never writes memory.
//
// Bytes with no entry behind them give a *DecodeError; a failed memory read
// is returned unchanged.
func Decode(set Set, mem Reader, pos uint16) (Instruction, error) {
	t := tables[set]
	b0, err := mem.Read8(pos)
	if err != nil {
		return Instruction{}, err
	}
	op := t.base[b0]
	raw := []uint8{b0}
	var disp uint8

	if set == Z80 {
		switch b0 {
		case 0xCB, 0xED, 0xDD, 0xFD:
			b1, err := mem.Read8(pos + 1)
			if err != nil {
				return Instruction{}, err
			}
			raw = append(raw, b1)
			switch b0 {
			case 0xCB:
				op = t.cb[b1]
			case 0xED:
				op = t.ed[b1]
			default:
				k := 0
				if b0 == 0xFD {
					k = 1
				}
				if b1 != 0xCB {
					op = t.index[k].main[b1]
					break
				}
				if disp, err = mem.Read8(pos + 2); err != nil {
					return Instruction{}, err
				}
				b3, err := mem.Read8(pos + 3)
				if err != nil {
					return Instruction{}, err
				}
				raw = append(raw, disp, b3)
				op = t.index[k].bit[b3]
			}
		}
	}
	if op == Invalid {
		return Instruction{}, &DecodeError{Set: set, Addr: pos, Bytes: raw}
	}

	info := &Catalog[op]
	in := Instruction{Op: op, Cycles: info.TStates}
	at := pos + uint16(len(info.Bytes))
	switch info.Layout {
	case Imm8:
		v, err := mem.Read8(at)
		if err != nil {
			return Instruction{}, err
		}
		in.Imm = uint16(v)
	case Imm16:
		lo, err := mem.Read8(at)
		if err != nil {
			return Instruction{}, err
		}
		hi, err := mem.Read8(at + 1)
		if err != nil {
			return Instruction{}, err
		}
		in.Imm = uint16(hi)<<8 | uint16(lo)
	case Rel, Disp:
		v, err := mem.Read8(at)
		if err != nil {
			return Instruction{}, err
		}
		in.Disp = int8(v)
	case DispImm8:
		d, err := mem.Read8(at)
		if err != nil {
			return Instruction{}, err
		}
		v, err := mem.Read8(at + 1)
		if err != nil {
			return Instruction{}, err
		}
		in.Disp, in.Imm = int8(d), uint16(v)
	case DispOp:
		in.Disp = int8(disp)
	}
	return in, nil
}

// byteReader serves reads from a slice starting at address 0.
type byteReader []uint8

func (b byteReader) Read8(addr uint16) (uint8, error) {
	if int(addr) >= len(b) {
		return 0, io.ErrUnexpectedEOF
	}
	return b[addr], nil
}

// DecodeBytes decodes the instruction at the start of code.
func DecodeBytes(set Set, code []uint8) (Instruction, error) {
	return Decode(set, byteReader(code), 0)
}

// DecodeAll decodes code linearly until it is exhausted or a byte sequence
// fails to decode.
func DecodeAll(set Set, code []uint8) ([]Instruction, error) {
	var out []Instruction
	for pos := 0; pos < len(code); {
		in, err := Decode(set, byteReader(code[pos:]), 0)
		if err != nil {
			var de *DecodeError
			if errors.As(err, &de) {
				de.Addr = uint16(pos)
			}
			return out, err
		}
		out = append(out, in)
		pos += in.Len()
	}
	return out, nil
}
