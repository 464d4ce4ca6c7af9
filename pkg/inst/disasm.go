package inst

import "strconv"

// Disassemble returns assembly text for an instruction. Relative jumps are
// shown as offsets from the instruction's own address ($+n).
func Disassemble(in Instruction) string {
	return render(in, 0, false)
}

// DisassembleAt is Disassemble for an instruction located at addr: relative
// jumps show their absolute target.
func DisassembleAt(in Instruction, addr uint16) string {
	return render(in, addr, true)
}

func render(in Instruction, addr uint16, abs bool) string {
	mnemonic := Catalog[in.Op].Mnemonic
	buf := make([]byte, 0, len(mnemonic)+6)
	for i := 0; i < len(mnemonic); i++ {
		c := mnemonic[i]
		switch {
		case c == 'n' && i+1 < len(mnemonic) && mnemonic[i+1] == 'n':
			buf = appendHex16(buf, in.Imm)
			i++ // skip second 'n'
		case c == 'n':
			buf = appendHex8(buf, uint8(in.Imm))
		case c == 'd':
			// Template reads "+d"; a negative displacement flips the sign.
			d := int(in.Disp)
			if d < 0 {
				buf[len(buf)-1] = '-'
				d = -d
			}
			buf = appendHex8(buf, uint8(d))
		case c == 'e':
			if abs {
				buf = appendHex16(buf, in.Target(addr))
				break
			}
			off := int(in.Disp) + in.Len()
			buf = append(buf, '$')
			if off > 0 {
				buf = append(buf, '+')
			}
			if off != 0 {
				buf = strconv.AppendInt(buf, int64(off), 10)
			}
		default:
			buf = append(buf, c)
		}
	}
	return string(buf)
}

func appendHex8(buf []byte, v uint8) []byte {
	const hex = "0123456789ABCDEF"
	if v >= 0xA0 {
		buf = append(buf, '0')
	}
	buf = append(buf, hex[v>>4], hex[v&0x0F], 'h')
	return buf
}

func appendHex16(buf []byte, v uint16) []byte {
	const hex = "0123456789ABCDEF"
	if v>>12 >= 0xA {
		buf = append(buf, '0')
	}
	buf = append(buf, hex[v>>12], hex[(v>>8)&0x0F], hex[(v>>4)&0x0F], hex[v&0x0F], 'h')
	return buf
}
