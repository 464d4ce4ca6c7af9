package inst

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrUnknownMnemonic = errors.New("unknown instruction")

// Parse converts one line of assembly such as "LD A, 0" into an
// instruction. Immediates are written 0x1F, 1Fh or 31; displacements as
// (IX+5) or (IX-0Ah); relative jumps as $+k or $-k.
func Parse(set Set, text string) (Instruction, error) {
	return parse(set, text, 0, false)
}

// ParseAt is Parse for an instruction that will sit at addr; relative jumps
// may then also name their absolute target.
func ParseAt(set Set, text string, addr uint16) (Instruction, error) {
	return parse(set, text, addr, true)
}

// Assemble parses a sequence of instructions separated by newlines or ':'
// starting at org. Text after ';' is a comment.
func Assemble(set Set, src string, org uint16) ([]Instruction, error) {
	var seq []Instruction
	addr := org
	for _, line := range strings.Split(src, "\n") {
		if i := strings.IndexByte(line, ';'); i >= 0 {
			line = line[:i]
		}
		for _, part := range strings.Split(line, ":") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			in, err := ParseAt(set, part, addr)
			if err != nil {
				return nil, fmt.Errorf("cannot parse %q: %w", part, err)
			}
			seq = append(seq, in)
			addr += uint16(in.Len())
		}
	}
	if len(seq) == 0 {
		return nil, fmt.Errorf("no instructions parsed from %q", src)
	}
	return seq, nil
}

// Encode concatenates the machine code of seq.
func Encode(seq []Instruction) []uint8 {
	out := make([]uint8, 0, SeqByteSize(seq))
	for _, in := range seq {
		out = append(out, in.Bytes()...)
	}
	return out
}

func parse(set Set, text string, addr uint16, abs bool) (Instruction, error) {
	norm := normalize(strings.ToUpper(text))
	if norm == "" {
		return Instruction{}, fmt.Errorf("%w: empty", ErrUnknownMnemonic)
	}
	for i := range Catalog {
		info := &Catalog[i]
		if info.Set != set || info.Alias {
			continue
		}
		if info.Class == Rst {
			if in, ok := matchRst(info, OpCode(i), norm); ok {
				return in, nil
			}
			continue
		}
		if in, ok := match(info, OpCode(i), templates[i], norm, addr, abs); ok {
			return in, nil
		}
	}
	return Instruction{}, fmt.Errorf("%w: %s", ErrUnknownMnemonic, text)
}

// normalize keeps one space after the mnemonic word and drops the rest, so
// "LD  A , B" and "LD A,B" compare equal while "CP D" and "CPD" stay apart.
func normalize(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	if len(fields) == 1 {
		return fields[0]
	}
	return fields[0] + " " + strings.Join(fields[1:], "")
}

// match walks template and input together. Lowercase runs in the template
// are placeholders: nn, n, +d and e.
func match(info *Info, op OpCode, tmpl, s string, addr uint16, abs bool) (Instruction, bool) {
	in := New(op, 0, 0)
	i, j := 0, 0
	for i < len(tmpl) {
		c := tmpl[i]
		switch {
		case c == '+' && i+1 < len(tmpl) && tmpl[i+1] == 'd':
			i += 2
			if j < len(s) && s[j] == ')' {
				continue // (IX) means (IX+0)
			}
			if j >= len(s) || (s[j] != '+' && s[j] != '-') {
				return in, false
			}
			neg := s[j] == '-'
			j++
			end := scan(s, j, tmpl, i)
			v, err := parseNumber(s[j:end])
			if err != nil {
				return in, false
			}
			if neg {
				v = -v
			}
			if v < -128 || v > 127 {
				return in, false
			}
			in.Disp = int8(v)
			j = end
		case c == 'n' && i+1 < len(tmpl) && tmpl[i+1] == 'n':
			i += 2
			end := scan(s, j, tmpl, i)
			v, err := parseNumber(s[j:end])
			if err != nil || v < -0x8000 || v > 0xFFFF {
				return in, false
			}
			in.Imm = uint16(v)
			j = end
		case c == 'n':
			i++
			end := scan(s, j, tmpl, i)
			v, err := parseNumber(s[j:end])
			if err != nil || v < -0x80 || v > 0xFF {
				return in, false
			}
			in.Imm = uint16(uint8(v))
			j = end
		case c == 'e':
			i++
			end := scan(s, j, tmpl, i)
			d, ok := parseRel(s[j:end], info.Len(), addr, abs)
			if !ok {
				return in, false
			}
			in.Disp = d
			j = end
		default:
			if j >= len(s) || s[j] != c {
				return in, false
			}
			i++
			j++
		}
	}
	return in, j == len(s)
}

// scan returns the end of the operand starting at s[j]: the next occurrence
// of the template literal following the placeholder, or the end of s.
func scan(s string, j int, tmpl string, i int) int {
	if i >= len(tmpl) {
		return len(s)
	}
	k := strings.IndexByte(s[j:], tmpl[i])
	if k < 0 {
		return len(s)
	}
	return j + k
}

// parseRel resolves "$", "$+k", "$-k" or, with abs, an absolute target into
// the offset stored in the instruction.
func parseRel(tok string, length int, addr uint16, abs bool) (int8, bool) {
	var off int
	switch {
	case tok == "$":
		off = -length
	case strings.HasPrefix(tok, "$+") || strings.HasPrefix(tok, "$-"):
		k, err := parseNumber(tok[2:])
		if err != nil {
			return 0, false
		}
		if tok[1] == '-' {
			k = -k
		}
		off = k - length
	case abs:
		target, err := parseNumber(tok)
		if err != nil || target < 0 || target > 0xFFFF {
			return 0, false
		}
		off = int(int16(uint16(target) - addr - uint16(length)))
	default:
		return 0, false
	}
	if off < -128 || off > 127 {
		return 0, false
	}
	return int8(off), true
}

// matchRst accepts "RST 38h" style (Z80, vector address) and "RST 7" style
// (8080, restart number).
func matchRst(info *Info, op OpCode, s string) (Instruction, bool) {
	arg, ok := strings.CutPrefix(s, "RST ")
	if !ok {
		return Instruction{}, false
	}
	v, err := parseNumber(arg)
	if err != nil {
		return Instruction{}, false
	}
	want := int(info.Bit)
	if info.Set == I8080 {
		want /= 8
	}
	return New(op, 0, 0), v == want
}

// parseNumber reads 0x1F, 1Fh or decimal, with an optional leading minus.
// Hex with an h suffix must start with a digit so register names never
// parse as numbers.
func parseNumber(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty")
	}
	neg := false
	if s[0] == '-' {
		neg, s = true, s[1:]
	}
	var v int64
	var err error
	switch {
	case strings.HasPrefix(s, "0X") || strings.HasPrefix(s, "0x"):
		v, err = strconv.ParseInt(s[2:], 16, 32)
	case len(s) > 1 && (s[len(s)-1] == 'H' || s[len(s)-1] == 'h'):
		if s[0] < '0' || s[0] > '9' {
			return 0, fmt.Errorf("bad number %q", s)
		}
		v, err = strconv.ParseInt(s[:len(s)-1], 16, 32)
	default:
		v, err = strconv.ParseInt(s, 10, 32)
	}
	if err != nil {
		return 0, err
	}
	if neg {
		v = -v
	}
	return int(v), nil
}
