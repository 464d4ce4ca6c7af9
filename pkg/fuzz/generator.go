// Package fuzz cross-checks the Z80 core against an independent
// implementation on random instructions and random machine state.
package fuzz

import (
	"fmt"
	"math/rand/v2"

	"github.com/oisee/z80-emulator/pkg/bus"
	"github.com/oisee/z80-emulator/pkg/cpu"
	"github.com/oisee/z80-emulator/pkg/inst"
)

// Case is one instruction and the state it starts from. Memory is filled
// from Seed, or left zeroed when Seed is 0. Port reads return Input.
type Case struct {
	Index int
	In    inst.Instruction
	Regs  cpu.Registers
	Ints  bus.InterruptState
	Seed  uint64
	Input uint8
}

func (c *Case) String() string {
	return fmt.Sprintf("#%d %s @%04X", c.Index, inst.DisassembleAt(c.In, c.Regs.PC), c.Regs.PC)
}

// DefaultOps returns the Z80 instructions worth fuzzing. HALT and the
// repeating block instructions are left out since a single step does not
// complete them.
func DefaultOps() []inst.OpCode {
	var ops []inst.OpCode
	for _, op := range inst.Ops(inst.Z80) {
		info := &inst.Catalog[op]
		if info.Class == inst.Halt || info.Repeat {
			continue
		}
		ops = append(ops, op)
	}
	return ops
}

// Generator draws random cases.
type Generator struct {
	rng *rand.Rand
	ops []inst.OpCode
}

// NewGenerator creates a Generator picking from ops.
func NewGenerator(rng *rand.Rand, ops []inst.OpCode) *Generator {
	return &Generator{rng: rng, ops: ops}
}

// Instruction returns a random instruction with random operands.
func (g *Generator) Instruction() inst.Instruction {
	op := g.ops[g.rng.IntN(len(g.ops))]
	in := inst.New(op, 0, 0)
	switch inst.Catalog[op].Layout {
	case inst.Imm8:
		in.Imm = uint16(g.rng.IntN(256))
	case inst.Imm16:
		in.Imm = uint16(g.rng.IntN(65536))
	case inst.Rel, inst.Disp, inst.DispOp:
		in.Disp = int8(g.rng.IntN(256))
	case inst.DispImm8:
		in.Disp = int8(g.rng.IntN(256))
		in.Imm = uint16(g.rng.IntN(256))
	}
	return in
}

// Registers returns a random register file.
func (g *Generator) Registers() cpu.Registers {
	b := func() cpu.Bank {
		var v [8]uint8
		for i := range v {
			v[i] = uint8(g.rng.Uint32())
		}
		return cpu.Bank{A: v[0], F: v[1], B: v[2], C: v[3], D: v[4], E: v[5], H: v[6], L: v[7]}
	}
	return cpu.Registers{
		Bank:   b(),
		Shadow: b(),
		IX:     uint16(g.rng.Uint32()),
		IY:     uint16(g.rng.Uint32()),
		SP:     uint16(g.rng.Uint32()),
		PC:     uint16(g.rng.Uint32()),
		I:      uint8(g.rng.Uint32()),
		R:      uint8(g.rng.Uint32()),
	}
}

// Case returns a complete random case.
func (g *Generator) Case() Case {
	return Case{
		In:   g.Instruction(),
		Regs: g.Registers(),
		Ints: bus.InterruptState{
			IFF1: g.rng.IntN(2) == 1,
			IFF2: g.rng.IntN(2) == 1,
			Mode: uint8(g.rng.IntN(3)),
		},
		Seed:  g.rng.Uint64() | 1,
		Input: uint8(g.rng.Uint32()),
	}
}

// image returns the 64 KiB memory a case starts with: the seeded fill with
// the instruction bytes placed at PC.
func (c *Case) image() []uint8 {
	mem := make([]uint8, 0x10000)
	if c.Seed != 0 {
		rng := rand.New(rand.NewPCG(c.Seed, c.Seed^0x9E3779B97F4A7C15))
		for i := 0; i < len(mem); i += 8 {
			v := rng.Uint64()
			for j := 0; j < 8; j++ {
				mem[i+j] = uint8(v >> (8 * j))
			}
		}
	}
	for i, b := range c.In.Bytes() {
		mem[c.Regs.PC+uint16(i)] = b
	}
	return mem
}
