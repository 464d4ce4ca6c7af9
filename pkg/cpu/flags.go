package cpu

import "math/bits"

// Flag bit positions in the F register.
const (
	FlagC uint8 = 0x01 // Carry
	FlagN uint8 = 0x02 // Add/subtract
	FlagP uint8 = 0x04 // Parity/Overflow
	FlagV       = FlagP // Overflow (same bit as Parity)
	Flag3 uint8 = 0x08 // Undocumented bit 3
	FlagH uint8 = 0x10 // Half-carry
	Flag5 uint8 = 0x20 // Undocumented bit 5
	FlagZ uint8 = 0x40 // Zero
	FlagS uint8 = 0x80 // Sign

	// Flag53 selects both undocumented bits.
	Flag53 = Flag3 | Flag5
)

// Precomputed flag tables.
var (
	// Sz53Table: S, Z, 5, 3 flags for each byte value
	Sz53Table [256]uint8
	// Sz53pTable: Sz53 with parity flag included
	Sz53pTable [256]uint8
	// ParityTable: FlagP when the byte has an even number of set bits
	ParityTable [256]uint8

	// Half-carry and overflow lookup tables.
	// For 8-bit ops the index is built from bit 3 (low 3 bits) and bit 7
	// (high 3 bits) of {result, arg2, arg1}. 16-bit ops use bits 11 and 15.
	HalfcarryAddTable = [8]uint8{0, FlagH, FlagH, FlagH, 0, 0, 0, FlagH}
	HalfcarrySubTable = [8]uint8{0, 0, FlagH, 0, FlagH, 0, FlagH, FlagH}
	OverflowAddTable  = [8]uint8{0, 0, 0, FlagV, FlagV, 0, 0, 0}
	OverflowSubTable  = [8]uint8{0, FlagV, 0, 0, 0, 0, FlagV, 0}
)

func init() {
	for i := range 256 {
		v := uint8(i)
		Sz53Table[v] = v & (Flag3 | Flag5 | FlagS)
		if bits.OnesCount8(v)%2 == 0 {
			ParityTable[v] = FlagP
		}
		Sz53pTable[v] = Sz53Table[v] | ParityTable[v]
	}
	Sz53Table[0] |= FlagZ
	Sz53pTable[0] |= FlagZ
}

// Parity reports whether v has an even number of set bits.
func Parity(v uint8) bool {
	return ParityTable[v] != 0
}
