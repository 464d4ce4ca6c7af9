// Package bus defines the memory and I/O collaborators a CPU core runs
// against, together with simple RAM, ROM and port devices.
package bus

import (
	"errors"
	"fmt"
	"io"
	"os"
)

var (
	ErrUnmapped = errors.New("address not mapped")
	ErrReadOnly = errors.New("memory is read only")
)

// MemoryError reports a failed access at the memory boundary.
type MemoryError struct {
	Op   string // "read" or "write"
	Addr uint16
	Err  error
}

func (e *MemoryError) Error() string {
	return fmt.Sprintf("memory %s at %04Xh: %v", e.Op, e.Addr, e.Err)
}

func (e *MemoryError) Unwrap() error { return e.Err }

// Memory is a 64 KiB little-endian address space.
type Memory interface {
	Read8(addr uint16) (uint8, error)
	Write8(addr uint16, v uint8) error
	Read16(addr uint16) (uint16, error)
	Write16(addr uint16, v uint16) error
}

// Read16LE composes a 16-bit read from two 8-bit reads at addr and addr+1,
// wrapping at the top of the address space.
func Read16LE(m interface {
	Read8(uint16) (uint8, error)
}, addr uint16) (uint16, error) {
	lo, err := m.Read8(addr)
	if err != nil {
		return 0, err
	}
	hi, err := m.Read8(addr + 1)
	if err != nil {
		return 0, err
	}
	return uint16(hi)<<8 | uint16(lo), nil
}

// Write16LE is the write counterpart of Read16LE.
func Write16LE(m interface {
	Write8(uint16, uint8) error
}, addr uint16, v uint16) error {
	if err := m.Write8(addr, uint8(v)); err != nil {
		return err
	}
	return m.Write8(addr+1, uint8(v>>8))
}

// RAM is a flat 64 KiB read/write memory.
type RAM struct {
	data [0x10000]uint8
}

// NewRAM returns zeroed RAM.
func NewRAM() *RAM {
	return &RAM{}
}

func (r *RAM) Read8(addr uint16) (uint8, error) {
	return r.data[addr], nil
}

func (r *RAM) Write8(addr uint16, v uint8) error {
	r.data[addr] = v
	return nil
}

func (r *RAM) Read16(addr uint16) (uint16, error) {
	return uint16(r.data[addr+1])<<8 | uint16(r.data[addr]), nil
}

func (r *RAM) Write16(addr uint16, v uint16) error {
	r.data[addr] = uint8(v)
	r.data[addr+1] = uint8(v >> 8)
	return nil
}

// Bytes exposes the backing store.
func (r *RAM) Bytes() []uint8 {
	return r.data[:]
}

// Device is one region of a Banked memory map. Addresses passed to a device
// are offsets from the start of its region.
type Device interface {
	Size() int
	Read(off uint16) (uint8, error)
	Write(off uint16, v uint8) error
	// Poke stores v even when the device is read only. Used to load images.
	Poke(off uint16, v uint8) error
}

// Bank is a RAM or ROM region.
type Bank struct {
	data     []uint8
	readOnly bool
}

// NewBank returns a zeroed region of size bytes.
func NewBank(size int, readOnly bool) *Bank {
	return &Bank{data: make([]uint8, size), readOnly: readOnly}
}

// NewROM wraps image as a read-only region.
func NewROM(image []uint8) *Bank {
	data := make([]uint8, len(image))
	copy(data, image)
	return &Bank{data: data, readOnly: true}
}

func (b *Bank) Size() int      { return len(b.data) }
func (b *Bank) ReadOnly() bool { return b.readOnly }

func (b *Bank) Read(off uint16) (uint8, error) {
	if int(off) >= len(b.data) {
		return 0, ErrUnmapped
	}
	return b.data[off], nil
}

func (b *Bank) Write(off uint16, v uint8) error {
	if b.readOnly {
		return ErrReadOnly
	}
	return b.Poke(off, v)
}

func (b *Bank) Poke(off uint16, v uint8) error {
	if int(off) >= len(b.data) {
		return ErrUnmapped
	}
	b.data[off] = v
	return nil
}

// Banked lays devices out back to back from address 0. Addresses past the
// last device are unmapped.
type Banked struct {
	devices []Device
	starts  []int
	size    int
}

// NewBanked returns a map of the given devices in order.
func NewBanked(devices ...Device) *Banked {
	b := &Banked{}
	for _, d := range devices {
		b.Add(d)
	}
	return b
}

// Add appends a device after the ones already mapped.
func (b *Banked) Add(d Device) {
	b.devices = append(b.devices, d)
	b.starts = append(b.starts, b.size)
	b.size += d.Size()
}

// Size returns the number of mapped bytes.
func (b *Banked) Size() int {
	return b.size
}

func (b *Banked) find(addr uint16) (Device, uint16, bool) {
	for i, d := range b.devices {
		start := b.starts[i]
		if int(addr) >= start && int(addr) < start+d.Size() {
			return d, uint16(int(addr) - start), true
		}
	}
	return nil, 0, false
}

func (b *Banked) Read8(addr uint16) (uint8, error) {
	d, off, ok := b.find(addr)
	if !ok {
		return 0, &MemoryError{Op: "read", Addr: addr, Err: ErrUnmapped}
	}
	v, err := d.Read(off)
	if err != nil {
		return 0, &MemoryError{Op: "read", Addr: addr, Err: err}
	}
	return v, nil
}

func (b *Banked) Write8(addr uint16, v uint8) error {
	d, off, ok := b.find(addr)
	if !ok {
		return &MemoryError{Op: "write", Addr: addr, Err: ErrUnmapped}
	}
	if err := d.Write(off, v); err != nil {
		return &MemoryError{Op: "write", Addr: addr, Err: err}
	}
	return nil
}

func (b *Banked) Read16(addr uint16) (uint16, error) {
	return Read16LE(b, addr)
}

// Write16 stores both bytes or neither: when the high byte is refused the
// low byte gets its old value back.
func (b *Banked) Write16(addr uint16, v uint16) error {
	old, readErr := b.Read8(addr)
	if err := b.Write8(addr, uint8(v)); err != nil {
		return err
	}
	if err := b.Write8(addr+1, uint8(v>>8)); err != nil {
		if readErr == nil {
			b.Write8(addr, old)
		}
		return err
	}
	return nil
}

// Poke writes v through read-only protection.
func (b *Banked) Poke(addr uint16, v uint8) error {
	d, off, ok := b.find(addr)
	if !ok {
		return &MemoryError{Op: "write", Addr: addr, Err: ErrUnmapped}
	}
	return d.Poke(off, v)
}

// Poker is implemented by memories that can be written through protection.
type Poker interface {
	Poke(addr uint16, v uint8) error
}

func (r *RAM) Poke(addr uint16, v uint8) error {
	r.data[addr] = v
	return nil
}

// Load copies the contents of src into m starting at org, bypassing
// read-only protection when m supports it. It returns the number of bytes
// stored. Images longer than the space left above org are an error.
func Load(m Memory, src io.Reader, org uint16) (int, error) {
	image, err := io.ReadAll(src)
	if err != nil {
		return 0, fmt.Errorf("read image: %w", err)
	}
	if int(org)+len(image) > 0x10000 {
		return 0, fmt.Errorf("image of %d bytes does not fit at %04Xh", len(image), org)
	}
	store := m.Write8
	if p, ok := m.(Poker); ok {
		store = p.Poke
	}
	for i, v := range image {
		if err := store(org+uint16(i), v); err != nil {
			return i, err
		}
	}
	return len(image), nil
}

// LoadFile loads the file at path into m at org.
func LoadFile(m Memory, path string, org uint16) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return Load(m, f, org)
}

// Dump reads n bytes starting at addr. Unmapped bytes stop the dump.
func Dump(m Memory, addr uint16, n int) ([]uint8, error) {
	out := make([]uint8, 0, n)
	for i := 0; i < n; i++ {
		v, err := m.Read8(addr + uint16(i))
		if err != nil {
			return out, err
		}
		out = append(out, v)
	}
	return out, nil
}
