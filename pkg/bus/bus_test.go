package bus

import (
	"bytes"
	"errors"
	"testing"
)

func TestRAMWrap(t *testing.T) {
	m := NewRAM()
	if err := m.Write16(0xFFFF, 0xBEEF); err != nil {
		t.Fatal(err)
	}
	lo, _ := m.Read8(0xFFFF)
	hi, _ := m.Read8(0x0000)
	if lo != 0xEF || hi != 0xBE {
		t.Errorf("Write16 at FFFF: lo=%02X hi=%02X", lo, hi)
	}
	v, _ := m.Read16(0xFFFF)
	if v != 0xBEEF {
		t.Errorf("Read16 at FFFF = %04X", v)
	}
}

func TestBankedReadOnlyAndUnmapped(t *testing.T) {
	rom := NewROM([]uint8{0x3E, 0x42})
	ram := NewBank(0x100, false)
	m := NewBanked(rom, ram)

	if m.Size() != 0x102 {
		t.Fatalf("Size = %X", m.Size())
	}
	v, err := m.Read8(1)
	if err != nil || v != 0x42 {
		t.Errorf("ROM read = %02X, %v", v, err)
	}

	err = m.Write8(0, 0xFF)
	var me *MemoryError
	if !errors.As(err, &me) || !errors.Is(err, ErrReadOnly) || me.Addr != 0 || me.Op != "write" {
		t.Errorf("ROM write err = %v", err)
	}
	if v, _ := m.Read8(0); v != 0x3E {
		t.Errorf("ROM modified: %02X", v)
	}

	if err := m.Write8(0x0002, 0x99); err != nil {
		t.Fatal(err)
	}
	if v, _ := m.Read8(0x0002); v != 0x99 {
		t.Errorf("RAM at 0002 = %02X", v)
	}

	if _, err := m.Read8(0x0102); !errors.Is(err, ErrUnmapped) {
		t.Errorf("read past end err = %v", err)
	}
	if _, err := m.Read16(0x0101); !errors.Is(err, ErrUnmapped) {
		t.Errorf("read16 straddling end err = %v", err)
	}
}

func TestBankedWrite16AllOrNothing(t *testing.T) {
	m := NewBanked(NewBank(0x10, false), NewROM([]uint8{0xAA}))

	if err := m.Write16(0x0F, 0x1234); !errors.Is(err, ErrReadOnly) {
		t.Errorf("write into ROM err = %v", err)
	}
	if v, _ := m.Read8(0x0F); v != 0 {
		t.Errorf("low byte left at %02X", v)
	}
	if v, _ := m.Read8(0x10); v != 0xAA {
		t.Errorf("ROM byte = %02X", v)
	}

	small := NewBanked(NewBank(0x10, false))
	small.Write8(0x0F, 0x77)
	if err := small.Write16(0x0F, 0x1234); !errors.Is(err, ErrUnmapped) {
		t.Errorf("write past end err = %v", err)
	}
	if v, _ := small.Read8(0x0F); v != 0x77 {
		t.Errorf("low byte = %02X, want 77", v)
	}

	if err := m.Write16(0x0E, 0xBEEF); err != nil {
		t.Fatal(err)
	}
	if v, _ := m.Read16(0x0E); v != 0xBEEF {
		t.Errorf("Read16 = %04X", v)
	}
}

func TestLoadBypassesROM(t *testing.T) {
	m := NewBanked(NewBank(4, true), NewBank(4, false))
	n, err := Load(m, bytes.NewReader([]uint8{1, 2, 3, 4, 5}), 1)
	if err != nil || n != 5 {
		t.Fatalf("Load = %d, %v", n, err)
	}
	got, err := Dump(m, 0, 8)
	if err != nil {
		t.Fatal(err)
	}
	want := []uint8{0, 1, 2, 3, 4, 5, 0, 0}
	if !bytes.Equal(got, want) {
		t.Errorf("memory = % X, want % X", got, want)
	}

	if _, err := Load(NewRAM(), bytes.NewReader(make([]uint8, 3)), 0xFFFE); err == nil {
		t.Error("oversized image loaded")
	}
}

func TestPorts(t *testing.T) {
	p := NewPorts()
	l := NewLatch()
	if err := p.AddDevice(l, 0x10, 0x11); err != nil {
		t.Fatal(err)
	}
	if err := p.AddDevice(NewLatch(), 0x11); !errors.Is(err, ErrPortInUse) {
		t.Errorf("overlap err = %v", err)
	}

	if err := p.Write(0x10, 0x5A); err != nil {
		t.Fatal(err)
	}
	if v, err := p.Read(0x10); err != nil || v != 0x5A {
		t.Errorf("Read(10) = %02X, %v", v, err)
	}
	if v, _ := p.Read(0x11); v != 0 {
		t.Errorf("Read(11) = %02X, want 00", v)
	}

	_, err := p.Read(0x20)
	var ioe *IOError
	if !errors.As(err, &ioe) || ioe.Port != 0x20 || !errors.Is(err, ErrNoDevice) {
		t.Errorf("unconnected read err = %v", err)
	}
}

func TestPendingInterrupt(t *testing.T) {
	p := NewPorts()
	l := NewLatch()
	if err := p.AddDevice(l, 0xFE); err != nil {
		t.Fatal(err)
	}

	l.Request(0xFF)
	if _, ok := p.PendingInterrupt(); ok {
		t.Error("INT accepted with IFF1 clear")
	}

	p.Raise(Interrupt{Kind: NMI})
	req, ok := p.PendingInterrupt()
	if !ok || req.Kind != NMI {
		t.Errorf("NMI not delivered: %+v %v", req, ok)
	}

	p.Interrupts().IFF1 = true
	req, ok = p.PendingInterrupt()
	if !ok || req.Kind != IRQ || req.Data != 0xFF {
		t.Errorf("INT = %+v %v", req, ok)
	}
	if _, ok := p.PendingInterrupt(); ok {
		t.Error("INT delivered twice")
	}
}

// counter is a device counting ticks and raising INT every period T-states.
type counter struct {
	period, elapsed, ticks int
	irq                    bool
}

func (c *counter) In(uint8) (uint8, error) { return uint8(c.ticks), nil }
func (c *counter) Out(uint8, uint8) error  { return nil }

func (c *counter) Tick(n int) {
	c.ticks++
	if c.elapsed += n; c.elapsed >= c.period {
		c.elapsed -= c.period
		c.irq = true
	}
}

func (c *counter) PendingInterrupt() (Interrupt, bool) { return Interrupt{Kind: IRQ}, c.irq }
func (c *counter) AckInterrupt()                       { c.irq = false }

func TestRemoveDevice(t *testing.T) {
	p := NewPorts()
	l := NewLatch()
	if err := p.AddDevice(l, 0x10, 0x11); err != nil {
		t.Fatal(err)
	}
	if err := p.RemoveDevice(l); err != nil {
		t.Fatal(err)
	}
	if _, err := p.Read(0x10); !errors.Is(err, ErrNoDevice) {
		t.Errorf("read after remove err = %v", err)
	}
	if err := p.RemoveDevice(l); !errors.Is(err, ErrNoDevice) {
		t.Errorf("second remove err = %v", err)
	}

	c := &counter{period: 100}
	if err := p.AddDevice(c, 0x11); err != nil {
		t.Errorf("port not freed: %v", err)
	}
	l.Request(0x00)
	p.Interrupts().IFF1 = true
	if _, ok := p.PendingInterrupt(); ok {
		t.Error("removed device still interrupts")
	}
}

func TestTick(t *testing.T) {
	p := NewPorts()
	c := &counter{period: 10}
	if err := p.AddDevice(NewLatch(), 0x01); err != nil {
		t.Fatal(err)
	}
	if err := p.AddDevice(c, 0x02); err != nil {
		t.Fatal(err)
	}
	p.Interrupts().IFF1 = true

	p.Tick(4)
	p.Tick(4)
	if _, ok := p.PendingInterrupt(); ok {
		t.Error("INT before the period elapsed")
	}
	p.Tick(4)
	if _, ok := p.PendingInterrupt(); !ok {
		t.Error("no INT after 12 T-states")
	}
	if v, _ := p.Read(0x02); v != 3 {
		t.Errorf("ticks = %d, want 3", v)
	}
}
