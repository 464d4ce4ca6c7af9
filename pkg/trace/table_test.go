package trace

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/oisee/z80-emulator/pkg/emu"
	"github.com/oisee/z80-emulator/pkg/inst"
	"github.com/sirupsen/logrus/hooks/test"
)

func TestRing(t *testing.T) {
	tab := NewTable(3)
	for i := range 5 {
		tab.Add(Entry{PC: uint16(i)})
	}
	got := tab.Entries()
	if len(got) != 3 || got[0].PC != 2 || got[1].PC != 3 || got[2].PC != 4 {
		t.Errorf("entries %+v", got)
	}
	if tab.Total() != 5 || tab.Len() != 3 {
		t.Errorf("total %d len %d", tab.Total(), tab.Len())
	}
}

func TestConcurrentAdd(t *testing.T) {
	tab := NewTable(0)
	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				tab.Add(Entry{})
			}
		}()
	}
	wg.Wait()
	if tab.Len() != 400 {
		t.Errorf("Len = %d", tab.Len())
	}
}

func TestRecordRun(t *testing.T) {
	seq, err := inst.Assemble(inst.Z80, "LD B, 2\nDJNZ $\nHALT", 0x100)
	if err != nil {
		t.Fatal(err)
	}
	log, _ := test.NewNullLogger()
	e := emu.New(emu.Z80, emu.WithLogger(log))
	e.Load(bytes.NewReader(inst.Encode(seq)), 0x100)
	e.CPU.Registers().PC = 0x100

	tab := NewTable(16)
	if _, err := e.Run(context.Background(), emu.Config{}, tab.Callback()); err != nil {
		t.Fatal(err)
	}
	want := []Entry{
		{0x100, "06 02", "LD B, 02h", 7},
		{0x102, "10 FE", "DJNZ 0102h", 13},
		{0x102, "10 FE", "DJNZ 0102h", 8},
		{0x104, "76", "HALT", 4},
	}
	got := tab.Entries()
	if len(got) != len(want) {
		t.Fatalf("entries %+v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("entry %d = %+v, want %+v", i, got[i], want[i])
		}
	}

	var buf bytes.Buffer
	if err := WriteJSON(&buf, got); err != nil {
		t.Fatal(err)
	}
	back, err := ReadJSON(&buf)
	if err != nil || len(back) != 4 || back[1] != want[1] {
		t.Errorf("ReadJSON = %+v, %v", back, err)
	}

	buf.Reset()
	if err := WriteText(&buf, got); err != nil {
		t.Fatal(err)
	}
	if lines := strings.Split(strings.TrimSpace(buf.String()), "\n"); len(lines) != 4 || !strings.HasPrefix(lines[3], "0104  76") {
		t.Errorf("text trace:\n%s", buf.String())
	}
}
