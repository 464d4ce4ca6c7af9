// Package trace records executed instructions in a bounded ring.
package trace

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/oisee/z80-emulator/pkg/emu"
	"github.com/oisee/z80-emulator/pkg/inst"
)

// Entry is one executed instruction.
type Entry struct {
	PC     uint16 `json:"pc"`
	Bytes  string `json:"bytes"`
	Text   string `json:"text"`
	Cycles int    `json:"cycles"`
}

func (e Entry) String() string {
	return fmt.Sprintf("%04X  %-12s %-22s %d", e.PC, e.Bytes, e.Text, e.Cycles)
}

// Table keeps the last Limit entries. It is safe for concurrent use.
type Table struct {
	mu      sync.Mutex
	limit   int
	entries []Entry
	next    int
	total   uint64
}

// NewTable creates a table holding at most limit entries; limit <= 0 keeps
// everything.
func NewTable(limit int) *Table {
	return &Table{limit: limit}
}

// Add appends an entry, dropping the oldest once the table is full.
func (t *Table) Add(e Entry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.total++
	if t.limit <= 0 || len(t.entries) < t.limit {
		t.entries = append(t.entries, e)
		return
	}
	t.entries[t.next] = e
	t.next = (t.next + 1) % t.limit
}

// Record adds in, fetched from pc.
func (t *Table) Record(pc uint16, in inst.Instruction) {
	t.Add(Entry{
		PC:     pc,
		Bytes:  fmt.Sprintf("% X", in.Bytes()),
		Text:   inst.DisassembleAt(in, pc),
		Cycles: in.Cycles,
	})
}

// Callback returns an emu.Callback that records every instruction.
func (t *Table) Callback() emu.Callback {
	return func(_ *emu.Emulator, pc uint16, in inst.Instruction) {
		t.Record(pc, in)
	}
}

// Entries returns a copy of the retained entries, oldest first.
func (t *Table) Entries() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Entry, 0, len(t.entries))
	out = append(out, t.entries[t.next:]...)
	out = append(out, t.entries[:t.next]...)
	return out
}

// Len returns the number of retained entries.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Total returns the number of entries ever added.
func (t *Table) Total() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.total
}

// WriteJSON writes entries as an indented JSON array.
func WriteJSON(w io.Writer, entries []Entry) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(entries)
}

// ReadJSON reads entries written by WriteJSON.
func ReadJSON(r io.Reader) ([]Entry, error) {
	var entries []Entry
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// WriteText writes one line per entry.
func WriteText(w io.Writer, entries []Entry) error {
	for _, e := range entries {
		if _, err := fmt.Fprintln(w, e); err != nil {
			return err
		}
	}
	return nil
}
