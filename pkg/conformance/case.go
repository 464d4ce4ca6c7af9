// Package conformance runs single-instruction test vectors in the
// SingleStepTests JSON layout against the emulator cores.
package conformance

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
)

// State is a CPU and memory snapshot as stored in a test vector. Fields a
// core does not have (the 8080 has no IX, I or shadow bank) are simply
// absent from its files and stay zero.
type State struct {
	PC uint16 `json:"pc"`
	SP uint16 `json:"sp"`
	A  uint8  `json:"a"`
	B  uint8  `json:"b"`
	C  uint8  `json:"c"`
	D  uint8  `json:"d"`
	E  uint8  `json:"e"`
	F  uint8  `json:"f"`
	H  uint8  `json:"h"`
	L  uint8  `json:"l"`
	I  uint8  `json:"i"`
	R  uint8  `json:"r"`
	IX uint16 `json:"ix"`
	IY uint16 `json:"iy"`

	AF2 uint16 `json:"af_"`
	BC2 uint16 `json:"bc_"`
	DE2 uint16 `json:"de_"`
	HL2 uint16 `json:"hl_"`

	IM   uint8 `json:"im"`
	IFF1 uint8 `json:"iff1"`
	IFF2 uint8 `json:"iff2"`

	// RAM lists [address, value] pairs.
	RAM [][2]uint16 `json:"ram"`
}

// PortAccess is one bus transaction on an IO port: [port, value, "r"|"w"].
type PortAccess struct {
	Port  uint16
	Value uint8
	Dir   string
}

func (p *PortAccess) UnmarshalJSON(b []byte) error {
	var raw [3]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("port access: %w", err)
	}
	if err := json.Unmarshal(raw[0], &p.Port); err != nil {
		return fmt.Errorf("port access port: %w", err)
	}
	if err := json.Unmarshal(raw[1], &p.Value); err != nil {
		return fmt.Errorf("port access value: %w", err)
	}
	if err := json.Unmarshal(raw[2], &p.Dir); err != nil {
		return fmt.Errorf("port access direction: %w", err)
	}
	if p.Dir != "r" && p.Dir != "w" {
		return fmt.Errorf("port access direction %q", p.Dir)
	}
	return nil
}

func (p PortAccess) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{p.Port, p.Value, p.Dir})
}

// Case is one vector: a state before and after a single instruction. The
// length of Cycles is the instruction's T-state count; the per-cycle bus
// detail is not checked.
type Case struct {
	Name    string            `json:"name"`
	Initial State             `json:"initial"`
	Final   State             `json:"final"`
	Cycles  []json.RawMessage `json:"cycles"`
	Ports   []PortAccess      `json:"ports,omitempty"`
}

// Read decodes a JSON array of cases.
func Read(r io.Reader) ([]Case, error) {
	var cases []Case
	if err := json.NewDecoder(r).Decode(&cases); err != nil {
		return nil, fmt.Errorf("decode cases: %w", err)
	}
	return cases, nil
}

// LoadFile reads the cases in one JSON file.
func LoadFile(path string) ([]Case, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	cases, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cases, nil
}

// Load reads a JSON file, or every *.json file of a directory in name
// order.
func Load(path string) ([]Case, error) {
	st, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !st.IsDir() {
		return LoadFile(path)
	}
	files, err := filepath.Glob(filepath.Join(path, "*.json"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	var all []Case
	for _, file := range files {
		cases, err := LoadFile(file)
		if err != nil {
			return nil, err
		}
		all = append(all, cases...)
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("no test vectors in %s", path)
	}
	return all, nil
}
