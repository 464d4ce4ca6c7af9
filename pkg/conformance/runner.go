package conformance

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/oisee/z80-emulator/pkg/bus"
	"github.com/oisee/z80-emulator/pkg/cpu"
	"github.com/oisee/z80-emulator/pkg/emu"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Config controls a conformance run.
type Config struct {
	CPU        emu.CPUType
	NumWorkers int   // parallel cases (defaults to NumCPU)
	FlagMask   uint8 // F bits left out of the comparison
	SkipCycles bool  // do not compare T-state counts

	Log logrus.FieldLogger
}

// Mismatch is one field that differs from the expected final state.
type Mismatch struct {
	Field string
	Got   int
	Want  int
}

func (m Mismatch) String() string {
	return fmt.Sprintf("%s = %X, want %X", m.Field, m.Got, m.Want)
}

// Result is the outcome of one case.
type Result struct {
	Name       string
	Mismatches []Mismatch
	Err        error
}

// Passed reports whether the case matched completely.
func (r Result) Passed() bool {
	return r.Err == nil && len(r.Mismatches) == 0
}

// Report summarizes a run. Failures keep the input order.
type Report struct {
	Total    int
	Passed   int
	Failures []Result
	Elapsed  time.Duration
}

// Run executes every case on a fresh core, memory and port tape. Cases are
// independent, so they are spread over NumWorkers goroutines.
func Run(ctx context.Context, cfg Config, cases []Case) (*Report, error) {
	if cfg.NumWorkers <= 0 {
		cfg.NumWorkers = runtime.NumCPU()
	}
	log := cfg.Log
	if log == nil {
		log = logrus.StandardLogger()
	}

	start := time.Now()
	results := make([]Result, len(cases))
	var done atomic.Int64

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.NumWorkers)
	for i := range cases {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = RunCase(cfg, &cases[i])
			if n := done.Add(1); n%10000 == 0 {
				log.WithFields(logrus.Fields{"done": n, "total": len(cases)}).Info("conformance progress")
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	rep := &Report{Total: len(cases), Elapsed: time.Since(start)}
	for _, r := range results {
		if r.Passed() {
			rep.Passed++
		} else {
			rep.Failures = append(rep.Failures, r)
		}
	}
	log.WithFields(logrus.Fields{
		"cpu":     cfg.CPU.String(),
		"total":   rep.Total,
		"passed":  rep.Passed,
		"failed":  len(rep.Failures),
		"elapsed": rep.Elapsed.Round(time.Millisecond),
	}).Info("conformance run finished")
	return rep, nil
}

// RunCase executes a single vector.
func RunCase(cfg Config, c *Case) Result {
	res := Result{Name: c.Name}
	mem := bus.NewRAM()
	for _, kv := range c.Initial.RAM {
		mem.Bytes()[kv[0]] = uint8(kv[1])
	}
	io := newTape(c.Ports)
	io.state = bus.InterruptState{IFF1: c.Initial.IFF1 != 0, IFF2: c.Initial.IFF2 != 0, Mode: c.Initial.IM}

	core := emu.NewCPU(cfg.CPU)
	core.SetRegisters(registers(&c.Initial))

	in, err := core.Step(mem, io)
	if err != nil {
		res.Err = err
		return res
	}

	got, want := *core.Registers(), registers(&c.Final)
	check := func(field string, g, w int) {
		if g != w {
			res.Mismatches = append(res.Mismatches, Mismatch{Field: field, Got: g, Want: w})
		}
	}
	check("PC", int(got.PC), int(want.PC))
	check("SP", int(got.SP), int(want.SP))
	check("A", int(got.A), int(want.A))
	check("F", int(got.F&^cfg.FlagMask), int(want.F&^cfg.FlagMask))
	check("BC", int(got.BC()), int(want.BC()))
	check("DE", int(got.DE()), int(want.DE()))
	check("HL", int(got.HL()), int(want.HL()))
	check("IX", int(got.IX), int(want.IX))
	check("IY", int(got.IY), int(want.IY))
	check("I", int(got.I), int(want.I))
	check("R", int(got.R), int(want.R))
	check("AF'", int(got.AF2()), int(want.AF2()))
	check("BC'", int(got.BC2()), int(want.BC2()))
	check("DE'", int(got.DE2()), int(want.DE2()))
	check("HL'", int(got.HL2()), int(want.HL2()))
	check("IFF1", boolInt(io.state.IFF1), int(c.Final.IFF1))
	check("IFF2", boolInt(io.state.IFF2), int(c.Final.IFF2))
	check("IM", int(io.state.Mode), int(c.Final.IM))

	for _, kv := range c.Final.RAM {
		check(fmt.Sprintf("(%04X)", kv[0]), int(mem.Bytes()[kv[0]]), int(kv[1]))
	}
	if !cfg.SkipCycles && len(c.Cycles) > 0 {
		check("cycles", in.Cycles, len(c.Cycles))
	}

	var writes []PortAccess
	for _, p := range c.Ports {
		if p.Dir == "w" {
			writes = append(writes, p)
		}
	}
	check("port writes", len(io.writes), len(writes))
	for i := range min(len(writes), len(io.writes)) {
		check(fmt.Sprintf("out %02X", uint8(writes[i].Port)), int(io.writes[i].Value), int(writes[i].Value))
	}
	return res
}

func registers(s *State) cpu.Registers {
	r := cpu.Registers{
		Bank: cpu.Bank{A: s.A, F: s.F, B: s.B, C: s.C, D: s.D, E: s.E, H: s.H, L: s.L},
		IX:   s.IX,
		IY:   s.IY,
		SP:   s.SP,
		PC:   s.PC,
		I:    s.I,
		R:    s.R,
	}
	r.SetAF2(s.AF2)
	r.SetBC2(s.BC2)
	r.SetDE2(s.DE2)
	r.SetHL2(s.HL2)
	return r
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// tape replays the port reads recorded in a vector and records writes.
type tape struct {
	state  bus.InterruptState
	reads  []PortAccess
	writes []PortAccess
}

func newTape(ports []PortAccess) *tape {
	t := &tape{}
	for _, p := range ports {
		if p.Dir == "r" {
			t.reads = append(t.reads, p)
		}
	}
	return t
}

// Read returns the next recorded value, or FFh once the recording is used
// up.
func (t *tape) Read(port uint8) (uint8, error) {
	if len(t.reads) == 0 {
		return 0xFF, nil
	}
	v := t.reads[0].Value
	t.reads = t.reads[1:]
	return v, nil
}

func (t *tape) Write(port uint8, v uint8) error {
	t.writes = append(t.writes, PortAccess{Port: uint16(port), Value: v, Dir: "w"})
	return nil
}

func (t *tape) Interrupts() *bus.InterruptState { return &t.state }
