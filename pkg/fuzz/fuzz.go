package fuzz

import (
	"context"
	"fmt"
	"math/rand/v2"
	"runtime"
	"sort"
	"time"

	"github.com/oisee/z80-emulator/pkg/conformance"
	"github.com/oisee/z80-emulator/pkg/cpu"
	"github.com/oisee/z80-emulator/pkg/inst"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// maxMemoryMismatches caps how many differing bytes one result lists.
const maxMemoryMismatches = 4

// Config controls a fuzz run.
type Config struct {
	Seed       uint64
	Count      int
	NumWorkers int
	FlagMask   uint8 // F bits left out of the comparison
	CompareR   bool  // compare the refresh register
	Reduce     bool  // shrink failing cases before reporting them
	Ops        []inst.OpCode

	// Subject is the core under test, Reference the one it is held
	// against. They default to Native and Koron.
	Subject, Reference Machine

	Log logrus.FieldLogger
}

func (cfg *Config) defaults() {
	if cfg.NumWorkers <= 0 {
		cfg.NumWorkers = runtime.NumCPU()
	}
	if cfg.Subject == nil {
		cfg.Subject = Native{}
	}
	if cfg.Reference == nil {
		cfg.Reference = Koron{}
	}
	if len(cfg.Ops) == 0 {
		for _, op := range DefaultOps() {
			if supports(cfg.Subject, op) && supports(cfg.Reference, op) {
				cfg.Ops = append(cfg.Ops, op)
			}
		}
	}
	if cfg.Log == nil {
		cfg.Log = logrus.StandardLogger()
	}
}

// Result is the comparison of one case.
type Result struct {
	Case       Case
	Mismatches []conformance.Mismatch
	Err        error
	Skipped    bool // one of the machines does not support the instruction
}

// Failed reports whether the machines disagreed or the subject failed.
func (r Result) Failed() bool {
	return r.Err != nil || len(r.Mismatches) > 0
}

// Cost is the number of differing fields, 0 for an agreeing case.
func (r Result) Cost() int {
	return len(r.Mismatches)
}

// Report summarizes a run.
type Report struct {
	Total    int
	Passed   int
	Skipped  int
	Failures []Result
	ByClass  map[string]int // failures per instruction class
	Elapsed  time.Duration
}

// Diff lists the fields where got differs from want.
func Diff(got, want *Outcome, flagMask uint8, compareR bool) []conformance.Mismatch {
	var out []conformance.Mismatch
	check := func(field string, g, w int) {
		if g != w {
			out = append(out, conformance.Mismatch{Field: field, Got: g, Want: w})
		}
	}
	b := func(v bool) int {
		if v {
			return 1
		}
		return 0
	}
	gr, wr := &got.Regs, &want.Regs
	check("PC", int(gr.PC), int(wr.PC))
	check("SP", int(gr.SP), int(wr.SP))
	check("A", int(gr.A), int(wr.A))
	check("F", int(gr.F&^flagMask), int(wr.F&^flagMask))
	check("BC", int(gr.BC()), int(wr.BC()))
	check("DE", int(gr.DE()), int(wr.DE()))
	check("HL", int(gr.HL()), int(wr.HL()))
	check("IX", int(gr.IX), int(wr.IX))
	check("IY", int(gr.IY), int(wr.IY))
	check("I", int(gr.I), int(wr.I))
	if compareR {
		check("R", int(gr.R), int(wr.R))
	}
	check("AF'", int(gr.AF2()), int(wr.AF2()))
	check("BC'", int(gr.BC2()), int(wr.BC2()))
	check("DE'", int(gr.DE2()), int(wr.DE2()))
	check("HL'", int(gr.HL2()), int(wr.HL2()))
	check("IFF1", b(got.Ints.IFF1), b(want.Ints.IFF1))
	check("IFF2", b(got.Ints.IFF2), b(want.Ints.IFF2))
	check("IM", int(got.Ints.Mode), int(want.Ints.Mode))
	check("halted", b(got.Halted), b(want.Halted))

	n := 0
	for addr := range min(len(got.Memory), len(want.Memory)) {
		if got.Memory[addr] != want.Memory[addr] {
			if n++; n > maxMemoryMismatches {
				break
			}
			check(fmt.Sprintf("(%04X)", addr), int(got.Memory[addr]), int(want.Memory[addr]))
		}
	}

	check("port writes", len(got.Writes), len(want.Writes))
	for i := range min(len(got.Writes), len(want.Writes)) {
		g, w := got.Writes[i], want.Writes[i]
		check(fmt.Sprintf("out %02X", w.Port), int(g.Port)<<8|int(g.Value), int(w.Port)<<8|int(w.Value))
	}
	return out
}

// Check runs c on both machines and compares the outcomes. A case whose
// instruction either machine does not support is skipped.
func Check(cfg Config, c Case) Result {
	cfg.defaults()
	res := Result{Case: c}
	if op := c.In.Op; !supports(cfg.Subject, op) || !supports(cfg.Reference, op) {
		res.Skipped = true
		return res
	}
	got, err := cfg.Subject.Run(&c)
	if err != nil {
		res.Err = fmt.Errorf("%s: %w", cfg.Subject.Name(), err)
		return res
	}
	want, err := cfg.Reference.Run(&c)
	if err != nil {
		res.Err = fmt.Errorf("%s: %w", cfg.Reference.Name(), err)
		return res
	}
	res.Mismatches = Diff(&got, &want, cfg.FlagMask, cfg.CompareR)
	return res
}

// Reduce simplifies a failing case: every register, the interrupt state
// and the memory fill are zeroed in turn, keeping each change under which
// the case still fails.
func Reduce(cfg Config, c Case) Case {
	cfg.defaults()
	steps := []func(c *Case){
		func(c *Case) { c.Seed = 0 },
		func(c *Case) { c.Input = 0 },
		func(c *Case) { c.Ints.IFF1 = false },
		func(c *Case) { c.Ints.IFF2 = false },
		func(c *Case) { c.Ints.Mode = 0 },
		func(c *Case) { c.Regs.A = 0 },
		func(c *Case) { c.Regs.F = 0 },
		func(c *Case) { c.Regs.B = 0 },
		func(c *Case) { c.Regs.C = 0 },
		func(c *Case) { c.Regs.D = 0 },
		func(c *Case) { c.Regs.E = 0 },
		func(c *Case) { c.Regs.H = 0 },
		func(c *Case) { c.Regs.L = 0 },
		func(c *Case) { c.Regs.Shadow = cpu.Bank{} },
		func(c *Case) { c.Regs.IX = 0 },
		func(c *Case) { c.Regs.IY = 0 },
		func(c *Case) { c.Regs.SP = 0 },
		func(c *Case) { c.Regs.PC = 0 },
		func(c *Case) { c.Regs.I = 0 },
		func(c *Case) { c.Regs.R = 0 },
	}
	for _, step := range steps {
		try := c
		step(&try)
		if try == c {
			continue
		}
		if r := Check(cfg, try); r.Failed() {
			c = try
		}
	}
	return c
}

// Run generates cfg.Count cases and checks them across NumWorkers
// goroutines. Case i is drawn from a generator seeded with (Seed, i), so a
// run is reproducible whatever the worker count.
func Run(ctx context.Context, cfg Config) (*Report, error) {
	cfg.defaults()
	start := time.Now()
	results := make([]Result, cfg.Count)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.NumWorkers)
	for i := range cfg.Count {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			gen := NewGenerator(rand.New(rand.NewPCG(cfg.Seed, uint64(i))), cfg.Ops)
			c := gen.Case()
			c.Index = i
			r := Check(cfg, c)
			if r.Failed() && cfg.Reduce {
				r = Check(cfg, Reduce(cfg, c))
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	rep := &Report{Total: cfg.Count, ByClass: map[string]int{}, Elapsed: time.Since(start)}
	for _, r := range results {
		if r.Skipped {
			rep.Skipped++
			continue
		}
		if !r.Failed() {
			rep.Passed++
			continue
		}
		rep.Failures = append(rep.Failures, r)
		rep.ByClass[r.Case.In.Info().Class.String()]++
	}

	fields := logrus.Fields{
		"seed":      cfg.Seed,
		"reference": cfg.Reference.Name(),
		"total":     rep.Total,
		"passed":    rep.Passed,
		"skipped":   rep.Skipped,
		"failed":    len(rep.Failures),
		"elapsed":   rep.Elapsed.Round(time.Millisecond),
	}
	cfg.Log.WithFields(fields).Info("fuzz run finished")
	for _, class := range rep.Classes() {
		cfg.Log.WithFields(logrus.Fields{"class": class, "failures": rep.ByClass[class]}).Debug("fuzz failures")
	}
	return rep, nil
}

// Classes returns the failing instruction classes, worst first.
func (r *Report) Classes() []string {
	out := make([]string, 0, len(r.ByClass))
	for class := range r.ByClass {
		out = append(out, class)
	}
	sort.Slice(out, func(i, j int) bool {
		if r.ByClass[out[i]] != r.ByClass[out[j]] {
			return r.ByClass[out[i]] > r.ByClass[out[j]]
		}
		return out[i] < out[j]
	})
	return out
}
