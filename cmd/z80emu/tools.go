package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/oisee/z80-emulator/pkg/conformance"
	"github.com/oisee/z80-emulator/pkg/cpu"
	"github.com/oisee/z80-emulator/pkg/emu"
	"github.com/oisee/z80-emulator/pkg/fuzz"
	"github.com/oisee/z80-emulator/pkg/inst"
	"github.com/oisee/z80-emulator/pkg/trace"
	"github.com/spf13/cobra"
)

func disasmCommand() *cobra.Command {
	var org string
	cmd := &cobra.Command{
		Use:   "disasm [rom]",
		Short: "Disassemble a binary image linearly",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := parseAddr(org)
			if err != nil {
				return err
			}
			code, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			for _, e := range disassemble(cpuType.InstructionSet(), code, base) {
				fmt.Println(e)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&org, "org", "0", "Address of the first byte")
	return cmd
}

// disassemble decodes code from start to end. Bytes that do not decode are
// listed one at a time as DB.
func disassemble(set inst.Set, code []uint8, org uint16) []trace.Entry {
	var out []trace.Entry
	for pos := 0; pos < len(code); {
		addr := org + uint16(pos)
		in, err := inst.DecodeBytes(set, code[pos:])
		if err != nil {
			out = append(out, trace.Entry{
				PC:    addr,
				Bytes: fmt.Sprintf("%02X", code[pos]),
				Text:  "DB " + hexByte(code[pos]),
			})
			pos++
			continue
		}
		out = append(out, trace.Entry{
			PC:     addr,
			Bytes:  fmt.Sprintf("% X", in.Bytes()),
			Text:   inst.DisassembleAt(in, addr),
			Cycles: in.Cycles,
		})
		pos += in.Len()
	}
	return out
}

// hexByte formats v the way the disassembler does: 0EDh, 38h.
func hexByte(v uint8) string {
	if v >= 0xA0 {
		return fmt.Sprintf("0%02Xh", v)
	}
	return fmt.Sprintf("%02Xh", v)
}

func asmCommand() *cobra.Command {
	var (
		org    string
		output string
	)
	cmd := &cobra.Command{
		Use:   "asm [instructions]",
		Short: `Assemble a ":" separated instruction sequence`,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := parseAddr(org)
			if err != nil {
				return err
			}
			seq, err := inst.Assemble(cpuType.InstructionSet(), strings.Join(args, " "), base)
			if err != nil {
				return err
			}
			code := inst.Encode(seq)
			fmt.Printf("% X\n", code)
			fmt.Printf("%d bytes, %d T-states\n", inst.SeqByteSize(seq), inst.SeqTStates(seq))
			if output != "" {
				return os.WriteFile(output, code, 0o644)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&org, "org", "0", "Address of the first instruction")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the machine code to this file")
	return cmd
}

func conformCommand() *cobra.Command {
	var (
		workers    int
		strict     bool
		skipCycles bool
		show       int
	)
	cmd := &cobra.Command{
		Use:   "conform [dir|file]",
		Short: "Run single-step JSON test vectors",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cases, err := conformance.Load(args[0])
			if err != nil {
				return err
			}
			cfg := conformance.Config{
				CPU:        cpuType,
				NumWorkers: workers,
				SkipCycles: skipCycles,
				Log:        log,
			}
			if !strict {
				cfg.FlagMask = cpu.Flag53
			}
			rep, err := conformance.Run(cmd.Context(), cfg, cases)
			if err != nil {
				return err
			}
			for i, f := range rep.Failures {
				if i == show {
					fmt.Printf("... %d more\n", len(rep.Failures)-show)
					break
				}
				if f.Err != nil {
					fmt.Printf("FAIL %s: %v\n", f.Name, f.Err)
					continue
				}
				fmt.Printf("FAIL %s: %v\n", f.Name, f.Mismatches)
			}
			fmt.Printf("%d/%d passed in %v\n", rep.Passed, rep.Total, rep.Elapsed)
			if len(rep.Failures) > 0 {
				return fmt.Errorf("%d cases failed", len(rep.Failures))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&workers, "workers", 0, "Number of workers (0 = NumCPU)")
	cmd.Flags().BoolVar(&strict, "strict-flags", false, "Also compare undocumented flag bits 3 and 5")
	cmd.Flags().BoolVar(&skipCycles, "skip-cycles", false, "Do not compare T-state counts")
	cmd.Flags().IntVar(&show, "show", 20, "Print at most this many failures")
	return cmd
}

func fuzzCommand() *cobra.Command {
	var (
		seed     uint64
		count    int
		workers  int
		strict   bool
		compareR bool
		reduce   bool
		show     int
	)
	cmd := &cobra.Command{
		Use:   "fuzz",
		Short: "Compare the Z80 core against koron-go/z80 on random instructions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cpuType != emu.Z80 {
				return fmt.Errorf("fuzzing needs --cpu z80, got %s", cpuType)
			}
			cfg := fuzz.Config{
				Seed:       seed,
				Count:      count,
				NumWorkers: workers,
				CompareR:   compareR,
				Reduce:     reduce,
				Log:        log,
			}
			if !strict {
				cfg.FlagMask = cpu.Flag53
			}
			rep, err := fuzz.Run(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			for i, f := range rep.Failures {
				if i == show {
					fmt.Printf("... %d more\n", len(rep.Failures)-show)
					break
				}
				fmt.Printf("FAIL %s cost=%d: %v %v\n", f.Case.String(), f.Cost(), f.Mismatches, f.Err)
			}
			for _, class := range rep.Classes() {
				fmt.Printf("  %-10s %d\n", class, rep.ByClass[class])
			}
			fmt.Printf("%d/%d agreed (%d skipped) in %v\n", rep.Passed, rep.Total, rep.Skipped, rep.Elapsed)
			return nil
		},
	}
	cmd.Flags().Uint64Var(&seed, "seed", 1, "Random seed")
	cmd.Flags().IntVar(&count, "count", 100000, "Number of random cases")
	cmd.Flags().IntVar(&workers, "workers", 0, "Number of workers (0 = NumCPU)")
	cmd.Flags().BoolVar(&strict, "strict-flags", false, "Also compare undocumented flag bits 3 and 5")
	cmd.Flags().BoolVar(&compareR, "compare-r", false, "Compare the refresh register")
	cmd.Flags().BoolVar(&reduce, "reduce", true, "Simplify failing cases")
	cmd.Flags().IntVar(&show, "show", 20, "Print at most this many failures")
	return cmd
}
