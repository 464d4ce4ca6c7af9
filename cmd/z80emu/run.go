package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/oisee/z80-emulator/pkg/bus"
	"github.com/oisee/z80-emulator/pkg/emu"
	"github.com/oisee/z80-emulator/pkg/snapshot"
	"github.com/oisee/z80-emulator/pkg/trace"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// machineFlags locate the program in memory.
type machineFlags struct {
	org    string
	start  string
	resume string
}

func (f *machineFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.org, "org", "0", "Load address")
	fs.StringVar(&f.start, "start", "", "Initial PC (defaults to --org)")
	fs.StringVar(&f.resume, "resume", "", "Start from a snapshot instead of a ROM image")
}

// machine builds an emulator with rom loaded, or restored from --resume.
func (f *machineFlags) machine(args []string, opts ...emu.Option) (*emu.Emulator, error) {
	e := emu.New(cpuType, append([]emu.Option{emu.WithLogger(log)}, opts...)...)
	if f.resume != "" {
		snap, err := snapshot.Load(f.resume)
		if err != nil {
			return nil, err
		}
		return e, snap.Restore(e)
	}
	if len(args) == 0 {
		return nil, errors.New("a ROM image or --resume is required")
	}

	org, err := parseAddr(f.org)
	if err != nil {
		return nil, err
	}
	start := org
	if f.start != "" {
		if start, err = parseAddr(f.start); err != nil {
			return nil, err
		}
	}
	n, err := bus.LoadFile(e.Memory, args[0], org)
	if err != nil {
		return nil, err
	}
	e.CPU.Registers().PC = start
	log.WithField("bytes", n).WithField("org", fmt.Sprintf("%04X", org)).Debug("image loaded")
	return e, nil
}

func runCommand() *cobra.Command {
	var (
		mf         machineFlags
		freq       float64
		chunk      int
		breaks     []string
		maxCycles  uint64
		traceLog   bool
		idle       bool
		traceOut   string
		traceLimit int
		snapOut    string
	)
	cmd := &cobra.Command{
		Use:   "run [rom]",
		Short: "Run a program until it halts, hits a breakpoint or is interrupted",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bps, err := parseAddrs(breaks)
			if err != nil {
				return err
			}
			e, err := mf.machine(args, emu.WithBreakpoints(bps...))
			if err != nil {
				return err
			}

			var cb emu.Callback
			var tab *trace.Table
			if traceOut != "" {
				tab = trace.NewTable(traceLimit)
				cb = tab.Callback()
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			reason, runErr := e.Run(ctx, emu.Config{
				Frequency:     freq,
				TicksPerChunk: chunk,
				MaxCycles:     maxCycles,
				IdleOnHalt:    idle,
				Trace:         traceLog,
			}, cb)

			fmt.Printf("stopped: %s after %d T-states\n", reason, e.Cycles)
			fmt.Println(formatRegisters(e.Type(), e.CPU.Registers()))

			if tab != nil {
				if err := writeTrace(traceOut, tab); err != nil {
					return err
				}
			}
			if snapOut != "" {
				snap, err := snapshot.Capture(e)
				if err != nil {
					return err
				}
				if err := snapshot.Save(snapOut, snap); err != nil {
					return err
				}
			}
			if reason == emu.StopCancelled {
				return nil
			}
			return runErr
		},
	}
	mf.register(cmd.Flags())
	cmd.Flags().Float64Var(&freq, "freq", 0, "Clock frequency in Hz (0 = unthrottled)")
	cmd.Flags().IntVar(&chunk, "chunk", emu.DefaultTicksPerChunk, "T-states between throttle checks")
	cmd.Flags().StringSliceVar(&breaks, "break", nil, "Breakpoint address (repeatable)")
	cmd.Flags().Uint64Var(&maxCycles, "max-cycles", 0, "Stop after this many T-states (0 = no limit)")
	cmd.Flags().BoolVar(&traceLog, "trace", false, "Log every instruction at debug level")
	cmd.Flags().BoolVar(&idle, "idle-on-halt", false, "Keep running a halted CPU while interrupts are enabled")
	cmd.Flags().StringVar(&traceOut, "trace-out", "", "Write executed instructions to this JSON file")
	cmd.Flags().IntVar(&traceLimit, "trace-limit", 100000, "Keep at most this many trace entries")
	cmd.Flags().StringVar(&snapOut, "snapshot", "", "Save the final state to this file")
	return cmd
}

func writeTrace(path string, tab *trace.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := trace.WriteJSON(f, tab.Entries()); err != nil {
		f.Close()
		return err
	}
	log.WithField("entries", tab.Len()).WithField("executed", tab.Total()).Info("trace written")
	return f.Close()
}

func stepCommand() *cobra.Command {
	var (
		mf    machineFlags
		count int
	)
	cmd := &cobra.Command{
		Use:   "step [rom]",
		Short: "Single-step a program, printing registers after each instruction",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := mf.machine(args)
			if err != nil {
				return err
			}
			tab := trace.NewTable(1)
			for i := 0; i < count; i++ {
				pc := e.CPU.Registers().PC
				in, err := e.Step()
				if errors.Is(err, emu.ErrHalted) {
					fmt.Println("halted")
					return nil
				}
				if err != nil {
					return err
				}
				tab.Record(pc, in)
				fmt.Println(tab.Entries()[0])
				fmt.Println("      " + formatRegisters(e.Type(), e.CPU.Registers()))
			}
			return nil
		},
	}
	mf.register(cmd.Flags())
	cmd.Flags().IntVarP(&count, "count", "n", 16, "Number of instructions")
	return cmd
}

func snapshotCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Create and inspect save-states",
	}

	var mf machineFlags
	saveCmd := &cobra.Command{
		Use:   "save [rom] [out]",
		Short: "Write the power-on state of a loaded ROM image",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := mf.machine(args[:1])
			if err != nil {
				return err
			}
			snap, err := snapshot.Capture(e)
			if err != nil {
				return err
			}
			return snapshot.Save(args[1], snap)
		},
	}
	mf.register(saveCmd.Flags())

	showCmd := &cobra.Command{
		Use:   "show [file]",
		Short: "Print the contents of a save-state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := snapshot.Load(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("cpu:         %s\n", snap.CPU)
			fmt.Printf("registers:   %s\n", formatRegisters(snap.CPU, &snap.Registers))
			fmt.Printf("interrupts:  IFF1=%t IFF2=%t IM=%d\n", snap.Interrupts.IFF1, snap.Interrupts.IFF2, snap.Interrupts.Mode)
			fmt.Printf("halted:      %t\n", snap.Halted)
			fmt.Printf("cycles:      %d\n", snap.Cycles)
			bps := make([]string, len(snap.Breakpoints))
			for i, a := range snap.Breakpoints {
				bps[i] = fmt.Sprintf("%04X", a)
			}
			fmt.Printf("breakpoints: %s\n", strings.Join(bps, " "))
			fmt.Printf("memory:      %d bytes\n", len(snap.Memory))
			return nil
		},
	}

	cmd.AddCommand(saveCmd, showCmd)
	return cmd
}
