package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/oisee/z80-emulator/pkg/cpu"
	"github.com/oisee/z80-emulator/pkg/emu"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// globals shared by every command
var (
	cpuType  emu.CPUType
	logLevel string
	logJSON  bool
	log      = logrus.New()
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "z80emu",
		Short:         "Z80 and Intel 8080 emulator",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogger(log, logLevel, logJSON)
		},
	}
	rootCmd.PersistentFlags().Var(&cpuType, "cpu", "CPU core (z80|i8080)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Log as JSON even on a terminal")

	rootCmd.AddCommand(
		runCommand(),
		stepCommand(),
		disasmCommand(),
		asmCommand(),
		conformCommand(),
		fuzzCommand(),
		snapshotCommand(),
	)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// setupLogger writes to stderr: coloured text on a terminal, JSON when
// redirected or when asked for.
func setupLogger(l *logrus.Logger, level string, asJSON bool) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	l.SetLevel(lvl)
	l.SetOutput(os.Stderr)
	if asJSON || !term.IsTerminal(int(os.Stderr.Fd())) {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{ForceColors: true, FullTimestamp: true})
	}
	return nil
}

// parseAddr accepts decimal, 0x-prefixed hex and h-suffixed hex.
func parseAddr(s string) (uint16, error) {
	digits, base := strings.TrimSpace(s), 0
	if strings.HasSuffix(strings.ToLower(digits), "h") {
		digits, base = digits[:len(digits)-1], 16
	}
	v, err := strconv.ParseUint(digits, base, 16)
	if err != nil {
		return 0, fmt.Errorf("bad address %q", s)
	}
	return uint16(v), nil
}

func parseAddrs(list []string) ([]uint16, error) {
	out := make([]uint16, 0, len(list))
	for _, s := range list {
		a, err := parseAddr(s)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// flagString renders F as letters, '-' for clear bits.
func flagString(f uint8) string {
	const names = "SZ5H3PNC"
	b := []byte(names)
	for i := range b {
		if f&(0x80>>i) == 0 {
			b[i] = '-'
		}
	}
	return string(b)
}

// formatRegisters prints the registers the core has.
func formatRegisters(t emu.CPUType, r *cpu.Registers) string {
	s := fmt.Sprintf("PC=%04X SP=%04X AF=%04X BC=%04X DE=%04X HL=%04X",
		r.PC, r.SP, r.AF(), r.BC(), r.DE(), r.HL())
	if t == emu.Z80 {
		s += fmt.Sprintf(" IX=%04X IY=%04X I=%02X R=%02X AF'=%04X BC'=%04X DE'=%04X HL'=%04X",
			r.IX, r.IY, r.I, r.R, r.AF2(), r.BC2(), r.DE2(), r.HL2())
	}
	return s + " [" + flagString(r.F) + "]"
}
