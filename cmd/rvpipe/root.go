package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sarchlab/rvpipe/asm"
	"github.com/sarchlab/rvpipe/loader"
	"github.com/sarchlab/rvpipe/timing/config"
)

func newRootCmd() *cobra.Command {
	var verbose bool

	rootCmd := &cobra.Command{
		Use:   "rvpipe",
		Short: "Cycle-accurate 5-stage RV32I pipeline simulator",
		Long: `rvpipe simulates a classic IF/ID/EX/MEM/WB pipeline with load-use
stalls, EX and MEM forwarding and branch flushes, one cycle at a time.
Programs are flat little-endian binaries (.bin) or assembler sources
(.s or .asm).
`,
		SilenceUsage: true,

		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				logrus.SetLevel(logrus.DebugLevel)
			}
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log every stall and flush")

	rootCmd.AddCommand(
		newRunCmd(),
		newAsmCmd(),
		newCheckCmd(),
		newDemoCmd(),
		newBenchCmd(),
	)

	return rootCmd
}

// isSource reports whether path names an assembler source.
func isSource(path string) bool {
	ext := filepath.Ext(path)
	return strings.EqualFold(ext, ".s") || strings.EqualFold(ext, ".asm")
}

// loadProgram reads a flat binary, or assembles a source ending in .s or
// .asm.
func loadProgram(path string) ([]uint32, error) {
	if !isSource(path) {
		prog, err := loader.Load(path)
		if err != nil {
			return nil, err
		}
		return prog.Words, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open source")
	}
	defer func() { _ = f.Close() }()

	prog, err := (&asm.Assembler{}).Parse(f)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	if len(prog.Words) == 0 {
		return nil, errors.Wrap(loader.ErrEmptyProgram, path)
	}

	return prog.Words, nil
}

// loadConfig reads the config at path, or the defaults when path is empty.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.DefaultConfig(), nil
	}
	return config.LoadConfig(path)
}
