package main

import (
	"io"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/sarchlab/rvpipe/timing/config"
	"github.com/sarchlab/rvpipe/timing/core"
	"github.com/sarchlab/rvpipe/timing/pipeline"
	"github.com/sarchlab/rvpipe/timing/trace"
	"github.com/sarchlab/rvpipe/translate"
)

// ErrNoConvergence is returned when a run stops at the cycle cap.
var ErrNoConvergence = errors.New("program did not converge")

type runOptions struct {
	tracePath  string
	configPath string
}

func (o *runOptions) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.tracePath, "trace", "", "write the per-cycle trace to this CSV file")
	cmd.Flags().StringVar(&o.configPath, "config", "", "JSON configuration file")
}

func newRunCmd() *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run <program.bin|program.s|program.asm>",
		Short: "Run a program through the pipeline and report statistics",
		Args:  cobra.ExactArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			words, err := loadProgram(args[0])
			if err != nil {
				return err
			}
			return opts.simulate(cmd.OutOrStdout(), args[0], words)
		},
	}
	opts.addFlags(cmd)

	return cmd
}

// simulate runs words to completion, writes the trace if asked and prints
// the report.
func (o *runOptions) simulate(w io.Writer, name string, words []uint32) error {
	cfg, err := loadConfig(o.configPath)
	if err != nil {
		return err
	}

	c := core.NewCore(words, cfg)
	outcome := c.Run()

	if o.tracePath != "" {
		if err := trace.WriteFile(o.tracePath, c.Trace()); err != nil {
			return err
		}
	}

	if err := report(w, name, cfg, c.Stats(), outcome); err != nil {
		return err
	}

	if outcome != pipeline.OutcomeHalted {
		return errors.Wrapf(ErrNoConvergence, "%s after %d cycles", name, c.Stats().Cycles)
	}

	return nil
}

// reporter writes translated lines and keeps the first error.
type reporter struct {
	w   io.Writer
	err error
}

func (r *reporter) printf(format string, args ...any) {
	if r.err == nil {
		r.err = translate.Fprintf(r.w, format, args...)
	}
}

func report(w io.Writer, name string, cfg *config.Config, stats core.Stats, outcome pipeline.Outcome) error {
	r := &reporter{w: w}

	r.printf("Program: %s\n", name)
	r.printf("Outcome: %s\n", outcome)
	r.printf("Cycles: %d\n", stats.Cycles)
	r.printf("Instructions fetched: %d\n", stats.Fetched)
	r.printf("Instructions retired: %d\n", stats.Retired)
	r.printf("Register writes: %d\n", stats.RegWrites)
	r.printf("CPI: %.2f\n", stats.CPI())
	r.printf("\n")
	r.printf("Pipeline events:\n")
	r.printf("  Stalls:    %d\n", stats.Stalls)
	r.printf("  Flushes:   %d (squashed %d)\n", stats.Flushes, stats.Squashed)
	r.printf("  Dropped:   %d\n", stats.Dropped)
	r.printf("  Forwarded: EX %d, MEM %d\n", stats.ForwardsEX, stats.ForwardsMEM)

	if stats.UseDCache {
		d := stats.DCache
		r.printf("\n")
		r.printf("Data cache (%d B, %d-way, %d B lines):\n",
			cfg.DataCache.Size, cfg.DataCache.Associativity, cfg.DataCache.BlockSize)
		r.printf("  Reads: %d  Writes: %d\n", d.Reads, d.Writes)
		r.printf("  Hits: %d  Misses: %d  Hit rate: %.1f%%\n", d.Hits, d.Misses, 100*d.HitRate())
		r.printf("  Evictions: %d  Writebacks: %d\n", d.Evictions, d.Writebacks)
	}

	return r.err
}
