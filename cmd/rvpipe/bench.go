package main

import (
	"os"
	"runtime/pprof"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/sarchlab/rvpipe/benchmarks"
)

func newBenchCmd() *cobra.Command {
	var (
		csvOutput  bool
		noDCache   bool
		cpuProfile string
	)

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Run the timing microbenchmarks",
		Long: `Bench runs a fixed set of microbenchmarks, each isolating one
pipeline behaviour (forwarding, load-use stalls, branch flushes, cache
conflicts), and prints cycles, CPI and event counts.
`,
		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			if cpuProfile != "" {
				f, err := os.Create(cpuProfile)
				if err != nil {
					return errors.Wrap(err, "failed to create CPU profile")
				}
				defer func() { _ = f.Close() }()

				if err := pprof.StartCPUProfile(f); err != nil {
					return errors.Wrap(err, "failed to start CPU profile")
				}
				defer pprof.StopCPUProfile()
			}

			config := benchmarks.DefaultConfig()
			config.EnableDCache = !noDCache
			config.Output = cmd.OutOrStdout()

			harness := benchmarks.NewHarness(config)
			harness.AddBenchmarks(benchmarks.GetMicrobenchmarks())

			results := harness.RunAll()
			if csvOutput {
				harness.PrintCSV(results)
			} else {
				harness.PrintResults(results)
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&csvOutput, "csv", false, "output results in CSV format")
	cmd.Flags().BoolVar(&noDCache, "no-dcache", false, "disable data cache simulation")
	cmd.Flags().StringVar(&cpuProfile, "cpuprofile", "", "write a CPU profile to this file")

	return cmd
}
