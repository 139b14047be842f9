// Package benchmarks provides a harness that runs small timing benchmarks
// through the pipeline and tabulates cycles, CPI and hazard counts.
package benchmarks

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sarchlab/rvpipe/timing/cache"
	"github.com/sarchlab/rvpipe/timing/config"
	"github.com/sarchlab/rvpipe/timing/core"
	"github.com/sarchlab/rvpipe/timing/pipeline"
)

// BenchmarkResult holds the timing results for a single benchmark run.
type BenchmarkResult struct {
	// Name identifies the benchmark
	Name string `json:"name"`

	// Description explains what the benchmark measures
	Description string `json:"description"`

	// Outcome is how the run ended.
	Outcome pipeline.Outcome `json:"outcome"`

	SimulatedCycles     uint64  `json:"simulated_cycles"`
	InstructionsRetired uint64  `json:"instructions_retired"`
	CPI                 float64 `json:"cpi"`

	StallCycles     uint64 `json:"stall_cycles"`
	PipelineFlushes uint64 `json:"pipeline_flushes"`
	ForwardsEX      uint64 `json:"forwards_ex"`
	ForwardsMEM     uint64 `json:"forwards_mem"`

	// DCacheHits/Misses (if cache enabled)
	DCacheHits   uint64 `json:"dcache_hits,omitempty"`
	DCacheMisses uint64 `json:"dcache_misses,omitempty"`

	// Checksum is the value of x10 when the run ends.
	Checksum uint32 `json:"checksum"`

	// WallTime is the actual time taken to run the simulation
	WallTime time.Duration `json:"wall_time_ns"`
}

// Benchmark defines a single benchmark program.
type Benchmark struct {
	// Name identifies the benchmark
	Name string

	// Description explains what the benchmark measures
	Description string

	// Setup prepares the initial registers and memory.
	Setup func(cfg *config.Config)

	// Program holds the RV32I instruction words, loaded at address 0.
	Program []uint32

	// ExpectedChecksum is the expected final x10.
	ExpectedChecksum uint32
}

// HarnessConfig configures the benchmark harness.
type HarnessConfig struct {
	// EnableDCache enables data cache simulation
	EnableDCache bool

	// DCache is the cache geometry used when EnableDCache is set.
	DCache cache.Config

	// Output is where to write results (default: os.Stdout)
	Output io.Writer
}

// DefaultConfig returns a default harness configuration.
func DefaultConfig() HarnessConfig {
	return HarnessConfig{
		EnableDCache: true,
		DCache:       cache.DefaultDataCacheConfig(),
		Output:       os.Stdout,
	}
}

// Harness runs timing benchmarks and reports results.
type Harness struct {
	config     HarnessConfig
	benchmarks []Benchmark
}

// NewHarness creates a new benchmark harness.
func NewHarness(config HarnessConfig) *Harness {
	if config.Output == nil {
		config.Output = os.Stdout
	}
	return &Harness{config: config}
}

// AddBenchmark adds a benchmark to the harness.
func (h *Harness) AddBenchmark(b Benchmark) {
	h.benchmarks = append(h.benchmarks, b)
}

// AddBenchmarks adds multiple benchmarks to the harness.
func (h *Harness) AddBenchmarks(benchmarks []Benchmark) {
	h.benchmarks = append(h.benchmarks, benchmarks...)
}

// RunAll runs every benchmark in order.
func (h *Harness) RunAll() []BenchmarkResult {
	results := make([]BenchmarkResult, 0, len(h.benchmarks))

	for _, bench := range h.benchmarks {
		results = append(results, h.runBenchmark(bench))
	}

	return results
}

func (h *Harness) runBenchmark(bench Benchmark) BenchmarkResult {
	cfg := config.DefaultConfig()
	cfg.InitialRegisters = map[uint8]uint32{}
	cfg.InitialMemory = map[uint32]uint32{}
	cfg.DataCache = cache.Config{}
	if h.config.EnableDCache {
		cfg.DataCache = h.config.DCache
	}
	if bench.Setup != nil {
		bench.Setup(cfg)
	}

	c := core.NewCore(bench.Program, cfg)

	start := time.Now()
	outcome := c.Run()
	wallTime := time.Since(start)

	stats := c.Stats()
	result := BenchmarkResult{
		Name:                bench.Name,
		Description:         bench.Description,
		Outcome:             outcome,
		SimulatedCycles:     stats.Cycles,
		InstructionsRetired: stats.Retired,
		CPI:                 stats.CPI(),
		StallCycles:         stats.Stalls,
		PipelineFlushes:     stats.Flushes,
		ForwardsEX:          stats.ForwardsEX,
		ForwardsMEM:         stats.ForwardsMEM,
		Checksum:            c.RegFile().ReadReg(10),
		WallTime:            wallTime,
	}

	if stats.UseDCache {
		result.DCacheHits = stats.DCache.Hits
		result.DCacheMisses = stats.DCache.Misses
	}

	return result
}

// PrintResults writes results in a human-readable format.
func (h *Harness) PrintResults(results []BenchmarkResult) {
	w := h.config.Output

	_, _ = fmt.Fprintln(w, "=== rvpipe Timing Benchmark Results ===")
	_, _ = fmt.Fprintln(w, "")

	for _, r := range results {
		_, _ = fmt.Fprintf(w, "Benchmark: %s\n", r.Name)
		_, _ = fmt.Fprintf(w, "  Description: %s\n", r.Description)
		_, _ = fmt.Fprintf(w, "  Outcome: %s\n", r.Outcome)
		_, _ = fmt.Fprintf(w, "  Checksum (x10): %d\n", r.Checksum)
		_, _ = fmt.Fprintln(w, "  --- Timing ---")
		_, _ = fmt.Fprintf(w, "  Simulated Cycles:     %d\n", r.SimulatedCycles)
		_, _ = fmt.Fprintf(w, "  Instructions Retired: %d\n", r.InstructionsRetired)
		_, _ = fmt.Fprintf(w, "  CPI:                  %.3f\n", r.CPI)
		_, _ = fmt.Fprintf(w, "  Stall Cycles:         %d\n", r.StallCycles)
		_, _ = fmt.Fprintf(w, "  Pipeline Flushes:     %d\n", r.PipelineFlushes)
		_, _ = fmt.Fprintf(w, "  Forwards (EX/MEM):    %d/%d\n", r.ForwardsEX, r.ForwardsMEM)

		if r.DCacheHits > 0 || r.DCacheMisses > 0 {
			_, _ = fmt.Fprintln(w, "  --- D-Cache ---")
			_, _ = fmt.Fprintf(w, "  Hits:   %d\n", r.DCacheHits)
			_, _ = fmt.Fprintf(w, "  Misses: %d\n", r.DCacheMisses)
		}

		_, _ = fmt.Fprintf(w, "  Wall Time: %v\n", r.WallTime)
		_, _ = fmt.Fprintln(w, "")
	}
}

// PrintCSV writes results as CSV for spreadsheet comparison.
func (h *Harness) PrintCSV(results []BenchmarkResult) {
	w := h.config.Output

	_, _ = fmt.Fprintln(w,
		"name,cycles,instructions,cpi,stalls,flushes,forwards_ex,forwards_mem,dcache_hits,dcache_misses,checksum")

	for _, r := range results {
		_, _ = fmt.Fprintf(w, "%s,%d,%d,%.3f,%d,%d,%d,%d,%d,%d,%d\n",
			r.Name,
			r.SimulatedCycles,
			r.InstructionsRetired,
			r.CPI,
			r.StallCycles,
			r.PipelineFlushes,
			r.ForwardsEX,
			r.ForwardsMEM,
			r.DCacheHits,
			r.DCacheMisses,
			r.Checksum,
		)
	}
}
