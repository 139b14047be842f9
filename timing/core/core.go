// Package core provides the cycle-accurate CPU core model.
// It wraps the pipeline implementation to provide a high-level interface:
// build the initial state from a run configuration, run the program, and
// check the final state against the functional emulator.
package core

import (
	"fmt"
	"sort"

	"github.com/pkg/errors"

	"github.com/sarchlab/rvpipe/emu"
	"github.com/sarchlab/rvpipe/timing/cache"
	"github.com/sarchlab/rvpipe/timing/config"
	"github.com/sarchlab/rvpipe/timing/pipeline"
)

// ErrNotHalted is returned when comparing a run that did not halt.
var ErrNotHalted = errors.New("pipeline has not halted")

// Stats holds performance statistics for the core.
type Stats struct {
	pipeline.Statistics

	// DCache holds data cache statistics when the cache is enabled.
	DCache    cache.Statistics
	UseDCache bool
}

// Mismatch is one architectural difference between the pipeline and the
// functional emulator.
type Mismatch struct {
	// Memory is false for a register, true for a memory word.
	Memory bool
	// Location is the register index or word address.
	Location  uint32
	Pipeline  uint32
	Reference uint32
}

// String describes the mismatch.
func (m Mismatch) String() string {
	if m.Memory {
		return fmt.Sprintf("mem[%#x]: pipeline %#x, reference %#x", m.Location, m.Pipeline, m.Reference)
	}
	return fmt.Sprintf("x%d: pipeline %#x, reference %#x", m.Location, m.Pipeline, m.Reference)
}

// Core represents a cycle-accurate CPU core model.
// It wraps a 5-stage pipeline and provides a simple interface for simulation.
type Core struct {
	// Pipeline is the underlying 5-stage pipeline.
	Pipeline *pipeline.Pipeline

	program []uint32
	config  *config.Config

	// Shared resources
	regFile *emu.RegFile
	memory  *emu.Memory

	// Initial state, kept for the reference run.
	initialRegs   emu.RegFile
	initialMemory *emu.Memory
}

// NewCore creates a Core for program with the initial state and cache of
// cfg. A nil cfg means config.DefaultConfig(). Extra pipeline options are
// applied after those derived from cfg.
func NewCore(program []uint32, cfg *config.Config, opts ...pipeline.PipelineOption) *Core {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	regFile := &emu.RegFile{}
	for reg, value := range cfg.InitialRegisters {
		regFile.WriteReg(reg, value)
	}

	memory := emu.NewMemory()
	for addr, word := range cfg.InitialMemory {
		memory.Write32(addr, word)
	}

	pipeOpts := []pipeline.PipelineOption{
		pipeline.WithCycleCapFactor(cfg.CycleCapFactor),
		pipeline.WithDataCache(cfg.DataCache),
	}
	pipeOpts = append(pipeOpts, opts...)

	return &Core{
		Pipeline:      pipeline.NewPipeline(program, regFile, memory, pipeOpts...),
		program:       program,
		config:        cfg.Clone(),
		regFile:       regFile,
		memory:        memory,
		initialRegs:   *regFile,
		initialMemory: memory.Clone(),
	}
}

// RegFile returns the register file the pipeline writes.
func (c *Core) RegFile() *emu.RegFile {
	return c.regFile
}

// Memory returns the data memory the pipeline writes.
func (c *Core) Memory() *emu.Memory {
	return c.memory
}

// Tick executes one pipeline cycle.
func (c *Core) Tick() {
	c.Pipeline.Tick()
}

// Halted returns true if the pipeline has drained past the end of the
// program.
func (c *Core) Halted() bool {
	return c.Pipeline.Halted()
}

// Stats returns performance statistics for the core.
func (c *Core) Stats() Stats {
	return Stats{
		Statistics: c.Pipeline.Stats(),
		DCache:     c.Pipeline.DCacheStats(),
		UseDCache:  c.Pipeline.UseDCache(),
	}
}

// Trace returns the trace records of the run so far.
func (c *Core) Trace() []pipeline.TraceRecord {
	return c.Pipeline.Trace()
}

// Run executes the core until it halts or hits the cycle cap.
func (c *Core) Run() pipeline.Outcome {
	return c.Pipeline.Run()
}

// RunCycles executes the core for the specified number of cycles.
// Returns true if still running, false if halted.
func (c *Core) RunCycles(cycles uint64) bool {
	return c.Pipeline.RunCycles(cycles)
}

// Compare runs the functional emulator from the same initial state and
// returns every register and memory word on which the halted pipeline
// disagrees with it.
func (c *Core) Compare() ([]Mismatch, error) {
	if c.Pipeline.Outcome() != pipeline.OutcomeHalted {
		return nil, ErrNotHalted
	}

	regs := c.initialRegs
	ref := emu.NewEmulator(
		emu.WithRegFile(&regs),
		emu.WithMemory(c.initialMemory.Clone()),
		emu.WithMaxInstructions(c.Pipeline.MaxCycles()),
	)
	ref.LoadProgram(c.program)
	if err := ref.Run(); err != nil {
		return nil, errors.Wrap(err, "reference run failed")
	}

	var mismatches []Mismatch

	for reg := uint8(1); reg < 32; reg++ {
		got, want := c.regFile.ReadReg(reg), ref.RegFile().ReadReg(reg)
		if got != want {
			mismatches = append(mismatches, Mismatch{
				Location: uint32(reg), Pipeline: got, Reference: want,
			})
		}
	}

	got, want := c.memory.Words(), ref.Memory().Words()
	addrs := make([]uint32, 0, len(got)+len(want))
	for addr := range got {
		addrs = append(addrs, addr)
	}
	for addr := range want {
		if _, ok := got[addr]; !ok {
			addrs = append(addrs, addr)
		}
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })

	for _, addr := range addrs {
		if got[addr] != want[addr] {
			mismatches = append(mismatches, Mismatch{
				Memory: true, Location: addr, Pipeline: got[addr], Reference: want[addr],
			})
		}
	}

	return mismatches, nil
}

// Config returns a copy of the run configuration.
func (c *Core) Config() *config.Config {
	return c.config.Clone()
}
