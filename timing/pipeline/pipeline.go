package pipeline

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/rvpipe/emu"
	"github.com/sarchlab/rvpipe/insts"
	"github.com/sarchlab/rvpipe/timing/cache"
)

// DefaultCycleCapFactor bounds a run at this many cycles per program word.
const DefaultCycleCapFactor = 15

// Control is the single per-cycle scheduler decision, computed from the
// start-of-cycle latches before any stage updates state.
type Control uint8

const (
	// ControlNormal lets every latch and the PC advance.
	ControlNormal Control = iota
	// ControlStall holds the PC and IF/ID and inserts a bubble into ID/EX.
	ControlStall
	// ControlFlush squashes IF/ID, inserts a bubble into ID/EX and
	// redirects the PC to the branch target.
	ControlFlush
)

// String returns the trace name of the decision.
func (c Control) String() string {
	switch c {
	case ControlStall:
		return "STALL"
	case ControlFlush:
		return "FLUSH"
	default:
		return "NORMAL"
	}
}

// Outcome describes how a run ended.
type Outcome uint8

const (
	// OutcomeRunning means the run has not terminated yet.
	OutcomeRunning Outcome = iota
	// OutcomeHalted means the PC left the program and the pipeline drained.
	OutcomeHalted
	// OutcomeCycleCap means the cycle cap was hit before the pipeline
	// drained; the run did not converge.
	OutcomeCycleCap
)

// String returns a short description of the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeHalted:
		return "halted"
	case OutcomeCycleCap:
		return "cycle cap reached"
	default:
		return "running"
	}
}

// Statistics holds pipeline performance statistics.
type Statistics struct {
	// Cycles is the total number of cycles simulated.
	Cycles uint64
	// Fetched is the number of non-bubble words fetched into IF/ID.
	// Words re-presented by a stall are not fetched again.
	Fetched uint64
	// Retired is the number of instructions that completed writeback.
	Retired uint64
	// RegWrites is the number of register file writes.
	RegWrites uint64
	// Stalls is the number of load-use stall cycles.
	Stalls uint64
	// Flushes is the number of taken branches.
	Flushes uint64
	// Squashed is the number of fetched instructions discarded by a flush.
	Squashed uint64
	// Dropped is the number of fetched words that did not decode.
	Dropped uint64
	// ForwardsEX is the number of operands forwarded from EX/MEM.
	ForwardsEX uint64
	// ForwardsMEM is the number of operands forwarded from MEM/WB.
	ForwardsMEM uint64
}

// CPI returns the cycles per retired instruction.
func (s Statistics) CPI() float64 {
	if s.Retired == 0 {
		return 0
	}
	return float64(s.Cycles) / float64(s.Retired)
}

// PipelineOption is a functional option for configuring the Pipeline.
type PipelineOption func(*Pipeline)

// WithLogger sets the logger used for diagnostics.
func WithLogger(logger logrus.FieldLogger) PipelineOption {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithCycleCapFactor sets the cycle cap to factor * len(program).
func WithCycleCapFactor(factor int) PipelineOption {
	return func(p *Pipeline) {
		p.cycleCapFactor = factor
	}
}

// WithMaxCycles sets an absolute cycle cap, overriding the factor.
func WithMaxCycles(maxCycles uint64) PipelineOption {
	return func(p *Pipeline) {
		p.maxCycles = maxCycles
	}
}

// WithDataCache puts a statistics-only data cache in front of memory.
// Disabled configurations are ignored.
func WithDataCache(config cache.Config) PipelineOption {
	return func(p *Pipeline) {
		if config.Enabled() {
			p.dcacheConfig = &config
		}
	}
}

// Pipeline implements a single-issue, in-order 5-stage pipeline.
// Stages: Fetch (IF) -> Decode (ID) -> Execute (EX) -> Memory (MEM) -> Writeback (WB)
type Pipeline struct {
	program []uint32
	regFile *emu.RegFile
	memory  *emu.Memory
	decoder *insts.Decoder
	logger  logrus.FieldLogger

	// Pipeline registers
	ifid  StageRegister
	idex  StageRegister
	exmem StageRegister
	memwb StageRegister

	// Pipeline stages
	fetchStage     *FetchStage
	decodeStage    *DecodeStage
	executeStage   *ExecuteStage
	memoryStage    *MemoryStage
	writebackStage *WritebackStage

	hazardUnit *HazardUnit

	dcacheConfig *cache.Config
	dcache       *cache.Cache

	pc             uint32
	cycleCapFactor int
	maxCycles      uint64

	stats   Statistics
	outcome Outcome
	trace   []TraceRecord
}

// NewPipeline creates a pipeline that runs program against regFile and
// memory. The program is loaded at address 0.
func NewPipeline(
	program []uint32,
	regFile *emu.RegFile,
	memory *emu.Memory,
	opts ...PipelineOption,
) *Pipeline {
	p := &Pipeline{
		program:        program,
		regFile:        regFile,
		memory:         memory,
		decoder:        insts.NewDecoder(),
		logger:         logrus.StandardLogger(),
		cycleCapFactor: DefaultCycleCapFactor,
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.maxCycles == 0 {
		p.maxCycles = uint64(p.cycleCapFactor * len(program))
	}

	var port emu.DataPort = memory
	if p.dcacheConfig != nil {
		p.dcache = cache.New(*p.dcacheConfig, cache.NewMemoryBacking(memory))
		port = p.dcache
	}

	p.hazardUnit = NewHazardUnit()
	p.fetchStage = NewFetchStage(program, p.logger)
	p.decodeStage = NewDecodeStage(regFile, p.logger)
	p.executeStage = NewExecuteStage(p.hazardUnit, NewBranchUnit())
	p.memoryStage = NewMemoryStage(port)
	p.writebackStage = NewWritebackStage(regFile)

	return p
}

// PC returns the current program counter.
func (p *Pipeline) PC() uint32 {
	return p.pc
}

// GetIFID returns the IF/ID pipeline register.
func (p *Pipeline) GetIFID() *StageRegister {
	return &p.ifid
}

// GetIDEX returns the ID/EX pipeline register.
func (p *Pipeline) GetIDEX() *StageRegister {
	return &p.idex
}

// GetEXMEM returns the EX/MEM pipeline register.
func (p *Pipeline) GetEXMEM() *StageRegister {
	return &p.exmem
}

// GetMEMWB returns the MEM/WB pipeline register.
func (p *Pipeline) GetMEMWB() *StageRegister {
	return &p.memwb
}

// Stats returns pipeline statistics.
func (p *Pipeline) Stats() Statistics {
	return p.stats
}

// DCacheStats returns data cache statistics, or empty if the cache is not
// enabled.
func (p *Pipeline) DCacheStats() cache.Statistics {
	if p.dcache == nil {
		return cache.Statistics{}
	}
	return p.dcache.Stats()
}

// UseDCache returns true if the data cache is enabled.
func (p *Pipeline) UseDCache() bool {
	return p.dcache != nil
}

// Trace returns the records emitted so far, in order.
func (p *Pipeline) Trace() []TraceRecord {
	return p.trace
}

// MaxCycles returns the cycle cap of the run.
func (p *Pipeline) MaxCycles() uint64 {
	return p.maxCycles
}

// Outcome returns how the run ended, or OutcomeRunning.
func (p *Pipeline) Outcome() Outcome {
	return p.outcome
}

// Halted returns true once the PC has passed the last instruction and every
// latch holds a bubble.
func (p *Pipeline) Halted() bool {
	return p.pc >= p.fetchStage.End() &&
		p.ifid.IsBubble() &&
		p.idex.IsBubble() &&
		p.exmem.IsBubble() &&
		p.memwb.IsBubble()
}

// Run executes the pipeline until it halts or the cycle cap is reached.
func (p *Pipeline) Run() Outcome {
	for !p.terminate() {
		p.Tick()
	}

	return p.outcome
}

// RunCycles executes up to the specified number of cycles, stopping early
// at halt or at the cycle cap. Returns true if still running.
func (p *Pipeline) RunCycles(cycles uint64) bool {
	for i := uint64(0); i < cycles && !p.terminate(); i++ {
		p.Tick()
	}

	return !p.terminate()
}

// terminate ends the run once the pipeline has drained or used up its
// cycles, and reports whether the run is over.
func (p *Pipeline) terminate() bool {
	switch {
	case p.outcome != OutcomeRunning:
		return true
	case p.Halted():
		p.finish(OutcomeHalted)
		return true
	case p.stats.Cycles >= p.maxCycles:
		p.logger.WithFields(logrus.Fields{
			"cycles":  p.stats.Cycles,
			"pc":      fmt.Sprintf("%#x", p.pc),
			"retired": p.stats.Retired,
		}).Warn("cycle cap reached, run did not converge")
		p.finish(OutcomeCycleCap)
		return true
	}

	return false
}

// finish records the outcome and writes dirty cache lines back so memory
// holds the architectural state.
func (p *Pipeline) finish(outcome Outcome) {
	if p.outcome != OutcomeRunning {
		return
	}
	p.outcome = outcome

	if p.dcache != nil {
		p.dcache.Flush()
	}

	if outcome == OutcomeHalted {
		s := p.stats
		if s.Retired != s.Fetched-s.Squashed-s.Dropped {
			panic(fmt.Sprintf(
				"pipeline: retired %d != fetched %d - squashed %d - dropped %d",
				s.Retired, s.Fetched, s.Squashed, s.Dropped))
		}
	}
}

// Tick executes one pipeline cycle. It does nothing once the pipeline has
// halted or the run has ended at the cycle cap.
//
// The cycle's Control is decided first from the start-of-cycle latches.
// Then the stages run oldest first: writeback commits before anything reads
// the register file, and memory, execute, decode and fetch each produce the
// next content of their own latch. All four latches update together at the
// end of the cycle.
func (p *Pipeline) Tick() {
	if p.outcome != OutcomeRunning || p.Halted() {
		return
	}

	exec := p.executeStage.Execute(&p.idex, &p.exmem, &p.memwb)
	control := p.decideControl(exec.Branch)

	// Writeback
	if !p.memwb.IsBubble() {
		p.stats.Retired++
	}
	if p.writebackStage.Writeback(&p.memwb) {
		p.stats.RegWrites++
	}
	if p.regFile.X[0] != 0 {
		panic("pipeline: x0 changed")
	}

	// Memory
	nextMEMWB := p.memoryStage.Access(&p.exmem)

	// Execute
	nextEXMEM := exec.Out
	p.countForwards(&p.idex)

	// Decode
	nextIDEX := p.decode(control, &nextEXMEM, &nextMEMWB)

	// Fetch
	nextIFID := p.fetch(control, exec.Branch)

	p.ifid = nextIFID
	p.idex = nextIDEX
	p.exmem = nextEXMEM
	p.memwb = nextMEMWB

	cycle := p.stats.Cycles
	p.stats.Cycles++
	p.recordCycle(cycle, control)
}

// decideControl computes the cycle decision from the load-use check on
// IF/ID against ID/EX and the branch outcome of ID/EX.
func (p *Pipeline) decideControl(branch BranchResult) Control {
	stall := p.hazardUnit.DetectLoadUseHazard(&p.idex, p.decoder.Decode(p.ifid.Word))
	flush := branch.Taken

	switch {
	case stall && flush:
		panic(fmt.Sprintf(
			"pipeline: stall and flush in the same cycle at pc=%#x", p.idex.PC))
	case stall:
		p.logger.WithFields(logrus.Fields{
			"cycle": p.stats.Cycles,
			"load":  fmt.Sprintf("%#x", p.idex.PC),
			"user":  fmt.Sprintf("%#x", p.ifid.PC),
		}).Debug("load-use stall")
		return ControlStall
	case flush:
		p.logger.WithFields(logrus.Fields{
			"cycle":  p.stats.Cycles,
			"branch": fmt.Sprintf("%#x", p.idex.PC),
			"target": fmt.Sprintf("%#x", branch.Target),
		}).Debug("taken branch, flushing")
		return ControlFlush
	default:
		return ControlNormal
	}
}

func (p *Pipeline) countForwards(idex *StageRegister) {
	for _, fwd := range []ForwardSource{idex.FwdA, idex.FwdB} {
		switch fwd {
		case ForwardFromEXMEM:
			p.stats.ForwardsEX++
		case ForwardFromMEMWB:
			p.stats.ForwardsMEM++
		}
	}
}

// decode produces the next ID/EX. Its forwarding tags are computed against
// the instructions that will sit in EX/MEM and MEM/WB when it executes.
func (p *Pipeline) decode(control Control, nextEXMEM, nextMEMWB *StageRegister) StageRegister {
	switch control {
	case ControlStall:
		p.stats.Stalls++
		return Bubble()
	case ControlFlush:
		p.stats.Flushes++
		if !p.ifid.IsBubble() {
			p.stats.Squashed++
		}
		return Bubble()
	}

	out, dropped := p.decodeStage.Decode(&p.ifid)
	if dropped {
		p.stats.Dropped++
	}

	out.FwdA, out.FwdB = p.hazardUnit.DetectForwarding(&out, nextEXMEM, nextMEMWB)
	return out
}

// fetch produces the next IF/ID and updates the PC.
func (p *Pipeline) fetch(control Control, branch BranchResult) StageRegister {
	switch control {
	case ControlStall:
		return p.ifid
	case ControlFlush:
		p.pc = branch.Target
		return Bubble()
	}

	word, inRange := p.fetchStage.Fetch(p.pc)
	if !inRange {
		return Bubble()
	}

	out := Bubble()
	if word != 0 {
		out = StageRegister{PC: p.pc, Word: word}
		p.stats.Fetched++
	}
	p.pc += 4

	return out
}
