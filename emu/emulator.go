package emu

import (
	"github.com/pkg/errors"

	"github.com/sarchlab/rvpipe/insts"
)

// ErrMaxInstructions is returned by Step once the instruction limit is hit.
var ErrMaxInstructions = errors.New("max instructions reached")

// StepResult represents the result of executing a single instruction.
type StepResult struct {
	// Done is true once the PC has left the program.
	Done bool

	// Err is set if execution could not continue.
	Err error
}

// Emulator executes RV32I programs one instruction at a time, without any
// pipeline timing. It is the architectural reference the pipeline model is
// checked against.
type Emulator struct {
	regFile *RegFile
	memory  *Memory
	decoder *insts.Decoder

	program []uint32
	pc      uint32

	instructionCount uint64
	maxInstructions  uint64
}

// EmulatorOption is a functional option for configuring the Emulator.
type EmulatorOption func(*Emulator)

// WithRegFile sets the register file the emulator executes against.
func WithRegFile(regFile *RegFile) EmulatorOption {
	return func(e *Emulator) {
		e.regFile = regFile
	}
}

// WithMemory sets the data memory the emulator executes against.
func WithMemory(memory *Memory) EmulatorOption {
	return func(e *Emulator) {
		e.memory = memory
	}
}

// WithMaxInstructions sets the maximum number of instructions to execute.
// A value of 0 means no limit.
func WithMaxInstructions(max uint64) EmulatorOption {
	return func(e *Emulator) {
		e.maxInstructions = max
	}
}

// NewEmulator creates a new RV32I emulator.
func NewEmulator(opts ...EmulatorOption) *Emulator {
	e := &Emulator{
		regFile: &RegFile{},
		memory:  NewMemory(),
		decoder: insts.NewDecoder(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// RegFile returns the emulator's register file.
func (e *Emulator) RegFile() *RegFile {
	return e.regFile
}

// Memory returns the emulator's data memory.
func (e *Emulator) Memory() *Memory {
	return e.memory
}

// PC returns the current program counter.
func (e *Emulator) PC() uint32 {
	return e.pc
}

// InstructionCount returns the number of valid instructions executed.
// Bubble and unrecognised words are skipped and not counted.
func (e *Emulator) InstructionCount() uint64 {
	return e.instructionCount
}

// LoadProgram installs the instruction words and resets the PC to 0.
func (e *Emulator) LoadProgram(program []uint32) {
	e.program = program
	e.pc = 0
	e.instructionCount = 0
}

// Step executes a single instruction.
func (e *Emulator) Step() StepResult {
	index := e.pc / 4
	if e.pc%4 != 0 || int(index) >= len(e.program) {
		return StepResult{Done: true}
	}

	if e.maxInstructions > 0 && e.instructionCount >= e.maxInstructions {
		return StepResult{Err: ErrMaxInstructions}
	}

	inst := e.decoder.Decode(e.program[index])
	next := e.pc + 4

	if inst.IsValid() {
		next = e.execute(inst)
		e.instructionCount++
	}

	e.pc = next
	return StepResult{}
}

// Run executes instructions until the PC leaves the program or an error occurs.
func (e *Emulator) Run() error {
	for {
		result := e.Step()
		if result.Err != nil {
			return result.Err
		}
		if result.Done {
			return nil
		}
	}
}

// execute runs inst and returns the next PC.
func (e *Emulator) execute(inst *insts.Instruction) uint32 {
	a := e.regFile.ReadReg(inst.Rs1)
	b := e.regFile.ReadReg(inst.Rs2)
	control := insts.ControlOf(inst)

	if control.Branch {
		if BranchTaken(inst.Op, a, b) {
			return BranchTarget(inst, e.pc)
		}
		return e.pc + 4
	}

	result := ALUResult(inst, e.pc, a, b)

	switch {
	case control.MemRead:
		result = Load(e.memory, inst.Op, result)
	case control.MemWrite:
		Store(e.memory, inst.Op, result, b)
	}

	if control.RegWrite {
		e.regFile.WriteReg(inst.Rd, result)
	}

	return e.pc + 4
}
