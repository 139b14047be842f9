package pipeline

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/rvpipe/emu"
	"github.com/sarchlab/rvpipe/insts"
)

// FetchStage reads instruction words from the program.
type FetchStage struct {
	program []uint32
	logger  logrus.FieldLogger
}

// NewFetchStage creates a new fetch stage.
func NewFetchStage(program []uint32, logger logrus.FieldLogger) *FetchStage {
	return &FetchStage{
		program: program,
		logger:  logger,
	}
}

// End returns the first address past the program.
func (s *FetchStage) End() uint32 {
	return uint32(len(s.program) * 4)
}

// Fetch reads the word at pc. inRange is false once pc has left the
// program. A misaligned pc inside the program fetches a bubble.
func (s *FetchStage) Fetch(pc uint32) (word uint32, inRange bool) {
	if pc >= s.End() {
		return 0, false
	}

	if pc%4 != 0 {
		s.logger.WithField("pc", fmt.Sprintf("%#x", pc)).
			Warn("misaligned fetch, inserting bubble")
		return 0, true
	}

	return s.program[pc/4], true
}

// DecodeStage handles instruction decode and register read.
type DecodeStage struct {
	regFile *emu.RegFile
	decoder *insts.Decoder
	logger  logrus.FieldLogger
}

// NewDecodeStage creates a new decode stage.
func NewDecodeStage(regFile *emu.RegFile, logger logrus.FieldLogger) *DecodeStage {
	return &DecodeStage{
		regFile: regFile,
		decoder: insts.NewDecoder(),
		logger:  logger,
	}
}

// Decode turns the IF/ID content into an ID/EX stage register. dropped is
// true when a non-zero word did not decode; it becomes a bubble and the
// pipeline keeps going.
func (s *DecodeStage) Decode(ifid *StageRegister) (out StageRegister, dropped bool) {
	if ifid.IsBubble() {
		return Bubble(), false
	}

	inst := s.decoder.Decode(ifid.Word)
	if !inst.IsValid() {
		s.logger.WithFields(logrus.Fields{
			"pc":     fmt.Sprintf("%#x", ifid.PC),
			"word":   fmt.Sprintf("%#08x", ifid.Word),
			"opcode": fmt.Sprintf("%#02x", ifid.Word&0x7F),
		}).Warn("unknown instruction, treating as bubble")
		return Bubble(), true
	}

	return StageRegister{
		PC:       ifid.PC,
		Word:     ifid.Word,
		Inst:     *inst,
		Control:  insts.ControlOf(inst),
		Rs1Value: s.regFile.ReadReg(inst.Rs1),
		Rs2Value: s.regFile.ReadReg(inst.Rs2),
	}, false
}

// ExecuteStage handles ALU operations, address calculation and branch
// resolution.
type ExecuteStage struct {
	hazardUnit *HazardUnit
	branchUnit *BranchUnit
}

// NewExecuteStage creates a new execute stage.
func NewExecuteStage(hazardUnit *HazardUnit, branchUnit *BranchUnit) *ExecuteStage {
	return &ExecuteStage{
		hazardUnit: hazardUnit,
		branchUnit: branchUnit,
	}
}

// ExecuteResult holds the result of the execute stage.
type ExecuteResult struct {
	// Out is the next EX/MEM content.
	Out StageRegister

	// Branch is the branch decision for the instruction.
	Branch BranchResult
}

// Execute computes the EX/MEM content for the instruction in idex, given
// the start-of-cycle EX/MEM and MEM/WB. It has no side effects.
func (s *ExecuteStage) Execute(idex, exmem, memwb *StageRegister) ExecuteResult {
	if idex.IsBubble() {
		return ExecuteResult{}
	}

	fwdA, fwdB := s.hazardUnit.DetectForwarding(idex, exmem, memwb)
	if fwdA != idex.FwdA || fwdB != idex.FwdB {
		panic(fmt.Sprintf(
			"pipeline: forwarding tags of pc=%#x disagree: decode (%q, %q), execute (%q, %q)",
			idex.PC, idex.FwdA, idex.FwdB, fwdA, fwdB))
	}

	rs1Val := s.hazardUnit.GetForwardedValue(idex.FwdA, idex.Rs1Value, exmem, memwb)
	rs2Val := s.hazardUnit.GetForwardedValue(idex.FwdB, idex.Rs2Value, exmem, memwb)

	out := *idex
	out.ALUResult = emu.ALUResult(&idex.Inst, idex.PC, rs1Val, rs2Val)
	if idex.Control.MemWrite {
		out.StoreValue = rs2Val
	}

	return ExecuteResult{
		Out:    out,
		Branch: s.branchUnit.Resolve(idex, rs1Val, rs2Val),
	}
}

// MemoryStage handles load and store accesses. Accesses complete in the
// cycle they are issued.
type MemoryStage struct {
	port emu.DataPort
}

// NewMemoryStage creates a new memory stage over port.
func NewMemoryStage(port emu.DataPort) *MemoryStage {
	return &MemoryStage{
		port: port,
	}
}

// Access performs the memory operation of exmem and returns the next
// MEM/WB content.
func (s *MemoryStage) Access(exmem *StageRegister) StageRegister {
	out := *exmem
	if exmem.IsBubble() {
		return out
	}

	switch {
	case exmem.Control.MemRead:
		out.MemData = emu.Load(s.port, exmem.Inst.Op, exmem.ALUResult)
	case exmem.Control.MemWrite:
		emu.Store(s.port, exmem.Inst.Op, exmem.ALUResult, exmem.StoreValue)
	}

	return out
}

// WritebackStage commits results to the register file.
type WritebackStage struct {
	regFile *emu.RegFile
}

// NewWritebackStage creates a new writeback stage.
func NewWritebackStage(regFile *emu.RegFile) *WritebackStage {
	return &WritebackStage{
		regFile: regFile,
	}
}

// Writeback commits memwb. It returns true if a register was written.
func (s *WritebackStage) Writeback(memwb *StageRegister) bool {
	if !memwb.WritesReg() {
		return false
	}

	s.regFile.WriteReg(memwb.Inst.Rd, memwb.WritebackValue())
	return true
}
