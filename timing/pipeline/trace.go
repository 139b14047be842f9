package pipeline

import "github.com/sarchlab/rvpipe/insts"

// Stage names used in trace records, one per latch.
const (
	StageIF    = "IF"  // IF/ID
	StageID    = "ID"  // ID/EX
	StageEX    = "EX"  // EX/MEM
	StageMEM   = "MEM" // MEM/WB
	StageEmpty = "---" // placeholder for a cycle with every latch empty
)

// TraceRecord describes one occupied latch at the end of a cycle.
type TraceRecord struct {
	Cycle uint64
	PC    uint32
	Word  uint32
	Stage string

	// Decoded fields.
	Opcode uint8
	Op     insts.Op
	Funct3 uint8
	Funct7 uint8 // R-type and shift-immediates only
	Rd     uint8
	Rs1    uint8
	Rs2    uint8
	Imm    int32

	// Control signals.
	RegWrite bool
	ALUSrc   bool
	MemRead  bool
	MemWrite bool
	WBSel    insts.WBSel
	Branch   bool

	FwdA ForwardSource
	FwdB ForwardSource

	// Control is the scheduler decision of the cycle.
	Control Control
}

func newTraceRecord(
	cycle uint64,
	stage string,
	reg *StageRegister,
	inst *insts.Instruction,
	control insts.Control,
	decision Control,
) TraceRecord {
	return TraceRecord{
		Cycle:    cycle,
		PC:       reg.PC,
		Word:     reg.Word,
		Stage:    stage,
		Opcode:   inst.Opcode,
		Op:       inst.Op,
		Funct3:   inst.Funct3,
		Funct7:   inst.Funct7,
		Rd:       inst.Rd,
		Rs1:      inst.Rs1,
		Rs2:      inst.Rs2,
		Imm:      inst.Imm,
		RegWrite: control.RegWrite,
		ALUSrc:   control.ALUSrc,
		MemRead:  control.MemRead,
		MemWrite: control.MemWrite,
		WBSel:    control.WBSel,
		Branch:   control.Branch,
		FwdA:     reg.FwdA,
		FwdB:     reg.FwdB,
		Control:  decision,
	}
}

// IsPlaceholder reports whether the record stands for an empty cycle.
func (r TraceRecord) IsPlaceholder() bool {
	return r.Stage == StageEmpty
}

// recordCycle appends the records of the cycle that just completed.
func (p *Pipeline) recordCycle(cycle uint64, decision Control) {
	start := len(p.trace)

	if !p.ifid.IsBubble() {
		// IF/ID holds a raw word; decode it for display only.
		inst := p.decoder.Decode(p.ifid.Word)
		p.trace = append(p.trace, newTraceRecord(
			cycle, StageIF, &p.ifid, inst, insts.ControlOf(inst), decision))
	}

	latches := []struct {
		stage string
		reg   *StageRegister
	}{
		{StageID, &p.idex},
		{StageEX, &p.exmem},
		{StageMEM, &p.memwb},
	}
	for _, l := range latches {
		if l.reg.IsBubble() {
			continue
		}
		p.trace = append(p.trace, newTraceRecord(
			cycle, l.stage, l.reg, &l.reg.Inst, l.reg.Control, decision))
	}

	if len(p.trace) == start {
		p.trace = append(p.trace, TraceRecord{
			Cycle:   cycle,
			PC:      p.pc,
			Stage:   StageEmpty,
			Control: decision,
		})
	}
}
