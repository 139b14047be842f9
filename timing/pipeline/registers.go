// Package pipeline provides the 5-stage in-order pipeline model: the four
// inter-stage latches, the hazard and forwarding units, branch resolution and
// the clock loop that ties them together and records a trace.
package pipeline

import "github.com/sarchlab/rvpipe/insts"

// ForwardSource indicates where an operand of the executing instruction
// comes from.
type ForwardSource uint8

const (
	// ForwardNone means no forwarding needed - use register file value.
	ForwardNone ForwardSource = iota
	// ForwardFromEXMEM means forward the ALU result in the EX/MEM register.
	ForwardFromEXMEM
	// ForwardFromMEMWB means forward the writeback value in the MEM/WB register.
	ForwardFromMEMWB
)

// String returns the trace tag of the source: "", "EX" or "MEM".
func (f ForwardSource) String() string {
	switch f {
	case ForwardFromEXMEM:
		return "EX"
	case ForwardFromMEMWB:
		return "MEM"
	default:
		return ""
	}
}

// StageRegister is the content of one pipeline latch. All four latches share
// this shape; IF/ID only ever fills PC and Word.
//
// A bubble is the zero value: instruction word 0, OpUnknown and all-false
// control signals. It has no side effect in any stage.
type StageRegister struct {
	// PC is the address of the instruction.
	PC uint32

	// Word is the raw instruction word; 0 marks a bubble.
	Word uint32

	// Inst is the decoded instruction (zero in IF/ID).
	Inst insts.Instruction

	// Control holds the control signals derived from the opcode.
	Control insts.Control

	// Forwarding tags for source 1 and source 2, set by decode.
	FwdA ForwardSource
	FwdB ForwardSource

	// Register file values read in decode. Only meaningful for operands
	// whose tag is ForwardNone.
	Rs1Value uint32
	Rs2Value uint32

	// ALUResult is the execute result: arithmetic value or memory address.
	ALUResult uint32

	// StoreValue is the (forwarded) rs2 value a store writes.
	StoreValue uint32

	// MemData is the value returned by a load.
	MemData uint32
}

// Bubble returns an empty stage register.
func Bubble() StageRegister {
	return StageRegister{}
}

// IsBubble reports whether the register holds no instruction.
func (r *StageRegister) IsBubble() bool {
	return r.Word == 0
}

// Clear turns the register into a bubble.
func (r *StageRegister) Clear() {
	*r = StageRegister{}
}

// WritesReg reports whether the instruction will write a non-zero rd.
func (r *StageRegister) WritesReg() bool {
	return !r.IsBubble() && r.Control.RegWrite && r.Inst.Rd != 0
}

// WritebackValue returns the value the instruction commits in writeback.
func (r *StageRegister) WritebackValue() uint32 {
	if r.Control.WBSel == insts.WBFromMem {
		return r.MemData
	}
	return r.ALUResult
}
