package pipeline

import "github.com/sarchlab/rvpipe/emu"

// BranchResult is the outcome of resolving a branch in execute.
type BranchResult struct {
	// Taken is true if the condition held.
	Taken bool
	// Target is pc + imm, valid when Taken.
	Target uint32
}

// BranchUnit resolves conditional branches in the execute stage. Branches are
// predicted not taken; a taken branch costs the two younger instructions.
type BranchUnit struct{}

// NewBranchUnit creates a new branch resolution unit.
func NewBranchUnit() *BranchUnit {
	return &BranchUnit{}
}

// Resolve evaluates the branch in idex with its forwarded operand values.
// Non-branch instructions are never taken.
func (b *BranchUnit) Resolve(idex *StageRegister, rs1Val, rs2Val uint32) BranchResult {
	if idex.IsBubble() || !idex.Control.Branch {
		return BranchResult{}
	}

	if !emu.BranchTaken(idex.Inst.Op, rs1Val, rs2Val) {
		return BranchResult{}
	}

	return BranchResult{
		Taken:  true,
		Target: emu.BranchTarget(&idex.Inst, idex.PC),
	}
}
