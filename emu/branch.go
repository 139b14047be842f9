package emu

import "github.com/sarchlab/rvpipe/insts"

// BranchTaken evaluates the condition of a conditional branch with operand
// values a (rs1) and b (rs2). Non-branch operations are never taken.
func BranchTaken(op insts.Op, a, b uint32) bool {
	switch op {
	case insts.OpBEQ:
		return a == b
	case insts.OpBNE:
		return a != b
	case insts.OpBLT:
		return int32(a) < int32(b)
	case insts.OpBGE:
		return int32(a) >= int32(b)
	case insts.OpBLTU:
		return a < b
	case insts.OpBGEU:
		return a >= b
	default:
		return false
	}
}

// BranchTarget returns the PC-relative target of a branch at pc.
func BranchTarget(inst *insts.Instruction, pc uint32) uint32 {
	return pc + uint32(inst.Imm)
}
