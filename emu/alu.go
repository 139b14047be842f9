package emu

import "github.com/sarchlab/rvpipe/insts"

// ALUResult computes the execute-stage result of inst.
//
// a is the rs1 operand and b the rs2 operand; the immediate is taken from the
// instruction itself. For loads and stores the result is the effective
// address. Branches produce no ALU result.
func ALUResult(inst *insts.Instruction, pc, a, b uint32) uint32 {
	if !inst.IsValid() {
		return 0
	}

	imm := uint32(inst.Imm)

	switch inst.Format {
	case insts.FormatReg:
		return compute(inst.Op, a, b)
	case insts.FormatImm:
		return compute(inst.Op, a, imm)
	case insts.FormatLoad, insts.FormatStore:
		return a + imm
	case insts.FormatUpper:
		if inst.Op == insts.OpAUIPC {
			return pc + imm
		}
		return imm
	}

	return 0
}

func compute(op insts.Op, a, b uint32) uint32 {
	switch op {
	case insts.OpADD, insts.OpADDI:
		return a + b
	case insts.OpSUB:
		return a - b
	case insts.OpSLL, insts.OpSLLI:
		return a << (b & 0x1F)
	case insts.OpSLT, insts.OpSLTI:
		if int32(a) < int32(b) {
			return 1
		}
		return 0
	case insts.OpSLTU, insts.OpSLTIU:
		if a < b {
			return 1
		}
		return 0
	case insts.OpXOR, insts.OpXORI:
		return a ^ b
	case insts.OpSRL, insts.OpSRLI:
		return a >> (b & 0x1F)
	case insts.OpSRA, insts.OpSRAI:
		return uint32(int32(a) >> (b & 0x1F))
	case insts.OpOR, insts.OpORI:
		return a | b
	case insts.OpAND, insts.OpANDI:
		return a & b
	}
	return 0
}
