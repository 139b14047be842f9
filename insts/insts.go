// Package insts provides RV32I instruction definitions, decoding and encoding.
//
// This package implements the subset of RV32I the pipeline model executes:
//   - Register-register ALU: ADD, SUB, SLL, SLT, SLTU, XOR, SRL, SRA, OR, AND
//   - Register-immediate ALU: ADDI, SLTI, SLTIU, XORI, ORI, ANDI, SLLI, SRLI, SRAI
//   - Loads and stores: LB, LH, LW, LBU, LHU, SB, SH, SW
//   - Conditional branches: BEQ, BNE, BLT, BGE, BLTU, BGEU
//   - Upper immediates: LUI, AUIPC
//
// Usage:
//
//	decoder := insts.NewDecoder()
//	inst := decoder.Decode(0x00108193) // ADDI x3, x1, 1
//	fmt.Printf("Op: %v, Rd: %d, Rs1: %d, Imm: %d\n", inst.Op, inst.Rd, inst.Rs1, inst.Imm)
//
// The word 0 is reserved as a bubble and never decodes to a valid instruction.
package insts
