// Package insts provides RV32I instruction definitions, decoding and encoding.
package insts

import "fmt"

// Opcode values occupying bits [6:0] of an instruction word.
const (
	OpcodeLoad   uint8 = 0x03
	OpcodeImm    uint8 = 0x13
	OpcodeAUIPC  uint8 = 0x17
	OpcodeStore  uint8 = 0x23
	OpcodeReg    uint8 = 0x33
	OpcodeLUI    uint8 = 0x37
	OpcodeBranch uint8 = 0x63
)

// Op represents a decoded operation.
type Op uint16

// Supported operations.
const (
	OpUnknown Op = iota
	OpADD
	OpSUB
	OpSLL
	OpSLT
	OpSLTU
	OpXOR
	OpSRL
	OpSRA
	OpOR
	OpAND
	OpADDI
	OpSLTI
	OpSLTIU
	OpXORI
	OpORI
	OpANDI
	OpSLLI
	OpSRLI
	OpSRAI
	OpLB
	OpLH
	OpLW
	OpLBU
	OpLHU
	OpSB
	OpSH
	OpSW
	OpBEQ
	OpBNE
	OpBLT
	OpBGE
	OpBLTU
	OpBGEU
	OpLUI
	OpAUIPC

	numOps
)

// Format represents an instruction encoding format. It is the closed set of
// shapes an instruction can take once decoded; later pipeline stages switch
// on it instead of re-inspecting the opcode.
type Format uint8

// Instruction formats.
const (
	FormatUnknown Format = iota
	FormatReg            // Register-register ALU (R-type)
	FormatImm            // Register-immediate ALU (I-type)
	FormatLoad           // Loads (I-type layout)
	FormatStore          // Stores (S-type)
	FormatBranch         // Conditional branches (B-type)
	FormatUpper          // LUI / AUIPC (U-type)
)

func (f Format) String() string {
	switch f {
	case FormatReg:
		return "R"
	case FormatImm:
		return "I"
	case FormatLoad:
		return "LOAD"
	case FormatStore:
		return "S"
	case FormatBranch:
		return "B"
	case FormatUpper:
		return "U"
	default:
		return "?"
	}
}

// ReadsRs1 reports whether instructions of this format read rs1.
func (f Format) ReadsRs1() bool {
	switch f {
	case FormatReg, FormatImm, FormatLoad, FormatStore, FormatBranch:
		return true
	default:
		return false
	}
}

// ReadsRs2 reports whether instructions of this format read rs2.
func (f Format) ReadsRs2() bool {
	switch f {
	case FormatReg, FormatStore, FormatBranch:
		return true
	default:
		return false
	}
}

type opInfo struct {
	name   string
	format Format
	opcode uint8
	funct3 uint8
	funct7 uint8
}

var opTable = [numOps]opInfo{
	OpADD:   {"add", FormatReg, OpcodeReg, 0x0, 0x00},
	OpSUB:   {"sub", FormatReg, OpcodeReg, 0x0, 0x20},
	OpSLL:   {"sll", FormatReg, OpcodeReg, 0x1, 0x00},
	OpSLT:   {"slt", FormatReg, OpcodeReg, 0x2, 0x00},
	OpSLTU:  {"sltu", FormatReg, OpcodeReg, 0x3, 0x00},
	OpXOR:   {"xor", FormatReg, OpcodeReg, 0x4, 0x00},
	OpSRL:   {"srl", FormatReg, OpcodeReg, 0x5, 0x00},
	OpSRA:   {"sra", FormatReg, OpcodeReg, 0x5, 0x20},
	OpOR:    {"or", FormatReg, OpcodeReg, 0x6, 0x00},
	OpAND:   {"and", FormatReg, OpcodeReg, 0x7, 0x00},
	OpADDI:  {"addi", FormatImm, OpcodeImm, 0x0, 0x00},
	OpSLTI:  {"slti", FormatImm, OpcodeImm, 0x2, 0x00},
	OpSLTIU: {"sltiu", FormatImm, OpcodeImm, 0x3, 0x00},
	OpXORI:  {"xori", FormatImm, OpcodeImm, 0x4, 0x00},
	OpORI:   {"ori", FormatImm, OpcodeImm, 0x6, 0x00},
	OpANDI:  {"andi", FormatImm, OpcodeImm, 0x7, 0x00},
	OpSLLI:  {"slli", FormatImm, OpcodeImm, 0x1, 0x00},
	OpSRLI:  {"srli", FormatImm, OpcodeImm, 0x5, 0x00},
	OpSRAI:  {"srai", FormatImm, OpcodeImm, 0x5, 0x20},
	OpLB:    {"lb", FormatLoad, OpcodeLoad, 0x0, 0x00},
	OpLH:    {"lh", FormatLoad, OpcodeLoad, 0x1, 0x00},
	OpLW:    {"lw", FormatLoad, OpcodeLoad, 0x2, 0x00},
	OpLBU:   {"lbu", FormatLoad, OpcodeLoad, 0x4, 0x00},
	OpLHU:   {"lhu", FormatLoad, OpcodeLoad, 0x5, 0x00},
	OpSB:    {"sb", FormatStore, OpcodeStore, 0x0, 0x00},
	OpSH:    {"sh", FormatStore, OpcodeStore, 0x1, 0x00},
	OpSW:    {"sw", FormatStore, OpcodeStore, 0x2, 0x00},
	OpBEQ:   {"beq", FormatBranch, OpcodeBranch, 0x0, 0x00},
	OpBNE:   {"bne", FormatBranch, OpcodeBranch, 0x1, 0x00},
	OpBLT:   {"blt", FormatBranch, OpcodeBranch, 0x4, 0x00},
	OpBGE:   {"bge", FormatBranch, OpcodeBranch, 0x5, 0x00},
	OpBLTU:  {"bltu", FormatBranch, OpcodeBranch, 0x6, 0x00},
	OpBGEU:  {"bgeu", FormatBranch, OpcodeBranch, 0x7, 0x00},
	OpLUI:   {"lui", FormatUpper, OpcodeLUI, 0x0, 0x00},
	OpAUIPC: {"auipc", FormatUpper, OpcodeAUIPC, 0x0, 0x00},
}

// opKey identifies an operation by its opcode and function codes. funct7 is
// only significant for R-type and the shift-immediate forms.
type opKey struct {
	opcode uint8
	funct3 uint8
	funct7 uint8
}

var opLookup = func() map[opKey]Op {
	m := make(map[opKey]Op, numOps)
	for op := OpADD; op < numOps; op++ {
		info := opTable[op]
		m[opKey{info.opcode, info.funct3, info.funct7}] = op
	}
	return m
}()

// String returns the assembler mnemonic of the operation.
func (op Op) String() string {
	if op == OpUnknown || op >= numOps {
		return "unknown"
	}
	return opTable[op].name
}

// Format returns the encoding format of the operation.
func (op Op) Format() Format {
	if op >= numOps {
		return FormatUnknown
	}
	return opTable[op].format
}

// OpByName returns the operation with the given mnemonic.
func OpByName(name string) (Op, bool) {
	for op := OpADD; op < numOps; op++ {
		if opTable[op].name == name {
			return op, true
		}
	}
	return OpUnknown, false
}

// IsShiftImm reports whether op is one of the shift-by-immediate forms,
// whose immediate field carries a 5-bit shift amount and a funct7.
func (op Op) IsShiftImm() bool {
	return op == OpSLLI || op == OpSRLI || op == OpSRAI
}

// Instruction represents a decoded RV32I instruction.
//
// Fields that the instruction's format does not encode are always zero, so
// two decodes of equal words compare equal and an Instruction built by one of
// the constructors in this package round-trips through Encode and Decode.
type Instruction struct {
	Op     Op     // Operation
	Format Format // Encoding format

	Opcode uint8 // Bits [6:0]
	Rd     uint8 // Destination register
	Funct3 uint8 // Bits [14:12]
	Rs1    uint8 // First source register
	Rs2    uint8 // Second source register
	Funct7 uint8 // Bits [31:25] (R-type and shift-immediates only)

	// Imm is the sign-extended immediate. For U-type it is the final
	// 32-bit value with the low 12 bits clear; for shift-immediates it is
	// the shift amount.
	Imm int32
}

// IsValid reports whether the instruction decoded to a supported operation.
func (i *Instruction) IsValid() bool {
	return i != nil && i.Op != OpUnknown
}

// String returns the instruction in assembler syntax.
func (i *Instruction) String() string {
	if !i.IsValid() {
		return "nop"
	}

	switch i.Format {
	case FormatReg:
		return fmt.Sprintf("%s x%d, x%d, x%d", i.Op, i.Rd, i.Rs1, i.Rs2)
	case FormatImm:
		return fmt.Sprintf("%s x%d, x%d, %d", i.Op, i.Rd, i.Rs1, i.Imm)
	case FormatLoad:
		return fmt.Sprintf("%s x%d, %d(x%d)", i.Op, i.Rd, i.Imm, i.Rs1)
	case FormatStore:
		return fmt.Sprintf("%s x%d, %d(x%d)", i.Op, i.Rs2, i.Imm, i.Rs1)
	case FormatBranch:
		return fmt.Sprintf("%s x%d, x%d, %d", i.Op, i.Rs1, i.Rs2, i.Imm)
	case FormatUpper:
		return fmt.Sprintf("%s x%d, 0x%x", i.Op, i.Rd, uint32(i.Imm)>>12)
	}
	return "nop"
}

// Decoder decodes RV32I machine code into instructions.
type Decoder struct{}

// NewDecoder creates a new RV32I instruction decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode decodes a 32-bit instruction word. Words that do not encode a
// supported operation, including the bubble word 0, yield an instruction with
// Op == OpUnknown and Format == FormatUnknown.
func (d *Decoder) Decode(word uint32) *Instruction {
	inst := &Instruction{Op: OpUnknown, Format: FormatUnknown}
	if word == 0 {
		return inst
	}

	opcode := uint8(word & 0x7F)
	funct3 := uint8((word >> 12) & 0x7)
	funct7 := uint8((word >> 25) & 0x7F)

	switch opcode {
	case OpcodeReg:
		d.decodeReg(word, inst, funct3, funct7)
	case OpcodeImm:
		d.decodeImm(word, inst, funct3, funct7)
	case OpcodeLoad:
		d.decodeLoad(word, inst, funct3)
	case OpcodeStore:
		d.decodeStore(word, inst, funct3)
	case OpcodeBranch:
		d.decodeBranch(word, inst, funct3)
	case OpcodeLUI, OpcodeAUIPC:
		d.decodeUpper(word, inst, opcode)
	}

	return inst
}

func (d *Decoder) lookup(inst *Instruction, key opKey) bool {
	op, ok := opLookup[key]
	if !ok {
		return false
	}
	inst.Op = op
	inst.Format = opTable[op].format
	inst.Opcode = key.opcode
	inst.Funct3 = key.funct3
	inst.Funct7 = key.funct7
	return true
}

func (d *Decoder) decodeReg(word uint32, inst *Instruction, funct3, funct7 uint8) {
	if !d.lookup(inst, opKey{OpcodeReg, funct3, funct7}) {
		return
	}
	inst.Rd = rd(word)
	inst.Rs1 = rs1(word)
	inst.Rs2 = rs2(word)
}

func (d *Decoder) decodeImm(word uint32, inst *Instruction, funct3, funct7 uint8) {
	// Only the shift forms carry a funct7; everything else uses all 12 bits
	// as the immediate.
	key := opKey{OpcodeImm, funct3, 0}
	shift := funct3 == 0x1 || funct3 == 0x5
	if shift {
		key.funct7 = funct7
	}
	if !d.lookup(inst, key) {
		return
	}
	inst.Rd = rd(word)
	inst.Rs1 = rs1(word)
	if shift {
		inst.Imm = int32((word >> 20) & 0x1F)
	} else {
		inst.Imm = SignExtend(word>>20, 12)
	}
}

func (d *Decoder) decodeLoad(word uint32, inst *Instruction, funct3 uint8) {
	if !d.lookup(inst, opKey{OpcodeLoad, funct3, 0}) {
		return
	}
	inst.Rd = rd(word)
	inst.Rs1 = rs1(word)
	inst.Imm = SignExtend(word>>20, 12)
}

func (d *Decoder) decodeStore(word uint32, inst *Instruction, funct3 uint8) {
	if !d.lookup(inst, opKey{OpcodeStore, funct3, 0}) {
		return
	}
	inst.Rs1 = rs1(word)
	inst.Rs2 = rs2(word)
	imm := ((word >> 25) << 5) | ((word >> 7) & 0x1F)
	inst.Imm = SignExtend(imm, 12)
}

func (d *Decoder) decodeBranch(word uint32, inst *Instruction, funct3 uint8) {
	if !d.lookup(inst, opKey{OpcodeBranch, funct3, 0}) {
		return
	}
	inst.Rs1 = rs1(word)
	inst.Rs2 = rs2(word)
	imm := ((word >> 31) & 0x1) << 12
	imm |= ((word >> 7) & 0x1) << 11
	imm |= ((word >> 25) & 0x3F) << 5
	imm |= ((word >> 8) & 0xF) << 1
	inst.Imm = SignExtend(imm, 13)
}

func (d *Decoder) decodeUpper(word uint32, inst *Instruction, opcode uint8) {
	if !d.lookup(inst, opKey{opcode, 0, 0}) {
		return
	}
	inst.Rd = rd(word)
	inst.Imm = int32(word & 0xFFFFF000)
}

func rd(word uint32) uint8  { return uint8((word >> 7) & 0x1F) }
func rs1(word uint32) uint8 { return uint8((word >> 15) & 0x1F) }
func rs2(word uint32) uint8 { return uint8((word >> 20) & 0x1F) }

// SignExtend sign-extends the low bits of value.
func SignExtend(value uint32, bits uint) int32 {
	shift := 32 - bits
	return int32(value<<shift) >> shift
}
