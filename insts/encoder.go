package insts

import "github.com/pkg/errors"

// ErrUnencodable is the cause of every Encode failure.
var ErrUnencodable = errors.New("instruction cannot be encoded")

// New builds the canonical Instruction for op. Operands the op's format does
// not use are ignored, so the result always round-trips through Encode and
// Decode when the operands are in range.
//
// Operand meaning per format:
//   - R:      rd, rs1, rs2
//   - I/LOAD: rd, rs1, imm
//   - S:      rs1 (base), rs2 (value), imm
//   - B:      rs1, rs2, imm (byte offset, even)
//   - U:      rd, imm (final value, low 12 bits clear)
func New(op Op, rd, rs1, rs2 uint8, imm int32) Instruction {
	if op == OpUnknown || op >= numOps {
		return Instruction{Op: OpUnknown, Format: FormatUnknown}
	}

	info := opTable[op]
	inst := Instruction{
		Op:     op,
		Format: info.format,
		Opcode: info.opcode,
		Funct3: info.funct3,
		Funct7: info.funct7,
	}

	switch info.format {
	case FormatReg:
		inst.Rd, inst.Rs1, inst.Rs2 = rd, rs1, rs2
	case FormatImm, FormatLoad:
		inst.Rd, inst.Rs1, inst.Imm = rd, rs1, imm
	case FormatStore, FormatBranch:
		inst.Rs1, inst.Rs2, inst.Imm = rs1, rs2, imm
	case FormatUpper:
		inst.Rd, inst.Imm = rd, imm
		inst.Funct3 = 0
	}

	return inst
}

// Encode assembles an instruction into its 32-bit word. It is the exact
// inverse of Decoder.Decode for every supported format.
func Encode(inst Instruction) (uint32, error) {
	if inst.Op == OpUnknown || inst.Op >= numOps {
		return 0, errors.Wrap(ErrUnencodable, "unknown op")
	}
	for _, r := range []uint8{inst.Rd, inst.Rs1, inst.Rs2} {
		if r > 31 {
			return 0, errors.Wrapf(ErrUnencodable, "%s: register x%d out of range", inst.Op, r)
		}
	}

	info := opTable[inst.Op]
	word := uint32(info.opcode) | uint32(info.funct3)<<12
	imm := inst.Imm

	switch info.format {
	case FormatReg:
		word |= uint32(inst.Rd)<<7 | uint32(inst.Rs1)<<15 | uint32(inst.Rs2)<<20
		word |= uint32(info.funct7) << 25

	case FormatImm, FormatLoad:
		word |= uint32(inst.Rd)<<7 | uint32(inst.Rs1)<<15
		if inst.Op.IsShiftImm() {
			if imm < 0 || imm > 31 {
				return 0, errors.Wrapf(ErrUnencodable, "%s: shift amount %d out of range", inst.Op, imm)
			}
			word |= uint32(imm)<<20 | uint32(info.funct7)<<25
		} else {
			if imm < -2048 || imm > 2047 {
				return 0, errors.Wrapf(ErrUnencodable, "%s: immediate %d out of range", inst.Op, imm)
			}
			word |= (uint32(imm) & 0xFFF) << 20
		}

	case FormatStore:
		if imm < -2048 || imm > 2047 {
			return 0, errors.Wrapf(ErrUnencodable, "%s: offset %d out of range", inst.Op, imm)
		}
		u := uint32(imm)
		word |= uint32(inst.Rs1)<<15 | uint32(inst.Rs2)<<20
		word |= (u & 0x1F) << 7
		word |= ((u >> 5) & 0x7F) << 25

	case FormatBranch:
		if imm < -4096 || imm > 4094 || imm%2 != 0 {
			return 0, errors.Wrapf(ErrUnencodable, "%s: branch offset %d out of range", inst.Op, imm)
		}
		u := uint32(imm)
		word |= uint32(inst.Rs1)<<15 | uint32(inst.Rs2)<<20
		word |= ((u >> 12) & 0x1) << 31
		word |= ((u >> 5) & 0x3F) << 25
		word |= ((u >> 1) & 0xF) << 8
		word |= ((u >> 11) & 0x1) << 7

	case FormatUpper:
		if imm&0xFFF != 0 {
			return 0, errors.Wrapf(ErrUnencodable, "%s: immediate 0x%x has low bits set", inst.Op, uint32(imm))
		}
		word = uint32(info.opcode) | uint32(inst.Rd)<<7 | uint32(imm)
	}

	return word, nil
}

// MustEncode is like Encode but panics on error. It is meant for building
// fixed programs in tests and examples.
func MustEncode(inst Instruction) uint32 {
	word, err := Encode(inst)
	if err != nil {
		panic(err)
	}
	return word
}
