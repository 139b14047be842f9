package emu

import "github.com/sarchlab/rvpipe/insts"

// DataPort is the data-side memory interface used by loads and stores.
// Memory implements it directly; a cache in front of memory can too.
type DataPort interface {
	Read8(addr uint32) byte
	Read16(addr uint32) uint16
	Read32(addr uint32) uint32
	Write8(addr uint32, value byte)
	Write16(addr uint32, value uint16)
	Write32(addr uint32, value uint32)
}

// Load performs the memory read of a load instruction at addr, returning the
// value to be written back (sign- or zero-extended per the load width).
func Load(port DataPort, op insts.Op, addr uint32) uint32 {
	switch op {
	case insts.OpLB:
		return uint32(int32(int8(port.Read8(addr))))
	case insts.OpLBU:
		return uint32(port.Read8(addr))
	case insts.OpLH:
		return uint32(int32(int16(port.Read16(addr))))
	case insts.OpLHU:
		return uint32(port.Read16(addr))
	case insts.OpLW:
		return port.Read32(addr)
	}
	return 0
}

// Store performs the memory write of a store instruction at addr.
func Store(port DataPort, op insts.Op, addr, value uint32) {
	switch op {
	case insts.OpSB:
		port.Write8(addr, byte(value))
	case insts.OpSH:
		port.Write16(addr, uint16(value))
	case insts.OpSW:
		port.Write32(addr, value)
	}
}
