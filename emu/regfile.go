// Package emu provides functional RV32I emulation.
package emu

// RegFile represents the RV32I integer register file.
// It contains 32 general-purpose registers; x0 is hard-wired to zero.
type RegFile struct {
	// X holds general-purpose registers x0-x31. X[0] is never written.
	X [32]uint32
}

// ReadReg reads a register value. x0 and out-of-range indices return 0.
func (r *RegFile) ReadReg(reg uint8) uint32 {
	if reg == 0 || reg >= 32 {
		return 0
	}
	return r.X[reg]
}

// WriteReg writes a value to a register. Writes to x0 are ignored.
func (r *RegFile) WriteReg(reg uint8, value uint32) {
	if reg == 0 || reg >= 32 {
		return
	}
	r.X[reg] = value
}

// Snapshot returns a copy of all register values.
func (r *RegFile) Snapshot() [32]uint32 {
	return r.X
}
