package pipeline

import (
	"fmt"

	"github.com/sarchlab/rvpipe/insts"
)

// HazardUnit detects data hazards and determines forwarding/stall signals.
type HazardUnit struct{}

// NewHazardUnit creates a new hazard detection unit.
func NewHazardUnit() *HazardUnit {
	return &HazardUnit{}
}

// DetectForwarding computes the forwarding tags of consumer for the cycle in
// which it executes. exmem and memwb are the instructions that will occupy
// EX/MEM and MEM/WB at that point. Source 2 is only tagged when the format
// reads it, branches included.
func (h *HazardUnit) DetectForwarding(
	consumer, exmem, memwb *StageRegister,
) (fwdA, fwdB ForwardSource) {
	if consumer.IsBubble() {
		return ForwardNone, ForwardNone
	}

	format := consumer.Inst.Format
	if format.ReadsRs1() {
		fwdA = h.detectForwardForReg(consumer.Inst.Rs1, exmem, memwb)
	}
	if format.ReadsRs2() {
		fwdB = h.detectForwardForReg(consumer.Inst.Rs2, exmem, memwb)
	}

	return fwdA, fwdB
}

// detectForwardForReg checks if a specific register needs forwarding.
func (h *HazardUnit) detectForwardForReg(
	reg uint8,
	exmem, memwb *StageRegister,
) ForwardSource {
	if reg == 0 {
		return ForwardNone
	}

	// EX/MEM has precedence over MEM/WB (more recent value)
	if exmem.WritesReg() && exmem.Inst.Rd == reg {
		return ForwardFromEXMEM
	}

	if memwb.WritesReg() && memwb.Inst.Rd == reg {
		return ForwardFromMEMWB
	}

	return ForwardNone
}

// DetectLoadUseHazard reports whether next, the instruction leaving decode,
// consumes the destination of the load in idex. Such a consumer must wait
// one cycle: the loaded value only exists after the memory stage.
func (h *HazardUnit) DetectLoadUseHazard(idex *StageRegister, next *insts.Instruction) bool {
	if idex.IsBubble() || !idex.Control.MemRead {
		return false
	}

	loadRd := idex.Inst.Rd
	if loadRd == 0 || !next.IsValid() {
		return false
	}

	if next.Format.ReadsRs1() && next.Rs1 == loadRd {
		return true
	}
	if next.Format.ReadsRs2() && next.Rs2 == loadRd {
		return true
	}

	return false
}

// GetForwardedValue returns the operand value to use based on the
// forwarding decision.
func (h *HazardUnit) GetForwardedValue(
	forward ForwardSource,
	originalValue uint32,
	exmem, memwb *StageRegister,
) uint32 {
	switch forward {
	case ForwardFromEXMEM:
		if exmem.Control.MemRead {
			panic(fmt.Sprintf(
				"pipeline: EX forwarding from load at pc=%#x; load-use stall missed", exmem.PC))
		}
		return exmem.ALUResult
	case ForwardFromMEMWB:
		return memwb.WritebackValue()
	default:
		return originalValue
	}
}
