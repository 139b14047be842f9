package insts

// WBSel selects the value written back to the register file.
type WBSel uint8

// Writeback sources.
const (
	WBFromALU WBSel = iota
	WBFromMem
)

// Control holds the control signals of an instruction. They depend only on
// the opcode and function code, never on operand values.
type Control struct {
	RegWrite bool  // Writes rd in writeback
	ALUSrc   bool  // Second ALU operand is the immediate
	MemRead  bool  // Load
	MemWrite bool  // Store
	WBSel    WBSel // Writeback source
	Branch   bool  // Conditional branch, resolved in execute
}

var controlTable = map[Format]Control{
	FormatReg:    {RegWrite: true},
	FormatImm:    {RegWrite: true, ALUSrc: true},
	FormatLoad:   {RegWrite: true, ALUSrc: true, MemRead: true, WBSel: WBFromMem},
	FormatStore:  {ALUSrc: true, MemWrite: true},
	FormatBranch: {Branch: true},
	FormatUpper:  {RegWrite: true, ALUSrc: true},
}

// ControlOf returns the control signals for inst. Invalid instructions get
// the all-false bubble signals.
func ControlOf(inst *Instruction) Control {
	if !inst.IsValid() {
		return Control{}
	}
	return controlTable[inst.Format]
}
