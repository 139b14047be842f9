// Package asm is a two-pass assembler for the RV32I subset the pipeline
// model executes. It produces flat instruction words ready for the loader.
//
// Syntax, one statement per line:
//
//	; comment (also #)
//	.equ   NAME value
//	label: addi  t0, zero, $(NAME * 4)
//	       lw    a0, 8(sp)
//	       bne   t0, zero, label
//	       .word 0x12345678, label
//
// Values are decimal, hex (0x) or binary (0b) numbers, .equ names, labels,
// or $(...) expressions evaluated with Starlark. Branch targets naming a
// label are converted to pc-relative offsets; any other branch operand is
// the offset itself.
package asm

import (
	"bufio"
	"fmt"
	"io"
	"maps"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/sarchlab/rvpipe/insts"
)

// Program is the output of the assembler.
type Program struct {
	// Words holds the assembled words; word i lives at address 4*i.
	Words []uint32
	// LineNo holds the source line of each word.
	LineNo []int
}

// Assembler assembles source text into a Program.
type Assembler struct {
	Verbose bool // If set, logs each statement at debug level.

	Label  map[string]uint32 // Label addresses.
	Equate map[string]int64  // Equate values.

	predefine map[string]int64
}

// Predefine defines an equate visible to every subsequent Parse.
func (asm *Assembler) Predefine(equ string, value int64) {
	if asm.predefine == nil {
		asm.predefine = map[string]int64{equ: value}
	} else {
		asm.predefine[equ] = value
	}
}

// statement is one source line after pass 1.
type statement struct {
	lineNo   int
	line     string
	addr     uint32
	mnemonic string
	operands []string
}

var labelRe = regexp.MustCompile(`^([A-Za-z_.][A-Za-z0-9_.]*):`)

// Parse assembles the whole input.
func (asm *Assembler) Parse(input io.Reader) (prog *Program, err error) {
	var line string
	var lineno int

	defer func() {
		if err != nil {
			err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
		}
	}()

	asm.Label = make(map[string]uint32)
	asm.Equate = maps.Clone(asm.predefine)
	if asm.Equate == nil {
		asm.Equate = make(map[string]int64)
	}

	// Pass 1: labels, equates and addresses.
	var stmts []statement
	var addr uint32

	scanner := bufio.NewScanner(input)
	for scanner.Scan() {
		lineno++
		line = strings.TrimSpace(stripComment(scanner.Text()))

		if asm.Verbose {
			logrus.WithField("line", lineno).Debug(line)
		}

		text := line
		for {
			m := labelRe.FindStringSubmatch(text)
			if m == nil {
				break
			}
			if _, ok := asm.Label[m[1]]; ok {
				err = ErrLabelDuplicate
				return
			}
			asm.Label[m[1]] = addr
			text = strings.TrimSpace(text[len(m[0]):])
		}

		if text == "" {
			continue
		}

		mnemonic, rest := text, ""
		if i := strings.IndexAny(text, " \t"); i >= 0 {
			mnemonic, rest = text[:i], strings.TrimSpace(text[i+1:])
		}
		mnemonic = strings.ToLower(mnemonic)
		operands := splitOperands(rest)

		if mnemonic == ".equ" {
			err = asm.defineEquate(rest, addr)
			if err != nil {
				return
			}
			continue
		}

		stmts = append(stmts, statement{
			lineNo:   lineno,
			line:     line,
			addr:     addr,
			mnemonic: mnemonic,
			operands: operands,
		})

		if mnemonic == ".word" {
			if len(operands) == 0 {
				err = ErrWordSyntax
				return
			}
			addr += uint32(4 * len(operands))
		} else {
			addr += 4
		}
	}
	if err = scanner.Err(); err != nil {
		return
	}

	// Pass 2: encode.
	prog = &Program{}
	for _, stmt := range stmts {
		lineno, line = stmt.lineNo, stmt.line

		var words []uint32
		words, err = asm.assemble(&stmt)
		if err != nil {
			return nil, err
		}

		for _, w := range words {
			prog.Words = append(prog.Words, w)
			prog.LineNo = append(prog.LineNo, stmt.lineNo)
		}
	}

	return prog, nil
}

// stripComment removes everything from the first ';' or '#'.
func stripComment(text string) string {
	if i := strings.IndexAny(text, ";#"); i >= 0 {
		return text[:i]
	}
	return text
}

// splitOperands splits on commas outside parentheses.
func splitOperands(text string) []string {
	var operands []string
	depth := 0
	start := 0

	for i, c := range text {
		switch c {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				operands = append(operands, strings.TrimSpace(text[start:i]))
				start = i + 1
			}
		}
	}

	if last := strings.TrimSpace(text[start:]); last != "" || len(operands) > 0 {
		operands = append(operands, last)
	}

	return operands
}

// defineEquate handles ".equ NAME value".
func (asm *Assembler) defineEquate(rest string, pc uint32) error {
	fields := strings.Fields(rest)
	if len(fields) < 2 {
		return ErrEquateSyntax
	}

	name := fields[0]
	if _, ok := asm.Equate[name]; ok {
		return ErrEquateDuplicate
	}

	value, err := asm.valueOf(strings.TrimSpace(strings.TrimPrefix(rest, name)), pc)
	if err != nil {
		return err
	}

	asm.Equate[name] = value
	return nil
}

// valueOf evaluates a number, equate, label or $(...) expression.
func (asm *Assembler) valueOf(word string, pc uint32) (int64, error) {
	if strings.HasPrefix(word, "$(") && strings.HasSuffix(word, ")") {
		return asm.parenEval(word[2:len(word)-1], pc)
	}

	if value, ok := asm.Equate[word]; ok {
		return value, nil
	}

	if addr, ok := asm.Label[word]; ok {
		return int64(addr), nil
	}

	value, err := strconv.ParseInt(word, 0, 64)
	if err != nil {
		return 0, ErrParseNumber(word)
	}

	return value, nil
}

// parenEval does compile-time $(...) evaluations. Equates, labels and PC
// (the address of the statement) are visible to the expression.
func (asm *Assembler) parenEval(expr string, pc uint32) (value int64, err error) {
	thread := starlark.Thread{}
	opts := syntax.FileOptions{}
	pred := starlark.StringDict{
		"PC": starlark.MakeInt64(int64(pc)),
	}
	for key, v := range asm.Label {
		pred[key] = starlark.MakeInt64(int64(v))
	}
	for key, v := range asm.Equate {
		pred[key] = starlark.MakeInt64(v)
	}

	prog := "rc=" + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		return 0, errors.Wrap(ErrParseExpression(expr), err.Error())
	}

	stRC, ok := dict["rc"].(starlark.Int)
	if !ok {
		return 0, ErrParseExpression(expr)
	}

	value, ok = stRC.Int64()
	if !ok {
		return 0, ErrParseExpression(expr)
	}

	return value, nil
}

// abiNames maps ABI register names to indices.
var abiNames = map[string]uint8{
	"zero": 0, "ra": 1, "sp": 2, "gp": 3, "tp": 4,
	"t0": 5, "t1": 6, "t2": 7,
	"s0": 8, "fp": 8, "s1": 9,
	"a0": 10, "a1": 11, "a2": 12, "a3": 13, "a4": 14, "a5": 15, "a6": 16, "a7": 17,
	"s2": 18, "s3": 19, "s4": 20, "s5": 21, "s6": 22, "s7": 23,
	"s8": 24, "s9": 25, "s10": 26, "s11": 27,
	"t3": 28, "t4": 29, "t5": 30, "t6": 31,
}

// register parses x0-x31 or an ABI name.
func register(word string) (uint8, error) {
	word = strings.ToLower(word)
	if reg, ok := abiNames[word]; ok {
		return reg, nil
	}

	if strings.HasPrefix(word, "x") {
		n, err := strconv.ParseUint(word[1:], 10, 8)
		if err == nil && n < 32 {
			return uint8(n), nil
		}
	}

	return 0, ErrRegister(word)
}

// memOperand splits "offset(base)". An empty offset is 0.
func (asm *Assembler) memOperand(word string, pc uint32) (offset int64, base uint8, err error) {
	if !strings.HasSuffix(word, ")") {
		return 0, 0, ErrMemorySyntax
	}

	// Find the '(' matching the final ')'.
	depth := 0
	open := -1
	for i := len(word) - 1; i >= 0; i-- {
		switch word[i] {
		case ')':
			depth++
		case '(':
			depth--
		}
		if depth == 0 {
			open = i
			break
		}
	}
	if open < 0 {
		return 0, 0, ErrMemorySyntax
	}

	base, err = register(strings.TrimSpace(word[open+1 : len(word)-1]))
	if err != nil {
		return 0, 0, err
	}

	if text := strings.TrimSpace(word[:open]); text != "" {
		offset, err = asm.valueOf(text, pc)
	}

	return offset, base, err
}

// assemble encodes one statement.
func (asm *Assembler) assemble(stmt *statement) ([]uint32, error) {
	ops := stmt.operands

	switch stmt.mnemonic {
	case ".word":
		words := make([]uint32, 0, len(ops))
		for _, op := range ops {
			value, err := asm.valueOf(op, stmt.addr)
			if err != nil {
				return nil, err
			}
			words = append(words, uint32(value))
		}
		return words, nil
	case "nop":
		if len(ops) != 0 {
			return nil, ErrOperandCount
		}
		return encode(insts.New(insts.OpADDI, 0, 0, 0, 0), 0)
	case "mv":
		if len(ops) != 2 {
			return nil, ErrOperandCount
		}
		rd, err := register(ops[0])
		if err != nil {
			return nil, err
		}
		rs, err := register(ops[1])
		if err != nil {
			return nil, err
		}
		return encode(insts.New(insts.OpADDI, rd, rs, 0, 0), 0)
	}

	op, ok := insts.OpByName(stmt.mnemonic)
	if !ok {
		return nil, ErrMnemonic(stmt.mnemonic)
	}

	var rd, rs1, rs2 uint8
	var imm int64
	var err error

	regs := func(dst ...*uint8) error {
		for i, d := range dst {
			if *d, err = register(ops[i]); err != nil {
				return err
			}
		}
		return nil
	}

	want := 3
	if f := op.Format(); f == insts.FormatLoad || f == insts.FormatStore || f == insts.FormatUpper {
		want = 2
	}
	if len(ops) != want {
		return nil, ErrOperandCount
	}

	switch op.Format() {
	case insts.FormatReg:
		err = regs(&rd, &rs1, &rs2)
	case insts.FormatImm:
		if err = regs(&rd, &rs1); err == nil {
			imm, err = asm.valueOf(ops[2], stmt.addr)
		}
	case insts.FormatLoad:
		if err = regs(&rd); err == nil {
			imm, rs1, err = asm.memOperand(ops[1], stmt.addr)
		}
	case insts.FormatStore:
		if err = regs(&rs2); err == nil {
			imm, rs1, err = asm.memOperand(ops[1], stmt.addr)
		}
	case insts.FormatBranch:
		if err = regs(&rs1, &rs2); err == nil {
			imm, err = asm.branchOffset(ops[2], stmt.addr)
		}
	case insts.FormatUpper:
		if err = regs(&rd); err == nil {
			imm, err = asm.valueOf(ops[1], stmt.addr)
			if err == nil && (imm < -(1<<19) || imm >= 1<<20) {
				return nil, ErrRange{Value: imm, Err: insts.ErrUnencodable}
			}
			imm = int64(int32(uint32(imm) << 12))
		}
	}
	if err != nil {
		return nil, err
	}

	if imm < -(1<<31) || imm >= 1<<31 {
		return nil, ErrRange{Value: imm, Err: insts.ErrUnencodable}
	}

	return encode(insts.New(op, rd, rs1, rs2, int32(imm)), imm)
}

// branchOffset resolves a branch target: labels become pc-relative.
func (asm *Assembler) branchOffset(word string, pc uint32) (int64, error) {
	if addr, ok := asm.Label[word]; ok {
		return int64(addr) - int64(pc), nil
	}

	if isIdentifier(word) {
		if _, ok := asm.Equate[word]; !ok {
			return 0, ErrLabelMissing(word)
		}
	}

	return asm.valueOf(word, pc)
}

var identRe = regexp.MustCompile(`^[A-Za-z_.][A-Za-z0-9_.]*$`)

func isIdentifier(word string) bool {
	return identRe.MatchString(word)
}

func encode(inst insts.Instruction, imm int64) ([]uint32, error) {
	word, err := insts.Encode(inst)
	if err != nil {
		return nil, ErrRange{Value: imm, Err: err}
	}
	return []uint32{word}, nil
}

// Assemble is a convenience wrapper: assemble source into words.
func Assemble(source string) ([]uint32, error) {
	prog, err := (&Assembler{}).Parse(strings.NewReader(source))
	if err != nil {
		return nil, err
	}
	return prog.Words, nil
}

// Disassemble renders words one per line in assembler syntax, prefixed by
// their addresses. Words that do not decode are emitted as .word.
func Disassemble(words []uint32) string {
	var sb strings.Builder
	decoder := insts.NewDecoder()

	for i, word := range words {
		inst := decoder.Decode(word)
		text := inst.String()
		if !inst.IsValid() {
			text = fmt.Sprintf(".word 0x%08x", word)
		}
		fmt.Fprintf(&sb, "%04x: %s\n", i*4, text)
	}

	return sb.String()
}
