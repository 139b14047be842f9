// Package trace writes pipeline trace records as CSV, one row per occupied
// latch per cycle.
package trace

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/pkg/errors"

	"github.com/sarchlab/rvpipe/insts"
	"github.com/sarchlab/rvpipe/timing/pipeline"
)

// Header is the CSV header row.
var Header = []string{
	"Cycle", "PC", "Instr", "Stage", "Op", "Fct3", "Rd", "Rs1", "Rs2", "Imm",
	"RegWrite", "ALUSrc", "MemRd", "MemWr", "WBSel", "Branch", "FwdA", "FwdB",
	"Control", "Fct7", "Mnemonic",
}

// Row formats one record in header order.
func Row(r pipeline.TraceRecord) []string {
	return []string{
		strconv.FormatUint(r.Cycle, 10),
		fmt.Sprintf("0x%04x", r.PC),
		fmt.Sprintf("0x%08x", r.Word),
		r.Stage,
		fmt.Sprintf("0x%02x", r.Opcode),
		strconv.Itoa(int(r.Funct3)),
		strconv.Itoa(int(r.Rd)),
		strconv.Itoa(int(r.Rs1)),
		strconv.Itoa(int(r.Rs2)),
		strconv.Itoa(int(r.Imm)),
		strconv.FormatBool(r.RegWrite),
		strconv.FormatBool(r.ALUSrc),
		strconv.FormatBool(r.MemRead),
		strconv.FormatBool(r.MemWrite),
		strconv.Itoa(int(r.WBSel)),
		strconv.FormatBool(r.Branch),
		r.FwdA.String(),
		r.FwdB.String(),
		r.Control.String(),
		strconv.Itoa(int(r.Funct7)),
		mnemonic(r),
	}
}

// mnemonic names the decoded operation; empty for placeholders and words
// that did not decode.
func mnemonic(r pipeline.TraceRecord) string {
	if r.Op == insts.OpUnknown {
		return ""
	}
	return r.Op.String()
}

// Writer writes trace records as CSV.
type Writer struct {
	csv         *csv.Writer
	wroteHeader bool
}

// NewWriter creates a Writer on w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{csv: csv.NewWriter(w)}
}

// Write writes one record, preceded by the header on first use.
func (w *Writer) Write(r pipeline.TraceRecord) error {
	if !w.wroteHeader {
		if err := w.csv.Write(Header); err != nil {
			return errors.Wrap(err, "failed to write trace header")
		}
		w.wroteHeader = true
	}

	return errors.Wrap(w.csv.Write(Row(r)), "failed to write trace record")
}

// WriteAll writes all records and flushes. An empty trace still gets a
// header.
func (w *Writer) WriteAll(records []pipeline.TraceRecord) error {
	if len(records) == 0 && !w.wroteHeader {
		if err := w.csv.Write(Header); err != nil {
			return errors.Wrap(err, "failed to write trace header")
		}
		w.wroteHeader = true
	}

	for _, r := range records {
		if err := w.Write(r); err != nil {
			return err
		}
	}

	return w.Flush()
}

// Flush flushes buffered rows to the underlying writer.
func (w *Writer) Flush() error {
	w.csv.Flush()
	return errors.Wrap(w.csv.Error(), "failed to flush trace")
}

// WriteFile writes records to a new CSV file at path.
func WriteFile(path string, records []pipeline.TraceRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "failed to create trace file")
	}

	if err := NewWriter(f).WriteAll(records); err != nil {
		_ = f.Close()
		return err
	}

	return errors.Wrap(f.Close(), "failed to close trace file")
}
