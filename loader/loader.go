// Package loader reads flat binary programs: a stream of little-endian
// 32-bit instruction words with no header.
package loader

import (
	"bufio"
	"encoding/binary"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// WordSize is the size of one instruction word in bytes.
const WordSize = 4

// ErrEmptyProgram is returned when the input holds no complete word.
var ErrEmptyProgram = errors.New("program contains no instructions")

// Program represents a loaded program ready for execution.
type Program struct {
	// Words holds the instruction words; word i lives at byte address 4*i.
	Words []uint32

	// TrailingBytes is the length of a partial word dropped from the end of
	// the input, or 0.
	TrailingBytes int
}

// Len returns the number of instruction words.
func (p *Program) Len() int {
	return len(p.Words)
}

// End returns the first byte address past the last instruction.
func (p *Program) End() uint32 {
	return uint32(len(p.Words) * WordSize)
}

// Load reads a flat binary program from path.
func Load(path string) (*Program, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open program")
	}
	defer func() { _ = f.Close() }()

	prog, err := Read(f)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}

	return prog, nil
}

// Read reads a flat binary program from r. A trailing partial word is
// dropped with a warning; an input without any complete word is an error.
func Read(r io.Reader) (*Program, error) {
	prog := &Program{}
	br := bufio.NewReader(r)
	buf := make([]byte, WordSize)

	for {
		n, err := io.ReadFull(br, buf)
		if err == io.EOF {
			break
		}
		if err == io.ErrUnexpectedEOF {
			prog.TrailingBytes = n
			logrus.WithFields(logrus.Fields{
				"bytes":  n,
				"offset": prog.End(),
			}).Warn("dropping partial instruction word at end of program")
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "failed to read program")
		}

		prog.Words = append(prog.Words, binary.LittleEndian.Uint32(buf))
	}

	if len(prog.Words) == 0 {
		return nil, ErrEmptyProgram
	}

	return prog, nil
}

// Write writes words to w as a flat little-endian binary.
func Write(w io.Writer, words []uint32) error {
	bw := bufio.NewWriter(w)
	buf := make([]byte, WordSize)

	for _, word := range words {
		binary.LittleEndian.PutUint32(buf, word)
		if _, err := bw.Write(buf); err != nil {
			return errors.Wrap(err, "failed to write program")
		}
	}

	return errors.Wrap(bw.Flush(), "failed to write program")
}

// Save writes words to the file at path, replacing it.
func Save(path string, words []uint32) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "failed to create program file")
	}

	if err := Write(f, words); err != nil {
		_ = f.Close()
		return err
	}

	return errors.Wrap(f.Close(), "failed to close program file")
}
