// Package programs holds the demonstration programs as assembler sources.
package programs

import (
	"embed"
	"path"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/sarchlab/rvpipe/asm"
)

//go:embed *.asm
var sources embed.FS

// ErrUnknownProgram is returned for a name with no source.
var ErrUnknownProgram = errors.New("unknown program")

// Names lists the available programs in alphabetical order.
func Names() []string {
	entries, err := sources.ReadDir(".")
	if err != nil {
		panic(err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, strings.TrimSuffix(entry.Name(), path.Ext(entry.Name())))
	}
	sort.Strings(names)

	return names
}

// Source returns the assembler source of the named program.
func Source(name string) (string, error) {
	data, err := sources.ReadFile(name + ".asm")
	if err != nil {
		return "", errors.Wrap(ErrUnknownProgram, name)
	}

	return string(data), nil
}

// Assemble assembles the named program.
func Assemble(name string) ([]uint32, error) {
	source, err := Source(name)
	if err != nil {
		return nil, err
	}

	words, err := asm.Assemble(source)
	if err != nil {
		return nil, errors.Wrap(err, name)
	}

	return words, nil
}
