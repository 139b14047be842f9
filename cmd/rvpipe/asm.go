package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/sarchlab/rvpipe/asm"
	"github.com/sarchlab/rvpipe/loader"
	"github.com/sarchlab/rvpipe/translate"
)

func newAsmCmd() *cobra.Command {
	var output string
	var list bool

	cmd := &cobra.Command{
		Use:   "asm <source.s|source.asm>",
		Short: "Assemble a source file into a flat binary",
		Args:  cobra.ExactArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			source := args[0]
			if output == "" {
				output = strings.TrimSuffix(source, filepath.Ext(source)) + ".bin"
			}

			f, err := os.Open(source)
			if err != nil {
				return errors.Wrap(err, "failed to open source")
			}
			defer func() { _ = f.Close() }()

			prog, err := (&asm.Assembler{}).Parse(f)
			if err != nil {
				return errors.Wrap(err, source)
			}

			if err := loader.Save(output, prog.Words); err != nil {
				return err
			}

			if list {
				if _, err := cmd.OutOrStdout().Write([]byte(asm.Disassemble(prog.Words))); err != nil {
					return err
				}
			}

			return translate.Fprintf(cmd.OutOrStdout(), "%s: %d words\n", output, len(prog.Words))
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output binary (default: source with .bin)")
	cmd.Flags().BoolVarP(&list, "list", "l", false, "print the disassembly of the output")

	return cmd
}
