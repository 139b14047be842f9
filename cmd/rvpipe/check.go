package main

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/sarchlab/rvpipe/timing/core"
	"github.com/sarchlab/rvpipe/translate"
)

// ErrMismatch is returned when the pipeline disagrees with the reference
// emulator.
var ErrMismatch = errors.New("pipeline state differs from the reference emulator")

func newCheckCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "check <program.bin|program.s|program.asm>",
		Short: "Compare the pipeline's final state against the functional emulator",
		Args:  cobra.ExactArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			words, err := loadProgram(args[0])
			if err != nil {
				return err
			}

			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}

			c := core.NewCore(words, cfg)
			c.Run()

			mismatches, err := c.Compare()
			if err != nil {
				return errors.Wrap(err, args[0])
			}

			w := cmd.OutOrStdout()
			for _, m := range mismatches {
				if err := translate.Fprintf(w, "%s\n", m.String()); err != nil {
					return err
				}
			}

			if len(mismatches) > 0 {
				return errors.Wrapf(ErrMismatch, "%d differences", len(mismatches))
			}

			return translate.Fprintf(w, "%s: matches the reference emulator\n", args[0])
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "JSON configuration file")

	return cmd
}
