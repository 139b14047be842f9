package main

import (
	"github.com/spf13/cobra"

	"github.com/sarchlab/rvpipe/programs"
	"github.com/sarchlab/rvpipe/translate"
)

func newDemoCmd() *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "demo [name]",
		Short: "List the built-in programs, or run one",
		Args:  cobra.MaximumNArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				for _, name := range programs.Names() {
					if err := translate.Fprintf(cmd.OutOrStdout(), "%s\n", name); err != nil {
						return err
					}
				}
				return nil
			}

			words, err := programs.Assemble(args[0])
			if err != nil {
				return err
			}
			return opts.simulate(cmd.OutOrStdout(), args[0], words)
		},
	}
	opts.addFlags(cmd)

	return cmd
}
