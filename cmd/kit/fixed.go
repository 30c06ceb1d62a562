package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/valkit/kit/precision"
)

func (a *app) fixedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fixed <value>...",
		Short: "Print values in fixed-point notation",
		Example: `  kit fixed 1.005 --scale 2 --rounding half_up
  kit fixed --scale 0 -- -0.5`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.settings()
			if err != nil {
				return err
			}
			for _, arg := range args {
				out, err := precision.Fixed(arg, s.scale, s.rounding)
				if err != nil {
					return fmt.Errorf("fixed %q: %w", arg, err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), out)
			}
			return nil
		},
	}
}
