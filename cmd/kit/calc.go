package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/valkit/kit/precision"
)

func (a *app) calcCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "calc <value> [<op> <operand>]...",
		Short: "Evaluate arithmetic left to right",
		Long: `Evaluate arithmetic left to right, rounding after every step.

Operators are + - x / and the unary neg. The operator * is accepted as an
alias for x when quoted.`,
		Example: `  kit calc 10 / 3 x 3 --scale 2
  kit calc 1.5 neg + 4`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.settings()
			if err != nil {
				return err
			}
			n, err := a.eval(args, s)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), n)
			return nil
		},
	}
}

// eval applies the operators in args to the first value in order.
func (a *app) eval(args []string, s settings) (*precision.Number, error) {
	n, err := precision.New(args[0], s.scale, s.rounding)
	if err != nil {
		return nil, fmt.Errorf("value %q: %w", args[0], err)
	}

	for i := 1; i < len(args); i++ {
		op := args[i]
		if op == "neg" {
			n.Negate()
			a.logger.Debug("step", "op", op, "result", n)
			continue
		}

		if i+1 >= len(args) {
			return nil, fmt.Errorf("operator %q needs an operand", op)
		}
		operand := args[i+1]
		i++

		var apply func(any) (*precision.Number, error)
		switch op {
		case "+":
			apply = n.Plus
		case "-":
			apply = n.Minus
		case "x", "*":
			apply = n.Times
		case "/":
			apply = n.DividedBy
		default:
			return nil, fmt.Errorf("unknown operator %q", op)
		}
		if _, err := apply(operand); err != nil {
			return nil, fmt.Errorf("%s %s: %w", op, operand, err)
		}
		a.logger.Debug("step", "op", op, "operand", operand, "result", n)
	}
	return n, nil
}
