package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"smartspend/internal/insight"
)

func newInsightCmd(opts *options) *cobra.Command {
	var noDelay bool

	cmd := &cobra.Command{
		Use:   "insight",
		Short: "Print the spending insight shown on the AI Insights tab",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			items, version, err := opts.load(cmd.Context())
			if err != nil {
				return fmt.Errorf("load expenses: %w", err)
			}
			delay := insight.DefaultDelay
			if noDelay {
				delay = 0
			}
			res, err := insight.NewGenerator(delay).Generate(cmd.Context(), version, items, opts.cur())
			if errors.Is(err, insight.ErrNoExpenses) {
				fmt.Fprintln(cmd.OutOrStdout(), "Add some expenses first to get AI insights!")
				return nil
			}
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Your Spending Insights (%s)\n\n", res.Currency)
			for _, s := range res.Sentences {
				fmt.Fprintf(out, "- %s\n", s)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&noDelay, "no-delay", false, "Skip the artificial generation delay")
	return cmd
}
