package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"smartspend/internal/core"
	"smartspend/internal/stats"
)

func newSummaryCmd(opts *options) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print totals and the per-category breakdown",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			items, _, err := opts.load(cmd.Context())
			if err != nil {
				return fmt.Errorf("load expenses: %w", err)
			}
			sum := stats.Summarize(items)
			cur := opts.cur()
			out := cmd.OutOrStdout()

			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(summaryJSON(sum, cur))
			}

			if sum.Empty() {
				fmt.Fprintln(out, "No expenses yet. Add one to get started!")
				return nil
			}
			fmt.Fprintf(out, "Total Spent:     %s (%d transactions)\n", cur.Format(sum.Total), sum.Count)
			fmt.Fprintf(out, "Average Expense: %s\n", cur.Format(sum.Average))
			fmt.Fprintf(out, "Categories:      %d\n", sum.ActiveCategories())
			if sum.Top != nil {
				fmt.Fprintf(out, "Top Category:    %s (%s)\n", sum.Top.Name, cur.Format(sum.Top.Amount))
			}
			fmt.Fprintln(out)

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
			fmt.Fprintln(tw, "Category\tAmount\tShare\t")
			for _, c := range sum.ByCategory {
				fmt.Fprintf(tw, "%s\t%s\t%d%%\t\n", c.Name, cur.Format(c.Amount), stats.Share(c.Amount, sum.Total))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output in JSON format")
	return cmd
}

type categoryTotal struct {
	Category    string `json:"category"`
	AmountCents int64  `json:"amount_cents"`
	Share       int    `json:"share"`
}

type summaryOutput struct {
	Currency     core.Currency   `json:"currency"`
	Count        int             `json:"count"`
	TotalCents   int64           `json:"total_cents"`
	AverageCents int64           `json:"average_cents"`
	Top          string          `json:"top,omitempty"`
	ByCategory   []categoryTotal `json:"by_category"`
}

func summaryJSON(sum stats.Summary, cur core.Currency) summaryOutput {
	out := summaryOutput{
		Currency:     cur,
		Count:        sum.Count,
		TotalCents:   sum.Total.Cents,
		AverageCents: sum.Average.Cents,
		ByCategory:   make([]categoryTotal, 0, len(sum.ByCategory)),
	}
	if sum.Top != nil {
		out.Top = sum.Top.Name.String()
	}
	for _, c := range sum.ByCategory {
		out.ByCategory = append(out.ByCategory, categoryTotal{
			Category:    c.Name.String(),
			AmountCents: c.Amount.Cents,
			Share:       stats.Share(c.Amount, sum.Total),
		})
	}
	return out
}
