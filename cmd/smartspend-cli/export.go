package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"smartspend/internal/export"
	"smartspend/internal/stats"
)

func newExportCmd(opts *options) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the expenses and their aggregates to an Excel workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			items, _, err := opts.load(cmd.Context())
			if err != nil {
				return fmt.Errorf("load expenses: %w", err)
			}
			data, err := export.Workbook(items, stats.Summarize(items), opts.cur())
			if err != nil {
				return fmt.Errorf("build workbook: %w", err)
			}
			if out == "" {
				out = "smartspend-expenses-" + time.Now().Format("2006-01-02") + ".xlsx"
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d expenses to %s\n", len(items), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (default smartspend-expenses-<date>.xlsx)")
	return cmd
}
