package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"smartspend/internal/core"
	"smartspend/internal/log"
	"smartspend/internal/store/memory"
)

const defaultSeedFile = "data/seed_expenses.yaml"

// options are the persistent flags shared by every subcommand.
type options struct {
	file     string
	currency string
	verbose  bool
}

func (o *options) cur() core.Currency {
	return core.ParseCurrency(o.currency)
}

// load reads the expense file; a missing file yields the demo expenses.
func (o *options) load(ctx context.Context) ([]core.Expense, uint64, error) {
	s, err := memory.NewFromFile(o.file)
	if err != nil {
		return nil, 0, err
	}
	items, err := s.List(ctx)
	if err != nil {
		return nil, 0, err
	}
	return items, s.Version(), nil
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "smartspend-cli",
		Short: "Summaries, insights and Excel exports for a SmartSpend expense file",
		Long: `smartspend-cli reads expenses in the seed YAML format and prints the
same totals and insight text the web dashboard shows.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelWarn
			if opts.verbose {
				level = slog.LevelDebug
			}
			log.SetDefault(log.New(log.Config{Level: level, Component: "cli", Output: cmd.ErrOrStderr()}))
		},
	}

	seed := os.Getenv("SEED_FILE")
	if seed == "" {
		seed = defaultSeedFile
	}
	cur := os.Getenv("DEFAULT_CURRENCY")
	if cur == "" {
		cur = string(core.DefaultCurrency)
	}
	root.PersistentFlags().StringVarP(&opts.file, "file", "f", seed, "Expense YAML file")
	root.PersistentFlags().StringVarP(&opts.currency, "currency", "c", cur, "Display currency (INR or USD)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable verbose logging")

	root.AddCommand(newSummaryCmd(opts), newInsightCmd(opts), newExportCmd(opts))
	return root
}
