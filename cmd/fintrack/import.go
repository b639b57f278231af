package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ArionMiles/fintrack/pkg/api"
	"github.com/ArionMiles/fintrack/pkg/batch"
	"github.com/ArionMiles/fintrack/pkg/logging"
	csvstore "github.com/ArionMiles/fintrack/pkg/store/csv"
)

func newImportCmd(a *app) *cobra.Command {
	var batchSize int

	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Append every readable row of a CSV file to the ledger",
		Long: "Import reads a CSV file with either header layout. Rows with an unparseable\n" +
			"date or amount are skipped; the rest are appended in batches.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening import file: %w", err)
			}
			defer f.Close()

			records, err := csvstore.ReadAll(f, a.cfg.Currency, logging.Component(a.logger, "import"))
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}

			l, _, s, err := a.openLedger(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			w := batch.New(l.Import, batch.Config{BatchSize: batchSize}, logging.Component(a.logger, "import"))
			if err := w.Write(ctx, feed(ctx, records)); err != nil {
				return fmt.Errorf("importing: %w", err)
			}

			stats := w.Stats()
			color.New(color.FgGreen).Fprint(cmd.OutOrStdout(), "✓ ")
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d expenses into the %s store\n", stats.Flushed, a.cfg.Store)
			return nil
		},
	}

	cmd.Flags().IntVar(&batchSize, "batch-size", batch.DefaultBatchSize, "records appended per store call")
	return cmd
}

// feed streams records into a channel that is closed when all are sent or ctx ends.
func feed(ctx context.Context, records []api.Expense) <-chan api.Expense {
	ch := make(chan api.Expense)
	go func() {
		defer close(ch)
		for _, e := range records {
			select {
			case ch <- e:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}
