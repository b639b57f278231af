package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ArionMiles/fintrack/pkg/ledger"
	"github.com/ArionMiles/fintrack/pkg/report"
)

func newListCmd(a *app) *cobra.Command {
	var month string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded expenses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sel, err := ledger.ParseMonth(month)
			if err != nil {
				return err
			}

			l, _, s, err := a.openLedger(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			records, err := l.Month(cmd.Context(), sel)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", sel, report.EmptyMessage)
				return nil
			}
			return report.WriteRecords(cmd.OutOrStdout(), records)
		},
	}

	cmd.Flags().StringVarP(&month, "month", "m", ledger.AllName, "month name or All")
	return cmd
}
