package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/ArionMiles/fintrack/pkg/ledger"
	"github.com/ArionMiles/fintrack/pkg/report"
)

func newSummaryCmd(a *app) *cobra.Command {
	var (
		month  string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show totals and category shares for a month",
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

			records, err := l.LoadAll(cmd.Context())
			if err != nil {
				return err
			}

			summary := report.Build(records, sel)
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(summary)
			}
			return report.WriteText(cmd.OutOrStdout(), summary)
		},
	}

	cmd.Flags().StringVarP(&month, "month", "m", ledger.AllName, "month name or All")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the summary as JSON")
	return cmd
}
