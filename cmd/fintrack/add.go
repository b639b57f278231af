package main

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ArionMiles/fintrack/pkg/ledger"
)

func newAddCmd(a *app) *cobra.Command {
	var in ledger.Input

	cmd := &cobra.Command{
		Use:   "add AMOUNT [DESCRIPTION]",
		Short: "Append an expense to the ledger",
		Long: "Append an expense. Without --category the description is classified by keyword.\n" +
			"Without --date today's date is used.",
		Example: `  fintrack add 54.20 "weekly grocery run"
  fintrack add 12 --category Dining --currency EUR --date 2024-03-02`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Amount = args[0]
			if len(args) == 2 {
				in.Description = args[1]
			}

			l, _, s, err := a.openLedger(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			e, err := l.Append(cmd.Context(), in)
			if err != nil {
				var ve *ledger.ValidationError
				if errors.As(err, &ve) {
					color.New(color.FgRed).Fprintf(cmd.ErrOrStderr(), "✗ invalid %s: %q\n", ve.Field, ve.Value)
				}
				return err
			}

			color.New(color.FgGreen).Fprint(cmd.OutOrStdout(), "✓ ")
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %s %s  [%s]\n",
				e.Date, e.Description, e.Amount.StringFixed(2), e.Currency, e.Category)
			return nil
		},
	}

	cmd.Flags().StringVar(&in.Date, "date", "", "expense date (YYYY-MM-DD), defaults to today")
	cmd.Flags().StringVar(&in.Category, "category", "", "category label, classified from the description when empty")
	cmd.Flags().StringVar(&in.Currency, "currency", "", "currency code, defaults to FINTRACK_CURRENCY")

	return cmd
}
