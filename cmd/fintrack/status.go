package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ArionMiles/fintrack/pkg/client"
	"github.com/ArionMiles/fintrack/pkg/config"
	"github.com/ArionMiles/fintrack/pkg/store"
)

const statusTimeout = 15 * time.Second

var (
	okMark   = color.New(color.FgGreen).Sprint("✓")
	failMark = color.New(color.FgRed).Sprint("✗")
	warnMark = color.New(color.FgYellow).Sprint("⚠")
)

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check configuration, rules and store access",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), statusTimeout)
			defer cancel()
			return runStatus(ctx, a, cmd.OutOrStdout())
		},
	}
}

// runStatus prints one line per check and a final verdict.
func runStatus(ctx context.Context, a *app, out io.Writer) error {
	fmt.Fprintln(out, "=== fintrack status ===")
	fmt.Fprintln(out)

	allGood := true
	fail := func(format string, args ...any) {
		fmt.Fprintf(out, "%s %s\n", failMark, fmt.Sprintf(format, args...))
		allGood = false
	}

	if a.configPath != "" {
		fmt.Fprintf(out, "%s Config file: %s\n", okMark, a.configPath)
	}

	if err := a.cfg.Validate(); err != nil {
		fail("Configuration: %v", err)
	} else {
		fmt.Fprintf(out, "%s Configuration: %s store, schema %s, currency %s\n", okMark, a.cfg.Store, a.cfg.Variant(), a.cfg.Currency)
	}

	c, err := a.loadClassifier()
	if err != nil {
		fail("Rules: %v", err)
	} else {
		source := "embedded"
		if a.cfg.RulesFile != "" {
			source = a.cfg.RulesFile
		}
		fmt.Fprintf(out, "%s Rules (%s): %d labels, fallback %q\n", okMark, source, len(c.Labels()), c.Fallback())
	}

	if a.cfg.Store == config.StoreSheets {
		checkGoogleCredentials(a.cfg, out, &allGood)
	}

	if allGood {
		s, err := store.Open(ctx, a.cfg, a.logger)
		if err != nil {
			fail("Store: %v", err)
		} else {
			records, err := s.LoadAll(ctx)
			if err != nil {
				fail("Store: %v", err)
			} else {
				fmt.Fprintf(out, "%s Store: %d readable records\n", okMark, len(records))
			}
			s.Close()
		}
	}

	fmt.Fprintln(out)
	if allGood {
		fmt.Fprintf(out, "Status: %s Ready\n", okMark)
		return nil
	}
	fmt.Fprintf(out, "Status: %s Configuration issues detected\n", failMark)
	return fmt.Errorf("status checks failed")
}

func checkGoogleCredentials(cfg *config.Config, out io.Writer, allGood *bool) {
	if _, err := os.Stat(cfg.ClientSecretFile); err != nil {
		fmt.Fprintf(out, "%s Client secret (%s): not found\n", failMark, cfg.ClientSecretFile)
		*allGood = false
	} else {
		fmt.Fprintf(out, "%s Client secret (%s): found\n", okMark, cfg.ClientSecretFile)
	}

	tok, err := client.TokenFromFile(cfg.TokenFile)
	switch {
	case err != nil:
		fmt.Fprintf(out, "%s OAuth token (%s): not found (run 'fintrack setup')\n", failMark, cfg.TokenFile)
		*allGood = false
	case tok.Expiry.Before(time.Now()):
		fmt.Fprintf(out, "%s OAuth token: expired (will refresh on next run)\n", warnMark)
	default:
		fmt.Fprintf(out, "%s OAuth token: valid (expires %s)\n", okMark, tok.Expiry.Format(time.RFC3339))
	}
}
