package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ArionMiles/fintrack/pkg/client"
	"github.com/ArionMiles/fintrack/pkg/store/sheets"
)

func newSetupCmd(a *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Authorise fintrack to use Google Sheets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := a.cfg.ClientConfig()

			if _, err := os.Stat(cfg.SecretFile); os.IsNotExist(err) {
				return fmt.Errorf("client secret not found: %s\n\nTo get your credentials:\n"+
					"1. Go to https://console.cloud.google.com/apis/credentials\n"+
					"2. Create an OAuth 2.0 Client ID (Desktop application)\n"+
					"3. Download the JSON file and save it as '%s'", cfg.SecretFile, cfg.SecretFile)
			}

			if !force {
				if _, err := os.Stat(cfg.TokenFile); err == nil {
					fmt.Printf("Already authenticated! Token file exists: %s\n", cfg.TokenFile)
					fmt.Println("To re-authenticate, run: fintrack setup --force")
					return nil
				}
			}

			if force {
				if err := client.RemoveToken(cfg.TokenFile); err != nil {
					a.logger.Warn("failed to remove existing token", "error", err)
				}
				fmt.Println("Forcing re-authentication...")
			}

			fmt.Println("Required permissions:")
			fmt.Println("  - Sheets: Read and write spreadsheets")
			fmt.Println()

			if _, err := client.New(cmd.Context(), cfg, sheets.Scope); err != nil {
				return fmt.Errorf("authentication failed: %w", err)
			}

			fmt.Println()
			fmt.Printf("Token saved to: %s\n", cfg.TokenFile)
			fmt.Println("Set FINTRACK_STORE=sheets and run 'fintrack status' to verify.")
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "discard the saved token and authenticate again")
	return cmd
}
