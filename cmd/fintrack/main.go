// Command fintrack records personal expenses and summarises them by month.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ArionMiles/fintrack/pkg/api"
	"github.com/ArionMiles/fintrack/pkg/classifier"
	"github.com/ArionMiles/fintrack/pkg/config"
	"github.com/ArionMiles/fintrack/pkg/ledger"
	"github.com/ArionMiles/fintrack/pkg/logging"
	"github.com/ArionMiles/fintrack/pkg/store"
)

// app carries what every subcommand needs once the root has run.
type app struct {
	configPath string
	envFile    string
	cfg        *config.Config
	logger     *slog.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:          "fintrack",
		Short:        "Personal expense ledger",
		Long:         "fintrack appends expenses to a ledger, classifies them by keyword and reports monthly totals.",
		SilenceUsage: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return a.init()
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "path to a JSON config file (environment variables take precedence)")
	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "dotenv file loaded before configuration")

	root.AddCommand(
		newAddCmd(a),
		newListCmd(a),
		newSummaryCmd(a),
		newServeCmd(a),
		newImportCmd(a),
		newStatusCmd(a),
		newSetupCmd(a),
	)

	return root
}

func (a *app) init() error {
	if err := godotenv.Load(a.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading %s: %w", a.envFile, err)
	}

	a.logger = logging.Setup(logging.DefaultConfig())

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg
	return nil
}

// validConfig returns the config or every validation problem.
func (a *app) validConfig() (*config.Config, error) {
	if err := a.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration:\n%w", err)
	}
	return a.cfg, nil
}

// loadClassifier returns the user rule table when configured, the embedded one otherwise.
func (a *app) loadClassifier() (*classifier.Classifier, error) {
	if a.cfg.RulesFile == "" {
		return classifier.Default(), nil
	}
	c, err := classifier.LoadRules(a.cfg.RulesFile)
	if err != nil {
		return nil, fmt.Errorf("loading rules: %w", err)
	}
	a.logger.Debug("loaded classification rules", "file", a.cfg.RulesFile, "labels", len(c.Labels()))
	return c, nil
}

// openLedger opens the configured store and wraps it in a ledger.
// The returned store must be closed by the caller.
func (a *app) openLedger(ctx context.Context) (*ledger.Ledger, *classifier.Classifier, api.Store, error) {
	cfg, err := a.validConfig()
	if err != nil {
		return nil, nil, nil, err
	}

	c, err := a.loadClassifier()
	if err != nil {
		return nil, nil, nil, err
	}

	s, err := store.Open(ctx, cfg, a.logger)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("opening %s store: %w", cfg.Store, err)
	}

	l := ledger.New(s, c, ledger.Config{DefaultCurrency: cfg.Currency}, logging.Component(a.logger, "ledger"))
	return l, c, s, nil
}
