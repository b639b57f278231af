package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/ArionMiles/fintrack/pkg/httpapi"
	"github.com/ArionMiles/fintrack/pkg/logging"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(a *app) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			l, c, s, err := a.openLedger(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			if listen == "" {
				listen = a.cfg.Listen
			}

			handler := httpapi.NewHandler(l, c, c.Labels(), logging.Component(a.logger, "http"))
			server := &http.Server{
				Addr:              listen,
				Handler:           handler.Router(),
				ReadHeaderTimeout: 10 * time.Second,
				ReadTimeout:       30 * time.Second,
				WriteTimeout:      30 * time.Second,
				IdleTimeout:       2 * time.Minute,
			}

			errCh := make(chan error, 1)
			go func() {
				a.logger.Info("starting HTTP server", "address", listen, "store", a.cfg.Store)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			a.logger.Info("shutting down HTTP server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				return err
			}
			a.logger.Info("HTTP server stopped")
			return nil
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "listen address, defaults to FINTRACK_LISTEN")
	return cmd
}
