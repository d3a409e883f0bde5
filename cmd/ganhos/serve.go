package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"ganhos/internal/cli"
	apphttp "ganhos/internal/http"
	applog "ganhos/internal/log"
)

const shutdownTimeout = 30 * time.Second

func serveCmd() *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the ledgers as a local JSON API",
		Long: `Start the dashboard API. The voucher and expense ledgers reload in the
background, settings changes move their billing periods, and mutation events
are published to the broker when AMQP_URL is set.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if port == "" {
				port = cfg.Port
			}
			return withApp(cmd, func(ctx context.Context, app *cli.App) error {
				return runServe(ctx, app, port)
			})
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "listen port (default: PORT)")
	return cmd
}

func runServe(ctx context.Context, app *cli.App, port string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	app.Start(ctx)

	srv := apphttp.NewServer(":"+port, apphttp.Deps{
		Settings:      app.Settings,
		Vouchers:      app.Vouchers,
		Expenses:      app.Expenses,
		Home:          app.Home,
		Logger:        applog.New(applog.Config{Handler: logger.Handler(), Component: applog.ComponentApp}),
		AfterMutation: app.InvalidateHome,
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting ganhos dashboard",
			"port", port,
			"backend", cfg.DataBackend,
			"home_source", cfg.HomeSummarySource)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok && err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", applog.FieldError, err)
		return err
	}
	fmt.Fprintln(os.Stderr, cli.FormatSuccess("Server stopped gracefully"))
	return nil
}
