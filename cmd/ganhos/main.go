package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"ganhos/internal/cli"
	"ganhos/internal/config"
)

var (
	cfgFile string
	cfg     *config.Config
	logger  *slog.Logger
	version = "dev"

	rootCmd = &cobra.Command{
		Use:   "ganhos",
		Short: "Track vouchers and expenses per billing period",
		Long: `ganhos keeps earned vouchers and personal expenses held by a remote service,
totals them per custom billing month and shows the net earnings of the last periods.`,
		SilenceUsage:      true,
		PersistentPreRunE: initConfig,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./ganhos.yaml when present)")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(vouchersCmd())
	rootCmd.AddCommand(expensesCmd())
	rootCmd.AddCommand(homeCmd())
	rootCmd.AddCommand(settingsCmd())
	rootCmd.AddCommand(loginCmd(), logoutCmd(), registerCmd(), whoamiCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(versionCmd())
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		slog.Info("Received interrupt signal, shutting down gracefully...")
		cancel()
	}()

	err := rootCmd.ExecuteContext(ctx)
	cancel()

	if err != nil {
		fmt.Fprintln(os.Stderr, cli.FormatError(err.Error()))
		os.Exit(1)
	}
}

func initConfig(_ *cobra.Command, _ []string) error {
	cli.LoadEnvFile()

	c, err := cli.LoadAndValidateConfig(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg = c
	logger = cli.SetupLogger(cfg.LogLevel, cfg.LogFormat)
	return nil
}

// withApp opens the app for one command and closes it afterwards.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, app *cli.App) error) error {
	ctx := cmd.Context()
	app, err := cli.NewApp(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	defer func() {
		if closeErr := app.Close(); closeErr != nil {
			slog.Error("failed to close app", "error", closeErr)
		}
	}()
	return fn(ctx, app)
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Println("ganhos " + version)
		},
	}
}
