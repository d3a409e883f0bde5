package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"time"

	"golang.org/x/oauth2"

	"ganhos/internal/amqp"
	"ganhos/internal/auth"
	"ganhos/internal/backend"
	"ganhos/internal/cli"
	"ganhos/internal/config"
	applog "ganhos/internal/log"
	gsheet "ganhos/internal/sheets/google"
	"ganhos/internal/settings"
	"ganhos/internal/worker"
)

const shutdownTimeout = 30 * time.Second

func main() {
	configFile := flag.String("config", "", "config file (default: ./ganhos.yaml when present)")
	flag.Parse()

	cli.LoadEnvFile()

	cfg, err := config.Load(*configFile)
	if err != nil {
		slog.Error("Failed to load configuration", applog.FieldError, err)
		os.Exit(1)
	}
	logger := cli.SetupLogger(cfg.LogLevel, cfg.LogFormat)
	logger.Info("Starting ganhos-worker")

	if err := errors.Join(cfg.Validate(), cfg.ValidateWorker()); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("Worker stopped with error", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, done := cli.GracefulShutdown(logger, shutdownTimeout, nil)

	// The local store holds the settings and the session written by the CLI.
	repo, err := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	if err != nil {
		return err
	}
	defer repo.Close()

	prefs, err := settings.Load(ctx, repo)
	if err != nil {
		return err
	}

	var session *auth.Manager
	tokens := backend.TokenSourceFunc(func() (*oauth2.Token, error) {
		if session == nil {
			return &oauth2.Token{}, nil
		}
		return session.Token()
	})
	bcfg, err := backend.FromAppConfig(cfg, tokens)
	if err != nil {
		return err
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return err
	}
	if res.Cleanup != nil {
		defer res.Cleanup()
	}
	session = auth.NewManager(repo, res.Backend)
	if _, err := session.Restore(ctx); err != nil {
		logger.Warn("No usable session, requests go out with API_TOKEN only", applog.FieldComponent, applog.ComponentAuth, applog.FieldError, err)
	}

	sheetsClient, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetBase:       cfg.GoogleSheetName,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		return err
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		return err
	}
	defer amqpClient.Close()

	exporter := worker.NewExportWorker(res.Backend, res.Backend, sheetsClient)

	// Catch up on the current periods in case events were missed while down.
	startupCtx, startupCancel := context.WithTimeout(ctx, 2*time.Minute)
	if err := exporter.ExportCurrent(startupCtx, prefs.MonthStartDay()); err != nil {
		logger.Error("Startup export failed", applog.FieldComponent, applog.ComponentWorker, applog.FieldError, err)
	}
	startupCancel()

	if err := amqpClient.ConsumeLedgerEvents(ctx, exporter.HandleEvent); !errors.Is(err, context.Canceled) {
		return err
	}
	cli.WaitForShutdown(ctx, done)
	return nil
}
