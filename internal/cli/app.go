package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/oauth2"

	"ganhos/internal/amqp"
	"ganhos/internal/auth"
	"ganhos/internal/backend"
	"ganhos/internal/cache"
	"ganhos/internal/config"
	"ganhos/internal/core"
	"ganhos/internal/home"
	"ganhos/internal/ledger"
	applog "ganhos/internal/log"
	"ganhos/internal/remote"
	"ganhos/internal/settings"
	"ganhos/internal/storage"
)

const (
	homeCacheSize = 32
	homeCacheTTL  = 5 * time.Minute
)

// App wires the client-side components around one local store and one
// remote backend.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Store    *storage.SQLiteRepository
	Settings *settings.Store
	Auth     *auth.Manager
	Backend  remote.Backend
	Vouchers *ledger.VoucherLedger
	Expenses *ledger.ExpenseLedger
	Home     home.Projector
	Notifier *amqp.Notifier

	remoteHome *home.RemoteProjector
	caches     *cache.Manager
	cleanup    backend.CleanupFunc
	broker     *amqp.Client
	unwatch    []func()
}

// NewApp opens the local store, restores settings and session, and builds
// the ledgers on the configured backend.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	repo, err := InitSQLite(logger, cfg.SQLiteDBPath)
	if err != nil {
		return nil, err
	}
	a := &App{Config: cfg, Logger: logger, Store: repo, caches: cache.NewManager()}

	a.Settings, err = settings.Load(ctx, repo)
	if err != nil {
		a.Close()
		return nil, err
	}

	// The session manager needs the backend and the backend needs the
	// session's token, so the token source reads a.Auth lazily.
	var tokens oauth2.TokenSource = backend.TokenSourceFunc(func() (*oauth2.Token, error) {
		if a.Auth == nil {
			return &oauth2.Token{}, nil
		}
		return a.Auth.Token()
	})
	bcfg, err := backend.FromAppConfig(cfg, tokens)
	if err != nil {
		a.Close()
		return nil, err
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Backend = res.Backend
	a.cleanup = res.Cleanup

	a.Auth = auth.NewManager(repo, a.Backend)
	if _, err := a.Auth.Restore(ctx); err != nil {
		logger.WarnContext(ctx, "Failed to restore session", applog.FieldComponent, applog.ComponentAuth, applog.FieldError, err)
	}

	a.Notifier = a.newNotifier(ctx)

	lcfg := ledger.Config{Settings: a.Settings, Now: time.Now}
	if a.Notifier != nil {
		lcfg.Notifier = a.Notifier
	}
	a.Vouchers = ledger.NewVoucherLedger(a.Backend, lcfg)
	a.Expenses = ledger.NewExpenseLedger(a.Backend, lcfg)

	if cfg.HomeSummarySource == config.HomeSourceServer {
		lru := cache.NewLRUCache[core.HomeSummary](homeCacheSize, homeCacheTTL)
		a.caches.Register(lru)
		a.remoteHome = home.NewRemoteProjector(a.Backend, lru)
		a.Home = a.remoteHome
	} else {
		a.Home = home.NewClientProjector(a.Vouchers)
	}
	return a, nil
}

// newNotifier returns nil when no broker is configured. A configured but
// unreachable broker still yields a notifier that parks events locally.
func (a *App) newNotifier(ctx context.Context) *amqp.Notifier {
	if a.Config.AMQPURL == "" {
		return nil
	}
	client, err := amqp.NewClient(a.Config.AMQPURL, a.Config.AMQPExchange, a.Config.AMQPQueue)
	if err != nil {
		a.Logger.WarnContext(ctx, "Failed to initialize AMQP client, events will be queued locally",
			applog.FieldComponent, applog.ComponentAMQP, applog.FieldError, err)
		return amqp.NewNotifier(nil, a.Store)
	}
	a.broker = client
	a.Logger.InfoContext(ctx, "Initialized AMQP client",
		applog.FieldComponent, applog.ComponentAMQP,
		"exchange", a.Config.AMQPExchange,
		"queue", a.Config.AMQPQueue)
	return amqp.NewNotifier(client, a.Store)
}

// Start runs the background loops: ledger reload queues, settings watchers,
// cache cleanup and outbox flushing. They stop when ctx is cancelled.
func (a *App) Start(ctx context.Context) {
	a.unwatch = append(a.unwatch,
		a.Vouchers.Watch(a.Settings),
		a.Expenses.Watch(a.Settings),
	)
	if a.remoteHome != nil {
		a.unwatch = append(a.unwatch, a.Settings.Subscribe(func(prev, next core.Settings) {
			if prev.MonthStartDay != next.MonthStartDay {
				a.remoteHome.Invalidate()
			}
		}))
		a.caches.StartCleanup(time.Minute)
	}

	go a.Vouchers.Run(ctx)
	go a.Expenses.Run(ctx)
	a.Vouchers.Trigger()
	a.Expenses.Trigger()

	if a.Notifier != nil {
		go a.flushOutbox(ctx)
	}
}

func (a *App) flushOutbox(ctx context.Context) {
	ticker := time.NewTicker(a.Config.OutboxFlushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := a.Notifier.Flush(ctx, a.Config.OutboxBatchSize)
			if err != nil {
				a.Logger.WarnContext(ctx, "Outbox flush failed", applog.FieldComponent, applog.ComponentAMQP, applog.FieldError, err)
			} else if n > 0 {
				a.Logger.InfoContext(ctx, "Flushed outbox events", applog.FieldComponent, applog.ComponentAMQP, applog.FieldRecordCount, n)
			}
		}
	}
}

// InvalidateHome drops cached server-side home summaries.
func (a *App) InvalidateHome() {
	if a.remoteHome != nil {
		a.remoteHome.Invalidate()
	}
}

// Close releases every resource the app opened.
func (a *App) Close() error {
	for _, fn := range a.unwatch {
		fn()
	}
	a.unwatch = nil
	a.caches.Stop()

	var errs []error
	if a.broker != nil {
		if err := a.broker.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close AMQP client: %w", err))
		}
	}
	if a.cleanup != nil {
		if err := a.cleanup(); err != nil {
			errs = append(errs, fmt.Errorf("close backend: %w", err))
		}
	}
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close local store: %w", err))
		}
	}
	return errors.Join(errs...)
}
