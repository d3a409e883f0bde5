package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"ganhos/internal/core"
	"ganhos/internal/home"
	"ganhos/internal/ledger"
	applog "ganhos/internal/log"
	"ganhos/internal/middleware/ratelimit"
	"ganhos/internal/middleware/security"
	"ganhos/internal/middleware/trace"
	"ganhos/internal/settings"
)

const (
	readHeaderTimeout = 5 * time.Second
	writeTimeout      = 60 * time.Second
	idleTimeout       = 120 * time.Second
)

// Deps are the components the dashboard exposes.
type Deps struct {
	Settings *settings.Store
	Vouchers *ledger.VoucherLedger
	Expenses *ledger.ExpenseLedger
	Home     home.Projector
	Logger   *applog.Logger
	// AfterMutation runs after every successful create, update or delete.
	AfterMutation func()
	// MutationsPerMinute caps mutating requests per client; 0 uses the default.
	MutationsPerMinute int
	Now                func() time.Time
}

type Server struct {
	http.Server
	deps    Deps
	logger  *applog.Logger
	slog    *applog.StructuredLogger
	tracer  *trace.Middleware
	limiter *ratelimit.Limiter
}

// NewServer builds the dashboard API on addr.
func NewServer(addr string, deps Deps) *Server {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = applog.New(applog.DefaultConfig())
	}
	logger := deps.Logger.WithComponent(applog.ComponentHTTP)
	ips := security.NewClientIPExtractor()

	s := &Server{
		deps:    deps,
		logger:  logger,
		slog:    applog.NewStructuredLogger(logger),
		tracer:  trace.NewMiddleware(ips.ExtractClientIP),
		limiter: ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: deps.MutationsPerMinute}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/settings", s.handleGetSettings)
	mux.HandleFunc("PUT /api/settings", s.handleUpdateSettings)
	mux.HandleFunc("GET /api/home", s.handleHome)

	vouchers := &recordHandlers[core.Voucher, core.VoucherInput, voucherView]{
		kind:   ledger.KindVoucher,
		ledger: deps.Vouchers,
		parse:  ParseVoucherInput,
		input:  core.Voucher.Input,
		value:  func(in core.VoucherInput) core.Money { return in.Value },
		view:   newVoucherView,
		server: s,
	}
	vouchers.register(mux, "/api/vouchers")

	expenses := &recordHandlers[core.Expense, core.ExpenseInput, expenseView]{
		kind:   ledger.KindExpense,
		ledger: deps.Expenses,
		parse:  ParseExpenseInput,
		input:  core.Expense.Input,
		value:  func(in core.ExpenseInput) core.Money { return in.Value },
		view:   newExpenseView,
		server: s,
	}
	expenses.register(mux, "/api/expenses")
	mux.HandleFunc("GET /api/expenses/summary", s.handleExpenseSummary)

	limited := s.limiter.Middleware(ips.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded").Write(w)
	})
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())

	var handler http.Handler = mux
	handler = limited(handler)
	handler = headers.Middleware(handler)
	handler = trace.LoggerMiddleware(logger)(handler)
	handler = s.tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}
	return s
}

// Shutdown stops accepting requests and releases the limiter.
func (s *Server) Shutdown(ctx context.Context) error {
	s.limiter.Stop()
	err := s.Server.Shutdown(ctx)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Metrics returns the request counters collected by the trace middleware.
func (s *Server) Metrics() trace.Metrics {
	return s.tracer.GetMetrics()
}

func (s *Server) afterMutation() {
	if s.deps.AfterMutation != nil {
		s.deps.AfterMutation()
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().JSON(map[string]string{"status": "ok"}).Write(w)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.Settings == nil || s.deps.Vouchers == nil || s.deps.Expenses == nil {
		ErrorResponse(http.StatusServiceUnavailable, "not ready").Write(w)
		return
	}
	NewJSONResponse().JSON(map[string]string{"status": "ready"}).Write(w)
}
