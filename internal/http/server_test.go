package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ganhos/internal/core"
	"ganhos/internal/home"
	"ganhos/internal/ledger"
	"ganhos/internal/remote"
	"ganhos/internal/remote/memory"
	"ganhos/internal/settings"
	"ganhos/internal/storage"
)

var testNow = time.Date(2024, 2, 15, 10, 0, 0, 0, time.UTC)

type fixture struct {
	srv       *Server
	remote    *memory.Store
	settings  *settings.Store
	vouchers  *ledger.VoucherLedger
	mutations int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "ganhos.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	st, err := settings.Load(ctx, repo)
	require.NoError(t, err)

	f := &fixture{remote: memory.New(), settings: st}
	now := func() time.Time { return testNow }
	cfg := ledger.Config{Settings: st, Now: now}
	f.vouchers = ledger.NewVoucherLedger(f.remote, cfg)
	expenses := ledger.NewExpenseLedger(f.remote, cfg)

	f.srv = NewServer(":0", Deps{
		Settings:      st,
		Vouchers:      f.vouchers,
		Expenses:      expenses,
		Home:          home.NewClientProjector(f.vouchers),
		AfterMutation: func() { f.mutations++ },
		Now:           now,
	})
	t.Cleanup(func() { _ = f.srv.Shutdown(context.Background()) })
	return f
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	f.srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}

const validVoucher = `{"taxNumber":"123","requestCode":"TRN-1","date":"2024-02-10","value":"42,50","start":"Centro","destination":"Aeroporto"}`

func TestHealthAndHeaders(t *testing.T) {
	f := newFixture(t)

	rr := f.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))

	rr = f.do(t, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestCreateVoucher(t *testing.T) {
	f := newFixture(t)

	rr := f.do(t, http.MethodPost, "/api/vouchers", validVoucher)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	got := decode[ledgerView[voucherView]](t, rr)
	assert.Equal(t, "voucher", got.Kind)
	assert.Equal(t, "01 fev 2024 - 29 fev 2024", got.Window.Label)
	require.Len(t, got.Records, 1)
	assert.Equal(t, 42.5, got.Records[0].Value)
	assert.Equal(t, "TRN", got.Records[0].Category)
	assert.Equal(t, 42.5, got.Total)
	assert.Equal(t, 1, f.mutations)
}

func TestCreateVoucherAcceptsJSONNumber(t *testing.T) {
	f := newFixture(t)
	body := strings.Replace(validVoucher, `"42,50"`, `12.345`, 1)

	rr := f.do(t, http.MethodPost, "/api/vouchers", body)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	got := decode[ledgerView[voucherView]](t, rr)
	assert.Equal(t, 12.35, got.Total)
}

func TestValidationFailsBeforeRemoteCall(t *testing.T) {
	f := newFixture(t)
	f.remote.FailNext(errors.New("boom"))

	rr := f.do(t, http.MethodPost, "/api/vouchers", `{"requestCode":"TRN-1","date":"2024-02-10","value":"10","start":"A","destination":"B"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	body := decode[ErrorBody](t, rr)
	assert.Equal(t, "taxNumber", body.Field)

	rr = f.do(t, http.MethodPost, "/api/vouchers", strings.Replace(validVoucher, `"42,50"`, `"-1"`, 1))
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	// The pending remote failure was never consumed by the rejected requests.
	rr = f.do(t, http.MethodPost, "/api/vouchers", validVoucher)
	assert.Equal(t, http.StatusBadGateway, rr.Code)
	assert.Equal(t, 0, f.mutations)
}

func TestRemoteFailureKeepsLastData(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/api/vouchers", validVoucher).Code)

	f.remote.FailNext(errors.New("connection reset"))
	rr := f.do(t, http.MethodPost, "/api/vouchers", validVoucher)
	require.Equal(t, http.StatusBadGateway, rr.Code)
	assert.Equal(t, "Failed to add voucher", decode[ErrorBody](t, rr).Error)

	rr = f.do(t, http.MethodGet, "/api/vouchers", "")
	got := decode[ledgerView[voucherView]](t, rr)
	assert.Len(t, got.Records, 1)
	assert.Equal(t, "Failed to add voucher", got.Error)
}

func TestUpdateAndDeleteVoucher(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/api/vouchers", validVoucher).Code)
	id := f.vouchers.Records()[0].ID

	rr := f.do(t, http.MethodPut, "/api/vouchers/"+id, `{"value":10}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	got := decode[ledgerView[voucherView]](t, rr)
	require.Len(t, got.Records, 1)
	assert.Equal(t, 10.0, got.Records[0].Value)
	assert.Equal(t, "Aeroporto", got.Records[0].Destination)

	rr = f.do(t, http.MethodGet, "/api/vouchers/"+id, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, id, decode[voucherView](t, rr).ID)

	rr = f.do(t, http.MethodDelete, "/api/vouchers/"+id, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, decode[ledgerView[voucherView]](t, rr).Records)
	assert.Equal(t, 3, f.mutations)

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/vouchers/"+id, "").Code)
}

func TestExpensesAnchorAndSummary(t *testing.T) {
	f := newFixture(t)
	rr := f.do(t, http.MethodPost, "/api/expenses", `{"value":"25","category":"food","date":"2024-01-10","description":"Almoço"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Empty(t, decode[ledgerView[expenseView]](t, rr).Records, "January is outside the active window")

	rr = f.do(t, http.MethodGet, "/api/expenses?anchor=2024-01-05", "")
	require.Equal(t, http.StatusOK, rr.Code)
	got := decode[ledgerView[expenseView]](t, rr)
	assert.Equal(t, "01 jan 2024 - 31 jan 2024", got.Window.Label)
	require.Len(t, got.Records, 1)
	assert.Equal(t, "FOOD", got.Records[0].Category)

	rr = f.do(t, http.MethodGet, "/api/expenses/summary", "")
	require.Equal(t, http.StatusOK, rr.Code)
	sum := decode[summaryView](t, rr)
	assert.Equal(t, 25.0, sum.Total)
	require.Len(t, sum.Categories, 1)
	assert.Equal(t, "FOOD", sum.Categories[0].Name)

	rr = f.do(t, http.MethodGet, "/api/expenses?anchor=januray", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestInvalidExpenseCategory(t *testing.T) {
	f := newFixture(t)
	rr := f.do(t, http.MethodPost, "/api/expenses", `{"value":"25","category":"travel","date":"2024-02-10"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Equal(t, "category", decode[ErrorBody](t, rr).Field)
}

func TestReload(t *testing.T) {
	f := newFixture(t)
	rr := f.do(t, http.MethodPost, "/api/vouchers/reload", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "idle", decode[ledgerView[voucherView]](t, rr).State)

	f.remote.FailNext(errors.New("timeout"))
	rr = f.do(t, http.MethodPost, "/api/vouchers/reload", "")
	assert.Equal(t, http.StatusBadGateway, rr.Code)
}

func TestSettings(t *testing.T) {
	f := newFixture(t)

	rr := f.do(t, http.MethodGet, "/api/settings", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 0.15, decode[settingsView](t, rr).DiscountPercentage)

	rr = f.do(t, http.MethodPut, "/api/settings", `{"monthStartDay":40}`)
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Equal(t, "monthStartDay", decode[ErrorBody](t, rr).Field)

	rr = f.do(t, http.MethodPut, "/api/settings", `{"discountPercentage":0.2,"monthStartDay":10}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	got := decode[settingsView](t, rr)
	assert.Equal(t, 0.2, got.DiscountPercentage)
	assert.Equal(t, 10, got.MonthStartDay)
	assert.Equal(t, 10, f.settings.MonthStartDay())
}

func TestHomeCards(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/api/vouchers", validVoucher).Code)

	rr := f.do(t, http.MethodGet, "/api/home", "")
	require.Equal(t, http.StatusOK, rr.Code)
	got := decode[homeView](t, rr)
	require.Len(t, got.Cards, 3)
	current := got.Cards[2]
	assert.Equal(t, 0, current.Offset)
	assert.Equal(t, 42.5, current.Gross)
	assert.Equal(t, core.NetOf(core.Money{Cents: 4250}, core.DefaultDiscountPercentage).Reais(), current.Net)
	assert.Equal(t, "01 fev 2024 - 29 fev 2024", current.DateRange)
	require.Len(t, got.Recent, 1)
	assert.Equal(t, 42.5, got.Recent[0].Value)
}

type countingExpenses struct {
	*memory.Store
	mu        sync.Mutex
	lists     int
	summaries int
}

func (c *countingExpenses) ListExpenses(ctx context.Context, q remote.Query) ([]core.Expense, error) {
	c.mu.Lock()
	c.lists++
	c.mu.Unlock()
	return c.Store.ListExpenses(ctx, q)
}

func (c *countingExpenses) CategorySummary(ctx context.Context, from, to string) (core.CategorySummary, error) {
	c.mu.Lock()
	c.summaries++
	c.mu.Unlock()
	return c.Store.CategorySummary(ctx, from, to)
}

func (c *countingExpenses) counts() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lists, c.summaries
}

func TestAnchorChangeReloadsOnceWithRunLoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "ganhos.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	st, err := settings.Load(ctx, repo)
	require.NoError(t, err)

	src := &countingExpenses{Store: memory.New()}
	require.NoError(t, src.CreateExpense(ctx, core.ExpenseInput{Value: core.Money{Cents: 2500}, Category: core.Food, Date: core.NewDate(2024, 1, 10)}))

	now := func() time.Time { return testNow }
	cfg := ledger.Config{Settings: st, Now: now}
	vouchers := ledger.NewVoucherLedger(src.Store, cfg)
	expenses := ledger.NewExpenseLedger(src, cfg)
	go func() { _ = expenses.Run(ctx) }()

	srv := NewServer(":0", Deps{Settings: st, Vouchers: vouchers, Expenses: expenses, Home: home.NewClientProjector(vouchers), Now: now})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/expenses?anchor=2024-01-05", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	got := decode[ledgerView[expenseView]](t, rr)
	assert.Equal(t, "01 jan 2024 - 31 jan 2024", got.Window.Label)
	require.Len(t, got.Records, 1, "the response carries the requested window's records")

	time.Sleep(50 * time.Millisecond)
	lists, summaries := src.counts()
	assert.Equal(t, 1, lists)
	assert.Equal(t, 1, summaries)

	// Same anchor again: no fetch at all.
	rr = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/expenses/summary?anchor=2024-01-05", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 25.0, decode[summaryView](t, rr).Total)
	time.Sleep(20 * time.Millisecond)
	lists, summaries = src.counts()
	assert.Equal(t, 1, lists)
	assert.Equal(t, 1, summaries)
}
