// Package memory is an in-process stand-in for the remote service, used as
// the development backend and by tests.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"ganhos/internal/core"
	"ganhos/internal/remote"
)

const (
	tokenTTL     = 24 * time.Hour
	intervalDays = 1
)

var homeOffsets = []int{-2, -1, 0}

type Store struct {
	mu       sync.Mutex
	vouchers []core.Voucher
	expenses []core.Expense
	users    map[string]account
	nextID   int
	failNext error
	secret   []byte
	now      func() time.Time
}

type account struct {
	user     remote.User
	password string
}

var _ remote.Backend = (*Store)(nil)

func New() *Store {
	return &Store{
		users:  make(map[string]account),
		secret: []byte("ganhos-memory"),
		now:    time.Now,
	}
}

type seedVoucher struct {
	ID          string  `json:"id"`
	TaxNumber   string  `json:"taxNumber"`
	RequestCode string  `json:"requestCode"`
	Date        string  `json:"date"`
	Value       float64 `json:"value"`
	Start       string  `json:"start"`
	Destination string  `json:"destination"`
}

type seedExpense struct {
	ID            string  `json:"id"`
	Value         float64 `json:"value"`
	Category      string  `json:"category"`
	Date          string  `json:"date"`
	Description   string  `json:"description"`
	PaymentMethod string  `json:"paymentMethod"`
}

// NewFromFiles seeds the store from vouchers.json and expenses.json in base.
// Missing files leave the store empty.
func NewFromFiles(base string) (*Store, error) {
	s := New()
	var vs []seedVoucher
	if err := readJSON(filepath.Join(base, "vouchers.json"), &vs); err != nil {
		return nil, err
	}
	for _, v := range vs {
		d, err := core.ParseRecordDate(v.Date)
		if err != nil {
			return nil, fmt.Errorf("seed voucher %s: %w", v.ID, err)
		}
		s.vouchers = append(s.vouchers, core.Voucher{
			ID: s.idOr(v.ID), TaxNumber: v.TaxNumber, RequestCode: v.RequestCode, Date: d,
			Value: core.MoneyFromFloat(v.Value), Start: v.Start, Destination: v.Destination,
		})
	}
	var es []seedExpense
	if err := readJSON(filepath.Join(base, "expenses.json"), &es); err != nil {
		return nil, err
	}
	for _, e := range es {
		d, err := core.ParseRecordDate(e.Date)
		if err != nil {
			return nil, fmt.Errorf("seed expense %s: %w", e.ID, err)
		}
		cat, err := core.ParseExpenseCategory(e.Category)
		if err != nil {
			return nil, fmt.Errorf("seed expense %s: %w", e.ID, err)
		}
		s.expenses = append(s.expenses, core.Expense{
			ID: s.idOr(e.ID), Value: core.MoneyFromFloat(e.Value), Category: cat, Date: d,
			Description: e.Description, PaymentMethod: e.PaymentMethod,
		})
	}
	return s, nil
}

func readJSON(path string, v any) error {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read seed %s: %w", path, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("parse seed %s: %w", path, err)
	}
	return nil
}

// FailNext makes the next call return err.
func (s *Store) FailNext(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = err
}

// SetClock overrides the time source used for home summaries and tokens.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Store) takeFailure() error {
	err := s.failNext
	s.failNext = nil
	return err
}

func (s *Store) idOr(id string) string {
	if id != "" {
		return id
	}
	s.nextID++
	return "mem-" + strconv.Itoa(s.nextID)
}

func notFound(what string) error {
	return &remote.StatusError{Code: http.StatusNotFound, Body: fmt.Sprintf(`{"message":"No %s found"}`, what)}
}

func inRange(d core.Date, q remote.Query) bool {
	iso := d.ISO()
	if q.From != "" && iso < q.From {
		return false
	}
	if q.To != "" && iso > q.To {
		return false
	}
	return true
}

func page[T any](items []T, q remote.Query) []T {
	if q.Offset > 0 {
		if q.Offset >= len(items) {
			return nil
		}
		items = items[q.Offset:]
	}
	if q.Limit > 0 && q.Limit < len(items) {
		items = items[:q.Limit]
	}
	return items
}

func (s *Store) ListVouchers(_ context.Context, q remote.Query) ([]core.Voucher, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return nil, err
	}
	var out []core.Voucher
	for _, v := range s.vouchers {
		if inRange(v.Date, q) {
			out = append(out, v)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date.Time) })
	out = page(out, q)
	if len(out) == 0 {
		return nil, notFound("vouchers")
	}
	return out, nil
}

func (s *Store) CreateVoucher(_ context.Context, in core.VoucherInput) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return err
	}
	s.vouchers = append(s.vouchers, voucherFrom(s.idOr(""), in))
	return nil
}

func (s *Store) UpdateVoucher(_ context.Context, id string, in core.VoucherInput) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return err
	}
	for i := range s.vouchers {
		if s.vouchers[i].ID == id {
			s.vouchers[i] = voucherFrom(id, in)
			return nil
		}
	}
	return notFound("voucher")
}

func (s *Store) DeleteVoucher(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return err
	}
	for i := range s.vouchers {
		if s.vouchers[i].ID == id {
			s.vouchers = append(s.vouchers[:i], s.vouchers[i+1:]...)
			return nil
		}
	}
	return notFound("voucher")
}

func voucherFrom(id string, in core.VoucherInput) core.Voucher {
	return core.Voucher{
		ID: id, TaxNumber: in.TaxNumber, RequestCode: in.RequestCode, Date: in.Date,
		Value: in.Value, Start: in.Start, Destination: in.Destination,
	}
}

func (s *Store) ListExpenses(_ context.Context, q remote.Query) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return nil, err
	}
	var out []core.Expense
	for _, e := range s.expenses {
		if !inRange(e.Date, q) {
			continue
		}
		if q.Category != "" && e.Category != q.Category {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date.Time) })
	out = page(out, q)
	if len(out) == 0 {
		return nil, notFound("expenses")
	}
	return out, nil
}

func (s *Store) CreateExpense(_ context.Context, in core.ExpenseInput) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return err
	}
	now := s.now().UTC()
	e := expenseFrom(s.idOr(""), in)
	e.CreatedAt, e.UpdatedAt = now, now
	s.expenses = append(s.expenses, e)
	return nil
}

func (s *Store) UpdateExpense(_ context.Context, id string, in core.ExpenseInput) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return err
	}
	for i := range s.expenses {
		if s.expenses[i].ID == id {
			e := expenseFrom(id, in)
			e.UserID, e.CreatedAt, e.UpdatedAt = s.expenses[i].UserID, s.expenses[i].CreatedAt, s.now().UTC()
			s.expenses[i] = e
			return nil
		}
	}
	return notFound("expense")
}

func (s *Store) DeleteExpense(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return err
	}
	for i := range s.expenses {
		if s.expenses[i].ID == id {
			s.expenses = append(s.expenses[:i], s.expenses[i+1:]...)
			return nil
		}
	}
	return notFound("expense")
}

func expenseFrom(id string, in core.ExpenseInput) core.Expense {
	return core.Expense{
		ID: id, Value: in.Value, Category: in.Category, Date: in.Date,
		Description: in.Description, PaymentMethod: in.PaymentMethod,
	}
}

func (s *Store) CategorySummary(_ context.Context, from, to string) (core.CategorySummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return core.CategorySummary{}, err
	}
	q := remote.Query{From: from, To: to}
	sum := core.CategorySummary{Summary: map[string]core.Money{}}
	for _, e := range s.expenses {
		if !inRange(e.Date, q) {
			continue
		}
		k := string(e.Category)
		sum.Summary[k] = sum.Summary[k].Add(e.Value)
		sum.Total = sum.Total.Add(e.Value)
	}
	if len(sum.Summary) == 0 {
		return core.CategorySummary{}, notFound("expenses")
	}
	return sum, nil
}

// HomeSummary mirrors the server: the current custom period and the two
// before it, plus the most recent vouchers.
func (s *Store) HomeSummary(_ context.Context, monthStartDay int) (core.HomeSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return core.HomeSummary{}, err
	}
	if len(s.vouchers) == 0 {
		return core.HomeSummary{}, notFound("vouchers")
	}
	today := s.now().UTC()
	out := core.HomeSummary{}
	for _, off := range homeOffsets {
		w := core.PeriodAt(today, monthStartDay, off)
		agg := core.Aggregate(s.vouchers, w)
		out.Periods = append(out.Periods, core.PeriodSummary{
			Label:     "Referente aos vouchers de",
			DateRange: w.Label(),
			Offset:    off,
			Window:    w,
			Gross:     agg.Total,
		})
	}
	out.Recent = core.Newest(s.vouchers, core.RecentVoucherLimit)
	return out, nil
}

// EarningsStatistics buckets vouchers per day in [from, to].
func (s *Store) EarningsStatistics(_ context.Context, from, to string) (core.EarningsStatistics, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return core.EarningsStatistics{}, err
	}
	q := remote.Query{From: from, To: to}
	byDay := map[string]*core.EarningsPoint{}
	stats := core.EarningsStatistics{Summary: core.EarningsSummary{IntervalDays: intervalDays}}
	for _, v := range s.vouchers {
		if !inRange(v.Date, q) {
			continue
		}
		p, ok := byDay[v.Date.ISO()]
		if !ok {
			p = &core.EarningsPoint{Date: v.Date}
			byDay[v.Date.ISO()] = p
		}
		p.Value = p.Value.Add(v.Value)
		p.Count++
		stats.Summary.TotalEarnings = stats.Summary.TotalEarnings.Add(v.Value)
		stats.Summary.VoucherCount++
	}
	for _, p := range byDay {
		stats.Points = append(stats.Points, *p)
	}
	sort.Slice(stats.Points, func(i, j int) bool { return stats.Points[i].Date.Before(stats.Points[j].Date.Time) })
	stats.Summary.From, _ = core.ParseRecordDate(from)
	stats.Summary.To, _ = core.ParseRecordDate(to)
	return stats, nil
}

func (s *Store) Register(_ context.Context, req remote.RegisterRequest) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return "", err
	}
	if req.Email == "" || req.Password == "" {
		return "", &remote.StatusError{Code: http.StatusBadRequest, Body: `{"message":"email and password are required"}`}
	}
	if req.Password != req.ConfirmPassword {
		return "", &remote.StatusError{Code: http.StatusBadRequest, Body: `{"message":"passwords do not match"}`}
	}
	if _, ok := s.users[req.Email]; ok {
		return "", &remote.StatusError{Code: http.StatusConflict, Body: `{"message":"user already exists"}`}
	}
	s.users[req.Email] = account{
		user:     remote.User{ID: s.idOr(""), Name: req.Name, Email: req.Email, CPF: req.CPF, FirstName: firstName(req.Name)},
		password: req.Password,
	}
	return "User registered successfully", nil
}

func (s *Store) Login(_ context.Context, email, password string) (remote.LoginResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return remote.LoginResult{}, err
	}
	acc, ok := s.users[email]
	if !ok || acc.password != password {
		return remote.LoginResult{}, &remote.StatusError{Code: http.StatusUnauthorized, Body: `{"message":"invalid credentials"}`}
	}
	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   acc.user.ID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return remote.LoginResult{}, fmt.Errorf("sign token: %w", err)
	}
	return remote.LoginResult{Code: "200", Message: "Login successful", Token: token, User: acc.user}, nil
}

func firstName(name string) string {
	for i, r := range name {
		if r == ' ' {
			return name[:i]
		}
	}
	return name
}
