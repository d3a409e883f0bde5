// Package httpapi talks JSON to the remote voucher/expense service.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"ganhos/internal/core"
	"ganhos/internal/remote"
)

const (
	defaultTimeout = 15 * time.Second
	maxErrorBody   = 4096
)

var ErrMissingBaseURL = errors.New("api base url is required")

type Config struct {
	BaseURL string
	Timeout time.Duration
	// Tokens supplies the bearer token per request. A nil source, or one
	// returning an empty token, sends requests unauthenticated.
	Tokens     oauth2.TokenSource
	HTTPClient *http.Client
}

type Client struct {
	base   *url.URL
	http   *http.Client
	tokens oauth2.TokenSource
}

var _ remote.Backend = (*Client)(nil)

func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, ErrMissingBaseURL
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse api base url: %w", err)
	}
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}
	return &Client{base: base, http: hc, tokens: cfg.Tokens}, nil
}

// StaticToken wraps a fixed bearer token, e.g. one supplied by configuration.
func StaticToken(token string) oauth2.TokenSource {
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
}

func (c *Client) ListVouchers(ctx context.Context, q remote.Query) ([]core.Voucher, error) {
	var resp voucherListResponse
	if err := c.do(ctx, http.MethodGet, "/v2/voucher/getlist", listParams(q, "from", "to"), nil, &resp); err != nil {
		return nil, fmt.Errorf("list vouchers: %w", err)
	}
	out := make([]core.Voucher, 0, len(resp.Vouchers))
	for _, d := range resp.Vouchers {
		v, err := d.toCore()
		if err != nil {
			return nil, fmt.Errorf("decode vouchers: %w", err)
		}
		out = append(out, v)
	}
	return out, nil
}

func (c *Client) CreateVoucher(ctx context.Context, in core.VoucherInput) error {
	if err := c.do(ctx, http.MethodPost, "/v2/voucher/create", nil, newVoucherPayload(in), nil); err != nil {
		return fmt.Errorf("create voucher: %w", err)
	}
	return nil
}

func (c *Client) UpdateVoucher(ctx context.Context, id string, in core.VoucherInput) error {
	if err := c.do(ctx, http.MethodPut, "/v2/voucher/update/"+url.PathEscape(id), nil, newVoucherPayload(in), nil); err != nil {
		return fmt.Errorf("update voucher %s: %w", id, err)
	}
	return nil
}

func (c *Client) DeleteVoucher(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodDelete, "/v2/voucher/delete/"+url.PathEscape(id), nil, nil, nil); err != nil {
		return fmt.Errorf("delete voucher %s: %w", id, err)
	}
	return nil
}

func (c *Client) ListExpenses(ctx context.Context, q remote.Query) ([]core.Expense, error) {
	params := listParams(q, "from", "to")
	if q.Category != "" {
		params.Set("category", string(q.Category))
	}
	var resp expenseListResponse
	if err := c.do(ctx, http.MethodGet, "/expense/getlist", params, nil, &resp); err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	out := make([]core.Expense, 0, len(resp.Expenses))
	for _, d := range resp.Expenses {
		e, err := d.toCore()
		if err != nil {
			return nil, fmt.Errorf("decode expenses: %w", err)
		}
		out = append(out, e)
	}
	return out, nil
}

func (c *Client) CreateExpense(ctx context.Context, in core.ExpenseInput) error {
	if err := c.do(ctx, http.MethodPost, "/expense/create", nil, newExpensePayload(in), nil); err != nil {
		return fmt.Errorf("create expense: %w", err)
	}
	return nil
}

func (c *Client) UpdateExpense(ctx context.Context, id string, in core.ExpenseInput) error {
	if err := c.do(ctx, http.MethodPut, "/expense/update/"+url.PathEscape(id), nil, newExpensePayload(in), nil); err != nil {
		return fmt.Errorf("update expense %s: %w", id, err)
	}
	return nil
}

func (c *Client) DeleteExpense(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodDelete, "/expense/delete/"+url.PathEscape(id), nil, nil, nil); err != nil {
		return fmt.Errorf("delete expense %s: %w", id, err)
	}
	return nil
}

func (c *Client) CategorySummary(ctx context.Context, from, to string) (core.CategorySummary, error) {
	params := url.Values{}
	if from != "" {
		params.Set("startDate", from)
	}
	if to != "" {
		params.Set("endDate", to)
	}
	var resp categorySummaryResponse
	if err := c.do(ctx, http.MethodGet, "/expense/summary/categories", params, nil, &resp); err != nil {
		return core.CategorySummary{}, fmt.Errorf("expense category summary: %w", err)
	}
	return core.CategorySummary{Summary: toMoneyMap(resp.Summary), Total: core.MoneyFromFloat(resp.Total)}, nil
}

func (c *Client) HomeSummary(ctx context.Context, monthStartDay int) (core.HomeSummary, error) {
	params := url.Values{}
	params.Set("monthStartDay", strconv.Itoa(monthStartDay))
	var resp homeSummaryResponse
	if err := c.do(ctx, http.MethodGet, "/v2/voucher/home-summary", params, nil, &resp); err != nil {
		return core.HomeSummary{}, fmt.Errorf("home summary: %w", err)
	}
	out := core.HomeSummary{
		Periods: make([]core.PeriodSummary, 0, len(resp.Periods)),
		Recent:  make([]core.Voucher, 0, len(resp.RecentVouchers)),
	}
	for _, p := range resp.Periods {
		out.Periods = append(out.Periods, core.PeriodSummary{
			Label:     p.Title,
			DateRange: p.DateRange,
			Offset:    p.MonthOffset,
			Gross:     core.MoneyFromFloat(p.Value),
		})
	}
	for _, d := range resp.RecentVouchers {
		v, err := d.toCore()
		if err != nil {
			return core.HomeSummary{}, fmt.Errorf("decode recent vouchers: %w", err)
		}
		out.Recent = append(out.Recent, v)
	}
	return out, nil
}

func (c *Client) EarningsStatistics(ctx context.Context, from, to string) (core.EarningsStatistics, error) {
	params := url.Values{}
	if from != "" {
		params.Set("from", from)
	}
	if to != "" {
		params.Set("to", to)
	}
	var resp earningsResponse
	if err := c.do(ctx, http.MethodGet, "/v2/voucher/statistics/earnings", params, nil, &resp); err != nil {
		return core.EarningsStatistics{}, fmt.Errorf("earnings statistics: %w", err)
	}
	stats := core.EarningsStatistics{
		Points: make([]core.EarningsPoint, 0, len(resp.Data)),
		Summary: core.EarningsSummary{
			TotalEarnings: core.MoneyFromFloat(resp.Summary.TotalEarnings),
			VoucherCount:  resp.Summary.VoucherCount,
			IntervalDays:  resp.Summary.IntervalDays,
		},
	}
	stats.Summary.From, _ = core.ParseRecordDate(resp.Summary.Period.From)
	stats.Summary.To, _ = core.ParseRecordDate(resp.Summary.Period.To)
	for _, p := range resp.Data {
		d, err := core.ParseRecordDate(p.Date)
		if err != nil {
			return core.EarningsStatistics{}, fmt.Errorf("decode earnings point: %w", err)
		}
		stats.Points = append(stats.Points, core.EarningsPoint{Date: d, Value: core.MoneyFromFloat(p.Value), Count: p.Count})
	}
	return stats, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (remote.LoginResult, error) {
	var resp loginResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", nil, loginRequest{Email: email, Password: password}, &resp); err != nil {
		return remote.LoginResult{}, fmt.Errorf("login: %w", err)
	}
	return remote.LoginResult{Code: resp.Code, Message: resp.Message, Token: resp.Token, User: resp.User}, nil
}

func (c *Client) Register(ctx context.Context, req remote.RegisterRequest) (string, error) {
	var resp messageResponse
	if err := c.do(ctx, http.MethodPost, "/auth/register", nil, req, &resp); err != nil {
		return "", fmt.Errorf("register: %w", err)
	}
	return resp.Message, nil
}

func listParams(q remote.Query, fromKey, toKey string) url.Values {
	params := url.Values{}
	params.Set("offset", strconv.Itoa(q.Offset))
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.From != "" {
		params.Set(fromKey, q.From)
	}
	if q.To != "" {
		params.Set(toKey, q.To)
	}
	return params
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values, body, out any) error {
	u := *c.base
	u.Path = c.base.Path + path
	if len(params) > 0 {
		u.RawQuery = params.Encode()
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if err := c.authorize(req); err != nil {
		return err
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		slog.ErrorContext(ctx, "API request failed", "method", method, "path", path, "error", err)
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	slog.DebugContext(ctx, "API response",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &remote.StatusError{Code: resp.StatusCode, Body: string(raw)}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) authorize(req *http.Request) error {
	if c.tokens == nil {
		return nil
	}
	tok, err := c.tokens.Token()
	if err != nil {
		return fmt.Errorf("get bearer token: %w", err)
	}
	if tok != nil && tok.AccessToken != "" {
		tok.SetAuthHeader(req)
	}
	return nil
}

func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}
