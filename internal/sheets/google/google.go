package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"ganhos/internal/core"
	applog "ganhos/internal/log"
	ports "ganhos/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Config holds the spreadsheet target and service account credentials.
// CredentialsJSON wins over CredentialsFile; when both are empty
// GOOGLE_APPLICATION_CREDENTIALS is consulted.
type Config struct {
	SpreadsheetID   string
	SheetBase       string
	CredentialsJSON string
	CredentialsFile string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetBase     string

	mu          sync.Mutex
	knownSheets map[string]bool
}

var _ ports.SummaryWriter = (*Client)(nil)

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	creds, err := loadCredentials(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewWithOptions(ctx, cfg, goption.WithCredentialsJSON(creds), goption.WithScopes(gsheet.SpreadsheetsScope))
}

// NewWithOptions creates a client with explicit API options, e.g. a custom
// endpoint and HTTP client.
func NewWithOptions(ctx context.Context, cfg Config, opts ...goption.ClientOption) (*Client, error) {
	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &Client{
		svc:           svc,
		spreadsheetID: strings.TrimSpace(cfg.SpreadsheetID),
		sheetBase:     cfg.SheetBase,
		knownSheets:   map[string]bool{},
	}, nil
}

func loadCredentials(ctx context.Context, cfg Config) ([]byte, error) {
	inline := strings.TrimSpace(cfg.CredentialsJSON)
	file := strings.TrimSpace(cfg.CredentialsFile)
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case inline != "":
		slog.InfoContext(ctx, "Using inline service account credentials", applog.FieldComponent, applog.ComponentSheets)
		return []byte(inline), nil
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		slog.InfoContext(ctx, "Read service account credentials", applog.FieldComponent, applog.ComponentSheets, "path", file, "size", len(data))
		return data, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// WritePeriodSummary replaces the report block of the report's tab, creating
// the tab on first use.
func (c *Client) WritePeriodSummary(ctx context.Context, r core.PeriodReport) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	if r.Kind == "" || r.Window.IsZero() {
		return "", errors.New("report needs a kind and a window")
	}

	name := ports.SheetName(c.sheetBase, r)
	if err := c.ensureSheet(ctx, name); err != nil {
		return "", err
	}

	clearRange := fmt.Sprintf("'%s'!A:B", name)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, clearRange, &gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("clear %s: %w", clearRange, err)
	}

	rng := fmt.Sprintf("'%s'!A1", name)
	vr := &gsheet.ValueRange{Values: reportRows(r)}
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("update %s: %w", rng, err)
	}

	slog.InfoContext(ctx, "Wrote period summary",
		applog.FieldComponent, applog.ComponentSheets,
		applog.FieldKind, r.Kind,
		applog.FieldSheetsRef, rng,
		applog.FieldRecordCount, r.Count)
	return rng, nil
}

func (c *Client) ensureSheet(ctx context.Context, name string) error {
	c.mu.Lock()
	known := c.knownSheets[name]
	c.mu.Unlock()
	if known {
		return nil
	}

	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("get spreadsheet: %w", err)
	}
	exists := false
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == name {
			exists = true
			break
		}
	}

	if !exists {
		req := &gsheet.BatchUpdateSpreadsheetRequest{Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: name}},
		}}}
		if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
			return fmt.Errorf("add sheet %q: %w", name, err)
		}
		slog.InfoContext(ctx, "Created sheet", applog.FieldComponent, applog.ComponentSheets, "sheet", name)
	}

	c.mu.Lock()
	c.knownSheets[name] = true
	c.mu.Unlock()
	return nil
}

// reportRows lays a report out as a two-column block: summary lines, a blank
// row, then one row per category.
func reportRows(r core.PeriodReport) [][]any {
	from, to := r.Window.QueryDates()
	rows := [][]any{
		{"Kind", r.Kind},
		{"Period", r.Window.Label()},
		{"Start", from},
		{"End", to},
		{"Month start day", r.MonthStartDay},
		{"Total", r.Total.Reais()},
		{"Count", r.Count},
		{"Generated at", r.GeneratedAt.UTC().Format(time.RFC3339)},
		{},
		{"Category", "Amount"},
	}
	for _, c := range r.Categories {
		rows = append(rows, []any{c.Name, c.Amount.Reais()})
	}
	return rows
}
