package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"ganhos/internal/cli"
	"ganhos/internal/core"
)

// reloader is the part of a ledger the list commands drive.
type reloader interface {
	ReloadAt(ctx context.Context, t time.Time) bool
	Reload(ctx context.Context) bool
	Err() error
	ErrMessage() string
}

// loadWindow points l at anchor (today when empty) and loads it once.
func loadWindow(ctx context.Context, l reloader, anchor string) error {
	if anchor != "" {
		t, err := time.Parse(time.DateOnly, anchor)
		if err != nil {
			return fmt.Errorf("invalid --anchor %q: want YYYY-MM-DD", anchor)
		}
		l.ReloadAt(ctx, t)
	} else {
		l.Reload(ctx)
	}
	if l.Err() != nil {
		return fmt.Errorf("%s: %w", l.ErrMessage(), l.Err())
	}
	return nil
}

func writeTable(out io.Writer, headers []string, rows [][]string) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	styled := make([]string, len(headers))
	rules := make([]string, len(headers))
	for i, h := range headers {
		styled[i] = cli.TableHeaderStyle.Render(h)
		rules[i] = strings.Repeat("─", max(len(h), 4))
	}
	if _, err := fmt.Fprintln(w, strings.Join(styled, "\t")); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if _, err := fmt.Fprintln(w, strings.Join(rules, "\t")); err != nil {
		return fmt.Errorf("failed to write separator: %w", err)
	}
	for _, row := range rows {
		if _, err := fmt.Fprintln(w, strings.Join(row, "\t")); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	return w.Flush()
}

func writeVoucherTable(out io.Writer, vouchers []core.Voucher) error {
	rows := make([][]string, 0, len(vouchers))
	for _, v := range vouchers {
		rows = append(rows, []string{v.ID, v.Date.ISO(), v.RecordCategory(), v.RequestCode, v.Start + " → " + v.Destination, v.Value.String()})
	}
	return writeTable(out, []string{"ID", "Date", "Cat", "Request", "Route", "Value"}, rows)
}

func writeTotals(out io.Writer, window core.Window, total core.Money, cats []core.CategoryAmount) {
	fmt.Fprintln(out)
	fmt.Fprintf(out, "%s %s\n", cli.BoldStyle.Render("Total:"), total)
	for _, c := range cats {
		fmt.Fprintf(out, "  %s %s\n", cli.SubtitleStyle.Render(c.Name), c.Amount)
	}
	fmt.Fprintln(out, cli.SubtitleStyle.Render(window.Label()))
}

func parseMoneyFlag(name, raw string) (core.Money, error) {
	cents, err := core.ParseDecimalToCents(raw)
	if err != nil {
		return core.Money{}, fmt.Errorf("invalid --%s %q: %w", name, raw, err)
	}
	return core.Money{Cents: cents}, nil
}

func parseDateFlag(name, raw string) (core.Date, error) {
	if raw == "" {
		t := time.Now()
		return core.NewDate(t.Year(), int(t.Month()), t.Day()), nil
	}
	d, err := core.ParseRecordDate(raw)
	if err != nil {
		return core.Date{}, fmt.Errorf("invalid --%s %q: want YYYY-MM-DD", name, raw)
	}
	return d, nil
}
