package http

import (
	"time"

	"ganhos/internal/core"
	"ganhos/internal/home"
	"ganhos/internal/ledger"
)

type windowView struct {
	Start string `json:"start"`
	End   string `json:"end"`
	Label string `json:"label"`
}

func newWindowView(w core.Window) windowView {
	from, to := w.QueryDates()
	return windowView{Start: from, End: to, Label: w.Label()}
}

type categoryView struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
	Cents  int64   `json:"cents"`
}

type voucherView struct {
	ID          string  `json:"id"`
	TaxNumber   string  `json:"taxNumber"`
	RequestCode string  `json:"requestCode"`
	Category    string  `json:"category"`
	Date        string  `json:"date"`
	Value       float64 `json:"value"`
	Formatted   string  `json:"formatted"`
	Start       string  `json:"start"`
	Destination string  `json:"destination"`
}

func newVoucherView(v core.Voucher) voucherView {
	return voucherView{
		ID:          v.ID,
		TaxNumber:   v.TaxNumber,
		RequestCode: v.RequestCode,
		Category:    v.RecordCategory(),
		Date:        v.Date.ISO(),
		Value:       v.Value.Reais(),
		Formatted:   v.Value.String(),
		Start:       v.Start,
		Destination: v.Destination,
	}
}

func newVoucherViews(vs []core.Voucher) []voucherView {
	out := make([]voucherView, 0, len(vs))
	for _, v := range vs {
		out = append(out, newVoucherView(v))
	}
	return out
}

type expenseView struct {
	ID            string     `json:"id"`
	Value         float64    `json:"value"`
	Formatted     string     `json:"formatted"`
	Category      string     `json:"category"`
	Date          string     `json:"date"`
	Description   string     `json:"description"`
	PaymentMethod string     `json:"paymentMethod,omitempty"`
	CreatedAt     *time.Time `json:"createdAt,omitempty"`
	UpdatedAt     *time.Time `json:"updatedAt,omitempty"`
}

func newExpenseView(e core.Expense) expenseView {
	v := expenseView{
		ID:            e.ID,
		Value:         e.Value.Reais(),
		Formatted:     e.Value.String(),
		Category:      string(e.Category),
		Date:          e.Date.ISO(),
		Description:   e.Description,
		PaymentMethod: e.PaymentMethod,
	}
	if !e.CreatedAt.IsZero() {
		v.CreatedAt = &e.CreatedAt
	}
	if !e.UpdatedAt.IsZero() {
		v.UpdatedAt = &e.UpdatedAt
	}
	return v
}

// ledgerView is the dashboard payload of one ledger: the records of the
// active window with their totals, plus the loading state.
type ledgerView[V any] struct {
	Kind       string         `json:"kind"`
	Window     windowView     `json:"window"`
	State      string         `json:"state"`
	Error      string         `json:"error,omitempty"`
	Total      float64        `json:"total"`
	Formatted  string         `json:"formatted"`
	Count      int            `json:"count"`
	Categories []categoryView `json:"categories"`
	Records    []V            `json:"records"`
}

func newLedgerView[R core.Record, V any](kind string, l recordLedger[R], agg core.Aggregation[R], conv func(R) V) ledgerView[V] {
	out := ledgerView[V]{
		Kind:       kind,
		Window:     newWindowView(agg.Window),
		State:      l.State().String(),
		Error:      l.ErrMessage(),
		Total:      agg.Total.Reais(),
		Formatted:  agg.Total.String(),
		Count:      len(agg.Filtered),
		Categories: categoryViews(agg.Categories()),
		Records:    make([]V, 0, len(agg.Filtered)),
	}
	for _, r := range agg.Filtered {
		out.Records = append(out.Records, conv(r))
	}
	return out
}

func categoryViews(cats []core.CategoryAmount) []categoryView {
	out := make([]categoryView, 0, len(cats))
	for _, c := range cats {
		out = append(out, categoryView{Name: c.Name, Amount: c.Amount.Reais(), Cents: c.Amount.Cents})
	}
	return out
}

type summaryView struct {
	Window     windowView     `json:"window"`
	Total      float64        `json:"total"`
	Categories []categoryView `json:"categories"`
}

func newSummaryView(w core.Window, s core.CategorySummary) summaryView {
	agg := core.Aggregation[core.Expense]{Breakdown: s.Summary}
	return summaryView{
		Window:     newWindowView(w),
		Total:      s.Total.Reais(),
		Categories: categoryViews(agg.Categories()),
	}
}

type cardView struct {
	Label     string     `json:"label"`
	DateRange string     `json:"dateRange"`
	Offset    int        `json:"offset"`
	Window    windowView `json:"window"`
	Gross     float64    `json:"gross"`
	Net       float64    `json:"net"`
	Formatted string     `json:"formatted"`
}

func newCardViews(cards []home.Card) []cardView {
	out := make([]cardView, 0, len(cards))
	for _, c := range cards {
		out = append(out, cardView{
			Label:     c.Label,
			DateRange: c.DateRange,
			Offset:    c.Offset,
			Window:    newWindowView(c.Window),
			Gross:     c.Gross.Reais(),
			Net:       c.Net.Reais(),
			Formatted: c.Net.String(),
		})
	}
	return out
}

type settingsView struct {
	DiscountPercentage float64 `json:"discountPercentage"`
	MonthStartDay      int     `json:"monthStartDay"`
}

func newSettingsView(s core.Settings) settingsView {
	return settingsView{DiscountPercentage: s.DiscountPercentage, MonthStartDay: s.MonthStartDay}
}

var _ recordLedger[core.Voucher] = (*ledger.VoucherLedger)(nil)
