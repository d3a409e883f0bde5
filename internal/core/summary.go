package core

import (
	"errors"
	"math"
	"time"
)

const (
	DefaultDiscountPercentage = 0.15
	DefaultMonthStartDay      = 1
)

var ErrInvalidDiscount = errors.New("discount percentage must be between 0 and 1")

// Settings are the user preferences kept in local storage.
type Settings struct {
	DiscountPercentage float64 `json:"discountPercentage"`
	MonthStartDay      int     `json:"monthStartDay"`
}

func DefaultSettings() Settings {
	return Settings{DiscountPercentage: DefaultDiscountPercentage, MonthStartDay: DefaultMonthStartDay}
}

func (s Settings) Validate() error {
	if math.IsNaN(s.DiscountPercentage) || s.DiscountPercentage < 0 || s.DiscountPercentage > 1 {
		return &ValidationError{Field: "discountPercentage", Message: ErrInvalidDiscount.Error()}
	}
	if s.MonthStartDay < MinStartDay || s.MonthStartDay > MaxStartDay {
		return &ValidationError{Field: "monthStartDay", Message: "month start day must be between 1 and 31"}
	}
	return nil
}

// Net applies the discount to a gross amount.
func (s Settings) Net(gross Money) Money {
	return NetOf(gross, s.DiscountPercentage)
}

// NetOf returns round(gross * (1 - discount)) in cents.
func NetOf(gross Money, discount float64) Money {
	return Money{Cents: int64(math.Round(float64(gross.Cents) * (1 - discount)))}
}

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount Money
}

// CategorySummary is the server-side expense breakdown for a window.
type CategorySummary struct {
	Summary map[string]Money
	Total   Money
}

// EarningsPoint is one bucket of the earnings chart.
type EarningsPoint struct {
	Date  Date
	Value Money
	Count int
}

type EarningsSummary struct {
	TotalEarnings Money
	VoucherCount  int
	From          Date
	To            Date
	IntervalDays  int
}

// EarningsStatistics is the bucketed earnings series returned by the statistics endpoint.
type EarningsStatistics struct {
	Points  []EarningsPoint
	Summary EarningsSummary
}

// PeriodSummary is one card of the home carousel.
type PeriodSummary struct {
	Label     string
	DateRange string
	Offset    int
	Window    Window
	Gross     Money
}

func (p PeriodSummary) Net(discount float64) Money {
	return NetOf(p.Gross, discount)
}

// RecentVoucherLimit is how many vouchers the home screen lists below the carousel.
const RecentVoucherLimit = 5

// HomeSummary is the home carousel plus the most recent vouchers.
type HomeSummary struct {
	Periods []PeriodSummary
	Recent  []Voucher
}

// PeriodReport is the aggregated view of one record kind over one custom
// period, as exported to the spreadsheet.
type PeriodReport struct {
	Kind          string
	Window        Window
	MonthStartDay int
	Total         Money
	Count         int
	Categories    []CategoryAmount
	GeneratedAt   time.Time
}

// NewPeriodReport builds a report from an aggregation.
func NewPeriodReport[R Record](kind string, startDay int, agg Aggregation[R], now time.Time) PeriodReport {
	return PeriodReport{
		Kind:          kind,
		Window:        agg.Window,
		MonthStartDay: startDay,
		Total:         agg.Total,
		Count:         len(agg.Filtered),
		Categories:    agg.Categories(),
		GeneratedAt:   now.UTC(),
	}
}
