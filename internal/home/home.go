// Package home projects voucher earnings onto several billing periods at
// once, for the home carousel.
package home

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"ganhos/internal/cache"
	"ganhos/internal/core"
	applog "ganhos/internal/log"
	"ganhos/internal/remote"
)

const PeriodTitle = "Referente aos vouchers de"

// DefaultOffsets are the two previous periods and the current one, oldest first.
var DefaultOffsets = []int{-2, -1, 0}

// Projector computes one gross total per period offset from today, plus the
// most recent vouchers listed below the carousel.
type Projector interface {
	Project(ctx context.Context, today time.Time, startDay int) (core.HomeSummary, error)
}

// Collection exposes the full loaded voucher collection.
type Collection interface {
	Records() []core.Voucher
}

// ClientProjector aggregates the in-memory voucher collection. Windows come
// from today and the offsets only, never from a ledger's browsing anchor.
type ClientProjector struct {
	vouchers Collection
	offsets  []int
}

func NewClientProjector(vouchers Collection, offsets ...int) *ClientProjector {
	if len(offsets) == 0 {
		offsets = DefaultOffsets
	}
	return &ClientProjector{vouchers: vouchers, offsets: append([]int(nil), offsets...)}
}

func (p *ClientProjector) Project(ctx context.Context, today time.Time, startDay int) (core.HomeSummary, error) {
	records := p.vouchers.Records()
	return core.HomeSummary{
		Periods: Project(records, today, startDay, p.offsets),
		Recent:  core.Newest(records, core.RecentVoucherLimit),
	}, nil
}

// Project builds the summaries for records without any I/O.
func Project(records []core.Voucher, today time.Time, startDay int, offsets []int) []core.PeriodSummary {
	out := make([]core.PeriodSummary, 0, len(offsets))
	for _, off := range offsets {
		w := core.PeriodAt(today, startDay, off)
		agg := core.Aggregate(records, w)
		out = append(out, core.PeriodSummary{
			Label:     PeriodTitle,
			DateRange: w.Label(),
			Offset:    off,
			Window:    w,
			Gross:     agg.Total,
		})
	}
	return out
}

// RemoteProjector asks the server for the precomputed summary and caches it
// per day and start day.
type RemoteProjector struct {
	reader remote.HomeSummaryReader
	cache  *cache.LRUCache[core.HomeSummary]
}

func NewRemoteProjector(reader remote.HomeSummaryReader, c *cache.LRUCache[core.HomeSummary]) *RemoteProjector {
	if c == nil {
		c = cache.NewLRUCache[core.HomeSummary](32, 5*time.Minute)
	}
	return &RemoteProjector{reader: reader, cache: c}
}

func cacheKey(today time.Time, startDay int) string {
	return today.UTC().Format(time.DateOnly) + "/" + strconv.Itoa(startDay)
}

func emptySummary() core.HomeSummary {
	return core.HomeSummary{Periods: []core.PeriodSummary{}, Recent: []core.Voucher{}}
}

func (p *RemoteProjector) Project(ctx context.Context, today time.Time, startDay int) (core.HomeSummary, error) {
	key := cacheKey(today, startDay)
	if cached, ok := p.cache.Get(key); ok {
		return cached, nil
	}

	sum, err := p.reader.HomeSummary(ctx, startDay)
	if remote.IsNotFound(err) {
		slog.InfoContext(ctx, "No data found for home summary",
			applog.FieldComponent, applog.ComponentHome,
			applog.FieldMonthStartDay, startDay)
		p.cache.Set(key, emptySummary())
		return emptySummary(), nil
	}
	if err != nil {
		return core.HomeSummary{}, fmt.Errorf("project home periods: %w", err)
	}

	out := core.HomeSummary{
		Periods: make([]core.PeriodSummary, 0, len(sum.Periods)),
		Recent:  core.Newest(sum.Recent, core.RecentVoucherLimit),
	}
	for _, ps := range sum.Periods {
		if ps.Window.IsZero() {
			ps.Window = core.PeriodAt(today, startDay, ps.Offset)
		}
		if ps.DateRange == "" {
			ps.DateRange = ps.Window.Label()
		}
		if ps.Label == "" {
			ps.Label = PeriodTitle
		}
		out.Periods = append(out.Periods, ps)
	}
	p.cache.Set(key, out)
	return out, nil
}

// Invalidate forgets cached summaries, e.g. after a voucher mutation.
func (p *RemoteProjector) Invalidate() {
	p.cache.Purge()
}

// Card is a period summary with the discount applied for display.
type Card struct {
	core.PeriodSummary
	Net core.Money
}

// Cards applies the discount at presentation time.
func Cards(periods []core.PeriodSummary, s core.Settings) []Card {
	out := make([]Card, len(periods))
	for i, p := range periods {
		out[i] = Card{PeriodSummary: p, Net: s.Net(p.Gross)}
	}
	return out
}
