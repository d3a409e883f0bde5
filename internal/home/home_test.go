package home

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"ganhos/internal/core"
	"ganhos/internal/remote"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticCollection []core.Voucher

func (c staticCollection) Records() []core.Voucher { return c }

func v(id string, date core.Date, cents int64) core.Voucher {
	return core.Voucher{ID: id, RequestCode: "MAN" + id, Date: date, Value: core.Money{Cents: cents}}
}

func TestClientProjector(t *testing.T) {
	records := staticCollection{
		v("1", core.NewDate(2024, 1, 15), 100),
		v("2", core.NewDate(2024, 2, 15), 200),
		v("3", core.NewDate(2024, 3, 12), 400),
		v("4", core.NewDate(2024, 3, 20), 800),
	}
	p := NewClientProjector(records)

	today := time.Date(2024, 3, 15, 8, 0, 0, 0, time.UTC)
	sum, err := p.Project(context.Background(), today, 10)
	require.NoError(t, err)
	got := sum.Periods
	require.Len(t, got, 3)

	assert.Equal(t, -2, got[0].Offset)
	assert.Equal(t, core.Money{Cents: 100}, got[0].Gross)
	assert.Equal(t, "10 jan 2024 - 09 fev 2024", got[0].DateRange)
	assert.Equal(t, core.Money{Cents: 200}, got[1].Gross)
	assert.Equal(t, core.Money{Cents: 1200}, got[2].Gross)
	assert.Equal(t, PeriodTitle, got[2].Label)

	require.Len(t, sum.Recent, 4)
	assert.Equal(t, "4", sum.Recent[0].ID)
	assert.Equal(t, "1", sum.Recent[3].ID)
}

func TestClientProjectorRecentIsCapped(t *testing.T) {
	var records staticCollection
	for day := 1; day <= 8; day++ {
		records = append(records, v(string(rune('0'+day)), core.NewDate(2024, 3, day), 100))
	}
	sum, err := NewClientProjector(records).Project(context.Background(), time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), 1)
	require.NoError(t, err)
	require.Len(t, sum.Recent, core.RecentVoucherLimit)
	assert.Equal(t, "8", sum.Recent[0].ID)
	assert.Equal(t, "4", sum.Recent[4].ID)
}

func TestProjectIgnoresBoundaryRule(t *testing.T) {
	// Day 5 is before start day 10, yet offset 0 still starts on the 10th of
	// today's month.
	got := Project(nil, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), 10, []int{0})
	require.Len(t, got, 1)
	assert.Equal(t, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), got[0].Window.Start)
	assert.Zero(t, got[0].Gross.Cents)
}

func TestCardsApplyDiscount(t *testing.T) {
	cards := Cards([]core.PeriodSummary{{Gross: core.Money{Cents: 100000}}}, core.DefaultSettings())
	assert.Equal(t, core.Money{Cents: 85000}, cards[0].Net)
	assert.Equal(t, core.Money{Cents: 100000}, cards[0].Gross)
}

type fakeHomeReader struct {
	calls int
	sum   core.HomeSummary
	err   error
}

func (f *fakeHomeReader) HomeSummary(_ context.Context, _ int) (core.HomeSummary, error) {
	f.calls++
	return f.sum, f.err
}

func TestRemoteProjectorCaches(t *testing.T) {
	r := &fakeHomeReader{sum: core.HomeSummary{
		Periods: []core.PeriodSummary{
			{Label: "Referente aos vouchers de", DateRange: "10 mar - 09 abr", Offset: 0, Gross: core.Money{Cents: 150}},
			{Offset: -1, Gross: core.Money{Cents: 50}},
		},
		Recent: []core.Voucher{
			v("1", core.NewDate(2024, 3, 1), 50),
			v("2", core.NewDate(2024, 3, 12), 150),
		},
	}}
	p := NewRemoteProjector(r, nil)
	today := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	ctx := context.Background()

	sum, err := p.Project(ctx, today, 10)
	require.NoError(t, err)
	got := sum.Periods
	require.Len(t, got, 2)
	require.Len(t, sum.Recent, 2)
	assert.Equal(t, "2", sum.Recent[0].ID)
	assert.Equal(t, "10 mar - 09 abr", got[0].DateRange)
	assert.Equal(t, "10 fev 2024 - 09 mar 2024", got[1].DateRange)
	assert.Equal(t, PeriodTitle, got[1].Label)

	_, err = p.Project(ctx, today.Add(3*time.Hour), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, r.calls)

	_, err = p.Project(ctx, today, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, r.calls)

	p.Invalidate()
	_, err = p.Project(ctx, today, 10)
	require.NoError(t, err)
	assert.Equal(t, 3, r.calls)
}

func TestRemoteProjectorNotFoundIsEmpty(t *testing.T) {
	p := NewRemoteProjector(&fakeHomeReader{err: &remote.StatusError{Code: http.StatusNotFound}}, nil)
	got, err := p.Project(context.Background(), time.Now(), 1)
	require.NoError(t, err)
	assert.Empty(t, got.Periods)
	assert.Empty(t, got.Recent)
}

func TestRemoteProjectorError(t *testing.T) {
	boom := errors.New("bad gateway")
	r := &fakeHomeReader{err: boom}
	p := NewRemoteProjector(r, nil)
	_, err := p.Project(context.Background(), time.Now(), 1)
	assert.ErrorIs(t, err, boom)

	// Failures are not cached.
	_, _ = p.Project(context.Background(), time.Now(), 1)
	assert.Equal(t, 2, r.calls)
}
