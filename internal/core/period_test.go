package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func utc(y int, m time.Month, d, h, min, s, ms int) time.Time {
	return time.Date(y, m, d, h, min, s, ms*int(time.Millisecond), time.UTC)
}

func TestPeriod(t *testing.T) {
	tests := []struct {
		name      string
		ref       time.Time
		startDay  int
		wantStart time.Time
		wantEnd   time.Time
	}{
		{
			name:      "ref before start day belongs to previous cycle",
			ref:       utc(2024, time.March, 5, 12, 0, 0, 0),
			startDay:  10,
			wantStart: utc(2024, time.February, 10, 0, 0, 0, 0),
			wantEnd:   utc(2024, time.March, 9, 23, 59, 59, 999),
		},
		{
			name:      "ref after start day opens a new cycle",
			ref:       utc(2024, time.March, 15, 0, 0, 0, 0),
			startDay:  10,
			wantStart: utc(2024, time.March, 10, 0, 0, 0, 0),
			wantEnd:   utc(2024, time.April, 9, 23, 59, 59, 999),
		},
		{
			name:      "ref on start day",
			ref:       utc(2024, time.March, 10, 0, 0, 0, 0),
			startDay:  10,
			wantStart: utc(2024, time.March, 10, 0, 0, 0, 0),
			wantEnd:   utc(2024, time.April, 9, 23, 59, 59, 999),
		},
		{
			name:      "start day 1 is the calendar month",
			ref:       utc(2024, time.February, 29, 0, 0, 0, 0),
			startDay:  1,
			wantStart: utc(2024, time.February, 1, 0, 0, 0, 0),
			wantEnd:   utc(2024, time.February, 29, 23, 59, 59, 999),
		},
		{
			name:      "january rolls back to december",
			ref:       utc(2024, time.January, 3, 0, 0, 0, 0),
			startDay:  15,
			wantStart: utc(2023, time.December, 15, 0, 0, 0, 0),
			wantEnd:   utc(2024, time.January, 14, 23, 59, 59, 999),
		},
		{
			name:      "out of range start day is clamped",
			ref:       utc(2024, time.March, 15, 0, 0, 0, 0),
			startDay:  0,
			wantStart: utc(2024, time.March, 1, 0, 0, 0, 0),
			wantEnd:   utc(2024, time.March, 31, 23, 59, 59, 999),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := Period(tt.ref, tt.startDay)
			assert.Equal(t, tt.wantStart, w.Start)
			assert.Equal(t, tt.wantEnd, w.End)
			assert.True(t, w.Contains(tt.ref))
		})
	}
}

func TestPeriodAtOverflow(t *testing.T) {
	// April has 30 days: day 31 normalizes to May 1.
	w := PeriodAt(utc(2024, time.April, 20, 0, 0, 0, 0), 31, 0)
	assert.Equal(t, utc(2024, time.May, 1, 0, 0, 0, 0), w.Start)
	assert.Equal(t, utc(2024, time.May, 31, 23, 59, 59, 999), w.End)
}

func TestPeriodAtOffsets(t *testing.T) {
	today := utc(2024, time.March, 5, 0, 0, 0, 0)

	// No boundary rule: offset 0 starts in today's month even though day 5 < 10.
	cur := PeriodAt(today, 10, 0)
	assert.Equal(t, utc(2024, time.March, 10, 0, 0, 0, 0), cur.Start)

	prev := PeriodAt(today, 10, -1)
	assert.Equal(t, utc(2024, time.February, 10, 0, 0, 0, 0), prev.Start)
	assert.Equal(t, utc(2024, time.March, 9, 23, 59, 59, 999), prev.End)

	back := PeriodAt(today, 10, -3)
	assert.Equal(t, utc(2023, time.December, 10, 0, 0, 0, 0), back.Start)

	assert.Equal(t, prev, cur.Shift(-1))
}

func TestWindowContainsIsClosed(t *testing.T) {
	w := Period(utc(2024, time.March, 15, 0, 0, 0, 0), 10)
	require.True(t, w.Contains(w.Start))
	require.True(t, w.Contains(w.End))
	assert.False(t, w.Contains(w.Start.Add(-time.Millisecond)))
	assert.False(t, w.Contains(w.End.Add(time.Millisecond)))
}

func TestWindowFormatting(t *testing.T) {
	w := Period(utc(2024, time.March, 5, 0, 0, 0, 0), 10)
	from, to := w.QueryDates()
	assert.Equal(t, "2024-02-10", from)
	assert.Equal(t, "2024-03-09", to)
	assert.Equal(t, "10 fev 2024 - 09 mar 2024", w.Label())
}

func TestPeriodSpansOneMonth(t *testing.T) {
	for ref := utc(2023, time.December, 1, 0, 0, 0, 0); ref.Year() < 2025; ref = ref.AddDate(0, 0, 3) {
		for day := MinStartDay; day <= MaxStartDay; day++ {
			w := Period(ref, day)
			want := w.Start.AddDate(0, 1, -1).Add(endOfDayOffset)
			require.Equal(t, want, w.End, "ref=%s startDay=%d", ref.Format(time.DateOnly), day)
		}
	}
}

func TestPeriodStartMonth(t *testing.T) {
	for ref := utc(2023, time.December, 1, 0, 0, 0, 0); ref.Year() < 2025; ref = ref.AddDate(0, 0, 1) {
		// Start days past 28 can overflow a short previous month; that
		// roll-over is kept as is.
		for day := MinStartDay; day <= 28; day++ {
			w := Period(ref, day)
			wantMonth := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, time.UTC)
			if ref.Day() < day {
				wantMonth = wantMonth.AddDate(0, -1, 0)
			}
			require.Equal(t, wantMonth.Month(), w.Start.Month(), "ref=%s startDay=%d", ref.Format(time.DateOnly), day)
			require.Equal(t, wantMonth.Year(), w.Start.Year())
			require.Equal(t, day, w.Start.Day())
		}
	}
}
