package core

import (
	"sort"
	"strings"
)

// Aggregation is the derived view of a record collection over one window.
type Aggregation[R Record] struct {
	Window    Window
	Filtered  []R
	Total     Money
	Breakdown map[string]Money
}

// Aggregate keeps the records whose date lies in w, sorted newest first
// (ties broken by ascending ID), and sums their values overall and per
// category. Only categories that occur are present in the breakdown.
func Aggregate[R Record](records []R, w Window) Aggregation[R] {
	agg := Aggregation[R]{
		Window:    w,
		Filtered:  make([]R, 0, len(records)),
		Breakdown: make(map[string]Money),
	}
	for _, r := range records {
		if !w.Contains(r.RecordDate()) {
			continue
		}
		agg.Filtered = append(agg.Filtered, r)
		agg.Total = agg.Total.Add(r.RecordValue())
		cat := r.RecordCategory()
		agg.Breakdown[cat] = agg.Breakdown[cat].Add(r.RecordValue())
	}
	sortNewestFirst(agg.Filtered)
	return agg
}

// Newest returns up to n records, most recent first, in the same order as
// Aggregate. records is not modified.
func Newest[R Record](records []R, n int) []R {
	out := append([]R(nil), records...)
	sortNewestFirst(out)
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

func sortNewestFirst[R Record](rs []R) {
	sort.SliceStable(rs, func(i, j int) bool {
		di, dj := rs[i].RecordDate(), rs[j].RecordDate()
		if !di.Equal(dj) {
			return di.After(dj)
		}
		return rs[i].RecordID() < rs[j].RecordID()
	})
}

// Categories returns the breakdown sorted by amount descending, then name.
func (a Aggregation[R]) Categories() []CategoryAmount {
	out := make([]CategoryAmount, 0, len(a.Breakdown))
	for name, amount := range a.Breakdown {
		out = append(out, CategoryAmount{Name: name, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Amount.Cents != out[j].Amount.Cents {
			return out[i].Amount.Cents > out[j].Amount.Cents
		}
		return strings.Compare(out[i].Name, out[j].Name) < 0
	})
	return out
}
