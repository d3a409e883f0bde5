package memory

import (
	"context"
	"errors"
	"sync"

	"ganhos/internal/core"
	ports "ganhos/internal/sheets"
)

var _ ports.SummaryWriter = (*Store)(nil)

// Store keeps the last report written to each tab.
type Store struct {
	mu      sync.Mutex
	base    string
	reports map[string]core.PeriodReport
	writes  int
}

func New(base string) *Store {
	return &Store{base: base, reports: map[string]core.PeriodReport{}}
}

func (s *Store) WritePeriodSummary(_ context.Context, r core.PeriodReport) (string, error) {
	if r.Kind == "" || r.Window.IsZero() {
		return "", errors.New("report needs a kind and a window")
	}
	name := ports.SheetName(s.base, r)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports[name] = r
	s.writes++
	return "mem:" + name + "!A1", nil
}

// Report returns the report stored under a tab name.
func (s *Store) Report(name string) (core.PeriodReport, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reports[name]
	return r, ok
}

// Writes returns the number of successful writes.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}
