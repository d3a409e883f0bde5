// Package settings holds the user preferences shared by the ledgers and the
// home projector, persisted in the local key-value store.
package settings

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"ganhos/internal/core"
)

const (
	KeyDiscountPercentage = "discountPercentage"
	KeyMonthStartDay      = "monthStartDay"
)

// KV is the local persistence the store reads from and writes through to.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// Listener is called after a setting changed, with the previous and new values.
type Listener func(prev, next core.Settings)

type Store struct {
	kv        KV
	writeMu   sync.Mutex // serializes setters
	mu        sync.RWMutex
	current   core.Settings
	listeners map[int]Listener
	nextID    int
}

// Load reads both settings once. Missing or unparsable values fall back to
// the defaults; only a failing store is an error.
func Load(ctx context.Context, kv KV) (*Store, error) {
	s := &Store{kv: kv, current: core.DefaultSettings(), listeners: make(map[int]Listener)}

	raw, ok, err := kv.Get(ctx, KeyDiscountPercentage)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", KeyDiscountPercentage, err)
	}
	if ok {
		if v, err := strconv.ParseFloat(raw, 64); err == nil && v >= 0 && v <= 1 {
			s.current.DiscountPercentage = v
		} else {
			slog.WarnContext(ctx, "Ignoring stored discount percentage", "value", raw)
		}
	}

	raw, ok, err = kv.Get(ctx, KeyMonthStartDay)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", KeyMonthStartDay, err)
	}
	if ok {
		if v, err := strconv.Atoi(raw); err == nil && v >= core.MinStartDay && v <= core.MaxStartDay {
			s.current.MonthStartDay = v
		} else {
			slog.WarnContext(ctx, "Ignoring stored month start day", "value", raw)
		}
	}

	return s, nil
}

func (s *Store) Current() core.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *Store) MonthStartDay() int {
	return s.Current().MonthStartDay
}

func (s *Store) DiscountPercentage() float64 {
	return s.Current().DiscountPercentage
}

func (s *Store) SetDiscountPercentage(ctx context.Context, v float64) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.setDiscount(ctx, v)
}

func (s *Store) SetMonthStartDay(ctx context.Context, day int) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.setStartDay(ctx, day)
}

// Update applies both values, persisting only the ones that changed.
func (s *Store) Update(ctx context.Context, next core.Settings) error {
	if err := next.Validate(); err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	cur := s.Current()
	if next.DiscountPercentage != cur.DiscountPercentage {
		if err := s.setDiscount(ctx, next.DiscountPercentage); err != nil {
			return err
		}
	}
	if next.MonthStartDay != cur.MonthStartDay {
		if err := s.setStartDay(ctx, next.MonthStartDay); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) setDiscount(ctx context.Context, v float64) error {
	next := s.Current()
	next.DiscountPercentage = v
	return s.apply(ctx, next, KeyDiscountPercentage, strconv.FormatFloat(v, 'f', -1, 64))
}

func (s *Store) setStartDay(ctx context.Context, day int) error {
	next := s.Current()
	next.MonthStartDay = day
	return s.apply(ctx, next, KeyMonthStartDay, strconv.Itoa(day))
}

// apply must be called with writeMu held.
func (s *Store) apply(ctx context.Context, next core.Settings, key, value string) error {
	if err := next.Validate(); err != nil {
		return err
	}
	if err := s.kv.Set(ctx, key, value); err != nil {
		return fmt.Errorf("persist %s: %w", key, err)
	}

	s.mu.Lock()
	prev := s.current
	s.current = next
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	slog.InfoContext(ctx, "Setting updated", "key", key, "value", value)
	if prev == next {
		return nil
	}
	for _, l := range listeners {
		l(prev, next)
	}
	return nil
}

// Subscribe registers fn for change notifications and returns a function
// that removes it.
func (s *Store) Subscribe(fn Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}
