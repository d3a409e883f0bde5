// Package ledger holds the client-side state of one collection of dated
// financial records: the current billing period, the last loaded records,
// and the views derived from them.
package ledger

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"ganhos/internal/core"
	applog "ganhos/internal/log"
	"ganhos/internal/remote"
	"ganhos/internal/settings"
)

type State int

const (
	Idle State = iota
	Loading
)

func (s State) String() string {
	if s == Loading {
		return "loading"
	}
	return "idle"
}

// retryPolicy decides what happens to a reload dropped because another one
// is in flight.
type retryPolicy int

const (
	// dropSilently is the policy of explicit Reload calls.
	dropSilently retryPolicy = iota
	// retryIfMoved reloads after the in-flight one if the window it loaded
	// is no longer the active window.
	retryIfMoved
	// retryAlways reloads after the in-flight one unconditionally; it
	// follows mutations the in-flight fetch may predate.
	retryAlways
)

type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Source is the remote collaborator for one record kind.
type Source[R core.Record, I any] interface {
	List(ctx context.Context, q remote.Query) ([]R, error)
	Create(ctx context.Context, in I) error
	Update(ctx context.Context, id string, in I) error
	Delete(ctx context.Context, id string) error
}

// SettingsSource is the read side of the settings store.
type SettingsSource interface {
	MonthStartDay() int
	Subscribe(fn settings.Listener) func()
}

// Event describes a successful mutation. PrevDate is set on updates of a
// record that was loaded, to the date it had before the update.
type Event struct {
	Kind          string
	Op            Op
	ID            string
	Date          time.Time
	PrevDate      time.Time
	MonthStartDay int
	Timestamp     time.Time
}

// Notifier receives mutation events. Delivery failures are logged, never
// surfaced to the caller: the mutation itself already succeeded.
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// Companion fetches data that accompanies the record list, concurrently with
// it. The returned apply func is run under the ledger lock only if the whole
// reload succeeded.
type Companion func(ctx context.Context, w core.Window) (apply func(), err error)

// Messages are the user-facing texts stored on failure.
type Messages struct {
	Load   string
	Create string
	Update string
	Delete string
}

type Options[R core.Record, I any] struct {
	Kind     string
	Source   Source[R, I]
	Settings SettingsSource
	Messages Messages
	// ServerDateFilter sends the window as from/to on list requests.
	// Records are filtered locally either way.
	ServerDateFilter bool
	Companions       []Companion
	Notifier         Notifier
	// DateOf returns the economic date carried by an input, for events.
	DateOf func(I) time.Time
	Now    func() time.Time
}

type memo[R core.Record] struct {
	valid   bool
	version uint64
	window  core.Window
	agg     core.Aggregation[R]
}

// Ledger is safe for concurrent use. At most one reload is in flight at a
// time; a reload requested while another runs is dropped.
type Ledger[R core.Record, I any] struct {
	opts     Options[R, I]
	triggers chan struct{}

	mu      sync.Mutex
	state   State
	retry   retryPolicy
	anchor  time.Time
	records []R
	version uint64
	err     error
	errMsg  string
	view    memo[R]
}

func New[R core.Record, I any](opts Options[R, I]) *Ledger[R, I] {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Ledger[R, I]{
		opts:     opts,
		triggers: make(chan struct{}, 1),
		anchor:   dayOf(opts.Now()),
	}
}

func dayOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func (l *Ledger[R, I]) Kind() string { return l.opts.Kind }

func (l *Ledger[R, I]) startDay() int {
	if l.opts.Settings == nil {
		return core.DefaultMonthStartDay
	}
	return l.opts.Settings.MonthStartDay()
}

// SetAnchor moves the date the active window is computed from and schedules
// a reload when it changed. It never reloads synchronously.
func (l *Ledger[R, I]) SetAnchor(t time.Time) {
	day := dayOf(t)
	l.mu.Lock()
	changed := !day.Equal(l.anchor)
	l.anchor = day
	l.mu.Unlock()
	if changed {
		l.enqueue()
	}
}

// Anchor returns the day the active window is derived from.
func (l *Ledger[R, I]) Anchor() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.anchor
}

// Trigger schedules a reload for the Run loop.
func (l *Ledger[R, I]) Trigger() {
	l.enqueue()
}

func (l *Ledger[R, I]) enqueue() {
	select {
	case l.triggers <- struct{}{}:
	default:
	}
}

// Run performs scheduled reloads until ctx is done.
func (l *Ledger[R, I]) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.triggers:
			l.reload(ctx, retryIfMoved)
		}
	}
}

// Watch reloads whenever the month start day changes.
func (l *Ledger[R, I]) Watch(s SettingsSource) func() {
	return s.Subscribe(func(prev, next core.Settings) {
		if prev.MonthStartDay == next.MonthStartDay {
			return
		}
		l.mu.Lock()
		l.view.valid = false
		l.mu.Unlock()
		l.enqueue()
	})
}

// Reload fetches the records for the active window. It reports false when
// another reload was already in flight and this one was dropped. Failures
// are recorded in the ledger state, keeping the previous records.
func (l *Ledger[R, I]) Reload(ctx context.Context) bool {
	return l.reload(ctx, dropSilently)
}

func (l *Ledger[R, I]) reload(ctx context.Context, onDrop retryPolicy) bool {
	l.mu.Lock()
	if l.state == Loading {
		l.retry = max(l.retry, onDrop)
		l.mu.Unlock()
		l.logDropped(ctx)
		return false
	}
	l.state = Loading
	anchor := l.anchor
	l.mu.Unlock()

	l.load(ctx, anchor)
	return true
}

// ReloadAt moves the anchor to t's day and loads that window in the same
// guarded step, so the anchor change costs exactly one fetch. A reload
// already queued for Run is consumed. When another reload is in flight it
// reports false: the anchor still moves and, if it changed, the new window
// is loaded by Run after the reload in flight.
func (l *Ledger[R, I]) ReloadAt(ctx context.Context, t time.Time) bool {
	day := dayOf(t)
	l.mu.Lock()
	changed := !day.Equal(l.anchor)
	l.anchor = day
	if l.state == Loading {
		if changed {
			l.retry = max(l.retry, retryIfMoved)
		}
		l.mu.Unlock()
		l.logDropped(ctx)
		return false
	}
	l.state = Loading
	l.mu.Unlock()

	l.drain()
	l.load(ctx, day)
	return true
}

func (l *Ledger[R, I]) drain() {
	select {
	case <-l.triggers:
	default:
	}
}

func (l *Ledger[R, I]) logDropped(ctx context.Context) {
	slog.DebugContext(ctx, "Reload dropped, already loading",
		applog.FieldComponent, applog.ComponentLedger,
		applog.FieldKind, l.opts.Kind)
}

// load runs with the state already set to Loading and resets it to Idle.
func (l *Ledger[R, I]) load(ctx context.Context, anchor time.Time) {
	w := core.Period(anchor, l.startDay())
	records, applies, err := l.fetch(ctx, w)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.state = Idle
	switch l.retry {
	case retryAlways:
		l.enqueue()
	case retryIfMoved:
		if !sameWindow(w, core.Period(l.anchor, l.startDay())) {
			l.enqueue()
		}
	}
	l.retry = dropSilently
	if err != nil {
		l.err = err
		l.errMsg = l.opts.Messages.Load
		slog.ErrorContext(ctx, l.opts.Messages.Load, applog.NewFields().
			WithComponent(applog.ComponentLedger).
			WithOperation(applog.OpReload).
			WithRecord(l.opts.Kind, "").
			WithError(err).ToSlice()...)
		return
	}
	l.records = records
	l.version++
	l.err = nil
	l.errMsg = ""
	for _, apply := range applies {
		apply()
	}
	from, to := w.QueryDates()
	slog.InfoContext(ctx, "Ledger reloaded", applog.NewFields().
		WithComponent(applog.ComponentLedger).
		WithOperation(applog.OpReload).
		WithRecord(l.opts.Kind, "").
		WithWindow(from, to).ToSlice()...)
}

func (l *Ledger[R, I]) fetch(ctx context.Context, w core.Window) ([]R, []func(), error) {
	q := remote.Query{}
	if l.opts.ServerDateFilter {
		q = remote.WindowQuery(w)
	}

	var records []R
	applies := make([]func(), len(l.opts.Companions))
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rs, err := l.opts.Source.List(gctx, q)
		if remote.IsNotFound(err) {
			rs, err = nil, nil
		}
		records = rs
		return err
	})
	for i, c := range l.opts.Companions {
		g.Go(func() error {
			apply, err := c(gctx, w)
			applies[i] = apply
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	out := applies[:0]
	for _, a := range applies {
		if a != nil {
			out = append(out, a)
		}
	}
	return records, out, nil
}

func (l *Ledger[R, I]) Create(ctx context.Context, in I) error {
	return l.mutate(ctx, Event{Op: OpCreate}, in, l.opts.Messages.Create, func(ctx context.Context) error {
		return l.opts.Source.Create(ctx, in)
	})
}

// Update sends the new fields of id. The event also carries the date the
// record had before, so consumers can refresh a period it moved out of.
func (l *Ledger[R, I]) Update(ctx context.Context, id string, in I) error {
	ev := Event{Op: OpUpdate, ID: id}
	if r, ok := l.Get(id); ok {
		ev.PrevDate = r.RecordDate()
	}
	return l.mutate(ctx, ev, in, l.opts.Messages.Update, func(ctx context.Context) error {
		return l.opts.Source.Update(ctx, id, in)
	})
}

func (l *Ledger[R, I]) Delete(ctx context.Context, id string) error {
	ev := Event{Op: OpDelete, ID: id}
	if r, ok := l.Get(id); ok {
		ev.Date = r.RecordDate()
	}
	return l.mutateAt(ctx, ev, l.opts.Messages.Delete, func(ctx context.Context) error {
		return l.opts.Source.Delete(ctx, id)
	})
}

func (l *Ledger[R, I]) mutate(ctx context.Context, ev Event, in I, msg string, call func(context.Context) error) error {
	if v, ok := any(in).(interface{ Validate() error }); ok {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	if l.opts.DateOf != nil {
		ev.Date = l.opts.DateOf(in)
	}
	return l.mutateAt(ctx, ev, msg, call)
}

// mutateAt sends a mutation. A failure is recorded and returned as a
// *core.RemoteError; a success clears the last error and is followed by a
// reload, never by a local patch of the collection.
func (l *Ledger[R, I]) mutateAt(ctx context.Context, ev Event, msg string, call func(context.Context) error) error {
	if err := call(ctx); err != nil {
		rerr := &core.RemoteError{Message: msg, Err: err}
		l.mu.Lock()
		l.err = rerr
		l.errMsg = msg
		l.mu.Unlock()
		slog.ErrorContext(ctx, msg, applog.NewFields().
			WithComponent(applog.ComponentLedger).
			WithOperation(string(ev.Op)).
			WithRecord(l.opts.Kind, ev.ID).
			WithError(err).ToSlice()...)
		return rerr
	}

	l.mu.Lock()
	l.err = nil
	l.errMsg = ""
	l.mu.Unlock()
	l.reload(ctx, retryAlways)
	ev.Kind = l.opts.Kind
	ev.MonthStartDay = l.startDay()
	ev.Timestamp = l.opts.Now().UTC()
	l.notify(ctx, ev)
	return nil
}

func (l *Ledger[R, I]) notify(ctx context.Context, ev Event) {
	if l.opts.Notifier == nil {
		return
	}
	if err := l.opts.Notifier.Notify(ctx, ev); err != nil {
		slog.WarnContext(ctx, "Failed to publish ledger event",
			applog.FieldComponent, applog.ComponentLedger,
			applog.FieldKind, ev.Kind,
			applog.FieldOperation, string(ev.Op),
			applog.FieldError, err)
	}
}

// Get looks id up in the loaded collection.
func (l *Ledger[R, I]) Get(id string) (R, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, r := range l.records {
		if r.RecordID() == id {
			return r, true
		}
	}
	var zero R
	return zero, false
}

// Records returns a copy of the whole loaded collection.
func (l *Ledger[R, I]) Records() []R {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]R(nil), l.records...)
}

// Window is the active billing period.
func (l *Ledger[R, I]) Window() core.Window {
	l.mu.Lock()
	anchor := l.anchor
	l.mu.Unlock()
	return core.Period(anchor, l.startDay())
}

func (l *Ledger[R, I]) RangeLabel() string {
	return l.Window().Label()
}

// View returns the records of the active window with their totals. The
// result is reused until the collection or the window changes.
func (l *Ledger[R, I]) View() core.Aggregation[R] {
	w := l.Window()
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.view.valid && l.view.version == l.version && sameWindow(l.view.window, w) {
		return l.view.agg
	}
	agg := core.Aggregate(l.records, w)
	l.view = memo[R]{valid: true, version: l.version, window: w, agg: agg}
	return agg
}

func (l *Ledger[R, I]) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Err is the raw error of the last failed operation, nil after a successful reload.
func (l *Ledger[R, I]) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

// ErrMessage is the user-facing text of the last failure.
func (l *Ledger[R, I]) ErrMessage() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.errMsg
}

// IsRemoteError reports whether err came from a failed mutation.
func IsRemoteError(err error) bool {
	var re *core.RemoteError
	return errors.As(err, &re)
}

func sameWindow(a, b core.Window) bool {
	return a.Start.Equal(b.Start) && a.End.Equal(b.End)
}
