package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"ganhos/internal/amqp"
	"ganhos/internal/core"
	"ganhos/internal/ledger"
	applog "ganhos/internal/log"
	"ganhos/internal/remote"
	"ganhos/internal/sheets"
)

// ExportWorker recomputes and exports the period summary touched by a
// ledger event.
type ExportWorker struct {
	vouchers remote.VoucherSource
	expenses remote.ExpenseSource
	writer   sheets.SummaryWriter
	now      func() time.Time
}

func NewExportWorker(vouchers remote.VoucherSource, expenses remote.ExpenseSource, writer sheets.SummaryWriter) *ExportWorker {
	return &ExportWorker{
		vouchers: vouchers,
		expenses: expenses,
		writer:   writer,
		now:      time.Now,
	}
}

// HandleEvent writes one report for the custom month containing the event's
// record date. Events without a date fall back to their timestamp. An update
// that moved the record into another month also rewrites the month it left.
func (w *ExportWorker) HandleEvent(ctx context.Context, msg *amqp.LedgerEvent) error {
	date, ok, err := msg.RecordDate()
	if err != nil {
		return err
	}
	prev, hasPrev, err := msg.PreviousDate()
	if err != nil {
		return err
	}
	if !ok {
		date = msg.Timestamp
		if date.IsZero() {
			date = w.now()
		}
	}

	slog.InfoContext(ctx, "Processing ledger event",
		applog.FieldComponent, applog.ComponentWorker,
		applog.FieldKind, msg.Kind,
		applog.FieldOperation, msg.Op,
		applog.FieldRecordID, msg.ID,
		applog.FieldMonthStartDay, msg.MonthStartDay)

	startDay := core.ClampStartDay(msg.MonthStartDay)
	window := core.Period(date, startDay)
	if _, err := w.Export(ctx, msg.Kind, window, startDay); err != nil {
		return err
	}
	if !hasPrev {
		return nil
	}
	if left := core.Period(prev, startDay); !left.Start.Equal(window.Start) {
		if _, err := w.Export(ctx, msg.Kind, left, startDay); err != nil {
			return err
		}
	}
	return nil
}

// Export aggregates one kind over a window and writes the report.
func (w *ExportWorker) Export(ctx context.Context, kind string, window core.Window, startDay int) (core.PeriodReport, error) {
	var (
		report core.PeriodReport
		err    error
	)
	switch kind {
	case ledger.KindVoucher:
		report, err = buildReport(ctx, kind, window, startDay, w.now(), w.vouchers.ListVouchers)
	case ledger.KindExpense:
		report, err = buildReport(ctx, kind, window, startDay, w.now(), w.expenses.ListExpenses)
	default:
		return core.PeriodReport{}, fmt.Errorf("unknown record kind %q", kind)
	}
	if err != nil {
		return core.PeriodReport{}, err
	}

	ref, err := w.writer.WritePeriodSummary(ctx, report)
	if err != nil {
		return core.PeriodReport{}, fmt.Errorf("write %s summary: %w", kind, err)
	}

	slog.InfoContext(ctx, "Exported period summary",
		applog.FieldComponent, applog.ComponentWorker,
		applog.FieldKind, kind,
		applog.FieldWindowStart, window.Start.Format(time.DateOnly),
		applog.FieldWindowEnd, window.End.Format(time.DateOnly),
		applog.FieldRecordCount, report.Count,
		applog.FieldAmountCents, report.Total.Cents,
		applog.FieldSheetsRef, ref)
	return report, nil
}

// ExportCurrent exports both kinds for the period containing today. It is
// run at startup to cover events missed while the worker was down.
func (w *ExportWorker) ExportCurrent(ctx context.Context, startDay int) error {
	window := core.Period(w.now(), startDay)
	g, gctx := errgroup.WithContext(ctx)
	for _, kind := range []string{ledger.KindVoucher, ledger.KindExpense} {
		g.Go(func() error {
			_, err := w.Export(gctx, kind, window, startDay)
			return err
		})
	}
	return g.Wait()
}

func buildReport[R core.Record](ctx context.Context, kind string, window core.Window, startDay int, now time.Time,
	list func(context.Context, remote.Query) ([]R, error)) (core.PeriodReport, error) {
	records, err := list(ctx, remote.WindowQuery(window))
	if err != nil && !errors.Is(err, core.ErrNotFound) {
		return core.PeriodReport{}, fmt.Errorf("list %s records: %w", kind, err)
	}
	return core.NewPeriodReport(kind, startDay, core.Aggregate(records, window), now), nil
}
