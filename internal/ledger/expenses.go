package ledger

import (
	"context"
	"sync"
	"time"

	"ganhos/internal/core"
	"ganhos/internal/remote"
)

const KindExpense = "expense"

var expenseMessages = Messages{
	Load:   "Failed to load expenses",
	Create: "Failed to add expense",
	Update: "Failed to update expense",
	Delete: "Failed to delete expense",
}

type expenseSource struct {
	remote.ExpenseSource
}

func (s expenseSource) List(ctx context.Context, q remote.Query) ([]core.Expense, error) {
	return s.ListExpenses(ctx, q)
}

func (s expenseSource) Create(ctx context.Context, in core.ExpenseInput) error {
	return s.CreateExpense(ctx, in)
}

func (s expenseSource) Update(ctx context.Context, id string, in core.ExpenseInput) error {
	return s.UpdateExpense(ctx, id, in)
}

func (s expenseSource) Delete(ctx context.Context, id string) error {
	return s.DeleteExpense(ctx, id)
}

// ExpenseLedger also keeps the server-side category summary of the active
// window, refreshed together with the list.
type ExpenseLedger struct {
	*Ledger[core.Expense, core.ExpenseInput]

	mu      sync.Mutex
	summary core.CategorySummary
}

// ExpenseSource is what the expense ledger needs from the remote service.
type ExpenseSource interface {
	remote.ExpenseSource
	remote.ExpenseSummaryReader
}

// NewExpenseLedger always filters by date on the server.
func NewExpenseLedger(src ExpenseSource, cfg Config) *ExpenseLedger {
	el := &ExpenseLedger{summary: emptySummary()}
	el.Ledger = New(Options[core.Expense, core.ExpenseInput]{
		Kind:             KindExpense,
		Source:           expenseSource{src},
		Settings:         cfg.Settings,
		Messages:         expenseMessages,
		ServerDateFilter: true,
		Companions:       []Companion{el.summaryCompanion(src)},
		Notifier:         cfg.Notifier,
		DateOf:           func(in core.ExpenseInput) time.Time { return in.Date.Time },
		Now:              cfg.Now,
	})
	return el
}

func (el *ExpenseLedger) summaryCompanion(src remote.ExpenseSummaryReader) Companion {
	return func(ctx context.Context, w core.Window) (func(), error) {
		from, to := w.QueryDates()
		sum, err := src.CategorySummary(ctx, from, to)
		if remote.IsNotFound(err) {
			sum, err = emptySummary(), nil
		}
		if err != nil {
			return nil, err
		}
		if sum.Summary == nil {
			sum.Summary = map[string]core.Money{}
		}
		return func() {
			el.mu.Lock()
			el.summary = sum
			el.mu.Unlock()
		}, nil
	}
}

// Summary returns the category totals from the last successful reload.
func (el *ExpenseLedger) Summary() core.CategorySummary {
	el.mu.Lock()
	defer el.mu.Unlock()
	out := core.CategorySummary{Total: el.summary.Total, Summary: make(map[string]core.Money, len(el.summary.Summary))}
	for k, v := range el.summary.Summary {
		out.Summary[k] = v
	}
	return out
}

func emptySummary() core.CategorySummary {
	return core.CategorySummary{Summary: map[string]core.Money{}}
}
