// Package remote declares the REST collaborator that owns vouchers, expenses
// and accounts. Adapters live in the httpapi and memory subpackages.
package remote

import (
	"context"

	"ganhos/internal/core"
)

// Query narrows a list request. Empty From/To means unfiltered.
type Query struct {
	From     string
	To       string
	Offset   int
	Limit    int
	Category core.ExpenseCategory
}

// WindowQuery returns a query restricted to the dates of w.
func WindowQuery(w core.Window) Query {
	from, to := w.QueryDates()
	return Query{From: from, To: to}
}

type (
	User struct {
		ID        string `json:"id"`
		Name      string `json:"name"`
		Email     string `json:"email"`
		CPF       string `json:"cpf"`
		FirstName string `json:"firstName"`
	}

	LoginResult struct {
		Code    string
		Message string
		Token   string
		User    User
	}

	RegisterRequest struct {
		Name            string `json:"name"`
		Email           string `json:"email"`
		CPF             string `json:"cpf"`
		Password        string `json:"password"`
		ConfirmPassword string `json:"confirmpassword"`
	}
)

// Ports for outbound adapters.
type (
	VoucherSource interface {
		ListVouchers(ctx context.Context, q Query) ([]core.Voucher, error)
		CreateVoucher(ctx context.Context, in core.VoucherInput) error
		UpdateVoucher(ctx context.Context, id string, in core.VoucherInput) error
		DeleteVoucher(ctx context.Context, id string) error
	}

	ExpenseSource interface {
		ListExpenses(ctx context.Context, q Query) ([]core.Expense, error)
		CreateExpense(ctx context.Context, in core.ExpenseInput) error
		UpdateExpense(ctx context.Context, id string, in core.ExpenseInput) error
		DeleteExpense(ctx context.Context, id string) error
	}

	// ExpenseSummaryReader returns the server-computed per-category totals.
	ExpenseSummaryReader interface {
		CategorySummary(ctx context.Context, from, to string) (core.CategorySummary, error)
	}

	// HomeSummaryReader returns the server-computed home carousel.
	HomeSummaryReader interface {
		HomeSummary(ctx context.Context, monthStartDay int) (core.HomeSummary, error)
	}

	EarningsReader interface {
		EarningsStatistics(ctx context.Context, from, to string) (core.EarningsStatistics, error)
	}

	Authenticator interface {
		Login(ctx context.Context, email, password string) (LoginResult, error)
		Register(ctx context.Context, req RegisterRequest) (string, error)
	}

	// Backend is everything the remote service offers.
	Backend interface {
		VoucherSource
		ExpenseSource
		ExpenseSummaryReader
		HomeSummaryReader
		EarningsReader
		Authenticator
	}
)
