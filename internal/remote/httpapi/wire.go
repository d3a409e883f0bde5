package httpapi

import (
	"fmt"

	"ganhos/internal/core"
	"ganhos/internal/remote"
)

type (
	voucherDTO struct {
		ID          string  `json:"id"`
		TaxNumber   string  `json:"taxNumber"`
		RequestCode string  `json:"requestCode"`
		Date        string  `json:"date"`
		Value       float64 `json:"value"`
		Start       string  `json:"start"`
		Destination string  `json:"destination"`
	}

	// voucherPayload is the create/update body. The voucher endpoints take
	// the value as a comma-decimal string.
	voucherPayload struct {
		TaxNumber   string `json:"taxNumber"`
		RequestCode string `json:"requestCode"`
		Date        string `json:"date"`
		Value       string `json:"value"`
		Start       string `json:"start"`
		Destination string `json:"destination"`
	}

	expenseDTO struct {
		ID            string  `json:"id"`
		Value         float64 `json:"value"`
		Category      string  `json:"category"`
		Date          string  `json:"date"`
		Description   string  `json:"description,omitempty"`
		PaymentMethod string  `json:"paymentMethod,omitempty"`
		UserID        string  `json:"userId"`
		CreatedAt     string  `json:"createdAt"`
		UpdatedAt     string  `json:"updatedAt"`
	}

	expensePayload struct {
		Value         float64 `json:"value"`
		Category      string  `json:"category"`
		Date          string  `json:"date"`
		Description   string  `json:"description,omitempty"`
		PaymentMethod string  `json:"paymentMethod,omitempty"`
	}

	pagination struct {
		TotalCount      int  `json:"totalCount"`
		TotalPages      int  `json:"totalPages"`
		CurrentPage     int  `json:"currentPage"`
		Limit           int  `json:"limit"`
		Offset          int  `json:"offset"`
		HasNextPage     bool `json:"hasNextPage"`
		HasPreviousPage bool `json:"hasPreviousPage"`
	}

	voucherListResponse struct {
		Vouchers   []voucherDTO `json:"vouchers"`
		Pagination pagination   `json:"pagination"`
	}

	expenseListResponse struct {
		Expenses   []expenseDTO `json:"expenses"`
		Pagination pagination   `json:"pagination"`
	}

	categorySummaryResponse struct {
		Summary map[string]float64 `json:"summary"`
		Total   float64            `json:"total"`
	}

	homeSummaryResponse struct {
		Periods []struct {
			Title       string  `json:"title"`
			DateRange   string  `json:"dateRange"`
			Value       float64 `json:"value"`
			MonthOffset int     `json:"monthOffset"`
		} `json:"periods"`
		RecentVouchers []voucherDTO `json:"recentVouchers"`
	}

	earningsResponse struct {
		Data []struct {
			Date  string  `json:"date"`
			Value float64 `json:"value"`
			Count int     `json:"count"`
		} `json:"data"`
		Summary struct {
			TotalEarnings float64 `json:"totalEarnings"`
			VoucherCount  int     `json:"voucherCount"`
			Period        struct {
				From string `json:"from"`
				To   string `json:"to"`
			} `json:"period"`
			IntervalDays int `json:"intervalDays"`
		} `json:"summary"`
	}

	loginRequest struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	loginResponse struct {
		Code    string      `json:"code"`
		Message string      `json:"message"`
		User    remote.User `json:"user"`
		Token   string      `json:"token"`
	}

	messageResponse struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
)

func (d voucherDTO) toCore() (core.Voucher, error) {
	date, err := core.ParseRecordDate(d.Date)
	if err != nil {
		return core.Voucher{}, fmt.Errorf("voucher %s: %w", d.ID, err)
	}
	return core.Voucher{
		ID:          d.ID,
		TaxNumber:   d.TaxNumber,
		RequestCode: d.RequestCode,
		Date:        date,
		Value:       core.MoneyFromFloat(d.Value),
		Start:       d.Start,
		Destination: d.Destination,
	}, nil
}

func newVoucherPayload(in core.VoucherInput) voucherPayload {
	return voucherPayload{
		TaxNumber:   in.TaxNumber,
		RequestCode: in.RequestCode,
		Date:        in.Date.ISO(),
		Value:       in.Value.CommaDecimal(),
		Start:       in.Start,
		Destination: in.Destination,
	}
}

func (d expenseDTO) toCore() (core.Expense, error) {
	date, err := core.ParseRecordDate(d.Date)
	if err != nil {
		return core.Expense{}, fmt.Errorf("expense %s: %w", d.ID, err)
	}
	cat, err := core.ParseExpenseCategory(d.Category)
	if err != nil {
		cat = core.Other
	}
	return core.Expense{
		ID:            d.ID,
		Value:         core.MoneyFromFloat(d.Value),
		Category:      cat,
		Date:          date,
		Description:   d.Description,
		PaymentMethod: d.PaymentMethod,
		UserID:        d.UserID,
		CreatedAt:     parseTimestamp(d.CreatedAt),
		UpdatedAt:     parseTimestamp(d.UpdatedAt),
	}, nil
}

func newExpensePayload(in core.ExpenseInput) expensePayload {
	return expensePayload{
		Value:         in.Value.Reais(),
		Category:      string(in.Category),
		Date:          in.Date.ISO(),
		Description:   in.Description,
		PaymentMethod: in.PaymentMethod,
	}
}

func toMoneyMap(m map[string]float64) map[string]core.Money {
	out := make(map[string]core.Money, len(m))
	for k, v := range m {
		out[k] = core.MoneyFromFloat(v)
	}
	return out
}
