package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Food          ExpenseCategory = "FOOD"
	Transport     ExpenseCategory = "TRANSPORT"
	Housing       ExpenseCategory = "HOUSING"
	Entertainment ExpenseCategory = "ENTERTAINMENT"
	Healthcare    ExpenseCategory = "HEALTHCARE"
	Education     ExpenseCategory = "EDUCATION"
	Utilities     ExpenseCategory = "UTILITIES"
	Shopping      ExpenseCategory = "SHOPPING"
	Other         ExpenseCategory = "OTHER"
)

// categoryPrefixLen is how many leading characters of a request code name
// the voucher category.
const categoryPrefixLen = 3

type (
	ExpenseCategory string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Record is the capability shared by vouchers and expenses: a dated,
	// valued, categorized entry owned by the remote store.
	Record interface {
		RecordID() string
		RecordDate() time.Time
		RecordValue() Money
		RecordCategory() string
	}

	Voucher struct {
		ID          string
		TaxNumber   string
		RequestCode string
		Date        Date
		Value       Money
		Start       string
		Destination string
	}

	Expense struct {
		ID            string
		Value         Money
		Category      ExpenseCategory
		Date          Date
		Description   string
		PaymentMethod string
		UserID        string
		CreatedAt     time.Time
		UpdatedAt     time.Time
	}

	// VoucherInput holds the client-writable voucher fields.
	VoucherInput struct {
		TaxNumber   string
		RequestCode string
		Date        Date
		Value       Money
		Start       string
		Destination string
	}

	// ExpenseInput holds the client-writable expense fields.
	ExpenseInput struct {
		Value         Money
		Category      ExpenseCategory
		Date          Date
		Description   string
		PaymentMethod string
	}
)

var (
	ErrInvalidDay      = errors.New("invalid day")
	ErrInvalidMonth    = errors.New("invalid month")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidDate     = errors.New("invalid date")
	ErrInvalidCategory = errors.New("invalid expense category")
)

var expenseCategories = []ExpenseCategory{
	Food, Transport, Housing, Entertainment, Healthcare, Education, Utilities, Shopping, Other,
}

// ExpenseCategories returns the closed set of expense categories in display order.
func ExpenseCategories() []ExpenseCategory {
	return append([]ExpenseCategory(nil), expenseCategories...)
}

// ParseExpenseCategory matches s case-insensitively against the closed set.
func ParseExpenseCategory(s string) (ExpenseCategory, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for _, c := range expenseCategories {
		if string(c) == s {
			return c, nil
		}
	}
	return "", ErrInvalidCategory
}

func (c ExpenseCategory) Valid() bool {
	_, err := ParseExpenseCategory(string(c))
	return err == nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	_, month, day := d.Date()
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// NewDate creates a new Date at UTC midnight.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseRecordDate parses the economic date of a record as sent by the remote
// store. Both "2006-01-02" and RFC3339 timestamps are accepted; the result is
// UTC midnight of the UTC calendar date, so a record never shifts a day
// because of the local timezone.
func ParseRecordDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, ErrInvalidDate
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return Date{Time: t}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	t = t.UTC()
	return NewDate(t.Year(), int(t.Month()), t.Day()), nil
}

// ISO returns the date as YYYY-MM-DD.
func (d Date) ISO() string {
	return d.Format(time.DateOnly)
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (v Voucher) RecordID() string       { return v.ID }
func (v Voucher) RecordDate() time.Time  { return v.Date.Time }
func (v Voucher) RecordValue() Money     { return v.Value }
func (v Voucher) RecordCategory() string { return VoucherCategory(v.RequestCode) }

func (e Expense) RecordID() string       { return e.ID }
func (e Expense) RecordDate() time.Time  { return e.Date.Time }
func (e Expense) RecordValue() Money     { return e.Value }
func (e Expense) RecordCategory() string { return string(e.Category) }

// VoucherCategory derives the category key from a request code: its first
// three characters. Shorter codes are returned whole.
func VoucherCategory(requestCode string) string {
	r := []rune(requestCode)
	if len(r) > categoryPrefixLen {
		r = r[:categoryPrefixLen]
	}
	return string(r)
}

func (in VoucherInput) Validate() error {
	if strings.TrimSpace(in.TaxNumber) == "" {
		return &ValidationError{Field: "taxNumber", Message: "tax number is required"}
	}
	if strings.TrimSpace(in.RequestCode) == "" {
		return &ValidationError{Field: "requestCode", Message: "request code is required"}
	}
	if err := in.Date.Validate(); err != nil {
		return &ValidationError{Field: "date", Message: err.Error()}
	}
	if err := in.Value.Validate(); err != nil {
		return &ValidationError{Field: "value", Message: "value must be greater than zero"}
	}
	if strings.TrimSpace(in.Start) == "" {
		return &ValidationError{Field: "start", Message: "start is required"}
	}
	if strings.TrimSpace(in.Destination) == "" {
		return &ValidationError{Field: "destination", Message: "destination is required"}
	}
	return nil
}

func (in ExpenseInput) Validate() error {
	if err := in.Value.Validate(); err != nil {
		return &ValidationError{Field: "value", Message: "value must be greater than zero"}
	}
	if !in.Category.Valid() {
		return &ValidationError{Field: "category", Message: ErrInvalidCategory.Error()}
	}
	if err := in.Date.Validate(); err != nil {
		return &ValidationError{Field: "date", Message: err.Error()}
	}
	if len(in.Description) > 200 {
		return &ValidationError{Field: "description", Message: "description too long (max 200 characters)"}
	}
	return nil
}

// Input returns the writable fields of v.
func (v Voucher) Input() VoucherInput {
	return VoucherInput{
		TaxNumber:   v.TaxNumber,
		RequestCode: v.RequestCode,
		Date:        v.Date,
		Value:       v.Value,
		Start:       v.Start,
		Destination: v.Destination,
	}
}

// Input returns the writable fields of e.
func (e Expense) Input() ExpenseInput {
	return ExpenseInput{
		Value:         e.Value,
		Category:      e.Category,
		Date:          e.Date,
		Description:   e.Description,
		PaymentMethod: e.PaymentMethod,
	}
}
