// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data.
// Bodies may be JSON objects or form-encoded; malformed values are reported
// as core.ValidationError so they map to 422 like every other input failure.

package http

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"ganhos/internal/core"
)

const maxBodyBytes = 1 << 20

// RequestBodyParser handles different content types for request body parsing.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]interface{}
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser creates a parser for the given request.
// It reads the body once and stores it for subsequent parsing.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	if r.Body == nil {
		return p
	}
	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	trimmed := strings.TrimSpace(string(p.body))
	if trimmed == "" {
		p.formData = url.Values{}
		return nil
	}

	// Try JSON first if content looks like JSON
	if trimmed[0] == '{' {
		p.jsonData = make(map[string]interface{})
		if err := json.Unmarshal([]byte(trimmed), &p.jsonData); err != nil {
			p.jsonData = nil
			p.err = err
			return err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(trimmed)
	return p.err
}

// Has reports whether key was sent, even with an empty value.
func (p *RequestBodyParser) Has(key string) bool {
	if p.jsonData != nil {
		_, ok := p.jsonData[key]
		return ok
	}
	if p.formData != nil {
		_, ok := p.formData[key]
		return ok
	}
	return false
}

// Get returns a string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return strings.TrimSpace(sanitizeInput(stringValue(val)))
		}
		return ""
	}
	if p.formData != nil {
		return strings.TrimSpace(sanitizeInput(p.formData.Get(key)))
	}
	return ""
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

// stringValue converts an interface{} to string.
func stringValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// sanitizeInput removes control characters other than tab and newlines.
func sanitizeInput(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// ParseAnchor reads the optional ?anchor=YYYY-MM-DD parameter.
func ParseAnchor(query url.Values) (time.Time, bool, error) {
	raw := strings.TrimSpace(query.Get("anchor"))
	if raw == "" {
		return time.Time{}, false, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, false, &core.ValidationError{Field: "anchor", Message: "anchor must be YYYY-MM-DD"}
	}
	return t, true, nil
}

func (p *RequestBodyParser) money(key string, dst *core.Money) error {
	if !p.Has(key) {
		return nil
	}
	cents, err := core.ParseDecimalToCents(p.Get(key))
	if err != nil {
		return &core.ValidationError{Field: key, Message: "value must be a positive amount"}
	}
	*dst = core.Money{Cents: cents}
	return nil
}

func (p *RequestBodyParser) date(key string, dst *core.Date) error {
	if !p.Has(key) {
		return nil
	}
	d, err := core.ParseRecordDate(p.Get(key))
	if err != nil {
		return &core.ValidationError{Field: key, Message: "date must be YYYY-MM-DD"}
	}
	*dst = d
	return nil
}

func (p *RequestBodyParser) text(key string, dst *string) {
	if p.Has(key) {
		*dst = p.Get(key)
	}
}

// ParseVoucherInput overlays the fields present in the body on base.
func ParseVoucherInput(p *RequestBodyParser, base core.VoucherInput) (core.VoucherInput, error) {
	if err := p.Parse(); err != nil {
		return base, &core.ValidationError{Message: "malformed request body"}
	}
	in := base
	p.text("taxNumber", &in.TaxNumber)
	p.text("requestCode", &in.RequestCode)
	p.text("start", &in.Start)
	p.text("destination", &in.Destination)
	if err := p.date("date", &in.Date); err != nil {
		return base, err
	}
	if err := p.money("value", &in.Value); err != nil {
		return base, err
	}
	return in, nil
}

// ParseExpenseInput overlays the fields present in the body on base.
func ParseExpenseInput(p *RequestBodyParser, base core.ExpenseInput) (core.ExpenseInput, error) {
	if err := p.Parse(); err != nil {
		return base, &core.ValidationError{Message: "malformed request body"}
	}
	in := base
	p.text("description", &in.Description)
	p.text("paymentMethod", &in.PaymentMethod)
	if p.Has("category") {
		cat, err := core.ParseExpenseCategory(p.Get("category"))
		if err != nil {
			return base, &core.ValidationError{Field: "category", Message: err.Error()}
		}
		in.Category = cat
	}
	if err := p.date("date", &in.Date); err != nil {
		return base, err
	}
	if err := p.money("value", &in.Value); err != nil {
		return base, err
	}
	return in, nil
}

// ParseSettings overlays the fields present in the body on base.
func ParseSettings(p *RequestBodyParser, base core.Settings) (core.Settings, error) {
	if err := p.Parse(); err != nil {
		return base, &core.ValidationError{Message: "malformed request body"}
	}
	next := base
	if p.Has("discountPercentage") {
		v, err := strconv.ParseFloat(strings.Replace(p.Get("discountPercentage"), ",", ".", 1), 64)
		if err != nil {
			return base, &core.ValidationError{Field: "discountPercentage", Message: core.ErrInvalidDiscount.Error()}
		}
		next.DiscountPercentage = v
	}
	if p.Has("monthStartDay") {
		v, err := strconv.Atoi(p.Get("monthStartDay"))
		if err != nil {
			return base, &core.ValidationError{Field: "monthStartDay", Message: "month start day must be between 1 and 31"}
		}
		next.MonthStartDay = v
	}
	return next, nil
}
