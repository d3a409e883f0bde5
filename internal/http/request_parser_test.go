package http

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ganhos/internal/core"
)

func parserFor(body, contentType string) *RequestBodyParser {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	r.Header.Set("Content-Type", contentType)
	return NewRequestBodyParser(r)
}

func TestRequestBodyParser(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		key    string
		want   string
		has    bool
		isJSON bool
	}{
		{"json string", `{"a":" x "}`, "a", "x", true, true},
		{"json number", `{"a":12.5}`, "a", "12.5", true, true},
		{"json missing", `{"a":1}`, "b", "", false, true},
		{"form", "a=hello&b=", "a", "hello", true, false},
		{"form empty value", "a=hello&b=", "b", "", true, false},
		{"control chars stripped", `{"a":"x\u0000y"}`, "a", "xy", true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := parserFor(tt.body, "application/json")
			require.NoError(t, p.Parse())
			assert.Equal(t, tt.want, p.Get(tt.key))
			assert.Equal(t, tt.has, p.Has(tt.key))
			assert.Equal(t, tt.isJSON, p.IsJSON())
		})
	}
}

func TestRequestBodyParserMalformedJSON(t *testing.T) {
	p := parserFor(`{"a":`, "application/json")
	assert.Error(t, p.Parse())
	assert.Error(t, p.Parse(), "the error is sticky")

	_, err := ParseVoucherInput(parserFor(`{"a":`, "application/json"), core.VoucherInput{})
	assert.True(t, core.IsValidation(err))
}

func TestParseVoucherInputOverlaysBase(t *testing.T) {
	base := core.VoucherInput{
		TaxNumber:   "1",
		RequestCode: "TRN-1",
		Date:        core.NewDate(2024, 2, 10),
		Value:       core.Money{Cents: 1000},
		Start:       "A",
		Destination: "B",
	}
	in, err := ParseVoucherInput(parserFor(`{"value":"R$ 1.234,56","destination":"C"}`, "application/json"), base)
	require.NoError(t, err)
	assert.EqualValues(t, 123456, in.Value.Cents)
	assert.Equal(t, "C", in.Destination)
	assert.Equal(t, "TRN-1", in.RequestCode)
	assert.Equal(t, base.Date, in.Date)
}

func TestParseVoucherInputErrors(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"bad value", `{"value":"abc"}`, "value"},
		{"zero value", `{"value":0}`, "value"},
		{"bad date", `{"date":"10/02/2024"}`, "date"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseVoucherInput(parserFor(tt.body, "application/json"), core.VoucherInput{})
			var ve *core.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestParseExpenseInput(t *testing.T) {
	in, err := ParseExpenseInput(parserFor("value=12,30&category=transport&date=2024-03-01T15:04:05Z&description=Uber", "application/x-www-form-urlencoded"), core.ExpenseInput{})
	require.NoError(t, err)
	assert.EqualValues(t, 1230, in.Value.Cents)
	assert.Equal(t, core.Transport, in.Category)
	assert.Equal(t, "2024-03-01", in.Date.ISO())
	assert.Equal(t, "Uber", in.Description)
	require.NoError(t, in.Validate())
}

func TestParseSettings(t *testing.T) {
	base := core.DefaultSettings()

	next, err := ParseSettings(parserFor(`{"discountPercentage":"0,25"}`, "application/json"), base)
	require.NoError(t, err)
	assert.Equal(t, 0.25, next.DiscountPercentage)
	assert.Equal(t, base.MonthStartDay, next.MonthStartDay)

	_, err = ParseSettings(parserFor(`{"monthStartDay":"x"}`, "application/json"), base)
	assert.True(t, core.IsValidation(err))
}

func TestParseAnchor(t *testing.T) {
	_, ok, err := ParseAnchor(url.Values{})
	require.NoError(t, err)
	assert.False(t, ok)

	got, ok, err := ParseAnchor(url.Values{"anchor": {"2024-02-10"}})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC), got)

	_, _, err = ParseAnchor(url.Values{"anchor": {"yesterday"}})
	assert.True(t, core.IsValidation(err))
}
