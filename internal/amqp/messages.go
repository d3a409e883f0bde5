package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"ganhos/internal/ledger"
)

// LedgerEvent announces a successful voucher or expense mutation. It carries
// only what a consumer needs to recompute the affected billing period; the
// records themselves are fetched from the remote service.
type LedgerEvent struct {
	Kind          string    `json:"kind"`
	Op            string    `json:"op"`
	ID            string    `json:"id,omitempty"`
	Date          string    `json:"date,omitempty"`
	PrevDate      string    `json:"prevDate,omitempty"`
	MonthStartDay int       `json:"monthStartDay"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewLedgerEvent converts a ledger event to its wire form.
func NewLedgerEvent(ev ledger.Event) *LedgerEvent {
	msg := &LedgerEvent{
		Kind:          ev.Kind,
		Op:            string(ev.Op),
		ID:            ev.ID,
		MonthStartDay: ev.MonthStartDay,
		Timestamp:     ev.Timestamp,
	}
	if !ev.Date.IsZero() {
		msg.Date = ev.Date.UTC().Format(time.DateOnly)
	}
	if !ev.PrevDate.IsZero() {
		msg.PrevDate = ev.PrevDate.UTC().Format(time.DateOnly)
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	return msg
}

// RecordDate parses Date. The boolean is false when the event has no date.
func (m *LedgerEvent) RecordDate() (time.Time, bool, error) {
	return parseEventDate(m.Date, "date")
}

// PreviousDate parses PrevDate, the record date before an update.
func (m *LedgerEvent) PreviousDate() (time.Time, bool, error) {
	return parseEventDate(m.PrevDate, "previous date")
}

func parseEventDate(s, field string) (time.Time, bool, error) {
	if s == "" {
		return time.Time{}, false, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse event %s: %w", field, err)
	}
	return t, true, nil
}

// ToJSON converts the message to JSON bytes
func (m *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventFromJSON creates a message from JSON bytes
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var msg LedgerEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Kind != ledger.KindVoucher && msg.Kind != ledger.KindExpense {
		return nil, fmt.Errorf("unknown event kind %q", msg.Kind)
	}
	return &msg, nil
}
