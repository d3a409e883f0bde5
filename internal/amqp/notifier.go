package amqp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"ganhos/internal/ledger"
	applog "ganhos/internal/log"
	"ganhos/internal/storage"
)

// Publisher sends ledger events to the broker.
type Publisher interface {
	PublishLedgerEvent(ctx context.Context, msg *LedgerEvent) error
}

// Outbox stores events that could not be published.
type Outbox interface {
	EnqueueEvent(ctx context.Context, payload []byte) (int64, error)
	PendingEvents(ctx context.Context, limit int) ([]storage.OutboxEvent, error)
	MarkDelivered(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64) error
}

var _ ledger.Notifier = (*Notifier)(nil)

// ErrNoBroker is reported when no broker connection is available.
var ErrNoBroker = errors.New("no AMQP broker connected")

// Notifier implements ledger.Notifier on top of a Publisher. Events that fail
// to publish are parked in the outbox when one is configured.
type Notifier struct {
	pub    Publisher
	outbox Outbox
}

// NewNotifier returns a notifier. Either pub or outbox may be nil; without a
// publisher every event is parked.
func NewNotifier(pub Publisher, outbox Outbox) *Notifier {
	return &Notifier{pub: pub, outbox: outbox}
}

func (n *Notifier) Notify(ctx context.Context, ev ledger.Event) error {
	msg := NewLedgerEvent(ev)
	err := ErrNoBroker
	if n.pub != nil {
		err = n.pub.PublishLedgerEvent(ctx, msg)
	}
	if err == nil {
		return nil
	}
	if n.outbox == nil || errors.Is(err, context.Canceled) {
		return err
	}

	payload, merr := msg.ToJSON()
	if merr != nil {
		return errors.Join(err, merr)
	}
	id, oerr := n.outbox.EnqueueEvent(ctx, payload)
	if oerr != nil {
		return errors.Join(err, fmt.Errorf("enqueue outbox: %w", oerr))
	}
	slog.WarnContext(ctx, "Ledger event parked in outbox",
		applog.FieldComponent, applog.ComponentAMQP,
		applog.FieldKind, msg.Kind,
		applog.FieldRecordID, msg.ID,
		"outbox_id", id,
		applog.FieldError, err)
	return nil
}

// Flush republishes up to limit parked events and returns how many were
// delivered. It stops at the first publish failure.
func (n *Notifier) Flush(ctx context.Context, limit int) (int, error) {
	if n.outbox == nil || n.pub == nil {
		return 0, nil
	}
	events, err := n.outbox.PendingEvents(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("list outbox: %w", err)
	}

	delivered := 0
	for _, e := range events {
		msg, err := LedgerEventFromJSON([]byte(e.Payload))
		if err != nil {
			slog.ErrorContext(ctx, "Dropping malformed outbox event", "outbox_id", e.ID, applog.FieldError, err)
			if derr := n.outbox.MarkDelivered(ctx, e.ID); derr != nil {
				return delivered, derr
			}
			continue
		}
		if err := n.pub.PublishLedgerEvent(ctx, msg); err != nil {
			if ferr := n.outbox.MarkFailed(ctx, e.ID); ferr != nil {
				return delivered, errors.Join(err, ferr)
			}
			return delivered, err
		}
		if err := n.outbox.MarkDelivered(ctx, e.ID); err != nil {
			return delivered, err
		}
		delivered++
	}
	return delivered, nil
}
