package amqp

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ganhos/internal/ledger"
	"ganhos/internal/storage"
)

type fakePublisher struct {
	err  error
	sent []*LedgerEvent
}

func (f *fakePublisher) PublishLedgerEvent(_ context.Context, msg *LedgerEvent) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func newOutbox(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "ganhos.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func sampleEvent() ledger.Event {
	return ledger.Event{
		Kind:          ledger.KindVoucher,
		Op:            ledger.OpCreate,
		ID:            "v1",
		Date:          time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC),
		MonthStartDay: 10,
	}
}

func TestNotifier_PublishesDirectly(t *testing.T) {
	pub := &fakePublisher{}
	n := NewNotifier(pub, nil)

	require.NoError(t, n.Notify(context.Background(), sampleEvent()))
	require.Len(t, pub.sent, 1)
	assert.Equal(t, "2024-03-02", pub.sent[0].Date)
}

func TestNotifier_WithoutOutboxReturnsError(t *testing.T) {
	n := NewNotifier(&fakePublisher{err: ErrCircuitOpen}, nil)
	assert.ErrorIs(t, n.Notify(context.Background(), sampleEvent()), ErrCircuitOpen)
}

func TestNotifier_ParksAndFlushes(t *testing.T) {
	ctx := context.Background()
	outbox := newOutbox(t)
	pub := &fakePublisher{err: errors.New("connection refused")}
	n := NewNotifier(pub, outbox)

	require.NoError(t, n.Notify(ctx, sampleEvent()))
	pending, err := outbox.PendingEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	delivered, err := n.Flush(ctx, 10)
	assert.Error(t, err)
	assert.Zero(t, delivered)
	pending, err = outbox.PendingEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.EqualValues(t, 1, pending[0].Attempts)

	pub.err = nil
	delivered, err = n.Flush(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, delivered)
	require.Len(t, pub.sent, 1)
	assert.Equal(t, "v1", pub.sent[0].ID)

	pending, err = outbox.PendingEvents(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestNotifier_WithoutBrokerParks(t *testing.T) {
	ctx := context.Background()
	outbox := newOutbox(t)
	n := NewNotifier(nil, outbox)

	require.NoError(t, n.Notify(ctx, sampleEvent()))
	pending, err := outbox.PendingEvents(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	delivered, err := n.Flush(ctx, 10)
	require.NoError(t, err)
	assert.Zero(t, delivered)
}
