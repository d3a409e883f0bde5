package settings

import (
	"context"
	"errors"
	"sync"
	"testing"

	"ganhos/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapKV struct {
	mu      sync.Mutex
	data    map[string]string
	failSet error
}

func newMapKV(init map[string]string) *mapKV {
	if init == nil {
		init = map[string]string{}
	}
	return &mapKV{data: init}
}

func (m *mapKV) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *mapKV) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSet != nil {
		return m.failSet
	}
	m.data[key] = value
	return nil
}

func TestLoadDefaults(t *testing.T) {
	s, err := Load(context.Background(), newMapKV(nil))
	require.NoError(t, err)
	assert.Equal(t, core.Settings{DiscountPercentage: 0.15, MonthStartDay: 1}, s.Current())
}

func TestLoadStoredAndUnparsable(t *testing.T) {
	kv := newMapKV(map[string]string{
		KeyDiscountPercentage: "0.2",
		KeyMonthStartDay:      "abc",
	})
	s, err := Load(context.Background(), kv)
	require.NoError(t, err)
	assert.Equal(t, 0.2, s.DiscountPercentage())
	assert.Equal(t, 1, s.MonthStartDay())
}

func TestSetPersistsAndNotifies(t *testing.T) {
	ctx := context.Background()
	kv := newMapKV(nil)
	s, err := Load(ctx, kv)
	require.NoError(t, err)

	var got []core.Settings
	unsubscribe := s.Subscribe(func(_, next core.Settings) { got = append(got, next) })

	require.NoError(t, s.SetMonthStartDay(ctx, 10))
	assert.Equal(t, "10", kv.data[KeyMonthStartDay])
	require.Len(t, got, 1)
	assert.Equal(t, 10, got[0].MonthStartDay)

	// Same value persists again but does not notify.
	require.NoError(t, s.SetMonthStartDay(ctx, 10))
	assert.Len(t, got, 1)

	unsubscribe()
	require.NoError(t, s.SetDiscountPercentage(ctx, 0.3))
	assert.Equal(t, "0.3", kv.data[KeyDiscountPercentage])
	assert.Len(t, got, 1)

	reloaded, err := Load(ctx, kv)
	require.NoError(t, err)
	assert.Equal(t, core.Settings{DiscountPercentage: 0.3, MonthStartDay: 10}, reloaded.Current())
}

func TestSetRejectsInvalid(t *testing.T) {
	ctx := context.Background()
	s, err := Load(ctx, newMapKV(nil))
	require.NoError(t, err)

	assert.True(t, core.IsValidation(s.SetMonthStartDay(ctx, 0)))
	assert.True(t, core.IsValidation(s.SetDiscountPercentage(ctx, -0.1)))
	assert.Equal(t, core.DefaultSettings(), s.Current())
}

func TestSetPersistFailureKeepsValue(t *testing.T) {
	ctx := context.Background()
	kv := newMapKV(nil)
	s, err := Load(ctx, kv)
	require.NoError(t, err)

	kv.failSet = errors.New("disk full")
	assert.Error(t, s.SetMonthStartDay(ctx, 5))
	assert.Equal(t, 1, s.MonthStartDay())
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	kv := newMapKV(nil)
	s, err := Load(ctx, kv)
	require.NoError(t, err)

	calls := 0
	s.Subscribe(func(_, _ core.Settings) { calls++ })
	require.NoError(t, s.Update(ctx, core.Settings{DiscountPercentage: 0.15, MonthStartDay: 20}))
	assert.Equal(t, 1, calls)
	_, ok := kv.data[KeyDiscountPercentage]
	assert.False(t, ok)
}

func TestConcurrentSettersKeepBothValues(t *testing.T) {
	ctx := context.Background()
	for i := 0; i < 50; i++ {
		s, err := Load(ctx, newMapKV(nil))
		require.NoError(t, err)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.SetDiscountPercentage(ctx, 0.3))
		}()
		go func() {
			defer wg.Done()
			assert.NoError(t, s.SetMonthStartDay(ctx, 12))
		}()
		wg.Wait()

		assert.Equal(t, core.Settings{DiscountPercentage: 0.3, MonthStartDay: 12}, s.Current())
	}
}
