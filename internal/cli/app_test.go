package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ganhos/internal/config"
	"ganhos/internal/core"
	"ganhos/internal/home"
	"ganhos/internal/remote"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Port:                "8081",
		DataBackend:         config.BackendMemory,
		MemorySeedDir:       t.TempDir(),
		SQLiteDBPath:        filepath.Join(t.TempDir(), "ganhos.db"),
		APITimeout:          time.Second,
		OutboxBatchSize:     10,
		OutboxFlushInterval: time.Minute,
		HomeSummarySource:   config.HomeSourceClient,
		LogLevel:            "info",
		LogFormat:           "text",
	}
}

func TestNewApp_MemoryBackend(t *testing.T) {
	ctx := context.Background()
	app, err := NewApp(ctx, testConfig(t), nil)
	require.NoError(t, err)
	defer app.Close()

	assert.Nil(t, app.Notifier)
	assert.IsType(t, &home.ClientProjector{}, app.Home)
	assert.Equal(t, core.DefaultSettings(), app.Settings.Current())

	today := time.Now().UTC()
	in := core.VoucherInput{TaxNumber: "1", RequestCode: "TRN-9", Start: "Centro", Destination: "Aeroporto", Date: core.NewDate(today.Year(), int(today.Month()), today.Day()), Value: core.Money{Cents: 4200}}
	require.NoError(t, app.Vouchers.Create(ctx, in))
	assert.Len(t, app.Vouchers.Records(), 1)

	sum, err := app.Home.Project(ctx, today, app.Settings.MonthStartDay())
	require.NoError(t, err)
	require.Len(t, sum.Periods, 3)
	assert.EqualValues(t, 4200, sum.Periods[2].Gross.Cents)
	require.Len(t, sum.Recent, 1)
	assert.Equal(t, "TRN-9", sum.Recent[0].RequestCode)
}

func TestNewApp_ServerHomeAndSessionToken(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.HomeSummarySource = config.HomeSourceServer

	app, err := NewApp(ctx, cfg, nil)
	require.NoError(t, err)
	defer app.Close()

	assert.IsType(t, &home.RemoteProjector{}, app.Home)

	_, err = app.Auth.Register(ctx, remote.RegisterRequest{Name: "Ana Souza", Email: "ana@example.com", Password: "secret1", ConfirmPassword: "secret1"})
	require.NoError(t, err)
	sess, err := app.Auth.Login(ctx, "ana@example.com", "secret1")
	require.NoError(t, err)

	tok, err := app.Auth.Token()
	require.NoError(t, err)
	assert.Equal(t, sess.Token, tok.AccessToken)
	assert.False(t, tok.Expiry.IsZero())
}

func TestApp_StartAndClose(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	app, err := NewApp(ctx, testConfig(t), nil)
	require.NoError(t, err)

	app.Start(ctx)
	require.NoError(t, app.Settings.SetMonthStartDay(ctx, 12))
	cancel()
	assert.NoError(t, app.Close())
}

func TestLoadAndValidateConfig_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ganhos.yaml")
	require.NoError(t, os.WriteFile(path, []byte("data_backend: nope\n"), 0o600))
	_, err := LoadAndValidateConfig(path)
	assert.ErrorContains(t, err, "invalid data backend")
}
