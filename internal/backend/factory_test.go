package backend

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"ganhos/internal/config"
	"ganhos/internal/remote"
	"ganhos/internal/remote/httpapi"
	"ganhos/internal/remote/memory"
)

func TestFromAppConfig(t *testing.T) {
	_, err := FromAppConfig(nil, nil)
	assert.Error(t, err)

	_, err = FromAppConfig(&config.Config{DataBackend: "sheets"}, nil)
	assert.Error(t, err)

	cfg, err := FromAppConfig(&config.Config{DataBackend: "http", APIURL: "https://api"}, nil)
	require.NoError(t, err)
	assert.Equal(t, HTTPBackend, cfg.Type)
	assert.Equal(t, "data", cfg.DataDirectory)
	assert.Nil(t, cfg.Tokens)

	cfg, err = FromAppConfig(&config.Config{DataBackend: "http", APIURL: "https://api", APIToken: "abc"}, nil)
	require.NoError(t, err)
	tok, err := cfg.Tokens.Token()
	require.NoError(t, err)
	assert.Equal(t, "abc", tok.AccessToken)
}

func TestConfig_Validate(t *testing.T) {
	assert.Error(t, Config{Type: "nope"}.Validate())
	assert.Error(t, Config{Type: HTTPBackend}.Validate())
	assert.NoError(t, Config{Type: HTTPBackend, APIURL: "https://api"}.Validate())
	assert.NoError(t, Config{Type: MemoryBackend}.Validate())
	assert.Equal(t, []string{"http", "memory"}, GetBackendTypeStrings())
}

func TestFactory_CreateBackend(t *testing.T) {
	ctx := context.Background()
	f := NewFactory(nil)

	res, err := f.CreateBackend(ctx, Config{Type: HTTPBackend, APIURL: "https://api.example.com"})
	require.NoError(t, err)
	assert.IsType(t, &httpapi.Client{}, res.Backend)

	res, err = f.CreateBackend(ctx, Config{Type: MemoryBackend, DataDirectory: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &memory.Store{}, res.Backend)

	_, err = f.CreateBackend(ctx, Config{Type: MemoryBackend, DataDirectory: badSeedDir(t)})
	assert.Error(t, err)
}

func TestFactory_MemoryBackendSeeds(t *testing.T) {
	dir := t.TempDir()
	seed := `[{"id":"v1","taxNumber":"1","requestCode":"TRN-1","date":"2024-02-12","value":12.5}]`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "vouchers.json"), []byte(seed), 0o600))

	res, err := NewFactory(nil).CreateBackend(context.Background(), Config{Type: MemoryBackend, DataDirectory: dir})
	require.NoError(t, err)

	vs, err := res.Backend.ListVouchers(context.Background(), remote.Query{})
	require.NoError(t, err)
	require.Len(t, vs, 1)
	assert.EqualValues(t, 1250, vs[0].Value.Cents)
}

func TestTokenSourceFunc(t *testing.T) {
	var ts oauth2.TokenSource = TokenSourceFunc(func() (*oauth2.Token, error) {
		return &oauth2.Token{AccessToken: "late"}, nil
	})
	tok, err := ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "late", tok.AccessToken)
}

func badSeedDir(t *testing.T) string {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "expenses.json"), []byte("{"), 0o600))
	return dir
}
