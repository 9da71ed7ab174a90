package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zentra/internal/apperr"
	"zentra/internal/gateway/config"
)

func testConfig(t *testing.T, catalogPath string) *config.Config {
	t.Helper()
	return &config.Config{
		Port:          ":0",
		Env:           "test",
		UserCacheSize: 16,
		Catalog:       config.CatalogConfig{Path: catalogPath},
		LLM:           config.LLMConfig{Provider: "fake", Timeout: time.Second},
		Log:           config.LogConfig{Level: "error"},
	}
}

func TestNewWithConfigFailsWithoutCatalog(t *testing.T) {
	_, err := NewWithConfig(context.Background(), testConfig(t, filepath.Join(t.TempDir(), "missing.json")))
	require.Error(t, err)
	assert.Equal(t, apperr.CodeConfiguration, apperr.CodeOf(err))
}

func TestNewWithConfigAndShutdown(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credit_cards.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"credit_cards":[{"id":"a","name":"A"}]}`), 0o644))

	a, err := NewWithConfig(context.Background(), testConfig(t, path))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, a.Shutdown(ctx))
}

func TestReloadCatalogKeepsPreviousOnFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credit_cards.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"id":"a","name":"A"}]`), 0o644))

	a, err := NewWithConfig(context.Background(), testConfig(t, path))
	require.NoError(t, err)
	defer a.Shutdown(context.Background())

	require.NoError(t, os.WriteFile(path, []byte(`[{"id":"a","name":"A"},{"id":"b","name":"B"}]`), 0o644))
	require.NoError(t, a.ReloadCatalog(context.Background()))
	snap, err := a.catalog.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, snap.Len())

	require.NoError(t, os.WriteFile(path, []byte(`not json`), 0o644))
	require.Error(t, a.ReloadCatalog(context.Background()))
	snap, err = a.catalog.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, snap.Len())
}
