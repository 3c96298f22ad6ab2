package backend

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"finanzas/internal/config"
	applog "finanzas/internal/log"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *applog.Logger {
	return applog.New(applog.Config{Output: io.Discard})
}

func TestFromAppConfig(t *testing.T) {
	cfg, err := FromAppConfig(&config.Config{DataBackend: "sqlite", SQLiteDBPath: "x.db", SeedOnStart: true})
	require.NoError(t, err)
	assert.Equal(t, Config{Type: SQLiteBackend, SQLiteDBPath: "x.db", SeedOnStart: true}, cfg)

	_, err = FromAppConfig(&config.Config{DataBackend: "sheets"})
	assert.Error(t, err)

	_, err = FromAppConfig(nil)
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, Config{Type: MemoryBackend}.Validate())
	assert.Error(t, Config{Type: SQLiteBackend}.Validate())
	assert.Error(t, Config{Type: "postgres"}.Validate())
	assert.Equal(t, []string{"sqlite", "memory"}, GetBackendTypeStrings())
}

func TestCreateMemoryBackendSeeded(t *testing.T) {
	ctx := context.Background()
	result, err := NewFactory(quietLogger()).CreateBackend(ctx, Config{Type: MemoryBackend, SeedOnStart: true})
	require.NoError(t, err)
	defer result.Cleanup()

	profiles, err := result.Store.ListProfiles(ctx)
	require.NoError(t, err)
	assert.Len(t, profiles, 3)

	lines, err := result.Store.ListBudgetLines(ctx, "diego", 2026)
	require.NoError(t, err)
	assert.NotEmpty(t, lines)
}

func TestCreateMemoryBackendUnseeded(t *testing.T) {
	ctx := context.Background()
	result, err := NewFactory(quietLogger()).CreateBackend(ctx, Config{Type: MemoryBackend})
	require.NoError(t, err)

	profiles, err := result.Store.ListProfiles(ctx)
	require.NoError(t, err)
	assert.Empty(t, profiles)
}

func TestCreateSQLiteBackendSeedIsIdempotent(t *testing.T) {
	ctx := context.Background()
	cfg := Config{
		Type:         SQLiteBackend,
		SQLiteDBPath: filepath.Join(t.TempDir(), "finanzas.db"),
		SeedOnStart:  true,
	}
	factory := NewFactory(quietLogger())

	first, err := factory.CreateBackend(ctx, cfg)
	require.NoError(t, err)
	before, err := first.Store.ListBudgetLines(ctx, "casa", 2026)
	require.NoError(t, err)
	require.NoError(t, first.Cleanup())

	second, err := factory.CreateBackend(ctx, cfg)
	require.NoError(t, err)
	defer second.Cleanup()
	after, err := second.Store.ListBudgetLines(ctx, "casa", 2026)
	require.NoError(t, err)
	assert.Len(t, after, len(before))
}

func TestCreateBackendBadSeedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte("profiles: [oops"), 0o600))

	_, err := NewFactory(quietLogger()).CreateBackend(context.Background(), Config{
		Type:        MemoryBackend,
		SeedOnStart: true,
		SeedFile:    path,
	})
	assert.Error(t, err)
}
