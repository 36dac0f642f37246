package backend

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensetracker/internal/config"
	"expensetracker/internal/core"
	"expensetracker/internal/services"
)

func TestFromAppConfig(t *testing.T) {
	_, err := FromAppConfig(nil)
	assert.Error(t, err)

	_, err = FromAppConfig(&config.Config{DataBackend: "sheets"})
	assert.Error(t, err)

	cfg, err := FromAppConfig(&config.Config{
		DataBackend:     "memory",
		DataDir:         "seed",
		CacheTTL:        time.Minute,
		DefaultCategory: "Misc",
	})
	require.NoError(t, err)
	assert.Equal(t, MemoryBackend, cfg.Type)
	assert.Equal(t, "seed", cfg.DataDirectory)
	assert.Equal(t, time.Minute, cfg.CacheTTL)
	assert.Equal(t, "Misc", cfg.DefaultCategory)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"sqlite ok", Config{Type: SQLiteBackend, SQLiteDBPath: "x.db"}, false},
		{"sqlite without path", Config{Type: SQLiteBackend}, true},
		{"postgres without url", Config{Type: PostgresBackend}, true},
		{"memory ok", Config{Type: MemoryBackend}, false},
		{"unknown type", Config{Type: "sheets"}, true},
		{"amqp without queue", Config{Type: MemoryBackend, AMQPURL: "amqp://localhost", AMQPExchange: "ledger"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			assert.Equal(t, tt.wantErr, err != nil, "err = %v", err)
		})
	}
	assert.Equal(t, []string{"sqlite", "memory", "postgres"}, GetBackendTypeStrings())
}

func TestCreateBackend_Memory(t *testing.T) {
	dir := t.TempDir()
	seed := "# date,category,note,amount\n2024-01-05,food,lunch,20\n2024-02-01,transit,bus,10\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "seed_expenses.csv"), []byte(seed), 0644))

	result, err := NewFactory(nil).CreateBackend(context.Background(), Config{
		Type:            MemoryBackend,
		DataDirectory:   dir,
		CacheTTL:        time.Minute,
		DefaultCategory: "Misc",
	})
	require.NoError(t, err)
	ctx := context.Background()

	top, err := result.Ledger.TopCategory(ctx)
	require.NoError(t, err)
	assert.Equal(t, core.CategoryTotal{Category: "food", Total: 20}, top)

	e, err := result.Ledger.Add(ctx, services.Input{Amount: "5"})
	require.NoError(t, err)
	assert.Equal(t, "Misc", e.Category)

	require.NoError(t, result.Cleanup())
	assert.ErrorIs(t, result.Ledger.Ping(ctx), core.ErrStorage)
}

func TestCreateBackend_SQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db", "ledger.db")
	result, err := NewFactory(nil).CreateBackend(context.Background(), Config{
		Type:         SQLiteBackend,
		SQLiteDBPath: path,
	})
	require.NoError(t, err)
	defer result.Cleanup()

	ctx := context.Background()
	require.NoError(t, result.Ledger.Ping(ctx))
	_, err = result.Ledger.Add(ctx, services.Input{Category: "food", Amount: "20", Date: "2024-01-05"})
	require.NoError(t, err)

	all, err := result.Ledger.Expenses(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestMirrorFromAppConfig(t *testing.T) {
	_, err := MirrorFromAppConfig(&config.Config{})
	assert.Error(t, err, "mirror disabled")

	_, err = MirrorFromAppConfig(&config.Config{MirrorBackend: "memory"})
	assert.Error(t, err)

	cfg, err := MirrorFromAppConfig(&config.Config{
		DataBackend:        "sqlite",
		SQLiteDBPath:       "ledger.db",
		MirrorBackend:      "sqlite",
		MirrorSQLiteDBPath: "mirror.db",
		AMQPURL:            "amqp://localhost",
	})
	require.NoError(t, err)
	assert.Equal(t, SQLiteBackend, cfg.Type)
	assert.Equal(t, "mirror.db", cfg.SQLiteDBPath)
	assert.Empty(t, cfg.AMQPURL)
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()
	f := NewFactory(nil)

	store, err := f.OpenStore(ctx, Config{Type: SQLiteBackend, SQLiteDBPath: filepath.Join(t.TempDir(), "mirror.db")})
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.Ping(ctx))

	_, err = f.OpenStore(ctx, Config{Type: PostgresBackend})
	assert.Error(t, err)
}
