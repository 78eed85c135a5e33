package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"buyerwatch/internal/entities"
	"buyerwatch/internal/infrastructure"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestPostgresStore needs a disposable database: every table is truncated
func newTestPostgresStore(t *testing.T) *PostgresStore {
	t.Helper()
	dsn := os.Getenv("BUYERWATCH_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("BUYERWATCH_TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	client, err := infrastructure.NewPostgresClient(ctx, dsn)
	require.NoError(t, err)
	_, err = client.Pool.Exec(ctx, "TRUNCATE chat_messages, chat_imports, settings, ask_stats")
	require.NoError(t, err)

	store := NewPostgresStore(client)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestPostgresStore_Messages(t *testing.T) {
	ctx := context.Background()
	store := newTestPostgresStore(t)

	last, err := store.LastImport(ctx)
	require.NoError(t, err)
	assert.Nil(t, last)

	first := entities.ChatImport{ID: "batch-1", Source: "upload", FileName: "a.txt", MessageCount: 2, CreatedAt: time.Now().Add(-time.Hour)}
	require.NoError(t, store.ReplaceMessages(ctx, first, []string{"one", "two"}))
	require.NoError(t, store.AppendMessages(ctx, "whatsapp", []string{"three", "four"}))

	lines, err := store.ListMessages(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two", "three", "four"}, lines)

	second := entities.ChatImport{ID: "batch-2", Source: "sample", FileName: "sample_chat", MessageCount: 1, SkippedFiles: 2, CreatedAt: time.Now()}
	require.NoError(t, store.ReplaceMessages(ctx, second, []string{"fresh"}))

	n, err := store.CountMessages(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	last, err = store.LastImport(ctx)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, "batch-2", last.ID)
	assert.Equal(t, 2, last.SkippedFiles)

	require.NoError(t, store.ClearMessages(ctx))
	n, err = store.CountMessages(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	last, err = store.LastImport(ctx)
	require.NoError(t, err)
	assert.Nil(t, last)
}

func TestPostgresStore_Settings(t *testing.T) {
	ctx := context.Background()
	store := newTestPostgresStore(t)

	v, err := store.GetSetting(ctx, "ai_api_key")
	require.NoError(t, err)
	assert.Empty(t, v)

	require.NoError(t, store.SetSetting(ctx, "ai_api_key", "k1"))
	require.NoError(t, store.SetSetting(ctx, "ai_api_key", "k2"))
	v, err = store.GetSetting(ctx, "ai_api_key")
	require.NoError(t, err)
	assert.Equal(t, "k2", v)

	require.NoError(t, store.DeleteSetting(ctx, "ai_api_key"))
	v, err = store.GetSetting(ctx, "ai_api_key")
	require.NoError(t, err)
	assert.Empty(t, v)
}

func TestPostgresStore_AskStats(t *testing.T) {
	ctx := context.Background()
	store := newTestPostgresStore(t)

	day := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	store.UsageRepository.now = func() time.Time { return day }
	require.NoError(t, store.RecordAsk(ctx, "status", "keyword"))
	require.NoError(t, store.RecordAsk(ctx, "status", "keyword"))
	require.NoError(t, store.RecordAsk(ctx, "none", "remote"))

	store.UsageRepository.now = func() time.Time { return day.AddDate(0, 0, -10) }
	require.NoError(t, store.RecordAsk(ctx, "rera", "keyword"))

	store.UsageRepository.now = func() time.Time { return day }
	stats, err := store.AskStats(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, []entities.AskStat{
		{Day: "2024-05-10", Category: "none", Strategy: "remote", Count: 1},
		{Day: "2024-05-10", Category: "status", Strategy: "keyword", Count: 2},
	}, stats)
}
