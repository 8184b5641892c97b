package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/svacron/metals/backend/src/database"
	"github.com/svacron/metals/backend/src/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	database.InitDB(filepath.Join(t.TempDir(), "test.db"))
	t.Cleanup(func() { database.DB.Close() })
	return NewStore(database.DB)
}

func TestRecordRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	missing, err := store.GetRecord(ctx, models.Gold)
	require.NoError(t, err)
	assert.Nil(t, missing, "absent record reads as nil, not an error")

	record := &models.MetalRecord{
		Name:        "Gold",
		Symbol:      "Au",
		LastUpdated: "2025-06-04T12:00:00+05:30",
		Rates: []models.MetalRate{
			{Purity: "999", Price: decimal.NewFromInt(7000), Change: decimal.NewFromInt(150), ChangePercent: decimal.RequireFromString("2.19")},
		},
		History: []models.HistoryEntry{
			{Date: "2025-06-04", Price: decimal.NewFromInt(7000), Change: decimal.NewFromInt(150)},
			{Date: "2025-06-03", Price: decimal.NewFromInt(6850), Change: decimal.Zero},
		},
	}
	require.NoError(t, store.SaveRecord(ctx, models.Gold, record))

	got, err := store.GetRecord(ctx, models.Gold)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Gold", got.Name)
	require.Len(t, got.History, 2)
	assert.True(t, decimal.NewFromInt(7000).Equal(got.History[0].Price))
	assert.True(t, decimal.RequireFromString("2.19").Equal(got.Rates[0].ChangePercent))

	// upsert replaces the document
	record.LastUpdated = "2025-06-05T12:00:00+05:30"
	require.NoError(t, store.SaveRecord(ctx, models.Gold, record))
	got, err = store.GetRecord(ctx, models.Gold)
	require.NoError(t, err)
	assert.Equal(t, "2025-06-05T12:00:00+05:30", got.LastUpdated)
}

func TestGetHistory(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	history, err := store.GetHistory(ctx, models.Silver)
	require.NoError(t, err)
	assert.Empty(t, history)

	record := &models.MetalRecord{
		Name:   "Silver",
		Symbol: "Ag",
		History: []models.HistoryEntry{
			{Date: "2025-06-04", Price: decimal.NewFromInt(82)},
		},
	}
	require.NoError(t, store.SaveRecord(ctx, models.Silver, record))

	history, err = store.GetHistory(ctx, models.Silver)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "2025-06-04", history[0].Date)
}

func TestSettings(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, ok, err := store.GetSetting(ctx, "schedule")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.SetSetting(ctx, "schedule", `{"enabled":true}`))
	require.NoError(t, store.SetSetting(ctx, "schedule", `{"enabled":false}`))

	value, ok, err := store.GetSetting(ctx, "schedule")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"enabled":false}`, value)
}

func TestScrapeLogs(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.InsertScrapeLog(ctx, models.ScrapeLog{Source: "fivepaisa", Metal: "gold", Success: true, Price: "7145.05"}))
	require.NoError(t, store.InsertScrapeLog(ctx, models.ScrapeLog{Source: "fivepaisa", Metal: "silver", Error: "price not found in page"}))

	logs, err := store.RecentScrapeLogs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	// newest first
	assert.Equal(t, "silver", logs[0].Metal)
	assert.False(t, logs[0].Success)
	assert.Equal(t, "gold", logs[1].Metal)
	assert.Equal(t, "7145.05", logs[1].Price)

	limited, err := store.RecentScrapeLogs(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "silver", limited[0].Metal)
}
