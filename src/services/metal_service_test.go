package services

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/svacron/metals/backend/src/config"
	"github.com/svacron/metals/backend/src/logger"
	"github.com/svacron/metals/backend/src/models"
	"github.com/svacron/metals/backend/src/utils"
)

func TestMain(m *testing.M) {
	config.LoadConfig()
	logger.InitLogger("error")
	os.Exit(m.Run())
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type fakeStore struct {
	records  map[models.MetalKind]*models.MetalRecord
	saveErr  error
	settings map[string]string
	logs     []models.ScrapeLog
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		records:  make(map[models.MetalKind]*models.MetalRecord),
		settings: make(map[string]string),
	}
}

func (f *fakeStore) GetRecord(ctx context.Context, metal models.MetalKind) (*models.MetalRecord, error) {
	return f.records[metal], nil
}

func (f *fakeStore) SaveRecord(ctx context.Context, metal models.MetalKind, record *models.MetalRecord) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.records[metal] = record
	return nil
}

func (f *fakeStore) GetHistory(ctx context.Context, metal models.MetalKind) ([]models.HistoryEntry, error) {
	record := f.records[metal]
	if record == nil {
		return nil, nil
	}
	return record.History, nil
}

func (f *fakeStore) GetSetting(ctx context.Context, key string) (string, bool, error) {
	v, ok := f.settings[key]
	return v, ok, nil
}

func (f *fakeStore) SetSetting(ctx context.Context, key, value string) error {
	f.settings[key] = value
	return nil
}

func (f *fakeStore) InsertScrapeLog(ctx context.Context, entry models.ScrapeLog) error {
	f.logs = append(f.logs, entry)
	return nil
}

func (f *fakeStore) RecentScrapeLogs(ctx context.Context, n int) ([]models.ScrapeLog, error) {
	if len(f.logs) > n {
		return f.logs[len(f.logs)-n:], nil
	}
	return f.logs, nil
}

type fixedClock struct {
	t time.Time
}

func (c fixedClock) Now() time.Time { return c.t }

func testClock() fixedClock {
	return fixedClock{t: time.Date(2025, 6, 4, 12, 0, 0, 0, utils.ISTLocation)}
}

func goldRates(base string) []models.PurityPrice {
	basePrice := d(base)
	return []models.PurityPrice{
		{Purity: "999", Price: basePrice},
		{Purity: "916", Price: basePrice.Mul(d("0.9167")).Round(2)},
	}
}

func TestUpdateMetalPricesFirstEntry(t *testing.T) {
	store := newFakeStore()
	svc := NewMetalService(store, nil, testClock())

	record, err := svc.UpdateMetalPrices(context.Background(), models.Gold, goldRates("6850"), "")
	require.NoError(t, err)

	require.Len(t, record.History, 1)
	assert.Equal(t, "2025-06-04", record.History[0].Date, "defaults to the clock's IST date")
	assert.True(t, decimal.Zero.Equal(record.History[0].Change), "first entry has no predecessor")
	assert.True(t, decimal.Zero.Equal(record.Rates[0].Change))
	assert.True(t, decimal.Zero.Equal(record.Rates[0].ChangePercent))
	assert.Equal(t, "Gold", record.Name)
	assert.Equal(t, "Au", record.Symbol)
	assert.Len(t, record.ChartData.AllTime, 1)
}

func TestUpdateMetalPricesComputesChanges(t *testing.T) {
	store := newFakeStore()
	svc := NewMetalService(store, nil, testClock())
	ctx := context.Background()

	_, err := svc.UpdateMetalPrices(ctx, models.Gold, goldRates("6850"), "2025-06-01")
	require.NoError(t, err)

	record, err := svc.UpdateMetalPrices(ctx, models.Gold, goldRates("7000"), "2025-06-02")
	require.NoError(t, err)

	require.Len(t, record.History, 2)
	// history is stored newest first
	assert.Equal(t, "2025-06-02", record.History[0].Date)
	assert.True(t, d("150").Equal(record.History[0].Change), "got %s", record.History[0].Change)

	assert.True(t, d("150").Equal(record.Rates[0].Change))
	assert.True(t, d("2.19").Equal(record.Rates[0].ChangePercent), "got %s", record.Rates[0].ChangePercent)

	// non-base purity diffs against the implied previous price at its ratio
	assert.True(t, d("137.51").Equal(record.Rates[1].Change), "got %s", record.Rates[1].Change)
	assert.True(t, d("2.19").Equal(record.Rates[1].ChangePercent), "got %s", record.Rates[1].ChangePercent)
}

func TestUpdateMetalPricesSameDateReplaces(t *testing.T) {
	store := newFakeStore()
	svc := NewMetalService(store, nil, testClock())
	ctx := context.Background()

	_, err := svc.UpdateMetalPrices(ctx, models.Gold, goldRates("6850"), "2025-06-01")
	require.NoError(t, err)
	_, err = svc.UpdateMetalPrices(ctx, models.Gold, goldRates("7000"), "2025-06-02")
	require.NoError(t, err)

	record, err := svc.UpdateMetalPrices(ctx, models.Gold, goldRates("7100"), "2025-06-02")
	require.NoError(t, err)

	require.Len(t, record.History, 2, "same-date update replaces, never duplicates")
	assert.True(t, d("7100").Equal(record.History[0].Price))
	assert.True(t, d("250").Equal(record.History[0].Change))
}

func TestUpdateMetalPricesBackdatedKeepsLatestRates(t *testing.T) {
	store := newFakeStore()
	svc := NewMetalService(store, nil, testClock())
	ctx := context.Background()

	base := []models.PurityPrice{{Purity: "999", Price: d("100")}}
	_, err := svc.UpdateMetalPrices(ctx, models.Gold, base, "2025-06-01")
	require.NoError(t, err)
	_, err = svc.UpdateMetalPrices(ctx, models.Gold, []models.PurityPrice{{Purity: "999", Price: d("120")}}, "2025-06-03")
	require.NoError(t, err)

	record, err := svc.UpdateMetalPrices(ctx, models.Gold, []models.PurityPrice{{Purity: "999", Price: d("110")}}, "2025-06-02")
	require.NoError(t, err)

	require.Len(t, record.History, 3)
	assert.Equal(t, "2025-06-03", record.History[0].Date)
	// the entry after the backdated insert is recomputed against it
	assert.True(t, d("10").Equal(record.History[0].Change), "got %s", record.History[0].Change)
	assert.True(t, d("10").Equal(record.History[1].Change))

	// displayed rates still belong to the latest date, not the backdated one
	assert.True(t, d("120").Equal(record.Rates[0].Price), "got %s", record.Rates[0].Price)
	assert.True(t, d("20").Equal(record.Rates[0].Change))
}

func TestUpdateMetalPricesBackdatedFallbackRates(t *testing.T) {
	store := newFakeStore()
	// record with history but no persisted rates
	store.records[models.Gold] = &models.MetalRecord{
		Name:   "Gold",
		Symbol: "Au",
		History: []models.HistoryEntry{
			{Date: "2025-06-03", Price: d("120"), Change: d("20")},
			{Date: "2025-06-01", Price: d("100"), Change: decimal.Zero},
		},
	}
	svc := NewMetalService(store, nil, testClock())

	record, err := svc.UpdateMetalPrices(context.Background(), models.Gold,
		[]models.PurityPrice{{Purity: "999", Price: d("110")}}, "2025-06-02")
	require.NoError(t, err)

	require.Len(t, record.History, 3)
	// incoming rates re-scaled to the true latest price
	assert.True(t, d("120").Equal(record.Rates[0].Price), "got %s", record.Rates[0].Price)
	assert.True(t, d("10").Equal(record.Rates[0].Change), "change vs second-latest entry, got %s", record.Rates[0].Change)
	assert.True(t, d("9.09").Equal(record.Rates[0].ChangePercent), "got %s", record.Rates[0].ChangePercent)
}

func TestUpdateMetalPricesValidation(t *testing.T) {
	svc := NewMetalService(newFakeStore(), nil, testClock())
	ctx := context.Background()

	_, err := svc.UpdateMetalPrices(ctx, models.Gold, nil, "")
	assert.ErrorIs(t, err, ErrInvalidObservation)

	_, err = svc.UpdateMetalPrices(ctx, models.Gold,
		[]models.PurityPrice{{Purity: "999", Price: decimal.Zero}}, "")
	assert.ErrorIs(t, err, ErrInvalidObservation)

	_, err = svc.UpdateMetalPrices(ctx, models.Gold,
		[]models.PurityPrice{{Purity: "999", Price: d("-5")}}, "")
	assert.ErrorIs(t, err, ErrInvalidObservation)

	_, err = svc.UpdateMetalPrices(ctx, models.Gold, goldRates("100"), "01-06-2025")
	assert.Error(t, err)

	_, err = svc.UpdateMetalPrices(ctx, models.MetalKind("copper"), goldRates("100"), "")
	assert.Error(t, err)
}

func TestInitializeWithMockDataSeedsOnlyMissing(t *testing.T) {
	store := newFakeStore()
	svc := NewMetalService(store, nil, testClock())
	ctx := context.Background()

	existing, err := svc.UpdateMetalPrices(ctx, models.Gold, goldRates("9999"), "")
	require.NoError(t, err)

	require.NoError(t, svc.InitializeWithMockData(ctx))

	assert.Same(t, existing, store.records[models.Gold], "existing record untouched")
	require.NotNil(t, store.records[models.Silver])
	require.NotNil(t, store.records[models.Platinum])
	assert.True(t, d("82").Equal(store.records[models.Silver].Rates[0].Price))
}

func TestRecalculateAllChanges(t *testing.T) {
	store := newFakeStore()
	store.records[models.Gold] = &models.MetalRecord{
		Name:   "Gold",
		Symbol: "Au",
		History: []models.HistoryEntry{
			{Date: "2025-06-02", Price: d("110"), Change: d("999")},
			{Date: "2025-06-01", Price: d("100"), Change: d("999")},
		},
		Rates: []models.MetalRate{
			{Purity: "999", Price: d("105"), Change: decimal.Zero, ChangePercent: decimal.Zero},
		},
	}
	svc := NewMetalService(store, nil, testClock())

	results := svc.RecalculateAllChanges(context.Background())

	assert.True(t, results[models.Gold])
	assert.False(t, results[models.Silver], "no record means no recalculation")
	assert.False(t, results[models.Platinum])

	record := store.records[models.Gold]
	require.Len(t, record.History, 2)
	assert.True(t, d("10").Equal(record.History[0].Change), "got %s", record.History[0].Change)
	assert.True(t, decimal.Zero.Equal(record.History[1].Change))

	// rates re-anchored to the latest history price
	assert.True(t, d("110").Equal(record.Rates[0].Price), "got %s", record.Rates[0].Price)
	assert.True(t, d("10").Equal(record.Rates[0].Change))
	assert.True(t, d("10").Equal(record.Rates[0].ChangePercent))
}

func TestGetAllMetals(t *testing.T) {
	store := newFakeStore()
	svc := NewMetalService(store, nil, testClock())
	ctx := context.Background()

	_, err := svc.UpdateMetalPrices(ctx, models.Gold, goldRates("6850"), "")
	require.NoError(t, err)

	all, err := svc.GetAllMetals(ctx)
	require.NoError(t, err)

	assert.NotNil(t, all.Gold)
	assert.Nil(t, all.Silver)
	assert.Nil(t, all.Platinum)
	assert.NotEmpty(t, all.LastUpdated)
}
