package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/svacron/metals/backend/src/config"
	"github.com/svacron/metals/backend/src/models"
)

func TestScheduleConfigDefaultsAndRoundTrip(t *testing.T) {
	store := newFakeStore()
	svc := NewSettingsService(store)
	ctx := context.Background()

	cfg, err := svc.GetScheduleConfig(ctx)
	require.NoError(t, err)
	assert.True(t, cfg.Enabled)
	assert.Equal(t, config.Cfg.SyncSchedule, cfg.Spec)
	assert.Equal(t, "Asia/Kolkata", cfg.Timezone)

	cfg.Enabled = false
	cfg.Spec = "0 10 * * *"
	require.NoError(t, svc.SetScheduleConfig(ctx, cfg))

	got, err := svc.GetScheduleConfig(ctx)
	require.NoError(t, err)
	assert.False(t, got.Enabled)
	assert.Equal(t, "0 10 * * *", got.Spec)
}

func TestMarkScheduleRun(t *testing.T) {
	store := newFakeStore()
	svc := NewSettingsService(store)
	ctx := context.Background()

	svc.MarkScheduleRun(ctx, "2025-06-04T09:30:00+05:30")

	cfg, err := svc.GetScheduleConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2025-06-04T09:30:00+05:30", cfg.LastRun)
	assert.True(t, cfg.Enabled, "defaults survive the stamp")
}

func TestAPINinjasKeyFallsBackToEnv(t *testing.T) {
	store := newFakeStore()
	svc := NewSettingsService(store)
	ctx := context.Background()

	assert.Equal(t, config.Cfg.APINinjasKey, svc.APINinjasKey(ctx))

	require.NoError(t, svc.SetAPINinjasKey(ctx, "stored-key"))
	assert.Equal(t, "stored-key", svc.APINinjasKey(ctx))
}

func TestUSDToINRRate(t *testing.T) {
	store := newFakeStore()
	svc := NewSettingsService(store)
	ctx := context.Background()

	// env default
	assert.True(t, svc.USDToINRRate(ctx).IsPositive())

	require.NoError(t, svc.SetUSDToINRRate(ctx, d("84.25")))
	assert.True(t, d("84.25").Equal(svc.USDToINRRate(ctx)))

	assert.Error(t, svc.SetUSDToINRRate(ctx, d("-1")))

	// a corrupted stored value is ignored, not surfaced
	store.settings["usdToInrRate"] = "garbage"
	assert.True(t, svc.USDToINRRate(ctx).IsPositive())
}

func TestAlertBodyStableOrder(t *testing.T) {
	failures := map[models.MetalKind]string{
		models.Platinum: "HTTP 503",
		models.Gold:     "price not found in page",
		models.Silver:   "timeout",
	}
	subject, body := alertBody("fivepaisa", failures)

	assert.Contains(t, subject, "fivepaisa")
	assert.Less(t, strings.Index(body, "gold"), strings.Index(body, "platinum"))
	assert.Less(t, strings.Index(body, "platinum"), strings.Index(body, "silver"))
}
