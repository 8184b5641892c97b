package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/svacron/metals/backend/src/config"
	"github.com/svacron/metals/backend/src/logger"
	"github.com/svacron/metals/backend/src/models"
)

const (
	settingScheduleConfig = "schedule"
	settingAPINinjasKey   = "apiNinjasKey"
	settingUSDToINRRate   = "usdToInrRate"
)

// SettingsService reads and writes the runtime-adjustable configuration the
// admin dashboard manages: the sync schedule and the external API settings.
// Environment config supplies the defaults; values written here win.
type SettingsService struct {
	store SettingsStore
}

func NewSettingsService(store SettingsStore) *SettingsService {
	return &SettingsService{store: store}
}

func (s *SettingsService) GetScheduleConfig(ctx context.Context) (models.ScheduleConfig, error) {
	cfg := models.ScheduleConfig{
		Enabled:  true,
		Spec:     config.Cfg.SyncSchedule,
		Timezone: "Asia/Kolkata",
	}
	value, ok, err := s.store.GetSetting(ctx, settingScheduleConfig)
	if err != nil {
		return cfg, err
	}
	if !ok {
		return cfg, nil
	}
	if err := json.Unmarshal([]byte(value), &cfg); err != nil {
		return cfg, fmt.Errorf("decoding schedule config: %w", err)
	}
	return cfg, nil
}

func (s *SettingsService) SetScheduleConfig(ctx context.Context, cfg models.ScheduleConfig) error {
	value, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding schedule config: %w", err)
	}
	return s.store.SetSetting(ctx, settingScheduleConfig, string(value))
}

// MarkScheduleRun stamps lastRun on the stored schedule config.
func (s *SettingsService) MarkScheduleRun(ctx context.Context, at string) {
	cfg, err := s.GetScheduleConfig(ctx)
	if err != nil {
		logger.L.Warn("Failed to load schedule config for lastRun stamp", "error", err)
		return
	}
	cfg.LastRun = at
	if err := s.SetScheduleConfig(ctx, cfg); err != nil {
		logger.L.Warn("Failed to stamp schedule lastRun", "error", err)
	}
}

// APINinjasKey returns the dashboard-configured key, falling back to the
// environment.
func (s *SettingsService) APINinjasKey(ctx context.Context) string {
	value, ok, err := s.store.GetSetting(ctx, settingAPINinjasKey)
	if err != nil {
		logger.L.Warn("Failed to read API Ninjas key setting", "error", err)
	}
	if ok && value != "" {
		return value
	}
	return config.Cfg.APINinjasKey
}

func (s *SettingsService) SetAPINinjasKey(ctx context.Context, key string) error {
	return s.store.SetSetting(ctx, settingAPINinjasKey, key)
}

// USDToINRRate returns the dashboard-configured exchange rate, falling back
// to the environment default.
func (s *SettingsService) USDToINRRate(ctx context.Context) decimal.Decimal {
	value, ok, err := s.store.GetSetting(ctx, settingUSDToINRRate)
	if err != nil {
		logger.L.Warn("Failed to read USD/INR rate setting", "error", err)
	}
	if ok {
		if rate, err := decimal.NewFromString(value); err == nil && rate.IsPositive() {
			return rate
		}
		logger.L.Warn("Ignoring invalid stored USD/INR rate", "value", value)
	}
	return decimal.NewFromFloat(config.Cfg.USDToINRRate)
}

func (s *SettingsService) SetUSDToINRRate(ctx context.Context, rate decimal.Decimal) error {
	if !rate.IsPositive() {
		return fmt.Errorf("exchange rate must be positive, got %s", rate)
	}
	return s.store.SetSetting(ctx, settingUSDToINRRate, rate.String())
}
