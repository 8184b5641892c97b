package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/svacron/metals/backend/src/logger"
	"github.com/svacron/metals/backend/src/services"
	"github.com/svacron/metals/backend/src/utils"
)

const syncJobTimeout = 5 * time.Minute

// Scheduler runs the periodic price sync on a cron spec. The enabled flag is
// checked on every tick, so disabling the schedule from the dashboard takes
// effect without restarting the process.
type Scheduler struct {
	cron     *cron.Cron
	sync     services.SyncService
	settings *services.SettingsService

	mu      sync.Mutex
	entryID cron.EntryID
	spec    string
}

func New(syncService services.SyncService, settings *services.SettingsService) *Scheduler {
	return &Scheduler{
		cron:     cron.New(cron.WithLocation(utils.ISTLocation)),
		sync:     syncService,
		settings: settings,
	}
}

// Start registers the sync job using the persisted schedule spec and starts
// the cron loop. A bad persisted spec is reported but does not stop the
// server from serving.
func (s *Scheduler) Start(ctx context.Context) error {
	cfg, err := s.settings.GetScheduleConfig(ctx)
	if err != nil {
		return err
	}
	if err := s.Reschedule(cfg.Spec); err != nil {
		return err
	}
	s.cron.Start()
	logger.L.Info("Sync scheduler started", "spec", cfg.Spec, "enabled", cfg.Enabled)
	return nil
}

// Reschedule replaces the registered sync job with one on the given spec.
// The spec is validated before the old entry is removed, so an invalid spec
// leaves the current schedule running.
func (s *Scheduler) Reschedule(spec string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.cron.AddFunc(spec, s.runSync)
	if err != nil {
		return err
	}
	if s.entryID != 0 {
		s.cron.Remove(s.entryID)
	}
	s.entryID = id
	s.spec = spec
	logger.L.Info("Sync schedule updated", "spec", spec)
	return nil
}

// Stop halts the cron loop and waits for a running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *Scheduler) runSync() {
	ctx, cancel := context.WithTimeout(context.Background(), syncJobTimeout)
	defer cancel()

	cfg, err := s.settings.GetScheduleConfig(ctx)
	if err != nil {
		logger.L.Error("Scheduled sync skipped: failed to load schedule config", "error", err)
		return
	}
	if !cfg.Enabled {
		logger.L.Info("Scheduled sync skipped: schedule disabled")
		return
	}

	logger.L.Info("Scheduled sync starting")
	summary, err := s.sync.SyncAllPrices(ctx, "")
	if err != nil {
		logger.L.Error("Scheduled sync failed", "error", err)
		return
	}
	s.settings.MarkScheduleRun(ctx, utils.FormatTimestamp(time.Now()))
	logger.L.Info("Scheduled sync finished",
		"success", summary.Success,
		"updated", summary.UpdatedCount,
		"source", summary.Source)
}
