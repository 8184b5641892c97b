package services

import (
	"context"
	"errors"

	"github.com/svacron/metals/backend/src/models"
)

// ErrInvalidObservation rejects non-positive or missing prices before they
// reach the purity deriver.
var ErrInvalidObservation = errors.New("invalid observation: price must be positive")

// MetalStore is the durable key-value document store for metal records,
// strongly consistent per key. Absent records read as (nil, nil).
type MetalStore interface {
	GetRecord(ctx context.Context, metal models.MetalKind) (*models.MetalRecord, error)
	SaveRecord(ctx context.Context, metal models.MetalKind, record *models.MetalRecord) error
	GetHistory(ctx context.Context, metal models.MetalKind) ([]models.HistoryEntry, error)
}

// SettingsStore persists small configuration documents (schedule, API keys).
type SettingsStore interface {
	GetSetting(ctx context.Context, key string) (value string, ok bool, err error)
	SetSetting(ctx context.Context, key, value string) error
}

// ScrapeLogStore records observation fetch attempts for the audit endpoint.
type ScrapeLogStore interface {
	InsertScrapeLog(ctx context.Context, entry models.ScrapeLog) error
	RecentScrapeLogs(ctx context.Context, n int) ([]models.ScrapeLog, error)
}

// SnapshotPublisher mirrors freshly persisted records to the secondary
// snapshot store (JSON files, optionally redis). Failures are non-fatal for
// the primary update; callers log and continue.
type SnapshotPublisher interface {
	PublishMetal(ctx context.Context, metal models.MetalKind, record *models.MetalRecord) error
	PublishAll(ctx context.Context, all *models.AllMetalsResponse) error
}

// MetalService is the update entrypoint consumed by the HTTP surface and the
// scheduler.
type MetalService interface {
	// UpdateMetalPrices reconciles a new observation into the metal's
	// history. rates index 0 is the base purity; date is an optional
	// YYYY-MM-DD for backdated corrections and defaults to today (IST).
	UpdateMetalPrices(ctx context.Context, metal models.MetalKind, rates []models.PurityPrice, date string) (*models.MetalRecord, error)
	GetMetalRecord(ctx context.Context, metal models.MetalKind) (*models.MetalRecord, error)
	GetAllMetals(ctx context.Context) (*models.AllMetalsResponse, error)
	InitializeWithMockData(ctx context.Context) error
	RecalculateAllChanges(ctx context.Context) map[models.MetalKind]bool
}

// EmailService sends operator alerts. Implementations: SMTP, mailgun, mock.
type EmailService interface {
	SendSyncFailureAlert(source string, failures map[models.MetalKind]string) error
}
