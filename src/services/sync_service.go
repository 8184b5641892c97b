package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/svacron/metals/backend/src/logger"
	"github.com/svacron/metals/backend/src/models"
	"github.com/svacron/metals/backend/src/processors"
	"github.com/svacron/metals/backend/src/scrapers"
)

// SyncResult is the terminal outcome of one metal's scrape-and-update.
type SyncResult struct {
	Success bool   `json:"success"`
	Price   string `json:"price,omitempty"` // base-purity INR/gram on success
	Error   string `json:"error,omitempty"`
}

// SyncSummary aggregates a full sync run. Partial success is a valid
// terminal outcome: the run succeeded if at least one metal updated.
type SyncSummary struct {
	Success      bool                             `json:"success"`
	Message      string                           `json:"message"`
	UpdatedCount int                              `json:"updatedCount"`
	Source       string                           `json:"source"`
	Results      map[models.MetalKind]*SyncResult `json:"results"`
}

// SyncService orchestrates fetching observations for all metals from one
// source and feeding them through the reconciliation pipeline.
type SyncService interface {
	SyncAllPrices(ctx context.Context, sourceName string) (*SyncSummary, error)
}

type syncService struct {
	metals   MetalService
	registry *scrapers.Registry
	logs     ScrapeLogStore
	email    EmailService
}

func NewSyncService(metals MetalService, registry *scrapers.Registry, logs ScrapeLogStore, email EmailService) SyncService {
	return &syncService{
		metals:   metals,
		registry: registry,
		logs:     logs,
		email:    email,
	}
}

func (s *syncService) SyncAllPrices(ctx context.Context, sourceName string) (*SyncSummary, error) {
	source, err := s.registry.Get(sourceName)
	if err != nil {
		return nil, err
	}

	logger.L.Info("Starting price sync", "source", source.Name())

	// Metals are independent: fetch and reconcile them in parallel, each with
	// its own success/failure. One metal failing must not stop the others.
	results := make(map[models.MetalKind]*SyncResult, len(models.AllMetalKinds()))
	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, metal := range models.AllMetalKinds() {
		wg.Add(1)
		go func(metal models.MetalKind) {
			defer wg.Done()
			result := s.syncMetal(ctx, source, metal)
			mu.Lock()
			results[metal] = result
			mu.Unlock()
		}(metal)
	}
	wg.Wait()

	updated := 0
	failures := make(map[models.MetalKind]string)
	for metal, result := range results {
		if result.Success {
			updated++
		} else {
			failures[metal] = result.Error
		}
	}

	summary := &SyncSummary{
		Success:      updated > 0,
		UpdatedCount: updated,
		Source:       source.Name(),
		Results:      results,
	}
	if updated > 0 {
		summary.Message = fmt.Sprintf("Successfully updated %d metal(s) from %s", updated, source.Name())
		logger.L.Info("Price sync complete", "source", source.Name(), "updated", updated, "failed", len(failures))
	} else {
		summary.Message = fmt.Sprintf("Unable to fetch prices from %s. Please try a manual update.", source.Name())
		logger.L.Error("Price sync updated zero metals", "source", source.Name())
		if s.email != nil {
			if err := s.email.SendSyncFailureAlert(source.Name(), failures); err != nil {
				logger.L.Warn("Failed to send sync failure alert", "error", err)
			}
		}
	}
	return summary, nil
}

func (s *syncService) syncMetal(ctx context.Context, source scrapers.ObservationSource, metal models.MetalKind) *SyncResult {
	price, err := source.FetchObservation(ctx, metal)
	if err == nil && !price.IsPositive() {
		err = fmt.Errorf("%w: %s from %s", ErrInvalidObservation, price, source.Name())
	}

	logEntry := models.ScrapeLog{Source: source.Name(), Metal: string(metal)}
	if err != nil {
		logEntry.Error = err.Error()
	} else {
		logEntry.Success = true
		logEntry.Price = price.String()
	}
	if s.logs != nil {
		if logErr := s.logs.InsertScrapeLog(ctx, logEntry); logErr != nil {
			logger.L.Warn("Failed to record scrape log", "metal", metal, "error", logErr)
		}
	}

	if err != nil {
		logger.L.Warn("Observation fetch failed", "source", source.Name(), "metal", metal, "error", err)
		return &SyncResult{Error: err.Error()}
	}

	rates, err := processors.DeriveRates(metal, price)
	if err != nil {
		return &SyncResult{Error: err.Error()}
	}

	if _, err := s.metals.UpdateMetalPrices(ctx, metal, rates, ""); err != nil {
		logger.L.Error("Price update failed after successful fetch", "source", source.Name(), "metal", metal, "error", err)
		return &SyncResult{Error: err.Error()}
	}

	logger.L.Info("Metal updated", "source", source.Name(), "metal", metal, "pricePerGram", price)
	return &SyncResult{Success: true, Price: price.String()}
}
