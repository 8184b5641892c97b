package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/svacron/metals/backend/src/logger"
	"github.com/svacron/metals/backend/src/models"
	"github.com/svacron/metals/backend/src/processors"
	"github.com/svacron/metals/backend/src/utils"
)

// metalService implements the price-update and change-calculation pipeline.
// Each metal's reconciliation is a read-modify-write against that metal's
// record, serialized by a per-metal mutex; different metals update in
// parallel.
type metalService struct {
	store    MetalStore
	snapshot SnapshotPublisher
	clock    utils.Clock
	mu       map[models.MetalKind]*sync.Mutex
}

func NewMetalService(store MetalStore, snapshot SnapshotPublisher, clock utils.Clock) MetalService {
	mu := make(map[models.MetalKind]*sync.Mutex, len(models.AllMetalKinds()))
	for _, metal := range models.AllMetalKinds() {
		mu[metal] = &sync.Mutex{}
	}
	return &metalService{
		store:    store,
		snapshot: snapshot,
		clock:    clock,
		mu:       mu,
	}
}

func (s *metalService) UpdateMetalPrices(ctx context.Context, metal models.MetalKind, rates []models.PurityPrice, date string) (*models.MetalRecord, error) {
	lock, ok := s.mu[metal]
	if !ok {
		return nil, fmt.Errorf("invalid metal type %q", metal)
	}
	if len(rates) == 0 {
		return nil, fmt.Errorf("%w: no rates provided for %s", ErrInvalidObservation, metal)
	}
	for _, rate := range rates {
		if !rate.Price.IsPositive() {
			return nil, fmt.Errorf("%w: purity %s has price %s", ErrInvalidObservation, rate.Purity, rate.Price)
		}
	}

	targetDate := date
	if targetDate == "" {
		targetDate = utils.FormatDate(s.clock.Now())
	} else if _, err := utils.ParseDate(targetDate); err != nil {
		return nil, err
	}

	lock.Lock()
	defer lock.Unlock()

	stored, err := s.store.GetHistory(ctx, metal)
	if err != nil {
		return nil, fmt.Errorf("loading history for %s: %w", metal, err)
	}
	history := processors.SortHistoryAscending(stored)

	// The reference price is quoted at the base purity only, so a non-base
	// purity's previous-period price cannot be looked up: it is reconstructed
	// by applying today's purity ratio to the previous base price.
	previous, hasPrevious := processors.LatestBefore(history, targetDate)
	basePrice := rates[0].Price

	updatedRates := make([]models.MetalRate, len(rates))
	for i, rate := range rates {
		var change, changePercent decimal.Decimal
		if hasPrevious {
			ratio := rate.Price.Div(basePrice)
			impliedPrevious := previous.Price.Mul(ratio)
			change, changePercent = processors.CalculateChange(rate.Price, impliedPrevious)
		}
		updatedRates[i] = models.MetalRate{
			Purity:        rate.Purity,
			Price:         rate.Price,
			Change:        change,
			ChangePercent: changePercent,
		}
	}

	newEntry := models.HistoryEntry{
		Date:   targetDate,
		Price:  basePrice,
		Change: updatedRates[0].Change,
	}
	merged := processors.MergeHistoryEntry(history, newEntry)
	latest := merged[len(merged)-1]

	finalRates := updatedRates
	if latest.Date != targetDate {
		// Backdated correction: the record must keep showing the true latest
		// date's rates, not the backdated values.
		existing, err := s.store.GetRecord(ctx, metal)
		if err != nil {
			return nil, fmt.Errorf("loading record for %s: %w", metal, err)
		}
		if existing != nil && len(existing.Rates) > 0 {
			finalRates = existing.Rates
		} else {
			finalRates = backdatedFallbackRates(rates, merged)
		}
	}

	now := s.clock.Now()
	record := &models.MetalRecord{
		Name:        metal.DisplayName(),
		Symbol:      metal.Symbol(),
		LastUpdated: utils.FormatTimestamp(now),
		Rates:       finalRates,
		History:     processors.ReverseHistory(merged),
		ChartData:   processors.BuildChartData(merged, now),
	}

	if err := s.store.SaveRecord(ctx, metal, record); err != nil {
		return nil, fmt.Errorf("saving record for %s: %w", metal, err)
	}

	if s.snapshot != nil {
		if err := s.snapshot.PublishMetal(ctx, metal, record); err != nil {
			logger.L.Warn("Snapshot publish failed", "metal", metal, "error", err)
		}
	}

	return record, nil
}

// backdatedFallbackRates handles a backdated write against a record with no
// persisted rates: the incoming rates are re-scaled to the true latest
// history price, and changes are taken against the second-latest entry.
// Each purity keeps the incoming purity ratio (price_i scaled by
// latestPrice/backdatedBasePrice); the change percent is identical across
// purities because all tiers move in lockstep with the base.
func backdatedFallbackRates(rates []models.PurityPrice, history []models.HistoryEntry) []models.MetalRate {
	latest := history[len(history)-1]

	var baseChange, basePercent decimal.Decimal
	if len(history) >= 2 {
		baseChange, basePercent = processors.CalculateChange(latest.Price, history[len(history)-2].Price)
	}

	scale := latest.Price.Div(rates[0].Price)
	out := make([]models.MetalRate, len(rates))
	for i, rate := range rates {
		price := rate.Price.Mul(scale).Round(2)
		change := baseChange.Mul(price.Div(latest.Price)).Round(2)
		out[i] = models.MetalRate{
			Purity:        rate.Purity,
			Price:         price,
			Change:        change,
			ChangePercent: basePercent,
		}
	}
	return out
}

func (s *metalService) GetMetalRecord(ctx context.Context, metal models.MetalKind) (*models.MetalRecord, error) {
	if _, ok := s.mu[metal]; !ok {
		return nil, fmt.Errorf("invalid metal type %q", metal)
	}
	return s.store.GetRecord(ctx, metal)
}

func (s *metalService) GetAllMetals(ctx context.Context) (*models.AllMetalsResponse, error) {
	all := &models.AllMetalsResponse{LastUpdated: utils.FormatTimestamp(s.clock.Now())}
	for _, metal := range models.AllMetalKinds() {
		record, err := s.store.GetRecord(ctx, metal)
		if err != nil {
			return nil, fmt.Errorf("loading record for %s: %w", metal, err)
		}
		switch metal {
		case models.Gold:
			all.Gold = record
		case models.Silver:
			all.Silver = record
		case models.Platinum:
			all.Platinum = record
		}
	}

	if s.snapshot != nil {
		if err := s.snapshot.PublishAll(ctx, all); err != nil {
			logger.L.Warn("All-metals snapshot publish failed", "error", err)
		}
	}
	return all, nil
}

func (s *metalService) InitializeWithMockData(ctx context.Context) error {
	for _, metal := range models.AllMetalKinds() {
		record, err := s.store.GetRecord(ctx, metal)
		if err != nil {
			return fmt.Errorf("checking record for %s: %w", metal, err)
		}
		if record != nil {
			continue
		}
		if _, err := s.UpdateMetalPrices(ctx, metal, mockRates(metal), ""); err != nil {
			return fmt.Errorf("seeding %s: %w", metal, err)
		}
		logger.L.Info("Seeded metal with mock data", "metal", metal)
	}
	return nil
}

// RecalculateAllChanges is the on-demand repair pass for histories patched
// by hand: every entry's change is rebuilt from its ascending predecessor
// and the rates array is re-anchored to the latest two history prices. One
// metal's failure does not stop the others.
func (s *metalService) RecalculateAllChanges(ctx context.Context) map[models.MetalKind]bool {
	results := make(map[models.MetalKind]bool, len(models.AllMetalKinds()))
	for _, metal := range models.AllMetalKinds() {
		results[metal] = false

		s.mu[metal].Lock()
		record, err := s.store.GetRecord(ctx, metal)
		if err != nil {
			s.mu[metal].Unlock()
			logger.L.Error("Recalculate: failed to load record", "metal", metal, "error", err)
			continue
		}
		if record == nil || len(record.History) == 0 {
			s.mu[metal].Unlock()
			logger.L.Warn("Recalculate: no history for metal", "metal", metal)
			continue
		}

		history := processors.RecalculateChanges(record.History)
		latest := history[len(history)-1]

		rates := record.Rates
		if len(history) >= 2 && len(record.Rates) > 0 && record.Rates[0].Price.IsPositive() {
			previous := history[len(history)-2]
			baseChange, basePercent := processors.CalculateChange(latest.Price, previous.Price)

			// Re-anchor stored rates to the latest history price while
			// preserving the purity ratios between them.
			priceRatio := latest.Price.Div(record.Rates[0].Price)
			rates = make([]models.MetalRate, len(record.Rates))
			for i, rate := range record.Rates {
				price := rate.Price.Mul(priceRatio).Round(2)
				purityMultiplier := price.Div(latest.Price)
				rates[i] = models.MetalRate{
					Purity:        rate.Purity,
					Price:         price,
					Change:        baseChange.Mul(purityMultiplier).Round(2),
					ChangePercent: basePercent,
				}
			}
		}

		now := s.clock.Now()
		record.Rates = rates
		record.History = processors.ReverseHistory(history)
		record.ChartData = processors.BuildChartData(history, now)
		record.LastUpdated = utils.FormatTimestamp(now)

		if err := s.store.SaveRecord(ctx, metal, record); err != nil {
			s.mu[metal].Unlock()
			logger.L.Error("Recalculate: failed to save record", "metal", metal, "error", err)
			continue
		}
		s.mu[metal].Unlock()

		logger.L.Info("Recalculated changes", "metal", metal, "historyEntries", len(history))
		results[metal] = true
	}
	return results
}

func mockRates(metal models.MetalKind) []models.PurityPrice {
	switch metal {
	case models.Gold:
		return []models.PurityPrice{
			{Purity: "999", Price: decimal.NewFromInt(6850)},
			{Purity: "916", Price: decimal.NewFromInt(6280)},
			{Purity: "750", Price: decimal.NewFromInt(5140)},
		}
	case models.Silver:
		return []models.PurityPrice{
			{Purity: "999", Price: decimal.NewFromInt(82)},
			{Purity: "925", Price: decimal.NewFromInt(76)},
		}
	default:
		return []models.PurityPrice{
			{Purity: "999", Price: decimal.NewFromInt(3200)},
			{Purity: "950", Price: decimal.NewFromInt(3040)},
		}
	}
}
