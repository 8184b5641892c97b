package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

func init() {
	// Static-file consumers expect plain JSON numbers, not quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// MetalKind identifies one of the tracked precious metals.
type MetalKind string

const (
	Gold     MetalKind = "gold"
	Silver   MetalKind = "silver"
	Platinum MetalKind = "platinum"
)

// AllMetalKinds returns the metals tracked by the service, in display order.
func AllMetalKinds() []MetalKind {
	return []MetalKind{Gold, Silver, Platinum}
}

// ParseMetalKind validates a request path/body value against the known metals.
func ParseMetalKind(s string) (MetalKind, error) {
	switch MetalKind(s) {
	case Gold, Silver, Platinum:
		return MetalKind(s), nil
	}
	return "", fmt.Errorf("invalid metal type %q", s)
}

// DisplayName returns the capitalized name used in the persisted record.
func (m MetalKind) DisplayName() string {
	switch m {
	case Gold:
		return "Gold"
	case Silver:
		return "Silver"
	case Platinum:
		return "Platinum"
	}
	return string(m)
}

// Symbol returns the chemical symbol used in the persisted record.
func (m MetalKind) Symbol() string {
	switch m {
	case Gold:
		return "Au"
	case Silver:
		return "Ag"
	case Platinum:
		return "Pt"
	}
	return ""
}

// PurityPrice is one purity tier of an incoming observation, before change
// calculation. Index 0 of a rate list is always the base purity (999).
type PurityPrice struct {
	Purity string          `json:"purity"`
	Price  decimal.Decimal `json:"price"`
}

// MetalRate is one fully-calculated purity tier of a metal record.
type MetalRate struct {
	Purity        string          `json:"purity"`
	Price         decimal.Decimal `json:"price"`
	Change        decimal.Decimal `json:"change"`
	ChangePercent decimal.Decimal `json:"changePercent"`
}

// HistoryEntry is the base-purity reference price observed on one IST
// calendar date. Dates are unique within a metal's history.
type HistoryEntry struct {
	Date   string          `json:"date"` // YYYY-MM-DD
	Price  decimal.Decimal `json:"price"`
	Change decimal.Decimal `json:"change"`
}

// ChartPoint is a single {date, price} pair of a chart series.
type ChartPoint struct {
	Date  string          `json:"date"`
	Price decimal.Decimal `json:"price"`
}

// ChartData holds the fixed look-back windows derived from history.
// All series are sorted ascending by date.
type ChartData struct {
	OneYear   []ChartPoint `json:"1Y"`
	ThreeYear []ChartPoint `json:"3Y"`
	FiveYear  []ChartPoint `json:"5Y"`
	TenYear   []ChartPoint `json:"10Y"`
	AllTime   []ChartPoint `json:"ALL"`
}

// MetalRecord is the full persisted document for one metal.
// History is stored newest-first and capped at 30 entries; ChartData is
// always derived from History, never mutated independently.
type MetalRecord struct {
	Name        string         `json:"name"`
	Symbol      string         `json:"symbol"`
	LastUpdated string         `json:"lastUpdated"`
	Rates       []MetalRate    `json:"rates"`
	History     []HistoryEntry `json:"history"`
	ChartData   ChartData      `json:"chartData"`
}

// AllMetalsResponse is the combined payload served to static-file consumers
// and the /api/metals endpoint.
type AllMetalsResponse struct {
	Gold        *MetalRecord `json:"gold"`
	Silver      *MetalRecord `json:"silver"`
	Platinum    *MetalRecord `json:"platinum"`
	LastUpdated string       `json:"lastUpdated"`
}

// UpdatePriceRequest is the body of POST /api/update-prices.
type UpdatePriceRequest struct {
	Metal string        `json:"metal"`
	Rates []PurityPrice `json:"rates"`
	Date  string        `json:"date,omitempty"` // optional YYYY-MM-DD for backdated corrections
}

// BatchUpdateRequest is the body of POST /api/update-all.
type BatchUpdateRequest struct {
	Gold     *UpdatePriceRequest `json:"gold,omitempty"`
	Silver   *UpdatePriceRequest `json:"silver,omitempty"`
	Platinum *UpdatePriceRequest `json:"platinum,omitempty"`
	APIKey   string              `json:"apiKey"`
}

// ScheduleConfig controls the automatic sync scheduler. Persisted in the
// settings store so the admin dashboard can toggle it without a redeploy.
type ScheduleConfig struct {
	Enabled  bool   `json:"enabled"`
	Spec     string `json:"frequency"` // cron expression
	Timezone string `json:"timezone"`
	LastRun  string `json:"lastRun,omitempty"`
}

// APIConfig holds external API settings exposed to the admin dashboard.
type APIConfig struct {
	APINinjasKey string          `json:"apiNinjasKey,omitempty"`
	USDToINRRate decimal.Decimal `json:"usdToInrRate"`
}

// ScrapeLog records one observation fetch attempt for the audit endpoint.
type ScrapeLog struct {
	ID        int64  `json:"id"`
	Source    string `json:"source"`
	Metal     string `json:"metal"`
	Success   bool   `json:"success"`
	Price     string `json:"price,omitempty"` // per-gram price, empty on failure
	Error     string `json:"error,omitempty"`
	CreatedAt string `json:"createdAt"`
}
