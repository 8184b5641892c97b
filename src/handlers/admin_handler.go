package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/svacron/metals/backend/src/logger"
	"github.com/svacron/metals/backend/src/models"
	"github.com/svacron/metals/backend/src/security"
	"github.com/svacron/metals/backend/src/services"
	"github.com/svacron/metals/backend/src/utils"
)

const scrapeLogLimit = 50

// SyncScheduler is the part of the cron scheduler the admin surface needs:
// re-registering the sync job when the dashboard changes the cron spec.
type SyncScheduler interface {
	Reschedule(spec string) error
}

// AdminHandler serves the authenticated admin/bot endpoints: manual price
// updates, sync triggers, recovery, and runtime configuration.
type AdminHandler struct {
	metalService services.MetalService
	syncService  services.SyncService
	settings     *services.SettingsService
	scrapeLogs   services.ScrapeLogStore
	authService  *security.AuthService
	scheduler    SyncScheduler
}

func NewAdminHandler(
	metalService services.MetalService,
	syncService services.SyncService,
	settings *services.SettingsService,
	scrapeLogs services.ScrapeLogStore,
	authService *security.AuthService,
	scheduler SyncScheduler,
) *AdminHandler {
	return &AdminHandler{
		metalService: metalService,
		syncService:  syncService,
		settings:     settings,
		scrapeLogs:   scrapeLogs,
		authService:  authService,
		scheduler:    scheduler,
	}
}

func (h *AdminHandler) HandleUpdatePrices(w http.ResponseWriter, r *http.Request) {
	var req models.UpdatePriceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	metal, err := models.ParseMetalKind(req.Metal)
	if err != nil {
		utils.SendJSONError(w, "Invalid metal type", http.StatusBadRequest)
		return
	}
	if len(req.Rates) == 0 {
		utils.SendJSONError(w, "Invalid request body: rates required", http.StatusBadRequest)
		return
	}

	user, _ := UserFromContext(r.Context())
	logger.L.Info("Manual price update requested", "metal", metal, "rates", len(req.Rates), "date", req.Date, "user", user)

	record, err := h.metalService.UpdateMetalPrices(r.Context(), metal, req.Rates, req.Date)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, services.ErrInvalidObservation) {
			status = http.StatusBadRequest
		}
		utils.SendJSONError(w, fmt.Sprintf("Failed to update prices: %v", err), status)
		return
	}

	writeJSON(w, map[string]interface{}{
		"success": true,
		"message": fmt.Sprintf("%s prices updated successfully", metal),
		"data":    record,
	})
}

func (h *AdminHandler) HandleUpdateAll(w http.ResponseWriter, r *http.Request) {
	var req models.BatchUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if !h.authService.ValidateAPIKey(req.APIKey) {
		utils.SendJSONError(w, "Invalid API key", http.StatusUnauthorized)
		return
	}

	updates := make(map[models.MetalKind]*models.MetalRecord)
	batch := map[models.MetalKind]*models.UpdatePriceRequest{
		models.Gold:     req.Gold,
		models.Silver:   req.Silver,
		models.Platinum: req.Platinum,
	}
	for metal, update := range batch {
		if update == nil || len(update.Rates) == 0 {
			continue
		}
		record, err := h.metalService.UpdateMetalPrices(r.Context(), metal, update.Rates, update.Date)
		if err != nil {
			utils.SendJSONError(w, fmt.Sprintf("Failed to update %s prices: %v", metal, err), http.StatusInternalServerError)
			return
		}
		updates[metal] = record
	}

	writeJSON(w, map[string]interface{}{
		"success": true,
		"message": "All metal prices updated successfully",
		"data":    updates,
	})
}

func (h *AdminHandler) HandleInitialize(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())
	logger.L.Info("Database initialization requested", "user", user)

	if err := h.metalService.InitializeWithMockData(r.Context()); err != nil {
		utils.SendJSONError(w, fmt.Sprintf("Failed to initialize: %v", err), http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]interface{}{
		"success": true,
		"message": "Database initialized with mock data",
	})
}

// HandleSyncPrices triggers a sync from the default source. The scrape can
// take a while, so it runs in the background and the request returns
// immediately; progress lands in the logs and the scrape-log endpoint.
func (h *AdminHandler) HandleSyncPrices(w http.ResponseWriter, r *http.Request) {
	go func() {
		if _, err := h.syncService.SyncAllPrices(context.Background(), ""); err != nil {
			logger.L.Error("Background sync failed", "error", err)
		}
	}()

	writeJSON(w, map[string]interface{}{
		"success": true,
		"message": "Price sync started in background. Check logs in a few moments.",
	})
}

// HandleSyncPricesFromSource runs a sync from a named source and waits for
// the result, so operators can see immediately whether a source works.
func (h *AdminHandler) HandleSyncPricesFromSource(w http.ResponseWriter, r *http.Request) {
	sourceName := r.PathValue("source")

	summary, err := h.syncService.SyncAllPrices(r.Context(), sourceName)
	if err != nil {
		utils.SendJSONError(w, fmt.Sprintf("Failed to sync: %v", err), http.StatusBadRequest)
		return
	}
	if !summary.Success {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		json.NewEncoder(w).Encode(summary)
		return
	}
	writeJSON(w, summary)
}

func (h *AdminHandler) HandleRecalculateChanges(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())
	logger.L.Info("Recalculate changes requested", "user", user)

	results := h.metalService.RecalculateAllChanges(r.Context())

	writeJSON(w, map[string]interface{}{
		"success": true,
		"message": "Successfully recalculated change values for all metals",
		"results": results,
	})
}

func (h *AdminHandler) HandleGetScheduleConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.settings.GetScheduleConfig(r.Context())
	if err != nil {
		utils.SendJSONError(w, fmt.Sprintf("Failed to fetch schedule config: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, cfg)
}

func (h *AdminHandler) HandleUpdateScheduleConfig(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Config models.ScheduleConfig `json:"config"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.settings.SetScheduleConfig(r.Context(), req.Config); err != nil {
		utils.SendJSONError(w, fmt.Sprintf("Failed to update schedule config: %v", err), http.StatusInternalServerError)
		return
	}
	if h.scheduler != nil && req.Config.Spec != "" {
		if err := h.scheduler.Reschedule(req.Config.Spec); err != nil {
			utils.SendJSONError(w, fmt.Sprintf("Config saved but rescheduling failed: %v", err), http.StatusBadRequest)
			return
		}
	}

	writeJSON(w, map[string]interface{}{
		"success": true,
		"message": "Schedule configuration updated",
	})
}

func (h *AdminHandler) HandleGetAPIConfig(w http.ResponseWriter, r *http.Request) {
	key := h.settings.APINinjasKey(r.Context())

	// Mask the key for display; show only the last 4 characters.
	maskedKey := ""
	if len(key) > 4 {
		maskedKey = "•••••" + key[len(key)-4:]
	}

	writeJSON(w, map[string]interface{}{
		"apiNinjasConfigured": key != "",
		"apiNinjasKeyMasked":  maskedKey,
		"usdToInrRate":        h.settings.USDToINRRate(r.Context()),
	})
}

func (h *AdminHandler) HandleUpdateAPIConfig(w http.ResponseWriter, r *http.Request) {
	var req models.APIConfig
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	updated := false
	if trimmed := strings.TrimSpace(req.APINinjasKey); trimmed != "" {
		if err := h.settings.SetAPINinjasKey(r.Context(), trimmed); err != nil {
			utils.SendJSONError(w, fmt.Sprintf("Failed to update API key: %v", err), http.StatusInternalServerError)
			return
		}
		updated = true
	}
	if req.USDToINRRate.IsPositive() {
		if err := h.settings.SetUSDToINRRate(r.Context(), req.USDToINRRate); err != nil {
			utils.SendJSONError(w, fmt.Sprintf("Failed to update exchange rate: %v", err), http.StatusInternalServerError)
			return
		}
		updated = true
	}
	if !updated {
		utils.SendJSONError(w, "No configuration values provided", http.StatusBadRequest)
		return
	}

	writeJSON(w, map[string]interface{}{
		"success": true,
		"message": "API configuration updated",
	})
}

func (h *AdminHandler) HandleGetScrapeLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := h.scrapeLogs.RecentScrapeLogs(r.Context(), scrapeLogLimit)
	if err != nil {
		utils.SendJSONError(w, fmt.Sprintf("Failed to fetch scrape logs: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, logs)
}

func writeJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.L.Warn("Failed to encode JSON response", "error", err)
	}
}
