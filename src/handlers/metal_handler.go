package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/svacron/metals/backend/src/logger"
	"github.com/svacron/metals/backend/src/models"
	"github.com/svacron/metals/backend/src/services"
	"github.com/svacron/metals/backend/src/utils"
)

const metalCacheTTL = time.Minute

// MetalHandler serves the public read endpoints. Responses are cached
// briefly and served with ETags so polling dashboards mostly get 304s.
type MetalHandler struct {
	metalService  services.MetalService
	responseCache *cache.Cache
}

func NewMetalHandler(metalService services.MetalService, responseCache *cache.Cache) *MetalHandler {
	return &MetalHandler{
		metalService:  metalService,
		responseCache: responseCache,
	}
}

func (h *MetalHandler) HandleGetAllMetals(w http.ResponseWriter, r *http.Request) {
	if h.serveCached(w, r, "all-metals") {
		return
	}

	data, err := h.metalService.GetAllMetals(r.Context())
	if err != nil {
		utils.SendJSONError(w, fmt.Sprintf("Failed to fetch metals data: %v", err), http.StatusInternalServerError)
		return
	}

	h.writeWithETag(w, r, "all-metals", data)
}

func (h *MetalHandler) HandleGetMetal(w http.ResponseWriter, r *http.Request) {
	metal, err := models.ParseMetalKind(r.PathValue("metal"))
	if err != nil {
		utils.SendJSONError(w, "Invalid metal type", http.StatusBadRequest)
		return
	}

	cacheKey := "metal:" + string(metal)
	if h.serveCached(w, r, cacheKey) {
		return
	}

	record, err := h.metalService.GetMetalRecord(r.Context(), metal)
	if err != nil {
		utils.SendJSONError(w, fmt.Sprintf("Failed to fetch metal data: %v", err), http.StatusInternalServerError)
		return
	}
	if record == nil {
		utils.SendJSONError(w, "Metal data not found", http.StatusNotFound)
		return
	}

	h.writeWithETag(w, r, cacheKey, record)
}

type cachedResponse struct {
	body []byte
	etag string
}

func (h *MetalHandler) serveCached(w http.ResponseWriter, r *http.Request, key string) bool {
	if h.responseCache == nil {
		return false
	}
	entry, ok := h.responseCache.Get(key)
	if !ok {
		return false
	}
	cached := entry.(cachedResponse)
	writeJSONWithETag(w, r, cached.body, cached.etag)
	return true
}

func (h *MetalHandler) writeWithETag(w http.ResponseWriter, r *http.Request, key string, payload interface{}) {
	body, err := json.Marshal(payload)
	if err != nil {
		utils.SendJSONError(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}

	etag, err := utils.GenerateETag(payload)
	if err != nil {
		logger.L.Warn("Failed to generate ETag", "key", key, "error", err)
	}
	if h.responseCache != nil {
		h.responseCache.Set(key, cachedResponse{body: body, etag: etag}, metalCacheTTL)
	}
	writeJSONWithETag(w, r, body, etag)
}

func writeJSONWithETag(w http.ResponseWriter, r *http.Request, body []byte, etag string) {
	if etag != "" {
		w.Header().Set("ETag", etag)
		if match := r.Header.Get("If-None-Match"); match != "" && match == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(body)
}
