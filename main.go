package main

import (
	"context"
	"encoding/json"
	stdlog "log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/svacron/metals/backend/src/config"
	"github.com/svacron/metals/backend/src/database"
	"github.com/svacron/metals/backend/src/handlers"
	"github.com/svacron/metals/backend/src/logger"
	"github.com/svacron/metals/backend/src/scheduler"
	"github.com/svacron/metals/backend/src/scrapers"
	"github.com/svacron/metals/backend/src/security"
	"github.com/svacron/metals/backend/src/services"
	"github.com/svacron/metals/backend/src/storage"
	"github.com/svacron/metals/backend/src/utils"
	"golang.org/x/time/rate"
)

var limiter = rate.NewLimiter(rate.Every(100*time.Millisecond), 30)

func rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			logger.L.Warn("Rate limit exceeded",
				"method", r.Method,
				"path", r.URL.Path,
				"remoteAddr", r.RemoteAddr)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		allowedOrigins := map[string]bool{
			"http://localhost:3000": true,
			"http://localhost:5173": true,
		}

		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, Authorization, X-Requested-With, If-None-Match")
			w.Header().Set("Access-Control-Expose-Headers", "ETag")
		} else if origin == "" {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}

		if r.Method == "OPTIONS" {
			logger.L.Debug("Handling OPTIONS preflight request", "path", r.URL.Path, "origin", origin)
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func main() {
	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel)
	logger.L.Info("Metals price backend starting...")

	if config.Cfg.JWTSecret == "" || len(config.Cfg.JWTSecret) < 32 {
		logger.L.Error("JWT_SECRET configuration invalid. Must be at least 32 bytes.")
		os.Exit(1)
	}

	logger.L.Info("Initializing database...", "path", config.Cfg.DatabasePath)
	database.InitDB(config.Cfg.DatabasePath)
	logger.L.Info("Database initialized successfully.")

	store := storage.NewStore(database.DB)

	logger.L.Info("Initializing response cache...")
	responseCache := cache.New(1*time.Minute, 5*time.Minute)

	logger.L.Info("Initializing services and handlers...")
	authService := security.NewAuthService(config.Cfg.JWTSecret, config.Cfg.UpdateAPIKey)
	emailService := services.NewEmailService()
	settingsService := services.NewSettingsService(store)
	snapshotPublisher := services.NewSnapshotPublisher(config.Cfg.SnapshotDir, config.Cfg.RedisAddr)
	metalService := services.NewMetalService(store, snapshotPublisher, utils.ISTClock{})

	registry, err := scrapers.NewRegistry(config.Cfg, settingsService.APINinjasKey, settingsService.USDToINRRate)
	if err != nil {
		logger.L.Error("Failed to build observation source registry", "error", err)
		os.Exit(1)
	}
	syncService := services.NewSyncService(metalService, registry, store, emailService)

	metalHandler := handlers.NewMetalHandler(metalService, responseCache)
	syncScheduler := scheduler.New(syncService, settingsService)
	adminHandler := handlers.NewAdminHandler(metalService, syncService, settingsService, store, authService, syncScheduler)

	logger.L.Info("Configuring routes...")
	rootMux := http.NewServeMux()
	apiRouter := http.NewServeMux()

	// Public read endpoints.
	apiRouter.HandleFunc("GET /api/metals", metalHandler.HandleGetAllMetals)
	apiRouter.HandleFunc("GET /api/metals/{metal}", metalHandler.HandleGetMetal)

	// Admin endpoints behind JWT auth. Batch update authenticates with a
	// shared API key in the body instead, for the headless updater bot.
	withAuth := func(handler http.HandlerFunc) http.Handler {
		return handlers.RequireAuth(authService, handler)
	}
	apiRouter.Handle("POST /api/update-prices", withAuth(adminHandler.HandleUpdatePrices))
	apiRouter.HandleFunc("POST /api/update-all", adminHandler.HandleUpdateAll)
	apiRouter.Handle("POST /api/initialize", withAuth(adminHandler.HandleInitialize))
	apiRouter.Handle("POST /api/sync-prices", withAuth(adminHandler.HandleSyncPrices))
	apiRouter.Handle("POST /api/sync-prices/{source}", withAuth(adminHandler.HandleSyncPricesFromSource))
	apiRouter.Handle("POST /api/recalculate-changes", withAuth(adminHandler.HandleRecalculateChanges))
	apiRouter.Handle("GET /api/config/schedule", withAuth(adminHandler.HandleGetScheduleConfig))
	apiRouter.Handle("POST /api/config/schedule", withAuth(adminHandler.HandleUpdateScheduleConfig))
	apiRouter.Handle("GET /api/config/api", withAuth(adminHandler.HandleGetAPIConfig))
	apiRouter.Handle("POST /api/config/api", withAuth(adminHandler.HandleUpdateAPIConfig))
	apiRouter.Handle("GET /api/logs/scrapes", withAuth(adminHandler.HandleGetScrapeLogs))

	rootMux.Handle("/api/", apiRouter)

	rootMux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	rootMux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" && r.Method == http.MethodGet {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]string{"message": "Metals price backend is running"})
		} else {
			if !strings.HasPrefix(r.URL.Path, "/api/") {
				logger.L.Warn("Root level path not found", "method", r.Method, "path", r.URL.Path)
				http.NotFound(w, r)
			}
		}
	})

	logger.L.Info("Starting sync scheduler...")
	if err := syncScheduler.Start(context.Background()); err != nil {
		logger.L.Error("Failed to start sync scheduler, continuing without automatic sync", "error", err)
	}

	logger.L.Info("Applying global middleware...")
	finalHandler := enableCORS(rateLimitMiddleware(rootMux))

	serverAddr := ":" + config.Cfg.Port
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      finalHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.L.Info("Server starting", "address", serverAddr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.L.Error("Failed to start server", "error", err)
		stdlog.Fatalf("Failed to start server: %v", err)
	} else if err == http.ErrServerClosed {
		logger.L.Info("Server stopped gracefully.")
	}
}
