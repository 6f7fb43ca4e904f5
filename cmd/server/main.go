package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/WaterWatchLabs/aquasense-backend/internal/config"
	"github.com/WaterWatchLabs/aquasense-backend/internal/database"
	"github.com/WaterWatchLabs/aquasense-backend/internal/handlers"
	"github.com/WaterWatchLabs/aquasense-backend/internal/inference"
	"github.com/WaterWatchLabs/aquasense-backend/internal/metrics"
	"github.com/WaterWatchLabs/aquasense-backend/internal/middleware"
	"github.com/WaterWatchLabs/aquasense-backend/internal/routes"
	"github.com/WaterWatchLabs/aquasense-backend/internal/services"
	"github.com/go-chi/chi/v5"
)

func main() {
	// Load env
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}
	cfg := config.Load()

	// Connect to the relational store (Postgres, or embedded SQLite fallback)
	log.Printf("Connecting to database...")
	if err := database.Connect(cfg.DatabaseURL, cfg.SQLitePath); err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer database.Disconnect()

	// Redis is optional: it only backs the shared rate limiter
	if cfg.RedisURI != "" {
		log.Printf("Connecting to Redis...")
		if err := database.ConnectRedis(cfg.RedisURI); err != nil {
			log.Printf("⚠️  WARNING: Redis unavailable (%v). Falling back to in-process rate limiting.", err)
		} else {
			defer database.DisconnectRedis()
		}
	}

	// Token signing secret
	if cfg.TokenSecret == "" {
		log.Println("⚠️  WARNING: JWT_SECRET not set. A random secret will be used;")
		log.Println("   every restart will invalidate all issued tokens.")
		log.Println("   To generate one, run: openssl rand -hex 32")
	}
	services.InitTokenService(cfg.TokenSecret)

	// SMTP mailer (optional; flows degrade gracefully without it)
	if err := services.InitMailService(cfg); err != nil {
		log.Printf("⚠️  WARNING: Failed to initialize mailer: %v", err)
		log.Println("   Notification emails will not be sent.")
	} else if !cfg.MailConfigured() {
		log.Println("Warning: Mail credentials not found. Notification emails will not be sent.")
	} else {
		log.Println("✅ Mail service initialized")
	}

	handlers.InitAuthHandlers(cfg)

	// Classifier artifacts: loaded once, read-only afterward. Load failures
	// degrade the affected endpoints instead of killing startup.
	inferenceService := inference.NewService(cfg.ModelDir)

	collector := metrics.NewCollector(prometheus.DefaultRegisterer)
	predictionHandler := handlers.NewPredictionHandler(inferenceService, collector)

	// Setup router
	r := chi.NewRouter()
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.RateLimit)
	r.Use(collector.Middleware)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler(prometheus.DefaultGatherer))

	routes.SetupRoutes(r, predictionHandler)

	log.Println("📋 Registered routes:")
	log.Println("  GET  /health")
	log.Println("  GET  /metrics")
	log.Println("  POST /api/auth/register")
	log.Println("  POST /api/auth/login")
	log.Println("  GET  /api/auth/logout")
	log.Println("  POST /api/auth/validate-token")
	log.Println("  POST /api/auth/forgot-password")
	log.Println("  POST /api/auth/verify-otp")
	log.Println("  POST /api/auth/reset-password")
	log.Println("  GET  /api/prediction/diagnostics")
	log.Println("  POST /api/prediction/predict")
	log.Println("  POST /api/prediction/tap")
	log.Println("  POST /api/prediction/river")
	log.Println("  POST /api/prediction/tap-status")

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		log.Printf("🚀 AquaSense backend running on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server:", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("⚠️  Shutdown error: %v", err)
	}
}
