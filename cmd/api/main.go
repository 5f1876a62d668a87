package main

import (
	"context"
	"crypto/tls"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	openai "github.com/sashabaranov/go-openai"

	"github.com/agbona24/Cusomer-care-support-agent/internal/api/router"
	"github.com/agbona24/Cusomer-care-support-agent/internal/appointments"
	"github.com/agbona24/Cusomer-care-support-agent/internal/calls"
	appconfig "github.com/agbona24/Cusomer-care-support-agent/internal/config"
	"github.com/agbona24/Cusomer-care-support-agent/internal/conversation"
	"github.com/agbona24/Cusomer-care-support-agent/internal/http/handlers"
	"github.com/agbona24/Cusomer-care-support-agent/internal/messaging"
	"github.com/agbona24/Cusomer-care-support-agent/internal/observability/metrics"
	"github.com/agbona24/Cusomer-care-support-agent/internal/patients"
	"github.com/agbona24/Cusomer-care-support-agent/internal/redislock"
	"github.com/agbona24/Cusomer-care-support-agent/pkg/logging"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting clinic voice agent API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	// Storage. Postgres when DATABASE_URL is set, in-memory otherwise so the
	// server stays runnable in local development without infrastructure.
	var (
		apptRepo    appointments.Repository
		patientRepo patients.Repository
		callStore   calls.Store
	)
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to create postgres pool", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		if err := pool.Ping(ctx); err != nil {
			logger.Error("failed to ping postgres", "error", err)
			os.Exit(1)
		}
		apptRepo = appointments.NewPostgresRepository(pool)
		patientRepo = patients.NewPostgresRepository(pool)
		callStore = calls.NewPostgresStore(pool)
		logger.Info("using postgres storage")
	} else {
		apptRepo = appointments.NewInMemoryRepository()
		patientRepo = patients.NewInMemoryRepository()
		callStore = calls.NewInMemoryStore()
		logger.Warn("DATABASE_URL not set, using in-memory storage")
	}

	// Slot locking. Redis coordinates booking across replicas; the local
	// locker is only safe for a single process.
	locker := redislock.NewLocalLocker()
	if cfg.RedisAddr != "" {
		opts := &redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		}
		if cfg.RedisTLS {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		redisClient := redis.NewClient(opts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unavailable, falling back to local slot locks", "error", err)
		} else {
			locker = redislock.NewRedisSlotLocker(redisClient, 10*time.Second)
			defer redisClient.Close()
			logger.Info("using redis slot locks", "addr", cfg.RedisAddr)
		}
	}

	voiceMetrics := metrics.NewVoiceMetrics(nil)
	scheduler := appointments.NewService(apptRepo, locker, logger)

	// Conversation engine
	if cfg.OpenAIAPIKey == "" {
		logger.Error("OPENAI_API_KEY is required")
		os.Exit(1)
	}
	openaiClient := openai.NewClient(cfg.OpenAIAPIKey)
	dispatcher := conversation.NewDispatcher(scheduler, patientRepo, logger, voiceMetrics)
	engine := conversation.NewEngine(openaiClient, dispatcher, callStore, cfg.OpenAIModel, logger, voiceMetrics).
		WithTurnTimeout(cfg.TurnTimeout).
		WithPurgeDelay(cfg.HistoryPurgeDelay)

	// Outbound messaging is optional; without Twilio credentials the agent
	// still answers calls but sends no confirmations.
	var notifier handlers.ConfirmationSender
	var dialer handlers.OutboundDialer
	if cfg.TwilioAccountSID != "" && cfg.TwilioAuthToken != "" {
		notifier = messaging.NewTwilioSender(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioPhoneNumber, cfg.TwilioWhatsAppFrom, logger)
		dialer = messaging.NewCallsClient(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioPhoneNumber, cfg.PublicBaseURL, logger)
	} else {
		logger.Warn("twilio credentials not set, outbound messaging disabled")
	}

	// Setup router
	routerCfg := &router.Config{
		Logger:               logger,
		Voice:                handlers.NewTwilioVoiceHandler(engine, callStore, cfg.TwilioAuthToken, cfg.PublicBaseURL, logger, voiceMetrics),
		Appointments:         handlers.NewAppointmentsHandler(scheduler, patientRepo, notifier, logger),
		Patients:             handlers.NewPatientsHandler(patientRepo, scheduler, logger),
		Calls:                handlers.NewCallsHandler(callStore, dialer, logger),
		Dashboard:            handlers.NewDashboardHandler(scheduler, patientRepo, callStore, logger),
		AdminAuthSecret:      cfg.AdminJWTSecret,
		MetricsHandler:       promhttp.Handler(),
		CORSAllowedOrigins:   cfg.CORSAllowedOrigins,
		WebhookRatePerSecond: 10,
		WebhookBurst:         20,
	}
	r := router.New(routerCfg)

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
