package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/gradcafe-backend/internal/cleaner"
	"github.com/stemsi/gradcafe-backend/internal/config"
	"github.com/stemsi/gradcafe-backend/internal/database"
	"github.com/stemsi/gradcafe-backend/internal/handler"
	"github.com/stemsi/gradcafe-backend/internal/logger"
	"github.com/stemsi/gradcafe-backend/internal/middleware"
	"github.com/stemsi/gradcafe-backend/internal/repository"
	"github.com/stemsi/gradcafe-backend/internal/router"
	"github.com/stemsi/gradcafe-backend/internal/scraper"
	"github.com/stemsi/gradcafe-backend/internal/service"
	"github.com/stemsi/gradcafe-backend/internal/standardize"
	"github.com/stemsi/gradcafe-backend/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Str("table", cfg.TableName).
		Msg("Starting GradCafe dashboard")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Initialize Repositories ───────────────────────────────────────
	applicantRepo := repository.NewApplicantRepository(pool, cfg.TableName)
	if err := applicantRepo.EnsureSchema(ctx); err != nil {
		log.Warn().Err(err).Msg("Schema check failed, retrying on first use")
	}

	// ─── Initialize Services ──────────────────────────────────────────
	client := scraper.NewClient(cfg.Scraper, log)
	incremental := scraper.NewIncremental(client, client.BaseURL(), cfg.Scraper.MaxPages, log)

	analysisService := service.NewAnalysisService(applicantRepo, log)
	loaderService := service.NewLoaderService(applicantRepo, log)
	pipelineService := service.NewPipelineService(
		applicantRepo,
		incremental,
		cleaner.New(log),
		standardize.NewRules(log),
		loaderService,
		cfg.DataDir,
		log,
	)
	slot := worker.NewJobSlot(log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Dashboard: handler.NewDashboardHandler(analysisService, slot, log),
		Pipeline:  handler.NewPipelineHandler(slot, pipelineService, analysisService, log),
		WS:        handler.NewWSHandler(slot, log, cfg.AllowedOrigins),
		System:    handler.NewSystemHandler(pool, log),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	actionLimiter := middleware.NewRateLimiter(cfg.ActionRatePerMin, cfg.ActionRatePerMin)
	go actionLimiter.Cleanup(ctx.Done())

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(handlers, actionLimiter, cfg, log)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Jobs cannot be cancelled, so give a running one time to finish.
	jobCtx, jobCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer jobCancel()
	if err := slot.Wait(jobCtx); err != nil {
		log.Warn().Err(err).Str("progress", slot.Status().Progress).Msg("Job still running at exit")
	}
	cancel()

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
