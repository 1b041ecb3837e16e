package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"flash-resume/internal/adapter/http"
	"flash-resume/internal/adapter/repository"
	"flash-resume/internal/config"
	"flash-resume/internal/infrastructure/migration"
	"flash-resume/internal/queue"
	"flash-resume/internal/usecase"
	"flash-resume/pkg/ai"
	"flash-resume/pkg/convert"
	"flash-resume/pkg/infrastructure"
	"flash-resume/pkg/pix"
	"flash-resume/pkg/scrape"
	"flash-resume/pkg/storage"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infrastructure.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := migration.RunMigrations(ctx, pool); err != nil {
		log.Error("migrations failed", "error", err)
		os.Exit(1)
	}

	// repositories
	jobsRepo := repository.NewJobsRepo(pool)
	ledgerRepo := repository.NewLedgerRepo(pool)
	paymentsRepo := repository.NewPaymentsRepo(pool, ledgerRepo)

	// external adapters
	scraper := scrape.NewClient(cfg.ProfileAPIKey, cfg.ScrapeAPIKey)
	github := scrape.NewGitHub(cfg.GitHubAPIURL)
	generator := ai.NewClient(cfg.OpenRouterAPIKey, cfg.OpenRouterModel)
	chrome := convert.NewChrome(cfg.ChromePath)
	store := storage.NewClient(cfg.StorageURL, cfg.StorageKey, cfg.StorageBucket)
	pixClient := pix.NewClient(cfg.PixAPIURL, cfg.PixAPIKey)

	pipeline := usecase.NewPipeline(jobsRepo, ledgerRepo, scraper, github, generator, chrome, store, log)
	payments := usecase.NewPaymentService(paymentsRepo, ledgerRepo, pixClient, cfg.PixPublicKey, cfg.Dev, log)

	manager, err := queue.NewManager(cfg.RedisURL, cfg.WorkerConcurrency, pipeline, log)
	if err != nil {
		log.Error("queue setup failed", "error", err)
		os.Exit(1)
	}
	manager.StartWorkers()

	app := fiber.New(fiber.Config{AppName: cfg.AppName})
	app.Use(logger.New())
	app.Use(recover.New())

	http.NewHandler(jobsRepo, ledgerRepo, manager, cfg.DefaultLanguage, cfg.ExperimentalJobDetails, log).Register(app)
	http.NewPaymentHandler(payments, cfg.PixWebhookSecret, log).Register(app)

	go func() {
		log.Info("server listening", "port", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Error("server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "error", err)
	}
	manager.Shutdown()
	log.Info("shutdown complete")
}
