// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"whatsapp-image-bot/internal/config"
	"whatsapp-image-bot/internal/domain/ports/adapter"
	msgAdapters "whatsapp-image-bot/internal/infra/adapters/messenger"
	"whatsapp-image-bot/internal/infra/adapters/storage"
	"whatsapp-image-bot/internal/infra/adapters/transform"
	pg "whatsapp-image-bot/internal/infra/db/postgres"
	"whatsapp-image-bot/internal/infra/i18n"
	"whatsapp-image-bot/internal/infra/logging"
	"whatsapp-image-bot/internal/infra/metrics"
	red "whatsapp-image-bot/internal/infra/redis"
	"whatsapp-image-bot/internal/infra/web"
	"whatsapp-image-bot/internal/infra/worker"
	"whatsapp-image-bot/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, noop messenger)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, *devMode)
	if *devMode {
		logger.Info().Msg("dev mode enabled")
	}

	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 10)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	defer redisClient.Close()

	pendingRepo := red.NewPendingRepo(redisClient, cfg.Conversation.PendingTTL)
	deduper := red.NewEventDeduper(redisClient)
	locker := red.NewLocker(redisClient)
	rateLimiter := red.NewRateLimiter(redisClient)

	// ---- Repositories ----
	userRepo := pg.NewPostgresUserRepo(pool)

	// ---- Transform adapter ----
	var base adapter.TransformAdapter
	switch cfg.Transform.Provider {
	case "fal":
		base, err = transform.NewFalAdapter(cfg.Transform.FalKey, cfg.Transform.Model, cfg.Transform.FalBaseURL)
	case "openai":
		base, err = transform.NewOpenAIAdapter(cfg.Transform.OpenAIKey, cfg.Transform.Model)
	case "gemini":
		base, err = transform.NewGeminiAdapter(ctx, cfg.Transform.GeminiKey, cfg.Transform.GeminiURL, cfg.Transform.Model)
	case "noop":
		base = transform.NewNoopAdapter()
	default:
		log.Fatalf("transform: unknown provider %q", cfg.Transform.Provider)
	}
	if err != nil {
		log.Fatalf("transform adapter: %v", err)
	}
	logger.Info().Str("provider", base.Name()).Str("model", cfg.Transform.Model).Msg("transform adapter ready")

	transformer := transform.NewLimitedTransform(
		transform.NewRetriedTransform(base, cfg.Transform.MaxRetries, cfg.Transform.Timeout),
		cfg.Transform.ConcurrentLimit,
	)

	// ---- Storage ----
	var mediaStore adapter.MediaStore
	if cfg.Transform.Provider == "noop" && cfg.Storage.Bucket == "" {
		mediaStore = storage.NewNoopStore(logger)
	} else {
		mediaStore, err = storage.NewS3Store(&cfg.Storage)
		if err != nil {
			log.Fatalf("storage: %v", err)
		}
	}

	// ---- Messenger ----
	var messenger adapter.Messenger
	if *devMode {
		messenger = msgAdapters.NewNoopMessenger(logger)
	} else {
		messenger, err = msgAdapters.NewTwilioMessenger(&cfg.WhatsApp)
		if err != nil {
			log.Fatalf("messenger: %v", err)
		}
	}

	// ---- Replies ----
	replies, err := i18n.NewTranslator(i18n.LocalesFS, "en")
	if err != nil {
		log.Fatalf("replies: %v", err)
	}

	// ---- Use cases ----
	ledgerUC := usecase.NewLedgerUseCase(userRepo, cfg.Credits.StartingGrant, logger)
	pipelineUC := usecase.NewPipelineUseCase(
		ledgerUC, pendingRepo, deduper, locker,
		transformer, mediaStore, messenger, replies,
		cfg.Credits.CostPerImage, cfg.Credits.CheckoutURL, cfg.Storage.Timeout,
		logger, *devMode,
	)

	// ---- Worker pool ----
	wpool := worker.NewPool(cfg.Server.Workers, logger)
	wpool.Start(ctx)
	defer wpool.Stop()

	// ---- HTTP server ----
	auth := web.NewAuthManager(cfg.Admin.JWTSecret, 30*time.Minute)
	srv := web.NewServer(pipelineUC, ledgerUC, rateLimiter, wpool, auth, logger)
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      srv.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server error")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	cancel()
}
