package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/zonegrid/presence-service/config"
	"github.com/zonegrid/presence-service/internal/auth"
	"github.com/zonegrid/presence-service/internal/postgres"
	"github.com/zonegrid/presence-service/internal/service"
	httpx "github.com/zonegrid/presence-service/internal/transport/http"
	"github.com/zonegrid/presence-service/internal/transport/ws"
	"github.com/zonegrid/presence-service/pkg/logger"

	"github.com/joho/godotenv"
)

func main() {
	// --- config ---
	_ = godotenv.Load() // best-effort, секреты могут прийти из .env
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger.Init(logger.Config{
		Env:       logger.Env(cfg.Logging.Env),
		Service:   cfg.Logging.Service,
		Version:   cfg.Logging.Version,
		Backend:   logger.Backend(cfg.Logging.Backend),
		AddSource: cfg.Logging.AddSource,
		Debug:     cfg.Logging.Debug,
	})
	slog.Info("starting presence-service",
		"env", cfg.Logging.Env, "version", cfg.Logging.Version)

	// --- postgres ---
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := postgres.NewPool(ctx, postgres.PoolConfig{
		DSN:             cfg.Postgres.DSN,
		MaxConns:        cfg.Postgres.MaxConns,
		MinConns:        cfg.Postgres.MinConns,
		ApplicationName: cfg.Logging.Service,
	})
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	// --- repos ---
	areaRepo := postgres.NewAreaRepository(pool)
	userRepo := postgres.NewUserRepository(pool)
	ledgerRepo := postgres.NewParticipationRepository(pool)
	statsRepo := postgres.NewStatsRepository(pool)
	sampleRepo := postgres.NewSampleRepository(pool)

	// --- services ---
	presenceSvc := service.NewPresenceService(ledgerRepo, statsRepo, areaRepo, cfg.Presence.EventBuffer)
	statsSvc := service.NewStatsService(statsRepo, ledgerRepo, areaRepo)
	historySvc := service.NewHistoryService(ledgerRepo)

	// --- background tasks ---
	notifier := service.NewNotifier(presenceSvc.Events(), userRepo, service.LogPushSender{})
	go notifier.Run(ctx)

	reaper := service.NewReaper(sampleRepo, cfg.SampleRetentionDuration(), cfg.ReaperIntervalDuration())
	go reaper.Run(ctx)

	// --- WS Hub & Server ---
	tokens := auth.NewTokenVerifier(cfg.Auth.JWTSecret)
	hub := ws.NewHub()
	wsServer := ws.NewServer(hub, presenceSvc, sampleRepo, userRepo, areaRepo, tokens)

	// --- HTTP ---
	handler := httpx.NewHandler(presenceSvc, statsSvc, historySvc)
	router := httpx.NewRouter(handler, tokens, wsServer)
	httpSrv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http listen", "addr", cfg.HTTP.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// --- graceful shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal", "sig", sig)
	case err := <-errCh:
		slog.Error("server error", "err", err)
	}

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	cancel() // останавливаем notifier и reaper
	_ = httpSrv.Shutdown(ctxShutdown)
	slog.Info("stopped")
}
