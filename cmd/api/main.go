package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gpresearch2025/ai-voice-agent/internal/agent"
	"github.com/gpresearch2025/ai-voice-agent/internal/auth"
	"github.com/gpresearch2025/ai-voice-agent/internal/calls"
	"github.com/gpresearch2025/ai-voice-agent/internal/config"
	"github.com/gpresearch2025/ai-voice-agent/internal/conversation"
	"github.com/gpresearch2025/ai-voice-agent/internal/httpapi"
	"github.com/gpresearch2025/ai-voice-agent/internal/reaper"
	"github.com/gpresearch2025/ai-voice-agent/internal/voice"
	"github.com/gpresearch2025/ai-voice-agent/pkg/logger"
	"github.com/gpresearch2025/ai-voice-agent/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Dashboard.Secret, cfg.Dashboard.TokenTTL)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	runtime, err := config.NewRuntime(cfg.Voice)
	if err != nil {
		log.Error("voice settings init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	store := calls.NewPostgresStore(db)
	if err := calls.EnsureSchema(rootCtx, db); err != nil {
		log.Error("schema init failed", "err", err)
		os.Exit(1)
	}

	// Redis is optional: without it the per-origin call cap is disabled.
	var guard *voice.CallGuard
	if cfg.Redis.Host != "" {
		rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
		if err != nil {
			log.Error("redis init failed", "err", err)
			os.Exit(1)
		}
		defer rdb.Close()
		guard = voice.NewCallGuard(rdb, cfg.Voice.MaxCallsPerOrigin, cfg.Voice.StaleCallMaxAge, log)
	} else {
		log.Info("redis not configured, call cap disabled")
	}

	convs := conversation.NewManager()
	gateway := agent.NewGateway(agent.GatewayConfig{
		APIKey:  cfg.Model.APIKey,
		BaseURL: cfg.Model.BaseURL,
		Model:   cfg.Model.Name,
	}, log)
	controller := voice.NewController(store, convs, gateway, runtime, log)

	go reaper.New(store, cfg.Voice.StaleCallMaxAge, cfg.Voice.ReaperInterval, log).Run(rootCtx)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, routeDeps{
		webhooks: voice.WebhookHandler{Controller: controller, Guard: guard},
		api: httpapi.Handlers{
			Auth:            authManager,
			Store:           store,
			Convs:           convs,
			Runtime:         runtime,
			ModelConfigured: cfg.Model.APIKey != "",
		},
		authMW: auth.Require(authManager),
		log:    log,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
}
