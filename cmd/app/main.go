// File: cmd/app/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-account-manager/internal/application"
	"telegram-account-manager/internal/config"
	"telegram-account-manager/internal/domain/model"
	"telegram-account-manager/internal/infra/adapters/mtproto"
	tele "telegram-account-manager/internal/infra/adapters/telegram"
	pg "telegram-account-manager/internal/infra/db/postgres"
	adminhttp "telegram-account-manager/internal/infra/http"
	"telegram-account-manager/internal/infra/i18n"
	"telegram-account-manager/internal/infra/logging"
	"telegram-account-manager/internal/infra/memory"
	"telegram-account-manager/internal/infra/metrics"
	red "telegram-account-manager/internal/infra/redis"
	"telegram-account-manager/internal/infra/sessionfile"
	"telegram-account-manager/internal/infra/worker"
	"telegram-account-manager/internal/usecase"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (verbose logs, unredacted phones)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("[DEV MODE] Enabled")
	}

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	loc, err := cfg.Location()
	if err != nil {
		logger.Fatal().Err(err).Msg("timezone")
	}

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()
	if err := pg.EnsureSchema(ctx, pool); err != nil {
		logger.Fatal().Err(err).Msg("schema")
	}
	go reportPoolStats(ctx, pool)

	// ---- Redis (optional) ----
	var rateLimiter *red.RateLimiter
	if strings.TrimSpace(cfg.Redis.URL) != "" {
		redisClient, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis")
		}
		defer redisClient.Close()
		rateLimiter = red.NewRateLimiter(redisClient)
	} else {
		logger.Info().Msg("redis.url not set; rate limiting disabled")
	}

	// ---- Repositories and adapters ----
	accountRepo := pg.NewAccountRepo(pool)
	stateRepo := memory.NewOnboardingStateRepo()
	gateway := mtproto.NewGateway(logger)
	files := sessionfile.NewWriter()

	// ---- Use cases ----
	app := model.AppCredentials{ID: cfg.TelegramAPI.AppID, Hash: cfg.TelegramAPI.AppHash}
	onboardingUC := usecase.NewOnboardingUseCase(gateway, accountRepo, stateRepo, app, logger, cfg.Runtime.Dev)
	sessionUC := usecase.NewSessionUseCase(accountRepo, gateway, files, usecase.SessionOptions{
		ExportDir:       cfg.Sessions.ExportDir,
		ServiceSenderID: cfg.Sessions.ServiceSenderID,
		CodeLimit:       cfg.Sessions.CodeLimit,
		CodeMarkers:     cfg.Sessions.CodeMarkers,
		Location:        loc,
		Dev:             cfg.Runtime.Dev,
	}, logger)

	// ---- Facade ----
	translator, err := i18n.NewTranslator(i18n.LocalesFS, cfg.Bot.Locale)
	if err != nil {
		logger.Fatal().Err(err).Str("locale", cfg.Bot.Locale).Msg("i18n")
	}
	facade := application.NewBotFacade(onboardingUC, sessionUC, translator, logger, cfg.Sessions.ServiceSenderID)

	// ---- Telegram ----
	workers := worker.NewPool(cfg.Bot.Workers, 64, logger)
	workers.Start(ctx)
	defer workers.Stop()

	botAdapter, err := tele.NewRealTelegramBotAdapter(&cfg.Bot, cfg.RateLimit, facade, translator, rateLimiter, workers, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("telegram")
	}
	if strings.ToLower(cfg.Bot.Mode) != "polling" {
		logger.Warn().Str("mode", cfg.Bot.Mode).Msg("bot.mode not implemented; falling back to polling")
	}
	go func() {
		if err := botAdapter.StartPolling(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("telegram polling stopped")
			cancel()
		}
	}()

	// ---- Admin HTTP server ----
	admin := adminhttp.NewServer(cfg.Admin.Port, pool, logger)
	go func() {
		if err := admin.Start(); err != nil {
			logger.Error().Err(err).Msg("admin server error")
			cancel()
		}
	}()

	// ---- Graceful shutdown ----
	<-ctx.Done()
	logger.Info().Msg("shutdown requested")
	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := admin.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("admin server shutdown")
	}
}

func reportPoolStats(ctx context.Context, pool *pgxpool.Pool) {
	t := time.NewTicker(15 * time.Second)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s := pool.Stat()
			metrics.SetDBPoolStats(s.TotalConns(), s.IdleConns(), s.AcquiredConns())
		}
	}
}
