package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-telegram/bot"

	questboard "github.com/set-night/questboard"
	"github.com/set-night/questboard/internal/config"
	"github.com/set-night/questboard/internal/repository"
	"github.com/set-night/questboard/internal/server"
	"github.com/set-night/questboard/internal/service"
	"github.com/set-night/questboard/internal/telegram"
	"github.com/set-night/questboard/internal/ton"
)

func main() {
	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Setup context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to database
	pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Run migrations
	migrationsFS, err := fs.Sub(questboard.MigrationsFS, "migrations")
	if err != nil {
		slog.Error("failed to load embedded migrations", "error", err)
		os.Exit(1)
	}
	if err := repository.RunMigrations(cfg.DatabaseURL, migrationsFS); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Telegram bot client, used for membership checks and event logging.
	// The server never polls for updates.
	b, err := bot.New(cfg.BotToken)
	if err != nil {
		slog.Error("failed to create bot", "error", err)
		os.Exit(1)
	}

	me, err := b.GetMe(ctx)
	if err != nil {
		slog.Error("failed to get bot info", "error", err)
		os.Exit(1)
	}
	slog.Info("bot info retrieved", "id", me.ID, "username", me.Username)

	tgLogger := telegram.NewLogger(b, cfg)
	tonClient := ton.NewClient(cfg.TonAPIURL, cfg.TonAPIKey)

	// Initialize services
	store := repository.NewPostgresStore(pool)
	referralService := service.NewReferralService(store, cfg.ReferralPercents)
	userService := service.NewUserService(store, referralService)
	balanceService := service.NewBalanceService(store)
	eligibilityService := service.NewEligibilityService(telegram.NewMembershipChecker(b), tonClient)
	catalogService := service.NewCatalogService(store, telegram.NewChannelInfo())
	claimService := service.NewClaimService(store, eligibilityService, referralService)

	srv := server.New(server.Config{
		Cfg:         cfg,
		Users:       userService,
		Catalog:     catalogService,
		Claims:      claimService,
		Balances:    balanceService,
		Referrals:   referralService,
		Eligibility: eligibilityService,
		TgLogger:    tgLogger,
	})

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      srv.Handler(),
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}

	go func() {
		slog.Info("starting server", "port", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown failed", "error", err)
	}
	slog.Info("server stopped gracefully")
}
