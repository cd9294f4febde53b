package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/hackgods/counseling-appointments/internal/app"
	"github.com/hackgods/counseling-appointments/internal/appointment"
	"github.com/hackgods/counseling-appointments/internal/calendar"
	"github.com/hackgods/counseling-appointments/internal/config"
	"github.com/hackgods/counseling-appointments/internal/db"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("config load error: " + err.Error())
	}

	logger := app.NewLogger(cfg.Env).Named("token-refresher")
	defer func() { _ = logger.Sync() }()

	if !cfg.CalendarEnabled() {
		logger.Fatal("GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET are required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(ctx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN, cfg.PostgresMaxConn)
	cancelPg()
	if err != nil {
		logger.Fatal("postgres connection error", zap.Error(err))
	}
	defer pgPool.Close()

	repo := appointment.NewPgRepository(pgPool)
	refresher := calendar.NewRefresher(calendar.NewOAuthConfig(cfg.GoogleClientID, cfg.GoogleClientSecret))

	run := func() {
		runCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
		defer cancel()
		refreshAll(runCtx, repo, refresher, logger)
	}

	c := cron.New(cron.WithSeconds())
	if _, err := c.AddFunc(cfg.TokenRefreshSchedule, run); err != nil {
		logger.Fatal("invalid refresh schedule", zap.String("schedule", cfg.TokenRefreshSchedule), zap.Error(err))
	}

	logger.Info("token refresher started", zap.String("schedule", cfg.TokenRefreshSchedule))
	run()
	c.Start()

	<-ctx.Done()
	logger.Info("token refresher shutting down")
	<-c.Stop().Done()
}
