package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/hackgods/counseling-appointments/internal/api"
	"github.com/hackgods/counseling-appointments/internal/app"
	"github.com/hackgods/counseling-appointments/internal/appointment"
	"github.com/hackgods/counseling-appointments/internal/availability"
	"github.com/hackgods/counseling-appointments/internal/calendar"
	"github.com/hackgods/counseling-appointments/internal/config"
	"github.com/hackgods/counseling-appointments/internal/db"
	redisclient "github.com/hackgods/counseling-appointments/internal/redis"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("config load error: " + err.Error())
	}

	logger := app.NewLogger(cfg.Env)
	defer func() { _ = logger.Sync() }()

	logger.Info("api-server starting up",
		zap.String("env", cfg.Env),
		zap.String("http_port", cfg.HTTPPort),
		zap.String("timezone", cfg.Location.String()),
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN, cfg.PostgresMaxConn)
	cancelPg()
	if err != nil {
		logger.Fatal("postgres connection error", zap.Error(err))
	}
	defer pgPool.Close()
	logger.Info("connected to Postgres")

	migrator, err := db.NewMigrator(pgPool, logger)
	if err != nil {
		logger.Fatal("migrator init error", zap.Error(err))
	}
	if err := migrator.Up(rootCtx); err != nil {
		logger.Fatal("migration error", zap.Error(err))
	}
	_ = migrator.Close()

	// Redis is optional; the unique indexes still reject double bookings
	var rdb *redis.Client
	var locker redisclient.Locker = redisclient.NopLocker{}
	if cfg.RedisEnabled() {
		rdb, err = redisclient.NewRedisClient(cfg.RedisURL, cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
		if err != nil {
			logger.Fatal("redis connection error", zap.Error(err))
		}
		defer func() {
			if err := rdb.Close(); err != nil {
				logger.Warn("error closing redis", zap.Error(err))
			}
		}()
		locker = redisclient.NewRedisSlotLocker(rdb, cfg.LockTTL)
		logger.Info("connected to Redis")
	} else {
		logger.Warn("redis not configured, slot lock disabled")
	}

	gateway := calendar.NewGoogleGateway(calendar.GoogleConfig{
		OAuth:    calendar.NewOAuthConfig(cfg.GoogleClientID, cfg.GoogleClientSecret),
		Location: cfg.Location,
		Marker:   calendar.NewMarkerMatcher(cfg.CalendarMarker),
		Timeout:  cfg.CalendarTimeout,
	}, logger.Named("calendar"))

	policy := appointment.Policy{
		Location:         cfg.Location,
		SlotDuration:     cfg.SlotDuration,
		LeadTime:         cfg.LeadTime,
		FollowUpLeadTime: cfg.FollowUpLeadTime,
		LookaheadDays:    cfg.LookaheadDays,
	}

	repo := appointment.NewPgRepository(pgPool)
	svc := appointment.NewService(repo, locker, gateway, policy, logger.Named("appointment"))
	resolver := availability.NewResolver(repo, gateway, policy, logger.Named("availability"))

	router := api.NewRouter(api.RouterConfig{
		Booking:      svc,
		Availability: resolver,
		PgPool:       pgPool,
		Redis:        rdb,
		Logger:       logger.Named("http"),
		Env:          cfg.Env,
		Version:      version,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-rootCtx.Done()
	logger.Info("shutting down api-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}
