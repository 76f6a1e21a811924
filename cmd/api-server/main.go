package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hackgods/appointment-booking/internal/api"
	"github.com/hackgods/appointment-booking/internal/appointment"
	"github.com/hackgods/appointment-booking/internal/catalog"
	"github.com/hackgods/appointment-booking/internal/config"
	"github.com/hackgods/appointment-booking/internal/db"
	"github.com/hackgods/appointment-booking/internal/metrics"
	redisclient "github.com/hackgods/appointment-booking/internal/redis"
	"github.com/hackgods/appointment-booking/internal/settings"
	"github.com/hackgods/appointment-booking/pkg/logging"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Default().Error("config load error", "error", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel)
	logger.Info("api-server starting up",
		"env", cfg.Env,
		"storage", cfg.Storage,
		"http_port", cfg.HTTPPort,
		"timezone", cfg.TimezoneName,
		"enforce_booking_window", cfg.EnforceBookingWindow,
		"strict_status_transitions", cfg.StrictStatusTransitions,
	)
	if cfg.AdminJWTSecret == "" {
		logger.Warn("ADMIN_JWT_SECRET is empty, admin routes will reject every request")
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStorage(rootCtx, cfg, logger)
	if err != nil {
		logger.Error("storage error", "storage", cfg.Storage, "error", err)
		os.Exit(1)
	}
	defer store.close()

	// Connect Redis
	rdb, err := redisclient.NewRedisClient(rootCtx, cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		logger.Error("redis connection error", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Warn("error closing redis", "error", err)
		}
	}()
	logger.Info("connected to Redis", "addr", cfg.RedisAddr)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewSchedulingMetrics(reg)

	cat := catalog.NewCatalog(store.services, logger)
	settingsSvc := settings.NewService(store.settings, rdb, cfg.SettingsCacheTTL, logger)
	appointments := appointment.NewService(
		store.appointments,
		cat,
		settingsSvc,
		redisclient.NewRedisLocker(rdb, cfg.LockTTL),
		cfg,
		logger,
		appointment.WithMetrics(m),
	)

	router := api.NewRouter(api.RouterConfig{
		Appointments:   appointments,
		Catalog:        cat,
		Settings:       settingsSvc,
		PgPool:         store.pinger,
		Redis:          rdb,
		Logger:         logger,
		Metrics:        m,
		MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		AdminSecret:    cfg.AdminJWTSecret,
		RateLimit:      cfg.RateLimit,
		Env:            cfg.Env,
		Version:        version,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-rootCtx.Done():
	case err := <-errCh:
		logger.Error("http server error", "error", err)
	}

	logger.Info("shutting down api-server", "timeout", cfg.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
	logger.Info("api-server stopped")
}

type storage struct {
	services     catalog.Repository
	settings     settings.Store
	appointments appointment.Repository
	pinger       api.Pinger
	close        func()
}

// openStorage connects Postgres, or with STORAGE=memory builds map-backed repositories seeded
// with the default catalog and settings.
func openStorage(ctx context.Context, cfg config.Config, logger *logging.Logger) (*storage, error) {
	if cfg.Storage == config.StorageMemory {
		services := catalog.NewInMemoryRepository()
		for _, in := range catalog.DefaultServices() {
			if _, err := services.Create(ctx, in); err != nil {
				return nil, fmt.Errorf("seed service %q: %w", in.Name, err)
			}
		}
		logger.Warn("using in-memory storage, data is lost on restart")
		return &storage{
			services:     services,
			settings:     settings.NewInMemoryStore(settings.Defaults()...),
			appointments: appointment.NewInMemoryRepository(services),
			close:        func() {},
		}, nil
	}

	pgCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	pool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("postgres connection error: %w", err)
	}
	logger.Info("connected to Postgres")
	return &storage{
		services:     catalog.NewPgRepository(pool),
		settings:     settings.NewPgStore(pool),
		appointments: appointment.NewPgRepository(pool),
		pinger:       pool,
		close:        pool.Close,
	}, nil
}
