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

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"skibook/internal/api"
	"skibook/internal/cart"
	"skibook/internal/config"
	"skibook/internal/dayslot"
	"skibook/internal/events"
	"skibook/internal/metrics"
	"skibook/internal/selection"
	"skibook/internal/storage"
)

func main() {
	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	cfg, err := config.Load(os.Getenv("SKIBOOK_CONFIG_PATH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	database, err := storage.Open(cfg.Database.Path)
	if err != nil {
		logger.Fatal().Err(err).Msg("open db error")
	}
	defer database.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := dayslot.NewRegistry(loadCatalog(ctx, cfg.Catalog.Path, database, &logger))
	if interval := cfg.CatalogReloadInterval(); interval > 0 {
		watcher := dayslot.NewWatcher(cfg.Catalog.Path, registry, interval)
		if !cfg.Catalog.AllowDrop {
			watcher.Guard = referencedGuard(ctx, database)
		}
		watcher.OnChange = func(ch dayslot.Change) {
			if err := database.EnsureDaySlots(ctx, ch.Catalog.Types()); err != nil {
				logger.Error().Err(err).Msg("sync day slots")
			}
			logger.Info().
				Int("types", ch.Catalog.Len()).
				Ints("added", ch.Added).
				Ints("removed", ch.Removed).
				Ints("dropped", ch.Dropped).
				Msg("day-slot catalog reloaded")
		}
		watcher.OnError = func(err error) {
			logger.Warn().Err(err).Str("path", cfg.Catalog.Path).Msg("catalog reload skipped")
		}
		go watcher.Run(ctx)
	}

	var rdb *redis.Client
	if cfg.Redis.Address != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Address, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
	}

	carts, err := cartManager(cfg, database, rdb)
	if err != nil {
		logger.Fatal().Err(err).Msg("cart backend error")
	}

	bus := events.NewEventBus()
	events.SubscribeMetrics(bus)
	events.SubscribeLogging(bus, &logger)

	occupancy := storage.NewCachedOccupancy(database, rdb, cfg.OccupancyCacheTTL())
	server := api.NewHTTPServer(api.Options{
		Port:           cfg.HTTP.Port,
		MaxRangeDays:   cfg.HTTP.MaxRangeDays,
		RateLimitRPS:   cfg.HTTP.RateLimitRPS,
		RateLimitBurst: cfg.HTTP.RateLimitBurst,
		NotFound:       storage.ErrNotFound,
		SlotTaken:      storage.ErrSlotTaken,
	}, api.Deps{
		Data:        database,
		Occupancy:   occupancy,
		Bookings:    database,
		Invalidator: occupancy,
		Catalog:     registry,
		Selections:  selection.NewStore(selection.ModeRange),
		Carts:       carts,
		Bus:         bus,
	}, &logger)
	go server.RunSessionSweeper(ctx, cfg.SessionIdle(), cfg.SessionCleanupInterval())

	backup := storage.NewBackupService(database, cfg.Backup, cfg.BackupInterval(), &logger)
	go backup.Start(ctx)

	go startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, database, rdb, &logger)

	if cfg.Monitoring.PrometheusEnabled {
		metrics.Register()
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	logger.Info().Str("cart_backend", cfg.Cart.Backend).Msg("skibook started")
	if err := server.Start(ctx); err != nil {
		logger.Fatal().Err(err).Msg("api server error")
	}
	logger.Info().Msg("skibook stopped")
}

// loadCatalog reads the catalog file, falling back to the built-in catalog, and
// mirrors the result into the day_slots table.
func loadCatalog(ctx context.Context, path string, database *storage.DB, logger *zerolog.Logger) *dayslot.Catalog {
	cat, err := dayslot.LoadFile(path)
	if err != nil {
		logger.Warn().Err(err).Str("path", path).Msg("using built-in day-slot catalog")
		cat = dayslot.Default()
	}
	if err := database.EnsureDaySlots(ctx, cat.Types()); err != nil {
		logger.Fatal().Err(err).Msg("sync day slots")
	}
	return cat
}

// referencedGuard refuses catalog reloads that drop a day slot still used by
// availability rows or active bookings.
func referencedGuard(ctx context.Context, database *storage.DB) func(dayslot.Change) error {
	return func(ch dayslot.Change) error {
		if len(ch.Dropped) == 0 {
			return nil
		}
		ids, err := database.ReferencedDaySlots(ctx)
		if err != nil {
			return fmt.Errorf("load referenced day slots: %w", err)
		}
		if id, ok := ch.DropsAny(ids); ok {
			return fmt.Errorf("day slot %d is still referenced", id)
		}
		return nil
	}
}

func cartManager(cfg *config.Config, database *storage.DB, rdb *redis.Client) (*cart.Manager, error) {
	var repo cart.Repository
	switch cfg.Cart.Backend {
	case config.CartBackendMemory:
		repo = cart.NewMemoryRepository()
	case config.CartBackendSQLite:
		repo = storage.NewCartRepository(database)
	case config.CartBackendRedis:
		if rdb == nil {
			return nil, errors.New("redis cart backend without redis client")
		}
		repo = storage.NewRedisCartRepository(rdb, cfg.CartTTL())
	default:
		return nil, fmt.Errorf("unknown cart backend %q", cfg.Cart.Backend)
	}
	return cart.NewManager(repo, cfg.Cart.StorageKey), nil
}

func startHealthServer(ctx context.Context, port int, database *storage.DB, rdb *redis.Client, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		ctxPing, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if err := database.PingContext(ctxPing); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		if rdb != nil {
			if err := rdb.Ping(ctxPing).Err(); err != nil {
				http.Error(w, "redis not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("health server error")
	}
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
