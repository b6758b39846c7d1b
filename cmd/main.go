package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/stagely/internal/adapters/cache"
	"github.com/okian/stagely/internal/adapters/http/api"
	"github.com/okian/stagely/internal/adapters/repository"
	service "github.com/okian/stagely/internal/app"
	"github.com/okian/stagely/internal/config"
	"github.com/okian/stagely/internal/domain/planner"
	"github.com/okian/stagely/internal/fixture"
	"github.com/okian/stagely/pkg/logger"
	"github.com/okian/stagely/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 10 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	serviceMetricsInterval    = 5 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// Our registry is separate; keep the default one quiet.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() {
		if err := logger.Sync(); err != nil {
			os.Stderr.WriteString("failed to sync logger: " + err.Error() + "\n")
		}
	}()
	log := logger.Get()

	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	if err := run(ctx, cfg, log); err != nil {
		log.Error(ctx, "stagely exited", logger.Error(err))
		os.Exit(1)
	}
}

// run wires the store, cache and service and serves HTTP until ctx is done.
func run(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}

	planCache, err := openCache(ctx, cfg)
	if err != nil {
		_ = store.Close()
		return err
	}

	svc := service.New(
		service.WithLogger(log),
		service.WithStore(store),
		service.WithCache(planCache),
		service.WithPlanner(newPlanner(cfg)),
		service.WithWorkerCount(cfg.WorkerCount),
		service.WithQueueSize(cfg.EventQueueSize),
		service.WithDedupeSize(cfg.DedupeSize),
	)
	if err := svc.Start(ctx); err != nil {
		_ = planCache.Close()
		_ = store.Close()
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := svc.Stop(stopCtx); err != nil {
			log.Error(stopCtx, "service stop failed", logger.Error(err))
		}
	}()

	go startSystemMetricsUpdater(ctx)
	go startServiceMetricsUpdater(ctx, svc)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.NewServer(svc, api.WithJWTSecret(cfg.JWTSecret), api.WithLogger(log)).Handler(),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server",
			logger.String("addr", cfg.Addr),
			logger.String("store", cfg.Store),
			logger.Bool("redis", cfg.RedisAddr != ""),
			logger.Bool("jwt", cfg.JWTSecret != ""))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return err
		}
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "server shutdown failed", logger.Error(err))
	}
	log.Info(shutdownCtx, "server stopped")
	return nil
}

// openStore builds the configured store and applies the seed file if any.
func openStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	var (
		store  repository.Store
		loader repository.Loader
	)
	switch cfg.Store {
	case config.StorePostgres:
		pg, err := repository.OpenPostgres(ctx, cfg.DatabaseURL, repository.WithMigrate(true))
		if err != nil {
			return nil, err
		}
		loader = pg
		store = repository.NewGuardedStore(pg, repository.BreakerSettings{
			Name:             "postgres",
			FailureThreshold: uint32(cfg.BreakerFailureThreshold),
			Timeout:          time.Duration(cfg.BreakerTimeoutSeconds) * time.Second,
		})
	default:
		mem := repository.NewMemoryStore()
		store, loader = mem, mem
	}

	if cfg.SeedFile == "" {
		return store, nil
	}
	seed, err := fixture.Load(cfg.SeedFile)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	if err := loader.Load(ctx, seed); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

// openCache returns Redis when an address is configured, memory otherwise.
func openCache(ctx context.Context, cfg *config.Config) (cache.Cache, error) {
	ttl := time.Duration(cfg.CacheTTLSeconds) * time.Second
	if cfg.RedisAddr != "" {
		return cache.NewRedis(ctx, cache.RedisSettings{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      ttl,
		})
	}
	return cache.NewMemory(cache.WithTTL(ttl)), nil
}

func newPlanner(cfg *config.Config) *planner.Planner {
	return planner.New(
		planner.WithWeights(cfg.Weights),
		planner.WithOverlapTolerance(cfg.OverlapToleranceMinutes),
		planner.WithGapThreshold(cfg.GapThresholdMinutes),
		planner.WithSlotStep(cfg.SlotMinutes),
	)
}

// startSystemMetricsUpdater refreshes runtime metrics until ctx is done.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// startServiceMetricsUpdater refreshes queue and worker gauges until ctx is done.
func startServiceMetricsUpdater(ctx context.Context, svc *service.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(svc)
		}
	}
}

func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}

func updateServiceMetrics(svc *service.Service) {
	stats := svc.GetStats()

	if queueLen, ok := stats["queueLength"].(int); ok {
		metrics.UpdateQueueSize(queueLen)
	}
	if workerCount, ok := stats["workerCount"].(int); ok {
		metrics.UpdateWorkerCount(workerCount)
	}
}
