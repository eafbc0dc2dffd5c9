package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"courier-market-service/internal/adapters/detour"
	"courier-market-service/internal/adapters/events"
	"courier-market-service/internal/adapters/identity"
	"courier-market-service/internal/adapters/locks"
	"courier-market-service/internal/adapters/repositories"
	"courier-market-service/internal/api"
	"courier-market-service/internal/config"
	"courier-market-service/internal/platform/db"
	"courier-market-service/internal/platform/logging"
	"courier-market-service/internal/ports"
	"courier-market-service/internal/services"
)

// main is the application composition root. It wires concrete adapters
// (postgres or in-memory storage, Redis events, the detour estimator) behind
// ports and runs the HTTP server next to the deadline sweeper.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}
	cfg := config.Load()
	logger := logging.New(cfg.Log.Level, cfg.Log.Format)
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		packages ports.PackageRepository
		bids     ports.BidRepository
		routes   ports.RouteRepository
	)
	if cfg.DB.URL != "" {
		pool, err := db.Open(ctx, cfg.DB.URL)
		if err != nil {
			logger.Fatalw("open database", "error", err)
		}
		defer pool.Close()
		packages = repositories.NewPostgresPackageRepository(pool)
		bids = repositories.NewPostgresBidRepository(pool)
		routes = repositories.NewPostgresRouteRepository(pool)
		logger.Infow("storage ready", "backend", "postgres")
	} else {
		packages = repositories.NewMemoryPackageRepository()
		bids = repositories.NewMemoryBidRepository()
		routes = repositories.NewMemoryRouteRepository()
		logger.Infow("storage ready", "backend", "memory")
	}

	var redisClient *redis.Client
	var sink ports.EventSink = events.NewLogSink(logger)
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			cancel()
			logger.Fatalw("verify redis connection", "addr", cfg.Redis.Addr, "error", err)
		}
		cancel()
		defer func() { _ = redisClient.Close() }()
		sink = events.NewRedisPublisher(redisClient, cfg.Redis.Stream)
		logger.Infow("event sink ready", "backend", "redis", "stream", cfg.Redis.Stream)
	}

	estimator, err := buildEstimator(cfg, redisClient, logger)
	if err != nil {
		logger.Fatalw("build detour estimator", "error", err)
	}

	var directory ports.CourierDirectory = identity.NewStaticDirectory()
	if cfg.Directory.BaseURL != "" {
		directory = identity.NewHTTPDirectory(cfg.Directory.BaseURL)
	}

	locker := locks.NewKeyedLocker(cfg.Lock.AcquireTimeout)
	rules := services.BiddingRules{
		Window:        cfg.Bidding.Window,
		Extension:     cfg.Bidding.Extension,
		MaxExtensions: cfg.Bidding.MaxExtensions,
	}

	lifecycle := services.NewPackageLifecycle(packages, bids, locker, sink, logger, rules)
	ledger := services.NewBidLedger(packages, bids, locker, directory, sink, logger, lifecycle)
	registry := services.NewRouteRegistry(routes, logger)
	matcher := services.NewMatcher(packages, routes, estimator, logger)
	sweeper := services.NewDeadlineSweeper(packages, lifecycle, ledger, logger, cfg.Sweep.Interval, cfg.Sweep.Parallelism)

	sweepDone := make(chan struct{})
	go func() {
		sweeper.Run(ctx)
		close(sweepDone)
	}()

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           api.NewRouter(lifecycle, ledger, registry, matcher, logger),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	logger.Infow("server listening", "addr", cfg.HTTP.Addr)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalw("server stopped", "error", err)
		}
	case <-ctx.Done():
		logger.Infow("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Errorw("shutdown http server", "error", err)
		}
		<-sweepDone
		logger.Infow("shutdown complete")
	}
}

// buildEstimator picks the configured detour strategy and, when Redis is
// available, wraps it with the lookaside estimate cache.
func buildEstimator(cfg config.Config, redisClient *redis.Client, logger *zap.SugaredLogger) (ports.DetourEstimator, error) {
	var estimator ports.DetourEstimator
	switch cfg.Detour.Estimator {
	case "straightline":
		estimator = detour.NewStraightLine()
	case "googlemaps":
		maps, err := detour.NewGoogleMapsEstimator(cfg.Detour.MapsAPIKey)
		if err != nil {
			return nil, err
		}
		estimator = maps
	default:
		return nil, errors.New("unknown DETOUR_ESTIMATOR " + cfg.Detour.Estimator)
	}

	if redisClient != nil {
		estimator = detour.NewCachedEstimator(estimator, redisClient, cfg.Detour.CacheTTL, logger)
	}
	return estimator, nil
}
