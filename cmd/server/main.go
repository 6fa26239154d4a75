// Command server starts the candidate match analysis HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	httpserver "github.com/fairyhunter13/ats-matcher/internal/adapter/httpserver"
	"github.com/fairyhunter13/ats-matcher/internal/adapter/observability"
	"github.com/fairyhunter13/ats-matcher/internal/adapter/oracle"
	"github.com/fairyhunter13/ats-matcher/internal/adapter/repo/postgres"
	"github.com/fairyhunter13/ats-matcher/internal/analysis"
	"github.com/fairyhunter13/ats-matcher/internal/app"
	"github.com/fairyhunter13/ats-matcher/internal/config"
	"github.com/fairyhunter13/ats-matcher/internal/domain"
	"github.com/fairyhunter13/ats-matcher/internal/service/inflight"
	"github.com/fairyhunter13/ats-matcher/internal/service/ratelimiter"
	"github.com/fairyhunter13/ats-matcher/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)

	// Register all Prometheus metrics once per process so that /metrics
	// exposes HTTP, oracle, and analysis instrumentation.
	observability.InitMetrics()

	shutdownTracer, err := observability.SetupTracing(cfg)
	if err != nil {
		slog.Error("failed to setup tracing", slog.Any("error", err))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Infra: DB pool and schema
	pool, err := postgres.NewPool(ctx, cfg.DBURL)
	if err != nil {
		slog.Error("db connect failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()
	if err := postgres.Migrate(ctx, pool); err != nil {
		slog.Error("db migrate failed", slog.Any("error", err))
		os.Exit(1)
	}

	// Redis is optional; without it the oracle throttle and cross-replica lock are off.
	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			slog.Error("invalid REDIS_URL", slog.Any("error", err))
			os.Exit(1)
		}
		rdb = redis.NewClient(opts)
		defer func() { _ = rdb.Close() }()
	}

	// Oracle chain: client -> breaker -> shared throttle -> response cache
	client := oracle.New(cfg)
	var o domain.Oracle = oracle.NewBreaker(client, cfg.OracleBreakerThreshold, cfg.OracleBreakerCooldown)
	if rdb != nil && cfg.OracleRateLimitPerMin > 0 {
		limiter := ratelimiter.NewRedisLuaLimiter(rdb, map[string]ratelimiter.BucketConfig{
			oracle.BucketKey: ratelimiter.NewBucketConfigFromPerMinute(cfg.OracleRateLimitPerMin),
		})
		o = oracle.NewThrottled(o, limiter)
		slog.Info("oracle rate limit enabled", slog.Int("per_minute", cfg.OracleRateLimitPerMin))
	}
	o = oracle.NewResponseCache(o, cfg.OracleCacheSize, cfg.GetOracleCacheTTL())

	// Repositories and usecases
	cache := usecase.NewAnalysisCache(postgres.NewAnalysisRepo(pool), cfg.AnalysisFreshness)
	svc := usecase.NewAnalyzeService(
		postgres.NewCandidateRepo(pool),
		postgres.NewJobRepo(pool),
		postgres.NewCompanyRepo(pool),
		cache,
		o,
		client.Model(),
		analysis.OptionsFromConfig(cfg),
	)
	if rdb != nil {
		svc.WithLock(inflight.NewRedisLock(rdb, cfg.InflightLockTTL), cfg.InflightLockTTL)
	}

	// Start cleanup service for data retention
	if cfg.DataRetentionDays > 0 {
		cleanupSvc := postgres.NewCleanupService(pool, cfg.DataRetentionDays)
		go cleanupSvc.RunPeriodic(ctx, cfg.CleanupInterval)
		slog.Info("cleanup service started", slog.Int("retention_days", cfg.DataRetentionDays), slog.Duration("interval", cfg.CleanupInterval))
	}

	dbCheck, redisCheck := app.BuildReadinessChecks(pool, app.WrapRedis(rdb))
	srv := httpserver.NewServer(cfg, svc, dbCheck, redisCheck)
	handler := app.BuildRouter(cfg, srv)

	srvHTTP := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadTimeout:       cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server starting", slog.Int("port", cfg.Port), slog.String("model", client.Model()))
		errCh <- srvHTTP.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", slog.Any("error", err))
		}
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ServerShutdownTimeout)
	defer cancel()
	_ = srvHTTP.Shutdown(shutdownCtx)
}
