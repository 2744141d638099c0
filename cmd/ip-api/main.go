package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ip-api/api"
	"ip-api/middleware/accesslog"
	"ip-api/middleware/clientip"
	"ip-api/middleware/ratelimit"
	"ip-api/middleware/ratelimit/application"
	"ip-api/middleware/ratelimit/infra"
	"ip-api/middleware/security"
	"ip-api/observability"
	"ip-api/rdns"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

// preenchidos via -ldflags "-X main.version=... -X main.repository=..."
var (
	version    = "dev"
	repository = ""
)

func main() {
	cfg, err := readConfig(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(2)
	}

	logger := newLogger(os.Stderr, cfg.logFormat, cfg.logLevel)
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config, logger *slog.Logger) error {
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()

	network, addr := bindAddress(cfg.port)
	ln, err := net.Listen(network, addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// maior que o timeout do handler para o 503 do TimeoutHandler chegar ao cliente
		WriteTimeout: cfg.requestTimeout + 5*time.Second,
		IdleTimeout:  90 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return runJanitor(gctx, cfg.cleanupInterval, logger, a.janitorJobs)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	logger.Info("ip-api listening", "network", network, "addr", ln.Addr().String(), "version", version)
	logger.Info("rate", "enabled", cfg.rateEnabled, "requests", cfg.rateRequests, "window", cfg.rateWindow, "keyHeader", cfg.rateKeyHeader, "trustXFF", cfg.trustXFF)
	logger.Info("rdns", "servers", cfg.rdnsServers, "ttl", cfg.cacheTTL, "timeout", cfg.rdnsTimeout, "maxInFlight", cfg.rdnsMaxInFlight, "qps", cfg.rdnsQPS)
	logger.Info("rate-stats", "enabled", cfg.rateStatsEnabled, "redisAddr", cfg.rateStatsRedisAddr, "bucket", cfg.rateStatsBucket, "ttl", cfg.rateStatsTTL, "trackKeys", cfg.rateStatsTrackKeys)
	logger.Info("concurrency", "max", cfg.concurrencyMax, "acquireTimeout", cfg.concurrencyTimeout)

	return g.Wait()
}

type app struct {
	handler     http.Handler
	janitorJobs map[string]cleaner
	close       func()
}

// newApp monta cache, limiter, métricas e a cadeia de middlewares.
func newApp(ctx context.Context, cfg config, logger *slog.Logger) (*app, error) {
	a := &app{close: func() {}}

	extractor := clientip.Extractor{
		TrustForwarded: cfg.trustXFF,
		TrustedProxies: cfg.trustedProxies,
	}

	cache := rdns.NewCache(cfg.cacheTTL)
	var resolver rdns.Resolver = rdns.SystemResolver{}
	if len(cfg.rdnsServers) > 0 {
		resolver = rdns.NewPTRResolver(cfg.rdnsServers,
			rdns.WithQueryTimeout(cfg.rdnsTimeout),
			rdns.WithQueryRate(cfg.rdnsQPS, cfg.rdnsBurst),
		)
	}
	lookuper := rdns.NewLookuper(cache, resolver,
		rdns.WithTimeout(cfg.rdnsTimeout),
		rdns.WithMaxInFlight(int64(cfg.rdnsMaxInFlight)),
	)

	store := infra.NewStore(cfg.rateRequests, cfg.rateWindow)
	a.janitorJobs = map[string]cleaner{"dns_cache": cache, "rate_limiter": store}

	memStats := infra.NewMemoryStatsStore()
	stats := infra.MultiStatsStore{memStats}
	if cfg.rateStatsEnabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.rateStatsRedisAddr,
			Password: cfg.rateStatsRedisPassword,
			DB:       cfg.rateStatsRedisDB,
		})

		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		_, err := rdb.Ping(pingCtx).Result()
		cancel()
		if err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("redis stats ping: %w", err)
		}
		a.close = func() { _ = rdb.Close() }

		stats = append(stats, infra.NewRedisStatsStore(
			rdb,
			infra.WithStatsPrefix(cfg.rateStatsPrefix),
			infra.WithStatsTTL(cfg.rateStatsTTL),
			infra.WithStatsBucket(cfg.rateStatsBucket),
			infra.WithStatsTrackKeys(cfg.rateStatsTrackKeys),
		))
	}

	var pool *infra.ChanPool
	var slots *application.ConcurrencyService
	if cfg.concurrencyMax > 0 {
		pool = infra.NewChanPool(cfg.concurrencyMax)
		slots = application.NewConcurrencyService(pool, cfg.concurrencyTimeout)
	}

	metrics := observability.NewMetrics()
	if err := registerGauges(metrics, cache, store, memStats, pool, slots); err != nil {
		a.close()
		return nil, err
	}
	if err := metrics.Register(newDecisionCollector(memStats, api.Routes())); err != nil {
		a.close()
		return nil, err
	}

	handlers := api.New(api.Options{
		Lookuper:    lookuper,
		ClientIP:    extractor,
		Stats:       metrics,
		RateLimited: memStats.Denied,
		CacheSize:   cache.Size,
		Prometheus:  metrics.Handler(),
		Version: api.VersionInfo{
			Name:       "ip-api",
			Version:    version,
			Repository: repository,
		},
		Logger: logger,
	})
	mux := http.NewServeMux()
	handlers.Register(mux)

	// montado de dentro para fora: o último wrap é o primeiro a rodar.
	h := http.TimeoutHandler(mux, cfg.requestTimeout, "request timeout")
	h = metrics.Middleware(api.Routes()...)(h)
	h = ratelimit.ConcurrencyMiddleware(ratelimit.ConcurrencyOptions{
		Service:      slots,
		RejectStatus: http.StatusServiceUnavailable,
	})(h)
	if cfg.rateEnabled {
		h = ratelimit.Middleware(ratelimit.Options{
			Limiter:             store,
			Stats:               stats,
			KeyHeader:           cfg.rateKeyHeader,
			ClientIP:            extractor,
			RejectStatus:        http.StatusTooManyRequests,
			RetryAfter:          cfg.retryAfter,
			AddRateLimitHeaders: cfg.addHeaders,
			Logger:              logger,
			Routes:              api.Routes(),
		})(h)
	}
	h = accesslog.Middleware(accesslog.Options{Logger: logger, ClientIP: extractor})(h)
	h = security.Headers(h)

	a.handler = h
	return a, nil
}

func registerGauges(m *observability.Metrics, cache *rdns.Cache, store *infra.Store, stats *infra.MemoryStatsStore, pool *infra.ChanPool, slots *application.ConcurrencyService) error {
	if err := m.GaugeFunc("ipapi_dns_cache_entries", "Entries currently held by the reverse DNS cache.",
		func() float64 { return float64(cache.Size()) }); err != nil {
		return err
	}
	if err := m.GaugeFunc("ipapi_ratelimit_tracked_clients", "Client windows tracked by the rate limiter.",
		func() float64 { return float64(store.Len()) }); err != nil {
		return err
	}
	if err := m.CounterFunc("ipapi_ratelimit_rejected_total", "Requests rejected by the rate limiter.",
		func() float64 { return float64(stats.Denied()) }); err != nil {
		return err
	}
	if pool == nil {
		return nil
	}
	if err := m.GaugeFunc("ipapi_concurrency_in_flight", "Requests currently holding a concurrency slot.",
		func() float64 { return float64(pool.InFlight()) }); err != nil {
		return err
	}
	return m.CounterFunc("ipapi_concurrency_rejected_total", "Requests rejected for lack of a concurrency slot.",
		func() float64 { return float64(slots.Rejected()) })
}
