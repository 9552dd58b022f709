package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	cfhttp "github.com/Strob0t/rentledger/internal/adapter/http"
	cfmcp "github.com/Strob0t/rentledger/internal/adapter/mcp"
	"github.com/Strob0t/rentledger/internal/adapter/memory"
	cfnats "github.com/Strob0t/rentledger/internal/adapter/nats"
	"github.com/Strob0t/rentledger/internal/adapter/natskv"
	cfotel "github.com/Strob0t/rentledger/internal/adapter/otel"
	"github.com/Strob0t/rentledger/internal/adapter/postgres"
	"github.com/Strob0t/rentledger/internal/adapter/ristretto"
	"github.com/Strob0t/rentledger/internal/adapter/tiered"
	"github.com/Strob0t/rentledger/internal/adapter/ws"
	"github.com/Strob0t/rentledger/internal/config"
	"github.com/Strob0t/rentledger/internal/domain/ledger"
	"github.com/Strob0t/rentledger/internal/middleware"
	"github.com/Strob0t/rentledger/internal/port/cache"
	"github.com/Strob0t/rentledger/internal/port/database"
	"github.com/Strob0t/rentledger/internal/port/messagequeue"
	"github.com/Strob0t/rentledger/internal/resilience"
	"github.com/Strob0t/rentledger/internal/service"
)

// idempotencyL1SizeMB sizes the in-process replay store used without NATS.
const idempotencyL1SizeMB = 16

func newServeCmd(flags func() config.CLIFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, flush, err := loadConfig(flags)
			if err != nil {
				return err
			}
			defer flush()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg)
		},
	}
}

func runServe(ctx context.Context, cfg *config.Config) error {
	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"storage", cfg.Storage.Driver,
		"nats", cfg.NATS.Enabled,
		"auth", cfg.Auth.Enabled,
		"month_mode", cfg.Ledger.MonthMode,
	)

	// --- Telemetry ---

	shutdownOTEL, err := cfotel.Init(ctx, cfg.OTEL, version)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTEL(sctx); err != nil {
			slog.Warn("otel shutdown", "error", err)
		}
	}()
	metrics, err := cfotel.NewMetrics()
	if err != nil {
		return fmt.Errorf("otel metrics: %w", err)
	}

	// --- Infrastructure ---

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	var (
		queue messagequeue.Queue = messagequeue.Discard{}
		js    jetstream.JetStream
	)
	if cfg.NATS.Enabled {
		q, err := cfnats.Connect(ctx, cfg.NATS.URL)
		if err != nil {
			return fmt.Errorf("nats: %w", err)
		}
		defer func() { _ = q.Close() }()
		queue, js = q, q.JetStream()
		slog.Info("nats connected", "url", cfg.NATS.URL)
	}

	l1, err := ristretto.New(cfg.Cache.L1MaxSizeMB)
	if err != nil {
		return fmt.Errorf("ledger cache: %w", err)
	}
	defer l1.Close()
	var ledgerCache cache.Cache = l1
	if js != nil {
		l2, err := natskv.Open(ctx, js, cfg.Cache.L2Bucket, cfg.Cache.L2TTL)
		if err != nil {
			return fmt.Errorf("ledger cache l2: %w", err)
		}
		ledgerCache = tiered.New(l1, l2, cfg.Cache.LedgerTTL)
	}

	breaker := resilience.NewBreaker("nats", cfg.Breaker.MaxFailures, cfg.Breaker.Timeout)
	breaker.OnStateChange(func(name string, from, to resilience.State) {
		slog.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		metrics.BreakerTransitions.Add(context.Background(), 1, metric.WithAttributes(
			attribute.String("breaker", name),
			attribute.String("to", to.String()),
		))
	})

	// --- Services ---

	mode, err := ledger.ParseMonthMode(cfg.Ledger.MonthMode)
	if err != nil {
		return fmt.Errorf("ledger: %w", err)
	}
	opts := ledger.Options{Mode: mode, StopAtLeaseEnd: cfg.Ledger.StopAtLeaseEnd}

	hub := ws.NewHub(cfg.Server.CORSOrigin)
	defer hub.Close()

	events := service.NewEventPublisher(queue, breaker)
	events.SetMetrics(metrics)
	ledgers := service.NewLedgerService(store, ledgerCache, events, opts, cfg.Cache.LedgerTTL)
	ledgers.SetMetrics(metrics)
	payments := service.NewPaymentService(store, ledgers, events, hub)
	payments.SetMetrics(metrics)
	tenants := service.NewTenantService(store, ledgers, events, hub)
	properties := service.NewPropertyService(store)
	analytics := service.NewAnalyticsService(store, ledgers)

	cancelInvalidations, err := ledgers.SubscribeInvalidations(ctx)
	if err != nil {
		return fmt.Errorf("ledger invalidation subscriber: %w", err)
	}
	defer cancelInvalidations()

	// --- HTTP ---

	handlers := &cfhttp.Handlers{
		Version:    version,
		Properties: properties,
		Tenants:    tenants,
		Payments:   payments,
		Analytics:  analytics,
		Checks:     []cfhttp.HealthCheck{{Name: "store", Check: store.Ping}},
	}
	if cfg.NATS.Enabled {
		handlers.Checks = append(handlers.Checks, cfhttp.HealthCheck{
			Name: "nats",
			Check: func(context.Context) error {
				if !queue.IsConnected() {
					return errors.New("not connected")
				}
				return nil
			},
		})
	}

	limiter := middleware.NewRateLimiter(cfg.Rate.RequestsPerSecond, cfg.Rate.Burst)
	limiter.StartCleanup(ctx, cfg.Rate.CleanupInterval, cfg.Rate.MaxIdleTime)

	routerCfg := cfhttp.RouterConfig{
		CORSOrigin:     cfg.Server.CORSOrigin,
		RequestTimeout: cfg.Server.RequestTimeout,
		Tracing:        cfotel.HTTPMiddleware(cfg.OTEL.ServiceName),
		RateLimit:      limiter.Handler,
		Auth:           middleware.NewAPIKeyAuth(cfg.Auth.APIKeyHashes).Handler(cfg.Auth.Enabled),
		WebSocket:      hub.HandleWS,
	}

	if cfg.Idempotency.Enabled {
		replay, closeReplay, err := openIdempotencyStore(ctx, cfg, js)
		if err != nil {
			return err
		}
		defer closeReplay()
		routerCfg.Idempotency = middleware.Idempotency(replay, cfg.Idempotency.TTL)
	}

	if cfg.MCP.Enabled {
		mcpSrv := cfmcp.NewServer(
			cfmcp.ServerConfig{Name: "rentledger", Version: version, Path: cfg.MCP.Path},
			cfmcp.ServerDeps{Tenants: tenants, Payments: payments, Analytics: analytics},
		)
		routerCfg.MCPPath = cfg.MCP.Path
		routerCfg.MCP = mcpSrv.Handler()
		slog.Info("mcp enabled", "path", cfg.MCP.Path)
	}

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           cfhttp.NewRouter(handlers, routerCfg),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", addr, "version", version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	if err := queue.Drain(); err != nil {
		slog.Warn("nats drain", "error", err)
	}
	return nil
}

// openStore returns the configured store and a function releasing it.
// Postgres schemas are migrated on start.
func openStore(ctx context.Context, cfg *config.Config) (database.Store, func(), error) {
	if cfg.Storage.Driver == "memory" {
		slog.Warn("using in-memory storage; data is lost on restart")
		return memory.NewStore(), func() {}, nil
	}

	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return nil, nil, fmt.Errorf("postgres: %w", err)
	}
	slog.Info("postgres connected")

	if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("migrations: %w", err)
	}
	slog.Info("migrations applied")
	return postgres.NewStore(pool), pool.Close, nil
}

// openIdempotencyStore shares replayed responses across replicas through a
// NATS KV bucket when NATS is available, and keeps them in process otherwise.
func openIdempotencyStore(ctx context.Context, cfg *config.Config, js jetstream.JetStream) (cache.Cache, func(), error) {
	if js != nil {
		kv, err := natskv.Open(ctx, js, cfg.Idempotency.Bucket, cfg.Idempotency.TTL)
		if err != nil {
			return nil, nil, fmt.Errorf("idempotency store: %w", err)
		}
		return kv, func() {}, nil
	}
	c, err := ristretto.New(idempotencyL1SizeMB)
	if err != nil {
		return nil, nil, fmt.Errorf("idempotency store: %w", err)
	}
	return c, c.Close, nil
}
