package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"log/slog"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/voltaic-labs/chainswarm/internal/adapter/anthropic"
	"github.com/voltaic-labs/chainswarm/internal/adapter/chromem"
	"github.com/voltaic-labs/chainswarm/internal/adapter/ethereum"
	cshttp "github.com/voltaic-labs/chainswarm/internal/adapter/http"
	csnats "github.com/voltaic-labs/chainswarm/internal/adapter/nats"
	"github.com/voltaic-labs/chainswarm/internal/adapter/openai"
	csotel "github.com/voltaic-labs/chainswarm/internal/adapter/otel"
	"github.com/voltaic-labs/chainswarm/internal/adapter/postgres"
	"github.com/voltaic-labs/chainswarm/internal/adapter/riskgate"
	"github.com/voltaic-labs/chainswarm/internal/adapter/ristretto"
	"github.com/voltaic-labs/chainswarm/internal/adapter/staticdecider"
	"github.com/voltaic-labs/chainswarm/internal/adapter/ws"
	"github.com/voltaic-labs/chainswarm/internal/config"
	"github.com/voltaic-labs/chainswarm/internal/logger"
	"github.com/voltaic-labs/chainswarm/internal/port/chain"
	"github.com/voltaic-labs/chainswarm/internal/port/decision"
	"github.com/voltaic-labs/chainswarm/internal/service"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "admin" {
		if err := runAdmin(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	slog.SetDefault(logger.New(cfg.Logging))
	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"decision_provider", cfg.Decision.Provider,
		"gate_threshold", cfg.Risk.GateThreshold,
	)

	ctx := context.Background()

	// --- Telemetry ---
	shutdownOtel, err := csotel.Init(ctx, cfg.Telemetry, cfg.Logging.Service)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownOtel(shutdownCtx)
	}()

	var metrics *csotel.Metrics
	if cfg.Telemetry.Enabled {
		metrics, err = csotel.NewMetrics()
		if err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
	}

	// --- Infrastructure ---

	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	slog.Info("migrations applied")

	queue, err := csnats.Connect(ctx, cfg.NATS.URL)
	if err != nil {
		return fmt.Errorf("nats: %w", err)
	}
	defer func() { _ = queue.Close() }()

	memCache, err := ristretto.New(cfg.Cache.MaxBytes)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer memCache.Close()

	// Chain access is optional: without an RPC endpoint the service runs
	// with balance checks and snapshot routes disabled.
	var chainClient chain.Client
	if cfg.Chain.RPCURL != "" {
		eth, err := ethereum.Dial(ctx, cfg.Chain.RPCURL, memCache, cfg.Chain.SnapshotTTL)
		if err != nil {
			slog.Warn("chain endpoint unavailable, continuing without chain access", "error", err)
		} else {
			chainClient = eth
			defer eth.Close()
		}
	}

	index, err := chromem.New(cfg.Knowledge)
	if err != nil {
		return fmt.Errorf("knowledge index: %w", err)
	}
	knowledge := service.NewKnowledge(index, cfg.Knowledge.TopK)

	validator, err := riskgate.New(cfg.Risk, memCache, chainClient)
	if err != nil {
		return fmt.Errorf("risk gate: %w", err)
	}

	decider, err := newDecider(cfg.Decision)
	if err != nil {
		return err
	}

	// --- Services ---

	hub := ws.NewHub()
	store := postgres.NewStore(pool)

	sw := service.NewSwarm(cfg.Swarm.MaxAgents)
	sw.SetBroadcaster(hub)
	sw.SetQueue(queue)

	factory := service.NewFactory(service.FactoryConfig{
		Decider:   decider,
		Validator: validator,
	})

	executor := service.NewExecutor(sw, store, queue, knowledge, metrics, cfg.Risk.GateThreshold)
	if err := restoreAgents(ctx, store, factory, executor); err != nil {
		return fmt.Errorf("restore agents: %w", err)
	}
	if err := executor.Start(ctx); err != nil {
		return fmt.Errorf("executor: %w", err)
	}
	defer executor.Stop()

	// --- HTTP ---

	handlers := &cshttp.Handlers{
		Swarm:     sw,
		Executor:  executor,
		Factory:   factory,
		Store:     store,
		Chain:     chainClient,
		Validator: validator,
		Knowledge: knowledge,
		Hub:       hub,
		Metrics:   metrics,
	}

	r := chi.NewRouter()
	r.Use(cshttp.CORS(cfg.Server.CORSOrigin))
	r.Use(cshttp.RequestID)
	r.Use(cshttp.Logger)
	r.Use(cshttp.SecurityHeaders)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))
	if cfg.Telemetry.Enabled {
		r.Use(csotel.HTTPMiddleware(cfg.Logging.Service))
	}

	cshttp.MountRoutes(r, handlers)

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
		}
	}()

	<-done
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

// newDecider selects the decision backend by provider name.
func newDecider(cfg config.Decision) (decision.Decider, error) {
	switch cfg.Provider {
	case "openai":
		return openai.New(cfg), nil
	case "anthropic":
		return anthropic.New(cfg), nil
	case "static":
		return staticdecider.New(), nil
	default:
		return nil, fmt.Errorf("unknown decision provider %q", cfg.Provider)
	}
}

// restoreAgents rebuilds persisted agents and re-registers them in the swarm.
func restoreAgents(ctx context.Context, store *postgres.Store, factory *service.Factory, executor *service.Executor) error {
	configs, err := store.ListAgents(ctx)
	if err != nil {
		return err
	}
	for _, cfg := range configs {
		a, err := factory.Create(cfg.Type, service.CreateConfig{
			ID:             cfg.ID,
			Name:           cfg.Name,
			Description:    cfg.Description,
			Objectives:     cfg.Objectives,
			PromptPreamble: cfg.PromptPreamble,
			Metadata:       cfg.Metadata,
		})
		if err != nil {
			slog.Warn("skipping persisted agent", "agent_id", cfg.ID, "error", err)
			continue
		}
		if err := executor.AddAgent(ctx, a); err != nil {
			return err
		}
	}
	if len(configs) > 0 {
		slog.Info("agents restored", "count", len(configs))
	}
	return nil
}
