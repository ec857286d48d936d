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

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"a2a-support-desk/internal/a2a"
	"a2a-support-desk/internal/agent"
	"a2a-support-desk/internal/api"
	"a2a-support-desk/internal/config"
	"a2a-support-desk/internal/llm"
	"a2a-support-desk/internal/logging"
	"a2a-support-desk/internal/metrics"
	"a2a-support-desk/internal/specialist"
	"a2a-support-desk/internal/storage"
	"a2a-support-desk/internal/task"
	"a2a-support-desk/internal/worker"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve an agent over HTTP",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := config.LoadEnvFiles(); err != nil {
		return err
	}
	cfg, err := config.Load(cfgFile, config.WithRole(role), config.WithPort(port))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var m *metrics.Collector
	if cfg.Metrics.On() {
		m = metrics.NewCollector(cfg.Metrics.Namespace, logger)
	}
	sup := worker.New(context.Background(), logger, m)

	backend, err := storage.Open(ctx, cfg.Storage, logger)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	storeOpts := []task.Option{task.WithLogger(logger)}
	registryOpts := []a2a.RegistryOption{
		a2a.WithRegistryLogger(logger),
		a2a.WithHTTPClient(&http.Client{Timeout: cfg.Client.Timeout}),
	}
	if backend != nil {
		defer backend.Close()
		storeOpts = append(storeOpts, task.WithPersister(backend))
		registryOpts = append(registryOpts, a2a.WithCardStore(backend))
	}

	store := task.NewStore(storeOpts...)
	if n, err := store.Restore(ctx); err != nil {
		logger.Warn("failed to restore tasks", zap.Error(err))
	} else if n > 0 {
		logger.Info("tasks restored", zap.Int("count", n))
	}
	registry := a2a.NewRegistry(registryOpts...)
	if n, err := registry.Warm(ctx); err != nil {
		logger.Warn("failed to load agent cards", zap.Error(err))
	} else if n > 0 {
		logger.Info("agent cards loaded", zap.Int("count", n))
	}

	card, handler, startup, err := buildRole(cfg, store, registry, sup, logger, m)
	if err != nil {
		return err
	}

	srv := a2a.NewServer(card, store, handler, sup, a2a.WithLogger(logger), a2a.WithMetrics(m))
	server := api.New(cfg, srv, registry,
		api.WithLogger(logger),
		api.WithMetrics(m),
		api.WithSupervisor(sup),
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()
	logger.Info("agent listening",
		zap.String("role", cfg.Role),
		zap.String("agent_id", card.ID),
		zap.String("address", cfg.Addr()),
		zap.String("storage", cfg.Storage.Driver),
		zap.String("version", version),
	)

	if startup != nil {
		sup.Go(ctx, "startup_discovery", func(ctx context.Context) error {
			startup(ctx)
			return nil
		})
	}

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("error during server shutdown", zap.Error(err))
	}
	if err := sup.Shutdown(shutdownCtx); err != nil {
		logger.Warn("background jobs did not finish", zap.Error(err))
	}
	return nil
}

// buildRole returns the card and handler for the configured role. The
// support role also returns a startup function that discovers the
// specialists.
func buildRole(cfg *config.Config, store *task.Store, registry *a2a.Registry, sup *worker.Supervisor, logger *zap.Logger, m *metrics.Collector) (a2a.AgentCard, a2a.Handler, func(context.Context), error) {
	if cfg.Role != config.RoleSupport {
		responder, ok := specialist.ByRole(cfg.Role)
		if !ok {
			return a2a.AgentCard{}, nil, nil, fmt.Errorf("no specialist for role %q", cfg.Role)
		}
		return responder.Card(cfg.Agent.BaseURL), specialist.NewHandler(store, responder, logger), nil, nil
	}

	model, err := newModel(cfg.LLM, logger)
	if err != nil {
		return a2a.AgentCard{}, nil, nil, err
	}

	client := a2a.NewClient(registry, cfg.Client.Timeout, logger)
	delegator := agent.NewDelegator(client, store, cfg.Delegation.Agents,
		agent.WithPolling(cfg.Delegation.MaxAttempts, cfg.Delegation.PollInterval),
		agent.WithSupervisor(sup),
		agent.WithDelegatorLogger(logger),
		agent.WithDelegatorMetrics(m),
	)
	support := agent.NewSupportAgent(store, model, nil, delegator, logger)
	startup := func(ctx context.Context) { support.Startup(ctx) }
	return agent.Card(cfg.Agent), support, startup, nil
}

// newModel returns the configured LLM, or the offline keyword model when
// none is set.
func newModel(cfg config.LLMConfig, logger *zap.Logger) (llm.Model, error) {
	if cfg.Model == "" {
		logger.Info("no LLM configured, using keyword classification")
		return llm.Offline{}, nil
	}
	model, err := llm.NewClient(cfg.Model, cfg.APIKey, logger)
	if err != nil {
		return nil, fmt.Errorf("creating LLM client: %w", err)
	}
	return model, nil
}
