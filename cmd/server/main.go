// Command server is the process entry point: it loads the configuration
// document and the architecture catalog, wires every collaborator the
// HTTP surface needs, and serves POST /api, GET /data, and GET /health
// until an interrupt signal arrives.
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

	"github.com/migrationcopilot/architecture-agent/core"
	"github.com/migrationcopilot/architecture-agent/internal/analyticalstore"
	"github.com/migrationcopilot/architecture-agent/internal/catalog"
	"github.com/migrationcopilot/architecture-agent/internal/llmtransport"
	"github.com/migrationcopilot/architecture-agent/internal/personas"
	"github.com/migrationcopilot/architecture-agent/internal/scoring"
	"github.com/migrationcopilot/architecture-agent/internal/telemetry"
	"github.com/migrationcopilot/architecture-agent/internal/templates"
	"github.com/migrationcopilot/architecture-agent/internal/threadstate"
	"github.com/migrationcopilot/architecture-agent/internal/toolsurface"
	"github.com/migrationcopilot/architecture-agent/internal/transport"
	"github.com/migrationcopilot/architecture-agent/internal/usage"
)

var (
	configPath  string
	catalogPath string
)

func main() {
	root := &cobra.Command{
		Use:   "server",
		Short: "Architecture Copilot runtime: chat orchestrator + recommendation engine",
		Long: `server loads a TOML configuration document and an architecture
catalog, wires the thread state registry, usage aggregator, tool
surface and scoring engine, and serves the HTTP transport surface
(POST /api, GET /data, GET /health).`,
		RunE: runServe,
	}
	root.Flags().StringVar(&configPath, "config", "config.toml", "path to the TOML configuration document")
	root.Flags().StringVar(&catalogPath, "catalog", "catalog.json", "path to the architecture catalog JSON file")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := core.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	core.SetLogLevel(core.ParseLogLevel(cfg.Logging.Level))
	if cfg.Logging.Format == "json" {
		core.SetJSONLogging()
	}
	log := core.Logger()

	cat, err := catalog.Load(catalogPath)
	if err != nil {
		var invalid *core.InvalidCatalog
		if errors.As(err, &invalid) {
			return fmt.Errorf("fatal: %w", err)
		}
		return err
	}
	log.Info().Str("version", cat.Version).Int("entries", len(cat.Architectures)).Msg("catalog loaded")

	engine := scoring.NewEngine(cat)

	tmplCatalog, err := templates.Load()
	if err != nil {
		return fmt.Errorf("load templates: %w", err)
	}

	storeFactory, closeStore, err := buildStoreFactory(cmd.Context(), cfg.Postgres)
	if err != nil {
		return fmt.Errorf("build analytical store: %w", err)
	}
	if closeStore != nil {
		defer closeStore()
	}

	registry := threadstate.NewRegistry(storeFactory)
	registry.DefaultMigrationTarget = migrationTargetForCloud(cfg.Agents.Cloud)
	registry.DefaultLLMProvider = cfg.Agents.Provider
	tools := toolsurface.NewRegistry(engine)

	sink, err := telemetry.OpenUsageSink(cfg.Telemetry.UsageLogPath)
	if err != nil {
		return fmt.Errorf("open usage sink: %w", err)
	}
	defer sink.Close()

	limits := usage.FromConfig(cfg.Quota)
	aggregator := usage.NewAggregator(limits)
	if records, err := telemetry.ReplayUsageLog(cfg.Telemetry.UsageLogPath); err != nil {
		log.Warn().Err(err).Msg("failed to replay usage log at startup")
	} else if err := aggregator.Replay(records); err != nil {
		log.Warn().Err(err).Msg("failed to apply replayed usage records")
	}
	stopSweep := startUsageSweep(aggregator)
	defer stopSweep()

	provider, lightProvider := buildProviders(cfg.Agents)

	defaultPersona := personas.Core
	if cfg.Agents.ForcedPersona != "" {
		if id := personas.ID(cfg.Agents.ForcedPersona); personas.Valid(id) {
			defaultPersona = id
		}
	}

	srv := transport.NewServer(&transport.Server{
		Registry:       registry,
		Provider:       provider,
		LightProvider:  lightProvider,
		Templates:      tmplCatalog,
		Tools:          tools,
		Usage:          aggregator,
		UsageEnforced:  cfg.Quota.Enforce,
		Sink:           sink,
		ProviderTag:    cfg.Agents.Provider,
		Model:          cfg.Agents.Model,
		AutoDelegate:   cfg.Agents.AutoDelegate,
		DefaultPersona: defaultPersona,
	})

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           srv.ServeMux(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("server listening")
		serveErr <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}

	for _, threadID := range registry.IterThreadIDs() {
		registry.Cleanup(threadID)
	}
	return nil
}

// buildStoreFactory picks the Postgres-backed AnalyticalStore factory
// when configured, else falls back to the in-memory implementation.
func buildStoreFactory(ctx context.Context, cfg core.PostgresConfig) (analyticalstore.Factory, func(), error) {
	if !cfg.Enabled || cfg.DSN == "" {
		return analyticalstore.NewInMemoryFactory(), nil, nil
	}
	factory, err := analyticalstore.NewPostgresFactory(ctx, cfg.DSN, cfg.MaxConns)
	if err != nil {
		return nil, nil, err
	}
	return factory, factory.Close, nil
}

// buildProviders wires the main-tier and light-tier LLM transport.
// Cloud endpoint discovery and token exchange live outside this
// service; without an endpoint configured it falls back to the
// deterministic MockProvider so everything still runs end to end for
// local development.
func buildProviders(cfg core.AgentsConfig) (llmtransport.Provider, llmtransport.Provider) {
	endpoint := os.Getenv("LLM_ENDPOINT")
	token := os.Getenv("LLM_TOKEN")
	if endpoint == "" {
		mock := llmtransport.NewMockProvider()
		return mock, mock
	}
	mainProvider := llmtransport.NewHTTPProvider(endpoint, token)

	lightEndpoint := os.Getenv("LLM_LIGHT_ENDPOINT")
	if lightEndpoint == "" {
		return mainProvider, mainProvider
	}
	return mainProvider, llmtransport.NewHTTPProvider(lightEndpoint, token)
}

// migrationTargetForCloud renders the prompt-facing name of the target
// cloud configured under [agents].
func migrationTargetForCloud(cloud string) string {
	switch cloud {
	case "", "azure":
		return "Microsoft Azure"
	default:
		return cloud
	}
}

// startUsageSweep runs the at-most-hourly inactivity sweep, stopping
// when the returned function is called.
func startUsageSweep(aggregator *usage.Aggregator) func() {
	ticker := time.NewTicker(time.Hour)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ticker.C:
				evicted := aggregator.Sweep(24 * time.Hour)
				if evicted > 0 {
					core.Logger().Debug().Int("evicted", evicted).Msg("usage aggregator sweep")
				}
			case <-done:
				return
			}
		}
	}()
	return func() {
		ticker.Stop()
		close(done)
	}
}
