package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"aegis-hq/aegis/pkg/audit"
	"aegis-hq/aegis/pkg/cache"
	"aegis-hq/aegis/pkg/config"
	"aegis-hq/aegis/pkg/evaluator"
	"aegis-hq/aegis/pkg/governor"
	"aegis-hq/aegis/pkg/inference"
	"aegis-hq/aegis/pkg/policy"
	"aegis-hq/aegis/pkg/secrets"
	"aegis-hq/aegis/pkg/storage"
)

var runFlags struct {
	logLevel string
	dryRun   bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the Aegis governance engine",
	Long: `Start the Aegis governance engine with the specified configuration.

The engine loads the policy set, connects the primary model provider and
the evaluator pool, and serves the Prometheus metrics endpoint until it
receives a shutdown signal.

Examples:
  # Start with default config
  aegis run

  # Start with custom config
  aegis run --config /etc/aegis/config.yaml

  # Validate config without starting
  aegis run --dry-run`,
	RunE: runEngine,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting the engine")
}

func runEngine(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if runFlags.logLevel != "" {
		cfg.Telemetry.LogLevel = runFlags.logLevel
	}
	if verbose {
		cfg.Telemetry.LogLevel = "debug"
	}
	setupLogging(&cfg.Telemetry)

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	fmt.Printf("Aegis v%s\n", Version)
	fmt.Printf("Loading configuration from: %s\n", cfgFile)
	fmt.Println("✓ Configuration loaded")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Secrets: environment variables first, file mounts as fallback.
	providers := []secrets.Provider{secrets.NewEnvProvider(cfg.Secrets.EnvPrefix)}
	if cfg.Secrets.Dir != "" {
		fileProvider, err := secrets.NewFileProvider(cfg.Secrets.Dir, true)
		if err != nil {
			return fmt.Errorf("failed to initialize file secrets: %w", err)
		}
		defer fileProvider.Close()
		providers = append(providers, fileProvider)
	}
	secretsManager := secrets.NewManager(providers, secrets.CacheConfig{
		Enabled: true,
		TTL:     cfg.Secrets.CacheTTL,
	})

	// Evaluation persistence.
	records, err := buildStorage(&cfg.Storage)
	if err != nil {
		return err
	}
	defer records.Close()
	fmt.Printf("✓ Storage initialized (%s)\n", cfg.Storage.Backend)

	// Policies: directory source with hot reload, or an empty in-memory
	// store managed through upserts.
	var policyStore policy.Store
	if cfg.Policy.Dir != "" {
		source, err := policy.NewFileSource(cfg.Policy.Dir, true)
		if err != nil {
			return fmt.Errorf("failed to load policies: %w", err)
		}
		defer source.Close()
		policyStore = source
	} else {
		policyStore = policy.NewMemoryStore()
	}
	engine := policy.NewEngine(policyStore, records, policy.EngineConfig{
		WarningThreshold: cfg.Policy.WarningThreshold,
		ActionThreshold:  cfg.Policy.ActionThreshold,
	})
	fmt.Println("✓ Policy engine initialized")

	// Evaluator pool.
	pool := evaluator.NewPool(poolConfig(&cfg.Pool), secretsManager)
	fmt.Printf("✓ Evaluator pool initialized (%d evaluators)\n", len(cfg.Pool.Evaluators))

	// Primary model provider.
	var apiKey string
	if cfg.Inference.APIKeySecret != "" {
		apiKey, err = secretsManager.GetSecret(ctx, cfg.Inference.APIKeySecret)
		if err != nil {
			return fmt.Errorf("failed to resolve inference credential: %w", err)
		}
	}
	generator, err := inference.NewGenerator(inference.ClientConfig{
		Provider:    cfg.Inference.Provider,
		Model:       cfg.Inference.Model,
		BaseURL:     cfg.Inference.BaseURL,
		APIKey:      apiKey,
		Temperature: cfg.Inference.Temperature,
		MaxTokens:   cfg.Inference.MaxTokens,
		Timeout:     cfg.Inference.Timeout,
		MaxRetries:  cfg.Inference.MaxRetries,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize inference provider: %w", err)
	}
	defer generator.Close()
	fmt.Printf("✓ Inference provider initialized (%s/%s)\n", cfg.Inference.Provider, cfg.Inference.Model)

	// Response cache plus optional scheduled sweep.
	responseCache, err := buildCache(&cfg.Cache)
	if err != nil {
		return err
	}
	defer responseCache.Close()
	sweeper := cache.NewSweeper(responseCache, cfg.Cache.SweepSchedule)
	if err := sweeper.Start(ctx); err != nil {
		return fmt.Errorf("failed to start cache sweeper: %w", err)
	}
	defer sweeper.Stop()
	fmt.Printf("✓ Response cache initialized (%s)\n", cfg.Cache.Backend)

	recorder := audit.NewRecorder(0, audit.NewSlogSink())
	defer recorder.Close()

	metrics := governor.NewMetrics(prometheus.DefaultRegisterer)
	gov := governor.New(governor.Config{
		MaxRewriteAttempts: cfg.Governor.MaxRewriteAttempts,
		MinRewriteLength:   cfg.Governor.MinRewriteLength,
		CacheTTL:           cfg.Governor.CacheTTL,
		SeverityBands: governor.SeverityBands{
			Low:    cfg.Governor.SeverityBands.Low,
			Medium: cfg.Governor.SeverityBands.Medium,
			High:   cfg.Governor.SeverityBands.High,
		},
		MaxContextDocuments: cfg.Governor.MaxContextDocuments,
		MaxContextFragments: cfg.Governor.MaxContextFragments,
	}, engine, pool, generator, responseCache,
		governor.WithRecorder(recorder),
		governor.WithMetrics(metrics),
	)
	fmt.Println("✓ Governor pipeline ready")

	errChan := make(chan error, 1)
	var metricsServer *http.Server
	if cfg.Telemetry.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			fmt.Fprintln(w, "ok")
		})
		mux.HandleFunc("/v1/govern", governHandler(gov))
		metricsServer = &http.Server{Addr: cfg.Telemetry.MetricsAddress, Handler: mux}
		go func() {
			slog.Info("admin endpoint listening", "address", cfg.Telemetry.MetricsAddress)
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errChan <- fmt.Errorf("admin server error: %w", err)
			}
		}()
		fmt.Printf("✓ Metrics endpoint: http://%s/metrics\n", cfg.Telemetry.MetricsAddress)
		fmt.Printf("✓ Governance endpoint: http://%s/v1/govern\n", cfg.Telemetry.MetricsAddress)
	}

	fmt.Println("\nPress Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		fmt.Printf("\nReceived signal %s, shutting down gracefully...\n", sig)
		cancel()
		if metricsServer != nil {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				slog.Error("metrics server shutdown failed", "error", err)
			}
		}
		fmt.Println("✓ Engine stopped")
		return nil
	}
}

// governHandler is the minimal JSON surface over the pipeline. The
// pipeline always produces a result, so the handler only fails on a
// malformed request body.
func governHandler(gov *governor.Governor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req struct {
			Prompt         string            `json:"prompt"`
			Context        map[string]string `json:"context"`
			OrganizationID string            `json:"organization_id"`
			Actor          string            `json:"actor"`
			Thread         string            `json:"thread"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if req.Prompt == "" {
			http.Error(w, "prompt is required", http.StatusBadRequest)
			return
		}

		result := gov.GenerateSafeResponse(r.Context(), &governor.Request{
			Prompt:         req.Prompt,
			Context:        req.Context,
			OrganizationID: req.OrganizationID,
			Actor:          req.Actor,
			Thread:         req.Thread,
		})

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(result); err != nil {
			slog.Error("failed to encode governance result", "error", err)
		}
	}
}

func setupLogging(cfg *config.TelemetryConfig) {
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.LogFormat == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func buildStorage(cfg *config.StorageConfig) (storage.Store, error) {
	switch cfg.Backend {
	case "sqlite":
		store, err := storage.NewSQLiteStore(storage.DefaultSQLiteConfig(cfg.Path))
		if err != nil {
			return nil, fmt.Errorf("failed to open evaluation store: %w", err)
		}
		return store, nil
	default:
		return storage.NewMemoryStore(), nil
	}
}

func buildCache(cfg *config.CacheConfig) (cache.Cache, error) {
	switch cfg.Backend {
	case "sqlite":
		c, err := cache.NewSQLiteCache(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open response cache: %w", err)
		}
		return c, nil
	default:
		return cache.NewMemoryCache(), nil
	}
}

func poolConfig(cfg *config.PoolConfig) evaluator.PoolConfig {
	evaluators := make([]evaluator.Config, 0, len(cfg.Evaluators))
	for _, ev := range cfg.Evaluators {
		evaluators = append(evaluators, evaluator.Config{
			ID:             ev.ID,
			Name:           ev.Name,
			Type:           ev.Type,
			Model:          ev.Model,
			Endpoint:       ev.Endpoint,
			CredentialName: ev.CredentialName,
			Temperature:    ev.Temperature,
			MaxTokens:      ev.MaxTokens,
			Timeout:        ev.Timeout,
		})
	}
	return evaluator.PoolConfig{
		ID:         "default",
		Name:       "default",
		Evaluators: evaluators,
		Timeout:    cfg.Timeout,
		FailMode:   evaluator.FailMode(cfg.FailMode),
	}
}
