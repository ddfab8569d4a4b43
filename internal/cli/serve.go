package cli

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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/kubegov/manifestgate/internal/config"
	"github.com/kubegov/manifestgate/internal/history"
	"github.com/kubegov/manifestgate/internal/metrics"
	"github.com/kubegov/manifestgate/internal/policy"
	"github.com/kubegov/manifestgate/internal/store"
	"github.com/kubegov/manifestgate/internal/telemetry"
	"github.com/kubegov/manifestgate/internal/web"
)

const (
	shutdownTimeout   = 5 * time.Second
	readHeaderTimeout = 10 * time.Second
	readTimeout       = 30 * time.Second
	writeTimeout      = 60 * time.Second
	idleTimeout       = 120 * time.Second
	defaultConfigPath = "/etc/manifestgate/config.yaml"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run as a validating admission webhook with web UI and /metrics",
	Long: `Start manifestgate as a long-running admission webhook inside a
Kubernetes cluster.

Every AdmissionReview is evaluated against the active policy; denied
requests carry the violation codes and messages in the status. The
policy file is re-read on SIGHUP and on a periodic timer, so policy
changes take effect without a restart.

Endpoints:
  /validate          Validating admission webhook
  /                  Denied admissions web UI
  /metrics           Prometheus scrape endpoint
  /healthz           Liveness probe
  /api/v1/decisions  JSON snapshot of recent decisions`,
	Example: `  # Run with default config
  manifestgate serve

  # Run with custom config file
  manifestgate serve --config /etc/manifestgate/config.yaml

  # Override listen address and policy path
  manifestgate serve --listen :9443 --policy /etc/manifestgate/policy.yaml

  # Annotate instead of denying
  manifestgate serve --warn-only

  # Run with JSON logging for log aggregation
  manifestgate serve --log-format json --log-level debug`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("config", defaultConfigPath, "Path to config file")
	serveCmd.Flags().String("listen", "", "Listen address (overrides config)")
	serveCmd.Flags().String("policy", "", "Path to policy file (overrides config)")
	serveCmd.Flags().String("kubeconfig", "", "Path to kubeconfig")
	serveCmd.Flags().String("context", "", "Kubernetes context to use")
	serveCmd.Flags().String("history-db", "", "Path to SQLite history database (enables /api/v1/history and /api/v1/trend)")
	serveCmd.Flags().Bool("warn-only", false, "Admit everything, surface violations as API warnings")
	serveCmd.Flags().Bool("cluster-policies", false, "Merge GovernancePolicy CRs from the cluster into the file policy")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfgPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return err
	}

	cfg := config.Defaults()
	if cfgPath != "" {
		if _, statErr := os.Stat(cfgPath); statErr == nil {
			cfg, err = config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
		} else if cfgPath != defaultConfigPath {
			// Non-default path that doesn't exist is an error
			return fmt.Errorf("config file not found: %s", cfgPath)
		}
	}

	if listenFlag, _ := cmd.Flags().GetString("listen"); listenFlag != "" { //nolint:errcheck // flag registered above
		cfg.ListenAddr = listenFlag
	}
	if policyFlag, _ := cmd.Flags().GetString("policy"); policyFlag != "" { //nolint:errcheck // flag registered above
		cfg.PolicyPath = policyFlag
	}
	if historyDB, _ := cmd.Flags().GetString("history-db"); historyDB != "" { //nolint:errcheck // flag registered above
		cfg.HistoryDB = historyDB
	}
	if warnOnly, _ := cmd.Flags().GetBool("warn-only"); warnOnly { //nolint:errcheck // flag registered above
		cfg.WarnOnly = true
	}
	if clusterPolicies, _ := cmd.Flags().GetBool("cluster-policies"); clusterPolicies { //nolint:errcheck // flag registered above
		cfg.ClusterPolicies = true
	}

	// Open history store if configured
	var histStore *history.Store
	if cfg.HistoryDB != "" {
		var histErr error
		histStore, histErr = history.Open(cfg.HistoryDB)
		if histErr != nil {
			return fmt.Errorf("opening history database: %w", histErr)
		}
		defer histStore.Close() //nolint:errcheck // best-effort cleanup on shutdown
		slog.Info("history storage enabled", "path", cfg.HistoryDB)
	}

	// Cluster clients are only needed when merging GovernancePolicy CRs
	loadPolicy := func() (*policy.Config, error) {
		return policy.LoadFromFile(cfg.PolicyPath)
	}
	if cfg.ClusterPolicies {
		kubeconfig, _ := cmd.Flags().GetString("kubeconfig") //nolint:errcheck // flag registered above
		kubeCtx, _ := cmd.Flags().GetString("context")       //nolint:errcheck // flag registered above

		restCfg, cfgErr := buildRESTConfig(kubeconfig, kubeCtx)
		if cfgErr != nil {
			return fmt.Errorf("building kubeconfig: %w", cfgErr)
		}
		clientset, csErr := kubernetes.NewForConfig(restCfg)
		if csErr != nil {
			return fmt.Errorf("creating kubernetes client: %w", csErr)
		}
		dynClient, dynErr := dynamic.NewForConfig(restCfg)
		if dynErr != nil {
			return fmt.Errorf("creating dynamic client: %w", dynErr)
		}

		loadPolicy = func() (*policy.Config, error) {
			base, loadErr := policy.LoadFromFile(cfg.PolicyPath)
			if loadErr != nil {
				return nil, loadErr
			}
			clusterPolicies, crErr := policy.LoadClusterPolicies(context.Background(), clientset.Discovery(), dynClient)
			if crErr != nil {
				return nil, crErr
			}
			if len(clusterPolicies) > 0 {
				slog.Info("merging cluster policies", "count", len(clusterPolicies))
			}
			return policy.Merge(base, clusterPolicies)
		}
	}

	initial, err := loadPolicy()
	if err != nil {
		return fmt.Errorf("loading policy: %w", err)
	}
	engine := policy.NewEngine(initial)

	// Prometheus metrics
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)
	collector.ObserveReload(nil, time.Now())

	// Initialize tracing
	otelEndpoint, _ := cmd.Flags().GetString("otel-endpoint") //nolint:errcheck // flag registered above
	if otelEndpoint == "" {
		otelEndpoint = cfg.OTLPEndpoint
	}
	tracer, tracerShutdown, tracerErr := telemetry.InitTracer(context.Background(), otelEndpoint, version)
	if tracerErr != nil {
		slog.Warn("initializing tracer, continuing without tracing", "err", tracerErr)
		tracer, tracerShutdown, _ = telemetry.InitTracer(context.Background(), "", version)
	}
	defer tracerShutdown(context.Background()) //nolint:errcheck // best-effort flush

	handler := &web.Handler{
		Engine:    engine,
		Collector: collector,
		Tracer:    tracer,
		Log:       slog.Default(),
		WarnOnly:  cfg.WarnOnly,
		FailOpen:  cfg.FailOpen,
	}
	if histStore != nil {
		handler.OnResult = func(result store.Result) {
			snap := store.Snapshot{At: time.Now(), Results: []store.Result{result}}
			if saveErr := histStore.Save(snap); saveErr != nil {
				slog.Error("saving decision to history", "err", saveErr)
			}
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", handler.UIHandler())
	mux.HandleFunc("/validate", handler.ValidateHandler())
	mux.HandleFunc("/healthz", web.HealthzHandler())
	mux.HandleFunc("/api/v1/decisions", handler.DecisionsHandler())
	if histStore != nil {
		mux.HandleFunc("/api/v1/history", web.HistoryHandler(histStore))
		mux.HandleFunc("/api/v1/trend", web.TrendHandler(histStore))
	}
	mux.Handle(cfg.MetricsPath, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reload := func(trigger string) {
		next, reloadErr := loadPolicy()
		collector.ObserveReload(reloadErr, time.Now())
		if reloadErr != nil {
			slog.Error("policy reload failed, keeping previous policy",
				"trigger", trigger, "err", reloadErr)
			return
		}
		engine.Reload(next)
		slog.Info("policy reloaded", "trigger", trigger, "path", cfg.PolicyPath)
	}

	// SIGHUP reloads the policy immediately
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				reload("SIGHUP")
			}
		}
	}()

	// Periodic reload picks up mounted-secret style policy updates
	if cfg.ReloadEvery > 0 {
		go func() {
			ticker := time.NewTicker(cfg.ReloadEvery)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					reload("timer")
				}
			}
		}()
	}

	// Start HTTP server
	srvErr := make(chan error, 1)
	go func() {
		slog.Info("manifestgate serve listening", "version", version,
			"addr", cfg.ListenAddr, "tls", cfg.TLS.CertFile != "", "warnOnly", cfg.WarnOnly)
		var serveErr error
		if cfg.TLS.CertFile != "" {
			serveErr = srv.ListenAndServeTLS(cfg.TLS.CertFile, cfg.TLS.KeyFile)
		} else {
			serveErr = srv.ListenAndServe()
		}
		if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			srvErr <- fmt.Errorf("HTTP server error: %w", serveErr)
		}
	}()

	// Wait for shutdown signal or server error
	select {
	case <-ctx.Done():
	case err := <-srvErr:
		return err
	}
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("shutdown complete")
	return nil
}

// buildRESTConfig tries in-cluster config first, falls back to kubeconfig.
func buildRESTConfig(kubeconfig, kubeCtx string) (*rest.Config, error) {
	// Try in-cluster first when no explicit flags are given
	if kubeconfig == "" && kubeCtx == "" {
		cfg, err := rest.InClusterConfig()
		if err == nil {
			return cfg, nil
		}
	}

	// Fall back to kubeconfig (respects KUBECONFIG env var)
	loadingRules := clientcmd.NewDefaultClientConfigLoadingRules()
	if kubeconfig != "" {
		loadingRules.ExplicitPath = kubeconfig
	}
	return clientcmd.NewNonInteractiveDeferredLoadingClientConfig(
		loadingRules,
		&clientcmd.ConfigOverrides{CurrentContext: kubeCtx},
	).ClientConfig()
}
