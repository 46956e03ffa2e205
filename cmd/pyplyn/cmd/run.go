package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"

	"github.com/MihaiBojin/pyplyn/internal/api"
	"github.com/MihaiBojin/pyplyn/internal/appconnectors"
	"github.com/MihaiBojin/pyplyn/internal/cluster"
	"github.com/MihaiBojin/pyplyn/internal/clock"
	"github.com/MihaiBojin/pyplyn/internal/config"
	"github.com/MihaiBojin/pyplyn/internal/connector"
	"github.com/MihaiBojin/pyplyn/internal/etl"
	"github.com/MihaiBojin/pyplyn/internal/extract"
	"github.com/MihaiBojin/pyplyn/internal/load"
	"github.com/MihaiBojin/pyplyn/internal/model"
	"github.com/MihaiBojin/pyplyn/internal/remote"
	"github.com/MihaiBojin/pyplyn/internal/scheduler"
	"github.com/MihaiBojin/pyplyn/internal/storage/postgres"
	"github.com/MihaiBojin/pyplyn/internal/storage/yaml"
	"github.com/MihaiBojin/pyplyn/internal/sysstatus"
	"github.com/MihaiBojin/pyplyn/internal/updatemanager"
	"github.com/MihaiBojin/pyplyn/pkg/logger"
)

// run wires every component described by SPEC_FULL.md into a running
// process and blocks until ctx is cancelled (or, with global.run_once, until
// one reconcile pass has executed every Configuration). Grounded on the
// teacher's cmd/server/main.go: build dependencies top-down, start
// goroutines, wait on a signal channel, shut down in reverse order.
func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log := logger.NewLogger(logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		Filename:   cfg.Log.Filename,
		MaxSize:    cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAgeDays,
		Compress:   cfg.Log.Compress,
	})
	slog.SetDefault(log)

	registry := prometheus.NewRegistry()
	status := sysstatus.New("pyplyn", registry)

	registryOfConnectors, err := connector.Load(cfg.Global.ConnectorsPath)
	if err != nil {
		return fmt.Errorf("loading connectors: %w", err)
	}

	authenticatorFor := func(serviceClass string) remote.Authenticator {
		return &remote.BasicAuthenticator{
			ReadPassword: func(c model.Connector) ([]byte, error) {
				return connector.ReadPasswordBytes(cfg.Global.ConnectorsPath, c.ID)
			},
		}
	}

	appConns, err := appconnectors.New(registryOfConnectors, authenticatorFor, appconnectors.Config{
		SweepContext:  ctx,
		RateLimit:     cfg.AppConnectors.RateLimitPerSecond,
		SweepInterval: time.Duration(cfg.AppConnectors.SweepIntervalMillis) * time.Millisecond,
		Logger:        log,
	})
	if err != nil {
		return fmt.Errorf("constructing app connectors: %w", err)
	}

	shutdown := clock.NewShutdownSignal()

	engine := &etl.Engine{
		Extractors: []etl.Extractor{
			&extract.Dispatcher{
				RefocusProcessor: &extract.RefocusProcessor{
					AppConnectors: appConns,
					Status:        status,
					Shutdown:      shutdown,
					Logger:        log,
				},
				Logger: log,
			},
		},
		Loader: &load.Dispatcher{
			AppConnectors: appConns,
			Status:        status,
			Logger:        log,
		},
		Status: status,
		Logger: log,
	}

	sched := scheduler.New(engine.Run, scheduler.Config{
		PoolSize: 0,
		Shutdown: shutdown,
		Status:   status,
		Logger:   log,
	})

	clusterBinding, stopCluster, err := buildCluster(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("constructing cluster binding: %w", err)
	}
	defer stopCluster()

	configLoader, closePostgres, err := buildConfigurationLoader(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("constructing configuration loader: %w", err)
	}
	if closePostgres != nil {
		defer closePostgres()
	}

	updateManager := updatemanager.New(updatemanager.Config{
		Loader:    configLoader,
		Cluster:   clusterBinding,
		Scheduler: sched,
		Interval:  time.Duration(cfg.Global.UpdateConfigurationIntervalMillis) * time.Millisecond,
		Status:    status,
		Logger:    log,
	})

	if cfg.Global.RunOnce {
		updateManager.Tick(ctx)
		sched.Drain(30 * time.Second)
		return nil
	}

	httpServer := api.New(api.Config{
		ListenAddr: cfg.Global.HTTPListenAddr,
		Registry:   registry,
		Scheduler:  sched,
		Configs:    updateManager,
		Logger:     log,
	})

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go updateManager.Run(runCtx)

	serveErrs := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil {
			serveErrs <- err
			return
		}
		serveErrs <- nil
	}()

	select {
	case <-runCtx.Done():
		log.Info("shutdown signal received, draining")
	case err := <-serveErrs:
		if err != nil {
			log.Error("operational HTTP server failed", "error", err)
		}
	}

	shutdown.Drain()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("operational HTTP server shutdown failed", "error", err)
	}

	sched.Drain(30 * time.Second)
	return nil
}

// buildCluster selects the Cluster binding per cfg.Hazelcast (SPEC_FULL.md
// §4.12): disabled means every node is master (LocalCluster); otherwise
// Backend picks Redis-based or Kubernetes-Lease-based master election. The
// returned stop func cancels any background election goroutine; it is
// always safe to call, even for LocalCluster (a no-op).
func buildCluster(ctx context.Context, cfg *config.AppConfig, log *slog.Logger) (cluster.Cluster, func(), error) {
	noop := func() {}

	if !cfg.Hazelcast.Enabled {
		return cluster.New(), noop, nil
	}

	switch cfg.Hazelcast.Backend {
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.Hazelcast.Config})
		rc := cluster.NewRedisCluster(client, "pyplyn", 0, log)
		clusterCtx, cancel := context.WithCancel(ctx)
		go rc.Run(clusterCtx)
		return rc, func() {
			cancel()
			_ = client.Close()
		}, nil

	case "k8s":
		restCfg, err := rest.InClusterConfig()
		if err != nil {
			return nil, noop, fmt.Errorf("loading in-cluster kubernetes config: %w", err)
		}
		clientset, err := kubernetes.NewForConfig(restCfg)
		if err != nil {
			return nil, noop, fmt.Errorf("constructing kubernetes client: %w", err)
		}

		kc := cluster.NewK8sCluster(clientset, cluster.K8sClusterConfig{
			Namespace: namespaceFromConfig(cfg.Hazelcast.Config),
			LeaseName: "pyplyn-master",
			Identity:  generateIdentity(),
			Logger:    log,
		})
		clusterCtx, cancel := context.WithCancel(ctx)
		go func() {
			if err := kc.Run(clusterCtx); err != nil && clusterCtx.Err() == nil {
				log.Error("kubernetes leader election exited unexpectedly", "error", err)
			}
		}()
		return kc, cancel, nil

	default:
		return nil, noop, fmt.Errorf("%w: unrecognized hazelcast.backend %q", model.ErrConfig, cfg.Hazelcast.Backend)
	}
}

// namespaceFromConfig treats hazelcast.config as the target namespace for
// the k8s backend; empty means "default".
func namespaceFromConfig(raw string) string {
	if raw == "" {
		return "default"
	}
	return raw
}

func generateIdentity() string {
	return "pyplyn-" + uuid.New().String()
}

// buildConfigurationLoader selects the ConfigurationLoader per
// cfg.Global.ConfigSourceKind (SPEC_FULL.md §4.11). The returned close func
// is non-nil only for the Postgres binding, releasing the pool on shutdown.
func buildConfigurationLoader(ctx context.Context, cfg *config.AppConfig, log *slog.Logger) (updatemanager.ConfigurationLoader, func(), error) {
	switch cfg.Global.ConfigSourceKind {
	case config.SourcePostgres:
		pool, err := postgres.Connect(ctx, postgres.Config{
			DSN:             cfg.Postgres.DSN,
			MaxConnections:  cfg.Postgres.MaxConnections,
			MinConnections:  cfg.Postgres.MinConnections,
			MaxConnLifetime: cfg.Postgres.MaxConnLifetime,
			ConnectTimeout:  cfg.Postgres.ConnectTimeout,
			Logger:          log,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to postgres: %w", err)
		}
		return postgres.NewConfigurationLoader(pool), pool.Close, nil

	default:
		return yaml.New(cfg.Global.ConfigurationsPath), nil, nil
	}
}
