// Package updatemanager implements the ConfigurationUpdateManager from
// spec.md §4.8: on a fixed tick, decide whether this node is responsible for
// loading Configurations (master, or no cluster at all), load them, publish
// the result for slaves to observe, diff against what is currently
// scheduled, and reconcile the Scheduler to match. Grounded on the teacher's
// RefreshManager (internal/infrastructure/publishing/refresh.go): a
// ticker-driven background loop with an immediate first tick, generalized
// here to additionally consult a Cluster for master/slave behavior.
package updatemanager

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/MihaiBojin/pyplyn/internal/cluster"
	"github.com/MihaiBojin/pyplyn/internal/model"
	"github.com/MihaiBojin/pyplyn/internal/scheduler"
	"github.com/MihaiBojin/pyplyn/internal/sysstatus"
)

const meterName = "updatemanager"

// replicatedSetName is the well-known ReplicatedSet name the master
// publishes the loaded Configuration set under (spec.md §4.8 step 3).
const replicatedSetName = "active"

// ConfigurationLoader reads the current declared set of Configurations from
// wherever they are stored (spec.md §4.3: YAML files, a Postgres table, or
// any future source). Implemented by internal/storage/yaml and
// internal/storage/postgres.
type ConfigurationLoader interface {
	Load(ctx context.Context) ([]model.Configuration, error)
}

// Manager runs the periodic reconcile loop described by spec.md §4.8.
type Manager struct {
	loader    ConfigurationLoader
	cluster   cluster.Cluster
	scheduler *scheduler.Scheduler
	interval  time.Duration
	status    *sysstatus.Status
	logger    *slog.Logger

	mu      sync.Mutex
	current model.ConfigurationSet
}

// Config controls Manager construction.
type Config struct {
	Loader    ConfigurationLoader
	Cluster   cluster.Cluster
	Scheduler *scheduler.Scheduler
	Interval  time.Duration
	Status    *sysstatus.Status
	Logger    *slog.Logger
}

// New constructs a Manager. Cluster may be nil, meaning no clustering is
// configured and this node always acts as master (spec.md §6,
// "hazelcast.enabled = false").
func New(cfg Config) *Manager {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 60 * time.Second
	}
	return &Manager{
		loader:    cfg.Loader,
		cluster:   cfg.Cluster,
		scheduler: cfg.Scheduler,
		interval:  cfg.Interval,
		status:    cfg.Status,
		logger:    cfg.Logger,
		current:   make(model.ConfigurationSet),
	}
}

// Run ticks immediately and then every Interval until ctx is done.
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Tick(ctx)
		}
	}
}

// Current returns the Configurations reconciled as of the last Tick,
// implementing internal/api's ConfigurationSource for the introspection
// endpoint.
func (m *Manager) Current() []model.Configuration {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]model.Configuration, 0, len(m.current))
	for _, c := range m.current {
		out = append(out, c)
	}
	return out
}

// Tick runs one reconcile cycle; exported so tests and a run-once CLI mode
// (spec.md §4.1, global.runOnce) can drive it without a ticker.
func (m *Manager) Tick(ctx context.Context) {
	stop := m.timer("tick")
	defer stop()

	if m.isMaster() {
		m.tickAsMaster(ctx)
		return
	}
	m.tickAsSlave(ctx)
}

func (m *Manager) isMaster() bool {
	return m.cluster == nil || m.cluster.IsMaster()
}

// tickAsMaster loads the declared Configuration set, publishes it for slaves
// to observe, and reconciles the Scheduler (spec.md §4.8 steps 2-5).
func (m *Manager) tickAsMaster(ctx context.Context) {
	configs, err := m.loader.Load(ctx)
	if err != nil {
		m.logger.Error("configuration load failed", "error", err)
		m.meter(sysstatus.Failure)
		return
	}
	m.meter(sysstatus.Success)

	if m.cluster != nil {
		if err := m.cluster.ReplicatedSet(replicatedSetName).Put(ctx, configs); err != nil {
			m.logger.Warn("publishing replicated configuration set failed", "error", err)
		}
	}

	m.reconcile(configs)
}

// tickAsSlave observes the master's last published set instead of loading
// (spec.md §4.8: "a slave node never calls ConfigurationLoader.load()
// itself").
func (m *Manager) tickAsSlave(ctx context.Context) {
	configs, err := m.cluster.ReplicatedSet(replicatedSetName).Get(ctx)
	if err != nil {
		m.logger.Warn("reading replicated configuration set failed", "error", err)
		m.meter(sysstatus.Failure)
		return
	}
	m.reconcile(configs)
}

// reconcile diffs configs against the currently-scheduled set and adjusts
// the Scheduler to match: removed Configurations are cancelled (best
// effort), added ones are scheduled. A Configuration identical by structural
// hash to one already scheduled is never rescheduled (spec.md §4.8 step 5,
// §3 structural equality).
func (m *Manager) reconcile(configs []model.Configuration) {
	next := model.NewConfigurationSet(configs)

	m.mu.Lock()
	added, removed := m.current.Diff(next)
	m.current = next
	m.mu.Unlock()

	for _, c := range removed {
		m.scheduler.Remove(c)
	}
	for _, c := range added {
		m.scheduler.Add(c)
	}

	if len(added) > 0 || len(removed) > 0 {
		m.logger.Info("reconciled configuration set", "added", len(added), "removed", len(removed), "total", len(next))
	}
}

func (m *Manager) meter(kind sysstatus.Kind) {
	if m.status == nil {
		return
	}
	m.status.Meter(meterName+".load", kind)
}

func (m *Manager) timer(op string) func() time.Duration {
	if m.status == nil {
		return func() time.Duration { return 0 }
	}
	return m.status.Timer(meterName, op)
}
