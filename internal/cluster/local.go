package cluster

import (
	"context"
	"sync"

	"github.com/MihaiBojin/pyplyn/internal/model"
)

// LocalCluster is the degenerate "hazelcast.enabled = false" binding from
// spec.md §6: every node is master, and the replicated set is just a
// process-local map guarded by a mutex. Used for local/dev runs and as the
// default for single-node deployments.
type LocalCluster struct {
	mu   sync.RWMutex
	sets map[string][]model.Configuration
}

var _ Cluster = (*LocalCluster)(nil)

// New constructs a LocalCluster with no published sets.
func New() *LocalCluster {
	return &LocalCluster{sets: make(map[string][]model.Configuration)}
}

// IsMaster always returns true: in the degenerate binding every node is
// master (spec.md §6).
func (l *LocalCluster) IsMaster() bool { return true }

// ReplicatedSet returns the named in-process set, creating it on first use.
func (l *LocalCluster) ReplicatedSet(name string) ReplicatedSet {
	return &localSet{cluster: l, name: name}
}

type localSet struct {
	cluster *LocalCluster
	name    string
}

func (s *localSet) Put(_ context.Context, configs []model.Configuration) error {
	cp := make([]model.Configuration, len(configs))
	copy(cp, configs)

	s.cluster.mu.Lock()
	s.cluster.sets[s.name] = cp
	s.cluster.mu.Unlock()
	return nil
}

func (s *localSet) Get(_ context.Context) ([]model.Configuration, error) {
	s.cluster.mu.RLock()
	defer s.cluster.mu.RUnlock()

	stored := s.cluster.sets[s.name]
	cp := make([]model.Configuration, len(stored))
	copy(cp, stored)
	return cp, nil
}
