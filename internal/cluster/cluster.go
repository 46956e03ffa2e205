// Package cluster implements the Cluster abstraction from spec.md §6: "am I
// master?" plus a named replicated set of Configurations, used by
// ConfigurationUpdateManager to decide whether to run the loader on this
// node and to publish its result for slaves to observe (spec.md §4.8).
//
// Three bindings are provided, per SPEC_FULL.md §4.12: LocalCluster (the
// degenerate "hazelcast.enabled = false" case, every node is master),
// RedisCluster (a SETNX-based master lock plus a JSON-blob replicated set,
// grounded on the teacher's internal/infrastructure/lock distributed-lock
// implementation), and K8sCluster (Kubernetes Lease-based leader election
// via k8s.io/client-go/tools/leaderelection, with the replicated set backed
// by a ConfigMap the leader writes).
package cluster

import (
	"context"

	"github.com/MihaiBojin/pyplyn/internal/model"
)

// Cluster reports this node's role and exposes named replicated sets used to
// hand the master's computed Configuration set to slaves.
type Cluster interface {
	// IsMaster reports whether this node currently holds the master role.
	// With hazelcast.enabled = false every node reports true (spec.md §6).
	IsMaster() bool

	// ReplicatedSet returns the named replicated set of Configurations,
	// constructing it on first use.
	ReplicatedSet(name string) ReplicatedSet
}

// ReplicatedSet is a Cluster-visible slot holding the master's last
// published Configuration set (spec.md §6 Cluster.replicatedSet).
type ReplicatedSet interface {
	Put(ctx context.Context, configs []model.Configuration) error
	Get(ctx context.Context) ([]model.Configuration, error)
}
