package cluster

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	k8sfake "k8s.io/client-go/kubernetes/fake"

	"github.com/MihaiBojin/pyplyn/internal/model"
)

// TestK8sClusterIsCluster is a compile-time conformance check: K8sCluster
// satisfies Cluster the same as LocalCluster and RedisCluster, so
// ConfigurationUpdateManager can be constructed with any of the three
// (spec.md §8; driving real Lease objects needs a live API server, so
// leader election itself isn't exercised here).
func TestK8sClusterIsCluster(t *testing.T) {
	var _ Cluster = (*K8sCluster)(nil)
}

func TestK8sClusterReplicatedSetRoundTrip(t *testing.T) {
	clientset := k8sfake.NewSimpleClientset()
	k := NewK8sCluster(clientset, K8sClusterConfig{Namespace: "pyplyn", LeaseName: "pyplyn-leader"})

	ctx := context.Background()
	set := k.ReplicatedSet("active")

	got, err := set.Get(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)

	configs := []model.Configuration{{RepeatIntervalMillis: 7000}}
	require.NoError(t, set.Put(ctx, configs))

	got, err = set.Get(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(7000), got[0].RepeatIntervalMillis)

	// Put again to exercise the update path against an existing ConfigMap.
	configs2 := []model.Configuration{{RepeatIntervalMillis: 9000}}
	require.NoError(t, set.Put(ctx, configs2))

	got, err = set.Get(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(9000), got[0].RepeatIntervalMillis)
}
