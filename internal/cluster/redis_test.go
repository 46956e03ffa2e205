package cluster

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MihaiBojin/pyplyn/internal/model"
)

func setupMiniredis(t *testing.T) *redis.Client {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestRedisClusterSingleNodeBecomesMaster(t *testing.T) {
	client := setupMiniredis(t)
	c := NewRedisCluster(client, "test-cluster", 200*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	assert.False(t, c.IsMaster())
	c.tick(ctx)
	assert.True(t, c.IsMaster())
}

func TestRedisClusterSecondNodeDoesNotBecomeMasterWhileFirstHoldsLock(t *testing.T) {
	client := setupMiniredis(t)
	ctx := context.Background()

	a := NewRedisCluster(client, "test-cluster", 10*time.Second, nil)
	b := NewRedisCluster(client, "test-cluster", 10*time.Second, nil)

	a.tick(ctx)
	b.tick(ctx)

	assert.True(t, a.IsMaster())
	assert.False(t, b.IsMaster())
}

func TestRedisClusterRenewalKeepsMastership(t *testing.T) {
	client := setupMiniredis(t)
	ctx := context.Background()

	a := NewRedisCluster(client, "test-cluster", 10*time.Second, nil)
	a.tick(ctx)
	require.True(t, a.IsMaster())

	a.tick(ctx) // second tick should renew, not re-acquire
	assert.True(t, a.IsMaster())
}

func TestRedisClusterReplicatedSetRoundTrip(t *testing.T) {
	client := setupMiniredis(t)
	ctx := context.Background()

	publisher := NewRedisCluster(client, "test-cluster", 10*time.Second, nil)
	observer := NewRedisCluster(client, "test-cluster", 10*time.Second, nil)

	set := publisher.ReplicatedSet("active")
	got, err := set.Get(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)

	configs := []model.Configuration{{RepeatIntervalMillis: 5000}}
	require.NoError(t, set.Put(ctx, configs))

	// A second RedisCluster instance observes what the first published.
	gotFromObserver, err := observer.ReplicatedSet("active").Get(ctx)
	require.NoError(t, err)
	require.Len(t, gotFromObserver, 1)
	assert.Equal(t, int64(5000), gotFromObserver[0].RepeatIntervalMillis)
}

func TestRedisClusterReleaseDropsMastership(t *testing.T) {
	client := setupMiniredis(t)
	ctx := context.Background()

	a := NewRedisCluster(client, "test-cluster", 10*time.Second, nil)
	a.tick(ctx)
	require.True(t, a.IsMaster())

	a.release(ctx)
	assert.False(t, a.IsMaster())

	b := NewRedisCluster(client, "test-cluster", 10*time.Second, nil)
	b.tick(ctx)
	assert.True(t, b.IsMaster())
}
