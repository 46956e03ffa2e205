package cluster

import (
	"context"
	"testing"

	"github.com/MihaiBojin/pyplyn/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalClusterAlwaysMaster(t *testing.T) {
	c := New()
	assert.True(t, c.IsMaster())
}

func TestLocalClusterReplicatedSetPutGet(t *testing.T) {
	c := New()
	ctx := context.Background()

	set := c.ReplicatedSet("active")
	got, err := set.Get(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)

	configs := []model.Configuration{{RepeatIntervalMillis: 1000}}
	require.NoError(t, set.Put(ctx, configs))

	got, err = set.Get(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(1000), got[0].RepeatIntervalMillis)
}

func TestLocalClusterSetsAreIndependentByName(t *testing.T) {
	c := New()
	ctx := context.Background()

	require.NoError(t, c.ReplicatedSet("a").Put(ctx, []model.Configuration{{RepeatIntervalMillis: 1}}))
	require.NoError(t, c.ReplicatedSet("b").Put(ctx, []model.Configuration{{RepeatIntervalMillis: 2}}))

	gotA, _ := c.ReplicatedSet("a").Get(ctx)
	gotB, _ := c.ReplicatedSet("b").Get(ctx)
	require.Len(t, gotA, 1)
	require.Len(t, gotB, 1)
	assert.Equal(t, int64(1), gotA[0].RepeatIntervalMillis)
	assert.Equal(t, int64(2), gotB[0].RepeatIntervalMillis)
}
