package updatemanager

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MihaiBojin/pyplyn/internal/cluster"
	"github.com/MihaiBojin/pyplyn/internal/model"
	"github.com/MihaiBojin/pyplyn/internal/scheduler"
)

type fakeLoader struct {
	configs []model.Configuration
	err     error
	calls   int
}

func (f *fakeLoader) Load(ctx context.Context) ([]model.Configuration, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.configs, nil
}

func newTestScheduler() *scheduler.Scheduler {
	return scheduler.New(func(ctx context.Context, c model.Configuration) {}, scheduler.Config{})
}

func TestTickAsMasterSchedulesLoadedConfigurations(t *testing.T) {
	sched := newTestScheduler()
	defer sched.Drain(time.Second)

	loader := &fakeLoader{configs: []model.Configuration{
		{RepeatIntervalMillis: 1000, Loads: []model.Load{model.RefocusLoad{EndpointId: "a"}}},
	}}

	m := New(Config{Loader: loader, Scheduler: sched})
	m.Tick(context.Background())

	assert.Equal(t, 1, sched.Len())
	assert.Equal(t, 1, loader.calls)
}

func TestTickRemovesDroppedConfigurations(t *testing.T) {
	sched := newTestScheduler()
	defer sched.Drain(time.Second)

	cfgA := model.Configuration{RepeatIntervalMillis: 1000, Loads: []model.Load{model.RefocusLoad{EndpointId: "a"}}}
	loader := &fakeLoader{configs: []model.Configuration{cfgA}}
	m := New(Config{Loader: loader, Scheduler: sched})

	m.Tick(context.Background())
	require.Equal(t, 1, sched.Len())

	loader.configs = nil
	m.Tick(context.Background())
	assert.Equal(t, 0, sched.Len())
}

func TestTickIsIdempotentForUnchangedSet(t *testing.T) {
	sched := newTestScheduler()
	defer sched.Drain(time.Second)

	cfgA := model.Configuration{RepeatIntervalMillis: 1000, Loads: []model.Load{model.RefocusLoad{EndpointId: "a"}}}
	loader := &fakeLoader{configs: []model.Configuration{cfgA}}
	m := New(Config{Loader: loader, Scheduler: sched})

	m.Tick(context.Background())
	m.Tick(context.Background())
	assert.Equal(t, 1, sched.Len())
}

func TestTickOnLoaderErrorLeavesScheduleUnchanged(t *testing.T) {
	sched := newTestScheduler()
	defer sched.Drain(time.Second)

	cfgA := model.Configuration{RepeatIntervalMillis: 1000, Loads: []model.Load{model.RefocusLoad{EndpointId: "a"}}}
	loader := &fakeLoader{configs: []model.Configuration{cfgA}}
	m := New(Config{Loader: loader, Scheduler: sched})
	m.Tick(context.Background())
	require.Equal(t, 1, sched.Len())

	loader.err = errors.New("boom")
	m.Tick(context.Background())
	assert.Equal(t, 1, sched.Len())
}

func TestSlaveNodeNeverCallsLoader(t *testing.T) {
	sched := newTestScheduler()
	defer sched.Drain(time.Second)

	c := cluster.New() // LocalCluster is always master; notMaster below stands in for a slave
	_ = c

	loader := &fakeLoader{configs: []model.Configuration{{RepeatIntervalMillis: 1000}}}
	m := New(Config{Loader: loader, Scheduler: sched, Cluster: notMaster{}})

	m.Tick(context.Background())
	assert.Equal(t, 0, loader.calls)
	assert.Equal(t, 0, sched.Len())
}

func TestSlaveNodeSchedulesFromReplicatedSet(t *testing.T) {
	sched := newTestScheduler()
	defer sched.Drain(time.Second)

	lc := cluster.New()
	cfg := model.Configuration{RepeatIntervalMillis: 1000, Loads: []model.Load{model.RefocusLoad{EndpointId: "a"}}}
	require.NoError(t, lc.ReplicatedSet(replicatedSetName).Put(context.Background(), []model.Configuration{cfg}))

	loader := &fakeLoader{}
	m := New(Config{Loader: loader, Scheduler: sched, Cluster: notMasterWrapping{lc}})

	m.Tick(context.Background())
	assert.Equal(t, 0, loader.calls)
	assert.Equal(t, 1, sched.Len())
}

// notMaster is a minimal Cluster that is never master and has no replicated
// data, used to assert the loader is never called on a slave node.
type notMaster struct{}

func (notMaster) IsMaster() bool { return false }
func (notMaster) ReplicatedSet(name string) cluster.ReplicatedSet {
	return cluster.New().ReplicatedSet(name)
}

// notMasterWrapping reports false for IsMaster while delegating
// ReplicatedSet to an underlying Cluster, so a slave node can observe what a
// separately-constructed master published.
type notMasterWrapping struct {
	inner cluster.Cluster
}

func (notMasterWrapping) IsMaster() bool { return false }
func (w notMasterWrapping) ReplicatedSet(name string) cluster.ReplicatedSet {
	return w.inner.ReplicatedSet(name)
}
