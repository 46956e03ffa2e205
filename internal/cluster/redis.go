package cluster

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/MihaiBojin/pyplyn/internal/configwire"
	"github.com/MihaiBojin/pyplyn/internal/model"
)

// RedisCluster performs master election via a Redis SETNX-based lock with a
// renewed TTL, grounded on the teacher's DistributedLock
// (internal/infrastructure/lock), adapted here into a long-lived
// elect-and-renew loop instead of a one-shot acquire/release: as long as
// this node holds the lock it is master, and it keeps renewing the TTL in
// the background so a crash (no clean Release) cedes mastership within one
// TTL window instead of forever. ReplicatedSet stores the published
// Configuration set as a JSON blob under a well-known key (spec.md §4.8,
// SPEC_FULL.md §4.12 EXPANSION).
type RedisCluster struct {
	client   *redis.Client
	lockKey  string
	identity string
	ttl      time.Duration
	logger   *slog.Logger

	mu       sync.RWMutex
	isMaster bool
}

var _ Cluster = (*RedisCluster)(nil)

// NewRedisCluster constructs a RedisCluster; clusterName scopes the master
// lock and every replicated set key so multiple clusters can share one
// Redis instance without colliding.
func NewRedisCluster(client *redis.Client, clusterName string, ttl time.Duration, logger *slog.Logger) *RedisCluster {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisCluster{
		client:   client,
		lockKey:  clusterName + ":master-lock",
		identity: generateIdentity(),
		ttl:      ttl,
		logger:   logger,
	}
}

func generateIdentity() string {
	return "pyplyn-" + uuid.New().String()
}

// Run drives the elect-and-renew loop until ctx is done: every ttl/3 it
// attempts to acquire the lock (if not held) or renew it (if held),
// updating IsMaster's observable state. Intended to run on its own
// goroutine for the process lifetime.
func (r *RedisCluster) Run(ctx context.Context) {
	interval := r.ttl / 3
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	r.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			r.release(context.Background())
			return
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

func (r *RedisCluster) tick(ctx context.Context) {
	if r.IsMaster() {
		if r.renew(ctx) {
			return
		}
		r.setMaster(false)
		r.logger.Warn("lost master lock renewal, relinquishing mastership", "key", r.lockKey)
		return
	}

	ok, err := r.client.SetNX(ctx, r.lockKey, r.identity, r.ttl).Result()
	if err != nil {
		r.logger.Warn("master election attempt failed", "key", r.lockKey, "error", err)
		return
	}
	r.setMaster(ok)
}

const renewScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("pexpire", KEYS[1], ARGV[2])
else
	return 0
end`

func (r *RedisCluster) renew(ctx context.Context) bool {
	res, err := r.client.Eval(ctx, renewScript, []string{r.lockKey}, r.identity, r.ttl.Milliseconds()).Result()
	if err != nil {
		r.logger.Warn("master lock renewal failed", "key", r.lockKey, "error", err)
		return false
	}
	n, _ := res.(int64)
	return n == 1
}

const releaseScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end`

func (r *RedisCluster) release(ctx context.Context) {
	if !r.IsMaster() {
		return
	}
	if err := r.client.Eval(ctx, releaseScript, []string{r.lockKey}, r.identity).Err(); err != nil {
		r.logger.Warn("releasing master lock failed", "key", r.lockKey, "error", err)
	}
	r.setMaster(false)
}

func (r *RedisCluster) setMaster(v bool) {
	r.mu.Lock()
	r.isMaster = v
	r.mu.Unlock()
}

// IsMaster implements Cluster.
func (r *RedisCluster) IsMaster() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.isMaster
}

// ReplicatedSet implements Cluster.
func (r *RedisCluster) ReplicatedSet(name string) ReplicatedSet {
	return &redisSet{client: r.client, key: r.lockKey + ":set:" + name}
}

type redisSet struct {
	client *redis.Client
	key    string
}

// Put publishes configs as a JSON blob, observable by every RedisCluster
// instance sharing this Redis (spec.md §8: "the Redis-backed ReplicatedSet
// observed by a second RedisCluster instance matches what the master
// published, within one poll interval").
func (s *redisSet) Put(ctx context.Context, configs []model.Configuration) error {
	raw, err := configwire.EncodeSet(configs)
	if err != nil {
		return fmt.Errorf("%w: encoding replicated set %s: %v", model.ErrInternal, s.key, err)
	}
	if err := s.client.Set(ctx, s.key, raw, 0).Err(); err != nil {
		return fmt.Errorf("%w: publishing replicated set %s: %v", model.ErrTransport, s.key, err)
	}
	return nil
}

// Get reads the published set. A never-published key returns an empty,
// nil-error result: slaves observe "nothing published yet", not a failure.
func (s *redisSet) Get(ctx context.Context) ([]model.Configuration, error) {
	raw, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: reading replicated set %s: %v", model.ErrTransport, s.key, err)
	}

	return configwire.DecodeSet(raw)
}
