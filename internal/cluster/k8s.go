package cluster

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/leaderelection"
	"k8s.io/client-go/tools/leaderelection/resourcelock"

	"github.com/MihaiBojin/pyplyn/internal/configwire"
	"github.com/MihaiBojin/pyplyn/internal/model"
)

// dataKey is the ConfigMap data key a K8sCluster replicated set writes its
// JSON blob under.
const dataKey = "configurations.json"

// K8sClusterConfig controls K8sCluster construction.
type K8sClusterConfig struct {
	Namespace     string
	LeaseName     string
	Identity      string
	LeaseDuration time.Duration
	RenewDeadline time.Duration
	RetryPeriod   time.Duration
	Logger        *slog.Logger
}

// K8sCluster reports master status via a Kubernetes Lease
// (coordination.k8s.io/v1), held through client-go's leaderelection package,
// per SPEC_FULL.md §4.12. ReplicatedSet publishes the Configuration set as a
// ConfigMap the leader writes, since a Lease object has no general-purpose
// payload field.
type K8sCluster struct {
	clientset kubernetes.Interface
	cfg       K8sClusterConfig
	logger    *slog.Logger

	isMaster atomic.Bool
}

var _ Cluster = (*K8sCluster)(nil)

// NewK8sCluster constructs a K8sCluster bound to clientset. Call Run on its
// own goroutine to begin participating in leader election; IsMaster reports
// false until a lease is won.
func NewK8sCluster(clientset kubernetes.Interface, cfg K8sClusterConfig) *K8sCluster {
	if cfg.LeaseDuration <= 0 {
		cfg.LeaseDuration = 15 * time.Second
	}
	if cfg.RenewDeadline <= 0 {
		cfg.RenewDeadline = 10 * time.Second
	}
	if cfg.RetryPeriod <= 0 {
		cfg.RetryPeriod = 2 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &K8sCluster{clientset: clientset, cfg: cfg, logger: cfg.Logger}
}

// Run participates in leader election on the configured Lease until ctx is
// done. Blocks; call it from its own goroutine.
func (k *K8sCluster) Run(ctx context.Context) error {
	lock := &resourcelock.LeaseLock{
		LeaseMeta: metav1.ObjectMeta{Name: k.cfg.LeaseName, Namespace: k.cfg.Namespace},
		Client:    k.clientset.CoordinationV1(),
		LockConfig: resourcelock.ResourceLockConfig{
			Identity: k.cfg.Identity,
		},
	}

	leaderelection.RunOrDie(ctx, leaderelection.LeaderElectionConfig{
		Lock:            lock,
		ReleaseOnCancel: true,
		LeaseDuration:   k.cfg.LeaseDuration,
		RenewDeadline:   k.cfg.RenewDeadline,
		RetryPeriod:     k.cfg.RetryPeriod,
		Callbacks: leaderelection.LeaderCallbacks{
			OnStartedLeading: func(context.Context) {
				k.logger.Info("acquired lease, became master", "lease", k.cfg.LeaseName, "identity", k.cfg.Identity)
				k.isMaster.Store(true)
			},
			OnStoppedLeading: func() {
				k.logger.Info("lost lease, relinquishing mastership", "lease", k.cfg.LeaseName, "identity", k.cfg.Identity)
				k.isMaster.Store(false)
			},
		},
	})
	return ctx.Err()
}

// IsMaster implements Cluster.
func (k *K8sCluster) IsMaster() bool {
	return k.isMaster.Load()
}

// ReplicatedSet implements Cluster.
func (k *K8sCluster) ReplicatedSet(name string) ReplicatedSet {
	return &k8sSet{
		clientset: k.clientset,
		namespace: k.cfg.Namespace,
		name:      k.cfg.LeaseName + "-" + name,
	}
}

type k8sSet struct {
	clientset kubernetes.Interface
	namespace string
	name      string
}

// Put writes configs to the backing ConfigMap, creating it on first publish
// and updating it thereafter.
func (s *k8sSet) Put(ctx context.Context, configs []model.Configuration) error {
	raw, err := configwire.EncodeSet(configs)
	if err != nil {
		return fmt.Errorf("%w: encoding replicated set %s: %v", model.ErrInternal, s.name, err)
	}

	cms := s.clientset.CoreV1().ConfigMaps(s.namespace)
	cm, err := cms.Get(ctx, s.name, metav1.GetOptions{})
	if apierrors.IsNotFound(err) {
		_, err = cms.Create(ctx, &corev1.ConfigMap{
			ObjectMeta: metav1.ObjectMeta{Name: s.name, Namespace: s.namespace},
			Data:       map[string]string{dataKey: string(raw)},
		}, metav1.CreateOptions{})
		if err != nil {
			return fmt.Errorf("%w: creating replicated set configmap %s: %v", model.ErrTransport, s.name, err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: reading replicated set configmap %s: %v", model.ErrTransport, s.name, err)
	}

	if cm.Data == nil {
		cm.Data = make(map[string]string)
	}
	cm.Data[dataKey] = string(raw)
	if _, err := cms.Update(ctx, cm, metav1.UpdateOptions{}); err != nil {
		return fmt.Errorf("%w: updating replicated set configmap %s: %v", model.ErrTransport, s.name, err)
	}
	return nil
}

// Get reads the published set. A never-published name returns an empty,
// nil-error result.
func (s *k8sSet) Get(ctx context.Context) ([]model.Configuration, error) {
	cm, err := s.clientset.CoreV1().ConfigMaps(s.namespace).Get(ctx, s.name, metav1.GetOptions{})
	if apierrors.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading replicated set configmap %s: %v", model.ErrTransport, s.name, err)
	}

	raw, ok := cm.Data[dataKey]
	if !ok {
		return nil, nil
	}
	return configwire.DecodeSet([]byte(raw))
}
