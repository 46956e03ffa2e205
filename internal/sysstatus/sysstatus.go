// Package sysstatus implements the SystemStatus sink from spec.md §2.2 and
// §6: named counters and timers, all side-effect-free to the rest of the
// system. It is grounded on the teacher's pkg/metrics registry pattern
// (lazy-initialized, namespace-prefixed Prometheus collectors) but trimmed
// to the single meter/timer contract the ETL engine actually needs.
package sysstatus

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Kind is one of the terminal outcomes a meter can record.
type Kind string

const (
	Success               Kind = "success"
	Failure               Kind = "failure"
	NoData                Kind = "no_data"
	AuthenticationFailure Kind = "authentication_failure"
)

// Status is the SystemStatus sink: SystemStatus.meter(name, kind) and
// SystemStatus.timer(name, op) from spec.md §6.
type Status struct {
	namespace string
	registry  prometheus.Registerer

	mu      sync.Mutex
	meters  map[string]*prometheus.CounterVec
	timers  map[string]*prometheus.HistogramVec
}

// New creates a SystemStatus sink registering its collectors against reg.
// Pass prometheus.DefaultRegisterer in production, or a fresh
// prometheus.NewRegistry() in tests to avoid collisions between runs.
func New(namespace string, reg prometheus.Registerer) *Status {
	if namespace == "" {
		namespace = "pyplyn"
	}
	return &Status{
		namespace: namespace,
		registry:  reg,
		meters:    make(map[string]*prometheus.CounterVec),
		timers:    make(map[string]*prometheus.HistogramVec),
	}
}

// Meter increments the named meter's counter for the given outcome kind.
func (s *Status) Meter(name string, kind Kind) {
	s.counterFor(name).WithLabelValues(string(kind)).Inc()
}

func (s *Status) counterFor(name string) *prometheus.CounterVec {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.meters[name]; ok {
		return c
	}

	c := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: s.namespace,
		Subsystem: "meter",
		Name:      sanitize(name) + "_total",
		Help:      "Terminal outcomes recorded for " + name,
	}, []string{"kind"})

	if s.registry != nil {
		s.registry.MustRegister(c)
	}
	s.meters[name] = c
	return c
}

// Timer starts a timing context for a named operation; the returned func
// records the elapsed duration under name/op when called (typically via
// defer).
func (s *Status) Timer(name, op string) func() time.Duration {
	hist := s.histogramFor(name)
	start := time.Now()
	return func() time.Duration {
		d := time.Since(start)
		hist.WithLabelValues(op).Observe(d.Seconds())
		return d
	}
}

func (s *Status) histogramFor(name string) *prometheus.HistogramVec {
	s.mu.Lock()
	defer s.mu.Unlock()

	if h, ok := s.timers[name]; ok {
		return h
	}

	h := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: s.namespace,
		Subsystem: "timer",
		Name:      sanitize(name) + "_seconds",
		Help:      "Duration of " + name + " operations",
		Buckets:   prometheus.DefBuckets,
	}, []string{"op"})

	if s.registry != nil {
		s.registry.MustRegister(h)
	}
	s.timers[name] = h
	return h
}

func sanitize(name string) string {
	out := make([]byte, len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			out[i] = c
		case c >= 'A' && c <= 'Z':
			out[i] = c - 'A' + 'a'
		default:
			out[i] = '_'
		}
	}
	return string(out)
}
