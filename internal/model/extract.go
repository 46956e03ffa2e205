package model

import "fmt"

// Extract is a tagged-variant stage definition describing one thing to pull
// from a monitoring backend. Concrete kinds (Refocus today) implement it;
// the Extract processor dispatches on Kind().
type Extract interface {
	Kind() string
	EndpointID() string
	CacheKey() string
	CacheMillis() int64
	DefaultValue() (float64, bool)
}

// Refocus is the reference Extract kind: it names a metric pattern on a
// Refocus-like sample endpoint, with an optional default value substituted
// when the remote has no data or times out.
type Refocus struct {
	EndpointId    string
	Name          string
	FilteredName  string
	Default       *float64
	CacheDuration int64 // milliseconds; 0 = no caching
}

var _ Extract = Refocus{}

// Kind implements Extract.
func (r Refocus) Kind() string { return "refocus" }

// EndpointID implements Extract.
func (r Refocus) EndpointID() string { return r.EndpointId }

// CacheKey implements Extract. It must match the cache key a Sample for this
// Extract's FilteredName would produce, so a prior remote response can
// satisfy this Extract from cache.
func (r Refocus) CacheKey() string { return fmt.Sprintf("refocus:%s:%s", r.EndpointId, r.FilteredName) }

// CacheMillis implements Extract.
func (r Refocus) CacheMillis() int64 { return r.CacheDuration }

// DefaultValue implements Extract.
func (r Refocus) DefaultValue() (float64, bool) {
	if r.Default == nil {
		return 0, false
	}
	return *r.Default, true
}
