package model

// Sample is the raw, pre-conversion record returned by a remote endpoint and
// held in AppConnectors' per-endpoint Cache<sampleClass> (spec.md §4.3,
// §4.4): a name, a string-encoded value (numeric, or the "Timeout" sentinel),
// and a string-encoded timestamp, exactly as received over the wire, before
// createResult parses it into a Transmutation.
type Sample struct {
	Name      string
	Value     string
	UpdatedAt string
	// Key is the cache key this sample is stored under, built by the Extract
	// processor the same way the originating Extract builds its own
	// CacheKey() (e.g. "refocus:<endpointId>:<name>"), so a later Extract
	// probing by CacheKey() can find a sample a sibling Extract's remote
	// call already returned.
	Key string
}

// TimedOut reports whether this sample carries the "timed out" sentinel
// value, per spec.md §4.4.
func (s Sample) TimedOut() bool { return s.Value == "Timeout" }

// CacheKey satisfies cache.Keyer.
func (s Sample) CacheKey() string { return s.Key }
