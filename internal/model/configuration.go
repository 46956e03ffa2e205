package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Configuration is a declarative ETL job: ordered Extracts, ordered
// Transforms, ordered Loads, and a repeat policy. Identity is the structural
// hash of all fields (Hash()); two Configurations with identical content are
// equal regardless of which ConfigurationLoader produced them.
type Configuration struct {
	Extracts             []Extract
	Transforms           []Transform
	Loads                []Load
	RepeatIntervalMillis int64
	Disabled             bool

	// Version and Source are metadata only (SPEC_FULL.md §3 expansion):
	// they do not participate in Hash() / structural equality.
	Version int64
	Source  string
}

// Hash returns the structural-equality identity of c, stable across process
// restarts and independent of which loader produced the value.
func (c Configuration) Hash() string {
	var b strings.Builder
	for _, e := range c.Extracts {
		fmt.Fprintf(&b, "E|%s|%s\n", e.Kind(), e.CacheKey())
		switch ext := e.(type) {
		case Refocus:
			fmt.Fprintf(&b, "  %s|%s|%s|%d", ext.EndpointId, ext.Name, ext.FilteredName, ext.CacheDuration)
			if dv, ok := ext.DefaultValue(); ok {
				fmt.Fprintf(&b, "|%v", dv)
			}
			b.WriteByte('\n')
		}
	}
	for _, t := range c.Transforms {
		fmt.Fprintf(&b, "T|%s|", t.Kind())
		switch tr := t.(type) {
		case LastDatapointTransform, InfoStatusTransform:
			// no parameters
		case ThresholdTransform:
			fmt.Fprintf(&b, "%v|%d", tr.Threshold, tr.Type)
		case ThresholdMetForDurationTransform:
			fmt.Fprintf(&b, "%s|%v|%d|%d|%d|%d", tr.Name, tr.Threshold, tr.Type,
				tr.CriticalDurationMillis, tr.WarnDurationMillis, tr.InfoDurationMillis)
		}
		b.WriteByte('\n')
	}
	for _, l := range c.Loads {
		fmt.Fprintf(&b, "L|%s|%s\n", l.Kind(), l.ID())
	}
	fmt.Fprintf(&b, "interval=%d|disabled=%t", c.RepeatIntervalMillis, c.Disabled)

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// Equals reports structural equality per spec.md §3: identical content, not
// pointer identity.
func (c Configuration) Equals(other Configuration) bool {
	return c.Hash() == other.Hash()
}

// ConfigurationSet is a set of Configurations keyed by structural hash.
type ConfigurationSet map[string]Configuration

// NewConfigurationSet builds a ConfigurationSet from a slice, deduplicating
// by structural hash.
func NewConfigurationSet(configs []Configuration) ConfigurationSet {
	set := make(ConfigurationSet, len(configs))
	for _, c := range configs {
		set[c.Hash()] = c
	}
	return set
}

// Diff computes added = next - s and removed = s - next, by structural hash,
// as required by the ConfigurationUpdateManager (spec.md §4.8 step 4).
func (s ConfigurationSet) Diff(next ConfigurationSet) (added, removed []Configuration) {
	for hash, cfg := range next {
		if _, ok := s[hash]; !ok {
			added = append(added, cfg)
		}
	}
	for hash, cfg := range s {
		if _, ok := next[hash]; !ok {
			removed = append(removed, cfg)
		}
	}
	sortByHash(added)
	sortByHash(removed)
	return added, removed
}

func sortByHash(configs []Configuration) {
	sort.Slice(configs, func(i, j int) bool { return configs[i].Hash() < configs[j].Hash() })
}

// String renders a short, stable identifier for logs: the first 12 hex
// characters of the structural hash plus the interval, e.g. "a1b2c3d4e5f6@60000ms".
func (c Configuration) String() string {
	h := c.Hash()
	if len(h) > 12 {
		h = h[:12]
	}
	return h + "@" + strconv.FormatInt(c.RepeatIntervalMillis, 10) + "ms"
}
