// Package model defines the data types that flow through the ETL pipeline:
// Transmutation points, the Matrix they're arranged in, and the tagged-variant
// Extract/Transform/Load stage definitions dispatched by the pipeline engine.
package model

import "time"

// Transmutation is a single immutable measurement flowing through the pipeline.
// OriginalValue is set once by an Extract processor and must never be mutated
// by a Transform; Transforms produce new Transmutations via ChangeValue instead.
type Transmutation struct {
	Time          time.Time
	Name          string
	Value         float64
	OriginalValue float64
	Metadata      []string
	Tags          map[string]interface{}
}

// NewTransmutation constructs a Transmutation with OriginalValue equal to Value,
// as an Extract processor would when first observing a sample.
func NewTransmutation(t time.Time, name string, value float64) Transmutation {
	return Transmutation{
		Time:          t,
		Name:          name,
		Value:         value,
		OriginalValue: value,
	}
}

// WithMetadata returns a copy with the given message appended to Metadata.
func (t Transmutation) WithMetadata(msg string) Transmutation {
	next := make([]string, len(t.Metadata), len(t.Metadata)+1)
	copy(next, t.Metadata)
	next = append(next, msg)
	t.Metadata = next
	return t
}

// WithTag returns a copy with key=value merged into Tags.
func (t Transmutation) WithTag(key string, value interface{}) Transmutation {
	tags := make(map[string]interface{}, len(t.Tags)+1)
	for k, v := range t.Tags {
		tags[k] = v
	}
	tags[key] = value
	t.Tags = tags
	return t
}

// ChangeValue returns a copy of point with Value replaced by v, preserving
// OriginalValue and Time per the Transform contract in §4.5.
func ChangeValue(point Transmutation, v float64) Transmutation {
	point.Value = v
	return point
}

// IntValue truncates Value toward zero, mirroring the source's intValue() used
// by status-clamping transforms.
func (t Transmutation) IntValue() int {
	return int(t.Value)
}
