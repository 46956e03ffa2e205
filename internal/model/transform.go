package model

import (
	"strconv"
	"time"
)

// Transform is a tagged-variant pipeline stage: a pure, deterministic,
// side-effect-free Matrix -> Matrix function. The concrete Kind values below
// are dispatched by internal/transform.Apply; Transform itself carries
// no behavior so Configuration can hold a plain ordered list of them.
type Transform interface {
	Kind() string
}

// ThresholdType is the comparison applied by Threshold and
// ThresholdMetForDuration.
type ThresholdType int

const (
	GreaterThan ThresholdType = iota
	LessThan
	EqualTo
)

// Matches reports whether value satisfies this threshold type against t.
func (tt ThresholdType) Matches(value, threshold float64) bool {
	switch tt {
	case GreaterThan:
		return value > threshold
	case LessThan:
		return value < threshold
	case EqualTo:
		return value == threshold
	default:
		return false
	}
}

func (tt ThresholdType) String() string {
	switch tt {
	case GreaterThan:
		return ">"
	case LessThan:
		return "<"
	case EqualTo:
		return "=="
	default:
		return "?"
	}
}

// Status is the clamped severity scale produced by Threshold and
// ThresholdMetForDuration.
type Status int

const (
	StatusOK Status = iota
	StatusInfo
	StatusWarn
	StatusCrit
)

func (s Status) Float() float64 { return float64(s) }

// LastDatapointTransform keeps only the last (highest-index) element of each
// row, dropping rows that are empty.
type LastDatapointTransform struct{}

func (LastDatapointTransform) Kind() string { return "last_datapoint" }

// InfoStatusTransform clamps OK (0) readings to INFO (1), leaving all other
// values unchanged.
type InfoStatusTransform struct{}

func (InfoStatusTransform) Kind() string { return "info_status" }

// ThresholdTransform compares each cell's value against Threshold under Type,
// producing a Status-valued cell.
type ThresholdTransform struct {
	Threshold float64
	Type      ThresholdType
}

func (ThresholdTransform) Kind() string { return "threshold" }

// ThresholdMetForDurationTransform is the hard case from spec.md §4.5: a row
// is reduced to a single point reflecting how long the threshold condition
// has held, looking back from the row's last point.
type ThresholdMetForDurationTransform struct {
	Name                   string
	Threshold              float64
	Type                   ThresholdType
	CriticalDurationMillis int64
	WarnDurationMillis     int64
	InfoDurationMillis     int64
}

func (ThresholdMetForDurationTransform) Kind() string { return "threshold_met_for_duration" }

// Equals implements the structural-equality comparison described in spec.md
// §9 Design Notes. The source's original Equals compared InfoDurationMillis
// against the other value's WarnDurationMillis; that was a defect. This
// implementation pins the corrected comparison.
func (t ThresholdMetForDurationTransform) Equals(other ThresholdMetForDurationTransform) bool {
	return t.Name == other.Name &&
		t.Threshold == other.Threshold &&
		t.Type == other.Type &&
		t.CriticalDurationMillis == other.CriticalDurationMillis &&
		t.WarnDurationMillis == other.WarnDurationMillis &&
		t.InfoDurationMillis == other.InfoDurationMillis
}

// FormatDuration renders d as "hh:mm:ss", or "<dd>days hh:mm:ss" when d spans
// one or more full days, zero-padded to two digits throughout.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = -d
	}
	totalSeconds := int64(d.Seconds())
	days := totalSeconds / 86400
	rem := totalSeconds % 86400
	hours := rem / 3600
	rem %= 3600
	minutes := rem / 60
	seconds := rem % 60

	if days > 0 {
		return formatHMS(days, hours, minutes, seconds, true)
	}
	return formatHMS(0, hours, minutes, seconds, false)
}

func formatHMS(days, hours, minutes, seconds int64, withDays bool) string {
	hms := twoDigit(hours) + ":" + twoDigit(minutes) + ":" + twoDigit(seconds)
	if withDays {
		return twoDigit(days) + "days " + hms
	}
	return hms
}

func twoDigit(n int64) string {
	s := strconv.FormatInt(n, 10)
	if len(s) < 2 {
		return "0" + s
	}
	return s
}
