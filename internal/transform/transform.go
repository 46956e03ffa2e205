// Package transform implements the pure Matrix -> Matrix transform library
// from spec.md §4.5: LastDatapoint, InfoStatus, Threshold, and the harder
// ThresholdMetForDuration, plus Apply/ApplyAll, which dispatch one Transform
// or a Configuration's ordered Transform list. Grounded on the teacher's type-switch dispatch
// idiom used throughout internal/infrastructure for tagged-variant handling,
// applied here to model.Transform instead of alert routing rules.
package transform

import (
	"fmt"
	"time"

	"github.com/MihaiBojin/pyplyn/internal/model"
)

// Apply dispatches t against m, returning the transformed Matrix. Unknown
// transform kinds are an internal error: the Configuration loader is
// responsible for only producing kinds this package recognizes.
func Apply(m model.Matrix, t model.Transform) (model.Matrix, error) {
	switch tt := t.(type) {
	case model.LastDatapointTransform:
		return lastDatapoint(m), nil
	case model.InfoStatusTransform:
		return infoStatus(m), nil
	case model.ThresholdTransform:
		return threshold(m, tt), nil
	case model.ThresholdMetForDurationTransform:
		return thresholdMetForDuration(m, tt), nil
	default:
		return nil, fmt.Errorf("%w: unrecognized transform kind %q", model.ErrInternal, t.Kind())
	}
}

// ApplyAll applies transforms in declared order, short-circuiting on the
// first error.
func ApplyAll(m model.Matrix, transforms []model.Transform) (model.Matrix, error) {
	for _, t := range transforms {
		var err error
		m, err = Apply(m, t)
		if err != nil {
			return nil, err
		}
	}
	return m, nil
}

// lastDatapoint keeps only the last element of every row, dropping rows that
// are empty. Row order is preserved.
func lastDatapoint(m model.Matrix) model.Matrix {
	out := make(model.Matrix, 0, len(m))
	for _, row := range m {
		if len(row) == 0 {
			continue
		}
		out = append(out, model.Row{row[len(row)-1]})
	}
	return out
}

// infoStatus clamps every cell whose intValue() == 0 ("OK") up to 1 ("INFO").
func infoStatus(m model.Matrix) model.Matrix {
	out := make(model.Matrix, len(m))
	for i, row := range m {
		next := make(model.Row, len(row))
		for j, point := range row {
			if point.IntValue() == 0 {
				next[j] = model.ChangeValue(point, model.StatusInfo.Float())
			} else {
				next[j] = point
			}
		}
		out[i] = next
	}
	return out
}

// threshold compares every cell's value against t.Threshold, replacing it
// with CRIT when the comparison matches and OK otherwise. This is the
// simple, stateless sibling of ThresholdMetForDuration: it carries no
// duration escalation, only the binary match/no-match outcome.
func threshold(m model.Matrix, t model.ThresholdTransform) model.Matrix {
	out := make(model.Matrix, len(m))
	for i, row := range m {
		next := make(model.Row, len(row))
		for j, point := range row {
			if t.Type.Matches(point.Value, t.Threshold) {
				next[j] = model.ChangeValue(point, model.StatusCrit.Float())
			} else {
				next[j] = model.ChangeValue(point, model.StatusOK.Float())
			}
		}
		out[i] = next
	}
	return out
}

// thresholdMetForDuration implements the algorithm from spec.md §4.5: each
// row collapses to a single point reflecting how long, looking back from the
// row's last point, the threshold condition has continuously held.
func thresholdMetForDuration(m model.Matrix, t model.ThresholdMetForDurationTransform) model.Matrix {
	out := make(model.Matrix, 0, len(m))
	for _, row := range m {
		if point, ok := reduceRow(row, t); ok {
			out = append(out, model.Row{point})
		}
	}
	return out
}

func reduceRow(row model.Row, t model.ThresholdMetForDurationTransform) (model.Transmutation, bool) {
	if len(row) == 0 {
		var zero model.Transmutation
		return zero, false
	}

	lastPoint := row[len(row)-1]
	lastTs := lastPoint.Time

	critTs := lastTs.Add(-durationMillis(t.CriticalDurationMillis))
	warnTs := lastTs.Add(-durationMillis(t.WarnDurationMillis))
	infoTs := lastTs.Add(-durationMillis(t.InfoDurationMillis))

	atWarningLevel := false
	atInfoLevel := false

	for i := len(row) - 1; i >= 0; i-- {
		point := row[i]
		if !t.Type.Matches(point.Value, t.Threshold) {
			switch {
			case !point.Time.After(warnTs):
				return escalate(point, model.StatusWarn, t), true
			case !point.Time.After(infoTs):
				return escalate(point, model.StatusInfo, t), true
			default:
				return model.ChangeValue(point, model.StatusOK.Float()), true
			}
		}

		switch {
		case !point.Time.After(critTs):
			return escalate(lastPoint, model.StatusCrit, t), true
		case !point.Time.After(warnTs):
			atWarningLevel = true
		case !point.Time.After(infoTs):
			atInfoLevel = true
		}
	}

	switch {
	case atWarningLevel:
		return escalate(lastPoint, model.StatusWarn, t), true
	case atInfoLevel:
		return escalate(lastPoint, model.StatusInfo, t), true
	default:
		return model.ChangeValue(lastPoint, model.StatusOK.Float()), true
	}
}

func durationMillis(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// escalate produces the status-valued point for level, attaching the
// standardized metadata message for CRIT and WARN/INFO levels per spec.md
// §4.5 (the WARN-duration message is reused for INFO, per §9 Open
// Questions — preserved verbatim as the corrected spec requires).
func escalate(point model.Transmutation, level model.Status, t model.ThresholdMetForDurationTransform) model.Transmutation {
	next := model.ChangeValue(point, level.Float())
	switch level {
	case model.StatusCrit:
		msg := fmt.Sprintf("<CRIT> threshold hit by %s, with value=%v %s %v, duration longer than %s",
			t.Name, point.OriginalValue, t.Type, t.Threshold, model.FormatDuration(durationMillis(t.CriticalDurationMillis)))
		return next.WithMetadata(msg)
	case model.StatusWarn, model.StatusInfo:
		msg := fmt.Sprintf("<%s> threshold hit by %s, with value=%v %s %v, duration longer than %s",
			levelName(level), t.Name, point.OriginalValue, t.Type, t.Threshold, model.FormatDuration(durationMillis(t.WarnDurationMillis)))
		return next.WithMetadata(msg)
	default:
		return next
	}
}

func levelName(s model.Status) string {
	switch s {
	case model.StatusCrit:
		return "CRIT"
	case model.StatusWarn:
		return "WARN"
	case model.StatusInfo:
		return "INFO"
	default:
		return "OK"
	}
}
