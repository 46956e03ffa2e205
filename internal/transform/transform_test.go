package transform

import (
	"strings"
	"testing"
	"time"

	"github.com/MihaiBojin/pyplyn/internal/model"
)

func at(seconds int64) time.Time {
	return time.Unix(seconds, 0).UTC()
}

func TestLastDatapointKeepsLastElementAndDropsEmptyRows(t *testing.T) {
	m := model.Matrix{
		{
			model.NewTransmutation(at(1), "p1", 10),
			model.NewTransmutation(at(2), "p2", 20),
			model.NewTransmutation(at(3), "p3", 30),
		},
		{model.NewTransmutation(at(4), "p4", 5)},
		{},
	}

	out := lastDatapoint(m)

	if len(out) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(out))
	}
	if out[0][0].Value != 30 || out[1][0].Value != 5 {
		t.Fatalf("unexpected values: %+v", out)
	}
}

func TestLastDatapointIsIdempotent(t *testing.T) {
	m := model.Matrix{{
		model.NewTransmutation(at(1), "p1", 10),
		model.NewTransmutation(at(2), "p2", 20),
	}}

	once := lastDatapoint(m)
	twice := lastDatapoint(once)

	if len(once) != len(twice) || once[0][0].Value != twice[0][0].Value {
		t.Fatalf("expected idempotence, got %+v vs %+v", once, twice)
	}
}

func TestInfoStatusClampsOnlyZero(t *testing.T) {
	m := model.Matrix{{
		model.NewTransmutation(at(1), "a", 0),
		model.NewTransmutation(at(1), "a", 1),
		model.NewTransmutation(at(1), "a", 2),
		model.NewTransmutation(at(1), "a", 3),
	}}

	out := infoStatus(m)

	want := []float64{1, 1, 2, 3}
	for i, p := range out[0] {
		if p.Value != want[i] {
			t.Fatalf("cell %d: want %v got %v", i, want[i], p.Value)
		}
	}
}

func TestInfoStatusIsIdempotent(t *testing.T) {
	m := model.Matrix{{model.NewTransmutation(at(1), "a", 0)}}
	once := infoStatus(m)
	twice := infoStatus(once)
	if once[0][0].Value != twice[0][0].Value {
		t.Fatalf("expected idempotence, got %v vs %v", once[0][0].Value, twice[0][0].Value)
	}
}

func TestInfoStatusPreservesOriginalValue(t *testing.T) {
	m := model.Matrix{{model.NewTransmutation(at(1), "a", 0)}}
	out := infoStatus(m)
	if out[0][0].OriginalValue != 0 {
		t.Fatalf("expected OriginalValue preserved as 0, got %v", out[0][0].OriginalValue)
	}
}

func TestEmptyMatrixPassesThroughUnchanged(t *testing.T) {
	empty := model.Matrix{}
	for _, transform := range []model.Transform{
		model.LastDatapointTransform{},
		model.InfoStatusTransform{},
		model.ThresholdTransform{Threshold: 1, Type: model.GreaterThan},
		model.ThresholdMetForDurationTransform{Threshold: 1, Type: model.GreaterThan},
	} {
		out, err := Apply(empty, transform)
		if err != nil {
			t.Fatalf("unexpected error for %s: %v", transform.Kind(), err)
		}
		if len(out) != 0 {
			t.Fatalf("expected empty output for %s, got %+v", transform.Kind(), out)
		}
	}
}

// ThresholdMetForDuration, CRIT scenario: row continuously matches far enough
// back to cross the critical duration threshold.
func TestThresholdMetForDurationEmitsCrit(t *testing.T) {
	tt := model.ThresholdMetForDurationTransform{
		Name:                   "cpu",
		Threshold:              100,
		Type:                   model.GreaterThan,
		CriticalDurationMillis: 60_000,
		WarnDurationMillis:     30_000,
		InfoDurationMillis:     10_000,
	}
	row := model.Row{
		model.NewTransmutation(at(0), "cpu", 200),
		model.NewTransmutation(at(30), "cpu", 150),
		model.NewTransmutation(at(60), "cpu", 120),
		model.NewTransmutation(at(90), "cpu", 110),
	}

	out := thresholdMetForDuration(model.Matrix{row}, tt)

	if len(out) != 1 || len(out[0]) != 1 {
		t.Fatalf("expected single-element output row, got %+v", out)
	}
	got := out[0][0]
	if got.Value != model.StatusCrit.Float() {
		t.Fatalf("expected CRIT, got %v", got.Value)
	}
	if !strings.Contains(got.Metadata[len(got.Metadata)-1], "<CRIT> threshold hit") {
		t.Fatalf("expected CRIT metadata message, got %+v", got.Metadata)
	}
	if got.OriginalValue != 110 {
		t.Fatalf("expected lastPoint's original value (110) preserved, got %v", got.OriginalValue)
	}
}

func TestThresholdMetForDurationEmitsOKWhenBreakIsRecent(t *testing.T) {
	tt := model.ThresholdMetForDurationTransform{
		Name:                   "cpu",
		Threshold:              100,
		Type:                   model.GreaterThan,
		CriticalDurationMillis: 60_000,
		WarnDurationMillis:     30_000,
		InfoDurationMillis:     10_000,
	}
	// lastTs=90s; infoTs=80s; a break at t=85s (matched duration only 5s)
	// falls after both warnTs(60) and infoTs(80), so it is too brief for
	// even INFO.
	row := model.Row{
		model.NewTransmutation(at(85), "cpu", 50),
		model.NewTransmutation(at(90), "cpu", 150),
	}

	out := thresholdMetForDuration(model.Matrix{row}, tt)

	if out[0][0].Value != model.StatusOK.Float() {
		t.Fatalf("expected OK, got %v", out[0][0].Value)
	}
}

func TestThresholdMetForDurationEmitsWarnWhenBreakExceedsWarnDuration(t *testing.T) {
	tt := model.ThresholdMetForDurationTransform{
		Name:                   "cpu",
		Threshold:              100,
		Type:                   model.GreaterThan,
		CriticalDurationMillis: 60_000,
		WarnDurationMillis:     30_000,
		InfoDurationMillis:     10_000,
	}
	// lastTs=90s; warnTs=60s; break at t=0s is far enough back (matched
	// duration 90s >= warnDurationMillis 30s) to satisfy the WARN branch.
	row := model.Row{
		model.NewTransmutation(at(0), "cpu", 50),
		model.NewTransmutation(at(90), "cpu", 150),
	}

	out := thresholdMetForDuration(model.Matrix{row}, tt)

	if out[0][0].Value != model.StatusWarn.Float() {
		t.Fatalf("expected WARN, got %v", out[0][0].Value)
	}
	if !strings.Contains(out[0][0].Metadata[0], "<WARN> threshold hit") {
		t.Fatalf("expected WARN metadata, got %+v", out[0][0].Metadata)
	}
}

func TestThresholdMetForDurationEmitsInfoWhenBreakBetweenWarnAndInfo(t *testing.T) {
	tt := model.ThresholdMetForDurationTransform{
		Name:                   "cpu",
		Threshold:              100,
		Type:                   model.GreaterThan,
		CriticalDurationMillis: 60_000,
		WarnDurationMillis:     30_000,
		InfoDurationMillis:     10_000,
	}
	// lastTs=90s; warnTs=60s; infoTs=80s. A break at t=70s has matched
	// duration 20s: too short for WARN (needs >=30s) but long enough for
	// INFO (needs >=10s). The INFO message still quotes the warn duration,
	// per spec's documented (and preserved) message-reuse behavior.
	row := model.Row{
		model.NewTransmutation(at(70), "cpu", 50),
		model.NewTransmutation(at(90), "cpu", 150),
	}

	out := thresholdMetForDuration(model.Matrix{row}, tt)

	if out[0][0].Value != model.StatusInfo.Float() {
		t.Fatalf("expected INFO, got %v", out[0][0].Value)
	}
	if !strings.Contains(out[0][0].Metadata[0], model.FormatDuration(30_000*time.Millisecond)) {
		t.Fatalf("expected INFO message to quote warn duration, got %+v", out[0][0].Metadata)
	}
}

func TestThresholdMetForDurationDropsEmptyRow(t *testing.T) {
	tt := model.ThresholdMetForDurationTransform{Threshold: 1, Type: model.GreaterThan}
	out := thresholdMetForDuration(model.Matrix{{}}, tt)
	if len(out) != 0 {
		t.Fatalf("expected empty row dropped, got %+v", out)
	}
}

func TestThresholdProducesCritOrOK(t *testing.T) {
	tt := model.ThresholdTransform{Threshold: 10, Type: model.GreaterThan}
	m := model.Matrix{{
		model.NewTransmutation(at(1), "a", 20),
		model.NewTransmutation(at(1), "a", 5),
	}}

	out := threshold(m, tt)

	if out[0][0].Value != model.StatusCrit.Float() {
		t.Fatalf("expected CRIT for value above threshold, got %v", out[0][0].Value)
	}
	if out[0][1].Value != model.StatusOK.Float() {
		t.Fatalf("expected OK for value below threshold, got %v", out[0][1].Value)
	}
}

func TestApplyAllAppliesInDeclaredOrder(t *testing.T) {
	m := model.Matrix{{
		model.NewTransmutation(at(1), "a", 10),
		model.NewTransmutation(at(2), "a", 20),
	}}

	out, err := ApplyAll(m, []model.Transform{
		model.LastDatapointTransform{},
		model.InfoStatusTransform{},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 || len(out[0]) != 1 {
		t.Fatalf("expected single row/cell, got %+v", out)
	}
	if out[0][0].Value != 20 {
		t.Fatalf("expected last datapoint (20) unaffected by InfoStatus (non-zero), got %v", out[0][0].Value)
	}
}

func TestApplyRejectsUnknownTransformKind(t *testing.T) {
	if _, err := Apply(model.Matrix{}, unknownTransform{}); err == nil {
		t.Fatal("expected error for unrecognized transform kind")
	}
}

type unknownTransform struct{}

func (unknownTransform) Kind() string { return "unknown" }
