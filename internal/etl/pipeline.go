// Package etl implements the per-Configuration pipeline engine from spec.md
// §4.7: run all Extracts, feed the resulting Matrix through ordered
// Transforms, dispatch to Load sinks, timing the whole run. Grounded on the
// teacher's top-level dispatcher pattern (internal/infrastructure wiring one
// pipeline stage into the next) generalized from alert routing to ETL.
package etl

import (
	"context"
	"log/slog"

	"github.com/MihaiBojin/pyplyn/internal/load"
	"github.com/MihaiBojin/pyplyn/internal/model"
	"github.com/MihaiBojin/pyplyn/internal/sysstatus"
	"github.com/MihaiBojin/pyplyn/internal/transform"
)

const meterName = "etl.pipeline"

// Extractor runs one Extract kind's processor over the subset of extracts it
// recognizes, returning the rows it produced.
type Extractor interface {
	// Kind identifies which model.Extract implementations this Extractor
	// accepts.
	Kind() string
	Process(ctx context.Context, extracts []model.Extract) model.Matrix
}

// Engine runs a single Configuration end to end: Extract -> Transform ->
// Load. One Engine instance is shared across all Configurations; it carries
// no per-run state.
type Engine struct {
	Extractors []Extractor
	Loader     *load.Dispatcher
	Status     *sysstatus.Status
	Logger     *slog.Logger
}

// Run executes c once. The pipeline is single-shot; repetition is the
// Scheduler's responsibility (spec.md §4.7).
func (e *Engine) Run(ctx context.Context, c model.Configuration) {
	if c.Disabled {
		return
	}

	stop := e.Status.Timer(meterName, "run")
	defer stop()

	matrix := e.runExtracts(ctx, c)

	matrix, err := transform.ApplyAll(matrix, c.Transforms)
	if err != nil {
		e.Logger.Error("transform pipeline failed", "config", c.String(), "error", err)
		e.Status.Meter(meterName, sysstatus.Failure)
		return
	}

	results := e.Loader.Push(ctx, matrix, c.Loads)
	succeeded, failed := 0, 0
	for _, r := range results {
		if r.Success {
			succeeded++
		} else {
			failed++
		}
	}
	if failed > 0 {
		e.Status.Meter(meterName, sysstatus.Failure)
	}
	if succeeded > 0 {
		e.Status.Meter(meterName, sysstatus.Success)
	}
}

// runExtracts groups c.Extracts by Kind(), passes each group to the
// Extractor registered for that kind, and concatenates the groups' rows in
// the order each kind first appears among the declared Extracts (spec.md
// §4.7). Rows of different kinds are therefore not interleaved.
func (e *Engine) runExtracts(ctx context.Context, c model.Configuration) model.Matrix {
	byKind := make(map[string][]model.Extract)
	var order []string
	for _, ex := range c.Extracts {
		if _, seen := byKind[ex.Kind()]; !seen {
			order = append(order, ex.Kind())
		}
		byKind[ex.Kind()] = append(byKind[ex.Kind()], ex)
	}

	out := make(model.Matrix, 0, len(c.Extracts))
	for _, kind := range order {
		extractor := e.extractorFor(kind)
		if extractor == nil {
			e.Logger.Warn("no extractor registered for kind", "kind", kind)
			e.Status.Meter(meterName, sysstatus.NoData)
			continue
		}
		out = append(out, extractor.Process(ctx, byKind[kind])...)
	}
	return out
}

func (e *Engine) extractorFor(kind string) Extractor {
	for _, ex := range e.Extractors {
		if ex.Kind() == kind {
			return ex
		}
	}
	return nil
}
