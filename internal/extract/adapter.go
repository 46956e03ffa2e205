package extract

import (
	"context"
	"log/slog"

	"github.com/MihaiBojin/pyplyn/internal/model"
)

// Dispatcher wraps RefocusProcessor so it satisfies the etl.Extractor
// interface: it filters the flat []model.Extract list down to the
// model.Refocus members before delegating, and drops any other kind with a
// warning (that kind belongs to a different Extractor).
type Dispatcher struct {
	*RefocusProcessor
	Logger *slog.Logger
}

// Kind identifies the model.Extract implementation this Dispatcher accepts.
func (d *Dispatcher) Kind() string { return "refocus" }

// Process implements etl.Extractor.
func (d *Dispatcher) Process(ctx context.Context, extracts []model.Extract) model.Matrix {
	refocus := make([]model.Refocus, 0, len(extracts))
	for _, e := range extracts {
		r, ok := e.(model.Refocus)
		if !ok {
			if d.Logger != nil {
				d.Logger.Warn("extract.Dispatcher received a non-refocus extract", "kind", e.Kind())
			}
			continue
		}
		refocus = append(refocus, r)
	}
	return d.RefocusProcessor.Process(ctx, refocus)
}
