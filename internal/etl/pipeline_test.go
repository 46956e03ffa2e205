package etl

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/MihaiBojin/pyplyn/internal/load"
	"github.com/MihaiBojin/pyplyn/internal/model"
	"github.com/MihaiBojin/pyplyn/internal/sysstatus"
)

// fakeExtract is a minimal model.Extract used only to route through
// fakeExtractor in these tests.
type fakeExtract struct{ name string }

func (f fakeExtract) Kind() string                  { return "fake" }
func (f fakeExtract) EndpointID() string            { return "ep1" }
func (f fakeExtract) CacheKey() string              { return "fake:" + f.name }
func (f fakeExtract) CacheMillis() int64            { return 0 }
func (f fakeExtract) DefaultValue() (float64, bool) { return 0, false }

var _ model.Extract = fakeExtract{}

// fakeExtractor returns one row named "fake" per extract it receives and
// records each call's extracts, so tests can assert on call count and order.
type fakeExtractor struct {
	calls [][]model.Extract
}

func (f *fakeExtractor) Kind() string { return "fake" }

func (f *fakeExtractor) Process(ctx context.Context, extracts []model.Extract) model.Matrix {
	f.calls = append(f.calls, extracts)
	out := make(model.Matrix, 0, len(extracts))
	for range extracts {
		out = append(out, model.Row{model.NewTransmutation(time.Time{}, "fake", 1)})
	}
	return out
}

func newEngine(extractor Extractor) *Engine {
	return &Engine{
		Extractors: []Extractor{extractor},
		Loader:     &load.Dispatcher{Status: sysstatus.New("test", nil), Logger: slog.Default()},
		Status:     sysstatus.New("test", nil),
		Logger:     slog.Default(),
	}
}

func TestRunSkipsDisabledConfiguration(t *testing.T) {
	extractor := &fakeExtractor{}
	engine := newEngine(extractor)

	engine.Run(context.Background(), model.Configuration{
		Extracts: []model.Extract{fakeExtract{name: "a"}},
		Disabled: true,
	})

	if len(extractor.calls) != 0 {
		t.Fatal("expected a disabled Configuration to never reach an Extractor")
	}
}

func TestRunDispatchesExtractsByKindInDeclaredOrder(t *testing.T) {
	extractor := &fakeExtractor{}
	engine := newEngine(extractor)

	c := model.Configuration{
		Extracts: []model.Extract{fakeExtract{name: "a"}, fakeExtract{name: "b"}},
	}
	engine.Run(context.Background(), c)

	if len(extractor.calls) != 1 {
		t.Fatalf("expected one batched call to the fake kind's Extractor, got %d", len(extractor.calls))
	}
	if len(extractor.calls[0]) != 2 {
		t.Fatalf("expected both extracts to be grouped into the same call, got %d", len(extractor.calls[0]))
	}
	if extractor.calls[0][0].(fakeExtract).name != "a" || extractor.calls[0][1].(fakeExtract).name != "b" {
		t.Fatalf("expected extracts in declared order, got %+v", extractor.calls[0])
	}
}

func TestRunSkipsUnrecognizedExtractKind(t *testing.T) {
	extractor := &fakeExtractor{}
	engine := newEngine(extractor)

	c := model.Configuration{
		Extracts: []model.Extract{model.Refocus{EndpointId: "ep1", Name: "cpu", FilteredName: "cpu"}},
	}

	// Refocus extracts are routed to a "refocus"-kind Extractor, which isn't
	// registered here; Run must not panic and must simply produce no rows.
	engine.Run(context.Background(), c)

	if len(extractor.calls) != 0 {
		t.Fatal("expected the fake-kind Extractor to never see a refocus extract")
	}
}
