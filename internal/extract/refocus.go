// Package extract implements the Extract processors from spec.md §4.4:
// partition-by-endpoint, parallel-fan-out, cache-probe, remote-call,
// default-value-synthesis pipeline that turns a flat list of Extracts into a
// Matrix. Grounded on the teacher's goroutine-per-partition fan-out idiom
// (seen in its notification/routing dispatch) generalized to Extract's
// per-endpoint grouping.
package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/MihaiBojin/pyplyn/internal/appconnectors"
	"github.com/MihaiBojin/pyplyn/internal/cache"
	"github.com/MihaiBojin/pyplyn/internal/clock"
	"github.com/MihaiBojin/pyplyn/internal/model"
	"github.com/MihaiBojin/pyplyn/internal/remote"
	"github.com/MihaiBojin/pyplyn/internal/sysstatus"
)

const timedOutSentinel = "Timeout"

const defaultValueMetadata = "value defaulted: no remote data available"

// RefocusProcessor implements the algorithm of spec.md §4.4 for the Refocus
// Extract kind.
type RefocusProcessor struct {
	AppConnectors *appconnectors.AppConnectors
	Status        *sysstatus.Status
	Shutdown      *clock.ShutdownSignal
	Logger        *slog.Logger
}

const meterName = "extract.refocus"

// Process runs the full algorithm over extracts, which may span multiple
// endpoints. Rows are ordered within an endpoint's group to match input
// order; ordering between endpoints is unspecified (spec.md §5, §9).
func (p *RefocusProcessor) Process(ctx context.Context, extracts []model.Refocus) model.Matrix {
	groups := partitionByEndpoint(extracts)

	results := make([]model.Matrix, len(groups))
	var wg sync.WaitGroup
	for i, g := range groups {
		wg.Add(1)
		go func(i int, g endpointGroup) {
			defer wg.Done()
			results[i] = p.processEndpoint(ctx, g)
		}(i, g)
	}
	wg.Wait()

	out := make(model.Matrix, 0)
	for _, m := range results {
		out = append(out, m...)
	}
	return out
}

type endpointGroup struct {
	endpointID string
	extracts   []model.Refocus
}

// partitionByEndpoint groups extracts by EndpointID, preserving each group's
// internal order. Group iteration order is deterministic (sorted by
// endpointID) purely so test output is reproducible; spec.md leaves
// inter-endpoint order unspecified.
func partitionByEndpoint(extracts []model.Refocus) []endpointGroup {
	index := make(map[string]int)
	var groups []endpointGroup
	for _, e := range extracts {
		if i, ok := index[e.EndpointId]; ok {
			groups[i].extracts = append(groups[i].extracts, e)
			continue
		}
		index[e.EndpointId] = len(groups)
		groups = append(groups, endpointGroup{endpointID: e.EndpointId, extracts: []model.Refocus{e}})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].endpointID < groups[j].endpointID })
	return groups
}

func (p *RefocusProcessor) processEndpoint(ctx context.Context, g endpointGroup) model.Matrix {
	client, sampleCache, err := p.AppConnectors.Get(ctx, g.endpointID, "refocus")
	if err != nil {
		p.Status.Meter(meterName, sysstatus.Failure)
		p.Logger.Warn("no connector for endpoint", "endpoint", g.endpointID, "error", err)
		return model.Matrix{}
	}

	if err := client.Authenticate(ctx); err != nil {
		p.Status.Meter(meterName, sysstatus.AuthenticationFailure)
		p.Status.Meter(meterName, sysstatus.Failure)
		p.Logger.Warn("authentication failed", "endpoint", g.endpointID, "error", err)
		return model.Matrix{}
	}

	out := make(model.Matrix, 0, len(g.extracts))
	for _, e := range g.extracts {
		row, ok := p.processOne(ctx, client, sampleCache, g.endpointID, e)
		if !ok {
			continue
		}
		out = append(out, model.Row{row})
	}
	return out
}

func (p *RefocusProcessor) processOne(ctx context.Context, client *remote.Client, sampleCache *cache.Cache[model.Sample], endpointID string, e model.Refocus) (model.Transmutation, bool) {
	stop := p.Status.Timer(meterName, "extract")
	defer stop()

	sample, hadSample := p.resolveSample(ctx, client, sampleCache, endpointID, e)
	if !hadSample {
		p.Status.Meter(meterName, sysstatus.NoData)
		return model.Transmutation{}, false
	}

	point, err := p.createResult(sample, e.FilteredName)
	if err != nil {
		p.Status.Meter(meterName, sysstatus.NoData)
		p.Logger.Warn("failed to parse sample", "endpoint", endpointID, "name", e.Name, "error", err)
		return model.Transmutation{}, false
	}

	if sample.wasDefaulted {
		point = point.WithMetadata(defaultValueMetadata)
	}

	p.Status.Meter(meterName, sysstatus.Success)
	return point, true
}

type resolvedSample struct {
	model.Sample
	wasDefaulted bool
}

func (p *RefocusProcessor) resolveSample(ctx context.Context, client *remote.Client, sampleCache *cache.Cache[model.Sample], endpointID string, e model.Refocus) (resolvedSample, bool) {
	if cached, ok := sampleCache.Get(e.CacheKey()); ok {
		return resolvedSample{Sample: cached}, true
	}

	if p.Shutdown != nil && p.Shutdown.IsDraining() {
		return resolvedSample{}, false
	}

	stop := p.Status.Timer(meterName, "remote_call")
	samples, err := p.fetchSamples(ctx, client, endpointID, e.Name)
	stop()
	if err != nil {
		if errors.Is(err, model.ErrUnauthorized) {
			p.Status.Meter(meterName, sysstatus.AuthenticationFailure)
		}
		p.Status.Meter(meterName, sysstatus.Failure)
		p.Logger.Warn("remote call failed", "endpoint", endpointID, "name", e.Name, "error", err)
		return p.defaultOrMiss(e)
	}
	if len(samples) == 0 {
		p.Status.Meter(meterName, sysstatus.Failure)
		return p.defaultOrMiss(e)
	}

	if e.CacheMillis() > 0 {
		for _, s := range samples {
			if !s.TimedOut() {
				sampleCache.Put(s, e.CacheMillis())
			}
		}
	}

	for _, s := range samples {
		if s.CacheKey() == e.CacheKey() {
			if s.TimedOut() {
				return p.defaultOrMiss(e)
			}
			return resolvedSample{Sample: s}, true
		}
	}
	return p.defaultOrMiss(e)
}

func (p *RefocusProcessor) defaultOrMiss(e model.Refocus) (resolvedSample, bool) {
	if v, ok := e.DefaultValue(); ok {
		return resolvedSample{
			Sample: model.Sample{
				Name:      e.FilteredName,
				Value:     strconv.FormatFloat(v, 'f', -1, 64),
				UpdatedAt: clock.System.Now().UTC().Format(time.RFC3339),
				Key:       e.CacheKey(),
			},
			wasDefaulted: true,
		}, true
	}
	return resolvedSample{}, false
}

// refocusSampleWire is the wire shape returned by a Refocus-like endpoint for
// one metric query.
type refocusSampleWire struct {
	Name      string `json:"name"`
	Value     string `json:"value"`
	UpdatedAt string `json:"updatedAt"`
}

// fetchSamples calls the remote endpoint for all samples matching name and
// decodes the response. Grounded on the generic remote.Client request/decode
// shape from internal/remote.
func (p *RefocusProcessor) fetchSamples(ctx context.Context, client *remote.Client, endpointID, name string) ([]model.Sample, error) {
	req := remote.Request{
		Method: "GET",
		URL:    fmt.Sprintf("%s/api/v1/samples?name=%s", client.Endpoint(), name),
	}
	resp, err := client.ExecuteWithAuthRetry(ctx, req, nil)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, nil
	}

	var wire []refocusSampleWire
	if err := json.Unmarshal(resp.Body, &wire); err != nil {
		return nil, fmt.Errorf("%w: decoding refocus response: %v", model.ErrTransport, err)
	}

	out := make([]model.Sample, 0, len(wire))
	for _, w := range wire {
		out = append(out, model.Sample{
			Name:      w.Name,
			Value:     w.Value,
			UpdatedAt: w.UpdatedAt,
			Key:       fmt.Sprintf("refocus:%s:%s", endpointID, w.Name),
		})
	}
	return out, nil
}

// createResult converts a resolved Sample into a Transmutation, parsing its
// timestamp and value per spec.md §4.4 step d.
func (p *RefocusProcessor) createResult(s resolvedSample, filteredName string) (model.Transmutation, error) {
	ts, err := time.Parse(time.RFC3339, s.UpdatedAt)
	if err != nil {
		return model.Transmutation{}, fmt.Errorf("%w: parsing updatedAt %q: %v", model.ErrNoData, s.UpdatedAt, err)
	}

	if s.TimedOut() {
		return model.Transmutation{}, fmt.Errorf("%w: sample timed out", model.ErrNoData)
	}

	value, err := strconv.ParseFloat(s.Value, 64)
	if err != nil {
		return model.Transmutation{}, fmt.Errorf("%w: parsing value %q: %v", model.ErrNoData, s.Value, err)
	}

	return model.NewTransmutation(ts.UTC(), filteredName, value), nil
}
