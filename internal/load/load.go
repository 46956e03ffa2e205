// Package load implements the Load processors from spec.md §4.6: each Load
// sink in a Configuration receives the full Matrix; processors execute in
// parallel across sinks and report one bool per sink. Grounded on the same
// fan-out-and-collect idiom as internal/extract, mirrored for the write
// path.
package load

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/MihaiBojin/pyplyn/internal/appconnectors"
	"github.com/MihaiBojin/pyplyn/internal/model"
	"github.com/MihaiBojin/pyplyn/internal/remote"
	"github.com/MihaiBojin/pyplyn/internal/sysstatus"
)

const (
	refocusMeterName = "load.refocus"
	influxMeterName  = "load.influx"
)

// Dispatcher pushes a Matrix to every Load sink declared by a Configuration,
// dispatching by Kind(). Unrecognized kinds are not pushed anywhere: each is
// logged and reported as an unsuccessful Result.
type Dispatcher struct {
	AppConnectors *appconnectors.AppConnectors
	Status        *sysstatus.Status
	Logger        *slog.Logger
}

// Result reports whether a single sink succeeded.
type Result struct {
	Load    model.Load
	Success bool
}

// Push dispatches m to every sink in loads, running them in parallel and
// collecting one Result per sink, in loads' declared order.
func (d *Dispatcher) Push(ctx context.Context, m model.Matrix, loads []model.Load) []Result {
	out := make([]Result, len(loads))
	var wg sync.WaitGroup
	for i, l := range loads {
		wg.Add(1)
		go func(i int, l model.Load) {
			defer wg.Done()
			out[i] = Result{Load: l, Success: d.pushOne(ctx, m, l)}
		}(i, l)
	}
	wg.Wait()
	return out
}

func (d *Dispatcher) pushOne(ctx context.Context, m model.Matrix, l model.Load) bool {
	switch sink := l.(type) {
	case model.RefocusLoad:
		return d.pushRefocus(ctx, m, sink)
	case model.InfluxLoad:
		return d.pushInflux(ctx, m, sink)
	default:
		d.Logger.Warn("unrecognized load kind", "kind", l.Kind())
		return false
	}
}

func (d *Dispatcher) pushRefocus(ctx context.Context, m model.Matrix, sink model.RefocusLoad) bool {
	client, _, err := d.AppConnectors.Get(ctx, sink.EndpointId, "refocus")
	if err != nil {
		d.Status.Meter(refocusMeterName, sysstatus.Failure)
		d.Logger.Warn("no connector for load endpoint", "endpoint", sink.EndpointId, "error", err)
		return false
	}
	return d.push(ctx, client, refocusMeterName, client.Endpoint()+"/api/v1/samples", refocusPayload(m, sink.Subject))
}

func (d *Dispatcher) pushInflux(ctx context.Context, m model.Matrix, sink model.InfluxLoad) bool {
	client, _, err := d.AppConnectors.Get(ctx, sink.EndpointId, "influx")
	if err != nil {
		d.Status.Meter(influxMeterName, sysstatus.Failure)
		d.Logger.Warn("no connector for load endpoint", "endpoint", sink.EndpointId, "error", err)
		return false
	}
	return d.push(ctx, client, influxMeterName, client.Endpoint()+"/write", influxPayload(m, sink.Measurement))
}

func (d *Dispatcher) push(ctx context.Context, client *remote.Client, meterName, url string, body []byte) bool {
	stop := d.Status.Timer(meterName, "push")
	defer stop()

	req := remote.Request{Method: "POST", URL: url, Body: body}
	_, err := client.ExecuteWithAuthRetry(ctx, req, nil)
	if err != nil {
		if errors.Is(err, model.ErrUnauthorized) {
			d.Status.Meter(meterName, sysstatus.AuthenticationFailure)
		}
		d.Status.Meter(meterName, sysstatus.Failure)
		d.Logger.Warn("load push failed", "url", url, "error", err)
		return false
	}
	d.Status.Meter(meterName, sysstatus.Success)
	return true
}

type refocusPoint struct {
	Subject string  `json:"subject"`
	Name    string  `json:"name"`
	Value   float64 `json:"value"`
	Time    int64   `json:"time"`
}

func refocusPayload(m model.Matrix, subject string) []byte {
	var points []refocusPoint
	for _, row := range m {
		for _, cell := range row {
			points = append(points, refocusPoint{
				Subject: subject,
				Name:    cell.Name,
				Value:   cell.Value,
				Time:    cell.Time.UnixMilli(),
			})
		}
	}
	out, _ := json.Marshal(points)
	return out
}

// influxPayload renders m as Influx line protocol: "<measurement>,name=<n>
// value=<v> <unixNano>", one line per cell.
func influxPayload(m model.Matrix, measurement string) []byte {
	var buf bytes.Buffer
	for _, row := range m {
		for _, cell := range row {
			fmt.Fprintf(&buf, "%s,name=%s value=%v %d\n", measurement, cell.Name, cell.Value, cell.Time.UnixNano())
		}
	}
	return buf.Bytes()
}
