// Package configwire is the JSON wire encoding for model.Configuration,
// shared by every component that must move a Configuration across a
// process boundary: the Postgres ConfigurationLoader's JSONB columns, the
// YAMLConfigurationLoader's file format, and the Cluster's replicated set
// (spec.md §6, §8 "Redis-backed ReplicatedSet observed by a second
// RedisCluster instance matches what the master published"). Extract,
// Transform, and Load are tagged variants (interfaces with no exported
// fields of their own), so they need a discriminated-union JSON shape
// instead of plain struct marshaling.
package configwire

import (
	"encoding/json"
	"fmt"

	"github.com/MihaiBojin/pyplyn/internal/model"
)

type extractWire struct {
	Kind          string   `json:"kind"`
	EndpointID    string   `json:"endpointId,omitempty"`
	Name          string   `json:"name,omitempty"`
	FilteredName  string   `json:"filteredName,omitempty"`
	Default       *float64 `json:"default,omitempty"`
	CacheMillis   int64    `json:"cacheMillis,omitempty"`
}

type transformWire struct {
	Kind                   string  `json:"kind"`
	Name                   string  `json:"name,omitempty"`
	Threshold              float64 `json:"threshold,omitempty"`
	Type                   int     `json:"type,omitempty"`
	CriticalDurationMillis int64   `json:"criticalDurationMillis,omitempty"`
	WarnDurationMillis     int64   `json:"warnDurationMillis,omitempty"`
	InfoDurationMillis     int64   `json:"infoDurationMillis,omitempty"`
}

type loadWire struct {
	Kind        string `json:"kind"`
	EndpointID  string `json:"endpointId,omitempty"`
	Subject     string `json:"subject,omitempty"`
	Measurement string `json:"measurement,omitempty"`
}

type configurationWire struct {
	Extracts             []extractWire   `json:"extracts"`
	Transforms           []transformWire `json:"transforms"`
	Loads                []loadWire      `json:"loads"`
	RepeatIntervalMillis int64           `json:"repeatIntervalMillis"`
	Disabled             bool            `json:"disabled"`
	Version              int64           `json:"version,omitempty"`
	Source               string          `json:"source,omitempty"`
}

// Encode renders c as its JSON wire form.
func Encode(c model.Configuration) ([]byte, error) {
	w := configurationWire{
		RepeatIntervalMillis: c.RepeatIntervalMillis,
		Disabled:             c.Disabled,
		Version:              c.Version,
		Source:               c.Source,
	}

	for _, e := range c.Extracts {
		ew, err := encodeExtract(e)
		if err != nil {
			return nil, err
		}
		w.Extracts = append(w.Extracts, ew)
	}
	for _, t := range c.Transforms {
		tw, err := encodeTransform(t)
		if err != nil {
			return nil, err
		}
		w.Transforms = append(w.Transforms, tw)
	}
	for _, l := range c.Loads {
		lw, err := encodeLoad(l)
		if err != nil {
			return nil, err
		}
		w.Loads = append(w.Loads, lw)
	}

	return json.Marshal(w)
}

// EncodeSet renders a slice of Configurations as a JSON array, in the order
// given.
func EncodeSet(configs []model.Configuration) ([]byte, error) {
	wires := make([]configurationWire, 0, len(configs))
	for _, c := range configs {
		raw, err := Encode(c)
		if err != nil {
			return nil, err
		}
		var w configurationWire
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		wires = append(wires, w)
	}
	return json.Marshal(wires)
}

// Decode parses a single Configuration from its JSON wire form.
func Decode(raw []byte) (model.Configuration, error) {
	var w configurationWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return model.Configuration{}, fmt.Errorf("%w: decoding configuration: %v", model.ErrConfig, err)
	}
	return decodeWire(w)
}

// DecodeSet parses a JSON array of Configurations.
func DecodeSet(raw []byte) ([]model.Configuration, error) {
	var wires []configurationWire
	if err := json.Unmarshal(raw, &wires); err != nil {
		return nil, fmt.Errorf("%w: decoding configuration set: %v", model.ErrConfig, err)
	}
	out := make([]model.Configuration, 0, len(wires))
	for _, w := range wires {
		c, err := decodeWire(w)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func decodeWire(w configurationWire) (model.Configuration, error) {
	c := model.Configuration{
		RepeatIntervalMillis: w.RepeatIntervalMillis,
		Disabled:             w.Disabled,
		Version:              w.Version,
		Source:               w.Source,
	}

	for _, ew := range w.Extracts {
		e, err := decodeExtract(ew)
		if err != nil {
			return model.Configuration{}, err
		}
		c.Extracts = append(c.Extracts, e)
	}
	for _, tw := range w.Transforms {
		t, err := decodeTransform(tw)
		if err != nil {
			return model.Configuration{}, err
		}
		c.Transforms = append(c.Transforms, t)
	}
	for _, lw := range w.Loads {
		l, err := decodeLoad(lw)
		if err != nil {
			return model.Configuration{}, err
		}
		c.Loads = append(c.Loads, l)
	}
	return c, nil
}

func encodeExtract(e model.Extract) (extractWire, error) {
	switch ext := e.(type) {
	case model.Refocus:
		w := extractWire{
			Kind:         "refocus",
			EndpointID:   ext.EndpointId,
			Name:         ext.Name,
			FilteredName: ext.FilteredName,
			CacheMillis:  ext.CacheDuration,
		}
		if v, ok := ext.DefaultValue(); ok {
			w.Default = &v
		}
		return w, nil
	default:
		return extractWire{}, fmt.Errorf("%w: unsupported extract kind %q", model.ErrConfig, e.Kind())
	}
}

func decodeExtract(w extractWire) (model.Extract, error) {
	switch w.Kind {
	case "refocus":
		return model.Refocus{
			EndpointId:    w.EndpointID,
			Name:          w.Name,
			FilteredName:  w.FilteredName,
			Default:       w.Default,
			CacheDuration: w.CacheMillis,
		}, nil
	default:
		return nil, fmt.Errorf("%w: unrecognized extract kind %q", model.ErrConfig, w.Kind)
	}
}

func encodeTransform(t model.Transform) (transformWire, error) {
	switch tt := t.(type) {
	case model.LastDatapointTransform:
		return transformWire{Kind: "last_datapoint"}, nil
	case model.InfoStatusTransform:
		return transformWire{Kind: "info_status"}, nil
	case model.ThresholdTransform:
		return transformWire{Kind: "threshold", Threshold: tt.Threshold, Type: int(tt.Type)}, nil
	case model.ThresholdMetForDurationTransform:
		return transformWire{
			Kind:                   "threshold_met_for_duration",
			Name:                   tt.Name,
			Threshold:              tt.Threshold,
			Type:                   int(tt.Type),
			CriticalDurationMillis: tt.CriticalDurationMillis,
			WarnDurationMillis:     tt.WarnDurationMillis,
			InfoDurationMillis:     tt.InfoDurationMillis,
		}, nil
	default:
		return transformWire{}, fmt.Errorf("%w: unsupported transform kind %q", model.ErrConfig, t.Kind())
	}
}

func decodeTransform(w transformWire) (model.Transform, error) {
	switch w.Kind {
	case "last_datapoint":
		return model.LastDatapointTransform{}, nil
	case "info_status":
		return model.InfoStatusTransform{}, nil
	case "threshold":
		return model.ThresholdTransform{Threshold: w.Threshold, Type: model.ThresholdType(w.Type)}, nil
	case "threshold_met_for_duration":
		return model.ThresholdMetForDurationTransform{
			Name:                   w.Name,
			Threshold:              w.Threshold,
			Type:                   model.ThresholdType(w.Type),
			CriticalDurationMillis: w.CriticalDurationMillis,
			WarnDurationMillis:     w.WarnDurationMillis,
			InfoDurationMillis:     w.InfoDurationMillis,
		}, nil
	default:
		return nil, fmt.Errorf("%w: unrecognized transform kind %q", model.ErrConfig, w.Kind)
	}
}

func encodeLoad(l model.Load) (loadWire, error) {
	switch ld := l.(type) {
	case model.RefocusLoad:
		return loadWire{Kind: "refocus", EndpointID: ld.EndpointId, Subject: ld.Subject}, nil
	case model.InfluxLoad:
		return loadWire{Kind: "influx", EndpointID: ld.EndpointId, Measurement: ld.Measurement}, nil
	default:
		return loadWire{}, fmt.Errorf("%w: unsupported load kind %q", model.ErrConfig, l.Kind())
	}
}

func decodeLoad(w loadWire) (model.Load, error) {
	switch w.Kind {
	case "refocus":
		return model.RefocusLoad{EndpointId: w.EndpointID, Subject: w.Subject}, nil
	case "influx":
		return model.InfluxLoad{EndpointId: w.EndpointID, Measurement: w.Measurement}, nil
	default:
		return nil, fmt.Errorf("%w: unrecognized load kind %q", model.ErrConfig, w.Kind)
	}
}
