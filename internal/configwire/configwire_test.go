package configwire

import (
	"testing"

	"github.com/MihaiBojin/pyplyn/internal/model"
)

func sampleConfig() model.Configuration {
	def := 1.5
	return model.Configuration{
		Extracts: []model.Extract{
			model.Refocus{EndpointId: "ep1", Name: "cpu.*", FilteredName: "cpu", Default: &def, CacheDuration: 5000},
		},
		Transforms: []model.Transform{
			model.LastDatapointTransform{},
			model.ThresholdMetForDurationTransform{
				Name: "cpu", Threshold: 90, Type: model.GreaterThan,
				CriticalDurationMillis: 60000, WarnDurationMillis: 30000, InfoDurationMillis: 10000,
			},
		},
		Loads: []model.Load{
			model.RefocusLoad{EndpointId: "ep2", Subject: "host1"},
			model.InfluxLoad{EndpointId: "ep3", Measurement: "cpu_usage"},
		},
		RepeatIntervalMillis: 60000,
		Disabled:             false,
		Version:              3,
		Source:               "yaml",
	}
}

func TestRoundTripPreservesStructuralHash(t *testing.T) {
	c := sampleConfig()
	raw, err := Encode(c)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	decoded, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if decoded.Hash() != c.Hash() {
		t.Fatalf("round trip changed structural hash: %s != %s", decoded.Hash(), c.Hash())
	}
	if decoded.Version != c.Version || decoded.Source != c.Source {
		t.Fatalf("round trip lost metadata: %+v", decoded)
	}
}

func TestEncodeSetDecodeSetRoundTrip(t *testing.T) {
	configs := []model.Configuration{sampleConfig(), sampleConfig()}
	configs[1].RepeatIntervalMillis = 120000

	raw, err := EncodeSet(configs)
	if err != nil {
		t.Fatalf("EncodeSet: %v", err)
	}

	decoded, err := DecodeSet(raw)
	if err != nil {
		t.Fatalf("DecodeSet: %v", err)
	}
	if len(decoded) != 2 {
		t.Fatalf("expected 2 configs, got %d", len(decoded))
	}
	if decoded[0].Hash() != configs[0].Hash() || decoded[1].Hash() != configs[1].Hash() {
		t.Fatalf("set round trip changed structural hashes")
	}
}

func TestDecodeUnrecognizedKindFails(t *testing.T) {
	_, err := Decode([]byte(`{"extracts":[{"kind":"bogus"}],"transforms":[],"loads":[]}`))
	if err == nil {
		t.Fatal("expected error for unrecognized extract kind")
	}
}
