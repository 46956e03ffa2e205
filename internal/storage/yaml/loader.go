// Package yaml implements the file-backed ConfigurationLoader from spec.md
// §4.3: a directory of YAML documents, each decoding to one or more
// Configurations. Grounded on the teacher's registry-style directory
// loaders (internal/connector/registry.go in this module, itself adapted
// from the teacher's JSON connector registry) for the "read a directory,
// build a flat slice" shape; the YAML documents themselves reuse
// internal/configwire's "kind"-discriminated wire format so a YAML file and
// a Postgres JSONB row describe a Configuration identically.
package yaml

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	goyaml "gopkg.in/yaml.v3"

	"github.com/MihaiBojin/pyplyn/internal/configwire"
	"github.com/MihaiBojin/pyplyn/internal/model"
)

// ConfigurationLoader reads every *.yaml / *.yml file under Dir and decodes
// it as a configwire-encoded []Configuration document.
type ConfigurationLoader struct {
	Dir string
}

// New constructs a ConfigurationLoader rooted at dir.
func New(dir string) *ConfigurationLoader {
	return &ConfigurationLoader{Dir: dir}
}

// Load implements updatemanager.ConfigurationLoader. Files are read in
// lexical order so the resulting slice (and therefore Configuration.Source
// provenance) is deterministic across runs.
func (l *ConfigurationLoader) Load(ctx context.Context) ([]model.Configuration, error) {
	entries, err := os.ReadDir(l.Dir)
	if err != nil {
		return nil, fmt.Errorf("%w: reading configurations directory %s: %v", model.ErrConfig, l.Dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if ext == ".yaml" || ext == ".yml" {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var out []model.Configuration
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		path := filepath.Join(l.Dir, name)
		configs, err := l.loadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w: loading %s: %v", model.ErrConfig, path, err)
		}
		for i := range configs {
			if configs[i].Source == "" {
				configs[i].Source = name
			}
		}
		out = append(out, configs...)
	}
	return out, nil
}

// loadFile decodes one YAML document into a slice of Configurations by
// round-tripping it through JSON and delegating to configwire.DecodeSet,
// since yaml.v3 already unmarshals into JSON-compatible
// map[string]interface{}/[]interface{} values.
func (l *ConfigurationLoader) loadFile(path string) ([]model.Configuration, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var doc any
	if err := goyaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parsing yaml: %w", err)
	}

	asJSON, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("converting yaml document to json: %w", err)
	}

	return configwire.DecodeSet(asJSON)
}
