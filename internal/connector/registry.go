// Package connector loads and holds the Connector registry from spec.md §6:
// a JSON array of {id, endpoint, username, password (base64), connectTimeout,
// readTimeout, writeTimeout, proxyHost?, proxyPort?} records, keyed by unique
// id. Grounded on the teacher's config-file-loading idiom (read whole file,
// unmarshal, validate) seen in the deleted internal/config package, adapted
// to the connector record shape and to the spec's fresh-read password
// contract.
package connector

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/MihaiBojin/pyplyn/internal/model"
)

// record is the on-disk JSON shape. Timeouts are milliseconds, matching the
// rest of AppConfig's duration fields.
type record struct {
	ID                   string `json:"id"`
	Endpoint             string `json:"endpoint"`
	Username             string `json:"username"`
	Password             string `json:"password"`
	ConnectTimeoutMillis int64  `json:"connectTimeout"`
	ReadTimeoutMillis    int64  `json:"readTimeout"`
	WriteTimeoutMillis   int64  `json:"writeTimeout"`
	ProxyHost            string `json:"proxyHost,omitempty"`
	ProxyPort            int    `json:"proxyPort,omitempty"`
}

// Registry holds the set of Connectors loaded from a connectors file, keyed
// by id. Connectors are treated as immutable once published (spec.md §5).
type Registry struct {
	path string

	mu         sync.RWMutex
	connectors map[string]model.Connector
}

// Load reads and parses the connectors file at path, validating that every
// id is unique and every password decodes as base64.
func Load(path string) (*Registry, error) {
	r := &Registry{path: path}
	if err := r.reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Reload re-reads the connectors file from disk, atomically replacing the
// registry's contents on success. On parse/validation failure the previous
// contents are left untouched.
func (r *Registry) Reload() error {
	return r.reload()
}

func (r *Registry) reload() error {
	raw, err := os.ReadFile(r.path)
	if err != nil {
		return fmt.Errorf("%w: reading connectors file %s: %v", model.ErrConfig, r.path, err)
	}

	var records []record
	if err := json.Unmarshal(raw, &records); err != nil {
		return fmt.Errorf("%w: parsing connectors file %s: %v", model.ErrConfig, r.path, err)
	}

	next := make(map[string]model.Connector, len(records))
	for _, rec := range records {
		if rec.ID == "" {
			return fmt.Errorf("%w: connector record with empty id in %s", model.ErrConfig, r.path)
		}
		if _, dup := next[rec.ID]; dup {
			return fmt.Errorf("%w: duplicate connector id %q in %s", model.ErrConfig, rec.ID, r.path)
		}

		pw, err := base64.StdEncoding.DecodeString(rec.Password)
		if err != nil {
			return fmt.Errorf("%w: connector %s has invalid base64 password: %v", model.ErrConfig, rec.ID, err)
		}

		next[rec.ID] = model.NewConnector(
			rec.ID,
			rec.Endpoint,
			rec.Username,
			pw,
			time.Duration(rec.ConnectTimeoutMillis)*time.Millisecond,
			time.Duration(rec.ReadTimeoutMillis)*time.Millisecond,
			time.Duration(rec.WriteTimeoutMillis)*time.Millisecond,
			rec.ProxyHost,
			rec.ProxyPort,
		)
		model.Zero(pw)
	}

	r.mu.Lock()
	r.connectors = next
	r.mu.Unlock()
	return nil
}

// Get returns the Connector registered under id.
func (r *Registry) Get(id string) (model.Connector, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.connectors[id]
	return c, ok
}

// Len reports the number of registered connectors.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.connectors)
}

// ReadPasswordBytes reads the connectors file fresh from disk and returns a
// copy of the password bytes for id, per spec.md §6: the password is never
// served from the in-memory Registry, only re-read from source on each call.
// The caller must call model.Zero on the returned slice immediately after
// use.
func ReadPasswordBytes(path, id string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading connectors file %s: %v", model.ErrConfig, path, err)
	}
	defer model.Zero(raw)

	var records []record
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("%w: parsing connectors file %s: %v", model.ErrConfig, path, err)
	}

	for _, rec := range records {
		if rec.ID != id {
			continue
		}
		pw, err := base64.StdEncoding.DecodeString(rec.Password)
		if err != nil {
			return nil, fmt.Errorf("%w: connector %s has invalid base64 password: %v", model.ErrConfig, id, err)
		}
		return pw, nil
	}
	return nil, fmt.Errorf("%w: no connector registered with id %q", model.ErrConfig, id)
}
