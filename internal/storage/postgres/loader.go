package postgres

import (
	"context"
	"fmt"

	"github.com/MihaiBojin/pyplyn/internal/configwire"
	"github.com/MihaiBojin/pyplyn/internal/model"
)

// ConfigurationLoader reads every Configuration in the configurations
// table, disabled ones included (with Disabled set from the row), decoding
// each JSONB payload via configwire.
type ConfigurationLoader struct {
	pool *Pool
}

// NewConfigurationLoader constructs a ConfigurationLoader over pool.
func NewConfigurationLoader(pool *Pool) *ConfigurationLoader {
	return &ConfigurationLoader{pool: pool}
}

// Load implements updatemanager.ConfigurationLoader.
func (l *ConfigurationLoader) Load(ctx context.Context) ([]model.Configuration, error) {
	rows, err := l.pool.pool.Query(ctx, `SELECT id, version, payload, disabled FROM configurations ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("%w: querying configurations: %v", model.ErrConfig, err)
	}
	defer rows.Close()

	var out []model.Configuration
	for rows.Next() {
		var id string
		var version int64
		var payload []byte
		var disabled bool
		if err := rows.Scan(&id, &version, &payload, &disabled); err != nil {
			return nil, fmt.Errorf("%w: scanning configuration row: %v", model.ErrConfig, err)
		}

		c, err := configwire.Decode(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: decoding configuration %s: %v", model.ErrConfig, id, err)
		}
		c.Version = version
		c.Source = "postgres:" + id
		c.Disabled = disabled
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading configurations: %v", model.ErrConfig, err)
	}
	return out, nil
}

// Put upserts a Configuration under id, recording the prior payload in
// configuration_history when the row already existed (SPEC_FULL.md §4.11
// "versioned configurations + configuration_history tables").
func (l *ConfigurationLoader) Put(ctx context.Context, id string, c model.Configuration) error {
	payload, err := configwire.Encode(c)
	if err != nil {
		return fmt.Errorf("%w: encoding configuration %s: %v", model.ErrConfig, id, err)
	}

	tx, err := l.pool.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: beginning transaction: %v", model.ErrTransport, err)
	}
	defer tx.Rollback(ctx)

	var existingVersion int64
	var existingPayload []byte
	err = tx.QueryRow(ctx, `SELECT version, payload FROM configurations WHERE id = $1`, id).
		Scan(&existingVersion, &existingPayload)

	nextVersion := int64(1)
	switch {
	case err == nil:
		nextVersion = existingVersion + 1
		if _, err := tx.Exec(ctx,
			`INSERT INTO configuration_history (configuration_id, version, payload) VALUES ($1, $2, $3)`,
			id, existingVersion, existingPayload); err != nil {
			return fmt.Errorf("%w: recording configuration history for %s: %v", model.ErrTransport, id, err)
		}
		if _, err := tx.Exec(ctx,
			`UPDATE configurations SET version = $2, payload = $3, disabled = $4, updated_at = now() WHERE id = $1`,
			id, nextVersion, payload, c.Disabled); err != nil {
			return fmt.Errorf("%w: updating configuration %s: %v", model.ErrTransport, id, err)
		}
	default:
		if _, err := tx.Exec(ctx,
			`INSERT INTO configurations (id, version, payload, disabled) VALUES ($1, $2, $3, $4)`,
			id, nextVersion, payload, c.Disabled); err != nil {
			return fmt.Errorf("%w: inserting configuration %s: %v", model.ErrTransport, id, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: committing configuration %s: %v", model.ErrTransport, id, err)
	}
	return nil
}
