package model

import "errors"

// Error taxonomy per spec.md §7. These are sentinels meant to be wrapped with
// fmt.Errorf("...: %w", ErrX) and tested with errors.Is.
var (
	// ErrConfig covers missing/invalid configuration or connector records.
	// Fatal at startup; logged and skipped at runtime reload.
	ErrConfig = errors.New("config error")

	// ErrUnauthorized means the remote returned 401 or the auth exchange
	// itself failed.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrTransport covers I/O failures, non-401 HTTP >= 400, and response
	// parse failures. Not retried.
	ErrTransport = errors.New("transport error")

	// ErrNoData means a sample was present but its time or value could not
	// be parsed, or no sample was available at all.
	ErrNoData = errors.New("no data")

	// ErrCancelled means shutdown or per-task cancellation was observed at a
	// stage boundary. Never surfaced as a pipeline failure.
	ErrCancelled = errors.New("cancelled")

	// ErrInternal marks an invariant violation, e.g. AppConnectors missing a
	// registered endpoint.
	ErrInternal = errors.New("internal error")
)
