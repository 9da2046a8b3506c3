package model

import "errors"

// Failure conditions surfaced by the core. Callers branch with errors.Is;
// everything else is wrapped context around one of these.
var (
	// ErrValidation means required input was missing. Raised before any
	// side effect.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound means the referenced article or author does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDownstreamUnavailable means a downstream dependency (scorer,
	// image worker) timed out, answered non-2xx, or its circuit is open.
	ErrDownstreamUnavailable = errors.New("downstream unavailable")

	// ErrLedgerWrite means the anchor write did not reach the ledger. The
	// article keeps a pending/failed anchor status; nothing is retried
	// inline.
	ErrLedgerWrite = errors.New("ledger write failed")
)
