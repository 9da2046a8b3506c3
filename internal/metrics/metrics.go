// Package metrics holds the process counters for degraded paths. The
// registry is an owned, injectable object rather than package globals so
// tests can reset it deterministically.
package metrics

import "sync/atomic"

// Registry counts degraded-path events across all concurrent requests.
type Registry struct {
	scorerFailures      atomic.Int64
	fallbackUsages      atomic.Int64
	ledgerFailures      atomic.Int64
	consistencyDegraded atomic.Int64
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// ScorerFailure records a failed external scorer call.
func (r *Registry) ScorerFailure() { r.scorerFailures.Add(1) }

// FallbackUsage records a scoring request served by the local detectors.
func (r *Registry) FallbackUsage() { r.fallbackUsages.Add(1) }

// LedgerFailure records a failed anchor write.
func (r *Registry) LedgerFailure() { r.ledgerFailures.Add(1) }

// ConsistencyDegraded records a persistence unit that ran without a
// transaction.
func (r *Registry) ConsistencyDegraded() { r.consistencyDegraded.Add(1) }

// Snapshot is a point-in-time copy of all counters.
type Snapshot struct {
	ScorerFailures      int64 `json:"scorer_failures"`
	FallbackUsages      int64 `json:"fallback_usages"`
	LedgerFailures      int64 `json:"ledger_failures"`
	ConsistencyDegraded int64 `json:"consistency_degraded"`
}

// Snapshot returns the current counter values.
func (r *Registry) Snapshot() Snapshot {
	return Snapshot{
		ScorerFailures:      r.scorerFailures.Load(),
		FallbackUsages:      r.fallbackUsages.Load(),
		LedgerFailures:      r.ledgerFailures.Load(),
		ConsistencyDegraded: r.consistencyDegraded.Load(),
	}
}

// Reset zeroes every counter.
func (r *Registry) Reset() {
	r.scorerFailures.Store(0)
	r.fallbackUsages.Store(0)
	r.ledgerFailures.Store(0)
	r.consistencyDegraded.Store(0)
}
