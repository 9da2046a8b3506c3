// Package anchor writes proofs of (content hash, score) to an external
// ledger and verifies articles against them. The ledger write is
// deliberately decoupled from the scoring transaction: the primary record
// is never blocked or rolled back by a ledger failure.
package anchor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/veritaslab/newstrust/internal/model"
	"github.com/veritaslab/newstrust/internal/resilient"
)

// Receipt is the ledger's acknowledgment of a write.
type Receipt struct {
	TxRef string
	// Timestamp comes from the ledger's own block/commit time, not from
	// this process's clock.
	Timestamp time.Time
}

// Proof is a stored ledger entry for a content hash.
type Proof struct {
	TxRef       string
	ScaledScore int64
	Timestamp   time.Time
}

// Ledger is an opaque append-and-query ledger. Write is write-once per
// hash from this system's perspective; Read returns model.ErrNotFound for
// an unknown hash.
type Ledger interface {
	Write(ctx context.Context, contentHash string, scaledScore int64) (*Receipt, error)
	Read(ctx context.Context, contentHash string) (*Proof, error)
}

// HTTPLedger talks to an anchoring service over the resilient gateway.
type HTTPLedger struct {
	client *resilient.Client
	url    string
}

// NewHTTPLedger creates a ledger client for the given endpoint.
func NewHTTPLedger(client *resilient.Client, url string) *HTTPLedger {
	return &HTTPLedger{client: client, url: url}
}

type ledgerWriteRequest struct {
	Hash        string `json:"hash"`
	ScaledScore int64  `json:"scaledScore"`
}

type ledgerWriteResponse struct {
	TxRef     string `json:"txRef"`
	Timestamp int64  `json:"timestamp"` // unix seconds, ledger block time
}

type ledgerReadRequest struct {
	Hash string `json:"hash"`
}

type ledgerReadResponse struct {
	Found       bool   `json:"found"`
	TxRef       string `json:"txRef"`
	ScaledScore int64  `json:"scaledScore"`
	Timestamp   int64  `json:"timestamp"`
}

// Write submits the proof.
func (l *HTTPLedger) Write(ctx context.Context, contentHash string, scaledScore int64) (*Receipt, error) {
	var resp ledgerWriteResponse
	err := l.client.PostJSON(ctx, l.url+"/anchors", ledgerWriteRequest{Hash: contentHash, ScaledScore: scaledScore}, &resp)
	if err != nil {
		return nil, fmt.Errorf("ledger write: %w", err)
	}
	ts := time.Unix(resp.Timestamp, 0).UTC()
	if resp.Timestamp == 0 {
		ts = time.Now().UTC()
	}
	return &Receipt{TxRef: resp.TxRef, Timestamp: ts}, nil
}

// Read queries the proof for a hash.
func (l *HTTPLedger) Read(ctx context.Context, contentHash string) (*Proof, error) {
	var resp ledgerReadResponse
	err := l.client.PostJSON(ctx, l.url+"/proofs", ledgerReadRequest{Hash: contentHash}, &resp)
	if err != nil {
		return nil, fmt.Errorf("ledger read: %w", err)
	}
	if !resp.Found {
		return nil, fmt.Errorf("%w: no proof for hash", model.ErrNotFound)
	}
	return &Proof{
		TxRef:       resp.TxRef,
		ScaledScore: resp.ScaledScore,
		Timestamp:   time.Unix(resp.Timestamp, 0).UTC(),
	}, nil
}

// Status exposes the ledger circuit state.
func (l *HTTPLedger) Status() resilient.Status { return l.client.Status() }

// MemoryLedger is an in-process ledger for tests and offline runs.
type MemoryLedger struct {
	mu     sync.Mutex
	proofs map[string]Proof
	seq    int
	// FailWrites makes every Write fail, for exercising degraded paths.
	FailWrites bool
}

// NewMemoryLedger creates an empty in-memory ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{proofs: make(map[string]Proof)}
}

// Write stores the proof under the hash. First write wins.
func (m *MemoryLedger) Write(ctx context.Context, contentHash string, scaledScore int64) (*Receipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites {
		return nil, fmt.Errorf("memory ledger: writes disabled")
	}
	if p, ok := m.proofs[contentHash]; ok {
		return &Receipt{TxRef: p.TxRef, Timestamp: p.Timestamp}, nil
	}
	m.seq++
	p := Proof{
		TxRef:       fmt.Sprintf("memtx-%06d", m.seq),
		ScaledScore: scaledScore,
		Timestamp:   time.Now().UTC().Truncate(time.Second),
	}
	m.proofs[contentHash] = p
	return &Receipt{TxRef: p.TxRef, Timestamp: p.Timestamp}, nil
}

// Read returns the stored proof.
func (m *MemoryLedger) Read(ctx context.Context, contentHash string) (*Proof, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.proofs[contentHash]
	if !ok {
		return nil, fmt.Errorf("%w: no proof for hash", model.ErrNotFound)
	}
	return &p, nil
}
