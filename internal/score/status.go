package score

import (
	"context"
	"fmt"

	"github.com/veritaslab/newstrust/internal/metrics"
	"github.com/veritaslab/newstrust/internal/resilient"
)

// Dashboard is the operational snapshot: corpus totals, degradation
// counters and the state of every downstream circuit.
type Dashboard struct {
	Articles         int64                       `json:"articles"`
	AverageComposite float64                     `json:"average_composite"`
	Transactions     bool                        `json:"transactions"`
	Metrics          metrics.Snapshot            `json:"metrics"`
	Circuits         map[string]resilient.Status `json:"circuits"`
}

// Dashboard assembles the snapshot. Circuit states are read live from
// each gateway; counters reflect the process lifetime.
func (s *Service) Dashboard(ctx context.Context) (*Dashboard, error) {
	total, err := s.store.CountArticles(ctx)
	if err != nil {
		return nil, fmt.Errorf("count articles: %w", err)
	}
	avg, err := s.store.AverageComposite(ctx)
	if err != nil {
		return nil, fmt.Errorf("average composite: %w", err)
	}

	circuits := make(map[string]resilient.Status, len(s.circuits))
	for name, status := range s.circuits {
		circuits[name] = status()
	}

	return &Dashboard{
		Articles:         total,
		AverageComposite: avg,
		Transactions:     s.store.Capabilities().Transactions,
		Metrics:          s.reg.Snapshot(),
		Circuits:         circuits,
	}, nil
}
