// Package scorer talks to the external scoring service. Providers return
// the three sub-scores; everything else (fallback, composite, persistence)
// is the orchestrator's business.
package scorer

import "context"

// Request is the article payload sent for scoring.
type Request struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Text        string `json:"text"`
	Source      string `json:"source"`
	AuthorEmail string `json:"authorEmail"`
}

// Scores are the message, fact and context sub-scores, each in [0,1].
type Scores struct {
	M float64 `json:"M"`
	F float64 `json:"F"`
	C float64 `json:"C"`
}

// Provider scores an article through some external service.
type Provider interface {
	// Name identifies the provider in logs and status output.
	Name() string

	// Score returns the sub-scores or an error; the caller falls back to
	// the local detectors on any error.
	Score(ctx context.Context, req Request) (Scores, error)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Clamped returns a copy with every sub-score forced into [0,1].
func (s Scores) Clamped() Scores {
	return Scores{M: clamp01(s.M), F: clamp01(s.F), C: clamp01(s.C)}
}
