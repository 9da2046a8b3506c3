package scorer

import (
	"context"
	"fmt"

	"github.com/veritaslab/newstrust/internal/model"
	"github.com/veritaslab/newstrust/internal/resilient"
)

// RemoteProvider calls an HTTP scoring service through the resilient
// gateway. The service's historical responses were loose about field
// naming, so decoding is a strict typed contract with explicit defaulting
// rather than optional chaining at every caller.
type RemoteProvider struct {
	client *resilient.Client
	url    string
}

// NewRemoteProvider creates a provider for the given endpoint.
func NewRemoteProvider(client *resilient.Client, url string) (*RemoteProvider, error) {
	if url == "" {
		return nil, fmt.Errorf("remote scorer URL is required")
	}
	return &RemoteProvider{client: client, url: url}, nil
}

// Name identifies the provider.
func (p *RemoteProvider) Name() string { return "remote" }

// remoteResponse accepts both the current and the legacy field names.
type remoteResponse struct {
	M *float64 `json:"M"`
	F *float64 `json:"F"`
	C *float64 `json:"C"`

	MessageScore *float64 `json:"messageScore"`
	FactScore    *float64 `json:"factScore"`
	ContextScore *float64 `json:"contextScore"`
}

func pick(primary, legacy *float64) float64 {
	if primary != nil {
		return *primary
	}
	if legacy != nil {
		return *legacy
	}
	// Absent field defaults to neutral.
	return 0.5
}

// Score posts the article and decodes the sub-scores.
func (p *RemoteProvider) Score(ctx context.Context, req Request) (Scores, error) {
	var resp remoteResponse
	if err := p.client.PostJSON(ctx, p.url, req, &resp); err != nil {
		return Scores{}, fmt.Errorf("%w: remote scorer: %v", model.ErrDownstreamUnavailable, err)
	}

	return Scores{
		M: pick(resp.M, resp.MessageScore),
		F: pick(resp.F, resp.FactScore),
		C: pick(resp.C, resp.ContextScore),
	}.Clamped(), nil
}

// Status exposes the underlying circuit state.
func (p *RemoteProvider) Status() resilient.Status { return p.client.Status() }
