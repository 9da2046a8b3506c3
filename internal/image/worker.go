// Package image deduplicates submitted images: exact matching by content
// digest and near-duplicate matching by perceptual-hash distance over the
// stored corpus.
package image

import (
	"context"
	"fmt"

	"github.com/veritaslab/newstrust/internal/model"
	"github.com/veritaslab/newstrust/internal/resilient"
)

// WorkerClient calls the external image-analysis worker, which downloads
// the image and produces its content digest and perceptual hash. There is
// no local fallback: a worker failure fails the analysis.
type WorkerClient struct {
	client *resilient.Client
	url    string
}

// NewWorkerClient creates a client for the worker endpoint.
func NewWorkerClient(client *resilient.Client, url string) *WorkerClient {
	return &WorkerClient{client: client, url: url}
}

type workerRequest struct {
	URL     string         `json:"url"`
	Payload map[string]any `json:"payload"`
}

// WorkerResult is the typed contract at the worker boundary.
type WorkerResult struct {
	SHA256      string `json:"sha256"`
	PHash       string `json:"phash"`
	ProcessedAt string `json:"processedAt"`
}

// Analyze asks the worker for the image fingerprints.
func (w *WorkerClient) Analyze(ctx context.Context, imageURL, sourceID string) (*WorkerResult, error) {
	req := workerRequest{
		URL:     imageURL,
		Payload: map[string]any{"sourceId": sourceID},
	}

	var res WorkerResult
	if err := w.client.PostJSON(ctx, w.url, req, &res); err != nil {
		return nil, fmt.Errorf("%w: image worker: %v", model.ErrDownstreamUnavailable, err)
	}
	if res.SHA256 == "" {
		return nil, fmt.Errorf("%w: image worker returned no digest", model.ErrDownstreamUnavailable)
	}
	return &res, nil
}

// Status exposes the worker circuit state.
func (w *WorkerClient) Status() resilient.Status { return w.client.Status() }
