package image

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/veritaslab/newstrust/internal/model"
	"github.com/veritaslab/newstrust/internal/store"
)

// Engine matches submitted images against the stored corpus and records
// every analyzed image as a future comparison candidate.
//
// The near-duplicate check is a linear scan over all stored perceptual
// hashes. That is O(n) per request by design; the corpus is assumed to
// fit comparison in memory. A larger deployment needs an index here, not
// a quiet change of the matching semantics.
type Engine struct {
	store     *store.Store
	worker    *WorkerClient
	threshold float64
	log       *slog.Logger
}

// NewEngine creates the dedup engine. threshold is the similarity
// percentage (inclusive) at which a near-duplicate counts as reused.
func NewEngine(st *store.Store, worker *WorkerClient, threshold float64, log *slog.Logger) *Engine {
	if threshold <= 0 {
		threshold = 85.0
	}
	return &Engine{store: st, worker: worker, threshold: threshold, log: log}
}

// AnalyzeRequest identifies the image and, optionally, the article to
// attach the result to.
type AnalyzeRequest struct {
	ImageURL  string
	SourceID  string
	ArticleID uint
}

// AnalyzeResult is the dedup outcome.
type AnalyzeResult struct {
	ContentDigest  string    `json:"content_digest"`
	PerceptualHash string    `json:"perceptual_hash"`
	Reused         bool      `json:"reused"`
	Similarity     float64   `json:"similarity"`
	MatchedDigest  string    `json:"matched_digest,omitempty"`
	FirstAppeared  time.Time `json:"first_appeared"`
}

// Analyze fingerprints the image, checks the corpus for exact and
// near-duplicate matches, persists the new record and attaches the
// metadata to the article when one was named.
func (e *Engine) Analyze(ctx context.Context, req AnalyzeRequest) (*AnalyzeResult, error) {
	if req.ImageURL == "" {
		return nil, fmt.Errorf("%w: image URL is required", model.ErrValidation)
	}

	fp, err := e.worker.Analyze(ctx, req.ImageURL, req.SourceID)
	if err != nil {
		return nil, err
	}

	result := &AnalyzeResult{
		ContentDigest:  fp.SHA256,
		PerceptualHash: fp.PHash,
		FirstAppeared:  time.Now().UTC(),
	}

	// Exact match first: same bytes, no scan needed.
	existing, err := e.store.ImageByDigest(ctx, fp.SHA256)
	switch {
	case err == nil:
		result.Reused = true
		result.Similarity = 100
		result.MatchedDigest = existing.Digest
		result.FirstAppeared = existing.FirstAppeared
	case errors.Is(err, model.ErrNotFound):
		if err := e.scanForNearDuplicate(ctx, fp.PHash, result); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("image lookup: %w", err)
	}

	if err := e.persist(ctx, req, result); err != nil {
		return nil, err
	}

	if req.ArticleID != 0 {
		if err := e.attachToArticle(ctx, req.ArticleID, result); err != nil {
			return nil, err
		}
	}

	return result, nil
}

// scanForNearDuplicate walks every stored fingerprint and keeps the best
// Hamming similarity. Records without a usable perceptual hash are
// skipped, never fatal.
func (e *Engine) scanForNearDuplicate(ctx context.Context, phash string, result *AnalyzeResult) error {
	probe := decodeFingerprint(phash)
	if probe == nil {
		return nil
	}
	bitLen := 8 * len(probe)

	corpus, err := e.store.ImageFingerprints(ctx)
	if err != nil {
		return fmt.Errorf("load fingerprints: %w", err)
	}

	best := -1.0
	bestDigest := ""
	for _, img := range corpus {
		candidate := decodeFingerprint(img.PHash)
		d := hammingDistance(probe, candidate)
		if d < 0 {
			continue
		}
		if sim := similarityPercent(d, bitLen); sim > best {
			best = sim
			bestDigest = img.Digest
		}
	}

	if best >= 0 {
		result.Similarity = best
		result.MatchedDigest = bestDigest
		// Ties at the threshold count as reused.
		result.Reused = best >= e.threshold
	}
	if !result.Reused {
		result.MatchedDigest = ""
	}
	return nil
}

func (e *Engine) persist(ctx context.Context, req AnalyzeRequest, result *AnalyzeResult) error {
	record := &model.Image{
		URL:           req.ImageURL,
		SourceID:      req.SourceID,
		Digest:        result.ContentDigest,
		PHash:         result.PerceptualHash,
		Reused:        result.Reused,
		Similarity:    result.Similarity,
		MatchedDigest: result.MatchedDigest,
		FirstAppeared: result.FirstAppeared,
	}

	err := e.store.CreateImage(ctx, record)
	if errors.Is(err, store.ErrDuplicate) {
		// A racing submission stored the same bytes first; the corpus
		// already has this digest, which is all persistence is for.
		e.log.Debug("image record already stored", "digest", result.ContentDigest)
		return nil
	}
	return err
}

func (e *Engine) attachToArticle(ctx context.Context, articleID uint, result *AnalyzeResult) error {
	article, err := e.store.ArticleByID(ctx, articleID)
	if err != nil {
		return fmt.Errorf("attach image to article %d: %w", articleID, err)
	}

	article.ImageDigest = result.ContentDigest
	article.ImagePHash = result.PerceptualHash
	article.ImageReused = result.Reused
	article.ImageSimilarity = result.Similarity
	article.ImageMatched = result.MatchedDigest
	return e.store.SaveArticle(ctx, article)
}
