// Package score orchestrates article scoring: external scorer with local
// fallback, the author/article persistence unit, manual overrides and the
// operational dashboard.
package score

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	gocache "github.com/patrickmn/go-cache"

	"github.com/veritaslab/newstrust/internal/anchor"
	"github.com/veritaslab/newstrust/internal/detect"
	"github.com/veritaslab/newstrust/internal/metrics"
	"github.com/veritaslab/newstrust/internal/model"
	"github.com/veritaslab/newstrust/internal/resilient"
	"github.com/veritaslab/newstrust/internal/scorer"
	"github.com/veritaslab/newstrust/internal/store"
	"github.com/veritaslab/newstrust/internal/trust"
	"gorm.io/gorm"
)

// wordsPerMinute converts word count to estimated reading time.
const wordsPerMinute = 200

// Service is the scoring orchestrator.
type Service struct {
	store    *store.Store
	provider scorer.Provider
	context  *detect.ContextDetector
	anchors  *anchor.Service
	reg      *metrics.Registry
	log      *slog.Logger

	alpha float64
	beta  float64

	// scores is a read-through cache keyed by text hash, in front of the
	// store's unique constraint (which stays the concurrency backstop).
	scores *gocache.Cache

	// circuits exposes each downstream breaker for the dashboard.
	circuits map[string]func() resilient.Status

	// anchorDone, when set, is closed after the async anchor attempt for
	// a scored article finishes. See AnchorNotify.
	anchorDone chan struct{}
}

// AnchorNotify registers a channel closed once the asynchronous anchor
// attempt for the next newly scored article finishes. One-shot callers
// use it to wait out the attempt before exiting; cached results fire no
// attempt and leave the channel open.
func (s *Service) AnchorNotify(ch chan struct{}) {
	s.anchorDone = ch
}

// Deps bundles the orchestrator's collaborators.
type Deps struct {
	Store           *store.Store
	Provider        scorer.Provider
	ContextDetector *detect.ContextDetector
	Anchors         *anchor.Service
	Registry        *metrics.Registry
	Log             *slog.Logger
	Circuits        map[string]func() resilient.Status
}

// NewService creates the orchestrator.
func NewService(deps Deps, scoring model.ScoringConfig, cacheCfg model.CacheConfig) *Service {
	return &Service{
		store:    deps.Store,
		provider: deps.Provider,
		context:  deps.ContextDetector,
		anchors:  deps.Anchors,
		reg:      deps.Registry,
		log:      deps.Log,
		alpha:    scoring.Alpha,
		beta:     scoring.Beta,
		scores:   gocache.New(cacheCfg.TTL, cacheCfg.CleanupInterval),
		circuits: deps.Circuits,
	}
}

// SubmitRequest is one article submission.
type SubmitRequest struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Text        string `json:"text"`
	Source      string `json:"source"`
	AuthorEmail string `json:"authorEmail"`
}

// AuthorSnapshot is the author aggregate as of the request.
type AuthorSnapshot struct {
	Name          string  `json:"name"`
	Email         string  `json:"email"`
	TrustScore    float64 `json:"trust_score"`
	TotalArticles int     `json:"total_articles"`
	FakeArticles  int     `json:"fake_articles"`
}

// ScoreResult is the scoring outcome.
type ScoreResult struct {
	ArticleID    uint           `json:"article_id"`
	TextHash     string         `json:"text_hash"`
	M            float64        `json:"m"`
	F            float64        `json:"f"`
	C            float64        `json:"c"`
	Composite    float64        `json:"composite"`
	FromCache    bool           `json:"from_cache"`
	FallbackUsed bool           `json:"fallback_used"`
	Author       AuthorSnapshot `json:"author"`
}

// cachedScore is what the read-through cache remembers per text hash.
type cachedScore struct {
	articleID uint
	hash      string
	m, f, c   float64
	composite float64
	authorID  uint
}

// ScoreArticle computes or retrieves the article's trust scores.
// Submitting the same text twice returns the stored scores with the
// current author snapshot; nothing is recomputed and no second record is
// created, also under concurrent duplicate submissions.
func (s *Service) ScoreArticle(ctx context.Context, req SubmitRequest) (*ScoreResult, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, fmt.Errorf("%w: text is required", model.ErrValidation)
	}
	if strings.TrimSpace(req.AuthorEmail) == "" {
		return nil, fmt.Errorf("%w: author email is required", model.ErrValidation)
	}

	hash := anchor.ContentHash(req.Text)

	if entry, ok := s.scores.Get(hash); ok {
		return s.fromCached(ctx, entry.(cachedScore))
	}
	if existing, err := s.store.ArticleByTextHash(ctx, hash); err == nil {
		return s.fromExisting(ctx, existing)
	} else if !errors.Is(err, model.ErrNotFound) {
		return nil, fmt.Errorf("article lookup: %w", err)
	}

	sub, fallbackUsed := s.computeScores(ctx, req)
	composite := trust.Composite(sub.M, sub.F, sub.C, s.alpha, s.beta)

	article, author, err := s.persistUnit(ctx, req, hash, sub, composite)
	if errors.Is(err, store.ErrDuplicate) {
		// A racing submission of the same text won; serve its record.
		existing, lookupErr := s.store.ArticleByTextHash(ctx, hash)
		if lookupErr != nil {
			return nil, fmt.Errorf("duplicate resolution: %w", lookupErr)
		}
		return s.fromExisting(ctx, existing)
	}
	if err != nil {
		return nil, err
	}

	s.scores.Set(hash, cachedScore{
		articleID: article.ID,
		hash:      hash,
		m:         sub.M, f: sub.F, c: sub.C,
		composite: composite,
		authorID:  author.ID,
	}, gocache.DefaultExpiration)

	// The anchor write is decoupled from the committed unit: it runs
	// after, never inside, and its failure never reaches this caller.
	s.anchors.AnchorAsync(article.ID, s.anchorDone)

	return &ScoreResult{
		ArticleID:    article.ID,
		TextHash:     hash,
		M:            sub.M,
		F:            sub.F,
		C:            sub.C,
		Composite:    composite,
		FallbackUsed: fallbackUsed,
		Author:       snapshotOf(author),
	}, nil
}

// computeScores asks the external provider and falls back to the local
// detectors on any failure, including an open circuit. The detectors run
// concurrently and are joined before composition.
func (s *Service) computeScores(ctx context.Context, req SubmitRequest) (scorer.Scores, bool) {
	scores, err := s.provider.Score(ctx, scorer.Request{
		URL:         req.URL,
		Title:       req.Title,
		Text:        req.Text,
		Source:      req.Source,
		AuthorEmail: req.AuthorEmail,
	})
	if err == nil {
		return scores.Clamped(), false
	}

	s.reg.ScorerFailure()
	s.reg.FallbackUsage()
	s.log.Warn("external scorer unavailable, using local detectors",
		"provider", s.provider.Name(),
		"error", err)

	var out scorer.Scores
	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		out.M = detect.MessageScore(req.Text)
	}()
	go func() {
		defer wg.Done()
		out.F = detect.FactScore(req.Text)
	}()
	go func() {
		defer wg.Done()
		out.C = s.context.Score(ctx, req.URL, req.Title, req.Text)
	}()
	wg.Wait()

	return out.Clamped(), true
}

// persistUnit runs author lookup-or-create, article creation and the
// author trust update as one unit (atomic when the store supports it).
func (s *Service) persistUnit(ctx context.Context, req SubmitRequest, hash string, sub scorer.Scores, composite float64) (*model.Article, *model.Author, error) {
	words := len(strings.Fields(req.Text))
	article := &model.Article{
		URL:          req.URL,
		Source:       req.Source,
		Title:        req.Title,
		Text:         req.Text,
		TextHash:     hash,
		M:            sub.M,
		F:            sub.F,
		C:            sub.C,
		Composite:    composite,
		WordCount:    words,
		ReadingTime:  (words + wordsPerMinute - 1) / wordsPerMinute,
		AnchorStatus: model.AnchorPending,
	}

	var author *model.Author
	err := s.store.RunUnit(ctx, func(tx *gorm.DB) error {
		var err error
		author, err = s.store.AuthorByEmail(tx, req.AuthorEmail)
		if errors.Is(err, model.ErrNotFound) {
			name := req.Source
			if name == "" {
				name = "Unknown"
			}
			author = &model.Author{
				Name:       name,
				Email:      req.AuthorEmail,
				TrustScore: trust.TrustPrior,
			}
			if err := s.store.CreateAuthor(tx, author); err != nil {
				return err
			}
		} else if err != nil {
			return err
		}

		article.AuthorID = author.ID
		if err := s.store.CreateArticle(tx, article); err != nil {
			return err
		}

		trust.ApplyUpdate(author, composite)
		return s.store.SaveAuthor(tx, author)
	})
	if err != nil {
		return nil, nil, err
	}
	return article, author, nil
}

// fromExisting serves an idempotent hit from the store.
func (s *Service) fromExisting(ctx context.Context, article *model.Article) (*ScoreResult, error) {
	s.scores.Set(article.TextHash, cachedScore{
		articleID: article.ID,
		hash:      article.TextHash,
		m:         article.M, f: article.F, c: article.C,
		composite: article.Composite,
		authorID:  article.AuthorID,
	}, gocache.DefaultExpiration)

	author, err := s.store.AuthorByID(ctx, article.AuthorID)
	if err != nil {
		return nil, fmt.Errorf("author lookup: %w", err)
	}

	return &ScoreResult{
		ArticleID: article.ID,
		TextHash:  article.TextHash,
		M:         article.M,
		F:         article.F,
		C:         article.C,
		Composite: article.Composite,
		FromCache: true,
		Author:    snapshotOf(author),
	}, nil
}

// fromCached serves an idempotent hit from the in-memory cache; the
// author snapshot is still read fresh.
func (s *Service) fromCached(ctx context.Context, entry cachedScore) (*ScoreResult, error) {
	author, err := s.store.AuthorByID(ctx, entry.authorID)
	if err != nil {
		return nil, fmt.Errorf("author lookup: %w", err)
	}
	return &ScoreResult{
		ArticleID: entry.articleID,
		TextHash:  entry.hash,
		M:         entry.m,
		F:         entry.f,
		C:         entry.c,
		Composite: entry.composite,
		FromCache: true,
		Author:    snapshotOf(author),
	}, nil
}

func snapshotOf(a *model.Author) AuthorSnapshot {
	return AuthorSnapshot{
		Name:          a.Name,
		Email:         a.Email,
		TrustScore:    a.TrustScore,
		TotalArticles: a.TotalArticles,
		FakeArticles:  a.FakeArticles,
	}
}

// invalidate drops the cached entry for a text hash.
func (s *Service) invalidate(hash string) {
	s.scores.Delete(hash)
}
