package score

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/veritaslab/newstrust/internal/model"
	"github.com/veritaslab/newstrust/internal/trust"
)

// OverrideResult reports a manual trust override and the author state
// after the replay.
type OverrideResult struct {
	ArticleID  uint           `json:"article_id"`
	PriorScore float64        `json:"prior_score"`
	NewScore   float64        `json:"new_score"`
	Author     AuthorSnapshot `json:"author"`
}

// OverrideTrust replaces an article's composite score with a manually
// assigned one and recomputes the author's trust aggregates from scratch
// by replaying all of the author's articles in submission order. The
// replay, not an incremental delta, is what keeps the aggregates
// consistent after a score changes retroactively.
func (s *Service) OverrideTrust(ctx context.Context, articleID uint, newScore float64, reason, actor string) (*OverrideResult, error) {
	if newScore < 0 || newScore > 1 {
		return nil, fmt.Errorf("%w: override score must be in [0,1], got %v", model.ErrValidation, newScore)
	}
	if strings.TrimSpace(reason) == "" {
		return nil, fmt.Errorf("%w: override reason is required", model.ErrValidation)
	}

	article, err := s.store.ArticleByID(ctx, articleID)
	if err != nil {
		return nil, fmt.Errorf("override article %d: %w", articleID, err)
	}

	prior := article.Composite
	now := time.Now().UTC()
	article.PriorScore = prior
	article.Composite = newScore
	article.Overridden = true
	article.OverrideReason = reason
	article.OverrideBy = actor
	article.OverrideAt = &now
	if err := s.store.SaveArticle(ctx, article); err != nil {
		return nil, fmt.Errorf("save override: %w", err)
	}

	s.invalidate(article.TextHash)

	author, err := s.store.AuthorByID(ctx, article.AuthorID)
	if err != nil {
		return nil, fmt.Errorf("author lookup: %w", err)
	}

	history, err := s.store.ArticlesByAuthor(ctx, author.ID)
	if err != nil {
		return nil, fmt.Errorf("author history: %w", err)
	}
	scores := make([]float64, len(history))
	for i, a := range history {
		scores[i] = a.Composite
	}
	trust.Replay(author, scores)

	if err := s.store.SaveAuthorDirect(ctx, author); err != nil {
		return nil, fmt.Errorf("save author replay: %w", err)
	}

	s.log.Info("article trust overridden",
		"article_id", articleID,
		"prior", prior,
		"new", newScore,
		"actor", actor)

	return &OverrideResult{
		ArticleID:  articleID,
		PriorScore: prior,
		NewScore:   newScore,
		Author:     snapshotOf(author),
	}, nil
}
