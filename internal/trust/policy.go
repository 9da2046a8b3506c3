// Package trust holds the pure scoring policy: the composite formula and
// the author trust update rule. Nothing here touches storage or I/O, which
// is what makes the override-triggered replay possible.
package trust

import "github.com/veritaslab/newstrust/internal/model"

// Thresholds and steps of the author update rule.
const (
	HighScore    = 0.7
	LowScore     = 0.3
	TrustReward  = 0.05
	TrustPenalty = 0.1
	TrustPrior   = 0.5
)

// Composite combines the three sub-scores into f. With M, F, C in [0,1]
// and alpha+beta <= 1 the result stays in [0,1].
func Composite(m, f, c, alpha, beta float64) float64 {
	return alpha*m + beta*f + (1-alpha-beta)*c
}

// ApplyUpdate folds one article score into the author aggregate. High
// scores bump trust by a small step, low scores cost a larger one; both
// clamp to [0,1]. Mid-range scores only count the article.
func ApplyUpdate(author *model.Author, score float64) {
	author.TotalArticles++

	if score >= HighScore {
		author.TrustScore = min(author.TrustScore+TrustReward, 1)
		return
	}
	if score < LowScore {
		author.FakeArticles++
		author.TrustScore = max(author.TrustScore-TrustPenalty, 0)
	}
}

// Replay recomputes an author aggregate from scratch by applying the
// update rule to every score in submission order. Incremental application
// and replay must agree; the override path relies on that.
func Replay(author *model.Author, scores []float64) {
	author.TrustScore = TrustPrior
	author.TotalArticles = 0
	author.FakeArticles = 0
	for _, s := range scores {
		ApplyUpdate(author, s)
	}
}
