package anchor

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/veritaslab/newstrust/internal/metrics"
	"github.com/veritaslab/newstrust/internal/model"
	"github.com/veritaslab/newstrust/internal/store"
)

// scoreScale is the fixed-point factor mapping a [0,1] score onto the
// ledger's integer type.
const scoreScale = 1_000_000

// ContentHash is the deterministic hash anchoring and verification agree
// on: hex SHA-256 of the article text.
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// ScaleScore converts a trust score to its ledger integer representation.
func ScaleScore(f float64) int64 {
	return int64(math.Round(f * scoreScale))
}

// Service owns anchor writes and verification.
type Service struct {
	store  *store.Store
	ledger Ledger
	reg    *metrics.Registry
	log    *slog.Logger

	// writeTimeout bounds one asynchronous anchor attempt.
	writeTimeout time.Duration
}

// NewService creates the anchoring service.
func NewService(st *store.Store, ledger Ledger, reg *metrics.Registry, log *slog.Logger) *Service {
	return &Service{
		store:        st,
		ledger:       ledger,
		reg:          reg,
		log:          log,
		writeTimeout: 15 * time.Second,
	}
}

// Anchor writes the article's proof to the ledger and records the
// outcome. Already-anchored articles are left alone. A ledger failure
// marks the article failed, counts it and returns ErrLedgerWrite — the
// article itself stays committed, a later pass may re-attempt.
func (s *Service) Anchor(ctx context.Context, articleID uint) error {
	article, err := s.store.ArticleByID(ctx, articleID)
	if err != nil {
		return fmt.Errorf("anchor article %d: %w", articleID, err)
	}
	if article.AnchorStatus == model.AnchorSuccess {
		return nil
	}

	hash := ContentHash(article.Text)
	article.AnchorHash = hash
	article.AnchorStatus = model.AnchorPending
	if err := s.store.SaveArticle(ctx, article); err != nil {
		return fmt.Errorf("record pending anchor: %w", err)
	}

	receipt, err := s.ledger.Write(ctx, hash, ScaleScore(article.Composite))
	if err != nil {
		s.reg.LedgerFailure()
		s.log.Error("ledger write failed",
			"article_id", article.ID,
			"hash", hash,
			"error", err)

		article.AnchorStatus = model.AnchorFailed
		if saveErr := s.store.SaveArticle(ctx, article); saveErr != nil {
			return fmt.Errorf("record failed anchor: %w", saveErr)
		}
		return fmt.Errorf("%w: %v", model.ErrLedgerWrite, err)
	}

	at := receipt.Timestamp
	article.AnchorTxRef = receipt.TxRef
	article.AnchorStatus = model.AnchorSuccess
	article.AnchorAt = &at
	if err := s.store.SaveArticle(ctx, article); err != nil {
		return fmt.Errorf("record anchor success: %w", err)
	}

	s.log.Info("article anchored", "article_id", article.ID, "tx_ref", receipt.TxRef)
	return nil
}

// AnchorAsync fires the anchor write after the scoring unit has
// committed. Failures are logged and counted, never propagated; done (if
// non-nil) is closed when the attempt finishes, which tests use to wait.
func (s *Service) AnchorAsync(articleID uint, done chan<- struct{}) {
	go func() {
		if done != nil {
			defer close(done)
		}
		ctx, cancel := context.WithTimeout(context.Background(), s.writeTimeout)
		defer cancel()
		if err := s.Anchor(ctx, articleID); err != nil {
			s.log.Warn("asynchronous anchor attempt failed", "article_id", articleID, "error", err)
		}
	}()
}

// Verification is the outcome of checking an article against its anchor.
type Verification struct {
	Verified     bool       `json:"verified"`
	TxRef        string     `json:"tx_ref,omitempty"`
	AnchorAt     *time.Time `json:"anchor_at,omitempty"`
	AnchorStatus string     `json:"anchor_status"`
}

// Verify recomputes the content hash of the stored text and compares it
// with the anchored hash; any later tampering with the text flips the
// result to unverified. With strict set, the ledger is also queried by
// hash and the on-chain score cross-checked; a missing proof is
// unverified.
func (s *Service) Verify(ctx context.Context, articleID uint, strict bool) (*Verification, error) {
	article, err := s.store.ArticleByID(ctx, articleID)
	if err != nil {
		return nil, fmt.Errorf("verify article %d: %w", articleID, err)
	}

	status := article.AnchorStatus
	if status == "" {
		status = model.AnchorPending
	}

	v := &Verification{
		TxRef:        article.AnchorTxRef,
		AnchorAt:     article.AnchorAt,
		AnchorStatus: status,
	}

	v.Verified = article.AnchorHash != "" && ContentHash(article.Text) == article.AnchorHash

	if v.Verified && strict {
		proof, err := s.ledger.Read(ctx, article.AnchorHash)
		switch {
		case errors.Is(err, model.ErrNotFound):
			v.Verified = false
		case err != nil:
			return nil, fmt.Errorf("ledger proof lookup: %w", err)
		default:
			v.Verified = proof.ScaledScore == ScaleScore(article.Composite)
		}
	}

	return v, nil
}
