package score

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/veritaslab/newstrust/internal/anchor"
	"github.com/veritaslab/newstrust/internal/detect"
	"github.com/veritaslab/newstrust/internal/metrics"
	"github.com/veritaslab/newstrust/internal/model"
	"github.com/veritaslab/newstrust/internal/resilient"
	"github.com/veritaslab/newstrust/internal/scorer"
	"github.com/veritaslab/newstrust/internal/store"
)

// stubProvider returns fixed scores or a fixed error.
type stubProvider struct {
	scores scorer.Scores
	err    error
	calls  int
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) Score(ctx context.Context, req scorer.Request) (scorer.Scores, error) {
	p.calls++
	if p.err != nil {
		return scorer.Scores{}, p.err
	}
	return p.scores, nil
}

type testEnv struct {
	svc      *Service
	store    *store.Store
	reg      *metrics.Registry
	provider *stubProvider
	ledger   *anchor.MemoryLedger
}

func newTestEnv(t *testing.T, provider *stubProvider) *testEnv {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := metrics.NewRegistry()
	st, err := store.Open("file:score_"+t.Name()+"?mode=memory&cache=shared", false, log, reg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	ledger := anchor.NewMemoryLedger()
	anchors := anchor.NewService(st, ledger, reg, log)

	cfg := model.DefaultConfig()
	svc := NewService(Deps{
		Store:           st,
		Provider:        provider,
		ContextDetector: detect.NewContextDetector(false, 0, ""),
		Anchors:         anchors,
		Registry:        reg,
		Log:             log,
		Circuits: map[string]func() resilient.Status{
			"scorer": func() resilient.Status { return resilient.Status{} },
		},
	}, cfg.Scoring, cfg.Cache)
	return &testEnv{svc: svc, store: st, reg: reg, provider: provider, ledger: ledger}
}

// scoreAndWaitAnchor submits and blocks until the async anchor attempt
// for that submission has finished.
func (e *testEnv) scoreAndWaitAnchor(t *testing.T, req SubmitRequest) *ScoreResult {
	t.Helper()
	done := make(chan struct{})
	e.svc.AnchorNotify(done)
	res, err := e.svc.ScoreArticle(context.Background(), req)
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if !res.FromCache {
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("anchor attempt did not finish")
		}
	}
	e.svc.AnchorNotify(nil)
	return res
}

func sampleRequest(email string) SubmitRequest {
	return SubmitRequest{
		URL:         "https://news.example.com/story",
		Title:       "Quarterly results announced",
		Text:        "The company reported revenue of 4.2 billion in 2025. \"We exceeded expectations,\" the spokesperson said. Analysts had projected lower figures for the quarter.",
		Source:      "Example Wire",
		AuthorEmail: email,
	}
}

func TestScoreArticle_Validation(t *testing.T) {
	env := newTestEnv(t, &stubProvider{scores: scorer.Scores{M: 0.5, F: 0.5, C: 0.5}})

	_, err := env.svc.ScoreArticle(context.Background(), SubmitRequest{AuthorEmail: "a@b.c"})
	if !errors.Is(err, model.ErrValidation) {
		t.Errorf("empty text: expected ErrValidation, got %v", err)
	}
	_, err = env.svc.ScoreArticle(context.Background(), SubmitRequest{Text: "something"})
	if !errors.Is(err, model.ErrValidation) {
		t.Errorf("empty email: expected ErrValidation, got %v", err)
	}
}

func TestScoreArticle_ProviderPath(t *testing.T) {
	env := newTestEnv(t, &stubProvider{scores: scorer.Scores{M: 0.9, F: 0.8, C: 0.7}})

	res := env.scoreAndWaitAnchor(t, sampleRequest("alice@example.com"))
	if res.FallbackUsed {
		t.Error("provider succeeded, fallback must not be reported")
	}
	// f = 0.4*0.9 + 0.4*0.8 + 0.2*0.7
	want := 0.4*0.9 + 0.4*0.8 + 0.2*0.7
	if math.Abs(res.Composite-want) > 1e-9 {
		t.Errorf("composite = %v, want %v", res.Composite, want)
	}

	// High score: new author moves from the 0.5 prior up by the reward.
	if res.Author.TotalArticles != 1 || res.Author.FakeArticles != 0 {
		t.Errorf("author counters wrong: %+v", res.Author)
	}
	if math.Abs(res.Author.TrustScore-0.55) > 1e-9 {
		t.Errorf("trust = %v, want 0.55", res.Author.TrustScore)
	}

	// The anchor landed asynchronously after the commit.
	got, err := env.store.ArticleByID(context.Background(), res.ArticleID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.AnchorStatus != model.AnchorSuccess {
		t.Errorf("expected anchored article, got status %q", got.AnchorStatus)
	}
	if env.reg.Snapshot().ScorerFailures != 0 {
		t.Error("no scorer failure expected")
	}
}

func TestScoreArticle_FallbackOnProviderFailure(t *testing.T) {
	env := newTestEnv(t, &stubProvider{err: fmt.Errorf("%w: boom", model.ErrDownstreamUnavailable)})

	res := env.scoreAndWaitAnchor(t, sampleRequest("bob@example.com"))
	if !res.FallbackUsed {
		t.Fatal("fallback must be reported when the provider fails")
	}
	for _, v := range []float64{res.M, res.F, res.C, res.Composite} {
		if v < 0 || v > 1 {
			t.Errorf("detector score out of range: %v", v)
		}
	}

	snap := env.reg.Snapshot()
	if snap.ScorerFailures != 1 || snap.FallbackUsages != 1 {
		t.Errorf("expected 1 failure and 1 fallback, got %+v", snap)
	}

	// The article is persisted and the author updated despite degradation.
	if res.Author.TotalArticles != 1 {
		t.Errorf("author must still be updated: %+v", res.Author)
	}
}

func TestScoreArticle_IdempotentResubmission(t *testing.T) {
	env := newTestEnv(t, &stubProvider{scores: scorer.Scores{M: 0.9, F: 0.8, C: 0.7}})
	req := sampleRequest("carol@example.com")

	first := env.scoreAndWaitAnchor(t, req)
	if first.FromCache {
		t.Fatal("first submission must not come from cache")
	}

	second, err := env.svc.ScoreArticle(context.Background(), req)
	if err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if !second.FromCache {
		t.Error("resubmission must be served from cache")
	}
	if second.ArticleID != first.ArticleID {
		t.Error("resubmission must reference the same article")
	}
	if second.Composite != first.Composite {
		t.Error("cached scores must match the original")
	}
	// No recomputation: the provider saw exactly one call.
	if env.provider.calls != 1 {
		t.Errorf("provider called %d times, want 1", env.provider.calls)
	}
	// And the author aggregates did not move again.
	if second.Author.TotalArticles != 1 {
		t.Errorf("resubmission must not update the author: %+v", second.Author)
	}

	var count int64
	if count, err = env.store.CountArticles(context.Background()); err != nil || count != 1 {
		t.Errorf("expected exactly one stored article, got %d (err=%v)", count, err)
	}
}

func TestScoreArticle_StoreHitAfterCacheExpiry(t *testing.T) {
	env := newTestEnv(t, &stubProvider{scores: scorer.Scores{M: 0.6, F: 0.6, C: 0.6}})
	req := sampleRequest("dave@example.com")

	first := env.scoreAndWaitAnchor(t, req)

	// Simulate cache expiry; the store's unique hash still deduplicates.
	env.svc.scores.Flush()

	second, err := env.svc.ScoreArticle(context.Background(), req)
	if err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if !second.FromCache || second.ArticleID != first.ArticleID {
		t.Errorf("store hit must report cached result for the same article: %+v", second)
	}
	if env.provider.calls != 1 {
		t.Errorf("provider called %d times, want 1", env.provider.calls)
	}
}

func TestScoreArticle_LowScoreCountsFake(t *testing.T) {
	env := newTestEnv(t, &stubProvider{scores: scorer.Scores{M: 0.2, F: 0.1, C: 0.2}})

	res := env.scoreAndWaitAnchor(t, sampleRequest("erin@example.com"))
	if res.Author.FakeArticles != 1 {
		t.Errorf("low composite must count as fake: %+v", res.Author)
	}
	if math.Abs(res.Author.TrustScore-0.4) > 1e-9 {
		t.Errorf("trust = %v, want 0.4", res.Author.TrustScore)
	}
}

func TestOverrideTrust_ReplaysAuthor(t *testing.T) {
	env := newTestEnv(t, &stubProvider{scores: scorer.Scores{M: 0.42, F: 0.42, C: 0.42}})

	res := env.scoreAndWaitAnchor(t, sampleRequest("frank@example.com"))
	// 0.42 is mid-band: no reward, no penalty.
	if math.Abs(res.Author.TrustScore-0.5) > 1e-9 {
		t.Fatalf("precondition: trust should stay 0.5, got %v", res.Author.TrustScore)
	}

	out, err := env.svc.OverrideTrust(context.Background(), res.ArticleID, 0.85, "manual fact-check passed", "editor@example.com")
	if err != nil {
		t.Fatalf("override: %v", err)
	}
	if math.Abs(out.PriorScore-0.42) > 1e-9 || out.NewScore != 0.85 {
		t.Errorf("override scores wrong: %+v", out)
	}
	// Replayed from the 0.5 prior with one high article: 0.55.
	if math.Abs(out.Author.TrustScore-0.55) > 1e-9 {
		t.Errorf("replayed trust = %v, want 0.55", out.Author.TrustScore)
	}
	if out.Author.TotalArticles != 1 || out.Author.FakeArticles != 0 {
		t.Errorf("replayed counters wrong: %+v", out.Author)
	}

	got, err := env.store.ArticleByID(context.Background(), res.ArticleID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !got.Overridden || got.OverrideReason == "" || got.OverrideBy != "editor@example.com" || got.OverrideAt == nil {
		t.Errorf("override metadata incomplete: %+v", got)
	}
	if math.Abs(got.PriorScore-0.42) > 1e-9 {
		t.Errorf("prior score not preserved: %v", got.PriorScore)
	}

	// A resubmission after the override serves the overridden score.
	again, err := env.svc.ScoreArticle(context.Background(), sampleRequest("frank@example.com"))
	if err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if !again.FromCache || again.Composite != 0.85 {
		t.Errorf("resubmission must reflect the override: %+v", again)
	}
}

func TestOverrideTrust_Validation(t *testing.T) {
	env := newTestEnv(t, &stubProvider{scores: scorer.Scores{M: 0.5, F: 0.5, C: 0.5}})

	if _, err := env.svc.OverrideTrust(context.Background(), 1, 1.5, "r", "a"); !errors.Is(err, model.ErrValidation) {
		t.Errorf("out-of-range score: expected ErrValidation, got %v", err)
	}
	if _, err := env.svc.OverrideTrust(context.Background(), 1, 0.5, "  ", "a"); !errors.Is(err, model.ErrValidation) {
		t.Errorf("blank reason: expected ErrValidation, got %v", err)
	}
	if _, err := env.svc.OverrideTrust(context.Background(), 9999, 0.5, "r", "a"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("unknown article: expected ErrNotFound, got %v", err)
	}
}

func TestDashboard(t *testing.T) {
	env := newTestEnv(t, &stubProvider{scores: scorer.Scores{M: 0.8, F: 0.8, C: 0.8}})

	env.scoreAndWaitAnchor(t, sampleRequest("gina@example.com"))

	dash, err := env.svc.Dashboard(context.Background())
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if dash.Articles != 1 {
		t.Errorf("articles = %d, want 1", dash.Articles)
	}
	if math.Abs(dash.AverageComposite-0.8) > 1e-9 {
		t.Errorf("average = %v, want 0.8", dash.AverageComposite)
	}
	if !dash.Transactions {
		t.Error("sqlite store should report transaction support")
	}
	if _, ok := dash.Circuits["scorer"]; !ok {
		t.Error("dashboard must expose the scorer circuit")
	}
}
