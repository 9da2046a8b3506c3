package trust

import (
	"math/rand"
	"testing"

	"github.com/veritaslab/newstrust/internal/model"
)

func TestComposite(t *testing.T) {
	tests := []struct {
		name        string
		m, f, c     float64
		alpha, beta float64
		want        float64
	}{
		{"defaults", 0.5, 0.5, 0.5, 0.4, 0.4, 0.5},
		{"all high", 1, 1, 1, 0.4, 0.4, 1},
		{"all low", 0, 0, 0, 0.4, 0.4, 0},
		{"context only", 0, 0, 1, 0.4, 0.4, 0.2},
		{"message weighted", 1, 0, 0, 0.5, 0.3, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Composite(tt.m, tt.f, tt.c, tt.alpha, tt.beta)
			if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("Composite() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestComposite_StaysInUnitInterval(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 1000; i++ {
		alpha := rng.Float64()
		beta := rng.Float64() * (1 - alpha)
		got := Composite(rng.Float64(), rng.Float64(), rng.Float64(), alpha, beta)
		if got < 0 || got > 1 {
			t.Fatalf("Composite out of [0,1]: %v (alpha=%v beta=%v)", got, alpha, beta)
		}
	}
}

func TestApplyUpdate(t *testing.T) {
	tests := []struct {
		name      string
		start     model.Author
		score     float64
		wantTrust float64
		wantTotal int
		wantFake  int
	}{
		{"high score rewards", model.Author{TrustScore: 0.5}, 0.8, 0.55, 1, 0},
		{"boundary 0.7 rewards", model.Author{TrustScore: 0.5}, 0.7, 0.55, 1, 0},
		{"low score penalizes", model.Author{TrustScore: 0.5}, 0.2, 0.4, 1, 1},
		{"mid score only counts", model.Author{TrustScore: 0.5}, 0.5, 0.5, 1, 0},
		{"boundary 0.3 only counts", model.Author{TrustScore: 0.5}, 0.3, 0.5, 1, 0},
		{"reward clamps at 1", model.Author{TrustScore: 0.98}, 0.9, 1, 1, 0},
		{"penalty clamps at 0", model.Author{TrustScore: 0.05}, 0.1, 0, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := tt.start
			ApplyUpdate(&a, tt.score)
			if diff := a.TrustScore - tt.wantTrust; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("trust = %v, want %v", a.TrustScore, tt.wantTrust)
			}
			if a.TotalArticles != tt.wantTotal {
				t.Errorf("total = %d, want %d", a.TotalArticles, tt.wantTotal)
			}
			if a.FakeArticles != tt.wantFake {
				t.Errorf("fake = %d, want %d", a.FakeArticles, tt.wantFake)
			}
		})
	}
}

// Incremental application must equal a full replay from the prior, for any
// order of scores. The override recompute depends on this law.
func TestReplay_MatchesIncremental(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 100; trial++ {
		n := rng.Intn(30)
		scores := make([]float64, n)
		for i := range scores {
			scores[i] = rng.Float64()
		}

		incremental := model.Author{TrustScore: TrustPrior}
		for _, s := range scores {
			ApplyUpdate(&incremental, s)
		}

		replayed := model.Author{TrustScore: 0.123, TotalArticles: 99, FakeArticles: 7}
		Replay(&replayed, scores)

		if diff := incremental.TrustScore - replayed.TrustScore; diff > 1e-9 || diff < -1e-9 {
			t.Fatalf("trial %d: incremental trust %v != replayed %v", trial, incremental.TrustScore, replayed.TrustScore)
		}
		if incremental.TotalArticles != replayed.TotalArticles || incremental.FakeArticles != replayed.FakeArticles {
			t.Fatalf("trial %d: counters diverged: %+v vs %+v", trial, incremental, replayed)
		}
	}
}
