package reconcile

import (
	"math/rand"

	"github.com/hireloop/resume-ranker/internal/domain"
)

// UnscoredCategoryPolicy decides the category scores for a candidate whose
// response omitted categoryScores. It is a named strategy so the default
// pseudo-random fill can be swapped for a deterministic rule without
// touching the reconciler.
type UnscoredCategoryPolicy func(candidateName string) map[domain.CategoryID]int

// RandomBaselinePolicy fills absent category scores with values in [50,80),
// seeded by the candidate name so repeated reconciliation of the same
// response is stable. This mirrors the fallback ranker's baselines; whether
// absent scores should instead be interpolated from the overall score is an
// open question, hence the strategy type.
func RandomBaselinePolicy(candidateName string) map[domain.CategoryID]int {
	var h int64 = 1469598103934665603
	for _, r := range candidateName {
		h ^= int64(r)
		h *= 1099511628211
	}
	rng := rand.New(rand.NewSource(h))
	scores := make(map[domain.CategoryID]int, 7)
	for _, id := range domain.CategoryIDs() {
		scores[id] = 50 + rng.Intn(30)
	}
	return scores
}

// FlatPolicy returns the same score for every category; useful in tests and
// as the deterministic alternative to RandomBaselinePolicy.
func FlatPolicy(score int) UnscoredCategoryPolicy {
	return func(string) map[domain.CategoryID]int {
		out := make(map[domain.CategoryID]int, 7)
		for _, id := range domain.CategoryIDs() {
			out[id] = domain.ClampScore(score)
		}
		return out
	}
}
