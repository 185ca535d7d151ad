// Package rankfall implements the deterministic keyword-overlap ranking used
// whenever the AI path is unavailable or untrusted.
package rankfall

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/hireloop/resume-ranker/internal/domain"
)

// FallbackLabel prefixes the analysis text so the UI can flag the entry as a
// fallback ranking.
const FallbackLabel = "Keyword-based fallback ranking"

// stopWords filters common English words that add noise to keyword matching.
var stopWords = map[string]bool{
	"and": true, "the": true, "for": true, "with": true, "you": true,
	"are": true, "have": true, "will": true, "this": true, "that": true,
	"from": true, "our": true, "your": true, "their": true, "they": true,
	"work": true, "team": true, "role": true, "job": true, "join": true,
	"about": true, "which": true, "what": true, "who": true, "how": true,
	"can": true, "not": true, "but": true, "all": true, "also": true,
	"more": true, "than": true, "into": true, "has": true, "its": true,
	"was": true, "were": true, "been": true, "each": true, "new": true,
	"looking": true, "experience": true, "years": true, "strong": true,
	"ability": true, "skills": true, "required": true, "preferred": true,
	"candidate": true, "position": true, "must": true, "plus": true,
}

// ExtractKeywords tokenizes a job description into deduplicated lowercase
// keywords: punctuation stripped, stop words and tokens shorter than three
// characters discarded. Order of first occurrence is preserved.
func ExtractKeywords(jobDescription string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, tok := range strings.Fields(jobDescription) {
		tok = strings.ToLower(strings.Trim(tok, ".,;:!?()[]{}\"'"))
		// Keep three-letter tokens: too many tech keywords are that short
		// (aws, gcp, sql, api).
		if len(tok) < 3 || stopWords[tok] {
			continue
		}
		if seen[tok] {
			continue
		}
		seen[tok] = true
		out = append(out, tok)
	}
	return out
}

// BaselineCategoryScores produces per-category baseline scores in [50,80).
// The rng seed controls determinism; callers seed per candidate name so the
// same submission reproduces the same scores.
func BaselineCategoryScores(rng *rand.Rand) map[domain.CategoryID]int {
	scores := make(map[domain.CategoryID]int, 7)
	for _, id := range domain.CategoryIDs() {
		scores[id] = 50 + rng.Intn(30)
	}
	return scores
}

// seedFor derives a stable per-candidate rand source from the display name.
func seedFor(name string) *rand.Rand {
	var h int64 = 1469598103934665603
	for _, r := range name {
		h ^= int64(r)
		h *= 1099511628211
	}
	return rand.New(rand.NewSource(h))
}

// Rank scores candidates by keyword overlap with the job description and
// returns a complete RankingResult sorted descending by score.
func Rank(candidates []domain.Candidate, jobDescription string, weights domain.WeightConfig) domain.RankingResult {
	keywords := ExtractKeywords(jobDescription)

	ranked := make([]domain.RankedCandidate, 0, len(candidates))
	for i, c := range candidates {
		name := c.Name
		if name == "" {
			name = fmt.Sprintf("Candidate %d", i+1)
		}
		ranked = append(ranked, rankOne(name, c.Resume, keywords, weights))
	}

	res := domain.RankingResult{RankedCandidates: ranked, UsedFallback: true}
	res.SortByScore()
	return res
}

func rankOne(name, resume string, keywords []string, weights domain.WeightConfig) domain.RankedCandidate {
	lower := strings.ToLower(resume)

	var strengths, weaknesses []string
	matched := 0
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			matched++
			if len(strengths) < 5 {
				strengths = append(strengths, "Has experience with "+kw)
			}
		} else if len(weaknesses) < 2 {
			weaknesses = append(weaknesses, "May need more experience with "+kw)
		}
	}
	for len(strengths) < 3 {
		strengths = append(strengths, "Relevant professional background")
	}

	rng := seedFor(name)
	catScores := BaselineCategoryScores(rng)

	// Keyword overlap shifts category baselines before weighting. The bonus
	// range (0-50) exceeds the baseline spread (30) so a clearly better
	// textual match always outranks a clearly worse one regardless of the
	// per-name baseline draw.
	var bonus int
	if len(keywords) > 0 {
		bonus = matched * 50 / len(keywords)
	}
	weightedSum, weightTotal := 0, 0
	for _, id := range domain.CategoryIDs() {
		w := weights.ActiveWeight(id)
		weightedSum += (catScores[id] + bonus) * w
		weightTotal += w
	}
	score := 50
	if weightTotal > 0 {
		score = weightedSum / weightTotal
	}
	if score > 95 {
		score = 95
	}

	analysis := fmt.Sprintf("%s: matched %d of %d keywords from the job description. "+
		"Generated without AI assistance; treat scores as approximate.",
		FallbackLabel, matched, len(keywords))

	return domain.RankedCandidate{
		Name:           name,
		Score:          domain.ClampScore(score),
		Strengths:      strengths,
		Weaknesses:     weaknesses,
		Analysis:       analysis,
		CategoryScores: catScores,
	}
}
