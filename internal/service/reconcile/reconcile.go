// Package reconcile validates and repairs AI-produced rankings, substituting
// the deterministic keyword ranker when the output is unusable.
package reconcile

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/hireloop/resume-ranker/internal/domain"
	"github.com/hireloop/resume-ranker/internal/service/rankfall"
)

// codeFence matches optional markdown code-fence wrapping, optionally tagged
// json, around the whole payload.
var codeFence = regexp.MustCompile("(?s)^\\s*```(?:json)?\\s*(.*?)\\s*```\\s*$")

// rawRanking mirrors the model-facing response contract with every field
// optional so field-level repair can run.
type rawRanking struct {
	RankedCandidates []rawCandidate `json:"rankedCandidates"`
}

type rawCandidate struct {
	Name           string                     `json:"name"`
	Score          json.RawMessage            `json:"score"`
	Strengths      json.RawMessage            `json:"strengths"`
	Weaknesses     json.RawMessage            `json:"weaknesses"`
	Analysis       string                     `json:"analysis"`
	CategoryScores map[string]json.RawMessage `json:"categoryScores"`
}

// Reconciler repairs model output into a complete RankingResult. It never
// fails: any unrecoverable input falls back to the keyword ranker.
type Reconciler struct {
	// Unscored decides category scores when the model omitted them.
	Unscored UnscoredCategoryPolicy
}

// New returns a Reconciler with the default unscored-category policy.
func New() *Reconciler {
	return &Reconciler{Unscored: RandomBaselinePolicy}
}

// Reconcile parses raw model output and returns a RankingResult with every
// required field populated and entries sorted descending by score.
func (rc *Reconciler) Reconcile(raw string, candidates []domain.Candidate, jobDescription string, weights domain.WeightConfig) domain.RankingResult {
	cleaned := StripCodeFence(raw)

	var parsed rawRanking
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		slog.Warn("ranking response is not valid JSON, using fallback ranker",
			slog.Any("error", err), slog.Int("response_length", len(raw)))
		return rankfall.Rank(candidates, jobDescription, weights)
	}
	if len(parsed.RankedCandidates) == 0 {
		slog.Warn("ranking response has no rankedCandidates, using fallback ranker")
		return rankfall.Rank(candidates, jobDescription, weights)
	}

	ranked := make([]domain.RankedCandidate, 0, len(parsed.RankedCandidates))
	for _, rcand := range parsed.RankedCandidates {
		ranked = append(ranked, rc.repair(rcand))
	}
	res := domain.RankingResult{RankedCandidates: ranked}
	res.SortByScore()
	return res
}

// StripCodeFence removes a surrounding markdown code fence if present.
func StripCodeFence(s string) string {
	if m := codeFence.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return strings.TrimSpace(s)
}

// repair fills every missing or malformed field with its documented default.
func (rc *Reconciler) repair(in rawCandidate) domain.RankedCandidate {
	out := domain.RankedCandidate{
		Name:       strings.TrimSpace(in.Name),
		Score:      50,
		Strengths:  decodeStringList(in.Strengths),
		Weaknesses: decodeStringList(in.Weaknesses),
		Analysis:   strings.TrimSpace(in.Analysis),
	}
	if out.Name == "" {
		out.Name = "Unknown Candidate"
	}
	if v, ok := decodeNumber(in.Score); ok {
		out.Score = domain.ClampScore(v)
	}
	if len(out.Strengths) == 0 {
		out.Strengths = []string{"General professional experience"}
	}
	if out.Weaknesses == nil {
		out.Weaknesses = []string{}
	}
	if out.Analysis == "" {
		out.Analysis = "No detailed analysis was returned for this candidate."
	}

	out.CategoryScores = rc.repairCategoryScores(in.CategoryScores, out.Name)
	return out
}

// repairCategoryScores keeps valid ids, clamps values, and hands fully or
// partially absent maps to the unscored-category policy.
func (rc *Reconciler) repairCategoryScores(in map[string]json.RawMessage, name string) map[domain.CategoryID]int {
	policy := rc.Unscored
	if policy == nil {
		policy = RandomBaselinePolicy
	}
	defaults := policy(name)

	out := make(map[domain.CategoryID]int, 7)
	for _, id := range domain.CategoryIDs() {
		out[id] = defaults[id]
	}
	for key, raw := range in {
		id := domain.CategoryID(key)
		if !domain.ValidCategoryID(id) {
			// Unknown ids from AI suggestions are dropped.
			continue
		}
		if v, ok := decodeNumber(raw); ok {
			out[id] = domain.ClampScore(v)
		}
	}
	return out
}

// decodeNumber accepts a JSON number or a numeric string; models get this
// wrong often enough that both are worth tolerating.
func decodeNumber(raw json.RawMessage) (int, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return int(f), true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		var sf float64
		if _, err := fmt.Sscanf(strings.TrimSpace(s), "%g", &sf); err == nil {
			return int(sf), true
		}
	}
	return 0, false
}

// decodeStringList tolerates non-array or mixed-type payloads, keeping only
// the string entries.
func decodeStringList(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var items []any
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, strings.TrimSpace(s))
		}
	}
	return out
}
