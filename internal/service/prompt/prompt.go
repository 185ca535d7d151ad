// Package prompt assembles the bounded ranking instruction sent to the model.
package prompt

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/pkoukk/tiktoken-go"

	"github.com/hireloop/resume-ranker/internal/domain"
)

const (
	// candidateDelimiter separates candidate blocks inside the prompt.
	candidateDelimiter = "\n---\n"

	// timePressureThreshold is the candidate count above which the prompt
	// adds an effort-budget notice.
	timePressureThreshold = 5
)

// System is the fixed system-role string for ranking requests.
const System = "You are an experienced technical recruiter. You evaluate candidates " +
	"strictly against the job description and respond only with the JSON object requested."

// Build produces the user-role instruction. Output is deterministic for
// identical inputs: category order follows the weight config, candidate
// order follows the submission.
func Build(jobDescription string, weights domain.WeightConfig, candidates []domain.Candidate) string {
	var b strings.Builder

	b.WriteString("Rank the following candidates for this position.\n\n")
	b.WriteString("JOB DESCRIPTION:\n")
	b.WriteString(jobDescription)
	b.WriteString("\n\n")

	if weights.UseCustomWeights {
		b.WriteString("WEIGHTING RULES (1-10 scale, higher means more important):\n")
		for _, cat := range weights.Categories {
			fmt.Fprintf(&b, "- %s (weight %d): %s\n", cat.Name, cat.Weight, cat.Description)
		}
		b.WriteString("\n")
	} else {
		b.WriteString("Infer category weights from the job description's stated priorities " +
			"(for example, weight location up for in-person roles).\n\n")
	}

	fmt.Fprintf(&b, "CANDIDATES (%d):\n", len(candidates))
	for i, c := range candidates {
		name := c.Name
		if name == "" {
			name = fmt.Sprintf("Candidate %d", i+1)
		}
		fmt.Fprintf(&b, "Candidate: %s\nResume:\n%s", name, c.Resume)
		b.WriteString(candidateDelimiter)
	}

	if len(candidates) > timePressureThreshold {
		b.WriteString("\nThere are many candidates. Keep each analysis brief and do not " +
			"exceed two sentences per candidate so the full response fits.\n")
	}

	b.WriteString("\nRespond with a single JSON object and nothing else. Do not wrap it in " +
		"markdown code fences. Do not add prose before or after it. The object must have " +
		"exactly this shape:\n")
	b.WriteString(`{"rankedCandidates":[{"name":"...","score":0,` +
		`"strengths":["..."],"weaknesses":["..."],"analysis":"...",` +
		`"categoryScores":{"technical_skills":0,"experience":0,"education":0,` +
		`"location":0,"soft_skills":0,"industry_knowledge":0,"certifications":0}}]}`)
	b.WriteString("\nRules: score is an integer 0-100; strengths has 3-5 entries; " +
		"weaknesses has 1-3 entries; analysis is 2-3 sentences; categoryScores values " +
		"are integers 0-100 keyed by exactly the seven ids shown.")

	return b.String()
}

// EstimateTokens returns an approximate token count for sizing max_tokens
// and logging. Falls back to a character heuristic if the encoding is
// unavailable (tiktoken downloads encodings lazily).
func EstimateTokens(text string) int {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		slog.Debug("tiktoken encoding unavailable, using heuristic", slog.Any("error", err))
		return len(text) / 4
	}
	return len(enc.Encode(text, nil, nil))
}
