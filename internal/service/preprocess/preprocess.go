// Package preprocess normalizes, de-duplicates and truncates resume and job
// description text to a token-safe character budget before prompting.
package preprocess

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/hireloop/resume-ranker/internal/domain"
	"github.com/hireloop/resume-ranker/pkg/textx"
)

// Budgets are character counts chosen to keep the combined prompt inside the
// model context window with room for the instruction preamble.
const (
	DefaultResumeBudget = 4000
	DefaultJobBudget    = 2000

	// Sentences whose fingerprint is shorter than this are treated as noise.
	minSentenceFingerprint = 10
)

// fillerPhrases is low-information boilerplate stripped outright.
var fillerPhrases = []string{
	"references available upon request",
	"references available on request",
	"available upon request",
	"i am a dedicated",
	"i am a motivated",
	"i am a hardworking",
	"i am passionate about",
	"responsible for",
	"duties included",
	"please do not hesitate to contact me",
	"thank you for your consideration",
}

// Section header keywords, matched case-insensitively as whole words.
var (
	resumeSections = map[string]*regexp.Regexp{
		"SKILLS":         regexp.MustCompile(`(?i)\b(skills|technical skills|core competencies)\b`),
		"EXPERIENCE":     regexp.MustCompile(`(?i)\b(experience|employment|work history|professional experience)\b`),
		"EDUCATION":      regexp.MustCompile(`(?i)\b(education|academic)\b`),
		"PROJECTS":       regexp.MustCompile(`(?i)\b(projects|portfolio)\b`),
		"CERTIFICATIONS": regexp.MustCompile(`(?i)\b(certifications?|licenses?)\b`),
	}
	jobSections = map[string]*regexp.Regexp{
		"REQUIREMENTS":     regexp.MustCompile(`(?i)\b(requirements?|qualifications?|must have)\b`),
		"RESPONSIBILITIES": regexp.MustCompile(`(?i)\b(responsibilities|duties|what you.ll do)\b`),
		"BENEFITS":         regexp.MustCompile(`(?i)\b(benefits|perks|compensation|what we offer)\b`),
		"COMPANY":          regexp.MustCompile(`(?i)\b(company|about us|who we are)\b`),
	}

	// Prioritized re-emission order per content kind; anything else lands in
	// the HEADER bucket and is appended while room remains.
	resumePriority = []string{"SKILLS", "EXPERIENCE", "PROJECTS", "CERTIFICATIONS", "EDUCATION"}
	jobPriority    = []string{"REQUIREMENTS", "RESPONSIBILITIES", "COMPANY", "BENEFITS"}
)

// Result carries the processed text and the reduction achieved.
type Result struct {
	Text  string
	Stats domain.PreprocessStats
}

// Process runs the full pipeline: normalize, strip filler, de-duplicate,
// reorder sections by priority, truncate to budget. Running it twice on its
// own output yields no further reduction.
func Process(text string, kind domain.ContentKind) Result {
	return ProcessWithBudget(text, kind, 0)
}

// ProcessWithBudget is Process with an explicit character budget; budget <= 0
// selects the default for the content kind.
func ProcessWithBudget(text string, kind domain.ContentKind, budget int) Result {
	original := len(text)

	text = normalizeLines(text)
	text = removeFiller(text)
	text = dedupe(text)
	text = reorderAndTruncate(text, kind, budget)

	processed := len(text)
	var pct float64
	if original > 0 && processed < original {
		pct = float64(original-processed) / float64(original) * 100
	}
	return Result{
		Text: text,
		Stats: domain.PreprocessStats{
			Original:         original,
			Processed:        processed,
			PercentReduction: pct,
		},
	}
}

// normalizeLines collapses whitespace per line. Normalizing the whole text
// at once would fold section headers into the following sentence.
func normalizeLines(text string) string {
	lines := strings.Split(text, "\n")
	out := lines[:0]
	for _, line := range lines {
		line = textx.NormalizeText(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

func removeFiller(text string) string {
	lower := strings.ToLower(text)
	for _, phrase := range fillerPhrases {
		for {
			i := strings.Index(lower, phrase)
			if i < 0 {
				break
			}
			text = text[:i] + text[i+len(phrase):]
			lower = lower[:i] + lower[i+len(phrase):]
		}
	}
	return strings.TrimSpace(text)
}

// dedupe drops exact-duplicate paragraphs preserving order, then within each
// paragraph drops sentences whose alphanumeric fingerprint was already seen.
func dedupe(text string) string {
	paragraphs := strings.Split(text, "\n")
	seenPara := make(map[string]bool)
	seenSentence := make(map[string]bool)
	out := make([]string, 0, len(paragraphs))

	for _, para := range paragraphs {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if seenPara[para] {
			continue
		}
		seenPara[para] = true

		kept := make([]string, 0, 4)
		for _, s := range textx.SplitSentences(para) {
			fp := textx.Fingerprint(s)
			// Punctuated fragments below the threshold are noise ("Ok.");
			// unpunctuated short lines may be section headers and must
			// survive to bucketize.
			if len(fp) == 0 || (len(fp) < minSentenceFingerprint && strings.ContainsAny(s, ".!?")) {
				continue
			}
			if seenSentence[fp] {
				continue
			}
			seenSentence[fp] = true
			kept = append(kept, s)
		}
		if len(kept) > 0 {
			out = append(out, strings.Join(kept, " "))
		}
	}
	return strings.Join(out, "\n")
}

// bucketize assigns each line to the most recently seen header's bucket.
// Lines before any header land in the HEADER bucket.
func bucketize(text string, sections map[string]*regexp.Regexp) (map[string][]string, []string) {
	buckets := map[string][]string{}
	order := []string{"HEADER"}
	current := "HEADER"

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		// A short line matching a header keyword switches the bucket.
		if len(line) < 60 {
			for name, re := range sections {
				if re.MatchString(line) {
					current = name
					if _, ok := buckets[current]; !ok {
						order = append(order, current)
					}
					break
				}
			}
		}
		buckets[current] = append(buckets[current], line)
	}
	return buckets, order
}

// reorderAndTruncate re-emits buckets in fixed priority order and greedily
// packs sentences up to the kind's character budget. An over-budget
// prioritized section contributes partial sentences before any
// non-prioritized content is considered.
func reorderAndTruncate(text string, kind domain.ContentKind, budget int) string {
	var (
		sections  map[string]*regexp.Regexp
		priority  []string
		defBudget int
	)
	switch kind {
	case domain.KindJobDescription:
		sections, priority, defBudget = jobSections, jobPriority, DefaultJobBudget
	default:
		sections, priority, defBudget = resumeSections, resumePriority, DefaultResumeBudget
	}
	if budget <= 0 {
		budget = defBudget
	}

	if len(text) <= budget {
		// Still reorder so section priority holds even without truncation.
		return emit(text, sections, priority, len(text))
	}
	return emit(text, sections, priority, budget)
}

func emit(text string, sections map[string]*regexp.Regexp, priority []string, budget int) string {
	buckets, order := bucketize(text, sections)

	var b strings.Builder
	remaining := budget

	appendLines := func(lines []string) {
		for _, line := range lines {
			for _, s := range textx.SplitSentences(line) {
				// The separator counts against the budget too.
				sep := 0
				if b.Len() > 0 {
					sep = 1
				}
				if remaining <= sep {
					return
				}
				chunk := truncateAtRune(s, remaining-sep)
				if sep == 1 {
					b.WriteByte('\n')
				}
				b.WriteString(chunk)
				remaining -= len(chunk) + sep
			}
		}
	}

	for _, name := range priority {
		appendLines(buckets[name])
		delete(buckets, name)
	}
	// HEADER and any unmatched content fill whatever room remains, in the
	// order the sections appeared so output stays deterministic.
	appendLines(buckets["HEADER"])
	delete(buckets, "HEADER")
	for _, name := range order {
		if lines, ok := buckets[name]; ok {
			appendLines(lines)
		}
	}
	return strings.TrimSpace(b.String())
}

// truncateAtRune cuts s to at most n bytes without splitting a UTF-8 rune.
func truncateAtRune(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
