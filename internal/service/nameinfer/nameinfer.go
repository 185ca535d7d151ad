// Package nameinfer derives a candidate display name from resume text, an
// email address, or an uploaded filename.
package nameinfer

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/hireloop/resume-ranker/internal/service/redact"
	"github.com/hireloop/resume-ranker/pkg/textx"
)

// confidenceThreshold gates the text-based heuristic; below it the cascade
// moves on to email and filename derivation.
const confidenceThreshold = 0.4

// Inference is a name guess with a confidence in [0,1].
type Inference struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

var (
	capitalizedName = regexp.MustCompile(`^([A-Z][a-z]+(?:[-'][A-Z][a-z]+)?)(\s+[A-Z][a-z]+(?:[-'][A-Z][a-z]+)?){1,2}$`)
	emailLocalSplit = regexp.MustCompile(`[._\d]+`)
	fileSeparators  = regexp.MustCompile(`[-_.\s]+`)

	// Tokens in filenames that are clearly not part of a person's name.
	nonNameTokens = map[string]bool{
		"resume": true, "cv": true, "curriculum": true, "vitae": true,
		"final": true, "updated": true, "new": true, "copy": true,
		"pdf": true, "doc": true, "docx": true,
	}
)

// Infer runs the heuristic cascade, first success wins:
// capitalized-token sequence near the top of the resume, email local part,
// then filename. A zero-value Inference means nothing usable was found.
func Infer(resumeText, filename string) Inference {
	if inf := fromText(resumeText); inf.Confidence > confidenceThreshold {
		return inf
	}
	if email := redact.FindEmail(resumeText); email != "" {
		if inf := fromEmail(email); inf.Name != "" {
			return inf
		}
	}
	if inf := FromFilename(filename); inf.Name != "" {
		return inf
	}
	return Inference{}
}

// Placeholder returns the generic name assigned when inference fails;
// position is the candidate's 1-based index in the submission.
func Placeholder(position int) string {
	return fmt.Sprintf("Candidate %d", position)
}

// fromText scans the first lines of the resume for a capitalized two-to-three
// token sequence. Confidence grows the closer the match is to the top.
func fromText(text string) Inference {
	lines := strings.Split(text, "\n")
	limit := 5
	if len(lines) < limit {
		limit = len(lines)
	}
	for i := 0; i < limit; i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" || len(line) > 50 {
			continue
		}
		if capitalizedName.MatchString(line) {
			conf := 0.9 - float64(i)*0.15
			return Inference{Name: line, Confidence: conf}
		}
	}
	return Inference{}
}

// fromEmail tokenizes the local part on dots, underscores and digits and
// title-cases the pieces: "john.doe42@x.com" -> "John Doe".
func fromEmail(email string) Inference {
	at := strings.Index(email, "@")
	if at <= 0 {
		return Inference{}
	}
	local := email[:at]
	parts := emailLocalSplit.Split(local, -1)
	kept := parts[:0]
	for _, p := range parts {
		if len(p) >= 2 {
			kept = append(kept, p)
		}
	}
	if len(kept) == 0 {
		return Inference{}
	}
	return Inference{Name: textx.TitleCase(strings.Join(kept, " ")), Confidence: 0.6}
}

// FromFilename derives a name from an uploaded filename: extension stripped,
// separators replaced with spaces, obvious non-name tokens dropped,
// title-cased. "john_doe_resume.pdf" -> "John Doe".
func FromFilename(filename string) Inference {
	if filename == "" {
		return Inference{}
	}
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	tokens := fileSeparators.Split(base, -1)
	kept := tokens[:0]
	for _, tok := range tokens {
		if tok == "" || nonNameTokens[strings.ToLower(tok)] {
			continue
		}
		kept = append(kept, tok)
	}
	if len(kept) == 0 {
		return Inference{}
	}
	return Inference{Name: textx.TitleCase(strings.Join(kept, " ")), Confidence: 0.5}
}
