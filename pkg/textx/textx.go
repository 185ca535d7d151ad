// Package textx provides small text utilities used across the project.
package textx

import (
	"regexp"
	"strings"
)

// SanitizeText removes control characters except tab/newline/CR and trims spaces.
func SanitizeText(s string) string {
	// strip control chars outside tab/newline/carriage return
	var b strings.Builder
	for _, r := range s {
		if r == '\n' || r == '\r' || r == '\t' || (r >= 32 && r != 127) {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

var (
	runWhitespace = regexp.MustCompile(`\s+`)
	sentenceBreak = regexp.MustCompile(`([.!?])\s+`)
)

// NormalizeText collapses run-whitespace to single spaces and reinserts
// paragraph breaks after sentence-ending punctuation. OCR output and naive
// PDF text layers tend to lose paragraph structure; this restores enough of
// it for the section scanner to work with.
func NormalizeText(s string) string {
	s = SanitizeText(s)
	s = runWhitespace.ReplaceAllString(s, " ")
	s = sentenceBreak.ReplaceAllString(s, "$1\n")
	return strings.TrimSpace(s)
}

// Fingerprint reduces a sentence to lower-cased alphanumerics only, used to
// detect near-duplicate sentences.
func Fingerprint(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// SplitSentences splits text into sentences on terminal punctuation,
// keeping the punctuation attached.
func SplitSentences(s string) []string {
	marked := sentenceBreak.ReplaceAllString(s, "$1\x00")
	parts := strings.Split(marked, "\x00")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// TitleCase upper-cases the first letter of each whitespace-separated token
// and lower-cases the rest. strings.Title is deprecated and over-eager on
// punctuation; names only need this simpler rule.
func TitleCase(s string) string {
	fields := strings.Fields(strings.ToLower(s))
	for i, f := range fields {
		r := []rune(f)
		if len(r) > 0 {
			r[0] = []rune(strings.ToUpper(string(r[0])))[0]
		}
		fields[i] = string(r)
	}
	return strings.Join(fields, " ")
}
