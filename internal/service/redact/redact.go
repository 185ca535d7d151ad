// Package redact strips contact information from resume text before it
// crosses the boundary to an external AI provider.
package redact

import (
	"regexp"
	"strings"
)

// Placeholder tokens inserted in place of removed values.
const (
	EmailPlaceholder    = "[EMAIL REMOVED]"
	PhonePlaceholder    = "[PHONE REMOVED]"
	LinkedInPlaceholder = "[LINKEDIN REMOVED]"
	GitHubPlaceholder   = "[GITHUB REMOVED]"
	TwitterPlaceholder  = "[TWITTER REMOVED]"
	FacebookPlaceholder = "[FACEBOOK REMOVED]"
	URLPlaceholder      = "[URL REMOVED]"
	AddressPlaceholder  = "[ADDRESS REMOVED]"
)

var (
	// RFC-lenient: enough to catch real-world resume emails without
	// attempting full RFC 5322.
	emailRe = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)

	// Dashed, dotted, parenthesized and international phone formats.
	phoneRe = regexp.MustCompile(`(?:\+?\d{1,3}[\s.\-]?)?(?:\(\d{2,4}\)[\s.\-]?)?\d{3}[\s.\-]\d{3,4}[\s.\-]?\d{0,4}`)

	linkedinRe = regexp.MustCompile(`(?i)(?:https?://)?(?:www\.)?linkedin\.com/[A-Za-z0-9_/\-.]+`)
	githubRe   = regexp.MustCompile(`(?i)(?:https?://)?(?:www\.)?github\.com/[A-Za-z0-9_/\-.]+`)
	twitterRe  = regexp.MustCompile(`(?i)(?:https?://)?(?:www\.)?(?:twitter|x)\.com/[A-Za-z0-9_/\-.]+`)
	facebookRe = regexp.MustCompile(`(?i)(?:https?://)?(?:www\.)?facebook\.com/[A-Za-z0-9_/\-.]+`)

	// Remaining schemed URLs (personal sites, portfolios). Runs after the
	// profile patterns so those keep their specific placeholders.
	urlRe = regexp.MustCompile(`(?i)\bhttps?://[^\s<>()\[\]{}"']+`)

	// Simple US-style street addresses: number + street name + suffix.
	addressRe = regexp.MustCompile(`(?i)\b\d{1,5}\s+[A-Za-z0-9.\s]{2,40}?\s(?:street|st|avenue|ave|road|rd|boulevard|blvd|lane|ln|drive|dr|court|ct|circle|cir|way|place|pl)\b\.?(?:,?\s*(?:apt|suite|unit|#)\s*[A-Za-z0-9\-]+)?`)
)

// ContactInfo carries values stripped during redaction for optional local
// display. Extraction never re-inserts them into text sent onward.
type ContactInfo struct {
	Emails    []string `json:"emails,omitempty"`
	Phones    []string `json:"phones,omitempty"`
	Links     []string `json:"links,omitempty"`
	Addresses []string `json:"addresses,omitempty"`
}

// Redact replaces contact information with fixed placeholder tokens.
// It is a pure function of its input.
func Redact(text string) string {
	out, _ := Extract(text)
	return out
}

// Extract redacts text and also returns the values that were removed.
func Extract(text string) (string, ContactInfo) {
	var info ContactInfo

	collect := func(re *regexp.Regexp, placeholder string, sink *[]string) {
		text = re.ReplaceAllStringFunc(text, func(m string) string {
			if sink != nil {
				*sink = append(*sink, strings.TrimSpace(m))
			}
			return placeholder
		})
	}

	// Order matters: profile URLs before the generic phone pattern so digits
	// inside URLs are not misread as phone numbers, emails before phones so
	// numeric local parts survive intact as placeholders.
	collect(emailRe, EmailPlaceholder, &info.Emails)
	collect(linkedinRe, LinkedInPlaceholder, &info.Links)
	collect(githubRe, GitHubPlaceholder, &info.Links)
	collect(twitterRe, TwitterPlaceholder, &info.Links)
	collect(facebookRe, FacebookPlaceholder, &info.Links)
	collect(urlRe, URLPlaceholder, &info.Links)
	collect(addressRe, AddressPlaceholder, &info.Addresses)

	// Phone regex is loose; keep only matches with a plausible digit count
	// so date ranges and zip fragments pass through untouched.
	text = phoneRe.ReplaceAllStringFunc(text, func(m string) string {
		digits := 0
		for _, r := range m {
			if r >= '0' && r <= '9' {
				digits++
			}
		}
		if digits < 7 {
			return m
		}
		info.Phones = append(info.Phones, strings.TrimSpace(m))
		return PhonePlaceholder
	})

	return text, info
}

// FindEmail returns the first email address present in text, or "".
// Name inference uses this before redaction runs.
func FindEmail(text string) string {
	return emailRe.FindString(text)
}
