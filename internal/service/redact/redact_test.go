package redact_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hireloop/resume-ranker/internal/service/redact"
)

func TestRedact_Email(t *testing.T) {
	t.Parallel()
	out := redact.Redact("Contact me at alice@example.com for details.")
	assert.NotContains(t, out, "@example.com")
	assert.Contains(t, out, redact.EmailPlaceholder)
}

func TestRedact_LinkedIn(t *testing.T) {
	t.Parallel()
	out := redact.Redact("Profile: linkedin.com/in/alice and https://www.linkedin.com/in/alice-smith-123")
	assert.NotContains(t, out, "linkedin.com")
	assert.Contains(t, out, redact.LinkedInPlaceholder)
}

func TestRedact_SocialProfiles(t *testing.T) {
	t.Parallel()
	out := redact.Redact("See github.com/alice, twitter.com/alice, x.com/alice and facebook.com/alice.p")
	assert.NotContains(t, out, "github.com")
	assert.NotContains(t, out, "twitter.com")
	assert.NotContains(t, out, "facebook.com")
	assert.Contains(t, out, redact.GitHubPlaceholder)
	assert.Contains(t, out, redact.TwitterPlaceholder)
	assert.Contains(t, out, redact.FacebookPlaceholder)
}

func TestRedact_PhoneFormats(t *testing.T) {
	t.Parallel()
	for _, phone := range []string{
		"555-123-4567",
		"555.123.4567",
		"(555) 123-4567",
		"+1 555 123 4567",
	} {
		out := redact.Redact("Call " + phone + " anytime")
		assert.NotContains(t, out, phone, "phone %q should be removed", phone)
		assert.Contains(t, out, redact.PhonePlaceholder)
	}
}

func TestRedact_KeepsDateRanges(t *testing.T) {
	t.Parallel()
	out := redact.Redact("Acme Corp, 2019 - 2023. Built things.")
	assert.NotContains(t, out, redact.PhonePlaceholder)
}

func TestRedact_PersonalSiteURL(t *testing.T) {
	t.Parallel()
	out := redact.Redact("Portfolio: https://janedoe.dev/projects and github.com/jane")
	assert.NotContains(t, out, "janedoe.dev")
	assert.Contains(t, out, redact.URLPlaceholder)
	assert.Contains(t, out, redact.GitHubPlaceholder)
}

func TestRedact_Address(t *testing.T) {
	t.Parallel()
	out := redact.Redact("Lives at 123 Main Street, Apt 4B, Springfield")
	assert.NotContains(t, out, "Main Street")
	assert.Contains(t, out, redact.AddressPlaceholder)
}

func TestExtract_ReturnsStrippedValues(t *testing.T) {
	t.Parallel()
	text := "Alice Smith\nalice@example.com\n555-123-4567\ngithub.com/alice"
	filtered, info := redact.Extract(text)

	assert.Equal(t, []string{"alice@example.com"}, info.Emails)
	assert.Equal(t, []string{"555-123-4567"}, info.Phones)
	assert.Equal(t, []string{"github.com/alice"}, info.Links)
	// Extraction never re-inserts values into the filtered text.
	for _, v := range append(append(info.Emails, info.Phones...), info.Links...) {
		assert.NotContains(t, filtered, v)
	}
}

func TestRedact_PureFunction(t *testing.T) {
	t.Parallel()
	in := "bob@corp.io and 555-987-6543"
	assert.Equal(t, redact.Redact(in), redact.Redact(in))
}

func TestFindEmail(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "john.doe@mail.org", redact.FindEmail("reach john.doe@mail.org today"))
	assert.Equal(t, "", redact.FindEmail("no address here"))
}

func TestRedact_NoFalsePlaceholderFlood(t *testing.T) {
	t.Parallel()
	plain := "Senior engineer with ten years of backend experience in Go and Python."
	out := redact.Redact(plain)
	assert.False(t, strings.Contains(out, "REMOVED"), "clean text should pass through: %q", out)
}
