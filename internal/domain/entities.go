package domain

import (
	"context"
	"errors"
	"sort"
)

// Error taxonomy (sentinels)
var (
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrFileTooLarge      = errors.New("file too large")
	ErrExtractionFailed  = errors.New("extraction failed")
	ErrUpstreamTimeout   = errors.New("upstream timeout")
	ErrUpstreamAuth      = errors.New("upstream auth")
	ErrSchemaInvalid     = errors.New("schema invalid")
	ErrInternal          = errors.New("internal error")
)

// ContentKind selects preprocessing rules for a piece of text.
type ContentKind string

const (
	KindResume         ContentKind = "resume"
	KindJobDescription ContentKind = "jobDescription"
)

// CategoryID is one of the seven fixed evaluation dimensions.
// Unknown ids coming back from the model are dropped during reconciliation.
type CategoryID string

const (
	CategoryTechnicalSkills   CategoryID = "technical_skills"
	CategoryExperience        CategoryID = "experience"
	CategoryEducation         CategoryID = "education"
	CategoryLocation          CategoryID = "location"
	CategorySoftSkills        CategoryID = "soft_skills"
	CategoryIndustryKnowledge CategoryID = "industry_knowledge"
	CategoryCertifications    CategoryID = "certifications"
)

// CategoryIDs lists the closed vocabulary in its canonical order.
func CategoryIDs() []CategoryID {
	return []CategoryID{
		CategoryTechnicalSkills,
		CategoryExperience,
		CategoryEducation,
		CategoryLocation,
		CategorySoftSkills,
		CategoryIndustryKnowledge,
		CategoryCertifications,
	}
}

// ValidCategoryID reports whether id belongs to the closed vocabulary.
func ValidCategoryID(id CategoryID) bool {
	for _, c := range CategoryIDs() {
		if c == id {
			return true
		}
	}
	return false
}

// Candidate is one row of the submission. ID is opaque and client-generated;
// Name may be empty until inference runs. Never persisted server-side.
type Candidate struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Resume   string `json:"resume"`
	Filename string `json:"filename,omitempty"`
}

// WeightCategory carries one scoring dimension with its active weight (1-10).
type WeightCategory struct {
	ID            CategoryID `json:"id" yaml:"id"`
	Name          string     `json:"name" yaml:"name"`
	Description   string     `json:"description" yaml:"description"`
	Weight        int        `json:"weight" yaml:"weight"`
	DefaultWeight int        `json:"default_weight" yaml:"default_weight"`
	AISuggested   bool       `json:"ai_suggested" yaml:"ai_suggested"`
}

// WeightConfig is the ordered category list plus the custom-weights toggle.
// When UseCustomWeights is false the gateway omits explicit weights and the
// model infers them from the job description.
type WeightConfig struct {
	Categories       []WeightCategory `json:"categories" yaml:"categories"`
	UseCustomWeights bool             `json:"use_custom_weights" yaml:"use_custom_weights"`
}

// DefaultWeightConfig returns the seven fixed categories with default weights.
func DefaultWeightConfig() WeightConfig {
	mk := func(id CategoryID, name, desc string, w int) WeightCategory {
		return WeightCategory{ID: id, Name: name, Description: desc, Weight: w, DefaultWeight: w}
	}
	return WeightConfig{Categories: []WeightCategory{
		mk(CategoryTechnicalSkills, "Technical Skills", "Programming languages, tools and technologies relevant to the role", 8),
		mk(CategoryExperience, "Experience", "Years and relevance of prior work experience", 8),
		mk(CategoryEducation, "Education", "Degrees, institutions and academic background", 5),
		mk(CategoryLocation, "Location", "Geographic fit and relocation or remote suitability", 3),
		mk(CategorySoftSkills, "Soft Skills", "Communication, leadership and teamwork", 5),
		mk(CategoryIndustryKnowledge, "Industry Knowledge", "Familiarity with the employer's domain", 5),
		mk(CategoryCertifications, "Certifications", "Professional certifications and licenses", 3),
	}}
}

// ActiveWeight returns the weight to use for id: the configured weight when
// custom weights are enabled, the default otherwise.
func (c WeightConfig) ActiveWeight(id CategoryID) int {
	for _, cat := range c.Categories {
		if cat.ID == id {
			if c.UseCustomWeights {
				return cat.Weight
			}
			return cat.DefaultWeight
		}
	}
	return 5
}

// RankedCandidate is one reconciled entry of the ranking.
// Invariant: after reconciliation every field is populated (defaults applied
// when the source response omitted them) and Score is clamped to [0,100].
type RankedCandidate struct {
	Name           string             `json:"name"`
	Score          int                `json:"score"`
	Strengths      []string           `json:"strengths"`
	Weaknesses     []string           `json:"weaknesses"`
	Analysis       string             `json:"analysis"`
	CategoryScores map[CategoryID]int `json:"categoryScores,omitempty"`
}

// PreprocessStats reports character reduction achieved by preprocessing.
type PreprocessStats struct {
	Original         int     `json:"original"`
	Processed        int     `json:"processed"`
	PercentReduction float64 `json:"percent_reduction"`
}

// RankingResult is the final product of one submission. RankedCandidates is
// sorted non-increasing by score. Results are never merged across
// submissions except when batching concatenates per-batch results before a
// final sort.
type RankingResult struct {
	RankedCandidates []RankedCandidate `json:"rankedCandidates"`
	PreprocessStats  *PreprocessStats  `json:"preprocessStats,omitempty"`
	UsedFallback     bool              `json:"used_fallback"`
}

// SortByScore stable-sorts the ranking in descending score order.
func (r *RankingResult) SortByScore() {
	sort.SliceStable(r.RankedCandidates, func(i, j int) bool {
		return r.RankedCandidates[i].Score > r.RankedCandidates[j].Score
	})
}

// ClampScore bounds a score to [0,100].
func ClampScore(s int) int {
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}

// ChatRequest describes one gateway call. Model selection is explicit and
// injected per call; there is no global mutable model state.
type ChatRequest struct {
	Model       string
	Fallback    string
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int
}

// GatewayErrorKind tags gateway failure paths instead of string-sniffing
// error messages downstream.
type GatewayErrorKind string

const (
	GatewayOK              GatewayErrorKind = ""
	GatewayTimeout         GatewayErrorKind = "timeout"
	GatewayHTTPError       GatewayErrorKind = "http_error"
	GatewayParseError      GatewayErrorKind = "parse_error"
	GatewayAuthError       GatewayErrorKind = "auth_error"
	GatewayContextOverflow GatewayErrorKind = "context_overflow"
)

// ChatResult is the gateway's reply. Text is always non-empty: on exhaustion
// of both tiers it carries a synthetic well-formed JSON payload so callers
// never receive an unparsable result.
type ChatResult struct {
	Text         string
	UsedFallback bool
	Kind         GatewayErrorKind
}

// AIClient (port)
type AIClient interface {
	Chat(ctx Context, req ChatRequest) ChatResult
}

// TextExtractor (port)
// Extract produces plain text from an uploaded document given its declared
// filename. Implementations must honor the size policy and return the
// extraction sentinels on failure.
type TextExtractor interface {
	Extract(ctx Context, filename string, data []byte) (string, error)
}

// Context aliases context.Context so services and adapters share a name with
// the rest of the codebase.
type Context = context.Context
