// Package usecase contains application business logic services.
package usecase

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hireloop/resume-ranker/internal/config"
	"github.com/hireloop/resume-ranker/internal/domain"
	"github.com/hireloop/resume-ranker/internal/observability"
	"github.com/hireloop/resume-ranker/internal/service/preprocess"
	"github.com/hireloop/resume-ranker/internal/service/prompt"
	"github.com/hireloop/resume-ranker/internal/service/rankfall"
	"github.com/hireloop/resume-ranker/internal/service/reconcile"
	"github.com/hireloop/resume-ranker/internal/service/redact"
)

// RankService runs the full submission pipeline: redact -> preprocess ->
// prompt -> gateway -> reconcile, chunked into sequential batches.
type RankService struct {
	Cfg        config.Config
	AI         domain.AIClient
	Reconciler *reconcile.Reconciler
}

// NewRankService constructs a RankService with the default reconciler.
func NewRankService(cfg config.Config, ai domain.AIClient) RankService {
	return RankService{Cfg: cfg, AI: ai, Reconciler: reconcile.New()}
}

// RankInput is one submission. Batch settings of zero fall back to config.
type RankInput struct {
	JobDescription string
	Candidates     []domain.Candidate
	Weights        domain.WeightConfig
	BatchSize      int
	BatchDelay     time.Duration
}

// Rank validates the submission and produces a RankingResult. Internal stage
// failures never surface: the result degrades to the deterministic keyword
// ranking instead. Only validation errors are returned.
func (s RankService) Rank(ctx domain.Context, in RankInput) (domain.RankingResult, error) {
	if strings.TrimSpace(in.JobDescription) == "" {
		return domain.RankingResult{}, fmt.Errorf("op=usecase.Rank: %w: job description required", domain.ErrInvalidArgument)
	}
	withResume := 0
	for _, c := range in.Candidates {
		if strings.TrimSpace(c.Resume) != "" {
			withResume++
		}
	}
	if withResume == 0 {
		return domain.RankingResult{}, fmt.Errorf("op=usecase.Rank: %w: at least one candidate with resume text required", domain.ErrInvalidArgument)
	}

	if len(in.Weights.Categories) == 0 {
		in.Weights = domain.DefaultWeightConfig()
	}

	// Redaction runs before anything else so no contact info reaches the
	// preprocessor output that eventually leaves for the API.
	stats := domain.PreprocessStats{}
	jd := preprocess.ProcessWithBudget(in.JobDescription, domain.KindJobDescription, s.Cfg.JobCharBudget)
	stats.Original += jd.Stats.Original
	stats.Processed += jd.Stats.Processed

	prepared := make([]domain.Candidate, 0, len(in.Candidates))
	for i, c := range in.Candidates {
		if strings.TrimSpace(c.Resume) == "" {
			continue
		}
		redacted := redact.Redact(c.Resume)
		res := preprocess.ProcessWithBudget(redacted, domain.KindResume, s.Cfg.ResumeCharBudget)
		stats.Original += res.Stats.Original
		stats.Processed += res.Stats.Processed
		observability.ObservePreprocess(res.Stats.PercentReduction)

		c.Resume = res.Text
		if c.Name == "" {
			c.Name = fmt.Sprintf("Candidate %d", i+1)
		}
		prepared = append(prepared, c)
	}
	if stats.Original > 0 {
		stats.PercentReduction = float64(stats.Original-stats.Processed) / float64(stats.Original) * 100
	}

	batchSize := in.BatchSize
	if batchSize <= 0 {
		batchSize = s.Cfg.RankBatchSize
	}
	delay := in.BatchDelay
	if delay <= 0 {
		delay = s.Cfg.RankBatchDelay
	}

	batches := chunk(prepared, batchSize)
	queue := SequentialQueue{Delay: delay}

	final := domain.RankingResult{PreprocessStats: &stats}
	unprocessed := queue.Run(ctx, len(batches), func(ctx domain.Context, i int) {
		part := s.rankBatch(ctx, batches[i], jd.Text, in.Weights)
		final.RankedCandidates = append(final.RankedCandidates, part.RankedCandidates...)
		final.UsedFallback = final.UsedFallback || part.UsedFallback
	})
	for range unprocessed {
		// Cancellation mid-run is captured as a synthetic entry rather than
		// aborting the whole submission.
		final.RankedCandidates = append(final.RankedCandidates, batchErrorEntry("submission cancelled before this batch ran"))
		final.UsedFallback = true
	}

	final.SortByScore()
	return final, nil
}

// rankBatch processes one batch end to end. The gateway never errors, so a
// non-empty error kind means both tiers were exhausted and the batch is
// re-ranked deterministically.
func (s RankService) rankBatch(ctx domain.Context, batch []domain.Candidate, jobDescription string, weights domain.WeightConfig) domain.RankingResult {
	userPrompt := prompt.Build(jobDescription, weights, batch)
	tokens := prompt.EstimateTokens(userPrompt)
	slog.Debug("ranking batch",
		slog.Int("candidates", len(batch)),
		slog.Int("prompt_tokens", tokens))

	res := s.AI.Chat(ctx, domain.ChatRequest{
		Model:       s.Cfg.AIPrimaryModel,
		Fallback:    s.Cfg.AIFallbackModel,
		System:      prompt.System,
		Prompt:      userPrompt,
		Temperature: s.Cfg.AITemperature,
		MaxTokens:   s.Cfg.AIMaxTokens,
	})
	if res.Kind != domain.GatewayOK {
		slog.Warn("gateway exhausted, ranking batch deterministically",
			slog.String("kind", string(res.Kind)),
			slog.Int("candidates", len(batch)))
		observability.FallbackRankingsTotal.Inc()
		return rankfall.Rank(batch, jobDescription, weights)
	}
	out := s.Reconciler.Reconcile(res.Text, batch, jobDescription, weights)
	if out.UsedFallback {
		observability.FallbackRankingsTotal.Inc()
	}
	return out
}

func chunk(cs []domain.Candidate, size int) [][]domain.Candidate {
	if size <= 0 {
		size = len(cs)
	}
	var out [][]domain.Candidate
	for start := 0; start < len(cs); start += size {
		end := start + size
		if end > len(cs) {
			end = len(cs)
		}
		out = append(out, cs[start:end])
	}
	return out
}

func batchErrorEntry(reason string) domain.RankedCandidate {
	return domain.RankedCandidate{
		Name:       "Batch Error",
		Score:      0,
		Strengths:  []string{"Batch could not be processed"},
		Weaknesses: []string{},
		Analysis:   "This batch failed: " + reason + ". Re-submit to rank the remaining candidates.",
	}
}
