package usecase

import (
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/hireloop/resume-ranker/internal/config"
	"github.com/hireloop/resume-ranker/internal/domain"
	"github.com/hireloop/resume-ranker/internal/service/nameinfer"
	"github.com/hireloop/resume-ranker/internal/service/redact"
)

// ExtractService ingests uploaded documents: text extraction, contact-info
// extraction for local display, and opportunistic name inference.
type ExtractService struct {
	Cfg       config.Config
	Extractor domain.TextExtractor
}

// NewExtractService constructs an ExtractService.
func NewExtractService(cfg config.Config, ex domain.TextExtractor) ExtractService {
	return ExtractService{Cfg: cfg, Extractor: ex}
}

// Extraction is the result of ingesting one file.
type Extraction struct {
	CandidateID    string             `json:"candidate_id"`
	Text           string             `json:"text"`
	Name           string             `json:"name"`
	NameConfidence float64            `json:"name_confidence"`
	Contact        redact.ContactInfo `json:"contact"`
}

// Extract ingests one uploaded file. position is the candidate's 1-based
// index in the submission, used for the placeholder name when inference
// finds nothing. Extraction failures return the sentinel error; callers
// keep any previously entered manual text.
func (s ExtractService) Extract(ctx domain.Context, filename string, data []byte, position int) (Extraction, error) {
	text, err := s.Extractor.Extract(ctx, filename, data)
	if err != nil {
		// Name inference from the filename still works without text.
		out := Extraction{CandidateID: uuid.NewString()}
		if inf := nameinfer.FromFilename(filename); inf.Name != "" {
			out.Name, out.NameConfidence = inf.Name, inf.Confidence
		} else {
			out.Name = nameinfer.Placeholder(position)
		}
		return out, err
	}

	// Contact values are returned for local display only; the filtered text
	// is what travels onward.
	filtered, contact := redact.Extract(text)

	out := Extraction{
		CandidateID: uuid.NewString(),
		Text:        filtered,
		Contact:     contact,
	}
	if inf := nameinfer.Infer(text, filename); inf.Name != "" {
		out.Name, out.NameConfidence = inf.Name, inf.Confidence
	} else {
		out.Name = nameinfer.Placeholder(position)
	}
	return out, nil
}

// File is one bulk-upload entry.
type File struct {
	Name string
	Data []byte
}

// ExtractAll ingests a bulk upload with bounded concurrency (a few files at
// a time keeps memory stable under constrained hosts). Per-file failures are
// recorded in the result rather than aborting the batch.
func (s ExtractService) ExtractAll(ctx domain.Context, files []File) []Extraction {
	limit := s.Cfg.ExtractConcurrency
	if limit <= 0 {
		limit = 3
	}

	results := make([]Extraction, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			out, err := s.Extract(gctx, f.Name, f.Data, i+1)
			if err != nil && !errors.Is(err, domain.ErrUnsupportedFormat) {
				slog.Warn("bulk extraction failed for file",
					slog.String("filename", f.Name), slog.Any("error", err))
			}
			results[i] = out
			return nil
		})
	}
	_ = g.Wait()
	return results
}
