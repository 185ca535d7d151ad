package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/hireloop/resume-ranker/internal/config"
	"github.com/hireloop/resume-ranker/internal/domain"
	"github.com/hireloop/resume-ranker/internal/usecase"
)

// Server aggregates handler dependencies.
type Server struct {
	Cfg     config.Config
	Rank    usecase.RankService
	Extract usecase.ExtractService
	Weights domain.WeightConfig
}

// NewServer constructs an HTTP server with all handlers wired.
func NewServer(cfg config.Config, rank usecase.RankService, extract usecase.ExtractService, weights domain.WeightConfig) *Server {
	return &Server{Cfg: cfg, Rank: rank, Extract: extract, Weights: weights}
}

var (
	vldOnce sync.Once
	vld     *validator.Validate
)

func getValidator() *validator.Validate {
	vldOnce.Do(func() { vld = validator.New() })
	return vld
}

// rankRequest is the JSON body of POST /v1/rank.
type rankRequest struct {
	JobDescription string `json:"job_description" validate:"required"`
	Candidates     []struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Resume   string `json:"resume"`
		Filename string `json:"filename"`
	} `json:"candidates" validate:"required,min=1,dive"`
	Weights *domain.WeightConfig `json:"weights"`
	Batch   *struct {
		Size    int `json:"size" validate:"omitempty,min=1,max=50"`
		DelayMS int `json:"delay_ms" validate:"omitempty,min=0,max=30000"`
	} `json:"batch"`
}

// RankHandler accepts a submission and returns the reconciled ranking.
func (s *Server) RankHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Content-Type"), "application/json") {
			writeError(w, r, fmt.Errorf("%w: content-type must be application/json", domain.ErrInvalidArgument), nil)
			return
		}
		var req rankRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, 10<<20)).Decode(&req); err != nil {
			writeError(w, r, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err), nil)
			return
		}
		if err := getValidator().Struct(req); err != nil {
			writeError(w, r, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err), nil)
			return
		}

		weights := s.Weights
		if req.Weights != nil && len(req.Weights.Categories) > 0 {
			weights = normalizeWeights(*req.Weights, s.Weights)
		}

		in := usecase.RankInput{
			JobDescription: req.JobDescription,
			Weights:        weights,
		}
		for _, c := range req.Candidates {
			in.Candidates = append(in.Candidates, domain.Candidate{
				ID: c.ID, Name: c.Name, Resume: c.Resume, Filename: c.Filename,
			})
		}
		if req.Batch != nil {
			in.BatchSize = req.Batch.Size
			in.BatchDelay = time.Duration(req.Batch.DelayMS) * time.Millisecond
		}

		result, err := s.Rank.Rank(r.Context(), in)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

// normalizeWeights keeps only known category ids and clamps weights to 1-10,
// falling back to the server defaults for anything the client omitted.
func normalizeWeights(in domain.WeightConfig, defaults domain.WeightConfig) domain.WeightConfig {
	out := defaults
	out.UseCustomWeights = in.UseCustomWeights
	for _, cat := range in.Categories {
		if !domain.ValidCategoryID(cat.ID) {
			continue
		}
		w := cat.Weight
		if w < 1 {
			w = 1
		}
		if w > 10 {
			w = 10
		}
		for i := range out.Categories {
			if out.Categories[i].ID == cat.ID {
				out.Categories[i].Weight = w
				out.Categories[i].AISuggested = cat.AISuggested
			}
		}
	}
	return out
}

// ExtractHandler ingests one uploaded document and returns extracted text,
// inferred name and locally displayable contact info.
func (s *Server) ExtractHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Content-Type"), "multipart/form-data") {
			writeError(w, r, fmt.Errorf("%w: content-type must be multipart/form-data", domain.ErrInvalidArgument), nil)
			return
		}
		maxBytes := s.Cfg.MaxUploadMB * 1024 * 1024
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes+1024)
		if err := r.ParseMultipartForm(maxBytes); err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				writeError(w, r, fmt.Errorf("%w: payload exceeds %d MB", domain.ErrFileTooLarge, s.Cfg.MaxUploadMB),
					map[string]any{"max_mb": s.Cfg.MaxUploadMB})
				return
			}
			writeError(w, r, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err), nil)
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			writeError(w, r, fmt.Errorf("%w: file required", domain.ErrInvalidArgument), map[string]string{"field": "file"})
			return
		}
		defer func() { _ = file.Close() }()

		data, err := io.ReadAll(file)
		if err != nil {
			writeError(w, r, fmt.Errorf("%w: read: %v", domain.ErrInvalidArgument, err), nil)
			return
		}

		position := 1
		if p := r.FormValue("position"); p != "" {
			if n, err := strconv.Atoi(p); err == nil && n > 0 {
				position = n
			}
		}

		out, err := s.Extract.Extract(r.Context(), header.Filename, data, position)
		if err != nil {
			// Partial responses still carry the inferred name so the client
			// can keep its manual-text fallback labeled.
			writeError(w, r, err, map[string]any{"filename": header.Filename, "name": out.Name})
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// ExtractBatchHandler ingests several documents in one request under the
// "files" field. Entries that fail extraction come back with empty text and
// an inferred or placeholder name instead of failing the batch.
func (s *Server) ExtractBatchHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Content-Type"), "multipart/form-data") {
			writeError(w, r, fmt.Errorf("%w: content-type must be multipart/form-data", domain.ErrInvalidArgument), nil)
			return
		}
		maxBytes := s.Cfg.MaxUploadMB * 1024 * 1024
		// Per-file limits are enforced by the extractor; the body cap only has
		// to keep the whole batch bounded.
		r.Body = http.MaxBytesReader(w, r.Body, 4*maxBytes+1024)
		if err := r.ParseMultipartForm(maxBytes); err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				writeError(w, r, fmt.Errorf("%w: batch exceeds size limit", domain.ErrFileTooLarge),
					map[string]any{"max_mb": 4 * s.Cfg.MaxUploadMB})
				return
			}
			writeError(w, r, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err), nil)
			return
		}
		headers := r.MultipartForm.File["files"]
		if len(headers) == 0 {
			writeError(w, r, fmt.Errorf("%w: at least one file required", domain.ErrInvalidArgument), map[string]string{"field": "files"})
			return
		}

		files := make([]usecase.File, 0, len(headers))
		for _, h := range headers {
			f, err := h.Open()
			if err != nil {
				writeError(w, r, fmt.Errorf("%w: open %s: %v", domain.ErrInvalidArgument, h.Filename, err), nil)
				return
			}
			data, err := io.ReadAll(f)
			_ = f.Close()
			if err != nil {
				writeError(w, r, fmt.Errorf("%w: read %s: %v", domain.ErrInvalidArgument, h.Filename, err), nil)
				return
			}
			files = append(files, usecase.File{Name: h.Filename, Data: data})
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"extractions": s.Extract.ExtractAll(r.Context(), files),
		})
	}
}

// WeightsHandler returns the active default weight configuration so clients
// can render the sliders without hardcoding the category list.
func (s *Server) WeightsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, s.Weights)
	}
}

// ReadyzHandler reports readiness. There are no external stores; readiness
// only confirms configuration is usable.
func (s *Server) ReadyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		checks := []map[string]any{
			{"name": "ai_api_key", "ok": s.Cfg.AIAPIKey != ""},
			{"name": "weights", "ok": len(s.Weights.Categories) == 7},
		}
		ready := true
		for _, c := range checks {
			if ok, _ := c["ok"].(bool); !ok {
				ready = false
			}
		}
		status := http.StatusOK
		if !ready {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, map[string]any{"ready": ready, "checks": checks})
	}
}
