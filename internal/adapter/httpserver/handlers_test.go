package httpserver_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpserver "github.com/hireloop/resume-ranker/internal/adapter/httpserver"
	"github.com/hireloop/resume-ranker/internal/config"
	"github.com/hireloop/resume-ranker/internal/domain"
	"github.com/hireloop/resume-ranker/internal/usecase"
)

type staticAI struct{ text string }

func (s staticAI) Chat(domain.Context, domain.ChatRequest) domain.ChatResult {
	return domain.ChatResult{Text: s.text}
}

type staticExtractor struct {
	text string
	err  error
}

func (s staticExtractor) Extract(domain.Context, string, []byte) (string, error) {
	return s.text, s.err
}

func newTestServer(ai domain.AIClient, ex domain.TextExtractor) *httpserver.Server {
	cfg := config.Config{
		AppEnv:           "test",
		AIAPIKey:         "key",
		MaxUploadMB:      10,
		ResumeCharBudget: 4000,
		JobCharBudget:    2000,
		RankBatchSize:    8,
		RankBatchDelay:   time.Millisecond,
	}
	return httpserver.NewServer(cfg,
		usecase.NewRankService(cfg, ai),
		usecase.NewExtractService(cfg, ex),
		domain.DefaultWeightConfig())
}

func rankBody(t *testing.T, v any) *bytes.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(b)
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var env struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env.Error.Code
}

func TestRankHandler_HappyPath(t *testing.T) {
	t.Parallel()
	ai := staticAI{text: `{"rankedCandidates":[{"name":"Alice","score":85,"strengths":["Go"],"weaknesses":["x"],"analysis":"Good."}]}`}
	srv := newTestServer(ai, staticExtractor{})

	body := rankBody(t, map[string]any{
		"job_description": "Backend engineer in Go",
		"candidates":      []map[string]string{{"name": "Alice", "resume": "Go engineer."}},
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/rank", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.RankHandler()(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var res domain.RankingResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.Len(t, res.RankedCandidates, 1)
	assert.Equal(t, "Alice", res.RankedCandidates[0].Name)
	assert.Equal(t, 85, res.RankedCandidates[0].Score)
}

func TestRankHandler_RejectsWrongContentType(t *testing.T) {
	t.Parallel()
	srv := newTestServer(staticAI{}, staticExtractor{})
	req := httptest.NewRequest(http.MethodPost, "/v1/rank", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()
	srv.RankHandler()(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_ARGUMENT", decodeError(t, rec))
}

func TestRankHandler_RejectsMalformedJSON(t *testing.T) {
	t.Parallel()
	srv := newTestServer(staticAI{}, staticExtractor{})
	req := httptest.NewRequest(http.MethodPost, "/v1/rank", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.RankHandler()(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRankHandler_RejectsMissingFields(t *testing.T) {
	t.Parallel()
	srv := newTestServer(staticAI{}, staticExtractor{})
	for _, body := range []map[string]any{
		{"candidates": []map[string]string{{"resume": "x"}}},
		{"job_description": "jd", "candidates": []map[string]string{}},
	} {
		req := httptest.NewRequest(http.MethodPost, "/v1/rank", rankBody(t, body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		srv.RankHandler()(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "INVALID_ARGUMENT", decodeError(t, rec))
	}
}

func TestRankHandler_RejectsOutOfRangeBatch(t *testing.T) {
	t.Parallel()
	srv := newTestServer(staticAI{}, staticExtractor{})
	body := rankBody(t, map[string]any{
		"job_description": "jd",
		"candidates":      []map[string]string{{"name": "A", "resume": "x"}},
		"batch":           map[string]int{"size": 500},
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/rank", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.RankHandler()(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRankHandler_CustomWeightsAreClampedAndFiltered(t *testing.T) {
	t.Parallel()
	var captured domain.ChatRequest
	ai := &capturingAI{}
	srv := newTestServer(ai, staticExtractor{})

	body := rankBody(t, map[string]any{
		"job_description": "jd for a golang role",
		"candidates":      []map[string]string{{"name": "A", "resume": "golang"}},
		"weights": map[string]any{
			"use_custom_weights": true,
			"categories": []map[string]any{
				{"id": "technical_skills", "weight": 99},
				{"id": "made_up_category", "weight": 7},
			},
		},
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/rank", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.RankHandler()(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	captured = ai.last
	assert.Contains(t, captured.Prompt, "WEIGHTING RULES")
	assert.Contains(t, captured.Prompt, "(weight 10)")
	assert.NotContains(t, captured.Prompt, "made_up_category")
}

type capturingAI struct{ last domain.ChatRequest }

func (c *capturingAI) Chat(_ domain.Context, req domain.ChatRequest) domain.ChatResult {
	c.last = req
	return domain.ChatResult{Text: `{"rankedCandidates":[{"name":"A","score":70}]}`}
}

func multipartBody(t *testing.T, field, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("position", "2"))
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestExtractHandler_HappyPath(t *testing.T) {
	t.Parallel()
	srv := newTestServer(staticAI{}, staticExtractor{text: "Jane Doe\nGo engineer.\njane@example.com"})

	buf, ctype := multipartBody(t, "file", "jane.pdf", []byte("%PDF-fake"))
	req := httptest.NewRequest(http.MethodPost, "/v1/extract", buf)
	req.Header.Set("Content-Type", ctype)
	rec := httptest.NewRecorder()
	srv.ExtractHandler()(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var out usecase.Extraction
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "Jane Doe", out.Name)
	assert.NotEmpty(t, out.CandidateID)
	assert.NotContains(t, out.Text, "jane@example.com")
}

func TestExtractBatchHandler_MixedOutcomes(t *testing.T) {
	t.Parallel()
	srv := newTestServer(staticAI{}, namedExtractor{
		texts: map[string]string{"alice.pdf": "Alice Smith\nGo engineer."},
		errs:  map[string]error{"resume_copy.pdf": domain.ErrExtractionFailed},
	})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, name := range []string{"alice.pdf", "resume_copy.pdf"} {
		fw, err := mw.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = fw.Write([]byte("content"))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/extract/batch", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.ExtractBatchHandler()(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var out struct {
		Extractions []usecase.Extraction `json:"extractions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out.Extractions, 2)
	assert.Equal(t, "Alice Smith", out.Extractions[0].Name)
	assert.Equal(t, "Candidate 2", out.Extractions[1].Name)
	assert.Empty(t, out.Extractions[1].Text)
}

func TestExtractBatchHandler_RequiresFiles(t *testing.T) {
	t.Parallel()
	srv := newTestServer(staticAI{}, staticExtractor{})
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("position", "1"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/extract/batch", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.ExtractBatchHandler()(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type namedExtractor struct {
	texts map[string]string
	errs  map[string]error
}

func (n namedExtractor) Extract(_ domain.Context, filename string, _ []byte) (string, error) {
	if err, ok := n.errs[filename]; ok {
		return "", err
	}
	return n.texts[filename], nil
}

func TestExtractHandler_MissingFile(t *testing.T) {
	t.Parallel()
	srv := newTestServer(staticAI{}, staticExtractor{})

	buf, ctype := multipartBody(t, "wrong_field", "jane.pdf", []byte("x"))
	req := httptest.NewRequest(http.MethodPost, "/v1/extract", buf)
	req.Header.Set("Content-Type", ctype)
	rec := httptest.NewRecorder()
	srv.ExtractHandler()(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExtractHandler_ExtractionFailureMapsTo422(t *testing.T) {
	t.Parallel()
	srv := newTestServer(staticAI{}, staticExtractor{err: domain.ErrExtractionFailed})

	buf, ctype := multipartBody(t, "file", "john_doe_resume.pdf", []byte("x"))
	req := httptest.NewRequest(http.MethodPost, "/v1/extract", buf)
	req.Header.Set("Content-Type", ctype)
	rec := httptest.NewRecorder()
	srv.ExtractHandler()(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "EXTRACTION_FAILED", decodeError(t, rec))
	// The inferred name rides along in details so the client can label its
	// manual-text fallback.
	assert.Contains(t, rec.Body.String(), "John Doe")
}

func TestExtractHandler_OversizedUploadMapsTo413(t *testing.T) {
	t.Parallel()
	cfg := config.Config{AppEnv: "test", AIAPIKey: "key", MaxUploadMB: 1}
	srv := httpserver.NewServer(cfg,
		usecase.NewRankService(cfg, staticAI{}),
		usecase.NewExtractService(cfg, staticExtractor{text: "x"}),
		domain.DefaultWeightConfig())

	buf, ctype := multipartBody(t, "file", "huge.pdf", bytes.Repeat([]byte("a"), 2<<20))
	req := httptest.NewRequest(http.MethodPost, "/v1/extract", buf)
	req.Header.Set("Content-Type", ctype)
	rec := httptest.NewRecorder()
	srv.ExtractHandler()(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "FILE_TOO_LARGE", decodeError(t, rec))
}

func TestExtractHandler_WrongContentType(t *testing.T) {
	t.Parallel()
	srv := newTestServer(staticAI{}, staticExtractor{})
	req := httptest.NewRequest(http.MethodPost, "/v1/extract", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.ExtractHandler()(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWeightsHandler(t *testing.T) {
	t.Parallel()
	srv := newTestServer(staticAI{}, staticExtractor{})
	req := httptest.NewRequest(http.MethodGet, "/v1/weights", nil)
	rec := httptest.NewRecorder()
	srv.WeightsHandler()(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var cfg domain.WeightConfig
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cfg))
	assert.Len(t, cfg.Categories, 7)
	assert.False(t, cfg.UseCustomWeights)
}

func TestReadyzHandler(t *testing.T) {
	t.Parallel()
	ready := newTestServer(staticAI{}, staticExtractor{})
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()
	ready.ReadyzHandler()(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	notReady := httpserver.NewServer(config.Config{},
		usecase.RankService{}, usecase.ExtractService{}, domain.WeightConfig{})
	rec = httptest.NewRecorder()
	notReady.ReadyzHandler()(rec, req.Clone(context.Background()))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
