package openai_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hireloop/resume-ranker/internal/adapter/ai/openai"
	"github.com/hireloop/resume-ranker/internal/config"
	"github.com/hireloop/resume-ranker/internal/domain"
)

func testConfig(baseURL string) config.Config {
	return config.Config{
		AppEnv:           "test",
		AIAPIKey:         "test-key",
		AIBaseURL:        baseURL,
		AIRequestTimeout: 5 * time.Second,
	}
}

func chatRequest() domain.ChatRequest {
	return domain.ChatRequest{
		Model:       "primary-model",
		Fallback:    "fallback-model",
		System:      "system",
		Prompt:      "rank these candidates",
		Temperature: 0.3,
		MaxTokens:   4000,
	}
}

func requestedModel(t *testing.T, r *http.Request) string {
	t.Helper()
	body, err := io.ReadAll(r.Body)
	require.NoError(t, err)
	var req struct {
		Model string `json:"model"`
	}
	require.NoError(t, json.Unmarshal(body, &req))
	return req.Model
}

func completion(content string) string {
	b, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"content": content}},
		},
	})
	return string(b)
}

func TestChat_PrimarySucceeds(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "primary-model", requestedModel(t, r))
		_, _ = io.WriteString(w, completion(`{"rankedCandidates":[]}`))
	}))
	defer srv.Close()

	c := openai.New(testConfig(srv.URL))
	res := c.Chat(context.Background(), chatRequest())

	assert.Equal(t, domain.GatewayOK, res.Kind)
	assert.False(t, res.UsedFallback)
	assert.Equal(t, `{"rankedCandidates":[]}`, res.Text)
}

func TestChat_PrimaryFailsFallbackSucceeds(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requestedModel(t, r) == "primary-model" {
			// 401 is permanent, so the tier gives up without retries.
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"error":{"message":"invalid key"}}`)
			return
		}
		_, _ = io.WriteString(w, completion("fallback says hi"))
	}))
	defer srv.Close()

	c := openai.New(testConfig(srv.URL))
	res := c.Chat(context.Background(), chatRequest())

	assert.Equal(t, domain.GatewayOK, res.Kind)
	assert.True(t, res.UsedFallback)
	assert.Equal(t, "fallback says hi", res.Text)
}

func TestChat_BothTiersFailYieldsSyntheticPayload(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":{"message":"invalid key"}}`)
	}))
	defer srv.Close()

	c := openai.New(testConfig(srv.URL))
	res := c.Chat(context.Background(), chatRequest())

	assert.Equal(t, domain.GatewayAuthError, res.Kind)
	assert.True(t, res.UsedFallback)
	require.NotEmpty(t, res.Text)

	var payload struct {
		RankedCandidates []struct {
			Name string `json:"name"`
		} `json:"rankedCandidates"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.Text), &payload))
	require.Len(t, payload.RankedCandidates, 1)
	assert.Equal(t, "Ranking Unavailable", payload.RankedCandidates[0].Name)
}

func TestChat_AuthPhraseInBodyTriggersImmediateFallback(t *testing.T) {
	t.Parallel()
	var primaryCalls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requestedModel(t, r) == "primary-model" {
			primaryCalls++
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"error":{"message":"The model does not exist or you do not have access to it"}}`)
			return
		}
		_, _ = io.WriteString(w, completion("ok"))
	}))
	defer srv.Close()

	c := openai.New(testConfig(srv.URL))
	res := c.Chat(context.Background(), chatRequest())

	assert.True(t, res.UsedFallback)
	assert.Equal(t, "ok", res.Text)
	assert.Equal(t, 1, primaryCalls, "entitlement errors must not be retried")
}

func TestChat_ContextOverflowRetriesWithReducedBudget(t *testing.T) {
	t.Parallel()
	var budgets []int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var req struct {
			MaxTokens int `json:"max_tokens"`
		}
		_ = json.Unmarshal(body, &req)
		budgets = append(budgets, req.MaxTokens)
		if len(budgets) == 1 {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"error":{"message":"This model's maximum context length is exceeded, reduce the length"}}`)
			return
		}
		_, _ = io.WriteString(w, completion("fits now"))
	}))
	defer srv.Close()

	c := openai.New(testConfig(srv.URL))
	res := c.Chat(context.Background(), chatRequest())

	assert.Equal(t, "fits now", res.Text)
	assert.False(t, res.UsedFallback)
	require.Len(t, budgets, 2)
	assert.Equal(t, 4000, budgets[0])
	assert.Equal(t, 2000, budgets[1])
}

func TestChat_EmptyChoicesFallsBack(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requestedModel(t, r) == "primary-model" {
			_, _ = io.WriteString(w, `{"choices":[]}`)
			return
		}
		_, _ = io.WriteString(w, completion("content"))
	}))
	defer srv.Close()

	c := openai.New(testConfig(srv.URL))
	res := c.Chat(context.Background(), chatRequest())

	assert.True(t, res.UsedFallback)
	assert.Equal(t, "content", res.Text)
}

func TestChat_MissingAPIKey(t *testing.T) {
	t.Parallel()
	c := openai.New(config.Config{AppEnv: "test"})
	res := c.Chat(context.Background(), chatRequest())

	assert.Equal(t, domain.GatewayAuthError, res.Kind)
	assert.NotEmpty(t, res.Text)
}

func TestChat_NoDistinctFallbackModel(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{}`)
	}))
	defer srv.Close()

	req := chatRequest()
	req.Fallback = req.Model
	c := openai.New(testConfig(srv.URL))
	res := c.Chat(context.Background(), req)

	assert.Equal(t, domain.GatewayAuthError, res.Kind)
	assert.False(t, res.UsedFallback)
	assert.NotEmpty(t, res.Text)
}
