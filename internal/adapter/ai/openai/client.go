// Package openai implements the AI gateway against an OpenAI-compatible
// chat-completions endpoint, with tiered model fallback.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	backoff "github.com/cenkalti/backoff/v4"

	"github.com/hireloop/resume-ranker/internal/config"
	"github.com/hireloop/resume-ranker/internal/domain"
	"github.com/hireloop/resume-ranker/internal/observability"
)

// Client implements domain.AIClient. State machine per request:
// Idle -> Requesting(primary) -> {Success | Retrying(fallback) -> {Success | Failed}}.
// Failed still yields a well-formed synthetic payload.
type Client struct {
	cfg config.Config
	hc  *http.Client
}

// New constructs a gateway client with the configured request timeout.
func New(cfg config.Config) *Client {
	timeout := cfg.AIRequestTimeout
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	return &Client{cfg: cfg, hc: &http.Client{Timeout: timeout}}
}

// tierError carries the classified failure of one tier attempt.
type tierError struct {
	kind domain.GatewayErrorKind
	err  error
}

func (e *tierError) Error() string { return fmt.Sprintf("%s: %v", e.kind, e.err) }

// authPhrases mark authorization/entitlement failures that providers report
// inside otherwise ordinary error bodies. These trigger an immediate tier
// fallback instead of retries.
var authPhrases = []string{"does not exist", "access to", "permission"}

// overflowPhrases mark context-length errors worth one same-tier retry with
// a reduced output budget.
var overflowPhrases = []string{"context length", "maximum context", "too many tokens", "reduce the length"}

// Chat issues the request against the primary model, falls back to the
// secondary on failure, and never returns an unusable result.
func (c *Client) Chat(ctx domain.Context, req domain.ChatRequest) domain.ChatResult {
	if c.cfg.AIAPIKey == "" {
		slog.Error("AI API key missing")
		return synthetic(domain.GatewayAuthError, false)
	}

	text, terr := c.callTier(ctx, "primary", req.Model, req)
	if terr == nil {
		return domain.ChatResult{Text: text}
	}
	slog.Warn("primary model failed, retrying with fallback",
		slog.String("model", req.Model),
		slog.String("kind", string(terr.kind)),
		slog.Any("error", terr.err))

	if req.Fallback == "" || req.Fallback == req.Model {
		return synthetic(terr.kind, false)
	}

	text, terr = c.callTier(ctx, "fallback", req.Fallback, req)
	if terr == nil {
		return domain.ChatResult{Text: text, UsedFallback: true}
	}
	slog.Error("both model tiers exhausted",
		slog.String("fallback_model", req.Fallback),
		slog.String("kind", string(terr.kind)),
		slog.Any("error", terr.err))
	return synthetic(terr.kind, true)
}

// callTier runs one tier with backoff retries. A context-overflow error gets
// one extra attempt with a halved max_tokens budget before giving up.
func (c *Client) callTier(ctx context.Context, tier, model string, req domain.ChatRequest) (string, *tierError) {
	text, terr := c.callOnce(ctx, tier, model, req, req.MaxTokens)
	if terr != nil && terr.kind == domain.GatewayContextOverflow && req.MaxTokens > 256 {
		reduced := req.MaxTokens / 2
		slog.Warn("context overflow, retrying tier with reduced output budget",
			slog.String("tier", tier), slog.String("model", model),
			slog.Int("max_tokens", reduced))
		text, terr = c.callOnce(ctx, tier, model, req, reduced)
	}
	return text, terr
}

func (c *Client) callOnce(ctx context.Context, tier, model string, req domain.ChatRequest, maxTokens int) (string, *tierError) {
	body := map[string]any{
		"model":       model,
		"temperature": req.Temperature,
		"max_tokens":  maxTokens,
		"messages": []map[string]string{
			{"role": "system", "content": req.System},
			{"role": "user", "content": req.Prompt},
		},
	}
	b, _ := json.Marshal(body)

	var out struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}

	var classified *tierError
	op := func() error {
		start := time.Now()
		// Recreate request each attempt to avoid reusing consumed bodies
		r, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.AIBaseURL+"/chat/completions", bytes.NewReader(b))
		if err != nil {
			classified = &tierError{kind: domain.GatewayHTTPError, err: err}
			return backoff.Permanent(err)
		}
		r.Header.Set("Authorization", "Bearer "+c.cfg.AIAPIKey)
		r.Header.Set("Content-Type", "application/json")
		resp, err := c.hc.Do(r)
		observability.AIRequestDuration.WithLabelValues(tier).Observe(time.Since(start).Seconds())
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
				observability.AIRequestsTotal.WithLabelValues(tier, "timeout").Inc()
				classified = &tierError{kind: domain.GatewayTimeout, err: err}
				return backoff.Permanent(err)
			}
			observability.AIRequestsTotal.WithLabelValues(tier, "network_error").Inc()
			classified = &tierError{kind: domain.GatewayHTTPError, err: err}
			return err
		}
		defer func() { _ = resp.Body.Close() }()

		bodyBytes, err := io.ReadAll(resp.Body)
		if err != nil {
			classified = &tierError{kind: domain.GatewayHTTPError, err: err}
			return err
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			slog.Warn("ai provider rate limited", slog.String("tier", tier), slog.String("model", model))
			classified = &tierError{kind: domain.GatewayHTTPError, err: fmt.Errorf("rate limited: 429")}
			return fmt.Errorf("rate limited: 429")
		}

		errMsg := extractErrorMessage(bodyBytes)
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			snippet := errMsg
			if snippet == "" && len(bodyBytes) > 0 {
				snippet = string(bodyBytes[:min(len(bodyBytes), 512)])
			}
			slog.Warn("ai provider non-2xx",
				slog.String("tier", tier), slog.String("model", model),
				slog.Int("status", resp.StatusCode), slog.String("body", snippet))
			switch {
			case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden || containsAny(errMsg, authPhrases):
				observability.AIRequestsTotal.WithLabelValues(tier, "auth_error").Inc()
				classified = &tierError{kind: domain.GatewayAuthError, err: fmt.Errorf("%w: %s", domain.ErrUpstreamAuth, snippet)}
				return backoff.Permanent(classified)
			case containsAny(errMsg, overflowPhrases):
				observability.AIRequestsTotal.WithLabelValues(tier, "context_overflow").Inc()
				classified = &tierError{kind: domain.GatewayContextOverflow, err: fmt.Errorf("chat status %d: %s", resp.StatusCode, snippet)}
				return backoff.Permanent(classified)
			case resp.StatusCode >= 400 && resp.StatusCode < 500:
				observability.AIRequestsTotal.WithLabelValues(tier, "client_error").Inc()
				classified = &tierError{kind: domain.GatewayHTTPError, err: fmt.Errorf("chat status %d", resp.StatusCode)}
				return backoff.Permanent(classified)
			default:
				observability.AIRequestsTotal.WithLabelValues(tier, "server_error").Inc()
				classified = &tierError{kind: domain.GatewayHTTPError, err: fmt.Errorf("chat status %d", resp.StatusCode)}
				return fmt.Errorf("chat status %d", resp.StatusCode)
			}
		}

		if err := json.Unmarshal(bodyBytes, &out); err != nil {
			observability.AIRequestsTotal.WithLabelValues(tier, "parse_error").Inc()
			classified = &tierError{kind: domain.GatewayParseError, err: err}
			return err
		}
		// Auth failures can also arrive inside a 200 body.
		if out.Error != nil && containsAny(out.Error.Message, authPhrases) {
			observability.AIRequestsTotal.WithLabelValues(tier, "auth_error").Inc()
			classified = &tierError{kind: domain.GatewayAuthError, err: fmt.Errorf("%w: %s", domain.ErrUpstreamAuth, out.Error.Message)}
			return backoff.Permanent(classified)
		}
		if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
			observability.AIRequestsTotal.WithLabelValues(tier, "empty_response").Inc()
			classified = &tierError{kind: domain.GatewayParseError, err: errors.New("response lacks message content")}
			return classified
		}
		observability.AIRequestsTotal.WithLabelValues(tier, "ok").Inc()
		classified = nil
		return nil
	}

	expo := backoff.NewExponentialBackOff()
	maxElapsed, initial, maxInterval, multiplier := c.cfg.GetAIBackoffConfig()
	expo.MaxElapsedTime = maxElapsed
	expo.InitialInterval = initial
	expo.MaxInterval = maxInterval
	expo.Multiplier = multiplier

	if err := backoff.Retry(op, backoff.WithContext(expo, ctx)); err != nil {
		if classified == nil {
			classified = &tierError{kind: domain.GatewayHTTPError, err: err}
		}
		return "", classified
	}
	return out.Choices[0].Message.Content, nil
}

// synthetic builds a well-formed placeholder payload so downstream parsing
// always succeeds even when both tiers failed.
func synthetic(kind domain.GatewayErrorKind, usedFallback bool) domain.ChatResult {
	payload := map[string]any{
		"rankedCandidates": []map[string]any{{
			"name":       "Ranking Unavailable",
			"score":      0,
			"strengths":  []string{"The ranking service could not reach the AI provider"},
			"weaknesses": []string{},
			"analysis":   fmt.Sprintf("All configured models failed (%s). A keyword-based ranking was generated instead.", kind),
		}},
	}
	b, _ := json.Marshal(payload)
	return domain.ChatResult{Text: string(b), UsedFallback: usedFallback, Kind: kind}
}

func extractErrorMessage(body []byte) string {
	var e struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &e); err != nil {
		return ""
	}
	return e.Error.Message
}

func containsAny(s string, phrases []string) bool {
	s = strings.ToLower(s)
	for _, p := range phrases {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}
