// Package openrouter implements the segment proposer over the OpenRouter
// chat-completions API.
package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/clipshear/clipshear/internal/ports"
	"github.com/clipshear/clipshear/internal/prompt"
	"github.com/clipshear/clipshear/internal/types"
)

const (
	providerName   = "openrouter"
	requestTimeout = 90 * time.Second

	// Respect provider-side request budgets without relying on 429 retries.
	requestsPerMinute = 20
)

type Adapter struct {
	key     string
	model   string
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
}

func New(apiKey, model, baseURL string) *Adapter {
	if model == "" {
		model = "anthropic/claude-3.5-sonnet"
	}
	return &Adapter{
		key:     apiKey,
		model:   model,
		baseURL: normalizeBaseURL(baseURL),
		client:  &http.Client{Timeout: 5 * time.Minute},
		limiter: rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60.0), 1),
	}
}

func (a *Adapter) ProposeSegments(ctx context.Context, tr types.Transcript, cfg ports.ProposalConfig) (string, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}

	system, user := prompt.Build(tr, cfg.SystemPrompt, cfg.UserPrompt, cfg.TargetCount, cfg.MaxSegmentLength)
	payload := map[string]any{
		"model":  a.model,
		"stream": false,
		"messages": []map[string]any{
			{"role": "system", "content": system},
			{"role": "user", "content": user},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, a.baseURL+"/api/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+a.key)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		if errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
			return "", ports.Errf(ports.ErrNetworkFailure, providerName, "timeout after %s (model=%s)", requestTimeout, a.model)
		}
		return "", ports.Errf(ports.ErrNetworkFailure, providerName, "%v", err)
	}
	defer resp.Body.Close()

	if kindErr := errorForStatus(resp.StatusCode); kindErr != "" {
		rb, _ := io.ReadAll(resp.Body)
		return "", ports.Errf(kindErr, providerName, "status %d: %s",
			resp.StatusCode, truncate(redactSecrets(string(rb), a.key), 400))
	}

	var raw struct {
		Choices []struct {
			Message struct {
				Content any `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return "", ports.Errf(ports.ErrInvalidResponse, providerName, "decode response: %v", err)
	}
	if len(raw.Choices) == 0 {
		return "", ports.Errf(ports.ErrInvalidResponse, providerName, "no choices in response")
	}

	content, err := messageContentToString(raw.Choices[0].Message.Content)
	if err != nil {
		return "", ports.Errf(ports.ErrInvalidResponse, providerName, "%v", err)
	}
	return content, nil
}

// errorForStatus maps non-2xx statuses onto the provider error taxonomy.
// Returns "" for success statuses.
func errorForStatus(status int) ports.ErrorKind {
	switch {
	case status >= 200 && status < 300:
		return ""
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ports.ErrAuthenticationFailed
	case status == http.StatusTooManyRequests:
		return ports.ErrRateLimited
	case status >= 500:
		return ports.ErrUnavailable
	default:
		return ports.ErrInvalidResponse
	}
}

func messageContentToString(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case []any:
		// Some providers return an array of {type,text} parts.
		var b strings.Builder
		for _, it := range x {
			m, ok := it.(map[string]any)
			if !ok {
				continue
			}
			if t, ok := m["text"].(string); ok {
				b.WriteString(t)
			}
		}
		s := b.String()
		if strings.TrimSpace(s) == "" {
			return "", errors.New("empty content")
		}
		return s, nil
	default:
		return "", fmt.Errorf("unexpected content type %T", v)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

var (
	bearerTokenRE = regexp.MustCompile(`(?i)\bBearer\s+[A-Za-z0-9._-]+\b`)
	authHeaderRE  = regexp.MustCompile(`(?i)(authorization\s*[:=]\s*)([^\n\r,;]+)`)
	apiKeyFieldRE = regexp.MustCompile(`(?i)(api[_-]?key\s*[:=]\s*)([^\n\r,;]+)`)
)

func redactSecrets(s, apiKey string) string {
	if s == "" {
		return s
	}
	out := s
	if apiKey != "" {
		out = strings.ReplaceAll(out, apiKey, "[REDACTED]")
	}
	out = bearerTokenRE.ReplaceAllString(out, "Bearer [REDACTED]")
	out = authHeaderRE.ReplaceAllString(out, "${1}[REDACTED]")
	out = apiKeyFieldRE.ReplaceAllString(out, "${1}[REDACTED]")
	return out
}
