// Package ollama implements the segment proposer against a local Ollama
// server. A server that is not running or a model that has not been pulled
// surfaces as Unavailable.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/clipshear/clipshear/internal/ports"
	"github.com/clipshear/clipshear/internal/prompt"
	"github.com/clipshear/clipshear/internal/types"
)

const (
	providerName   = "ollama"
	defaultBaseURL = "http://localhost:11434"
)

type Adapter struct {
	baseURL string
	model   string
	client  *http.Client
}

func New(baseURL, model string) *Adapter {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if model == "" {
		model = "llama3.1"
	}
	return &Adapter{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  &http.Client{Timeout: 10 * time.Minute},
	}
}

func (a *Adapter) ProposeSegments(ctx context.Context, tr types.Transcript, cfg ports.ProposalConfig) (string, error) {
	system, user := prompt.Build(tr, cfg.SystemPrompt, cfg.UserPrompt, cfg.TargetCount, cfg.MaxSegmentLength)

	payload := map[string]any{
		"model":  a.model,
		"stream": false,
		"messages": []map[string]string{
			{"role": "system", "content": system},
			{"role": "user", "content": user},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		// A refused connection means the local server is not running.
		return "", ports.Errf(ports.ErrUnavailable, providerName, "server unreachable at %s: %v", a.baseURL, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", ports.Errf(ports.ErrUnavailable, providerName, "model %q not pulled", a.model)
	case resp.StatusCode >= 500:
		return "", ports.Errf(ports.ErrUnavailable, providerName, "status %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		rb, _ := io.ReadAll(resp.Body)
		return "", ports.Errf(ports.ErrInvalidResponse, providerName, "status %d: %s", resp.StatusCode, strings.TrimSpace(string(rb)))
	}

	var out struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", ports.Errf(ports.ErrInvalidResponse, providerName, "decode response: %v", err)
	}
	if strings.TrimSpace(out.Message.Content) == "" {
		return "", ports.Errf(ports.ErrInvalidResponse, providerName, "empty content")
	}
	return out.Message.Content, nil
}
