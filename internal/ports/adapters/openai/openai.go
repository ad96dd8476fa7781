// Package openai implements the segment proposer over the official OpenAI
// Go SDK.
package openai

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/clipshear/clipshear/internal/ports"
	"github.com/clipshear/clipshear/internal/prompt"
	"github.com/clipshear/clipshear/internal/types"
)

const providerName = "openai"

type Adapter struct {
	client openai.Client
	model  string
}

func New(apiKey, model, baseURL string) *Adapter {
	if model == "" {
		model = "gpt-4o-mini"
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &Adapter{client: openai.NewClient(opts...), model: model}
}

func (a *Adapter) ProposeSegments(ctx context.Context, tr types.Transcript, cfg ports.ProposalConfig) (string, error) {
	system, user := prompt.Build(tr, cfg.SystemPrompt, cfg.UserPrompt, cfg.TargetCount, cfg.MaxSegmentLength)

	resp, err := a.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: a.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Temperature: openai.Float(0.2),
	})
	if err != nil {
		return "", mapError(err)
	}
	if len(resp.Choices) == 0 {
		return "", ports.Errf(ports.ErrInvalidResponse, providerName, "no choices in response")
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", ports.Errf(ports.ErrInvalidResponse, providerName, "empty content")
	}
	return content, nil
}

func mapError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden:
			return ports.Errf(ports.ErrAuthenticationFailed, providerName, "status %d", apiErr.StatusCode)
		case apiErr.StatusCode == http.StatusTooManyRequests:
			return ports.Errf(ports.ErrRateLimited, providerName, "status %d", apiErr.StatusCode)
		case apiErr.StatusCode >= 500:
			return ports.Errf(ports.ErrUnavailable, providerName, "status %d", apiErr.StatusCode)
		default:
			return ports.Errf(ports.ErrInvalidResponse, providerName, "status %d", apiErr.StatusCode)
		}
	}
	return ports.Errf(ports.ErrNetworkFailure, providerName, "%v", err)
}
