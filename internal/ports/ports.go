// Package ports declares the capability interfaces the pipeline consumes.
// Adapters under ports/adapters provide the concrete backends.
package ports

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/clipshear/clipshear/internal/types"
)

// ProgressFunc receives completion fractions in [0, 1]. Implementations may
// call it zero or more times; calls are monotonic and finite.
type ProgressFunc func(fraction float64)

// MediaTool wraps the media encode/decode collaborator.
type MediaTool interface {
	ExtractAudio(ctx context.Context, videoPath, outWav string) error
	ExtractClip(ctx context.Context, videoPath string, start, end time.Duration, filterGraph, outPath string) error
	ExtractFrame(ctx context.Context, videoPath string, at time.Duration, filterGraph string) ([]byte, error)
	ProbeDuration(ctx context.Context, videoPath string) (time.Duration, error)
	ProbeDimensions(ctx context.Context, videoPath string) (width, height int, err error)
}

// Transcriber turns an audio file into a transcript.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string, progress ProgressFunc) (types.Transcript, error)
}

// ProposalConfig carries the request parameters for a segmentation call.
type ProposalConfig struct {
	TargetCount      int
	MaxSegmentLength time.Duration

	// SystemPrompt and UserPrompt override the default templates when set.
	SystemPrompt string
	UserPrompt   string
}

// SegmentProposer asks a backend for segment proposals over a transcript.
// The raw text response is parsed downstream.
type SegmentProposer interface {
	ProposeSegments(ctx context.Context, tr types.Transcript, cfg ProposalConfig) (string, error)
}

// ErrorKind classifies provider failures.
type ErrorKind string

const (
	ErrAuthenticationFailed ErrorKind = "authentication_failed"
	ErrRateLimited          ErrorKind = "rate_limited"
	ErrNetworkFailure       ErrorKind = "network_failure"
	ErrInvalidResponse      ErrorKind = "invalid_response"
	ErrUnavailable          ErrorKind = "unavailable"
)

// ProviderError is the typed failure surface shared by all transcription and
// segmentation backends.
type ProviderError struct {
	Kind     ErrorKind
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Provider, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Provider, e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Errf builds a ProviderError with a formatted cause.
func Errf(kind ErrorKind, provider, format string, args ...any) *ProviderError {
	return &ProviderError{Kind: kind, Provider: provider, Err: fmt.Errorf(format, args...)}
}

// KindOf extracts the error kind from a provider error chain.
func KindOf(err error) (ErrorKind, bool) {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind, true
	}
	return "", false
}
