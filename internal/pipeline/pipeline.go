// Package pipeline assembles adapters, store, and use cases from a flat
// Config and exposes the operations the CLI runs.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/clipshear/clipshear/internal/extract"
	"github.com/clipshear/clipshear/internal/ports"
	"github.com/clipshear/clipshear/internal/ports/adapters/cloudspeech"
	"github.com/clipshear/clipshear/internal/ports/adapters/fake"
	"github.com/clipshear/clipshear/internal/ports/adapters/ffmpeg"
	"github.com/clipshear/clipshear/internal/ports/adapters/ollama"
	"github.com/clipshear/clipshear/internal/ports/adapters/openai"
	"github.com/clipshear/clipshear/internal/ports/adapters/openrouter"
	"github.com/clipshear/clipshear/internal/ports/adapters/whispercpp"
	"github.com/clipshear/clipshear/internal/store"
	"github.com/clipshear/clipshear/internal/types"
	"github.com/clipshear/clipshear/internal/usecase"
)

type Config struct {
	DataDir string
	OutDir  string

	Transcriber string
	Proposer    string

	FFmpegPath  string
	FFprobePath string

	WhisperBin   string
	WhisperModel string

	SpeechBaseURL string
	SpeechAPIKey  string

	OpenRouterAPIKey       string
	OpenRouterModel        string
	OpenRouterBaseURL      string
	OpenRouterAllowedHosts []string

	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string

	OllamaBaseURL string
	OllamaModel   string

	SegmentCount     int
	MaxSegmentLength time.Duration
	OverlapThreshold float64
	SystemPrompt     string
	UserPrompt       string

	AspectRatio   types.AspectRatioMode
	OutputWidth   int
	OutputHeight  int
	BurnSubtitles bool
	SubtitleStyle types.SubtitleStyle

	Concurrency int

	Log *logrus.Logger
}

// Validate checks the settings every command depends on.
func (c Config) Validate() error {
	if c.DataDir == "" {
		return errors.New("data dir is empty")
	}
	if c.SegmentCount <= 0 {
		return errors.New("segment count must be > 0")
	}
	if c.MaxSegmentLength <= 0 {
		return errors.New("max segment length must be > 0")
	}
	if c.Concurrency <= 0 {
		return errors.New("concurrency must be > 0")
	}
	return nil
}

// ValidateAnalyze additionally checks the transcription and proposal backend
// settings; extraction-only commands do not need provider credentials.
func (c Config) ValidateAnalyze() error {
	if err := c.Validate(); err != nil {
		return err
	}
	switch c.Transcriber {
	case "whisper":
		if c.WhisperModel == "" {
			return errors.New("whisper model path is required")
		}
	case "cloud":
		if c.SpeechAPIKey == "" {
			return errors.New("speech API key is required (set CLIPSHEAR_SPEECH_API_KEY)")
		}
	case "fake":
	default:
		return fmt.Errorf("unknown transcriber %q", c.Transcriber)
	}
	switch c.Proposer {
	case "openrouter":
		if c.OpenRouterAPIKey == "" {
			return errors.New("OPENROUTER_API_KEY is required (set it in .env)")
		}
		return openrouter.ValidateBaseURL(c.OpenRouterBaseURL, c.OpenRouterAllowedHosts)
	case "openai":
		if c.OpenAIAPIKey == "" {
			return errors.New("OPENAI_API_KEY is required (set it in .env)")
		}
	case "ollama", "fake":
	default:
		return fmt.Errorf("unknown proposer %q", c.Proposer)
	}
	return nil
}

func (c Config) newTranscriber() (ports.Transcriber, error) {
	switch c.Transcriber {
	case "whisper":
		return whispercpp.New(c.WhisperBin, c.WhisperModel), nil
	case "cloud":
		return cloudspeech.New(c.SpeechBaseURL, c.SpeechAPIKey), nil
	case "fake":
		return fake.New(), nil
	}
	return nil, fmt.Errorf("unknown transcriber %q", c.Transcriber)
}

func (c Config) newProposer() (ports.SegmentProposer, error) {
	switch c.Proposer {
	case "openrouter":
		return openrouter.New(c.OpenRouterAPIKey, c.OpenRouterModel, c.OpenRouterBaseURL), nil
	case "openai":
		return openai.New(c.OpenAIAPIKey, c.OpenAIModel, c.OpenAIBaseURL), nil
	case "ollama":
		return ollama.New(c.OllamaBaseURL, c.OllamaModel), nil
	case "fake":
		return fake.New(), nil
	}
	return nil, fmt.Errorf("unknown proposer %q", c.Proposer)
}

// OpenStore opens the project database under the data dir.
func (c Config) OpenStore() (*store.SQLite, error) {
	return store.Open(filepath.Join(c.DataDir, "clipshear.db"), c.Log)
}

// Analyze runs transcription and segment proposal for one video and persists
// the resulting project.
func Analyze(ctx context.Context, cfg Config, videoPath, name string) (*usecase.AnalyzeResult, error) {
	transcriber, err := cfg.newTranscriber()
	if err != nil {
		return nil, err
	}
	proposer, err := cfg.newProposer()
	if err != nil {
		return nil, err
	}
	st, err := cfg.OpenStore()
	if err != nil {
		return nil, err
	}
	defer st.Close()

	deps := usecase.Deps{
		Media:       ffmpeg.New(cfg.FFmpegPath, cfg.FFprobePath),
		Transcriber: transcriber,
		Proposer:    proposer,
		Store:       st,
		Log:         cfg.Log,
	}

	absPath, err := filepath.Abs(videoPath)
	if err != nil {
		return nil, err
	}
	workDir := filepath.Join(cfg.DataDir, "runs", time.Now().UTC().Format("20060102-150405Z"))

	return deps.Analyze(ctx, usecase.AnalyzeInput{
		VideoPath:        absPath,
		Name:             name,
		WorkDir:          workDir,
		TargetCount:      cfg.SegmentCount,
		MaxSegmentLength: cfg.MaxSegmentLength,
		OverlapThreshold: cfg.OverlapThreshold,
		SystemPrompt:     cfg.SystemPrompt,
		UserPrompt:       cfg.UserPrompt,
	})
}

// Extract encodes clips for the project's approved segments.
func Extract(ctx context.Context, cfg Config, projectID string) (extract.Result, error) {
	st, err := cfg.OpenStore()
	if err != nil {
		return extract.Result{}, err
	}
	defer st.Close()

	project, err := st.GetProject(ctx, projectID)
	if err != nil {
		return extract.Result{}, err
	}
	if project == nil {
		return extract.Result{}, fmt.Errorf("project %s not found", projectID)
	}
	segs, err := st.ListSegments(ctx, projectID)
	if err != nil {
		return extract.Result{}, err
	}

	outDir := filepath.Join(cfg.OutDir, projectID)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return extract.Result{}, err
	}

	ex := extract.New(ffmpeg.New(cfg.FFmpegPath, cfg.FFprobePath), st, cfg.Log)
	return ex.Run(ctx, project.VideoPath, segs, extract.Options{
		OutDir:        outDir,
		Mode:          cfg.AspectRatio,
		Width:         cfg.OutputWidth,
		Height:        cfg.OutputHeight,
		BurnSubtitles: cfg.BurnSubtitles,
		Style:         cfg.SubtitleStyle,
		Concurrency:   cfg.Concurrency,
		OnProgress: func(ev extract.Event) {
			entry := cfg.Log.WithFields(logrus.Fields{
				"segment":  ev.SegmentID,
				"progress": fmt.Sprintf("%d/%d", ev.Completed, ev.Total),
			})
			if ev.Err != nil {
				entry.WithError(ev.Err).Warn("segment extraction failed")
				return
			}
			entry.WithField("clip", ev.ClipPath).Info("segment extracted")
		},
	})
}

// ensure adapters implement ports
var _ ports.MediaTool = (*ffmpeg.Adapter)(nil)
var _ ports.Transcriber = (*whispercpp.Adapter)(nil)
var _ ports.Transcriber = (*cloudspeech.Adapter)(nil)
var _ ports.SegmentProposer = (*openrouter.Adapter)(nil)
var _ ports.SegmentProposer = (*openai.Adapter)(nil)
var _ ports.SegmentProposer = (*ollama.Adapter)(nil)
var _ ports.Transcriber = (*fake.Provider)(nil)
var _ ports.SegmentProposer = (*fake.Provider)(nil)
