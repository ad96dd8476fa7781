// Package config loads the optional YAML config file and applies
// CLIPSHEAR_* environment overrides on top of it.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds the settings that rarely change between runs. Everything here
// can also be set via flags; flags win.
type Config struct {
	DataDir string `yaml:"data_dir"`
	OutDir  string `yaml:"out_dir"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	Transcriber string `yaml:"transcriber"`
	Proposer    string `yaml:"proposer"`

	FFmpegPath  string `yaml:"ffmpeg_path"`
	FFprobePath string `yaml:"ffprobe_path"`

	WhisperBin   string `yaml:"whisper_bin"`
	WhisperModel string `yaml:"whisper_model"`

	SpeechBaseURL string `yaml:"speech_base_url"`

	OpenRouterModel   string `yaml:"openrouter_model"`
	OpenRouterBaseURL string `yaml:"openrouter_base_url"`

	OpenAIModel   string `yaml:"openai_model"`
	OpenAIBaseURL string `yaml:"openai_base_url"`

	OllamaBaseURL string `yaml:"ollama_base_url"`
	OllamaModel   string `yaml:"ollama_model"`

	SegmentCount     int     `yaml:"segment_count"`
	MaxSegmentLength int     `yaml:"max_segment_length"`
	OverlapThreshold float64 `yaml:"overlap_threshold"`

	// SystemPrompt and UserPrompt override the built-in proposal templates.
	SystemPrompt string `yaml:"system_prompt"`
	UserPrompt   string `yaml:"user_prompt"`

	Concurrency int `yaml:"concurrency"`
}

// Default returns the config used when no file and no overrides are present.
func Default() Config {
	return Config{
		DataDir:           ".clipshear",
		OutDir:            "out",
		LogLevel:          "info",
		LogFormat:         "text",
		Transcriber:       "whisper",
		Proposer:          "openrouter",
		FFmpegPath:        "ffmpeg",
		FFprobePath:       "ffprobe",
		WhisperBin:        ".cache/bin/whisper.cpp",
		WhisperModel:      ".cache/models/ggml-base.bin",
		OpenRouterModel:   "z-ai/glm-4.5-air:free",
		OpenRouterBaseURL: "https://openrouter.ai",
		OpenAIModel:       "gpt-4o-mini",
		OllamaBaseURL:     "http://localhost:11434",
		OllamaModel:       "llama3.1",
		SegmentCount:      10,
		MaxSegmentLength:  60,
		OverlapThreshold:  0.5,
		Concurrency:       2,
	}
}

// Load reads path (if non-empty and present) over the defaults, then applies
// environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return Config{}, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	envString(&cfg.DataDir, "CLIPSHEAR_DATA_DIR")
	envString(&cfg.OutDir, "CLIPSHEAR_OUT_DIR")
	envString(&cfg.LogLevel, "CLIPSHEAR_LOG_LEVEL")
	envString(&cfg.LogFormat, "CLIPSHEAR_LOG_FORMAT")
	envString(&cfg.Transcriber, "CLIPSHEAR_TRANSCRIBER")
	envString(&cfg.Proposer, "CLIPSHEAR_PROPOSER")
	envString(&cfg.FFmpegPath, "CLIPSHEAR_FFMPEG_PATH")
	envString(&cfg.FFprobePath, "CLIPSHEAR_FFPROBE_PATH")
	envString(&cfg.WhisperBin, "CLIPSHEAR_WHISPER_BIN")
	envString(&cfg.WhisperModel, "CLIPSHEAR_WHISPER_MODEL")
	envString(&cfg.SpeechBaseURL, "CLIPSHEAR_SPEECH_BASE_URL")
	envString(&cfg.OpenRouterModel, "OPENROUTER_MODEL")
	envString(&cfg.OpenRouterBaseURL, "OPENROUTER_BASE_URL")
	envString(&cfg.OpenAIModel, "OPENAI_MODEL")
	envString(&cfg.OpenAIBaseURL, "OPENAI_BASE_URL")
	envString(&cfg.OllamaBaseURL, "OLLAMA_BASE_URL")
	envString(&cfg.OllamaModel, "OLLAMA_MODEL")
	envInt(&cfg.SegmentCount, "CLIPSHEAR_SEGMENT_COUNT")
	envInt(&cfg.MaxSegmentLength, "CLIPSHEAR_MAX_SEGMENT_LENGTH")
	envInt(&cfg.Concurrency, "CLIPSHEAR_CONCURRENCY")
}

func envString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(dst *int, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	if n, err := strconv.Atoi(v); err == nil {
		*dst = n
	}
}
