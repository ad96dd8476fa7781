package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/clipshear/clipshear/internal/config"
	"github.com/clipshear/clipshear/internal/logging"
	"github.com/clipshear/clipshear/internal/pipeline"
	"github.com/clipshear/clipshear/internal/types"
)

// loadPipelineConfig builds the pipeline config from the config file, the
// environment, and the command's persistent flags, in that order.
func loadPipelineConfig(cmd *cobra.Command) (pipeline.Config, error) {
	cfgPath, _ := cmd.Flags().GetString("config")
	fileCfg, err := config.Load(cfgPath)
	if err != nil {
		return pipeline.Config{}, err
	}

	if v, _ := cmd.Flags().GetString("data-dir"); v != "" {
		fileCfg.DataDir = v
	}
	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		fileCfg.LogLevel = v
	}

	log, err := logging.New(fileCfg.LogLevel, fileCfg.LogFormat)
	if err != nil {
		return pipeline.Config{}, err
	}

	cfg := pipeline.Config{
		DataDir: fileCfg.DataDir,
		OutDir:  fileCfg.OutDir,

		Transcriber: fileCfg.Transcriber,
		Proposer:    fileCfg.Proposer,

		FFmpegPath:  fileCfg.FFmpegPath,
		FFprobePath: fileCfg.FFprobePath,

		WhisperBin:   fileCfg.WhisperBin,
		WhisperModel: fileCfg.WhisperModel,

		SpeechBaseURL: fileCfg.SpeechBaseURL,
		SpeechAPIKey:  os.Getenv("CLIPSHEAR_SPEECH_API_KEY"),

		OpenRouterAPIKey:  os.Getenv("OPENROUTER_API_KEY"),
		OpenRouterModel:   fileCfg.OpenRouterModel,
		OpenRouterBaseURL: fileCfg.OpenRouterBaseURL,

		OpenAIAPIKey:  os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:   fileCfg.OpenAIModel,
		OpenAIBaseURL: fileCfg.OpenAIBaseURL,

		OllamaBaseURL: fileCfg.OllamaBaseURL,
		OllamaModel:   fileCfg.OllamaModel,

		SegmentCount:     fileCfg.SegmentCount,
		MaxSegmentLength: time.Duration(fileCfg.MaxSegmentLength) * time.Second,
		OverlapThreshold: fileCfg.OverlapThreshold,
		SystemPrompt:     fileCfg.SystemPrompt,
		UserPrompt:       fileCfg.UserPrompt,

		AspectRatio:   types.AspectOriginal,
		OutputWidth:   1080,
		OutputHeight:  1920,
		SubtitleStyle: types.DefaultSubtitleStyle(),

		Concurrency: fileCfg.Concurrency,

		Log: log,
	}
	return cfg, nil
}

func fmtDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	m := (d % time.Hour) / time.Minute
	s := (d % time.Minute) / time.Second
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
