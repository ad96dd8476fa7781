package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/clipshear/clipshear/internal/pipeline"
)

func newAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <video>",
		Short: "Transcribe a video and propose segments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadPipelineConfig(cmd)
			if err != nil {
				return err
			}
			if v, _ := cmd.Flags().GetInt("segments"); v > 0 {
				cfg.SegmentCount = v
			}
			if v, _ := cmd.Flags().GetInt("max-length"); v > 0 {
				cfg.MaxSegmentLength = time.Duration(v) * time.Second
			}
			if v, _ := cmd.Flags().GetString("transcriber"); v != "" {
				cfg.Transcriber = v
			}
			if v, _ := cmd.Flags().GetString("proposer"); v != "" {
				cfg.Proposer = v
			}
			if err := cfg.ValidateAnalyze(); err != nil {
				return fmt.Errorf("config: %w", err)
			}

			name, _ := cmd.Flags().GetString("name")

			ctx, cancel := context.WithTimeout(cmd.Context(), 3*time.Hour)
			defer cancel()

			res, err := pipeline.Analyze(ctx, cfg, args[0], name)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "project %s (%s)\n", res.Project.ID, res.Project.Name)
			for _, seg := range res.Segments {
				fmt.Fprintf(out, "  %s  %s -> %s  %s\n",
					seg.ID, fmtDuration(seg.Start), fmtDuration(seg.End), seg.Summary)
			}
			if n := len(res.Rejections); n > 0 {
				fmt.Fprintf(out, "%d candidate(s) rejected; see logs\n", n)
			}
			return nil
		},
	}
	cmd.Flags().String("name", "", "Project name (defaults to the file name)")
	cmd.Flags().Int("segments", 0, "Number of segments to request")
	cmd.Flags().Int("max-length", 0, "Max segment length in seconds")
	cmd.Flags().String("transcriber", "", "Transcription backend: whisper, cloud, fake")
	cmd.Flags().String("proposer", "", "Proposal backend: openrouter, openai, ollama, fake")
	return cmd
}
