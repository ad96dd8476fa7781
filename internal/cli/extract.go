package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/clipshear/clipshear/internal/pipeline"
	"github.com/clipshear/clipshear/internal/types"
)

func newExtractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract <project-id>",
		Short: "Encode clips for a project's approved segments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadPipelineConfig(cmd)
			if err != nil {
				return err
			}
			if v, _ := cmd.Flags().GetString("aspect"); v != "" {
				mode, err := types.ParseAspectRatioMode(v)
				if err != nil {
					return err
				}
				cfg.AspectRatio = mode
			}
			if v, _ := cmd.Flags().GetInt("concurrency"); v > 0 {
				cfg.Concurrency = v
			}
			cfg.BurnSubtitles, _ = cmd.Flags().GetBool("subtitles")
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("config: %w", err)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 3*time.Hour)
			defer cancel()

			res, err := pipeline.Extract(ctx, cfg, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "extracted %d, failed %d, skipped %d\n",
				res.Extracted, res.Failed, res.Skipped)
			if res.Failed > 0 {
				return fmt.Errorf("%d segment(s) failed to extract", res.Failed)
			}
			return nil
		},
	}
	cmd.Flags().String("aspect", "", "Aspect ratio mode: original, vertical-crop, vertical-blur, vertical-split, vertical-podcast, vertical-letterbox")
	cmd.Flags().Bool("subtitles", false, "Burn subtitles into the clips")
	cmd.Flags().Int("concurrency", 0, "Parallel encodes")
	return cmd
}
