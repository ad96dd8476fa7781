package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/clipshear/clipshear/internal/store"
)

func newSegmentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "segments",
		Short: "Review and approve proposed segments",
	}

	list := &cobra.Command{
		Use:   "list <project-id>",
		Short: "List a project's segments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, st store.Store) error {
				segs, err := st.ListSegments(ctx, args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for _, seg := range segs {
					fmt.Fprintf(out, "%s  %-11s  %s -> %s  %s\n",
						seg.ID, seg.Status, fmtDuration(seg.Start), fmtDuration(seg.End), seg.Summary)
					if seg.FailureReason != "" {
						fmt.Fprintf(out, "    failure: %s\n", seg.FailureReason)
					}
				}
				return nil
			})
		},
	}

	approve := &cobra.Command{
		Use:   "approve <segment-id>...",
		Short: "Approve generated segments for extraction",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, st store.Store) error {
				for _, id := range args {
					if err := st.ApproveSegment(ctx, id); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}

	reset := &cobra.Command{
		Use:   "reset <segment-id>...",
		Short: "Reset failed segments back to approved",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, st store.Store) error {
				for _, id := range args {
					if err := st.ResetSegment(ctx, id); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}

	cmd.AddCommand(list, approve, reset)
	return cmd
}

func withStore(cmd *cobra.Command, fn func(context.Context, store.Store) error) error {
	cfg, err := loadPipelineConfig(cmd)
	if err != nil {
		return err
	}
	st, err := cfg.OpenStore()
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(cmd.Context(), st)
}
