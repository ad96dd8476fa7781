package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newProjectsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "projects",
		Short: "Manage analyzed projects",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadPipelineConfig(cmd)
			if err != nil {
				return err
			}
			st, err := cfg.OpenStore()
			if err != nil {
				return err
			}
			defer st.Close()

			projects, err := st.ListProjects(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, p := range projects {
				fmt.Fprintf(out, "%s  %-12s  %s  %s\n", p.ID, p.Status, fmtDuration(p.Duration), p.Name)
			}
			return nil
		},
	}

	del := &cobra.Command{
		Use:   "delete <project-id>",
		Short: "Delete a project and its segments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadPipelineConfig(cmd)
			if err != nil {
				return err
			}
			st, err := cfg.OpenStore()
			if err != nil {
				return err
			}
			defer st.Close()

			p, err := st.GetProject(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if p == nil {
				return fmt.Errorf("project %s not found", args[0])
			}
			return st.DeleteProject(cmd.Context(), args[0])
		},
	}

	cmd.AddCommand(list, del)
	return cmd
}
