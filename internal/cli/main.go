// Package cli defines the clipshear command tree.
package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func Main() {
	_ = godotenv.Load() // best-effort: load .env if present

	root := &cobra.Command{
		Use:          "clipshear",
		Short:        "Cut share-ready clips out of long recordings",
		SilenceUsage: true,
	}
	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)
	root.SilenceErrors = true

	root.PersistentFlags().String("config", "clipshear.yaml", "Config file path")
	root.PersistentFlags().String("data-dir", "", "Data directory (overrides config)")
	root.PersistentFlags().String("log-level", "", "Log level (overrides config)")

	root.AddCommand(newAnalyzeCmd())
	root.AddCommand(newExtractCmd())
	root.AddCommand(newProjectsCmd())
	root.AddCommand(newSegmentsCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
