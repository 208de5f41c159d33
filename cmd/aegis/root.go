package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "aegis",
	Short: "Aegis - AI response governance engine",
	Long: `Aegis is an AI response governance engine that sits between callers
and model providers, ensuring every response passes policy before it is
returned.

Each request flows through a pipeline:
  - Response cache lookup keyed by prompt and context
  - Candidate generation against the primary model provider
  - Concurrent policy evaluation and judge-model scoring
  - Restrictive-wins decision merge
  - Remediation: block, redact, or rewrite flagged responses`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
