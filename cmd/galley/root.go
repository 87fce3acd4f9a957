package main

import (
	"github.com/spf13/cobra"

	"github.com/jackzampolin/galley/internal/output"
	"github.com/jackzampolin/galley/version"
)

var (
	cfgFile      string
	homeDir      string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "galley",
	Short: "Cookbook recipe extraction pipeline with quality-gated OCR and LLM structuring",
	Long: `Galley extracts structured recipes from scanned cookbook pages.

The pipeline includes:
  - Image preprocessing and traditional OCR with quality scoring
  - Vision-LLM fallback extraction for low-quality pages
  - Tiered recipe-boundary segmentation (LLM, pattern, whole-document)
  - Per-recipe structured field parsing
  - Deterministic ingredient-line decomposition`,
	Version: version.GitRelease,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.galley/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "galley home directory (default: ~/.galley)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml or json",
	)

	// Set output format before any command runs
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		output.SetFormat(outputFormat)
	}

	rootCmd.AddCommand(versionCmd)
}
