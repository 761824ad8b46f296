package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "medassist",
	Short: "Medical assistant over openFDA, PubMed and a generative model",
	Long: `medassist answers health questions and looks up public medical data.
It searches openFDA adverse event reports for drugs and side effects,
summarizes PubMed literature, and gives a preliminary reading of symptom photos.
Non-English queries are translated to English before they reach the data sources.

Everything it produces is informational and not a diagnosis.`,
	SilenceUsage: true,
}

// Execute runs the root command and returns the first error a subcommand reports
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(mcpServerCmd)
	rootCmd.AddCommand(drugsCmd)
	rootCmd.AddCommand(sideEffectsCmd)
	rootCmd.AddCommand(papersCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(imageCmd)
	rootCmd.AddCommand(examplesCmd)
}
