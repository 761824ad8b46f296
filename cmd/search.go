package cmd

import (
	"context"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ca-srg/medassist/internal/facade"
)

var (
	outputJSON     bool
	requestTimeout time.Duration
)

type searchOperation func(f *facade.Facade) func(context.Context, string) (*facade.DisplayArtifact, error)

var drugsCmd = &cobra.Command{
	Use:   "drugs <condition>",
	Short: "Show the drugs most reported in openFDA adverse events for a condition",
	Long: `
Examples:
  medassist drugs headache
  medassist drugs 감기
  medassist drugs "high blood pressure" --json
`,
	Args: cobra.MinimumNArgs(1),
	RunE: searchCommand(func(f *facade.Facade) func(context.Context, string) (*facade.DisplayArtifact, error) {
		return f.SearchDrugs
	}),
}

var sideEffectsCmd = &cobra.Command{
	Use:   "side-effects <drug>",
	Short: "Show the reactions most reported in openFDA adverse events for a drug",
	Long: `
Examples:
  medassist side-effects aspirin
  medassist side-effects 타이레놀
`,
	Args: cobra.MinimumNArgs(1),
	RunE: searchCommand(func(f *facade.Facade) func(context.Context, string) (*facade.DisplayArtifact, error) {
		return f.SideEffects
	}),
}

var papersCmd = &cobra.Command{
	Use:   "papers <term>",
	Short: "Search PubMed and summarize the top papers",
	Long: `
Examples:
  medassist papers "diabetes treatment"
  medassist papers 고혈압 --json
`,
	Args: cobra.MinimumNArgs(1),
	RunE: searchCommand(func(f *facade.Facade) func(context.Context, string) (*facade.DisplayArtifact, error) {
		return f.SearchLiterature
	}),
}

func init() {
	for _, c := range []*cobra.Command{drugsCmd, sideEffectsCmd, papersCmd, askCmd, imageCmd} {
		addQueryFlags(c.Flags())
	}
}

// addQueryFlags registers the output and timeout flags shared by one-shot query commands
func addQueryFlags(fs *pflag.FlagSet) {
	fs.BoolVarP(&outputJSON, "json", "j", false, "Output the display artifact as JSON")
	fs.DurationVar(&requestTimeout, "timeout", 2*time.Minute, "Overall request timeout")
}

func searchCommand(op searchOperation) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		app, err := newApplication(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
		defer cancel()

		artifact, err := op(app.facade)(ctx, strings.Join(args, " "))
		if renderErr := renderArtifact(cmd.OutOrStdout(), artifact, outputJSON); renderErr != nil {
			return renderErr
		}
		return err
	}
}
