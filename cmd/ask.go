package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ca-srg/medassist/internal/facade"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask the medical assistant a question, or start a chat session",
	Long: `
With a question, ask prints one reply. Without arguments it starts an
interactive session that keeps the conversation history between turns.

Examples:
  medassist ask "What should I do about a mild fever?"
  medassist ask                        # Interactive session
`,
	RunE: runAsk,
}

type consultFunc func(ctx context.Context, message string, history []facade.Turn) (*facade.DisplayArtifact, error)

func runAsk(cmd *cobra.Command, args []string) error {
	app, err := newApplication(cmd.Context())
	if err != nil {
		return err
	}
	defer app.Close()

	if len(args) > 0 {
		ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
		defer cancel()

		artifact, err := app.facade.Consult(ctx, strings.Join(args, " "), nil)
		if renderErr := renderArtifact(cmd.OutOrStdout(), artifact, outputJSON); renderErr != nil {
			return renderErr
		}
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "=== Medical Assistant ===")
	fmt.Fprintln(out, "Type 'exit' or 'quit' to end the session")
	fmt.Fprintln(out, "Type 'help' for available commands")
	fmt.Fprintln(out, "=========================")
	fmt.Fprintln(out)

	return chatLoop(cmd.Context(), cmd.InOrStdin(), out, app.facade.Consult)
}

// chatLoop reads one message per line and prints each reply, carrying history between turns
func chatLoop(ctx context.Context, in io.Reader, out io.Writer, consult consultFunc) error {
	scanner := bufio.NewScanner(in)
	var history []facade.Turn

	for {
		fmt.Fprint(out, "You: ")
		if !scanner.Scan() {
			break
		}

		userInput := strings.TrimSpace(scanner.Text())

		switch strings.ToLower(userInput) {
		case "exit", "quit":
			fmt.Fprintln(out, "Goodbye!")
			return nil
		case "help":
			printChatHelp(out)
			continue
		case "clear":
			history = nil
			fmt.Fprintln(out, "Conversation history cleared.")
			continue
		case "":
			continue
		}

		turnCtx, cancel := context.WithTimeout(ctx, requestTimeout)
		artifact, err := consult(turnCtx, userInput, history)
		cancel()
		if err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			if artifact != nil {
				fmt.Fprintf(out, "Assistant: %s\n\n", artifact.PlainText())
			}
			continue
		}

		reply := artifact.PlainText()
		history = append(history,
			facade.Turn{Role: facade.RoleUser, Content: userInput},
			facade.Turn{Role: facade.RoleAssistant, Content: reply},
		)
		fmt.Fprintf(out, "Assistant: %s\n\n", reply)
	}

	return scanner.Err()
}

func printChatHelp(out io.Writer) {
	fmt.Fprintln(out, "\nAvailable commands:")
	fmt.Fprintln(out, "  exit, quit  - End the session")
	fmt.Fprintln(out, "  clear       - Clear conversation history")
	fmt.Fprintln(out, "  help        - Show this help message")
	fmt.Fprintln(out)
}
