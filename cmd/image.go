package cmd

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var imageNote string

var imageCmd = &cobra.Command{
	Use:   "image <file>",
	Short: "Get a preliminary reading of a symptom photo",
	Long: `
The image command sends a photo of a visible symptom to the vision model and
prints a structured, non-diagnostic reading.

Examples:
  medassist image rash.jpg
  medassist image burn.png --note "hot water, about an hour ago"
`,
	Args: cobra.ExactArgs(1),
	RunE: runImage,
}

func init() {
	imageCmd.Flags().StringVarP(&imageNote, "note", "n", "", "Additional information about the symptom")
}

func runImage(cmd *cobra.Command, args []string) error {
	path := args[0]

	app, err := newApplication(cmd.Context())
	if err != nil {
		return err
	}
	defer app.Close()

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}
	if info.Size() > app.cfg.MaxImageBytes {
		return fmt.Errorf("image is %d bytes, the limit is %d", info.Size(), app.cfg.MaxImageBytes)
	}
	image, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
	defer cancel()

	// An unknown extension leaves the type empty and the content is sniffed instead
	mimeType := mime.TypeByExtension(filepath.Ext(path))
	artifact, err := app.facade.AnalyzeImage(ctx, image, mimeType, imageNote)
	if renderErr := renderArtifact(cmd.OutOrStdout(), artifact, outputJSON); renderErr != nil {
		return renderErr
	}
	return err
}
