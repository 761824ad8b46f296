package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ca-srg/medassist/internal/gallery"
)

var examplesCmd = &cobra.Command{
	Use:   "examples [tab]",
	Short: "List the example queries for each tab",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := gallery.Load()
		if err != nil {
			return err
		}
		tab := ""
		if len(args) == 1 {
			tab = args[0]
		}
		return printExamples(cmd.OutOrStdout(), g, tab)
	},
}

// printExamples lists every tab, or only the tab with id when id is set
func printExamples(w io.Writer, g *gallery.Gallery, id string) error {
	tabs := g.Tabs
	if id != "" {
		tab := g.Tab(id)
		if tab == nil {
			return fmt.Errorf("unknown tab %q", id)
		}
		tabs = []gallery.Tab{*tab}
	}

	for i, tab := range tabs {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "=== %s (%s) ===\n", tab.Title, tab.ID)
		if tab.Description != "" {
			fmt.Fprintln(w, tab.Description)
		}
		for _, ex := range tab.Examples {
			switch {
			case ex.Text != "" && ex.Note != "":
				fmt.Fprintf(w, "  - %s (%s)\n", ex.Text, ex.Note)
			case ex.Text != "":
				fmt.Fprintf(w, "  - %s\n", ex.Text)
			case ex.Note != "":
				fmt.Fprintf(w, "  - note: %s\n", ex.Note)
			}
		}
	}
	return nil
}
