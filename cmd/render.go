package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/ca-srg/medassist/internal/facade"
)

const barWidth = 40

// renderArtifact writes a to w as indented JSON or as terminal text with bar charts
func renderArtifact(w io.Writer, a *facade.DisplayArtifact, asJSON bool) error {
	if asJSON {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(a)
	}
	if a == nil {
		return nil
	}

	if a.Kind == facade.ArtifactChart && a.Chart != nil && !a.Chart.Empty() {
		renderBars(w, a.Chart)
		if a.Text != "" {
			fmt.Fprintln(w)
			fmt.Fprintln(w, strings.TrimRight(a.Text, "\n"))
		}
		return nil
	}

	fmt.Fprintln(w, a.PlainText())
	return nil
}

func renderBars(w io.Writer, chart *facade.ChartSpec) {
	fmt.Fprintf(w, "=== %s ===\n", chart.Title)
	if chart.XAxisTitle != "" || chart.YAxisTitle != "" {
		fmt.Fprintf(w, "(%s by %s)\n", chart.XAxisTitle, strings.ToLower(chart.YAxisTitle))
	}
	fmt.Fprintln(w)

	labelWidth := 0
	largest := 0
	for i, label := range chart.Labels {
		if n := utf8.RuneCountInString(label); n > labelWidth {
			labelWidth = n
		}
		if v := valueAt(chart.Values, i); v > largest {
			largest = v
		}
	}

	for i, label := range chart.Labels {
		value := valueAt(chart.Values, i)
		length := 0
		if largest > 0 && value > 0 {
			length = value * barWidth / largest
			if length == 0 {
				length = 1
			}
		}
		padding := strings.Repeat(" ", labelWidth-utf8.RuneCountInString(label))
		fmt.Fprintf(w, "%s%s  %s%s %s\n",
			label, padding,
			strings.Repeat("█", length), strings.Repeat(" ", barWidth-length),
			facade.FormatCount(value))
	}
}

func valueAt(values []int, i int) int {
	if i < len(values) {
		return values[i]
	}
	return 0
}
