package facade

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// ArtifactKind tells renderers which shape a DisplayArtifact has
type ArtifactKind string

const (
	ArtifactChart ArtifactKind = "chart"
	ArtifactText  ArtifactKind = "text"
)

// Placeholder texts shown instead of a result
const (
	MessageEnterSearchTerm = "Please enter a search term."
	MessageEnterQuestion   = "Please enter a question."
	MessageUploadImage     = "Please upload an image of the symptom."
	MessageNoData          = "No data found."
	MessageFetchFailed     = "An error occurred while fetching data."
)

const (
	maxChartItems    = 10
	maxDigestItems   = 3
	chartOrientation = "h"
	chartColor       = "#3b82f6"
)

// ChartSpec describes a horizontal bar chart. Labels and Values are parallel.
type ChartSpec struct {
	Title       string   `json:"title"`
	XAxisTitle  string   `json:"x_axis_title,omitempty"`
	YAxisTitle  string   `json:"y_axis_title,omitempty"`
	Orientation string   `json:"orientation"`
	Color       string   `json:"color,omitempty"`
	Labels      []string `json:"labels"`
	Values      []int    `json:"values"`
	// Annotation replaces the bars on placeholder charts
	Annotation string `json:"annotation,omitempty"`
}

// Empty reports whether the chart has no bars
func (c *ChartSpec) Empty() bool {
	return c == nil || len(c.Labels) == 0
}

// DisplayArtifact is the display-ready output of a façade operation
type DisplayArtifact struct {
	Kind        ArtifactKind `json:"kind"`
	Chart       *ChartSpec   `json:"chart,omitempty"`
	Text        string       `json:"text,omitempty"`
	Placeholder bool         `json:"placeholder,omitempty"`
}

var printer = message.NewPrinter(language.English)

// FormatCount renders n with English digit grouping, e.g. 1,234
func FormatCount(n int) string {
	return printer.Sprintf("%d", n)
}

// Format projects result into a DisplayArtifact for intent. It never mutates result.
func Format(result *ExternalResult, intent Intent) *DisplayArtifact {
	switch intent {
	case IntentDrugsByCondition, IntentSideEffectsByDrug:
		if result == nil || len(result.Counts) == 0 {
			return chartPlaceholder(MessageNoData)
		}
		return formatCounts(result, intent)
	default:
		if result == nil || (strings.TrimSpace(result.Narrative) == "" && len(result.Papers) == 0) {
			return textPlaceholder(MessageNoData)
		}
		return formatNarrative(result)
	}
}

func formatCounts(result *ExternalResult, intent Intent) *DisplayArtifact {
	items := result.Counts
	if len(items) > maxChartItems {
		items = items[:maxChartItems]
	}

	chart := &ChartSpec{
		Orientation: chartOrientation,
		Color:       chartColor,
		Labels:      make([]string, 0, len(items)),
		Values:      make([]int, 0, len(items)),
	}
	for _, item := range items {
		chart.Labels = append(chart.Labels, item.Term)
		chart.Values = append(chart.Values, item.Count)
	}

	artifact := &DisplayArtifact{Kind: ArtifactChart, Chart: chart}

	switch intent {
	case IntentSideEffectsByDrug:
		chart.Title = fmt.Sprintf("%s: most reported side effects", result.Query)
		chart.XAxisTitle = "Reports"
		chart.YAxisTitle = "Side effect"
	case IntentDrugsByCondition:
		chart.Title = fmt.Sprintf("'%s' drug search results", result.Query)
		chart.XAxisTitle = "Reports"
		chart.YAxisTitle = "Drug"
		artifact.Text = rankedListing(chart.Title, items)
	}

	return artifact
}

func rankedListing(title string, items []CountItem) string {
	var b strings.Builder
	b.WriteString(title)
	b.WriteString(":\n\n")
	for i, item := range items {
		fmt.Fprintf(&b, "%d. %s\n   Reports: %s\n", i+1, item.Term, FormatCount(item.Count))
		if i < len(items)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func formatNarrative(result *ExternalResult) *DisplayArtifact {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(result.Narrative))

	papers := result.Papers
	if len(papers) > maxDigestItems {
		papers = papers[:maxDigestItems]
	}
	if len(papers) > 0 {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		lines := make([]string, 0, len(papers))
		for _, p := range papers {
			lines = append(lines, paperBullet(p))
		}
		b.WriteString(strings.Join(lines, "\n"))
	}

	return &DisplayArtifact{Kind: ArtifactText, Text: b.String()}
}

func paperBullet(p Paper) string {
	line := "- " + p.Title
	var meta []string
	if p.Source != "" {
		meta = append(meta, p.Source)
	}
	if p.PubDate != "" {
		meta = append(meta, p.PubDate)
	}
	if len(meta) > 0 {
		line += " (" + strings.Join(meta, ", ") + ")"
	}
	return line + " [PMID: " + p.ID + "]"
}

func chartPlaceholder(msg string) *DisplayArtifact {
	return &DisplayArtifact{
		Kind:        ArtifactChart,
		Chart:       &ChartSpec{Orientation: chartOrientation, Annotation: msg, Labels: []string{}, Values: []int{}},
		Text:        msg,
		Placeholder: true,
	}
}

func textPlaceholder(msg string) *DisplayArtifact {
	return &DisplayArtifact{Kind: ArtifactText, Text: msg, Placeholder: true}
}

// errorMessage picks the placeholder wording for a failed request
func errorMessage(err *Error) string {
	switch err.Kind {
	case ErrorKindMalformedResponse:
		return MessageNoData
	case ErrorKindUpstreamUnavailable:
		if err.StatusCode == 404 {
			return MessageNoData
		}
		return MessageFetchFailed
	case ErrorKindEmptyInput:
		return err.Message
	default:
		return MessageFetchFailed
	}
}

// PlainText renders a for text-only surfaces. Charts without a listing become a numbered list.
func (a *DisplayArtifact) PlainText() string {
	if a == nil {
		return ""
	}
	if a.Kind != ArtifactChart || a.Text != "" {
		return a.Text
	}
	if a.Chart == nil {
		return ""
	}
	if a.Chart.Empty() {
		return a.Chart.Annotation
	}

	var b strings.Builder
	b.WriteString(a.Chart.Title)
	b.WriteString(":\n\n")
	for i, label := range a.Chart.Labels {
		value := 0
		if i < len(a.Chart.Values) {
			value = a.Chart.Values[i]
		}
		fmt.Fprintf(&b, "%d. %s: %s\n", i+1, label, FormatCount(value))
	}
	return strings.TrimRight(b.String(), "\n")
}
