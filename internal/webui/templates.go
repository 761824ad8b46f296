package webui

import (
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/ca-srg/medassist/internal/facade"
)

//go:embed templates/*.html templates/partials/*.html
var templateFiles embed.FS

//go:embed static/*
var staticFiles embed.FS

// TemplateManager manages HTML templates
type TemplateManager struct {
	templates *template.Template
}

// NewTemplateManager creates a new template manager
func NewTemplateManager() (*TemplateManager, error) {
	funcMap := template.FuncMap{
		"formatCount": facade.FormatCount,
		"barPercent":  barPercent,
		"valueAt":     valueAt,
		"isChart": func(a *facade.DisplayArtifact) bool {
			return a != nil && a.Kind == facade.ArtifactChart
		},
	}

	tmpl, err := template.New("").Funcs(funcMap).ParseFS(templateFiles,
		"templates/*.html",
		"templates/partials/*.html",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	return &TemplateManager{templates: tmpl}, nil
}

// Render renders a template with the given data
func (tm *TemplateManager) Render(w io.Writer, name string, data interface{}) error {
	return tm.templates.ExecuteTemplate(w, name, data)
}

// valueAt returns values[i], or 0 when i is out of range
func valueAt(values []int, i int) int {
	if i < 0 || i >= len(values) {
		return 0
	}
	return values[i]
}

// barPercent scales value against the largest entry in values
func barPercent(values []int, value int) int {
	largest := 0
	for _, v := range values {
		if v > largest {
			largest = v
		}
	}
	if largest <= 0 || value <= 0 {
		return 0
	}
	pct := value * 100 / largest
	if pct < 1 {
		pct = 1
	}
	return pct
}
