package gallery

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed examples.yaml
var examplesYAML []byte

// Example is one sample input for a tab
type Example struct {
	Text string `yaml:"text" json:"text,omitempty"`
	Note string `yaml:"note" json:"note,omitempty"`
}

// Tab describes one UI tab and its sample inputs
type Tab struct {
	ID          string    `yaml:"id" json:"id"`
	Title       string    `yaml:"title" json:"title"`
	Description string    `yaml:"description" json:"description"`
	Placeholder string    `yaml:"placeholder" json:"placeholder"`
	Notes       []string  `yaml:"notes" json:"notes,omitempty"`
	Examples    []Example `yaml:"examples" json:"examples"`
}

// Gallery is the ordered list of tabs
type Gallery struct {
	Tabs []Tab `yaml:"tabs" json:"tabs"`
}

// Load parses the embedded gallery
func Load() (*Gallery, error) {
	return Parse(examplesYAML)
}

// Parse decodes a gallery document and checks that tab ids are present and unique
func Parse(data []byte) (*Gallery, error) {
	var g Gallery
	if err := yaml.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("failed to parse gallery: %w", err)
	}

	seen := make(map[string]bool, len(g.Tabs))
	for i, tab := range g.Tabs {
		if tab.ID == "" {
			return nil, fmt.Errorf("gallery tab %d has no id", i)
		}
		if seen[tab.ID] {
			return nil, fmt.Errorf("duplicate gallery tab id %q", tab.ID)
		}
		seen[tab.ID] = true
	}
	return &g, nil
}

// Tab returns the tab with id, or nil
func (g *Gallery) Tab(id string) *Tab {
	if g == nil {
		return nil
	}
	for i := range g.Tabs {
		if g.Tabs[i].ID == id {
			return &g.Tabs[i]
		}
	}
	return nil
}
