package webui

import (
	"github.com/ca-srg/medassist/internal/facade"
	"github.com/ca-srg/medassist/internal/gallery"
)

// Tab identifiers, shared with the example gallery
const (
	tabConsult     = "consult"
	tabDrugs       = "drugs"
	tabSideEffects = "side-effects"
	tabPapers      = "papers"
	tabImage       = "image"
)

// PageData holds data passed to page templates
type PageData struct {
	ActivePage  string
	Tabs        []gallery.Tab
	Tab         *gallery.Tab
	Query       string
	Note        string
	Artifact    *facade.DisplayArtifact
	Error       *APIError
	History     []facade.Turn
	HistoryJSON string
	RequestID   string
}

// APIError is the error envelope returned alongside an artifact
type APIError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// APIResponse is the JSON body of every query endpoint
type APIResponse struct {
	Artifact  *facade.DisplayArtifact `json:"artifact"`
	Error     *APIError               `json:"error,omitempty"`
	RequestID string                  `json:"request_id,omitempty"`
}

// SearchRequest is the body of the drug, side-effect and literature endpoints
type SearchRequest struct {
	Query string `json:"query"`
}

// ConsultRequest is the body of the consult endpoint
type ConsultRequest struct {
	Message string        `json:"message"`
	History []facade.Turn `json:"history"`
}

// HealthResponse is the body of the health endpoint
type HealthResponse struct {
	Status string `json:"status"`
}
