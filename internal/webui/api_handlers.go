package webui

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ca-srg/medassist/internal/facade"
)

const maxJSONBodyBytes = 256 << 10

// handleAPIConsult answers POST /api/consult
func (s *Server) handleAPIConsult(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req ConsultRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	artifact, err := s.assistant.Consult(r.Context(), req.Message, req.History)
	s.writeResult(w, r, artifact, err)
}

// searchAPI answers POST /api/{drugs,side-effects,papers}
func (s *Server) searchAPI(tab string) http.Handler {
	search := s.searchFunc(tab)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req SearchRequest
		if !s.decodeJSON(w, r, &req) {
			return
		}
		artifact, err := search(r.Context(), req.Query)
		s.writeResult(w, r, artifact, err)
	})
}

// handleAPIImage answers POST /api/image with a multipart "image" file and optional "note"
func (s *Server) handleAPIImage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	image, mimeType, note, err := s.readImageUpload(w, r)
	if err != nil {
		status := http.StatusBadRequest
		kind := "invalid_request"
		if errors.Is(err, errImageTooLarge) {
			status = http.StatusRequestEntityTooLarge
			kind = "image_too_large"
		}
		s.writeJSON(w, status, APIResponse{
			Error:     &APIError{Kind: kind, Message: err.Error()},
			RequestID: requestIDFromContext(r.Context()),
		})
		return
	}

	artifact, err := s.assistant.AnalyzeImage(r.Context(), image, mimeType, note)
	s.writeResult(w, r, artifact, err)
}

// handleAPIExamples returns the example gallery
func (s *Server) handleAPIExamples(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, http.StatusOK, s.gallery)
}

// handleHealth reports liveness
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// decodeJSON reads a bounded JSON body into v, writing a 400 response on failure
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.writeJSON(w, http.StatusBadRequest, APIResponse{
			Error:     &APIError{Kind: "invalid_request", Message: "request body must be valid JSON"},
			RequestID: requestIDFromContext(r.Context()),
		})
		return false
	}
	return true
}

// writeResult writes the artifact envelope. Empty input is a client error, other
// façade failures still carry a renderable artifact and return 200.
func (s *Server) writeResult(w http.ResponseWriter, r *http.Request, artifact *facade.DisplayArtifact, err error) {
	status := http.StatusOK
	if facade.KindOf(err) == facade.ErrorKindEmptyInput {
		status = http.StatusBadRequest
	} else if err != nil {
		s.logger.Printf("Query failed (request_id=%s): %v", requestIDFromContext(r.Context()), err)
	}
	s.writeJSON(w, status, APIResponse{
		Artifact:  artifact,
		Error:     apiError(err),
		RequestID: requestIDFromContext(r.Context()),
	})
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Printf("Error encoding JSON: %v", err)
	}
}
