package webui

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/ca-srg/medassist/internal/facade"
)

const (
	// maxHistoryFormBytes bounds the hidden history field on the consult page
	maxHistoryFormBytes = 256 << 10
	multipartOverhead   = 1 << 20
)

var errImageTooLarge = errors.New("image exceeds the upload limit")

// handleIndex renders the landing page
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	s.render(w, "index.html", s.pageData(r, ""))
}

// handleConsultPage renders the chat form and, on POST, the next reply
func (s *Server) handleConsultPage(w http.ResponseWriter, r *http.Request) {
	data := s.pageData(r, tabConsult)

	switch r.Method {
	case http.MethodGet:
	case http.MethodPost:
		r.Body = http.MaxBytesReader(w, r.Body, maxHistoryFormBytes)
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form", http.StatusBadRequest)
			return
		}
		message := r.PostFormValue("message")
		history := decodeHistory(r.PostFormValue("history"))

		artifact, err := s.assistant.Consult(r.Context(), message, history)
		data.Artifact = artifact
		data.Error = apiError(err)
		if err == nil && artifact != nil && !artifact.Placeholder {
			history = append(history,
				facade.Turn{Role: facade.RoleUser, Content: strings.TrimSpace(message)},
				facade.Turn{Role: facade.RoleAssistant, Content: artifact.Text},
			)
		} else {
			data.Query = message
		}
		data.History = history
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	data.HistoryJSON = encodeHistory(data.History)
	s.render(w, "consult.html", data)
}

// searchPage renders a single-field search tab. GET with ?q= runs the query so example links work.
func (s *Server) searchPage(tab string) http.Handler {
	search := s.searchFunc(tab)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data := s.pageData(r, tab)

		var query string
		run := false
		switch r.Method {
		case http.MethodGet:
			if q, ok := r.URL.Query()["q"]; ok {
				query, run = q[0], true
			}
		case http.MethodPost:
			query, run = r.PostFormValue("query"), true
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		data.Query = query
		if run {
			artifact, err := search(r.Context(), query)
			data.Artifact = artifact
			data.Error = apiError(err)
		}
		s.render(w, "search.html", data)
	})
}

// handleImagePage renders the upload form and, on POST, the analysis
func (s *Server) handleImagePage(w http.ResponseWriter, r *http.Request) {
	data := s.pageData(r, tabImage)

	switch r.Method {
	case http.MethodGet:
	case http.MethodPost:
		image, mimeType, note, err := s.readImageUpload(w, r)
		if err != nil {
			status := http.StatusBadRequest
			if errors.Is(err, errImageTooLarge) {
				status = http.StatusRequestEntityTooLarge
			}
			http.Error(w, err.Error(), status)
			return
		}
		artifact, err := s.assistant.AnalyzeImage(r.Context(), image, mimeType, note)
		data.Note = note
		data.Artifact = artifact
		data.Error = apiError(err)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.render(w, "image.html", data)
}

// readImageUpload reads the "image" file and "note" field. A missing file yields nil bytes.
func (s *Server) readImageUpload(w http.ResponseWriter, r *http.Request) ([]byte, string, string, error) {
	limit := s.config.MaxImageBytes
	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)
	if err := r.ParseMultipartForm(limit); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, "", "", errImageTooLarge
		}
		return nil, "", "", err
	}
	note := r.FormValue("note")

	file, header, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, "", note, nil
	}
	if err != nil {
		return nil, "", "", err
	}
	defer func() { _ = file.Close() }()

	image, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		return nil, "", "", err
	}
	if int64(len(image)) > limit {
		return nil, "", "", errImageTooLarge
	}

	// Browsers may send application/octet-stream; leave those to content sniffing
	mimeType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(mimeType, "image/") {
		mimeType = ""
	}
	return image, mimeType, note, nil
}

func (s *Server) pageData(r *http.Request, active string) *PageData {
	data := &PageData{
		ActivePage: active,
		Tabs:       s.gallery.Tabs,
		RequestID:  requestIDFromContext(r.Context()),
	}
	data.Tab = s.gallery.Tab(active)
	return data
}

func (s *Server) render(w http.ResponseWriter, name string, data *PageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.Render(w, name, data); err != nil {
		s.logger.Printf("Error rendering %s: %v", name, err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// apiError converts a façade error into its envelope, nil when err is nil
func apiError(err error) *APIError {
	if err == nil {
		return nil
	}
	var fe *facade.Error
	if errors.As(err, &fe) {
		return &APIError{Kind: string(fe.Kind), Message: fe.Message}
	}
	return &APIError{Kind: "internal", Message: err.Error()}
}

func decodeHistory(raw string) []facade.Turn {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var history []facade.Turn
	if err := json.Unmarshal([]byte(raw), &history); err != nil {
		return nil
	}
	return history
}

func encodeHistory(history []facade.Turn) string {
	if len(history) == 0 {
		return ""
	}
	data, err := json.Marshal(history)
	if err != nil {
		return ""
	}
	return string(data)
}
