package webui

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ca-srg/medassist/internal/facade"
)

type mockAssistant struct {
	mock.Mock
}

func (m *mockAssistant) Consult(ctx context.Context, message string, history []facade.Turn) (*facade.DisplayArtifact, error) {
	args := m.Called(ctx, message, history)
	return artifactArg(args), args.Error(1)
}

func (m *mockAssistant) SearchDrugs(ctx context.Context, condition string) (*facade.DisplayArtifact, error) {
	args := m.Called(ctx, condition)
	return artifactArg(args), args.Error(1)
}

func (m *mockAssistant) SideEffects(ctx context.Context, drug string) (*facade.DisplayArtifact, error) {
	args := m.Called(ctx, drug)
	return artifactArg(args), args.Error(1)
}

func (m *mockAssistant) SearchLiterature(ctx context.Context, term string) (*facade.DisplayArtifact, error) {
	args := m.Called(ctx, term)
	return artifactArg(args), args.Error(1)
}

func (m *mockAssistant) AnalyzeImage(ctx context.Context, image []byte, mimeType, note string) (*facade.DisplayArtifact, error) {
	args := m.Called(ctx, image, mimeType, note)
	return artifactArg(args), args.Error(1)
}

func artifactArg(args mock.Arguments) *facade.DisplayArtifact {
	if a, ok := args.Get(0).(*facade.DisplayArtifact); ok {
		return a
	}
	return nil
}

func newTestServer(t *testing.T, assistant Assistant) http.Handler {
	t.Helper()
	cfg := DefaultServerConfig()
	cfg.MaxImageBytes = 1024
	cfg.RateLimitPerMinute = 1000
	s, err := NewServer(cfg, assistant, nil, log.New(io.Discard, "", 0))
	require.NoError(t, err)
	return s.Handler()
}

func sideEffectsChart() *facade.DisplayArtifact {
	return &facade.DisplayArtifact{
		Kind: facade.ArtifactChart,
		Chart: &facade.ChartSpec{
			Title:       "aspirin: most reported side effects",
			Orientation: "h",
			Labels:      []string{"NAUSEA", "HEADACHE"},
			Values:      []int{1234, 617},
		},
	}
}

func decodeResponse(t *testing.T, body io.Reader) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.NewDecoder(body).Decode(&resp))
	return resp
}

func TestNewServer_RequiresAssistant(t *testing.T) {
	_, err := NewServer(nil, nil, nil, nil)
	assert.Error(t, err)
}

func TestHealthAndRequestID(t *testing.T) {
	h := newTestServer(t, &mockAssistant{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))

	const id = "6f1c1f0e-4b4f-4a39-9d57-2d0c8f9b7e11"
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, id)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, id, rec.Header().Get(requestIDHeader))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, "not a uuid")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.NotEqual(t, "not a uuid", rec.Header().Get(requestIDHeader))
}

func TestAPISideEffects(t *testing.T) {
	assistant := &mockAssistant{}
	assistant.On("SideEffects", mock.Anything, "aspirin").Return(sideEffectsChart(), nil)
	h := newTestServer(t, assistant)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/side-effects", strings.NewReader(`{"query":"aspirin"}`)))

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec.Body)
	require.NotNil(t, resp.Artifact)
	assert.Nil(t, resp.Error)
	assert.Equal(t, []string{"NAUSEA", "HEADACHE"}, resp.Artifact.Chart.Labels)
	assert.NotEmpty(t, resp.RequestID)
	assistant.AssertExpectations(t)
}

func TestAPI_EmptyInputIsBadRequest(t *testing.T) {
	assistant := &mockAssistant{}
	placeholder := &facade.DisplayArtifact{Kind: facade.ArtifactText, Text: facade.MessageEnterSearchTerm, Placeholder: true}
	assistant.On("SearchLiterature", mock.Anything, "  ").
		Return(placeholder, facade.NewEmptyInputError(facade.MessageEnterSearchTerm))
	h := newTestServer(t, assistant)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/papers", strings.NewReader(`{"query":"  "}`)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec.Body)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "empty_input", resp.Error.Kind)
	require.NotNil(t, resp.Artifact)
	assert.True(t, resp.Artifact.Placeholder)
}

func TestAPI_UpstreamFailureStillRenders(t *testing.T) {
	assistant := &mockAssistant{}
	placeholder := &facade.DisplayArtifact{
		Kind:        facade.ArtifactChart,
		Chart:       &facade.ChartSpec{Annotation: facade.MessageFetchFailed},
		Placeholder: true,
	}
	assistant.On("SearchDrugs", mock.Anything, "cold").
		Return(placeholder, facade.NewUpstreamError("openfda", 500, nil))
	h := newTestServer(t, assistant)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/drugs", strings.NewReader(`{"query":"cold"}`)))

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec.Body)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "upstream_unavailable", resp.Error.Kind)
	assert.Equal(t, facade.MessageFetchFailed, resp.Artifact.Chart.Annotation)
}

func TestAPI_InvalidJSONAndMethod(t *testing.T) {
	h := newTestServer(t, &mockAssistant{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/drugs", strings.NewReader(`{`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_request")

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/drugs", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestAPIConsult_PassesHistory(t *testing.T) {
	assistant := &mockAssistant{}
	history := []facade.Turn{
		{Role: facade.RoleUser, Content: "I have a headache"},
		{Role: facade.RoleAssistant, Content: "How long has it lasted?"},
	}
	reply := &facade.DisplayArtifact{Kind: facade.ArtifactText, Text: "Rest and hydrate."}
	assistant.On("Consult", mock.Anything, "two days", history).Return(reply, nil)
	h := newTestServer(t, assistant)

	body, err := json.Marshal(ConsultRequest{Message: "two days", History: history})
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/consult", bytes.NewReader(body)))

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec.Body)
	assert.Equal(t, "Rest and hydrate.", resp.Artifact.Text)
	assistant.AssertExpectations(t)
}

func multipartImage(t *testing.T, image []byte, contentType, note string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if image != nil {
		header := make(map[string][]string)
		header["Content-Disposition"] = []string{`form-data; name="image"; filename="rash.png"`}
		header["Content-Type"] = []string{contentType}
		part, err := mw.CreatePart(header)
		require.NoError(t, err)
		_, err = part.Write(image)
		require.NoError(t, err)
	}
	require.NoError(t, mw.WriteField("note", note))
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestAPIImage(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n fake")
	assistant := &mockAssistant{}
	assistant.On("AnalyzeImage", mock.Anything, png, "", "itchy since yesterday").
		Return(&facade.DisplayArtifact{Kind: facade.ArtifactText, Text: "Possible contact dermatitis."}, nil)
	h := newTestServer(t, assistant)

	body, contentType := multipartImage(t, png, "application/octet-stream", "itchy since yesterday")
	req := httptest.NewRequest(http.MethodPost, "/api/image", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec.Body)
	assert.Equal(t, "Possible contact dermatitis.", resp.Artifact.Text)
	assistant.AssertExpectations(t)
}

func TestAPIImage_MissingFile(t *testing.T) {
	assistant := &mockAssistant{}
	placeholder := &facade.DisplayArtifact{Kind: facade.ArtifactText, Text: facade.MessageUploadImage, Placeholder: true}
	assistant.On("AnalyzeImage", mock.Anything, []byte(nil), "", "").
		Return(placeholder, facade.NewEmptyInputError(facade.MessageUploadImage))
	h := newTestServer(t, assistant)

	body, contentType := multipartImage(t, nil, "", "")
	req := httptest.NewRequest(http.MethodPost, "/api/image", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec.Body)
	assert.Equal(t, facade.MessageUploadImage, resp.Artifact.Text)
}

func TestAPIImage_TooLarge(t *testing.T) {
	h := newTestServer(t, &mockAssistant{})

	body, contentType := multipartImage(t, bytes.Repeat([]byte{0xff}, 4096), "image/jpeg", "")
	req := httptest.NewRequest(http.MethodPost, "/api/image", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Contains(t, rec.Body.String(), "image_too_large")
}

func TestAPIExamples(t *testing.T) {
	h := newTestServer(t, &mockAssistant{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/examples", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":"side-effects"`)
}

func TestPages(t *testing.T) {
	h := newTestServer(t, &mockAssistant{})

	for _, path := range []string{"/", "/consult", "/drugs", "/side-effects", "/papers", "/image"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.Contains(t, rec.Header().Get("Content-Type"), "text/html", path)
		assert.Contains(t, rec.Body.String(), "Medical Assistant", path)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSearchPage_RendersChart(t *testing.T) {
	assistant := &mockAssistant{}
	assistant.On("SideEffects", mock.Anything, "aspirin").Return(sideEffectsChart(), nil)
	h := newTestServer(t, assistant)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/side-effects?q=aspirin", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "aspirin: most reported side effects")
	assert.Contains(t, body, "NAUSEA")
	assert.Contains(t, body, "1,234")
	assert.Contains(t, body, "width: 100%")
	assert.Contains(t, body, "width: 50%")
}

func TestConsultPage_AppendsHistory(t *testing.T) {
	assistant := &mockAssistant{}
	reply := &facade.DisplayArtifact{Kind: facade.ArtifactText, Text: "Drink plenty of water."}
	assistant.On("Consult", mock.Anything, "I have a cold", []facade.Turn(nil)).Return(reply, nil)
	h := newTestServer(t, assistant)

	form := url.Values{"message": {"I have a cold"}, "history": {""}}
	req := httptest.NewRequest(http.MethodPost, "/consult", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "turn-user")
	assert.Contains(t, body, "Drink plenty of water.")
	assert.Contains(t, body, "name=\"history\"")
	assistant.AssertExpectations(t)
}

func TestBarPercent(t *testing.T) {
	values := []int{200, 100, 1}
	assert.Equal(t, 100, barPercent(values, 200))
	assert.Equal(t, 50, barPercent(values, 100))
	assert.Equal(t, 1, barPercent(values, 1))
	assert.Equal(t, 0, barPercent(nil, 5))
	assert.Equal(t, 0, valueAt(values, 3))
}

func TestHistoryRoundTrip(t *testing.T) {
	history := []facade.Turn{{Role: facade.RoleUser, Content: "hi"}}
	assert.Equal(t, history, decodeHistory(encodeHistory(history)))
	assert.Nil(t, decodeHistory("not json"))
	assert.Empty(t, encodeHistory(nil))
}
