package gemini

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedRequest struct {
	path string
	key  string
	body string
}

func newGeminiServer(t *testing.T, status int, reply string) (*httptest.Server, chan capturedRequest) {
	t.Helper()

	captured := make(chan capturedRequest, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		select {
		case captured <- capturedRequest{path: r.URL.Path, key: r.Header.Get("x-goog-api-key"), body: string(body)}:
		default:
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(srv.Close)
	return srv, captured
}

func TestNewClient_RequiresKey(t *testing.T) {
	_, err := NewClient(context.Background(), " ", "gemini-2.0-flash", "")
	assert.Error(t, err)
}

func TestGenerateText(t *testing.T) {
	srv, captured := newGeminiServer(t, http.StatusOK,
		`{"candidates":[{"content":{"role":"model","parts":[{"text":"Hypertension"}]}}]}`)

	client, err := NewClient(context.Background(), "test-key", "gemini-2.0-flash", "gemini-1.5-flash", WithBaseURL(srv.URL))
	require.NoError(t, err)

	reply, err := client.GenerateText(context.Background(), "Translate 고혈압")
	require.NoError(t, err)
	assert.Equal(t, "Hypertension", reply)

	req := <-captured
	assert.True(t, strings.HasSuffix(req.path, "models/gemini-2.0-flash:generateContent"), req.path)
	assert.Equal(t, "test-key", req.key)
	assert.Contains(t, req.body, "Translate 고혈압")
}

func TestGenerateFromImage_UsesVisionModel(t *testing.T) {
	srv, captured := newGeminiServer(t, http.StatusOK,
		`{"candidates":[{"content":{"role":"model","parts":[{"text":"1. Observed symptoms: redness"}]}}]}`)

	client, err := NewClient(context.Background(), "test-key", "gemini-2.0-flash", "gemini-1.5-flash", WithBaseURL(srv.URL))
	require.NoError(t, err)

	image := []byte("\x89PNG\r\n\x1a\n")
	reply, err := client.GenerateFromImage(context.Background(), "Analyze", image, "image/png")
	require.NoError(t, err)
	assert.Contains(t, reply, "Observed symptoms")

	req := <-captured
	assert.True(t, strings.HasSuffix(req.path, "models/gemini-1.5-flash:generateContent"), req.path)
	assert.Contains(t, req.body, base64.StdEncoding.EncodeToString(image))
	assert.Contains(t, req.body, "image/png")
}

func TestGenerate_Errors(t *testing.T) {
	t.Run("server error", func(t *testing.T) {
		srv, _ := newGeminiServer(t, http.StatusInternalServerError, `{"error":{"code":500,"message":"internal"}}`)
		client, err := NewClient(context.Background(), "k", "m", "", WithBaseURL(srv.URL))
		require.NoError(t, err)

		_, err = client.GenerateText(context.Background(), "hello")
		assert.Error(t, err)
	})

	t.Run("no text", func(t *testing.T) {
		srv, _ := newGeminiServer(t, http.StatusOK, `{"candidates":[]}`)
		client, err := NewClient(context.Background(), "k", "m", "", WithBaseURL(srv.URL))
		require.NoError(t, err)

		_, err = client.GenerateText(context.Background(), "hello")
		assert.ErrorContains(t, err, "no text")
	})

	t.Run("empty image", func(t *testing.T) {
		client, err := NewClient(context.Background(), "k", "m", "")
		require.NoError(t, err)

		_, err = client.GenerateFromImage(context.Background(), "p", nil, "image/png")
		assert.Error(t, err)
	})
}
