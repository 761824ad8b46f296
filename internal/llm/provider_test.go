package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ca-srg/medassist/internal/types"
)

type stubGenerator struct {
	deadline bool
	err      error
}

func (s *stubGenerator) GenerateText(ctx context.Context, prompt string) (string, error) {
	_, s.deadline = ctx.Deadline()
	return "text:" + prompt, s.err
}

func (s *stubGenerator) GenerateFromImage(ctx context.Context, prompt string, image []byte, mimeType string) (string, error) {
	_, s.deadline = ctx.Deadline()
	return mimeType, s.err
}

func TestInstrument(t *testing.T) {
	stub := &stubGenerator{}
	gen := Instrument(stub, types.ProviderGemini, time.Second)

	text, err := gen.GenerateText(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "text:hi", text)
	assert.True(t, stub.deadline, "call context should carry the upstream timeout")

	mime, err := gen.GenerateFromImage(context.Background(), "p", []byte{1}, "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", mime)

	stub.err = errors.New("quota")
	_, err = gen.GenerateText(context.Background(), "hi")
	assert.EqualError(t, err, "quota")
}

func TestNewGenerator(t *testing.T) {
	t.Run("gemini", func(t *testing.T) {
		gen, err := NewGenerator(context.Background(), &types.Config{
			LLMProvider:     types.ProviderGemini,
			GeminiAPIKey:    "k",
			GeminiTextModel: "gemini-2.0-flash",
			UpstreamTimeout: time.Second,
		})
		require.NoError(t, err)
		assert.NotNil(t, gen)
	})

	t.Run("gemini without key", func(t *testing.T) {
		_, err := NewGenerator(context.Background(), &types.Config{LLMProvider: types.ProviderGemini})
		assert.Error(t, err)
	})

	t.Run("unknown provider", func(t *testing.T) {
		_, err := NewGenerator(context.Background(), &types.Config{LLMProvider: "openai"})
		assert.Error(t, err)
	})
}
