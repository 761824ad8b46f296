package llm

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/ca-srg/medassist/internal/facade"
	"github.com/ca-srg/medassist/internal/llm/bedrock"
	"github.com/ca-srg/medassist/internal/llm/gemini"
	"github.com/ca-srg/medassist/internal/metrics"
	"github.com/ca-srg/medassist/internal/types"
)

var llmTracer = otel.Tracer("medassist/llm")

// NewGenerator builds the generator selected by cfg.LLMProvider
func NewGenerator(ctx context.Context, cfg *types.Config) (facade.Generator, error) {
	var gen facade.Generator
	switch cfg.LLMProvider {
	case types.ProviderGemini, "":
		client, err := gemini.NewClient(ctx, cfg.GeminiAPIKey, cfg.GeminiTextModel, cfg.GeminiVisionModel,
			gemini.WithHTTPClient(&http.Client{Timeout: cfg.UpstreamTimeout}))
		if err != nil {
			return nil, err
		}
		gen = client
	case types.ProviderBedrock:
		client, err := bedrock.NewClient(ctx, cfg.BedrockRegion, cfg.BedrockModelID)
		if err != nil {
			return nil, err
		}
		gen = client
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.LLMProvider)
	}

	return Instrument(gen, cfg.LLMProvider, cfg.UpstreamTimeout), nil
}

// Instrument wraps gen with a per-call timeout, a span and the upstream latency histogram
func Instrument(gen facade.Generator, provider string, timeout time.Duration) facade.Generator {
	return &instrumented{next: gen, provider: provider, timeout: timeout}
}

type instrumented struct {
	next     facade.Generator
	provider string
	timeout  time.Duration
}

func (g *instrumented) GenerateText(ctx context.Context, prompt string) (string, error) {
	return g.call(ctx, "llm.generate_text", func(ctx context.Context) (string, error) {
		return g.next.GenerateText(ctx, prompt)
	})
}

func (g *instrumented) GenerateFromImage(ctx context.Context, prompt string, image []byte, mimeType string) (string, error) {
	return g.call(ctx, "llm.generate_from_image", func(ctx context.Context) (string, error) {
		return g.next.GenerateFromImage(ctx, prompt, image, mimeType)
	})
}

func (g *instrumented) call(ctx context.Context, name string, fn func(context.Context) (string, error)) (string, error) {
	ctx, span := llmTracer.Start(ctx, name)
	defer span.End()
	span.SetAttributes(attribute.String("llm.provider", g.provider))

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	text, err := fn(ctx)
	status := 200
	if err != nil {
		status = 0
		span.RecordError(err)
		span.SetStatus(codes.Error, "generation_failed")
	} else {
		span.SetStatus(codes.Ok, "")
	}
	metrics.RecordUpstream(ctx, facade.UpstreamGenerator, status, time.Since(start))
	return text, err
}
