package facade

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ca-srg/medassist/internal/metrics"
)

var facadeTracer = otel.Tracer("medassist/facade")

// Operation names used for spans and metrics
const (
	OperationConsult       = "consult"
	OperationDrugSearch    = "drug_search"
	OperationSideEffects   = "side_effects"
	OperationLiterature    = "literature"
	OperationImageAnalysis = "image_analysis"
)

// Upstream names carried by *Error
const (
	UpstreamOpenFDA   = "openfda"
	UpstreamPubMed    = "pubmed"
	UpstreamGenerator = "generator"
)

const maxHistoryTurns = 20

// Generator produces text from a prompt, optionally with an image
type Generator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
	GenerateFromImage(ctx context.Context, prompt string, image []byte, mimeType string) (string, error)
}

// Executor performs one NormalizedRequest against an upstream service
type Executor interface {
	Execute(ctx context.Context, req NormalizedRequest) (*ExternalResult, error)
}

// Deps are the collaborators injected into a Facade
type Deps struct {
	Generator    Generator
	AdverseEvent Executor
	Literature   Executor
	SystemPrompt string
	Logger       *log.Logger
}

// Facade turns free-text medical queries into display-ready artifacts.
// It holds no per-request state and is safe for concurrent use.
type Facade struct {
	generator    Generator
	adverseEvent Executor
	literature   Executor
	translator   *Translator
	systemPrompt string
	logger       *log.Logger
}

// New creates a Facade from deps
func New(deps Deps) (*Facade, error) {
	if deps.Generator == nil {
		return nil, fmt.Errorf("generator is required")
	}
	if deps.AdverseEvent == nil {
		return nil, fmt.Errorf("adverse event executor is required")
	}
	if deps.Literature == nil {
		return nil, fmt.Errorf("literature executor is required")
	}

	logger := deps.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	return &Facade{
		generator:    deps.Generator,
		adverseEvent: deps.AdverseEvent,
		literature:   deps.Literature,
		translator:   NewTranslator(deps.Generator, logger),
		systemPrompt: deps.SystemPrompt,
		logger:       logger,
	}, nil
}

// Consult answers a general medical question. history carries prior turns oldest first.
func (f *Facade) Consult(ctx context.Context, message string, history []Turn) (*DisplayArtifact, error) {
	ctx, span := facadeTracer.Start(ctx, "facade.consult")
	defer span.End()

	message = strings.TrimSpace(message)
	if message == "" {
		return f.reject(ctx, span, OperationConsult, textPlaceholder(MessageEnterQuestion), MessageEnterQuestion)
	}
	if len(history) > maxHistoryTurns {
		history = history[len(history)-maxHistoryTurns:]
	}
	span.SetAttributes(attribute.Int("consult.history_turns", len(history)))

	reply, err := f.generator.GenerateText(ctx, buildConsultPrompt(f.systemPrompt, history, message))
	if err != nil {
		return f.fail(ctx, span, OperationConsult, false, asFacadeError(err, UpstreamGenerator))
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return f.fail(ctx, span, OperationConsult, false, NewMalformedResponseError(UpstreamGenerator, "was empty", nil))
	}

	f.succeed(ctx, span, OperationConsult)
	return &DisplayArtifact{Kind: ArtifactText, Text: reply}, nil
}

// SearchDrugs lists the drugs most often reported for condition
func (f *Facade) SearchDrugs(ctx context.Context, condition string) (*DisplayArtifact, error) {
	return f.countSearch(ctx, OperationDrugSearch, IntentDrugsByCondition, condition)
}

// SideEffects charts the reactions most often reported for drug
func (f *Facade) SideEffects(ctx context.Context, drug string) (*DisplayArtifact, error) {
	return f.countSearch(ctx, OperationSideEffects, IntentSideEffectsByDrug, drug)
}

func (f *Facade) countSearch(ctx context.Context, operation string, intent Intent, raw string) (*DisplayArtifact, error) {
	ctx, span := facadeTracer.Start(ctx, "facade."+operation)
	defer span.End()

	query := Normalize(raw)
	if query.Empty() {
		return f.reject(ctx, span, operation, chartPlaceholder(MessageEnterSearchTerm), MessageEnterSearchTerm)
	}

	term := f.effectiveTerm(ctx, span, query)
	req := BuildRequest(term, intent)
	span.SetAttributes(attribute.String("facade.intent", string(intent)))

	result, err := f.adverseEvent.Execute(ctx, req)
	if err != nil {
		return f.fail(ctx, span, operation, true, asFacadeError(err, UpstreamOpenFDA))
	}
	if result == nil {
		return f.fail(ctx, span, operation, true, NewMalformedResponseError(UpstreamOpenFDA, "was empty", nil))
	}

	artifact := Format(result, intent)
	span.SetAttributes(attribute.Int("facade.result.items", len(result.Counts)))
	f.succeed(ctx, span, operation)
	return artifact, nil
}

// SearchLiterature finds PubMed papers for term and summarizes them
func (f *Facade) SearchLiterature(ctx context.Context, raw string) (*DisplayArtifact, error) {
	ctx, span := facadeTracer.Start(ctx, "facade.literature")
	defer span.End()

	query := Normalize(raw)
	if query.Empty() {
		return f.reject(ctx, span, OperationLiterature, textPlaceholder(MessageEnterSearchTerm), MessageEnterSearchTerm)
	}

	term := f.effectiveTerm(ctx, span, query)
	result, err := f.literature.Execute(ctx, BuildRequest(term, IntentLiteratureByTerm))
	if err != nil {
		return f.fail(ctx, span, OperationLiterature, false, asFacadeError(err, UpstreamPubMed))
	}
	if result == nil {
		return f.fail(ctx, span, OperationLiterature, false, NewMalformedResponseError(UpstreamPubMed, "was empty", nil))
	}
	span.SetAttributes(
		attribute.Int("facade.result.items", len(result.Papers)),
		attribute.Int("facade.result.total", result.Total),
	)
	if len(result.Papers) == 0 {
		f.succeed(ctx, span, OperationLiterature)
		return textPlaceholder(MessageNoData), nil
	}

	narrative := &ExternalResult{
		Query:     result.Query,
		Narrative: f.overview(ctx, span, term, result.Papers),
		Papers:    result.Papers,
		Total:     result.Total,
	}

	f.succeed(ctx, span, OperationLiterature)
	return Format(narrative, IntentLiteratureByTerm), nil
}

// overview asks the generator to summarize the paper titles, degrading to a count sentence
func (f *Facade) overview(ctx context.Context, span trace.Span, term string, papers []Paper) string {
	fallback := fmt.Sprintf("Found %d papers for '%s'.", len(papers), term)

	text, err := f.generator.GenerateText(ctx, buildOverviewPrompt(term, papers))
	if err != nil {
		span.RecordError(err)
		f.logger.Printf("literature overview failed for %q, using fallback: %v", term, err)
		return fallback
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return fallback
	}
	return text
}

// AnalyzeImage interprets a symptom photo. An empty mimeType is sniffed from the bytes.
func (f *Facade) AnalyzeImage(ctx context.Context, image []byte, mimeType, note string) (*DisplayArtifact, error) {
	ctx, span := facadeTracer.Start(ctx, "facade.image_analysis")
	defer span.End()

	if len(image) == 0 {
		return f.reject(ctx, span, OperationImageAnalysis, textPlaceholder(MessageUploadImage), MessageUploadImage)
	}
	if mimeType == "" {
		mimeType = http.DetectContentType(image)
	}
	mimeType = strings.ToLower(strings.TrimSpace(strings.SplitN(mimeType, ";", 2)[0]))
	if !strings.HasPrefix(mimeType, "image/") {
		return f.reject(ctx, span, OperationImageAnalysis, textPlaceholder(MessageUploadImage), MessageUploadImage)
	}
	span.SetAttributes(
		attribute.String("image.mime_type", mimeType),
		attribute.Int("image.bytes", len(image)),
	)

	reply, err := f.generator.GenerateFromImage(ctx, buildImagePrompt(note), image, mimeType)
	if err != nil {
		return f.fail(ctx, span, OperationImageAnalysis, false, asFacadeError(err, UpstreamGenerator))
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return f.fail(ctx, span, OperationImageAnalysis, false, NewMalformedResponseError(UpstreamGenerator, "was empty", nil))
	}

	f.succeed(ctx, span, OperationImageAnalysis)
	return &DisplayArtifact{Kind: ArtifactText, Text: reply}, nil
}

func (f *Facade) effectiveTerm(ctx context.Context, span trace.Span, query Query) string {
	if !query.NeedsTranslation {
		return query.Text
	}
	term := f.translator.Translate(ctx, query.Text)
	span.SetAttributes(attribute.Bool("facade.translated", term != query.Text))
	return term
}

func (f *Facade) reject(ctx context.Context, span trace.Span, operation string, artifact *DisplayArtifact, msg string) (*DisplayArtifact, error) {
	span.SetStatus(codes.Error, "empty input")
	metrics.RecordRequest(ctx, operation, metrics.OutcomeEmptyInput)
	return artifact, NewEmptyInputError(msg)
}

func (f *Facade) fail(ctx context.Context, span trace.Span, operation string, chart bool, err *Error) (*DisplayArtifact, error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, string(err.Kind))
	metrics.RecordRequest(ctx, operation, metrics.OutcomeError)

	if !errors.Is(err, context.Canceled) {
		f.logger.Printf("%s failed: %v", operation, err)
	}

	msg := errorMessage(err)
	if chart {
		return chartPlaceholder(msg), err
	}
	return textPlaceholder(msg), err
}

func (f *Facade) succeed(ctx context.Context, span trace.Span, operation string) {
	span.SetStatus(codes.Ok, "")
	metrics.RecordRequest(ctx, operation, metrics.OutcomeOK)
}
