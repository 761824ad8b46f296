package openfda

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/ca-srg/medassist/internal/facade"
	"github.com/ca-srg/medassist/internal/metrics"
)

var openfdaTracer = otel.Tracer("medassist/openfda")

const maxResponseBytes = 8 << 20

// Client queries the openFDA drug adverse event API
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *log.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient overrides the HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *log.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// countResponse is the body of an openFDA count query
type countResponse struct {
	Results *[]struct {
		Term  string `json:"term"`
		Count int    `json:"count"`
	} `json:"results"`
}

// errorResponse is the body openFDA returns with a non-success status
type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// NewClient creates a Client. baseURL must end with a slash, e.g. https://api.fda.gov/drug/
func NewClient(baseURL, apiKey string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	c := &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Execute performs exactly one GET for req and returns the aggregated counts in upstream order
func (c *Client) Execute(ctx context.Context, req facade.NormalizedRequest) (*facade.ExternalResult, error) {
	ctx, span := openfdaTracer.Start(ctx, "openfda.count")
	defer span.End()
	span.SetAttributes(
		attribute.String("openfda.endpoint", req.Endpoint),
		attribute.String("openfda.count_field", req.CountField),
	)

	if req.Endpoint == "" || !req.IsCount() {
		err := fmt.Errorf("openfda request needs an endpoint and a count field")
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid_request")
		return nil, facade.NewUpstreamError(facade.UpstreamOpenFDA, 0, err)
	}

	params := url.Values{}
	params.Set("api_key", c.apiKey)
	params.Set("search", req.Search)
	params.Set("count", req.CountField)
	params.Set("limit", strconv.Itoa(req.Limit))
	endpoint := c.baseURL + req.Endpoint + "?" + params.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request_build_failed")
		return nil, facade.NewUpstreamError(facade.UpstreamOpenFDA, 0, fmt.Errorf("failed to create request: %w", err))
	}
	httpReq.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		metrics.RecordUpstream(ctx, facade.UpstreamOpenFDA, 0, time.Since(start))
		span.RecordError(err)
		span.SetStatus(codes.Error, "request_failed")
		return nil, facade.NewUpstreamError(facade.UpstreamOpenFDA, 0, fmt.Errorf("failed to make request: %w", err))
	}
	defer resp.Body.Close()
	metrics.RecordUpstream(ctx, facade.UpstreamOpenFDA, resp.StatusCode, time.Since(start))
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "read_failed")
		return nil, facade.NewUpstreamError(facade.UpstreamOpenFDA, resp.StatusCode, fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		cause := fmt.Errorf("API error (%d)", resp.StatusCode)
		var errResp errorResponse
		if json.Unmarshal(body, &errResp) == nil && errResp.Error.Message != "" {
			cause = fmt.Errorf("API error (%d): %s %s", resp.StatusCode, errResp.Error.Code, errResp.Error.Message)
		}
		c.logger.Printf("openFDA %s returned %d for %q", req.Endpoint, resp.StatusCode, req.Search)
		span.SetStatus(codes.Error, "non_success_status")
		return nil, facade.NewUpstreamError(facade.UpstreamOpenFDA, resp.StatusCode, cause)
	}

	var parsed countResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "malformed_response")
		return nil, facade.NewMalformedResponseError(facade.UpstreamOpenFDA, "is not valid JSON", err)
	}
	if parsed.Results == nil {
		span.SetStatus(codes.Error, "malformed_response")
		return nil, facade.NewMalformedResponseError(facade.UpstreamOpenFDA, "is missing results", nil)
	}

	result := &facade.ExternalResult{
		Query:  req.Term,
		Counts: make([]facade.CountItem, 0, len(*parsed.Results)),
	}
	for _, item := range *parsed.Results {
		count := item.Count
		if count < 0 {
			count = 0
		}
		result.Counts = append(result.Counts, facade.CountItem{Term: item.Term, Count: count})
	}

	span.SetAttributes(attribute.Int("openfda.results", len(result.Counts)))
	span.SetStatus(codes.Ok, "")
	return result, nil
}
