package pubmed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/ca-srg/medassist/internal/facade"
	"github.com/ca-srg/medassist/internal/metrics"
)

var pubmedTracer = otel.Tracer("medassist/pubmed")

const (
	searchEndpoint     = "esearch.fcgi"
	summaryEndpoint    = "esummary.fcgi"
	defaultConcurrency = 3
	maxResponseBytes   = 4 << 20
)

// Client searches PubMed through NCBI E-utilities
type Client struct {
	baseURL     string
	apiKey      string
	httpClient  *http.Client
	concurrency int
	logger      *log.Logger
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

// WithConcurrency limits parallel esummary calls
func WithConcurrency(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

type searchResponse struct {
	ESearchResult *struct {
		Count  string   `json:"count"`
		IDList []string `json:"idlist"`
	} `json:"esearchresult"`
}

type summaryResponse struct {
	Result map[string]json.RawMessage `json:"result"`
}

type documentSummary struct {
	UID     string `json:"uid"`
	Title   string `json:"title"`
	Source  string `json:"source"`
	PubDate string `json:"pubdate"`
	Authors []struct {
		Name string `json:"name"`
	} `json:"authors"`
	Error string `json:"error"`
}

// NewClient creates a Client. baseURL must end with a slash, e.g. https://eutils.ncbi.nlm.nih.gov/entrez/eutils/
func NewClient(baseURL, apiKey string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	c := &Client{
		baseURL:     baseURL,
		apiKey:      apiKey,
		httpClient:  &http.Client{Timeout: timeout},
		concurrency: defaultConcurrency,
		logger:      log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Execute runs one esearch call and then one esummary call per returned identifier.
// Failed summaries are omitted; the rest keep the identifier order.
func (c *Client) Execute(ctx context.Context, req facade.NormalizedRequest) (*facade.ExternalResult, error) {
	ctx, span := pubmedTracer.Start(ctx, "pubmed.search")
	defer span.End()

	ids, total, err := c.search(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(facade.KindOf(err)))
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("pubmed.ids", len(ids)),
		attribute.Int("pubmed.total", total),
	)

	papers, firstErr := c.summaries(ctx, ids)
	span.SetAttributes(attribute.Int("pubmed.summaries", len(papers)))
	if len(ids) > 0 && len(papers) == 0 {
		// esearch matched papers but none could be summarized, which is a failure rather than no data
		c.logger.Printf("All %d PubMed summaries failed for %q", len(ids), req.Term)
		span.RecordError(firstErr)
		span.SetStatus(codes.Error, string(facade.KindOf(firstErr)))
		return nil, firstErr
	}
	span.SetStatus(codes.Ok, "")

	return &facade.ExternalResult{
		Query:  req.Term,
		Papers: papers,
		Total:  total,
	}, nil
}

func (c *Client) search(ctx context.Context, req facade.NormalizedRequest) ([]string, int, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = 10
	}

	params := url.Values{}
	params.Set("db", "pubmed")
	params.Set("term", req.Search)
	params.Set("retmax", strconv.Itoa(limit))
	params.Set("retmode", "json")
	params.Set("api_key", c.apiKey)

	body, err := c.get(ctx, searchEndpoint, params)
	if err != nil {
		return nil, 0, err
	}

	var parsed searchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, 0, facade.NewMalformedResponseError(facade.UpstreamPubMed, "is not valid JSON", err)
	}
	if parsed.ESearchResult == nil {
		return nil, 0, facade.NewMalformedResponseError(facade.UpstreamPubMed, "is missing esearchresult", nil)
	}

	total, _ := strconv.Atoi(parsed.ESearchResult.Count)
	ids := parsed.ESearchResult.IDList
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, total, nil
}

// summaries fetches document summaries in parallel, writing into index-addressed slots.
// Failed summaries are skipped; the error of the first failed id is returned alongside.
func (c *Client) summaries(ctx context.Context, ids []string) ([]facade.Paper, error) {
	if len(ids) == 0 {
		return []facade.Paper{}, nil
	}

	slots := make([]*facade.Paper, len(ids))
	failures := make([]error, len(ids))
	var g errgroup.Group
	g.SetLimit(c.concurrency)

	for i, id := range ids {
		g.Go(func() error {
			paper, err := c.summary(ctx, id)
			if err != nil {
				c.logger.Printf("Skipping PubMed summary for %s: %v", id, err)
				failures[i] = err
				return nil
			}
			slots[i] = paper
			return nil
		})
	}
	_ = g.Wait()

	papers := make([]facade.Paper, 0, len(ids))
	var firstErr error
	for i, p := range slots {
		if p != nil {
			papers = append(papers, *p)
		} else if firstErr == nil {
			firstErr = failures[i]
		}
	}
	return papers, firstErr
}

func (c *Client) summary(ctx context.Context, id string) (*facade.Paper, error) {
	params := url.Values{}
	params.Set("db", "pubmed")
	params.Set("id", id)
	params.Set("retmode", "json")
	params.Set("api_key", c.apiKey)

	body, err := c.get(ctx, summaryEndpoint, params)
	if err != nil {
		return nil, err
	}

	var parsed summaryResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, facade.NewMalformedResponseError(facade.UpstreamPubMed, "is not valid JSON", err)
	}
	if parsed.Result == nil {
		return nil, facade.NewMalformedResponseError(facade.UpstreamPubMed, "is missing result", nil)
	}
	raw, ok := parsed.Result[id]
	if !ok {
		return nil, facade.NewMalformedResponseError(facade.UpstreamPubMed, fmt.Sprintf("has no summary for %s", id), nil)
	}

	var doc documentSummary
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, facade.NewMalformedResponseError(facade.UpstreamPubMed, "summary is not valid JSON", err)
	}
	if doc.Error != "" {
		return nil, facade.NewMalformedResponseError(facade.UpstreamPubMed, "summary error: "+doc.Error, nil)
	}
	title := strings.TrimSpace(doc.Title)
	if title == "" {
		return nil, facade.NewMalformedResponseError(facade.UpstreamPubMed, fmt.Sprintf("summary for %s has no title", id), nil)
	}

	paper := &facade.Paper{
		ID:      id,
		Title:   title,
		Source:  doc.Source,
		PubDate: doc.PubDate,
	}
	for _, a := range doc.Authors {
		if a.Name != "" {
			paper.Authors = append(paper.Authors, a.Name)
		}
	}
	return paper, nil
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	ctx, span := pubmedTracer.Start(ctx, "pubmed."+strings.TrimSuffix(endpoint, ".fcgi"))
	defer span.End()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, facade.NewUpstreamError(facade.UpstreamPubMed, 0, fmt.Errorf("failed to create request: %w", err))
	}
	httpReq.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		metrics.RecordUpstream(ctx, facade.UpstreamPubMed, 0, time.Since(start))
		span.RecordError(err)
		span.SetStatus(codes.Error, "request_failed")
		return nil, facade.NewUpstreamError(facade.UpstreamPubMed, 0, fmt.Errorf("failed to make request: %w", err))
	}
	defer resp.Body.Close()
	metrics.RecordUpstream(ctx, facade.UpstreamPubMed, resp.StatusCode, time.Since(start))
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, facade.NewUpstreamError(facade.UpstreamPubMed, resp.StatusCode, fmt.Errorf("failed to read response: %w", err))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		span.SetStatus(codes.Error, "non_success_status")
		return nil, facade.NewUpstreamError(facade.UpstreamPubMed, resp.StatusCode, fmt.Errorf("API error (%d)", resp.StatusCode))
	}
	return body, nil
}
