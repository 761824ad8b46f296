package gemini

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"
)

// Client generates text with Gemini models through the Gemini API
type Client struct {
	client      *genai.Client
	textModel   string
	visionModel string
}

type options struct {
	httpClient *http.Client
	baseURL    string
}

// Option configures a Client
type Option func(*options)

// WithHTTPClient overrides the HTTP client used by the SDK
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) {
		o.httpClient = hc
	}
}

// WithBaseURL points the SDK at a different API host
func WithBaseURL(baseURL string) Option {
	return func(o *options) {
		o.baseURL = baseURL
	}
}

// NewClient creates a Client. textModel serves text prompts and visionModel serves image prompts.
func NewClient(ctx context.Context, apiKey, textModel, visionModel string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	cc := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: o.httpClient,
	}
	if o.baseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: o.baseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	if visionModel == "" {
		visionModel = textModel
	}
	return &Client{client: client, textModel: textModel, visionModel: visionModel}, nil
}

// GenerateText sends prompt to the text model
func (c *Client) GenerateText(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", fmt.Errorf("prompt cannot be empty")
	}
	return c.generate(ctx, c.textModel, genai.Text(prompt))
}

// GenerateFromImage sends prompt and the inline image to the vision model
func (c *Client) GenerateFromImage(ctx context.Context, prompt string, image []byte, mimeType string) (string, error) {
	if len(image) == 0 {
		return "", fmt.Errorf("image cannot be empty")
	}
	parts := []*genai.Part{
		genai.NewPartFromText(prompt),
		genai.NewPartFromBytes(image, mimeType),
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
	return c.generate(ctx, c.visionModel, contents)
}

func (c *Client) generate(ctx context.Context, model string, contents []*genai.Content) (string, error) {
	resp, err := c.client.Models.GenerateContent(ctx, model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("gemini %s generate content failed: %w", model, err)
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("gemini %s returned no text", model)
	}
	return text, nil
}
