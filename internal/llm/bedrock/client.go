package bedrock

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

const (
	anthropicVersion = "bedrock-2023-05-31"
	defaultMaxTokens = 4000
)

// InvokeModelAPI is the subset of the Bedrock runtime client used here
type InvokeModelAPI interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// Client generates text with Anthropic Claude models on AWS Bedrock
type Client struct {
	api         InvokeModelAPI
	modelID     string
	temperature float64
}

// ContentBlock is one element of a Claude message content array
type ContentBlock struct {
	Type   string       `json:"type"`
	Text   string       `json:"text,omitempty"`
	Source *ImageSource `json:"source,omitempty"`
}

// ImageSource carries base64 image data for an image content block
type ImageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

// ChatMessage represents a chat message with role and content blocks
type ChatMessage struct {
	Role    string         `json:"role"`
	Content []ContentBlock `json:"content"`
}

// ChatRequest represents the request payload for Claude models in Bedrock format
type ChatRequest struct {
	Messages         []ChatMessage `json:"messages"`
	MaxTokens        int           `json:"max_tokens,omitempty"`
	Temperature      float64       `json:"temperature,omitempty"`
	AnthropicVersion string        `json:"anthropic_version,omitempty"`
	System           string        `json:"system,omitempty"`
}

// ChatResponse represents the response from chat models
type ChatResponse struct {
	Content []ContentBlock `json:"content"`
	Usage   struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage,omitempty"`
}

// NewClient loads the default AWS configuration for region and creates a Client
func NewClient(ctx context.Context, region, modelID string) (*Client, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewClientWithAPI(bedrockruntime.NewFromConfig(awsCfg), modelID), nil
}

// NewClientWithAPI creates a Client over an existing runtime API
func NewClientWithAPI(api InvokeModelAPI, modelID string) *Client {
	return &Client{api: api, modelID: modelID, temperature: 0.7}
}

// GenerateText sends prompt as a single user message
func (c *Client) GenerateText(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", fmt.Errorf("prompt cannot be empty")
	}
	return c.invoke(ctx, []ContentBlock{{Type: "text", Text: prompt}})
}

// GenerateFromImage sends the image followed by prompt in one user message
func (c *Client) GenerateFromImage(ctx context.Context, prompt string, image []byte, mimeType string) (string, error) {
	if len(image) == 0 {
		return "", fmt.Errorf("image cannot be empty")
	}
	blocks := []ContentBlock{
		{
			Type: "image",
			Source: &ImageSource{
				Type:      "base64",
				MediaType: mimeType,
				Data:      base64.StdEncoding.EncodeToString(image),
			},
		},
		{Type: "text", Text: prompt},
	}
	return c.invoke(ctx, blocks)
}

func (c *Client) invoke(ctx context.Context, content []ContentBlock) (string, error) {
	request := ChatRequest{
		Messages:         []ChatMessage{{Role: "user", Content: content}},
		MaxTokens:        defaultMaxTokens,
		Temperature:      c.temperature,
		AnthropicVersion: anthropicVersion,
	}

	requestBody, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	input := &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(c.modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        requestBody,
	}

	result, err := c.api.InvokeModel(ctx, input)
	if err != nil {
		return "", fmt.Errorf("failed to invoke bedrock model: %w", err)
	}

	var response ChatResponse
	if err := json.Unmarshal(result.Body, &response); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	var parts []string
	for _, block := range response.Content {
		if block.Type == "text" && block.Text != "" {
			parts = append(parts, block.Text)
		}
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("no content in response")
	}

	return strings.Join(parts, "\n"), nil
}
