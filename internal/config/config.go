package config

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	env "github.com/netflix/go-env"

	"github.com/ca-srg/medassist/internal/secrets"
	"github.com/ca-srg/medassist/internal/types"
)

// Type alias for Config
type Config = types.Config

// DefaultMedicalSystemPrompt is used when MEDICAL_SYSTEM_PROMPT is not set
const DefaultMedicalSystemPrompt = `You are a careful medical information assistant.
Answer health questions clearly and concisely for a general audience.
Explain possible causes, self-care measures and warning signs that need urgent care.
Always remind the user that your answer is for reference only and does not replace a consultation with a physician.`

const (
	maxUpstreamTimeout = 5 * time.Minute
	maxImageBytesLimit = 50 << 20
)

// newSecretsClient is replaced in tests
var newSecretsClient = func(ctx context.Context, region string) (secrets.SecretsAPI, error) {
	return secrets.NewClient(ctx, region)
}

// Load loads configuration from .env (when present) and environment variables,
// overlays API keys from Secrets Manager when a secret is configured, and validates the result.
func Load(ctx context.Context) (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			log.Printf("Warning: failed to load .env file: %v", err)
		}
	}

	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	// Parse address lists from comma-separated strings
	config.MCPAllowedIPs = splitList(config.MCPAllowedIPsStr)
	config.MCPTrustedProxies = splitList(config.MCPTrustedProxiesStr)
	config.WebUITrustedProxies = splitList(config.WebUITrustedProxiesStr)

	if secretID := strings.TrimSpace(config.SecretsManagerSecretID); secretID != "" {
		client, err := newSecretsClient(ctx, config.SecretsManagerRegion)
		if err != nil {
			return nil, fmt.Errorf("failed to create secrets client: %w", err)
		}
		if err := secrets.Apply(ctx, client, secretID, &config); err != nil {
			return nil, fmt.Errorf("failed to apply secrets: %w", err)
		}
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

// validateConfig validates configuration values and adjusts them to safe ranges
func validateConfig(config *Config) error {
	config.LLMProvider = strings.ToLower(strings.TrimSpace(config.LLMProvider))
	switch config.LLMProvider {
	case types.ProviderGemini:
		if strings.TrimSpace(config.GeminiAPIKey) == "" {
			return fmt.Errorf("GEMINI_API_KEY is required when LLM_PROVIDER is gemini")
		}
	case types.ProviderBedrock:
		if strings.TrimSpace(config.BedrockRegion) == "" {
			return fmt.Errorf("BEDROCK_REGION is required when LLM_PROVIDER is bedrock")
		}
		if strings.TrimSpace(config.BedrockModelID) == "" {
			return fmt.Errorf("BEDROCK_MODEL_ID is required when LLM_PROVIDER is bedrock")
		}
	default:
		return fmt.Errorf("LLM_PROVIDER must be %q or %q, got %q", types.ProviderGemini, types.ProviderBedrock, config.LLMProvider)
	}

	if strings.TrimSpace(config.OpenFDAAPIKey) == "" {
		return fmt.Errorf("OPENFDA_API_KEY is required")
	}
	if strings.TrimSpace(config.NCBIAPIKey) == "" {
		return fmt.Errorf("NCBI_API_KEY is required")
	}

	var err error
	if config.OpenFDAAPIURL, err = normalizeBaseURL("OPENFDA_API_URL", config.OpenFDAAPIURL); err != nil {
		return err
	}
	if config.NCBIAPIURL, err = normalizeBaseURL("NCBI_API_URL", config.NCBIAPIURL); err != nil {
		return err
	}

	if config.UpstreamTimeout <= 0 {
		config.UpstreamTimeout = 30 * time.Second
	}
	if config.UpstreamTimeout > maxUpstreamTimeout {
		config.UpstreamTimeout = maxUpstreamTimeout
	}

	if config.MaxImageBytes <= 0 {
		config.MaxImageBytes = 10 << 20
	}
	if config.MaxImageBytes > maxImageBytesLimit {
		config.MaxImageBytes = maxImageBytesLimit
	}

	if config.RateLimitPerMinute < 1 {
		config.RateLimitPerMinute = 1
	}
	if config.RateLimitPerMinute > 600 {
		config.RateLimitPerMinute = 600
	}

	if strings.TrimSpace(config.MedicalSystemPrompt) == "" {
		config.MedicalSystemPrompt = DefaultMedicalSystemPrompt
	}

	if config.WebUIPort < 1 || config.WebUIPort > 65535 {
		return fmt.Errorf("WEBUI_PORT must be between 1 and 65535")
	}
	if config.MCPServerPort < 1 || config.MCPServerPort > 65535 {
		return fmt.Errorf("MCP_SERVER_PORT must be between 1 and 65535")
	}

	timeouts := []struct {
		name  string
		value *time.Duration
		def   time.Duration
	}{
		{"WEBUI_READ_TIMEOUT", &config.WebUIReadTimeout, 30 * time.Second},
		{"WEBUI_WRITE_TIMEOUT", &config.WebUIWriteTimeout, 120 * time.Second},
		{"WEBUI_IDLE_TIMEOUT", &config.WebUIIdleTimeout, 120 * time.Second},
		{"WEBUI_SHUTDOWN_TIMEOUT", &config.WebUIShutdownTimeout, 30 * time.Second},
	}
	for _, t := range timeouts {
		if *t.value <= 0 {
			log.Printf("Warning: %s must be positive, using %v", t.name, t.def)
			*t.value = t.def
		}
	}

	return nil
}

// normalizeBaseURL checks that raw is an absolute http(s) URL and ends with a slash
func normalizeBaseURL(name, raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%s cannot be empty", name)
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid %s URL format: %w", name, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("%s scheme must be http or https", name)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("%s must include a valid host", name)
	}

	if !strings.HasSuffix(raw, "/") {
		raw += "/"
	}
	return raw, nil
}

// splitList splits a comma-separated value, dropping blank entries
func splitList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	list := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			list = append(list, trimmed)
		}
	}
	return list
}
