package types

import "time"

// LLM provider identifiers accepted by LLM_PROVIDER
const (
	ProviderGemini  = "gemini"
	ProviderBedrock = "bedrock"
)

// Config represents the medassist runtime configuration
type Config struct {
	// Generator backend
	LLMProvider       string `json:"llm_provider" env:"LLM_PROVIDER,default=gemini"`
	GeminiAPIKey      string `json:"-" env:"GEMINI_API_KEY"`
	GeminiTextModel   string `json:"gemini_text_model" env:"GEMINI_TEXT_MODEL,default=gemini-2.0-flash"`
	GeminiVisionModel string `json:"gemini_vision_model" env:"GEMINI_VISION_MODEL,default=gemini-1.5-flash"`
	BedrockRegion     string `json:"bedrock_region" env:"BEDROCK_REGION,default=us-east-1"`
	BedrockModelID    string `json:"bedrock_model_id" env:"BEDROCK_MODEL_ID,default=anthropic.claude-3-5-sonnet-20240620-v1:0"`

	// Upstream data services
	OpenFDAAPIURL   string        `json:"openfda_api_url" env:"OPENFDA_API_URL,default=https://api.fda.gov/drug/"`
	OpenFDAAPIKey   string        `json:"-" env:"OPENFDA_API_KEY"`
	NCBIAPIURL      string        `json:"ncbi_api_url" env:"NCBI_API_URL,default=https://eutils.ncbi.nlm.nih.gov/entrez/eutils/"`
	NCBIAPIKey      string        `json:"-" env:"NCBI_API_KEY"`
	UpstreamTimeout time.Duration `json:"upstream_timeout" env:"UPSTREAM_TIMEOUT,default=30s"`

	// Prompting
	MedicalSystemPrompt string `json:"medical_system_prompt" env:"MEDICAL_SYSTEM_PROMPT"`

	// Secrets overlay: JSON secret whose keys match the env variable names above
	SecretsManagerSecretID string `json:"secrets_manager_secret_id" env:"SECRETS_MANAGER_SECRET_ID"`
	SecretsManagerRegion   string `json:"secrets_manager_region" env:"SECRETS_MANAGER_REGION,default=us-east-1"`

	// Web UI
	WebUIHost            string        `json:"webui_host" env:"WEBUI_HOST,default=localhost"`
	WebUIPort            int           `json:"webui_port" env:"WEBUI_PORT,default=7860"`
	WebUIReadTimeout     time.Duration `json:"webui_read_timeout" env:"WEBUI_READ_TIMEOUT,default=30s"`
	WebUIWriteTimeout    time.Duration `json:"webui_write_timeout" env:"WEBUI_WRITE_TIMEOUT,default=120s"`
	WebUIIdleTimeout     time.Duration `json:"webui_idle_timeout" env:"WEBUI_IDLE_TIMEOUT,default=120s"`
	WebUIShutdownTimeout time.Duration `json:"webui_shutdown_timeout" env:"WEBUI_SHUTDOWN_TIMEOUT,default=30s"`
	MaxImageBytes        int64         `json:"max_image_bytes" env:"MAX_IMAGE_BYTES,default=10485760"`
	RateLimitPerMinute   int           `json:"rate_limit_per_minute" env:"RATE_LIMIT_PER_MINUTE,default=30"`
	// Comma-separated proxy IPs or CIDR blocks whose forwarded headers are honored
	WebUITrustedProxiesStr string   `json:"-" env:"WEBUI_TRUSTED_PROXIES"`
	WebUITrustedProxies    []string `json:"webui_trusted_proxies"`

	// MCP server
	MCPServerHost string `json:"mcp_server_host" env:"MCP_SERVER_HOST,default=localhost"`
	MCPServerPort int    `json:"mcp_server_port" env:"MCP_SERVER_PORT,default=8080"`
	// Comma-separated IPs or CIDR blocks; empty allows every client
	MCPAllowedIPsStr string   `json:"-" env:"MCP_ALLOWED_IPS"`
	MCPAllowedIPs    []string `json:"mcp_allowed_ips"`
	// Empty means the TCP peer is the client and X-Forwarded-For is ignored
	MCPTrustedProxiesStr string   `json:"-" env:"MCP_TRUSTED_PROXIES"`
	MCPTrustedProxies    []string `json:"mcp_trusted_proxies"`

	// OpenTelemetry
	OTelEnabled              bool    `json:"otel_enabled" env:"OTEL_ENABLED,default=false"`
	OTelServiceName          string  `json:"otel_service_name" env:"OTEL_SERVICE_NAME,default=medassist"`
	OTelExporterOTLPEndpoint string  `json:"otel_exporter_otlp_endpoint" env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTelExporterOTLPProtocol string  `json:"otel_exporter_otlp_protocol" env:"OTEL_EXPORTER_OTLP_PROTOCOL,default=http/protobuf"`
	OTelResourceAttributes   string  `json:"otel_resource_attributes" env:"OTEL_RESOURCE_ATTRIBUTES"`
	OTelTracesSampler        string  `json:"otel_traces_sampler" env:"OTEL_TRACES_SAMPLER,default=always_on"`
	OTelTracesSamplerArg     float64 `json:"otel_traces_sampler_arg" env:"OTEL_TRACES_SAMPLER_ARG,default=1.0"`
}
