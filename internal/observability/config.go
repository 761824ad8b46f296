package observability

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/ca-srg/medassist/internal/types"
)

const (
	protocolHTTP    = "http/protobuf"
	protocolGRPC    = "grpc"
	serviceNameKey  = "service.name"
	defaultInterval = 60 * time.Second
)

// Config holds the OpenTelemetry settings derived from the root configuration
type Config struct {
	Enabled          bool
	ServiceName      string
	Endpoint         string
	Protocol         string
	Attributes       map[string]string
	Sampler          string
	SamplerArg       float64
	MetricInterval   time.Duration
	ShutdownDeadline time.Duration
}

// FromConfig extracts and validates the OTEL_* settings of cfg
func FromConfig(cfg *types.Config) (*Config, error) {
	if cfg == nil {
		return nil, fmt.Errorf("observability: nil root configuration provided")
	}

	attrs, err := parseAttributes(cfg.OTelResourceAttributes)
	if err != nil {
		return nil, fmt.Errorf("observability: failed to parse resource attributes: %w", err)
	}

	c := &Config{
		Enabled:     cfg.OTelEnabled,
		ServiceName: strings.TrimSpace(cfg.OTelServiceName),
		Endpoint:    strings.TrimSpace(cfg.OTelExporterOTLPEndpoint),
		Protocol:    strings.TrimSpace(cfg.OTelExporterOTLPProtocol),
		Attributes:  attrs,
		Sampler:     strings.TrimSpace(cfg.OTelTracesSampler),
		SamplerArg:  cfg.OTelTracesSamplerArg,
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate fills defaults and checks the exporter settings when telemetry is enabled
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("observability: config is nil")
	}

	if c.ServiceName == "" {
		c.ServiceName = "medassist"
	}
	c.Protocol = strings.ToLower(c.Protocol)
	if c.Protocol == "" {
		c.Protocol = protocolHTTP
	}
	c.Sampler = strings.ToLower(c.Sampler)
	if c.Sampler == "" {
		c.Sampler = "always_on"
	}
	if c.MetricInterval <= 0 {
		c.MetricInterval = defaultInterval
	}
	if c.ShutdownDeadline <= 0 {
		c.ShutdownDeadline = 5 * time.Second
	}
	if c.Attributes == nil {
		c.Attributes = map[string]string{}
	}
	if _, ok := c.Attributes[serviceNameKey]; !ok {
		c.Attributes[serviceNameKey] = c.ServiceName
	}

	if !c.Enabled {
		return nil
	}

	if c.Endpoint == "" {
		return fmt.Errorf("observability: OTEL_EXPORTER_OTLP_ENDPOINT is required when OpenTelemetry is enabled")
	}
	switch c.Protocol {
	case protocolHTTP:
		u, err := url.Parse(c.Endpoint)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("observability: http/protobuf endpoint must be an http(s) URL with a host, got %q", c.Endpoint)
		}
	case protocolGRPC:
		if _, _, err := grpcTarget(c.Endpoint); err != nil {
			return fmt.Errorf("observability: invalid grpc endpoint: %w", err)
		}
	default:
		return fmt.Errorf("observability: unsupported OTLP exporter protocol %q", c.Protocol)
	}

	if c.SamplerArg < 0 {
		return fmt.Errorf("observability: traces sampler argument must be non-negative")
	}
	if c.Sampler == "traceidratio" && (c.SamplerArg <= 0 || c.SamplerArg > 1) {
		return fmt.Errorf("observability: traceidratio sampler argument must be in (0, 1]")
	}
	return nil
}

// parseAttributes reads "k1=v1,k2=v2" pairs
func parseAttributes(input string) (map[string]string, error) {
	attrs := map[string]string{}
	for _, pair := range strings.Split(input, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok {
			return nil, fmt.Errorf("invalid resource attribute %q", pair)
		}
		if key == "" {
			return nil, fmt.Errorf("resource attribute key cannot be empty")
		}
		attrs[key] = strings.TrimSpace(value)
	}
	return attrs, nil
}

// signalURL appends the OTLP signal path (e.g. /v1/traces) unless endpoint already ends with it
func signalURL(endpoint, signal string) (string, error) {
	if strings.TrimSpace(endpoint) == "" {
		return "", fmt.Errorf("endpoint cannot be empty")
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("parse endpoint: %w", err)
	}

	suffix := "/" + strings.Trim(signal, "/ ")
	path := strings.TrimSuffix(u.Path, "/")
	if !strings.HasSuffix(path, suffix) {
		path += suffix
	}
	u.Path = path
	return u.String(), nil
}

// grpcTarget returns host:port and whether the connection is plaintext.
// Bare host:port targets are treated as plaintext.
func grpcTarget(raw string) (string, bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false, fmt.Errorf("endpoint cannot be empty")
	}
	if !strings.Contains(raw, "://") {
		if !strings.Contains(raw, ":") {
			return "", false, fmt.Errorf("endpoint should be host:port, got %q", raw)
		}
		return raw, true, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", false, err
	}
	if u.Host == "" {
		return "", false, fmt.Errorf("endpoint must include host")
	}
	switch u.Scheme {
	case "http", "grpc":
		return u.Host, true, nil
	case "https", "grpcs":
		return u.Host, false, nil
	default:
		return "", false, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
}
