package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ca-srg/medassist/internal/facade"
	"github.com/ca-srg/medassist/internal/ratelimit"
)

const (
	serverName    = "medassist-mcp-server"
	serverVersion = "1.0.0"
)

// Assistant is the façade surface exposed as MCP tools
type Assistant interface {
	Consult(ctx context.Context, message string, history []facade.Turn) (*facade.DisplayArtifact, error)
	SearchDrugs(ctx context.Context, condition string) (*facade.DisplayArtifact, error)
	SideEffects(ctx context.Context, drug string) (*facade.DisplayArtifact, error)
	SearchLiterature(ctx context.Context, term string) (*facade.DisplayArtifact, error)
}

// ServerConfig holds the MCP HTTP server configuration
type ServerConfig struct {
	Host               string
	Port               int
	AllowedIPs         []string
	TrustedProxies     []string
	RateLimitPerMinute int
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	IdleTimeout        time.Duration
	ShutdownTimeout    time.Duration
}

// DefaultServerConfig returns the default MCP server configuration
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Host:               "localhost",
		Port:               8080,
		RateLimitPerMinute: 30,
		ReadTimeout:        30 * time.Second,
		WriteTimeout:       120 * time.Second,
		IdleTimeout:        120 * time.Second,
		ShutdownTimeout:    30 * time.Second,
	}
}

// Server serves the façade tools over streamable HTTP
type Server struct {
	config       *ServerConfig
	assistant    Assistant
	sdkServer    *mcp.Server
	ipAuth       *IPAuthMiddleware
	limiter      *ratelimit.Limiter
	httpServer   *http.Server
	toolNames    []string
	logger       *log.Logger
	shutdownOnce sync.Once
}

// NewServer creates the MCP server and registers its tools
func NewServer(serverConfig *ServerConfig, assistant Assistant, logger *log.Logger) (*Server, error) {
	if assistant == nil {
		return nil, fmt.Errorf("assistant is required")
	}
	if serverConfig == nil {
		serverConfig = DefaultServerConfig()
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[mcpserver] ", log.LstdFlags)
	}

	s := &Server{
		config:    serverConfig,
		assistant: assistant,
		sdkServer: mcp.NewServer(&mcp.Implementation{Name: serverName, Version: serverVersion}, nil),
		limiter:   ratelimit.New(serverConfig.RateLimitPerMinute, serverConfig.TrustedProxies),
		logger:    logger,
	}

	if len(serverConfig.AllowedIPs) > 0 {
		ipAuth, err := NewIPAuthMiddleware(serverConfig.AllowedIPs, serverConfig.TrustedProxies, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to configure IP allowlist: %w", err)
		}
		s.ipAuth = ipAuth
	}

	s.registerTools()
	return s, nil
}

// ToolNames lists the registered tools in registration order
func (s *Server) ToolNames() []string {
	return append([]string(nil), s.toolNames...)
}

// Handler returns the routed handler wrapped in middleware
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	getServer := func(r *http.Request) *mcp.Server { return s.sdkServer }
	mux.Handle("/mcp", s.limiter.Middleware(mcp.NewStreamableHTTPHandler(getServer, nil)))
	mux.HandleFunc("/health", s.handleHealthCheck)

	var handler http.Handler = mux
	if s.ipAuth != nil {
		handler = s.ipAuth.Middleware(handler)
	}
	return s.loggingMiddleware(handler)
}

// Run starts the server and blocks until context is cancelled
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.config.Host, s.config.Port),
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Printf("Starting MCP server at http://%s:%d/mcp (tools: %s)",
			s.config.Host, s.config.Port, strings.Join(s.toolNames, ", "))
		if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
			errChan <- err
		}
		close(errChan)
	}()

	select {
	case <-ctx.Done():
		return s.shutdown()
	case err := <-errChan:
		return err
	}
}

func (s *Server) shutdown() error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.logger.Println("Shutting down MCP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()

		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			shutdownErr = fmt.Errorf("server shutdown error: %w", err)
		}
	})
	return shutdownErr
}

func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	status := map[string]interface{}{
		"status":  "healthy",
		"server":  serverName,
		"version": serverVersion,
		"tools":   s.toolNames,
	}
	if err := json.NewEncoder(w).Encode(status); err != nil {
		s.logger.Printf("Failed to write response: %v", err)
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	status int
	size   int64
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.status = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Write(b []byte) (int, error) {
	n, err := lrw.ResponseWriter.Write(b)
	lrw.size += int64(n)
	return n, err
}

// Flush keeps streamed tool responses flowing through the wrapper
func (lrw *loggingResponseWriter) Flush() {
	if f, ok := lrw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (lrw *loggingResponseWriter) Unwrap() http.ResponseWriter {
	return lrw.ResponseWriter
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(lrw, r)

		s.logger.Printf(
			"Request: %s %s status=%d bytes=%d duration=%s client_ip=%s user_agent=%q",
			r.Method,
			r.URL.Path,
			lrw.status,
			lrw.size,
			time.Since(start),
			ratelimit.ClientIP(r, s.config.TrustedProxies),
			r.Header.Get("User-Agent"),
		)
	})
}
