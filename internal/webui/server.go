package webui

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/ca-srg/medassist/internal/facade"
	"github.com/ca-srg/medassist/internal/gallery"
	"github.com/ca-srg/medassist/internal/ratelimit"
)

// Assistant is the façade surface the web UI drives
type Assistant interface {
	Consult(ctx context.Context, message string, history []facade.Turn) (*facade.DisplayArtifact, error)
	SearchDrugs(ctx context.Context, condition string) (*facade.DisplayArtifact, error)
	SideEffects(ctx context.Context, drug string) (*facade.DisplayArtifact, error)
	SearchLiterature(ctx context.Context, term string) (*facade.DisplayArtifact, error)
	AnalyzeImage(ctx context.Context, image []byte, mimeType, note string) (*facade.DisplayArtifact, error)
}

// ServerConfig holds the web UI server configuration
type ServerConfig struct {
	Host               string
	Port               int
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	IdleTimeout        time.Duration
	ShutdownTimeout    time.Duration
	MaxImageBytes      int64
	RateLimitPerMinute int
	TrustedProxies     []string
}

// DefaultServerConfig returns the default server configuration
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Host:               "localhost",
		Port:               7860,
		ReadTimeout:        30 * time.Second,
		WriteTimeout:       120 * time.Second,
		IdleTimeout:        120 * time.Second,
		ShutdownTimeout:    30 * time.Second,
		MaxImageBytes:      10 << 20,
		RateLimitPerMinute: 30,
	}
}

// Server represents the web UI server
type Server struct {
	config       *ServerConfig
	assistant    Assistant
	gallery      *gallery.Gallery
	templates    *TemplateManager
	limiter      *ratelimit.Limiter
	httpServer   *http.Server
	logger       *log.Logger
	shutdownOnce sync.Once
}

// NewServer creates a new web UI server
func NewServer(serverConfig *ServerConfig, assistant Assistant, g *gallery.Gallery, logger *log.Logger) (*Server, error) {
	if assistant == nil {
		return nil, fmt.Errorf("assistant is required")
	}
	if serverConfig == nil {
		serverConfig = DefaultServerConfig()
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[webui] ", log.LstdFlags)
	}
	if g == nil {
		var err error
		if g, err = gallery.Load(); err != nil {
			return nil, fmt.Errorf("failed to load example gallery: %w", err)
		}
	}

	templates, err := NewTemplateManager()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize templates: %w", err)
	}

	return &Server{
		config:    serverConfig,
		assistant: assistant,
		gallery:   g,
		templates: templates,
		limiter:   ratelimit.New(serverConfig.RateLimitPerMinute, serverConfig.TrustedProxies),
		logger:    logger,
	}, nil
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
		s.logger.Printf("Starting Web UI server at http://%s:%d", s.config.Host, s.config.Port)
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

// shutdown performs graceful shutdown
func (s *Server) shutdown() error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.logger.Println("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()

		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			shutdownErr = fmt.Errorf("server shutdown error: %w", err)
		}
	})
	return shutdownErr
}

// Handler returns the routed handler wrapped in middleware
func (s *Server) Handler() http.Handler {
	return s.requestIDMiddleware(s.loggingMiddleware(s.setupRoutes()))
}

// setupRoutes configures HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		s.logger.Printf("Warning: failed to setup static files: %v", err)
	} else {
		mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))
	}

	// Pages
	mux.HandleFunc("/", s.handleIndex)
	mux.Handle("/consult", s.limiter.Middleware(http.HandlerFunc(s.handleConsultPage)))
	mux.Handle("/drugs", s.limiter.Middleware(s.searchPage(tabDrugs)))
	mux.Handle("/side-effects", s.limiter.Middleware(s.searchPage(tabSideEffects)))
	mux.Handle("/papers", s.limiter.Middleware(s.searchPage(tabPapers)))
	mux.Handle("/image", s.limiter.Middleware(http.HandlerFunc(s.handleImagePage)))

	// API endpoints
	mux.Handle("/api/consult", s.limiter.Middleware(http.HandlerFunc(s.handleAPIConsult)))
	mux.Handle("/api/drugs", s.limiter.Middleware(s.searchAPI(tabDrugs)))
	mux.Handle("/api/side-effects", s.limiter.Middleware(s.searchAPI(tabSideEffects)))
	mux.Handle("/api/papers", s.limiter.Middleware(s.searchAPI(tabPapers)))
	mux.Handle("/api/image", s.limiter.Middleware(http.HandlerFunc(s.handleAPIImage)))
	mux.HandleFunc("/api/examples", s.handleAPIExamples)
	mux.HandleFunc("/health", s.handleHealth)

	return mux
}

// searchFunc maps a search tab to its façade operation
func (s *Server) searchFunc(tab string) func(context.Context, string) (*facade.DisplayArtifact, error) {
	switch tab {
	case tabDrugs:
		return s.assistant.SearchDrugs
	case tabSideEffects:
		return s.assistant.SideEffects
	default:
		return s.assistant.SearchLiterature
	}
}
