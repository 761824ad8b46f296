package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	appconfig "github.com/ca-srg/medassist/internal/config"
	"github.com/ca-srg/medassist/internal/facade"
	"github.com/ca-srg/medassist/internal/llm"
	"github.com/ca-srg/medassist/internal/metrics"
	"github.com/ca-srg/medassist/internal/observability"
	"github.com/ca-srg/medassist/internal/openfda"
	"github.com/ca-srg/medassist/internal/pubmed"
	"github.com/ca-srg/medassist/internal/types"
)

// application bundles the loaded configuration and the façade built from it
type application struct {
	cfg      *types.Config
	facade   *facade.Facade
	shutdown observability.ShutdownFunc
}

// newApplication loads configuration, installs telemetry and wires the upstream clients
func newApplication(ctx context.Context) (*application, error) {
	cfg, err := appconfig.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	shutdown, err := observability.Setup(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	if err := metrics.Init(); err != nil {
		log.Printf("Warning: failed to register metrics: %v", err)
	}

	generator, err := llm.NewGenerator(ctx, cfg)
	if err != nil {
		_ = shutdown(ctx)
		return nil, fmt.Errorf("failed to create %s generator: %w", cfg.LLMProvider, err)
	}

	adverseEvents := openfda.NewClient(cfg.OpenFDAAPIURL, cfg.OpenFDAAPIKey, cfg.UpstreamTimeout,
		openfda.WithLogger(log.New(os.Stderr, "[openfda] ", log.LstdFlags)))
	literature := pubmed.NewClient(cfg.NCBIAPIURL, cfg.NCBIAPIKey, cfg.UpstreamTimeout,
		pubmed.WithLogger(log.New(os.Stderr, "[pubmed] ", log.LstdFlags)))

	f, err := facade.New(facade.Deps{
		Generator:    generator,
		AdverseEvent: adverseEvents,
		Literature:   literature,
		SystemPrompt: cfg.MedicalSystemPrompt,
		Logger:       log.New(os.Stderr, "[facade] ", log.LstdFlags),
	})
	if err != nil {
		_ = shutdown(ctx)
		return nil, fmt.Errorf("failed to create facade: %w", err)
	}

	return &application{cfg: cfg, facade: f, shutdown: shutdown}, nil
}

// Close flushes telemetry
func (a *application) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.shutdown(ctx); err != nil {
		log.Printf("Warning: telemetry shutdown failed: %v", err)
	}
}

// signalContext returns a context cancelled on SIGINT or SIGTERM
func signalContext(parent context.Context, logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			logger.Printf("Received signal: %v", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}
