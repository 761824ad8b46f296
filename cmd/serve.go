package cmd

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/ca-srg/medassist/internal/gallery"
	"github.com/ca-srg/medassist/internal/webui"
)

var (
	serveHost string
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web UI",
	Long: `
The serve command starts the browser UI with five tabs:
- Consultation: chat with the medical assistant
- Drugs: drugs most reported for a condition (openFDA)
- Side effects: reactions most reported for a drug (openFDA)
- Papers: PubMed search with a short overview
- Image: preliminary reading of a symptom photo

A JSON API is served alongside the pages under /api.

Example:
  medassist serve                       # Start with defaults (localhost:7860)
  medassist serve --host 0.0.0.0 -p 80  # Listen on all interfaces
`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to bind the web server (default WEBUI_HOST)")
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to bind the web server (default WEBUI_PORT)")
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := log.New(os.Stdout, "[webui] ", log.LstdFlags)

	app, err := newApplication(cmd.Context())
	if err != nil {
		return err
	}
	defer app.Close()

	g, err := gallery.Load()
	if err != nil {
		return fmt.Errorf("failed to load example gallery: %w", err)
	}

	serverConfig := &webui.ServerConfig{
		Host:               app.cfg.WebUIHost,
		Port:               app.cfg.WebUIPort,
		ReadTimeout:        app.cfg.WebUIReadTimeout,
		WriteTimeout:       app.cfg.WebUIWriteTimeout,
		IdleTimeout:        app.cfg.WebUIIdleTimeout,
		ShutdownTimeout:    app.cfg.WebUIShutdownTimeout,
		MaxImageBytes:      app.cfg.MaxImageBytes,
		RateLimitPerMinute: app.cfg.RateLimitPerMinute,
		TrustedProxies:     app.cfg.WebUITrustedProxies,
	}
	if serveHost != "" {
		serverConfig.Host = serveHost
	}
	if servePort > 0 {
		serverConfig.Port = servePort
	}

	server, err := webui.NewServer(serverConfig, app.facade, g, logger)
	if err != nil {
		return fmt.Errorf("failed to create webui server: %w", err)
	}

	ctx, cancel := signalContext(cmd.Context(), logger)
	defer cancel()

	return server.Run(ctx)
}
