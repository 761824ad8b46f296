package cmd

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/ca-srg/medassist/internal/mcpserver"
)

var (
	mcpHost string
	mcpPort int
)

var mcpServerCmd = &cobra.Command{
	Use:   "mcp-server",
	Short: "Start the MCP server exposing the medical tools",
	Long: `
The mcp-server command serves the Model Context Protocol over streamable HTTP at /mcp.
Tools: drug_search, side_effects, literature_search, medical_consult.

Set MCP_ALLOWED_IPS to a comma-separated list of addresses or CIDR blocks
to restrict which clients may connect.

Example:
  medassist mcp-server                 # Start with defaults (localhost:8080)
  medassist mcp-server --port 9000
`,
	RunE: runMCPServer,
}

func init() {
	mcpServerCmd.Flags().StringVar(&mcpHost, "host", "", "Host to bind the MCP server (default MCP_SERVER_HOST)")
	mcpServerCmd.Flags().IntVarP(&mcpPort, "port", "p", 0, "Port to bind the MCP server (default MCP_SERVER_PORT)")
}

func runMCPServer(cmd *cobra.Command, args []string) error {
	logger := log.New(os.Stdout, "[mcpserver] ", log.LstdFlags)

	app, err := newApplication(cmd.Context())
	if err != nil {
		return err
	}
	defer app.Close()

	serverConfig := mcpserver.DefaultServerConfig()
	serverConfig.Host = app.cfg.MCPServerHost
	serverConfig.Port = app.cfg.MCPServerPort
	serverConfig.AllowedIPs = app.cfg.MCPAllowedIPs
	serverConfig.TrustedProxies = app.cfg.MCPTrustedProxies
	serverConfig.RateLimitPerMinute = app.cfg.RateLimitPerMinute
	if mcpHost != "" {
		serverConfig.Host = mcpHost
	}
	if mcpPort > 0 {
		serverConfig.Port = mcpPort
	}

	server, err := mcpserver.NewServer(serverConfig, app.facade, logger)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	ctx, cancel := signalContext(cmd.Context(), logger)
	defer cancel()

	return server.Run(ctx)
}
