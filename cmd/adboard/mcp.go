// ABOUTME: MCP server command implementation for adboard.
// ABOUTME: Starts the MCP server in stdio mode for AI agent integration.
package main

import (
	"github.com/spf13/cobra"

	mcppkg "github.com/2389-research/adboard/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP server (stdio mode)",
	Long: `Start the Model Context Protocol server for AI agent integration.

The MCP server communicates via stdio, allowing AI agents like Claude
to search and edit listings through a standardized protocol.`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	engine := newEngine()
	defer engine.Close()
	engine.Start(ctx)

	server, err := mcppkg.NewServer(engine,
		mcppkg.WithAuth(globalRemoteClient, globalSession),
		mcppkg.WithDefaultRadius(globalConfig.GetRadiusKm()),
	)
	if err != nil {
		return err
	}

	return server.Serve(ctx)
}
