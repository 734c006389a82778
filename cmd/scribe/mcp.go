package main

import (
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the knowledge tools over MCP stdio",
	Long:  `Runs the MCP server on stdin/stdout for desktop assistants. Logs go to the log file only.`,
	RunE:  runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	application, err := newOneShotApp()
	if err != nil {
		return err
	}
	defer application.Close()

	logger.Info().Msg("Serving MCP over stdio")
	if err := server.ServeStdio(application.MCPServer); err != nil {
		logger.Error().Err(err).Msg("MCP stdio server stopped")
		return err
	}
	return nil
}
