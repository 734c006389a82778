package handlers

import (
	"net/http"

	"github.com/mark3labs/mcp-go/server"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/common"
)

// MCPHandler serves the MCP tools over streamable HTTP
type MCPHandler struct {
	transport *server.StreamableHTTPServer
	logger    arbor.ILogger
}

// NewMCPHandler creates a new MCP handler
func NewMCPHandler(transport *server.StreamableHTTPServer, logger arbor.ILogger) *MCPHandler {
	return &MCPHandler{
		transport: transport,
		logger:    logger,
	}
}

// HandleRPC hands the request to the MCP transport
func (h *MCPHandler) HandleRPC(w http.ResponseWriter, r *http.Request) {
	h.logger.Debug().Str("method", r.Method).Msg("MCP request")
	h.transport.ServeHTTP(w, r)
}

// InfoHandler returns MCP server information
func (h *MCPHandler) InfoHandler(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"name":    "scribe",
		"version": common.GetVersion(),
		"tools":   []string{"search_knowledge", "get_page_summary", "list_followups", "get_progress"},
		"endpoints": map[string]string{
			"rpc":  "/mcp",
			"info": "/mcp/info",
		},
	})
}
