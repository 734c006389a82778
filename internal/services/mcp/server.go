package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/server"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/models"
)

// KnowledgeSearcher ranks stored chunks against a free-text query
type KnowledgeSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]models.ChunkSearchResult, error)
}

// FollowupLister returns the reminders recorded for a ticket
type FollowupLister interface {
	ListFollowups(ctx context.Context, issueKey string) ([]*models.FollowupNotification, error)
}

// ProgressReader renders the stored daily summaries of a component
type ProgressReader interface {
	GetSummaries(ctx context.Context, component string, limit int) (string, error)
}

// PageSummaryReader looks up the generated summary of an ingested page
type PageSummaryReader interface {
	GetSummary(ctx context.Context, pageID string) (*models.PageSummary, error)
}

// Dependencies are the services exposed as tools. Nil members leave their tool unregistered.
type Dependencies struct {
	Search    KnowledgeSearcher
	Followups FollowupLister
	Progress  ProgressReader
	Summaries PageSummaryReader
}

// NewServer builds the tool server shared by the stdio command and the /mcp endpoint
func NewServer(deps Dependencies, version string, logger arbor.ILogger) *server.MCPServer {
	mcpServer := server.NewMCPServer(
		"scribe",
		version,
		server.WithToolCapabilities(true),
	)

	registered := 0
	if deps.Search != nil {
		mcpServer.AddTool(createSearchKnowledgeTool(), handleSearchKnowledge(deps.Search, logger))
		registered++
	}
	if deps.Summaries != nil {
		mcpServer.AddTool(createGetPageSummaryTool(), handleGetPageSummary(deps.Summaries, logger))
		registered++
	}
	if deps.Followups != nil {
		mcpServer.AddTool(createListFollowupsTool(), handleListFollowups(deps.Followups, logger))
		registered++
	}
	if deps.Progress != nil {
		mcpServer.AddTool(createGetProgressTool(), handleGetProgress(deps.Progress, logger))
		registered++
	}

	logger.Debug().Int("tools", registered).Str("version", version).Msg("MCP server created")
	return mcpServer
}

// NewHTTPHandler serves the tool server over streamable HTTP
func NewHTTPHandler(mcpServer *server.MCPServer) *server.StreamableHTTPServer {
	return server.NewStreamableHTTPServer(mcpServer, server.WithStateLess(true))
}
