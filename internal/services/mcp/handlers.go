package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/interfaces"
)

const (
	defaultProgressDays = 30
	maxProgressDays     = 365
)

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(text),
		},
	}
}

func errorResult(text string) *mcp.CallToolResult {
	result := textResult(text)
	result.IsError = true
	return result
}

// handleSearchKnowledge implements the search_knowledge tool
func handleSearchKnowledge(searcher KnowledgeSearcher, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := request.RequireString("query")
		if err != nil || query == "" {
			return errorResult("Error: query parameter is required"), nil
		}

		limit := request.GetInt("limit", 0)

		results, err := searcher.Search(ctx, query, limit)
		if err != nil {
			logger.Error().Err(err).Str("query", query).Msg("Knowledge search failed")
			return errorResult(fmt.Sprintf("Search error: %v", err)), nil
		}

		return textResult(formatSearchResults(query, results)), nil
	}
}

// handleGetPageSummary implements the get_page_summary tool
func handleGetPageSummary(summaries PageSummaryReader, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		pageID, err := request.RequireString("page_id")
		if err != nil || pageID == "" {
			return errorResult("Error: page_id parameter is required"), nil
		}

		summary, err := summaries.GetSummary(ctx, pageID)
		if errors.Is(err, interfaces.ErrNotFound) {
			return errorResult(fmt.Sprintf("No summary recorded for page %s", pageID)), nil
		}
		if err != nil {
			logger.Error().Err(err).Str("page_id", pageID).Msg("Failed to load page summary")
			return errorResult(fmt.Sprintf("Summary error: %v", err)), nil
		}

		return textResult(formatPageSummary(summary)), nil
	}
}

// handleListFollowups implements the list_followups tool
func handleListFollowups(followups FollowupLister, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		issueKey, err := request.RequireString("issue_key")
		if err != nil || issueKey == "" {
			return errorResult("Error: issue_key parameter is required"), nil
		}

		notifications, err := followups.ListFollowups(ctx, issueKey)
		if err != nil {
			logger.Error().Err(err).Str("issue_key", issueKey).Msg("Failed to list follow-ups")
			return errorResult(fmt.Sprintf("Follow-up error: %v", err)), nil
		}

		return textResult(formatFollowups(issueKey, notifications)), nil
	}
}

// handleGetProgress implements the get_progress tool
func handleGetProgress(progress ProgressReader, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		component, err := request.RequireString("component")
		if err != nil || component == "" {
			return errorResult("Error: component parameter is required"), nil
		}

		limit := request.GetInt("limit", defaultProgressDays)
		if limit <= 0 {
			limit = defaultProgressDays
		}
		limit = min(limit, maxProgressDays)

		table, err := progress.GetSummaries(ctx, component, limit)
		if err != nil {
			logger.Error().Err(err).Str("component", component).Msg("Failed to load progress summaries")
			return errorResult(fmt.Sprintf("Progress error: %v", err)), nil
		}

		return textResult(fmt.Sprintf("# Progress: %s\n\n%s", component, table)), nil
	}
}
