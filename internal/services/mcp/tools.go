package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// createSearchKnowledgeTool returns the search_knowledge tool definition
func createSearchKnowledgeTool() mcp.Tool {
	return mcp.NewTool("search_knowledge",
		mcp.WithDescription("Search ingested Confluence and SharePoint documents by meaning"),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Question or keywords. Supports \"quoted phrases\", +required terms and source:, scope:, title: qualifiers"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum chunks to return (default: 5, max: 50)"),
		),
	)
}

// createGetPageSummaryTool returns the get_page_summary tool definition
func createGetPageSummaryTool() mcp.Tool {
	return mcp.NewTool("get_page_summary",
		mcp.WithDescription("Retrieve the generated summary of an ingested page"),
		mcp.WithString("page_id",
			mcp.Required(),
			mcp.Description("Confluence page id or SharePoint file id"),
		),
	)
}

// createListFollowupsTool returns the list_followups tool definition
func createListFollowupsTool() mcp.Tool {
	return mcp.NewTool("list_followups",
		mcp.WithDescription("List the follow-up reminders recorded for a Jira ticket"),
		mcp.WithString("issue_key",
			mcp.Required(),
			mcp.Description("Issue key (AI-123)"),
		),
	)
}

// createGetProgressTool returns the get_progress tool definition
func createGetProgressTool() mcp.Tool {
	return mcp.NewTool("get_progress",
		mcp.WithDescription("Daily progress summaries of a Jira component, oldest first"),
		mcp.WithString("component",
			mcp.Required(),
			mcp.Description("Jira component name"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Number of most recent days (default: 30)"),
		),
	)
}
