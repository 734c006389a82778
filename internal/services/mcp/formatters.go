package mcp

import (
	"fmt"
	"strings"

	"github.com/ternarybob/scribe/internal/models"
)

// excerptLength bounds each chunk shown in search results
const excerptLength = 1200

// formatSearchResults converts ranked chunks to markdown
func formatSearchResults(query string, results []models.ChunkSearchResult) string {
	if len(results) == 0 {
		return fmt.Sprintf("No results found for query: %s", query)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "# Search Results for '%s'\n\n", query)
	fmt.Fprintf(&sb, "Found %d chunk(s):\n\n", len(results))

	for i, result := range results {
		chunk := result.Chunk
		fmt.Fprintf(&sb, "## %d. %s\n\n", i+1, chunk.Title)
		fmt.Fprintf(&sb, "**Source:** %s | **Scope:** %s | **Score:** %.3f\n", chunk.Source, chunk.Scope, result.Score)
		if chunk.URL != "" {
			fmt.Fprintf(&sb, "**URL:** %s\n", chunk.URL)
		}
		if chunk.LastModified != "" {
			fmt.Fprintf(&sb, "**Modified:** %s\n", chunk.LastModified)
		}
		sb.WriteString("\n")
		sb.WriteString(excerpt(chunk.Content))
		sb.WriteString("\n\n---\n\n")
	}

	return sb.String()
}

// formatPageSummary converts a page summary to markdown
func formatPageSummary(summary *models.PageSummary) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", summary.Title)
	if summary.URL != "" {
		fmt.Fprintf(&sb, "**URL:** %s\n", summary.URL)
	}
	if summary.LastModified != "" {
		fmt.Fprintf(&sb, "**Modified:** %s\n", summary.LastModified)
	}
	sb.WriteString("\n")
	sb.WriteString(strings.TrimSpace(summary.Summary))
	sb.WriteString("\n")
	return sb.String()
}

// formatFollowups converts a ticket's reminders to markdown
func formatFollowups(issueKey string, notifications []*models.FollowupNotification) string {
	if len(notifications) == 0 {
		return fmt.Sprintf("No follow-ups recorded for %s", issueKey)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "# Follow-ups for %s\n\n", issueKey)

	for _, n := range notifications {
		fmt.Fprintf(&sb, "## %s (%s)\n\n", n.Recipient, n.Status)
		if n.Summary.Subject != "" {
			fmt.Fprintf(&sb, "**Subject:** %s\n", n.Summary.Subject)
		}
		if n.CommentID != "" {
			fmt.Fprintf(&sb, "**Comment:** %s\n", n.CommentID)
		}
		if n.Reason != "" {
			fmt.Fprintf(&sb, "**Reason:** %s\n", n.Reason)
		}
		if n.SentAt != nil {
			fmt.Fprintf(&sb, "**Sent:** %s\n", n.SentAt.Format("2006-01-02 15:04:05"))
		}
		if n.Summary.Body != "" {
			sb.WriteString("\n")
			sb.WriteString(strings.TrimSpace(n.Summary.Body))
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func excerpt(content string) string {
	content = strings.TrimSpace(content)
	if len(content) <= excerptLength {
		return content
	}
	cut := excerptLength
	for cut > 0 && !isRuneStart(content[cut]) {
		cut--
	}
	return content[:cut] + "..."
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
