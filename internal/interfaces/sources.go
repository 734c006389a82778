package interfaces

import (
	"context"

	"github.com/ternarybob/scribe/internal/models"
)

// Source enumerates and fetches documents of one remote system
type Source interface {
	// Name identifies the source on stored chunks and in logs
	Name() string

	// ListItems lists the documents of a scope in the remote system's order
	ListItems(ctx context.Context, scope string) ([]models.RemoteItem, error)

	// FetchContent returns the item's content converted to markdown
	FetchContent(ctx context.Context, item models.RemoteItem) (string, error)
}

// JiraClient is the subset of Jira the chaser and progress ingest call
type JiraClient interface {
	// SearchIssues runs jql with comments expanded, one page at a time
	SearchIssues(ctx context.Context, jql string, startAt, maxResults int) ([]models.JiraIssue, error)

	// ComponentIssuesWithChangelog returns the component's issues with their changelog
	ComponentIssuesWithChangelog(ctx context.Context, component string, maxResults int) ([]models.JiraIssue, error)
}

// Mailer delivers a composed reminder
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}
