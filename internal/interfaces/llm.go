package interfaces

import (
	"context"

	"github.com/ternarybob/scribe/internal/models"
)

// Embedder turns text into vectors
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Summarizer produces a summary of a whole document
type Summarizer interface {
	Summarize(ctx context.Context, title, markdown string) (string, error)
}

// FollowupAnalyzer inspects one ticket and returns the raw model reply.
// Prompt returns the rendered prompt so it can be stored for auditing.
type FollowupAnalyzer interface {
	Prompt(issueJSON string) (string, error)
	Analyze(ctx context.Context, prompt string) (string, error)
}

// ProgressSummarizer writes the daily summary of a component
type ProgressSummarizer interface {
	SummarizeProgress(ctx context.Context, question string, tickets []models.TicketState, yesterday, date string) (string, error)
}
