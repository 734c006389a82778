package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/models"
)

// maxSummaryInput bounds the document text sent for a page summary
const maxSummaryInput = 200000

// Temperatures per task
const (
	chaserTemperature   = 0.01
	progressTemperature = 0.2
	summaryTemperature  = 0.2
)

// Service renders the prompts and runs them through a Generator. It implements
// interfaces.Summarizer, interfaces.FollowupAnalyzer and interfaces.ProgressSummarizer.
type Service struct {
	generator Generator
	prompts   *Prompts
	logger    arbor.ILogger
}

// NewService creates the model-backed capabilities. prompts may be nil for the defaults.
func NewService(generator Generator, prompts *Prompts, logger arbor.ILogger) *Service {
	if prompts == nil {
		prompts = DefaultPrompts()
	}
	return &Service{
		generator: generator,
		prompts:   prompts,
		logger:    logger,
	}
}

// Summarize writes a summary of a whole document
func (s *Service) Summarize(ctx context.Context, title, markdown string) (string, error) {
	if len(markdown) > maxSummaryInput {
		markdown = markdown[:maxSummaryInput]
	}
	prompt := render(s.prompts.PageSummary, "title", title, "text", markdown)

	resp, err := s.generator.GenerateContent(ctx, &ContentRequest{
		Prompt:      prompt,
		Temperature: summaryTemperature,
	})
	if err != nil {
		return "", fmt.Errorf("failed to summarize %s: %w", title, err)
	}
	return strings.TrimSpace(resp.Text), nil
}

// Prompt renders the chaser prompt for one issue
func (s *Service) Prompt(issueJSON string) (string, error) {
	if strings.TrimSpace(issueJSON) == "" {
		return "", fmt.Errorf("issue payload is empty")
	}
	return render(s.prompts.Chaser, "issue", issueJSON), nil
}

// Analyze sends a rendered chaser prompt and returns the raw reply
func (s *Service) Analyze(ctx context.Context, prompt string) (string, error) {
	resp, err := s.generator.GenerateContent(ctx, &ContentRequest{
		Prompt:      prompt,
		Temperature: chaserTemperature,
	})
	if err != nil {
		return "", err
	}

	s.logger.Debug().
		Str("provider", string(resp.Provider)).
		Str("model", resp.Model).
		Int("reply_length", len(resp.Text)).
		Msg("Follow-up analysis complete")

	return resp.Text, nil
}

// SummarizeProgress writes the daily summary of a component from the replayed tickets
func (s *Service) SummarizeProgress(ctx context.Context, question string, tickets []models.TicketState, yesterday, date string) (string, error) {
	if tickets == nil {
		tickets = []models.TicketState{}
	}
	ticketsJSON, err := json.Marshal(tickets)
	if err != nil {
		return "", fmt.Errorf("failed to encode tickets: %w", err)
	}

	prompt := render(s.prompts.Progress,
		"question", question,
		"date", date,
		"tickets", string(ticketsJSON),
		"yesterday", yesterday,
	)

	resp, err := s.generator.GenerateContent(ctx, &ContentRequest{
		Prompt:      prompt,
		Temperature: progressTemperature,
	})
	if err != nil {
		return "", fmt.Errorf("failed to summarize progress for %s: %w", date, err)
	}
	return strings.TrimSpace(resp.Text), nil
}
