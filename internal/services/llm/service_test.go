package llm

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/common"
	"github.com/ternarybob/scribe/internal/models"
)

type fakeGenerator struct {
	reply    string
	err      error
	requests []*ContentRequest
}

func (g *fakeGenerator) GenerateContent(ctx context.Context, request *ContentRequest) (*ContentResponse, error) {
	g.requests = append(g.requests, request)
	if g.err != nil {
		return nil, g.err
	}
	return &ContentResponse{Text: g.reply, Provider: ProviderGemini, Model: "gemini-test"}, nil
}

func TestService_PromptAndAnalyze(t *testing.T) {
	generator := &fakeGenerator{reply: "No follow-up needed."}
	service := NewService(generator, nil, arbor.NewLogger())

	prompt, err := service.Prompt(`{"key": "AI-7"}`)
	require.NoError(t, err)
	assert.Contains(t, prompt, "<context>\n{\"key\": \"AI-7\"}\n</context>")
	assert.NotContains(t, prompt, "{issue}")

	_, err = service.Prompt("  ")
	assert.Error(t, err)

	reply, err := service.Analyze(context.Background(), prompt)
	require.NoError(t, err)
	assert.Equal(t, "No follow-up needed.", reply)
	require.Len(t, generator.requests, 1)
	assert.Equal(t, prompt, generator.requests[0].Prompt)
	assert.InDelta(t, 0.01, generator.requests[0].Temperature, 0.0001)
}

func TestService_SummarizeProgress(t *testing.T) {
	generator := &fakeGenerator{reply: "  Model training started.\n"}
	service := NewService(generator, nil, arbor.NewLogger())

	tickets := []models.TicketState{{Key: "AI-7", Status: "In Progress", Created: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)}}
	summary, err := service.SummarizeProgress(context.Background(), "what is happening with the AI group", tickets, "Initial setup done.", "2024-01-03")
	require.NoError(t, err)
	assert.Equal(t, "Model training started.", summary)

	prompt := generator.requests[0].Prompt
	assert.Contains(t, prompt, "Question: what is happening with the AI group")
	assert.Contains(t, prompt, "Date: 2024-01-03")
	assert.Contains(t, prompt, `"key":"AI-7"`)
	assert.Contains(t, prompt, "Previous Summary:\nInitial setup done.")

	generator.err = errors.New("boom")
	_, err = service.SummarizeProgress(context.Background(), "q", nil, "", "2024-01-04")
	assert.Error(t, err)
}

func TestService_Summarize(t *testing.T) {
	generator := &fakeGenerator{reply: "Runbook for restarts."}
	service := NewService(generator, nil, arbor.NewLogger())

	summary, err := service.Summarize(context.Background(), "Runbook", "# Runbook\nRestart the service.")
	require.NoError(t, err)
	assert.Equal(t, "Runbook for restarts.", summary)
	assert.Contains(t, generator.requests[0].Prompt, "Title: Runbook")
	assert.Contains(t, generator.requests[0].Prompt, "Restart the service.")
}

func TestLoadPrompts(t *testing.T) {
	prompts, err := LoadPrompts("")
	require.NoError(t, err)
	assert.Equal(t, DefaultPrompts(), prompts)

	path := filepath.Join(t.TempDir(), "prompts.yaml")
	require.NoError(t, os.WriteFile(path, []byte("chaser: |\n  Check {issue} please.\n"), 0o644))

	prompts, err = LoadPrompts(path)
	require.NoError(t, err)
	assert.Equal(t, "Check {issue} please.\n", prompts.Chaser)
	assert.Equal(t, defaultProgress, prompts.Progress)

	service := NewService(&fakeGenerator{}, prompts, arbor.NewLogger())
	rendered, err := service.Prompt("AI-7")
	require.NoError(t, err)
	assert.Equal(t, "Check AI-7 please.\n", rendered)

	_, err = LoadPrompts(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestProviderFactory_DetectProvider(t *testing.T) {
	factory := NewProviderFactory(common.GeminiConfig{}, common.ClaudeConfig{}, common.LLMConfig{DefaultProvider: common.LLMProviderClaude}, arbor.NewLogger())

	assert.Equal(t, ProviderClaude, factory.DetectProvider(""))
	assert.Equal(t, ProviderGemini, factory.DetectProvider("gemini-2.5-flash"))
	assert.Equal(t, ProviderGemini, factory.DetectProvider("google/gemini-2.5-pro"))
	assert.Equal(t, ProviderClaude, factory.DetectProvider("anthropic/claude-haiku-4-5"))
	assert.Equal(t, "claude-haiku-4-5", factory.NormalizeModel("anthropic/claude-haiku-4-5"))
	assert.Equal(t, "gemini-2.5-flash", factory.NormalizeModel("gemini-2.5-flash"))

	assert.False(t, factory.Configured())
	_, err := factory.GenerateContent(context.Background(), &ContentRequest{Prompt: "hi"})
	assert.ErrorIs(t, err, ErrLLMNotConfigured)
	_, err = factory.GeminiClient(context.Background())
	assert.ErrorIs(t, err, ErrLLMNotConfigured)
}

func TestProviderFactory_Require(t *testing.T) {
	none := NewProviderFactory(common.GeminiConfig{}, common.ClaudeConfig{}, common.LLMConfig{DefaultProvider: common.LLMProviderGemini}, arbor.NewLogger())
	assert.ErrorIs(t, none.RequireGenerator(), ErrLLMNotConfigured)
	assert.ErrorIs(t, none.RequireEmbedder(), ErrLLMNotConfigured)

	// Claude generates but embeddings still need Gemini
	claude := NewProviderFactory(common.GeminiConfig{}, common.ClaudeConfig{APIKey: "sk-test"}, common.LLMConfig{DefaultProvider: common.LLMProviderClaude}, arbor.NewLogger())
	assert.NoError(t, claude.RequireGenerator())
	assert.ErrorIs(t, claude.RequireEmbedder(), ErrLLMNotConfigured)

	gemini := NewProviderFactory(common.GeminiConfig{APIKey: "test-key"}, common.ClaudeConfig{}, common.LLMConfig{DefaultProvider: common.LLMProviderGemini}, arbor.NewLogger())
	assert.NoError(t, gemini.RequireGenerator())
	assert.NoError(t, gemini.RequireEmbedder())
}

func TestRetry(t *testing.T) {
	config := NewDefaultRetryConfig()

	assert.True(t, IsRateLimitError(errors.New("Error 429, Status: RESOURCE_EXHAUSTED")))
	assert.False(t, IsRateLimitError(errors.New("connection reset")))
	assert.False(t, IsRateLimitError(nil))

	assert.Equal(t, 45387*time.Millisecond, ExtractRetryDelay(errors.New("Please retry in 45.387s., Status: RESOURCE_EXHAUSTED")).Round(time.Millisecond))
	assert.Equal(t, time.Duration(0), ExtractRetryDelay(errors.New("nothing")))

	assert.Equal(t, 45*time.Second, config.CalculateBackoff(0, 0))
	assert.Equal(t, 90*time.Second, config.CalculateBackoff(3, 0))
	assert.Equal(t, 15*time.Second, config.CalculateBackoff(0, 10*time.Second))

	config.TransientBackoff = time.Millisecond
	config.MaxRetries = 2
	calls := 0
	var retried []int
	result, err := withRetry(context.Background(), config, func() (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("connection reset")
		}
		return "ok", nil
	}, func(attempt int, backoff time.Duration, err error) {
		retried = append(retried, attempt)
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, []int{0, 1}, retried)

	calls = 0
	_, err = withRetry(context.Background(), config, func() (string, error) {
		calls++
		return "", errors.New("still failing")
	}, nil)
	assert.EqualError(t, err, "still failing")
	assert.Equal(t, 3, calls)
}
