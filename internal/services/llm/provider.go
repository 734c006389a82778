package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/common"
	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// ErrLLMNotConfigured is returned when the selected provider has no API key
var ErrLLMNotConfigured = errors.New("llm provider is not configured")

// ProviderType represents the AI provider type
type ProviderType string

const (
	ProviderGemini ProviderType = "gemini"
	ProviderClaude ProviderType = "claude"
)

// ContentRequest is a provider-agnostic single-turn generation request
type ContentRequest struct {
	Prompt            string
	SystemInstruction string
	Model             string // Optional; may carry a "claude/" or "gemini/" prefix
	Temperature       float32
	MaxTokens         int
}

// ContentResponse is the provider-agnostic reply
type ContentResponse struct {
	Text     string
	Provider ProviderType
	Model    string
}

// Generator produces text for a request
type Generator interface {
	GenerateContent(ctx context.Context, request *ContentRequest) (*ContentResponse, error)
}

// ProviderFactory routes requests to Gemini or Claude. Clients are created lazily
// and every call waits on the provider's rate limiter.
type ProviderFactory struct {
	geminiConfig common.GeminiConfig
	claudeConfig common.ClaudeConfig
	llmConfig    common.LLMConfig
	retry        *RetryConfig
	logger       arbor.ILogger

	mu            sync.Mutex
	geminiClient  *genai.Client
	claudeClient  *anthropic.Client
	geminiLimiter *rate.Limiter
	claudeLimiter *rate.Limiter
}

// NewProviderFactory creates a new provider factory
func NewProviderFactory(geminiConfig common.GeminiConfig, claudeConfig common.ClaudeConfig, llmConfig common.LLMConfig, logger arbor.ILogger) *ProviderFactory {
	return &ProviderFactory{
		geminiConfig:  geminiConfig,
		claudeConfig:  claudeConfig,
		llmConfig:     llmConfig,
		retry:         NewDefaultRetryConfig(),
		logger:        logger,
		geminiLimiter: newLimiter(geminiConfig.RateLimit),
		claudeLimiter: newLimiter(claudeConfig.RateLimit),
	}
}

// newLimiter allows one call per interval; an empty or invalid interval disables pacing
func newLimiter(interval string) *rate.Limiter {
	d, err := time.ParseDuration(interval)
	if err != nil || d <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(d), 1)
}

// Configured reports whether the default provider has credentials
func (f *ProviderFactory) Configured() bool {
	switch f.DetectProvider("") {
	case ProviderClaude:
		return f.claudeConfig.APIKey != ""
	default:
		return f.geminiConfig.APIKey != ""
	}
}

// RequireGenerator fails with ErrLLMNotConfigured when the default provider has no key
func (f *ProviderFactory) RequireGenerator() error {
	if !f.Configured() {
		return fmt.Errorf("%w: no api key for default provider %s", ErrLLMNotConfigured, f.DetectProvider(""))
	}
	return nil
}

// RequireEmbedder fails with ErrLLMNotConfigured when Gemini has no key; embeddings
// always come from Gemini whatever the default provider is
func (f *ProviderFactory) RequireEmbedder() error {
	if f.geminiConfig.APIKey == "" {
		return fmt.Errorf("%w: embeddings need a gemini api key", ErrLLMNotConfigured)
	}
	return nil
}

// DetectProvider determines the provider from a model string such as
// "claude-sonnet-4", "gemini/gemini-2.5-flash" or "" (the configured default)
func (f *ProviderFactory) DetectProvider(model string) ProviderType {
	model = strings.ToLower(model)

	switch {
	case strings.HasPrefix(model, "claude/"), strings.HasPrefix(model, "anthropic/"), strings.HasPrefix(model, "claude-"):
		return ProviderClaude
	case strings.HasPrefix(model, "gemini/"), strings.HasPrefix(model, "google/"), strings.HasPrefix(model, "gemini-"):
		return ProviderGemini
	}

	if f.llmConfig.DefaultProvider == common.LLMProviderClaude {
		return ProviderClaude
	}
	return ProviderGemini
}

// NormalizeModel removes the provider prefix from a model name
func (f *ProviderFactory) NormalizeModel(model string) string {
	prefixes := []string{"claude/", "anthropic/", "gemini/", "google/"}
	for _, prefix := range prefixes {
		if strings.HasPrefix(strings.ToLower(model), prefix) {
			return model[len(prefix):]
		}
	}
	return model
}

// GeminiClient returns the shared Gemini client, creating it on first use
func (f *ProviderFactory) GeminiClient(ctx context.Context) (*genai.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.geminiClient != nil {
		return f.geminiClient, nil
	}
	if f.geminiConfig.APIKey == "" {
		return nil, fmt.Errorf("%w: gemini api key missing", ErrLLMNotConfigured)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  f.geminiConfig.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	f.geminiClient = client
	return client, nil
}

func (f *ProviderFactory) claude() (*anthropic.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.claudeClient != nil {
		return f.claudeClient, nil
	}
	if f.claudeConfig.APIKey == "" {
		return nil, fmt.Errorf("%w: anthropic api key missing", ErrLLMNotConfigured)
	}

	client := anthropic.NewClient(option.WithAPIKey(f.claudeConfig.APIKey))
	f.claudeClient = &client
	return f.claudeClient, nil
}

// GenerateContent generates content using the provider selected by the request model
func (f *ProviderFactory) GenerateContent(ctx context.Context, request *ContentRequest) (*ContentResponse, error) {
	provider := f.DetectProvider(request.Model)
	model := f.NormalizeModel(request.Model)

	f.logger.Debug().
		Str("provider", string(provider)).
		Str("model", model).
		Int("prompt_length", len(request.Prompt)).
		Msg("Generating content with provider")

	if provider == ProviderClaude {
		return f.generateWithClaude(ctx, request, model)
	}
	return f.generateWithGemini(ctx, request, model)
}

func (f *ProviderFactory) generateWithClaude(ctx context.Context, request *ContentRequest, model string) (*ContentResponse, error) {
	client, err := f.claude()
	if err != nil {
		return nil, err
	}

	if model == "" {
		model = f.claudeConfig.Model
	}
	maxTokens := request.MaxTokens
	if maxTokens <= 0 {
		maxTokens = f.claudeConfig.MaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(request.Prompt)),
		},
	}

	temp := request.Temperature
	if temp <= 0 {
		temp = f.claudeConfig.Temperature
	}
	if temp > 0 {
		params.Temperature = anthropic.Float(float64(temp))
	}
	if request.SystemInstruction != "" {
		params.System = []anthropic.TextBlockParam{{Text: request.SystemInstruction}}
	}

	ctx, cancel := withTimeout(ctx, f.claudeConfig.Timeout)
	defer cancel()

	resp, err := withRetry(ctx, f.retry, func() (*anthropic.Message, error) {
		if err := f.claudeLimiter.Wait(ctx); err != nil {
			return nil, err
		}
		return client.Messages.New(ctx, params)
	}, f.logRetry("Claude"))
	if err != nil {
		return nil, fmt.Errorf("Claude API call failed: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return nil, fmt.Errorf("empty response from Claude API")
	}

	return &ContentResponse{
		Text:     text.String(),
		Provider: ProviderClaude,
		Model:    model,
	}, nil
}

func (f *ProviderFactory) generateWithGemini(ctx context.Context, request *ContentRequest, model string) (*ContentResponse, error) {
	client, err := f.GeminiClient(ctx)
	if err != nil {
		return nil, err
	}

	if model == "" {
		model = f.geminiConfig.Model
	}

	temp := request.Temperature
	if temp <= 0 {
		temp = f.geminiConfig.Temperature
	}
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(temp),
	}
	if request.MaxTokens > 0 {
		config.MaxOutputTokens = int32(request.MaxTokens)
	}
	if request.SystemInstruction != "" {
		config.SystemInstruction = genai.NewContentFromText(request.SystemInstruction, genai.RoleUser)
	}

	ctx, cancel := withTimeout(ctx, f.geminiConfig.Timeout)
	defer cancel()

	contents := genai.Text(request.Prompt)
	resp, err := withRetry(ctx, f.retry, func() (*genai.GenerateContentResponse, error) {
		if err := f.geminiLimiter.Wait(ctx); err != nil {
			return nil, err
		}
		return client.Models.GenerateContent(ctx, model, contents, config)
	}, f.logRetry("Gemini"))
	if err != nil {
		return nil, fmt.Errorf("Gemini API call failed: %w", err)
	}

	if resp == nil || len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("empty response from Gemini API")
	}
	responseText := resp.Text()
	if responseText == "" {
		return nil, fmt.Errorf("empty text in Gemini response")
	}

	return &ContentResponse{
		Text:     responseText,
		Provider: ProviderGemini,
		Model:    model,
	}, nil
}

func (f *ProviderFactory) logRetry(provider string) func(int, time.Duration, error) {
	return func(attempt int, backoff time.Duration, err error) {
		f.logger.Warn().
			Str("provider", provider).
			Int("attempt", attempt+1).
			Dur("backoff", backoff).
			Err(err).
			Msg("Retrying API call")
	}
}

// withTimeout applies a duration string timeout; an empty or invalid value leaves ctx unchanged
func withTimeout(ctx context.Context, timeout string) (context.Context, context.CancelFunc) {
	d, err := time.ParseDuration(timeout)
	if err != nil || d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// Close releases the provider clients
func (f *ProviderFactory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.geminiClient = nil
	f.claudeClient = nil
	return nil
}
