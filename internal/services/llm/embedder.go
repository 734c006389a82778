package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/common"
	"google.golang.org/genai"
)

// maxEmbedBatch is the most texts sent in one EmbedContent call
const maxEmbedBatch = 100

// GeminiEmbedder implements interfaces.Embedder with Gemini embedding models
type GeminiEmbedder struct {
	factory   *ProviderFactory
	model     string
	dimension int
	logger    arbor.ILogger
}

// NewGeminiEmbedder creates an embedder sharing the factory's client and rate limiter
func NewGeminiEmbedder(factory *ProviderFactory, config common.LLMConfig, logger arbor.ILogger) *GeminiEmbedder {
	model := config.EmbeddingModel
	if model == "" {
		model = "text-embedding-004"
	}
	dimension := config.EmbeddingDimension
	if dimension <= 0 {
		dimension = 768
	}
	return &GeminiEmbedder{
		factory:   factory,
		model:     model,
		dimension: dimension,
		logger:    logger,
	}
}

// Embed returns the vector of one text
func (e *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch returns one vector per text, in order
func (e *GeminiEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	for i, text := range texts {
		if text == "" {
			return nil, fmt.Errorf("text %d is empty", i)
		}
	}

	client, err := e.factory.GeminiClient(ctx)
	if err != nil {
		return nil, err
	}

	startTime := time.Now()
	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += maxEmbedBatch {
		end := min(start+maxEmbedBatch, len(texts))
		batch, err := e.embed(ctx, client, texts[start:end])
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, batch...)
	}

	e.logger.Debug().
		Int("texts", len(texts)).
		Dur("duration", time.Since(startTime)).
		Msg("Embeddings generated")

	return vectors, nil
}

func (e *GeminiEmbedder) embed(ctx context.Context, client *genai.Client, texts []string) ([][]float32, error) {
	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}
	outputDim := int32(e.dimension)
	config := &genai.EmbedContentConfig{OutputDimensionality: &outputDim}

	result, err := withRetry(ctx, e.factory.retry, func() (*genai.EmbedContentResponse, error) {
		if err := e.factory.geminiLimiter.Wait(ctx); err != nil {
			return nil, err
		}
		return client.Models.EmbedContent(ctx, e.model, contents, config)
	}, e.factory.logRetry("Gemini"))
	if err != nil {
		return nil, fmt.Errorf("embedding generation failed: %w", err)
	}

	if result == nil || len(result.Embeddings) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings from API", len(texts))
	}

	vectors := make([][]float32, len(texts))
	for i, embedding := range result.Embeddings {
		if len(embedding.Values) != e.dimension {
			return nil, fmt.Errorf("embedding dimension mismatch: expected %d, got %d", e.dimension, len(embedding.Values))
		}
		vectors[i] = embedding.Values
	}
	return vectors, nil
}
