package splitter

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/scribe/internal/common"
)

// keywordEmbedder maps text onto (cats, rockets) keyword counts
type keywordEmbedder struct {
	calls atomic.Int32
	err   error
}

func (e *keywordEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{float32(strings.Count(text, "Cats")), float32(strings.Count(text, "Rockets"))}, nil
}

func (e *keywordEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.calls.Add(1)
	if e.err != nil {
		return nil, e.err
	}
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i], _ = e.Embed(ctx, text)
	}
	return vectors, nil
}

func semanticConfig(numberOfChunks int) common.SplitterConfig {
	config := common.NewDefaultConfig().Splitter
	config.NumberOfChunks = numberOfChunks
	return config
}

const topicText = "Cats purr. Cats nap. Cats hunt. Rockets launch. Rockets orbit. Rockets land."

func TestSemanticChunker_BreaksBetweenTopics(t *testing.T) {
	for _, numberOfChunks := range []int{0, 3} {
		embedder := &keywordEmbedder{}
		chunker := NewSemanticChunker(embedder, semanticConfig(numberOfChunks))

		chunks, err := chunker.Split(context.Background(), topicText)

		require.NoError(t, err)
		assert.Equal(t, []string{
			"Cats purr. Cats nap. Cats hunt.",
			"Rockets launch. Rockets orbit. Rockets land.",
		}, chunks, "number_of_chunks=%d", numberOfChunks)
		assert.Equal(t, int32(1), embedder.calls.Load())
	}
}

func TestSemanticChunker_SingleSentence(t *testing.T) {
	chunker := NewSemanticChunker(nil, semanticConfig(3))

	chunks, err := chunker.Split(context.Background(), "only one sentence here")
	require.NoError(t, err)
	assert.Equal(t, []string{"only one sentence here"}, chunks)
}

func TestSemanticChunker_EmbedError(t *testing.T) {
	chunker := NewSemanticChunker(&keywordEmbedder{err: errors.New("quota")}, semanticConfig(3))

	_, err := chunker.Split(context.Background(), topicText)
	assert.ErrorContains(t, err, "quota")
}

func TestSplitSentences(t *testing.T) {
	assert.Equal(t, []string{"One.", "Two?", "Three!", "Four"}, SplitSentences("One. Two?\nThree!   Four"))
	assert.Equal(t, []string{"v1.2 is out."}, SplitSentences("v1.2 is out."))
}

func TestCombineSentences(t *testing.T) {
	combined := combineSentences([]string{"a", "b", "c"}, 1)
	assert.Equal(t, []string{"a b", "a b c", "b c"}, combined)
}

func TestPercentile(t *testing.T) {
	values := []float64{4, 1, 3, 2, 5}
	assert.InDelta(t, 1.0, Percentile(values, 0), 1e-9)
	assert.InDelta(t, 3.0, Percentile(values, 50), 1e-9)
	assert.InDelta(t, 4.8, Percentile(values, 95), 1e-9)
	assert.InDelta(t, 5.0, Percentile(values, 100), 1e-9)
	assert.Equal(t, 0.0, Percentile(nil, 50))
}

func TestPercentileForChunkCount(t *testing.T) {
	assert.InDelta(t, 50.0, percentileForChunkCount(5, 3), 1e-9)
	assert.InDelta(t, 100.0, percentileForChunkCount(1, 3), 1e-9)
	assert.InDelta(t, 0.0, percentileForChunkCount(2, 3), 1e-9)
	assert.InDelta(t, 100.0, percentileForChunkCount(10, 1), 1e-9)
}
