package splitter

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/ternarybob/scribe/internal/common"
	"github.com/ternarybob/scribe/internal/interfaces"
	"golang.org/x/sync/errgroup"
)

const embedBatchSize = 32

// SemanticChunker groups sentences into chunks, breaking where the embedding
// distance between neighbouring sentence windows spikes.
type SemanticChunker struct {
	embedder   interfaces.Embedder
	bufferSize int
	// percentile of the distances used as the break threshold
	percentile float64
	// when > 0 the percentile is derived from the desired chunk count instead
	numberOfChunks int
	concurrency    int
}

// NewSemanticChunker creates a chunker from the splitter configuration
func NewSemanticChunker(embedder interfaces.Embedder, config common.SplitterConfig) *SemanticChunker {
	concurrency := config.EmbedConcurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	return &SemanticChunker{
		embedder:       embedder,
		bufferSize:     config.BufferSize,
		percentile:     config.BreakpointPercentile,
		numberOfChunks: config.NumberOfChunks,
		concurrency:    concurrency,
	}
}

// Split returns the semantic chunks of text in order
func (c *SemanticChunker) Split(ctx context.Context, text string) ([]string, error) {
	sentences := SplitSentences(text)
	if len(sentences) <= 1 {
		return []string{text}, nil
	}
	if c.embedder == nil {
		return nil, fmt.Errorf("semantic split needs an embedder")
	}

	windows := combineSentences(sentences, c.bufferSize)
	embeddings, err := c.embedAll(ctx, windows)
	if err != nil {
		return nil, err
	}

	distances := make([]float64, len(embeddings)-1)
	for i := range distances {
		distances[i] = 1 - common.CosineSimilarity(embeddings[i], embeddings[i+1])
	}

	threshold := c.threshold(distances)

	var chunks []string
	start := 0
	for i, distance := range distances {
		if distance > threshold {
			chunks = append(chunks, strings.Join(sentences[start:i+1], " "))
			start = i + 1
		}
	}
	if start < len(sentences) {
		chunks = append(chunks, strings.Join(sentences[start:], " "))
	}
	return chunks, nil
}

func (c *SemanticChunker) threshold(distances []float64) float64 {
	if c.numberOfChunks > 0 {
		return Percentile(distances, percentileForChunkCount(len(distances), c.numberOfChunks))
	}
	return Percentile(distances, c.percentile)
}

// embedAll embeds windows in batches, a bounded number at a time, keeping order
func (c *SemanticChunker) embedAll(ctx context.Context, windows []string) ([][]float32, error) {
	embeddings := make([][]float32, len(windows))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	for from := 0; from < len(windows); from += embedBatchSize {
		to := from + embedBatchSize
		if to > len(windows) {
			to = len(windows)
		}
		g.Go(func() error {
			vectors, err := c.embedder.EmbedBatch(gctx, windows[from:to])
			if err != nil {
				return fmt.Errorf("embed sentences %d-%d: %w", from, to, err)
			}
			if len(vectors) != to-from {
				return fmt.Errorf("embed sentences %d-%d: got %d vectors", from, to, len(vectors))
			}
			copy(embeddings[from:to], vectors)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return embeddings, nil
}

// SplitSentences cuts text after '.', '?' or '!' when whitespace follows.
// The whitespace between sentences is dropped.
func SplitSentences(text string) []string {
	var sentences []string
	runes := []rune(text)
	start := 0
	for i := 0; i < len(runes)-1; i++ {
		if !isSentenceEnd(runes[i]) || !unicode.IsSpace(runes[i+1]) {
			continue
		}
		sentences = append(sentences, string(runes[start:i+1]))
		j := i + 1
		for j < len(runes) && unicode.IsSpace(runes[j]) {
			j++
		}
		start = j
		i = j - 1
	}
	sentences = append(sentences, string(runes[start:]))
	return sentences
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '?' || r == '!'
}

// combineSentences surrounds each sentence with up to buffer neighbours on each side
func combineSentences(sentences []string, buffer int) []string {
	combined := make([]string, len(sentences))
	for i := range sentences {
		var b strings.Builder
		for j := i - buffer; j < i; j++ {
			if j >= 0 {
				b.WriteString(sentences[j])
				b.WriteString(" ")
			}
		}
		b.WriteString(sentences[i])
		for j := i + 1; j <= i+buffer && j < len(sentences); j++ {
			b.WriteString(" ")
			b.WriteString(sentences[j])
		}
		combined[i] = b.String()
	}
	return combined
}

// percentileForChunkCount interpolates the percentile that yields roughly chunks
// pieces: one chunk maps to the 100th percentile, one chunk per distance to the 0th.
func percentileForChunkCount(distances, chunks int) float64 {
	x1, y1 := float64(distances), 0.0
	x2, y2 := 1.0, 100.0
	x := math.Max(math.Min(float64(chunks), x1), x2)

	var y float64
	if x1 == x2 {
		y = y2
	} else {
		y = y1 + ((y2-y1)/(x2-x1))*(x-x1)
	}
	return math.Min(math.Max(y, 0), 100)
}

// Percentile returns the p-th percentile of values using linear interpolation
// between the closest ranks.
func Percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo < 0 {
		lo = 0
	}
	if hi >= len(sorted) {
		hi = len(sorted) - 1
	}
	return sorted[lo] + (sorted[hi]-sorted[lo])*(rank-float64(lo))
}
