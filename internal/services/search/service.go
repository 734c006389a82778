package search

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/interfaces"
	"github.com/ternarybob/scribe/internal/models"
)

const (
	DefaultLimit = 5
	MaxLimit     = 50

	// candidateFactor widens the similarity fetch so filters still fill the limit
	candidateFactor = 4
)

// ErrEmptyQuery is returned when the query has no searchable text
var ErrEmptyQuery = errors.New("search query is empty")

// Service answers knowledge questions by vector similarity over stored chunks
type Service struct {
	embedder interfaces.Embedder
	chunks   interfaces.ChunkStorage
	parser   *QueryParser
	logger   arbor.ILogger
}

// NewService creates a search service
func NewService(embedder interfaces.Embedder, storage interfaces.StorageManager, logger arbor.ILogger) *Service {
	return &Service{
		embedder: embedder,
		chunks:   storage.ChunkStorage(),
		parser:   NewQueryParser(),
		logger:   logger,
	}
}

// Search ranks chunks against the query text, then applies required phrases
// and source, scope and title qualifiers
func (s *Service) Search(ctx context.Context, query string, limit int) ([]models.ChunkSearchResult, error) {
	parsed := s.parser.Parse(query)
	if strings.TrimSpace(parsed.Text) == "" {
		return nil, ErrEmptyQuery
	}

	if limit <= 0 {
		limit = DefaultLimit
	}
	limit = min(limit, MaxLimit)

	embedding, err := s.embedder.Embed(ctx, parsed.Text)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	fetch := limit
	if parsed.filtered() {
		fetch = limit * candidateFactor
	}
	candidates, err := s.chunks.Search(ctx, embedding, fetch)
	if err != nil {
		return nil, err
	}

	results := make([]models.ChunkSearchResult, 0, limit)
	for _, candidate := range candidates {
		if !parsed.matches(&candidate.Chunk) {
			continue
		}
		candidate.Chunk.Embedding = nil
		results = append(results, candidate)
		if len(results) == limit {
			break
		}
	}

	s.logger.Debug().
		Str("query", parsed.Text).
		Int("candidates", len(candidates)).
		Int("results", len(results)).
		Msg("Search complete")

	return results, nil
}

func (q Query) filtered() bool {
	return len(q.Required) > 0 || q.Source != "" || q.Scope != "" || q.Title != ""
}

func (q Query) matches(chunk *models.StoredChunk) bool {
	if q.Source != "" && !strings.EqualFold(chunk.Source, q.Source) {
		return false
	}
	if q.Scope != "" && chunk.Scope != q.Scope {
		return false
	}
	if q.Title != "" && !strings.Contains(strings.ToLower(chunk.Title), strings.ToLower(q.Title)) {
		return false
	}

	content := strings.ToLower(chunk.Content)
	for _, phrase := range q.Required {
		if !strings.Contains(content, strings.ToLower(phrase)) {
			return false
		}
	}
	return true
}
