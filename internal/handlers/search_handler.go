package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/models"
	"github.com/ternarybob/scribe/internal/services/search"
)

// KnowledgeSearcher ranks stored chunks against a query
type KnowledgeSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]models.ChunkSearchResult, error)
}

// SearchResult is one ranked chunk as returned by the API
type SearchResult struct {
	Score        float64 `json:"score"`
	Title        string  `json:"title"`
	URL          string  `json:"url"`
	PageID       string  `json:"page_id"`
	Source       string  `json:"source"`
	Scope        string  `json:"scope"`
	LastModified string  `json:"last_modified"`
	Position     int     `json:"position"`
	Content      string  `json:"content"`
}

// SearchHandler handles search-related HTTP requests
type SearchHandler struct {
	searcher KnowledgeSearcher
	logger   arbor.ILogger
}

// NewSearchHandler creates a new search handler with dependencies
func NewSearchHandler(searcher KnowledgeSearcher, logger arbor.ILogger) *SearchHandler {
	return &SearchHandler{
		searcher: searcher,
		logger:   logger,
	}
}

// SearchHandler handles GET /api/search?q=query&limit=n requests
func (h *SearchHandler) SearchHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	limit := QueryInt(r, "limit", search.DefaultLimit)

	results, err := h.searcher.Search(r.Context(), query, limit)
	if errors.Is(err, search.ErrEmptyQuery) {
		WriteError(w, http.StatusBadRequest, "query parameter q is required")
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Str("query", query).Msg("Search failed")
		WriteError(w, http.StatusInternalServerError, "Search failed")
		return
	}

	response := make([]SearchResult, 0, len(results))
	for _, result := range results {
		chunk := result.Chunk
		response = append(response, SearchResult{
			Score:        result.Score,
			Title:        chunk.Title,
			URL:          chunk.URL,
			PageID:       chunk.PageID,
			Source:       chunk.Source,
			Scope:        chunk.Scope,
			LastModified: chunk.LastModified,
			Position:     chunk.Position,
			Content:      chunk.Content,
		})
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"query":   query,
		"count":   len(response),
		"results": response,
	})
}
