package badger

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/common"
	"github.com/ternarybob/scribe/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// ChunkStorage implements the ChunkStorage interface for Badger
type ChunkStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewChunkStorage creates a new ChunkStorage instance
func NewChunkStorage(db *BadgerDB, logger arbor.ILogger) *ChunkStorage {
	return &ChunkStorage{
		db:     db,
		logger: logger,
	}
}

func byURL(url string) *badgerhold.Query {
	return badgerhold.Where("URL").Eq(url).Index("URL")
}

// GetByURL returns the document's chunks in split order
func (s *ChunkStorage) GetByURL(ctx context.Context, url string, limit int) ([]*models.StoredChunk, error) {
	query := byURL(url).SortBy("Position")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var chunks []models.StoredChunk
	if err := s.db.Store().Find(&chunks, query); err != nil {
		return nil, fmt.Errorf("failed to find chunks for %s: %w", url, err)
	}
	return toChunkPointers(chunks), nil
}

// ReplaceByURL removes every chunk of url and inserts the new set in a single
// transaction. Readers see either the old set or the new set, never neither.
func (s *ChunkStorage) ReplaceByURL(ctx context.Context, url string, chunks []*models.StoredChunk) error {
	store := s.db.Store()
	now := time.Now()

	err := store.Badger().Update(func(tx *badger.Txn) error {
		if err := store.TxDeleteMatching(tx, &models.StoredChunk{}, byURL(url)); err != nil {
			return fmt.Errorf("delete existing chunks: %w", err)
		}
		for i, chunk := range chunks {
			if chunk.URL != url {
				return fmt.Errorf("chunk %d belongs to %q, not %q", i, chunk.URL, url)
			}
			if chunk.ID == "" {
				chunk.ID = common.NewChunkID()
			}
			if chunk.CreatedAt.IsZero() {
				chunk.CreatedAt = now
			}
			if err := store.TxInsert(tx, chunk.ID, chunk); err != nil {
				return fmt.Errorf("insert chunk %d: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to replace chunks for %s: %w", url, err)
	}

	s.logger.Debug().Str("url", url).Int("chunks", len(chunks)).Msg("Chunks replaced")
	return nil
}

// DeleteByURL removes every chunk of url and returns how many were removed
func (s *ChunkStorage) DeleteByURL(ctx context.Context, url string) (int, error) {
	store := s.db.Store()
	var removed int

	err := store.Badger().Update(func(tx *badger.Txn) error {
		var existing []models.StoredChunk
		if err := store.TxFind(tx, &existing, byURL(url)); err != nil {
			return err
		}
		removed = len(existing)
		if removed == 0 {
			return nil
		}
		return store.TxDeleteMatching(tx, &models.StoredChunk{}, byURL(url))
	})
	if err != nil {
		return 0, fmt.Errorf("failed to delete chunks for %s: %w", url, err)
	}
	return removed, nil
}

// ListByScope returns every chunk ingested for scope
func (s *ChunkStorage) ListByScope(ctx context.Context, scope string) ([]*models.StoredChunk, error) {
	var chunks []models.StoredChunk
	if err := s.db.Store().Find(&chunks, badgerhold.Where("Scope").Eq(scope).Index("Scope").SortBy("URL", "Position")); err != nil {
		return nil, fmt.Errorf("failed to list chunks for scope %s: %w", scope, err)
	}
	return toChunkPointers(chunks), nil
}

// Search ranks every embedded chunk by cosine similarity. Linear scan over the store.
func (s *ChunkStorage) Search(ctx context.Context, embedding []float32, limit int) ([]models.ChunkSearchResult, error) {
	if len(embedding) == 0 {
		return nil, fmt.Errorf("query embedding is empty")
	}

	var chunks []models.StoredChunk
	if err := s.db.Store().Find(&chunks, nil); err != nil {
		return nil, fmt.Errorf("failed to load chunks: %w", err)
	}

	results := make([]models.ChunkSearchResult, 0, len(chunks))
	for _, chunk := range chunks {
		if len(chunk.Embedding) != len(embedding) {
			continue
		}
		results = append(results, models.ChunkSearchResult{
			Chunk: chunk,
			Score: common.CosineSimilarity(embedding, chunk.Embedding),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Count returns the total number of stored chunks
func (s *ChunkStorage) Count(ctx context.Context) (int, error) {
	count, err := s.db.Store().Count(&models.StoredChunk{}, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return int(count), nil
}

func toChunkPointers(chunks []models.StoredChunk) []*models.StoredChunk {
	result := make([]*models.StoredChunk, len(chunks))
	for i := range chunks {
		result[i] = &chunks[i]
	}
	return result
}
