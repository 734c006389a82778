package badger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/models"
)

func chunksFor(url, lastModified string, contents ...string) []*models.StoredChunk {
	chunks := make([]*models.StoredChunk, len(contents))
	for i, content := range contents {
		chunks[i] = &models.StoredChunk{
			URL:          url,
			PageID:       "42",
			Title:        "Runbook",
			LastModified: lastModified,
			Scope:        "ENG",
			Source:       models.SourceConfluence,
			Position:     i,
			Content:      content,
			Embedding:    []float32{float32(i + 1), 1},
		}
	}
	return chunks
}

func TestChunkStorage_ReplaceByURL(t *testing.T) {
	ctx := context.Background()
	storage := NewChunkStorage(newTestDB(t), arbor.NewLogger())
	url := "https://wiki.example.com/pages/viewpage.action?pageId=42"

	require.NoError(t, storage.ReplaceByURL(ctx, url, chunksFor(url, "2024-01-01T00:00:00Z", "a", "b", "c")))
	require.NoError(t, storage.ReplaceByURL(ctx, "https://other", chunksFor("https://other", "2024-01-01T00:00:00Z", "x")))

	chunks, err := storage.GetByURL(ctx, url, 0)
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	assert.Equal(t, "a", chunks[0].Content)
	assert.NotEmpty(t, chunks[0].ID)
	assert.False(t, chunks[0].CreatedAt.IsZero())

	// Second replace leaves only the new set
	require.NoError(t, storage.ReplaceByURL(ctx, url, chunksFor(url, "2024-02-01T00:00:00Z", "d", "e")))
	chunks, err = storage.GetByURL(ctx, url, 0)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "d", chunks[0].Content)
	assert.Equal(t, "2024-02-01T00:00:00Z", chunks[0].LastModified)

	first, err := storage.GetByURL(ctx, url, 1)
	require.NoError(t, err)
	assert.Len(t, first, 1)

	count, err := storage.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestChunkStorage_ReplaceByURL_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	storage := NewChunkStorage(newTestDB(t), arbor.NewLogger())
	url := "https://wiki/a"

	require.NoError(t, storage.ReplaceByURL(ctx, url, chunksFor(url, "t1", "old")))

	bad := chunksFor(url, "t2", "new")
	bad = append(bad, &models.StoredChunk{URL: "https://wiki/b", Content: "stray"})
	assert.Error(t, storage.ReplaceByURL(ctx, url, bad))

	chunks, err := storage.GetByURL(ctx, url, 0)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "old", chunks[0].Content)
}

func TestChunkStorage_DeleteAndScope(t *testing.T) {
	ctx := context.Background()
	storage := NewChunkStorage(newTestDB(t), arbor.NewLogger())

	require.NoError(t, storage.ReplaceByURL(ctx, "u1", chunksFor("u1", "t", "a", "b")))
	require.NoError(t, storage.ReplaceByURL(ctx, "u2", chunksFor("u2", "t", "c")))

	scoped, err := storage.ListByScope(ctx, "ENG")
	require.NoError(t, err)
	assert.Len(t, scoped, 3)

	removed, err := storage.DeleteByURL(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	removed, err = storage.DeleteByURL(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, removed)

	count, err := storage.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestChunkStorage_Search(t *testing.T) {
	ctx := context.Background()
	storage := NewChunkStorage(newTestDB(t), arbor.NewLogger())

	chunks := []*models.StoredChunk{
		{URL: "u", Position: 0, Content: "north", Embedding: []float32{0, 1}},
		{URL: "u", Position: 1, Content: "east", Embedding: []float32{1, 0}},
		{URL: "u", Position: 2, Content: "north-east", Embedding: []float32{1, 1}},
		{URL: "u", Position: 3, Content: "unembedded"},
	}
	require.NoError(t, storage.ReplaceByURL(ctx, "u", chunks))

	results, err := storage.Search(ctx, []float32{0, 2}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "north", results[0].Chunk.Content)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
	assert.Equal(t, "north-east", results[1].Chunk.Content)

	_, err = storage.Search(ctx, nil, 2)
	assert.Error(t, err)
}
