package models

import "time"

// Source names stored on chunks
const (
	SourceConfluence = "confluence"
	SourceSharePoint = "sharepoint"
)

// ChunkMetadata is shared by every chunk derived from one remote document
type ChunkMetadata struct {
	PageID       string `json:"page_id"`
	Title        string `json:"title"`
	URL          string `json:"url"`
	LastModified string `json:"last_modified"`
}

// Map returns the metadata as a flat string mapping
func (m ChunkMetadata) Map() map[string]string {
	return map[string]string{
		"page_id":       m.PageID,
		"title":         m.Title,
		"url":           m.URL,
		"last_modified": m.LastModified,
	}
}

// StoredChunk is a piece of a document held in the vector store.
// URL is the document identity; all chunks of a document share it.
type StoredChunk struct {
	ID           string    `json:"id" badgerhold:"key"`
	URL          string    `json:"url" badgerhold:"index"`
	PageID       string    `json:"page_id"`
	Title        string    `json:"title"`
	LastModified string    `json:"last_modified"`
	Scope        string    `json:"scope" badgerhold:"index"`
	Source       string    `json:"source"`
	Position     int       `json:"position"`
	Content      string    `json:"content"`
	Embedding    []float32 `json:"embedding,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Metadata returns the document metadata carried by the chunk
func (c *StoredChunk) Metadata() ChunkMetadata {
	return ChunkMetadata{
		PageID:       c.PageID,
		Title:        c.Title,
		URL:          c.URL,
		LastModified: c.LastModified,
	}
}

// PageSummary is an optional LLM summary of a whole document, keyed by page id
type PageSummary struct {
	PageID       string    `json:"page_id" badgerhold:"key"`
	URL          string    `json:"url"`
	Title        string    `json:"title"`
	Summary      string    `json:"summary"`
	LastModified string    `json:"last_modified"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ChunkSearchResult is a chunk ranked by similarity to a query
type ChunkSearchResult struct {
	Chunk StoredChunk `json:"chunk"`
	Score float64     `json:"score"`
}
