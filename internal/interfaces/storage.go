package interfaces

import (
	"context"
	"errors"
	"time"

	"github.com/ternarybob/scribe/internal/models"
)

// ErrNotFound is returned when a keyed record does not exist
var ErrNotFound = errors.New("record not found")

// ChunkStorage - vector store for document chunks, keyed by document url
type ChunkStorage interface {
	// GetByURL returns at most limit chunks of the document (limit <= 0 means all)
	GetByURL(ctx context.Context, url string, limit int) ([]*models.StoredChunk, error)

	// ReplaceByURL deletes every chunk of url and inserts chunks in one transaction
	ReplaceByURL(ctx context.Context, url string, chunks []*models.StoredChunk) error

	DeleteByURL(ctx context.Context, url string) (int, error)
	ListByScope(ctx context.Context, scope string) ([]*models.StoredChunk, error)

	// Search ranks chunks by cosine similarity to embedding
	Search(ctx context.Context, embedding []float32, limit int) ([]models.ChunkSearchResult, error)

	Count(ctx context.Context) (int, error)
}

// SummaryStorage - page summaries keyed by page id
type SummaryStorage interface {
	SaveSummary(ctx context.Context, summary *models.PageSummary) error
	GetSummary(ctx context.Context, pageID string) (*models.PageSummary, error)
}

// TrackingStorage - per-ticket change tracking
type TrackingStorage interface {
	GetTracking(ctx context.Context, issueKey string) (*models.IngestTrackingRecord, error)

	// UpsertTracking inserts or partially updates the record; LastIngestAt is always refreshed
	UpsertTracking(ctx context.Context, issueKey, project string, update models.TrackingUpdate) (*models.IngestTrackingRecord, error)

	ListTracking(ctx context.Context, status models.IngestStatus) ([]*models.IngestTrackingRecord, error)
}

// NotificationStorage - follow-up reminders
type NotificationStorage interface {
	// ResetFollowupStatus moves every follow_up_required row of the issue to status
	ResetFollowupStatus(ctx context.Context, issueKey string, status models.FollowupStatus) (int, error)

	// AddFollowup upserts on (issueKey, recipient, commentID) and marks the row follow_up_required
	AddFollowup(ctx context.Context, issueKey, recipient, commentID string, summary models.IssueSummary) (*models.FollowupNotification, error)

	CancelFollowups(ctx context.Context, issueKey, reason string) (int, error)
	ListFollowups(ctx context.Context, issueKey string) ([]*models.FollowupNotification, error)
	ListByStatus(ctx context.Context, status models.FollowupStatus, limit int) ([]*models.FollowupNotification, error)
	MarkSent(ctx context.Context, id string, sentAt time.Time) error
}

// ProgressStorage - daily component snapshots and their summaries
type ProgressStorage interface {
	DeleteLatestRow(ctx context.Context, component string) error

	// StoreGroupHistory inserts rows that do not exist yet and returns how many were added
	StoreGroupHistory(ctx context.Context, component string, byDate map[string][]models.TicketState) (int, error)

	// GetAllGroupHistory returns every row of the component ordered by date ascending
	GetAllGroupHistory(ctx context.Context, component string) ([]*models.ProgressSnapshot, error)

	// GetPreviousSummary returns the latest row carrying a real summary, or ErrNotFound
	GetPreviousSummary(ctx context.Context, component string) (*models.ProgressSnapshot, error)

	AddGroupSummary(ctx context.Context, component, date, summary string) error

	// GetSummaries returns summarized rows, newest first
	GetSummaries(ctx context.Context, component string, limit int) ([]*models.ProgressSnapshot, error)
}

// LeaseStorage - exclusive per-scope ingest leases
type LeaseStorage interface {
	// Acquire takes the lease when it is free, expired or already held by owner
	Acquire(ctx context.Context, scope, owner string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, scope, owner string) error
}

// StorageManager - composite interface for all storage operations
type StorageManager interface {
	ChunkStorage() ChunkStorage
	SummaryStorage() SummaryStorage
	TrackingStorage() TrackingStorage
	NotificationStorage() NotificationStorage
	ProgressStorage() ProgressStorage
	LeaseStorage() LeaseStorage
	DB() interface{}
	Close() error
}
