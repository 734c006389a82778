package jira

import (
	"context"
	"errors"

	"github.com/ternarybob/scribe/internal/interfaces"
	"github.com/ternarybob/scribe/internal/models"
)

// Tracker records what the chaser last did with each ticket of a project
type Tracker struct {
	storage interfaces.TrackingStorage
	project string
}

// NewTracker creates a tracker writing rows for project
func NewTracker(storage interfaces.TrackingStorage, project string) *Tracker {
	return &Tracker{
		storage: storage,
		project: project,
	}
}

// GetTracking returns the ticket's record, or nil when it has never been seen
func (t *Tracker) GetTracking(ctx context.Context, issueKey string) (*models.IngestTrackingRecord, error) {
	record, err := t.storage.GetTracking(ctx, issueKey)
	if errors.Is(err, interfaces.ErrNotFound) {
		return nil, nil
	}
	return record, err
}

// UpsertTracking creates or partially updates the ticket's record
func (t *Tracker) UpsertTracking(ctx context.Context, issueKey string, update models.TrackingUpdate) (*models.IngestTrackingRecord, error) {
	return t.storage.UpsertTracking(ctx, issueKey, t.project, update)
}
