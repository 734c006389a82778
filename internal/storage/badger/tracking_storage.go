package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/interfaces"
	"github.com/ternarybob/scribe/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// TrackingStorage implements the TrackingStorage interface for Badger
type TrackingStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
	now    func() time.Time
}

// NewTrackingStorage creates a new TrackingStorage instance
func NewTrackingStorage(db *BadgerDB, logger arbor.ILogger) *TrackingStorage {
	return &TrackingStorage{
		db:     db,
		logger: logger,
		now:    time.Now,
	}
}

func (s *TrackingStorage) GetTracking(ctx context.Context, issueKey string) (*models.IngestTrackingRecord, error) {
	var record models.IngestTrackingRecord
	if err := s.db.Store().Get(issueKey, &record); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get tracking for %s: %w", issueKey, err)
	}
	return &record, nil
}

// UpsertTracking reads, merges and writes the record inside one transaction
func (s *TrackingStorage) UpsertTracking(ctx context.Context, issueKey, project string, update models.TrackingUpdate) (*models.IngestTrackingRecord, error) {
	if issueKey == "" {
		return nil, fmt.Errorf("issue key is required")
	}

	store := s.db.Store()
	var record models.IngestTrackingRecord

	err := store.Badger().Update(func(tx *badger.Txn) error {
		err := store.TxGet(tx, issueKey, &record)
		switch {
		case errors.Is(err, badgerhold.ErrNotFound):
			record = models.IngestTrackingRecord{IssueKey: issueKey}
		case err != nil:
			return err
		}

		if project != "" {
			record.Project = project
		}
		update.Apply(&record)
		record.LastIngestAt = s.now()

		return store.TxUpsert(tx, issueKey, &record)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upsert tracking for %s: %w", issueKey, err)
	}

	return &record, nil
}

// ListTracking returns records with the given status, or every record when status is empty
func (s *TrackingStorage) ListTracking(ctx context.Context, status models.IngestStatus) ([]*models.IngestTrackingRecord, error) {
	var query *badgerhold.Query
	if status != "" {
		query = badgerhold.Where("IngestStatus").Eq(status).Index("IngestStatus")
	}

	var records []models.IngestTrackingRecord
	if err := s.db.Store().Find(&records, query); err != nil {
		return nil, fmt.Errorf("failed to list tracking records: %w", err)
	}

	result := make([]*models.IngestTrackingRecord, len(records))
	for i := range records {
		result[i] = &records[i]
	}
	return result, nil
}
