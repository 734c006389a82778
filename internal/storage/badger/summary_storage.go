package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/interfaces"
	"github.com/ternarybob/scribe/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// SummaryStorage implements the SummaryStorage interface for Badger
type SummaryStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewSummaryStorage creates a new SummaryStorage instance
func NewSummaryStorage(db *BadgerDB, logger arbor.ILogger) *SummaryStorage {
	return &SummaryStorage{
		db:     db,
		logger: logger,
	}
}

func (s *SummaryStorage) SaveSummary(ctx context.Context, summary *models.PageSummary) error {
	if summary.PageID == "" {
		return fmt.Errorf("page ID is required")
	}
	summary.UpdatedAt = time.Now()

	if err := s.db.Store().Upsert(summary.PageID, summary); err != nil {
		return fmt.Errorf("failed to save summary for page %s: %w", summary.PageID, err)
	}
	return nil
}

func (s *SummaryStorage) GetSummary(ctx context.Context, pageID string) (*models.PageSummary, error) {
	var summary models.PageSummary
	if err := s.db.Store().Get(pageID, &summary); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get summary for page %s: %w", pageID, err)
	}
	return &summary, nil
}
