package badger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/interfaces"
	"github.com/ternarybob/scribe/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// noCurrentUpdates marks filler summaries that must not seed the next day's context
const noCurrentUpdates = "no current updates"

// ProgressStorage implements the ProgressStorage interface for Badger
type ProgressStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewProgressStorage creates a new ProgressStorage instance
func NewProgressStorage(db *BadgerDB, logger arbor.ILogger) *ProgressStorage {
	return &ProgressStorage{
		db:     db,
		logger: logger,
	}
}

func byComponent(component string) *badgerhold.Query {
	return badgerhold.Where("Component").Eq(component).Index("Component")
}

// DeleteLatestRow removes the newest snapshot so today's partial data is rebuilt
func (s *ProgressStorage) DeleteLatestRow(ctx context.Context, component string) error {
	var rows []models.ProgressSnapshot
	if err := s.db.Store().Find(&rows, byComponent(component).SortBy("SnapshotDate").Reverse().Limit(1)); err != nil {
		return fmt.Errorf("failed to find latest snapshot for %s: %w", component, err)
	}
	if len(rows) == 0 {
		return nil
	}

	if err := s.db.Store().Delete(rows[0].ID, &models.ProgressSnapshot{}); err != nil && !errors.Is(err, badgerhold.ErrNotFound) {
		return fmt.Errorf("failed to delete snapshot %s: %w", rows[0].ID, err)
	}
	s.logger.Debug().Str("component", component).Str("date", rows[0].SnapshotDate).Msg("Latest snapshot deleted")
	return nil
}

// StoreGroupHistory inserts one row per date unless the (component, date) row exists
func (s *ProgressStorage) StoreGroupHistory(ctx context.Context, component string, byDate map[string][]models.TicketState) (int, error) {
	store := s.db.Store()
	now := time.Now()
	added := 0

	dates := make([]string, 0, len(byDate))
	for date := range byDate {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	err := store.Badger().Update(func(tx *badger.Txn) error {
		for _, date := range dates {
			id := models.ProgressSnapshotID(component, date)

			var existing models.ProgressSnapshot
			err := store.TxGet(tx, id, &existing)
			if err == nil {
				continue
			}
			if !errors.Is(err, badgerhold.ErrNotFound) {
				return err
			}

			tickets := byDate[date]
			if tickets == nil {
				tickets = []models.TicketState{}
			}
			row := &models.ProgressSnapshot{
				ID:           id,
				Component:    component,
				SnapshotDate: date,
				Tickets:      tickets,
				CreatedAt:    now,
				UpdatedAt:    now,
			}
			if err := store.TxInsert(tx, id, row); err != nil {
				return err
			}
			added++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to store group history for %s: %w", component, err)
	}
	return added, nil
}

// GetAllGroupHistory returns every row of the component by date ascending
func (s *ProgressStorage) GetAllGroupHistory(ctx context.Context, component string) ([]*models.ProgressSnapshot, error) {
	var rows []models.ProgressSnapshot
	if err := s.db.Store().Find(&rows, byComponent(component).SortBy("SnapshotDate")); err != nil {
		return nil, fmt.Errorf("failed to load group history for %s: %w", component, err)
	}
	return toSnapshotPointers(rows), nil
}

// GetPreviousSummary returns the newest row whose summary is real content
func (s *ProgressStorage) GetPreviousSummary(ctx context.Context, component string) (*models.ProgressSnapshot, error) {
	var rows []models.ProgressSnapshot
	query := byComponent(component).And("HasSummary").Eq(true).SortBy("SnapshotDate").Reverse()
	if err := s.db.Store().Find(&rows, query); err != nil {
		return nil, fmt.Errorf("failed to load summaries for %s: %w", component, err)
	}

	for i := range rows {
		if !strings.Contains(strings.ToLower(rows[i].Summary), noCurrentUpdates) {
			return &rows[i], nil
		}
	}
	return nil, interfaces.ErrNotFound
}

// AddGroupSummary writes the summary of an existing row
func (s *ProgressStorage) AddGroupSummary(ctx context.Context, component, date, summary string) error {
	id := models.ProgressSnapshotID(component, date)

	var row models.ProgressSnapshot
	if err := s.db.Store().Get(id, &row); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return fmt.Errorf("snapshot %s: %w", id, interfaces.ErrNotFound)
		}
		return fmt.Errorf("failed to get snapshot %s: %w", id, err)
	}

	row.Summary = summary
	row.HasSummary = true
	row.UpdatedAt = time.Now()

	if err := s.db.Store().Update(id, &row); err != nil {
		return fmt.Errorf("failed to store summary for %s: %w", id, err)
	}
	return nil
}

// GetSummaries returns summarized rows newest first
func (s *ProgressStorage) GetSummaries(ctx context.Context, component string, limit int) ([]*models.ProgressSnapshot, error) {
	query := byComponent(component).And("HasSummary").Eq(true).SortBy("SnapshotDate").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}

	var rows []models.ProgressSnapshot
	if err := s.db.Store().Find(&rows, query); err != nil {
		return nil, fmt.Errorf("failed to load summaries for %s: %w", component, err)
	}
	return toSnapshotPointers(rows), nil
}

func toSnapshotPointers(rows []models.ProgressSnapshot) []*models.ProgressSnapshot {
	result := make([]*models.ProgressSnapshot, len(rows))
	for i := range rows {
		result[i] = &rows[i]
	}
	return result
}
