package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/common"
	"github.com/ternarybob/scribe/internal/interfaces"
	"github.com/ternarybob/scribe/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// NotificationStorage implements the NotificationStorage interface for Badger
type NotificationStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewNotificationStorage creates a new NotificationStorage instance
func NewNotificationStorage(db *BadgerDB, logger arbor.ILogger) *NotificationStorage {
	return &NotificationStorage{
		db:     db,
		logger: logger,
	}
}

func byIssue(issueKey string) *badgerhold.Query {
	return badgerhold.Where("IssueKey").Eq(issueKey).Index("IssueKey")
}

// ResetFollowupStatus moves the issue's open reminders to status
func (s *NotificationStorage) ResetFollowupStatus(ctx context.Context, issueKey string, status models.FollowupStatus) (int, error) {
	return s.transition(issueKey, models.FollowupStatusRequired, func(n *models.FollowupNotification) {
		n.Status = status
	})
}

// CancelFollowups cancels the issue's open reminders, recording reason
func (s *NotificationStorage) CancelFollowups(ctx context.Context, issueKey, reason string) (int, error) {
	return s.transition(issueKey, models.FollowupStatusRequired, func(n *models.FollowupNotification) {
		n.Status = models.FollowupStatusCancelled
		n.Reason = reason
	})
}

func (s *NotificationStorage) transition(issueKey string, from models.FollowupStatus, apply func(n *models.FollowupNotification)) (int, error) {
	now := time.Now()
	changed := 0

	err := s.db.Store().UpdateMatching(&models.FollowupNotification{}, byIssue(issueKey).And("Status").Eq(from), func(record interface{}) error {
		n, ok := record.(*models.FollowupNotification)
		if !ok {
			return fmt.Errorf("unexpected record type %T", record)
		}
		apply(n)
		n.UpdatedAt = now
		changed++
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to update follow-ups for %s: %w", issueKey, err)
	}
	return changed, nil
}

// AddFollowup upserts on (issueKey, recipient, commentID) in one transaction
func (s *NotificationStorage) AddFollowup(ctx context.Context, issueKey, recipient, commentID string, summary models.IssueSummary) (*models.FollowupNotification, error) {
	store := s.db.Store()
	now := time.Now()
	var notification models.FollowupNotification

	err := store.Badger().Update(func(tx *badger.Txn) error {
		var existing []models.FollowupNotification
		query := byIssue(issueKey).And("Recipient").Eq(recipient).And("CommentID").Eq(commentID)
		if err := store.TxFind(tx, &existing, query); err != nil {
			return err
		}

		if len(existing) > 0 {
			notification = existing[0]
		} else {
			notification = models.FollowupNotification{
				ID:        common.NewNotificationID(),
				IssueKey:  issueKey,
				Recipient: recipient,
				CommentID: commentID,
				Summary:   summary,
				CreatedAt: now,
			}
		}
		notification.Status = models.FollowupStatusRequired
		notification.UpdatedAt = now

		return store.TxUpsert(tx, notification.ID, &notification)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add follow-up for %s/%s: %w", issueKey, recipient, err)
	}
	return &notification, nil
}

// ListFollowups returns every reminder of the issue, oldest first
func (s *NotificationStorage) ListFollowups(ctx context.Context, issueKey string) ([]*models.FollowupNotification, error) {
	var notifications []models.FollowupNotification
	if err := s.db.Store().Find(&notifications, byIssue(issueKey).SortBy("CreatedAt")); err != nil {
		return nil, fmt.Errorf("failed to list follow-ups for %s: %w", issueKey, err)
	}
	return toNotificationPointers(notifications), nil
}

// ListByStatus returns reminders in status, oldest first
func (s *NotificationStorage) ListByStatus(ctx context.Context, status models.FollowupStatus, limit int) ([]*models.FollowupNotification, error) {
	query := badgerhold.Where("Status").Eq(status).Index("Status").SortBy("CreatedAt")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var notifications []models.FollowupNotification
	if err := s.db.Store().Find(&notifications, query); err != nil {
		return nil, fmt.Errorf("failed to list follow-ups with status %s: %w", status, err)
	}
	return toNotificationPointers(notifications), nil
}

// MarkSent records delivery of a reminder
func (s *NotificationStorage) MarkSent(ctx context.Context, id string, sentAt time.Time) error {
	var notification models.FollowupNotification
	if err := s.db.Store().Get(id, &notification); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return interfaces.ErrNotFound
		}
		return fmt.Errorf("failed to get follow-up %s: %w", id, err)
	}

	notification.Status = models.FollowupStatusFollowUpSent
	notification.SentAt = &sentAt
	notification.UpdatedAt = sentAt

	if err := s.db.Store().Update(id, &notification); err != nil {
		return fmt.Errorf("failed to mark follow-up %s sent: %w", id, err)
	}
	return nil
}

func toNotificationPointers(notifications []models.FollowupNotification) []*models.FollowupNotification {
	result := make([]*models.FollowupNotification, len(notifications))
	for i := range notifications {
		result[i] = &notifications[i]
	}
	return result
}
