package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// LeaseStorage implements the LeaseStorage interface for Badger
type LeaseStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
	now    func() time.Time
}

// NewLeaseStorage creates a new LeaseStorage instance
func NewLeaseStorage(db *BadgerDB, logger arbor.ILogger) *LeaseStorage {
	return &LeaseStorage{
		db:     db,
		logger: logger,
		now:    time.Now,
	}
}

// Acquire takes the scope lease when it is free, expired or already ours.
// Badger's optimistic transactions make two concurrent acquirers conflict; the loser gets false.
func (s *LeaseStorage) Acquire(ctx context.Context, scope, owner string, ttl time.Duration) (bool, error) {
	store := s.db.Store()
	now := s.now()
	acquired := false

	err := store.Badger().Update(func(tx *badger.Txn) error {
		var lease models.ScopeLease
		err := store.TxGet(tx, scope, &lease)
		switch {
		case errors.Is(err, badgerhold.ErrNotFound):
		case err != nil:
			return err
		case lease.Owner != owner && !lease.Expired(now):
			return nil
		}

		acquired = true
		return store.TxUpsert(tx, scope, &models.ScopeLease{
			Scope:     scope,
			Owner:     owner,
			ExpiresAt: now.Add(ttl),
		})
	})
	if errors.Is(err, badger.ErrConflict) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to acquire lease for %s: %w", scope, err)
	}
	return acquired, nil
}

// Release drops the lease if owner still holds it
func (s *LeaseStorage) Release(ctx context.Context, scope, owner string) error {
	store := s.db.Store()

	err := store.Badger().Update(func(tx *badger.Txn) error {
		var lease models.ScopeLease
		if err := store.TxGet(tx, scope, &lease); err != nil {
			if errors.Is(err, badgerhold.ErrNotFound) {
				return nil
			}
			return err
		}
		if lease.Owner != owner {
			return nil
		}
		return store.TxDelete(tx, scope, &models.ScopeLease{})
	})
	if err != nil {
		return fmt.Errorf("failed to release lease for %s: %w", scope, err)
	}
	return nil
}
