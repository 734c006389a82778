package badger

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/common"
	"github.com/ternarybob/scribe/internal/interfaces"
)

// Manager implements the StorageManager interface for Badger
type Manager struct {
	db           *BadgerDB
	chunk        interfaces.ChunkStorage
	summary      interfaces.SummaryStorage
	tracking     interfaces.TrackingStorage
	notification interfaces.NotificationStorage
	progress     interfaces.ProgressStorage
	lease        interfaces.LeaseStorage
	logger       arbor.ILogger
}

// NewManager creates a new Badger storage manager
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (*Manager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	manager := newManager(db, logger)
	logger.Info().Str("path", config.Path).Msg("Badger storage manager initialized")

	return manager, nil
}

func newManager(db *BadgerDB, logger arbor.ILogger) *Manager {
	return &Manager{
		db:           db,
		chunk:        NewChunkStorage(db, logger),
		summary:      NewSummaryStorage(db, logger),
		tracking:     NewTrackingStorage(db, logger),
		notification: NewNotificationStorage(db, logger),
		progress:     NewProgressStorage(db, logger),
		lease:        NewLeaseStorage(db, logger),
		logger:       logger,
	}
}

// ChunkStorage returns the chunk storage interface
func (m *Manager) ChunkStorage() interfaces.ChunkStorage {
	return m.chunk
}

// SummaryStorage returns the page summary storage interface
func (m *Manager) SummaryStorage() interfaces.SummaryStorage {
	return m.summary
}

// TrackingStorage returns the ticket tracking storage interface
func (m *Manager) TrackingStorage() interfaces.TrackingStorage {
	return m.tracking
}

// NotificationStorage returns the follow-up storage interface
func (m *Manager) NotificationStorage() interfaces.NotificationStorage {
	return m.notification
}

// ProgressStorage returns the progress snapshot storage interface
func (m *Manager) ProgressStorage() interfaces.ProgressStorage {
	return m.progress
}

// LeaseStorage returns the scope lease storage interface
func (m *Manager) LeaseStorage() interfaces.LeaseStorage {
	return m.lease
}

// DB returns the underlying database connection
func (m *Manager) DB() interface{} {
	if m.db != nil {
		return m.db.Store()
	}
	return nil
}

// Close closes the database connection
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
