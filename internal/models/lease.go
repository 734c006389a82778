package models

import "time"

// ScopeLease marks an ingest run in progress for a scope
type ScopeLease struct {
	Scope     string    `json:"scope" badgerhold:"key"`
	Owner     string    `json:"owner"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the lease can be taken over at now
func (l *ScopeLease) Expired(now time.Time) bool {
	return !now.Before(l.ExpiresAt)
}
