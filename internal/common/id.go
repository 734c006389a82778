package common

import (
	"github.com/google/uuid"
)

// NewChunkID generates a unique chunk ID. Format: chunk_<uuid>
func NewChunkID() string {
	return "chunk_" + uuid.New().String()
}

// NewNotificationID generates a unique follow-up notification ID. Format: fup_<uuid>
func NewNotificationID() string {
	return "fup_" + uuid.New().String()
}

// NewLeaseOwner identifies one ingest run holding a scope lease
func NewLeaseOwner() string {
	return uuid.New().String()
}
