package ingest

import (
	"time"

	"github.com/ternarybob/scribe/internal/models"
)

// Decision is the outcome of comparing a remote document with its stored chunks
type Decision string

const (
	DecisionInsert  Decision = "insert"  // nothing stored for the url
	DecisionReplace Decision = "replace" // remote copy is newer
	DecisionSkip    Decision = "skip"    // stored copy is as new or newer
)

// Decide compares the stored modification marker with the remote one.
// Markers are compared as instants when both parse as RFC 3339, otherwise as
// strings. Only the marker is compared, so an edit that leaves it unchanged is not seen.
func Decide(existing *models.ChunkMetadata, candidateLastModified string) Decision {
	if existing == nil {
		return DecisionInsert
	}
	if !isNewer(candidateLastModified, existing.LastModified) {
		return DecisionSkip
	}
	return DecisionReplace
}

// isNewer reports whether candidate is strictly later than stored
func isNewer(candidate, stored string) bool {
	c, cErr := time.Parse(time.RFC3339Nano, candidate)
	s, sErr := time.Parse(time.RFC3339Nano, stored)
	if cErr == nil && sErr == nil {
		return c.After(s)
	}
	return candidate > stored
}
