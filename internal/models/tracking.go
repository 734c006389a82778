package models

import "time"

// IngestStatus records what the chaser last did with a ticket
type IngestStatus string

const (
	IngestStatusPending                          IngestStatus = "pending"
	IngestStatusCompleted                        IngestStatus = "completed"
	IngestStatusNoUpdate                         IngestStatus = "no_update"
	IngestStatusSkipNoComments                   IngestStatus = "skip_as_no_comments"
	IngestStatusCommentChanged                   IngestStatus = "comment_changed"
	IngestStatusTicketUpdatedButCommentUnchanged IngestStatus = "ticket_updated_but_comment_unchanged"
)

// IngestTrackingRecord is the per-ticket change tracking row, keyed by issue key
type IngestTrackingRecord struct {
	IssueKey        string       `json:"issue_key" badgerhold:"key"`
	Project         string       `json:"project"`
	CommentMD5      string       `json:"comment_md5"`
	TicketCreatedAt time.Time    `json:"ticket_created_at"`
	TicketUpdatedAt time.Time    `json:"ticket_updated_at"`
	LLMPrompt       string       `json:"llm_prompt"`
	IngestStatus    IngestStatus `json:"ingest_status" badgerhold:"index"`
	LastIngestAt    time.Time    `json:"last_ingest_at"`
}

// TrackingUpdate is a partial update; nil fields keep the stored value
type TrackingUpdate struct {
	CommentMD5      *string
	TicketCreatedAt *time.Time
	TicketUpdatedAt *time.Time
	LLMPrompt       *string
	IngestStatus    *IngestStatus
}

// Apply copies the set fields of u onto record
func (u TrackingUpdate) Apply(record *IngestTrackingRecord) {
	if u.CommentMD5 != nil {
		record.CommentMD5 = *u.CommentMD5
	}
	if u.TicketCreatedAt != nil {
		record.TicketCreatedAt = *u.TicketCreatedAt
	}
	if u.TicketUpdatedAt != nil {
		record.TicketUpdatedAt = *u.TicketUpdatedAt
	}
	if u.LLMPrompt != nil {
		record.LLMPrompt = *u.LLMPrompt
	}
	if u.IngestStatus != nil {
		record.IngestStatus = *u.IngestStatus
	}
}

// Ptr returns a pointer to v, for building partial updates
func Ptr[T any](v T) *T {
	return &v
}
