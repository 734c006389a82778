package jira

import "github.com/ternarybob/scribe/internal/models"

// ChaseState is the outcome of comparing a ticket with its tracking record
type ChaseState string

const (
	ChaseNoComments                       ChaseState = "no_comments"
	ChaseNoExistingRecord                 ChaseState = "no_existing_record"
	ChaseNoUpdate                         ChaseState = "no_update"
	ChaseCommentChanged                   ChaseState = "comment_changed"
	ChaseTicketUpdatedButCommentUnchanged ChaseState = "ticket_updated_but_comment_unchanged"
)

// ShouldProcess reports whether the ticket must be analyzed
func (s ChaseState) ShouldProcess() bool {
	return s == ChaseNoExistingRecord || s == ChaseCommentChanged
}

// SkipStatus is the tracking status written for a skipped ticket
func (s ChaseState) SkipStatus() models.IngestStatus {
	switch s {
	case ChaseNoComments:
		return models.IngestStatusSkipNoComments
	case ChaseNoUpdate:
		return models.IngestStatusNoUpdate
	case ChaseTicketUpdatedButCommentUnchanged:
		return models.IngestStatusTicketUpdatedButCommentUnchanged
	default:
		return models.IngestStatus(s)
	}
}

// Classify decides what the chaser does with issue. checksum is the
// CommentChecksum of the issue's current comments; tracking may be nil.
func Classify(issue models.JiraIssue, checksum string, tracking *models.IngestTrackingRecord) ChaseState {
	if len(issue.Comments) == 0 {
		return ChaseNoComments
	}
	if tracking == nil {
		return ChaseNoExistingRecord
	}
	if issue.Updated.Before(tracking.TicketUpdatedAt) {
		return ChaseNoUpdate
	}
	if checksum != tracking.CommentMD5 {
		return ChaseCommentChanged
	}
	return ChaseTicketUpdatedButCommentUnchanged
}
