package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// FollowupStatus is the lifecycle state of a follow-up reminder
type FollowupStatus string

const (
	FollowupStatusNoAction     FollowupStatus = "no_action"
	FollowupStatusRequired     FollowupStatus = "follow_up_required"
	FollowupStatusFollowed     FollowupStatus = "followed"
	FollowupStatusCancelled    FollowupStatus = "cancelled"
	FollowupStatusFollowUpSent FollowupStatus = "follow_up_sent"
)

// IssueSummary is the reminder content produced for one recipient
type IssueSummary struct {
	Subject          string `json:"subject"`
	Body             string `json:"body"`
	Recipient        string `json:"recipient"`
	Reason           string `json:"reason"`
	CommentTimestamp string `json:"comment_timestamp"`
}

// FollowupNotification is one reminder row, unique on (IssueKey, Recipient, CommentID)
type FollowupNotification struct {
	ID        string         `json:"id" badgerhold:"key"`
	IssueKey  string         `json:"issue_key" badgerhold:"index"`
	Recipient string         `json:"recipient"`
	CommentID string         `json:"comment_id"`
	Status    FollowupStatus `json:"status" badgerhold:"index"`
	Reason    string         `json:"reason"`
	Summary   IssueSummary   `json:"issue_summary"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	SentAt    *time.Time     `json:"sent_at,omitempty"`
}

// FollowupDirective is a single element of the analyzer's JSON reply
type FollowupDirective struct {
	Recipient        string    `json:"recipient"`
	Subject          string    `json:"subject"`
	Body             string    `json:"body"`
	Reason           string    `json:"reason"`
	CommentTimestamp string    `json:"comment_timestamp"`
	CommentID        CommentID `json:"comment_id"`
}

// IssueSummary converts the directive into the stored reminder content
func (d FollowupDirective) IssueSummary() IssueSummary {
	return IssueSummary{
		Subject:          d.Subject,
		Body:             d.Body,
		Recipient:        d.Recipient,
		Reason:           d.Reason,
		CommentTimestamp: d.CommentTimestamp,
	}
}

// CommentID accepts a JSON number or string
type CommentID string

func (c *CommentID) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		*c = ""
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = CommentID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("comment_id must be a number or string: %w", err)
	}
	*c = CommentID(n.String())
	return nil
}
