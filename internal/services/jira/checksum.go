package jira

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/ternarybob/scribe/internal/models"
)

// ChaseComment is a comment as the analyzer sees it and as the checksum covers it
type ChaseComment struct {
	CommentID string `json:"comment_id"`
	Author    string `json:"author"`
	Timestamp string `json:"timestamp"`
	Comment   string `json:"comment"`
}

// IssueContext is the ticket payload handed to the follow-up analyzer
type IssueContext struct {
	Key         string         `json:"key"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Priority    string         `json:"priority,omitempty"`
	Status      string         `json:"status,omitempty"`
	Comments    []ChaseComment `json:"comments"`
	Updated     string         `json:"updated"`
}

// ChaseComments returns the issue's comments oldest first with normalized bodies
func ChaseComments(issue models.JiraIssue) []ChaseComment {
	sorted := append([]models.JiraComment(nil), issue.Comments...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Created.Before(sorted[j].Created)
	})

	comments := make([]ChaseComment, 0, len(sorted))
	for _, comment := range sorted {
		comments = append(comments, ChaseComment{
			CommentID: comment.ID,
			Author:    comment.Author,
			Timestamp: comment.Created.Format(time.RFC3339),
			Comment:   strings.TrimSpace(strings.ReplaceAll(comment.Body, "\r\n", "\n")),
		})
	}
	return comments
}

// CommentChecksum is the md5 hex digest of the JSON encoded comment list
func CommentChecksum(comments []ChaseComment) string {
	if comments == nil {
		comments = []ChaseComment{}
	}
	data, err := json.Marshal(comments)
	if err != nil {
		// Plain string fields always marshal
		return ""
	}
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

// NewIssueContext builds the analyzer payload for issue
func NewIssueContext(issue models.JiraIssue, comments []ChaseComment) IssueContext {
	return IssueContext{
		Key:         issue.Key,
		Title:       issue.Summary,
		Description: issue.Description,
		Priority:    issue.Priority,
		Status:      issue.Status,
		Comments:    comments,
		Updated:     issue.Updated.Format(time.RFC3339),
	}
}

// JSON renders the payload indented, as it is embedded in the prompt
func (c IssueContext) JSON() (string, error) {
	data, err := json.MarshalIndent(c, "", "    ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
