package jira

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/ternarybob/scribe/internal/models"
)

func commentedIssue(updated string, bodies ...string) models.JiraIssue {
	issue := models.JiraIssue{Key: "AI-7", Updated: at(updated), Created: at("2024-01-01T08:00:00Z")}
	for i, body := range bodies {
		issue.Comments = append(issue.Comments, models.JiraComment{
			ID:      strconv.Itoa(1001 + i),
			Author:  "John Smith",
			Body:    body,
			Created: at("2024-01-01T09:00:00Z").Add(time.Duration(i) * time.Hour),
		})
	}
	return issue
}

func TestCommentChecksum(t *testing.T) {
	v1 := commentedIssue("2024-01-02T10:00:00Z", "[~jsmith] can you review?")
	v2 := commentedIssue("2024-01-02T10:00:00Z", "[~jsmith] can you review?", "done")

	assert.Equal(t, CommentChecksum(ChaseComments(v1)), CommentChecksum(ChaseComments(v1)))
	assert.NotEqual(t, CommentChecksum(ChaseComments(v1)), CommentChecksum(ChaseComments(v2)))
	assert.Len(t, CommentChecksum(nil), 32)

	// Listing order does not matter, comments are ordered by creation time
	reversed := v2
	reversed.Comments = []models.JiraComment{v2.Comments[1], v2.Comments[0]}
	assert.Equal(t, CommentChecksum(ChaseComments(v2)), CommentChecksum(ChaseComments(reversed)))

	// Line endings and surrounding whitespace are normalized
	crlf := commentedIssue("2024-01-02T10:00:00Z", "  line one\r\nline two ")
	lf := commentedIssue("2024-01-02T10:00:00Z", "line one\nline two")
	assert.Equal(t, CommentChecksum(ChaseComments(lf)), CommentChecksum(ChaseComments(crlf)))
}

func TestClassify(t *testing.T) {
	v1 := commentedIssue("2024-01-02T10:00:00Z", "[~jsmith] can you review?")
	v2 := commentedIssue("2024-01-02T10:00:00Z", "[~jsmith] can you review?", "done")
	v1Sum := CommentChecksum(ChaseComments(v1))
	v2Sum := CommentChecksum(ChaseComments(v2))

	tracked := func(updated, checksum string) *models.IngestTrackingRecord {
		return &models.IngestTrackingRecord{IssueKey: "AI-7", TicketUpdatedAt: at(updated), CommentMD5: checksum}
	}

	tests := []struct {
		name     string
		issue    models.JiraIssue
		checksum string
		tracking *models.IngestTrackingRecord
		expected ChaseState
		process  bool
	}{
		{
			name:     "no comments",
			issue:    commentedIssue("2024-01-02T10:00:00Z"),
			checksum: CommentChecksum(nil),
			tracking: nil,
			expected: ChaseNoComments,
		},
		{
			name:     "first sight",
			issue:    v1,
			checksum: v1Sum,
			expected: ChaseNoExistingRecord,
			process:  true,
		},
		{
			name:     "older than tracked",
			issue:    v2,
			checksum: v2Sum,
			tracking: tracked("2024-01-03T10:00:00Z", v1Sum),
			expected: ChaseNoUpdate,
		},
		{
			name:     "same timestamp new comments",
			issue:    v2,
			checksum: v2Sum,
			tracking: tracked("2024-01-02T10:00:00Z", v1Sum),
			expected: ChaseCommentChanged,
			process:  true,
		},
		{
			name:     "newer timestamp same comments",
			issue:    v1,
			checksum: v1Sum,
			tracking: tracked("2024-01-01T10:00:00Z", v1Sum),
			expected: ChaseTicketUpdatedButCommentUnchanged,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := Classify(tt.issue, tt.checksum, tt.tracking)
			assert.Equal(t, tt.expected, state)
			assert.Equal(t, tt.process, state.ShouldProcess())
		})
	}
}

func TestChaseState_SkipStatus(t *testing.T) {
	assert.Equal(t, models.IngestStatusSkipNoComments, ChaseNoComments.SkipStatus())
	assert.Equal(t, models.IngestStatusNoUpdate, ChaseNoUpdate.SkipStatus())
	assert.Equal(t, models.IngestStatusTicketUpdatedButCommentUnchanged, ChaseTicketUpdatedButCommentUnchanged.SkipStatus())
}
