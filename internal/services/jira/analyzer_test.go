package jira

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFollowups_NoFollowup(t *testing.T) {
	for _, reply := range []string{"No follow-up needed.", "NO FOLLOW-UP NEEDED", "  no follow-up needed for this ticket\n"} {
		directives, err := ParseFollowups(reply)
		require.NoError(t, err)
		assert.Nil(t, directives, reply)
	}
}

func TestParseFollowups_Array(t *testing.T) {
	reply := "```json\n" + `[
  {
    "recipient": "jsmith",
    "subject": "[High Priority] AI-7",
    "body": "Hi John, please review.",
    "reason": "Asked to review",
    "comment_timestamp": "2024-01-02T10:00:00+00:00",
    "comment_id": 1001
  },
  {
    "recipient": "jane.doe@example.com",
    "subject": "[Low Priority] AI-7",
    "body": "Hi Jane",
    "reason": "Asked a question",
    "comment_id": "1002"
  },
  {
    "recipient": "",
    "subject": "dropped"
  }
]` + "\n```"

	directives, err := ParseFollowups(reply)
	require.NoError(t, err)
	require.Len(t, directives, 2)

	assert.Equal(t, "jsmith", directives[0].Recipient)
	assert.Equal(t, "1001", string(directives[0].CommentID))
	assert.Equal(t, "2024-01-02T10:00:00+00:00", directives[0].CommentTimestamp)
	assert.Equal(t, "Asked to review", directives[0].IssueSummary().Reason)
	assert.Equal(t, "1002", string(directives[1].CommentID))
}

func TestParseFollowups_SurroundingText(t *testing.T) {
	directives, err := ParseFollowups(`Here you go: [{"recipient": "jsmith", "comment_id": 5}] Thanks`)
	require.NoError(t, err)
	require.Len(t, directives, 1)
	assert.Equal(t, "5", string(directives[0].CommentID))
}

func TestParseFollowups_Invalid(t *testing.T) {
	_, err := ParseFollowups("I could not decide")
	assert.Error(t, err)

	_, err = ParseFollowups(`[{"recipient": }]`)
	assert.Error(t, err)
}
