package jira

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/common"
	"github.com/ternarybob/scribe/internal/interfaces"
	"github.com/ternarybob/scribe/internal/models"
)

const reviewReply = `[{"recipient": "jsmith", "subject": "[High Priority] AI-7", "body": "Hi John, please review.", "reason": "Asked to review", "comment_timestamp": "2024-01-01T09:00:00Z", "comment_id": 1001}]`

func newTestChaser(t *testing.T, client *fakeJiraClient, analyzer *fakeAnalyzer) (*Chaser, interfaces.StorageManager, *noSleep) {
	t.Helper()
	storage := newTestStorage(t)
	chaser := NewChaser(client, storage, analyzer, nil, common.JiraConfig{
		Project:    "AI",
		PageSize:   50,
		MaxTickets: 100,
		PageDelay:  "5s",
	}, arbor.NewLogger())
	sleeper := &noSleep{}
	chaser.sleep = sleeper.sleep
	return chaser, storage, sleeper
}

func TestChase_ProcessesNewTicket(t *testing.T) {
	ctx := context.Background()
	issue := commentedIssue("2024-01-02T10:00:00Z", "[~jsmith] can you review?")
	client := &fakeJiraClient{issues: []models.JiraIssue{issue}}
	analyzer := newFakeAnalyzer()
	analyzer.replies["AI-7"] = reviewReply

	chaser, storage, sleeper := newTestChaser(t, client, analyzer)

	result, err := chaser.Chase(ctx)
	require.NoError(t, err)
	assert.Equal(t, &ChaseResult{Scanned: 1, Processed: 1, Followups: 1}, result)
	assert.Equal(t, []string{"AI-7"}, analyzer.calls)
	assert.Equal(t, []int{0, 1}, client.searches)
	assert.Equal(t, []time.Duration{5 * time.Second}, sleeper.delays)

	tracking, err := storage.TrackingStorage().GetTracking(ctx, "AI-7")
	require.NoError(t, err)
	assert.Equal(t, models.IngestStatusCompleted, tracking.IngestStatus)
	assert.Equal(t, CommentChecksum(ChaseComments(issue)), tracking.CommentMD5)
	assert.Equal(t, "AI", tracking.Project)
	assert.Contains(t, tracking.LLMPrompt, `"key": "AI-7"`)
	assert.True(t, issue.Updated.Equal(tracking.TicketUpdatedAt))

	followups, err := chaser.ListFollowups(ctx, "AI-7")
	require.NoError(t, err)
	require.Len(t, followups, 1)
	assert.Equal(t, "jsmith", followups[0].Recipient)
	assert.Equal(t, "1001", followups[0].CommentID)
	assert.Equal(t, models.FollowupStatusRequired, followups[0].Status)
	assert.Equal(t, "[High Priority] AI-7", followups[0].Summary.Subject)
}

func TestChase_SkipsUnchangedComments(t *testing.T) {
	ctx := context.Background()
	issue := commentedIssue("2024-01-02T10:00:00Z", "[~jsmith] can you review?")
	client := &fakeJiraClient{issues: []models.JiraIssue{issue}}
	analyzer := newFakeAnalyzer()

	chaser, storage, _ := newTestChaser(t, client, analyzer)

	_, err := chaser.Chase(ctx)
	require.NoError(t, err)

	// The ticket was touched but its comments are the same
	client.issues[0].Updated = at("2024-01-03T10:00:00Z")
	result, err := chaser.Chase(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 0, result.Processed)
	assert.Len(t, analyzer.calls, 1)

	tracking, err := storage.TrackingStorage().GetTracking(ctx, "AI-7")
	require.NoError(t, err)
	assert.Equal(t, models.IngestStatusTicketUpdatedButCommentUnchanged, tracking.IngestStatus)
	assert.Empty(t, tracking.LLMPrompt)

	// A new comment triggers another analysis
	client.issues[0] = commentedIssue("2024-01-03T10:00:00Z", "[~jsmith] can you review?", "Reviewed, looks good")
	result, err = chaser.Chase(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Processed)
	assert.Len(t, analyzer.calls, 2)
}

func TestChase_SkipsTicketsWithoutComments(t *testing.T) {
	ctx := context.Background()
	client := &fakeJiraClient{issues: []models.JiraIssue{commentedIssue("2024-01-02T10:00:00Z")}}
	analyzer := newFakeAnalyzer()

	chaser, storage, _ := newTestChaser(t, client, analyzer)

	result, err := chaser.Chase(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Skipped)
	assert.Empty(t, analyzer.calls)

	tracking, err := storage.TrackingStorage().GetTracking(ctx, "AI-7")
	require.NoError(t, err)
	assert.Equal(t, models.IngestStatusSkipNoComments, tracking.IngestStatus)
}

func TestChase_ResetsOpenFollowupsBeforeRebuild(t *testing.T) {
	ctx := context.Background()
	issue := commentedIssue("2024-01-02T10:00:00Z", "[~jsmith] can you review?", "Reviewed")
	client := &fakeJiraClient{issues: []models.JiraIssue{issue}}
	analyzer := newFakeAnalyzer()

	chaser, storage, _ := newTestChaser(t, client, analyzer)

	_, err := storage.NotificationStorage().AddFollowup(ctx, "AI-7", "jsmith", "5", models.IssueSummary{Subject: "old ask"})
	require.NoError(t, err)

	result, err := chaser.Chase(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Followups)

	followups, err := chaser.ListFollowups(ctx, "AI-7")
	require.NoError(t, err)
	require.Len(t, followups, 1)
	assert.Equal(t, models.FollowupStatusFollowed, followups[0].Status)
	assert.Equal(t, "5", followups[0].CommentID)
}

func TestChase_ReopensIdenticalDirective(t *testing.T) {
	ctx := context.Background()
	client := &fakeJiraClient{issues: []models.JiraIssue{commentedIssue("2024-01-02T10:00:00Z", "[~jsmith] can you review?")}}
	analyzer := newFakeAnalyzer()
	analyzer.replies["AI-7"] = reviewReply

	chaser, _, _ := newTestChaser(t, client, analyzer)

	_, err := chaser.Chase(ctx)
	require.NoError(t, err)

	client.issues[0] = commentedIssue("2024-01-03T10:00:00Z", "[~jsmith] can you review?", "bump")
	_, err = chaser.Chase(ctx)
	require.NoError(t, err)

	followups, err := chaser.ListFollowups(ctx, "AI-7")
	require.NoError(t, err)
	require.Len(t, followups, 1)
	assert.Equal(t, models.FollowupStatusRequired, followups[0].Status)
}

func TestChase_CountsTicketWhenPendingMarkFails(t *testing.T) {
	ctx := context.Background()
	client := &fakeJiraClient{issues: []models.JiraIssue{commentedIssue("2024-01-02T10:00:00Z", "[~jsmith] can you review?")}}
	analyzer := newFakeAnalyzer()

	chaser, storage, _ := newTestChaser(t, client, analyzer)
	chaser.tracker = NewTracker(&failingTracking{
		TrackingStorage: storage.TrackingStorage(),
		status:          models.IngestStatusPending,
	}, "AI")

	result, err := chaser.Chase(ctx)
	require.NoError(t, err)
	assert.Equal(t, &ChaseResult{Scanned: 1, Processed: 1, Failed: 1}, result)
	assert.Empty(t, analyzer.calls)
}

func TestChase_CapsProcessedTickets(t *testing.T) {
	var issues []models.JiraIssue
	for i := 0; i < 250; i++ {
		issue := commentedIssue("2024-01-02T10:00:00Z", "[~jsmith] please check")
		issue.Key = fmt.Sprintf("AI-%d", i+1)
		issues = append(issues, issue)
	}
	client := &fakeJiraClient{issues: issues}
	analyzer := newFakeAnalyzer()

	chaser, _, sleeper := newTestChaser(t, client, analyzer)

	result, err := chaser.Chase(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 100, result.Processed)
	assert.Len(t, analyzer.calls, 100)
	assert.Equal(t, []int{0, 50}, client.searches)
	assert.Len(t, sleeper.delays, 1)
}

func TestChase_FailedTicketCountsTowardCap(t *testing.T) {
	ctx := context.Background()
	first := commentedIssue("2024-01-02T10:00:00Z", "[~jsmith] please check")
	first.Key = "AI-1"
	second := commentedIssue("2024-01-02T10:00:00Z", "[~jsmith] please check")
	second.Key = "AI-2"
	client := &fakeJiraClient{issues: []models.JiraIssue{first, second}}
	analyzer := newFakeAnalyzer()
	analyzer.failing["AI-1"] = true

	storage := newTestStorage(t)
	chaser := NewChaser(client, storage, analyzer, nil, common.JiraConfig{MaxTickets: 1}, arbor.NewLogger())
	chaser.sleep = (&noSleep{}).sleep

	result, err := chaser.Chase(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Processed)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, []string{"AI-1"}, analyzer.calls)

	// The failed ticket stays pending and is retried on the next pass
	tracking, err := storage.TrackingStorage().GetTracking(ctx, "AI-1")
	require.NoError(t, err)
	assert.Equal(t, models.IngestStatusPending, tracking.IngestStatus)

	_, err = storage.TrackingStorage().GetTracking(ctx, "AI-2")
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
}

func TestChase_UnreadableReplyIsNoFollowup(t *testing.T) {
	ctx := context.Background()
	client := &fakeJiraClient{issues: []models.JiraIssue{commentedIssue("2024-01-02T10:00:00Z", "[~jsmith] can you review?")}}
	analyzer := newFakeAnalyzer()
	analyzer.replies["AI-7"] = "I am not sure"

	chaser, storage, _ := newTestChaser(t, client, analyzer)

	result, err := chaser.Chase(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Failed)
	assert.Equal(t, 0, result.Followups)

	tracking, err := storage.TrackingStorage().GetTracking(ctx, "AI-7")
	require.NoError(t, err)
	assert.Equal(t, models.IngestStatusCompleted, tracking.IngestStatus)
}

func TestCancelPendingFollowups(t *testing.T) {
	ctx := context.Background()
	chaser, storage, _ := newTestChaser(t, &fakeJiraClient{}, newFakeAnalyzer())

	_, err := storage.NotificationStorage().AddFollowup(ctx, "AI-7", "jsmith", "1", models.IssueSummary{})
	require.NoError(t, err)

	cancelled, err := chaser.CancelPendingFollowups(ctx, "AI-7", "resolved offline")
	require.NoError(t, err)
	assert.Equal(t, 1, cancelled)

	followups, err := chaser.ListFollowups(ctx, "AI-7")
	require.NoError(t, err)
	assert.Equal(t, models.FollowupStatusCancelled, followups[0].Status)
	assert.Equal(t, "resolved offline", followups[0].Reason)
}
