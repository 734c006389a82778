package jira

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/common"
	"github.com/ternarybob/scribe/internal/interfaces"
	"github.com/ternarybob/scribe/internal/models"
)

func aiIssue() models.JiraIssue {
	return models.JiraIssue{
		ID:         "10001",
		Key:        "AI-1",
		Summary:    "Train the model",
		Components: []string{"AI"},
		Created:    at("2024-01-02T09:00:00Z"),
		Updated:    at("2024-01-03T10:00:00Z"),
		Changelog: []models.JiraHistory{
			change("2024-01-03T10:00:00Z", item("status", "Open", "In Progress")),
		},
	}
}

func newTestProgress(t *testing.T, client *fakeJiraClient, now string) (*Progress, *fakeProgressSummarizer, interfaces.StorageManager) {
	t.Helper()
	storage := newTestStorage(t)
	summarizer := &fakeProgressSummarizer{}
	progress := NewProgress(client, storage, summarizer, common.JiraConfig{Components: []string{"AI"}}, arbor.NewLogger())
	progress.now = func() time.Time { return at(now) }
	return progress, summarizer, storage
}

func TestProgress_SummarizesNewDaysAndFillsGaps(t *testing.T) {
	ctx := context.Background()
	client := &fakeJiraClient{components: map[string][]models.JiraIssue{"AI": {aiIssue()}}}
	progress, summarizer, storage := newTestProgress(t, client, "2024-01-05T12:00:00Z")
	rows := storage.ProgressStorage()

	// Previous run: a summarized day and a partial latest row
	_, err := rows.StoreGroupHistory(ctx, "AI", map[string][]models.TicketState{
		"2024-01-01": {{Key: "AI-0", Status: "Done"}},
		"2024-01-02": nil,
	})
	require.NoError(t, err)
	require.NoError(t, rows.AddGroupSummary(ctx, "AI", "2024-01-01", "Initial setup done."))

	require.NoError(t, progress.Ingest(ctx, []string{"AI"}))

	require.Len(t, summarizer.calls, 2)
	assert.Equal(t, recordedSummary{
		question:  "what is happening with the AI group",
		date:      "2024-01-02",
		yesterday: "Initial setup done.",
		tickets:   1,
	}, summarizer.calls[0])
	assert.Equal(t, "2024-01-03", summarizer.calls[1].date)
	assert.Equal(t, "Progress on 2024-01-02", summarizer.calls[1].yesterday)

	summaries, err := rows.GetSummaries(ctx, "AI", 0)
	require.NoError(t, err)
	got := make(map[string]string)
	for _, row := range summaries {
		got[row.SnapshotDate] = row.Summary
	}
	assert.Equal(t, map[string]string{
		"2024-01-01": "Initial setup done.",
		"2024-01-02": "Progress on 2024-01-02",
		"2024-01-03": "Progress on 2024-01-03",
		"2024-01-04": "No current updates for AI.",
		"2024-01-05": "No current updates for AI.",
	}, got)

	previous, err := rows.GetPreviousSummary(ctx, "AI")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-03", previous.SnapshotDate)
}

func TestProgress_KeepsSummaryOfPreviousDate(t *testing.T) {
	ctx := context.Background()
	client := &fakeJiraClient{components: map[string][]models.JiraIssue{"AI": {aiIssue()}}}
	progress, summarizer, storage := newTestProgress(t, client, "2024-01-03T18:00:00Z")
	rows := storage.ProgressStorage()

	// 2024-01-02 already carries the last summary; 2024-01-03 was summarized mid-day
	_, err := rows.StoreGroupHistory(ctx, "AI", map[string][]models.TicketState{
		"2024-01-02": {{Key: "AI-1", Status: "Open"}},
		"2024-01-03": {{Key: "AI-1", Status: "Open"}},
	})
	require.NoError(t, err)
	require.NoError(t, rows.AddGroupSummary(ctx, "AI", "2024-01-02", "Model training started."))
	require.NoError(t, rows.AddGroupSummary(ctx, "AI", "2024-01-03", "Partial day."))

	require.NoError(t, progress.Ingest(ctx, []string{"AI"}))

	require.Len(t, summarizer.calls, 1)
	assert.Equal(t, "2024-01-03", summarizer.calls[0].date)
	assert.Equal(t, "Model training started.", summarizer.calls[0].yesterday)

	summaries, err := rows.GetSummaries(ctx, "AI", 0)
	require.NoError(t, err)
	got := make(map[string]string)
	for _, row := range summaries {
		got[row.SnapshotDate] = row.Summary
	}
	assert.Equal(t, map[string]string{
		"2024-01-02": "Model training started.",
		"2024-01-03": "Progress on 2024-01-03",
	}, got)
}

func TestProgress_WithoutPreviousSummarySummarizesEveryDay(t *testing.T) {
	ctx := context.Background()
	client := &fakeJiraClient{components: map[string][]models.JiraIssue{"AI": {aiIssue()}}}
	progress, summarizer, _ := newTestProgress(t, client, "2024-01-03T18:00:00Z")

	require.NoError(t, progress.Reingest(ctx))

	require.Len(t, summarizer.calls, 2)
	assert.Equal(t, "2024-01-02", summarizer.calls[0].date)
	assert.Empty(t, summarizer.calls[0].yesterday)
	assert.Equal(t, "2024-01-03", summarizer.calls[1].date)
}

func TestProgress_GetSummaries(t *testing.T) {
	ctx := context.Background()
	client := &fakeJiraClient{components: map[string][]models.JiraIssue{"AI": {aiIssue()}}}
	progress, _, _ := newTestProgress(t, client, "2024-01-04T12:00:00Z")

	require.NoError(t, progress.Ingest(ctx, []string{"AI"}))

	table, err := progress.GetSummaries(ctx, "AI", 2)
	require.NoError(t, err)
	assert.Equal(t, "| date | summary |\n"+
		"| --- | --- |\n"+
		"| 2024-01-03 | Progress on 2024-01-03 |\n"+
		"| 2024-01-04 | No current updates for AI. |\n", table)
}

func TestProgress_Components(t *testing.T) {
	progress, _, _ := newTestProgress(t, &fakeJiraClient{}, "2024-01-04T12:00:00Z")
	progress.AddComponents([]string{"Platform", "Data"})
	assert.Equal(t, []string{"AI", "Platform", "Data"}, progress.Components())
}

func TestSummaryTable_EscapesCells(t *testing.T) {
	table := SummaryTable([]*models.ProgressSnapshot{
		{SnapshotDate: "2024-01-02", Summary: "a | b\nnext line"},
	})
	assert.Contains(t, table, "| 2024-01-02 | a \\| b<br>next line |")
}
