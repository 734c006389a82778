package badger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/interfaces"
	"github.com/ternarybob/scribe/internal/models"
)

func TestProgressStorage_History(t *testing.T) {
	ctx := context.Background()
	storage := NewProgressStorage(newTestDB(t), arbor.NewLogger())

	added, err := storage.StoreGroupHistory(ctx, "AI", map[string][]models.TicketState{
		"2024-01-02": {{Key: "AI-1", Status: "In Progress"}},
		"2024-01-01": {{Key: "AI-1", Status: "Open"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, added)

	// Existing dates are not overwritten
	added, err = storage.StoreGroupHistory(ctx, "AI", map[string][]models.TicketState{
		"2024-01-02": {{Key: "AI-1", Status: "Done"}},
		"2024-01-03": nil,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, added)

	rows, err := storage.GetAllGroupHistory(ctx, "AI")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "2024-01-01", rows[0].SnapshotDate)
	assert.Equal(t, "In Progress", rows[1].Tickets[0].Status)
	assert.Empty(t, rows[2].Tickets)

	require.NoError(t, storage.DeleteLatestRow(ctx, "AI"))
	rows, err = storage.GetAllGroupHistory(ctx, "AI")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "2024-01-02", rows[1].SnapshotDate)

	other, err := storage.GetAllGroupHistory(ctx, "Platform")
	require.NoError(t, err)
	assert.Empty(t, other)
	require.NoError(t, storage.DeleteLatestRow(ctx, "Platform"))
}

func TestProgressStorage_Summaries(t *testing.T) {
	ctx := context.Background()
	storage := NewProgressStorage(newTestDB(t), arbor.NewLogger())

	_, err := storage.GetPreviousSummary(ctx, "AI")
	assert.ErrorIs(t, err, interfaces.ErrNotFound)

	_, err = storage.StoreGroupHistory(ctx, "AI", map[string][]models.TicketState{
		"2024-01-01": {}, "2024-01-02": {}, "2024-01-03": {},
	})
	require.NoError(t, err)

	require.NoError(t, storage.AddGroupSummary(ctx, "AI", "2024-01-01", "Initial setup done."))
	require.NoError(t, storage.AddGroupSummary(ctx, "AI", "2024-01-02", "Model training started."))
	require.NoError(t, storage.AddGroupSummary(ctx, "AI", "2024-01-03", "No current updates for AI."))
	assert.ErrorIs(t, storage.AddGroupSummary(ctx, "AI", "2024-02-01", "x"), interfaces.ErrNotFound)

	previous, err := storage.GetPreviousSummary(ctx, "AI")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-02", previous.SnapshotDate)
	assert.Equal(t, "Model training started.", previous.Summary)

	summaries, err := storage.GetSummaries(ctx, "AI", 2)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, "2024-01-03", summaries[0].SnapshotDate)
	assert.Equal(t, "2024-01-02", summaries[1].SnapshotDate)
}
