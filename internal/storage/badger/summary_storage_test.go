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

func TestSummaryStorage(t *testing.T) {
	ctx := context.Background()
	storage := NewSummaryStorage(newTestDB(t), arbor.NewLogger())

	_, err := storage.GetSummary(ctx, "42")
	assert.ErrorIs(t, err, interfaces.ErrNotFound)

	require.NoError(t, storage.SaveSummary(ctx, &models.PageSummary{PageID: "42", Title: "Runbook", Summary: "v1"}))
	require.NoError(t, storage.SaveSummary(ctx, &models.PageSummary{PageID: "42", Title: "Runbook", Summary: "v2"}))

	summary, err := storage.GetSummary(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, "v2", summary.Summary)
	assert.False(t, summary.UpdatedAt.IsZero())

	assert.Error(t, storage.SaveSummary(ctx, &models.PageSummary{}))
}
