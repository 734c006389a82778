package pdf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/models"
)

func TestConvertMarkdownToPDF(t *testing.T) {
	service := NewService(arbor.NewLogger())

	cases := map[string]string{
		"empty":    "",
		"headings": "# Progress: AI\n\n## 2024-01-03\n\nTraining started.\n\n- AI-7 in progress\n- AI-8 blocked",
		"styles":   "Plain **strong** *emphasis* ***both*** and `AI-7`",
		"code":     "Steps:\n\n```\nsystemctl restart scribe\n```\n\n    indented block",
		"unicode":  "Café résumé<br>next line\n\n---\n\n1. first\n2. second\n   - nested",
	}

	for name, markdown := range cases {
		t.Run(name, func(t *testing.T) {
			out, err := service.ConvertMarkdownToPDF(markdown, name)
			require.NoError(t, err)
			require.NotEmpty(t, out)
			assert.Equal(t, "%PDF", string(out[:4]))
		})
	}
}

func TestConvertMarkdownToPDF_Tables(t *testing.T) {
	service := NewService(arbor.NewLogger())

	markdown := `
# Table Test

| date | summary |
| --- | --- |
| 2024-01-01 | Initial setup done. |
| 2024-01-02 | Model training started.<br>- AI-7 moved to In Progress |

End of table.
`
	pdfBytes, err := service.ConvertMarkdownToPDF(markdown, "Table Report")
	require.NoError(t, err)
	assert.Greater(t, len(pdfBytes), 500)
	assert.Equal(t, "%PDF", string(pdfBytes[:4]))
}

func TestProgressReport(t *testing.T) {
	service := NewService(arbor.NewLogger())

	rows := []*models.ProgressSnapshot{
		{SnapshotDate: "2024-01-01", Summary: "Initial setup done.", HasSummary: true},
		{SnapshotDate: "2024-01-02"},
		{SnapshotDate: "2024-01-03", Summary: "- AI-7 training started\n- AI-8 **blocked**", HasSummary: true},
	}

	pdfBytes, err := service.ProgressReport("AI", rows)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(pdfBytes[:4]))

	empty, err := service.ProgressReport("AI", nil)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(empty[:4]))
}
