package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueryParser_Tokenize(t *testing.T) {
	parser := NewQueryParser()

	tests := []struct {
		name     string
		query    string
		expected []Token
	}{
		{
			name:  "Simple terms",
			query: "cat dog",
			expected: []Token{
				{Value: "cat", Type: TokenTypeTerm},
				{Value: "dog", Type: TokenTypeTerm},
			},
		},
		{
			name:  "Required quoted phrase",
			query: `+"restart the service" now`,
			expected: []Token{
				{Value: "restart the service", Type: TokenTypePhrase, Required: true},
				{Value: "now", Type: TokenTypeTerm},
			},
		},
		{
			name:  "Qualifier",
			query: "source:confluence deploy",
			expected: []Token{
				{Value: "source:confluence", Type: TokenTypeQualifier},
				{Value: "deploy", Type: TokenTypeTerm},
			},
		},
		{
			name:  "Unclosed quote",
			query: `"open phrase`,
			expected: []Token{
				{Value: "open phrase", Type: TokenTypePhrase},
			},
		},
		{
			name:  "Escaped quote inside phrase",
			query: `"say \"hi\""`,
			expected: []Token{
				{Value: `say "hi"`, Type: TokenTypePhrase},
			},
		},
		{
			name:  "Unicode",
			query: "猫 собака",
			expected: []Token{
				{Value: "猫", Type: TokenTypeTerm},
				{Value: "собака", Type: TokenTypeTerm},
			},
		},
		{
			name:     "Empty",
			query:    "   ",
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, parser.Tokenize(tt.query))
		})
	}
}

func TestQueryParser_IsQualifier(t *testing.T) {
	parser := NewQueryParser()

	assert.True(t, parser.IsQualifier("source:sharepoint"))
	assert.True(t, parser.IsQualifier("scope:ENG"))
	assert.False(t, parser.IsQualifier(":value"))
	assert.False(t, parser.IsQualifier("key:"))
	assert.False(t, parser.IsQualifier("https://example.com"))
	assert.False(t, parser.IsQualifier("a-b:c"))

	key, value := parser.SplitQualifier("title:Runbook")
	assert.Equal(t, "title", key)
	assert.Equal(t, "Runbook", value)
}

func TestQueryParser_Parse(t *testing.T) {
	parser := NewQueryParser()

	parsed := parser.Parse(`source:Confluence space:ENG title:runbook +"restart" service owner:me`)
	assert.Equal(t, Query{
		Text:     "restart service owner:me",
		Required: []string{"restart"},
		Source:   "confluence",
		Scope:    "ENG",
		Title:    "runbook",
	}, parsed)

	assert.Equal(t, Query{}, parser.Parse(""))
}
