package splitter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitOnHeadings(t *testing.T) {
	markdown := "Intro text\n\n# One\nbody1\n```\n# not a heading\n```\n## Two\nbody2\n### Three\nbody3\n"

	sections := SplitOnHeadings(markdown)

	require.Len(t, sections, 3)
	assert.Equal(t, "Intro text", sections[0])
	assert.Equal(t, "# One\nbody1\n```\n# not a heading\n```", sections[1])
	assert.Equal(t, "## Two\nbody2\n### Three\nbody3", sections[2])
}

func TestSplitOnHeadings_StartsWithHeading(t *testing.T) {
	sections := SplitOnHeadings("# Title\n\nText\n\n## Part\n\nMore")

	require.Len(t, sections, 2)
	assert.Equal(t, "# Title\n\nText", sections[0])
	assert.Equal(t, "## Part\n\nMore", sections[1])
}

func TestSplitOnHeadings_Empty(t *testing.T) {
	assert.Empty(t, SplitOnHeadings(""))
	assert.Empty(t, SplitOnHeadings("  \n\n "))
	assert.Equal(t, []string{"no headings here"}, SplitOnHeadings("no headings here"))
}
