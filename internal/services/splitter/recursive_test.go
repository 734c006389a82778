package splitter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecursiveSplitter_Words(t *testing.T) {
	windows := NewRecursiveSplitter(10, 0).Split("aaaa bbbb cccc dddd")
	assert.Equal(t, []string{"aaaa bbbb", "cccc dddd"}, windows)
}

func TestRecursiveSplitter_Overlap(t *testing.T) {
	windows := NewRecursiveSplitter(10, 5).Split("aaaa bbbb cccc dddd")
	assert.Equal(t, []string{"aaaa bbbb", "bbbb cccc", "cccc dddd"}, windows)
}

func TestRecursiveSplitter_FallsBackToCharacters(t *testing.T) {
	windows := NewRecursiveSplitter(5, 0).Split("abcdefghijkl")
	assert.Equal(t, []string{"abcde", "fghij", "kl"}, windows)
}

func TestRecursiveSplitter_PrefersParagraphs(t *testing.T) {
	windows := NewRecursiveSplitter(20, 0).Split("first para\n\nsecond para\n\nthird")
	assert.Equal(t, []string{"first para", "second para\n\nthird"}, windows)
}
