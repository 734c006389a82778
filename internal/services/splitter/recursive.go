package splitter

import (
	"strings"
	"unicode/utf8"
)

// DefaultSeparators are tried in order, from paragraph breaks down to single characters
var DefaultSeparators = []string{"\n\n", "\n", " ", ""}

// RecursiveSplitter cuts text into windows of at most chunkSize characters that
// overlap by up to chunkOverlap, preferring the coarsest separator that works.
// Separators stay attached to the start of the piece that follows them.
type RecursiveSplitter struct {
	chunkSize    int
	chunkOverlap int
	separators   []string
}

// NewRecursiveSplitter creates a splitter using DefaultSeparators
func NewRecursiveSplitter(chunkSize, chunkOverlap int) *RecursiveSplitter {
	return &RecursiveSplitter{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		separators:   DefaultSeparators,
	}
}

// Split returns the windows of text in order
func (r *RecursiveSplitter) Split(text string) []string {
	return r.split(text, r.separators)
}

func (r *RecursiveSplitter) split(text string, separators []string) []string {
	separator := separators[len(separators)-1]
	var remaining []string
	for i, candidate := range separators {
		if candidate == "" {
			separator = candidate
			break
		}
		if strings.Contains(text, candidate) {
			separator = candidate
			remaining = separators[i+1:]
			break
		}
	}

	var chunks, good []string
	for _, piece := range splitKeepingSeparator(text, separator) {
		if length(piece) < r.chunkSize {
			good = append(good, piece)
			continue
		}
		if len(good) > 0 {
			chunks = append(chunks, r.merge(good)...)
			good = nil
		}
		if len(remaining) == 0 {
			chunks = append(chunks, piece)
		} else {
			chunks = append(chunks, r.split(piece, remaining)...)
		}
	}
	if len(good) > 0 {
		chunks = append(chunks, r.merge(good)...)
	}
	return chunks
}

// merge packs pieces into windows. Pieces already carry their separators.
func (r *RecursiveSplitter) merge(pieces []string) []string {
	var windows, current []string
	total := 0

	for _, piece := range pieces {
		size := length(piece)
		if total+size > r.chunkSize && len(current) > 0 {
			if window := strings.TrimSpace(strings.Join(current, "")); window != "" {
				windows = append(windows, window)
			}
			// Drop from the front until what is left fits as overlap
			for total > r.chunkOverlap || (total+size > r.chunkSize && total > 0) {
				total -= length(current[0])
				current = current[1:]
			}
		}
		current = append(current, piece)
		total += size
	}

	if window := strings.TrimSpace(strings.Join(current, "")); window != "" {
		windows = append(windows, window)
	}
	return windows
}

func splitKeepingSeparator(text, separator string) []string {
	var pieces []string
	if separator == "" {
		for _, r := range text {
			pieces = append(pieces, string(r))
		}
		return pieces
	}

	parts := strings.Split(text, separator)
	for i, part := range parts {
		if i > 0 {
			part = separator + part
		}
		if part != "" {
			pieces = append(pieces, part)
		}
	}
	return pieces
}

func length(s string) int {
	return utf8.RuneCountInString(s)
}
