package splitter

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/common"
	"github.com/ternarybob/scribe/internal/interfaces"
)

// Splitter turns a markdown document into chunks ready for embedding.
//
// Tables are broken into titled parts first, then the document is cut on level 1-2
// headings. Sections longer than MaxSectionChars are split semantically and any
// semantic piece still too long is cut by the recursive splitter.
type Splitter struct {
	config    common.SplitterConfig
	semantic  *SemanticChunker
	recursive *RecursiveSplitter
	logger    arbor.ILogger
}

// NewSplitter creates a splitter. embedder is only called for oversized sections.
func NewSplitter(config common.SplitterConfig, embedder interfaces.Embedder, logger arbor.ILogger) *Splitter {
	return &Splitter{
		config:    config,
		semantic:  NewSemanticChunker(embedder, config),
		recursive: NewRecursiveSplitter(config.ChunkSize, config.ChunkOverlap),
		logger:    logger,
	}
}

// Split returns the chunks of markdown in document order
func (s *Splitter) Split(ctx context.Context, markdown string) ([]string, error) {
	formatted := SplitMarkdownTables(markdown, s.config.RowsPerChunk)
	sections := SplitOnHeadings(formatted)

	s.logger.Debug().
		Int("sections", len(sections)).
		Msg("Structural split complete")

	var chunks []string
	for i, section := range sections {
		if length(section) <= s.config.MaxSectionChars {
			chunks = append(chunks, section)
			continue
		}

		pieces, err := s.semantic.Split(ctx, section)
		if err != nil {
			return nil, fmt.Errorf("semantic split of section %d: %w", i, err)
		}

		s.logger.Debug().
			Int("section", i).
			Int("length", length(section)).
			Int("pieces", len(pieces)).
			Msg("Semantic split of oversized section")

		for _, piece := range pieces {
			if length(piece) <= s.config.MaxSectionChars {
				chunks = append(chunks, piece)
				continue
			}
			windows := s.recursive.Split(piece)
			s.logger.Debug().
				Int("section", i).
				Int("length", length(piece)).
				Int("windows", len(windows)).
				Msg("Recursive split of oversized piece")
			chunks = append(chunks, windows...)
		}
	}

	return chunks, nil
}
