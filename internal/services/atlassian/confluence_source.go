package atlassian

import (
	"context"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/models"
	"github.com/ternarybob/scribe/internal/services/convert"
)

// ConfluenceSource exposes Confluence spaces to the ingest pipeline.
// A scope is a space key.
type ConfluenceSource struct {
	client    *ConfluenceClient
	converter *convert.Converter
	logger    arbor.ILogger
}

// NewConfluenceSource creates the source
func NewConfluenceSource(client *ConfluenceClient, converter *convert.Converter, logger arbor.ILogger) *ConfluenceSource {
	return &ConfluenceSource{
		client:    client,
		converter: converter,
		logger:    logger,
	}
}

// Name identifies Confluence chunks
func (s *ConfluenceSource) Name() string {
	return models.SourceConfluence
}

// ListItems lists the pages of a space
func (s *ConfluenceSource) ListItems(ctx context.Context, space string) ([]models.RemoteItem, error) {
	pages, err := s.client.ListPages(ctx, space)
	if err != nil {
		return nil, err
	}

	items := make([]models.RemoteItem, 0, len(pages))
	for _, page := range pages {
		items = append(items, models.RemoteItem{
			ExternalID:   page.ID,
			Title:        page.Title,
			URL:          s.client.PageURL(page.ID),
			LastModified: page.LastModified,
			Scope:        space,
			Source:       models.SourceConfluence,
		})
	}

	s.logger.Info().
		Str("space", space).
		Int("pages", len(items)).
		Msg("Listed Confluence pages")

	return items, nil
}

// FetchContent downloads the page body and converts it to markdown
func (s *ConfluenceSource) FetchContent(ctx context.Context, item models.RemoteItem) (string, error) {
	storage, err := s.client.PageContent(ctx, item.ExternalID)
	if err != nil {
		return "", err
	}
	return s.converter.ConfluenceToMarkdown(storage)
}
