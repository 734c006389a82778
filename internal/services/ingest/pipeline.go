package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/common"
	"github.com/ternarybob/scribe/internal/interfaces"
	"github.com/ternarybob/scribe/internal/models"
)

// ErrScopeBusy is returned when another run holds the scope's lease
var ErrScopeBusy = errors.New("scope is being ingested by another run")

// ContentSplitter cuts a markdown document into chunks
type ContentSplitter interface {
	Split(ctx context.Context, markdown string) ([]string, error)
}

// Scope is one unit of ingestion: a Confluence space or a SharePoint folder
type Scope struct {
	Name      string `json:"name"`
	Summarize bool   `json:"summarize"`
}

// Result counts what happened to the items of one scope
type Result struct {
	Scope    string `json:"scope"`
	Listed   int    `json:"listed"`
	Inserted int    `json:"inserted"`
	Replaced int    `json:"replaced"`
	Skipped  int    `json:"skipped"`
	Failed   int    `json:"failed"`
	Chunks   int    `json:"chunks"`
}

// Pipeline keeps the vector store in step with one remote source
type Pipeline struct {
	source     interfaces.Source
	chunks     interfaces.ChunkStorage
	summaries  interfaces.SummaryStorage
	leases     interfaces.LeaseStorage
	splitter   ContentSplitter
	embedder   interfaces.Embedder
	summarizer interfaces.Summarizer
	events     interfaces.EventService
	leaseTTL   time.Duration
	logger     arbor.ILogger

	mu     sync.Mutex
	scopes []Scope
}

// NewPipeline creates a pipeline for source. summarizer and events may be nil.
func NewPipeline(
	source interfaces.Source,
	storage interfaces.StorageManager,
	splitter ContentSplitter,
	embedder interfaces.Embedder,
	summarizer interfaces.Summarizer,
	events interfaces.EventService,
	config common.IngestConfig,
	logger arbor.ILogger,
) *Pipeline {
	return &Pipeline{
		source:     source,
		chunks:     storage.ChunkStorage(),
		summaries:  storage.SummaryStorage(),
		leases:     storage.LeaseStorage(),
		splitter:   splitter,
		embedder:   embedder,
		summarizer: summarizer,
		events:     events,
		leaseTTL:   common.ParseDurationOr(config.LeaseTTL, 2*time.Hour),
		logger:     logger,
	}
}

// Source returns the name of the source this pipeline ingests
func (p *Pipeline) Source() string {
	return p.source.Name()
}

// AddScope registers a scope for Reingest
func (p *Pipeline) AddScope(scope Scope) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.scopes = append(p.scopes, scope)
}

// Scopes returns the registered scopes in registration order
func (p *Pipeline) Scopes() []Scope {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Scope(nil), p.scopes...)
}

// Reingest runs Ingest for every registered scope in registration order.
// A failing scope does not stop the others; their errors are joined.
func (p *Pipeline) Reingest(ctx context.Context) ([]*Result, error) {
	var results []*Result
	var errs []error

	for _, scope := range p.Scopes() {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		result, err := p.Ingest(ctx, scope)
		if result != nil {
			results = append(results, result)
		}
		if err != nil {
			p.logger.Error().
				Err(err).
				Str("source", p.source.Name()).
				Str("scope", scope.Name).
				Msg("Scope ingest failed")
			errs = append(errs, fmt.Errorf("%s: %w", scope.Name, err))
		}
	}

	return results, errors.Join(errs...)
}

// Ingest brings one scope up to date. Items are processed one at a time in the
// order the source lists them; an item that fails is logged and skipped.
func (p *Pipeline) Ingest(ctx context.Context, scope Scope) (*Result, error) {
	leaseKey := p.source.Name() + ":" + scope.Name
	owner := common.NewLeaseOwner()

	acquired, err := p.leases.Acquire(ctx, leaseKey, owner, p.leaseTTL)
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, fmt.Errorf("%w: %s", ErrScopeBusy, leaseKey)
	}
	defer func() {
		if err := p.leases.Release(context.WithoutCancel(ctx), leaseKey, owner); err != nil {
			p.logger.Warn().Err(err).Str("scope", leaseKey).Msg("Failed to release scope lease")
		}
	}()

	items, err := p.source.ListItems(ctx, scope.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}

	result := &Result{Scope: scope.Name, Listed: len(items)}
	p.logger.Info().
		Str("source", p.source.Name()).
		Str("scope", scope.Name).
		Int("items", len(items)).
		Msg("Ingest started")

	started := time.Now()
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		if item.Scope == "" {
			item.Scope = scope.Name
		}
		if err := p.ingestItem(ctx, scope, item, result); err != nil {
			result.Failed++
			p.logger.Error().
				Err(err).
				Str("title", item.Title).
				Str("url", item.URL).
				Msg("Failed to ingest item")
		}
	}

	p.logger.Info().
		Str("source", p.source.Name()).
		Str("scope", scope.Name).
		Int("inserted", result.Inserted).
		Int("replaced", result.Replaced).
		Int("skipped", result.Skipped).
		Int("failed", result.Failed).
		Dur("duration", time.Since(started)).
		Msg("Ingest completed")

	return result, nil
}

func (p *Pipeline) ingestItem(ctx context.Context, scope Scope, item models.RemoteItem, result *Result) error {
	existing, err := p.chunks.GetByURL(ctx, item.URL, 1)
	if err != nil {
		return fmt.Errorf("failed to look up stored chunks: %w", err)
	}

	var stored *models.ChunkMetadata
	if len(existing) > 0 {
		metadata := existing[0].Metadata()
		stored = &metadata
	}

	decision := Decide(stored, item.LastModified)
	if decision == DecisionSkip {
		result.Skipped++
		p.logger.Debug().
			Str("title", item.Title).
			Str("url", item.URL).
			Str("last_modified", item.LastModified).
			Str("stored_last_modified", stored.LastModified).
			Msg("Skipping unchanged item")
		return nil
	}

	markdown, err := p.source.FetchContent(ctx, item)
	if err != nil {
		return fmt.Errorf("failed to fetch content: %w", err)
	}

	pieces, err := p.splitter.Split(ctx, markdown)
	if err != nil {
		return fmt.Errorf("failed to split content: %w", err)
	}

	var embeddings [][]float32
	if len(pieces) > 0 {
		embeddings, err = p.embedder.EmbedBatch(ctx, pieces)
		if err != nil {
			return fmt.Errorf("failed to embed chunks: %w", err)
		}
		if len(embeddings) != len(pieces) {
			return fmt.Errorf("embedder returned %d vectors for %d chunks", len(embeddings), len(pieces))
		}
	}

	now := time.Now()
	chunks := make([]*models.StoredChunk, len(pieces))
	for i, piece := range pieces {
		chunks[i] = &models.StoredChunk{
			ID:           common.NewChunkID(),
			URL:          item.URL,
			PageID:       item.ExternalID,
			Title:        item.Title,
			LastModified: item.LastModified,
			Scope:        item.Scope,
			Source:       p.source.Name(),
			Position:     i,
			Content:      piece,
			Embedding:    embeddings[i],
			CreatedAt:    now,
		}
	}

	// An empty set still clears what was stored for the url
	if err := p.chunks.ReplaceByURL(ctx, item.URL, chunks); err != nil {
		return fmt.Errorf("failed to store chunks: %w", err)
	}

	if decision == DecisionInsert {
		result.Inserted++
	} else {
		result.Replaced++
	}
	result.Chunks += len(chunks)

	p.logger.Info().
		Str("decision", string(decision)).
		Str("title", item.Title).
		Str("url", item.URL).
		Int("chunks", len(chunks)).
		Msg("Item ingested")

	if scope.Summarize && p.summarizer != nil {
		p.summarize(ctx, item, markdown)
	}

	p.publish(ctx, item, decision, len(chunks))
	return nil
}

// summarize stores a page summary; failures are logged only
func (p *Pipeline) summarize(ctx context.Context, item models.RemoteItem, markdown string) {
	summary, err := p.summarizer.Summarize(ctx, item.Title, markdown)
	if err != nil {
		p.logger.Warn().Err(err).Str("title", item.Title).Msg("Failed to summarize item")
		return
	}

	err = p.summaries.SaveSummary(ctx, &models.PageSummary{
		PageID:       item.ExternalID,
		URL:          item.URL,
		Title:        item.Title,
		Summary:      summary,
		LastModified: item.LastModified,
		UpdatedAt:    time.Now(),
	})
	if err != nil {
		p.logger.Warn().Err(err).Str("title", item.Title).Msg("Failed to store summary")
	}
}

func (p *Pipeline) publish(ctx context.Context, item models.RemoteItem, decision Decision, chunks int) {
	if p.events == nil {
		return
	}
	event := interfaces.Event{
		Type: interfaces.EventItemIngested,
		Payload: map[string]interface{}{
			"source":   p.source.Name(),
			"scope":    item.Scope,
			"url":      item.URL,
			"title":    item.Title,
			"decision": string(decision),
			"chunks":   chunks,
		},
	}
	if err := p.events.Publish(ctx, event); err != nil {
		p.logger.Warn().Err(err).Str("url", item.URL).Msg("Failed to publish ingest event")
	}
}
