package jira

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/common"
	"github.com/ternarybob/scribe/internal/interfaces"
	"github.com/ternarybob/scribe/internal/models"
)

// noCurrentUpdates in a summary means nothing happened that day
const noCurrentUpdates = "no current updates"

// maxComponentIssues bounds the changelog search of one component
const maxComponentIssues = 1000

// Progress writes daily progress summaries for Jira components
type Progress struct {
	client     interfaces.JiraClient
	storage    interfaces.ProgressStorage
	summarizer interfaces.ProgressSummarizer
	now        func() time.Time
	logger     arbor.ILogger

	mu         sync.Mutex
	components [][]string
}

// NewProgress creates the progress ingest; the configured components are registered
// as the first group
func NewProgress(
	client interfaces.JiraClient,
	storage interfaces.StorageManager,
	summarizer interfaces.ProgressSummarizer,
	config common.JiraConfig,
	logger arbor.ILogger,
) *Progress {
	p := &Progress{
		client:     client,
		storage:    storage.ProgressStorage(),
		summarizer: summarizer,
		now:        time.Now,
		logger:     logger,
	}
	if len(config.Components) > 0 {
		p.AddComponents(config.Components)
	}
	return p
}

// AddComponents registers a group of components for Reingest
func (p *Progress) AddComponents(components []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.components = append(p.components, append([]string(nil), components...))
}

// Components returns every registered component in registration order
func (p *Progress) Components() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var all []string
	for _, group := range p.components {
		all = append(all, group...)
	}
	return all
}

// Reingest runs Ingest for every registered group in order
func (p *Progress) Reingest(ctx context.Context) error {
	p.mu.Lock()
	groups := append([][]string(nil), p.components...)
	p.mu.Unlock()

	for _, components := range groups {
		if err := p.Ingest(ctx, components); err != nil {
			return err
		}
	}
	return nil
}

// Ingest refreshes the daily history and summaries of each component. The first
// failing component stops the run and its error is returned.
func (p *Progress) Ingest(ctx context.Context, components []string) error {
	p.logger.Info().Strs("components", components).Msg("Progress ingest started")

	for _, component := range components {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := p.ingestComponent(ctx, component); err != nil {
			p.logger.Error().Err(err).Str("component", component).Msg("Progress ingest failed")
			return fmt.Errorf("component %s: %w", component, err)
		}
	}

	p.logger.Info().Strs("components", components).Msg("Progress ingest completed")
	return nil
}

func (p *Progress) ingestComponent(ctx context.Context, component string) error {
	// Today's row may be partial; it is rebuilt below
	if err := p.storage.DeleteLatestRow(ctx, component); err != nil {
		return err
	}

	issues, err := p.client.ComponentIssuesWithChangelog(ctx, component, maxComponentIssues)
	if err != nil {
		return err
	}
	added, err := p.storage.StoreGroupHistory(ctx, component, GroupIssuesByDate(issues))
	if err != nil {
		return err
	}

	rows, err := p.storage.GetAllGroupHistory(ctx, component)
	if err != nil {
		return err
	}

	var yesterday, prevDate string
	previous, err := p.storage.GetPreviousSummary(ctx, component)
	switch {
	case err == nil:
		yesterday = previous.Summary
		prevDate = previous.SnapshotDate
	case errors.Is(err, interfaces.ErrNotFound):
	default:
		return err
	}

	p.logger.Debug().
		Str("component", component).
		Int("issues", len(issues)).
		Int("rows_added", added).
		Str("previous_date", prevDate).
		Msg("Group history stored")

	question := fmt.Sprintf("what is happening with the %s group", component)
	var lastDate string
	for _, row := range rows {
		lastDate = row.SnapshotDate
		// The previous date already holds its summary and the partial latest row was rebuilt
		if prevDate != "" && row.SnapshotDate <= prevDate {
			continue
		}

		today, err := p.summarizer.SummarizeProgress(ctx, question, row.Tickets, yesterday, row.SnapshotDate)
		if err != nil {
			return fmt.Errorf("failed to summarize %s: %w", row.SnapshotDate, err)
		}
		if !strings.Contains(strings.ToLower(today), noCurrentUpdates) {
			yesterday = today
		}
		if err := p.storage.AddGroupSummary(ctx, component, row.SnapshotDate, today); err != nil {
			return err
		}
		p.logger.Info().Str("component", component).Str("date", row.SnapshotDate).Msg("Progress summarized")
	}

	if lastDate == "" {
		return nil
	}
	return p.fillGaps(ctx, component, lastDate)
}

// fillGaps writes a placeholder summary for every day after lastDate that has
// started by now
func (p *Progress) fillGaps(ctx context.Context, component, lastDate string) error {
	last, err := time.Parse(models.SnapshotDateLayout, lastDate)
	if err != nil {
		return fmt.Errorf("invalid snapshot date %q: %w", lastDate, err)
	}
	now := p.now().UTC()

	empty := make(map[string][]models.TicketState)
	var dates []string
	for day := last.AddDate(0, 0, 1); day.Before(now); day = day.AddDate(0, 0, 1) {
		date := day.Format(models.SnapshotDateLayout)
		empty[date] = nil
		dates = append(dates, date)
	}
	if len(dates) == 0 {
		return nil
	}

	if _, err := p.storage.StoreGroupHistory(ctx, component, empty); err != nil {
		return err
	}
	placeholder := fmt.Sprintf("No current updates for %s.", component)
	for _, date := range dates {
		if err := p.storage.AddGroupSummary(ctx, component, date, placeholder); err != nil {
			return err
		}
	}

	p.logger.Info().
		Str("component", component).
		Str("from", dates[0]).
		Str("to", dates[len(dates)-1]).
		Msg("Filled days without updates")
	return nil
}

// GetSummaries renders the latest limit summaries of a component as a markdown
// table, oldest first
func (p *Progress) GetSummaries(ctx context.Context, component string, limit int) (string, error) {
	rows, err := p.storage.GetSummaries(ctx, component, limit)
	if err != nil {
		return "", err
	}
	return SummaryTable(rows), nil
}

// SummaryTable renders snapshot rows (newest first, as stored) as a date/summary table
func SummaryTable(rows []*models.ProgressSnapshot) string {
	var sb strings.Builder
	sb.WriteString("| date | summary |\n")
	sb.WriteString("| --- | --- |\n")
	for i := len(rows) - 1; i >= 0; i-- {
		sb.WriteString("| ")
		sb.WriteString(rows[i].SnapshotDate)
		sb.WriteString(" | ")
		sb.WriteString(tableCell(rows[i].Summary))
		sb.WriteString(" |\n")
	}
	return sb.String()
}

func tableCell(s string) string {
	s = strings.ReplaceAll(strings.TrimSpace(s), "|", "\\|")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\n", "<br>")
}
