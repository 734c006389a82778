package jira

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/common"
	"github.com/ternarybob/scribe/internal/interfaces"
	"github.com/ternarybob/scribe/internal/models"
)

// ChaseResult counts what one chase pass did
type ChaseResult struct {
	Scanned   int `json:"scanned"`
	Processed int `json:"processed"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
	Followups int `json:"followups"`
}

// Chaser scans open tickets and keeps follow-up reminders in step with their comments
type Chaser struct {
	client        interfaces.JiraClient
	tracker       *Tracker
	notifications interfaces.NotificationStorage
	analyzer      interfaces.FollowupAnalyzer
	events        interfaces.EventService
	jql           string
	pageSize      int
	maxTickets    int
	pageDelay     time.Duration
	sleep         func(ctx context.Context, d time.Duration) error
	logger        arbor.ILogger
}

// NewChaser creates a chaser. events may be nil.
func NewChaser(
	client interfaces.JiraClient,
	storage interfaces.StorageManager,
	analyzer interfaces.FollowupAnalyzer,
	events interfaces.EventService,
	config common.JiraConfig,
	logger arbor.ILogger,
) *Chaser {
	pageSize := config.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}
	maxTickets := config.MaxTickets
	if maxTickets <= 0 {
		maxTickets = 100
	}

	return &Chaser{
		client:        client,
		tracker:       NewTracker(storage.TrackingStorage(), config.Project),
		notifications: storage.NotificationStorage(),
		analyzer:      analyzer,
		events:        events,
		jql:           config.JQL,
		pageSize:      pageSize,
		maxTickets:    maxTickets,
		pageDelay:     common.ParseDurationOr(config.PageDelay, 5*time.Second),
		sleep:         sleepContext,
		logger:        logger,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Chase runs one pass over the open tickets, a page at a time, until a page comes
// back empty or the per-pass processing cap is reached. A ticket that fails is
// logged and still counts toward the cap.
func (c *Chaser) Chase(ctx context.Context) (*ChaseResult, error) {
	result := &ChaseResult{}
	started := time.Now()

	c.logger.Info().
		Int("page_size", c.pageSize).
		Int("max_tickets", c.maxTickets).
		Msg("Chase started")

	for startAt := 0; result.Processed < c.maxTickets; {
		issues, err := c.client.SearchIssues(ctx, c.jql, startAt, c.pageSize)
		if err != nil {
			return result, fmt.Errorf("failed to fetch tickets at %d: %w", startAt, err)
		}
		if len(issues) == 0 {
			break
		}

		for _, issue := range issues {
			if result.Processed >= c.maxTickets {
				break
			}
			if err := ctx.Err(); err != nil {
				return result, err
			}

			result.Scanned++
			if err := c.chaseIssue(ctx, issue, result); err != nil {
				result.Failed++
				c.logger.Error().
					Err(err).
					Str("issue_key", issue.Key).
					Msg("Failed to chase ticket")
			}
		}

		startAt += len(issues)
		if result.Processed >= c.maxTickets {
			break
		}
		if err := c.sleep(ctx, c.pageDelay); err != nil {
			return result, err
		}
	}

	c.logger.Info().
		Int("scanned", result.Scanned).
		Int("processed", result.Processed).
		Int("skipped", result.Skipped).
		Int("failed", result.Failed).
		Int("followups", result.Followups).
		Dur("duration", time.Since(started)).
		Msg("Chase completed")

	return result, nil
}

func (c *Chaser) chaseIssue(ctx context.Context, issue models.JiraIssue, result *ChaseResult) error {
	comments := ChaseComments(issue)
	checksum := CommentChecksum(comments)

	tracking, err := c.tracker.GetTracking(ctx, issue.Key)
	if err != nil {
		return fmt.Errorf("failed to load tracking: %w", err)
	}

	state := Classify(issue, checksum, tracking)
	if !state.ShouldProcess() {
		result.Skipped++
		c.logger.Debug().
			Str("issue_key", issue.Key).
			Str("reason", string(state)).
			Msg("Skipping ticket")
		_, err := c.tracker.UpsertTracking(ctx, issue.Key, models.TrackingUpdate{
			TicketCreatedAt: models.Ptr(issue.Created),
			TicketUpdatedAt: models.Ptr(issue.Updated),
			LLMPrompt:       models.Ptr(""),
			IngestStatus:    models.Ptr(state.SkipStatus()),
		})
		return err
	}

	c.logger.Info().
		Str("issue_key", issue.Key).
		Str("reason", string(state)).
		Str("comment_md5", checksum).
		Msg("Processing ticket")

	result.Processed++

	// Pending first so an interrupted pass re-processes the ticket next time
	if _, err := c.tracker.UpsertTracking(ctx, issue.Key, models.TrackingUpdate{
		TicketCreatedAt: models.Ptr(issue.Created),
		TicketUpdatedAt: models.Ptr(issue.Updated),
		IngestStatus:    models.Ptr(models.IngestStatusPending),
	}); err != nil {
		return fmt.Errorf("failed to mark ticket pending: %w", err)
	}

	payload, err := NewIssueContext(issue, comments).JSON()
	if err != nil {
		return fmt.Errorf("failed to encode ticket: %w", err)
	}
	prompt, err := c.analyzer.Prompt(payload)
	if err != nil {
		return fmt.Errorf("failed to render prompt: %w", err)
	}
	if _, err := c.tracker.UpsertTracking(ctx, issue.Key, models.TrackingUpdate{LLMPrompt: &prompt}); err != nil {
		return fmt.Errorf("failed to store prompt: %w", err)
	}

	reply, err := c.analyzer.Analyze(ctx, prompt)
	if err != nil {
		return fmt.Errorf("failed to analyze ticket: %w", err)
	}

	directives, err := ParseFollowups(reply)
	if err != nil {
		c.logger.Warn().
			Err(err).
			Str("issue_key", issue.Key).
			Msg("Unreadable analyzer reply, treating as no follow-up")
		directives = nil
	}

	if err := c.applyFollowups(ctx, issue.Key, directives); err != nil {
		return err
	}
	result.Followups += len(directives)

	_, err = c.tracker.UpsertTracking(ctx, issue.Key, models.TrackingUpdate{
		CommentMD5:      &checksum,
		TicketCreatedAt: models.Ptr(issue.Created),
		TicketUpdatedAt: models.Ptr(issue.Updated),
		IngestStatus:    models.Ptr(models.IngestStatusCompleted),
	})
	if err != nil {
		return fmt.Errorf("failed to mark ticket completed: %w", err)
	}
	return nil
}

// applyFollowups closes every open reminder of the ticket and then reopens or
// creates one per directive
func (c *Chaser) applyFollowups(ctx context.Context, issueKey string, directives []models.FollowupDirective) error {
	reset, err := c.notifications.ResetFollowupStatus(ctx, issueKey, models.FollowupStatusFollowed)
	if err != nil {
		return fmt.Errorf("failed to reset follow-ups: %w", err)
	}

	for _, directive := range directives {
		notification, err := c.notifications.AddFollowup(ctx, issueKey, directive.Recipient, string(directive.CommentID), directive.IssueSummary())
		if err != nil {
			return fmt.Errorf("failed to store follow-up for %s: %w", directive.Recipient, err)
		}
		c.publish(ctx, notification)
	}

	c.logger.Info().
		Str("issue_key", issueKey).
		Int("reset", reset).
		Int("followups", len(directives)).
		Msg("Follow-ups updated")
	return nil
}

func (c *Chaser) publish(ctx context.Context, notification *models.FollowupNotification) {
	if c.events == nil || notification == nil {
		return
	}
	event := interfaces.Event{
		Type: interfaces.EventFollowupCreated,
		Payload: map[string]interface{}{
			"id":         notification.ID,
			"issue_key":  notification.IssueKey,
			"recipient":  notification.Recipient,
			"comment_id": notification.CommentID,
			"subject":    notification.Summary.Subject,
		},
	}
	if err := c.events.Publish(ctx, event); err != nil {
		c.logger.Warn().Err(err).Str("issue_key", notification.IssueKey).Msg("Failed to publish follow-up event")
	}
}

// ListFollowups returns every reminder recorded for the ticket
func (c *Chaser) ListFollowups(ctx context.Context, issueKey string) ([]*models.FollowupNotification, error) {
	return c.notifications.ListFollowups(ctx, issueKey)
}

// CancelPendingFollowups cancels the ticket's open reminders and returns how many changed
func (c *Chaser) CancelPendingFollowups(ctx context.Context, issueKey, reason string) (int, error) {
	cancelled, err := c.notifications.CancelFollowups(ctx, issueKey, reason)
	if err != nil {
		return 0, err
	}
	c.logger.Info().
		Str("issue_key", issueKey).
		Str("reason", reason).
		Int("cancelled", cancelled).
		Msg("Follow-ups cancelled")
	return cancelled, nil
}
