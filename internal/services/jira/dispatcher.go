package jira

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/common"
	"github.com/ternarybob/scribe/internal/interfaces"
	"github.com/ternarybob/scribe/internal/models"
)

// ErrNoAddress is returned when a recipient cannot be mapped to an email address
var ErrNoAddress = errors.New("no email address for recipient")

// DispatchResult counts one delivery run
type DispatchResult struct {
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}

// Dispatcher mails open reminders and marks them sent
type Dispatcher struct {
	notifications interfaces.NotificationStorage
	mailer        interfaces.Mailer
	recipients    map[string]string
	domain        string
	batchLimit    int
	now           func() time.Time
	logger        arbor.ILogger
}

// NewDispatcher creates a dispatcher delivering through mailer
func NewDispatcher(storage interfaces.StorageManager, mailer interfaces.Mailer, config common.NotifierConfig, logger arbor.ILogger) *Dispatcher {
	recipients := make(map[string]string, len(config.Recipients))
	for name, address := range config.Recipients {
		recipients[strings.ToLower(strings.TrimSpace(name))] = address
	}

	batchLimit := config.BatchLimit
	if batchLimit <= 0 {
		batchLimit = 50
	}

	return &Dispatcher{
		notifications: storage.NotificationStorage(),
		mailer:        mailer,
		recipients:    recipients,
		domain:        strings.TrimPrefix(config.Domain, "@"),
		batchLimit:    batchLimit,
		now:           time.Now,
		logger:        logger,
	}
}

// ResolveAddress maps a tagged recipient to an email address: an explicit mapping
// wins, a value that already is an address is used as is, and otherwise the name
// becomes first.last at the configured domain.
func (d *Dispatcher) ResolveAddress(recipient string) (string, error) {
	name := strings.TrimSpace(recipient)
	if address, ok := d.recipients[strings.ToLower(name)]; ok {
		return address, nil
	}
	if strings.Contains(name, "@") {
		return name, nil
	}
	if d.domain == "" || name == "" {
		return "", fmt.Errorf("%w: %q", ErrNoAddress, recipient)
	}
	local := strings.ToLower(strings.Join(strings.Fields(name), "."))
	return local + "@" + d.domain, nil
}

// Dispatch sends up to the batch limit of open reminders. A reminder that cannot
// be delivered stays open for the next run.
func (d *Dispatcher) Dispatch(ctx context.Context) (*DispatchResult, error) {
	pending, err := d.notifications.ListByStatus(ctx, models.FollowupStatusRequired, d.batchLimit)
	if err != nil {
		return nil, err
	}

	result := &DispatchResult{}
	for _, notification := range pending {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if err := d.send(ctx, notification); err != nil {
			result.Failed++
			d.logger.Warn().
				Err(err).
				Str("issue_key", notification.IssueKey).
				Str("recipient", notification.Recipient).
				Msg("Failed to send follow-up")
			continue
		}
		result.Sent++
	}

	d.logger.Info().
		Int("pending", len(pending)).
		Int("sent", result.Sent).
		Int("failed", result.Failed).
		Msg("Follow-up dispatch completed")
	return result, nil
}

func (d *Dispatcher) send(ctx context.Context, notification *models.FollowupNotification) error {
	address, err := d.ResolveAddress(notification.Recipient)
	if err != nil {
		return err
	}

	subject := notification.Summary.Subject
	if subject == "" {
		subject = "Follow-up on " + notification.IssueKey
	}
	if err := d.mailer.Send(ctx, address, subject, notification.Summary.Body); err != nil {
		return err
	}
	return d.notifications.MarkSent(ctx, notification.ID, d.now())
}
