package jira

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/common"
	"github.com/ternarybob/scribe/internal/interfaces"
	"github.com/ternarybob/scribe/internal/models"
	badgerstore "github.com/ternarybob/scribe/internal/storage/badger"
)

type fakeJiraClient struct {
	mu         sync.Mutex
	issues     []models.JiraIssue
	components map[string][]models.JiraIssue
	searches   []int
}

func (c *fakeJiraClient) SearchIssues(ctx context.Context, jql string, startAt, maxResults int) ([]models.JiraIssue, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.searches = append(c.searches, startAt)
	if startAt >= len(c.issues) {
		return nil, nil
	}
	end := startAt + maxResults
	if end > len(c.issues) {
		end = len(c.issues)
	}
	return append([]models.JiraIssue(nil), c.issues[startAt:end]...), nil
}

func (c *fakeJiraClient) ComponentIssuesWithChangelog(ctx context.Context, component string, maxResults int) ([]models.JiraIssue, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.components[component], nil
}

// fakeAnalyzer answers with a fixed reply per issue key, "No follow-up needed." otherwise
type fakeAnalyzer struct {
	mu      sync.Mutex
	replies map[string]string
	failing map[string]bool
	calls   []string
}

func newFakeAnalyzer() *fakeAnalyzer {
	return &fakeAnalyzer{replies: make(map[string]string), failing: make(map[string]bool)}
}

func (a *fakeAnalyzer) Prompt(issueJSON string) (string, error) {
	return "PROMPT\n" + issueJSON, nil
}

func (a *fakeAnalyzer) Analyze(ctx context.Context, prompt string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	key := issueKeyOf(prompt)
	a.calls = append(a.calls, key)
	if a.failing[key] {
		return "", errors.New("model unavailable")
	}
	if reply, ok := a.replies[key]; ok {
		return reply, nil
	}
	return "No follow-up needed.", nil
}

// issueKeyOf pulls the "key" value out of the rendered payload
func issueKeyOf(prompt string) string {
	const marker = `"key": "`
	i := strings.Index(prompt, marker)
	if i < 0 {
		return ""
	}
	rest := prompt[i+len(marker):]
	if j := strings.Index(rest, `"`); j >= 0 {
		return rest[:j]
	}
	return ""
}

type recordedSummary struct {
	question  string
	date      string
	yesterday string
	tickets   int
}

type fakeProgressSummarizer struct {
	calls []recordedSummary
}

func (s *fakeProgressSummarizer) SummarizeProgress(ctx context.Context, question string, tickets []models.TicketState, yesterday, date string) (string, error) {
	s.calls = append(s.calls, recordedSummary{question: question, date: date, yesterday: yesterday, tickets: len(tickets)})
	return "Progress on " + date, nil
}

type sentMail struct {
	to      string
	subject string
	body    string
}

type fakeMailer struct {
	sent    []sentMail
	failing map[string]bool
}

func (m *fakeMailer) Send(ctx context.Context, to, subject, body string) error {
	if m.failing[to] {
		return errors.New("mailbox unavailable")
	}
	m.sent = append(m.sent, sentMail{to: to, subject: subject, body: body})
	return nil
}

func newTestStorage(t *testing.T) interfaces.StorageManager {
	t.Helper()
	manager, err := badgerstore.NewManager(arbor.NewLogger(), &common.BadgerConfig{Path: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { manager.Close() })
	return manager
}

// noSleep records page delays instead of waiting
type noSleep struct {
	delays []time.Duration
}

func (s *noSleep) sleep(ctx context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return nil
}

// failingTracking rejects upserts that set status, delegating everything else
type failingTracking struct {
	interfaces.TrackingStorage
	status models.IngestStatus
}

func (f *failingTracking) UpsertTracking(ctx context.Context, issueKey, project string, update models.TrackingUpdate) (*models.IngestTrackingRecord, error) {
	if update.IngestStatus != nil && *update.IngestStatus == f.status {
		return nil, errors.New("tracking store unavailable")
	}
	return f.TrackingStorage.UpsertTracking(ctx, issueKey, project, update)
}
