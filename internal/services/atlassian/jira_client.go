package atlassian

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	jira "github.com/andygrunwald/go-jira"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/common"
	"github.com/ternarybob/scribe/internal/models"
)

// EpicLinkField is the custom field Jira Server uses for the epic link
const EpicLinkField = "customfield_10008"

// jiraTimeLayout is how Jira renders comment and changelog timestamps
const jiraTimeLayout = "2006-01-02T15:04:05.000-0700"

var issueFields = []string{
	"summary", "status", "priority", "description", "created", "updated",
	"components", "comment", EpicLinkField,
}

// JiraClient wraps go-jira with the searches the chaser and progress ingest need
type JiraClient struct {
	client *jira.Client
	logger arbor.ILogger
}

// NewJiraClient creates a client. A username selects basic auth with the token
// as password; otherwise the token is sent as a bearer token.
func NewJiraClient(config common.JiraConfig, logger arbor.ILogger) (*JiraClient, error) {
	if config.BaseURL == "" {
		return nil, ErrNotConfigured
	}

	var httpClient *http.Client
	if config.Username != "" {
		tp := jira.BasicAuthTransport{
			Username: config.Username,
			Password: config.Token,
		}
		httpClient = tp.Client()
	} else {
		tp := jira.BearerAuthTransport{
			Token: config.Token,
		}
		httpClient = tp.Client()
	}
	httpClient.Timeout = 60 * time.Second

	client, err := jira.NewClient(httpClient, config.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create jira client: %w", err)
	}

	return &JiraClient{
		client: client,
		logger: logger,
	}, nil
}

// SearchIssues runs jql and returns one page of issues with their comments
func (c *JiraClient) SearchIssues(ctx context.Context, jql string, startAt, maxResults int) ([]models.JiraIssue, error) {
	issues, resp, err := c.client.Issue.SearchWithContext(ctx, jql, &jira.SearchOptions{
		StartAt:    startAt,
		MaxResults: maxResults,
		Fields:     issueFields,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search jira issues: %w (status: %d)", err, statusOf(resp))
	}

	result := make([]models.JiraIssue, 0, len(issues))
	for i := range issues {
		result = append(result, convertIssue(&issues[i]))
	}
	return result, nil
}

// ComponentIssuesWithChangelog returns the component's issues with their full changelog
func (c *JiraClient) ComponentIssuesWithChangelog(ctx context.Context, component string, maxResults int) ([]models.JiraIssue, error) {
	jql := fmt.Sprintf(`component = "%s" ORDER BY status DESC`, component)
	issues, resp, err := c.client.Issue.SearchWithContext(ctx, jql, &jira.SearchOptions{
		MaxResults: maxResults,
		Fields:     issueFields,
		Expand:     "changelog",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch issues of component %s: %w (status: %d)", component, err, statusOf(resp))
	}

	c.logger.Debug().
		Str("component", component).
		Int("issues", len(issues)).
		Msg("Fetched component issues with changelog")

	result := make([]models.JiraIssue, 0, len(issues))
	for i := range issues {
		result = append(result, convertIssue(&issues[i]))
	}
	return result, nil
}

func statusOf(resp *jira.Response) int {
	if resp == nil || resp.Response == nil {
		return 0
	}
	return resp.StatusCode
}

func convertIssue(issue *jira.Issue) models.JiraIssue {
	result := models.JiraIssue{
		ID:  issue.ID,
		Key: issue.Key,
	}

	fields := issue.Fields
	if fields != nil {
		result.Summary = fields.Summary
		result.Description = fields.Description
		result.Created = time.Time(fields.Created)
		result.Updated = time.Time(fields.Updated)
		if fields.Status != nil {
			result.Status = fields.Status.Name
		}
		if fields.Priority != nil {
			result.Priority = fields.Priority.Name
		}
		for _, component := range fields.Components {
			if component != nil {
				result.Components = append(result.Components, component.Name)
			}
		}
		if epic, ok := fields.Unknowns[EpicLinkField].(string); ok {
			result.EpicLink = epic
		}
		if fields.Comments != nil {
			for _, comment := range fields.Comments.Comments {
				if comment == nil {
					continue
				}
				result.Comments = append(result.Comments, models.JiraComment{
					ID:      comment.ID,
					Author:  comment.Author.DisplayName,
					Body:    comment.Body,
					Created: parseJiraTime(comment.Created),
				})
			}
		}
	}

	if issue.Changelog != nil {
		for _, history := range issue.Changelog.Histories {
			entry := models.JiraHistory{Created: parseJiraTime(history.Created)}
			for _, item := range history.Items {
				entry.Items = append(entry.Items, models.JiraChangeItem{
					Field:      item.Field,
					FromString: item.FromString,
					ToString:   item.ToString,
				})
			}
			result.Changelog = append(result.Changelog, entry)
		}
		sort.SliceStable(result.Changelog, func(i, j int) bool {
			return result.Changelog[i].Created.Before(result.Changelog[j].Created)
		})
	}

	return result
}

// parseJiraTime accepts Jira's millisecond layout and RFC 3339; anything else is zero
func parseJiraTime(value string) time.Time {
	value = strings.TrimSpace(value)
	for _, layout := range []string{jiraTimeLayout, time.RFC3339Nano} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}
