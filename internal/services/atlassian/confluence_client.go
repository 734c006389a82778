package atlassian

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/common"
	"github.com/ternarybob/scribe/internal/models"
)

// ErrNotConfigured is returned when a client is built without a base URL
var ErrNotConfigured = errors.New("atlassian base url is not configured")

// ConfluenceClient reads pages from the Confluence REST API
type ConfluenceClient struct {
	baseURL    string
	token      string
	username   string
	pageLimit  int
	maxPages   int
	httpClient *http.Client
	logger     arbor.ILogger
}

// NewConfluenceClient creates a client. The token is sent as a bearer token, or as
// the basic auth password when a username is configured.
func NewConfluenceClient(config common.ConfluenceConfig, logger arbor.ILogger) (*ConfluenceClient, error) {
	if config.BaseURL == "" {
		return nil, ErrNotConfigured
	}

	pageLimit := config.PageLimit
	if pageLimit <= 0 {
		pageLimit = 100
	}
	maxPages := config.MaxPages
	if maxPages <= 0 {
		maxPages = 1500
	}

	return &ConfluenceClient{
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		token:      config.Token,
		username:   config.Username,
		pageLimit:  pageLimit,
		maxPages:   maxPages,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		logger:     logger,
	}, nil
}

// BaseURL returns the configured Confluence base URL without a trailing slash
func (c *ConfluenceClient) BaseURL() string {
	return c.baseURL
}

// PageURL is the browser URL of a page and the identity of its stored chunks
func (c *ConfluenceClient) PageURL(pageID string) string {
	return fmt.Sprintf("%s/pages/viewpage.action?pageId=%s", c.baseURL, pageID)
}

type searchResponse struct {
	Results []struct {
		Content struct {
			ID      string `json:"id"`
			Title   string `json:"title"`
			Version struct {
				When string `json:"when"`
			} `json:"version"`
			Space struct {
				Key string `json:"key"`
			} `json:"space"`
		} `json:"content"`
		LastModified string `json:"lastModified"`
	} `json:"results"`
	Size      int `json:"size"`
	TotalSize int `json:"totalSize"`
}

// ListPages lists the pages of a space through CQL search, one page of results at
// a time, up to the configured maximum
func (c *ConfluenceClient) ListPages(ctx context.Context, spaceKey string) ([]models.ConfluencePage, error) {
	var pages []models.ConfluencePage

	for start := 0; len(pages) < c.maxPages; {
		limit := c.pageLimit
		if remaining := c.maxPages - len(pages); remaining < limit {
			limit = remaining
		}

		query := url.Values{}
		query.Set("cql", fmt.Sprintf("space=%s AND type=page", spaceKey))
		query.Set("start", strconv.Itoa(start))
		query.Set("limit", strconv.Itoa(limit))
		query.Set("expand", "content.version,content.space")

		var response searchResponse
		if err := c.getJSON(ctx, "/rest/api/search", query, &response); err != nil {
			return nil, fmt.Errorf("failed to search space %s: %w", spaceKey, err)
		}

		for _, result := range response.Results {
			lastModified := result.LastModified
			if lastModified == "" {
				lastModified = result.Content.Version.When
			}
			space := result.Content.Space.Key
			if space == "" {
				space = spaceKey
			}
			pages = append(pages, models.ConfluencePage{
				ID:           result.Content.ID,
				Title:        result.Content.Title,
				SpaceKey:     space,
				LastModified: lastModified,
			})
		}

		c.logger.Debug().
			Str("space", spaceKey).
			Int("start", start).
			Int("results", len(response.Results)).
			Msg("Fetched Confluence search page")

		if len(response.Results) < limit {
			break
		}
		start += len(response.Results)
	}

	if len(pages) > c.maxPages {
		pages = pages[:c.maxPages]
	}
	return pages, nil
}

// PageContent returns the page body in storage format
func (c *ConfluenceClient) PageContent(ctx context.Context, pageID string) (string, error) {
	query := url.Values{}
	query.Set("expand", "body.storage")

	var response struct {
		Body struct {
			Storage struct {
				Value string `json:"value"`
			} `json:"storage"`
		} `json:"body"`
	}
	if err := c.getJSON(ctx, "/rest/api/content/"+url.PathEscape(pageID), query, &response); err != nil {
		return "", fmt.Errorf("failed to fetch page %s: %w", pageID, err)
	}
	return response.Body.Storage.Value, nil
}

func (c *ConfluenceClient) getJSON(ctx context.Context, path string, query url.Values, target interface{}) error {
	fullURL := c.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.username != "" {
		req.SetBasicAuth(c.username, c.token)
	} else if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, truncateString(string(body), 200))
	}

	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// truncateString truncates long strings with ellipsis
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
