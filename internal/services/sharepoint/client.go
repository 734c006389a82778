package sharepoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/common"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// ErrNotConfigured is returned when no site URL is configured
var ErrNotConfigured = errors.New("sharepoint site url is not configured")

// maxDownloadBytes bounds a single file download
const maxDownloadBytes = 100 << 20

// File is a document in a SharePoint library
type File struct {
	Name              string `json:"Name"`
	ServerRelativeURL string `json:"ServerRelativeUrl"`
	UniqueID          string `json:"UniqueId"`
	TimeLastModified  string `json:"TimeLastModified"`
}

// Folder is a SharePoint folder
type Folder struct {
	Name              string `json:"Name"`
	ServerRelativeURL string `json:"ServerRelativeUrl"`
}

// Client talks to the SharePoint REST API of one site
type Client struct {
	siteURL    string
	origin     string
	httpClient *http.Client
	logger     arbor.ILogger
}

// NewClient creates a client. A configured access token is used as is; otherwise
// tokens come from the Azure AD client credentials flow.
func NewClient(config common.SharePointConfig, logger arbor.ILogger) (*Client, error) {
	if config.SiteURL == "" {
		return nil, ErrNotConfigured
	}

	site, err := url.Parse(strings.TrimRight(config.SiteURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid sharepoint site url: %w", err)
	}
	origin := site.Scheme + "://" + site.Host

	ctx := context.Background()
	var httpClient *http.Client
	if config.AccessToken != "" {
		httpClient = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: config.AccessToken}))
	} else {
		tokenURL := config.TokenURL
		if tokenURL == "" {
			tokenURL = fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/token", config.TenantID)
		}
		credentials := &clientcredentials.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			TokenURL:     tokenURL,
			Scopes:       []string{origin + "/.default"},
		}
		httpClient = credentials.Client(ctx)
	}
	httpClient.Timeout = 60 * time.Second

	return &Client{
		siteURL:    site.String(),
		origin:     origin,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// FileURL is the browser URL of a file and the identity of its stored chunks
func (c *Client) FileURL(file File) string {
	return c.origin + escapePath(file.ServerRelativeURL) + "?web=1"
}

// Files lists the files directly inside folder
func (c *Client) Files(ctx context.Context, folder string) ([]File, error) {
	var response struct {
		Value []File `json:"value"`
	}
	if err := c.getJSON(ctx, folderEndpoint(folder, "Files"), &response); err != nil {
		return nil, fmt.Errorf("failed to list files of %s: %w", folder, err)
	}
	return response.Value, nil
}

// Folders lists the subfolders directly inside folder
func (c *Client) Folders(ctx context.Context, folder string) ([]Folder, error) {
	var response struct {
		Value []Folder `json:"value"`
	}
	if err := c.getJSON(ctx, folderEndpoint(folder, "Folders"), &response); err != nil {
		return nil, fmt.Errorf("failed to list folders of %s: %w", folder, err)
	}
	return response.Value, nil
}

// Download returns the raw content of a file
func (c *Client) Download(ctx context.Context, uniqueID string) ([]byte, error) {
	endpoint := fmt.Sprintf("/_api/web/GetFileById('%s')/$value", url.PathEscape(uniqueID))
	resp, err := c.do(ctx, endpoint, "*/*")
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", uniqueID, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", uniqueID, err)
	}
	return data, nil
}

func folderEndpoint(folder, collection string) string {
	quoted := strings.ReplaceAll(folder, "'", "''")
	return fmt.Sprintf("/_api/web/GetFolderByServerRelativeUrl('%s')/%s", escapePath(quoted), collection)
}

func (c *Client) getJSON(ctx context.Context, endpoint string, target interface{}) error {
	resp, err := c.do(ctx, endpoint, "application/json;odata=nometadata")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// do issues a GET and returns the response when the status is 2xx
func (c *Client) do(ctx context.Context, endpoint, accept string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.siteURL+endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", accept)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return resp, nil
}

// escapePath percent-encodes a server-relative path, keeping the slashes
func escapePath(path string) string {
	return (&url.URL{Path: path}).EscapedPath()
}
