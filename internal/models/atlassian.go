package models

import "time"

// JiraIssue is the subset of a Jira issue the chaser and progress ingest work with
type JiraIssue struct {
	ID          string        `json:"id"`
	Key         string        `json:"key"`
	Summary     string        `json:"summary"`
	Description string        `json:"description"`
	Status      string        `json:"status"`
	Priority    string        `json:"priority"`
	Components  []string      `json:"components"`
	EpicLink    string        `json:"epic_link"`
	Created     time.Time     `json:"created"`
	Updated     time.Time     `json:"updated"`
	Comments    []JiraComment `json:"comments"`
	Changelog   []JiraHistory `json:"changelog,omitempty"`
}

// JiraComment represents a single issue comment
type JiraComment struct {
	ID      string    `json:"id"`
	Author  string    `json:"author"` // Display name of the commenter
	Body    string    `json:"body"`
	Created time.Time `json:"created"`
}

// JiraHistory is one changelog entry; all items share the same timestamp
type JiraHistory struct {
	Created time.Time        `json:"created"`
	Items   []JiraChangeItem `json:"items"`
}

// JiraChangeItem is a single field transition inside a changelog entry
type JiraChangeItem struct {
	Field      string `json:"field"`
	FromString string `json:"from_string"`
	ToString   string `json:"to_string"`
}

// ConfluencePage is a search hit from the Confluence CQL endpoint
type ConfluencePage struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	SpaceKey     string `json:"space_key"`
	LastModified string `json:"last_modified"`
}
