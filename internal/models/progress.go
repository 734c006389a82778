package models

import "time"

// SnapshotDateLayout is the layout of ProgressSnapshot.SnapshotDate
const SnapshotDateLayout = "2006-01-02"

// TicketState is the replayed state of one ticket on a given day
type TicketState struct {
	ID          string    `json:"id"`
	Key         string    `json:"key"`
	Summary     string    `json:"summary"`
	Status      string    `json:"status"`
	Description string    `json:"description"`
	Comments    []string  `json:"comments,omitempty"`
	Created     time.Time `json:"created"`
	Updated     time.Time `json:"updated"`
	Components  []string  `json:"components"`
	EpicLink    string    `json:"epic_link,omitempty"`
}

// ProgressSnapshot is the daily group history row for a component
type ProgressSnapshot struct {
	ID           string        `json:"id" badgerhold:"key"` // component|date
	Component    string        `json:"component" badgerhold:"index"`
	SnapshotDate string        `json:"snapshot_date"`
	Tickets      []TicketState `json:"tickets"`
	Summary      string        `json:"summary"`
	HasSummary   bool          `json:"has_summary"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// ProgressSnapshotID builds the composite key of a snapshot row
func ProgressSnapshotID(component, date string) string {
	return component + "|" + date
}
