package jira

import (
	"time"

	"github.com/ternarybob/scribe/internal/models"
)

const (
	// StatusOpen is the status every ticket starts in when its history is replayed
	StatusOpen = "Open"

	// maxOpenDescription bounds descriptions of tickets that are still open
	maxOpenDescription = 500
)

// Changelog field names as Jira reports them
const (
	fieldStatus      = "status"
	fieldSummary     = "summary"
	fieldDescription = "description"
	fieldComponent   = "Component"
	fieldEpicLink    = "Epic Link"
)

type changePoint struct {
	day   time.Time
	state models.TicketState
}

// GroupIssuesByDate replays the changelog of every issue and returns, for each day
// from the issue's creation to its last recorded change, the ticket state on that
// day. Dates are keyed as YYYY-MM-DD.
func GroupIssuesByDate(issues []models.JiraIssue) map[string][]models.TicketState {
	byDate := make(map[string][]models.TicketState)

	for _, issue := range issues {
		points := replayIssue(issue)
		if len(points) == 0 {
			continue
		}

		last := points[len(points)-1].day
		idx := 0
		for day := points[0].day; !day.After(last); day = day.AddDate(0, 0, 1) {
			for idx+1 < len(points) && !points[idx+1].day.After(day) {
				idx++
			}
			key := day.Format(models.SnapshotDateLayout)
			byDate[key] = append(byDate[key], cloneState(points[idx].state))
		}
	}

	return byDate
}

// replayIssue builds the ticket's change points, oldest first. The first point is
// the creation date; later points are recorded once the ticket has left Open.
func replayIssue(issue models.JiraIssue) []changePoint {
	initial := initialValues(issue.Changelog)

	state := models.TicketState{
		ID:          issue.ID,
		Key:         issue.Key,
		Summary:     valueOr(initial, fieldSummary, issue.Summary),
		Status:      StatusOpen,
		Description: valueOr(initial, fieldDescription, issue.Description),
		Created:     issue.Created,
		Updated:     issue.Updated,
		Components:  append([]string(nil), issue.Components...),
		EpicLink:    valueOr(initial, fieldEpicLink, issue.EpicLink),
	}
	if component := initial[fieldComponent]; component != "" {
		state.Components = []string{component}
	}

	points := []changePoint{{day: dayOf(issue.Created), state: cloneState(state)}}

	for _, history := range issue.Changelog {
		state.Updated = history.Created
		for _, item := range history.Items {
			switch item.Field {
			case fieldStatus:
				state.Status = item.ToString
			case fieldSummary:
				state.Summary = item.ToString
			case fieldDescription:
				state.Description = item.ToString
			case fieldComponent:
				if item.ToString != "" {
					state.Components = []string{item.ToString}
				} else {
					state.Components = []string{}
				}
			case fieldEpicLink:
				state.EpicLink = item.ToString
			}
		}

		if state.Status == StatusOpen {
			state.Description = truncateOpenDescription(state.Description)
			continue
		}
		points = append(points, changePoint{day: dayOf(history.Created), state: cloneState(state)})
	}

	return points
}

// initialValues takes the first fromString seen for every field
func initialValues(changelog []models.JiraHistory) map[string]string {
	initial := make(map[string]string)
	for _, history := range changelog {
		for _, item := range history.Items {
			if _, seen := initial[item.Field]; !seen {
				initial[item.Field] = item.FromString
			}
		}
	}
	return initial
}

func valueOr(initial map[string]string, field, fallback string) string {
	if value, ok := initial[field]; ok && value != "" {
		return value
	}
	return fallback
}

func truncateOpenDescription(description string) string {
	runes := []rune(description)
	if len(runes) <= maxOpenDescription {
		return description
	}
	return string(runes[:maxOpenDescription]) + "\ncontinued..."
}

// dayOf is the calendar date of t in its own zone, as midnight UTC
func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func cloneState(state models.TicketState) models.TicketState {
	state.Components = append([]string(nil), state.Components...)
	state.Comments = append([]string(nil), state.Comments...)
	return state
}
