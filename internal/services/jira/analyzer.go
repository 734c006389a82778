package jira

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ternarybob/scribe/internal/models"
)

// NoFollowupMarker is matched case-insensitively against the analyzer reply
const NoFollowupMarker = "no follow-up"

// ParseFollowups reads the analyzer reply. A reply mentioning "no follow-up"
// yields no directives; anything else must be a JSON array of directives,
// optionally wrapped in a markdown code fence.
func ParseFollowups(reply string) ([]models.FollowupDirective, error) {
	if strings.Contains(strings.ToLower(reply), NoFollowupMarker) {
		return nil, nil
	}

	payload := stripCodeFence(strings.TrimSpace(reply))
	start := strings.Index(payload, "[")
	end := strings.LastIndex(payload, "]")
	if start < 0 || end < start {
		return nil, fmt.Errorf("reply is not a JSON array: %s", truncate(reply, 120))
	}

	var directives []models.FollowupDirective
	if err := json.Unmarshal([]byte(payload[start:end+1]), &directives); err != nil {
		return nil, fmt.Errorf("failed to parse follow-up directives: %w", err)
	}

	result := directives[:0]
	for _, directive := range directives {
		if strings.TrimSpace(directive.Recipient) == "" {
			continue
		}
		result = append(result, directive)
	}
	return result, nil
}

func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if newline := strings.Index(s, "\n"); newline >= 0 {
		s = s[newline+1:]
	} else {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSpace(s)
	return strings.TrimSpace(strings.TrimSuffix(s, "```"))
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
