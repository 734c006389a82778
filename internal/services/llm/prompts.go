package llm

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Prompts holds the plain templates sent to the model. Placeholders are written
// as {name} and replaced verbatim.
type Prompts struct {
	PageSummary string `yaml:"page_summary"` // {title} {text}
	Chaser      string `yaml:"chaser"`       // {issue}
	Progress    string `yaml:"progress"`     // {question} {date} {tickets} {yesterday}
}

const defaultPageSummary = `Summarize the document below for a knowledge base index.
Write a short paragraph describing its purpose followed by bullet points of the key facts.
Output only the summary.

Title: {title}

<document>
{text}
</document>
`

const defaultChaser = `You help manage JIRA issues.

The issue below is JSON. Its comments are ordered oldest first. Each comment has
"comment_id", "author", "timestamp" (ISO8601) and "comment".
People are tagged in comments as [~username] or [~email].

<context>
{issue}
</context>

Decide for every person tagged in the comments (not the description) whether they still owe a reply:
- Only the most recent tag of each person counts.
- Follow up only when that tag asked them to act or answer.
- Do not follow up when they were only informed, or when they or anyone else answered in a later comment.

If nobody needs a follow-up reply with exactly "No follow-up needed."
Otherwise reply with a JSON list only, one object per person:
[
    {
        "recipient": "the tagged username or email",
        "subject": "[<Priority> Priority] <issue key> short subject",
        "body": "a polite reminder naming who asked, the ticket key, the requested action and a one line status",
        "reason": "why this person should reply",
        "comment_timestamp": "ISO8601 timestamp of the tagging comment",
        "comment_id": "id of the tagging comment"
    }
]
`

const defaultProgress = `Question: {question}
Date: {date}

Review the tickets below. Open tickets are planned only and have no work done.
Summarize concrete progress, issues, decisions and blockers, not the fact that a ticket changed.
Do not mention time estimates.

If a previous summary is given, write only what changed since then.
If a previous summary is given and nothing relevant changed, reply with "No current updates for <component>."
If no previous summary is given, write a full summary.

Use these sections in order, mostly bullet points:
Latest Summaries
Updates (grouped by date, each bullet naming the ticket key)
Archived (cancelled or dropped tickets only)

Tickets JSON:
{tickets}

Previous Summary:
{yesterday}
`

// DefaultPrompts returns the built-in templates
func DefaultPrompts() *Prompts {
	return &Prompts{
		PageSummary: defaultPageSummary,
		Chaser:      defaultChaser,
		Progress:    defaultProgress,
	}
}

// LoadPrompts reads overrides from a YAML file. Templates missing from the
// file keep their defaults; an empty path returns the defaults.
func LoadPrompts(path string) (*Prompts, error) {
	prompts := DefaultPrompts()
	if path == "" {
		return prompts, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompts file %s: %w", path, err)
	}

	var overrides Prompts
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("failed to parse prompts file %s: %w", path, err)
	}

	if overrides.PageSummary != "" {
		prompts.PageSummary = overrides.PageSummary
	}
	if overrides.Chaser != "" {
		prompts.Chaser = overrides.Chaser
	}
	if overrides.Progress != "" {
		prompts.Progress = overrides.Progress
	}
	return prompts, nil
}

// render replaces {key} placeholders; pairs are key, value, key, value...
func render(template string, pairs ...string) string {
	args := make([]string, 0, len(pairs))
	for i := 0; i+1 < len(pairs); i += 2 {
		args = append(args, "{"+pairs[i]+"}", pairs[i+1])
	}
	return strings.NewReplacer(args...).Replace(template)
}
