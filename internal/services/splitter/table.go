package splitter

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultRowsPerChunk is the table row budget used when none is configured
const DefaultRowsPerChunk = 5

var headingLinePattern = regexp.MustCompile(`(?m)^(#{1,6})[ \t]+(.+)$`)

// tableInfo locates one markdown table by byte offsets in the source
type tableInfo struct {
	start     int
	end       int
	header    string
	separator string
	rows      []string
	title     string
}

// SplitMarkdownTables rewrites every markdown table in content as a run of smaller
// tables of at most rowsPerChunk data rows. Each sub-table repeats the header and
// separator and is introduced by a bold level-2 heading naming the table, so that
// the heading split keeps each part together.
func SplitMarkdownTables(content string, rowsPerChunk int) string {
	if strings.TrimSpace(content) == "" {
		return content
	}
	if rowsPerChunk <= 0 {
		rowsPerChunk = DefaultRowsPerChunk
	}

	tables := findTables(content)
	if len(tables) == 0 {
		return content
	}

	// Back to front so earlier offsets stay valid
	result := content
	for i := len(tables) - 1; i >= 0; i-- {
		table := tables[i]
		replacement := strings.Join(splitTable(table, rowsPerChunk), "\n\n")

		end := table.end
		if end > len(result) {
			end = len(result)
		} else if end > table.start && result[end-1] == '\n' {
			replacement += "\n"
		}
		result = result[:table.start] + replacement + result[end:]
	}

	return result
}

func findTables(content string) []tableInfo {
	lines := strings.Split(content, "\n")

	// offsets[k] is the byte offset where line k starts
	offsets := make([]int, len(lines)+1)
	for k, line := range lines {
		offsets[k+1] = offsets[k] + len(line) + 1
	}

	var tables []tableInfo
	i := 0
	for i < len(lines)-1 {
		header := strings.TrimSpace(lines[i])
		if strings.Count(header, "|") < 2 {
			i++
			continue
		}

		separator := strings.TrimSpace(lines[i+1])
		if !strings.Contains(separator, "|") || !strings.Contains(separator, "-") {
			i++
			continue
		}

		var rows []string
		j := i + 2
		for ; j < len(lines); j++ {
			row := strings.TrimSpace(lines[j])
			if !strings.Contains(row, "|") {
				break
			}
			// Rows with nothing between the pipes are dropped
			if strings.TrimSpace(strings.ReplaceAll(row, "|", "")) != "" {
				rows = append(rows, row)
			}
		}

		if len(rows) == 0 {
			i++
			continue
		}

		tables = append(tables, tableInfo{
			start:     offsets[i],
			end:       offsets[j],
			header:    header,
			separator: separator,
			rows:      rows,
			title:     lastHeading(content[:offsets[i]]),
		})
		i = j
	}

	return tables
}

// lastHeading returns the text of the last markdown heading in before, or ""
func lastHeading(before string) string {
	if strings.TrimSpace(before) == "" {
		return ""
	}
	matches := headingLinePattern.FindAllStringSubmatch(before, -1)
	if len(matches) == 0 {
		return ""
	}
	return strings.TrimSpace(matches[len(matches)-1][2])
}

func splitTable(table tableInfo, rowsPerChunk int) []string {
	title := table.title
	if title == "" {
		title = "Table"
	}

	total := (len(table.rows) + rowsPerChunk - 1) / rowsPerChunk
	chunks := make([]string, 0, total)
	for part := 0; part < total; part++ {
		from := part * rowsPerChunk
		to := from + rowsPerChunk
		if to > len(table.rows) {
			to = len(table.rows)
		}

		heading := fmt.Sprintf("**%s**", title)
		if total > 1 {
			heading = fmt.Sprintf("**%s - Part %d**", title, part+1)
		}

		var b strings.Builder
		b.WriteString("## ")
		b.WriteString(heading)
		b.WriteString("\n\n")
		b.WriteString(table.header)
		b.WriteString("\n")
		b.WriteString(table.separator)
		b.WriteString("\n")
		b.WriteString(strings.Join(table.rows[from:to], "\n"))
		chunks = append(chunks, b.String())
	}
	return chunks
}
