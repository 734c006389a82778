package splitter

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// MaxSplitHeadingLevel is the deepest heading level that starts a new section
const MaxSplitHeadingLevel = 2

// SplitOnHeadings cuts markdown into sections at every top-level heading of level 1
// or 2. Headings stay at the top of their section. Headings nested in lists, block
// quotes or fenced code do not split.
func SplitOnHeadings(markdown string) []string {
	source := []byte(markdown)
	doc := goldmark.New().Parser().Parse(text.NewReader(source))

	cuts := []int{0}
	for node := doc.FirstChild(); node != nil; node = node.NextSibling() {
		if node.Kind() != ast.KindHeading {
			continue
		}
		heading := node.(*ast.Heading)
		if heading.Level > MaxSplitHeadingLevel || heading.Lines().Len() == 0 {
			continue
		}

		start := lineStart(source, heading.Lines().At(0).Start)
		if start > cuts[len(cuts)-1] {
			cuts = append(cuts, start)
		}
	}
	cuts = append(cuts, len(source))

	var sections []string
	for i := 0; i < len(cuts)-1; i++ {
		section := strings.TrimSpace(string(source[cuts[i]:cuts[i+1]]))
		if section != "" {
			sections = append(sections, section)
		}
	}
	return sections
}

func lineStart(source []byte, pos int) int {
	if pos > len(source) {
		pos = len(source)
	}
	return bytes.LastIndexByte(source[:pos], '\n') + 1
}
