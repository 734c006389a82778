package convert

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"strconv"
	"strings"
)

const docxBodyPart = "word/document.xml"

// DocxToMarkdown converts a WordprocessingML document. Headings, bold runs,
// list paragraphs and tables survive; everything else becomes plain paragraphs.
func (c *Converter) DocxToMarkdown(data []byte) (string, error) {
	body, err := readDocxBody(data)
	if err != nil {
		return "", err
	}

	htmlContent, err := docxToHTML(body)
	if err != nil {
		return "", err
	}
	return c.HTMLToMarkdown(htmlContent), nil
}

func readDocxBody(data []byte) ([]byte, error) {
	archive, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("not a docx archive: %w", err)
	}

	for _, file := range archive.File {
		if file.Name != docxBodyPart {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", docxBodyPart, err)
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	return nil, fmt.Errorf("docx archive has no %s", docxBodyPart)
}

// docxWriter accumulates the HTML rendition while the document XML streams past
type docxWriter struct {
	out    strings.Builder
	inList bool

	// current paragraph
	style    string
	listItem bool
	para     strings.Builder

	// current run
	bold bool
	run  strings.Builder

	// open tables, innermost last; each is rows of cells
	tables [][][]string
	cell   *strings.Builder
}

func docxToHTML(body []byte) (string, error) {
	decoder := xml.NewDecoder(bytes.NewReader(body))
	w := &docxWriter{}

	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to read document xml: %w", err)
		}

		switch t := token.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				w.style = ""
				w.listItem = false
				w.para.Reset()
			case "pStyle":
				w.style = attr(t, "val")
			case "numPr":
				w.listItem = true
			case "r":
				w.bold = false
				w.run.Reset()
			case "b":
				v := attr(t, "val")
				w.bold = v == "" || (v != "0" && v != "false")
			case "t":
				var text string
				if err := decoder.DecodeElement(&text, &t); err != nil {
					return "", fmt.Errorf("failed to read text run: %w", err)
				}
				w.run.WriteString(html.EscapeString(text))
			case "tab", "br":
				w.run.WriteString(" ")
			case "tbl":
				w.closeList()
				w.tables = append(w.tables, nil)
			case "tr":
				if n := len(w.tables); n > 0 {
					w.tables[n-1] = append(w.tables[n-1], nil)
				}
			case "tc":
				w.cell = &strings.Builder{}
			}

		case xml.EndElement:
			switch t.Name.Local {
			case "r":
				w.endRun()
			case "p":
				w.endParagraph()
			case "tc":
				w.endCell()
			case "tbl":
				w.endTable()
			}
		}
	}

	w.closeList()
	return w.out.String(), nil
}

func (w *docxWriter) endRun() {
	text := w.run.String()
	if strings.TrimSpace(text) != "" && w.bold {
		text = "<strong>" + text + "</strong>"
	}
	w.para.WriteString(text)
	w.run.Reset()
}

func (w *docxWriter) endParagraph() {
	text := strings.TrimSpace(w.para.String())
	w.para.Reset()

	if len(w.tables) > 0 && w.cell != nil {
		if text != "" {
			if w.cell.Len() > 0 {
				w.cell.WriteString(" ")
			}
			w.cell.WriteString(text)
		}
		return
	}
	if text == "" {
		return
	}

	if level := headingLevel(w.style); level > 0 {
		w.closeList()
		fmt.Fprintf(&w.out, "<h%d>%s</h%d>\n", level, text, level)
		return
	}
	if w.listItem {
		if !w.inList {
			w.out.WriteString("<ul>\n")
			w.inList = true
		}
		fmt.Fprintf(&w.out, "<li>%s</li>\n", text)
		return
	}
	w.closeList()
	fmt.Fprintf(&w.out, "<p>%s</p>\n", text)
}

func (w *docxWriter) endCell() {
	n := len(w.tables)
	if n == 0 || w.cell == nil {
		return
	}
	rows := w.tables[n-1]
	if len(rows) == 0 {
		rows = append(rows, nil)
	}
	rows[len(rows)-1] = append(rows[len(rows)-1], w.cell.String())
	w.tables[n-1] = rows
	w.cell = nil
}

func (w *docxWriter) endTable() {
	n := len(w.tables)
	if n == 0 {
		return
	}
	rows := w.tables[n-1]
	w.tables = w.tables[:n-1]

	var b strings.Builder
	b.WriteString("<table>\n")
	for i, row := range rows {
		tag := "td"
		if i == 0 {
			tag = "th"
		}
		b.WriteString("<tr>")
		for _, cell := range row {
			fmt.Fprintf(&b, "<%s>%s</%s>", tag, cell, tag)
		}
		b.WriteString("</tr>\n")
	}
	b.WriteString("</table>\n")

	// A nested table collapses into its parent's cell
	if len(w.tables) > 0 {
		w.cell = &strings.Builder{}
		w.cell.WriteString(stripHTMLTags(b.String()))
		return
	}
	w.out.WriteString(b.String())
}

func (w *docxWriter) closeList() {
	if w.inList {
		w.out.WriteString("</ul>\n")
		w.inList = false
	}
}

// headingLevel maps paragraph style ids such as "Heading2" or "Title" to a level
func headingLevel(style string) int {
	normalized := strings.ToLower(strings.ReplaceAll(style, " ", ""))
	if normalized == "title" {
		return 1
	}
	if !strings.HasPrefix(normalized, "heading") {
		return 0
	}
	level, err := strconv.Atoi(strings.TrimPrefix(normalized, "heading"))
	if err != nil || level < 1 {
		return 0
	}
	if level > 6 {
		level = 6
	}
	return level
}

func attr(element xml.StartElement, local string) string {
	for _, a := range element.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}
