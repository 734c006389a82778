package pdf

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/models"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

const (
	fontFamily = "Arial"
	fontSize   = 9.0
	lineHeight = 5.0
	margin     = 10.0
)

// Service renders markdown reports to PDF
type Service struct {
	markdown goldmark.Markdown
	logger   arbor.ILogger
}

// NewService creates a new PDF service
func NewService(logger arbor.ILogger) *Service {
	return &Service{
		markdown: goldmark.New(goldmark.WithExtensions(extension.Table, extension.Strikethrough)),
		logger:   logger,
	}
}

// ProgressReport renders the daily summaries of a component newest first.
// rows are ordered by date ascending, as GetAllGroupHistory returns them.
func (s *Service) ProgressReport(component string, rows []*models.ProgressSnapshot) ([]byte, error) {
	var md strings.Builder
	fmt.Fprintf(&md, "# Progress: %s\n\n", component)

	written := 0
	for i := len(rows) - 1; i >= 0; i-- {
		row := rows[i]
		if !row.HasSummary {
			continue
		}
		fmt.Fprintf(&md, "## %s\n\n%s\n\n", row.SnapshotDate, strings.TrimSpace(row.Summary))
		written++
	}
	if written == 0 {
		md.WriteString("No summaries recorded.\n")
	}

	return s.ConvertMarkdownToPDF(md.String(), "Progress: "+component)
}

// ConvertMarkdownToPDF converts markdown content to a PDF byte slice
func (s *Service) ConvertMarkdownToPDF(markdown, title string) ([]byte, error) {
	s.logger.Debug().
		Int("markdown_len", len(markdown)).
		Str("title", title).
		Msg("Converting markdown to PDF")

	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetMargins(margin, margin, margin)
	doc.SetAutoPageBreak(true, margin)
	doc.SetTitle(title, true)
	doc.SetCreator("scribe", true)
	doc.AddPage()
	doc.SetFont(fontFamily, "", fontSize)

	source := []byte(markdown)
	r := &renderer{
		pdf:       doc,
		source:    source,
		translate: doc.UnicodeTranslatorFromDescriptor(""),
	}
	if err := ast.Walk(s.markdown.Parser().Parse(text.NewReader(source)), r.walk); err != nil {
		return nil, fmt.Errorf("failed to render markdown: %w", err)
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		s.logger.Error().Err(err).Msg("Failed to generate PDF output")
		return nil, fmt.Errorf("failed to generate PDF output: %w", err)
	}

	s.logger.Debug().Int("pdf_size", buf.Len()).Msg("PDF generated")
	return buf.Bytes(), nil
}

// renderer writes goldmark nodes onto an fpdf document
type renderer struct {
	pdf       *fpdf.Fpdf
	source    []byte
	translate func(string) string
	bold      bool
	italic    bool
	listLevel int
}

func (r *renderer) setFont() {
	style := ""
	if r.bold {
		style += "B"
	}
	if r.italic {
		style += "I"
	}
	r.pdf.SetFont(fontFamily, style, fontSize)
}

func (r *renderer) write(s string) {
	r.pdf.Write(lineHeight, r.translate(s))
}

func (r *renderer) walk(n ast.Node, entering bool) (ast.WalkStatus, error) {
	switch node := n.(type) {
	case *ast.Heading:
		if entering {
			r.pdf.Ln(4)
			r.pdf.SetFont(fontFamily, "B", headingSize(node.Level))
		} else {
			r.pdf.Ln(8)
			r.setFont()
		}
	case *ast.Paragraph:
		if !entering && r.listLevel == 0 {
			r.pdf.Ln(7)
		}
	case *ast.TextBlock:
		// list item content; the item itself breaks the line
	case *ast.Text:
		if entering {
			r.write(string(node.Segment.Value(r.source)))
			if node.HardLineBreak() || node.SoftLineBreak() {
				r.pdf.Ln(lineHeight)
			}
		}
	case *ast.String:
		if entering {
			r.write(string(node.Value))
		}
	case *ast.Emphasis:
		if node.Level == 2 {
			r.bold = entering
		} else {
			r.italic = entering
		}
		r.setFont()
	case *ast.CodeSpan:
		if entering {
			r.pdf.SetFont("Courier", "", fontSize)
			r.write(plainText(node, r.source))
			r.setFont()
		}
		return ast.WalkSkipChildren, nil
	case *ast.FencedCodeBlock:
		if entering {
			r.codeBlock(node.Lines())
		}
		return ast.WalkSkipChildren, nil
	case *ast.CodeBlock:
		if entering {
			r.codeBlock(node.Lines())
		}
		return ast.WalkSkipChildren, nil
	case *ast.List:
		if entering {
			r.listLevel++
		} else {
			r.listLevel--
			r.pdf.Ln(lineHeight + 2)
		}
	case *ast.ListItem:
		if entering {
			if node.PreviousSibling() != nil || r.listLevel > 1 {
				r.pdf.Ln(lineHeight)
			}
			r.pdf.SetX(margin + float64(r.listLevel)*5)
			r.write("- ")
		}
	case *ast.ThematicBreak:
		if entering {
			y := r.pdf.GetY() + 2
			width, _ := r.pdf.GetPageSize()
			r.pdf.Line(margin, y, width-margin, y)
			r.pdf.Ln(4)
		}
	case *ast.RawHTML:
		if entering && isLineBreak(node, r.source) {
			r.pdf.Ln(lineHeight)
		}
		return ast.WalkSkipChildren, nil
	case *extast.Table:
		if entering {
			r.table(node)
		}
		return ast.WalkSkipChildren, nil
	}
	return ast.WalkContinue, nil
}

func headingSize(level int) float64 {
	switch level {
	case 1:
		return 14
	case 2:
		return 12
	case 3:
		return 11
	default:
		return 10
	}
}

func (r *renderer) codeBlock(lines *text.Segments) {
	r.pdf.Ln(2)
	r.pdf.SetFont("Courier", "", fontSize)
	r.pdf.SetFillColor(245, 245, 245)
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		r.pdf.MultiCell(0, lineHeight, r.translate(strings.TrimRight(string(line.Value(r.source)), "\n")), "", "L", true)
	}
	r.pdf.SetFillColor(255, 255, 255)
	r.setFont()
	r.pdf.Ln(2)
}

// table draws equal-width bordered cells, growing each row to its tallest cell
func (r *renderer) table(n *extast.Table) {
	var rows [][]string
	var collect func(node ast.Node)
	collect = func(node ast.Node) {
		for child := node.FirstChild(); child != nil; child = child.NextSibling() {
			switch child.(type) {
			case *extast.TableHeader, *extast.TableRow:
				var cells []string
				for cell := child.FirstChild(); cell != nil; cell = cell.NextSibling() {
					cells = append(cells, plainText(cell, r.source))
				}
				rows = append(rows, cells)
			}
		}
	}
	collect(n)
	if len(rows) == 0 || len(rows[0]) == 0 {
		return
	}

	pageWidth, pageHeight := r.pdf.GetPageSize()
	colWidth := (pageWidth - 2*margin) / float64(len(rows[0]))
	cellLine := 4.0

	r.pdf.Ln(2)
	for i, row := range rows {
		if i == 0 {
			r.pdf.SetFont(fontFamily, "B", 8)
		} else {
			r.pdf.SetFont(fontFamily, "", 8)
		}

		lines := 1
		for _, cell := range row {
			lines = max(lines, len(r.pdf.SplitText(r.translate(cell), colWidth-2)))
		}
		height := float64(lines) * cellLine
		if r.pdf.GetY()+height > pageHeight-margin {
			r.pdf.AddPage()
		}

		x, y := margin, r.pdf.GetY()
		for j, cell := range row {
			cx := x + float64(j)*colWidth
			r.pdf.Rect(cx, y, colWidth, height, "D")
			r.pdf.SetXY(cx+1, y)
			r.pdf.MultiCell(colWidth-2, cellLine, r.translate(cell), "", "L", false)
		}
		r.pdf.SetXY(x, y+height)
	}
	r.setFont()
	r.pdf.Ln(4)
}

// plainText flattens inline children; <br> becomes a newline
func plainText(n ast.Node, source []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(child ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := child.(type) {
		case *ast.Text:
			b.Write(node.Segment.Value(source))
			if node.SoftLineBreak() || node.HardLineBreak() {
				b.WriteString("\n")
			}
		case *ast.String:
			b.Write(node.Value)
		case *ast.RawHTML:
			if isLineBreak(node, source) {
				b.WriteString("\n")
			}
		}
		return ast.WalkContinue, nil
	})
	return b.String()
}

func isLineBreak(n *ast.RawHTML, source []byte) bool {
	var raw strings.Builder
	for i := 0; i < n.Segments.Len(); i++ {
		segment := n.Segments.At(i)
		raw.Write(segment.Value(source))
	}
	tag := strings.ToLower(strings.ReplaceAll(raw.String(), " ", ""))
	return tag == "<br>" || tag == "<br/>"
}
