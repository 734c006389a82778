package convert

import (
	"archive/zip"
	"bytes"
	"strings"
	"testing"

	"github.com/go-pdf/fpdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

const confluenceStorage = `<h1>Setup</h1><p>Intro</p>` +
	`<ac:structured-macro ac:name="toc"><ac:parameter ac:name="maxLevel">2</ac:parameter></ac:structured-macro>` +
	`<ac:structured-macro ac:name="info"><ac:rich-text-body><p>Be careful</p></ac:rich-text-body></ac:structured-macro>` +
	`<ac:structured-macro ac:name="code"><ac:plain-text-body><![CDATA[go build ./...]]></ac:plain-text-body></ac:structured-macro>` +
	`<script>alert(1)</script>`

const documentXML = `<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>
<w:p><w:pPr><w:pStyle w:val="Heading1"/></w:pPr><w:r><w:t>Functional Spec</w:t></w:r></w:p>
<w:p><w:r><w:rPr><w:b/></w:rPr><w:t>Scope</w:t></w:r><w:r><w:t xml:space="preserve"> of the release.</w:t></w:r></w:p>
<w:p><w:pPr><w:numPr><w:ilvl w:val="0"/></w:numPr></w:pPr><w:r><w:t>First item</w:t></w:r></w:p>
<w:tbl>
<w:tr><w:tc><w:p><w:r><w:t>Name</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>Owner</w:t></w:r></w:p></w:tc></w:tr>
<w:tr><w:tc><w:p><w:r><w:t>api</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>core</w:t></w:r></w:p></w:tc></w:tr>
</w:tbl>
</w:body></w:document>`

func docxArchive(t *testing.T, documentXML string) []byte {
	t.Helper()
	var buf bytes.Buffer
	archive := zip.NewWriter(&buf)
	part, err := archive.Create("word/document.xml")
	require.NoError(t, err)
	_, err = part.Write([]byte(documentXML))
	require.NoError(t, err)
	require.NoError(t, archive.Close())
	return buf.Bytes()
}

func TestCleanConfluenceStorage(t *testing.T) {
	cleaned, err := CleanConfluenceStorage(confluenceStorage)
	require.NoError(t, err)

	assert.Contains(t, cleaned, "<h1>Setup</h1>")
	assert.Contains(t, cleaned, "<p>Be careful</p>")
	assert.Contains(t, cleaned, "<pre><code>go build ./...</code></pre>")
	assert.NotContains(t, cleaned, "alert")
	assert.NotContains(t, cleaned, "maxLevel")
	assert.NotContains(t, cleaned, "structured-macro")
}

func TestConfluenceToMarkdown(t *testing.T) {
	converter := NewConverter(arbor.NewLogger())

	markdown, err := converter.ConfluenceToMarkdown(confluenceStorage)
	require.NoError(t, err)

	assert.Contains(t, markdown, "# Setup")
	assert.Contains(t, markdown, "Be careful")
	assert.Contains(t, markdown, "go build ./...")
}

func TestHTMLToMarkdown(t *testing.T) {
	converter := NewConverter(arbor.NewLogger())

	assert.Equal(t, "", converter.HTMLToMarkdown("   "))
	assert.Contains(t, converter.HTMLToMarkdown("<h2>Owners</h2><p><strong>Team</strong> A</p>"), "## Owners")
	assert.Contains(t, converter.HTMLToMarkdown("<table><tr><th>Name</th></tr><tr><td>api</td></tr></table>"), "|")
}

func TestStripHTMLTags(t *testing.T) {
	assert.Equal(t, "a & b c", stripHTMLTags("<p>a &amp; b</p>\n\n<div>c</div>"))
}

func TestDocxToHTML(t *testing.T) {
	htmlContent, err := docxToHTML([]byte(documentXML))
	require.NoError(t, err)

	expected := "<h1>Functional Spec</h1>\n" +
		"<p><strong>Scope</strong> of the release.</p>\n" +
		"<ul>\n<li>First item</li>\n</ul>\n" +
		"<table>\n<tr><th>Name</th><th>Owner</th></tr>\n<tr><td>api</td><td>core</td></tr>\n</table>\n"
	assert.Equal(t, expected, htmlContent)
}

func TestDocxToMarkdown(t *testing.T) {
	converter := NewConverter(arbor.NewLogger())

	markdown, err := converter.DocxToMarkdown(docxArchive(t, documentXML))
	require.NoError(t, err)

	assert.Contains(t, markdown, "# Functional Spec")
	assert.Contains(t, markdown, "**Scope** of the release.")
	assert.Contains(t, markdown, "First item")
	assert.Contains(t, markdown, "api")

	_, err = converter.DocxToMarkdown([]byte("not a zip"))
	assert.Error(t, err)
}

func TestHeadingLevel(t *testing.T) {
	assert.Equal(t, 1, headingLevel("Title"))
	assert.Equal(t, 2, headingLevel("Heading2"))
	assert.Equal(t, 3, headingLevel("heading 3"))
	assert.Equal(t, 6, headingLevel("Heading9"))
	assert.Equal(t, 0, headingLevel("Normal"))
	assert.Equal(t, 0, headingLevel("HeadingX"))
}

func TestPDFToMarkdown(t *testing.T) {
	doc := fpdf.New("P", "mm", "A4", "")
	doc.AddPage()
	doc.SetFont("Helvetica", "", 12)
	doc.Cell(40, 10, "Quarterly report")
	var buf bytes.Buffer
	require.NoError(t, doc.Output(&buf))

	converter := NewConverter(arbor.NewLogger())
	markdown, err := converter.PDFToMarkdown(buf.Bytes())
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(markdown, "## Page 1"))
	assert.Contains(t, markdown, "Quarterly")

	_, err = converter.PDFToMarkdown([]byte("%PDF-broken"))
	assert.Error(t, err)
}

func TestToMarkdown(t *testing.T) {
	converter := NewConverter(arbor.NewLogger())

	markdown, err := converter.ToMarkdown(".md", []byte("# Notes"))
	require.NoError(t, err)
	assert.Equal(t, "# Notes", markdown)

	markdown, err = converter.ToMarkdown("HTML", []byte("<h1>Page</h1>"))
	require.NoError(t, err)
	assert.Contains(t, markdown, "# Page")

	_, err = converter.ToMarkdown("xlsx", []byte{})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}
