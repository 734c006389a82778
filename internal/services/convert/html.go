package convert

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"
)

var (
	tagPattern   = regexp.MustCompile(`<[^>]*>`)
	spacePattern = regexp.MustCompile(`\s+`)
	cdataPattern = regexp.MustCompile(`(?s)<!\[CDATA\[(.*?)\]\]>`)
)

// Converter turns remote document formats into markdown
type Converter struct {
	markdown *md.Converter
	logger   arbor.ILogger
}

// NewConverter creates a converter. Tables are emitted as GitHub flavoured
// markdown tables so the table splitter can see them.
func NewConverter(logger arbor.ILogger) *Converter {
	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())

	return &Converter{
		markdown: converter,
		logger:   logger,
	}
}

// HTMLToMarkdown converts html, falling back to the stripped text when the
// conversion fails or produces nothing
func (c *Converter) HTMLToMarkdown(htmlContent string) string {
	if strings.TrimSpace(htmlContent) == "" {
		return ""
	}

	converted, err := c.markdown.ConvertString(htmlContent)
	if err != nil {
		c.logger.Warn().Err(err).Str("fallback", "stripHTMLTags").Msg("HTML to markdown conversion failed, using fallback")
		return stripHTMLTags(htmlContent)
	}

	if strings.TrimSpace(converted) == "" {
		c.logger.Warn().
			Int("html_length", len(htmlContent)).
			Msg("HTML to markdown conversion produced empty output, applying fallback strip")
		return stripHTMLTags(htmlContent)
	}

	return converted
}

// ConfluenceToMarkdown converts a page body in Confluence storage format
func (c *Converter) ConfluenceToMarkdown(storage string) (string, error) {
	cleaned, err := CleanConfluenceStorage(storage)
	if err != nil {
		return "", err
	}
	return c.HTMLToMarkdown(cleaned), nil
}

// CleanConfluenceStorage rewrites Confluence storage format into plain HTML.
// Code macros become pre blocks, panel style macros keep their body, and every
// other macro, script and style is dropped.
func CleanConfluenceStorage(storage string) (string, error) {
	// The HTML parser reads CDATA as a comment, which would lose code macro bodies
	storage = cdataPattern.ReplaceAllStringFunc(storage, func(m string) string {
		return html.EscapeString(cdataPattern.FindStringSubmatch(m)[1])
	})

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(storage))
	if err != nil {
		return "", fmt.Errorf("failed to parse storage format: %w", err)
	}

	doc.Find("script, style").Remove()

	doc.Find(`ac\:structured-macro[ac\:name="code"]`).Each(func(_ int, s *goquery.Selection) {
		code := s.Find(`ac\:plain-text-body`).Text()
		s.ReplaceWithHtml("<pre><code>" + html.EscapeString(code) + "</code></pre>")
	})

	doc.Find(`ac\:structured-macro`).Each(func(_ int, s *goquery.Selection) {
		body := s.ChildrenFiltered(`ac\:rich-text-body`)
		if body.Length() > 0 {
			s.ReplaceWithSelection(body.Contents())
			return
		}
		s.Remove()
	})

	doc.Find(`ac\:link`).Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Find(`ac\:plain-text-link-body, ac\:link-body`).Text())
		if text == "" {
			text, _ = s.Find(`ri\:page`).Attr("ri:content-title")
		}
		s.ReplaceWithHtml(html.EscapeString(text))
	})

	doc.Find(`ac\:image, ac\:emoticon, ac\:placeholder, ac\:parameter`).Remove()

	body, err := doc.Find("body").Html()
	if err != nil {
		return "", fmt.Errorf("failed to render cleaned storage format: %w", err)
	}
	return body, nil
}

// stripHTMLTags removes basic HTML tags for fallback cases
func stripHTMLTags(htmlStr string) string {
	stripped := tagPattern.ReplaceAllString(htmlStr, "")
	cleaned := spacePattern.ReplaceAllString(stripped, " ")
	return strings.TrimSpace(html.UnescapeString(cleaned))
}
