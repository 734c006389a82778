package convert

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedFormat is returned for file extensions with no converter
var ErrUnsupportedFormat = errors.New("unsupported document format")

// ToMarkdown converts a downloaded file by its extension
func (c *Converter) ToMarkdown(extension string, data []byte) (string, error) {
	switch strings.ToLower(strings.TrimPrefix(extension, ".")) {
	case "docx":
		return c.DocxToMarkdown(data)
	case "pdf":
		return c.PDFToMarkdown(data)
	case "html", "htm", "aspx":
		return c.HTMLToMarkdown(string(data)), nil
	case "md", "markdown", "txt":
		return string(data), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, extension)
	}
}
