package search

import (
	"strings"
	"unicode"
)

// TokenType represents the type of a query token
type TokenType int

const (
	// TokenTypeTerm is a bare word
	TokenTypeTerm TokenType = iota
	// TokenTypePhrase is a quoted phrase
	TokenTypePhrase
	// TokenTypeQualifier is a key:value filter
	TokenTypeQualifier
)

// Token represents a parsed token from the query
type Token struct {
	Value    string
	Type     TokenType
	Required bool // Prefixed with +
}

// Query is a parsed search request. Text is embedded for similarity ranking;
// Required phrases and the qualifiers filter the ranked chunks.
type Query struct {
	Text     string
	Required []string
	Source   string // source:confluence|sharepoint
	Scope    string // scope:<space key or folder>
	Title    string // title:<substring>
}

// QueryParser handles parsing of Google-style queries.
// Stateless parser that can be reused across multiple queries
type QueryParser struct{}

// NewQueryParser creates a new query parser instance
func NewQueryParser() *QueryParser {
	return &QueryParser{}
}

// Parse tokenizes query and splits it into ranking text and filters
func (p *QueryParser) Parse(query string) Query {
	var parsed Query
	var text []string

	for _, token := range p.Tokenize(query) {
		if token.Type == TokenTypeQualifier {
			key, value := p.SplitQualifier(token.Value)
			switch strings.ToLower(key) {
			case "source", "type", "document_type":
				parsed.Source = strings.ToLower(value)
			case "scope", "space", "folder":
				parsed.Scope = value
			case "title":
				parsed.Title = value
			default:
				// Unknown qualifiers are searched as text
				text = append(text, token.Value)
			}
			continue
		}

		text = append(text, token.Value)
		if token.Required {
			parsed.Required = append(parsed.Required, token.Value)
		}
	}

	parsed.Text = strings.Join(text, " ")
	return parsed
}

// Tokenize breaks a query string into tokens, respecting quotes and operators.
// Handles:
// - Quoted phrases: "cat on mat" → single PHRASE token
// - Required terms: +cat → TERM token with Required=true
// - Qualifiers: source:confluence → QUALIFIER token
// - Unicode: rune-safe iteration
func (p *QueryParser) Tokenize(query string) []Token {
	var tokens []Token
	var current strings.Builder
	var inQuote bool
	var escaped bool
	var required bool

	for _, ch := range strings.TrimSpace(query) {
		if escaped {
			current.WriteRune(ch)
			escaped = false
			continue
		}

		if ch == '\\' && inQuote {
			escaped = true
			continue
		}

		if ch == '"' {
			if inQuote {
				if current.Len() > 0 {
					tokens = append(tokens, Token{
						Value:    current.String(),
						Type:     TokenTypePhrase,
						Required: required,
					})
					current.Reset()
				}
				inQuote = false
				required = false
			} else {
				if current.Len() > 0 {
					p.flushTerm(&tokens, &current, &required)
				}
				inQuote = true
			}
			continue
		}

		if inQuote {
			current.WriteRune(ch)
			continue
		}

		if ch == '+' && current.Len() == 0 {
			required = true
			continue
		}

		if unicode.IsSpace(ch) {
			if current.Len() > 0 {
				p.flushTerm(&tokens, &current, &required)
			}
			continue
		}

		current.WriteRune(ch)
	}

	if current.Len() > 0 {
		if inQuote {
			// Unclosed quote
			tokens = append(tokens, Token{
				Value:    current.String(),
				Type:     TokenTypePhrase,
				Required: required,
			})
		} else {
			p.flushTerm(&tokens, &current, &required)
		}
	}

	return tokens
}

func (p *QueryParser) flushTerm(tokens *[]Token, current *strings.Builder, required *bool) {
	value := current.String()
	tokenType := TokenTypeTerm
	if p.IsQualifier(value) {
		tokenType = TokenTypeQualifier
	}

	*tokens = append(*tokens, Token{
		Value:    value,
		Type:     tokenType,
		Required: *required,
	})

	current.Reset()
	*required = false
}

// IsQualifier checks for a single key:value pair with an alphanumeric key
func (p *QueryParser) IsQualifier(token string) bool {
	colonIdx := strings.Index(token, ":")
	if colonIdx <= 0 || colonIdx == len(token)-1 {
		return false
	}
	if strings.Count(token, ":") > 1 {
		return false
	}

	for _, ch := range token[:colonIdx] {
		if !unicode.IsLetter(ch) && !unicode.IsDigit(ch) && ch != '_' {
			return false
		}
	}
	return true
}

// SplitQualifier splits "source:confluence" into ("source", "confluence")
func (p *QueryParser) SplitQualifier(qualifier string) (string, string) {
	parts := strings.SplitN(qualifier, ":", 2)
	if len(parts) != 2 {
		return "", ""
	}
	return parts[0], parts[1]
}
