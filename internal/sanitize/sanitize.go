// Package sanitize converts model output to plain text for chat messages.
package sanitize

import (
	"bytes"
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
)

var (
	blockTagRegex      = regexp.MustCompile(`<br\s*/?>|</?p>|</?div>|</?pre>|</?h[1-6]>|</?[ou]l>|</li>`)
	listItemRegex      = regexp.MustCompile(`<li>`)
	multiNewlinesRegex = regexp.MustCompile(`\n\s*\n+`)
)

// Policy strips Markdown and HTML from text. It is safe for concurrent use.
type Policy struct {
	policy   *bluemonday.Policy
	markdown goldmark.Markdown
}

// NewTelegramPolicy creates a Policy producing text suitable for messages
// sent without a parse mode.
func NewTelegramPolicy() *Policy {
	return &Policy{
		policy:   bluemonday.StrictPolicy(),
		markdown: goldmark.New(),
	}
}

// SanitizeText renders Markdown, drops every tag and returns the trimmed text.
// List items become "- " lines. Input that fails to render is returned trimmed.
func (p *Policy) SanitizeText(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}

	var buf bytes.Buffer
	if err := p.markdown.Convert([]byte(text), &buf); err != nil {
		return strings.TrimSpace(text)
	}

	htmlText := listItemRegex.ReplaceAllString(buf.String(), "\n- ")
	htmlText = blockTagRegex.ReplaceAllString(htmlText, "\n")

	sanitized := p.policy.Sanitize(htmlText)
	sanitized = multiNewlinesRegex.ReplaceAllString(sanitized, "\n\n")
	sanitized = html.UnescapeString(sanitized)

	return strings.TrimSpace(sanitized)
}
