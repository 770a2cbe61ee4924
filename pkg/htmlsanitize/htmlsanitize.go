// Package htmlsanitize cleans instructor-authored content before it is stored.
package htmlsanitize

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	richPolicy  = newRichPolicy()
	plainPolicy = bluemonday.StrictPolicy()
)

func newRichPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowElements("table", "thead", "tbody", "tr", "th", "td")
	p.AllowAttrs("colspan", "rowspan").Matching(bluemonday.Integer).OnElements("td", "th")
	return p
}

// Sanitize keeps safe formatting markup (paragraphs, emphasis, lists, links, tables) and drops
// scripts, event handlers and javascript: URLs.
func Sanitize(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(richPolicy.Sanitize(s))
}

// PlainText strips every tag, for titles and names.
func PlainText(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(plainPolicy.Sanitize(s))
}

// PlainTextAll applies PlainText to each element and drops the ones that end up empty.
func PlainTextAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if clean := PlainText(v); clean != "" {
			out = append(out, clean)
		}
	}
	return out
}
