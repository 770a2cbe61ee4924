package htmlsanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeKeepsFormatting(t *testing.T) {
	in := "<p><strong>Bold</strong> and <em>italic</em></p>"
	assert.Equal(t, in, Sanitize(in))
	assert.Equal(t, "", Sanitize(""))
}

func TestSanitizeDropsScripts(t *testing.T) {
	assert.Equal(t, "<p>Hello</p>", Sanitize("<p>Hello</p><script>alert('xss')</script>"))
	assert.NotContains(t, Sanitize(`<a href="javascript:alert(1)">x</a>`), "javascript:")
}

func TestSanitizeKeepsTables(t *testing.T) {
	out := Sanitize(`<table><tr><td colspan="2">Cell</td></tr></table>`)
	assert.Contains(t, out, `colspan="2"`)
}

func TestPlainText(t *testing.T) {
	assert.Equal(t, "Go 101", PlainText("  <b>Go 101</b> "))
	assert.Equal(t, []string{"basics", "tools"}, PlainTextAll([]string{"<i>basics</i>", "<br>", "tools"}))
}
