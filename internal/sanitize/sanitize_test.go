package sanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeStripsScripts(t *testing.T) {
	s := NewHTMLSanitizer()

	out := s.Sanitize(`<p>Printer <b>down</b></p><script>alert("x")</script>`)
	assert.Equal(t, `<p>Printer <b>down</b></p>`, out)
}

func TestSanitizeDropsEventHandlers(t *testing.T) {
	out := NewHTMLSanitizer().Sanitize(`<a href="https://status.example.com" onclick="steal()">status</a>`)
	assert.NotContains(t, out, "onclick")
	assert.Contains(t, out, `href="https://status.example.com"`)
}

func TestSanitizePlainTextUnchanged(t *testing.T) {
	assert.Equal(t, "VPN drops every 10 minutes", NewHTMLSanitizer().Sanitize("VPN drops every 10 minutes"))
}
