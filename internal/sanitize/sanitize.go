// Package sanitize strips unsafe markup from user supplied HTML.
package sanitize

import "github.com/microcosm-cc/bluemonday"

// Sanitizer cleans rich text before it is stored or diffed.
type Sanitizer interface {
	Sanitize(raw string) string
}

type htmlSanitizer struct {
	policy *bluemonday.Policy
}

// NewHTMLSanitizer allows common formatting markup and drops scripts, handlers and styles.
func NewHTMLSanitizer() Sanitizer {
	return &htmlSanitizer{policy: bluemonday.UGCPolicy()}
}

func (s *htmlSanitizer) Sanitize(raw string) string {
	return s.policy.Sanitize(raw)
}
