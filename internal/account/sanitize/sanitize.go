// Package sanitize cleans values at the boundary where they enter client
// storage. Values read back from storage are trusted; everything written
// passes through here first.
package sanitize

import (
	"html"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"

	"topup/internal/account/models"
)

var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// maxValueLen bounds a single stored field; game ids are short.
const maxValueLen = 128

var angleBrackets = strings.NewReplacer("<", "", ">", "")

// Sanitizer strips markup from values and restricts keys to a safe alphabet.
// It is safe for concurrent use.
type Sanitizer struct {
	policy *bluemonday.Policy
}

// New creates a sanitizer with a strict (no elements allowed) policy.
func New() *Sanitizer {
	return &Sanitizer{policy: bluemonday.StrictPolicy()}
}

// Key keeps only [A-Za-z0-9_-] so the result is safe as a storage namespace.
func (s *Sanitizer) Key(candidate string) string {
	return unsafeKeyChars.ReplaceAllString(candidate, "")
}

// Value removes markup, including the content of script and style
// elements, and any stray angle brackets. Entities escaped by the policy
// are decoded again so "Tom & Jerry" is stored as typed.
func (s *Sanitizer) Value(value string) string {
	cleaned := s.policy.Sanitize(value)
	cleaned = html.UnescapeString(cleaned)
	cleaned = angleBrackets.Replace(cleaned)
	if len(cleaned) > maxValueLen {
		cleaned = truncate(cleaned, maxValueLen)
	}
	return strings.TrimSpace(cleaned)
}

// Fields copies the allowed fields out of input, sanitizing each value.
// Fields not in allowed are dropped; an allowed field missing from input
// stays missing.
func (s *Sanitizer) Fields(input map[string]string, allowed []string) map[string]string {
	out := make(map[string]string, len(allowed))
	for _, name := range allowed {
		v, ok := input[name]
		if !ok {
			continue
		}
		out[name] = s.Value(v)
	}
	return out
}

// Contact trims and strips unsafe characters from contact metadata. It does
// not validate the address or number.
func (s *Sanitizer) Contact(c models.Contact) models.Contact {
	return models.Contact{
		Email: s.Value(c.Email),
		Phone: s.Value(c.Phone),
	}
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
