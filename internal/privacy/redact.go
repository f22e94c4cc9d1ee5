// Package privacy keeps credentials and sensitive post text out of logs.
package privacy

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	redactedPlaceholder = "[REDACTED]"
	maskVisible         = 4
)

// Redactor replaces configured patterns in text before it is logged.
// The zero value redacts nothing.
type Redactor struct {
	patterns []*regexp.Regexp
}

// Compile builds a Redactor from regex pattern strings.
// Returns an error naming the first invalid pattern.
func Compile(patterns []string) (*Redactor, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("compile redact pattern %q: %w", p, err)
		}
		compiled = append(compiled, re)
	}
	return &Redactor{patterns: compiled}, nil
}

// Apply replaces every match of the redactor's patterns with [REDACTED].
func (r *Redactor) Apply(text string) string {
	if r == nil {
		return text
	}
	for _, re := range r.patterns {
		text = re.ReplaceAllString(text, redactedPlaceholder)
	}
	return text
}

// Len reports how many patterns the redactor holds.
func (r *Redactor) Len() int {
	if r == nil {
		return 0
	}
	return len(r.patterns)
}

// Mask renders a secret as its first few characters followed by its length,
// e.g. "AbCd…(25)". Secrets too short to reveal anything are fully hidden.
func Mask(secret string) string {
	n := utf8.RuneCountInString(secret)
	switch {
	case n == 0:
		return ""
	case n <= maskVisible*2:
		return strings.Repeat("*", n)
	}
	prefix := []rune(secret)[:maskVisible]
	return fmt.Sprintf("%s…(%d)", string(prefix), n)
}
