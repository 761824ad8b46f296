package facade

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Query is a validated free-text query. The zero value is the "no query" sentinel.
type Query struct {
	// Text is the trimmed, NFKC-normalized input
	Text string
	// NeedsTranslation is set when Text contains characters outside basic Latin
	NeedsTranslation bool
}

// Empty reports whether q is the "no query" sentinel
func (q Query) Empty() bool {
	return q.Text == ""
}

// Normalize trims and NFKC-normalizes raw. Blank input yields the empty Query.
// Full-width Latin letters fold to ASCII here, so "ａｓｐｉｒｉｎ" never reaches translation.
func Normalize(raw string) Query {
	text := strings.TrimSpace(norm.NFKC.String(raw))
	if text == "" {
		return Query{}
	}
	return Query{
		Text:             text,
		NeedsTranslation: !IsBasicLatin(text),
	}
}

// IsBasicLatin reports whether every rune of s is ASCII
func IsBasicLatin(s string) bool {
	for _, r := range s {
		if r > unicode.MaxASCII {
			return false
		}
	}
	return true
}
