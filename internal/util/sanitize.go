package util

import (
	"strings"
	"unicode"
)

// CleanLine trims s and drops control and invisible characters, for
// single-line fields such as names and titles.
func CleanLine(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if unicode.IsControl(r) || isInvisibleUnicode(r) {
			return -1
		}
		return r
	}, s))
}

// CleanText is CleanLine for multi-line fields: newlines and tabs survive and
// CRLF is folded to LF.
func CleanText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) || isInvisibleUnicode(r) {
			return -1
		}
		return r
	}, s))
}

// isInvisibleUnicode returns true for zero-width, formatting, and other
// invisible Unicode characters.
func isInvisibleUnicode(r rune) bool {
	switch r {
	case
		'\u200B', // Zero-Width Space
		'\u200C', // Zero-Width Non-Joiner
		'\u200D', // Zero-Width Joiner
		'\u2060', // Word Joiner
		'\uFEFF', // BOM
		'\uFFF9', '\uFFFA', '\uFFFB':
		return true
	}

	return unicode.Is(unicode.Cf, r)
}
