// Package textutil cleans backend-supplied text before it reaches a terminal.
package textutil

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// SanitizeUTF8 replaces invalid UTF-8 sequences with the Unicode
// replacement character.
func SanitizeUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	return strings.ToValidUTF8(s, "�")
}

// Printable returns s as valid NFC text with control characters removed.
// Tabs and line breaks become single spaces so a value always renders on
// one line; escape sequences are dropped so a record cannot restyle the
// screen.
func Printable(s string) string {
	s = SanitizeUTF8(s)
	clean := true
	for _, r := range s {
		if unicode.IsControl(r) {
			clean = false
			break
		}
	}
	if clean {
		return norm.NFC.String(s)
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\t' || r == '\n' || r == '\r':
			b.WriteByte(' ')
		case unicode.IsControl(r):
		default:
			b.WriteRune(r)
		}
	}
	return norm.NFC.String(b.String())
}

// FirstLine returns the first line of s without its line terminator.
func FirstLine(s string) string {
	if i := strings.IndexAny(s, "\r\n"); i >= 0 {
		return s[:i]
	}
	return s
}
