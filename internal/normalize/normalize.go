// Package normalize provides utilities for normalizing and sanitizing data.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// Title normalizes a book title or author name for storage and matching.
// Applies NFKC normalization, folds full-width ASCII to half-width, and
// collapses runs of whitespace. Japanese sources frequently mix widths
// for the same characters.
func Title(s string) string {
	s = norm.NFKC.String(s)
	s = width.Narrow.String(s)
	return collapseSpaces(strings.TrimSpace(s))
}

// Tag normalizes a user-supplied tag: NFKC, lowercased, trimmed.
func Tag(s string) string {
	s = norm.NFKC.String(s)
	s = width.Narrow.String(s)
	return strings.ToLower(collapseSpaces(strings.TrimSpace(s)))
}

// ISBN normalizes an ISBN string: folds full-width digits to ASCII,
// strips hyphens and spaces, and uppercases a trailing check digit X.
// It does not validate; see IsValidISBN.
func ISBN(s string) string {
	s = width.Narrow.String(norm.NFKC.String(s))
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == 'x' || r == 'X':
			b.WriteRune('X')
		case r == '-' || unicode.IsSpace(r):
			// separators dropped
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// IsValidISBN reports whether s is a valid ISBN-10 or ISBN-13 after
// normalization.
func IsValidISBN(s string) bool {
	s = ISBN(s)
	switch len(s) {
	case 10:
		return isValidISBN10(s)
	case 13:
		return isValidISBN13(s)
	default:
		return false
	}
}

// ISBN10To13 converts a normalized ISBN-10 to its ISBN-13 form.
// Returns the input unchanged if it is not a valid ISBN-10.
func ISBN10To13(s string) string {
	s = ISBN(s)
	if len(s) != 10 || !isValidISBN10(s) {
		return s
	}
	body := "978" + s[:9]
	return body + string(rune('0'+isbn13CheckDigit(body)))
}

func isValidISBN10(s string) bool {
	sum := 0
	for i := 0; i < 10; i++ {
		var v int
		switch {
		case s[i] >= '0' && s[i] <= '9':
			v = int(s[i] - '0')
		case s[i] == 'X' && i == 9:
			v = 10
		default:
			return false
		}
		sum += v * (10 - i)
	}
	return sum%11 == 0
}

func isValidISBN13(s string) bool {
	for i := 0; i < 13; i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return isbn13CheckDigit(s[:12]) == int(s[12]-'0')
}

// isbn13CheckDigit computes the check digit for a 12-digit ISBN-13 body.
func isbn13CheckDigit(body string) int {
	sum := 0
	for i := 0; i < 12; i++ {
		v := int(body[i] - '0')
		if i%2 == 1 {
			v *= 3
		}
		sum += v
	}
	return (10 - sum%10) % 10
}

func collapseSpaces(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			inSpace = true
			continue
		}
		if inSpace && b.Len() > 0 {
			b.WriteRune(' ')
		}
		inSpace = false
		b.WriteRune(r)
	}
	return b.String()
}
