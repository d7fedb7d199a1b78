package utils

import (
	"strings"
	"unicode/utf8"
)

// Summary returns the first maxLen runes of s with whitespace collapsed,
// suitable for a short document preview. Appends "..." when truncated.
func Summary(s string, maxLen int) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLen]) + "..."
}

// Truncate returns at most maxLen runes of s.
func Truncate(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	return string([]rune(s)[:maxLen])
}
