package util

import (
	"strings"
	"unicode/utf8"
)

// CollapseWhitespace trims s and folds every whitespace run into one space
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// RuneLen counts characters rather than bytes
func RuneLen(s string) int {
	return utf8.RuneCountInString(s)
}

// Truncate shortens s to at most n runes
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
