package util

import (
	"unicode/utf8"
)

// TruncateContent shortens s to at most maxLength runes for logging.
func TruncateContent(s string, maxLength int) string {
	if utf8.RuneCountInString(s) <= maxLength {
		return s
	}
	
	runes := []rune(s)
	return string(runes[:maxLength]) + "..."
}
