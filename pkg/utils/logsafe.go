package utils

import (
	"regexp"
	"strconv"
	"unicode/utf8"
)

// --- Log-safe rendering of untrusted input ---
var unsafeLogChars = regexp.MustCompile(`[\x00-\x1F\x7F]`) // Raw control characters, including CR/LF log injection
const maxLogValueLength = 64                               // Max runes of an untrusted value kept in a log line

// LogSafe renders untrusted text (a rejected URL, a page title) for a log field
// Control characters are replaced, the value is truncated, and the result is always quoted so it never reads as live content
func LogSafe(value string) string {
	cleaned := unsafeLogChars.ReplaceAllString(value, "?")

	truncated := false
	if utf8.RuneCountInString(cleaned) > maxLogValueLength {
		cleaned = string([]rune(cleaned)[:maxLogValueLength])
		truncated = true
	}

	quoted := strconv.Quote(cleaned)
	if truncated {
		quoted += "…"
	}
	return quoted
}
