package chatlog

import (
	"regexp"
	"strings"
)

// maxKeyLength bounds sanitized keys so derived file names stay well under
// common filesystem limits.
const maxKeyLength = 100

var unsafeKeyChars = regexp.MustCompile(`[^\w.-]`)

// Sanitize maps an arbitrary identifier to a filesystem-safe token. Every
// rune outside [A-Za-z0-9_.-] (path separators included) becomes an
// underscore, and the result is truncated to 100 bytes. Empty or
// whitespace-only input yields an empty string; callers substitute a
// fallback token such as "unknown_group" in that case.
//
// The safe set is ASCII, so non-Latin identifiers collapse to underscores
// and distinct names can map to the same key. Group ids from the supported
// event source are numeric, which keeps keys distinct in practice.
//
// This is the sole defense against path traversal through externally
// supplied identifiers, so it must be applied to every path component
// derived from an event.
func Sanitize(value string) string {
	text := strings.TrimSpace(value)
	if text == "" {
		return ""
	}
	text = unsafeKeyChars.ReplaceAllString(text, "_")
	if len(text) > maxKeyLength {
		text = text[:maxKeyLength]
	}
	return text
}
