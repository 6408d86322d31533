// Package terminal implements the Terminal Manager (spec §4.D): a
// per-project wrapper over the PTY Host that derives deterministic
// terminal ids, resolves the shell and builds its launch environment,
// and tracks per-terminal activity and suspend/resume state.
package terminal

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf16"
)

const (
	fnvOffsetBasis32 uint32 = 0x811c9dc5
	fnvPrime32       uint32 = 0x01000193
	hashSliceLen            = 6
)

// SanitizeSessionName maps every character to itself if it's alphanumeric,
// '_', or '-', and to '_' otherwise. An empty result becomes "unknown".
func SanitizeSessionName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "unknown"
	}
	return b.String()
}

// sessionTerminalHash computes FNV-1a over the UTF-16 code units of name,
// matching the original implementation's hash input exactly (not UTF-8
// bytes).
func sessionTerminalHash(name string) uint32 {
	hash := fnvOffsetBasis32
	for _, unit := range utf16.Encode([]rune(name)) {
		hash ^= uint32(unit)
		hash *= fnvPrime32
	}
	return hash
}

// sessionTerminalHashFragment returns the first 6 hex digits of the
// session's FNV-1a/UTF-16 hash.
func sessionTerminalHashFragment(name string) string {
	return fmt.Sprintf("%08x", sessionTerminalHash(name))[:hashSliceLen]
}

// sessionTerminalBase returns "session-{sanitized}~{hash fragment}".
func sessionTerminalBase(name string) string {
	return fmt.Sprintf("session-%s~%s", SanitizeSessionName(name), sessionTerminalHashFragment(name))
}

// TerminalIDForSessionTop returns the current-format top-pane terminal id
// for a session name. Pure: equal names produce equal ids; distinct names
// produce distinct ids even when sanitization collapses them to the same
// visible text.
func TerminalIDForSessionTop(name string) string {
	return sessionTerminalBase(name) + "-top"
}

// TerminalIDForSessionBottom returns the current-format bottom-pane
// terminal id for a session name.
func TerminalIDForSessionBottom(name string) string {
	return sessionTerminalBase(name) + "-bottom"
}

// LegacyTerminalIDForSessionTop returns the pre-hash-fragment top-pane id
// format, still recognised on read for sessions created before the hash
// fragment was introduced.
func LegacyTerminalIDForSessionTop(name string) string {
	return fmt.Sprintf("session-%s-top", SanitizeSessionName(name))
}

// LegacyTerminalIDForSessionBottom is the bottom-pane analogue of
// LegacyTerminalIDForSessionTop.
func LegacyTerminalIDForSessionBottom(name string) string {
	return fmt.Sprintf("session-%s-bottom", SanitizeSessionName(name))
}

// PreviousHashedTerminalIDForSessionTop returns an intermediate historical
// id format (hash fragment present but dash-delimited rather than
// tilde-delimited), also recognised on read.
func PreviousHashedTerminalIDForSessionTop(name string) string {
	return fmt.Sprintf("session-%s-%s-top", SanitizeSessionName(name), sessionTerminalHashFragment(name))
}

// PreviousHashedTerminalIDForSessionBottom is the bottom-pane analogue of
// PreviousHashedTerminalIDForSessionTop.
func PreviousHashedTerminalIDForSessionBottom(name string) string {
	return fmt.Sprintf("session-%s-%s-bottom", SanitizeSessionName(name), sessionTerminalHashFragment(name))
}

// KnownTerminalIDsForSession returns every id format (current and legacy)
// that could identify the top and bottom panes of a session, in the order
// readers should check them.
func KnownTerminalIDsForSession(name string) (top []string, bottom []string) {
	top = []string{
		TerminalIDForSessionTop(name),
		PreviousHashedTerminalIDForSessionTop(name),
		LegacyTerminalIDForSessionTop(name),
	}
	bottom = []string{
		TerminalIDForSessionBottom(name),
		PreviousHashedTerminalIDForSessionBottom(name),
		LegacyTerminalIDForSessionBottom(name),
	}
	return top, bottom
}
