// Package validation provides input validation and sanitization shared across
// schaltwerk's core. It has no internal dependencies to avoid import cycles —
// every other package may import it.
package validation

import (
	"fmt"
	"regexp"
)

// sessionNameRegex matches the session-name grammar from spec §3:
// alphanumeric, '-', '_'; first character must be alphanumeric or '_'.
var sessionNameRegex = regexp.MustCompile(`^[A-Za-z0-9_][A-Za-z0-9_-]*$`)

// MaxSessionNameLength is the upper bound from spec §3 ("1-100 chars").
const MaxSessionNameLength = 100

// ValidateSessionName validates a session name against spec §3's grammar.
func ValidateSessionName(name string) error {
	if name == "" {
		return fmt.Errorf("session name cannot be empty")
	}
	if len(name) > MaxSessionNameLength {
		return fmt.Errorf("session name %q exceeds %d characters", name, MaxSessionNameLength)
	}
	if !sessionNameRegex.MatchString(name) {
		return fmt.Errorf("invalid session name %q: must start with a letter, digit, or underscore and contain only letters, digits, '-', or '_'", name)
	}
	return nil
}

// pathSafeRegex matches strings safe for use as path components (no
// separators or traversal sequences).
var pathSafeRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidateAgentID validates that an agent identifier is safe to embed in a
// file path or SQL identifier position.
func ValidateAgentID(id string) error {
	if id == "" {
		return fmt.Errorf("agent ID cannot be empty")
	}
	if !pathSafeRegex.MatchString(id) {
		return fmt.Errorf("invalid agent ID %q: must be alphanumeric with underscores/hyphens only", id)
	}
	return nil
}

// ValidateRepositoryPath performs a minimal sanity check on a repository path
// used as a store key; it does not check the filesystem.
func ValidateRepositoryPath(path string) error {
	if path == "" {
		return fmt.Errorf("repository path cannot be empty")
	}
	return nil
}

// terminalIDCharRegex matches characters allowed verbatim in a sanitized
// terminal id component (spec §3/§6).
var terminalIDCharRegex = regexp.MustCompile(`[A-Za-z0-9_-]`)

// SanitizeForTerminalID maps each character of name to itself if it is
// alphanumeric, '_', or '-'; otherwise it is replaced with '_'. An empty name
// sanitizes to "unknown", per spec §3/§6.
func SanitizeForTerminalID(name string) string {
	if name == "" {
		return "unknown"
	}
	out := make([]byte, 0, len(name))
	for _, r := range name {
		s := string(r)
		if terminalIDCharRegex.MatchString(s) {
			out = append(out, s...)
		} else {
			out = append(out, '_')
		}
	}
	if len(out) == 0 {
		return "unknown"
	}
	return string(out)
}
