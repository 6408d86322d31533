package terminal

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/schaltwerk/schaltwerk/internal/logging"
)

// maxPathLength is the clamp applied to the constructed PATH environment
// variable; entries beyond it are dropped (and logged) rather than risking
// an "argument list too long"/"path too long" failure from the kernel.
const maxPathLength = 4096

// BuildEnvironment constructs the base environment for a new terminal:
// TERM/LINES/COLUMNS, a priority-ordered PATH (user-local bin directories
// first, then the inherited PATH, clamped to maxPathLength), LANG/LC_ALL,
// and CLICOLOR hints. Returned as "KEY=VALUE" pairs ready for exec.Cmd.Env.
func BuildEnvironment(rows, cols uint16) []string {
	env := []string{
		"TERM=xterm-256color",
		fmt.Sprintf("LINES=%d", rows),
		fmt.Sprintf("COLUMNS=%d", cols),
	}

	env = append(env, "PATH="+buildPath())

	lang := os.Getenv("LANG")
	if lang == "" {
		lang = "en_US.UTF-8"
	}
	env = append(env, "LANG="+lang)
	if lcAll := os.Getenv("LC_ALL"); lcAll != "" {
		env = append(env, "LC_ALL="+lcAll)
	}

	env = append(env, "CLICOLOR=1", "CLICOLOR_FORCE=1")
	return env
}

func buildPath() string {
	home := os.Getenv("HOME")
	if home == "" {
		if existing := os.Getenv("PATH"); existing != "" {
			return existing
		}
		return "/opt/homebrew/bin:/usr/local/bin:/usr/bin:/bin:/usr/sbin:/sbin"
	}

	seen := make(map[string]bool)
	var components []string

	priority := []string{
		filepath.Join(home, ".local/bin"),
		filepath.Join(home, ".cargo/bin"),
		filepath.Join(home, ".pyenv/shims"),
		filepath.Join(home, "bin"),
		filepath.Join(home, ".nvm/current/bin"),
		filepath.Join(home, ".volta/bin"),
		filepath.Join(home, ".fnm"),
		"/opt/homebrew/bin",
		"/usr/local/bin",
		"/usr/bin",
		"/bin",
		"/usr/sbin",
		"/sbin",
	}
	for _, p := range priority {
		if !seen[p] {
			seen[p] = true
			components = append(components, p)
		}
	}

	currentLength := 0
	for _, c := range components {
		currentLength += len(c) + 1
	}

	if existingPath := os.Getenv("PATH"); existingPath != "" {
		truncated := false
		for _, raw := range strings.Split(existingPath, ":") {
			if truncated {
				break
			}
			for _, entry := range normalizePathComponent(raw) {
				if seen[entry] {
					continue
				}
				newLength := currentLength + len(entry) + 1
				if newLength > maxPathLength {
					logging.Warn(nil, "PATH truncated to avoid exceeding the kernel path length limit", "bytes", currentLength)
					truncated = true
					break
				}
				seen[entry] = true
				currentLength = newLength
				components = append(components, entry)
			}
		}
	}

	return strings.Join(components, ":")
}

// normalizePathComponent trims a single ':'-delimited PATH entry, strips
// surrounding quotes, and splits whitespace-concatenated segments produced
// by some installers (e.g. a single entry like "/foo/bin /bar/bin").
func normalizePathComponent(raw string) []string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}

	cleaned := strings.Trim(trimmed, `"'`)
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return nil
	}

	if !strings.Contains(cleaned, " /") {
		return []string{cleaned}
	}

	var entries []string
	remainder := cleaned
	for {
		idx := strings.Index(remainder, " /")
		if idx < 0 {
			if final := strings.TrimSpace(remainder); final != "" {
				entries = append(entries, final)
			}
			break
		}
		head, tail := remainder[:idx], remainder[idx:]
		if headTrimmed := strings.TrimSpace(head); headTrimmed != "" {
			entries = append(entries, headTrimmed)
		}
		remainder = strings.TrimLeft(tail[1:], " ")
	}

	if len(entries) == 0 {
		entries = append(entries, cleaned)
	}
	return entries
}

// ResolveCommand resolves a bare program name to an absolute path by
// checking user-local and common system bin directories, then $PATH, then
// falling back to `which`. Returns the input unchanged if nothing matches.
func ResolveCommand(command string) string {
	if strings.Contains(command, "/") {
		return command
	}

	var candidates []string
	if home := os.Getenv("HOME"); home != "" {
		candidates = append(candidates,
			filepath.Join(home, ".local/bin"),
			filepath.Join(home, ".cargo/bin"),
			filepath.Join(home, "bin"),
		)
	}
	candidates = append(candidates, "/usr/local/bin", "/opt/homebrew/bin", "/usr/bin", "/bin")

	for _, dir := range candidates {
		full := filepath.Join(dir, command)
		if _, err := os.Stat(full); err == nil {
			return full
		}
	}

	if pathEnv := os.Getenv("PATH"); pathEnv != "" {
		for _, component := range strings.Split(pathEnv, ":") {
			component = strings.TrimSpace(component)
			if component == "" {
				continue
			}
			full := filepath.Join(component, command)
			if _, err := os.Stat(full); err == nil {
				return full
			}
		}
	}

	if resolved, err := exec.LookPath(command); err == nil {
		return resolved
	}

	logging.Warn(nil, "could not resolve path for command, using as-is", "command", command)
	return command
}
