package terminal

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/schaltwerk/schaltwerk/internal/logging"
)

// fallbackShells is the platform-default candidate list tried when no user
// override and no $SHELL resolve to an executable.
var fallbackShells = []string{"/bin/zsh", "/usr/bin/zsh", "/bin/bash", "/usr/bin/bash", "/bin/sh", "/usr/bin/sh"}

var shellOverride struct {
	mu    sync.RWMutex
	shell string
	args  []string
	set   bool
}

// SetShellOverride records an operator-configured shell, honored by
// GetEffectiveShell ahead of $SHELL and the platform fallbacks.
func SetShellOverride(shell string, args []string) {
	shellOverride.mu.Lock()
	defer shellOverride.mu.Unlock()
	shellOverride.shell = shell
	shellOverride.args = args
	shellOverride.set = true
}

// ClearShellOverride removes any configured override, reverting to $SHELL
// and the platform fallbacks.
func ClearShellOverride() {
	shellOverride.mu.Lock()
	defer shellOverride.mu.Unlock()
	shellOverride.set = false
}

// GetEffectiveShell resolves the shell to launch terminals with: an
// operator override if set and resolvable, else $SHELL if resolvable, else
// the first resolvable platform fallback, else a bare "sh".
func GetEffectiveShell() (string, []string) {
	shellOverride.mu.RLock()
	shell, args, set := shellOverride.shell, shellOverride.args, shellOverride.set
	shellOverride.mu.RUnlock()

	if set {
		if resolved, ok := resolveShellCandidate(shell); ok {
			return resolved, args
		}
		logging.Warn(nil, "configured terminal shell is unavailable, falling back to defaults", "shell", shell)
	}

	if envShell := os.Getenv("SHELL"); envShell != "" {
		if resolved, ok := resolveShellCandidate(envShell); ok {
			return resolved, nil
		}
		logging.Warn(nil, "SHELL environment variable is unavailable, falling back to defaults", "shell", envShell)
	}

	for _, candidate := range fallbackShells {
		if resolved, ok := resolveShellCandidate(candidate); ok {
			return resolved, nil
		}
	}

	logging.Warn(nil, "no configured shells available, falling back to bare sh")
	return "sh", nil
}

func resolveShellCandidate(shell string) (string, bool) {
	if strings.TrimSpace(shell) == "" {
		return "", false
	}

	expanded := expandHome(shell)
	if filepath.IsAbs(expanded) {
		if pathIsExecutable(expanded) {
			return expanded, true
		}
		return "", false
	}

	if resolved, ok := searchOnPath(expanded); ok {
		return resolved, true
	}

	if pathIsExecutable(shell) {
		return shell, true
	}

	return "", false
}

func expandHome(shell string) string {
	if rest, ok := strings.CutPrefix(shell, "~/"); ok {
		if home := os.Getenv("HOME"); home != "" {
			return filepath.Join(home, rest)
		}
	}
	return shell
}

func searchOnPath(shell string) (string, bool) {
	pathVar := os.Getenv("PATH")
	if pathVar == "" {
		return "", false
	}
	for _, dir := range filepath.SplitList(pathVar) {
		candidate := filepath.Join(dir, shell)
		if pathIsExecutable(candidate) {
			return candidate, true
		}
	}
	return "", false
}

func pathIsExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode()&0o111 != 0
}
