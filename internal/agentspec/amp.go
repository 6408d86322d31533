package agentspec

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

func init() {
	Register("amp", func(def Definition) Adapter { return ampAdapter{def: def} })
}

type ampAdapter struct {
	def Definition
}

// FindSession has no per-worktree marker file for Amp; it falls back to
// scanning the user's thread store for the most recently modified thread,
// matching threadsDir()'s "T-*.json" naming convention. The session manager
// prefers a database-stored thread id over this fallback.
func (ampAdapter) FindSession(ctx context.Context, worktreePath string) (string, bool) {
	return findNewestAmpThread()
}

func threadsDir() (string, bool) {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "", false
	}
	return filepath.Join(home, ".local", "share", "amp", "threads"), true
}

func findNewestAmpThread() (string, bool) {
	dir, ok := threadsDir()
	if !ok {
		return "", false
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}

	type candidate struct {
		id      string
		modTime int64
	}
	var newest *candidate

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		stem := strings.TrimSuffix(entry.Name(), ".json")
		if !strings.HasPrefix(stem, "T-") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		modTime := info.ModTime().UnixNano()
		if newest == nil || modTime > newest.modTime {
			newest = &candidate{id: stem, modTime: modTime}
		}
	}

	if newest == nil {
		return "", false
	}
	return newest.id, true
}

// listExistingAmpThreads is exposed for the thread-creation watcher; it
// returns every known thread id sorted for deterministic diffing.
func listExistingAmpThreads() []string {
	dir, ok := threadsDir()
	if !ok {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var ids []string
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		ids = append(ids, strings.TrimSuffix(entry.Name(), ".json"))
	}
	sort.Strings(ids)
	return ids
}

func (a ampAdapter) BuildLaunchSpec(ctx context.Context, lctx LaunchContext) LaunchSpec {
	binary := lctx.BinaryOverride
	if binary == "" {
		binary = a.def.BinaryName
	}

	cmd := fmt.Sprintf("cd %s && ", formatBinaryInvocation(lctx.WorktreePath))

	// Amp reads its initial prompt from stdin rather than an argument.
	if prompt := strings.TrimSpace(lctx.InitialPrompt); prompt != "" {
		cmd += fmt.Sprintf("echo \"%s\" | ", escapePromptForShell(lctx.InitialPrompt))
	}

	cmd += formatBinaryInvocation(binary)

	if lctx.SessionID != "" {
		cmd += fmt.Sprintf(" threads continue %s", lctx.SessionID)
	}
	if lctx.SkipPermissions {
		cmd += " --dangerously-allow-all"
	}

	return LaunchSpec{ShellCommand: cmd, WorkingDir: lctx.WorktreePath}
}
