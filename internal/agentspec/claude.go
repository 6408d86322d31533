package agentspec

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func init() {
	Register("claude", func(def Definition) Adapter { return claudeAdapter{def: def} })
}

type claudeAdapter struct {
	def Definition
}

// sanitizePathForClaude mirrors Claude Code's own project-directory naming:
// every '/', '.', or '_' becomes '-'.
func sanitizePathForClaude(path string) string {
	replacer := strings.NewReplacer("/", "-", ".", "-", "_", "-")
	return replacer.Replace(path)
}

// FindSession is a fast-path check: it only confirms *some* session file
// exists under Claude's per-project directory, returning the sentinel
// "__continue__" rather than parsing individual session contents.
func (claudeAdapter) FindSession(ctx context.Context, worktreePath string) (string, bool) {
	home := os.Getenv("HOME")
	if home == "" {
		return "", false
	}

	projectsDir := filepath.Join(home, ".claude", "projects")
	candidates := []string{filepath.Join(projectsDir, sanitizePathForClaude(worktreePath))}
	if canonical, err := filepath.EvalSymlinks(worktreePath); err == nil && canonical != worktreePath {
		candidates = append(candidates, filepath.Join(projectsDir, sanitizePathForClaude(canonical)))
	}

	for _, dir := range candidates {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if strings.HasSuffix(entry.Name(), ".jsonl") {
				return "__continue__", true
			}
		}
	}
	return "", false
}

func (a claudeAdapter) BuildLaunchSpec(ctx context.Context, lctx LaunchContext) LaunchSpec {
	binary := lctx.BinaryOverride
	if binary == "" {
		binary = a.def.BinaryName
	}

	cmd := fmt.Sprintf("cd %s && %s", lctx.WorktreePath, binary)
	if lctx.SkipPermissions {
		cmd += " --dangerously-skip-permissions"
	}

	switch {
	case lctx.SessionID == "__continue__":
		cmd += " --continue"
	case lctx.SessionID != "":
		cmd += fmt.Sprintf(" -r %s", lctx.SessionID)
	case lctx.InitialPrompt != "":
		cmd += fmt.Sprintf(" \"%s\"", escapePromptForShell(lctx.InitialPrompt))
	}

	return LaunchSpec{ShellCommand: cmd, WorkingDir: lctx.WorktreePath}
}
