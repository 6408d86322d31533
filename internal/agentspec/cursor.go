package agentspec

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func init() {
	Register("cursor", func(def Definition) Adapter { return cursorAdapter{def: def} })
}

type cursorAdapter struct {
	def Definition
}

func (cursorAdapter) FindSession(ctx context.Context, worktreePath string) (string, bool) {
	return readSessionMarkerFile(filepath.Join(worktreePath, ".cursor-session"))
}

func (a cursorAdapter) BuildLaunchSpec(ctx context.Context, lctx LaunchContext) LaunchSpec {
	binary := lctx.BinaryOverride
	if binary == "" {
		binary = a.def.BinaryName
	}

	cmd := fmt.Sprintf("cd %s && %s", lctx.WorktreePath, binary)
	if lctx.SessionID != "" {
		cmd += fmt.Sprintf(" --resume \"%s\"", lctx.SessionID)
	} else {
		if lctx.SkipPermissions {
			cmd += " -f"
		}
		if lctx.InitialPrompt != "" {
			cmd += fmt.Sprintf(" \"%s\"", escapePromptForShell(lctx.InitialPrompt))
		}
	}

	return LaunchSpec{ShellCommand: cmd, WorkingDir: lctx.WorktreePath}
}

// readSessionMarkerFile implements the shared "well-known marker file inside
// the worktree" session-discovery convention used by the Cursor, Gemini, and
// Qwen adapters: the file's trimmed contents are the session id, or no
// session if the file is absent/empty.
func readSessionMarkerFile(path string) (string, bool) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	trimmed := strings.TrimSpace(string(content))
	if trimmed == "" {
		return "", false
	}
	return trimmed, true
}
