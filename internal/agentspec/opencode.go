package agentspec

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func init() {
	Register("opencode", func(def Definition) Adapter { return opencodeAdapter{def: def} })
}

type opencodeAdapter struct {
	def Definition
}

func (opencodeAdapter) FindSession(ctx context.Context, worktreePath string) (string, bool) {
	return readSessionMarkerFile(filepath.Join(worktreePath, ".opencode-session"))
}

// resolveOpenCodeBinary mirrors the env-var override then well-known
// install path then bare-binary-name resolution order: $OPENCODE_BIN,
// then ~/.opencode/bin/opencode if present, then "opencode" on PATH.
func resolveOpenCodeBinary() string {
	if fromEnv := strings.TrimSpace(os.Getenv("OPENCODE_BIN")); fromEnv != "" {
		return fromEnv
	}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		candidate := filepath.Join(home, ".opencode", "bin", "opencode")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return "opencode"
}

func (a opencodeAdapter) BuildLaunchSpec(ctx context.Context, lctx LaunchContext) LaunchSpec {
	binary := lctx.BinaryOverride
	if binary == "" {
		binary = resolveOpenCodeBinary()
	}

	cmd := fmt.Sprintf("cd %s && %s", lctx.WorktreePath, binary)

	// OpenCode has no explicit session-id resume; any prior session token
	// just means "continue the last one".
	if lctx.SessionID != "" {
		cmd += " --continue"
	}
	if prompt := strings.TrimSpace(lctx.InitialPrompt); prompt != "" {
		cmd += fmt.Sprintf(" --prompt \"%s\"", strings.ReplaceAll(lctx.InitialPrompt, "\"", "\\\""))
	}

	return LaunchSpec{ShellCommand: cmd, WorkingDir: lctx.WorktreePath}
}
