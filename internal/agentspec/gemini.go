package agentspec

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

func init() {
	Register("gemini", func(def Definition) Adapter { return geminiAdapter{def: def} })
}

type geminiAdapter struct {
	def Definition
}

func (geminiAdapter) FindSession(ctx context.Context, worktreePath string) (string, bool) {
	return readSessionMarkerFile(filepath.Join(worktreePath, ".gemini-session"))
}

func (a geminiAdapter) BuildLaunchSpec(ctx context.Context, lctx LaunchContext) LaunchSpec {
	binary := lctx.BinaryOverride
	if binary == "" {
		binary = a.def.BinaryName
	}

	cmd := fmt.Sprintf("cd %s && %s", lctx.WorktreePath, binary)
	if lctx.SkipPermissions {
		cmd += " --yolo"
	}
	if prompt := strings.TrimSpace(lctx.InitialPrompt); prompt != "" {
		cmd += fmt.Sprintf(" --prompt-interactive \"%s\"", escapePromptForShell(lctx.InitialPrompt))
	}

	return LaunchSpec{ShellCommand: cmd, WorkingDir: lctx.WorktreePath}
}
