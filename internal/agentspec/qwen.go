package agentspec

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

func init() {
	Register("qwen", func(def Definition) Adapter { return qwenAdapter{def: def} })
}

type qwenAdapter struct {
	def Definition
}

func (qwenAdapter) FindSession(ctx context.Context, worktreePath string) (string, bool) {
	return readSessionMarkerFile(filepath.Join(worktreePath, ".qwen-session"))
}

func (a qwenAdapter) BuildLaunchSpec(ctx context.Context, lctx LaunchContext) LaunchSpec {
	binary := lctx.BinaryOverride
	if binary == "" {
		binary = a.def.BinaryName
	}

	cmd := fmt.Sprintf("cd %s && %s", formatBinaryInvocation(lctx.WorktreePath), formatBinaryInvocation(binary))
	if lctx.SkipPermissions {
		cmd += " --yolo"
	}
	if prompt := strings.TrimSpace(lctx.InitialPrompt); prompt != "" {
		cmd += fmt.Sprintf(" --prompt-interactive \"%s\"", escapePromptForShell(lctx.InitialPrompt))
	}

	return LaunchSpec{ShellCommand: cmd, WorkingDir: lctx.WorktreePath}
}
