package agentspec

import (
	"context"
	"fmt"
)

// defaultAdapter is used for any manifest entry without a dedicated,
// registered Adapter (spec §4.E's adapter is optional per agent; a plain
// "cd <worktree> && <binary> [-d] [prompt]" invocation is the fallback).
type defaultAdapter struct {
	def Definition
}

func (defaultAdapter) FindSession(ctx context.Context, worktreePath string) (string, bool) {
	return "", false
}

func (a defaultAdapter) BuildLaunchSpec(ctx context.Context, lctx LaunchContext) LaunchSpec {
	binary := lctx.BinaryOverride
	if binary == "" {
		binary = a.def.DefaultBinaryPath
	}

	command := fmt.Sprintf("cd %s && %s", lctx.WorktreePath, binary)
	if lctx.SkipPermissions {
		command += " -d"
	}
	if lctx.InitialPrompt != "" {
		command += fmt.Sprintf(" \"%s\"", escapePromptForShell(lctx.InitialPrompt))
	}

	return LaunchSpec{ShellCommand: command, WorkingDir: lctx.WorktreePath}
}
