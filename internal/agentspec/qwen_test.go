package agentspec

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQwenBuildLaunchSpec_NewSessionWithPrompt(t *testing.T) {
	a := qwenAdapter{def: Definition{BinaryName: "qwen"}}
	spec := a.BuildLaunchSpec(context.Background(), LaunchContext{
		WorktreePath:    "/path/to/worktree",
		InitialPrompt:   "implement feature X",
		SkipPermissions: true,
	})
	assert.Equal(t, `cd /path/to/worktree && qwen --yolo --prompt-interactive "implement feature X"`, spec.ShellCommand)
}

func TestQwenBuildLaunchSpec_QuotesCwdWithSpaces(t *testing.T) {
	a := qwenAdapter{def: Definition{BinaryName: "qwen"}}
	spec := a.BuildLaunchSpec(context.Background(), LaunchContext{WorktreePath: "/path/with spaces"})
	assert.True(t, strings.HasPrefix(spec.ShellCommand, `cd "/path/with spaces" && `))
}

func TestQwenBuildLaunchSpec_SessionIDIgnored(t *testing.T) {
	a := qwenAdapter{def: Definition{BinaryName: "qwen"}}
	spec := a.BuildLaunchSpec(context.Background(), LaunchContext{
		WorktreePath: "/path/to/worktree",
		SessionID:    "12345678-1234-1234-1234-123456789012",
	})
	assert.Equal(t, "cd /path/to/worktree && qwen", spec.ShellCommand)
}

func TestQwenBuildLaunchSpec_NoPromptNoPermissions(t *testing.T) {
	a := qwenAdapter{def: Definition{BinaryName: "qwen"}}
	spec := a.BuildLaunchSpec(context.Background(), LaunchContext{WorktreePath: "/path/to/worktree"})
	assert.Equal(t, "cd /path/to/worktree && qwen", spec.ShellCommand)
}

func TestQwenBuildLaunchSpec_PromptWithQuotes(t *testing.T) {
	a := qwenAdapter{def: Definition{BinaryName: "qwen"}}
	spec := a.BuildLaunchSpec(context.Background(), LaunchContext{
		WorktreePath:  "/path/to/worktree",
		InitialPrompt: `implement "feature" with quotes`,
	})
	assert.Equal(t, `cd /path/to/worktree && qwen --prompt-interactive "implement \"feature\" with quotes"`, spec.ShellCommand)
}
