package agentspec

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGeminiBuildLaunchSpec_NewSessionWithPrompt(t *testing.T) {
	a := geminiAdapter{def: Definition{BinaryName: "gemini"}}
	spec := a.BuildLaunchSpec(context.Background(), LaunchContext{
		WorktreePath:    "/path/to/worktree",
		InitialPrompt:   "implement feature X",
		SkipPermissions: true,
	})
	assert.Equal(t, `cd /path/to/worktree && gemini --yolo --prompt-interactive "implement feature X"`, spec.ShellCommand)
}

func TestGeminiBuildLaunchSpec_SessionIDIgnored(t *testing.T) {
	a := geminiAdapter{def: Definition{BinaryName: "gemini"}}
	spec := a.BuildLaunchSpec(context.Background(), LaunchContext{
		WorktreePath: "/path/to/worktree",
		SessionID:    "12345678-1234-1234-1234-123456789012",
	})
	assert.Equal(t, "cd /path/to/worktree && gemini", spec.ShellCommand)
}

func TestGeminiBuildLaunchSpec_NoPromptNoPermissions(t *testing.T) {
	a := geminiAdapter{def: Definition{BinaryName: "gemini"}}
	spec := a.BuildLaunchSpec(context.Background(), LaunchContext{WorktreePath: "/path/to/worktree"})
	assert.Equal(t, "cd /path/to/worktree && gemini", spec.ShellCommand)
}

func TestGeminiBuildLaunchSpec_PromptWithQuotes(t *testing.T) {
	a := geminiAdapter{def: Definition{BinaryName: "gemini"}}
	spec := a.BuildLaunchSpec(context.Background(), LaunchContext{
		WorktreePath:  "/path/to/worktree",
		InitialPrompt: `implement "feature" with quotes`,
	})
	assert.Equal(t, `cd /path/to/worktree && gemini --prompt-interactive "implement \"feature\" with quotes"`, spec.ShellCommand)
}
