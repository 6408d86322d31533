package agentspec

import "context"

// LaunchContext carries the inputs an Adapter needs to synthesize a launch
// command for one session.
type LaunchContext struct {
	WorktreePath     string
	SessionID        string
	InitialPrompt    string
	SkipPermissions  bool
	BinaryOverride   string
	Manifest         Definition
}

// LaunchSpec is the fully-built command an agent should be launched with
// (spec §4.E).
type LaunchSpec struct {
	ShellCommand   string
	InitialCommand string
	EnvVars        map[string]string
	WorkingDir     string
}

// Adapter is the per-agent polymorphic boundary (spec §9 "dynamic dispatch"
// design note): one implementation per supported agent, registered by id.
type Adapter interface {
	// FindSession best-effort discovers a resumable session token for
	// worktreePath. Returns ok=false when no prior session is found.
	FindSession(ctx context.Context, worktreePath string) (sessionID string, ok bool)

	// BuildLaunchSpec synthesizes the shell command used to launch this
	// agent for ctx.
	BuildLaunchSpec(ctx context.Context, lctx LaunchContext) LaunchSpec
}

// escapePromptForShell double-quote-escapes a prompt for embedding inside a
// "..." shell argument, matching every adapter's prompt-quoting convention.
func escapePromptForShell(prompt string) string {
	out := make([]byte, 0, len(prompt)+4)
	for i := 0; i < len(prompt); i++ {
		if prompt[i] == '"' {
			out = append(out, '\\', '"')
		} else {
			out = append(out, prompt[i])
		}
	}
	return string(out)
}

// formatBinaryInvocation wraps s in double quotes when it contains
// whitespace, used by the adapters (qwen, amp) whose launch commands need
// to tolerate worktree paths containing spaces.
func formatBinaryInvocation(s string) string {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case ' ', '\t':
			return "\"" + s + "\""
		}
	}
	return s
}
