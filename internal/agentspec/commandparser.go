package agentspec

import (
	"fmt"
	"path/filepath"
	"strings"

	shellwords "github.com/mattn/go-shellwords"
)

// ParseAgentCommand is the inverse of BuildLaunchSpec: given a previously
// synthesized shell command of the form
//
//	cd <worktree> && <agent-token> [args...]
//
// it recovers the working directory, the agent binary token, and the
// remaining argument list. Only the FIRST " && " is treated as the
// cd/agent separator, so any " && " embedded in the agent's own arguments
// (e.g. a prompt) survives intact.
func ParseAgentCommand(command string) (cwd, agentToken string, args []string, err error) {
	parts := strings.SplitN(command, " && ", 2)
	if len(parts) != 2 {
		return "", "", nil, fmt.Errorf("invalid command format: %s", command)
	}

	cdPart := parts[0]
	if !strings.HasPrefix(cdPart, "cd ") {
		return "", "", nil, fmt.Errorf("command doesn't start with 'cd': %s", command)
	}
	cwd = normalizeCwd(strings.TrimSpace(cdPart[len("cd "):]))

	agentPart := parts[1]
	tokens, err := shellwords.Parse(agentPart)
	if err != nil {
		return "", "", nil, fmt.Errorf("failed to parse agent command %q: %w", agentPart, err)
	}
	if len(tokens) == 0 {
		return "", "", nil, fmt.Errorf("second part doesn't start with a supported agent: %s", command)
	}

	agentToken = tokens[0]
	if firstSegment := extractFirstSegment(agentPart); strings.Contains(firstSegment, "\\") && !strings.Contains(agentToken, "\\") {
		agentToken = firstSegment
	}

	normalizedToken := strings.ReplaceAll(agentToken, "\\", "/")
	fname := filepath.Base(normalizedToken)
	stem := strings.TrimSuffix(fname, filepath.Ext(fname))

	supported := false
	for _, def := range All() {
		if stem == def.ID || agentToken == def.ID || stem == def.BinaryName || agentToken == def.BinaryName {
			supported = true
			break
		}
	}
	if !supported {
		return "", "", nil, fmt.Errorf("unsupported agent %q. Supported agents: %s", agentToken, strings.Join(SupportedAgents(), ", "))
	}

	return cwd, agentToken, tokens[1:], nil
}

// normalizeCwd strips a single layer of matching quotes (honoring
// backslash-escaped quotes inside), mirroring how a shell would have
// unquoted the argument when the command was originally invoked.
func normalizeCwd(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if len(trimmed) < 2 {
		return trimmed
	}

	first := trimmed[0]
	last := trimmed[len(trimmed)-1]
	if (first == '"' && last == '"') || (first == '\'' && last == '\'') {
		inner := trimmed[1 : len(trimmed)-1]
		if first == '"' {
			return strings.ReplaceAll(inner, "\\\"", "\"")
		}
		return strings.ReplaceAll(inner, "\\'", "'")
	}

	return trimmed
}

// extractFirstSegment recovers the first whitespace- or quote-delimited
// token of agentPart by hand, preserving escaped characters. Used as a
// fallback when the shellwords tokenizer has already processed backslash
// escapes out of the first token but the raw text still carries them
// (e.g. a Windows-style path).
func extractFirstSegment(agentPart string) string {
	trimmed := strings.TrimLeft(agentPart, " \t\n\r")
	if trimmed == "" {
		return ""
	}

	if trimmed[0] == '"' || trimmed[0] == '\'' {
		quote := trimmed[0]
		var sb strings.Builder
		escape := false
		for i := 1; i < len(trimmed); i++ {
			ch := trimmed[i]
			if escape {
				sb.WriteByte(ch)
				escape = false
				continue
			}
			switch ch {
			case '\\':
				escape = true
			case quote:
				return sb.String()
			default:
				sb.WriteByte(ch)
			}
		}
		return sb.String()
	}

	end := strings.IndexAny(trimmed, " \t\n\r")
	if end == -1 {
		return trimmed
	}
	return trimmed[:end]
}
