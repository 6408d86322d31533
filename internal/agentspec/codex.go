package agentspec

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func init() {
	Register("codex", func(def Definition) Adapter { return codexAdapter{def: def} })
}

type codexAdapter struct {
	def Definition
}

// FindSession scans ~/.codex/sessions (three levels deep, matching the
// dated day-bucket layout Codex writes) for the most recently modified
// ".jsonl" transcript whose recorded cwd equals worktreePath, and returns
// its path as the resumable session token. Unlike the upstream reference
// implementation this performs a direct scan rather than maintaining a
// background-refreshed directory snapshot cache; resumption is an
// occasional, not hot-path, operation.
func (codexAdapter) FindSession(ctx context.Context, worktreePath string) (string, bool) {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "", false
	}
	sessionsDir := filepath.Join(home, ".codex", "sessions")

	var best string
	var bestModTime int64
	found := false

	const maxDepth = 3
	var walk func(dir string, depth int)
	walk = func(dir string, depth int) {
		if depth > maxDepth {
			return
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			return
		}
		for _, entry := range entries {
			path := filepath.Join(dir, entry.Name())
			if entry.IsDir() {
				if depth < maxDepth {
					walk(path, depth+1)
				}
				continue
			}
			if filepath.Ext(entry.Name()) != ".jsonl" {
				continue
			}
			info, err := entry.Info()
			if err != nil {
				continue
			}
			if !sessionFileMatchesCwd(path, worktreePath) {
				continue
			}
			modTime := info.ModTime().UnixNano()
			if !found || modTime > bestModTime {
				best, bestModTime, found = path, modTime, true
			}
		}
	}
	walk(sessionsDir, 0)

	return best, found
}

// sessionFileMatchesCwd scans a Codex transcript's JSONL lines for a
// recorded "cwd" field and reports whether it equals target.
func sessionFileMatchesCwd(path, target string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var record map[string]any
		if err := json.Unmarshal([]byte(line), &record); err != nil {
			continue
		}
		if cwd := extractCwdField(record); cwd != "" {
			return cwd == target
		}
	}
	return false
}

func extractCwdField(record map[string]any) string {
	if cwd, ok := record["cwd"].(string); ok {
		return cwd
	}
	if payload, ok := record["payload"].(map[string]any); ok {
		if cwd, ok := payload["cwd"].(string); ok {
			return cwd
		}
	}
	return ""
}

func (a codexAdapter) BuildLaunchSpec(ctx context.Context, lctx LaunchContext) LaunchSpec {
	binary := lctx.BinaryOverride
	if binary == "" {
		binary = a.def.BinaryName
	}

	cmd := fmt.Sprintf("cd %s && %s", lctx.WorktreePath, binary)
	if lctx.SkipPermissions {
		cmd += " --dangerously-bypass-approvals-and-sandbox"
	}

	switch {
	case lctx.SessionID != "":
		cmd += fmt.Sprintf(" resume %s", lctx.SessionID)
	case lctx.InitialPrompt != "":
		cmd += fmt.Sprintf(" \"%s\"", escapePromptForShell(lctx.InitialPrompt))
	}

	return LaunchSpec{ShellCommand: cmd, WorkingDir: lctx.WorktreePath}
}
