package agentspec

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

func init() {
	Register("droid", func(def Definition) Adapter { return droidAdapter{def: def} })
}

type droidAdapter struct {
	def Definition
}

const (
	shimRelativeDir = ".schaltwerk/droid/shims"
	shimBinaryName  = "code"
	shimContent     = `#!/bin/bash
set -euo pipefail

if [[ "${1:-}" == "--list-extensions" ]]; then
  echo "factory.factory-vscode-extension"
  exit 0
fi

if [[ "${1:-}" == "--install-extension" ]]; then
  exit 0
fi

exit 0
`
)

// Droid shells out to VS Code's "code" CLI to check/install its own
// extension. ensureVSCodeCLIShim writes a no-op stand-in for that binary
// into the worktree and returns a PATH with the shim's directory prepended,
// so droid believes the extension is already present without actually
// spawning VS Code.
func ensureVSCodeCLIShim(worktreePath, systemPath string) (string, error) {
	shimDir := filepath.Join(worktreePath, shimRelativeDir)
	if err := os.MkdirAll(shimDir, 0o755); err != nil {
		return "", err
	}

	shimPath := filepath.Join(shimDir, shimBinaryName)
	if err := writeIfDifferent(shimPath, shimContent); err != nil {
		return "", err
	}

	if runtime.GOOS != "windows" {
		info, err := os.Stat(shimPath)
		if err != nil {
			return "", err
		}
		if info.Mode().Perm()&0o755 != 0o755 {
			if err := os.Chmod(shimPath, 0o755); err != nil {
				return "", err
			}
		}
	}

	if systemPath == "" {
		return shimDir, nil
	}
	separator := ":"
	if runtime.GOOS == "windows" {
		separator = ";"
	}
	return shimDir + separator + systemPath, nil
}

func writeIfDifferent(path, contents string) error {
	if existing, err := os.ReadFile(path); err == nil && string(existing) == contents {
		return nil
	}
	if parent := filepath.Dir(path); parent != "" {
		if err := os.MkdirAll(parent, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, []byte(contents), 0o644)
}

func (droidAdapter) FindSession(ctx context.Context, worktreePath string) (string, bool) {
	return "", false
}

func (a droidAdapter) BuildLaunchSpec(ctx context.Context, lctx LaunchContext) LaunchSpec {
	binary := lctx.BinaryOverride
	if binary == "" {
		binary = a.def.BinaryName
	}

	cmd := fmt.Sprintf("cd %s && %s", lctx.WorktreePath, binary)
	if prompt := strings.TrimSpace(lctx.InitialPrompt); prompt != "" {
		cmd += fmt.Sprintf(" \"%s\"", escapePromptForShell(lctx.InitialPrompt))
	}

	spec := LaunchSpec{ShellCommand: cmd, WorkingDir: lctx.WorktreePath}

	if newPath, err := ensureVSCodeCLIShim(lctx.WorktreePath, os.Getenv("PATH")); err == nil {
		spec.EnvVars = map[string]string{"PATH": newPath}
	}

	return spec
}
