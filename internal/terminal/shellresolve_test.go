package terminal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveShellCandidate_RejectsBlankShell(t *testing.T) {
	_, ok := resolveShellCandidate("   ")
	assert.False(t, ok)
}

func TestResolveShellCandidate_AbsolutePathMustBeExecutable(t *testing.T) {
	resolved, ok := resolveShellCandidate("/bin/sh")
	if ok {
		assert.Equal(t, "/bin/sh", resolved)
	}

	_, ok = resolveShellCandidate("/nonexistent/path/to/a/shell")
	assert.False(t, ok)
}

func TestGetEffectiveShell_OverrideWinsWhenResolvable(t *testing.T) {
	defer ClearShellOverride()

	SetShellOverride("/bin/sh", []string{"-c", "true"})
	shell, args := GetEffectiveShell()
	assert.Equal(t, "/bin/sh", shell)
	assert.Equal(t, []string{"-c", "true"}, args)
}

func TestGetEffectiveShell_OverrideFallsThroughWhenUnresolvable(t *testing.T) {
	defer ClearShellOverride()

	SetShellOverride("/nonexistent/path/to/a/shell", []string{"-x"})
	shell, _ := GetEffectiveShell()
	assert.NotEqual(t, "/nonexistent/path/to/a/shell", shell)
	assert.NotEmpty(t, shell)
}

func TestGetEffectiveShell_NeverReturnsEmptyProgram(t *testing.T) {
	ClearShellOverride()
	shell, _ := GetEffectiveShell()
	assert.NotEmpty(t, shell)
}

func TestExpandHome_ExpandsTildeSlashPrefix(t *testing.T) {
	t.Setenv("HOME", "/home/tester")
	assert.Equal(t, "/home/tester/.local/bin/fish", expandHome("~/.local/bin/fish"))
	assert.Equal(t, "/bin/zsh", expandHome("/bin/zsh"))
}

func TestPathIsExecutable_FalseForMissingFile(t *testing.T) {
	assert.False(t, pathIsExecutable("/nonexistent/path/to/a/shell"))
}
