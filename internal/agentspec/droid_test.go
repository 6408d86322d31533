package agentspec

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureVSCodeCLIShim_CreatesExecutableShimAndPrependsPath(t *testing.T) {
	worktree := t.TempDir()

	newPath, err := ensureVSCodeCLIShim(worktree, "/bin")
	require.NoError(t, err)

	expectedDir := filepath.Join(worktree, shimRelativeDir)
	assert.Equal(t, expectedDir+":/bin", newPath)

	shimBinary := filepath.Join(expectedDir, shimBinaryName)
	info, err := os.Stat(shimBinary)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())
}

func TestEnsureVSCodeCLIShim_EmptySystemPathReturnsJustShimDir(t *testing.T) {
	worktree := t.TempDir()

	newPath, err := ensureVSCodeCLIShim(worktree, "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(worktree, shimRelativeDir), newPath)
}

func TestEnsureVSCodeCLIShim_IdempotentOnRepeatedCalls(t *testing.T) {
	worktree := t.TempDir()

	_, err := ensureVSCodeCLIShim(worktree, "/bin")
	require.NoError(t, err)
	secondPath, err := ensureVSCodeCLIShim(worktree, "/bin")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(worktree, shimRelativeDir)+":/bin", secondPath)
}

func TestDroidBuildLaunchSpec_IncludesShimmedPath(t *testing.T) {
	worktree := t.TempDir()
	a := droidAdapter{def: Definition{BinaryName: "droid"}}
	spec := a.BuildLaunchSpec(context.Background(), LaunchContext{
		WorktreePath:  worktree,
		InitialPrompt: "get started",
	})
	assert.Equal(t, `cd `+worktree+` && droid "get started"`, spec.ShellCommand)
	require.NotNil(t, spec.EnvVars)
	assert.Contains(t, spec.EnvVars["PATH"], filepath.Join(worktree, shimRelativeDir))
}

func TestDroidFindSession_AlwaysFalse(t *testing.T) {
	a := droidAdapter{def: Definition{BinaryName: "droid"}}
	_, ok := a.FindSession(context.Background(), t.TempDir())
	assert.False(t, ok)
}
