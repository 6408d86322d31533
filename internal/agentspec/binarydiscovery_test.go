package agentspec

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveBinary_PrefersDefaultBinaryPathWhenExecutable(t *testing.T) {
	dir := t.TempDir()
	custom := filepath.Join(dir, "my-claude")
	require.NoError(t, os.WriteFile(custom, []byte("#!/bin/sh\n"), 0o755))

	def := Definition{ID: "claude", BinaryName: "claude", DefaultBinaryPath: custom}
	resolved, found := resolveBinary(def)
	require.True(t, found)
	assert.Equal(t, custom, resolved)
}

func TestResolveBinary_FallsBackToWellKnownInstallDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("PATH", t.TempDir())

	installed := filepath.Join(home, ".local", "bin", "myagent")
	require.NoError(t, os.MkdirAll(filepath.Dir(installed), 0o755))
	require.NoError(t, os.WriteFile(installed, []byte("#!/bin/sh\n"), 0o755))

	def := Definition{ID: "myagent", BinaryName: "myagent", DefaultBinaryPath: "myagent"}
	resolved, found := resolveBinary(def)
	require.True(t, found)
	assert.Equal(t, installed, resolved)
}

func TestResolveBinary_FallsBackToBareNameWhenNothingFound(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("PATH", t.TempDir())

	def := Definition{ID: "ghost", BinaryName: "ghost-agent", DefaultBinaryPath: "ghost-agent"}
	resolved, found := resolveBinary(def)
	require.True(t, found)
	assert.Equal(t, "ghost-agent", resolved)
}

func TestResolve_CachesResultUntilInvalidated(t *testing.T) {
	InvalidateBinaryCache("")
	defer InvalidateBinaryCache("")

	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("PATH", t.TempDir())

	original := manifest["claude"]
	defer func() { manifest["claude"] = original }()
	manifest["claude"] = Definition{ID: "claude", BinaryName: "claude-cached-test", DefaultBinaryPath: "claude-cached-test"}

	first, ok := Resolve("claude")
	require.True(t, ok)
	assert.Equal(t, "claude-cached-test", first)

	installed := filepath.Join(home, ".local", "bin", "claude-cached-test")
	require.NoError(t, os.MkdirAll(filepath.Dir(installed), 0o755))
	require.NoError(t, os.WriteFile(installed, []byte("#!/bin/sh\n"), 0o755))

	second, ok := Resolve("claude")
	require.True(t, ok)
	assert.Equal(t, "claude-cached-test", second, "cached result should not reflect the newly-created binary")

	InvalidateBinaryCache("claude")
	third, ok := Resolve("claude")
	require.True(t, ok)
	assert.Equal(t, installed, third)
}
