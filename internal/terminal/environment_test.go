package terminal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePathComponent_TrimsQuotesAndWhitespace(t *testing.T) {
	assert.Equal(t, []string{"/usr/bin"}, normalizePathComponent(`  "/usr/bin"  `))
	assert.Equal(t, []string{"/usr/bin"}, normalizePathComponent(`'/usr/bin'`))
	assert.Nil(t, normalizePathComponent("   "))
}

func TestNormalizePathComponent_SplitsWhitespaceConcatenatedEntries(t *testing.T) {
	entries := normalizePathComponent("/foo/bin /bar/bin")
	assert.Equal(t, []string{"/foo/bin", "/bar/bin"}, entries)
}

func TestNormalizePathComponent_EmptyStringYieldsNil(t *testing.T) {
	assert.Nil(t, normalizePathComponent(""))
}

func TestBuildEnvironment_IncludesTermLinesColumnsAndPath(t *testing.T) {
	env := BuildEnvironment(40, 120)

	has := func(prefix string) bool {
		for _, kv := range env {
			if len(kv) >= len(prefix) && kv[:len(prefix)] == prefix {
				return true
			}
		}
		return false
	}

	assert.True(t, has("TERM="))
	assert.True(t, has("LINES=40"))
	assert.True(t, has("COLUMNS=120"))
	assert.True(t, has("PATH="))
	assert.True(t, has("CLICOLOR="))
}
