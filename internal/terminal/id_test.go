package terminal

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeSessionName_HandlesEmptyAndSpecialChars(t *testing.T) {
	assert.Equal(t, "alpha_beta", SanitizeSessionName("alpha beta"))
	assert.Equal(t, "____", SanitizeSessionName("////"))
	assert.Equal(t, "unknown", SanitizeSessionName(""))
}

func TestSessionTerminalHashFragment_IsStable(t *testing.T) {
	a := sessionTerminalHashFragment("alpha beta")
	b := sessionTerminalHashFragment("alpha beta")
	assert.Equal(t, a, b)
	assert.Len(t, a, hashSliceLen)
}

func TestTerminalIDForSession_IncludesTildeHash(t *testing.T) {
	base := sessionTerminalBase("alpha beta")
	assert.True(t, strings.HasPrefix(base, "session-alpha_beta~"))

	top := TerminalIDForSessionTop("alpha beta")
	assert.Equal(t, base+"-top", top)

	bottom := TerminalIDForSessionBottom("alpha beta")
	assert.Equal(t, base+"-bottom", bottom)
}

func TestTerminalIDForSession_DistinctInputsProduceDistinctIDs(t *testing.T) {
	assert.Equal(t, SanitizeSessionName("alpha beta"), SanitizeSessionName("alpha?beta"))

	topA := TerminalIDForSessionTop("alpha beta")
	topB := TerminalIDForSessionTop("alpha?beta")
	assert.NotEqual(t, topA, topB, "sanitization collapsing two names must not collide once the hash fragment is included")
}

func TestLegacyAndPreviousHashedIDs_MatchExpectedPatterns(t *testing.T) {
	assert.True(t, strings.HasPrefix(LegacyTerminalIDForSessionTop("alpha beta"), "session-alpha_beta-"))
	assert.True(t, strings.HasPrefix(PreviousHashedTerminalIDForSessionTop("alpha beta"), "session-alpha_beta-"))
}

func TestKnownTerminalIDsForSession_ListsCurrentAndLegacyFormats(t *testing.T) {
	top, bottom := KnownTerminalIDsForSession("alpha beta")
	assert.Equal(t, TerminalIDForSessionTop("alpha beta"), top[0])
	assert.Equal(t, LegacyTerminalIDForSessionTop("alpha beta"), top[len(top)-1])
	assert.Equal(t, TerminalIDForSessionBottom("alpha beta"), bottom[0])
	assert.Equal(t, LegacyTerminalIDForSessionBottom("alpha beta"), bottom[len(bottom)-1])
}
