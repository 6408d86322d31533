package agentspec

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscapePromptForShell_EscapesDoubleQuotesOnly(t *testing.T) {
	assert.Equal(t, `implement \"feature\" with quotes`, escapePromptForShell(`implement "feature" with quotes`))
	assert.Equal(t, "plain text", escapePromptForShell("plain text"))
}

func TestFormatBinaryInvocation_QuotesOnlyWhenWhitespacePresent(t *testing.T) {
	assert.Equal(t, "claude", formatBinaryInvocation("claude"))
	assert.Equal(t, `"/path/with spaces"`, formatBinaryInvocation("/path/with spaces"))
}
