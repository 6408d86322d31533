package ptyhost

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeControlSequences_HandlesCursorPositionQueries(t *testing.T) {
	result := sanitizeControlSequences([]byte("pre\x1b[6npost"))

	assert.Equal(t, []byte("prepost"), result.Data)
	assert.Nil(t, result.Remainder)
	assert.Equal(t, []int{3}, result.CursorQueryOffsets)
	assert.Empty(t, result.Responses)
}

func TestSanitizeControlSequences_HandlesDeviceAttributesQueries(t *testing.T) {
	result := sanitizeControlSequences([]byte("pre\x1b[?1;2cpost"))

	assert.Equal(t, []byte("prepost"), result.Data)
	assert.Nil(t, result.Remainder)
	assert.Empty(t, result.CursorQueryOffsets)
	require.Len(t, result.Responses, 1)
	assert.Equal(t, []byte("\x1b[?1;2c"), result.Responses[0].Immediate)
}

func TestSanitizeControlSequences_PassesThroughUnknownSequences(t *testing.T) {
	result := sanitizeControlSequences([]byte("pre\x1b[123Xpost"))

	assert.Equal(t, []byte("pre\x1b[123Xpost"), result.Data)
	assert.Nil(t, result.Remainder)
	assert.Empty(t, result.CursorQueryOffsets)
	assert.Empty(t, result.Responses)
}

func TestSanitizeControlSequences_PreservesPartialSequencesAsRemainder(t *testing.T) {
	result := sanitizeControlSequences([]byte("partial\x1b["))

	assert.Equal(t, []byte("partial"), result.Data)
	assert.Equal(t, []byte("\x1b["), result.Remainder)
	assert.Empty(t, result.CursorQueryOffsets)
	assert.Empty(t, result.Responses)
}

func TestSanitizeControlSequences_RespondsToForegroundQuery(t *testing.T) {
	result := sanitizeControlSequences([]byte("pre\x1b]10;?\x07post"))

	assert.Equal(t, []byte("prepost"), result.Data)
	assert.Nil(t, result.Remainder)
	require.Len(t, result.Responses, 1)
	assert.Equal(t, []byte("\x1b]10;rgb:ef/ef/ef\x07"), result.Responses[0].Immediate)
}

func TestSanitizeControlSequences_RespondsToBackgroundQuery(t *testing.T) {
	result := sanitizeControlSequences([]byte("pre\x1b]11;?\x1b\\post"))

	assert.Equal(t, []byte("prepost"), result.Data)
	assert.Nil(t, result.Remainder)
	require.Len(t, result.Responses, 1)
	assert.Equal(t, []byte("\x1b]11;rgb:1e/1e/1e\x07"), result.Responses[0].Immediate)
}

func TestSanitizeControlSequences_PassesThroughOSC8Hyperlinks(t *testing.T) {
	input := []byte("pre\x1b]8;;https://example.com\x07link\x1b]8;;\x07post")
	result := sanitizeControlSequences(input)

	assert.Equal(t, input, result.Data)
	assert.Nil(t, result.Remainder)
	assert.Empty(t, result.Responses)
}

func TestSanitizeControlSequences_PassesThroughOSC8HyperlinksWithSTTerminator(t *testing.T) {
	input := []byte("pre\x1b]8;id=123;https://example.com\x1b\\linktext\x1b]8;;\x1b\\post")
	result := sanitizeControlSequences(input)

	assert.Equal(t, input, result.Data)
	assert.Nil(t, result.Remainder)
	assert.Empty(t, result.Responses)
}

func TestSanitizeControlSequences_PassesThroughOSC94Progress(t *testing.T) {
	input := []byte("pre\x1b]9;4;3;50\x07post")
	result := sanitizeControlSequences(input)

	assert.Equal(t, input, result.Data)
	assert.Empty(t, result.Responses)
}

func TestSanitizeControlSequences_PassesThroughUnknownOSCSequences(t *testing.T) {
	input := []byte("pre\x1b]133;A\x07post")
	result := sanitizeControlSequences(input)

	assert.Equal(t, input, result.Data)
	assert.Empty(t, result.Responses)
}
