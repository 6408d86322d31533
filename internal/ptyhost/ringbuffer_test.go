package ptyhost

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingBuffer_AppendAndSnapshot(t *testing.T) {
	rb := newRingBuffer(16)

	first := rb.append([]byte("hello"))
	assert.Equal(t, int64(0), first)

	snap := rb.snapshotFrom(0)
	assert.Equal(t, []byte("hello"), snap.bytes)
	assert.Equal(t, int64(5), snap.seq)
	assert.Equal(t, int64(0), snap.startSeq)
	assert.False(t, snap.truncated)
}

func TestRingBuffer_OverflowDropsOldest(t *testing.T) {
	rb := newRingBuffer(8)

	rb.append([]byte("abcdefgh")) // fills capacity exactly
	rb.append([]byte("ij"))       // overflow by 2: drops "ab"

	snap := rb.snapshotFrom(0)
	require.Equal(t, int64(2), snap.startSeq)
	assert.Equal(t, []byte("cdefghij"), snap.bytes)
	assert.True(t, snap.truncated, "fromSeq 0 predates retained start_seq 2")
}

func TestRingBuffer_SnapshotFromMidStream(t *testing.T) {
	rb := newRingBuffer(64)
	rb.append([]byte("0123456789"))

	snap := rb.snapshotFrom(5)
	assert.Equal(t, []byte("56789"), snap.bytes)
	assert.False(t, snap.truncated)
}

func TestRingBuffer_SnapshotBeyondCurrentSeq(t *testing.T) {
	rb := newRingBuffer(64)
	rb.append([]byte("abc"))

	snap := rb.snapshotFrom(100)
	assert.Empty(t, snap.bytes)
}

func TestRingBuffer_TruncationSignaledWithDistinctStartSeq(t *testing.T) {
	rb := newRingBuffer(4)
	rb.append([]byte("abcdefgh")) // start_seq advances to 4

	snap := rb.snapshotFrom(0)
	assert.True(t, snap.truncated)
	assert.Equal(t, int64(4), snap.startSeq)
	assert.NotEqual(t, int64(0), snap.startSeq, "caller must observe a distinct start_seq on truncation")
}
