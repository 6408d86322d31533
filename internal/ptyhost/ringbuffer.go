// Package ptyhost implements the process-wide PTY Host: it multiplexes many
// pseudo-terminals behind a spawn/write/resize/kill/subscribe/ack/snapshot
// contract, running every chunk read from a child process through a
// streaming UTF-8 decoder and a control-sequence sanitizer before it lands
// in a per-terminal ring buffer.
package ptyhost

import (
	"sync"
)

// DefaultRingBufferSize is the byte capacity of a terminal's output ring
// buffer. Sized generously above a typical full-screen redraw so a
// subscriber that acks within the retention window never observes
// truncation.
const DefaultRingBufferSize = 1 << 20 // 1 MiB

// ringBuffer is a fixed-size, byte-addressed circular buffer. Sequence
// numbers are absolute byte offsets into the logical (infinite) output
// stream; start_seq is the offset of the oldest byte still retained.
type ringBuffer struct {
	mu       sync.Mutex
	capacity int
	buf      []byte
	// startSeq is the sequence number of buf[0] once the buffer has
	// wrapped; seq is the sequence number one past the last byte written.
	startSeq int64
	seq      int64
}

func newRingBuffer(capacity int) *ringBuffer {
	if capacity <= 0 {
		capacity = DefaultRingBufferSize
	}
	return &ringBuffer{capacity: capacity}
}

// append adds data to the buffer, dropping the oldest bytes and advancing
// startSeq if capacity is exceeded. Returns the sequence number of the
// first byte of data.
func (r *ringBuffer) append(data []byte) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	firstSeq := r.seq
	r.buf = append(r.buf, data...)
	r.seq += int64(len(data))

	if overflow := len(r.buf) - r.capacity; overflow > 0 {
		r.buf = r.buf[overflow:]
		r.startSeq += int64(overflow)
	}
	return firstSeq
}

// snapshotState is the result of reading from a given sequence number.
type snapshotState struct {
	seq      int64
	startSeq int64
	bytes    []byte
	// truncated is set when the caller's requested fromSeq predates
	// startSeq: the returned bytes start at startSeq, not fromSeq, and the
	// caller must treat this as a stream reset.
	truncated bool
}

// snapshotFrom returns every retained byte from max(fromSeq, startSeq)
// onward, reporting whether truncation occurred relative to fromSeq.
func (r *ringBuffer) snapshotFrom(fromSeq int64) snapshotState {
	r.mu.Lock()
	defer r.mu.Unlock()

	truncated := fromSeq < r.startSeq
	start := fromSeq
	if start < r.startSeq {
		start = r.startSeq
	}

	offset := int(start - r.startSeq)
	if offset < 0 {
		offset = 0
	}
	if offset > len(r.buf) {
		offset = len(r.buf)
	}

	out := make([]byte, len(r.buf)-offset)
	copy(out, r.buf[offset:])

	return snapshotState{
		seq:       r.seq,
		startSeq:  r.startSeq,
		bytes:     out,
		truncated: truncated,
	}
}

// currentSeq returns the sequence number one past the last byte written.
func (r *ringBuffer) currentSeq() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.seq
}

// currentStartSeq returns the sequence number of the oldest retained byte.
func (r *ringBuffer) currentStartSeq() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.startSeq
}
