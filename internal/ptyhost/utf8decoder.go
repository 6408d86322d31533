package ptyhost

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/schaltwerk/schaltwerk/internal/logging"
)

// InvalidPolicy controls how a utf8Decoder handles malformed byte sequences.
type InvalidPolicy int

const (
	// InvalidReplace emits U+FFFD for each malformed subpart. Default: keeps
	// malformed input visible rather than silently dropping it.
	InvalidReplace InvalidPolicy = iota
	// InvalidRemove suppresses malformed subparts entirely.
	InvalidRemove
)

const (
	warnEvery = 10 * time.Second
	warnStep  = 200
)

// utf8Decoder is a streaming UTF-8 decoder: it never drops valid bytes and
// carries an incomplete trailing multi-byte sequence into the next chunk.
// Malformed subparts are handled per policy. Not safe for concurrent use by
// multiple goroutines without external synchronization (callers serialize
// per-terminal already).
type utf8Decoder struct {
	mu       sync.Mutex
	pending  []byte
	policy   InvalidPolicy
	warnLast time.Time
	warnN    uint64
}

func newUTF8Decoder() *utf8Decoder {
	return &utf8Decoder{policy: InvalidReplace}
}

func (d *utf8Decoder) setPolicy(p InvalidPolicy) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.policy = p
}

// decodeChunk decodes input, prepending any carried-over bytes from a prior
// call. Returns the decoded text and whether any malformed subpart was
// encountered (regardless of policy, so callers can rate-limit warnings).
func (d *utf8Decoder) decodeChunk(input []byte) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	buf := make([]byte, 0, len(d.pending)+len(input))
	buf = append(buf, d.pending...)
	buf = append(buf, input...)
	d.pending = d.pending[:0]

	var out strings.Builder
	out.Grow(len(buf))
	hadReplacements := false

	i := 0
	for i < len(buf) {
		r, size := utf8.DecodeRune(buf[i:])
		if r != utf8.RuneError {
			out.WriteRune(r)
			i += size
			continue
		}

		if size <= 1 && !utf8.FullRune(buf[i:]) {
			// Not enough bytes yet to know whether this is valid; carry it
			// into the next chunk rather than treating it as malformed.
			d.pending = append(d.pending, buf[i:]...)
			i = len(buf)
			break
		}

		hadReplacements = true
		if d.policy == InvalidReplace {
			out.WriteRune(utf8.RuneError)
		}
		if size < 1 {
			size = 1
		}
		i += size
	}

	return out.String(), hadReplacements
}

// finish flushes any still-pending incomplete sequence at stream end,
// returning the replacement text (if policy is InvalidReplace and there was
// pending data) to append to the final output.
func (d *utf8Decoder) finish() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.pending) == 0 {
		return ""
	}
	d.pending = d.pending[:0]
	if d.policy == InvalidReplace {
		return string(utf8.RuneError)
	}
	return ""
}

// maybeWarn logs a rate-limited warning when malformed UTF-8 was seen,
// logging at most once per warnEvery or every warnStep occurrences,
// whichever comes first.
func (d *utf8Decoder) maybeWarn(ctx context.Context, terminalID string, hadReplacements bool) {
	if !hadReplacements {
		return
	}
	d.mu.Lock()
	now := time.Now()
	d.warnN++
	shouldLogTime := d.warnLast.IsZero() || now.Sub(d.warnLast) >= warnEvery
	shouldLogStep := d.warnN%warnStep == 0
	policy := d.policy
	count := d.warnN
	if shouldLogTime || shouldLogStep {
		d.warnLast = now
		if shouldLogTime {
			d.warnN = 0
		}
	}
	d.mu.Unlock()

	if !shouldLogTime && !shouldLogStep {
		return
	}

	if policy == InvalidReplace {
		logging.Warn(ctx, "malformed UTF-8 in terminal output, replaced with U+FFFD", "terminal", terminalID, "count", count)
	} else {
		logging.Debug(ctx, "suppressed malformed UTF-8 subparts in terminal output", "terminal", terminalID, "count", count)
	}
}
