// Package refresh implements the Refresh Hub (spec §4.H): a process-global
// coalescer that collapses high-frequency session-state change requests into
// bounded-rate "SessionsRefreshed" snapshots.
package refresh

import (
	"context"
	"sync"
	"time"

	"github.com/schaltwerk/schaltwerk/internal/logging"
)

// Reason identifies what triggered a refresh request, carried through to
// whichever snapshot ends up emitting it.
type Reason string

const (
	ReasonSessionLifecycle Reason = "session_lifecycle"
	ReasonGitStats         Reason = "git_stats"
	ReasonTerminalActivity Reason = "terminal_activity"
	ReasonManual           Reason = "manual"
)

// DefaultCooldown is the minimum delay before the first snapshot after an
// idle hub wakes up, per spec §4.H.
const DefaultCooldown = 125 * time.Millisecond

// MinIntervalBetweenSnapshots is the minimum spacing enforced between two
// consecutive emissions from the same hub, per spec §4.H.
const MinIntervalBetweenSnapshots = 250 * time.Millisecond

// Snapshotter produces the data a refresh emission carries. Implementations
// are expected to be read-only (list + enrich sessions); the Hub calls this
// on its own timer goroutine, never concurrently with itself.
type Snapshotter func(ctx context.Context, reason Reason) (any, error)

// Emitter delivers a computed snapshot to observers (typically
// events.Bus.Publish(events.SessionsRefreshed, ...)).
type Emitter func(payload any)

// Hub coalesces Request calls for one logical stream of session-state
// changes (normally one Hub per open project) into debounced emissions.
// Safe for concurrent use.
type Hub struct {
	snapshot Snapshotter
	emit     Emitter

	mu        sync.Mutex
	inFlight  bool
	dirty     bool
	lastReason Reason
	lastEmit  time.Time
}

// New returns a Hub that computes snapshots with snapshot and delivers them
// via emit.
func New(snapshot Snapshotter, emit Emitter) *Hub {
	return &Hub{snapshot: snapshot, emit: emit}
}

// Request asks the hub to produce a fresh snapshot for reason. If a refresh
// is already in flight, the request is coalesced: the hub remembers the
// latest reason and schedules exactly one follow-up emission once the
// current one completes. Safe to call from any goroutine.
func (h *Hub) Request(ctx context.Context, reason Reason) {
	h.mu.Lock()
	if h.inFlight {
		h.dirty = true
		h.lastReason = reason
		h.mu.Unlock()
		return
	}
	h.inFlight = true
	delay := h.nextDelayLocked()
	h.mu.Unlock()

	go h.spawnRefresh(ctx, reason, delay)
}

// nextDelayLocked computes max(DefaultCooldown, MinIntervalBetweenSnapshots
// - elapsed_since_last_emit). Must be called with h.mu held.
func (h *Hub) nextDelayLocked() time.Duration {
	if h.lastEmit.IsZero() {
		return DefaultCooldown
	}
	elapsed := time.Since(h.lastEmit)
	remaining := MinIntervalBetweenSnapshots - elapsed
	if remaining > DefaultCooldown {
		return remaining
	}
	return DefaultCooldown
}

// spawnRefresh waits delay, computes and emits a snapshot, then either
// schedules a follow-up (if a request arrived while this one was pending)
// or marks the hub idle again.
func (h *Hub) spawnRefresh(ctx context.Context, reason Reason, delay time.Duration) {
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		h.mu.Lock()
		h.inFlight = false
		h.mu.Unlock()
		return
	case <-timer.C:
	}

	payload, err := h.snapshot(ctx, reason)
	if err != nil {
		// Refresh Hub swallows emission errors with a WARN (spec §7); a
		// failed snapshot leaves in_flight=false so the next request retries.
		logging.Warn(ctx, "refresh snapshot failed", "reason", reason, "err", err)
	} else {
		h.emit(payload)
	}

	h.mu.Lock()
	h.lastEmit = time.Now()
	if h.dirty {
		h.dirty = false
		nextReason := h.lastReason
		nextDelay := h.nextDelayLocked()
		h.mu.Unlock()
		h.spawnRefresh(ctx, nextReason, nextDelay)
		return
	}
	h.inFlight = false
	h.mu.Unlock()
}
