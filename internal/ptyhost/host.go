package ptyhost

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/creack/pty"

	"github.com/schaltwerk/schaltwerk/internal/apperrors"
	"github.com/schaltwerk/schaltwerk/internal/logging"
)

// AckRetentionWindow is T_ack from spec §4.C: a subscriber that acks within
// this window of real time is guaranteed not to observe truncation, given
// reasonable output rates for DefaultRingBufferSize.
const AckRetentionWindow = 30 * time.Second

// SpawnRequest describes a PTY to create.
type SpawnRequest struct {
	ID      string
	Cwd     string
	Program string
	Args    []string
	Env     []string
	Rows    uint16
	Cols    uint16
}

// SpawnResponse is returned on successful spawn.
type SpawnResponse struct {
	ID  string
	Pid int
}

// SubscribeResponse carries the ring-buffer backlog for a subscribe call
// plus a live channel of subsequent chunks. Events is closed when the
// terminal closes; callers must drain it to avoid leaking the registration.
type SubscribeResponse struct {
	Seq       int64
	StartSeq  int64
	Bytes     []byte
	Truncated bool
	Events    <-chan []byte
	// Unsubscribe removes the listener. Safe to call multiple times and
	// after the terminal has already closed.
	Unsubscribe func()
}

// SnapshotResponse is the non-streaming analogue of SubscribeResponse.
type SnapshotResponse struct {
	Seq       int64
	StartSeq  int64
	Bytes     []byte
	Truncated bool
}

// EventSink receives lifecycle notifications from the Host. Implementations
// must not block; the Host calls these synchronously from the reader
// goroutine of the affected terminal.
type EventSink interface {
	OnData(terminalID string, seq int64, payload []byte)
	OnClosed(terminalID string)
}

type noopSink struct{}

func (noopSink) OnData(string, int64, []byte) {}
func (noopSink) OnClosed(string)              {}

type terminal struct {
	id  string
	ptm *os.File
	cmd *exec.Cmd

	ring    *ringBuffer
	decoder *utf8Decoder

	// csRemainder carries a partial CSI/OSC sequence split across reads.
	writeMu     sync.Mutex
	csRemainder []byte

	subMu sync.Mutex
	subs  map[int]chan []byte
	subN  int

	lastAck   int64
	lastAckAt time.Time

	closeOnce sync.Once
	closed    chan struct{}
}

// Host multiplexes many PTYs behind the spawn/write/resize/kill/subscribe/
// ack/snapshot contract (spec §4.C). A single Host is process-wide; all
// mutation on a given terminal serializes through that terminal's own
// locks, so concurrent callers operating on different ids never block each
// other.
type Host struct {
	mu    sync.RWMutex
	terms map[string]*terminal
	sink  EventSink
}

// New returns a Host that reports lifecycle events to sink. Pass nil to
// discard events (tests, or callers that only poll via Snapshot).
func New(sink EventSink) *Host {
	if sink == nil {
		sink = noopSink{}
	}
	return &Host{terms: make(map[string]*terminal), sink: sink}
}

// Spawn starts a new PTY-backed process under req.ID. Fails with a
// KindConflict error if ID is already in use.
func (h *Host) Spawn(ctx context.Context, req SpawnRequest) (SpawnResponse, error) {
	h.mu.Lock()
	if _, exists := h.terms[req.ID]; exists {
		h.mu.Unlock()
		return SpawnResponse{}, apperrors.Conflict(fmt.Sprintf("terminal %q already exists", req.ID), nil)
	}
	// Reserve the slot before releasing the lock so a concurrent Spawn with
	// the same id can't race past this check.
	h.terms[req.ID] = nil
	h.mu.Unlock()

	cmd := exec.CommandContext(ctx, req.Program, req.Args...)
	cmd.Dir = req.Cwd
	if len(req.Env) > 0 {
		cmd.Env = req.Env
	}

	ptm, err := pty.StartWithSize(cmd, &pty.Winsize{Rows: req.Rows, Cols: req.Cols})
	if err != nil {
		h.mu.Lock()
		delete(h.terms, req.ID)
		h.mu.Unlock()
		return SpawnResponse{}, apperrors.IoFailure(fmt.Sprintf("spawning pty for %s", req.Program), err)
	}

	t := &terminal{
		id:      req.ID,
		ptm:     ptm,
		cmd:     cmd,
		ring:    newRingBuffer(DefaultRingBufferSize),
		decoder: newUTF8Decoder(),
		subs:    make(map[int]chan []byte),
		closed:  make(chan struct{}),
	}

	h.mu.Lock()
	h.terms[req.ID] = t
	h.mu.Unlock()

	logging.Info(logging.WithAgent(ctx, req.ID), "terminal spawned", "program", req.Program, "pid", cmd.Process.Pid)

	go h.pump(ctx, t)

	return SpawnResponse{ID: req.ID, Pid: cmd.Process.Pid}, nil
}

// pump reads from the PTY master until EOF/error, running each chunk
// through the output pipeline and broadcasting it, then emits TerminalClosed
// exactly once.
func (h *Host) pump(ctx context.Context, t *terminal) {
	buf := make([]byte, 32*1024)
	for {
		n, err := t.ptm.Read(buf)
		if n > 0 {
			h.handleChunk(ctx, t, buf[:n])
		}
		if err != nil {
			break
		}
	}

	_ = t.cmd.Wait()
	_ = t.ptm.Close()

	t.closeOnce.Do(func() {
		close(t.closed)
		t.subMu.Lock()
		for _, ch := range t.subs {
			close(ch)
		}
		t.subs = nil
		t.subMu.Unlock()
		h.sink.OnClosed(t.id)
		logging.Info(logging.WithAgent(ctx, t.id), "terminal closed")
	})
}

// handleChunk runs the three-stage output pipeline (UTF-8 decode, control
// sequence sanitize, ring buffer coalesce) over one PTY read and fans the
// result out to subscribers.
func (h *Host) handleChunk(ctx context.Context, t *terminal, chunk []byte) {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	decoded, hadReplacements := t.decoder.decodeChunk(chunk)
	t.decoder.maybeWarn(ctx, t.id, hadReplacements)

	raw := append(t.csRemainder, []byte(decoded)...)
	t.csRemainder = nil

	sanitized := sanitizeControlSequences(raw)
	t.csRemainder = sanitized.Remainder

	for _, resp := range sanitized.Responses {
		if _, err := t.ptm.Write(resp.Immediate); err != nil {
			logging.Debug(ctx, "failed to write immediate terminal response", "terminal", t.id, "err", err)
		}
	}

	if len(sanitized.Data) == 0 {
		return
	}

	seq := t.ring.append(sanitized.Data)
	h.sink.OnData(t.id, seq, sanitized.Data)

	t.subMu.Lock()
	for _, ch := range t.subs {
		select {
		case ch <- sanitized.Data:
		default:
			// Slow subscriber; it will catch up via Snapshot/Subscribe's
			// ring-buffer backlog on reconnect rather than block the pump.
		}
	}
	t.subMu.Unlock()
}

func (h *Host) get(id string) (*terminal, error) {
	h.mu.RLock()
	t, ok := h.terms[id]
	h.mu.RUnlock()
	if !ok || t == nil {
		return nil, apperrors.NotFound(fmt.Sprintf("terminal %q not found", id), nil)
	}
	select {
	case <-t.closed:
		return nil, apperrors.NotFound(fmt.Sprintf("terminal %q not found", id), nil)
	default:
	}
	return t, nil
}

// Write appends bytes to the PTY's stdin. Writes for a given id are never
// reordered relative to each other.
func (h *Host) Write(ctx context.Context, id string, data []byte) error {
	t, err := h.get(id)
	if err != nil {
		return err
	}
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if _, err := t.ptm.Write(data); err != nil {
		return apperrors.IoFailure(fmt.Sprintf("writing to terminal %s", id), err)
	}
	return nil
}

// Resize sets the PTY's window size. Idempotent: callers are free to call
// this on every layout pass without checking whether rows/cols changed.
func (h *Host) Resize(ctx context.Context, id string, rows, cols uint16) error {
	t, err := h.get(id)
	if err != nil {
		return err
	}
	if err := pty.Setsize(t.ptm, &pty.Winsize{Rows: rows, Cols: cols}); err != nil {
		return apperrors.IoFailure(fmt.Sprintf("resizing terminal %s", id), err)
	}
	return nil
}

// Kill sends SIGTERM to the child process. TerminalClosed is emitted by the
// pump goroutine once the child is reaped, not synchronously here.
func (h *Host) Kill(ctx context.Context, id string) error {
	t, err := h.get(id)
	if err != nil {
		return err
	}
	if t.cmd.Process == nil {
		return nil
	}
	if err := t.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		return apperrors.IoFailure(fmt.Sprintf("killing terminal %s", id), err)
	}
	return nil
}

// Subscribe registers a live listener for terminal id and returns the
// backlog starting at max(lastSeenSeq+1, start_seq) alongside a channel of
// subsequent chunks. If lastSeenSeq predates the ring buffer's retained
// window, Truncated is set and the caller must treat this as a reset.
func (h *Host) Subscribe(ctx context.Context, id string, lastSeenSeq int64) (SubscribeResponse, error) {
	t, err := h.get(id)
	if err != nil {
		return SubscribeResponse{}, err
	}

	snap := t.ring.snapshotFrom(lastSeenSeq + 1)

	ch := make(chan []byte, 64)
	t.subMu.Lock()
	t.subN++
	id2 := t.subN
	if t.subs == nil {
		t.subMu.Unlock()
		close(ch)
		return SubscribeResponse{}, apperrors.NotFound(fmt.Sprintf("terminal %q not found", id), nil)
	}
	t.subs[id2] = ch
	t.subMu.Unlock()

	return SubscribeResponse{
		Seq:         snap.seq,
		StartSeq:    snap.startSeq,
		Bytes:       snap.bytes,
		Truncated:   snap.truncated,
		Events:      ch,
		Unsubscribe: func() { h.unsubscribe(t, id2) },
	}, nil
}

// Ack advances back-pressure accounting for a subscriber that has
// processed up through seq (covering byteCount bytes). The Host logs a
// warning if the ack is older than AckRetentionWindow behind the ring
// buffer's current start_seq, which indicates the caller is at risk of (or
// has already experienced) truncation.
func (h *Host) Ack(ctx context.Context, id string, seq int64, byteCount int) error {
	t, err := h.get(id)
	if err != nil {
		return err
	}
	t.subMu.Lock()
	t.lastAck = seq
	t.lastAckAt = time.Now()
	t.subMu.Unlock()

	if start := t.ring.currentStartSeq(); seq < start {
		logging.Warn(ctx, "ack trails ring buffer start, subscriber has lost data", "terminal", id, "ack_seq", seq, "start_seq", start)
	}
	return nil
}

// Snapshot is the non-streaming analogue of Subscribe: it returns the
// retained bytes from fromSeq onward without registering a live listener.
func (h *Host) Snapshot(ctx context.Context, id string, fromSeq int64) (SnapshotResponse, error) {
	t, err := h.get(id)
	if err != nil {
		return SnapshotResponse{}, err
	}
	snap := t.ring.snapshotFrom(fromSeq)
	return SnapshotResponse{
		Seq:       snap.seq,
		StartSeq:  snap.startSeq,
		Bytes:     snap.bytes,
		Truncated: snap.truncated,
	}, nil
}

// Unsubscribe removes a previously-registered live listener. Safe to call
// after the terminal has already closed (the channel was already closed and
// subs cleared).
func (h *Host) unsubscribe(t *terminal, subID int) {
	t.subMu.Lock()
	defer t.subMu.Unlock()
	if ch, ok := t.subs[subID]; ok {
		delete(t.subs, subID)
		_ = ch
	}
}
