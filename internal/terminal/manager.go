package terminal

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/schaltwerk/schaltwerk/internal/apperrors"
	"github.com/schaltwerk/schaltwerk/internal/logging"
	"github.com/schaltwerk/schaltwerk/internal/ptyhost"
)

// pastePrefix/pasteSuffix are the bracketed-paste markers (CSI 200~ / CSI
// 201~) that let a well-behaved shell or editor tell pasted text apart from
// typed input.
const (
	pastePrefix = "\x1b[200~"
	pasteSuffix = "\x1b[201~"
)

// ActivityStatus reports whether a terminal has produced output recently.
type ActivityStatus struct {
	ActiveRecently bool
	LastActivityMs int64
}

// CreateParams describes a terminal to create.
type CreateParams struct {
	ID      string
	Cwd     string
	Program string
	Args    []string
	Env     []string
	Rows    uint16
	Cols    uint16
}

type registration struct {
	mu           sync.Mutex
	projectID    string
	sessionID    string
	suspended    bool
	lastActivity time.Time
	lastSeenSeq  int64
	sub          *ptyhost.SubscribeResponse
}

// Manager is a per-project wrapper over the PTY Host: it derives terminal
// ids, builds launch environments, and layers registration/suspend-resume/
// activity tracking on top of the host's spawn/write/resize/kill/subscribe
// contract.
type Manager struct {
	host *ptyhost.Host

	mu    sync.Mutex
	byID  map[string]*registration
}

// NewManager returns a Manager driving host.
func NewManager(host *ptyhost.Host) *Manager {
	return &Manager{host: host, byID: make(map[string]*registration)}
}

// Create spawns a terminal under params.ID, building its command spec and
// environment the way a login shell invocation would if Program is empty
// (an interactive shell terminal rather than an application terminal).
func (m *Manager) Create(ctx context.Context, params CreateParams) error {
	env := append(BuildEnvironment(params.Rows, params.Cols), params.Env...)

	program := params.Program
	args := params.Args
	if program == "" {
		shell, shellArgs := GetEffectiveShell()
		program = shell
		args = shellArgs
		env = append(env, "SHELL="+shell)
	} else {
		program = ResolveCommand(program)
	}

	_, err := m.host.Spawn(ctx, ptyhost.SpawnRequest{
		ID:      params.ID,
		Cwd:     params.Cwd,
		Program: program,
		Args:    args,
		Env:     env,
		Rows:    params.Rows,
		Cols:    params.Cols,
	})
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.byID[params.ID] = &registration{lastActivity: time.Now()}
	m.mu.Unlock()
	return nil
}

// RegisterSessionTerminals associates a set of already-created (or
// about-to-be-created) terminal ids with a project and session, so they can
// later be addressed as a group by SuspendSessionTerminals/
// ResumeSessionTerminals/CleanupAll.
func (m *Manager) RegisterSessionTerminals(projectID, sessionID string, ids []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		reg, ok := m.byID[id]
		if !ok {
			reg = &registration{lastActivity: time.Now()}
			m.byID[id] = reg
		}
		reg.projectID = projectID
		reg.sessionID = sessionID
	}
}

func (m *Manager) registrationFor(id string) (*registration, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	reg, ok := m.byID[id]
	return reg, ok
}

// Write appends bytes to id's stdin.
func (m *Manager) Write(ctx context.Context, id string, data []byte) error {
	m.touch(id)
	return m.host.Write(ctx, id, data)
}

// PasteAndSubmit wraps payload in bracketed-paste markers (when bracketed
// is true) and always appends a trailing newline before writing it to id's
// stdin, matching a terminal's paste-then-Enter gesture.
func (m *Manager) PasteAndSubmit(ctx context.Context, id string, payload []byte, bracketed bool) error {
	var buf bytes.Buffer
	if bracketed {
		buf.WriteString(pastePrefix)
	}
	buf.Write(payload)
	if bracketed {
		buf.WriteString(pasteSuffix)
	}
	buf.WriteByte('\n')
	return m.Write(ctx, id, buf.Bytes())
}

// Subscribe opens a live event stream for id starting at fromSeq, recording
// the subscription against id's registration so a later
// SuspendSessionTerminals call can detach it cleanly.
func (m *Manager) Subscribe(ctx context.Context, id string, fromSeq int64) (ptyhost.SubscribeResponse, error) {
	resp, err := m.host.Subscribe(ctx, id, fromSeq)
	if err != nil {
		return ptyhost.SubscribeResponse{}, err
	}

	if reg, ok := m.registrationFor(id); ok {
		reg.mu.Lock()
		reg.sub = &resp
		reg.suspended = false
		reg.mu.Unlock()
	}
	return resp, nil
}

// Resize is idempotent, delegating directly to the host.
func (m *Manager) Resize(ctx context.Context, id string, rows, cols uint16) error {
	return m.host.Resize(ctx, id, rows, cols)
}

// Close kills the terminal's process. TerminalClosed still arrives
// asynchronously via the Host's EventSink once the child is reaped.
func (m *Manager) Close(ctx context.Context, id string) error {
	return m.host.Kill(ctx, id)
}

// Exists reports whether id is a known, still-open terminal.
func (m *Manager) Exists(ctx context.Context, id string) bool {
	_, err := m.host.Snapshot(ctx, id, 0)
	return err == nil
}

// ExistsBulk reports existence for every id in ids, preserving order.
func (m *Manager) ExistsBulk(ctx context.Context, ids []string) map[string]bool {
	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		out[id] = m.Exists(ctx, id)
	}
	return out
}

// Snapshot returns the retained output for id from fromSeq onward.
func (m *Manager) Snapshot(ctx context.Context, id string, fromSeq int64) (ptyhost.SnapshotResponse, error) {
	return m.host.Snapshot(ctx, id, fromSeq)
}

func (m *Manager) touch(id string) {
	if reg, ok := m.registrationFor(id); ok {
		reg.mu.Lock()
		reg.lastActivity = time.Now()
		reg.mu.Unlock()
	}
}

// activityWindow is the "recent" window used by GetTerminalActivityStatus'
// ActiveRecently flag.
const activityWindow = 5 * time.Second

// GetTerminalActivityStatus reports whether id has produced output within
// activityWindow, and the epoch-millis timestamp of its last activity.
func (m *Manager) GetTerminalActivityStatus(id string) (ActivityStatus, error) {
	reg, ok := m.registrationFor(id)
	if !ok {
		return ActivityStatus{}, apperrors.NotFound(fmt.Sprintf("terminal %q not registered", id), nil)
	}
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return ActivityStatus{
		ActiveRecently: time.Since(reg.lastActivity) < activityWindow,
		LastActivityMs: reg.lastActivity.UnixMilli(),
	}, nil
}

// GetAllTerminalActivity reports activity status for every registered
// terminal.
func (m *Manager) GetAllTerminalActivity() map[string]ActivityStatus {
	m.mu.Lock()
	ids := make([]string, 0, len(m.byID))
	for id := range m.byID {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	out := make(map[string]ActivityStatus, len(ids))
	for _, id := range ids {
		if status, err := m.GetTerminalActivityStatus(id); err == nil {
			out[id] = status
		}
	}
	return out
}

// SuspendSessionTerminals detaches the live subscriber stream for every
// terminal belonging to sessionID: output keeps accumulating into the ring
// buffer (up to its retention window) but PtyData is no longer forwarded to
// observers until ResumeSessionTerminals is called.
func (m *Manager) SuspendSessionTerminals(ctx context.Context, sessionID string) {
	for _, reg := range m.registrationsForSession(sessionID) {
		reg.mu.Lock()
		if reg.sub != nil {
			reg.lastSeenSeq = reg.sub.Seq
			reg.sub.Unsubscribe()
			reg.sub = nil
		}
		reg.suspended = true
		reg.mu.Unlock()
	}
}

// ResumeSessionTerminals re-subscribes every terminal belonging to
// sessionID, starting from each terminal's last-acked sequence so the
// observer receives exactly the backlog it missed while suspended.
func (m *Manager) ResumeSessionTerminals(ctx context.Context, sessionID string) error {
	for id, reg := range m.registrationsForSessionByID(sessionID) {
		reg.mu.Lock()
		if !reg.suspended {
			reg.mu.Unlock()
			continue
		}
		resp, err := m.host.Subscribe(ctx, id, reg.lastSeenSeq)
		if err != nil {
			reg.mu.Unlock()
			if apperrors.Is(err, apperrors.KindNotFound) {
				continue
			}
			return err
		}
		reg.sub = &resp
		reg.suspended = false
		reg.mu.Unlock()
	}
	return nil
}

// IsSuspended reports whether id's live stream is currently detached.
func (m *Manager) IsSuspended(id string) bool {
	reg, ok := m.registrationFor(id)
	if !ok {
		return false
	}
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return reg.suspended
}

func (m *Manager) registrationsForSession(sessionID string) []*registration {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*registration
	for _, reg := range m.byID {
		if reg.sessionID == sessionID {
			out = append(out, reg)
		}
	}
	return out
}

func (m *Manager) registrationsForSessionByID(sessionID string) map[string]*registration {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]*registration)
	for id, reg := range m.byID {
		if reg.sessionID == sessionID {
			out[id] = reg
		}
	}
	return out
}

// CleanupAll closes every terminal registered against projectID, best
// effort: a failure to kill one terminal is logged and does not stop the
// rest from being closed.
func (m *Manager) CleanupAll(ctx context.Context, projectID string) {
	m.mu.Lock()
	var ids []string
	for id, reg := range m.byID {
		if reg.projectID == projectID {
			ids = append(ids, id)
		}
	}
	m.mu.Unlock()

	for _, id := range ids {
		if err := m.host.Kill(ctx, id); err != nil && !apperrors.Is(err, apperrors.KindNotFound) {
			logging.Warn(ctx, "failed to close terminal during project cleanup", "terminal", id, "err", err)
		}
		m.mu.Lock()
		delete(m.byID, id)
		m.mu.Unlock()
	}
}
