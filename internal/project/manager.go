// Package project implements the Project Manager (spec §4.I): it maps an
// active repository path to its (GitService, Terminal Manager, Session
// Manager) triple and switches the active project atomically, quiescing the
// previous project's terminals rather than destroying them.
package project

import (
	"context"
	"os"
	"sync"

	"github.com/schaltwerk/schaltwerk/internal/events"
	"github.com/schaltwerk/schaltwerk/internal/gitservice"
	"github.com/schaltwerk/schaltwerk/internal/logging"
	"github.com/schaltwerk/schaltwerk/internal/ptyhost"
	"github.com/schaltwerk/schaltwerk/internal/refresh"
	"github.com/schaltwerk/schaltwerk/internal/session"
	"github.com/schaltwerk/schaltwerk/internal/store"
	"github.com/schaltwerk/schaltwerk/internal/terminal"
)

// Handle is one repository's live subsystem triple, kept around (suspended,
// not torn down) after the project stops being active so a later switch back
// can resume it.
type Handle struct {
	RepositoryPath string
	Git            *gitservice.Service
	Terminals      *terminal.Manager
	Sessions       *session.Manager
}

// Manager owns every Handle this process has opened and tracks which one is
// active. It shares a single *store.Store across all repositories, since
// sessions/config/archives are already keyed by repository_path (spec §3).
type Manager struct {
	mu       sync.Mutex
	store    *store.Store
	bus      *events.Bus
	host     *ptyhost.Host
	handles  map[string]*Handle
	activeID string
}

// New returns a Manager sharing st and bus across every project it opens.
func New(st *store.Store, bus *events.Bus) *Manager {
	return &Manager{
		store:   st,
		bus:     bus,
		host:    ptyhost.New(nil),
		handles: make(map[string]*Handle),
	}
}

// Active returns the currently active project's Handle, or nil if no
// project has been switched to yet.
func (m *Manager) Active() *Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.activeID == "" {
		return nil
	}
	return m.handles[m.activeID]
}

func (m *Manager) handleFor(repositoryPath string) *Handle {
	if h, ok := m.handles[repositoryPath]; ok {
		return h
	}

	git := gitservice.New(repositoryPath)
	terminals := terminal.NewManager(m.host)
	hub := refresh.New(m.snapshotterFor(repositoryPath, terminals), m.emitterFor())
	sessions := session.New(m.store, git, terminals, m.bus, hub, repositoryPath, repositoryPath)

	h := &Handle{
		RepositoryPath: repositoryPath,
		Git:            git,
		Terminals:      terminals,
		Sessions:       sessions,
	}
	m.handles[repositoryPath] = h
	return h
}

func (m *Manager) snapshotterFor(repositoryPath string, terminals *terminal.Manager) refresh.Snapshotter {
	return func(ctx context.Context, reason refresh.Reason) (any, error) {
		m.mu.Lock()
		h, ok := m.handles[repositoryPath]
		m.mu.Unlock()
		if !ok {
			return nil, nil
		}
		return h.Sessions.ListEnriched(ctx, session.FilterAll, session.SortName)
	}
}

func (m *Manager) emitterFor() refresh.Emitter {
	return func(payload any) {
		if m.bus != nil {
			m.bus.Publish(events.SessionsRefreshed, payload)
		}
	}
}

// SwitchTo makes repositoryPath the active project: the previous project's
// terminals are suspended (not closed), the target's Handle is created on
// first visit or reused, and its worktrees are reconciled against the
// filesystem (spec §4.I).
func (m *Manager) SwitchTo(ctx context.Context, repositoryPath string) (*Handle, error) {
	m.mu.Lock()
	previous := m.handles[m.activeID]
	target := m.handleFor(repositoryPath)
	m.activeID = repositoryPath
	m.mu.Unlock()

	if previous != nil && previous.RepositoryPath != repositoryPath {
		quiesceTerminals(ctx, previous)
	}

	if err := reconcileWorktrees(ctx, target); err != nil {
		logging.Warn(ctx, "worktree reconciliation failed on project switch", "repository", repositoryPath, "err", err)
	}

	return target, nil
}

// quiesceTerminals suspends every PTY the previous project's sessions own,
// without closing them, so the user can resume the project later and find
// their panes still attached to live processes.
func quiesceTerminals(ctx context.Context, h *Handle) {
	sessions, err := h.Sessions.ListSessions(ctx, session.FilterAll, session.SortName)
	if err != nil {
		logging.Warn(ctx, "failed to list sessions while quiescing project", "repository", h.RepositoryPath, "err", err)
		return
	}
	for _, s := range sessions {
		h.Terminals.SuspendSessionTerminals(ctx, s.ID)
	}
}

// reconcileWorktrees prunes stale git worktree administrative state and
// drops DB rows whose worktree directory has vanished externally, but only
// for sessions that are cancelled or not active — a session still in active
// use with a missing worktree is left alone for the caller to investigate
// rather than silently erased (spec §4.I).
func reconcileWorktrees(ctx context.Context, h *Handle) error {
	if err := h.Git.PruneWorktrees(ctx); err != nil {
		return err
	}

	sessions, err := h.Sessions.ListSessions(ctx, session.FilterAll, session.SortName)
	if err != nil {
		return err
	}

	for _, s := range sessions {
		if s.SessionState == store.StateSpec {
			continue
		}
		if _, statErr := os.Stat(s.WorktreePath); statErr == nil {
			continue
		}
		// cancelled or status != active: an actively-running session missing
		// its worktree is left alone for manual investigation (spec §4.I).
		if s.Status != store.StatusActive {
			if err := h.Sessions.CancelSession(ctx, s.Name); err != nil {
				logging.Warn(ctx, "failed to drop session with externally-removed worktree", "session", s.Name, "err", err)
			}
		}
	}
	return nil
}
