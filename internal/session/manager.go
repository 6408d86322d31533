package session

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/schaltwerk/schaltwerk/internal/agentspec"
	"github.com/schaltwerk/schaltwerk/internal/apperrors"
	"github.com/schaltwerk/schaltwerk/internal/cleanup"
	"github.com/schaltwerk/schaltwerk/internal/events"
	"github.com/schaltwerk/schaltwerk/internal/gitservice"
	"github.com/schaltwerk/schaltwerk/internal/logging"
	"github.com/schaltwerk/schaltwerk/internal/merge"
	"github.com/schaltwerk/schaltwerk/internal/paths"
	"github.com/schaltwerk/schaltwerk/internal/refresh"
	"github.com/schaltwerk/schaltwerk/internal/store"
	"github.com/schaltwerk/schaltwerk/internal/terminal"
	"github.com/schaltwerk/schaltwerk/redact"
)

// repoLocks serializes the prune/create-worktree portion of session
// creation per repository (spec §4.F step 4 "under the same per-repo
// lock"), mirroring internal/merge's own per-repository lock.
var (
	repoLocksMu sync.Mutex
	repoLocks   = make(map[string]*sync.Mutex)
)

func lockFor(repositoryPath string) *sync.Mutex {
	repoLocksMu.Lock()
	defer repoLocksMu.Unlock()
	if l, ok := repoLocks[repositoryPath]; ok {
		return l
	}
	l := &sync.Mutex{}
	repoLocks[repositoryPath] = l
	return l
}

// Manager orchestrates one repository's sessions: the lifecycle state
// machine, worktree provisioning, merges, and the caches layered in front of
// the Store (spec §4.F).
type Manager struct {
	store          *store.Store
	git            *gitservice.Service
	terminals      *terminal.Manager
	bus            *events.Bus
	hub            *refresh.Hub
	repositoryPath string
	repositoryName string
	projectID      string

	repoLock *sync.Mutex

	specCache   *specContentCache
	lookupCache *sessionLookupCache
	sizeCache   *worktreeSizeCache
}

// New returns a Manager for repositoryPath, wired against the given Store,
// GitService, Terminal Manager, Event Bus, and Refresh Hub.
func New(st *store.Store, git *gitservice.Service, terminals *terminal.Manager, bus *events.Bus, hub *refresh.Hub, projectID, repositoryPath string) *Manager {
	return &Manager{
		store:          st,
		git:            git,
		terminals:      terminals,
		bus:            bus,
		hub:            hub,
		repositoryPath: repositoryPath,
		repositoryName: paths.RepositoryName(repositoryPath),
		projectID:      projectID,
		repoLock:       lockFor(repositoryPath),
		specCache:      newSpecContentCache(),
		lookupCache:    newSessionLookupCache(),
		sizeCache:      newWorktreeSizeCache(),
	}
}

func (m *Manager) publish(name events.Name, payload any) {
	if m.bus != nil {
		m.bus.Publish(name, payload)
	}
}

func (m *Manager) requestRefresh(ctx context.Context, reason refresh.Reason) {
	if m.hub != nil {
		m.hub.Request(ctx, reason)
	}
}

// resolveBaseBranch implements spec §4.F step 1: explicit → project default
// → repository default.
func (m *Manager) resolveBaseBranch(ctx context.Context, explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if appCfg, err := m.store.GetAppConfig(ctx); err == nil && appCfg.DefaultBaseBranch != "" {
		return appCfg.DefaultBaseBranch, nil
	}
	return m.git.GetDefaultBranch(ctx)
}

// CreateSpec inserts a session row in the spec state with no filesystem
// effects (spec §4.F "Spec mode").
func (m *Manager) CreateSpec(ctx context.Context, name, content string) (store.Session, error) {
	if err := validateAndCheckFree(ctx, m.store, m.repositoryPath, name); err != nil {
		return store.Session{}, err
	}

	now := time.Now().UTC()
	sess := store.Session{
		ID:             uuid.NewString(),
		Name:           name,
		RepositoryPath: m.repositoryPath,
		RepositoryName: m.repositoryName,
		Branch:         paths.SessionBranch(name),
		WorktreePath:   paths.WorktreePath(m.repositoryPath, name),
		Status:         store.StatusSpec,
		SessionState:   store.StateSpec,
		CreatedAt:      now,
		UpdatedAt:      now,
		SpecContent:    content,
		ResumeAllowed:  true,
	}
	if err := m.store.CreateSession(ctx, sess); err != nil {
		return store.Session{}, err
	}

	m.specCache.set(m.repositoryPath, name, content)
	m.lookupCache.set(m.repositoryPath, name, sess.ID)
	m.publish(events.SessionAdded, sess)
	m.requestRefresh(ctx, refresh.ReasonSessionLifecycle)
	return sess, nil
}

func validateAndCheckFree(ctx context.Context, st *store.Store, repositoryPath, name string) error {
	_, err := st.GetSessionByName(ctx, repositoryPath, name)
	if err == nil {
		return apperrors.Conflict(fmt.Sprintf("session %q already exists", name), nil)
	}
	if !apperrors.Is(err, apperrors.KindNotFound) {
		return err
	}
	return nil
}

// CreateSession runs the full creation contract (spec §4.F steps 1-6):
// resolving a base branch and a unique name, persisting the DB row in the
// running state, provisioning the worktree, running the project's setup
// script, and publishing SessionAdded.
func (m *Manager) CreateSession(ctx context.Context, params CreateSessionParams) (store.Session, error) {
	baseBranch, err := m.resolveBaseBranch(ctx, params.BaseBranch)
	if err != nil {
		return store.Session{}, err
	}

	requested := params.RequestedName
	if requested == "" {
		requested = generateSessionNameSeed()
	}

	name, branch, worktreePath, release, err := reserveUniqueName(ctx, m.store, m.repositoryPath, requested)
	if err != nil {
		return store.Session{}, err
	}
	defer release()

	now := time.Now().UTC()
	sess := store.Session{
		ID:                uuid.NewString(),
		Name:              name,
		RepositoryPath:    m.repositoryPath,
		RepositoryName:    m.repositoryName,
		Branch:            branch,
		ParentBranch:      baseBranch,
		WorktreePath:      worktreePath,
		Status:            store.StatusActive,
		SessionState:      store.StateRunning,
		CreatedAt:         now,
		UpdatedAt:         now,
		InitialPrompt:     params.Prompt,
		OriginalAgentType: params.Agent,
		OriginalSkipPermissions: params.SkipPermissions,
		ResumeAllowed:     true,
	}

	if err := m.store.CreateSession(ctx, sess); err != nil {
		return store.Session{}, err
	}

	if err := m.provisionWorktree(ctx, sess); err != nil {
		_ = m.store.DeleteSession(ctx, sess.ID)
		return store.Session{}, err
	}

	m.lookupCache.set(m.repositoryPath, name, sess.ID)
	m.publish(events.SessionAdded, sess)
	m.requestRefresh(ctx, refresh.ReasonSessionLifecycle)
	return sess, nil
}

// StartSpecSession flips a spec-state session to running and performs
// worktree provisioning + setup-script execution (spec §4.F steps 4-6).
func (m *Manager) StartSpecSession(ctx context.Context, name, baseBranch, agent string, skipPermissions bool) (store.Session, error) {
	sess, err := m.store.GetSessionByName(ctx, m.repositoryPath, name)
	if err != nil {
		return store.Session{}, err
	}
	if sess.SessionState != store.StateSpec {
		return store.Session{}, apperrors.UserInput(fmt.Sprintf("session %q is not in spec state", name), nil)
	}

	resolved, err := m.resolveBaseBranch(ctx, baseBranch)
	if err != nil {
		return store.Session{}, err
	}

	sess.ParentBranch = resolved
	sess.Status = store.StatusActive
	sess.SessionState = store.StateRunning
	sess.OriginalAgentType = agent
	sess.OriginalSkipPermissions = skipPermissions
	sess.UpdatedAt = time.Now().UTC()

	if err := m.store.UpdateSession(ctx, sess); err != nil {
		return store.Session{}, err
	}

	if err := m.provisionWorktree(ctx, sess); err != nil {
		return store.Session{}, err
	}

	m.specCache.invalidate(m.repositoryPath, name)
	m.publish(events.SessionAdded, sess)
	m.requestRefresh(ctx, refresh.ReasonSessionLifecycle)
	return sess, nil
}

// provisionWorktree implements spec §4.F steps 4-5: under the repository
// lock, prune stale worktrees, remove any stray directory at the target
// path, create the worktree from the base commit, then run the project's
// setup script. On setup-script failure the worktree is torn down and the
// error is returned so the caller rolls back the DB row.
func (m *Manager) provisionWorktree(ctx context.Context, sess store.Session) error {
	m.repoLock.Lock()
	defer m.repoLock.Unlock()

	if err := m.git.PruneWorktrees(ctx); err != nil {
		logging.Warn(ctx, "failed to prune worktrees before creation", "session", sess.Name, "err", err)
	}
	if _, statErr := os.Stat(sess.WorktreePath); statErr == nil {
		logging.Warn(ctx, "stray directory at target worktree path, removing", "path", sess.WorktreePath)
		if err := os.RemoveAll(sess.WorktreePath); err != nil {
			return apperrors.IoFailure("removing stray worktree directory", err)
		}
	}

	if err := m.git.CreateWorktreeFromBase(ctx, sess.Branch, sess.WorktreePath, sess.ParentBranch); err != nil {
		return err
	}

	cfg, err := m.store.GetProjectConfig(ctx, m.repositoryPath)
	if err == nil && strings.TrimSpace(cfg.SetupScript) != "" {
		if err := m.runSetupScript(ctx, cfg.SetupScript, sess); err != nil {
			_ = m.git.RemoveWorktree(ctx, sess.WorktreePath)
			_ = m.git.DeleteBranch(ctx, sess.Branch, true)
			return err
		}
	}
	return nil
}

// runSetupScript writes script to a temporary executable file and runs it
// with CWD = the worktree and the four environment variables spec §4.F
// step 5 names, per original_source's execute_setup_script.
func (m *Manager) runSetupScript(ctx context.Context, script string, sess store.Session) error {
	logging.Info(ctx, "running setup script", "session", sess.Name)

	scriptPath := filepath.Join(os.TempDir(), fmt.Sprintf("schaltwerk-setup-%s.sh", sess.Name))
	if err := os.WriteFile(scriptPath, []byte(script), 0o755); err != nil {
		return apperrors.IoFailure("writing setup script", err)
	}
	defer os.Remove(scriptPath)

	program, args := "sh", []string{scriptPath}
	if runtime.GOOS == "windows" {
		program, args = "cmd", []string{"/C", scriptPath}
	}

	cmd := exec.CommandContext(ctx, program, args...)
	cmd.Dir = sess.WorktreePath
	cmd.Env = append(os.Environ(),
		"WORKTREE_PATH="+sess.WorktreePath,
		"REPO_PATH="+m.repositoryPath,
		"SESSION_NAME="+sess.Name,
		"BRANCH_NAME="+sess.Branch,
	)

	out, err := cmd.CombinedOutput()
	if err != nil {
		return apperrors.ExternalCommandFailure(program, args, redact.String(strings.TrimSpace(string(out))), err)
	}
	logging.Info(ctx, "setup script completed", "session", sess.Name)
	return nil
}

// MarkReviewed flips a session to the reviewed state. Idempotent.
func (m *Manager) MarkReviewed(ctx context.Context, name string) (store.Session, error) {
	sess, err := m.store.GetSessionByName(ctx, m.repositoryPath, name)
	if err != nil {
		return store.Session{}, err
	}
	if sess.SessionState == store.StateReviewed && sess.ReadyToMerge {
		return sess, nil
	}

	sess.SessionState = store.StateReviewed
	sess.ReadyToMerge = true
	sess.UpdatedAt = time.Now().UTC()
	if err := m.store.UpdateSession(ctx, sess); err != nil {
		return store.Session{}, err
	}

	m.requestRefresh(ctx, refresh.ReasonSessionLifecycle)
	return sess, nil
}

// CancelSession tears down a session per spec §4.F "Cancel": archiving spec
// prose for spec-state sessions, otherwise running process cleanup,
// closing terminals, and removing the worktree/branch. Errors from the
// teardown steps are logged, not fatal: the DB row is removed regardless so
// the UI never shows a stale session.
func (m *Manager) CancelSession(ctx context.Context, name string) error {
	sess, err := m.store.GetSessionByName(ctx, m.repositoryPath, name)
	if err != nil {
		return err
	}

	m.publish(events.SessionCancelling, events.SessionRemovedPayload{SessionName: name})

	if sess.SessionState == store.StateSpec {
		if sess.SpecContent != "" {
			if err := m.store.InsertArchivedSpec(ctx, store.ArchivedSpec{
				ID:             uuid.NewString(),
				SessionName:    sess.Name,
				RepositoryPath: m.repositoryPath,
				RepositoryName: m.repositoryName,
				Content:        sess.SpecContent,
				ArchivedAt:     time.Now().UTC(),
			}); err != nil {
				logging.Warn(ctx, "failed to archive spec content on cancel", "session", name, "err", err)
			} else {
				m.publish(events.ArchiveUpdated, nil)
			}
		}
		if err := m.store.DeleteSession(ctx, sess.ID); err != nil {
			return err
		}
		m.afterRemoval(ctx, name)
		return nil
	}

	if runtime.GOOS != "windows" {
		if survivors := cleanup.TerminateProcessesWithCwd(ctx, sess.WorktreePath); len(survivors) > 0 {
			logging.Warn(ctx, "processes survived cleanup during cancel", "session", name, "pids", survivors)
		}
	}

	if top, bottom := terminal.KnownTerminalIDsForSession(sess.Name); true {
		for _, id := range append(top, bottom...) {
			if m.terminals.Exists(ctx, id) {
				if err := m.terminals.Close(ctx, id); err != nil {
					logging.Warn(ctx, "failed to close terminal during cancel", "terminal", id, "err", err)
				}
			}
		}
	}

	if err := m.git.RemoveWorktree(ctx, sess.WorktreePath); err != nil {
		logging.Warn(ctx, "failed to remove worktree during cancel", "session", name, "err", err)
	}
	if err := m.git.DeleteBranch(ctx, sess.Branch, true); err != nil {
		logging.Warn(ctx, "failed to delete branch during cancel", "session", name, "branch", sess.Branch, "err", err)
	}

	if err := m.store.DeleteSession(ctx, sess.ID); err != nil {
		return err
	}
	m.afterRemoval(ctx, name)
	return nil
}

func (m *Manager) afterRemoval(ctx context.Context, name string) {
	m.specCache.invalidate(m.repositoryPath, name)
	m.lookupCache.invalidate(m.repositoryPath, name)
	m.sizeCache.invalidate(name)
	m.publish(events.SessionRemoved, events.SessionRemovedPayload{SessionName: name})
	m.requestRefresh(ctx, refresh.ReasonSessionLifecycle)
}

// PreviewMerge delegates to the Merge Engine (spec §4.G).
func (m *Manager) PreviewMerge(ctx context.Context, name, commitMessage string) (merge.MergePreview, error) {
	sess, err := m.store.GetSessionByName(ctx, m.repositoryPath, name)
	if err != nil {
		return merge.MergePreview{}, err
	}
	return merge.New(m.repositoryPath).Preview(ctx, sess.Branch, sess.ParentBranch, commitMessage)
}

// MergeSession executes a squash or reapply merge of name onto its parent
// branch and, on success, marks the session merged and removes it. Merge
// conflicts are not treated as fatal to the session: it remains reviewed
// and the conflict set is returned to the caller (spec §4.F "Merge").
func (m *Manager) MergeSession(ctx context.Context, name string, mode merge.Mode, commitMessage string) (merge.MergeOutcome, error) {
	sess, err := m.store.GetSessionByName(ctx, m.repositoryPath, name)
	if err != nil {
		return merge.MergeOutcome{}, err
	}
	if sess.Status == store.StatusCancelled {
		return merge.MergeOutcome{}, apperrors.UserInput("cancelled sessions cannot be merged", nil)
	}

	outcome, err := merge.New(m.repositoryPath).Merge(ctx, sess.Branch, sess.ParentBranch, mode, commitMessage)
	if err != nil {
		return merge.MergeOutcome{}, err
	}

	if err := m.git.RemoveWorktree(ctx, sess.WorktreePath); err != nil {
		logging.Warn(ctx, "failed to remove worktree after merge", "session", name, "err", err)
	}

	if err := m.store.DeleteSession(ctx, sess.ID); err != nil {
		logging.Warn(ctx, "failed to delete session row after merge", "session", name, "err", err)
	}
	m.afterRemoval(ctx, name)

	return outcome, nil
}

// ListSessions returns the repository's sessions filtered and sorted per
// spec §4.F "Listing / sorting / filtering": reviewed sessions are always
// segregated to the end and sorted by Name.
func (m *Manager) ListSessions(ctx context.Context, filter FilterMode, sort_ SortMode) ([]store.Session, error) {
	all, err := m.store.ListSessions(ctx, m.repositoryPath, nil)
	if err != nil {
		return nil, err
	}

	filtered := applyFilter(all, filter)

	var reviewed, rest []store.Session
	for _, s := range filtered {
		if s.ReadyToMerge {
			reviewed = append(reviewed, s)
		} else {
			rest = append(rest, s)
		}
	}

	sortByMode(rest, sort_)
	sortByMode(reviewed, SortName)

	return append(rest, reviewed...), nil
}

func applyFilter(sessions []store.Session, filter FilterMode) []store.Session {
	if filter == "" || filter == FilterAll {
		return sessions
	}
	var out []store.Session
	for _, s := range sessions {
		switch filter {
		case FilterSpec:
			if s.SessionState == store.StateSpec {
				out = append(out, s)
			}
		case FilterRunning:
			if s.SessionState != store.StateSpec && !s.ReadyToMerge {
				out = append(out, s)
			}
		case FilterReviewed:
			if s.ReadyToMerge {
				out = append(out, s)
			}
		}
	}
	return out
}

func sortByMode(sessions []store.Session, mode SortMode) {
	switch mode {
	case SortCreated:
		sort.SliceStable(sessions, func(i, j int) bool {
			if sessions[i].CreatedAt.Equal(sessions[j].CreatedAt) {
				return caseInsensitiveLess(sessions[i].Name, sessions[j].Name)
			}
			return sessions[i].CreatedAt.After(sessions[j].CreatedAt)
		})
	case SortLastEdited:
		sort.SliceStable(sessions, func(i, j int) bool {
			ti, tj := lastEditedOf(sessions[i]), lastEditedOf(sessions[j])
			if ti.Equal(tj) {
				return caseInsensitiveLess(sessions[i].Name, sessions[j].Name)
			}
			return ti.After(tj)
		})
	default:
		sort.SliceStable(sessions, func(i, j int) bool {
			return caseInsensitiveLess(sessions[i].Name, sessions[j].Name)
		})
	}
}

func caseInsensitiveLess(a, b string) bool {
	return strings.ToLower(a) < strings.ToLower(b)
}

// Enrich computes an EnrichedSession for sess: git stats (lazily recomputed
// on a TTL), cached worktree size, and derived terminal ids (spec §4.F
// "Enriched listing").
func (m *Manager) Enrich(ctx context.Context, sess store.Session) EnrichedSession {
	enriched := EnrichedSession{Session: sess}

	if sess.SessionState != store.StateSpec {
		top, bottom := terminal.TerminalIDForSessionTop(sess.Name), terminal.TerminalIDForSessionBottom(sess.Name)
		enriched.TopTerminalID, enriched.BottomTerminalID = top, bottom

		if stale, err := m.store.ShouldUpdateStats(ctx, sess.ID); err == nil && stale {
			if stats, err := computeGitStats(ctx, sess.ID, m.repositoryPath, sess.WorktreePath, sess.ParentBranch); err == nil {
				_ = m.store.SaveGitStats(ctx, stats)
			}
		}
		if stats, err := m.store.GetGitStats(ctx, sess.ID); err == nil {
			enriched.GitStats = &stats
		}

		if cached, ok := m.sizeCache.get(sess.ID); ok {
			enriched.WorktreeSizeByte = cached
		} else if size, err := gitservice.WorktreeSize(sess.WorktreePath); err == nil {
			m.sizeCache.set(sess.ID, size)
			enriched.WorktreeSizeByte = size
		}
	}

	return enriched
}

// ListEnriched returns the filtered/sorted session list with each entry
// enriched (spec §4.F "Enriched listing").
func (m *Manager) ListEnriched(ctx context.Context, filter FilterMode, sort_ SortMode) ([]EnrichedSession, error) {
	sessions, err := m.ListSessions(ctx, filter, sort_)
	if err != nil {
		return nil, err
	}
	out := make([]EnrichedSession, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, m.Enrich(ctx, s))
	}
	return out, nil
}

// GetSpecContent reads spec_content through the spec-content cache.
func (m *Manager) GetSpecContent(ctx context.Context, name string) (string, error) {
	if content, ok := m.specCache.get(m.repositoryPath, name); ok {
		return content, nil
	}
	sess, err := m.store.GetSessionByName(ctx, m.repositoryPath, name)
	if err != nil {
		return "", err
	}
	m.specCache.set(m.repositoryPath, name, sess.SpecContent)
	return sess.SpecContent, nil
}

// SetSpecContent updates a spec-state session's prose content, invalidating
// the spec-content cache.
func (m *Manager) SetSpecContent(ctx context.Context, name, content string) error {
	sess, err := m.store.GetSessionByName(ctx, m.repositoryPath, name)
	if err != nil {
		return err
	}
	if sess.SessionState != store.StateSpec {
		return apperrors.UserInput(fmt.Sprintf("session %q is not in spec state", name), nil)
	}
	sess.SpecContent = content
	sess.UpdatedAt = time.Now().UTC()
	if err := m.store.UpdateSession(ctx, sess); err != nil {
		return err
	}
	m.specCache.set(m.repositoryPath, name, content)
	return nil
}

// LookupSessionID resolves name to its session id through the
// session-lookup cache, falling back to the Store on a miss.
func (m *Manager) LookupSessionID(ctx context.Context, name string) (string, error) {
	if id, ok := m.lookupCache.get(m.repositoryPath, name); ok {
		return id, nil
	}
	sess, err := m.store.GetSessionByName(ctx, m.repositoryPath, name)
	if err != nil {
		return "", err
	}
	m.lookupCache.set(m.repositoryPath, name, sess.ID)
	return sess.ID, nil
}

// ClearCaches drops every cache entry, used on project switch (spec §4.I).
func (m *Manager) ClearCaches() {
	m.specCache.clear()
	m.lookupCache.clear()
}

// LaunchAgent builds the configured agent's launch spec for name and
// submits it to the session's top terminal, creating the session's top and
// bottom terminals first if they don't already exist.
func (m *Manager) LaunchAgent(ctx context.Context, name string) (agentspec.LaunchSpec, error) {
	sess, err := m.store.GetSessionByName(ctx, m.repositoryPath, name)
	if err != nil {
		return agentspec.LaunchSpec{}, err
	}

	agentID := sess.OriginalAgentType
	if agentID == "" {
		agentID = "claude"
	}
	adapter, err := agentspec.GetAdapter(agentID)
	if err != nil {
		return agentspec.LaunchSpec{}, err
	}
	def, _ := agentspec.Get(agentID)

	resumeID := ""
	if sess.ResumeAllowed && def.SupportsResume {
		if token, ok := adapter.FindSession(ctx, sess.WorktreePath); ok {
			resumeID = token
		}
	}

	binary, _ := agentspec.Resolve(agentID)
	spec := adapter.BuildLaunchSpec(ctx, agentspec.LaunchContext{
		WorktreePath:    sess.WorktreePath,
		SessionID:       resumeID,
		InitialPrompt:   sess.InitialPrompt,
		SkipPermissions: sess.OriginalSkipPermissions,
		BinaryOverride:  binary,
		Manifest:        def,
	})

	topID, bottomID := terminal.TerminalIDForSessionTop(sess.Name), terminal.TerminalIDForSessionBottom(sess.Name)
	if !m.terminals.Exists(ctx, topID) {
		if err := m.terminals.Create(ctx, terminal.CreateParams{ID: topID, Cwd: sess.WorktreePath, Rows: 24, Cols: 80}); err != nil {
			return agentspec.LaunchSpec{}, err
		}
	}
	if !m.terminals.Exists(ctx, bottomID) {
		if err := m.terminals.Create(ctx, terminal.CreateParams{ID: bottomID, Cwd: sess.WorktreePath, Rows: 24, Cols: 80}); err != nil {
			return agentspec.LaunchSpec{}, err
		}
	}
	m.terminals.RegisterSessionTerminals(m.projectID, sess.ID, []string{topID, bottomID})

	if err := m.terminals.PasteAndSubmit(ctx, topID, []byte(spec.ShellCommand), false); err != nil {
		return agentspec.LaunchSpec{}, err
	}

	return spec, nil
}

// generateSessionNameSeed produces a short, human-shareable fallback base
// name when the caller didn't request one, matching the original's
// uuid-suffix-free convention of still going through the same reservation
// path as an explicit request.
func generateSessionNameSeed() string {
	return "session-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}
