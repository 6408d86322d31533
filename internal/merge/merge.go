// Package merge implements the Merge Engine (spec §4.G): previewing
// conflicts, and executing squash or reapply merges of a session branch
// back onto its parent. Preview's merge-tree and reapply's cherry-pick are
// shelled out to the git binary, matching internal/gitservice's hybrid
// approach — these are CLI-porcelain-shaped operations go-git's pure-Go
// plumbing doesn't cover cleanly. squash builds its commit directly with
// go-git's object/plumbing API (object.Commit + Storer.SetEncodedObject +
// Storer.SetReference), the same commit-from-existing-tree-hash pattern
// the teacher's checkpoint.createCommit/WriteTemporary use.
package merge

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/schaltwerk/schaltwerk/internal/apperrors"
	"github.com/schaltwerk/schaltwerk/internal/logging"
)

// Mode selects the merge strategy (spec §4.G).
type Mode string

const (
	ModeSquash  Mode = "squash"
	ModeReapply Mode = "reapply"
)

// MergePreview is the dry-run result of previewing a merge: the commands it
// would run, whether conflicts would occur, and which paths conflict.
type MergePreview struct {
	SessionBranch        string
	ParentBranch         string
	SquashCommands       []string
	ReapplyCommands      []string
	DefaultCommitMessage string
	HasConflicts         bool
	ConflictingPaths     []string
	ConflictDiffHints    map[string]string
	IsUpToDate           bool
}

// MergeOutcome is the result of an executed merge.
type MergeOutcome struct {
	SessionBranch string
	ParentBranch  string
	NewCommit     string
	Mode          Mode
}

// ConflictError is returned by Merge (reapply mode) when a cherry-pick hits
// a conflict partway through; it is not a fatal error (spec §7: "merge
// conflicts are not errors"), but Merge still returns it as an error value
// so the caller can branch on apperrors.Is(err, apperrors.KindConflict) and
// read the ConflictingPaths.
type ConflictError struct {
	ConflictingPaths []string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("merge conflicts in %d path(s): %s", len(e.ConflictingPaths), strings.Join(e.ConflictingPaths, ", "))
}

// Engine executes merges for a single repository. Merges are serialized per
// repository via repoLock (spec §5: "Merges are serialised per repository").
type Engine struct {
	repositoryPath string
	lock           *sync.Mutex
}

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

// New returns an Engine bound to repositoryPath.
func New(repositoryPath string) *Engine {
	return &Engine{repositoryPath: repositoryPath, lock: lockFor(repositoryPath)}
}

func (e *Engine) runGit(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", append([]string{"-C", e.repositoryPath}, args...)...)
	out, err := cmd.CombinedOutput()
	trimmed := strings.TrimSpace(string(out))
	if err != nil {
		return trimmed, apperrors.ExternalCommandFailure("git", args, trimmed, err)
	}
	return trimmed, nil
}

// gitIdentity resolves the repository's configured git author (local then
// global config), falling back to a generic schaltwerk identity if none is
// set. Grounded on the teacher's GetGitAuthor fallback chain.
func gitIdentity(ctx context.Context, repositoryPath string) (name, email string) {
	name = gitConfigValue(ctx, repositoryPath, "user.name")
	if name == "" {
		name = "Schaltwerk"
	}
	email = gitConfigValue(ctx, repositoryPath, "user.email")
	if email == "" {
		email = "schaltwerk@local"
	}
	return name, email
}

// identityEnv resolves gitIdentity and returns an environment with
// GIT_AUTHOR_*/GIT_COMMITTER_* pinned to it, for CLI-exec operations
// (cherry-pick) that cannot take a signature directly.
func identityEnv(ctx context.Context, repositoryPath string) []string {
	name, email := gitIdentity(ctx, repositoryPath)
	env := os.Environ()
	env = append(env,
		"GIT_AUTHOR_NAME="+name, "GIT_AUTHOR_EMAIL="+email,
		"GIT_COMMITTER_NAME="+name, "GIT_COMMITTER_EMAIL="+email,
	)
	return env
}

func gitConfigValue(ctx context.Context, repositoryPath, key string) string {
	cmd := exec.CommandContext(ctx, "git", "-C", repositoryPath, "config", "--get", key)
	out, err := cmd.Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

// Preview computes whether merging sessionBranch into parentBranch would
// conflict, without mutating any refs. It uses `git merge-tree
// --write-tree`, which performs the merge entirely against an in-memory
// index and writes only a (garbage-collectable, unreferenced) tree object —
// the repository's branches and working tree are untouched either way.
func (e *Engine) Preview(ctx context.Context, sessionBranch, parentBranch, commitMessage string) (MergePreview, error) {
	preview := MergePreview{
		SessionBranch:         sessionBranch,
		ParentBranch:          parentBranch,
		DefaultCommitMessage:  commitMessage,
		SquashCommands:        squashCommands(sessionBranch, parentBranch, commitMessage),
		ReapplyCommands:       reapplyCommands(sessionBranch, parentBranch),
		ConflictDiffHints:     map[string]string{},
	}

	sessionTip, err := e.runGit(ctx, "rev-parse", sessionBranch)
	if err != nil {
		return MergePreview{}, apperrors.UserInput(fmt.Sprintf("session branch %q not found", sessionBranch), err)
	}
	parentTip, err := e.runGit(ctx, "rev-parse", parentBranch)
	if err != nil {
		return MergePreview{}, apperrors.UserInput(fmt.Sprintf("parent branch %q not found", parentBranch), err)
	}

	mergeBase, err := e.runGit(ctx, "merge-base", parentBranch, sessionBranch)
	if err == nil && mergeBase == sessionTip {
		preview.IsUpToDate = true
		return preview, nil
	}

	out, mtErr := e.runGit(ctx, "merge-tree", "--write-tree", "--name-only", parentTip, sessionTip)
	if mtErr != nil {
		// A non-zero exit from merge-tree --write-tree signals conflicts;
		// the first line of output is still the (conflicted) tree oid,
		// followed by a blank line and then conflicted path names.
		paths := parseMergeTreeConflictPaths(out)
		preview.HasConflicts = len(paths) > 0
		preview.ConflictingPaths = paths
		preview.ConflictDiffHints = e.diffHints(ctx, sessionBranch, parentBranch, paths)
		if !preview.HasConflicts {
			return MergePreview{}, mtErr
		}
		return preview, nil
	}
	_ = out
	return preview, nil
}

// parseMergeTreeConflictPaths extracts the conflicting path list from
// `git merge-tree --write-tree --name-only`'s output on conflict: the tree
// oid, a blank line, then one conflicting path per line, then (sometimes)
// further informational sections separated by blank lines.
func parseMergeTreeConflictPaths(output string) []string {
	lines := strings.Split(output, "\n")
	if len(lines) < 2 {
		return nil
	}
	var paths []string
	for _, line := range lines[1:] {
		line = strings.TrimSpace(line)
		if line == "" {
			break
		}
		paths = append(paths, line)
	}
	sort.Strings(paths)
	return paths
}

// diffHints builds a small side-by-side diff string per conflicting path
// between the session and parent branch's version of that file, purely as a
// UI remediation aid (MergePreview.ConflictDiffHints) — it does not affect
// conflict detection itself.
func (e *Engine) diffHints(ctx context.Context, sessionBranch, parentBranch string, paths []string) map[string]string {
	hints := make(map[string]string, len(paths))
	dmp := diffmatchpatch.New()
	for _, path := range paths {
		ours, _ := e.runGit(ctx, "show", fmt.Sprintf("%s:%s", sessionBranch, path))
		theirs, _ := e.runGit(ctx, "show", fmt.Sprintf("%s:%s", parentBranch, path))
		diffs := dmp.DiffMain(theirs, ours, false)
		hints[path] = dmp.DiffPrettyText(diffs)
	}
	return hints
}

func squashCommands(sessionBranch, parentBranch, commitMessage string) []string {
	return []string{
		fmt.Sprintf("git rev-parse %s^{tree}", sessionBranch),
		fmt.Sprintf("git commit-tree <tree> -p %s -m %q", parentBranch, commitMessage),
		fmt.Sprintf("git branch -f %s <new-commit>", parentBranch),
	}
}

func reapplyCommands(sessionBranch, parentBranch string) []string {
	return []string{
		fmt.Sprintf("git rev-list --reverse %s..%s", parentBranch, sessionBranch),
		"git cherry-pick <commit>",
		fmt.Sprintf("git branch -f %s <new-head>", parentBranch),
	}
}

// Merge executes mode against sessionBranch/parentBranch, serialized per
// repository.
func (e *Engine) Merge(ctx context.Context, sessionBranch, parentBranch string, mode Mode, commitMessage string) (MergeOutcome, error) {
	e.lock.Lock()
	defer e.lock.Unlock()

	switch mode {
	case ModeSquash:
		return e.squash(ctx, sessionBranch, parentBranch, commitMessage)
	case ModeReapply:
		return e.reapply(ctx, sessionBranch, parentBranch)
	default:
		return MergeOutcome{}, apperrors.UserInput(fmt.Sprintf("unsupported merge mode %q", mode), nil)
	}
}

// squash fast-forwards parentBranch to a single new commit whose tree
// equals sessionBranch's tip, authored with commitMessage, parented on
// parentBranch's current tip. Built directly against go-git's object store
// rather than shelling out to commit-tree/branch -f, matching the teacher's
// checkpoint.createCommit/WriteTemporary pattern for synthesizing a commit
// from an existing tree hash and moving a branch ref to point at it.
func (e *Engine) squash(ctx context.Context, sessionBranch, parentBranch, commitMessage string) (MergeOutcome, error) {
	repo, err := git.PlainOpen(e.repositoryPath)
	if err != nil {
		return MergeOutcome{}, apperrors.IoFailure("opening repository", err)
	}

	sessionHash, err := repo.ResolveRevision(plumbing.Revision(sessionBranch))
	if err != nil {
		return MergeOutcome{}, apperrors.UserInput(fmt.Sprintf("session branch %q not found", sessionBranch), err)
	}
	sessionCommit, err := repo.CommitObject(*sessionHash)
	if err != nil {
		return MergeOutcome{}, apperrors.IoFailure(fmt.Sprintf("reading commit %s", sessionHash), err)
	}

	parentHash, err := repo.ResolveRevision(plumbing.Revision(parentBranch))
	if err != nil {
		return MergeOutcome{}, apperrors.UserInput(fmt.Sprintf("parent branch %q not found", parentBranch), err)
	}

	name, email := gitIdentity(ctx, e.repositoryPath)
	sig := object.Signature{Name: name, Email: email, When: time.Now()}

	commit := &object.Commit{
		TreeHash:     sessionCommit.TreeHash,
		ParentHashes: []plumbing.Hash{*parentHash},
		Author:       sig,
		Committer:    sig,
		Message:      commitMessage,
	}

	obj := repo.Storer.NewEncodedObject()
	if err := commit.Encode(obj); err != nil {
		return MergeOutcome{}, apperrors.IoFailure("encoding squash commit", err)
	}
	newCommitHash, err := repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return MergeOutcome{}, apperrors.IoFailure("storing squash commit", err)
	}

	ref := plumbing.NewHashReference(plumbing.NewBranchReferenceName(parentBranch), newCommitHash)
	if err := repo.Storer.SetReference(ref); err != nil {
		return MergeOutcome{}, apperrors.IoFailure(fmt.Sprintf("advancing %s to squash commit", parentBranch), err)
	}

	logging.Info(ctx, "squash merge complete", "session_branch", sessionBranch, "parent_branch", parentBranch, "commit", newCommitHash.String())
	return MergeOutcome{SessionBranch: sessionBranch, ParentBranch: parentBranch, NewCommit: newCommitHash.String(), Mode: ModeSquash}, nil
}

// reapply cherry-picks each session commit onto parentBranch in topological
// order inside a scratch worktree, aborting cleanly on the first conflict.
// On full success it fast-forwards parentBranch to the resulting head and
// removes the scratch worktree; on conflict it aborts the cherry-pick,
// discards the scratch worktree, and leaves parentBranch untouched.
func (e *Engine) reapply(ctx context.Context, sessionBranch, parentBranch string) (MergeOutcome, error) {
	parentTip, err := e.runGit(ctx, "rev-parse", parentBranch)
	if err != nil {
		return MergeOutcome{}, apperrors.UserInput(fmt.Sprintf("parent branch %q not found", parentBranch), err)
	}

	commitsOut, err := e.runGit(ctx, "rev-list", "--reverse", fmt.Sprintf("%s..%s", parentBranch, sessionBranch))
	if err != nil {
		return MergeOutcome{}, apperrors.UserInput(fmt.Sprintf("session branch %q not found", sessionBranch), err)
	}
	var commits []string
	for _, line := range strings.Split(commitsOut, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			commits = append(commits, line)
		}
	}
	if len(commits) == 0 {
		return MergeOutcome{}, apperrors.Conflict("session branch has no commits ahead of parent", nil)
	}

	scratch, err := os.MkdirTemp("", "schaltwerk-reapply-*")
	if err != nil {
		return MergeOutcome{}, apperrors.IoFailure("creating scratch directory for reapply", err)
	}
	defer os.RemoveAll(scratch)

	worktreePath := filepath.Join(scratch, "wt")
	if _, err := e.runGit(ctx, "worktree", "add", "--detach", worktreePath, parentTip); err != nil {
		return MergeOutcome{}, apperrors.IoFailure("creating scratch worktree for reapply", err)
	}
	defer func() {
		_, _ = e.runGit(ctx, "worktree", "remove", "--force", worktreePath)
	}()

	runScratch := func(args ...string) (string, error) {
		cmd := exec.CommandContext(ctx, "git", args...)
		cmd.Dir = worktreePath
		cmd.Env = identityEnv(ctx, e.repositoryPath)
		out, err := cmd.CombinedOutput()
		trimmed := strings.TrimSpace(string(out))
		if err != nil {
			return trimmed, apperrors.ExternalCommandFailure("git", args, trimmed, err)
		}
		return trimmed, nil
	}

	for _, commit := range commits {
		if _, err := runScratch("cherry-pick", "--allow-empty", commit); err != nil {
			conflicting := cherryPickConflicts(ctx, worktreePath)
			_, _ = runScratch("cherry-pick", "--abort")
			if len(conflicting) > 0 {
				return MergeOutcome{}, &ConflictError{ConflictingPaths: conflicting}
			}
			return MergeOutcome{}, apperrors.IoFailure(fmt.Sprintf("cherry-picking %s", commit), err)
		}
	}

	newHead, err := runScratch("rev-parse", "HEAD")
	if err != nil {
		return MergeOutcome{}, apperrors.IoFailure("resolving reapply result", err)
	}

	if _, err := e.runGit(ctx, "branch", "-f", parentBranch, newHead); err != nil {
		return MergeOutcome{}, apperrors.IoFailure(fmt.Sprintf("advancing %s to reapply result", parentBranch), err)
	}

	logging.Info(ctx, "reapply merge complete", "session_branch", sessionBranch, "parent_branch", parentBranch, "commit", newHead, "commits", len(commits))
	return MergeOutcome{SessionBranch: sessionBranch, ParentBranch: parentBranch, NewCommit: newHead, Mode: ModeReapply}, nil
}

// cherryPickConflicts lists the unmerged paths left behind by a failed
// cherry-pick in worktreePath.
func cherryPickConflicts(ctx context.Context, worktreePath string) []string {
	cmd := exec.CommandContext(ctx, "git", "diff", "--name-only", "--diff-filter=U")
	cmd.Dir = worktreePath
	out, err := cmd.Output()
	if err != nil {
		return nil
	}
	var paths []string
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			paths = append(paths, line)
		}
	}
	sort.Strings(paths)
	return paths
}
