package session

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"sync"

	"github.com/schaltwerk/schaltwerk/internal/apperrors"
	"github.com/schaltwerk/schaltwerk/internal/paths"
	"github.com/schaltwerk/schaltwerk/internal/store"
)

// repoReservations is a per-repository in-flight name reservation set (spec
// §4.F step 2 / §9 "lock-per-entry model"), keyed by repository path so
// unrelated repositories never contend on the same mutex.
type repoReservations struct {
	mu    sync.Mutex
	names map[string]struct{}
}

var (
	reservationsMu sync.Mutex
	reservations   = make(map[string]*repoReservations)
)

func reservationsFor(repositoryPath string) *repoReservations {
	reservationsMu.Lock()
	defer reservationsMu.Unlock()
	r, ok := reservations[repositoryPath]
	if !ok {
		r = &repoReservations{names: make(map[string]struct{})}
		reservations[repositoryPath] = r
	}
	return r
}

const randomSuffixAttempts = 10
const counterSuffixAttempts = 100

// randomTwoLetterSuffix matches the original's generate_random_suffix(2):
// two lowercase ASCII letters.
func randomTwoLetterSuffix() string {
	b := make([]byte, 2)
	for i := range b {
		b[i] = byte('a' + rand.Intn(26))
	}
	return string(b)
}

// nameAvailableLocked reports whether candidate is free: no worktree
// directory, no DB row, and no in-flight reservation. Must be called while
// r.mu is held.
func (r *repoReservations) nameAvailableLocked(ctx context.Context, st *store.Store, repositoryPath, candidate string) (bool, error) {
	if _, reserved := r.names[candidate]; reserved {
		return false, nil
	}

	worktreePath := paths.WorktreePath(repositoryPath, candidate)
	if _, err := os.Stat(worktreePath); err == nil {
		return false, nil
	}

	_, err := st.GetSessionByName(ctx, repositoryPath, candidate)
	if err == nil {
		return false, nil
	}
	if !apperrors.Is(err, apperrors.KindNotFound) {
		return false, err
	}
	return true, nil
}

// reserveUniqueName resolves a free (name, branch, worktree_path) triple for
// repositoryPath, per spec §4.F step 2: the requested name if free, else up
// to 10 random two-letter suffixes, else counter suffixes -1..-100. The
// chosen name is reserved in-memory before this returns; callers must call
// the returned release func once the name has been persisted (or on
// failure) so it can be reused.
func reserveUniqueName(ctx context.Context, st *store.Store, repositoryPath, requestedName string) (name, branch, worktreePath string, release func(), err error) {
	r := reservationsFor(repositoryPath)
	r.mu.Lock()
	defer r.mu.Unlock()

	tryReserve := func(candidate string) (bool, error) {
		ok, err := r.nameAvailableLocked(ctx, st, repositoryPath, candidate)
		if err != nil || !ok {
			return false, err
		}
		r.names[candidate] = struct{}{}
		return true, nil
	}

	release = func() {
		r.mu.Lock()
		delete(r.names, name)
		r.mu.Unlock()
	}

	if ok, rErr := tryReserve(requestedName); rErr != nil {
		return "", "", "", nil, rErr
	} else if ok {
		name = requestedName
		return name, paths.SessionBranch(name), paths.WorktreePath(repositoryPath, name), release, nil
	}

	for i := 0; i < randomSuffixAttempts; i++ {
		candidate := fmt.Sprintf("%s-%s", requestedName, randomTwoLetterSuffix())
		ok, rErr := tryReserve(candidate)
		if rErr != nil {
			return "", "", "", nil, rErr
		}
		if ok {
			name = candidate
			return name, paths.SessionBranch(name), paths.WorktreePath(repositoryPath, name), release, nil
		}
	}

	for i := 1; i <= counterSuffixAttempts; i++ {
		candidate := fmt.Sprintf("%s-%d", requestedName, i)
		ok, rErr := tryReserve(candidate)
		if rErr != nil {
			return "", "", "", nil, rErr
		}
		if ok {
			name = candidate
			return name, paths.SessionBranch(name), paths.WorktreePath(repositoryPath, name), release, nil
		}
	}

	return "", "", "", nil, apperrors.Conflict(fmt.Sprintf("unable to find a unique session name derived from %q after 110 attempts", requestedName), nil)
}
