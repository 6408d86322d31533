// Package session implements the Session Manager (spec §4.F): the lifecycle
// state machine, name reservation, worktree+DB transactionality, setup-script
// execution, listing/sorting/filtering, and spec archival that tie the Store,
// Git Worktree Service, Terminal Manager, Agent Registry, Process Cleanup,
// Refresh Hub, and Event Bus together.
package session

import (
	"time"

	"github.com/schaltwerk/schaltwerk/internal/store"
)

// FilterMode restricts ListSessions to a subset of the lifecycle state
// machine (spec §4.F "Listing / sorting / filtering").
type FilterMode string

const (
	FilterAll      FilterMode = "all"
	FilterSpec     FilterMode = "spec"
	FilterRunning  FilterMode = "running"
	FilterReviewed FilterMode = "reviewed"
)

// SortMode selects the ordering ListSessions applies within the non-reviewed
// partition (reviewed sessions are always segregated to the end and sorted
// by Name regardless of SortMode).
type SortMode string

const (
	SortName       SortMode = "name"
	SortCreated    SortMode = "created"
	SortLastEdited SortMode = "last_edited"
)

// EnrichedSession composes a Session row with its lazily-refreshed git
// stats, merge-readiness, and (optionally cached) worktree size, per spec
// §4.F "Enriched listing".
type EnrichedSession struct {
	store.Session
	GitStats         *store.GitStats
	WorktreeSizeByte int64
	TopTerminalID    string
	BottomTerminalID string
}

// CreateSessionParams is the input to Manager.CreateSession (spec §4.F
// "Creation contract").
type CreateSessionParams struct {
	RequestedName   string
	Prompt          string
	BaseBranch      string
	Agent           string
	SkipPermissions bool
}

// lastEditedOf returns the timestamp LastEdited sort mode ranks by: last
// activity if recorded, else creation time — never both missing, since
// CreatedAt is always set.
func lastEditedOf(s store.Session) time.Time {
	if s.LastActivity != nil {
		return *s.LastActivity
	}
	return s.CreatedAt
}
