package store

import "time"

// SessionStatus is the coarse lifecycle bucket a session sits in.
type SessionStatus string

const (
	StatusActive    SessionStatus = "active"
	StatusCancelled SessionStatus = "cancelled"
	StatusSpec      SessionStatus = "spec"
)

// SessionState is the fine-grained state machine position (spec §3).
type SessionState string

const (
	StateSpec     SessionState = "spec"
	StateRunning  SessionState = "running"
	StateReviewed SessionState = "reviewed"
)

// Session is the central persisted entity: a coding-agent session bound to a
// Git worktree and branch.
type Session struct {
	ID                       string
	Name                     string
	DisplayName              string
	VersionGroupID           string
	VersionNumber            int
	RepositoryPath           string
	RepositoryName           string
	Branch                   string
	ParentBranch             string
	WorktreePath             string
	Status                   SessionStatus
	SessionState             SessionState
	ReadyToMerge             bool
	CreatedAt                time.Time
	UpdatedAt                time.Time
	LastActivity             *time.Time
	InitialPrompt            string
	OriginalAgentType        string
	OriginalSkipPermissions  bool
	PendingNameGeneration    bool
	WasAutoGenerated         bool
	SpecContent              string
	ResumeAllowed            bool
}

// GitStats is a point-in-time snapshot of a session worktree's diff against
// its parent branch, refreshed on a TTL.
type GitStats struct {
	SessionID       string
	FilesChanged    int
	LinesAdded      int
	LinesRemoved    int
	HasUncommitted  bool
	CalculatedAt    time.Time
}

// GitStatsTTL is how long a GitStats snapshot is considered fresh (spec §3).
const GitStatsTTL = 60 * time.Second

// ArchivedSpec preserves the prose content of a session that was cancelled
// while still in the spec state, for later recovery.
type ArchivedSpec struct {
	ID             string
	SessionName    string
	RepositoryPath string
	RepositoryName string
	Content        string
	ArchivedAt     time.Time
}

// DefaultArchiveMaxEntries is the per-repository archived-spec retention
// ceiling absent an explicit AppConfig override.
const DefaultArchiveMaxEntries = 50

// SelectionKind identifies what a project's "last selection" pointed at.
type SelectionKind string

const (
	SelectionOrchestrator SelectionKind = "orchestrator"
	SelectionSession      SelectionKind = "session"
)

// ProjectConfig holds per-repository settings.
type ProjectConfig struct {
	RepositoryPath        string
	SetupScript           string
	LastSelectionKind     SelectionKind
	LastSelectionPayload  string
	SessionsFilterMode    string
	SessionsSortMode      string
	EnvironmentVariables  map[string]string
	ActionButtons         string
	RunScript             string
	GitHubRepository      string
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// AppConfig holds global settings, stored as a single row.
type AppConfig struct {
	SkipPermissions   bool
	AgentType         string
	DefaultOpenApp    string
	DefaultBaseBranch string
	TerminalFontSize  int
	UIFontSize        int
	ArchiveMaxEntries int
	TutorialCompleted bool
}

// AgentBinaryConfig records how a single agent's executable should be
// located: either auto-detected on PATH or pinned to CustomPath.
type AgentBinaryConfig struct {
	AgentName         string
	CustomPath        string
	AutoDetect        bool
	DetectedBinaries  []string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// StatusFilter restricts list_sessions to a subset of statuses. A nil filter
// (or empty slice) means "no filter."
type StatusFilter []SessionStatus
