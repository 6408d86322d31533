package session

import (
	"sync"
	"time"
)

// worktreeSizeTTL is the cache lifetime for worktree-size computations,
// separate from store.GitStatsTTL per SPEC_FULL.md's supplemented-features
// note.
const worktreeSizeTTL = 30 * time.Second

type worktreeSizeEntry struct {
	bytes     int64
	expiresAt time.Time
}

// worktreeSizeCache memoizes gitservice.WorktreeSize results per session id,
// since a recursive byte-count walk is too expensive to run on every
// enriched-listing call.
type worktreeSizeCache struct {
	mu      sync.Mutex
	entries map[string]worktreeSizeEntry
}

func newWorktreeSizeCache() *worktreeSizeCache {
	return &worktreeSizeCache{entries: make(map[string]worktreeSizeEntry)}
}

func (c *worktreeSizeCache) get(sessionID string) (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[sessionID]
	if !ok || time.Now().After(entry.expiresAt) {
		return 0, false
	}
	return entry.bytes, true
}

func (c *worktreeSizeCache) set(sessionID string, bytes int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[sessionID] = worktreeSizeEntry{bytes: bytes, expiresAt: time.Now().Add(worktreeSizeTTL)}
}

func (c *worktreeSizeCache) invalidate(sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, sessionID)
}

// specContentCache mirrors spec_content per (repository, name), invalidated
// on write and cleared wholesale on project switch (spec §4.F
// "Spec-content cache").
type specContentCache struct {
	mu      sync.RWMutex
	entries map[string]string
}

func newSpecContentCache() *specContentCache {
	return &specContentCache{entries: make(map[string]string)}
}

func specCacheKey(repositoryPath, name string) string {
	return repositoryPath + "\x00" + name
}

func (c *specContentCache) get(repositoryPath, name string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	content, ok := c.entries[specCacheKey(repositoryPath, name)]
	return content, ok
}

func (c *specContentCache) set(repositoryPath, name, content string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[specCacheKey(repositoryPath, name)] = content
}

func (c *specContentCache) invalidate(repositoryPath, name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, specCacheKey(repositoryPath, name))
}

func (c *specContentCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]string)
}

// sessionLookupCache is a read-through (repository, name) -> session id
// cache sitting in front of the Store, invalidated on every
// SessionAdded/SessionRemoved (SPEC_FULL.md "Session lookup cache"
// supplemented feature), keeping hot-path name lookups (terminal id
// derivation during PTY resume) off the SQLite read path.
type sessionLookupCache struct {
	mu      sync.RWMutex
	byName  map[string]string
}

func newSessionLookupCache() *sessionLookupCache {
	return &sessionLookupCache{byName: make(map[string]string)}
}

func (c *sessionLookupCache) get(repositoryPath, name string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.byName[specCacheKey(repositoryPath, name)]
	return id, ok
}

func (c *sessionLookupCache) set(repositoryPath, name, id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byName[specCacheKey(repositoryPath, name)] = id
}

func (c *sessionLookupCache) invalidate(repositoryPath, name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.byName, specCacheKey(repositoryPath, name))
}

func (c *sessionLookupCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byName = make(map[string]string)
}
