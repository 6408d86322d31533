package logging

import "context"

// contextKey avoids collisions with keys set by other packages.
type contextKey int

const (
	sessionKey contextKey = iota
	repositoryKey
	componentKey
	agentKey
)

// WithSession adds a session name to the context.
func WithSession(ctx context.Context, session string) context.Context {
	return context.WithValue(ctx, sessionKey, session)
}

// WithRepository adds a repository path to the context.
func WithRepository(ctx context.Context, repository string) context.Context {
	return context.WithValue(ctx, repositoryKey, repository)
}

// WithComponent adds a subsystem name to the context (e.g. "gitservice",
// "ptyhost", "refresh").
func WithComponent(ctx context.Context, component string) context.Context {
	return context.WithValue(ctx, componentKey, component)
}

// WithAgent adds an agent identifier to the context (e.g. "claude", "codex").
func WithAgent(ctx context.Context, agent string) context.Context {
	return context.WithValue(ctx, agentKey, agent)
}

// SessionFromContext extracts the session name, or "" if unset.
func SessionFromContext(ctx context.Context) string { return stringFromContext(ctx, sessionKey) }

// RepositoryFromContext extracts the repository path, or "" if unset.
func RepositoryFromContext(ctx context.Context) string {
	return stringFromContext(ctx, repositoryKey)
}

// ComponentFromContext extracts the component name, or "" if unset.
func ComponentFromContext(ctx context.Context) string { return stringFromContext(ctx, componentKey) }

// AgentFromContext extracts the agent identifier, or "" if unset.
func AgentFromContext(ctx context.Context) string { return stringFromContext(ctx, agentKey) }

func stringFromContext(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	if v := ctx.Value(key); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
