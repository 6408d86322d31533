package gitservice

import (
	"context"

	"github.com/schaltwerk/schaltwerk/internal/paths"
)

// DiscoverRepository locates the enclosing git repository for the current
// process, delegating to internal/paths so the Project Manager and this
// package share one discovery/caching implementation.
func DiscoverRepository(ctx context.Context) (string, error) {
	return paths.DiscoverRepository(ctx)
}
