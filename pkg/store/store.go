// Package store persists milestones. Every backend satisfies Store and reports
// failures with the milestone error taxonomy, so callers never need to know
// which one is configured.
package store

import (
	"context"
	"errors"

	"tableflip.dev/pomo/pkg/milestone"
)

// Store is the persistence contract for a project's milestones.
type Store interface {
	// List returns the milestones of a project ordered by due date, then
	// position.
	List(ctx context.Context, projectID string) ([]milestone.Milestone, error)
	// Get returns a single milestone or milestone.ErrNotFound.
	Get(ctx context.Context, id string) (milestone.Milestone, error)
	// Create validates the draft, assigns an id and the next position in the
	// project, and stores it.
	Create(ctx context.Context, projectID string, d milestone.Draft) (milestone.Milestone, error)
	// Update applies the patch or returns milestone.ErrNotFound.
	Update(ctx context.Context, id string, p milestone.Patch) (milestone.Milestone, error)
	// Remove deletes the milestone. Removing an id that is already gone is
	// not an error.
	Remove(ctx context.Context, id string) error
}

// ErrWatchUnsupported is returned by Watch on stores that cannot observe
// changes made outside this process.
var ErrWatchUnsupported = errors.New("store: watch not supported by this backend")

// Watcher is implemented by stores that report changes to their data.
type Watcher interface {
	Watch(ctx context.Context) (<-chan ChangeEvent, error)
}

var (
	_ Watcher = (*Device)(nil)
	_ Watcher = (*Cache)(nil)
)
