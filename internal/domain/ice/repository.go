// internal/domain/ice/repository.go
package ice

import "context"

// Repository persists the whole ICE collection as one unit. There is no
// partial update: callers load everything, change one thing and save
// everything back.
type Repository interface {
	// Load returns the stored collection in order. A missing store returns an
	// error wrapping ErrStoreNotFound; unreadable contents wrap ErrStoreCorrupt.
	Load(ctx context.Context) ([]*Ice, error)
	// Save replaces the stored collection with ices.
	Save(ctx context.Context, ices []*Ice) error
}
