package volume

import (
	"context"
	"time"
)

// Repository defines persistence operations supported by the volume domain.
// Lookups return nil without an error when no row matches.
type Repository interface {
	List(ctx context.Context, opts ListOptions) ([]Volume, error)
	Search(ctx context.Context, opts SearchOptions) ([]Volume, error)
	GetByID(ctx context.Context, id string) (*Volume, error)
	Create(ctx context.Context, volume *Volume) error
	Update(ctx context.Context, id string, patch Patch, updatedAt time.Time) (*Volume, error)
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context, publishedOnly bool) (int64, error)
}
