package news

import (
	"context"
	"time"
)

// Repository defines persistence operations supported by the news domain.
// Lookups return nil without an error when no row matches.
type Repository interface {
	List(ctx context.Context, opts ListOptions) ([]Item, error)
	GetByID(ctx context.Context, id string) (*Item, error)
	Create(ctx context.Context, item *Item) error
	Update(ctx context.Context, id string, patch Patch, updatedAt time.Time) (*Item, error)
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context, publishedOnly bool) (int64, error)
}
