package news

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	domainnews "juvenis/app/internal/domain/news"
)

// Newest publication date first. The leading "published_date IS NULL" key (false before true)
// puts undated items after every dated one; ties fall back to creation time, newest first.
const listingOrder = "published_date IS NULL, published_date DESC, created_at DESC"

// Repository persists news items using a Gorm database connection.
type Repository struct {
	db     *gorm.DB
	logger *logrus.Logger
}

// NewRepository constructs a Gorm-backed repository implementation.
func NewRepository(db *gorm.DB, logger *logrus.Logger) (*Repository, error) {
	if db == nil {
		return nil, eris.New("gorm DB is required")
	}

	return &Repository{db: db, logger: logger}, nil
}

var _ domainnews.Repository = (*Repository)(nil)

// List returns news ordered by publication date then creation time, newest first.
func (r *Repository) List(ctx context.Context, opts domainnews.ListOptions) ([]domainnews.Item, error) {
	query := r.db.WithContext(ctx).Model(&Record{})
	if opts.PublishedOnly {
		query = query.Where("status = ?", string(domainnews.StatusPublished))
	}
	if opts.Category != "" {
		query = query.Where("category = ?", string(opts.Category))
	}
	if opts.Limit > 0 {
		query = query.Limit(opts.Limit)
	}

	var records []Record
	if err := query.Order(listingOrder).Find(&records).Error; err != nil {
		r.logError(logrus.Fields{"published_only": opts.PublishedOnly, "category": opts.Category}, err, "listing news")
		return nil, eris.Wrap(err, "listing news")
	}

	items := make([]domainnews.Item, 0, len(records))
	for i := range records {
		items = append(items, *records[i].toDomain())
	}
	return items, nil
}

// GetByID returns the item or nil when not found.
func (r *Repository) GetByID(ctx context.Context, id string) (*domainnews.Item, error) {
	var record Record
	err := r.db.WithContext(ctx).First(&record, "id = ?", id).Error
	if err != nil {
		if eris.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logError(logrus.Fields{"news_id": id}, err, "fetching news item")
		return nil, eris.Wrapf(err, "fetching news item: %s", id)
	}

	return record.toDomain(), nil
}

// Create inserts a new news row.
func (r *Repository) Create(ctx context.Context, item *domainnews.Item) error {
	if item == nil {
		return eris.New("news item is nil")
	}

	if err := r.db.WithContext(ctx).Create(fromDomain(item)).Error; err != nil {
		r.logError(logrus.Fields{"news_id": item.ID}, err, "inserting news item")
		return eris.Wrapf(err, "inserting news item: %s", item.ID)
	}

	return nil
}

// Update applies the patch and returns the stored row, or nil when the id is unknown.
func (r *Repository) Update(ctx context.Context, id string, patch domainnews.Patch, updatedAt time.Time) (*domainnews.Item, error) {
	result := r.db.WithContext(ctx).Model(&Record{}).Where("id = ?", id).Updates(patchColumns(patch, updatedAt))
	if result.Error != nil {
		r.logError(logrus.Fields{"news_id": id}, result.Error, "updating news item")
		return nil, eris.Wrapf(result.Error, "updating news item: %s", id)
	}

	if result.RowsAffected == 0 {
		return nil, nil
	}

	return r.GetByID(ctx, id)
}

// Delete removes the row; an unknown id is not an error.
func (r *Repository) Delete(ctx context.Context, id string) error {
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&Record{}).Error; err != nil {
		r.logError(logrus.Fields{"news_id": id}, err, "deleting news item")
		return eris.Wrapf(err, "deleting news item: %s", id)
	}
	return nil
}

// Count returns the number of news items, optionally only published ones.
func (r *Repository) Count(ctx context.Context, publishedOnly bool) (int64, error) {
	query := r.db.WithContext(ctx).Model(&Record{})
	if publishedOnly {
		query = query.Where("status = ?", string(domainnews.StatusPublished))
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		r.logError(nil, err, "counting news")
		return 0, eris.Wrap(err, "counting news")
	}
	return count, nil
}

func (r *Repository) logError(fields logrus.Fields, err error, message string) {
	if r.logger == nil || err == nil {
		return
	}

	entry := r.logger.WithField("error", err.Error())
	if len(fields) > 0 {
		entry = entry.WithFields(fields)
	}
	entry.Error(message)
}
