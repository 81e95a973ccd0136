package volume

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	domainvolume "juvenis/app/internal/domain/volume"
	"juvenis/app/internal/platform/textsearch"
)

const listingOrder = "year DESC, sort_order DESC, created_at DESC"

// Repository persists volumes using a Gorm database connection.
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

var _ domainvolume.Repository = (*Repository)(nil)

// List returns volumes ordered by year, manual order and creation time, newest first.
func (r *Repository) List(ctx context.Context, opts domainvolume.ListOptions) ([]domainvolume.Volume, error) {
	query := r.db.WithContext(ctx).Model(&Record{})
	if opts.PublishedOnly {
		query = query.Where("published = ?", true)
	}
	if opts.Limit > 0 {
		query = query.Limit(opts.Limit)
	}

	var records []Record
	if err := query.Order(listingOrder).Find(&records).Error; err != nil {
		r.logError(logrus.Fields{"published_only": opts.PublishedOnly}, err, "listing volumes")
		return nil, eris.Wrap(err, "listing volumes")
	}

	return toDomainList(records), nil
}

// Search matches title or number case-insensitively, optionally restricted to one year.
func (r *Repository) Search(ctx context.Context, opts domainvolume.SearchOptions) ([]domainvolume.Volume, error) {
	query := r.db.WithContext(ctx).Model(&Record{})

	if term := textsearch.Key(opts.Query); term != "" {
		pattern := "%" + escapeLike(term) + "%"
		query = query.Where(`(search_title LIKE ? ESCAPE '\' OR search_number LIKE ? ESCAPE '\')`, pattern, pattern)
	}
	if year := strings.TrimSpace(opts.Year); year != "" {
		query = query.Where("year = ?", year)
	}
	if opts.PublishedOnly {
		query = query.Where("published = ?", true)
	}

	var records []Record
	if err := query.Order(listingOrder).Find(&records).Error; err != nil {
		r.logError(logrus.Fields{"query": opts.Query, "year": opts.Year}, err, "searching volumes")
		return nil, eris.Wrap(err, "searching volumes")
	}

	return toDomainList(records), nil
}

// GetByID returns the volume or nil when not found.
func (r *Repository) GetByID(ctx context.Context, id string) (*domainvolume.Volume, error) {
	var record Record
	err := r.db.WithContext(ctx).First(&record, "id = ?", id).Error
	if err != nil {
		if eris.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logError(logrus.Fields{"volume_id": id}, err, "fetching volume")
		return nil, eris.Wrapf(err, "fetching volume: %s", id)
	}

	return record.toDomain(), nil
}

// Create inserts a new volume row.
func (r *Repository) Create(ctx context.Context, volume *domainvolume.Volume) error {
	if volume == nil {
		return eris.New("volume is nil")
	}

	if err := r.db.WithContext(ctx).Create(fromDomain(volume)).Error; err != nil {
		r.logError(logrus.Fields{"volume_id": volume.ID}, err, "inserting volume")
		return eris.Wrapf(err, "inserting volume: %s", volume.ID)
	}

	return nil
}

// Update applies the non-nil patch fields and returns the stored row, or nil when the id is unknown.
func (r *Repository) Update(ctx context.Context, id string, patch domainvolume.Patch, updatedAt time.Time) (*domainvolume.Volume, error) {
	result := r.db.WithContext(ctx).Model(&Record{}).Where("id = ?", id).Updates(patchColumns(patch, updatedAt))
	if result.Error != nil {
		r.logError(logrus.Fields{"volume_id": id}, result.Error, "updating volume")
		return nil, eris.Wrapf(result.Error, "updating volume: %s", id)
	}

	if result.RowsAffected == 0 {
		return nil, nil
	}

	return r.GetByID(ctx, id)
}

// Delete removes the row; an unknown id is not an error.
func (r *Repository) Delete(ctx context.Context, id string) error {
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&Record{}).Error; err != nil {
		r.logError(logrus.Fields{"volume_id": id}, err, "deleting volume")
		return eris.Wrapf(err, "deleting volume: %s", id)
	}
	return nil
}

// Count returns the number of volumes, optionally only published ones.
func (r *Repository) Count(ctx context.Context, publishedOnly bool) (int64, error) {
	query := r.db.WithContext(ctx).Model(&Record{})
	if publishedOnly {
		query = query.Where("published = ?", true)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		r.logError(nil, err, "counting volumes")
		return 0, eris.Wrap(err, "counting volumes")
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

func toDomainList(records []Record) []domainvolume.Volume {
	volumes := make([]domainvolume.Volume, 0, len(records))
	for i := range records {
		volumes = append(volumes, *records[i].toDomain())
	}
	return volumes
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(term string) string {
	return likeEscaper.Replace(term)
}
