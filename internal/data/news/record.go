package news

import (
	"time"

	domainnews "juvenis/app/internal/domain/news"
)

// Record is a news row.
type Record struct {
	ID            string     `gorm:"column:id;primaryKey"`
	Title         string     `gorm:"column:title;not null"`
	Category      string     `gorm:"column:category;not null"`
	Extract       string     `gorm:"column:extract;type:text;not null"`
	Content       string     `gorm:"column:content;type:text;not null"`
	ImageURL      string     `gorm:"column:image_url;not null"`
	PublishedDate *time.Time `gorm:"column:published_date"`
	Status        string     `gorm:"column:status;not null"`
	SortOrder     int        `gorm:"column:sort_order;not null"`
	CreatedAt     time.Time  `gorm:"column:created_at;not null"`
	UpdatedAt     time.Time  `gorm:"column:updated_at;not null"`
}

// TableName defines the table name for news rows.
func (Record) TableName() string {
	return "news"
}

func fromDomain(item *domainnews.Item) *Record {
	return &Record{
		ID:            item.ID,
		Title:         item.Title,
		Category:      string(item.Category),
		Extract:       item.Extract,
		Content:       item.Content,
		ImageURL:      item.ImageURL,
		PublishedDate: utcPtr(item.PublishedDate),
		Status:        string(item.Status),
		SortOrder:     item.Order,
		CreatedAt:     item.CreatedAt.UTC(),
		UpdatedAt:     item.UpdatedAt.UTC(),
	}
}

func (r *Record) toDomain() *domainnews.Item {
	if r == nil {
		return nil
	}

	return &domainnews.Item{
		ID:            r.ID,
		Title:         r.Title,
		Category:      domainnews.Category(r.Category),
		Extract:       r.Extract,
		Content:       r.Content,
		ImageURL:      r.ImageURL,
		PublishedDate: utcPtr(r.PublishedDate),
		Status:        domainnews.Status(r.Status),
		Order:         r.SortOrder,
		CreatedAt:     r.CreatedAt.UTC(),
		UpdatedAt:     r.UpdatedAt.UTC(),
	}
}

func patchColumns(patch domainnews.Patch, updatedAt time.Time) map[string]any {
	columns := map[string]any{"updated_at": updatedAt.UTC()}

	if patch.Title != nil {
		columns["title"] = *patch.Title
	}
	if patch.Category != nil {
		columns["category"] = string(*patch.Category)
	}
	if patch.Extract != nil {
		columns["extract"] = *patch.Extract
	}
	if patch.Content != nil {
		columns["content"] = *patch.Content
	}
	if patch.ImageURL != nil {
		columns["image_url"] = *patch.ImageURL
	}
	if patch.ClearPublishedDate {
		columns["published_date"] = nil
	} else if patch.PublishedDate != nil {
		columns["published_date"] = patch.PublishedDate.UTC()
	}
	if patch.Status != nil {
		columns["status"] = string(*patch.Status)
	}

	return columns
}

func utcPtr(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	out := value.UTC()
	return &out
}
