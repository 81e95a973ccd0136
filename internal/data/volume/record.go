package volume

import (
	"time"

	domainvolume "juvenis/app/internal/domain/volume"
	"juvenis/app/internal/platform/textsearch"
)

// Record is a journal volume row.
type Record struct {
	ID        string `gorm:"column:id;primaryKey"`
	Title     string `gorm:"column:title;not null"`
	Number    string `gorm:"column:number;not null"`
	Year      string `gorm:"column:year;not null"`
	CoverURL  string `gorm:"column:cover_url;not null"`
	PDFURL    string `gorm:"column:pdf_url;not null"`
	Content   string `gorm:"column:content;type:text;not null"`
	SortOrder int    `gorm:"column:sort_order;not null"`
	Published bool   `gorm:"column:published;not null"`
	// Case-folded copies of Title and Number matched by Search.
	SearchTitle  string    `gorm:"column:search_title;not null"`
	SearchNumber string    `gorm:"column:search_number;not null"`
	CreatedAt    time.Time `gorm:"column:created_at;not null"`
	UpdatedAt    time.Time `gorm:"column:updated_at;not null"`
}

// TableName defines the table name for volume rows.
func (Record) TableName() string {
	return "volumes"
}

func fromDomain(v *domainvolume.Volume) *Record {
	return &Record{
		ID:           v.ID,
		Title:        v.Title,
		Number:       v.Number,
		Year:         v.Year,
		CoverURL:     v.CoverURL,
		PDFURL:       v.PDFURL,
		Content:      v.Content,
		SortOrder:    v.Order,
		Published:    v.Published,
		SearchTitle:  textsearch.Key(v.Title),
		SearchNumber: textsearch.Key(v.Number),
		CreatedAt:    v.CreatedAt.UTC(),
		UpdatedAt:    v.UpdatedAt.UTC(),
	}
}

func (r *Record) toDomain() *domainvolume.Volume {
	if r == nil {
		return nil
	}

	return &domainvolume.Volume{
		ID:        r.ID,
		Title:     r.Title,
		Number:    r.Number,
		Year:      r.Year,
		CoverURL:  r.CoverURL,
		PDFURL:    r.PDFURL,
		Content:   r.Content,
		Order:     r.SortOrder,
		Published: r.Published,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

func patchColumns(patch domainvolume.Patch, updatedAt time.Time) map[string]any {
	columns := map[string]any{"updated_at": updatedAt.UTC()}

	if patch.Title != nil {
		columns["title"] = *patch.Title
		columns["search_title"] = textsearch.Key(*patch.Title)
	}
	if patch.Number != nil {
		columns["number"] = *patch.Number
		columns["search_number"] = textsearch.Key(*patch.Number)
	}
	if patch.Year != nil {
		columns["year"] = *patch.Year
	}
	if patch.CoverURL != nil {
		columns["cover_url"] = *patch.CoverURL
	}
	if patch.PDFURL != nil {
		columns["pdf_url"] = *patch.PDFURL
	}
	if patch.Content != nil {
		columns["content"] = *patch.Content
	}
	if patch.Published != nil {
		columns["published"] = *patch.Published
	}

	return columns
}
