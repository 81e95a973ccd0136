package news

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Category classifies a news item.
type Category string

const (
	CategoryRelease Category = "Lanzamiento"
	CategoryEvent   Category = "Evento"
	CategoryCall    Category = "Convocatoria"
)

// Categories lists every accepted category in display order.
func Categories() []Category {
	return []Category{CategoryRelease, CategoryEvent, CategoryCall}
}

// ParseCategory matches a category name case-insensitively.
func ParseCategory(value string) (Category, error) {
	trimmed := strings.TrimSpace(value)
	for _, category := range Categories() {
		if strings.EqualFold(trimmed, string(category)) {
			return category, nil
		}
	}
	return "", eris.Wrapf(ErrValidation, "unknown category %q", trimmed)
}

// Status is the publication state of a news item.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
)

// ParseStatus accepts "draft" and "published"; an empty value means draft.
func ParseStatus(value string) (Status, error) {
	switch Status(strings.ToLower(strings.TrimSpace(value))) {
	case "", StatusDraft:
		return StatusDraft, nil
	case StatusPublished:
		return StatusPublished, nil
	default:
		return "", eris.Wrapf(ErrValidation, "unknown status %q", value)
	}
}

// Item is one news entry.
type Item struct {
	ID            string
	Title         string
	Category      Category
	Extract       string
	Content       string
	ImageURL      string
	PublishedDate *time.Time
	Status        Status
	Order         int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// IsPublished reports whether the item may be shown on public pages.
func (i Item) IsPublished() bool {
	return i.Status == StatusPublished
}

// Input carries the editor-supplied fields of a new item.
type Input struct {
	Title         string
	Category      Category
	Extract       string
	Content       string
	ImageURL      string
	PublishedDate *time.Time
	Status        Status
}

// Patch names the fields an update should change. ClearPublishedDate removes the date.
type Patch struct {
	Title              *string
	Category           *Category
	Extract            *string
	Content            *string
	ImageURL           *string
	PublishedDate      *time.Time
	ClearPublishedDate bool
	Status             *Status
}

// ListOptions filters List queries.
type ListOptions struct {
	PublishedOnly bool
	Category      Category
	Limit         int
}

var (
	// ErrNotFound is returned when no item matches the requested id.
	ErrNotFound = eris.New("news item not found")
	// ErrValidation marks editor input that cannot be stored.
	ErrValidation = eris.New("invalid news item")
	// ErrSummarizerUnavailable is returned by GenerateExtract when no summarizer is configured.
	ErrSummarizerUnavailable = eris.New("extract summarizer is not configured")
)

func (in Input) normalized() Input {
	in.Title = strings.TrimSpace(in.Title)
	in.Extract = strings.TrimSpace(in.Extract)
	in.Content = strings.TrimSpace(in.Content)
	in.ImageURL = strings.TrimSpace(in.ImageURL)
	if in.Status == "" {
		in.Status = StatusDraft
	}
	in.PublishedDate = dateOnly(in.PublishedDate)
	return in
}

func (in Input) validate() error {
	if in.Title == "" {
		return eris.Wrap(ErrValidation, "title is required")
	}
	if in.Category == "" {
		return eris.Wrap(ErrValidation, "category is required")
	}
	if _, err := ParseCategory(string(in.Category)); err != nil {
		return err
	}
	if _, err := ParseStatus(string(in.Status)); err != nil {
		return err
	}
	return nil
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Title == nil && p.Category == nil && p.Extract == nil && p.Content == nil &&
		p.ImageURL == nil && p.PublishedDate == nil && !p.ClearPublishedDate && p.Status == nil
}

func (p Patch) normalized() Patch {
	p.Title = trimmed(p.Title)
	p.Extract = trimmed(p.Extract)
	p.Content = trimmed(p.Content)
	p.ImageURL = trimmed(p.ImageURL)
	p.PublishedDate = dateOnly(p.PublishedDate)
	if p.ClearPublishedDate {
		p.PublishedDate = nil
	}
	return p
}

func (p Patch) validate() error {
	if p.Title != nil && *p.Title == "" {
		return eris.Wrap(ErrValidation, "title cannot be blank")
	}
	if p.Category != nil {
		if _, err := ParseCategory(string(*p.Category)); err != nil {
			return err
		}
	}
	if p.Status != nil {
		if *p.Status == "" {
			return eris.Wrap(ErrValidation, "status cannot be blank")
		}
		if _, err := ParseStatus(string(*p.Status)); err != nil {
			return err
		}
	}
	return nil
}

func dateOnly(value *time.Time) *time.Time {
	if value == nil || value.IsZero() {
		return nil
	}
	y, m, d := value.Date()
	out := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &out
}

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	out := strings.TrimSpace(*value)
	return &out
}
