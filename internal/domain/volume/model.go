package volume

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Volume is one published issue of the journal.
type Volume struct {
	ID        string
	Title     string
	Number    string
	Year      string
	CoverURL  string
	PDFURL    string
	Content   string
	Order     int
	Published bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Input carries the editor-supplied fields of a new volume. Server-managed fields
// (id, order, timestamps) are not part of it.
type Input struct {
	Title     string
	Number    string
	Year      string
	CoverURL  string
	PDFURL    string
	Content   string
	Published bool
}

// Patch names the fields an update should change; nil fields are left untouched.
type Patch struct {
	Title     *string
	Number    *string
	Year      *string
	CoverURL  *string
	PDFURL    *string
	Content   *string
	Published *bool
}

// ListOptions filters List queries.
type ListOptions struct {
	PublishedOnly bool
	Limit         int
}

// SearchOptions filters Search queries.
type SearchOptions struct {
	Query         string
	Year          string
	PublishedOnly bool
}

var (
	// ErrNotFound is returned when no volume matches the requested id.
	ErrNotFound = eris.New("volume not found")
	// ErrValidation marks editor input that cannot be stored.
	ErrValidation = eris.New("invalid volume")
)

func (in Input) normalized() Input {
	in.Title = strings.TrimSpace(in.Title)
	in.Number = strings.TrimSpace(in.Number)
	in.Year = strings.TrimSpace(in.Year)
	in.CoverURL = strings.TrimSpace(in.CoverURL)
	in.PDFURL = strings.TrimSpace(in.PDFURL)
	in.Content = strings.TrimSpace(in.Content)
	return in
}

func (in Input) validate() error {
	switch {
	case in.Title == "":
		return eris.Wrap(ErrValidation, "title is required")
	case in.Number == "":
		return eris.Wrap(ErrValidation, "number is required")
	case in.Year == "":
		return eris.Wrap(ErrValidation, "year is required")
	}
	return nil
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Title == nil && p.Number == nil && p.Year == nil && p.CoverURL == nil &&
		p.PDFURL == nil && p.Content == nil && p.Published == nil
}

func (p Patch) normalized() Patch {
	p.Title = trimmed(p.Title)
	p.Number = trimmed(p.Number)
	p.Year = trimmed(p.Year)
	p.CoverURL = trimmed(p.CoverURL)
	p.PDFURL = trimmed(p.PDFURL)
	p.Content = trimmed(p.Content)
	return p
}

func (p Patch) validate() error {
	switch {
	case p.Title != nil && *p.Title == "":
		return eris.Wrap(ErrValidation, "title cannot be blank")
	case p.Number != nil && *p.Number == "":
		return eris.Wrap(ErrValidation, "number cannot be blank")
	case p.Year != nil && *p.Year == "":
		return eris.Wrap(ErrValidation, "year cannot be blank")
	}
	return nil
}

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	out := strings.TrimSpace(*value)
	return &out
}
