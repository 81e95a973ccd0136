package templates

import "html/template"

// SiteName is shown in titles and the page header.
const SiteName = "Juvenis Sapiens"

// Layout carries the values shared by every page.
type Layout struct {
	Title   string
	Section string
	Admin   *AdminNav
	Notice  string
}

// AdminNav is present on admin pages only.
type AdminNav struct {
	Email string
}

// VolumeCard is the display form of a volume.
type VolumeCard struct {
	ID        string
	Title     string
	Number    string
	Year      string
	CoverURL  string
	PDFURL    string
	Content   string
	Published bool
	Updated   string
}

// NewsCard is the display form of a news item.
type NewsCard struct {
	ID        string
	Title     string
	Category  string
	Extract   string
	ImageURL  string
	Date      string
	Status    string
	Published bool
}

// HomePageData lists the latest published volumes and news.
type HomePageData struct {
	Layout
	Volumes []VolumeCard
	News    []NewsCard
}

// VolumesPageData is the public volume archive with its filters.
type VolumesPageData struct {
	Layout
	Query   string
	Year    string
	Years   []string
	Volumes []VolumeCard
}

// VolumePageData shows one volume.
type VolumePageData struct {
	Layout
	Volume VolumeCard
}

// NewsListPageData is the public news listing.
type NewsListPageData struct {
	Layout
	Category   string
	Categories []string
	Items      []NewsCard
}

// NewsPageData shows one news item. ContentHTML must already be sanitized.
type NewsPageData struct {
	Layout
	Item        NewsCard
	ContentHTML template.HTML
}

// ContactPageData renders the static contact page.
type ContactPageData struct {
	Layout
}

// LoginPageData renders the sign-in form.
type LoginPageData struct {
	Layout
	Email string
	Next  string
	Error string
}

// ErrorPageData holds information for rendering an error view.
type ErrorPageData struct {
	Layout
	StatusLabel string
	Message     string
}

// DashboardPageData summarises the catalogue for editors.
type DashboardPageData struct {
	Layout
	VolumeTotal     int64
	VolumePublished int64
	NewsTotal       int64
	NewsPublished   int64
	RecentVolumes   []VolumeCard
	RecentNews      []NewsCard
}

// AdminVolumesPageData lists every volume, drafts included.
type AdminVolumesPageData struct {
	Layout
	Volumes []VolumeCard
}

// VolumeForm is the create/edit state of a volume form.
type VolumeForm struct {
	Layout
	Action    string
	Editing   bool
	ID        string
	Title     string
	Number    string
	Year      string
	CoverURL  string
	PDFURL    string
	Content   string
	Published bool
	Error     string
}

// AdminNewsPageData lists every news item, drafts included.
type AdminNewsPageData struct {
	Layout
	Items             []NewsCard
	SummarizerEnabled bool
}

// NewsForm is the create/edit state of a news form.
type NewsForm struct {
	Layout
	Action            string
	Editing           bool
	ID                string
	Title             string
	Category          string
	Extract           string
	Content           string
	ImageURL          string
	PublishedDate     string
	Status            string
	Categories        []string
	Error             string
	SummarizerEnabled bool
}

// ConfirmDeletePageData asks before deleting a record.
type ConfirmDeletePageData struct {
	Layout
	Kind      string
	Name      string
	Action    string
	CancelURL string
}
