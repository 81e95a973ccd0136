package templates

import (
	"context"
	"embed"
	"html/template"
	"io"
	"io/fs"
	"path"
	"strings"

	"github.com/a-h/templ"
)

//go:embed layout/*.gohtml pages/*.gohtml
var files embed.FS

var pages = mustParsePages()

func mustParsePages() map[string]*template.Template {
	base := template.Must(template.New("base").Funcs(funcs).ParseFS(files, "layout/*.gohtml"))

	entries, err := fs.Glob(files, "pages/*.gohtml")
	if err != nil {
		panic(err)
	}

	parsed := make(map[string]*template.Template, len(entries))
	for _, entry := range entries {
		set := template.Must(template.Must(base.Clone()).ParseFS(files, entry))
		name := strings.TrimSuffix(path.Base(entry), ".gohtml")
		parsed[name] = set.Lookup("layout")
	}
	return parsed
}

var funcs = template.FuncMap{
	"siteName": func() string { return SiteName },
	"selected": func(current, option string) bool { return current == option },
}

func page(name string, data any) templ.Component {
	t, ok := pages[name]
	if !ok || t == nil {
		return templ.ComponentFunc(func(context.Context, io.Writer) error {
			return missingPageError(name)
		})
	}
	return templ.FromGoHTML(t, data)
}

type missingPageError string

func (e missingPageError) Error() string {
	return "template " + string(e) + " is not defined"
}

func HomePage(data HomePageData) templ.Component                 { return page("home", data) }
func VolumesPage(data VolumesPageData) templ.Component           { return page("volumes", data) }
func VolumePage(data VolumePageData) templ.Component             { return page("volume", data) }
func NewsListPage(data NewsListPageData) templ.Component         { return page("news_list", data) }
func NewsPage(data NewsPageData) templ.Component                 { return page("news", data) }
func ContactPage(data ContactPageData) templ.Component           { return page("contact", data) }
func LoginPage(data LoginPageData) templ.Component               { return page("login", data) }
func ErrorPage(data ErrorPageData) templ.Component               { return page("error", data) }
func DashboardPage(data DashboardPageData) templ.Component       { return page("dashboard", data) }
func AdminVolumesPage(data AdminVolumesPageData) templ.Component { return page("admin_volumes", data) }
func VolumeFormPage(data VolumeForm) templ.Component             { return page("volume_form", data) }
func AdminNewsPage(data AdminNewsPageData) templ.Component       { return page("admin_news", data) }
func NewsFormPage(data NewsForm) templ.Component                 { return page("news_form", data) }
func ConfirmDeletePage(data ConfirmDeletePageData) templ.Component {
	return page("confirm_delete", data)
}
