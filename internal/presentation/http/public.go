package http

import (
	"context"
	"html/template"
	stdhttp "net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/sirupsen/logrus"

	"juvenis/app/internal/domain/news"
	"juvenis/app/internal/domain/volume"
	"juvenis/app/internal/platform/sanitize"
	"juvenis/app/internal/presentation/http/templates"
)

const homeListLimit = 3

type idInput struct {
	ID string `path:"id" maxLength:"64"`
}

type volumesInput struct {
	Query string `query:"q" maxLength:"200"`
	Year  string `query:"year" maxLength:"8"`
}

type newsListInput struct {
	Category string `query:"category" maxLength:"64"`
}

func (s *Server) registerPublicRoutes() {
	huma.Get(s.api, "/", s.homeHandler, htmlOperation("Journal home", stdhttp.StatusInternalServerError))
	huma.Get(s.api, "/volumes", s.volumesHandler, htmlOperation("Published volumes", stdhttp.StatusInternalServerError))
	huma.Get(s.api, "/volumes/{id}", s.volumeHandler, htmlOperation(
		"Published volume",
		stdhttp.StatusNotFound,
		stdhttp.StatusInternalServerError,
	))
	huma.Get(s.api, "/news", s.newsListHandler, htmlOperation(
		"Published news",
		stdhttp.StatusUnprocessableEntity,
		stdhttp.StatusInternalServerError,
	))
	huma.Get(s.api, "/news/{id}", s.newsHandler, htmlOperation(
		"Published news item",
		stdhttp.StatusNotFound,
		stdhttp.StatusInternalServerError,
	))
	huma.Get(s.api, "/contact", s.contactHandler, htmlOperation("Contact page"))
}

func (s *Server) homeHandler(ctx context.Context, _ *struct{}) (*htmlResponse, error) {
	volumes, err := s.volumes.List(ctx, volume.ListOptions{PublishedOnly: true, Limit: homeListLimit})
	if err != nil {
		return s.failPage(ctx, err, "listing volumes for home", nil)
	}

	items, err := s.news.List(ctx, news.ListOptions{PublishedOnly: true, Limit: homeListLimit})
	if err != nil {
		return s.failPage(ctx, err, "listing news for home", nil)
	}

	return s.renderPage(ctx, stdhttp.StatusOK, templates.HomePage(templates.HomePageData{
		Layout:  templates.Layout{Section: "home"},
		Volumes: volumeCards(volumes),
		News:    newsCards(items),
	}), "home page", nil)
}

func (s *Server) volumesHandler(ctx context.Context, input *volumesInput) (*htmlResponse, error) {
	query := strings.TrimSpace(input.Query)
	year := strings.TrimSpace(input.Year)

	published, err := s.volumes.List(ctx, volume.ListOptions{PublishedOnly: true})
	if err != nil {
		return s.failPage(ctx, err, "listing volumes", nil)
	}

	results := published
	if query != "" || year != "" {
		results, err = s.volumes.Search(ctx, volume.SearchOptions{Query: query, Year: year, PublishedOnly: true})
		if err != nil {
			return s.failPage(ctx, err, "searching volumes", logrus.Fields{"query": query, "year": year})
		}
	}

	return s.renderPage(ctx, stdhttp.StatusOK, templates.VolumesPage(templates.VolumesPageData{
		Layout:  templates.Layout{Title: "Volúmenes", Section: "volumes"},
		Query:   query,
		Year:    year,
		Years:   distinctYears(published),
		Volumes: volumeCards(results),
	}), "volumes page", nil)
}

func (s *Server) volumeHandler(ctx context.Context, input *idInput) (*htmlResponse, error) {
	id := strings.TrimSpace(input.ID)
	v, err := s.volumes.GetByID(ctx, id)
	if err != nil {
		return s.failPage(ctx, err, "loading volume", logrus.Fields{"volume_id": id})
	}
	if !v.Published {
		return s.failPage(ctx, volume.ErrNotFound, "draft volume requested publicly", logrus.Fields{"volume_id": id})
	}

	return s.renderPage(ctx, stdhttp.StatusOK, templates.VolumePage(templates.VolumePageData{
		Layout: templates.Layout{Title: v.Title, Section: "volumes"},
		Volume: volumeCard(*v),
	}), "volume page", logrus.Fields{"volume_id": id})
}

func (s *Server) newsListHandler(ctx context.Context, input *newsListInput) (*htmlResponse, error) {
	var (
		items    []news.Item
		category news.Category
		err      error
	)

	if raw := strings.TrimSpace(input.Category); raw != "" {
		category, err = news.ParseCategory(raw)
		if err != nil {
			return s.failPage(ctx, err, "parsing news category", logrus.Fields{"category": raw})
		}
		items, err = s.news.ListByCategory(ctx, category)
	} else {
		items, err = s.news.List(ctx, news.ListOptions{PublishedOnly: true})
	}
	if err != nil {
		return s.failPage(ctx, err, "listing news", logrus.Fields{"category": category})
	}

	return s.renderPage(ctx, stdhttp.StatusOK, templates.NewsListPage(templates.NewsListPageData{
		Layout:     templates.Layout{Title: "Noticias", Section: "news"},
		Category:   string(category),
		Categories: categoryNames(),
		Items:      newsCards(items),
	}), "news page", nil)
}

func (s *Server) newsHandler(ctx context.Context, input *idInput) (*htmlResponse, error) {
	id := strings.TrimSpace(input.ID)
	item, err := s.news.GetByID(ctx, id)
	if err != nil {
		return s.failPage(ctx, err, "loading news item", logrus.Fields{"news_id": id})
	}
	if !item.IsPublished() {
		return s.failPage(ctx, news.ErrNotFound, "draft news requested publicly", logrus.Fields{"news_id": id})
	}

	content, err := sanitize.ContentHTML(item.Content)
	if err != nil {
		return s.failPage(ctx, err, "sanitizing news content", logrus.Fields{"news_id": id})
	}

	return s.renderPage(ctx, stdhttp.StatusOK, templates.NewsPage(templates.NewsPageData{
		Layout: templates.Layout{Title: item.Title, Section: "news"},
		Item:   newsCard(*item),
		// ContentHTML has been reduced to an allow-list of elements above.
		ContentHTML: template.HTML(content),
	}), "news item page", logrus.Fields{"news_id": id})
}

func (s *Server) contactHandler(ctx context.Context, _ *struct{}) (*htmlResponse, error) {
	return s.renderPage(ctx, stdhttp.StatusOK, templates.ContactPage(templates.ContactPageData{
		Layout: templates.Layout{Title: "Contacto", Section: "contact"},
	}), "contact page", nil)
}
