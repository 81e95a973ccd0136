package http

import (
	"context"
	"mime/multipart"
	stdhttp "net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/a-h/templ"
	"github.com/danielgtaylor/huma/v2"
	"github.com/sirupsen/logrus"

	"juvenis/app/internal/domain/news"
	"juvenis/app/internal/domain/volume"
	"juvenis/app/internal/presentation/http/templates"
)

const dashboardRecentLimit = 5

type multipartFormInput struct {
	RawBody multipart.Form
}

type multipartUpdateInput struct {
	ID      string `path:"id" maxLength:"64"`
	RawBody multipart.Form
}

type confirmDeleteInput struct {
	ID      string `path:"id" maxLength:"64"`
	RawBody []byte
}

func (s *Server) registerAdminRoutes() {
	gated := []int{stdhttp.StatusSeeOther, stdhttp.StatusForbidden, stdhttp.StatusInternalServerError}
	withNotFound := append([]int{stdhttp.StatusNotFound}, gated...)
	withRejections := append([]int{
		stdhttp.StatusBadRequest,
		stdhttp.StatusRequestEntityTooLarge,
		stdhttp.StatusUnsupportedMediaType,
		stdhttp.StatusUnprocessableEntity,
	}, withNotFound...)

	huma.Get(s.api, "/admin", s.dashboardHandler, htmlOperation("Admin dashboard", gated...))

	huma.Get(s.api, "/admin/volumes", s.adminVolumesHandler, htmlOperation("Manage volumes", gated...))
	huma.Get(s.api, "/admin/volumes/new", s.newVolumeHandler, htmlOperation("New volume form", gated...))
	huma.Post(s.api, "/admin/volumes", s.createVolumeHandler, formOperation("Create volume", withRejections...))
	huma.Get(s.api, "/admin/volumes/{id}/edit", s.editVolumeHandler, htmlOperation("Edit volume form", withNotFound...))
	huma.Post(s.api, "/admin/volumes/{id}", s.updateVolumeHandler, formOperation("Update volume", withRejections...))
	huma.Get(s.api, "/admin/volumes/{id}/delete", s.confirmDeleteVolumeHandler, htmlOperation("Confirm volume deletion", withNotFound...))
	huma.Post(s.api, "/admin/volumes/{id}/delete", s.deleteVolumeHandler, htmlOperation("Delete volume", withNotFound...))

	huma.Get(s.api, "/admin/news", s.adminNewsHandler, htmlOperation("Manage news", gated...))
	huma.Get(s.api, "/admin/news/new", s.newNewsHandler, htmlOperation("New news form", gated...))
	huma.Post(s.api, "/admin/news", s.createNewsHandler, formOperation("Create news item", withRejections...))
	huma.Get(s.api, "/admin/news/{id}/edit", s.editNewsHandler, htmlOperation("Edit news form", withNotFound...))
	huma.Post(s.api, "/admin/news/{id}", s.updateNewsHandler, formOperation("Update news item", withRejections...))
	huma.Get(s.api, "/admin/news/{id}/delete", s.confirmDeleteNewsHandler, htmlOperation("Confirm news deletion", withNotFound...))
	huma.Post(s.api, "/admin/news/{id}/delete", s.deleteNewsHandler, htmlOperation("Delete news item", withNotFound...))
	huma.Post(s.api, "/admin/news/{id}/extract", s.generateExtractHandler, htmlOperation(
		"Generate news extract",
		append([]int{stdhttp.StatusServiceUnavailable}, withNotFound...)...,
	))
}

// requireAdmin returns the admin navigation for the caller, or the response that replaces the page:
// a redirect to the login form for anonymous callers and an error page for everyone else.
func (s *Server) requireAdmin(ctx context.Context) (*templates.AdminNav, *htmlResponse) {
	creds := credentialsFromContext(ctx)
	loginURL := "/login?next=" + url.QueryEscape(safeNext(creds.Path))

	if creds.Token == "" {
		return nil, redirectResponse(loginURL)
	}

	session, err := s.auth.GetSession(ctx, creds.Token)
	if err != nil {
		resp, _ := s.failPage(ctx, err, "loading admin session", nil)
		return nil, resp
	}
	if session == nil || session.User == nil {
		resp := redirectResponse(loginURL)
		resp.SetCookie = s.expiredSessionCookie().String()
		return nil, resp
	}

	ok, err := s.auth.CheckAdmin(ctx, creds.Token)
	if err != nil {
		resp, _ := s.failPage(ctx, err, "checking admin access", logrus.Fields{"user_id": session.UserID})
		return nil, resp
	}
	if !ok {
		resp, _ := s.failPage(ctx, errForbidden, "non-admin reached admin area", logrus.Fields{"user_id": session.UserID})
		return nil, resp
	}

	return &templates.AdminNav{Email: session.User.Email}, nil
}

func adminLayout(nav *templates.AdminNav, title, section string) templates.Layout {
	return templates.Layout{Title: title, Section: section, Admin: nav}
}

func (s *Server) renderAdminPage(ctx context.Context, status int, component templ.Component, what string, fields logrus.Fields) (*htmlResponse, error) {
	resp, err := s.renderPage(ctx, status, component, what, fields)
	if resp != nil {
		resp.CacheControl = "no-store"
	}
	return resp, err
}

func (s *Server) dashboardHandler(ctx context.Context, _ *struct{}) (*htmlResponse, error) {
	nav, deny := s.requireAdmin(ctx)
	if deny != nil {
		return deny, nil
	}

	data := templates.DashboardPageData{Layout: adminLayout(nav, "Panel", "dashboard")}

	counts := []struct {
		target *int64
		count  func(context.Context, bool) (int64, error)
		only   bool
	}{
		{&data.VolumeTotal, s.volumes.Count, false},
		{&data.VolumePublished, s.volumes.Count, true},
		{&data.NewsTotal, s.news.Count, false},
		{&data.NewsPublished, s.news.Count, true},
	}
	for _, c := range counts {
		total, err := c.count(ctx, c.only)
		if err != nil {
			return s.failPage(ctx, err, "counting dashboard totals", nil)
		}
		*c.target = total
	}

	volumes, err := s.volumes.List(ctx, volume.ListOptions{Limit: dashboardRecentLimit})
	if err != nil {
		return s.failPage(ctx, err, "listing recent volumes", nil)
	}
	items, err := s.news.List(ctx, news.ListOptions{Limit: dashboardRecentLimit})
	if err != nil {
		return s.failPage(ctx, err, "listing recent news", nil)
	}
	data.RecentVolumes = volumeCards(volumes)
	data.RecentNews = newsCards(items)

	return s.renderAdminPage(ctx, stdhttp.StatusOK, templates.DashboardPage(data), "dashboard", nil)
}

func (s *Server) adminVolumesHandler(ctx context.Context, _ *struct{}) (*htmlResponse, error) {
	nav, deny := s.requireAdmin(ctx)
	if deny != nil {
		return deny, nil
	}

	volumes, err := s.volumes.List(ctx, volume.ListOptions{})
	if err != nil {
		return s.failPage(ctx, err, "listing volumes for admin", nil)
	}

	return s.renderAdminPage(ctx, stdhttp.StatusOK, templates.AdminVolumesPage(templates.AdminVolumesPageData{
		Layout:  adminLayout(nav, "Volúmenes", "admin-volumes"),
		Volumes: volumeCards(volumes),
	}), "admin volumes", nil)
}

func (s *Server) newVolumeHandler(ctx context.Context, _ *struct{}) (*htmlResponse, error) {
	nav, deny := s.requireAdmin(ctx)
	if deny != nil {
		return deny, nil
	}

	form := templates.VolumeForm{Year: strconv.Itoa(s.now().Year())}
	return s.renderVolumeForm(ctx, stdhttp.StatusOK, nav, form)
}

func (s *Server) createVolumeHandler(ctx context.Context, input *multipartFormInput) (*htmlResponse, error) {
	nav, deny := s.requireAdmin(ctx)
	if deny != nil {
		return deny, nil
	}

	sub := parseVolumeForm(&input.RawBody)
	if err := s.attachVolumeFiles(ctx, &input.RawBody, &sub); err != nil {
		return s.rejectVolumeForm(ctx, nav, sub.form(), err, "uploading volume files")
	}

	created, err := s.volumes.Create(ctx, sub.input())
	if err != nil {
		return s.rejectVolumeForm(ctx, nav, sub.form(), err, "creating volume")
	}

	s.logInfo(ctx, "volume created from admin", logrus.Fields{"volume_id": created.ID})
	return redirectResponse("/admin/volumes"), nil
}

func (s *Server) editVolumeHandler(ctx context.Context, input *idInput) (*htmlResponse, error) {
	nav, deny := s.requireAdmin(ctx)
	if deny != nil {
		return deny, nil
	}

	v, err := s.volumes.GetByID(ctx, input.ID)
	if err != nil {
		return s.failPage(ctx, err, "loading volume for edit", logrus.Fields{"volume_id": input.ID})
	}

	return s.renderVolumeForm(ctx, stdhttp.StatusOK, nav, volumeFormFromDomain(*v))
}

func (s *Server) updateVolumeHandler(ctx context.Context, input *multipartUpdateInput) (*htmlResponse, error) {
	nav, deny := s.requireAdmin(ctx)
	if deny != nil {
		return deny, nil
	}

	sub := parseVolumeForm(&input.RawBody)
	reject := func(err error, message string) (*htmlResponse, error) {
		form := sub.form()
		form.ID = input.ID
		return s.rejectVolumeForm(ctx, nav, form, err, message)
	}

	if err := s.attachVolumeFiles(ctx, &input.RawBody, &sub); err != nil {
		return reject(err, "uploading volume files")
	}

	if _, err := s.volumes.Update(ctx, input.ID, sub.patch()); err != nil {
		if status, _ := classifyError(err); status == stdhttp.StatusNotFound {
			return s.failPage(ctx, err, "updating volume", logrus.Fields{"volume_id": input.ID})
		}
		return reject(err, "updating volume")
	}

	s.logInfo(ctx, "volume updated from admin", logrus.Fields{"volume_id": input.ID})
	return redirectResponse("/admin/volumes"), nil
}

func (s *Server) confirmDeleteVolumeHandler(ctx context.Context, input *idInput) (*htmlResponse, error) {
	nav, deny := s.requireAdmin(ctx)
	if deny != nil {
		return deny, nil
	}

	v, err := s.volumes.GetByID(ctx, input.ID)
	if err != nil {
		return s.failPage(ctx, err, "loading volume for deletion", logrus.Fields{"volume_id": input.ID})
	}

	return s.renderAdminPage(ctx, stdhttp.StatusOK, templates.ConfirmDeletePage(templates.ConfirmDeletePageData{
		Layout:    adminLayout(nav, "Eliminar volumen", "admin-volumes"),
		Kind:      "volumen",
		Name:      v.Title + " (" + v.Number + ")",
		Action:    "/admin/volumes/" + url.PathEscape(v.ID) + "/delete",
		CancelURL: "/admin/volumes",
	}), "volume delete confirmation", nil)
}

func (s *Server) deleteVolumeHandler(ctx context.Context, input *confirmDeleteInput) (*htmlResponse, error) {
	_, deny := s.requireAdmin(ctx)
	if deny != nil {
		return deny, nil
	}

	if !confirmed(input.RawBody) {
		return redirectResponse("/admin/volumes/" + url.PathEscape(input.ID) + "/delete"), nil
	}

	if err := s.volumes.Delete(ctx, input.ID); err != nil {
		return s.failPage(ctx, err, "deleting volume", logrus.Fields{"volume_id": input.ID})
	}

	s.logInfo(ctx, "volume deleted from admin", logrus.Fields{"volume_id": input.ID})
	return redirectResponse("/admin/volumes"), nil
}

func (s *Server) renderVolumeForm(ctx context.Context, status int, nav *templates.AdminNav, form templates.VolumeForm) (*htmlResponse, error) {
	form.Editing = form.ID != ""
	form.Action = "/admin/volumes"
	title := "Nuevo volumen"
	if form.Editing {
		form.Action = "/admin/volumes/" + url.PathEscape(form.ID)
		title = "Editar volumen"
	}
	form.Layout = adminLayout(nav, title, "admin-volumes")
	return s.renderAdminPage(ctx, status, templates.VolumeFormPage(form), "volume form", nil)
}

func (s *Server) rejectVolumeForm(ctx context.Context, nav *templates.AdminNav, form templates.VolumeForm, err error, message string) (*htmlResponse, error) {
	status, userMessage := s.formFailure(ctx, err, message, logrus.Fields{"volume_id": form.ID})
	form.Error = userMessage
	return s.renderVolumeForm(ctx, status, nav, form)
}

func (s *Server) adminNewsHandler(ctx context.Context, _ *struct{}) (*htmlResponse, error) {
	nav, deny := s.requireAdmin(ctx)
	if deny != nil {
		return deny, nil
	}

	items, err := s.news.List(ctx, news.ListOptions{})
	if err != nil {
		return s.failPage(ctx, err, "listing news for admin", nil)
	}

	return s.renderAdminPage(ctx, stdhttp.StatusOK, templates.AdminNewsPage(templates.AdminNewsPageData{
		Layout:            adminLayout(nav, "Noticias", "admin-news"),
		Items:             newsCards(items),
		SummarizerEnabled: s.summarizerEnabled,
	}), "admin news", nil)
}

func (s *Server) newNewsHandler(ctx context.Context, _ *struct{}) (*htmlResponse, error) {
	nav, deny := s.requireAdmin(ctx)
	if deny != nil {
		return deny, nil
	}

	form := templates.NewsForm{
		Category:      string(news.CategoryRelease),
		Status:        string(news.StatusDraft),
		PublishedDate: s.now().Format(dateLayout),
	}
	return s.renderNewsForm(ctx, stdhttp.StatusOK, nav, form)
}

func (s *Server) createNewsHandler(ctx context.Context, input *multipartFormInput) (*htmlResponse, error) {
	nav, deny := s.requireAdmin(ctx)
	if deny != nil {
		return deny, nil
	}

	sub := parseNewsForm(&input.RawBody)
	newsInput, err := sub.input()
	if err != nil {
		return s.rejectNewsForm(ctx, nav, sub.form(), err, "decoding news form")
	}

	if err := s.attachNewsImage(ctx, &input.RawBody, &sub); err != nil {
		return s.rejectNewsForm(ctx, nav, sub.form(), err, "uploading news image")
	}
	newsInput.ImageURL = sub.ImageURL

	created, err := s.news.Create(ctx, newsInput)
	if err != nil {
		return s.rejectNewsForm(ctx, nav, sub.form(), err, "creating news item")
	}

	s.logInfo(ctx, "news item created from admin", logrus.Fields{"news_id": created.ID})
	return redirectResponse("/admin/news"), nil
}

func (s *Server) editNewsHandler(ctx context.Context, input *idInput) (*htmlResponse, error) {
	nav, deny := s.requireAdmin(ctx)
	if deny != nil {
		return deny, nil
	}

	item, err := s.news.GetByID(ctx, input.ID)
	if err != nil {
		return s.failPage(ctx, err, "loading news item for edit", logrus.Fields{"news_id": input.ID})
	}

	return s.renderNewsForm(ctx, stdhttp.StatusOK, nav, newsFormFromDomain(*item))
}

func (s *Server) updateNewsHandler(ctx context.Context, input *multipartUpdateInput) (*htmlResponse, error) {
	nav, deny := s.requireAdmin(ctx)
	if deny != nil {
		return deny, nil
	}

	sub := parseNewsForm(&input.RawBody)
	reject := func(err error, message string) (*htmlResponse, error) {
		form := sub.form()
		form.ID = input.ID
		return s.rejectNewsForm(ctx, nav, form, err, message)
	}

	if _, err := sub.input(); err != nil {
		return reject(err, "decoding news form")
	}
	if err := s.attachNewsImage(ctx, &input.RawBody, &sub); err != nil {
		return reject(err, "uploading news image")
	}

	patch, err := sub.patch()
	if err != nil {
		return reject(err, "decoding news form")
	}

	if _, err := s.news.Update(ctx, input.ID, patch); err != nil {
		if status, _ := classifyError(err); status == stdhttp.StatusNotFound {
			return s.failPage(ctx, err, "updating news item", logrus.Fields{"news_id": input.ID})
		}
		return reject(err, "updating news item")
	}

	s.logInfo(ctx, "news item updated from admin", logrus.Fields{"news_id": input.ID})
	return redirectResponse("/admin/news"), nil
}

func (s *Server) confirmDeleteNewsHandler(ctx context.Context, input *idInput) (*htmlResponse, error) {
	nav, deny := s.requireAdmin(ctx)
	if deny != nil {
		return deny, nil
	}

	item, err := s.news.GetByID(ctx, input.ID)
	if err != nil {
		return s.failPage(ctx, err, "loading news item for deletion", logrus.Fields{"news_id": input.ID})
	}

	return s.renderAdminPage(ctx, stdhttp.StatusOK, templates.ConfirmDeletePage(templates.ConfirmDeletePageData{
		Layout:    adminLayout(nav, "Eliminar noticia", "admin-news"),
		Kind:      "noticia",
		Name:      item.Title,
		Action:    "/admin/news/" + url.PathEscape(item.ID) + "/delete",
		CancelURL: "/admin/news",
	}), "news delete confirmation", nil)
}

func (s *Server) deleteNewsHandler(ctx context.Context, input *confirmDeleteInput) (*htmlResponse, error) {
	_, deny := s.requireAdmin(ctx)
	if deny != nil {
		return deny, nil
	}

	if !confirmed(input.RawBody) {
		return redirectResponse("/admin/news/" + url.PathEscape(input.ID) + "/delete"), nil
	}

	if err := s.news.Delete(ctx, input.ID); err != nil {
		return s.failPage(ctx, err, "deleting news item", logrus.Fields{"news_id": input.ID})
	}

	s.logInfo(ctx, "news item deleted from admin", logrus.Fields{"news_id": input.ID})
	return redirectResponse("/admin/news"), nil
}

func (s *Server) generateExtractHandler(ctx context.Context, input *idInput) (*htmlResponse, error) {
	_, deny := s.requireAdmin(ctx)
	if deny != nil {
		return deny, nil
	}

	if _, err := s.news.GenerateExtract(ctx, input.ID); err != nil {
		return s.failPage(ctx, err, "generating news extract", logrus.Fields{"news_id": input.ID})
	}

	return redirectResponse("/admin/news/" + url.PathEscape(input.ID) + "/edit"), nil
}

func (s *Server) renderNewsForm(ctx context.Context, status int, nav *templates.AdminNav, form templates.NewsForm) (*htmlResponse, error) {
	form.Editing = form.ID != ""
	form.Action = "/admin/news"
	title := "Nueva noticia"
	if form.Editing {
		form.Action = "/admin/news/" + url.PathEscape(form.ID)
		title = "Editar noticia"
	}
	form.Categories = categoryNames()
	form.SummarizerEnabled = s.summarizerEnabled
	form.Layout = adminLayout(nav, title, "admin-news")
	return s.renderAdminPage(ctx, status, templates.NewsFormPage(form), "news form", nil)
}

func (s *Server) rejectNewsForm(ctx context.Context, nav *templates.AdminNav, form templates.NewsForm, err error, message string) (*htmlResponse, error) {
	status, userMessage := s.formFailure(ctx, err, message, logrus.Fields{"news_id": form.ID})
	form.Error = userMessage
	return s.renderNewsForm(ctx, status, nav, form)
}

func confirmed(raw []byte) bool {
	values, err := url.ParseQuery(string(raw))
	if err != nil {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(values.Get("confirm")), "yes")
}

func (s *Server) logInfo(ctx context.Context, message string, fields logrus.Fields) {
	if s.logger == nil {
		return
	}
	entry := s.logger.WithFields(fields)
	if requestID := RequestIDFromContext(ctx); requestID != "" {
		entry = entry.WithField("request_id", requestID)
	}
	entry.Info(message)
}
