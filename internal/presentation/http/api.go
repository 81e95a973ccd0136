package http

import (
	"context"
	"mime/multipart"
	stdhttp "net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"juvenis/app/internal/domain/auth"
	"juvenis/app/internal/domain/news"
	"juvenis/app/internal/domain/storage"
	"juvenis/app/internal/domain/volume"
)

const apiPrefix = "/api/v1"

// VolumeDTO is the JSON form of a volume.
type VolumeDTO struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Number    string    `json:"number"`
	Year      string    `json:"year"`
	CoverURL  string    `json:"cover_url,omitempty"`
	PDFURL    string    `json:"pdf_url,omitempty"`
	Content   string    `json:"content,omitempty"`
	Order     int       `json:"order"`
	Published bool      `json:"published"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewsDTO is the JSON form of a news item.
type NewsDTO struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Category      string    `json:"category"`
	Extract       string    `json:"extract,omitempty"`
	Content       string    `json:"content,omitempty"`
	ImageURL      string    `json:"image_url,omitempty"`
	PublishedDate string    `json:"published_date,omitempty"`
	Status        string    `json:"status"`
	Order         int       `json:"order"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// UserDTO is the public part of an account.
type UserDTO struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// SessionDTO describes an active session.
type SessionDTO struct {
	ID        string    `json:"id"`
	ExpiresAt time.Time `json:"expires_at"`
	User      UserDTO   `json:"user"`
}

type signInInput struct {
	Body struct {
		Email    string `json:"email" format:"email" maxLength:"320"`
		Password string `json:"password" minLength:"1" maxLength:"512"`
	}
}

type signInOutput struct {
	Body struct {
		Token     string    `json:"token"`
		ExpiresAt time.Time `json:"expires_at"`
		User      UserDTO   `json:"user"`
	}
}

type sessionOutput struct {
	Body struct {
		Session *SessionDTO `json:"session"`
	}
}

type userOutput struct {
	Body struct {
		User *UserDTO `json:"user"`
	}
}

type adminOutput struct {
	Body struct {
		IsAdmin bool `json:"is_admin"`
	}
}

type volumeListInput struct {
	Published bool `query:"published" default:"true" doc:"Only published volumes; false requires an admin"`
}

type volumeSearchInput struct {
	Query     string `query:"q" maxLength:"200"`
	Year      string `query:"year" maxLength:"8"`
	Published bool   `query:"published" default:"true"`
}

type volumeListOutput struct {
	Body []VolumeDTO
}

type volumeOutput struct {
	Body VolumeDTO
}

type volumeCreateInput struct {
	Body struct {
		Title     string `json:"title" minLength:"1"`
		Number    string `json:"number" minLength:"1"`
		Year      string `json:"year" minLength:"1"`
		CoverURL  string `json:"cover_url,omitempty"`
		PDFURL    string `json:"pdf_url,omitempty"`
		Content   string `json:"content,omitempty"`
		Published bool   `json:"published,omitempty"`
	}
}

type volumePatchInput struct {
	ID   string `path:"id" maxLength:"64"`
	Body struct {
		Title     *string `json:"title,omitempty"`
		Number    *string `json:"number,omitempty"`
		Year      *string `json:"year,omitempty"`
		CoverURL  *string `json:"cover_url,omitempty"`
		PDFURL    *string `json:"pdf_url,omitempty"`
		Content   *string `json:"content,omitempty"`
		Published *bool   `json:"published,omitempty"`
	}
}

type newsListAPIInput struct {
	Published bool   `query:"published" default:"true" doc:"Only published news; false requires an admin"`
	Category  string `query:"category" maxLength:"64"`
}

type newsListOutput struct {
	Body []NewsDTO
}

type newsOutput struct {
	Body NewsDTO
}

type newsCreateInput struct {
	Body struct {
		Title         string `json:"title" minLength:"1"`
		Category      string `json:"category" enum:"Lanzamiento,Evento,Convocatoria"`
		Extract       string `json:"extract,omitempty"`
		Content       string `json:"content,omitempty"`
		ImageURL      string `json:"image_url,omitempty"`
		PublishedDate string `json:"published_date,omitempty" doc:"YYYY-MM-DD"`
		Status        string `json:"status,omitempty" enum:"draft,published"`
	}
}

type newsPatchInput struct {
	ID   string `path:"id" maxLength:"64"`
	Body struct {
		Title         *string `json:"title,omitempty"`
		Category      *string `json:"category,omitempty"`
		Extract       *string `json:"extract,omitempty"`
		Content       *string `json:"content,omitempty"`
		ImageURL      *string `json:"image_url,omitempty"`
		PublishedDate *string `json:"published_date,omitempty" doc:"YYYY-MM-DD; an empty string clears the date"`
		Status        *string `json:"status,omitempty"`
	}
}

type uploadInput struct {
	Bucket  string `path:"bucket" enum:"covers,pdfs,news"`
	RawBody multipart.Form
}

type uploadOutput struct {
	Body struct {
		Bucket string `json:"bucket"`
		Path   string `json:"path"`
		URL    string `json:"url"`
	}
}

type objectInput struct {
	Bucket string `path:"bucket" enum:"covers,pdfs,news"`
	Path   string `path:"path" maxLength:"200"`
}

func apiOperation(summary, tag string, status int) func(op *huma.Operation) {
	return func(op *huma.Operation) {
		op.Summary = summary
		op.Tags = []string{tag}
		if status != 0 {
			op.DefaultStatus = status
		}
	}
}

func (s *Server) registerAPIRoutes() {
	huma.Post(s.api, apiPrefix+"/auth/sign-in", s.apiSignIn, apiOperation("Sign in", "auth", 0))
	huma.Post(s.api, apiPrefix+"/auth/sign-out", s.apiSignOut, apiOperation("Sign out", "auth", stdhttp.StatusNoContent))
	huma.Get(s.api, apiPrefix+"/auth/session", s.apiSession, apiOperation("Current session", "auth", 0))
	huma.Get(s.api, apiPrefix+"/auth/user", s.apiUser, apiOperation("Current user", "auth", 0))
	huma.Get(s.api, apiPrefix+"/auth/admin", s.apiIsAdmin, apiOperation("Whether the caller is an admin", "auth", 0))

	huma.Get(s.api, apiPrefix+"/volumes", s.apiListVolumes, apiOperation("List volumes", "volumes", 0))
	huma.Get(s.api, apiPrefix+"/volumes/search", s.apiSearchVolumes, apiOperation("Search volumes", "volumes", 0))
	huma.Get(s.api, apiPrefix+"/volumes/{id}", s.apiGetVolume, apiOperation("Get volume", "volumes", 0))
	huma.Post(s.api, apiPrefix+"/volumes", s.apiCreateVolume, apiOperation("Create volume", "volumes", stdhttp.StatusCreated))
	huma.Patch(s.api, apiPrefix+"/volumes/{id}", s.apiUpdateVolume, apiOperation("Update volume", "volumes", 0))
	huma.Delete(s.api, apiPrefix+"/volumes/{id}", s.apiDeleteVolume, apiOperation("Delete volume", "volumes", stdhttp.StatusNoContent))

	huma.Get(s.api, apiPrefix+"/news", s.apiListNews, apiOperation("List news", "news", 0))
	huma.Get(s.api, apiPrefix+"/news/{id}", s.apiGetNews, apiOperation("Get news item", "news", 0))
	huma.Post(s.api, apiPrefix+"/news", s.apiCreateNews, apiOperation("Create news item", "news", stdhttp.StatusCreated))
	huma.Patch(s.api, apiPrefix+"/news/{id}", s.apiUpdateNews, apiOperation("Update news item", "news", 0))
	huma.Delete(s.api, apiPrefix+"/news/{id}", s.apiDeleteNews, apiOperation("Delete news item", "news", stdhttp.StatusNoContent))
	huma.Post(s.api, apiPrefix+"/news/{id}/extract", s.apiGenerateExtract, apiOperation("Generate news extract", "news", 0))

	huma.Post(s.api, apiPrefix+"/storage/{bucket}", s.apiUpload, func(op *huma.Operation) {
		apiOperation("Upload file", "storage", stdhttp.StatusCreated)(op)
		op.MaxBodyBytes = maxFormBytes
	})
	huma.Delete(s.api, apiPrefix+"/storage/{bucket}/{path}", s.apiDeleteObject, apiOperation("Delete file", "storage", stdhttp.StatusNoContent))
}

// apiRequireAdmin fails with 401 for anonymous callers and 403 for signed-in non-admins.
func (s *Server) apiRequireAdmin(ctx context.Context) error {
	token := credentialsFromContext(ctx).Token

	user, err := s.auth.GetUser(ctx, token)
	if err != nil {
		return s.failAPI(ctx, err, "loading api caller", nil)
	}
	if user == nil {
		return s.failAPI(ctx, errUnauthorized, "anonymous api mutation", nil)
	}

	ok, err := s.auth.CheckAdmin(ctx, token)
	if err != nil {
		return s.failAPI(ctx, err, "checking api caller", logrus.Fields{"user_id": user.ID})
	}
	if !ok {
		return s.failAPI(ctx, errForbidden, "non-admin api mutation", logrus.Fields{"user_id": user.ID})
	}
	return nil
}

func (s *Server) callerIsAdmin(ctx context.Context) bool {
	return s.auth.IsAdmin(ctx, credentialsFromContext(ctx).Token)
}

func (s *Server) apiSignIn(ctx context.Context, input *signInInput) (*signInOutput, error) {
	session, err := s.auth.SignIn(ctx, input.Body.Email, input.Body.Password, credentialsFromContext(ctx).Client)
	s.metrics.ObserveSignIn(err)
	if err != nil {
		return nil, s.failAPI(ctx, err, "api sign-in", nil)
	}

	out := &signInOutput{}
	out.Body.Token = session.Token
	out.Body.ExpiresAt = session.ExpiresAt
	out.Body.User = userDTO(session.User)
	return out, nil
}

func (s *Server) apiSignOut(ctx context.Context, _ *struct{}) (*struct{}, error) {
	if err := s.auth.SignOut(ctx, credentialsFromContext(ctx).Token); err != nil {
		return nil, s.failAPI(ctx, err, "api sign-out", nil)
	}
	return &struct{}{}, nil
}

func (s *Server) apiSession(ctx context.Context, _ *struct{}) (*sessionOutput, error) {
	session, err := s.auth.GetSession(ctx, credentialsFromContext(ctx).Token)
	if err != nil {
		return nil, s.failAPI(ctx, err, "api session lookup", nil)
	}

	out := &sessionOutput{}
	if session != nil {
		out.Body.Session = &SessionDTO{ID: session.ID, ExpiresAt: session.ExpiresAt, User: userDTO(session.User)}
	}
	return out, nil
}

func (s *Server) apiUser(ctx context.Context, _ *struct{}) (*userOutput, error) {
	user, err := s.auth.GetUser(ctx, credentialsFromContext(ctx).Token)
	if err != nil {
		return nil, s.failAPI(ctx, err, "api user lookup", nil)
	}

	out := &userOutput{}
	if user != nil {
		dto := userDTO(user)
		out.Body.User = &dto
	}
	return out, nil
}

func (s *Server) apiIsAdmin(ctx context.Context, _ *struct{}) (*adminOutput, error) {
	out := &adminOutput{}
	out.Body.IsAdmin = s.callerIsAdmin(ctx)
	return out, nil
}

func (s *Server) apiListVolumes(ctx context.Context, input *volumeListInput) (*volumeListOutput, error) {
	if !input.Published {
		if err := s.apiRequireAdmin(ctx); err != nil {
			return nil, err
		}
	}

	volumes, err := s.volumes.List(ctx, volume.ListOptions{PublishedOnly: input.Published})
	if err != nil {
		return nil, s.failAPI(ctx, err, "api list volumes", nil)
	}
	return &volumeListOutput{Body: volumeDTOs(volumes)}, nil
}

func (s *Server) apiSearchVolumes(ctx context.Context, input *volumeSearchInput) (*volumeListOutput, error) {
	if !input.Published {
		if err := s.apiRequireAdmin(ctx); err != nil {
			return nil, err
		}
	}

	volumes, err := s.volumes.Search(ctx, volume.SearchOptions{
		Query:         input.Query,
		Year:          input.Year,
		PublishedOnly: input.Published,
	})
	if err != nil {
		return nil, s.failAPI(ctx, err, "api search volumes", logrus.Fields{"query": input.Query})
	}
	return &volumeListOutput{Body: volumeDTOs(volumes)}, nil
}

func (s *Server) apiGetVolume(ctx context.Context, input *idInput) (*volumeOutput, error) {
	v, err := s.volumes.GetByID(ctx, input.ID)
	if err != nil {
		return nil, s.failAPI(ctx, err, "api get volume", logrus.Fields{"volume_id": input.ID})
	}
	if !v.Published && !s.callerIsAdmin(ctx) {
		return nil, s.failAPI(ctx, volume.ErrNotFound, "api draft volume hidden", logrus.Fields{"volume_id": input.ID})
	}
	return &volumeOutput{Body: volumeDTO(*v)}, nil
}

func (s *Server) apiCreateVolume(ctx context.Context, input *volumeCreateInput) (*volumeOutput, error) {
	if err := s.apiRequireAdmin(ctx); err != nil {
		return nil, err
	}

	body := input.Body
	created, err := s.volumes.Create(ctx, volume.Input{
		Title:     body.Title,
		Number:    body.Number,
		Year:      body.Year,
		CoverURL:  body.CoverURL,
		PDFURL:    body.PDFURL,
		Content:   body.Content,
		Published: body.Published,
	})
	if err != nil {
		return nil, s.failAPI(ctx, err, "api create volume", nil)
	}
	return &volumeOutput{Body: volumeDTO(*created)}, nil
}

func (s *Server) apiUpdateVolume(ctx context.Context, input *volumePatchInput) (*volumeOutput, error) {
	if err := s.apiRequireAdmin(ctx); err != nil {
		return nil, err
	}

	body := input.Body
	updated, err := s.volumes.Update(ctx, input.ID, volume.Patch{
		Title:     body.Title,
		Number:    body.Number,
		Year:      body.Year,
		CoverURL:  body.CoverURL,
		PDFURL:    body.PDFURL,
		Content:   body.Content,
		Published: body.Published,
	})
	if err != nil {
		return nil, s.failAPI(ctx, err, "api update volume", logrus.Fields{"volume_id": input.ID})
	}
	return &volumeOutput{Body: volumeDTO(*updated)}, nil
}

func (s *Server) apiDeleteVolume(ctx context.Context, input *idInput) (*struct{}, error) {
	if err := s.apiRequireAdmin(ctx); err != nil {
		return nil, err
	}
	if err := s.volumes.Delete(ctx, input.ID); err != nil {
		return nil, s.failAPI(ctx, err, "api delete volume", logrus.Fields{"volume_id": input.ID})
	}
	return &struct{}{}, nil
}

func (s *Server) apiListNews(ctx context.Context, input *newsListAPIInput) (*newsListOutput, error) {
	if !input.Published {
		if err := s.apiRequireAdmin(ctx); err != nil {
			return nil, err
		}
	}

	opts := news.ListOptions{PublishedOnly: input.Published}
	if raw := strings.TrimSpace(input.Category); raw != "" {
		category, err := news.ParseCategory(raw)
		if err != nil {
			return nil, s.failAPI(ctx, err, "api news category", logrus.Fields{"category": raw})
		}
		opts.Category = category
	}

	items, err := s.news.List(ctx, opts)
	if err != nil {
		return nil, s.failAPI(ctx, err, "api list news", nil)
	}
	return &newsListOutput{Body: newsDTOs(items)}, nil
}

func (s *Server) apiGetNews(ctx context.Context, input *idInput) (*newsOutput, error) {
	item, err := s.news.GetByID(ctx, input.ID)
	if err != nil {
		return nil, s.failAPI(ctx, err, "api get news", logrus.Fields{"news_id": input.ID})
	}
	if !item.IsPublished() && !s.callerIsAdmin(ctx) {
		return nil, s.failAPI(ctx, news.ErrNotFound, "api draft news hidden", logrus.Fields{"news_id": input.ID})
	}
	return &newsOutput{Body: newsDTO(*item)}, nil
}

func (s *Server) apiCreateNews(ctx context.Context, input *newsCreateInput) (*newsOutput, error) {
	if err := s.apiRequireAdmin(ctx); err != nil {
		return nil, err
	}

	body := input.Body
	date, err := parseAPIDate(body.PublishedDate)
	if err != nil {
		return nil, s.failAPI(ctx, err, "api news date", nil)
	}

	created, err := s.news.Create(ctx, news.Input{
		Title:         body.Title,
		Category:      news.Category(body.Category),
		Extract:       body.Extract,
		Content:       body.Content,
		ImageURL:      body.ImageURL,
		PublishedDate: date,
		Status:        news.Status(body.Status),
	})
	if err != nil {
		return nil, s.failAPI(ctx, err, "api create news", nil)
	}
	return &newsOutput{Body: newsDTO(*created)}, nil
}

func (s *Server) apiUpdateNews(ctx context.Context, input *newsPatchInput) (*newsOutput, error) {
	if err := s.apiRequireAdmin(ctx); err != nil {
		return nil, err
	}

	body := input.Body
	patch := news.Patch{
		Title:    body.Title,
		Extract:  body.Extract,
		Content:  body.Content,
		ImageURL: body.ImageURL,
	}
	if body.Category != nil {
		category := news.Category(*body.Category)
		patch.Category = &category
	}
	if body.Status != nil {
		status := news.Status(strings.ToLower(strings.TrimSpace(*body.Status)))
		patch.Status = &status
	}
	if body.PublishedDate != nil {
		date, err := parseAPIDate(*body.PublishedDate)
		if err != nil {
			return nil, s.failAPI(ctx, err, "api news date", logrus.Fields{"news_id": input.ID})
		}
		patch.PublishedDate = date
		patch.ClearPublishedDate = date == nil
	}

	updated, err := s.news.Update(ctx, input.ID, patch)
	if err != nil {
		return nil, s.failAPI(ctx, err, "api update news", logrus.Fields{"news_id": input.ID})
	}
	return &newsOutput{Body: newsDTO(*updated)}, nil
}

func (s *Server) apiDeleteNews(ctx context.Context, input *idInput) (*struct{}, error) {
	if err := s.apiRequireAdmin(ctx); err != nil {
		return nil, err
	}
	if err := s.news.Delete(ctx, input.ID); err != nil {
		return nil, s.failAPI(ctx, err, "api delete news", logrus.Fields{"news_id": input.ID})
	}
	return &struct{}{}, nil
}

func (s *Server) apiGenerateExtract(ctx context.Context, input *idInput) (*newsOutput, error) {
	if err := s.apiRequireAdmin(ctx); err != nil {
		return nil, err
	}

	item, err := s.news.GenerateExtract(ctx, input.ID)
	if err != nil {
		return nil, s.failAPI(ctx, err, "api generate extract", logrus.Fields{"news_id": input.ID})
	}
	return &newsOutput{Body: newsDTO(*item)}, nil
}

func (s *Server) apiUpload(ctx context.Context, input *uploadInput) (*uploadOutput, error) {
	if err := s.apiRequireAdmin(ctx); err != nil {
		return nil, err
	}

	form := &input.RawBody
	header := formFile(form, "file")
	if header == nil {
		return nil, s.failAPI(ctx, eris.Wrap(storage.ErrRejected, "file is required"), "api upload without file", nil)
	}

	name := formValue(form, "path")
	if name == "" {
		name = header.Filename
	}

	bucket := storage.Bucket(input.Bucket)
	object, err := s.uploadFormFile(ctx, bucket, header, name)
	if err != nil {
		return nil, s.failAPI(ctx, err, "api upload", logrus.Fields{"bucket": input.Bucket, "path": name})
	}

	out := &uploadOutput{}
	out.Body.Bucket = string(object.Bucket)
	out.Body.Path = object.Name
	out.Body.URL = object.URL
	return out, nil
}

func (s *Server) apiDeleteObject(ctx context.Context, input *objectInput) (*struct{}, error) {
	if err := s.apiRequireAdmin(ctx); err != nil {
		return nil, err
	}
	if err := s.storage.Delete(ctx, storage.Bucket(input.Bucket), input.Path); err != nil {
		return nil, s.failAPI(ctx, err, "api delete object", logrus.Fields{"bucket": input.Bucket, "path": input.Path})
	}
	return &struct{}{}, nil
}

func parseAPIDate(raw string) (*time.Time, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, nil
	}
	parsed, err := time.Parse(dateLayout, trimmed)
	if err != nil {
		return nil, eris.Wrapf(news.ErrValidation, "published date %q must use YYYY-MM-DD", trimmed)
	}
	return &parsed, nil
}

func userDTO(user *auth.User) UserDTO {
	if user == nil {
		return UserDTO{}
	}
	return UserDTO{ID: user.ID, Email: user.Email}
}

func volumeDTO(v volume.Volume) VolumeDTO {
	return VolumeDTO{
		ID:        v.ID,
		Title:     v.Title,
		Number:    v.Number,
		Year:      v.Year,
		CoverURL:  v.CoverURL,
		PDFURL:    v.PDFURL,
		Content:   v.Content,
		Order:     v.Order,
		Published: v.Published,
		CreatedAt: v.CreatedAt,
		UpdatedAt: v.UpdatedAt,
	}
}

func volumeDTOs(volumes []volume.Volume) []VolumeDTO {
	out := make([]VolumeDTO, 0, len(volumes))
	for _, v := range volumes {
		out = append(out, volumeDTO(v))
	}
	return out
}

func newsDTO(item news.Item) NewsDTO {
	dto := NewsDTO{
		ID:        item.ID,
		Title:     item.Title,
		Category:  string(item.Category),
		Extract:   item.Extract,
		Content:   item.Content,
		ImageURL:  item.ImageURL,
		Status:    string(item.Status),
		Order:     item.Order,
		CreatedAt: item.CreatedAt,
		UpdatedAt: item.UpdatedAt,
	}
	if item.PublishedDate != nil {
		dto.PublishedDate = item.PublishedDate.Format(dateLayout)
	}
	return dto
}

func newsDTOs(items []news.Item) []NewsDTO {
	out := make([]NewsDTO, 0, len(items))
	for _, item := range items {
		out = append(out, newsDTO(item))
	}
	return out
}
