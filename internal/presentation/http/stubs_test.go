package http

import (
	"context"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"

	"juvenis/app/internal/domain/auth"
	"juvenis/app/internal/domain/news"
	"juvenis/app/internal/domain/storage"
	"juvenis/app/internal/domain/volume"
)

type stubVolumeService struct {
	mu      sync.Mutex
	volumes []volume.Volume
	err     error
	nextID  int
	deleted []string
}

func (s *stubVolumeService) List(_ context.Context, opts volume.ListOptions) ([]volume.Volume, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}

	out := make([]volume.Volume, 0, len(s.volumes))
	for _, v := range s.volumes {
		if opts.PublishedOnly && !v.Published {
			continue
		}
		out = append(out, v)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Year > out[j].Year })
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (s *stubVolumeService) Search(ctx context.Context, opts volume.SearchOptions) ([]volume.Volume, error) {
	all, err := s.List(ctx, volume.ListOptions{PublishedOnly: opts.PublishedOnly})
	if err != nil {
		return nil, err
	}

	query := strings.ToLower(opts.Query)
	out := make([]volume.Volume, 0, len(all))
	for _, v := range all {
		if opts.Year != "" && v.Year != opts.Year {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(v.Title), query) && !strings.Contains(strings.ToLower(v.Number), query) {
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *stubVolumeService) GetByID(_ context.Context, id string) (*volume.Volume, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	for i := range s.volumes {
		if s.volumes[i].ID == id {
			v := s.volumes[i]
			return &v, nil
		}
	}
	return nil, eris.Wrapf(volume.ErrNotFound, "fetching volume: %s", id)
}

func (s *stubVolumeService) Create(_ context.Context, input volume.Input) (*volume.Volume, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	if strings.TrimSpace(input.Title) == "" {
		return nil, eris.Wrap(volume.ErrValidation, "title is required")
	}

	s.nextID++
	v := volume.Volume{
		ID:        "vol-" + strconv.Itoa(s.nextID),
		Title:     input.Title,
		Number:    input.Number,
		Year:      input.Year,
		CoverURL:  input.CoverURL,
		PDFURL:    input.PDFURL,
		Content:   input.Content,
		Published: input.Published,
		CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	s.volumes = append(s.volumes, v)
	return &v, nil
}

func (s *stubVolumeService) Update(_ context.Context, id string, patch volume.Patch) (*volume.Volume, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return nil, eris.Wrap(volume.ErrValidation, "title cannot be blank")
	}

	for i := range s.volumes {
		v := &s.volumes[i]
		if v.ID != id {
			continue
		}
		assign(&v.Title, patch.Title)
		assign(&v.Number, patch.Number)
		assign(&v.Year, patch.Year)
		assign(&v.CoverURL, patch.CoverURL)
		assign(&v.PDFURL, patch.PDFURL)
		assign(&v.Content, patch.Content)
		if patch.Published != nil {
			v.Published = *patch.Published
		}
		out := *v
		return &out, nil
	}
	return nil, eris.Wrapf(volume.ErrNotFound, "updating volume: %s", id)
}

func (s *stubVolumeService) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.deleted = append(s.deleted, id)
	kept := s.volumes[:0]
	for _, v := range s.volumes {
		if v.ID != id {
			kept = append(kept, v)
		}
	}
	s.volumes = kept
	return nil
}

func (s *stubVolumeService) Count(ctx context.Context, publishedOnly bool) (int64, error) {
	list, err := s.List(ctx, volume.ListOptions{PublishedOnly: publishedOnly})
	return int64(len(list)), err
}

func (s *stubVolumeService) find(id string) *volume.Volume {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.volumes {
		if s.volumes[i].ID == id {
			v := s.volumes[i]
			return &v
		}
	}
	return nil
}

type stubNewsService struct {
	mu        sync.Mutex
	items     []news.Item
	err       error
	extract   string
	extractOK bool
	nextID    int
}

func (s *stubNewsService) List(_ context.Context, opts news.ListOptions) ([]news.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}

	out := make([]news.Item, 0, len(s.items))
	for _, item := range s.items {
		if opts.PublishedOnly && !item.IsPublished() {
			continue
		}
		if opts.Category != "" && item.Category != opts.Category {
			continue
		}
		out = append(out, item)
	}
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (s *stubNewsService) ListByCategory(ctx context.Context, category news.Category) ([]news.Item, error) {
	return s.List(ctx, news.ListOptions{PublishedOnly: true, Category: category})
}

func (s *stubNewsService) GetByID(_ context.Context, id string) (*news.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	for i := range s.items {
		if s.items[i].ID == id {
			item := s.items[i]
			return &item, nil
		}
	}
	return nil, eris.Wrapf(news.ErrNotFound, "fetching news item: %s", id)
}

func (s *stubNewsService) Create(_ context.Context, input news.Input) (*news.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	if strings.TrimSpace(input.Title) == "" {
		return nil, eris.Wrap(news.ErrValidation, "title is required")
	}
	category, err := news.ParseCategory(string(input.Category))
	if err != nil {
		return nil, err
	}

	s.nextID++
	item := news.Item{
		ID:            "news-" + strconv.Itoa(s.nextID),
		Title:         input.Title,
		Category:      category,
		Extract:       input.Extract,
		Content:       input.Content,
		ImageURL:      input.ImageURL,
		PublishedDate: input.PublishedDate,
		Status:        input.Status,
	}
	if item.Status == "" {
		item.Status = news.StatusDraft
	}
	s.items = append(s.items, item)
	return &item, nil
}

func (s *stubNewsService) Update(_ context.Context, id string, patch news.Patch) (*news.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}

	for i := range s.items {
		item := &s.items[i]
		if item.ID != id {
			continue
		}
		assign(&item.Title, patch.Title)
		assign(&item.Extract, patch.Extract)
		assign(&item.Content, patch.Content)
		assign(&item.ImageURL, patch.ImageURL)
		if patch.Category != nil {
			item.Category = *patch.Category
		}
		if patch.Status != nil {
			item.Status = *patch.Status
		}
		if patch.PublishedDate != nil {
			item.PublishedDate = patch.PublishedDate
		}
		if patch.ClearPublishedDate {
			item.PublishedDate = nil
		}
		out := *item
		return &out, nil
	}
	return nil, eris.Wrapf(news.ErrNotFound, "updating news item: %s", id)
}

func (s *stubNewsService) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.items[:0]
	for _, item := range s.items {
		if item.ID != id {
			kept = append(kept, item)
		}
	}
	s.items = kept
	return nil
}

func (s *stubNewsService) Count(ctx context.Context, publishedOnly bool) (int64, error) {
	list, err := s.List(ctx, news.ListOptions{PublishedOnly: publishedOnly})
	return int64(len(list)), err
}

func (s *stubNewsService) GenerateExtract(ctx context.Context, id string) (*news.Item, error) {
	if !s.extractOK {
		return nil, news.ErrSummarizerUnavailable
	}
	extract := s.extract
	return s.Update(ctx, id, news.Patch{Extract: &extract})
}

type stubAuthService struct {
	mu        sync.Mutex
	passwords map[string]string
	users     map[string]*auth.User
	tokens    map[string]*auth.User
	admins    map[string]bool
	err       error
	signedOut []string
}

func newStubAuthService() *stubAuthService {
	svc := &stubAuthService{
		passwords: make(map[string]string),
		users:     make(map[string]*auth.User),
		tokens:    make(map[string]*auth.User),
		admins:    make(map[string]bool),
	}
	svc.addUser("admin-1", "editor@example.org", "correct-horse", "admin-token", true)
	svc.addUser("user-1", "reader@example.org", "reader-pass", "reader-token", false)
	return svc
}

func (s *stubAuthService) addUser(id, email, password, token string, admin bool) {
	user := &auth.User{ID: id, Email: email}
	s.users[email] = user
	s.passwords[email] = password
	s.tokens[token] = user
	s.admins[id] = admin
}

func (s *stubAuthService) SignIn(_ context.Context, email, password string, _ auth.Client) (*auth.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}

	user, ok := s.users[auth.NormalizeEmail(email)]
	if !ok || s.passwords[user.Email] != password {
		return nil, auth.ErrInvalidCredentials
	}

	token := "session-" + user.ID
	s.tokens[token] = user
	return &auth.Session{ID: token, Token: token, UserID: user.ID, User: user, ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (s *stubAuthService) SignOut(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.signedOut = append(s.signedOut, token)
	delete(s.tokens, token)
	return nil
}

func (s *stubAuthService) GetSession(_ context.Context, token string) (*auth.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	user, ok := s.tokens[token]
	if !ok {
		return nil, nil
	}
	return &auth.Session{ID: "s-" + token, Token: token, UserID: user.ID, User: user, ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (s *stubAuthService) GetUser(ctx context.Context, token string) (*auth.User, error) {
	session, err := s.GetSession(ctx, token)
	if err != nil || session == nil {
		return nil, err
	}
	return session.User, nil
}

func (s *stubAuthService) IsAdmin(ctx context.Context, token string) bool {
	ok, err := s.CheckAdmin(ctx, token)
	return err == nil && ok
}

func (s *stubAuthService) CheckAdmin(ctx context.Context, token string) (bool, error) {
	user, err := s.GetUser(ctx, token)
	if err != nil || user == nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.admins[user.ID], nil
}

func (s *stubAuthService) EnsureAdmin(context.Context, string, string) (*auth.User, error) {
	return nil, eris.New("not supported by stub")
}

type stubStorageService struct {
	mu      sync.Mutex
	objects map[string][]byte
	err     error
}

func newStubStorageService() *stubStorageService {
	return &stubStorageService{objects: make(map[string][]byte)}
}

func (s *stubStorageService) Upload(_ context.Context, bucket storage.Bucket, name string, file io.Reader) (storage.Object, error) {
	if s.err != nil {
		return storage.Object{}, s.err
	}
	data, err := io.ReadAll(file)
	if err != nil {
		return storage.Object{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[string(bucket)+"/"+name] = data
	return storage.Object{Bucket: bucket, Name: name, URL: s.PublicURL(bucket, name)}, nil
}

func (s *stubStorageService) Delete(_ context.Context, bucket storage.Bucket, name string) error {
	if _, err := storage.ParseBucket(string(bucket)); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, string(bucket)+"/"+name)
	return nil
}

func (s *stubStorageService) PublicURL(bucket storage.Bucket, name string) string {
	return "http://files.test/storage/" + string(bucket) + "/" + name
}

func (s *stubStorageService) keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.objects))
	for key := range s.objects {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func assign(dst *string, value *string) {
	if value != nil {
		*dst = *value
	}
}

var (
	_ volume.Service  = (*stubVolumeService)(nil)
	_ news.Service    = (*stubNewsService)(nil)
	_ auth.Service    = (*stubAuthService)(nil)
	_ storage.Service = (*stubStorageService)(nil)
)
