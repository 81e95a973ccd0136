package news

import (
	"context"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	domainllm "juvenis/app/internal/domain/llm"
)

// Service exposes news items to the public pages, the admin panel and the API.
type Service interface {
	List(ctx context.Context, opts ListOptions) ([]Item, error)
	ListByCategory(ctx context.Context, category Category) ([]Item, error)
	GetByID(ctx context.Context, id string) (*Item, error)
	Create(ctx context.Context, input Input) (*Item, error)
	Update(ctx context.Context, id string, patch Patch) (*Item, error)
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context, publishedOnly bool) (int64, error)
	GenerateExtract(ctx context.Context, id string) (*Item, error)
}

type service struct {
	repo       Repository
	summarizer domainllm.Summarizer
	logger     *logrus.Logger
	sentryHub  *sentry.Hub
	now        func() time.Time
	newID      func() string
}

var _ Service = (*service)(nil)

// NewService wires the news service. The summarizer is optional.
func NewService(repo Repository, summarizer domainllm.Summarizer, logger *logrus.Logger, hub *sentry.Hub) (Service, error) {
	if repo == nil {
		return nil, eris.New("news repository is required")
	}

	return &service{
		repo:       repo,
		summarizer: summarizer,
		logger:     logger,
		sentryHub:  hub,
		now:        func() time.Time { return time.Now().UTC() },
		newID:      uuid.NewString,
	}, nil
}

func (s *service) List(ctx context.Context, opts ListOptions) ([]Item, error) {
	if opts.Category != "" {
		category, err := ParseCategory(string(opts.Category))
		if err != nil {
			return nil, err
		}
		opts.Category = category
	}

	items, err := s.repo.List(ctx, opts)
	if err != nil {
		s.recordError(logrus.Fields{"published_only": opts.PublishedOnly, "category": opts.Category}, err, "listing news")
		return nil, eris.Wrap(err, "listing news")
	}
	return items, nil
}

func (s *service) ListByCategory(ctx context.Context, category Category) ([]Item, error) {
	if strings.TrimSpace(string(category)) == "" {
		return nil, eris.Wrap(ErrValidation, "category is required")
	}
	return s.List(ctx, ListOptions{PublishedOnly: true, Category: category})
}

func (s *service) GetByID(ctx context.Context, id string) (*Item, error) {
	trimmedID := strings.TrimSpace(id)
	if trimmedID == "" {
		return nil, eris.Wrap(ErrNotFound, "news id is required")
	}

	item, err := s.repo.GetByID(ctx, trimmedID)
	if err != nil {
		s.recordError(logrus.Fields{"news_id": trimmedID}, err, "fetching news item")
		return nil, eris.Wrapf(err, "fetching news item: %s", trimmedID)
	}

	if item == nil {
		return nil, eris.Wrapf(ErrNotFound, "fetching news item: %s", trimmedID)
	}

	return item, nil
}

func (s *service) Create(ctx context.Context, input Input) (*Item, error) {
	input = input.normalized()
	if err := input.validate(); err != nil {
		return nil, err
	}

	category, _ := ParseCategory(string(input.Category))
	status, _ := ParseStatus(string(input.Status))

	now := s.now()
	item := &Item{
		ID:            s.newID(),
		Title:         input.Title,
		Category:      category,
		Extract:       input.Extract,
		Content:       input.Content,
		ImageURL:      input.ImageURL,
		PublishedDate: input.PublishedDate,
		Status:        status,
		Order:         0,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.repo.Create(ctx, item); err != nil {
		s.recordError(logrus.Fields{"title": item.Title}, err, "creating news item")
		return nil, eris.Wrapf(err, "creating news item: %s", item.Title)
	}

	s.logInfo(logrus.Fields{"news_id": item.ID, "category": item.Category}, "news item created")
	return item, nil
}

func (s *service) Update(ctx context.Context, id string, patch Patch) (*Item, error) {
	trimmedID := strings.TrimSpace(id)
	if trimmedID == "" {
		return nil, eris.Wrap(ErrNotFound, "news id is required")
	}

	patch = patch.normalized()
	if err := patch.validate(); err != nil {
		return nil, err
	}

	if patch.Category != nil {
		category, _ := ParseCategory(string(*patch.Category))
		patch.Category = &category
	}
	if patch.Status != nil {
		status, _ := ParseStatus(string(*patch.Status))
		patch.Status = &status
	}

	if patch.IsEmpty() {
		return s.GetByID(ctx, trimmedID)
	}

	item, err := s.repo.Update(ctx, trimmedID, patch, s.now())
	if err != nil {
		s.recordError(logrus.Fields{"news_id": trimmedID}, err, "updating news item")
		return nil, eris.Wrapf(err, "updating news item: %s", trimmedID)
	}

	if item == nil {
		return nil, eris.Wrapf(ErrNotFound, "updating news item: %s", trimmedID)
	}

	s.logInfo(logrus.Fields{"news_id": trimmedID}, "news item updated")
	return item, nil
}

func (s *service) Delete(ctx context.Context, id string) error {
	trimmedID := strings.TrimSpace(id)
	if trimmedID == "" {
		return eris.Wrap(ErrNotFound, "news id is required")
	}

	if err := s.repo.Delete(ctx, trimmedID); err != nil {
		s.recordError(logrus.Fields{"news_id": trimmedID}, err, "deleting news item")
		return eris.Wrapf(err, "deleting news item: %s", trimmedID)
	}

	s.logInfo(logrus.Fields{"news_id": trimmedID}, "news item deleted")
	return nil
}

func (s *service) Count(ctx context.Context, publishedOnly bool) (int64, error) {
	count, err := s.repo.Count(ctx, publishedOnly)
	if err != nil {
		s.recordError(logrus.Fields{"published_only": publishedOnly}, err, "counting news")
		return 0, eris.Wrap(err, "counting news")
	}
	return count, nil
}

// GenerateExtract asks the summarizer for a short extract of the item's content and stores it.
func (s *service) GenerateExtract(ctx context.Context, id string) (*Item, error) {
	if s.summarizer == nil {
		return nil, eris.Wrap(ErrSummarizerUnavailable, "generating extract")
	}

	item, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(item.Content) == "" {
		return nil, eris.Wrap(ErrValidation, "content is required to generate an extract")
	}

	extract, err := s.summarizer.Summarize(ctx, item.Title, item.Content)
	if err != nil {
		s.recordError(logrus.Fields{"news_id": item.ID}, err, "summarizing news item")
		return nil, eris.Wrapf(err, "summarizing news item: %s", item.ID)
	}

	return s.Update(ctx, item.ID, Patch{Extract: &extract})
}

func (s *service) logInfo(fields logrus.Fields, message string) {
	if s.logger == nil {
		return
	}
	s.logger.WithFields(fields).Info(message)
}

func (s *service) recordError(fields logrus.Fields, err error, message string) {
	if err == nil {
		return
	}

	if s.logger != nil {
		entry := s.logger.WithField("error", err.Error())
		if len(fields) > 0 {
			entry = entry.WithFields(fields)
		}
		entry.Error(message)
	}

	if s.sentryHub != nil {
		s.sentryHub.CaptureException(err)
	}
}
