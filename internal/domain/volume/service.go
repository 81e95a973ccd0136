package volume

import (
	"context"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
)

// Service exposes the volume catalogue to the public pages, the admin panel and the API.
type Service interface {
	List(ctx context.Context, opts ListOptions) ([]Volume, error)
	Search(ctx context.Context, opts SearchOptions) ([]Volume, error)
	GetByID(ctx context.Context, id string) (*Volume, error)
	Create(ctx context.Context, input Input) (*Volume, error)
	Update(ctx context.Context, id string, patch Patch) (*Volume, error)
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context, publishedOnly bool) (int64, error)
}

type service struct {
	repo      Repository
	logger    *logrus.Logger
	sentryHub *sentry.Hub
	now       func() time.Time
	newID     func() string
}

var _ Service = (*service)(nil)

// NewService wires the volume service with its repository.
func NewService(repo Repository, logger *logrus.Logger, hub *sentry.Hub) (Service, error) {
	if repo == nil {
		return nil, eris.New("volume repository is required")
	}

	return &service{
		repo:      repo,
		logger:    logger,
		sentryHub: hub,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
	}, nil
}

func (s *service) List(ctx context.Context, opts ListOptions) ([]Volume, error) {
	volumes, err := s.repo.List(ctx, opts)
	if err != nil {
		s.recordError(logrus.Fields{"published_only": opts.PublishedOnly}, err, "listing volumes")
		return nil, eris.Wrap(err, "listing volumes")
	}
	return volumes, nil
}

func (s *service) Search(ctx context.Context, opts SearchOptions) ([]Volume, error) {
	opts.Query = strings.TrimSpace(opts.Query)
	opts.Year = strings.TrimSpace(opts.Year)

	if opts.Query == "" && opts.Year == "" {
		return s.List(ctx, ListOptions{PublishedOnly: opts.PublishedOnly})
	}

	volumes, err := s.repo.Search(ctx, opts)
	if err != nil {
		s.recordError(logrus.Fields{"query": opts.Query, "year": opts.Year}, err, "searching volumes")
		return nil, eris.Wrap(err, "searching volumes")
	}
	return volumes, nil
}

func (s *service) GetByID(ctx context.Context, id string) (*Volume, error) {
	trimmedID := strings.TrimSpace(id)
	if trimmedID == "" {
		return nil, eris.Wrap(ErrNotFound, "volume id is required")
	}

	volume, err := s.repo.GetByID(ctx, trimmedID)
	if err != nil {
		s.recordError(logrus.Fields{"volume_id": trimmedID}, err, "fetching volume")
		return nil, eris.Wrapf(err, "fetching volume: %s", trimmedID)
	}

	if volume == nil {
		return nil, eris.Wrapf(ErrNotFound, "fetching volume: %s", trimmedID)
	}

	return volume, nil
}

func (s *service) Create(ctx context.Context, input Input) (*Volume, error) {
	input = input.normalized()
	if err := input.validate(); err != nil {
		return nil, err
	}

	now := s.now()
	volume := &Volume{
		ID:        s.newID(),
		Title:     input.Title,
		Number:    input.Number,
		Year:      input.Year,
		CoverURL:  input.CoverURL,
		PDFURL:    input.PDFURL,
		Content:   input.Content,
		Order:     0,
		Published: input.Published,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Create(ctx, volume); err != nil {
		s.recordError(logrus.Fields{"number": volume.Number}, err, "creating volume")
		return nil, eris.Wrapf(err, "creating volume: %s", volume.Number)
	}

	s.logInfo(logrus.Fields{"volume_id": volume.ID, "number": volume.Number}, "volume created")
	return volume, nil
}

func (s *service) Update(ctx context.Context, id string, patch Patch) (*Volume, error) {
	trimmedID := strings.TrimSpace(id)
	if trimmedID == "" {
		return nil, eris.Wrap(ErrNotFound, "volume id is required")
	}

	patch = patch.normalized()
	if err := patch.validate(); err != nil {
		return nil, err
	}

	if patch.IsEmpty() {
		return s.GetByID(ctx, trimmedID)
	}

	volume, err := s.repo.Update(ctx, trimmedID, patch, s.now())
	if err != nil {
		s.recordError(logrus.Fields{"volume_id": trimmedID}, err, "updating volume")
		return nil, eris.Wrapf(err, "updating volume: %s", trimmedID)
	}

	if volume == nil {
		return nil, eris.Wrapf(ErrNotFound, "updating volume: %s", trimmedID)
	}

	s.logInfo(logrus.Fields{"volume_id": trimmedID}, "volume updated")
	return volume, nil
}

func (s *service) Delete(ctx context.Context, id string) error {
	trimmedID := strings.TrimSpace(id)
	if trimmedID == "" {
		return eris.Wrap(ErrNotFound, "volume id is required")
	}

	if err := s.repo.Delete(ctx, trimmedID); err != nil {
		s.recordError(logrus.Fields{"volume_id": trimmedID}, err, "deleting volume")
		return eris.Wrapf(err, "deleting volume: %s", trimmedID)
	}

	s.logInfo(logrus.Fields{"volume_id": trimmedID}, "volume deleted")
	return nil
}

func (s *service) Count(ctx context.Context, publishedOnly bool) (int64, error) {
	count, err := s.repo.Count(ctx, publishedOnly)
	if err != nil {
		s.recordError(logrus.Fields{"published_only": publishedOnly}, err, "counting volumes")
		return 0, eris.Wrap(err, "counting volumes")
	}
	return count, nil
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
