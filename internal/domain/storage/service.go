package storage

import (
	"bytes"
	"context"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
)

// Service uploads and removes public files.
type Service interface {
	Upload(ctx context.Context, bucket Bucket, name string, file io.Reader) (Object, error)
	Delete(ctx context.Context, bucket Bucket, name string) error
	PublicURL(bucket Bucket, name string) string
}

// UploadObserver is notified of every upload attempt.
type UploadObserver interface {
	ObserveUpload(bucket string, err error)
}

// Options configures the storage service.
type Options struct {
	Store    ObjectStore
	BaseURL  string
	Observer UploadObserver
	Logger   *logrus.Logger
	Hub      *sentry.Hub
}

type service struct {
	store     ObjectStore
	baseURL   string
	observer  UploadObserver
	logger    *logrus.Logger
	sentryHub *sentry.Hub
}

var _ Service = (*service)(nil)

// NewService wires the storage service with its object store.
func NewService(opts Options) (Service, error) {
	if opts.Store == nil {
		return nil, eris.New("object store is required")
	}

	return &service{
		store:     opts.Store,
		baseURL:   strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"),
		observer:  opts.Observer,
		logger:    opts.Logger,
		sentryHub: opts.Hub,
	}, nil
}

// Upload stores file under bucket/name, replacing any existing object. The extension of name is
// replaced by the one matching the sniffed content type, so the returned Object carries the final name.
func (s *service) Upload(ctx context.Context, bucket Bucket, name string, file io.Reader) (Object, error) {
	object, err := s.upload(ctx, bucket, name, file)
	if s.observer != nil {
		s.observer.ObserveUpload(string(bucket), err)
	}
	return object, err
}

func (s *service) upload(ctx context.Context, bucket Bucket, name string, file io.Reader) (Object, error) {
	bucket, err := ParseBucket(string(bucket))
	if err != nil {
		return Object{}, err
	}

	trimmedName := strings.TrimSpace(name)
	if !ValidName(trimmedName) {
		return Object{}, eris.Wrapf(ErrRejected, "invalid object name %q", name)
	}
	if file == nil {
		return Object{}, eris.Wrap(ErrRejected, "file is required")
	}

	policy := PolicyFor(bucket)
	data, err := io.ReadAll(io.LimitReader(file, policy.MaxBytes+1))
	if err != nil {
		s.recordError(logrus.Fields{"bucket": bucket, "name": trimmedName}, err, "reading upload")
		return Object{}, eris.Wrap(err, "reading upload")
	}

	if len(data) == 0 {
		return Object{}, eris.Wrap(ErrRejected, "file is empty")
	}
	if int64(len(data)) > policy.MaxBytes {
		return Object{}, eris.Wrapf(ErrRejected, "file exceeds %d MiB", policy.MaxBytes>>20)
	}

	detected := mimetype.Detect(data)
	if !mimetype.EqualsAny(detected.String(), policy.ContentTypes...) {
		return Object{}, eris.Wrapf(ErrRejected, "content type %s is not accepted", detected.String())
	}

	storedName := withExtension(trimmedName, detected.Extension())
	if !ValidName(storedName) {
		return Object{}, eris.Wrapf(ErrRejected, "invalid object name %q", storedName)
	}

	if err := s.store.Put(ctx, bucket, storedName, bytes.NewReader(data)); err != nil {
		s.recordError(logrus.Fields{"bucket": bucket, "name": storedName}, err, "storing upload")
		return Object{}, eris.Wrapf(err, "storing %s/%s", bucket, storedName)
	}

	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{
			"bucket":       bucket,
			"name":         storedName,
			"size":         len(data),
			"content_type": detected.String(),
		}).Info("file uploaded")
	}

	return Object{Bucket: bucket, Name: storedName, URL: s.PublicURL(bucket, storedName)}, nil
}

// withExtension swaps the extension of name for ext, which mimetype reports with its leading dot.
func withExtension(name, ext string) string {
	if ext == "" {
		return name
	}
	return strings.TrimSuffix(name, path.Ext(name)) + ext
}

// Delete removes bucket/name. A missing object is not an error.
func (s *service) Delete(ctx context.Context, bucket Bucket, name string) error {
	bucket, err := ParseBucket(string(bucket))
	if err != nil {
		return err
	}

	trimmedName := strings.TrimSpace(name)
	if !ValidName(trimmedName) {
		return eris.Wrapf(ErrRejected, "invalid object name %q", name)
	}

	if err := s.store.Remove(ctx, bucket, trimmedName); err != nil {
		s.recordError(logrus.Fields{"bucket": bucket, "name": trimmedName}, err, "removing object")
		return eris.Wrapf(err, "removing %s/%s", bucket, trimmedName)
	}

	return nil
}

func (s *service) PublicURL(bucket Bucket, name string) string {
	return s.baseURL + "/storage/" + url.PathEscape(string(bucket)) + "/" + url.PathEscape(name)
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
