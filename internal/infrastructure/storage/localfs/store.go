package localfs

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	domainstorage "juvenis/app/internal/domain/storage"
)

const cacheControl = "public, max-age=3600"

// Store keeps bucket objects as plain files under <root>/<bucket>/<name>.
type Store struct {
	root   string
	logger *logrus.Logger
}

var _ domainstorage.ObjectStore = (*Store)(nil)

// New prepares the root and one directory per bucket.
func New(root string, logger *logrus.Logger) (*Store, error) {
	trimmed := strings.TrimSpace(root)
	if trimmed == "" {
		return nil, eris.New("storage root is required")
	}

	abs, err := filepath.Abs(trimmed)
	if err != nil {
		return nil, eris.Wrapf(err, "resolving storage root %s", trimmed)
	}

	for _, bucket := range domainstorage.Buckets() {
		if err := os.MkdirAll(filepath.Join(abs, string(bucket)), 0o755); err != nil {
			return nil, eris.Wrapf(err, "creating bucket directory %s", bucket)
		}
	}

	return &Store{root: abs, logger: logger}, nil
}

// Put writes body to a temporary file and renames it over the target.
func (s *Store) Put(ctx context.Context, bucket domainstorage.Bucket, name string, body io.Reader) error {
	if err := ctx.Err(); err != nil {
		return eris.Wrap(err, "upload cancelled")
	}

	target, err := s.path(bucket, name)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".upload-*")
	if err != nil {
		return eris.Wrap(err, "creating temporary file")
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	if _, err := io.Copy(tmp, body); err != nil {
		_ = tmp.Close()
		return eris.Wrap(err, "writing object")
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrap(err, "closing object")
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return eris.Wrap(err, "setting object permissions")
	}
	if err := os.Rename(tmpName, target); err != nil {
		return eris.Wrap(err, "publishing object")
	}

	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"bucket": bucket, "name": name}).Debug("object written")
	}
	return nil
}

// Remove deletes an object; a missing file is not an error.
func (s *Store) Remove(ctx context.Context, bucket domainstorage.Bucket, name string) error {
	if err := ctx.Err(); err != nil {
		return eris.Wrap(err, "removal cancelled")
	}

	target, err := s.path(bucket, name)
	if err != nil {
		return err
	}

	if err := os.Remove(target); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return eris.Wrap(err, "removing object")
	}
	return nil
}

// Check reports whether the root directory is reachable.
func (s *Store) Check() error {
	info, err := os.Stat(s.root)
	if err != nil {
		return eris.Wrap(err, "checking storage root")
	}
	if !info.IsDir() {
		return eris.Errorf("storage root %s is not a directory", s.root)
	}
	return nil
}

// Handler serves objects below a "/storage/" prefix. Directory listings and dot files are hidden.
func (s *Store) Handler() http.Handler {
	files := http.FileServer(http.Dir(s.root))

	return http.StripPrefix("/storage", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/"), "/")
		if len(parts) != 2 {
			http.NotFound(w, r)
			return
		}

		bucket, err := domainstorage.ParseBucket(parts[0])
		if err != nil || string(bucket) != parts[0] || !domainstorage.ValidName(parts[1]) {
			http.NotFound(w, r)
			return
		}

		w.Header().Set("Cache-Control", cacheControl)
		w.Header().Set("X-Content-Type-Options", "nosniff")
		files.ServeHTTP(w, r)
	}))
}

func (s *Store) path(bucket domainstorage.Bucket, name string) (string, error) {
	if _, err := domainstorage.ParseBucket(string(bucket)); err != nil {
		return "", err
	}
	if !domainstorage.ValidName(name) {
		return "", eris.Wrapf(domainstorage.ErrRejected, "invalid object name %q", name)
	}
	return filepath.Join(s.root, string(bucket), name), nil
}
