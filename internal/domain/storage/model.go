package storage

import (
	"context"
	"io"
	"strings"

	"github.com/rotisserie/eris"
)

// Bucket is a named container of public files.
type Bucket string

const (
	BucketCovers Bucket = "covers"
	BucketPDFs   Bucket = "pdfs"
	BucketNews   Bucket = "news"
)

// Buckets lists every bucket the site serves.
func Buckets() []Bucket {
	return []Bucket{BucketCovers, BucketPDFs, BucketNews}
}

// ParseBucket resolves a bucket name.
func ParseBucket(name string) (Bucket, error) {
	trimmed := strings.ToLower(strings.TrimSpace(name))
	for _, bucket := range Buckets() {
		if string(bucket) == trimmed {
			return bucket, nil
		}
	}
	return "", eris.Wrapf(ErrUnknownBucket, "bucket %q", name)
}

// Object is a stored file as addressed by the public site.
type Object struct {
	Bucket Bucket
	Name   string
	URL    string
}

// Policy limits what a bucket accepts.
type Policy struct {
	MaxBytes     int64
	ContentTypes []string
}

const (
	imageMaxBytes int64 = 5 << 20
	pdfMaxBytes   int64 = 50 << 20
)

var imageTypes = []string{"image/jpeg", "image/png", "image/webp", "image/gif"}

// PolicyFor returns the upload limits of a bucket.
func PolicyFor(bucket Bucket) Policy {
	switch bucket {
	case BucketPDFs:
		return Policy{MaxBytes: pdfMaxBytes, ContentTypes: []string{"application/pdf"}}
	default:
		return Policy{MaxBytes: imageMaxBytes, ContentTypes: imageTypes}
	}
}

// ObjectStore is the backend that holds uploaded bytes.
type ObjectStore interface {
	Put(ctx context.Context, bucket Bucket, name string, body io.Reader) error
	Remove(ctx context.Context, bucket Bucket, name string) error
}

var (
	// ErrUnknownBucket is returned for bucket names outside Buckets().
	ErrUnknownBucket = eris.New("unknown bucket")
	// ErrRejected marks an upload refused by the bucket policy or an unsafe object name.
	ErrRejected = eris.New("upload rejected")
)
