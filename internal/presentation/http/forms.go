package http

import (
	"context"
	"mime/multipart"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"juvenis/app/internal/domain/news"
	"juvenis/app/internal/domain/storage"
	"juvenis/app/internal/domain/volume"
	"juvenis/app/internal/presentation/http/templates"
)

// Large enough for a 50 MiB PDF plus a cover image and the text fields.
const maxFormBytes = 64 << 20

const dateLayout = "2006-01-02"

func formValue(form *multipart.Form, key string) string {
	if form == nil {
		return ""
	}
	values := form.Value[key]
	if len(values) == 0 {
		return ""
	}
	return strings.TrimSpace(values[0])
}

// formFile returns the uploaded file for key, or nil when the field was left empty.
func formFile(form *multipart.Form, key string) *multipart.FileHeader {
	if form == nil {
		return nil
	}
	files := form.File[key]
	if len(files) == 0 || files[0] == nil || files[0].Size == 0 || strings.TrimSpace(files[0].Filename) == "" {
		return nil
	}
	return files[0]
}

func (s *Server) uploadFormFile(ctx context.Context, bucket storage.Bucket, header *multipart.FileHeader, name string) (storage.Object, error) {
	file, err := header.Open()
	if err != nil {
		return storage.Object{}, eris.Wrap(err, "opening uploaded file")
	}
	defer file.Close()

	return s.storage.Upload(ctx, bucket, name, file)
}

// volumeSubmission is the decoded state of a submitted volume form.
type volumeSubmission struct {
	Title     string
	Number    string
	Year      string
	CoverURL  string
	PDFURL    string
	Content   string
	Published bool
}

func parseVolumeForm(form *multipart.Form) volumeSubmission {
	return volumeSubmission{
		Title:     formValue(form, "title"),
		Number:    formValue(form, "number"),
		Year:      formValue(form, "year"),
		CoverURL:  formValue(form, "cover_url"),
		PDFURL:    formValue(form, "pdf_url"),
		Content:   formValue(form, "content"),
		Published: formValue(form, "published") == "true",
	}
}

// attachVolumeFiles uploads the optional cover and PDF, replacing the submitted URLs on success.
func (s *Server) attachVolumeFiles(ctx context.Context, form *multipart.Form, sub *volumeSubmission) error {
	now := s.now()

	if header := formFile(form, "cover"); header != nil {
		object, err := s.uploadFormFile(ctx, storage.BucketCovers, header, storage.VolumeFileName(sub.Number, header.Filename, now))
		if err != nil {
			return err
		}
		sub.CoverURL = object.URL
	}

	if header := formFile(form, "pdf"); header != nil {
		object, err := s.uploadFormFile(ctx, storage.BucketPDFs, header, storage.VolumeFileName(sub.Number, header.Filename, now))
		if err != nil {
			return err
		}
		sub.PDFURL = object.URL
	}

	return nil
}

func (sub volumeSubmission) input() volume.Input {
	return volume.Input{
		Title:     sub.Title,
		Number:    sub.Number,
		Year:      sub.Year,
		CoverURL:  sub.CoverURL,
		PDFURL:    sub.PDFURL,
		Content:   sub.Content,
		Published: sub.Published,
	}
}

func (sub volumeSubmission) patch() volume.Patch {
	return volume.Patch{
		Title:     &sub.Title,
		Number:    &sub.Number,
		Year:      &sub.Year,
		CoverURL:  &sub.CoverURL,
		PDFURL:    &sub.PDFURL,
		Content:   &sub.Content,
		Published: &sub.Published,
	}
}

func (sub volumeSubmission) form() templates.VolumeForm {
	return templates.VolumeForm{
		Title:     sub.Title,
		Number:    sub.Number,
		Year:      sub.Year,
		CoverURL:  sub.CoverURL,
		PDFURL:    sub.PDFURL,
		Content:   sub.Content,
		Published: sub.Published,
	}
}

func volumeFormFromDomain(v volume.Volume) templates.VolumeForm {
	return templates.VolumeForm{
		ID:        v.ID,
		Title:     v.Title,
		Number:    v.Number,
		Year:      v.Year,
		CoverURL:  v.CoverURL,
		PDFURL:    v.PDFURL,
		Content:   v.Content,
		Published: v.Published,
	}
}

// newsSubmission is the decoded state of a submitted news form.
type newsSubmission struct {
	Title         string
	Category      string
	Extract       string
	Content       string
	ImageURL      string
	PublishedDate string
	Status        string
}

func parseNewsForm(form *multipart.Form) newsSubmission {
	return newsSubmission{
		Title:         formValue(form, "title"),
		Category:      formValue(form, "category"),
		Extract:       formValue(form, "extract"),
		Content:       formValue(form, "content"),
		ImageURL:      formValue(form, "image_url"),
		PublishedDate: formValue(form, "published_date"),
		Status:        formValue(form, "status"),
	}
}

func (s *Server) attachNewsImage(ctx context.Context, form *multipart.Form, sub *newsSubmission) error {
	header := formFile(form, "image")
	if header == nil {
		return nil
	}

	object, err := s.uploadFormFile(ctx, storage.BucketNews, header, storage.NewsFileName(sub.Title, header.Filename, s.now()))
	if err != nil {
		return err
	}
	sub.ImageURL = object.URL
	return nil
}

func (sub newsSubmission) publishedDate() (*time.Time, error) {
	if sub.PublishedDate == "" {
		return nil, nil
	}
	parsed, err := time.Parse(dateLayout, sub.PublishedDate)
	if err != nil {
		return nil, eris.Wrapf(news.ErrValidation, "published date %q must use YYYY-MM-DD", sub.PublishedDate)
	}
	return &parsed, nil
}

func (sub newsSubmission) input() (news.Input, error) {
	date, err := sub.publishedDate()
	if err != nil {
		return news.Input{}, err
	}
	status, err := news.ParseStatus(sub.Status)
	if err != nil {
		return news.Input{}, err
	}
	return news.Input{
		Title:         sub.Title,
		Category:      news.Category(sub.Category),
		Extract:       sub.Extract,
		Content:       sub.Content,
		ImageURL:      sub.ImageURL,
		PublishedDate: date,
		Status:        status,
	}, nil
}

func (sub newsSubmission) patch() (news.Patch, error) {
	input, err := sub.input()
	if err != nil {
		return news.Patch{}, err
	}
	return news.Patch{
		Title:              &input.Title,
		Category:           &input.Category,
		Extract:            &input.Extract,
		Content:            &input.Content,
		ImageURL:           &input.ImageURL,
		PublishedDate:      input.PublishedDate,
		ClearPublishedDate: input.PublishedDate == nil,
		Status:             &input.Status,
	}, nil
}

func (sub newsSubmission) form() templates.NewsForm {
	return templates.NewsForm{
		Title:         sub.Title,
		Category:      sub.Category,
		Extract:       sub.Extract,
		Content:       sub.Content,
		ImageURL:      sub.ImageURL,
		PublishedDate: sub.PublishedDate,
		Status:        sub.Status,
	}
}

func newsFormFromDomain(item news.Item) templates.NewsForm {
	form := templates.NewsForm{
		ID:       item.ID,
		Title:    item.Title,
		Category: string(item.Category),
		Extract:  item.Extract,
		Content:  item.Content,
		ImageURL: item.ImageURL,
		Status:   string(item.Status),
	}
	if item.PublishedDate != nil {
		form.PublishedDate = item.PublishedDate.Format(dateLayout)
	}
	return form
}

// formFailure logs a rejected submission at the right level and returns the status and message to show.
func (s *Server) formFailure(ctx context.Context, err error, message string, fields logrus.Fields) (int, string) {
	status, userMessage := classifyError(err)
	if isClientError(status) {
		s.logDebug(ctx, err, message, fields)
	} else {
		s.recordError(ctx, err, message, fields)
	}
	return status, userMessage
}
