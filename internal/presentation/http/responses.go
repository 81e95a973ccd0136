package http

import (
	"bytes"
	"context"
	stdhttp "net/http"
	"strconv"

	"github.com/a-h/templ"
	"github.com/danielgtaylor/huma/v2"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
)

const htmlContentType = "text/html; charset=utf-8"

type htmlResponse struct {
	Status       int
	ContentType  string `header:"Content-Type"`
	Location     string `header:"Location"`
	SetCookie    string `header:"Set-Cookie"`
	CacheControl string `header:"Cache-Control"`
	Body         []byte
}

func newHTMLResponse(status int, body []byte) *htmlResponse {
	return &htmlResponse{
		Status:      status,
		ContentType: htmlContentType,
		Body:        body,
	}
}

func redirectResponse(location string) *htmlResponse {
	response := newHTMLResponse(stdhttp.StatusSeeOther, nil)
	response.Location = location
	return response
}

// renderComponent buffers the whole page so a failed render never leaves a half-written 200.
func renderComponent(ctx context.Context, component templ.Component) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := component.Render(ctx, buf); err != nil {
		return nil, eris.Wrap(err, "rendering templ component")
	}
	return buf.Bytes(), nil
}

// renderPage renders component with status, falling back to an error page when rendering fails.
func (s *Server) renderPage(ctx context.Context, status int, component templ.Component, what string, fields logrus.Fields) (*htmlResponse, error) {
	body, err := renderComponent(ctx, component)
	if err != nil {
		s.recordError(ctx, err, "rendering "+what, fields)
		return s.renderErrorResponse(ctx, stdhttp.StatusInternalServerError, errorFallbackMessage)
	}
	return newHTMLResponse(status, body), nil
}

func htmlOperation(summary string, statuses ...int) func(op *huma.Operation) {
	return func(op *huma.Operation) {
		if summary != "" {
			op.Summary = summary
		}
		op.Tags = append(op.Tags, "pages")
		if op.Responses == nil {
			op.Responses = map[string]*huma.Response{}
		}

		statusCodes := append([]int{stdhttp.StatusOK}, statuses...)
		for _, status := range statusCodes {
			code := strconv.Itoa(status)
			op.Responses[code] = &huma.Response{
				Description: stdhttp.StatusText(status),
				Content: map[string]*huma.MediaType{
					htmlContentType: {
						Schema: &huma.Schema{Type: "string"},
					},
				},
			}
		}
	}
}

// formOperation is htmlOperation for form posts that may carry file uploads.
func formOperation(summary string, statuses ...int) func(op *huma.Operation) {
	base := htmlOperation(summary, statuses...)
	return func(op *huma.Operation) {
		base(op)
		op.MaxBodyBytes = maxFormBytes
	}
}
