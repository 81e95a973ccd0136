package http

import (
	"context"
	"fmt"
	"html"
	stdhttp "net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"juvenis/app/internal/domain/auth"
	"juvenis/app/internal/domain/news"
	"juvenis/app/internal/domain/storage"
	"juvenis/app/internal/domain/volume"
	"juvenis/app/internal/presentation/http/templates"
)

const (
	errorFallbackMessage = "No pudimos procesar tu solicitud en este momento."
	notFoundMessage      = "No encontramos la página que buscas."
)

var (
	errUnauthorized = eris.New("authentication required")
	errForbidden    = eris.New("admin access required")
)

// classifyError maps domain errors to an HTTP status and a message safe to show to visitors.
func classifyError(err error) (int, string) {
	switch {
	case err == nil:
		return stdhttp.StatusInternalServerError, errorFallbackMessage
	case eris.Is(err, errUnauthorized):
		return stdhttp.StatusUnauthorized, "Necesitas iniciar sesión."
	case eris.Is(err, errForbidden):
		return stdhttp.StatusForbidden, "Tu cuenta no tiene permisos de administración."
	case eris.Is(err, auth.ErrInvalidCredentials):
		return stdhttp.StatusUnauthorized, "Correo o contraseña incorrectos."
	case eris.Is(err, volume.ErrNotFound):
		return stdhttp.StatusNotFound, "No encontramos ese volumen."
	case eris.Is(err, news.ErrNotFound):
		return stdhttp.StatusNotFound, "No encontramos esa noticia."
	case eris.Is(err, volume.ErrValidation):
		return stdhttp.StatusUnprocessableEntity, "Datos del volumen no válidos: " + reason(err, volume.ErrValidation)
	case eris.Is(err, news.ErrValidation):
		return stdhttp.StatusUnprocessableEntity, "Datos de la noticia no válidos: " + reason(err, news.ErrValidation)
	case eris.Is(err, auth.ErrValidation):
		return stdhttp.StatusUnprocessableEntity, "Datos de la cuenta no válidos: " + reason(err, auth.ErrValidation)
	case eris.Is(err, news.ErrSummarizerUnavailable):
		return stdhttp.StatusServiceUnavailable, "La generación automática de extractos no está configurada."
	case eris.Is(err, storage.ErrUnknownBucket):
		return stdhttp.StatusNotFound, "El contenedor de archivos no existe."
	case eris.Is(err, storage.ErrRejected):
		detail := reason(err, storage.ErrRejected)
		switch {
		case strings.Contains(detail, "exceeds"):
			return stdhttp.StatusRequestEntityTooLarge, "El archivo es demasiado grande: " + detail
		case strings.Contains(detail, "content type"):
			return stdhttp.StatusUnsupportedMediaType, "Tipo de archivo no permitido: " + detail
		default:
			return stdhttp.StatusBadRequest, "Archivo rechazado: " + detail
		}
	default:
		return stdhttp.StatusInternalServerError, errorFallbackMessage
	}
}

// reason strips the sentinel text from a wrapped error, leaving the caller-facing detail.
func reason(err, sentinel error) string {
	message := err.Error()
	message = strings.TrimSuffix(message, ": "+sentinel.Error())
	if message == sentinel.Error() {
		return message
	}
	return strings.TrimSpace(message)
}

// isClientError reports whether the failure was caused by the request rather than the server.
func isClientError(status int) bool {
	return status >= 400 && status < 500
}

func (s *Server) renderErrorResponse(ctx context.Context, status int, message string) (*htmlResponse, error) {
	label := fmt.Sprintf("%d %s", status, stdhttp.StatusText(status))
	component := templates.ErrorPage(templates.ErrorPageData{
		Layout:      templates.Layout{Title: label},
		StatusLabel: label,
		Message:     message,
	})

	body, err := renderComponent(ctx, component)
	if err != nil {
		s.recordError(ctx, err, "rendering error page", logrus.Fields{"status": status})
		fallback := fmt.Sprintf("<html><body><h1>%s</h1><p>%s</p></body></html>", html.EscapeString(label), html.EscapeString(message))
		return newHTMLResponse(status, []byte(fallback)), nil
	}

	return newHTMLResponse(status, body), nil
}

// failPage logs server-side failures and renders the matching error page.
func (s *Server) failPage(ctx context.Context, err error, message string, fields logrus.Fields) (*htmlResponse, error) {
	status, userMessage := classifyError(err)
	if isClientError(status) {
		s.logDebug(ctx, err, message, fields)
	} else {
		s.recordError(ctx, err, message, fields)
	}
	return s.renderErrorResponse(ctx, status, userMessage)
}

// failAPI turns err into a problem+json response.
func (s *Server) failAPI(ctx context.Context, err error, message string, fields logrus.Fields) error {
	status, userMessage := classifyError(err)
	if isClientError(status) {
		s.logDebug(ctx, err, message, fields)
	} else {
		s.recordError(ctx, err, message, fields)
	}
	return huma.NewError(status, userMessage)
}

func (s *Server) recordError(ctx context.Context, err error, message string, fields logrus.Fields) {
	if err == nil {
		return
	}

	if s.logger != nil {
		entry := s.logger.WithField("error", err.Error())
		if fields != nil {
			entry = entry.WithFields(fields)
		}
		if requestID := RequestIDFromContext(ctx); requestID != "" {
			entry = entry.WithField("request_id", requestID)
		}
		entry.Error(message)
	}

	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		hub.CaptureException(err)
		return
	}
	if s.sentry != nil {
		s.sentry.CaptureException(err)
	}
}

func (s *Server) logDebug(ctx context.Context, err error, message string, fields logrus.Fields) {
	if s.logger == nil {
		return
	}
	entry := s.logger.WithFields(fields)
	if err != nil {
		entry = entry.WithField("error", err.Error())
	}
	if requestID := RequestIDFromContext(ctx); requestID != "" {
		entry = entry.WithField("request_id", requestID)
	}
	entry.Debug(message)
}
