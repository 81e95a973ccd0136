package http

import (
	"context"
	"fmt"
	"net"
	stdhttp "net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"juvenis/app/internal/domain/auth"
)

const (
	rateLimitMessage = "Estás navegando demasiado rápido. Espera un momento y vuelve a intentarlo."
	tooLargeMessage  = "El archivo supera el tamaño máximo permitido."
)

func (s *Server) requestIDMiddleware() func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		reqID := uuid.NewString()
		goCtx := context.WithValue(ctx.Context(), requestIDContextKey, reqID)
		ctx = huma.WithContext(ctx, goCtx)
		ctx.SetHeader("X-Request-ID", reqID)

		if hub := sentry.GetHubFromContext(goCtx); hub != nil {
			hub.Scope().SetTag("request_id", reqID)
		}

		next(ctx)
	}
}

func (s *Server) rateLimitMiddleware() func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		if s.rateLimiter == nil {
			next(ctx)
			return
		}

		req, _ := humago.Unwrap(ctx)
		if req == nil {
			next(ctx)
			return
		}

		ip := s.clientIP(req)
		if s.rateLimiter.Allow(ip) {
			next(ctx)
			return
		}

		fields := logrus.Fields{
			"ip":   ip,
			"path": req.URL.Path,
		}
		if requestID := RequestIDFromContext(ctx.Context()); requestID != "" {
			fields["request_id"] = requestID
		}
		if s.logger != nil {
			s.logger.WithError(eris.New("rate limit exceeded")).WithFields(fields).Warn("request rate limited")
		}

		ctx.SetHeader("Retry-After", "1")
		s.abort(ctx, req, stdhttp.StatusTooManyRequests, rateLimitMessage)
	}
}

// bodyLimitMiddleware enforces the operation's MaxBodyBytes before any handler runs.
// Multipart bodies are parsed outside huma's own size check, so the cap is applied here.
func (s *Server) bodyLimitMiddleware() func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		op := ctx.Operation()
		req, w := humago.Unwrap(ctx)
		if op == nil || op.MaxBodyBytes <= 0 || req == nil || req.Body == nil {
			next(ctx)
			return
		}

		if req.ContentLength > op.MaxBodyBytes {
			if s.logger != nil {
				s.logger.WithFields(logrus.Fields{
					"path":           req.URL.Path,
					"content_length": req.ContentLength,
					"limit":          op.MaxBodyBytes,
				}).Warn("request body too large")
			}
			s.abort(ctx, req, stdhttp.StatusRequestEntityTooLarge, tooLargeMessage)
			return
		}

		req.Body = stdhttp.MaxBytesReader(w, req.Body, op.MaxBodyBytes)
		next(ctx)
	}
}

// abort ends the request from a middleware with problem+json on the API and an error page elsewhere.
func (s *Server) abort(ctx huma.Context, req *stdhttp.Request, status int, message string) {
	if isAPIPath(req.URL.Path) {
		_ = huma.WriteErr(s.api, ctx, status, message)
		return
	}

	resp, _ := s.renderErrorResponse(ctx.Context(), status, message)
	ctx.SetHeader("Content-Type", resp.ContentType)
	ctx.SetStatus(status)
	_, _ = ctx.BodyWriter().Write(resp.Body)
}

// sessionMiddleware captures the caller's session token and client details for the handlers.
func (s *Server) sessionMiddleware() func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		creds := credentials{
			Token: bearerToken(ctx.Header("Authorization")),
			Client: auth.Client{
				UserAgent: ctx.Header("User-Agent"),
			},
		}

		if req, _ := humago.Unwrap(ctx); req != nil {
			creds.Client.IPAddress = s.clientIP(req)
			creds.Path = req.URL.RequestURI()
			if creds.Token == "" {
				if cookie, err := req.Cookie(s.session.CookieName); err == nil {
					creds.Token = strings.TrimSpace(cookie.Value)
				}
			}
		}

		next(huma.WithContext(ctx, withCredentials(ctx.Context(), creds)))
	}
}

func (s *Server) metricsMiddleware() func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		if s.metrics == nil {
			next(ctx)
			return
		}

		start := time.Now()
		next(ctx)

		status := ctx.Status()
		if status == 0 {
			status = stdhttp.StatusOK
		}

		route := ""
		if op := ctx.Operation(); op != nil {
			route = op.Path
		}
		s.metrics.ObserveRequest(ctx.Method(), route, status, time.Since(start))
	}
}

func (s *Server) loggingMiddleware() func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		if s.logger == nil {
			next(ctx)
			return
		}

		start := time.Now()
		next(ctx)

		status := ctx.Status()
		if status == 0 {
			status = stdhttp.StatusOK
		}

		fields := logrus.Fields{
			"method":      ctx.Method(),
			"status":      status,
			"duration_ms": float64(time.Since(start).Microseconds()) / 1000,
		}

		if op := ctx.Operation(); op != nil {
			fields["route"] = op.Path
		}

		if req, _ := humago.Unwrap(ctx); req != nil {
			fields["path"] = req.URL.Path
			fields["remote_addr"] = req.RemoteAddr
		}

		if requestID := RequestIDFromContext(ctx.Context()); requestID != "" {
			fields["request_id"] = requestID
		}

		entry := s.logger.WithFields(fields)
		if status >= 500 {
			entry.Error("request failed")
		} else {
			entry.Info("request completed")
		}
	}
}

func (s *Server) recoveryMiddleware() func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		defer func() {
			if rec := recover(); rec != nil {
				var err error
				switch v := rec.(type) {
				case error:
					err = v
				default:
					err = fmt.Errorf("panic: %v", v)
				}

				s.recordError(ctx.Context(), err, "panic recovered", nil)

				if hub := sentry.GetHubFromContext(ctx.Context()); hub != nil {
					hub.RecoverWithContext(ctx.Context(), rec)
					hub.Flush(2 * time.Second)
				}

				ctx.SetHeader("Content-Type", "text/plain; charset=utf-8")
				ctx.SetStatus(stdhttp.StatusInternalServerError)
				_, _ = ctx.BodyWriter().Write([]byte("internal server error"))
			}
		}()

		next(ctx)
	}
}

func (s *Server) sentryMiddleware() func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		if s.sentry == nil {
			next(ctx)
			return
		}

		hub := s.sentry.Clone()
		scope := hub.Scope()
		scope.SetTag("http.method", ctx.Method())
		if op := ctx.Operation(); op != nil {
			scope.SetTag("http.route", op.Path)
		}

		goCtx := sentry.SetHubOnContext(ctx.Context(), hub)
		ctx = huma.WithContext(ctx, goCtx)

		defer hub.Flush(2 * time.Second)

		next(ctx)
	}
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func isAPIPath(path string) bool {
	return strings.HasPrefix(path, apiPrefix+"/")
}

// clientIP returns the caller address. Forwarding headers are only honoured behind a trusted proxy.
func (s *Server) clientIP(req *stdhttp.Request) string {
	if req == nil {
		return ""
	}

	if s.trustProxy {
		if forwarded := strings.TrimSpace(req.Header.Get("X-Forwarded-For")); forwarded != "" {
			first, _, _ := strings.Cut(forwarded, ",")
			if candidate := strings.TrimSpace(first); candidate != "" {
				return candidate
			}
		}

		if realIP := strings.TrimSpace(req.Header.Get("X-Real-IP")); realIP != "" {
			return realIP
		}
	}

	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		return strings.TrimSpace(req.RemoteAddr)
	}
	return host
}
