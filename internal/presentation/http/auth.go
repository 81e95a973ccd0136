package http

import (
	"context"
	stdhttp "net/http"
	"net/url"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"juvenis/app/internal/domain/auth"
	"juvenis/app/internal/presentation/http/templates"
)

const maxLoginBytes = 16 << 10

type loginPageInput struct {
	Next string `query:"next" maxLength:"512"`
}

type rawFormInput struct {
	RawBody []byte
}

func (s *Server) registerAuthRoutes() {
	huma.Get(s.api, "/login", s.loginPageHandler, htmlOperation("Editor sign-in form", stdhttp.StatusSeeOther))
	huma.Post(s.api, "/login", s.loginHandler, func(op *huma.Operation) {
		htmlOperation("Sign in", stdhttp.StatusSeeOther, stdhttp.StatusUnauthorized, stdhttp.StatusInternalServerError)(op)
		op.MaxBodyBytes = maxLoginBytes
	})
	huma.Post(s.api, "/logout", s.logoutHandler, htmlOperation("Sign out", stdhttp.StatusSeeOther))
}

func (s *Server) loginPageHandler(ctx context.Context, input *loginPageInput) (*htmlResponse, error) {
	next := safeNext(input.Next)

	if creds := credentialsFromContext(ctx); creds.Token != "" {
		if ok, err := s.auth.CheckAdmin(ctx, creds.Token); err == nil && ok {
			return redirectResponse(next), nil
		}
	}

	return s.renderLogin(ctx, stdhttp.StatusOK, templates.LoginPageData{Next: next})
}

func (s *Server) loginHandler(ctx context.Context, input *rawFormInput) (*htmlResponse, error) {
	form, err := url.ParseQuery(string(input.RawBody))
	if err != nil {
		return s.renderLogin(ctx, stdhttp.StatusBadRequest, templates.LoginPageData{Error: "No pudimos leer el formulario."})
	}

	email := strings.TrimSpace(form.Get("email"))
	next := safeNext(form.Get("next"))
	creds := credentialsFromContext(ctx)

	session, err := s.auth.SignIn(ctx, email, form.Get("password"), creds.Client)
	s.metrics.ObserveSignIn(err)
	if err != nil {
		status, message := classifyError(err)
		if eris.Is(err, auth.ErrInvalidCredentials) {
			s.logDebug(ctx, err, "sign-in rejected", logrus.Fields{"email": auth.NormalizeEmail(email)})
		} else {
			s.recordError(ctx, err, "signing in", nil)
		}
		return s.renderLogin(ctx, status, templates.LoginPageData{Email: email, Next: next, Error: message})
	}

	response := redirectResponse(next)
	response.SetCookie = s.sessionCookie(session.Token, session.ExpiresAt).String()
	return response, nil
}

func (s *Server) logoutHandler(ctx context.Context, _ *struct{}) (*htmlResponse, error) {
	creds := credentialsFromContext(ctx)
	if err := s.auth.SignOut(ctx, creds.Token); err != nil {
		s.recordError(ctx, err, "signing out", nil)
	}

	response := redirectResponse("/")
	response.SetCookie = s.expiredSessionCookie().String()
	return response, nil
}

func (s *Server) renderLogin(ctx context.Context, status int, data templates.LoginPageData) (*htmlResponse, error) {
	data.Layout = templates.Layout{Title: "Acceso"}
	if data.Next == "" {
		data.Next = "/admin"
	}
	response, err := s.renderPage(ctx, status, templates.LoginPage(data), "login page", nil)
	if response != nil {
		response.CacheControl = "no-store"
	}
	return response, err
}

func (s *Server) sessionCookie(token string, expires time.Time) *stdhttp.Cookie {
	maxAge := int(time.Until(expires).Seconds())
	if maxAge < 1 {
		maxAge = 1
	}
	return &stdhttp.Cookie{
		Name:     s.session.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires.UTC(),
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.session.Secure,
		SameSite: stdhttp.SameSiteLaxMode,
	}
}

func (s *Server) expiredSessionCookie() *stdhttp.Cookie {
	return &stdhttp.Cookie{
		Name:     s.session.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.session.Secure,
		SameSite: stdhttp.SameSiteLaxMode,
	}
}

// safeNext only follows local admin paths after sign-in.
func safeNext(raw string) string {
	next := strings.TrimSpace(raw)
	if next == "" || !strings.HasPrefix(next, "/admin") || strings.HasPrefix(next, "//") || strings.ContainsAny(next, "\\\r\n") {
		return "/admin"
	}
	return next
}
