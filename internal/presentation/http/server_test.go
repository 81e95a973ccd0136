package http

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"juvenis/app/internal/domain/news"
	"juvenis/app/internal/domain/volume"
)

func TestHomeRouteRendersPublishedContent(t *testing.T) {
	t.Parallel()

	deps := newTestDeps()
	deps.volumes.volumes = []volume.Volume{
		{ID: "v1", Title: "Neurociencia juvenil", Number: "Vol. 15", Year: "2025", Published: true},
		{ID: "v2", Title: "Borrador secreto", Number: "Vol. 16", Year: "2026"},
	}
	deps.news.items = []news.Item{
		{ID: "n1", Title: "Convocatoria abierta", Category: news.CategoryCall, Status: news.StatusPublished},
		{ID: "n2", Title: "Noticia pendiente", Category: news.CategoryEvent, Status: news.StatusDraft},
	}
	srv := newTestServer(t, deps)

	rec := serve(srv, httptest.NewRequest("GET", "/", nil))

	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != htmlContentType {
		t.Fatalf("expected content type %q, got %q", htmlContentType, ct)
	}

	body := rec.Body.String()
	if !contains(body, "Neurociencia juvenil") || !contains(body, "Convocatoria abierta") {
		t.Fatalf("expected published volume and news in body, got %q", body)
	}
	if contains(body, "Borrador secreto") || contains(body, "Noticia pendiente") {
		t.Fatalf("expected drafts to be hidden, got %q", body)
	}
	if !contains(body, "<header") {
		t.Fatalf("expected layout markup in body, got %q", body)
	}
}

func TestUnknownPathRendersNotFound(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, newTestDeps())
	rec := serve(srv, httptest.NewRequest("GET", "/no-such-page", nil))

	if rec.Code != stdhttp.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
	if !contains(rec.Body.String(), notFoundMessage) {
		t.Fatalf("expected not found message, got %q", rec.Body.String())
	}
}

func TestVolumesRouteSearchesPublishedVolumes(t *testing.T) {
	t.Parallel()

	deps := newTestDeps()
	deps.volumes.volumes = []volume.Volume{
		{ID: "a", Title: "Ciencia del clima", Number: "Vol. 1", Year: "2024", Published: true},
		{ID: "b", Title: "Historia natural", Number: "Vol. 2", Year: "2025", Published: true},
		{ID: "c", Title: "Ciencia oculta", Number: "Vol. 3", Year: "2025"},
	}
	srv := newTestServer(t, deps)

	rec := serve(srv, httptest.NewRequest("GET", "/volumes?q=ciencia", nil))
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	body := rec.Body.String()
	if !contains(body, "Ciencia del clima") {
		t.Fatalf("expected matching volume, got %q", body)
	}
	if contains(body, "Historia natural") || contains(body, "Ciencia oculta") {
		t.Fatalf("expected only published matches, got %q", body)
	}
	if !contains(body, "year=2024") || !contains(body, "year=2025") {
		t.Fatalf("expected year chips from the published list, got %q", body)
	}
}

func TestVolumeRouteHidesDrafts(t *testing.T) {
	t.Parallel()

	deps := newTestDeps()
	deps.volumes.volumes = []volume.Volume{
		{ID: "live", Title: "Publicado", Number: "Vol. 1", Year: "2025", Published: true, PDFURL: "http://files.test/storage/pdfs/a.pdf"},
		{ID: "draft", Title: "Borrador", Number: "Vol. 2", Year: "2026"},
	}
	srv := newTestServer(t, deps)

	rec := serve(srv, httptest.NewRequest("GET", "/volumes/live", nil))
	if rec.Code != stdhttp.StatusOK || !contains(rec.Body.String(), "Descargar PDF") {
		t.Fatalf("expected published volume page with PDF link, got %d %q", rec.Code, rec.Body.String())
	}

	for _, path := range []string{"/volumes/draft", "/volumes/missing"} {
		rec := serve(srv, httptest.NewRequest("GET", path, nil))
		if rec.Code != stdhttp.StatusNotFound {
			t.Fatalf("%s: expected status 404, got %d", path, rec.Code)
		}
	}
}

func TestNewsRouteSanitizesContent(t *testing.T) {
	t.Parallel()

	deps := newTestDeps()
	deps.news.items = []news.Item{
		{
			ID: "n1", Title: "Congreso", Category: news.CategoryEvent, Status: news.StatusPublished,
			Extract: "Resumen breve", Content: `<p>Hola <a href="javascript:alert(1)">mundo</a></p><script>alert(1)</script>`,
		},
		{ID: "n2", Title: "Sin cuerpo", Category: news.CategoryRelease, Status: news.StatusPublished},
	}
	srv := newTestServer(t, deps)

	rec := serve(srv, httptest.NewRequest("GET", "/news/n1", nil))
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	body := rec.Body.String()
	if !contains(body, "<p>Hola mundo</p>") {
		t.Fatalf("expected sanitized content, got %q", body)
	}
	if contains(body, "<script>") || contains(body, "javascript:") {
		t.Fatalf("expected unsafe markup to be removed, got %q", body)
	}
	if !contains(body, "Resumen breve") {
		t.Fatalf("expected extract in body, got %q", body)
	}

	rec = serve(srv, httptest.NewRequest("GET", "/news/n2", nil))
	if !contains(rec.Body.String(), "No hay contenido adicional") {
		t.Fatalf("expected empty content note, got %q", rec.Body.String())
	}
}

func TestNewsListFiltersByCategory(t *testing.T) {
	t.Parallel()

	deps := newTestDeps()
	deps.news.items = []news.Item{
		{ID: "n1", Title: "Nuevo volumen", Category: news.CategoryRelease, Status: news.StatusPublished},
		{ID: "n2", Title: "Jornada abierta", Category: news.CategoryEvent, Status: news.StatusPublished},
	}
	srv := newTestServer(t, deps)

	rec := serve(srv, httptest.NewRequest("GET", "/news?category=evento", nil))
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !contains(body, "Jornada abierta") || contains(body, "Nuevo volumen") {
		t.Fatalf("expected only event news, got %q", body)
	}

	rec = serve(srv, httptest.NewRequest("GET", "/news?category=deportes", nil))
	if rec.Code != stdhttp.StatusUnprocessableEntity {
		t.Fatalf("expected status 422 for unknown category, got %d", rec.Code)
	}
}

func TestPublicRouteReportsBackendFailure(t *testing.T) {
	t.Parallel()

	deps := newTestDeps()
	deps.volumes.err = eris.New("database is locked")
	srv := newTestServer(t, deps)

	rec := serve(srv, httptest.NewRequest("GET", "/volumes", nil))
	if rec.Code != stdhttp.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", rec.Code)
	}
	if contains(rec.Body.String(), "database is locked") {
		t.Fatalf("expected internal error details to stay private, got %q", rec.Body.String())
	}
}

func TestContactAndStaticAssets(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, newTestDeps())

	for path, want := range map[string]string{
		"/contact":         "Contacto",
		"/static/site.css": ".site-header",
		"/favicon.ico":     "<svg",
	} {
		rec := serve(srv, httptest.NewRequest("GET", path, nil))
		if rec.Code != stdhttp.StatusOK {
			t.Fatalf("%s: expected status 200, got %d", path, rec.Code)
		}
		if !contains(rec.Body.String(), want) {
			t.Fatalf("%s: expected %q in body", path, want)
		}
	}
}

func TestRateLimiterMiddlewareCapsRequests(t *testing.T) {
	t.Parallel()

	srv := newTestServerWithLimits(t, newTestDeps(), RateLimiterSettings{
		Burst:             3,
		RequestsPerSecond: 3,
		ClientTTL:         time.Minute,
	})

	current := time.Unix(0, 0)
	srv.rateLimiter.now = func() time.Time {
		return current
	}

	for i := 0; i < 3; i++ {
		rec := serve(srv, httptest.NewRequest("GET", "/", nil))
		if rec.Code != stdhttp.StatusOK {
			t.Fatalf("expected request %d to be allowed, got status %d", i+1, rec.Code)
		}
	}

	fourth := serve(srv, httptest.NewRequest("GET", "/", nil))
	if fourth.Code != stdhttp.StatusTooManyRequests {
		t.Fatalf("expected status %d, got %d", stdhttp.StatusTooManyRequests, fourth.Code)
	}
	if header := fourth.Header().Get("Retry-After"); header != "1" {
		t.Fatalf("expected Retry-After header to be 1, got %q", header)
	}
	if body := fourth.Body.String(); !contains(body, "Too Many Requests") || !contains(body, "Espera un momento") {
		t.Fatalf("expected rate limit message in body, got %q", body)
	}

	current = current.Add(time.Second)

	if rec := serve(srv, httptest.NewRequest("GET", "/", nil)); rec.Code != stdhttp.StatusOK {
		t.Fatalf("expected status %d after refill, got %d", stdhttp.StatusOK, rec.Code)
	}
}

func TestHealthRouteReportsChecks(t *testing.T) {
	t.Parallel()

	deps := newTestDeps()
	deps.checks = []HealthCheck{
		{Name: "database", Check: func(context.Context) error { return nil }},
		{Name: "storage", Check: func(context.Context) error { return eris.New("storage root missing") }},
	}
	srv := newTestServer(t, deps)

	rec := serve(srv, httptest.NewRequest("GET", "/healthz", nil))
	if rec.Code != stdhttp.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !contains(body, `"database":"ok"`) || !contains(body, `"storage":"error"`) || !contains(body, `"degraded"`) {
		t.Fatalf("unexpected health body %q", body)
	}
}

func TestRequestIDHeaderIsSet(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, newTestDeps())
	rec := serve(srv, httptest.NewRequest("GET", "/contact", nil))

	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatalf("expected X-Request-ID header")
	}
}

func TestNewServerValidatesOptions(t *testing.T) {
	t.Parallel()

	deps := newTestDeps()
	opts := deps.options(RateLimiterSettings{Burst: 1, RequestsPerSecond: 1, ClientTTL: time.Minute})
	opts.AuthService = nil
	if _, err := NewServer(opts); err == nil {
		t.Fatalf("expected error without auth service")
	}

	opts = deps.options(RateLimiterSettings{Burst: 0, RequestsPerSecond: 1, ClientTTL: time.Minute})
	if _, err := NewServer(opts); err == nil {
		t.Fatalf("expected error for zero burst")
	}
}

// helper utilities

type testDeps struct {
	volumes *stubVolumeService
	news    *stubNewsService
	auth    *stubAuthService
	storage *stubStorageService
	checks  []HealthCheck
}

func newTestDeps() *testDeps {
	return &testDeps{
		volumes: &stubVolumeService{},
		news:    &stubNewsService{},
		auth:    newStubAuthService(),
		storage: newStubStorageService(),
	}
}

func (d *testDeps) options(limits RateLimiterSettings) Options {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	return Options{
		VolumeService:  d.volumes,
		NewsService:    d.news,
		AuthService:    d.auth,
		StorageService: d.storage,
		HealthChecks:   d.checks,
		Logger:         logger,
		RateLimiter:    limits,
	}
}

func newTestServer(t *testing.T, deps *testDeps) *Server {
	t.Helper()

	return newTestServerWithLimits(t, deps, RateLimiterSettings{
		Burst:             1000,
		RequestsPerSecond: 1000,
		ClientTTL:         time.Minute,
	})
}

func newTestServerWithLimits(t *testing.T, deps *testDeps, limits RateLimiterSettings) *Server {
	t.Helper()

	srv, err := NewServer(deps.options(limits))
	if err != nil {
		t.Fatalf("NewServer returned error: %v", err)
	}
	t.Cleanup(srv.Close)

	srv.now = func() time.Time {
		return time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	}
	return srv
}

func serve(srv *Server, req *stdhttp.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func withSession(req *stdhttp.Request, token string) *stdhttp.Request {
	req.AddCookie(&stdhttp.Cookie{Name: defaultCookieName, Value: token})
	return req
}

type formFileField struct {
	field    string
	filename string
	content  []byte
}

func multipartRequest(t *testing.T, method, target string, values map[string]string, files ...formFileField) *stdhttp.Request {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for key, value := range values {
		if err := writer.WriteField(key, value); err != nil {
			t.Fatalf("WriteField returned error: %v", err)
		}
	}
	for _, file := range files {
		part, err := writer.CreateFormFile(file.field, file.filename)
		if err != nil {
			t.Fatalf("CreateFormFile returned error: %v", err)
		}
		if _, err := part.Write(file.content); err != nil {
			t.Fatalf("writing form file returned error: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("closing multipart writer returned error: %v", err)
	}

	req := httptest.NewRequest(method, target, &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func formRequest(target, encoded string) *stdhttp.Request {
	req := httptest.NewRequest("POST", target, strings.NewReader(encoded))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func contains(body, substring string) bool {
	return strings.Contains(body, substring)
}

func TestOversizedUploadIsRejectedBeforeAuthentication(t *testing.T) {
	t.Parallel()

	deps := newTestDeps()
	srv := newTestServer(t, deps)

	req := multipartRequest(t, "POST", "/admin/volumes", map[string]string{"title": "Grande"},
		formFileField{field: "pdf", filename: "grande.pdf", content: []byte("%PDF-1.7")})
	req.ContentLength = maxFormBytes + 1

	rec := serve(srv, req)
	if rec.Code != stdhttp.StatusRequestEntityTooLarge {
		t.Fatalf("expected status 413, got %d", rec.Code)
	}
	if body := rec.Body.String(); !contains(body, "tamaño máximo") {
		t.Fatalf("expected size message in body, got %q", body)
	}
	if len(deps.storage.keys()) != 0 {
		t.Fatalf("expected nothing uploaded")
	}
}

func TestOversizedAPIUploadReturnsProblemJSON(t *testing.T) {
	t.Parallel()

	deps := newTestDeps()
	srv := newTestServer(t, deps)

	req := multipartRequest(t, "POST", "/api/v1/storage/covers", map[string]string{"path": "big.png"},
		formFileField{field: "file", filename: "big.png", content: []byte("big")})
	req.ContentLength = maxFormBytes + 1

	rec := serve(srv, withSession(req, "admin-token"))
	if rec.Code != stdhttp.StatusRequestEntityTooLarge {
		t.Fatalf("expected status 413, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/problem+json" {
		t.Fatalf("expected problem json, got %q", ct)
	}
	if len(deps.storage.keys()) != 0 {
		t.Fatalf("expected nothing uploaded")
	}
}

func TestRateLimitIgnoresForwardedForByDefault(t *testing.T) {
	t.Parallel()

	srv := newTestServerWithLimits(t, newTestDeps(), RateLimiterSettings{Burst: 1, RequestsPerSecond: 0.001, ClientTTL: time.Minute})

	first := httptest.NewRequest("GET", "/", nil)
	first.Header.Set("X-Forwarded-For", "198.51.100.1")
	if rec := serve(srv, first); rec.Code != stdhttp.StatusOK {
		t.Fatalf("expected first request to pass, got %d", rec.Code)
	}

	spoofed := httptest.NewRequest("GET", "/", nil)
	spoofed.Header.Set("X-Forwarded-For", "198.51.100.2")
	spoofed.Header.Set("X-Real-IP", "198.51.100.3")
	if rec := serve(srv, spoofed); rec.Code != stdhttp.StatusTooManyRequests {
		t.Fatalf("expected forged forwarding headers to share the limit, got %d", rec.Code)
	}
}

func TestRateLimitUsesForwardedForBehindTrustedProxy(t *testing.T) {
	t.Parallel()

	opts := newTestDeps().options(RateLimiterSettings{Burst: 1, RequestsPerSecond: 0.001, ClientTTL: time.Minute})
	opts.TrustProxyHeaders = true
	srv, err := NewServer(opts)
	if err != nil {
		t.Fatalf("NewServer returned error: %v", err)
	}
	t.Cleanup(srv.Close)

	for _, ip := range []string{"198.51.100.1", "198.51.100.2"} {
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("X-Forwarded-For", ip+", 10.0.0.1")
		if rec := serve(srv, req); rec.Code != stdhttp.StatusOK {
			t.Fatalf("expected client %s to have its own bucket, got %d", ip, rec.Code)
		}
	}

	again := httptest.NewRequest("GET", "/", nil)
	again.Header.Set("X-Forwarded-For", "198.51.100.1")
	if rec := serve(srv, again); rec.Code != stdhttp.StatusTooManyRequests {
		t.Fatalf("expected repeat client to be limited, got %d", rec.Code)
	}
}
