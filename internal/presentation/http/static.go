package http

import (
	"embed"
	"io/fs"
	stdhttp "net/http"

	"github.com/rotisserie/eris"
)

//go:embed static/*
var staticFiles embed.FS

const staticCacheControl = "public, max-age=86400"

func staticAssets() (fs.FS, error) {
	assets, err := fs.Sub(staticFiles, "static")
	if err != nil {
		return nil, eris.Wrap(err, "preparing static assets filesystem")
	}
	return assets, nil
}

// faviconHandler answers the browser's /favicon.ico probe with the SVG mark.
func faviconHandler(assets fs.FS) stdhttp.HandlerFunc {
	return func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		w.Header().Set("Content-Type", "image/svg+xml")
		w.Header().Set("Cache-Control", staticCacheControl)
		stdhttp.ServeFileFS(w, r, assets, "favicon.svg")
	}
}

func (s *Server) registerStaticRoute() {
	assets, err := staticAssets()
	if err != nil {
		if s.logger != nil {
			s.logger.WithError(err).Error("registering static assets handler failed")
		}
		return
	}

	files := stdhttp.StripPrefix("/static/", stdhttp.FileServer(stdhttp.FS(assets)))
	for _, method := range []string{stdhttp.MethodGet, stdhttp.MethodHead} {
		s.mux.Handle(method+" /static/", files)
		s.mux.Handle(method+" /favicon.ico", faviconHandler(assets))
	}
}
