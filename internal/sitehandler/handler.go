// Package sitehandler serves the site's static files: stylesheets, images
// and the root files crawlers ask for.
package sitehandler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	opts Options
}

func New(opts *Options) (*Handler, error) {
	opts.setDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}
	return &Handler{opts: *opts}, nil
}

// RegisterRoutes mounts Prefix/* and every root file.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get(h.opts.Prefix+"*", h.ServeHTTP)
	for route := range h.opts.RootFiles {
		r.Get(route, h.ServeHTTP)
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	file, found := resolvePath(r.URL.Path, &h.opts)
	if !found {
		h.serveNotFound(w, r)
		return
	}

	if cc := cacheControlForFile(file, &h.opts); cc != "" {
		w.Header().Set("Cache-Control", cc)
	}
	w.Header().Set("X-Content-Type-Options", "nosniff")
	http.ServeFileFS(w, r, h.opts.Static, file)
}

func (h *Handler) serveNotFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	if h.opts.NotFound != nil {
		h.opts.NotFound.ServeHTTP(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	_, _ = w.Write([]byte("404 page not found"))
}
