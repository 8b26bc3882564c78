package pages

import (
	"bytes"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
)

const (
	RouteSitemap   = "/sitemap.xml"
	RouteSyntaxCSS = "/static/syntax.css"

	// browsers revalidate every time; the page cache absorbs the load
	pageCacheControl = "public, max-age=0, must-revalidate"
	cssCacheControl  = "public, max-age=3600"
)

// RegisterRoutes mounts the page routes. Opts.PageMiddleware wraps the
// HTML pages and the sitemap.
func (c *Composer) RegisterRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(c.opts.PageMiddleware...)
		r.Get("/", c.handleHome)
		r.Get("/blog", c.handleListing)
		r.Get("/blog/{slug}", c.handlePost)
		r.Get(RouteSitemap, c.handleSitemap)
	})
	r.Get(RouteSyntaxCSS, c.handleSyntaxCSS)
}

func (c *Composer) handleHome(w http.ResponseWriter, r *http.Request) {
	c.render(w, r, c.Home())
}

func (c *Composer) handleListing(w http.ResponseWriter, r *http.Request) {
	c.render(w, r, c.Listing(r.Context()))
}

func (c *Composer) handlePost(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	// chi matches on RawPath when it is set, so only then is the param
	// still escaped
	if r.URL.RawPath != "" {
		if s, err := url.PathUnescape(slug); err == nil {
			slug = s
		}
	}
	c.render(w, r, c.Post(r.Context(), slug))
}

// NotFoundHandler serves the themed 404 page.
func (c *Composer) NotFoundHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.render(w, r, c.NotFound("Page Not Found", "The page you are looking for does not exist."))
	})
}

func (c *Composer) render(w http.ResponseWriter, r *http.Request, p Page) {
	ctx := r.Context()
	var buf bytes.Buffer
	if err := c.opts.Templates.Execute(&buf, p.template, p); err != nil {
		c.opts.Logger.Error(ctx, err, "render page", "template", p.template)
		h := w.Header()
		h.Set("Content-Type", "text/plain; charset=utf-8")
		h.Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("internal server error\n"))
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/html; charset=utf-8")
	h.Set("Content-Length", strconv.Itoa(buf.Len()))
	if p.noStore {
		h.Set("Cache-Control", "no-store")
	} else {
		h.Set("Cache-Control", pageCacheControl)
	}
	w.WriteHeader(p.status)
	if r.Method != http.MethodHead {
		_, _ = buf.WriteTo(w)
	}
}

// syntaxCSS is generated once; the chroma style is fixed for the process.
type syntaxCSS struct {
	once sync.Once
	css  []byte
	err  error
}

func (c *Composer) handleSyntaxCSS(w http.ResponseWriter, r *http.Request) {
	c.css.once.Do(func() {
		c.css.css, c.css.err = c.opts.Body.SyntaxCSS()
	})
	if c.css.err != nil {
		ctx := r.Context()
		c.opts.Logger.Error(ctx, c.css.err, "generate syntax css")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	h := w.Header()
	h.Set("Content-Type", "text/css; charset=utf-8")
	h.Set("Cache-Control", cssCacheControl)
	h.Set("Content-Length", strconv.Itoa(len(c.css.css)))
	if r.Method != http.MethodHead {
		_, _ = w.Write(c.css.css)
	}
}
