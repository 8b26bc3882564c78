package pages

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/go-chi/chi/v5"

	"github.com/heriman22/blog-main/internal/content"
	"github.com/heriman22/blog-main/internal/webassets"
)

func newRouter(c *Composer) http.Handler {
	r := chi.NewRouter()
	c.RegisterRoutes(r)
	r.NotFound(c.NotFoundHandler().ServeHTTP)
	return r
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestHandler_Home(t *testing.T) {
	rec := get(t, newRouter(newTestComposer(t, &stubPosts{}, nil)), "/")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		"<title>Test Author&#39;s Blog</title>",
		`href="mailto:herri2293@gmail.com"`,
		`href="https://github.com/heriman22" target="_blank" rel="noopener noreferrer"`,
		`<link rel="canonical" href="https://blog.test/">`,
		"&copy; 2025 Test Author",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("home missing %q", want)
		}
	}
	if got := rec.Header().Get("Content-Type"); got != "text/html; charset=utf-8" {
		t.Fatalf("content-type = %q", got)
	}
	if got := rec.Header().Get("Cache-Control"); got != pageCacheControl {
		t.Fatalf("cache-control = %q", got)
	}
}

func TestHandler_Listing(t *testing.T) {
	list := []content.Post{
		post("a", "First", "2025-03-01", "image-abc-800x600-jpg"),
		post("b", "Second", "", ""),
	}
	rec := get(t, newRouter(newTestComposer(t, &stubPosts{posts: list}, nil)), "/blog")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		`<a class="post-card" href="/blog/a">`,
		`loading="eager" fetchpriority="high"`,
		"March 1, 2025",
		"No date",
		"No image",
		"Read more &rarr;",
		"Back Home",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("listing missing %q", want)
		}
	}
}

func TestHandler_ListingEmpty(t *testing.T) {
	rec := get(t, newRouter(newTestComposer(t, &stubPosts{}, nil)), "/blog")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "No posts found.") {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
}

func TestHandler_ListingUnavailable(t *testing.T) {
	rec := get(t, newRouter(newTestComposer(t, &stubPosts{err: errors.New("down")}, nil)), "/blog")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Header().Get("Cache-Control"); got != "no-store" {
		t.Fatalf("cache-control = %q", got)
	}
	if !strings.Contains(rec.Body.String(), "temporarily unavailable") {
		t.Fatal("expected degraded notice")
	}
}

func TestHandler_PostSlugDecodedOnce(t *testing.T) {
	cases := []struct {
		path string
		want string
	}{
		{"/blog/plain", "plain"},
		{"/blog/a%2541", "a%41"},
		{"/blog/100%25", "100%"},
		{"/blog/a%2Fb", "a/b"},
		{"/blog/caf%C3%A9", "café"},
	}
	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			pp := post(tc.want, "Post", "2025-01-02", "")
			posts := &stubPosts{post: &pp}
			rec := get(t, newRouter(newTestComposer(t, posts, nil)), tc.path)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d", rec.Code)
			}
			if posts.gotSlug != tc.want {
				t.Fatalf("slug = %q, want %q", posts.gotSlug, tc.want)
			}
		})
	}
}

func TestHandler_PostDecodesSlug(t *testing.T) {
	pp := post("hello world", "Hello", "2025-01-02", "")
	posts := &stubPosts{post: &pp}
	rec := get(t, newRouter(newTestComposer(t, posts, nil)), "/blog/hello%20world")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if posts.gotSlug != "hello world" {
		t.Fatalf("slug = %q, want decoded", posts.gotSlug)
	}
	body := rec.Body.String()
	for _, want := range []string{
		"<title>Hello | Test Author</title>",
		`<meta name="description" content="Read about Hello">`,
		"Published: January 2, 2025",
		"Back to posts",
		"<p>body nodes: 0</p>",
		`href="/static/syntax.css"`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("post missing %q", want)
		}
	}
	if strings.Contains(body, `property="og:image"`) {
		t.Fatal("og:image must be absent without a main image")
	}
}

func TestHandler_PostNotFound(t *testing.T) {
	rec := get(t, newRouter(newTestComposer(t, &stubPosts{}, nil)), "/blog/missing")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Header().Get("Cache-Control"); got != "no-store" {
		t.Fatalf("cache-control = %q", got)
	}
	if !strings.Contains(rec.Body.String(), "Post Not Found") {
		t.Fatal("expected Post Not Found")
	}
}

func TestHandler_UnknownRoute(t *testing.T) {
	rec := get(t, newRouter(newTestComposer(t, &stubPosts{}, nil)), "/nope")
	if rec.Code != http.StatusNotFound || !strings.Contains(rec.Body.String(), "Page Not Found") {
		t.Fatalf("status=%d", rec.Code)
	}
}

func TestHandler_Head(t *testing.T) {
	r := chi.NewRouter()
	c := newTestComposer(t, &stubPosts{}, nil)
	r.Head("/", c.handleHome)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodHead, "/", nil))
	if rec.Code != http.StatusOK || rec.Body.Len() != 0 {
		t.Fatalf("status=%d body=%d", rec.Code, rec.Body.Len())
	}
	if rec.Header().Get("Content-Length") == "" {
		t.Fatal("expected Content-Length on HEAD")
	}
}

func TestHandler_Sitemap(t *testing.T) {
	rec := get(t, newRouter(newTestComposer(t, &stubPosts{slugs: []string{"x"}}, nil)), RouteSitemap)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/xml; charset=utf-8" {
		t.Fatalf("content-type = %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "<loc>https://blog.test/blog/x</loc>") {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestHandler_SitemapUnavailable(t *testing.T) {
	rec := get(t, newRouter(newTestComposer(t, &stubPosts{err: errors.New("down")}, nil)), RouteSitemap)
	if rec.Code != http.StatusServiceUnavailable || rec.Header().Get("Cache-Control") != "no-store" {
		t.Fatalf("status=%d cache=%q", rec.Code, rec.Header().Get("Cache-Control"))
	}
}

func TestHandler_SyntaxCSSGeneratedOnce(t *testing.T) {
	c := newTestComposer(t, &stubPosts{}, nil)
	body := c.opts.Body.(*stubBody)
	h := newRouter(c)
	for i := 0; i < 3; i++ {
		rec := get(t, h, RouteSyntaxCSS)
		if rec.Code != http.StatusOK || rec.Body.String() != ".chroma{}" {
			t.Fatalf("status=%d body=%q", rec.Code, rec.Body.String())
		}
		if ct := rec.Header().Get("Content-Type"); ct != "text/css; charset=utf-8" {
			t.Fatalf("content-type = %q", ct)
		}
	}
	if body.calls != 1 {
		t.Fatalf("SyntaxCSS called %d times, want 1", body.calls)
	}
}

func TestHandler_PageMiddlewareWrapsPagesOnly(t *testing.T) {
	c := newTestComposer(t, &stubPosts{}, nil)
	var hits []string
	c.opts.PageMiddleware = []func(http.Handler) http.Handler{
		func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				hits = append(hits, r.URL.Path)
				next.ServeHTTP(w, r)
			})
		},
	}
	h := newRouter(c)
	for _, p := range []string{"/", "/blog", RouteSitemap, RouteSyntaxCSS} {
		get(t, h, p)
	}
	if strings.Join(hits, ",") != "/,/blog,/sitemap.xml" {
		t.Fatalf("middleware saw %v", hits)
	}
}

func TestHandler_TemplateErrorIs500(t *testing.T) {
	broken := fstest.MapFS{
		"layout.html":   {Data: []byte(`{{define "layout"}}{{template "content" .}}{{end}}`)},
		"home.html":     {Data: []byte(`{{define "content"}}{{.Data.Missing}}{{end}}`)},
		"blog.html":     {Data: []byte(`{{define "content"}}{{end}}`)},
		"post.html":     {Data: []byte(`{{define "content"}}{{end}}`)},
		"notfound.html": {Data: []byte(`{{define "content"}}{{end}}`)},
	}
	c := newTestComposer(t, &stubPosts{}, nil)
	if err := c.opts.Templates.Reload(broken); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	rec := get(t, newRouter(c), "/")
	if rec.Code != http.StatusInternalServerError || rec.Header().Get("Cache-Control") != "no-store" {
		t.Fatalf("status=%d cache=%q", rec.Code, rec.Header().Get("Cache-Control"))
	}
}

func TestTemplates_ReloadKeepsPreviousOnError(t *testing.T) {
	tmpls, err := NewTemplates(webassets.TemplatesFS())
	if err != nil {
		t.Fatalf("NewTemplates: %v", err)
	}
	bad := fstest.MapFS{"layout.html": {Data: []byte(`{{define "layout"}}{{template "content" .}}{{end}}`)}}
	if err := tmpls.Reload(bad); err == nil {
		t.Fatal("expected error for missing page templates")
	}
	var sb strings.Builder
	c := newTestComposer(t, &stubPosts{}, nil)
	if err := tmpls.Execute(&sb, TemplateHome, c.Home()); err != nil {
		t.Fatalf("Execute after failed reload: %v", err)
	}
	if !strings.Contains(sb.String(), "About Me") {
		t.Fatal("previous template set not active")
	}
}

func TestTemplates_ExecuteUnknown(t *testing.T) {
	tmpls, err := NewTemplates(webassets.TemplatesFS())
	if err != nil {
		t.Fatalf("NewTemplates: %v", err)
	}
	var sb strings.Builder
	if err := tmpls.Execute(&sb, "missing.html", nil); err == nil {
		t.Fatal("expected error")
	}
}
