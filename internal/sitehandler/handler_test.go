package sitehandler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/go-chi/chi/v5"

	"github.com/heriman22/blog-main/internal/log"
)

// ---------------------------------------------------------------------------
// test fixtures
// ---------------------------------------------------------------------------

func testStaticFS() fstest.MapFS {
	return fstest.MapFS{
		"site.css":     &fstest.MapFile{Data: []byte("body{}")},
		"favicon.ico":  &fstest.MapFile{Data: []byte("ICO")},
		"robots.txt":   &fstest.MapFile{Data: []byte("User-agent: *\n")},
		"img/logo.svg": &fstest.MapFile{Data: []byte("<svg/>")},
		"data.json":    &fstest.MapFile{Data: []byte(`{"k":"v"}`)},
		".env":         &fstest.MapFile{Data: []byte("SECRET=1")},
	}
}

func newTestHandler(t *testing.T, notFound http.Handler) *Handler {
	t.Helper()
	h, err := New(&Options{
		Logger:   log.Nop(),
		Static:   testStaticFS(),
		NotFound: notFound,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return h
}

func serve(h http.Handler, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

// ---------------------------------------------------------------------------
// New
// ---------------------------------------------------------------------------

func TestNew_RequiresStatic(t *testing.T) {
	_, err := New(&Options{})
	if !errors.Is(err, ErrInvalidOptions) {
		t.Fatalf("err = %v, want ErrInvalidOptions", err)
	}
}

func TestNew_MissingRootFile(t *testing.T) {
	_, err := New(&Options{
		Static:    testStaticFS(),
		RootFiles: map[string]string{"/humans.txt": "humans.txt"},
	})
	if !errors.Is(err, ErrInvalidOptions) {
		t.Fatalf("err = %v, want ErrInvalidOptions", err)
	}
}

func TestNew_BadPrefix(t *testing.T) {
	_, err := New(&Options{Static: testStaticFS(), Prefix: "/"})
	if !errors.Is(err, ErrInvalidOptions) {
		t.Fatalf("err = %v, want ErrInvalidOptions", err)
	}
}

func TestNew_Defaults(t *testing.T) {
	h := newTestHandler(t, nil)
	if h.opts.Prefix != "/static/" {
		t.Fatalf("prefix = %q", h.opts.Prefix)
	}
	if len(h.opts.RootFiles) != len(DefaultRootFiles) {
		t.Fatalf("root files = %v", h.opts.RootFiles)
	}
}

// ---------------------------------------------------------------------------
// ServeHTTP
// ---------------------------------------------------------------------------

func TestServeHTTP_StaticFile(t *testing.T) {
	rec := serve(newTestHandler(t, nil), http.MethodGet, "/static/site.css")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Body.String() != "body{}" {
		t.Fatalf("body = %q", rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/css") {
		t.Fatalf("content-type = %q", ct)
	}
	if cc := rec.Header().Get("Cache-Control"); cc != "public, max-age=86400" {
		t.Fatalf("cache-control = %q", cc)
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatal("missing nosniff")
	}
}

func TestServeHTTP_NestedFile(t *testing.T) {
	rec := serve(newTestHandler(t, nil), http.MethodGet, "/static/img/logo.svg")
	if rec.Code != http.StatusOK || rec.Body.String() != "<svg/>" {
		t.Fatalf("status=%d body=%q", rec.Code, rec.Body.String())
	}
}

func TestServeHTTP_RootFiles(t *testing.T) {
	h := newTestHandler(t, nil)
	for path, want := range map[string]string{
		"/robots.txt":  "User-agent: *\n",
		"/favicon.ico": "ICO",
	} {
		rec := serve(h, http.MethodGet, path)
		if rec.Code != http.StatusOK || rec.Body.String() != want {
			t.Fatalf("%s: status=%d body=%q", path, rec.Code, rec.Body.String())
		}
	}
}

func TestServeHTTP_OtherExtension(t *testing.T) {
	rec := serve(newTestHandler(t, nil), http.MethodGet, "/static/data.json")
	if cc := rec.Header().Get("Cache-Control"); cc != "public, max-age=3600" {
		t.Fatalf("cache-control = %q", cc)
	}
}

func TestServeHTTP_Head(t *testing.T) {
	rec := serve(newTestHandler(t, nil), http.MethodHead, "/static/site.css")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Fatalf("HEAD body = %q", rec.Body.String())
	}
}

func TestServeHTTP_MethodNotAllowed(t *testing.T) {
	for _, m := range []string{http.MethodPost, http.MethodPut, http.MethodDelete} {
		rec := serve(newTestHandler(t, nil), m, "/static/site.css")
		if rec.Code != http.StatusMethodNotAllowed {
			t.Fatalf("%s: status = %d", m, rec.Code)
		}
		if rec.Header().Get("Allow") != "GET, HEAD" {
			t.Fatalf("%s: Allow = %q", m, rec.Header().Get("Allow"))
		}
	}
}

func TestServeHTTP_NotFoundPlainText(t *testing.T) {
	for _, p := range []string{
		"/static/missing.css",
		"/static/",
		"/static/img",
		"/static/.env",
		"/static/../site.css",
		"/elsewhere.css",
	} {
		rec := serve(newTestHandler(t, nil), http.MethodGet, p)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("%s: status = %d", p, rec.Code)
		}
		if cc := rec.Header().Get("Cache-Control"); cc != "no-store" {
			t.Fatalf("%s: cache-control = %q", p, cc)
		}
	}
}

func TestServeHTTP_NotFoundDelegates(t *testing.T) {
	themed := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("<h1>themed</h1>"))
	})
	rec := serve(newTestHandler(t, themed), http.MethodGet, "/static/nope.css")
	if rec.Code != http.StatusNotFound || rec.Body.String() != "<h1>themed</h1>" {
		t.Fatalf("status=%d body=%q", rec.Code, rec.Body.String())
	}
	if cc := rec.Header().Get("Cache-Control"); cc != "no-store" {
		t.Fatalf("cache-control = %q", cc)
	}
}

func TestRegisterRoutes(t *testing.T) {
	r := chi.NewRouter()
	newTestHandler(t, nil).RegisterRoutes(r)
	for _, p := range []string{"/static/site.css", "/robots.txt", "/favicon.ico"} {
		if rec := serve(r, http.MethodGet, p); rec.Code != http.StatusOK {
			t.Fatalf("%s: status = %d", p, rec.Code)
		}
	}
	if rec := serve(r, http.MethodGet, "/site.css"); rec.Code != http.StatusNotFound {
		t.Fatalf("unmounted path served: %d", rec.Code)
	}
}
