package pagecache

import (
	"bytes"
	"net/http"
	"strings"
)

// headers copied into a stored page
var keptHeaders = []string{"Content-Type", "Content-Language", "Cache-Control", "Link"}

// Middleware serves GET and HEAD from the cache by decoded URL path and
// stores 200 responses that did not opt out with Cache-Control: no-store.
// X-Cache reports HIT or MISS.
func (c *Cache) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			next.ServeHTTP(w, r)
			return
		}
		ctx := r.Context()
		key := Key(r.URL.Path)

		if p, ok := c.load(ctx, key); ok {
			c.result(true)
			h := w.Header()
			for k, v := range p.Header {
				h[k] = v
			}
			h.Set("X-Cache", "HIT")
			w.WriteHeader(p.Status)
			if r.Method != http.MethodHead {
				_, _ = w.Write(p.Body)
			}
			return
		}
		c.result(false)

		w.Header().Set("X-Cache", "MISS")
		rec := &recorder{ResponseWriter: w, limit: c.opts.MaxBodyBytes}
		next.ServeHTTP(rec, r)

		// HEAD has no body to keep
		if r.Method != http.MethodGet || !rec.cacheable() {
			return
		}
		c.store(ctx, key, &page{Status: rec.status, Header: rec.kept(), Body: rec.buf.Bytes()})
	})
}

// recorder writes through to the client and keeps a copy of the body.
type recorder struct {
	http.ResponseWriter
	status   int
	buf      bytes.Buffer
	limit    int
	overflow bool
}

func (r *recorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *recorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	if !r.overflow {
		if r.buf.Len()+len(b) > r.limit {
			r.overflow = true
			r.buf.Reset()
		} else {
			r.buf.Write(b)
		}
	}
	return r.ResponseWriter.Write(b)
}

func (r *recorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

func (r *recorder) cacheable() bool {
	if r.status != http.StatusOK || r.overflow {
		return false
	}
	h := r.Header()
	if h.Get("Set-Cookie") != "" {
		return false
	}
	return !strings.Contains(strings.ToLower(h.Get("Cache-Control")), "no-store")
}

func (r *recorder) kept() http.Header {
	out := make(http.Header, len(keptHeaders))
	for _, k := range keptHeaders {
		if v := r.Header().Values(k); len(v) > 0 {
			out[k] = append([]string(nil), v...)
		}
	}
	return out
}
