package httpmw

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func serveSecurity(opts SecurityHeadersOptions) http.Header {
	rec := httptest.NewRecorder()
	SecurityHeaders(opts)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", http.NoBody))
	return rec.Header()
}

func TestSecurityHeaders_Defaults(t *testing.T) {
	h := serveSecurity(SecurityHeadersOptions{})
	want := map[string]string{
		"Content-Security-Policy":           DefaultCSP,
		"X-Content-Type-Options":            "nosniff",
		"X-Frame-Options":                   "DENY",
		"Referrer-Policy":                   "strict-origin-when-cross-origin",
		"X-Permitted-Cross-Domain-Policies": "none",
		"Cross-Origin-Opener-Policy":        "same-origin",
		"Cross-Origin-Resource-Policy":      "same-origin",
	}
	for k, v := range want {
		if got := h.Get(k); got != v {
			t.Errorf("%s = %q, want %q", k, got, v)
		}
	}
	if h.Get("Strict-Transport-Security") != "" {
		t.Error("HSTS set without opting in")
	}
	if h.Get("Cross-Origin-Embedder-Policy") != "" {
		t.Error("COEP would block CDN images")
	}
}

func TestSecurityHeaders_CSPAllowsImageCDN(t *testing.T) {
	if !strings.Contains(DefaultCSP, "img-src 'self' https://cdn.sanity.io") {
		t.Fatalf("CSP does not allow the image CDN: %s", DefaultCSP)
	}
	if !strings.Contains(DefaultCSP, "script-src 'none'") {
		t.Fatalf("CSP should forbid scripts: %s", DefaultCSP)
	}
}

func TestSecurityHeaders_Options(t *testing.T) {
	h := serveSecurity(SecurityHeadersOptions{CSP: "default-src 'none'", HSTS: true})
	if h.Get("Content-Security-Policy") != "default-src 'none'" {
		t.Fatalf("CSP = %q", h.Get("Content-Security-Policy"))
	}
	if !strings.HasPrefix(h.Get("Strict-Transport-Security"), "max-age=31536000") {
		t.Fatalf("HSTS = %q", h.Get("Strict-Transport-Security"))
	}
}
