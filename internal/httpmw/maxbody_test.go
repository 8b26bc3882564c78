package httpmw

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestMaxBody(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		limit   int64
		wantErr bool
	}{
		{"under limit", `{"_type":"post"}`, 64, false},
		{"at limit", strings.Repeat("x", 16), 16, false},
		{"over limit", strings.Repeat("x", 17), 16, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var readErr error
			h := MaxBody(tt.limit)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, readErr = io.ReadAll(r.Body)
			}))
			h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/revalidate", strings.NewReader(tt.body)))

			var mbe *http.MaxBytesError
			if got := errors.As(readErr, &mbe); got != tt.wantErr {
				t.Fatalf("MaxBytesError = %v, want %v (err %v)", got, tt.wantErr, readErr)
			}
		})
	}
}

func TestMaxBody_NoBody(t *testing.T) {
	h := MaxBody(1)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != http.NoBody {
			t.Fatal("NoBody was wrapped")
		}
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", http.NoBody))
}
