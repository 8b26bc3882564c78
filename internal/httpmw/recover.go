package httpmw

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/heriman22/blog-main/internal/log"
	"github.com/heriman22/blog-main/internal/xerrors"
)

// Recover turns a handler panic into a 500 and an error log with the
// stack. onPanic, if set, runs once per recovered panic (metrics).
// http.ErrAbortHandler is re-raised so net/http can abort the connection.
func Recover(logger log.Logger, onPanic func()) func(http.Handler) http.Handler {
	if logger == nil {
		logger = log.Nop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(rec)
				}
				if onPanic != nil {
					onPanic()
				}

				var err error
				switch v := rec.(type) {
				case error:
					err = xerrors.WithStack(v)
				default:
					err = xerrors.New(fmt.Sprint(v))
				}
				ctx := r.Context()
				logger.Error(ctx, err, "panic recovered",
					"request_id", RequestIDFromContext(ctx),
					"http.request.method", r.Method,
					"url.path", r.URL.Path,
				)

				h := w.Header()
				h.Set("Content-Type", "text/plain; charset=utf-8")
				h.Set("Cache-Control", "no-store")
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte("internal server error\n"))
			}()
			next.ServeHTTP(w, r)
		})
	}
}
