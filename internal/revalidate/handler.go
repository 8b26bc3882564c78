// Package revalidate is the CMS webhook: it authenticates the caller,
// works out which pages a content change affects and invalidates them.
package revalidate

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/heriman22/blog-main/internal/cryptoutil"
	"github.com/heriman22/blog-main/internal/log"
	"github.com/heriman22/blog-main/internal/pagecache"
	"github.com/heriman22/blog-main/internal/xerrors"
)

const (
	Route        = "/api/revalidate"
	SecretHeader = "x-webhook-secret"

	DefaultMaxBodyBytes = 256 << 10
)

// Outcomes passed to Metrics.Revalidation.
const (
	OutcomeOK           = "ok"
	OutcomeUnauthorized = "unauthorized"
	OutcomeBadRequest   = "bad_request"
	OutcomeError        = "error"
)

// Metrics is implemented by the metrics package.
type Metrics interface {
	Revalidation(outcome string, paths int)
}

type Options struct {
	// Secret is compared with the x-webhook-secret header. Empty rejects every request.
	Secret      string
	Invalidator pagecache.Invalidator
	// BeforeInvalidate runs before any path is invalidated, e.g. to drop
	// cached queries. A page regenerated after its invalidation must not
	// read query results older than the change.
	BeforeInvalidate func(ctx context.Context) error
	Logger           log.Logger
	Metrics          Metrics
	MaxBodyBytes     int64
	// Middleware wraps only the webhook route, e.g. a stricter rate limit.
	Middleware []func(http.Handler) http.Handler
}

type Handler struct {
	opts Options
}

func New(opts Options) (*Handler, error) {
	if opts.Invalidator == nil {
		return nil, xerrors.New("revalidate: invalidator is required")
	}
	if opts.Logger == nil {
		opts.Logger = log.Nop()
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	return &Handler{opts: opts}, nil
}

// RegisterRoutes attaches POST /api/revalidate.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.With(h.opts.Middleware...).Post(Route, h.ServeHTTP)
}

// event is the webhook body. Only _type and slug.current are read.
type event struct {
	Type string `json:"_type"`
	Slug *struct {
		Current string `json:"current"`
	} `json:"slug"`
}

type response struct {
	Revalidated *bool    `json:"revalidated,omitempty"`
	Message     string   `json:"message"`
	Paths       []string `json:"paths,omitempty"`
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	L := log.FromContext(ctx)

	if !h.authorized(r.Header.Get(SecretHeader)) {
		L.Warn(ctx, "revalidation rejected: invalid secret")
		h.record(OutcomeUnauthorized, 0)
		h.writeJSON(ctx, w, http.StatusUnauthorized, response{Message: "Invalid secret"})
		return
	}

	var ev event
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.opts.MaxBodyBytes))
	if err := dec.Decode(&ev); err != nil {
		L.Error(ctx, xerrors.Wrap(err, "decode webhook body"), "revalidation failed")
		h.record(OutcomeBadRequest, 0)
		h.fail(ctx, w)
		return
	}

	slug := ""
	if ev.Slug != nil {
		slug = ev.Slug.Current
	}
	paths := SelectPaths(ev.Type, slug).Paths()

	if h.opts.BeforeInvalidate != nil {
		if err := h.opts.BeforeInvalidate(ctx); err != nil {
			// stale queries still expire with their TTL
			L.Warn(ctx, "pre-invalidation hook failed", "err", err)
		}
	}
	for _, p := range paths {
		if err := h.opts.Invalidator.Invalidate(ctx, p); err != nil {
			L.Error(ctx, err, "revalidation failed", "path", p)
			h.record(OutcomeError, 0)
			h.fail(ctx, w)
			return
		}
	}

	L.Info(ctx, "revalidation triggered", "document_type", ev.Type, "slug", slug, "paths", paths)
	h.record(OutcomeOK, len(paths))
	ok := true
	h.writeJSON(ctx, w, http.StatusOK, response{Revalidated: &ok, Message: "Revalidation triggered", Paths: paths})
}

func (h *Handler) authorized(got string) bool {
	return cryptoutil.SecretEqual(got, h.opts.Secret)
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter) {
	no := false
	h.writeJSON(ctx, w, http.StatusInternalServerError, response{Revalidated: &no, Message: "Error revalidating"})
}

func (h *Handler) record(outcome string, paths int) {
	if h.opts.Metrics != nil {
		h.opts.Metrics.Revalidation(outcome, paths)
	}
}

func (h *Handler) writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.opts.Logger.Warn(ctx, "failed to encode JSON response", "err", err)
	}
}
