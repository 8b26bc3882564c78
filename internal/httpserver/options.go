package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/heriman22/blog-main/internal/health"
	"github.com/heriman22/blog-main/internal/httpmw"
	"github.com/heriman22/blog-main/internal/log"
)

// RouteRegistrar attaches a component's routes to the public router.
type RouteRegistrar interface {
	RegisterRoutes(r chi.Router)
}

const (
	DefaultPort = 8080
	// DefaultMaxBody covers the largest legitimate body, a webhook payload.
	DefaultMaxBody int64 = 256 << 10
)

type Options struct {
	Logger       log.Logger
	Port         int
	UseRecoverMW bool
	OnPanic      func()
	MetricsMW    func(http.Handler) http.Handler
	RateLimitMW  func(http.Handler) http.Handler
	Health       health.Probe
	Readiness    health.Probe
	// Routes are registered in order; earlier patterns win on conflict.
	Routes []RouteRegistrar
	// NotFound renders unknown routes. Defaults to chi's plain 404.
	NotFound        http.Handler
	ClientIPOpts    httpmw.ClientIPOptions
	SecurityHeaders httpmw.SecurityHeadersOptions
	// MaxBody caps request bodies. Zero means DefaultMaxBody.
	MaxBody int64
}
