package opshttp

import (
	"net/http"

	"github.com/heriman22/blog-main/internal/health"
)

type Options struct {
	Port         int
	Metrics      http.Handler
	EnablePprof  bool
	Health       health.Probe
	Readiness    health.Probe
	UseRecoverMW bool
	OnPanic      func() // called after a recovered panic, e.g. to bump http_panic_total
	// AllowPublic skips the private-network check. Only for tests and
	// deployments where the admin port is firewalled some other way.
	AllowPublic bool
}
