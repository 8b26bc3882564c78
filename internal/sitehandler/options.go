package sitehandler

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"strings"

	"github.com/heriman22/blog-main/internal/log"
)

var ErrInvalidOptions = errors.New("invalid sitehandler options")

type Options struct {
	Logger log.Logger
	// Static is served under Prefix.
	Static fs.FS
	Prefix string // default: "/static/"

	// RootFiles maps top-level URL paths onto files in Static,
	// e.g. "/robots.txt" -> "robots.txt".
	RootFiles map[string]string

	// NotFound renders missing files. Nil serves plain text.
	NotFound http.Handler

	// Cache policies applied by file extension.
	HTMLCacheControl  string // default: "no-cache"
	AssetCacheControl string // default: "public, max-age=86400"
	OtherCacheControl string // default: "public, max-age=3600"
}

// DefaultRootFiles are the files browsers and crawlers expect at the root.
var DefaultRootFiles = map[string]string{
	"/favicon.ico": "favicon.ico",
	"/robots.txt":  "robots.txt",
}

func (o *Options) setDefaults() {
	if o.Logger == nil {
		o.Logger = log.Nop()
	}
	if o.Prefix == "" {
		o.Prefix = "/static/"
	}
	if !strings.HasSuffix(o.Prefix, "/") {
		o.Prefix += "/"
	}
	if o.RootFiles == nil {
		o.RootFiles = DefaultRootFiles
	}
	if o.HTMLCacheControl == "" {
		o.HTMLCacheControl = "no-cache"
	}
	if o.AssetCacheControl == "" {
		o.AssetCacheControl = "public, max-age=86400"
	}
	if o.OtherCacheControl == "" {
		o.OtherCacheControl = "public, max-age=3600"
	}
}

func (o *Options) validate() error {
	if o.Static == nil {
		return fmt.Errorf("%w: Static is nil", ErrInvalidOptions)
	}
	if !strings.HasPrefix(o.Prefix, "/") || o.Prefix == "/" {
		return fmt.Errorf("%w: Prefix %q must be a rooted sub-path", ErrInvalidOptions, o.Prefix)
	}
	// fail fast on boot if mispackaged
	for route, name := range o.RootFiles {
		if !existsFile(o.Static, name) {
			return fmt.Errorf("%w: %s maps to missing file %q", ErrInvalidOptions, route, name)
		}
	}
	return nil
}
