// Package pagecache keeps rendered pages so repeat visits skip the content
// store and the renderer. Entries live until their TTL passes or a
// revalidation removes them.
package pagecache

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/heriman22/blog-main/internal/cache"
	"github.com/heriman22/blog-main/internal/log"
	"github.com/heriman22/blog-main/internal/xerrors"
)

const DefaultTTL = 60 * time.Second

// Invalidator marks a site path stale so its next request regenerates it.
// Implementations must be idempotent.
type Invalidator interface {
	Invalidate(ctx context.Context, path string) error
}

// Metrics is implemented by the metrics package.
type Metrics interface {
	CacheResult(cache string, hit bool)
}

type Options struct {
	// Store defaults to an in-memory cache.
	Store   cache.Cache
	TTL     time.Duration
	Logger  log.Logger
	Metrics Metrics
	// MaxBodyBytes caps what is kept per page; larger pages are served but not stored.
	MaxBodyBytes int
}

type Cache struct {
	opts Options
}

func New(opts Options) *Cache {
	if opts.Store == nil {
		opts.Store = cache.NewMemory()
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Logger == nil {
		opts.Logger = log.Nop()
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 2 << 20
	}
	return &Cache{opts: opts}
}

// page is the stored form of a response.
type page struct {
	Status int         `json:"status"`
	Header http.Header `json:"header"`
	Body   []byte      `json:"body"`
}

// Key normalises a request path: "/blog/" and "/blog" share an entry.
func Key(path string) string {
	if path == "" {
		return "/"
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
		if path == "" {
			return "/"
		}
	}
	return path
}

func (c *Cache) Invalidate(ctx context.Context, path string) error {
	if err := c.opts.Store.Delete(ctx, Key(path)); err != nil {
		return xerrors.Wrapf(err, "invalidate %s", path)
	}
	return nil
}

// Purge drops every page, used after templates change.
func (c *Cache) Purge(ctx context.Context) error {
	return c.opts.Store.Purge(ctx)
}

func (c *Cache) load(ctx context.Context, key string) (*page, bool) {
	raw, ok, err := c.opts.Store.Get(ctx, key)
	if err != nil {
		c.opts.Logger.Warn(ctx, "page cache read failed", "path", key, "err", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var p page
	if err := json.Unmarshal(raw, &p); err != nil {
		_ = c.opts.Store.Delete(ctx, key)
		return nil, false
	}
	return &p, true
}

func (c *Cache) store(ctx context.Context, key string, p *page) {
	raw, err := json.Marshal(p)
	if err != nil {
		return
	}
	if err := c.opts.Store.Set(ctx, key, raw, c.opts.TTL); err != nil {
		c.opts.Logger.Warn(ctx, "page cache write failed", "path", key, "err", err)
	}
}

func (c *Cache) result(hit bool) {
	if c.opts.Metrics != nil {
		c.opts.Metrics.CacheResult("page", hit)
	}
}
