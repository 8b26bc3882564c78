package content

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/heriman22/blog-main/internal/cache"
	"github.com/heriman22/blog-main/internal/cryptoutil"
	"github.com/heriman22/blog-main/internal/log"
	"github.com/heriman22/blog-main/internal/xerrors"
)

const DefaultCacheTTL = 60 * time.Second

var ErrInvalidOptions = errors.New("invalid fetcher options")

// Store is the content store query surface, satisfied by *sanity.Client.
type Store interface {
	Query(ctx context.Context, expr string, params map[string]any) (json.RawMessage, error)
}

// Metrics is implemented by the metrics package.
type Metrics interface {
	CacheResult(cache string, hit bool)
	ObserveContentQuery(d time.Duration, err error)
}

type FetcherOptions struct {
	Store  Store
	Logger log.Logger
	// Cache defaults to an in-memory cache.
	Cache   cache.Cache
	TTL     time.Duration
	Metrics Metrics
	// Now defaults to time.Now; it decides what "published" means.
	Now func() time.Time
}

func (o *FetcherOptions) setDefaults() {
	if o.Logger == nil {
		o.Logger = log.Nop()
	}
	if o.Cache == nil {
		o.Cache = cache.NewMemory()
	}
	if o.TTL <= 0 {
		o.TTL = DefaultCacheTTL
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// Fetcher serves store queries through a cache keyed by query and
// parameters. Within the TTL an identical request never reaches the store.
type Fetcher struct {
	opts   FetcherOptions
	tracer trace.Tracer
}

func NewFetcher(opts FetcherOptions) (*Fetcher, error) {
	if opts.Store == nil {
		return nil, xerrors.Newf("%w: store is required", ErrInvalidOptions)
	}
	opts.setDefaults()
	return &Fetcher{opts: opts, tracer: otel.Tracer("blog-main/content")}, nil
}

// cacheKey hashes expr and params; encoding/json sorts map keys so equal
// params give equal keys.
func cacheKey(expr string, params map[string]any) (string, error) {
	p, err := json.Marshal(params)
	if err != nil {
		return "", err
	}
	return cryptoutil.SHA256HexParts([]byte(expr), p), nil
}

// Fetch returns the raw query result, from cache when fresh.
func (f *Fetcher) Fetch(ctx context.Context, expr string, params map[string]any) (json.RawMessage, error) {
	ctx, span := f.tracer.Start(ctx, "content.Fetch", trace.WithAttributes(attribute.String("content.query", expr)))
	defer span.End()

	key, err := cacheKey(expr, params)
	if err != nil {
		span.SetStatus(codes.Error, "encode params")
		return nil, &RetrievalError{Op: "fetch", Err: xerrors.Wrap(err, "encode params")}
	}

	raw, ok, err := f.opts.Cache.Get(ctx, key)
	if err != nil {
		// a broken cache only costs a store round trip
		f.opts.Logger.Warn(ctx, "content cache read failed", "err", err)
	}
	if ok {
		f.cacheResult(true)
		span.SetAttributes(attribute.Bool("content.cache_hit", true))
		return json.RawMessage(raw), nil
	}
	f.cacheResult(false)
	span.SetAttributes(attribute.Bool("content.cache_hit", false))

	start := time.Now()
	res, err := f.opts.Store.Query(ctx, expr, params)
	if f.opts.Metrics != nil {
		f.opts.Metrics.ObserveContentQuery(time.Since(start), err)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "query failed")
		return nil, &RetrievalError{Op: "fetch", Err: err}
	}

	if err := f.opts.Cache.Set(ctx, key, res, f.opts.TTL); err != nil {
		f.opts.Logger.Warn(ctx, "content cache write failed", "err", err)
	}
	return res, nil
}

func (f *Fetcher) cacheResult(hit bool) {
	if f.opts.Metrics != nil {
		f.opts.Metrics.CacheResult("content", hit)
	}
}

// Purge drops every cached result. The revalidation webhook calls it before
// invalidating pages so regenerated pages see fresh content.
func (f *Fetcher) Purge(ctx context.Context) error {
	return f.opts.Cache.Purge(ctx)
}

// PostBySlug returns nil, nil when no post has that slug.
func (f *Fetcher) PostBySlug(ctx context.Context, slug string) (*Post, error) {
	raw, err := f.Fetch(ctx, QueryPostBySlug, map[string]any{"slug": slug})
	if err != nil {
		return nil, err
	}
	var p *Post
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, &RetrievalError{Op: "post by slug", Err: xerrors.Wrap(err, "decode post")}
	}
	return p, nil
}

// PublishedPosts returns posts published at or before now, newest first.
// The store query already filters and orders; doing it again here keeps
// the guarantee when the store is a CDN replica or a stub. Posts whose
// publishedAt does not parse are dropped.
func (f *Fetcher) PublishedPosts(ctx context.Context) ([]Post, error) {
	raw, err := f.Fetch(ctx, QueryPublishedPosts, nil)
	if err != nil {
		return nil, err
	}
	var posts []Post
	if err := json.Unmarshal(raw, &posts); err != nil {
		return nil, &RetrievalError{Op: "published posts", Err: xerrors.Wrap(err, "decode posts")}
	}
	return publishedBefore(posts, f.opts.Now()), nil
}

func publishedBefore(posts []Post, now time.Time) []Post {
	type dated struct {
		post Post
		at   time.Time
	}
	kept := make([]dated, 0, len(posts))
	for _, p := range posts {
		at, ok := p.Published()
		if !ok || at.After(now) {
			continue
		}
		kept = append(kept, dated{p, at})
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].at.After(kept[j].at) })

	out := make([]Post, len(kept))
	for i, d := range kept {
		out[i] = d.post
	}
	return out
}

// PostSlugs lists every post slug, for the sitemap.
func (f *Fetcher) PostSlugs(ctx context.Context) ([]string, error) {
	raw, err := f.Fetch(ctx, QueryPostSlugs, nil)
	if err != nil {
		return nil, err
	}
	var slugs []string
	if err := json.Unmarshal(raw, &slugs); err != nil {
		return nil, &RetrievalError{Op: "post slugs", Err: xerrors.Wrap(err, "decode slugs")}
	}
	out := slugs[:0]
	for _, s := range slugs {
		if s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}
