// Package pages composes the site's HTML pages from CMS content and
// serves them.
package pages

import (
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"strings"
	"time"

	bm "github.com/microcosm-cc/bluemonday"

	"github.com/heriman22/blog-main/internal/content"
	"github.com/heriman22/blog-main/internal/log"
	"github.com/heriman22/blog-main/internal/sanity"
)

const (
	DateLayout = "January 2, 2006"
	NoDate     = "No date"

	// posts above the fold load eagerly
	PriorityPosts = 6
)

// Image sizes per placement.
var (
	ThumbnailSize = sanity.ImageOptions{Width: 800, Height: 450}
	HeroSize      = sanity.ImageOptions{Width: 1200, Height: 675}
	OGImageSize   = sanity.ImageOptions{Width: 1200, Height: 630}
)

// Image placements passed to Metrics.ImageURLFailure.
const (
	ImageThumbnail = "thumbnail"
	ImageHero      = "hero"
	ImageOG        = "og"
)

var ErrInvalidOptions = errors.New("invalid pages options")

// PostSource is satisfied by *content.Fetcher.
type PostSource interface {
	PublishedPosts(ctx context.Context) ([]content.Post, error)
	PostBySlug(ctx context.Context, slug string) (*content.Post, error)
	PostSlugs(ctx context.Context) ([]string, error)
}

// BodyRenderer is satisfied by *portabletext.Renderer.
type BodyRenderer interface {
	Render(ctx context.Context, body []json.RawMessage) template.HTML
	SyntaxCSS() ([]byte, error)
}

// ImageURLer is satisfied by *sanity.ImageBuilder.
type ImageURLer interface {
	URL(src *sanity.ImageSource, opts sanity.ImageOptions) (string, error)
}

// Metrics is implemented by the metrics package.
type Metrics interface {
	ImageURLFailure(placement string)
}

type Options struct {
	Posts     PostSource
	Body      BodyRenderer
	Images    ImageURLer
	Templates *Templates
	Logger    log.Logger
	Metrics   Metrics

	SiteName string
	// SiteURL prefixes canonical and sitemap URLs.
	SiteURL string
	Links   []Link

	// PageMiddleware wraps the cacheable page routes.
	PageMiddleware []func(http.Handler) http.Handler

	Now func() time.Time
}

// DefaultLinks are the contact links on the home page.
var DefaultLinks = []Link{
	{Label: "Email", Href: "mailto:herri2293@gmail.com"},
	{Label: "GitHub", Href: "https://github.com/heriman22", External: true},
	{Label: "LinkedIn", Href: "https://www.linkedin.com/in/heri-b-61502423b/", External: true},
	{Label: "huggingface", Href: "https://huggingface.co/Heriman", External: true},
	{Label: "Blog", Href: "/blog"},
}

// Composer builds Page values. It holds no per-request state.
type Composer struct {
	opts    Options
	excerpt *bm.Policy
	css     syntaxCSS
}

func NewComposer(opts Options) (*Composer, error) {
	if opts.Posts == nil || opts.Body == nil || opts.Templates == nil {
		return nil, ErrInvalidOptions
	}
	if opts.Logger == nil {
		opts.Logger = log.Nop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Links == nil {
		opts.Links = DefaultLinks
	}
	opts.SiteURL = strings.TrimRight(opts.SiteURL, "/")
	return &Composer{opts: opts, excerpt: bm.StrictPolicy()}, nil
}

func (c *Composer) page(tmpl string, meta Meta, data any) Page {
	return Page{
		Meta:     meta,
		SiteName: c.opts.SiteName,
		Year:     c.opts.Now().Year(),
		Data:     data,
		template: tmpl,
		status:   http.StatusOK,
	}
}

func (c *Composer) title(s string) string {
	if c.opts.SiteName == "" {
		return s
	}
	return s + " | " + c.opts.SiteName
}

func (c *Composer) canonical(path string) string {
	if c.opts.SiteURL == "" {
		return ""
	}
	return c.opts.SiteURL + path
}

func (c *Composer) Home() Page {
	return c.page(TemplateHome, Meta{
		Title:       c.opts.SiteName + "'s Blog",
		Description: "Personal blog by " + c.opts.SiteName + " featuring articles on web development, machine learning and software.",
		Canonical:   c.canonical("/"),
	}, HomeView{Links: c.opts.Links})
}

// Listing composes /blog. A retrieval error yields a degraded 503 page
// that must not be cached.
func (c *Composer) Listing(ctx context.Context) Page {
	meta := Meta{
		Title:       c.title("Blog"),
		Description: "Explore the latest articles and insights from " + c.opts.SiteName + " on AI, coding, and technology.",
		Canonical:   c.canonical("/blog"),
	}
	posts, err := c.opts.Posts.PublishedPosts(ctx)
	if err != nil {
		c.opts.Logger.Error(ctx, err, "listing: retrieve posts")
		p := c.page(TemplateBlog, meta, ListingView{Unavailable: true})
		p.status = http.StatusServiceUnavailable
		p.noStore = true
		return p
	}

	cards := make([]PostCard, 0, len(posts))
	for i := range posts {
		post := &posts[i]
		if post.Slug.Current == "" {
			c.opts.Logger.Debug(ctx, "listing: skipping post without slug", "id", post.ID)
			continue
		}
		alt := post.Title
		if alt == "" {
			alt = "Blog post thumbnail"
		}
		cards = append(cards, PostCard{
			Title:    post.Title,
			Href:     PostPath(post.Slug.Current),
			Date:     FormatDate(*post),
			Excerpt:  template.HTML(c.excerpt.Sanitize(post.Excerpt)),
			ImageURL: c.imageURL(ctx, post, ThumbnailSize, ImageThumbnail),
			ImageAlt: alt,
			Priority: len(cards) < PriorityPosts,
		})
	}
	return c.page(TemplateBlog, meta, ListingView{Posts: cards})
}

// Post composes /blog/{slug}. Missing posts and retrieval errors both
// yield the not-found page.
func (c *Composer) Post(ctx context.Context, slug string) Page {
	post, err := c.opts.Posts.PostBySlug(ctx, slug)
	if err != nil {
		c.opts.Logger.Error(ctx, err, "post: retrieve", "slug", slug)
	}
	if post == nil {
		return c.NotFound("Post Not Found", "The post you are looking for does not exist or has been moved.")
	}

	desc := post.Excerpt
	if desc == "" {
		desc = "Read about " + post.Title
	}
	alt := post.Title
	if alt == "" {
		alt = "Blog post image"
	}
	meta := Meta{
		Title:       c.title(post.Title),
		Description: desc,
		Canonical:   c.canonical(PostPath(post.Slug.Current)),
		OGImage:     c.imageURL(ctx, post, OGImageSize, ImageOG),
		Article:     true,
	}
	return c.page(TemplatePost, meta, PostView{
		Title:   post.Title,
		Date:    FormatDate(*post),
		HeroURL: c.imageURL(ctx, post, HeroSize, ImageHero),
		HeroAlt: alt,
		Body:    c.opts.Body.Render(ctx, post.Body),
	})
}

// NotFound composes a 404 page. It is never cached.
func (c *Composer) NotFound(heading, message string) Page {
	p := c.page(TemplateNotFound, Meta{
		Title:       c.title(heading),
		Description: message,
	}, NotFoundView{Heading: heading, Message: message})
	p.status = http.StatusNotFound
	p.noStore = true
	return p
}

// imageURL builds the post's main image URL. A failure is logged and
// counted, and the page falls back to no image.
func (c *Composer) imageURL(ctx context.Context, post *content.Post, size sanity.ImageOptions, placement string) string {
	if post.MainImage == nil {
		return ""
	}
	var (
		u   string
		err error
	)
	if c.opts.Images != nil {
		u, err = c.opts.Images.URL(post.MainImage, size)
	} else if post.MainImage.Asset != nil && post.MainImage.Asset.URL != "" {
		u = post.MainImage.Asset.URL
	} else {
		err = sanity.ErrNoImage
	}
	if err != nil {
		c.opts.Logger.Warn(ctx, "image url failed",
			"post", post.Title,
			"slug", post.Slug.Current,
			"placement", placement,
			"err", err,
		)
		if c.opts.Metrics != nil {
			c.opts.Metrics.ImageURLFailure(placement)
		}
		return ""
	}
	return u
}

// PostPath is the URL path of a post.
func PostPath(slug string) string {
	return "/blog/" + url.PathEscape(slug)
}

// FormatDate renders the publish date in the document's own offset.
func FormatDate(p content.Post) string {
	t, ok := p.Published()
	if !ok {
		return NoDate
	}
	return t.Format(DateLayout)
}
