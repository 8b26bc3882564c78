package content

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/heriman22/blog-main/internal/sanity"
)

// GROQ queries used by the site.
const (
	QueryPostBySlug     = `*[_type == "post" && slug.current == $slug][0]`
	QueryPublishedPosts = `*[_type == "post" && publishedAt <= now()] | order(publishedAt desc)`
	QueryPostSlugs      = `*[_type == "post" && defined(slug.current)].slug.current`
)

type Slug struct {
	Current string `json:"current"`
}

// Post is a "post" document. Body is kept as raw nodes for the renderer.
type Post struct {
	ID          string              `json:"_id"`
	Type        string              `json:"_type"`
	Title       string              `json:"title"`
	Slug        Slug                `json:"slug"`
	PublishedAt string              `json:"publishedAt,omitempty"`
	MainImage   *sanity.ImageSource `json:"mainImage,omitempty"`
	Excerpt     string              `json:"excerpt,omitempty"`
	Body        []json.RawMessage   `json:"body,omitempty"`
}

var publishedLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04", "2006-01-02"}

// Published parses PublishedAt. ok is false when it is absent or malformed.
func (p Post) Published() (t time.Time, ok bool) {
	s := strings.TrimSpace(p.PublishedAt)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range publishedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
