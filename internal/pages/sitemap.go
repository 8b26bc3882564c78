package pages

import (
	"bytes"
	"encoding/xml"
	"net/http"
	"strconv"
)

const sitemapNS = "http://www.sitemaps.org/schemas/sitemap/0.9"

type urlset struct {
	XMLName xml.Name     `xml:"urlset"`
	NS      string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc string `xml:"loc"`
}

// Sitemap lists the home page, the listing and every post slug.
func (c *Composer) Sitemap(slugs []string) ([]byte, error) {
	set := urlset{NS: sitemapNS}
	set.URLs = append(set.URLs, sitemapURL{c.opts.SiteURL + "/"}, sitemapURL{c.opts.SiteURL + "/blog"})
	for _, s := range slugs {
		if s == "" {
			continue
		}
		set.URLs = append(set.URLs, sitemapURL{c.opts.SiteURL + PostPath(s)})
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(set); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func (c *Composer) handleSitemap(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	slugs, err := c.opts.Posts.PostSlugs(ctx)
	if err != nil {
		c.opts.Logger.Error(ctx, err, "sitemap: retrieve slugs")
		w.Header().Set("Cache-Control", "no-store")
		http.Error(w, "sitemap temporarily unavailable", http.StatusServiceUnavailable)
		return
	}
	body, err := c.Sitemap(slugs)
	if err != nil {
		c.opts.Logger.Error(ctx, err, "sitemap: encode")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	h := w.Header()
	h.Set("Content-Type", "application/xml; charset=utf-8")
	h.Set("Cache-Control", pageCacheControl)
	h.Set("Content-Length", strconv.Itoa(len(body)))
	if r.Method != http.MethodHead {
		_, _ = w.Write(body)
	}
}
