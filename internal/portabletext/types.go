package portabletext

import (
	"encoding/json"
	"html/template"
	"strconv"
	"strings"

	bm "github.com/microcosm-cc/bluemonday"
	bf "github.com/russross/blackfriday"

	"github.com/heriman22/blog-main/internal/sanity"
)

type codeNode struct {
	Language string `json:"language"`
	Code     string `json:"code"`
	Filename string `json:"filename"`
}

type calloutNode struct {
	Tone  string `json:"tone"`
	Title string `json:"title"`
	Text  string `json:"text"`
}

type markdownNode struct {
	Markdown string `json:"markdown"`
}

func (r *Renderer) decode(rc *renderCtx, typ string, raw json.RawMessage, v any) bool {
	if err := json.Unmarshal(raw, v); err != nil {
		r.degrade(rc, DegradeDecode, "type", typ, "err", err)
		return false
	}
	return true
}

func (r *Renderer) imageURL(src *sanity.ImageSource) (string, error) {
	opts := sanity.ImageOptions{Width: ImageWidth, Height: ImageHeight}
	if r.opts.Images == nil {
		if src.Asset == nil || src.Asset.URL == "" {
			return "", sanity.ErrNoImage
		}
		return src.Asset.URL, nil
	}
	return r.opts.Images.URL(src, opts)
}

func (r *Renderer) renderImage(rc *renderCtx, raw json.RawMessage, b *strings.Builder) {
	var n sanity.ImageSource
	if !r.decode(rc, "image", raw, &n) {
		return
	}
	src, err := r.imageURL(&n)
	if err != nil {
		r.degrade(rc, DegradeImage, "err", err)
		return
	}
	alt := n.Alt
	if alt == "" {
		alt = " "
	}
	b.WriteString(`<figure class="pt-image"><img src="`)
	b.WriteString(template.HTMLEscapeString(src))
	b.WriteString(`" alt="`)
	b.WriteString(template.HTMLEscapeString(alt))
	b.WriteString(`" width="` + strconv.Itoa(ImageWidth) + `" height="` + strconv.Itoa(ImageHeight) + `"`)
	b.WriteString(` loading="lazy" sizes="(max-width: 768px) 100vw, 800px">`)
	if n.Caption != "" {
		b.WriteString("<figcaption>" + template.HTMLEscapeString(n.Caption) + "</figcaption>")
	}
	b.WriteString("</figure>")
}

func (r *Renderer) renderCode(rc *renderCtx, raw json.RawMessage, b *strings.Builder) {
	var n codeNode
	if !r.decode(rc, "code", raw, &n) {
		return
	}
	b.WriteString(`<div class="pt-code">`)
	out, err := r.code.highlight(n.Language, n.Code)
	if err != nil {
		r.degrade(rc, DegradeCode, "language", n.Language, "err", err)
		b.WriteString(`<pre class="chroma"><code>` + template.HTMLEscapeString(n.Code) + "</code></pre>")
	} else {
		b.WriteString(out)
	}
	if n.Filename != "" {
		b.WriteString(`<div class="pt-code-filename">` + template.HTMLEscapeString(n.Filename) + "</div>")
	}
	b.WriteString("</div>")
}

func (r *Renderer) renderCallout(rc *renderCtx, raw json.RawMessage, b *strings.Builder) {
	var n calloutNode
	if !r.decode(rc, "callout", raw, &n) {
		return
	}
	variant := "pt-callout--info"
	if n.Tone == "warning" {
		variant = "pt-callout--warning"
	}
	b.WriteString(`<div class="pt-callout ` + variant + `">`)
	b.WriteString(`<div class="pt-callout-title">` + template.HTMLEscapeString(n.Title) + "</div>")
	b.WriteString("<div>" + template.HTMLEscapeString(n.Text) + "</div>")
	b.WriteString("</div>")
}

func (r *Renderer) renderMarkdown(rc *renderCtx, raw json.RawMessage, b *strings.Builder) {
	var n markdownNode
	if !r.decode(rc, "markdown", raw, &n) {
		return
	}
	b.WriteString(`<div class="pt-markdown">`)
	b.Write(r.md.render([]byte(n.Markdown)))
	b.WriteString("</div>")
}

const markdownExtensions = bf.EXTENSION_TABLES |
	bf.EXTENSION_FENCED_CODE |
	bf.EXTENSION_AUTOLINK |
	bf.EXTENSION_STRIKETHROUGH |
	bf.EXTENSION_NO_INTRA_EMPHASIS

// markdownRenderer turns untrusted markdown into sanitised HTML.
type markdownRenderer struct {
	policy *bm.Policy
}

func newMarkdownRenderer() *markdownRenderer {
	p := bm.UGCPolicy()
	p.AddTargetBlankToFullyQualifiedLinks(true)
	return &markdownRenderer{policy: p}
}

func (m *markdownRenderer) render(src []byte) []byte {
	html := bf.Markdown(src, bf.HtmlRenderer(bf.HTML_USE_XHTML, "", ""), markdownExtensions)
	return m.policy.SanitizeBytes(html)
}
