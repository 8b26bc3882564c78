// Package portabletext renders Portable Text rich content, the block
// format the CMS stores post bodies in, to HTML.
//
// Rendering never fails. Anything the renderer does not understand is
// dropped (unknown node types) or rendered neutrally (unknown styles and
// marks), and reported through Options.OnDegrade.
package portabletext

import (
	"context"
	"encoding/json"
	"html/template"
	"strings"

	"github.com/heriman22/blog-main/internal/log"
	"github.com/heriman22/blog-main/internal/sanity"
)

// Degradation kinds passed to OnDegrade.
const (
	DegradeUnknownType = "unknown_type"
	DegradeDecode      = "decode"
	DegradeStyle       = "style"
	DegradeMark        = "mark"
	DegradeList        = "list"
	DegradeImage       = "image"
	DegradeCode        = "code"
)

// Body image size.
const (
	ImageWidth  = 800
	ImageHeight = 500
)

// ImageURLer is satisfied by *sanity.ImageBuilder.
type ImageURLer interface {
	URL(src *sanity.ImageSource, opts sanity.ImageOptions) (string, error)
}

type Options struct {
	Images ImageURLer
	Logger log.Logger
	// OnDegrade is called once per dropped or neutralised node.
	OnDegrade func(kind string)
	// CodeStyle names the chroma style used for the syntax stylesheet.
	CodeStyle string
}

// Renderer is safe for concurrent use.
type Renderer struct {
	opts  Options
	types map[string]typeRenderer
	code  *highlighter
	md    *markdownRenderer
}

// typeRenderer renders one non-block node from its raw JSON.
type typeRenderer func(r *Renderer, rc *renderCtx, raw json.RawMessage, b *strings.Builder)

func New(opts Options) *Renderer {
	if opts.Logger == nil {
		opts.Logger = log.Nop()
	}
	r := &Renderer{
		opts: opts,
		code: newHighlighter(opts.CodeStyle),
		md:   newMarkdownRenderer(),
	}
	r.types = map[string]typeRenderer{
		"image":    (*Renderer).renderImage,
		"code":     (*Renderer).renderCode,
		"callout":  (*Renderer).renderCallout,
		"markdown": (*Renderer).renderMarkdown,
	}
	return r
}

// renderCtx carries per-call state.
type renderCtx struct {
	ctx context.Context
}

func (r *Renderer) degrade(rc *renderCtx, kind string, kv ...any) {
	if r.opts.OnDegrade != nil {
		r.opts.OnDegrade(kind)
	}
	r.opts.Logger.Debug(rc.ctx, "portable text degraded", append([]any{"kind", kind}, kv...)...)
}

// nodeHead is the part of every node needed for dispatch and list grouping.
type nodeHead struct {
	Type     string `json:"_type"`
	ListItem string `json:"listItem"`
	Level    int    `json:"level"`
}

// Render converts body to HTML. A nil or empty body renders as "".
func (r *Renderer) Render(ctx context.Context, body []json.RawMessage) template.HTML {
	rc := &renderCtx{ctx: ctx}
	heads := make([]nodeHead, len(body))
	for i, raw := range body {
		if err := json.Unmarshal(raw, &heads[i]); err != nil {
			heads[i] = nodeHead{Type: ""}
			r.degrade(rc, DegradeDecode, "index", i, "err", err)
		}
	}

	var b strings.Builder
	for i := 0; i < len(body); {
		h := heads[i]
		if h.Type == "block" && h.ListItem != "" {
			n := listRun(heads[i:])
			r.renderLists(rc, body[i:i+n], &b)
			i += n
			continue
		}
		switch {
		case h.Type == "block":
			r.renderBlock(rc, body[i], &b)
		case h.Type == "":
			// undecodable, already reported
		default:
			if tr, ok := r.types[h.Type]; ok {
				tr(r, rc, body[i], &b)
			} else {
				r.degrade(rc, DegradeUnknownType, "type", h.Type)
			}
		}
		i++
	}
	// content is escaped or sanitised piecewise above
	return template.HTML(b.String())
}

// listRun counts consecutive list item blocks starting at heads[0].
func listRun(heads []nodeHead) int {
	n := 0
	for n < len(heads) && heads[n].Type == "block" && heads[n].ListItem != "" {
		n++
	}
	return n
}

// SyntaxCSS returns the stylesheet for highlighted code blocks.
func (r *Renderer) SyntaxCSS() ([]byte, error) {
	return r.code.css()
}
