package portabletext

import (
	"encoding/json"
	"html/template"
	"net/url"
	"sort"
	"strings"
)

type block struct {
	Style    string    `json:"style"`
	ListItem string    `json:"listItem"`
	Level    int       `json:"level"`
	Children []span    `json:"children"`
	MarkDefs []markDef `json:"markDefs"`
}

type span struct {
	Type  string   `json:"_type"`
	Text  string   `json:"text"`
	Marks []string `json:"marks"`
}

type markDef struct {
	Key  string `json:"_key"`
	Type string `json:"_type"`
	Href string `json:"href"`
}

// style -> element
var blockStyles = map[string]string{
	"normal":     "p",
	"h1":         "h1",
	"h2":         "h2",
	"h3":         "h3",
	"h4":         "h4",
	"h5":         "h5",
	"h6":         "h6",
	"blockquote": "blockquote",
}

type tagPair struct{ open, close string }

var decorators = map[string]tagPair{
	"strong":         {"<strong>", "</strong>"},
	"em":             {"<em>", "</em>"},
	"code":           {"<code>", "</code>"},
	"underline":      {`<span class="underline">`, "</span>"},
	"strike-through": {"<s>", "</s>"},
}

// tie-break order when two marks span equally far
var decoratorOrder = []string{"strong", "em", "code", "underline", "strike-through"}

var listTags = map[string]tagPair{
	"bullet": {"<ul>", "</ul>"},
	"number": {"<ol>", "</ol>"},
}

func (r *Renderer) decodeBlock(rc *renderCtx, raw json.RawMessage) (block, bool) {
	var bl block
	if err := json.Unmarshal(raw, &bl); err != nil {
		r.degrade(rc, DegradeDecode, "type", "block", "err", err)
		return block{}, false
	}
	return bl, true
}

func (r *Renderer) renderBlock(rc *renderCtx, raw json.RawMessage, b *strings.Builder) {
	bl, ok := r.decodeBlock(rc, raw)
	if !ok {
		return
	}
	style := bl.Style
	if style == "" {
		style = "normal"
	}
	tag, ok := blockStyles[style]
	if !ok {
		r.degrade(rc, DegradeStyle, "style", style)
		tag = "p"
	}
	b.WriteString("<" + tag + ">")
	r.renderSpans(rc, bl, b)
	b.WriteString("</" + tag + ">")
}

// --- lists ---

type list struct {
	kind  string
	level int
	items []*listItem
}

type listItem struct {
	block block
	sub   []*list
}

func itemLevel(bl block) int {
	if bl.Level < 1 {
		return 1
	}
	return bl.Level
}

// buildList nests items by level into one top-level list. It returns the
// number of items consumed; the rest start a new top-level list.
func buildList(items []block) (*list, int) {
	root := &list{kind: items[0].ListItem, level: itemLevel(items[0])}
	stack := []*list{root}
	push := func(parent *listItem, it block) {
		nl := &list{kind: it.ListItem, level: itemLevel(it)}
		parent.sub = append(parent.sub, nl)
		stack = append(stack, nl)
		nl.items = append(nl.items, &listItem{block: it})
	}

	for i, it := range items {
		lvl := itemLevel(it)
		for len(stack) > 1 && stack[len(stack)-1].level > lvl {
			stack = stack[:len(stack)-1]
		}
		top := stack[len(stack)-1]
		switch {
		case i == 0:
			root.items = append(root.items, &listItem{block: it})
		case lvl > top.level:
			push(top.items[len(top.items)-1], it)
		case lvl == top.level && it.ListItem == top.kind:
			top.items = append(top.items, &listItem{block: it})
		case len(stack) == 1:
			return root, i
		default:
			// same depth, different kind: sibling list under the same parent item
			stack = stack[:len(stack)-1]
			parent := stack[len(stack)-1]
			push(parent.items[len(parent.items)-1], it)
		}
	}
	return root, len(items)
}

func (r *Renderer) renderLists(rc *renderCtx, raws []json.RawMessage, b *strings.Builder) {
	items := make([]block, 0, len(raws))
	for _, raw := range raws {
		if bl, ok := r.decodeBlock(rc, raw); ok {
			items = append(items, bl)
		}
	}
	for len(items) > 0 {
		l, n := buildList(items)
		r.renderList(rc, l, b)
		items = items[n:]
	}
}

func (r *Renderer) renderList(rc *renderCtx, l *list, b *strings.Builder) {
	tags, ok := listTags[l.kind]
	if !ok {
		r.degrade(rc, DegradeList, "listItem", l.kind)
		tags = listTags["bullet"]
	}
	b.WriteString(tags.open)
	for _, it := range l.items {
		b.WriteString("<li>")
		r.renderSpans(rc, it.block, b)
		for _, sub := range it.sub {
			r.renderList(rc, sub, b)
		}
		b.WriteString("</li>")
	}
	b.WriteString(tags.close)
}

// --- spans and marks ---

type openMark struct {
	key   string
	close string
}

// renderSpans writes the block's text, nesting marks so a mark shared by
// adjacent spans opens once around all of them.
func (r *Renderer) renderSpans(rc *renderCtx, bl block, b *strings.Builder) {
	defs := make(map[string]markDef, len(bl.MarkDefs))
	for _, d := range bl.MarkDefs {
		defs[d.Key] = d
	}

	spans := make([]span, 0, len(bl.Children))
	for _, s := range bl.Children {
		if s.Type != "" && s.Type != "span" {
			r.degrade(rc, DegradeUnknownType, "type", s.Type, "inline", true)
			continue
		}
		s.Marks = dedupe(s.Marks)
		spans = append(spans, s)
	}

	var open []openMark
	for i, s := range spans {
		needed := sortMarksByRun(s.Marks, spans[i+1:])

		keep := 0
		for keep < len(open) {
			idx := indexOf(needed, open[keep].key)
			if idx < 0 {
				break
			}
			needed = append(needed[:idx:idx], needed[idx+1:]...)
			keep++
		}
		for j := len(open) - 1; j >= keep; j-- {
			b.WriteString(open[j].close)
		}
		open = open[:keep]

		for _, m := range needed {
			tags := r.markTags(rc, m, defs)
			b.WriteString(tags.open)
			open = append(open, openMark{key: m, close: tags.close})
		}
		writeText(b, s.Text)
	}
	for j := len(open) - 1; j >= 0; j-- {
		b.WriteString(open[j].close)
	}
}

// markTags resolves a decorator or an annotation key. Unknown marks get
// empty tags, which unwraps their children.
func (r *Renderer) markTags(rc *renderCtx, mark string, defs map[string]markDef) tagPair {
	if t, ok := decorators[mark]; ok {
		return t
	}
	def, ok := defs[mark]
	if !ok || def.Type != "link" {
		r.degrade(rc, DegradeMark, "mark", mark)
		return tagPair{}
	}
	if !safeHref(def.Href) {
		r.degrade(rc, DegradeMark, "mark", "link", "href", def.Href)
		return tagPair{}
	}
	href := template.HTMLEscapeString(def.Href)
	if strings.HasPrefix(def.Href, "/") {
		return tagPair{`<a href="` + href + `">`, "</a>"}
	}
	return tagPair{`<a href="` + href + `" target="_blank" rel="noopener noreferrer">`, "</a>"}
}

func safeHref(href string) bool {
	if href == "" {
		return false
	}
	u, err := url.Parse(href)
	if err != nil {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "", "http", "https", "mailto", "tel":
		return true
	}
	return false
}

// sortMarksByRun orders marks by how many following spans carry them,
// longest first, then known decorators, then by name.
func sortMarksByRun(marks []string, rest []span) []string {
	out := append([]string(nil), marks...)
	run := make(map[string]int, len(out))
	for _, m := range out {
		n := 1
		for _, s := range rest {
			if indexOf(s.Marks, m) < 0 {
				break
			}
			n++
		}
		run[m] = n
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, c := out[i], out[j]
		if run[a] != run[c] {
			return run[a] > run[c]
		}
		pa, pc := decoratorRank(a), decoratorRank(c)
		if pa != pc {
			return pa < pc
		}
		return a < c
	})
	return out
}

func decoratorRank(m string) int {
	if i := indexOf(decoratorOrder, m); i >= 0 {
		return i
	}
	return len(decoratorOrder)
}

func indexOf(ss []string, s string) int {
	for i, v := range ss {
		if v == s {
			return i
		}
	}
	return -1
}

func dedupe(ss []string) []string {
	out := ss[:0:0]
	for _, s := range ss {
		if indexOf(out, s) < 0 {
			out = append(out, s)
		}
	}
	return out
}

// writeText escapes s and turns newlines into <br/>.
func writeText(b *strings.Builder, s string) {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if i > 0 {
			b.WriteString("<br/>")
		}
		b.WriteString(template.HTMLEscapeString(line))
	}
}
