package pages

import (
	"html/template"
	"io"
	"io/fs"
	"sync/atomic"

	"github.com/heriman22/blog-main/internal/xerrors"
)

// Template names. Each page file defines "content" and is parsed together
// with layout.html, which defines "layout".
const (
	layoutFile = "layout.html"

	TemplateHome     = "home.html"
	TemplateBlog     = "blog.html"
	TemplatePost     = "post.html"
	TemplateNotFound = "notfound.html"
)

var pageFiles = []string{TemplateHome, TemplateBlog, TemplatePost, TemplateNotFound}

type templateSet map[string]*template.Template

func parseSet(fsys fs.FS) (templateSet, error) {
	set := make(templateSet, len(pageFiles))
	for _, name := range pageFiles {
		t, err := template.New(name).ParseFS(fsys, layoutFile, name)
		if err != nil {
			return nil, xerrors.Wrapf(err, "parse template %s", name)
		}
		if t.Lookup("layout") == nil || t.Lookup("content") == nil {
			return nil, xerrors.Newf("template %s: layout or content block missing", name)
		}
		set[name] = t
	}
	return set, nil
}

// Templates holds the active template set. Reload swaps it atomically, so
// requests in flight finish with the set they started with.
type Templates struct {
	active atomic.Pointer[templateSet]
}

func NewTemplates(fsys fs.FS) (*Templates, error) {
	t := &Templates{}
	if err := t.Reload(fsys); err != nil {
		return nil, err
	}
	return t, nil
}

// Reload parses every page from fsys. On error the previous set stays active.
func (t *Templates) Reload(fsys fs.FS) error {
	set, err := parseSet(fsys)
	if err != nil {
		return err
	}
	t.active.Store(&set)
	return nil
}

// Execute renders page name with data. w may hold partial output on error.
func (t *Templates) Execute(w io.Writer, name string, data any) error {
	set := t.active.Load()
	if set == nil {
		return xerrors.New("templates not loaded")
	}
	tmpl, ok := (*set)[name]
	if !ok {
		return xerrors.Newf("unknown template %q", name)
	}
	if err := tmpl.ExecuteTemplate(w, "layout", data); err != nil {
		return xerrors.Wrapf(err, "execute template %s", name)
	}
	return nil
}
