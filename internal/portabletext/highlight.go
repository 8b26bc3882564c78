package portabletext

import (
	"bytes"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

const DefaultCodeStyle = "github-dark"

// highlighter emits class-based markup so the CSP can forbid inline styles.
type highlighter struct {
	style     *chroma.Style
	formatter *chromahtml.Formatter
}

func newHighlighter(style string) *highlighter {
	if style == "" {
		style = DefaultCodeStyle
	}
	return &highlighter{
		style:     styles.Get(style),
		formatter: chromahtml.New(chromahtml.WithClasses(true), chromahtml.TabWidth(4)),
	}
}

// highlight falls back to plain text for an empty or unknown language.
func (h *highlighter) highlight(language, code string) (string, error) {
	lexer := lexers.Get(language)
	if language == "" || lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	it, err := lexer.Tokenise(nil, code)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := h.formatter.Format(&buf, h.style, it); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (h *highlighter) css() ([]byte, error) {
	var buf bytes.Buffer
	if err := h.formatter.WriteCSS(&buf, h.style); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
