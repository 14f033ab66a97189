// Package highlight renders Ruby source snippets into highlighted
// HTML blocks using the Chroma library. The markdown renderer embeds
// these blocks when inline HTML output is requested; otherwise it
// falls back to plain fenced code blocks and this package is unused.
package highlight

import (
	"bytes"
	"io"
	"sync"

	"braces.dev/errtrace"
	chroma "github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
)

// Highlighter turns Ruby source text into HTML.
type Highlighter struct {
	// Style used for syntax highlighting of code.
	// Defaults to [PlainStyle].
	Style *chroma.Style

	// UseClasses specifies whether the highlighter
	// uses inline 'style' attributes for highlighting,
	// or classes, assuming use of an appropriate style sheet.
	UseClasses bool

	once      sync.Once
	lexer     chroma.Lexer
	formatter *chromahtml.Formatter
}

func (h *Highlighter) init() {
	h.once.Do(func() {
		if h.Style == nil {
			h.Style = PlainStyle
		}
		h.lexer = chroma.Coalesce(lexers.Get("ruby"))
		h.formatter = chromahtml.New(
			chromahtml.WithClasses(h.UseClasses),
		)
	})
}

// WriteCSS writes the style classes for this highlighter to writer.
// If this highlighter is not using classes, WriteCSS is a no-op.
func (h *Highlighter) WriteCSS(w io.Writer) error {
	h.init()

	if !h.UseClasses {
		return nil
	}
	return errtrace.Wrap(h.formatter.WriteCSS(w, h.Style))
}

// Highlight renders one Ruby snippet as an HTML code block.
func (h *Highlighter) Highlight(src string) (string, error) {
	h.init()

	it, err := h.lexer.Tokenise(nil, src)
	if err != nil {
		return "", errtrace.Wrap(err)
	}

	var buf bytes.Buffer
	if err := h.formatter.Format(&buf, h.Style, it); err != nil {
		return "", errtrace.Wrap(err)
	}
	return buf.String(), nil
}
