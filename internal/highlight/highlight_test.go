package highlight

import (
	"bytes"
	"strings"
	"testing"

	"github.com/andybalholm/cascadia"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

const _snippet = "def save(name)\n  @name = name\nend\n"

func TestHighlighterHighlight(t *testing.T) {
	t.Parallel()

	var h Highlighter
	out, err := h.Highlight(_snippet)
	require.NoError(t, err)

	doc, err := html.Parse(strings.NewReader(out))
	require.NoError(t, err)

	pre := cascadia.Query(doc, cascadia.MustCompile("pre"))
	require.NotNil(t, pre, "output must contain a <pre> block:\n%s", out)
	assert.Contains(t, textOf(pre), "def save(name)")

	// inline-style mode carries its styling on the elements
	assert.Contains(t, out, "style=")
}

func TestHighlighterClasses(t *testing.T) {
	t.Parallel()

	h := Highlighter{UseClasses: true}
	out, err := h.Highlight(_snippet)
	require.NoError(t, err)

	doc, err := html.Parse(strings.NewReader(out))
	require.NoError(t, err)

	pre := cascadia.Query(doc, cascadia.MustCompile("pre.chroma"))
	require.NotNil(t, pre, "class mode must tag the wrapper:\n%s", out)
	assert.NotContains(t, textOf(pre), "style=")
}

func TestHighlighterWriteCSS(t *testing.T) {
	t.Parallel()

	t.Run("classes", func(t *testing.T) {
		t.Parallel()

		h := Highlighter{UseClasses: true}
		var buf bytes.Buffer
		require.NoError(t, h.WriteCSS(&buf))
		assert.Contains(t, buf.String(), ".chroma")
	})

	t.Run("inline styles", func(t *testing.T) {
		t.Parallel()

		var h Highlighter
		var buf bytes.Buffer
		require.NoError(t, h.WriteCSS(&buf))
		assert.Empty(t, buf.String())
	})
}

func textOf(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
