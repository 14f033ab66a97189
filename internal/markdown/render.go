// Package markdown renders a yarddoc.ProjectDoc into cross-linked
// markdown pages: one page per namespace plus an index page, each
// opened by a machine-readable YAML frontmatter block.
package markdown

import (
	"bytes"
	"embed"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"
	"sync"
	"text/template"
	"time"

	"braces.dev/errtrace"
	"gopkg.in/yaml.v3"

	"github.com/yard2md/yard2md/internal/nstree"
	"github.com/yard2md/yard2md/internal/relative"
	"github.com/yard2md/yard2md/internal/yarddoc"
)

//go:embed tmpl/*.md
var _tmplFS embed.FS

// Unusable function references at parse time,
// replaced via Clone and Funcs at render time.
// This way, template validity is still verified at init.
var (
	_namespaceTmpl = template.Must(
		template.New("namespace.md").
			Funcs((*render)(nil).FuncMap()).
			ParseFS(_tmplFS, "tmpl/namespace.md", "tmpl/method.md"),
	)

	_indexTmpl = template.Must(
		template.New("index.md").
			Funcs((*render)(nil).FuncMap()).
			ParseFS(_tmplFS, "tmpl/index.md"),
	)
)

// IndexPage is the output-relative path of the project index page.
const IndexPage = "index.md"

// NamespacePage returns the output-relative page path for a
// namespace: one file per namespace, nested by scope.
func NamespacePage(nsPath string) string {
	return strings.ReplaceAll(nsPath, "::", "/") + ".md"
}

// Highlighter renders Ruby code blocks as embedded HTML.
type Highlighter interface {
	Highlight(string) (string, error)
}

// Renderer renders namespaces and the project index into markdown.
type Renderer struct {
	// Project is the model being rendered. Cross-links resolve
	// against its namespace paths.
	Project *yarddoc.ProjectDoc

	// Highlighter, if non-nil, renders code blocks as highlighted
	// HTML instead of fenced code blocks.
	Highlighter Highlighter

	// Links maps namespace prefixes to URL templates for types
	// documented outside this project.
	Links *nstree.Root[*template.Template]

	once  sync.Once
	known map[string]struct{}
}

func (r *Renderer) init() {
	r.once.Do(func() {
		r.known = make(map[string]struct{}, len(r.Project.Namespaces))
		for _, ns := range r.Project.Namespaces {
			r.known[ns.Path] = struct{}{}
		}
	})
}

type nsFrontmatter struct {
	Name       string  `yaml:"name"`
	Path       string  `yaml:"path"`
	Kind       string  `yaml:"kind"`
	Superclass string  `yaml:"superclass,omitempty"`
	SourceFile string  `yaml:"source_file,omitempty"`
	SourceLine int     `yaml:"source_line,omitempty"`
	RBSFile    string  `yaml:"rbs_file,omitempty"`
	Deprecated *string `yaml:"deprecated,omitempty"`
}

type indexFrontmatter struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description,omitempty"`
	GeneratedAt string `yaml:"generated_at"`
	Namespaces  int    `yaml:"namespaces"`
}

// RenderNamespace writes one namespace page.
func (r *Renderer) RenderNamespace(w io.Writer, ns *yarddoc.NamespaceDoc) error {
	r.init()

	err := writeFrontmatter(w, nsFrontmatter{
		Name:       ns.Name,
		Path:       ns.Path,
		Kind:       string(ns.Kind),
		Superclass: ns.Superclass,
		SourceFile: ns.File,
		SourceLine: ns.Line,
		RBSFile:    ns.RBSFile,
		Deprecated: ns.Deprecated,
	})
	if err != nil {
		return err
	}

	rd := render{r: r, from: pageDir(NamespacePage(ns.Path))}
	tmpl := template.Must(_namespaceTmpl.Clone()).Funcs(rd.FuncMap())
	return errtrace.Wrap(tmpl.ExecuteTemplate(w, "namespace.md", ns))
}

// RenderIndex writes the project index page.
func (r *Renderer) RenderIndex(w io.Writer) error {
	r.init()

	err := writeFrontmatter(w, indexFrontmatter{
		Title:       r.Project.Title,
		Description: r.Project.Description,
		GeneratedAt: r.Project.GeneratedAt.UTC().Format(time.RFC3339),
		Namespaces:  len(r.Project.Namespaces),
	})
	if err != nil {
		return err
	}

	rd := render{r: r}
	tmpl := template.Must(_indexTmpl.Clone()).Funcs(rd.FuncMap())
	return errtrace.Wrap(tmpl.ExecuteTemplate(w, "index.md", r.Project))
}

func writeFrontmatter(w io.Writer, v any) error {
	body, err := yaml.Marshal(v)
	if err != nil {
		return errtrace.Wrap(err)
	}
	_, err = fmt.Fprintf(w, "---\n%s---\n\n", body)
	return errtrace.Wrap(err)
}

func pageDir(page string) string {
	if dir := path.Dir(page); dir != "." {
		return dir
	}
	return ""
}

// render carries per-page state for template functions:
// links are relative to the page being rendered.
type render struct {
	r    *Renderer
	from string
}

func (rd *render) FuncMap() template.FuncMap {
	return template.FuncMap{
		"page": rd.page,
		"link": rd.link,
		"typ":  rd.typeExpr,
		"code": rd.code,
	}
}

func (rd *render) page(nsPath string) string {
	return relative.Path(rd.from, NamespacePage(nsPath))
}

// link renders a namespace reference: a relative link for project
// namespaces, an external link when a URL template covers the path,
// and a plain code span otherwise.
func (rd *render) link(nsPath string) string {
	if _, ok := rd.r.known[nsPath]; ok {
		return "[" + nsPath + "](" + rd.page(nsPath) + ")"
	}
	if url, ok := rd.external(nsPath); ok {
		return "[" + nsPath + "](" + url + ")"
	}
	return "`" + nsPath + "`"
}

// linkData is the execution context for external URL templates.
type linkData struct {
	// Path is the fully qualified namespace path.
	Path string

	// Name is the last path segment.
	Name string
}

func (rd *render) external(nsPath string) (string, bool) {
	links := rd.r.Links
	if links == nil {
		return "", false
	}
	tmpl, ok := links.Lookup(nsPath)
	if !ok {
		return "", false
	}

	name := nsPath
	if idx := strings.LastIndex(nsPath, "::"); idx >= 0 {
		name = nsPath[idx+2:]
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, linkData{Path: nsPath, Name: name}); err != nil {
		return "", false
	}
	return buf.String(), true
}

var _constRe = regexp.MustCompile(`[A-Z]\w*(?:::[A-Z]\w*)*`)

// typeExpr renders a type expression, linkifying any constant token
// that names a known or externally mapped namespace. Expressions
// with no linkable tokens stay whole as a code span.
func (rd *render) typeExpr(typ string) string {
	if typ == "" {
		return ""
	}

	linked := false
	out := _constRe.ReplaceAllStringFunc(typ, func(tok string) string {
		if _, ok := rd.r.known[tok]; ok {
			linked = true
			return "[" + tok + "](" + rd.page(tok) + ")"
		}
		if url, ok := rd.external(tok); ok {
			linked = true
			return "[" + tok + "](" + url + ")"
		}
		return tok
	})
	if !linked {
		return "`" + typ + "`"
	}
	return out
}

func (rd *render) code(src string) string {
	src = strings.TrimRight(src, "\n")
	if h := rd.r.Highlighter; h != nil {
		if out, err := h.Highlight(src + "\n"); err == nil {
			return strings.TrimRight(out, "\n")
		}
	}
	return "```ruby\n" + src + "\n```"
}
