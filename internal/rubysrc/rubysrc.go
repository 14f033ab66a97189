// Package rubysrc parses Ruby source files into a navigable
// documentation graph: classes, modules, methods, constants, and
// their attached comment documentation with YARD tags parsed out.
//
// The graph is read-only input for semantic extraction; nothing
// downstream mutates it.
package rubysrc

import "strings"

// Kind distinguishes class and module namespaces.
type Kind string

const (
	KindClass  Kind = "class"
	KindModule Kind = "module"
)

// Scope distinguishes instance methods from class methods.
type Scope string

const (
	ScopeInstance Scope = "instance"
	ScopeClass    Scope = "class"
)

// Project is the graph built from a set of Ruby files.
type Project struct {
	Files []*File
}

// AllNamespaces returns every namespace in the project,
// outer before inner, in file order.
func (p *Project) AllNamespaces() []*Namespace {
	var out []*Namespace
	for _, f := range p.Files {
		for _, ns := range f.Namespaces {
			out = appendNamespaces(out, ns)
		}
	}
	return out
}

func appendNamespaces(out []*Namespace, ns *Namespace) []*Namespace {
	out = append(out, ns)
	for _, child := range ns.Children {
		out = appendNamespaces(out, child)
	}
	return out
}

// File groups the top-level namespaces of one source file.
type File struct {
	Path       string
	Namespaces []*Namespace
}

// Namespace is a class or module declaration.
type Namespace struct {
	// Name as written at the declaration,
	// possibly multi-part ("Foo::Bar").
	Name string

	// Path is the fully qualified namespace path.
	Path string

	Kind       Kind
	Superclass string

	// Synthetic marks value-object classes created by
	// Data.define / Struct.new rather than a class keyword.
	Synthetic bool

	Doc Doc

	Includes []string
	Extends  []string

	Children  []*Namespace
	Methods   []*Method
	Constants []*Constant
	Attrs     []*AttrDecl

	File    string
	Line    int
	EndLine int
}

// Method is one method definition.
type Method struct {
	Name       string
	Scope      Scope
	Visibility string // "public", "protected", or "private"

	Params []Param

	Doc Doc

	// Signature is the source-level call shape, e.g. "save(name, age = nil)".
	Signature string

	// Source is the verbatim definition snippet.
	Source string

	File string
	Line int
}

// Param is one declared method parameter.
type Param struct {
	// Name without its sigil.
	Name string

	// Default is the literal default-value source text, if any.
	Default string

	// Prefix is "*", "**", or "&" for splat, keyword-splat,
	// and block parameters.
	Prefix string
}

// Constant is one constant assignment.
type Constant struct {
	Name  string
	Value string
	Doc   Doc
	Line  int
}

// AttrDecl is one attr_reader/attr_writer/attr_accessor call.
type AttrDecl struct {
	Kind  string // "reader", "writer", or "accessor"
	Names []string
	Doc   Doc
	Line  int
}

// Doc is a documentation comment block: free text plus parsed tags.
type Doc struct {
	// Text is the docstring with tag lines removed.
	Text string

	// Tags are the parsed YARD tags, in order of appearance.
	Tags []Tag
}

// Tag returns the first tag with the given name, if any.
func (d Doc) Tag(name string) (Tag, bool) {
	for _, tag := range d.Tags {
		if tag.Name == name {
			return tag, true
		}
	}
	return Tag{}, false
}

// TagsNamed returns all tags with the given name, in order.
func (d Doc) TagsNamed(name string) []Tag {
	var out []Tag
	for _, tag := range d.Tags {
		if tag.Name == name {
			out = append(out, tag)
		}
	}
	return out
}

// Tag is one parsed YARD tag.
type Tag struct {
	// Name is the tag name without '@': "param", "return", ...
	Name string

	// Arg is the tag's name argument where the tag takes one:
	// the parameter name for @param and @yieldparam,
	// the structured parameter name for @option.
	Arg string

	// Key is the option key for @option tags, without the ':'.
	Key string

	// Types are the bracketed type names, e.g. ["String", "nil"].
	Types []string

	// Text is the free-text remainder, including continuation lines.
	Text string
}

// Type returns the first declared type, or "".
func (t Tag) Type() string {
	if len(t.Types) == 0 {
		return ""
	}
	return t.Types[0]
}

// JoinedTypes renders the declared types as a single expression,
// multiple prose alternatives joining into an RBS-style union.
func (t Tag) JoinedTypes() string {
	return strings.Join(t.Types, " | ")
}
