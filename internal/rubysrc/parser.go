package rubysrc

import (
	"context"
	"io"
	"log"
	"os"
	"regexp"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/ruby"
)

// Parser builds the documentation graph from Ruby sources
// using tree-sitter.
type Parser struct {
	// Log receives warnings for files that cannot be read or
	// parsed. If nil, warnings are dropped.
	Log *log.Logger
}

// ParseFiles parses the given files into a Project.
// Unreadable or unparseable files are skipped with a warning.
func (p *Parser) ParseFiles(ctx context.Context, paths []string) (*Project, error) {
	logger := p.Log
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	sp := sitter.NewParser()
	sp.SetLanguage(ruby.GetLanguage())

	proj := &Project{}
	for _, path := range paths {
		src, err := os.ReadFile(path)
		if err != nil {
			logger.Printf("warning: skipping %s: %v", path, err)
			continue
		}

		tree, err := sp.ParseCtx(ctx, nil, src)
		if err != nil {
			logger.Printf("warning: cannot parse %s: %v", path, err)
			continue
		}

		file := &File{Path: path}
		fp := &fileParse{path: path, src: src}
		fp.body(tree.RootNode(), nil, "")
		file.Namespaces = fp.top
		tree.Close()

		proj.Files = append(proj.Files, file)
	}
	return proj, nil
}

// fileParse is the per-file parsing state.
type fileParse struct {
	path string
	src  []byte

	// top collects namespaces declared at file level.
	top []*Namespace
}

func (fp *fileParse) text(n *sitter.Node) string {
	return string(fp.src[n.StartByte():n.EndByte()])
}

// body walks one body scope (program, class body, or block body),
// collecting declarations into owner. A nil owner is file level.
func (fp *fileParse) body(node *sitter.Node, owner *Namespace, path string) {
	var (
		pending    []*sitter.Node // contiguous comment run
		lastRow    = -2
		visibility = "public"
	)

	takeDoc := func(n *sitter.Node) Doc {
		defer func() { pending = nil }()
		if len(pending) == 0 {
			return Doc{}
		}
		if int(pending[len(pending)-1].StartPoint().Row)+1 != int(n.StartPoint().Row) {
			return Doc{}
		}
		lines := make([]string, len(pending))
		for i, c := range pending {
			lines[i] = commentBody(fp.text(c))
		}
		return ParseDoc(lines)
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "comment":
			row := int(child.StartPoint().Row)
			if row != lastRow+1 {
				pending = nil
			}
			pending = append(pending, child)
			lastRow = row
			continue

		case "class", "module":
			fp.namespace(child, owner, path, takeDoc(child))

		case "method":
			fp.method(child, owner, ScopeInstance, visibility, takeDoc(child))

		case "singleton_method":
			fp.method(child, owner, ScopeClass, visibility, takeDoc(child))

		case "assignment":
			fp.assignment(child, owner, path, takeDoc(child))

		case "call":
			visibility = fp.call(child, owner, visibility, takeDoc(child))

		case "identifier":
			// a bare visibility modifier parses as a lone identifier
			if owner != nil {
				switch fp.text(child) {
				case "private", "protected", "public":
					visibility = fp.text(child)
				}
			}

		case "body_statement":
			// block bodies nest one level down
			fp.body(child, owner, path)

		default:
			pending = nil
		}
		pending = nil
	}
}

func (fp *fileParse) addNamespace(owner *Namespace, ns *Namespace) {
	if owner == nil {
		fp.top = append(fp.top, ns)
	} else {
		owner.Children = append(owner.Children, ns)
	}
}

func (fp *fileParse) namespace(node *sitter.Node, owner *Namespace, path string, doc Doc) {
	var name, superclass string
	var bodyNode *sitter.Node

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "constant", "scope_resolution":
			if name == "" {
				name = fp.text(child)
			}
		case "superclass":
			for j := 0; j < int(child.ChildCount()); j++ {
				sc := child.Child(j)
				if sc.Type() == "constant" || sc.Type() == "scope_resolution" {
					superclass = fp.text(sc)
				}
			}
		case "body_statement":
			bodyNode = child
		}
	}
	if name == "" {
		return // class << self and friends
	}

	kind := KindClass
	if node.Type() == "module" {
		kind = KindModule
	}

	ns := &Namespace{
		Name:       name,
		Path:       joinPath(path, name),
		Kind:       kind,
		Superclass: superclass,
		Doc:        doc,
		File:       fp.path,
		Line:       int(node.StartPoint().Row) + 1,
		EndLine:    int(node.EndPoint().Row) + 1,
	}
	fp.addNamespace(owner, ns)

	if bodyNode != nil {
		fp.body(bodyNode, ns, ns.Path)
	}
}

func (fp *fileParse) method(node *sitter.Node, owner *Namespace, scope Scope, visibility string, doc Doc) *Method {
	if owner == nil {
		return nil // top-level defs are not documented entities
	}

	var name string
	var paramsNode *sitter.Node
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "identifier", "constant", "operator", "setter":
			// for singleton methods the first identifier is "self";
			// the method name is the last one before the parameters
			if child.Type() == "identifier" && fp.text(child) == "self" && name == "" {
				continue
			}
			if name == "" || paramsNode == nil {
				name = fp.text(child)
			}
		case "method_parameters":
			paramsNode = child
		}
	}
	if name == "" {
		return nil
	}
	if node.Type() == "singleton_method" {
		scope = ScopeClass
	}

	m := &Method{
		Name:       name,
		Scope:      scope,
		Visibility: visibility,
		Doc:        doc,
		Source:     fp.text(node),
		File:       fp.path,
		Line:       int(node.StartPoint().Row) + 1,
	}
	if paramsNode != nil {
		m.Params = fp.params(paramsNode)
		m.Signature = name + collapseWhitespace(fp.text(paramsNode))
	} else {
		m.Signature = name
	}

	owner.Methods = append(owner.Methods, m)
	return m
}

func (fp *fileParse) params(node *sitter.Node) []Param {
	var out []Param
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "identifier":
			out = append(out, Param{Name: fp.text(child)})
		case "optional_parameter", "keyword_parameter":
			out = append(out, fp.defaultedParam(child))
		case "splat_parameter":
			out = append(out, fp.sigilParam(child, "*"))
		case "hash_splat_parameter":
			out = append(out, fp.sigilParam(child, "**"))
		case "block_parameter":
			out = append(out, fp.sigilParam(child, "&"))
		}
	}
	return out
}

func (fp *fileParse) defaultedParam(node *sitter.Node) Param {
	var p Param
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child.Type() == "identifier" && p.Name == "" {
			p.Name = fp.text(child)
			continue
		}
		p.Default = fp.text(child)
	}
	return p
}

func (fp *fileParse) sigilParam(node *sitter.Node, prefix string) Param {
	p := Param{Prefix: prefix}
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child.Type() == "identifier" {
			p.Name = fp.text(child)
		}
	}
	return p
}

// assignment handles constant assignments: either a Data.define /
// Struct.new value-object class, or a plain documented constant.
func (fp *fileParse) assignment(node *sitter.Node, owner *Namespace, path string, doc Doc) {
	var left, right *sitter.Node
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if left == nil {
			left = child
		} else {
			right = child
		}
	}
	if left == nil || right == nil || left.Type() != "constant" {
		return
	}
	name := fp.text(left)

	if fields, block, super, ok := fp.valueObject(right); ok {
		ns := &Namespace{
			Name:       name,
			Path:       joinPath(path, name),
			Kind:       KindClass,
			Superclass: super,
			Synthetic:  true,
			Doc:        doc,
			File:       fp.path,
			Line:       int(node.StartPoint().Row) + 1,
			EndLine:    int(node.EndPoint().Row) + 1,
		}
		if len(fields) > 0 {
			ns.Attrs = append(ns.Attrs, &AttrDecl{
				Kind:  "reader",
				Names: fields,
				Line:  ns.Line,
			})
		}
		fp.addNamespace(owner, ns)
		if block != nil {
			fp.body(block, ns, ns.Path)
		}
		return
	}

	if owner == nil {
		return
	}
	owner.Constants = append(owner.Constants, &Constant{
		Name:  name,
		Value: collapseWhitespace(fp.text(right)),
		Doc:   doc,
		Line:  int(node.StartPoint().Row) + 1,
	})
}

// valueObject recognizes Data.define(...) and Struct.new(...) calls,
// returning the declared member names and the trailing block body.
func (fp *fileParse) valueObject(node *sitter.Node) (fields []string, block *sitter.Node, super string, ok bool) {
	if node.Type() != "call" {
		return nil, nil, "", false
	}

	var receiver, method string
	var args, doBlock *sitter.Node
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "constant":
			receiver = fp.text(child)
		case "identifier":
			method = fp.text(child)
		case "argument_list":
			args = child
		case "do_block", "block":
			doBlock = child
		}
	}

	switch {
	case receiver == "Data" && method == "define":
		super = "Data"
	case receiver == "Struct" && method == "new":
		super = "Struct"
	default:
		return nil, nil, "", false
	}

	if args != nil {
		for i := 0; i < int(args.NamedChildCount()); i++ {
			arg := args.NamedChild(i)
			if arg.Type() == "simple_symbol" {
				fields = append(fields, strings.TrimPrefix(fp.text(arg), ":"))
			}
		}
	}

	if doBlock != nil {
		for i := 0; i < int(doBlock.ChildCount()); i++ {
			if c := doBlock.Child(i); c.Type() == "body_statement" || c.Type() == "block_body" {
				block = c
			}
		}
		if block == nil {
			block = doBlock
		}
	}
	return fields, block, super, true
}

// call handles bare method calls in a namespace body:
// attr declarations, mixins, and visibility modifiers.
// It returns the (possibly updated) default visibility.
func (fp *fileParse) call(node *sitter.Node, owner *Namespace, visibility string, doc Doc) string {
	if owner == nil {
		return visibility
	}

	var method string
	var args *sitter.Node
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "identifier":
			if method == "" {
				method = fp.text(child)
			}
		case "argument_list":
			args = child
		}
	}

	switch method {
	case "attr_reader", "attr_writer", "attr_accessor":
		decl := &AttrDecl{
			Kind:  strings.TrimPrefix(method, "attr_"),
			Names: fp.symbolArgs(args),
			Doc:   doc,
			Line:  int(node.StartPoint().Row) + 1,
		}
		if len(decl.Names) > 0 {
			owner.Attrs = append(owner.Attrs, decl)
		}

	case "include", "extend":
		for _, name := range fp.constantArgs(args) {
			if method == "include" {
				owner.Includes = append(owner.Includes, name)
			} else {
				owner.Extends = append(owner.Extends, name)
			}
		}

	case "private", "protected", "public":
		if args == nil {
			return method
		}
		// private :foo, :bar retroactively adjusts those methods;
		// private def foo ... declares one inline.
		for _, sym := range fp.symbolArgs(args) {
			for _, m := range owner.Methods {
				if m.Name == sym {
					m.Visibility = method
				}
			}
		}
		for i := 0; i < int(args.NamedChildCount()); i++ {
			child := args.NamedChild(i)
			if child.Type() == "method" {
				fp.method(child, owner, ScopeInstance, method, doc)
			}
		}
	}

	return visibility
}

func (fp *fileParse) symbolArgs(args *sitter.Node) []string {
	if args == nil {
		return nil
	}
	var out []string
	for i := 0; i < int(args.NamedChildCount()); i++ {
		child := args.NamedChild(i)
		if child.Type() == "simple_symbol" {
			out = append(out, strings.TrimPrefix(fp.text(child), ":"))
		}
	}
	return out
}

func (fp *fileParse) constantArgs(args *sitter.Node) []string {
	if args == nil {
		return nil
	}
	var out []string
	for i := 0; i < int(args.NamedChildCount()); i++ {
		child := args.NamedChild(i)
		if child.Type() == "constant" || child.Type() == "scope_resolution" {
			out = append(out, fp.text(child))
		}
	}
	return out
}

// commentBody strips the comment marker and at most one following
// space from a comment line.
func commentBody(s string) string {
	s = strings.TrimPrefix(s, "#")
	return strings.TrimPrefix(s, " ")
}

func joinPath(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "::" + name
}

var _wsRe = regexp.MustCompile(`\s+`)

func collapseWhitespace(s string) string {
	return strings.TrimSpace(_wsRe.ReplaceAllString(s, " "))
}
