package yarddoc

import (
	"log"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/yard2md/yard2md/internal/rbs"
	"github.com/yard2md/yard2md/internal/rubysrc"
)

// Extractor walks the parsed source graph and assembles the merged
// documentation model, reconciling prose tags against loaded RBS
// data per method.
type Extractor struct {
	// Log receives merge-conflict warnings. If nil, they are dropped.
	Log *log.Logger

	// RBS is the loaded signature data. May be nil.
	RBS *rbs.Data

	// Namespace, when set, restricts extraction to namespaces whose
	// path starts with this prefix. Excluded namespaces are omitted
	// silently.
	Namespace string

	// Changed, when non-empty, switches to partial refresh:
	// namespaces touched by these files (directly, or through a
	// contributing annotation file) are extracted in full and marked
	// NeedsRegeneration; the rest keep identity fields only.
	Changed []string

	// Specs attaches externally indexed examples and behaviors.
	// May be nil.
	Specs *SpecIndex

	// Now overrides the timestamp source. Nil means time.Now.
	Now func() time.Time
}

// Extract builds the ProjectDoc for a parsed project.
func (e *Extractor) Extract(proj *rubysrc.Project, title, description string) *ProjectDoc {
	changed := make(map[string]struct{}, len(e.Changed))
	for _, f := range e.Changed {
		changed[f] = struct{}{}
	}

	out := &ProjectDoc{
		Title:       title,
		Description: description,
		TypeAliases: make(map[string][]TypeAlias),
	}

	merger := &Merger{Log: e.Log}
	for _, file := range proj.Files {
		fd := FileDoc{Path: file.Path}
		for _, ns := range file.Namespaces {
			e.walk(ns, merger, changed, out, &fd)
		}
		if len(fd.Namespaces) > 0 {
			fd.Primary = e.primaryNamespace(file.Path, fd.Namespaces, out)
			out.Files = append(out.Files, fd)
		}
	}

	e.attachReferencedTypes(out)

	sort.Slice(out.Namespaces, func(i, j int) bool {
		return out.Namespaces[i].Path < out.Namespaces[j].Path
	})

	now := e.Now
	if now == nil {
		now = time.Now
	}
	out.GeneratedAt = now()
	return out
}

func (e *Extractor) walk(ns *rubysrc.Namespace, merger *Merger, changed map[string]struct{}, out *ProjectDoc, fd *FileDoc) {
	if e.Namespace == "" || strings.HasPrefix(ns.Path, e.Namespace) {
		doc := e.namespaceDoc(ns, merger, changed)
		out.Namespaces = append(out.Namespaces, doc)
		fd.Namespaces = append(fd.Namespaces, ns.Path)
		if len(doc.TypeAliases) > 0 {
			out.TypeAliases[doc.Path] = doc.TypeAliases
		}
	}
	for _, child := range ns.Children {
		e.walk(child, merger, changed, out, fd)
	}
}

func (e *Extractor) data() *rbs.Data {
	if e.RBS != nil {
		return e.RBS
	}
	return &rbs.Data{}
}

func (e *Extractor) namespaceDoc(ns *rubysrc.Namespace, merger *Merger, changed map[string]struct{}) NamespaceDoc {
	data := e.data()

	doc := NamespaceDoc{
		Name:       baseName(ns.Path),
		Path:       ns.Path,
		Kind:       NamespaceKind(ns.Kind),
		Superclass: ns.Superclass,
		Docstring:  ns.Doc.Text,
		Includes:   ns.Includes,
		Extends:    ns.Extends,
		File:       ns.File,
		Line:       ns.Line,
		EndLine:    ns.EndLine,
		RBSFile:    data.RBSFiles[ns.Path],
	}
	metaFromDoc(ns.Doc).apply(
		&doc.Examples, &doc.Notes, &doc.SeeAlso,
		&doc.API, &doc.Deprecated, &doc.Abstract, &doc.Since, &doc.Todo)

	if len(changed) > 0 {
		doc.NeedsRegeneration = e.needsRegeneration(ns, changed)
		if !doc.NeedsRegeneration {
			// kept for index and cross-reference purposes only
			return doc
		}
	}

	for _, c := range ns.Constants {
		doc.Constants = append(doc.Constants, ConstantDoc{
			Name:      c.Name,
			Value:     c.Value,
			Docstring: c.Doc.Text,
		})
	}

	for _, a := range data.Aliases[ns.Path] {
		doc.TypeAliases = append(doc.TypeAliases, aliasFromRBS(a))
	}

	for _, name := range sortedKeys(data.IvarTypes[ns.Path]) {
		doc.Ivars = append(doc.Ivars, IvarDoc{
			Name: name,
			Type: data.IvarTypes[ns.Path][name],
		})
	}

	for _, decl := range ns.Attrs {
		doc.Attributes = append(doc.Attributes, e.declaredAttrs(ns.Path, decl)...)
	}

	var methods []MethodDoc
	for _, m := range ns.Methods {
		methods = append(methods, e.methodDoc(ns, m, merger))
	}

	attrs, methods := synthesizeAttrs(data.AttrTypes[ns.Path], methods)
	doc.Attributes = append(doc.Attributes, attrs...)

	for _, m := range methods {
		if m.Visibility == VisibilityPrivate {
			doc.PrivateMethods = append(doc.PrivateMethods, m)
		} else {
			doc.Methods = append(doc.Methods, m)
		}
	}
	return doc
}

// needsRegeneration reports whether any changed file contributes to
// this namespace, either as its defining source file or as a source
// of inline annotations.
func (e *Extractor) needsRegeneration(ns *rubysrc.Namespace, changed map[string]struct{}) bool {
	if _, ok := changed[ns.File]; ok {
		return true
	}
	for f := range changed {
		for _, path := range e.data().FileNamespaces[f] {
			if path == ns.Path {
				return true
			}
		}
	}
	return false
}

// declaredAttrs expands one attr_reader/writer/accessor declaration.
func (e *Extractor) declaredAttrs(nsPath string, decl *rubysrc.AttrDecl) []AttributeDoc {
	mode := AttrModeReadWrite
	switch decl.Kind {
	case "reader":
		mode = AttrModeRead
	case "writer":
		mode = AttrModeWrite
	}

	types := e.data().AttrTypes[nsPath]
	out := make([]AttributeDoc, 0, len(decl.Names))
	for _, name := range decl.Names {
		ti := types[name]
		out = append(out, AttributeDoc{
			Name:        name,
			Type:        ti.Type,
			Description: mergeDesc(decl.Doc.Text, ti.Desc),
			Mode:        mode,
		})
	}
	return out
}

func (e *Extractor) methodDoc(ns *rubysrc.Namespace, m *rubysrc.Method, merger *Merger) MethodDoc {
	data := e.data()

	key, sep := m.Name, "#"
	scope := ScopeInstance
	if m.Scope == rubysrc.ScopeClass {
		key, sep = "self."+m.Name, "."
		scope = ScopeClass
	}
	where := ns.Path + sep + m.Name
	sig, _ := data.Signature(ns.Path, key)

	doc := MethodDoc{
		Name:         m.Name,
		Scope:        scope,
		Visibility:   Visibility(m.Visibility),
		Signature:    m.Signature,
		Docstring:    m.Doc.Text,
		RBSSignature: sig.Raw,
		File:         m.File,
		Line:         m.Line,
	}
	metaFromDoc(m.Doc).apply(
		&doc.Examples, &doc.Notes, &doc.SeeAlso,
		&doc.API, &doc.Deprecated, &doc.Abstract, &doc.Since, &doc.Todo)

	doc.Params = merger.MergeParams(proseParams(m), sig, where)
	doc.Options = extractOptions(m.Doc, sig)

	var ret *ReturnDoc
	if tag, ok := m.Doc.Tag("return"); ok {
		ret = &ReturnDoc{Type: tag.JoinedTypes(), Description: tag.Text}
	}
	doc.Returns = merger.MergeReturn(ret, sig, where, m.Name == "initialize")

	doc.Yields = extractYield(m.Doc, sig)
	doc.Raises = extractRaises(m.Doc, sig)

	for _, raw := range data.MethodOverloads(ns.Path, key) {
		doc.Overloads = append(doc.Overloads, OverloadDoc{Signature: raw})
	}

	doc.Source, doc.SourceBodyLines, doc.AttrType =
		condenseSource(m.Name, len(m.Params), m.Source)

	if entry, ok := e.Specs.Lookup(where); ok {
		doc.SpecExamples = entry.Examples
		doc.SpecBehaviors = entry.Behaviors
	}
	return doc
}

// proseParams builds the parameter list from the declared parameters
// and their @param tags, matched by name.
func proseParams(m *rubysrc.Method) []ParamDoc {
	tags := make(map[string]rubysrc.Tag)
	for _, tag := range m.Doc.TagsNamed("param") {
		tags[strings.TrimLeft(tag.Arg, "*&")] = tag
	}

	out := make([]ParamDoc, 0, len(m.Params))
	for _, p := range m.Params {
		pd := ParamDoc{Name: p.Name, Default: p.Default, Prefix: p.Prefix}
		if tag, ok := tags[p.Name]; ok {
			pd.Type = tag.JoinedTypes()
			pd.Description = tag.Text
		}
		out = append(out, pd)
	}
	return out
}

// extractOptions maps @option tags, overriding each key's type from
// the formal record type of the structured parameter when one exists.
func extractOptions(doc rubysrc.Doc, sig rbs.Signature) []OptionDoc {
	var out []OptionDoc
	for _, tag := range doc.TagsNamed("option") {
		od := OptionDoc{
			ParamName:   tag.Arg,
			Key:         tag.Key,
			Type:        tag.JoinedTypes(),
			Description: tag.Text,
		}
		if ti, ok := sig.Param(tag.Arg); ok {
			if formal, ok := rbs.ParseRecordType(ti.Type)[od.Key]; ok {
				od.Type = formal
			}
		}
		out = append(out, od)
	}
	return out
}

// extractYield builds the block contract from @yield-family tags and
// the formal block signature. Prose block parameters are matched to
// formal positional types by index; excess prose entries keep their
// prose types.
func extractYield(doc rubysrc.Doc, sig rbs.Signature) *YieldDoc {
	yieldTag, hasYield := doc.Tag("yield")
	paramTags := doc.TagsNamed("yieldparam")
	retTag, hasRet := doc.Tag("yieldreturn")
	block, hasBlock := sig.Param(rbs.BlockParam)

	if !hasYield && len(paramTags) == 0 && !hasRet && !hasBlock {
		return nil
	}

	y := &YieldDoc{}
	if hasYield {
		y.Description = yieldTag.Text
	}
	for _, tag := range paramTags {
		y.Params = append(y.Params, ParamDoc{
			Name:        tag.Arg,
			Type:        tag.JoinedTypes(),
			Description: tag.Text,
		})
	}
	if hasRet {
		y.ReturnType = retTag.JoinedTypes()
		y.ReturnDesc = retTag.Text
	}

	if hasBlock {
		y.BlockType = block.Type
		if bt, ok := rbs.ParseBlockType(block.Type); ok {
			for i := range y.Params {
				if i < len(bt.ParamTypes) {
					y.Params[i].Type = bt.ParamTypes[i]
				}
			}
			if bt.ReturnType != "" {
				y.ReturnType = bt.ReturnType
			}
		}
	}
	return y
}

// extractRaises unions @raise tags with the formal raises entry,
// de-duplicated by exception type.
func extractRaises(doc rubysrc.Doc, sig rbs.Signature) []RaiseDoc {
	var out []RaiseDoc
	seen := make(map[string]struct{})
	for _, tag := range doc.TagsNamed("raise") {
		typ := tag.JoinedTypes()
		if _, ok := seen[typ]; ok {
			continue
		}
		seen[typ] = struct{}{}
		out = append(out, RaiseDoc{Type: typ, Description: tag.Text})
	}
	if sig.Raises != "" {
		if _, ok := seen[sig.Raises]; !ok {
			out = append(out, RaiseDoc{Type: sig.Raises})
		}
	}
	return out
}

// synthesizeAttrs folds trivial accessor methods into logical
// attributes: a reader "x" and a writer "x=" over the same field
// become one read_write attribute and leave the method lists.
func synthesizeAttrs(types map[string]rbs.TypeInfo, methods []MethodDoc) ([]AttributeDoc, []MethodDoc) {
	type pair struct {
		reader *MethodDoc
		writer *MethodDoc
	}
	var order []string
	pairs := make(map[string]*pair)

	record := func(field string) *pair {
		p, ok := pairs[field]
		if !ok {
			p = &pair{}
			pairs[field] = p
			order = append(order, field)
		}
		return p
	}

	var rest []MethodDoc
	for i := range methods {
		m := methods[i]
		switch m.AttrType {
		case AttrReader:
			record(m.Name).reader = &m
		case AttrWriter:
			record(strings.TrimSuffix(m.Name, "=")).writer = &m
		default:
			rest = append(rest, m)
		}
	}

	var attrs []AttributeDoc
	for _, field := range order {
		p := pairs[field]
		attr := AttributeDoc{
			Name:   field,
			Mode:   AttrModeReadWrite,
			Reader: p.reader,
			Writer: p.writer,
		}
		switch {
		case p.writer == nil:
			attr.Mode = AttrModeRead
		case p.reader == nil:
			attr.Mode = AttrModeWrite
		}

		if ti, ok := types[field]; ok {
			attr.Type = ti.Type
			attr.Description = ti.Desc
		}
		if attr.Type == "" && p.reader != nil && p.reader.Returns != nil {
			attr.Type = p.reader.Returns.Type
		}
		if attr.Type == "" && p.writer != nil && len(p.writer.Params) > 0 {
			attr.Type = p.writer.Params[0].Type
		}
		if attr.Description == "" {
			switch {
			case p.reader != nil && p.reader.Docstring != "":
				attr.Description = p.reader.Docstring
			case p.writer != nil:
				attr.Description = p.writer.Docstring
			}
		}
		attrs = append(attrs, attr)
	}
	return attrs, rest
}

var _typeWordRe = regexp.MustCompile(`\w+`)

// attachReferencedTypes scans every method's parameter and return
// type strings for known alias names, project-wide, and attaches the
// matching alias definitions to each namespace.
func (e *Extractor) attachReferencedTypes(out *ProjectDoc) {
	byName := make(map[string]TypeAlias)
	for _, aliases := range e.data().Aliases {
		for _, a := range aliases {
			byName[a.Name] = aliasFromRBS(a)
		}
	}
	if len(byName) == 0 {
		return
	}

	for i := range out.Namespaces {
		ns := &out.Namespaces[i]

		found := make(map[string]TypeAlias)
		scan := func(typ string) {
			for _, tok := range _typeWordRe.FindAllString(typ, -1) {
				if a, ok := byName[tok]; ok {
					found[a.Name] = a
				}
			}
		}
		for _, list := range [][]MethodDoc{ns.Methods, ns.PrivateMethods} {
			for _, m := range list {
				for _, p := range m.Params {
					scan(p.Type)
				}
				if m.Returns != nil {
					scan(m.Returns.Type)
				}
			}
		}

		for _, name := range sortedKeys(found) {
			ns.ReferencedTypes = append(ns.ReferencedTypes, found[name])
		}
	}
}

// primaryNamespace picks a file's primary namespace: a name matching
// the file's base name wins, then modules over classes, then the
// shortest path, then the most members.
func (e *Extractor) primaryNamespace(path string, nsPaths []string, out *ProjectDoc) string {
	want := camelize(strings.TrimSuffix(filepath.Base(path), ".rb"))

	best := -1
	for _, nsPath := range nsPaths {
		idx := indexOfNamespace(out, nsPath)
		if idx < 0 {
			continue
		}
		if best < 0 || betterPrimary(&out.Namespaces[idx], &out.Namespaces[best], want) {
			best = idx
		}
	}
	if best < 0 {
		return ""
	}
	return out.Namespaces[best].Path
}

func indexOfNamespace(out *ProjectDoc, path string) int {
	for i := range out.Namespaces {
		if out.Namespaces[i].Path == path {
			return i
		}
	}
	return -1
}

func betterPrimary(a, b *NamespaceDoc, want string) bool {
	if am, bm := strings.EqualFold(a.Name, want), strings.EqualFold(b.Name, want); am != bm {
		return am
	}
	if am, bm := a.Kind == KindModule, b.Kind == KindModule; am != bm {
		return am
	}
	if len(a.Path) != len(b.Path) {
		return len(a.Path) < len(b.Path)
	}
	return memberCount(a) > memberCount(b)
}

func memberCount(ns *NamespaceDoc) int {
	return len(ns.Constants) + len(ns.Attributes) + len(ns.Ivars) +
		len(ns.Methods) + len(ns.PrivateMethods)
}

// camelize converts a snake_case file base name to the CamelCase
// namespace name it conventionally defines.
func camelize(s string) string {
	parts := strings.Split(s, "_")
	for i, p := range parts {
		if p != "" {
			parts[i] = strings.ToUpper(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, "")
}

// docMeta is the tag-derived metadata shared by namespaces and
// methods.
type docMeta struct {
	examples   []ExampleDoc
	notes      []string
	seeAlso    []string
	api        string
	deprecated *string
	abstract   bool
	since      string
	todo       string
}

func metaFromDoc(doc rubysrc.Doc) docMeta {
	var m docMeta
	for _, tag := range doc.Tags {
		switch tag.Name {
		case "example":
			m.examples = append(m.examples, ExampleDoc{Title: tag.Arg, Code: tag.Text})
		case "note":
			m.notes = append(m.notes, tag.Text)
		case "see":
			m.seeAlso = append(m.seeAlso, tag.Text)
		case "api":
			m.api = tag.Text
		case "deprecated":
			// distinguishes a bare tag from an absent one
			text := tag.Text
			m.deprecated = &text
		case "abstract":
			m.abstract = true
		case "since":
			m.since = tag.Text
		case "todo":
			m.todo = tag.Text
		}
	}
	return m
}

func (m docMeta) apply(
	examples *[]ExampleDoc, notes, seeAlso *[]string,
	api *string, deprecated **string, abstract *bool, since, todo *string,
) {
	*examples = m.examples
	*notes = m.notes
	*seeAlso = m.seeAlso
	*api = m.api
	*deprecated = m.deprecated
	*abstract = m.abstract
	*since = m.since
	*todo = m.todo
}

func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
