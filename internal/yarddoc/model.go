// Package yarddoc assembles the semantic documentation model for a
// Ruby project: YARD prose tags and RBS type signatures reconciled
// into one immutable document tree.
//
// Every record here is built once during extraction and never
// mutated afterwards; the tree is safe to hand to any renderer.
package yarddoc

import (
	"strings"
	"time"

	"github.com/yard2md/yard2md/internal/rbs"
)

// ParamDoc documents one method parameter.
type ParamDoc struct {
	// Name of the parameter, without any sigil.
	Name string

	// Type in RBS syntax, or empty if neither source declared one.
	Type string

	// Description from whichever source won the merge.
	Description string

	// Default is the literal default-value source text, if any.
	Default string

	// Prefix is "*", "**", or "&" for splat, keyword-splat, and
	// block parameters; empty otherwise.
	Prefix string
}

// DisplayName is the parameter name with its sigil restored.
func (p ParamDoc) DisplayName() string {
	return p.Prefix + p.Name
}

// ReturnDoc documents a method's return value.
type ReturnDoc struct {
	Type        string
	Description string
}

// OptionDoc documents one key of a structured (hash) parameter.
type OptionDoc struct {
	// ParamName is the structured parameter this key belongs to.
	ParamName string

	Key         string
	Type        string
	Description string
}

// YieldDoc documents the block a method yields to.
type YieldDoc struct {
	Description string

	// Params are the block's parameters, in positional order.
	Params []ParamDoc

	ReturnType string
	ReturnDesc string

	// BlockType is the raw RBS block signature,
	// e.g. "^(User) -> bool", when one was declared.
	BlockType string
}

// RaiseDoc documents one exception contract.
type RaiseDoc struct {
	Type        string
	Description string
}

// OverloadDoc is one alternative signature of an overloaded method.
type OverloadDoc struct {
	Signature   string
	Description string
}

// ExampleDoc is a usage example from an @example tag.
type ExampleDoc struct {
	Title string
	Code  string
}

// MethodScope distinguishes instance methods from class methods.
type MethodScope string

const (
	ScopeInstance MethodScope = "instance"
	ScopeClass    MethodScope = "class"
)

// Visibility is a method's declared visibility.
type Visibility string

const (
	VisibilityPublic    Visibility = "public"
	VisibilityProtected Visibility = "protected"
	VisibilityPrivate   Visibility = "private"
)

// AttrKind classifies trivial accessor methods.
type AttrKind string

const (
	AttrNone   AttrKind = ""
	AttrReader AttrKind = "reader"
	AttrWriter AttrKind = "writer"
)

// MethodDoc is the fully merged documentation of one method.
type MethodDoc struct {
	Name       string
	Scope      MethodScope
	Visibility Visibility

	// Signature is the source-level call shape,
	// e.g. "save(name, age = nil)".
	Signature string

	Docstring string
	Params    []ParamDoc
	Options   []OptionDoc
	Returns   *ReturnDoc
	Yields    *YieldDoc
	Raises    []RaiseDoc
	Examples  []ExampleDoc
	Notes     []string
	SeeAlso   []string

	// API is the @api tag text ("private", "public", ...), if any.
	API string

	// Deprecated distinguishes three states: nil (no tag),
	// pointer to "" (bare tag), pointer to text (tag with message).
	Deprecated *string

	Abstract bool
	Since    string
	Todo     string

	// RBSSignature is the raw formal signature, when one exists.
	RBSSignature string

	// Overloads are alternative formal signatures.
	Overloads []OverloadDoc

	// Source is the method's source snippet, condensed to one line
	// for trivial accessors.
	Source string

	// SourceBodyLines counts body lines between the def line and
	// its end.
	SourceBodyLines int

	// AttrType marks methods that are trivial attribute accessors.
	// Such methods are folded into an AttributeDoc and removed from
	// the namespace's method lists.
	AttrType AttrKind

	File string
	Line int

	// SpecExamples and SpecBehaviors come from an externally built
	// spec/usage index.
	SpecExamples  []string
	SpecBehaviors []string
}

// AttrMode says which accessors an attribute has.
type AttrMode string

const (
	AttrModeRead      AttrMode = "read"
	AttrModeWrite     AttrMode = "write"
	AttrModeReadWrite AttrMode = "read_write"
)

// AttributeDoc is a logical attribute synthesized from a
// reader/writer accessor pair or an attr_* declaration.
type AttributeDoc struct {
	Name        string
	Type        string
	Description string
	Mode        AttrMode

	// Reader and Writer are the underlying accessor methods,
	// when the attribute was synthesized from method pairs.
	Reader *MethodDoc
	Writer *MethodDoc
}

// IvarDoc documents one typed instance variable.
type IvarDoc struct {
	Name string // without the '@'
	Type string
}

// TypeAlias is a documented RBS type alias.
type TypeAlias struct {
	Name       string
	Definition string
	Desc       string
}

// NamespaceKind distinguishes classes from modules.
type NamespaceKind string

const (
	KindClass  NamespaceKind = "class"
	KindModule NamespaceKind = "module"
)

// NamespaceDoc is the documentation of one class or module.
type NamespaceDoc struct {
	// Name is the last path segment; Path the fully qualified
	// "Foo::Bar" form.
	Name string
	Path string

	Kind       NamespaceKind
	Superclass string

	Docstring string
	Examples  []ExampleDoc
	Notes     []string
	SeeAlso   []string

	API        string
	Deprecated *string
	Abstract   bool
	Since      string
	Todo       string

	Includes []string
	Extends  []string

	Constants   []ConstantDoc
	TypeAliases []TypeAlias
	Ivars       []IvarDoc
	Attributes  []AttributeDoc

	// Methods holds public and protected methods;
	// PrivateMethods the private ones.
	Methods        []MethodDoc
	PrivateMethods []MethodDoc

	// ReferencedTypes are type aliases used anywhere in this
	// namespace's method signatures, resolved project-wide.
	ReferencedTypes []TypeAlias

	File    string
	Line    int
	EndLine int

	// RBSFile is the generated signature file declaring this
	// namespace, if one exists.
	RBSFile string

	// NeedsRegeneration marks namespaces whose source or
	// contributing annotation files changed since the last run.
	// Only meaningful when extraction ran with a changed-file set.
	NeedsRegeneration bool
}

// ConstantDoc documents one constant.
type ConstantDoc struct {
	Name      string
	Value     string
	Docstring string
}

// FileDoc groups the namespaces defined in one source file.
type FileDoc struct {
	Path       string
	Namespaces []string // namespace paths, in declaration order

	// Primary is the path of the file's primary namespace.
	Primary string
}

// ProjectDoc is the root of the semantic model.
type ProjectDoc struct {
	Title       string
	Description string

	// Namespaces are sorted by path.
	Namespaces []NamespaceDoc

	Files []FileDoc

	// TypeAliases maps namespace path -> aliases declared there.
	TypeAliases map[string][]TypeAlias

	GeneratedAt time.Time
}

// Classes returns the class namespaces.
func (p *ProjectDoc) Classes() []NamespaceDoc {
	return p.filter(KindClass)
}

// Modules returns the module namespaces.
func (p *ProjectDoc) Modules() []NamespaceDoc {
	return p.filter(KindModule)
}

func (p *ProjectDoc) filter(kind NamespaceKind) []NamespaceDoc {
	var out []NamespaceDoc
	for _, ns := range p.Namespaces {
		if ns.Kind == kind {
			out = append(out, ns)
		}
	}
	return out
}

// Namespace returns the namespace with the given path, if any.
func (p *ProjectDoc) Namespace(path string) (NamespaceDoc, bool) {
	for _, ns := range p.Namespaces {
		if ns.Path == path {
			return ns, true
		}
	}
	return NamespaceDoc{}, false
}

func aliasFromRBS(a rbs.TypeAlias) TypeAlias {
	return TypeAlias{Name: a.Name, Definition: a.Type, Desc: a.Desc}
}

// baseName returns the last segment of a namespace path.
func baseName(path string) string {
	if idx := strings.LastIndex(path, "::"); idx >= 0 {
		return path[idx+2:]
	}
	return path
}
