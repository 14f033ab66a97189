// Package rbs reads RBS type information for Ruby code,
// whether inlined into source comments (rbs-inline style)
// or generated into a directory of .rbs signature files.
//
// Parsing in this package is best-effort by design:
// annotations are user-written and frequently incomplete,
// so malformed input degrades to empty results
// instead of failing the surrounding extraction.
package rbs

// TypeInfo is one typed slot of a signature:
// a parameter, a return value, or an attribute.
type TypeInfo struct {
	// Type is the RBS type expression, verbatim.
	Type string

	// Desc is the free-text description attached to the slot,
	// if the annotation carried one.
	Desc string
}

// BlockParam is the synthetic parameter name under which
// a method's block argument is recorded.
const BlockParam = "&block"

// Signature is the structured form of one RBS method signature.
type Signature struct {
	// Raw is the signature as written, e.g. "(String name) -> User".
	Raw string

	// Params maps parameter names to their types.
	// A block parameter is stored under [BlockParam].
	Params map[string]TypeInfo

	// Returns is the return slot, or nil if the signature
	// did not parse far enough to have one.
	Returns *TypeInfo

	// Raises is the exception type named by an
	// "@rbs raises:" annotation, if any.
	Raises string
}

// Empty reports whether the signature carries no type information.
func (s Signature) Empty() bool {
	return len(s.Params) == 0 && s.Returns == nil && s.Raises == ""
}

// Param returns the type information for the named parameter.
func (s Signature) Param(name string) (TypeInfo, bool) {
	ti, ok := s.Params[name]
	return ti, ok
}

// TypeAlias is a named RBS type alias declared in a namespace.
type TypeAlias struct {
	Name string // alias name, e.g. "config_hash"
	Type string // aliased type expression
	Desc string // comment text preceding the declaration, if any
}
