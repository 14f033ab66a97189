package rbs

import (
	"log"

	"braces.dev/errtrace"
)

// Data is the merged view of inline annotations and generated
// signature files. Generated data wins wherever both declare the
// same key; inline data fills the gaps.
type Data struct {
	// Signatures maps namespace path -> method key -> signature.
	Signatures map[string]map[string]Signature

	// AttrTypes maps namespace path -> attribute name -> type info.
	AttrTypes map[string]map[string]TypeInfo

	// IvarTypes maps namespace path -> ivar name -> type.
	IvarTypes map[string]map[string]string

	// Aliases maps namespace path -> type aliases, generated
	// declarations replacing same-named inline ones.
	Aliases map[string][]TypeAlias

	// Overloads maps namespace path -> method key -> extra raw
	// signatures (generated files only).
	Overloads map[string]map[string][]string

	// FileNamespaces maps a source file to the namespaces its
	// inline annotations contribute to.
	FileNamespaces map[string][]string

	// RBSFiles maps namespace path -> declaring .rbs file.
	RBSFiles map[string]string
}

// Loader runs the inline scanner and the generated-file loader and
// merges their output.
type Loader struct {
	// Log receives warnings. If nil, warnings are dropped.
	Log *log.Logger

	// SigDir is the directory of generated .rbs files.
	// Empty or missing means inline annotations only.
	SigDir string
}

// Load scans the given Ruby sources and the signature directory.
func (l *Loader) Load(files []string) (*Data, error) {
	inline := (&Scanner{Log: l.Log}).Scan(files)
	gen, err := (&DirLoader{Log: l.Log}).Load(l.SigDir)
	if err != nil {
		return nil, errtrace.Wrap(err)
	}
	return Merge(inline, gen), nil
}

// Merge combines inline and generated data.
// For any key present in both, the generated value is kept:
// generated files are post-processed by external tooling and are
// the more correct source.
func Merge(inline *InlineData, gen *GeneratedData) *Data {
	d := &Data{
		Signatures:     make(map[string]map[string]Signature),
		AttrTypes:      make(map[string]map[string]TypeInfo),
		IvarTypes:      make(map[string]map[string]string),
		Aliases:        make(map[string][]TypeAlias),
		Overloads:      gen.Overloads,
		FileNamespaces: inline.FileNamespaces,
		RBSFiles:       gen.Files,
	}

	for ns, methods := range inline.Signatures {
		for name, sig := range methods {
			d.setSignature(ns, name, sig)
		}
	}
	for ns, methods := range gen.Signatures {
		for name, sig := range methods {
			d.setSignature(ns, name, sig)
		}
	}

	for ns, attrs := range inline.AttrTypes {
		for name, ti := range attrs {
			d.setAttrType(ns, name, ti)
		}
	}
	for ns, attrs := range gen.Attrs {
		for name, ti := range attrs {
			d.setAttrType(ns, name, ti)
		}
	}

	for ns, ivars := range inline.IvarTypes {
		for name, typ := range ivars {
			d.setIvarType(ns, name, typ)
		}
	}
	for ns, ivars := range gen.Ivars {
		for name, typ := range ivars {
			d.setIvarType(ns, name, typ)
		}
	}

	for ns, aliases := range inline.Aliases {
		d.Aliases[ns] = append(d.Aliases[ns], aliases...)
	}
	for ns, aliases := range gen.Aliases {
		for _, alias := range aliases {
			d.Aliases[ns] = replaceAlias(d.Aliases[ns], alias)
		}
	}

	return d
}

func replaceAlias(aliases []TypeAlias, alias TypeAlias) []TypeAlias {
	for i, have := range aliases {
		if have.Name == alias.Name {
			aliases[i] = alias
			return aliases
		}
	}
	return append(aliases, alias)
}

func (d *Data) setSignature(ns, name string, sig Signature) {
	if d.Signatures[ns] == nil {
		d.Signatures[ns] = make(map[string]Signature)
	}
	d.Signatures[ns][name] = sig
}

func (d *Data) setAttrType(ns, name string, ti TypeInfo) {
	if d.AttrTypes[ns] == nil {
		d.AttrTypes[ns] = make(map[string]TypeInfo)
	}
	d.AttrTypes[ns][name] = ti
}

func (d *Data) setIvarType(ns, name, typ string) {
	if d.IvarTypes[ns] == nil {
		d.IvarTypes[ns] = make(map[string]string)
	}
	d.IvarTypes[ns][name] = typ
}

// Signature returns the merged signature for a method,
// keyed "name" for instance methods and "self.name" for
// class methods.
func (d *Data) Signature(ns, method string) (Signature, bool) {
	sig, ok := d.Signatures[ns][method]
	return sig, ok
}

// MethodOverloads returns the extra raw signatures recorded for a
// method beyond its primary signature.
func (d *Data) MethodOverloads(ns, method string) []string {
	return d.Overloads[ns][method]
}
