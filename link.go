package main

import (
	"text/template"

	"github.com/yard2md/yard2md/internal/nstree"
)

// linkTemplates builds the prefix tree that maps namespace paths
// to URL templates for externally documented code.
// The most specific prefix wins.
func linkTemplates(pts []pathTemplate) *nstree.Root[*template.Template] {
	var root nstree.Root[*template.Template]
	for _, pt := range pts {
		root.Set(pt.Path, pt.Template)
	}
	return &root
}
