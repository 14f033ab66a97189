// Package nstree provides a data structure that stores values under
// a hierarchy of "::"-separated namespace paths, where values set on
// outer namespaces cascade down to nested namespaces unless those
// define their own values.
//
// For example, if 'Foo::Bar' defines a value X,
// Foo::Bar, Foo::Bar::Baz, and all their descendants inherit it.
//
//	t.Set("Foo::Bar", X)
//	t.Lookup("Foo::Bar")      // == X
//	t.Lookup("Foo::Bar::Baz") // == X
//
// However, if 'Foo::Bar::Baz' defines a different value Y,
// it and its descendants use that value instead.
package nstree

import (
	"sort"
	"strings"
)

const _sep = "::"

// Root is the starting point of the namespace tree.
// The zero-value of Root is an empty tree.
type Root[T any] struct {
	root node[T]
}

// Set adds a value to the tree under the given namespace path.
// All descendants of this path that do not have an explicit value
// will inherit this value.
// If this path already had a value specified, it will be overwritten.
func (r *Root[T]) Set(p string, v T) {
	r.root.Set(p, &v)
}

// Lookup retrieves the value for the given namespace path,
// inheriting values specified for enclosing namespaces
// if it didn't get its own value.
//
// Lookup reports true if a value was found--even if it was inherited.
func (r *Root[T]) Lookup(p string) (v T, ok bool) {
	if got := r.root.Get(p, nil); got != nil {
		v = *got
		ok = true
	}
	return v, ok
}

// Snapshot is a snapshot of values added to the tree
// presented in a hierarchical manner.
type Snapshot[T any] struct {
	// Value in the tree,
	// or nil if this node doesn't have an explicit value.
	Value *T
	// Path to this node.
	Path string
	// Children of this node.
	Children []Snapshot[T]
}

// Snapshot builds and returns a snapshot of all values
// in this namespace tree.
//
// The returned slice holds nodes closest to root.
func (r *Root[T]) Snapshot() []Snapshot[T] {
	return r.root.Snapshot(nil).Children
}

type node[T any] struct {
	value    *T
	children map[string]*node[T]
}

func (n *node[T]) ensurechild(name string) *node[T] {
	if n.children == nil {
		n.children = make(map[string]*node[T])
	}

	c, ok := n.children[name]
	if !ok {
		c = new(node[T])
		n.children[name] = c
	}
	return c
}

func (n *node[T]) Set(p string, v *T) {
	if len(p) == 0 {
		n.value = v
		return
	}

	head, tail := split(p)
	n.ensurechild(head).Set(tail, v)
}

func (n *node[T]) Get(p string, current *T) (final *T) {
	if n == nil {
		return current
	}

	if n.value != nil {
		current = n.value
	}

	head, tail := split(p)
	return n.children[head].Get(tail, current)
}

func (n *node[T]) Snapshot(path []string) Snapshot[T] {
	var children []Snapshot[T]
	if len(n.children) > 0 {
		childNames := make([]string, 0, len(n.children))
		for name := range n.children {
			childNames = append(childNames, name)
		}
		sort.Strings(childNames)

		children = make([]Snapshot[T], len(childNames))
		for i, name := range childNames {
			children[i] = n.children[name].Snapshot(append(path, name))
		}
	}

	return Snapshot[T]{
		Value:    n.value,
		Path:     strings.Join(path, _sep),
		Children: children,
	}
}

func split(p string) (head, tail string) {
	head, tail = p, ""
	if idx := strings.Index(p, _sep); idx >= 0 {
		head, tail = p[:idx], p[idx+len(_sep):]
	}
	// Collapse any repeated separators at the start of the tail.
	for strings.HasPrefix(tail, _sep) {
		tail = tail[len(_sep):]
	}
	return head, tail
}
