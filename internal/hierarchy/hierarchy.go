// Package hierarchy arranges a flat, source-ordered list of units into a tree.
//
// Two strategies share one output shape. ByParent follows explicit parent
// identifiers (JSON and other nested sources). ByHeaders infers nesting from
// header levels (markdown-like outlines). Both are single pass: a unit can only
// attach to a unit seen before it, so every parent is assigned once and no
// cycle can form. Dangling references and out-of-range levels are not errors;
// the unit becomes a root.
//
// The tree is an arena indexed by input position with separate parent and
// child indexes; the input units are never modified.
package hierarchy

// Node is anything that can be placed in a hierarchy.
type Node interface {
	NodeID() string
	// ParentRef is the explicit parent identifier, or "" for none.
	ParentRef() string
	// Level is the header level 1..6, or 0 for non-header content.
	Level() int
}

// Strategy names a construction strategy.
type Strategy int

const (
	// StructureHeaders nests units under the most recent shallower header.
	StructureHeaders Strategy = iota
	// StructureExplicit follows ParentRef links.
	StructureExplicit
)

func (s Strategy) String() string {
	if s == StructureExplicit {
		return "explicit"
	}
	return "headers"
}

// Build dispatches to ByParent or ByHeaders.
func Build[T Node](units []T, s Strategy) *Tree[T] {
	if s == StructureExplicit {
		return ByParent(units)
	}
	return ByHeaders(units)
}

// Tree is the result of a hierarchy build.
type Tree[T Node] struct {
	units    []T
	index    map[string]int
	parent   []int
	children [][]int
	roots    []int
}

func newTree[T Node](units []T) *Tree[T] {
	t := &Tree[T]{
		units:    units,
		index:    make(map[string]int, len(units)),
		parent:   make([]int, len(units)),
		children: make([][]int, len(units)),
	}
	for i := range t.parent {
		t.parent[i] = -1
	}
	return t
}

func (t *Tree[T]) attach(i, p int) {
	if p < 0 {
		t.roots = append(t.roots, i)
		return
	}
	t.parent[i] = p
	t.children[p] = append(t.children[p], i)
}

// register records a unit's identifier once it has been placed. The first
// unit with a given identifier wins.
func (t *Tree[T]) register(i int) {
	id := t.units[i].NodeID()
	if id == "" {
		return
	}
	if _, dup := t.index[id]; !dup {
		t.index[id] = i
	}
}

// ByParent attaches each unit to an earlier unit whose identifier matches its
// ParentRef. References to missing or later units make the unit a root.
func ByParent[T Node](units []T) *Tree[T] {
	t := newTree(units)
	for i, u := range units {
		p := -1
		if ref := u.ParentRef(); ref != "" {
			if j, ok := t.index[ref]; ok {
				p = j
			}
		}
		t.attach(i, p)
		t.register(i)
	}
	return t
}

// ByHeaders tracks the latest header at each level. A header at level L
// attaches to the nearest open header shallower than L and closes every
// deeper open header. Other units attach to the deepest open header.
func ByHeaders[T Node](units []T) *Tree[T] {
	t := newTree(units)
	var open [7]int
	for l := range open {
		open[l] = -1
	}
	for i, u := range units {
		p := -1
		if level := u.Level(); level >= 1 && level <= 6 {
			for l := level - 1; l >= 1; l-- {
				if open[l] >= 0 {
					p = open[l]
					break
				}
			}
			open[level] = i
			for l := level + 1; l <= 6; l++ {
				open[l] = -1
			}
		} else {
			for l := 6; l >= 1; l-- {
				if open[l] >= 0 {
					p = open[l]
					break
				}
			}
		}
		t.attach(i, p)
		t.register(i)
	}
	return t
}

// Len returns the number of units in the tree.
func (t *Tree[T]) Len() int { return len(t.units) }

// Roots returns the units without a resolved parent, in input order.
func (t *Tree[T]) Roots() []T { return t.pick(t.roots) }

// Children returns the direct children of id in encounter order.
func (t *Tree[T]) Children(id string) []T {
	i, ok := t.index[id]
	if !ok {
		return nil
	}
	return t.pick(t.children[i])
}

// Parent returns the resolved parent of id.
func (t *Tree[T]) Parent(id string) (T, bool) {
	var zero T
	i, ok := t.index[id]
	if !ok || t.parent[i] < 0 {
		return zero, false
	}
	return t.units[t.parent[i]], true
}

// ParentID returns the resolved parent identifier of the unit at input
// position i, or "" for roots.
func (t *Tree[T]) ParentID(i int) string {
	if i < 0 || i >= len(t.parent) || t.parent[i] < 0 {
		return ""
	}
	return t.units[t.parent[i]].NodeID()
}

// AncestorsAt returns the ancestors of the unit at input position i,
// outermost first.
func (t *Tree[T]) AncestorsAt(i int) []T {
	var chain []int
	for p := t.parent[i]; p >= 0; p = t.parent[p] {
		chain = append(chain, p)
	}
	out := make([]T, len(chain))
	for k, p := range chain {
		out[len(chain)-1-k] = t.units[p]
	}
	return out
}

// Walk visits units depth first in tree order. Returning false from fn stops
// the walk.
func (t *Tree[T]) Walk(fn func(u T, depth int) bool) {
	var visit func(i, depth int) bool
	visit = func(i, depth int) bool {
		if !fn(t.units[i], depth) {
			return false
		}
		for _, c := range t.children[i] {
			if !visit(c, depth+1) {
				return false
			}
		}
		return true
	}
	for _, r := range t.roots {
		if !visit(r, 0) {
			return
		}
	}
}

func (t *Tree[T]) pick(idx []int) []T {
	if len(idx) == 0 {
		return nil
	}
	out := make([]T, len(idx))
	for k, i := range idx {
		out[k] = t.units[i]
	}
	return out
}
