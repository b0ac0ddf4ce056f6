package layout

import (
	"fmt"

	"github.com/himewm/himewm/internal/geometry"
	"github.com/himewm/himewm/internal/inset"
)

// VariantNode is one node of a Layout's variant tree (spec.md §3). A node
// is either a leaf (Variant non-nil) or a container of children; every leaf
// reachable from the root is a Variant.
type VariantNode struct {
	Variant  *Variant
	Children []*VariantNode
}

// Clone deep-copies the node and its subtree.
func (n *VariantNode) Clone() *VariantNode {
	if n == nil {
		return nil
	}
	out := &VariantNode{}
	if n.Variant != nil {
		out.Variant = n.Variant.Clone()
	}
	if n.Children != nil {
		out.Children = make([]*VariantNode, len(n.Children))
		for i, c := range n.Children {
			out.Children[i] = c.Clone()
		}
	}
	return out
}

// resolve navigates path against the tree, clamping each level's index to
// the available children and stopping at the first leaf encountered — a
// path longer than the tree is deep is truncated; a path shorter than the
// tree is deep continues along child 0 until a leaf is reached.
func (n *VariantNode) resolve(path []int) (*Variant, error) {
	cur := n
	for _, idx := range path {
		if cur.Variant != nil {
			break
		}
		if len(cur.Children) == 0 {
			return nil, fmt.Errorf("layout: variant tree node has neither a variant nor children")
		}
		if idx < 0 {
			idx = 0
		}
		if idx >= len(cur.Children) {
			idx = len(cur.Children) - 1
		}
		cur = cur.Children[idx]
	}
	for cur.Variant == nil {
		if len(cur.Children) == 0 {
			return nil, fmt.Errorf("layout: variant tree node has neither a variant nor children")
		}
		cur = cur.Children[0]
	}
	return cur.Variant, nil
}

// childCountAt returns how many children the node reached by walking every
// element of path has, for cycle_variant's modulo arithmetic (the caller
// passes the variant path truncated to the depth being cycled).
func (n *VariantNode) childCountAt(path []int) (int, error) {
	cur := n
	for _, idx := range path {
		if cur.Variant != nil || len(cur.Children) == 0 {
			return len(cur.Children), nil
		}
		if idx < 0 {
			idx = 0
		}
		if idx >= len(cur.Children) {
			idx = len(cur.Children) - 1
		}
		cur = cur.Children[idx]
	}
	return len(cur.Children), nil
}

// Layout is one authored monitor rectangle plus a variant tree and a
// default-variant path (spec.md §3).
type Layout struct {
	MonitorRect        geometry.Rect
	Root               *VariantNode
	DefaultVariantPath []int
}

// Clone deep-copies the layout.
func (l *Layout) Clone() *Layout {
	return &Layout{
		MonitorRect:        l.MonitorRect,
		Root:               l.Root.Clone(),
		DefaultVariantPath: append([]int(nil), l.DefaultVariantPath...),
	}
}

// DefaultVariantPath returns the path to the default leaf (this method
// exists for symmetry with the spec.md naming; the field itself already
// holds the value).
func DefaultVariantPath(l *Layout) []int {
	return append([]int(nil), l.DefaultVariantPath...)
}

// ResolveVariant navigates path to a leaf Variant.
func (l *Layout) ResolveVariant(path []int) (*Variant, error) {
	return l.Root.resolve(path)
}

// ChildCountAt returns the number of children at the tree level path
// addresses, used by cycle_variant(dir, depth) to compute its modulus.
func (l *Layout) ChildCountAt(path []int) (int, error) {
	return l.Root.childCountAt(path)
}

// GetPositions resolves variantPath to a leaf Variant, lazily extends it
// until it holds k states, and transforms state k-1 through the
// padding/inset filter. This is the Layout Engine's sole public entry
// point (spec.md §4.1).
func GetPositions(l *Layout, variantPath []int, k int, windowPadding, edgePadding int, border inset.Border) ([]geometry.Rect, error) {
	v, err := l.ResolveVariant(variantPath)
	if err != nil {
		return nil, err
	}
	if err := v.EnsureLen(k); err != nil {
		return nil, fmt.Errorf("layout: extending variant to %d windows: %w", k, err)
	}
	zones := v.States[k-1]
	return inset.TransformAll(zones, l.MonitorRect, windowPadding, edgePadding, border), nil
}
