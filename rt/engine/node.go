package engine

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"

	"github.com/gekko3d/linkstart/rt/core"
)

// RenderNode is one instance to draw. Geometry is shared, not owned.
type RenderNode struct {
	ID        uuid.UUID
	Transform core.Transform
	Geometry  GeometryRenderer
	Opacity   float32
	Color     mgl32.Vec4
	// Billboard is reserved for camera-facing orientation and is not applied.
	Billboard bool
}

// NewRenderNode returns an opaque white node with an identity transform.
func NewRenderNode(geometry GeometryRenderer) *RenderNode {
	return &RenderNode{
		ID:        uuid.New(),
		Transform: core.IdentityTransform(),
		Geometry:  geometry,
		Opacity:   1,
		Color:     mgl32.Vec4{1, 1, 1, 1},
	}
}

// NodeList is the ordered set of nodes drawn each frame. Position in the list
// is the draw order and the uniform slot index.
type NodeList struct {
	nodes []*RenderNode
}

func NewNodeList(capacity int) *NodeList {
	return &NodeList{nodes: make([]*RenderNode, 0, capacity)}
}

func (l *NodeList) Append(nodes ...*RenderNode) {
	l.nodes = append(l.nodes, nodes...)
}

func (l *NodeList) Len() int { return len(l.nodes) }

func (l *NodeList) At(i int) *RenderNode { return l.nodes[i] }

// Nodes returns the backing slice. It is only valid until the next mutation.
func (l *NodeList) Nodes() []*RenderNode { return l.nodes }

func (l *NodeList) Each(fn func(i int, n *RenderNode)) {
	for i, n := range l.nodes {
		fn(i, n)
	}
}

// Remove deletes the node with the given id, keeping the order of the rest.
func (l *NodeList) Remove(id uuid.UUID) bool {
	for i, n := range l.nodes {
		if n.ID == id {
			copy(l.nodes[i:], l.nodes[i+1:])
			l.nodes[len(l.nodes)-1] = nil
			l.nodes = l.nodes[:len(l.nodes)-1]
			return true
		}
	}
	return false
}

// Retain keeps the nodes for which keep returns true, in order, compacting in
// place without reallocating. It returns the number of nodes removed.
func (l *NodeList) Retain(keep func(n *RenderNode) bool) int {
	w := 0
	for _, n := range l.nodes {
		if keep(n) {
			l.nodes[w] = n
			w++
		}
	}
	removed := len(l.nodes) - w
	clear(l.nodes[w:])
	l.nodes = l.nodes[:w]
	return removed
}

func (l *NodeList) Clear() {
	clear(l.nodes)
	l.nodes = l.nodes[:0]
}
