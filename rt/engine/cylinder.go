package engine

import (
	"fmt"

	"github.com/chewxy/math32"

	"github.com/gekko3d/linkstart/rt/core"
	"github.com/gekko3d/linkstart/rt/gpu"
)

const DefaultCylinderSegments = 36

// OptimizedCylinder draws the side wall and the top cap only. Beams are never
// seen from below, so the bottom cap is not built.
type OptimizedCylinder struct {
	Radius   float32
	Height   float32
	Segments int

	side     gpu.Buffer
	top      gpu.Buffer
	segments int // value the buffers were built with
}

var _ GeometryRenderer = (*OptimizedCylinder)(nil)

func NewOptimizedCylinder() *OptimizedCylinder {
	return &OptimizedCylinder{Radius: 1, Height: 1, Segments: DefaultCylinderSegments}
}

// ringPoints returns segments points on the XZ circle of the given radius.
func ringPoints(radius float32, segments int) []core.Vertex {
	step := 2 * math32.Pi / float32(segments)
	points := make([]core.Vertex, segments)
	for i := range points {
		angle := step * float32(i)
		x := math32.Cos(angle) * radius
		z := math32.Sin(angle) * radius
		points[i] = core.Vertex{Position: [3]float32{x, 0, z}, Normal: [3]float32{x, 0, z}}
	}
	return points
}

// CylinderSideVertices builds the side wall as a triangle strip of
// (segments+1)*2 vertices: even indices on the top ring, odd on the bottom.
// The last pair repeats the first to close the seam.
func CylinderSideVertices(radius, height float32, segments int) []core.Vertex {
	points := ringPoints(radius, segments)
	topY, bottomY := height/2, -height/2

	out := make([]core.Vertex, 0, (segments+1)*2)
	for k := 0; k <= segments; k++ {
		p := points[k%segments].Position
		normal := [3]float32{p[0], 0, p[2]}
		out = append(out,
			core.Vertex{Position: [3]float32{p[0], topY, p[2]}, Normal: normal},
			core.Vertex{Position: [3]float32{p[0], bottomY, p[2]}, Normal: normal},
		)
	}
	return out
}

// CylinderTopVertices builds the top cap as independent triangles
// (center, p[t], p[t+1]) sharing the up normal.
func CylinderTopVertices(radius, height float32, segments int) []core.Vertex {
	points := ringPoints(radius, segments)
	topY := height / 2
	up := [3]float32{0, 1, 0}
	center := core.Vertex{Position: [3]float32{0, topY, 0}, Normal: up}

	out := make([]core.Vertex, 0, segments*3)
	for t := 0; t < segments; t++ {
		a := points[t].Position
		b := points[(t+1)%segments].Position
		out = append(out,
			center,
			core.Vertex{Position: [3]float32{a[0], topY, a[2]}, Normal: up},
			core.Vertex{Position: [3]float32{b[0], topY, b[2]}, Normal: up},
		)
	}
	return out
}

// PrepareResources uploads the side and top buffers, releasing any built by
// a previous call.
func (c *OptimizedCylinder) PrepareResources(rc *Context) error {
	rc.MustBeCurrent("OptimizedCylinder.PrepareResources")
	if c.Segments < 3 {
		return fmt.Errorf("cylinder needs at least 3 segments, got %d", c.Segments)
	}

	side, err := rc.Device.NewBufferWithBytes(core.VertexBytes(CylinderSideVertices(c.Radius, c.Height, c.Segments)), "cylinder side")
	if err != nil {
		return fmt.Errorf("create cylinder side buffer: %w", err)
	}
	top, err := rc.Device.NewBufferWithBytes(core.VertexBytes(CylinderTopVertices(c.Radius, c.Height, c.Segments)), "cylinder top")
	if err != nil {
		side.Release()
		return fmt.Errorf("create cylinder top buffer: %w", err)
	}

	c.release()
	c.side, c.top, c.segments = side, top, c.Segments
	return nil
}

func (c *OptimizedCylinder) Prepared() bool { return c.side != nil && c.top != nil }

func (c *OptimizedCylinder) Render(_ core.Transform, enc gpu.RenderEncoder) {
	if !c.Prepared() {
		panic("engine: OptimizedCylinder.Render before PrepareResources")
	}
	enc.SetVertexBuffer(c.side, 0, 0)
	enc.Draw(gpu.PrimitiveTypeTriangleStrip, 0, (c.segments+1)*2)

	enc.SetVertexBuffer(c.top, 0, 0)
	enc.Draw(gpu.PrimitiveTypeTriangle, 0, c.segments*3)
}

func (c *OptimizedCylinder) Release() {
	c.release()
}

func (c *OptimizedCylinder) release() {
	if c.side != nil {
		c.side.Release()
		c.side = nil
	}
	if c.top != nil {
		c.top.Release()
		c.top = nil
	}
}
