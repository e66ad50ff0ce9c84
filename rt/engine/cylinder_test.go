package engine

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gekko3d/linkstart/rt/core"
	"github.com/gekko3d/linkstart/rt/gpu"
	"github.com/gekko3d/linkstart/rt/gpu/gputest"
)

const eps = 1e-5

func TestCylinderVertexCounts(t *testing.T) {
	for s := 3; s <= 72; s++ {
		assert.Len(t, CylinderSideVertices(1, 1, s), (s+1)*2, "side, segments=%d", s)
		assert.Len(t, CylinderTopVertices(1, 1, s), s*3, "top, segments=%d", s)
	}
}

func TestCylinderSideRings(t *testing.T) {
	const (
		radius   = 2.5
		height   = 4
		segments = 12
	)
	side := CylinderSideVertices(radius, height, segments)

	for k := 0; k <= segments; k++ {
		angle := 2 * math32.Pi * float32(k%segments) / segments
		x, z := math32.Cos(angle)*radius, math32.Sin(angle)*radius

		top, bottom := side[2*k], side[2*k+1]
		assert.InDelta(t, x, top.Position[0], eps)
		assert.InDelta(t, z, top.Position[2], eps)
		assert.InDelta(t, height/2, top.Position[1], eps)
		assert.Equal(t, top.Position[0], bottom.Position[0])
		assert.Equal(t, top.Position[2], bottom.Position[2])
		assert.InDelta(t, -height/2, bottom.Position[1], eps)

		// Radial normals, no Y component.
		assert.Equal(t, float32(0), top.Normal[1])
		assert.InDelta(t, x, top.Normal[0], eps)
		assert.InDelta(t, z, top.Normal[2], eps)
		assert.Equal(t, top.Normal, bottom.Normal)
	}

	// Seam closure.
	assert.Equal(t, side[0], side[2*segments])
	assert.Equal(t, side[1], side[2*segments+1])
}

func TestCylinderTopFan(t *testing.T) {
	const segments = 8
	top := CylinderTopVertices(1, 2, segments)
	side := CylinderSideVertices(1, 2, segments)

	for tri := 0; tri < segments; tri++ {
		center, a, b := top[tri*3], top[tri*3+1], top[tri*3+2]
		assert.Equal(t, [3]float32{0, 1, 0}, center.Position)
		assert.Equal(t, side[2*tri].Position, a.Position)
		assert.Equal(t, side[2*((tri+1)%segments)].Position, b.Position)
		for _, v := range []core.Vertex{center, a, b} {
			assert.Equal(t, [3]float32{0, 1, 0}, v.Normal)
		}
	}
}

func TestCylinderHasNoBottomCap(t *testing.T) {
	for _, v := range CylinderTopVertices(1, 1, 16) {
		assert.Equal(t, float32(0.5), v.Position[1])
	}
}

func TestCylinderPrepareRequiresActiveContext(t *testing.T) {
	rc, _ := newTestContext(t)
	assert.Panics(t, func() {
		_ = NewOptimizedCylinder().PrepareResources(rc)
	})
}

func TestCylinderPrepareValidatesSegments(t *testing.T) {
	rc, _ := newTestContext(t)
	c := NewOptimizedCylinder()
	c.Segments = 2
	rc.PerformAsCurrent(func(rc *Context) {
		assert.Error(t, c.PrepareResources(rc))
	})
	assert.False(t, c.Prepared())
}

func TestCylinderPrepareReplacesBuffers(t *testing.T) {
	rc, dev := newTestContext(t)
	c := NewOptimizedCylinder()
	rc.PerformAsCurrent(func(rc *Context) {
		require.NoError(t, c.PrepareResources(rc))
		require.NoError(t, c.PrepareResources(rc))
	})
	assert.Len(t, dev.LiveBuffers("cylinder side"), 1)
	assert.Len(t, dev.LiveBuffers("cylinder top"), 1)

	side := dev.LiveBuffers("cylinder side")[0]
	assert.Equal(t, (DefaultCylinderSegments+1)*2*core.VertexStride, side.Length())
}

func TestCylinderRenderDrawsSideThenTop(t *testing.T) {
	rc, dev := newTestContext(t)
	c := NewOptimizedCylinder()
	c.Segments = 6
	rc.PerformAsCurrent(func(rc *Context) {
		require.NoError(t, c.PrepareResources(rc))
	})

	cb, err := rc.Queue.NewCommandBuffer()
	require.NoError(t, err)
	target := dev.NewDrawable(8, 8)
	enc, err := cb.NewRenderEncoder(gpu.NewRenderPassDescriptor(target.Texture()))
	require.NoError(t, err)
	c.Render(core.IdentityTransform(), enc)
	require.NoError(t, enc.EndEncoding())

	rec := enc.(*gputest.Encoder)
	draws := rec.Draws()
	require.Len(t, draws, 2)
	assert.Equal(t, gpu.PrimitiveTypeTriangleStrip, draws[0].Primitive)
	assert.Equal(t, 14, draws[0].Count)
	assert.Equal(t, gpu.PrimitiveTypeTriangle, draws[1].Primitive)
	assert.Equal(t, 18, draws[1].Count)

	binds := rec.Ops("SetVertexBuffer")
	require.Len(t, binds, 2)
	assert.Equal(t, "cylinder side", binds[0].Buffer.Label())
	assert.Equal(t, "cylinder top", binds[1].Buffer.Label())
	assert.Equal(t, VertexBufferIndex, binds[0].Index)
}

func TestCylinderRenderBeforePreparePanics(t *testing.T) {
	assert.Panics(t, func() {
		NewOptimizedCylinder().Render(core.IdentityTransform(), nil)
	})
}
