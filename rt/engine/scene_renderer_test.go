package engine

import (
	"fmt"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gekko3d/linkstart/rt/core"
	"github.com/gekko3d/linkstart/rt/gpu"
	"github.com/gekko3d/linkstart/rt/gpu/gputest"
)

// recordingPass is a minimal pass that owns one input texture and draws one
// strip into whatever target it is given.
type recordingPass struct {
	name       string
	input      gpu.Texture
	prepared   int
	sizes      []gpu.Size
	targets    []gpu.Texture
	failResize bool
}

func (p *recordingPass) InputRenderTarget() gpu.Texture { return p.input }

func (p *recordingPass) Prepare(rc *Context) error {
	rc.MustBeCurrent("recordingPass.Prepare")
	p.prepared++
	return nil
}

func (p *recordingPass) Resize(rc *Context, size gpu.Size) error {
	if p.failResize {
		return fmt.Errorf("%w: %s input", gpu.ErrAllocation, p.name)
	}
	tex, err := rc.Device.NewTexture(gpu.TextureDescriptor{
		Label:  p.name,
		Width:  size.Width,
		Height: size.Height,
		Format: rc.TargetPixelFormat,
		Usage:  gpu.TextureUsageRenderTarget | gpu.TextureUsageShaderRead,
	})
	if err != nil {
		return err
	}
	p.input = tex
	p.sizes = append(p.sizes, size)
	return nil
}

func (p *recordingPass) Render(rc *Context, desc *gpu.RenderPassDescriptor, cb gpu.CommandBuffer) error {
	p.targets = append(p.targets, desc.Color.Texture)
	enc, err := cb.NewRenderEncoder(desc)
	if err != nil {
		return err
	}
	enc.Draw(gpu.PrimitiveTypeTriangleStrip, 0, 4)
	return enc.EndEncoding()
}

type sceneFixture struct {
	rc       *Context
	dev      *gputest.Device
	scene    *SceneRenderer
	passes   []*recordingPass
	cylinder *OptimizedCylinder
	drawable *gputest.Drawable
}

func newSceneFixture(t *testing.T, passCount, poolCapacity int) *sceneFixture {
	t.Helper()
	rc, dev := newTestContext(t)
	f := &sceneFixture{
		rc:       rc,
		dev:      dev,
		scene:    NewSceneRenderer(poolCapacity),
		cylinder: NewOptimizedCylinder(),
	}
	for i := 0; i < passCount; i++ {
		p := &recordingPass{name: fmt.Sprintf("pass %d", i)}
		f.passes = append(f.passes, p)
		f.scene.Passes = append(f.scene.Passes, p)
	}
	size := gpu.Size{Width: 64, Height: 64}
	rc.PerformAsCurrent(func(rc *Context) {
		require.NoError(t, f.cylinder.PrepareResources(rc))
		require.NoError(t, f.scene.Prepare(rc))
		require.NoError(t, f.scene.Resize(rc, size))
	})
	f.drawable = dev.NewDrawable(size.Width, size.Height)
	rc.SetFrameSuppliers(
		func() *gpu.RenderPassDescriptor { return gpu.NewRenderPassDescriptor(f.drawable.Texture()) },
		func() gpu.Drawable { return f.drawable },
	)
	dev.Reset()
	return f
}

func (f *sceneFixture) addNodes(zs ...float32) {
	for _, z := range zs {
		n := NewRenderNode(f.cylinder)
		n.Transform.Translation = mgl32.Vec3{0, 0, z}
		n.Color = mgl32.Vec4{1, 0, 0, 1}
		n.Opacity = -z / 10
		f.scene.Nodes.Append(n)
	}
}

func (f *sceneFixture) render(t *testing.T) error {
	t.Helper()
	var err error
	f.rc.PerformAsCurrent(func(rc *Context) {
		err = f.scene.Render(rc)
	})
	return err
}

func TestScenePrepareBuildsGeometryState(t *testing.T) {
	f := newSceneFixture(t, 2, 16)

	pipeline, ok := f.rc.GeometryPipeline.(*gputest.Pipeline)
	require.True(t, ok)
	desc := pipeline.Desc
	assert.Equal(t, "geometryVertex", desc.VertexFunction.Name())
	assert.Equal(t, "geometryFragment", desc.FragmentFunction.Name())
	require.NotNil(t, desc.Blending)
	assert.Equal(t, gpu.BlendFactorSourceAlpha, desc.Blending.SourceFactor)
	assert.Equal(t, gpu.BlendFactorOneMinusSourceAlpha, desc.Blending.DestinationFactor)
	assert.Equal(t, gpu.PixelFormatDepth32Float, desc.DepthFormat)
	assert.Equal(t, gpu.ResourceLayoutUniformSlots, desc.Resources)

	depth, ok := f.rc.GeometryDepthState.(*gputest.DepthState)
	require.True(t, ok)
	assert.Equal(t, gpu.CompareFunctionLess, depth.Desc.DepthCompare)
	assert.True(t, depth.Desc.DepthWriteEnabled)

	for _, p := range f.passes {
		assert.Equal(t, 1, p.prepared)
		assert.Equal(t, []gpu.Size{{Width: 64, Height: 64}}, p.sizes)
	}
	assert.Len(t, f.dev.LiveBuffers("uniform pool"), 1)
	assert.Equal(t, f.rc.DrawableSize, gpu.Size{Width: 64, Height: 64})
}

func TestScenePrepareWithoutPasses(t *testing.T) {
	rc, _ := newTestContext(t)
	s := NewSceneRenderer(4)
	rc.PerformAsCurrent(func(rc *Context) {
		assert.ErrorIs(t, s.Prepare(rc), ErrNoRenderPasses)
	})
}

func TestScenePrepareMissingShader(t *testing.T) {
	rc, dev := newTestContext(t)
	dev.Missing["geometryFragment"] = true
	s := NewSceneRenderer(4)
	s.Passes = []RenderPass{&recordingPass{}}
	rc.PerformAsCurrent(func(rc *Context) {
		assert.ErrorIs(t, s.Prepare(rc), gpu.ErrFunctionNotFound)
	})
}

func TestSceneRequiresActiveContext(t *testing.T) {
	f := newSceneFixture(t, 1, 4)
	assert.Panics(t, func() { _ = f.scene.Render(f.rc) })
	assert.Panics(t, func() { _ = f.scene.Resize(f.rc, gpu.Size{Width: 1, Height: 1}) })
	assert.Panics(t, func() { _ = NewSceneRenderer(4).Prepare(f.rc) })
}

func TestSceneRenderBeforePreparePanics(t *testing.T) {
	rc, dev := newTestContext(t)
	s := NewSceneRenderer(4)
	s.Passes = []RenderPass{&recordingPass{}}
	d := dev.NewDrawable(4, 4)
	rc.SetFrameSuppliers(
		func() *gpu.RenderPassDescriptor { return gpu.NewRenderPassDescriptor(d.Texture()) },
		func() gpu.Drawable { return d },
	)
	rc.PerformAsCurrent(func(rc *Context) {
		assert.Panics(t, func() { _ = s.Render(rc) })
	})
}

func TestSceneRenderWithoutSuppliersPanics(t *testing.T) {
	f := newSceneFixture(t, 1, 4)
	f.rc.ClearFrameSuppliers()
	f.rc.PerformAsCurrent(func(rc *Context) {
		assert.Panics(t, func() { _ = f.scene.Render(rc) })
	})
}

func TestSceneResizeIgnoresEmptySize(t *testing.T) {
	f := newSceneFixture(t, 1, 4)
	f.rc.PerformAsCurrent(func(rc *Context) {
		require.NoError(t, f.scene.Resize(rc, gpu.Size{}))
	})
	assert.Len(t, f.passes[0].sizes, 1)
	assert.Equal(t, gpu.Size{Width: 64, Height: 64}, f.rc.DrawableSize)
}

func TestSceneRenderSessionsAndPresentation(t *testing.T) {
	for _, m := range []int{1, 2, 3} {
		t.Run(fmt.Sprintf("passes=%d", m), func(t *testing.T) {
			f := newSceneFixture(t, m, 16)
			f.addNodes(-3, -2)
			require.NoError(t, f.render(t))

			committed := f.dev.Committed()
			require.Len(t, committed, m+1)
			for i, cb := range committed {
				require.Len(t, cb.Encoders, 1, "command buffer %d", i)
				if i == m {
					assert.Same(t, f.drawable, cb.Drawable)
				} else {
					assert.Nil(t, cb.Drawable, "only the last pass presents")
				}
			}

			// Presentation follows the final commit.
			events := f.dev.Events
			require.Len(t, events, m+2)
			assert.Equal(t, "commit", events[m].Kind)
			assert.Equal(t, "present", events[m+1].Kind)
			assert.Equal(t, events[m].CommandBuffer, events[m+1].CommandBuffer)
			assert.True(t, f.drawable.Presented)

			// Chain wiring: geometry -> pass 0 input, pass i -> pass i+1 input,
			// last pass -> drawable.
			geometry := committed[0].Encoders[0].Descriptor
			assert.Same(t, f.passes[0].input, geometry.Color.Texture)
			for i, p := range f.passes {
				require.Len(t, p.targets, 1)
				if i == m-1 {
					assert.Same(t, f.drawable.Texture(), p.targets[0])
				} else {
					assert.Same(t, f.passes[i+1].input, p.targets[0])
				}
			}

			stats := f.scene.Stats()
			assert.Equal(t, uint64(1), stats.Frame)
			assert.Equal(t, m+1, stats.Sessions)
			assert.Equal(t, 2, stats.Nodes)
		})
	}
}

func TestSceneGeometrySession(t *testing.T) {
	f := newSceneFixture(t, 1, 16)
	f.addNodes(-10, -5, -1)
	require.NoError(t, f.render(t))

	enc := f.dev.Committed()[0].Encoders[0]
	desc := enc.Descriptor
	assert.Equal(t, gpu.LoadActionClear, desc.Color.LoadAction)
	assert.Equal(t, gpu.StoreActionStore, desc.Color.StoreAction)
	assert.Equal(t, gpu.Color{}, desc.Color.ClearColor)
	require.NotNil(t, desc.Depth)
	assert.Equal(t, gpu.LoadActionClear, desc.Depth.LoadAction)
	assert.Equal(t, gpu.StoreActionDontCare, desc.Depth.StoreAction)
	assert.Equal(t, 1.0, desc.Depth.ClearDepth)

	// Shared state is bound once, before any node.
	assert.Len(t, enc.Ops("SetRenderPipelineState"), 1)
	assert.Len(t, enc.Ops("SetDepthStencilState"), 1)
	assert.Equal(t, "SetRenderPipelineState", enc.Calls[0].Op)
	assert.Equal(t, gpu.WindingCounterClockwise, enc.Ops("SetFrontFacing")[0].Winding)
	assert.Equal(t, gpu.CullModeBack, enc.Ops("SetCullMode")[0].CullMode)

	// The uniform buffer is bound once; later nodes only move the offset.
	vertexBinds := enc.Ops("SetVertexBuffer")
	var uniformBinds []gputest.Call
	for _, c := range vertexBinds {
		if c.Index == UniformBufferIndex {
			uniformBinds = append(uniformBinds, c)
		}
	}
	require.Len(t, uniformBinds, 1)
	assert.Equal(t, 0, uniformBinds[0].Offset)
	require.Len(t, enc.Ops("SetFragmentBuffer"), 1)

	vertexOffsets := enc.Ops("SetVertexBufferOffset")
	fragmentOffsets := enc.Ops("SetFragmentBufferOffset")
	require.Len(t, vertexOffsets, 2)
	require.Len(t, fragmentOffsets, 2)
	for i := range vertexOffsets {
		assert.Equal(t, (i+1)*UniformStride, vertexOffsets[i].Offset)
		assert.Equal(t, UniformBufferIndex, vertexOffsets[i].Index)
		assert.Equal(t, (i+1)*UniformStride, fragmentOffsets[i].Offset)
	}

	// Two draws per cylinder.
	assert.Len(t, enc.Draws(), 6)
}

func TestSceneUniformsUploaded(t *testing.T) {
	f := newSceneFixture(t, 1, 16)
	f.addNodes(-10, -5, -1)
	require.NoError(t, f.render(t))

	data := f.scene.UniformPool().Buffer().(*gputest.Buffer).Bytes()
	for i, n := range f.scene.Nodes.Nodes() {
		want := f.scene.ComputeUniforms(n, 1)
		assert.Equal(t, want, core.DecodeUniforms(data[i*UniformStride:]), "slot %d", i)
		assert.Equal(t, want, f.scene.UniformPool().Read(i))
	}
}

func TestSceneRejectsTooManyNodes(t *testing.T) {
	f := newSceneFixture(t, 2, 2)
	f.addNodes(-1, -2, -3)
	err := f.render(t)
	assert.ErrorIs(t, err, ErrUniformPoolExhausted)
	assert.Empty(t, f.dev.CommandBuffers, "nothing is encoded when the pool is too small")

	f.scene.Nodes.Retain(func(n *RenderNode) bool { return n.Transform.Translation.Z() < -1 })
	assert.NoError(t, f.render(t))
}

func TestSceneRenderWithoutDrawable(t *testing.T) {
	f := newSceneFixture(t, 2, 4)
	f.addNodes(-5)
	f.rc.SetFrameSuppliers(
		func() *gpu.RenderPassDescriptor { return nil },
		func() gpu.Drawable { return nil },
	)
	assert.ErrorIs(t, f.render(t), ErrNoDrawable)
	assert.False(t, f.drawable.Presented)
	assert.Len(t, f.dev.Committed(), 2, "geometry and the first pass still ran")
}

func (f *sceneFixture) resize(t *testing.T, w, h int) error {
	t.Helper()
	var err error
	f.rc.PerformAsCurrent(func(rc *Context) {
		err = f.scene.Resize(rc, gpu.Size{Width: w, Height: h})
	})
	return err
}

func TestSceneResizeFailureMidChain(t *testing.T) {
	f := newSceneFixture(t, 2, 4)
	f.addNodes(-5)
	require.NoError(t, f.resize(t, 32, 16))

	f.passes[1].failResize = true
	err := f.resize(t, 64, 64)
	require.Error(t, err)
	assert.ErrorIs(t, err, gpu.ErrAllocation)

	old := gpu.Size{Width: 32, Height: 16}
	assert.Equal(t, old, f.rc.DrawableSize)
	assert.Equal(t, 32, f.scene.depth.Width())
	assert.Equal(t, 16, f.scene.depth.Height())
	assert.Equal(t, 32, f.passes[1].input.Width(), "failed pass keeps its target")
	assert.Equal(t, 64, f.passes[0].input.Width())

	f.dev.Reset()
	assert.ErrorIs(t, f.render(t), ErrTargetMismatch)
	assert.Empty(t, f.dev.Committed(), "nothing is drawn into mismatched targets")

	f.passes[1].failResize = false
	require.NoError(t, f.resize(t, 64, 64))
	assert.Equal(t, gpu.Size{Width: 64, Height: 64}, f.rc.DrawableSize)
	assert.Equal(t, 64, f.scene.depth.Width())
	require.NoError(t, f.render(t))
}

func TestSceneResizeFailureOnFirstPass(t *testing.T) {
	f := newSceneFixture(t, 2, 4)
	f.passes[0].failResize = true
	require.Error(t, f.resize(t, 32, 16))

	assert.Equal(t, gpu.Size{Width: 64, Height: 64}, f.rc.DrawableSize)
	assert.Equal(t, 64, f.scene.depth.Width())
	assert.NoError(t, f.render(t), "no pass changed size")
}

func TestSceneFailedFrameUpdatesStats(t *testing.T) {
	f := newSceneFixture(t, 2, 4)
	f.addNodes(-5, -6)
	clock := time.Unix(0, 0)
	f.scene.profiler.now = func() time.Time {
		clock = clock.Add(time.Millisecond)
		return clock
	}
	f.scene.profiler.Scopes["passes"] = time.Hour

	f.rc.SetFrameSuppliers(
		func() *gpu.RenderPassDescriptor { return nil },
		func() gpu.Drawable { return nil },
	)
	require.ErrorIs(t, f.render(t), ErrNoDrawable)

	assert.Equal(t, time.Millisecond, f.scene.profiler.Scopes["geometry"])
	assert.Equal(t, time.Millisecond, f.scene.profiler.Scopes["passes"], "scope closed on the error path")
	stats := f.scene.Stats()
	assert.Equal(t, uint64(1), stats.Frame)
	assert.Equal(t, 2, stats.Nodes)
	assert.Equal(t, 5*time.Millisecond, stats.Duration)
}

func TestSceneEmptyFrame(t *testing.T) {
	f := newSceneFixture(t, 2, 4)
	require.NoError(t, f.render(t))
	committed := f.dev.Committed()
	require.Len(t, committed, 3)
	assert.Empty(t, committed[0].Encoders[0].Draws())
}

func TestSceneProjectsNodesOnAxis(t *testing.T) {
	s := NewSceneRenderer(4)
	for _, z := range []float32{-10, -5, -1} {
		n := NewRenderNode(nil)
		n.Transform.Translation = mgl32.Vec3{0, 0, z}

		u := s.ComputeUniforms(n, 1)
		clip := u.MVP.Mul4x1(mgl32.Vec4{0, 0, 0, 1})
		ndc := clip.Vec3().Mul(1 / clip.W())

		assert.InDelta(t, 0, ndc.X(), 1e-6, "z=%v", z)
		assert.InDelta(t, 0, ndc.Y(), 1e-6, "z=%v", z)
		assert.Greater(t, ndc.Z(), float32(-1), "z=%v", z)
		assert.Less(t, ndc.Z(), float32(1), "z=%v", z)
	}
}
