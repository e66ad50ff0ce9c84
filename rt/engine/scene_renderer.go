package engine

import (
	"fmt"
	"time"

	"github.com/gekko3d/linkstart/rt/core"
	"github.com/gekko3d/linkstart/rt/gpu"
	"github.com/gekko3d/linkstart/rt/shaders"
)

// Binding indices shared with the shaders.
const (
	VertexBufferIndex  = 0
	UniformBufferIndex = 1
)

// VertexLayout describes core.Vertex for the geometry pipeline.
var VertexLayout = gpu.VertexLayout{
	Stride: core.VertexStride,
	Attributes: []gpu.VertexAttribute{
		{Format: gpu.VertexFormatFloat3, Offset: 0},
		{Format: gpu.VertexFormatFloat3, Offset: 12},
	},
}

// TextureVertexLayout describes core.TextureVertex for full-screen passes.
var TextureVertexLayout = gpu.VertexLayout{
	Stride: core.TextureVertexStride,
	Attributes: []gpu.VertexAttribute{
		{Format: gpu.VertexFormatFloat3, Offset: 0},
		{Format: gpu.VertexFormatFloat2, Offset: 12},
	},
}

// FrameStats summarises the last rendered frame.
type FrameStats struct {
	Frame    uint64
	Nodes    int
	Sessions int
	Duration time.Duration
}

// SceneRenderer draws Nodes into the first pass's input target and then runs
// the pass chain, the last pass writing to the presentable surface.
//
// Prepare, Resize and Render all require an active context.
type SceneRenderer struct {
	Nodes  *NodeList
	Passes []RenderPass
	Camera core.Camera

	// StatsInterval logs frame statistics at debug level every n frames.
	StatsInterval int

	pool      *UniformPool
	depth     gpu.Texture
	prepared  bool
	resizeErr error

	profiler *Profiler
	stats    FrameStats
}

func NewSceneRenderer(poolCapacity int) *SceneRenderer {
	return &SceneRenderer{
		Nodes:         NewNodeList(256),
		Camera:        core.NewCamera(),
		StatsInterval: 300,
		pool:          NewUniformPool(poolCapacity),
		profiler:      NewProfiler(),
	}
}

func (s *SceneRenderer) UniformPool() *UniformPool { return s.pool }

func (s *SceneRenderer) Stats() FrameStats { return s.stats }

func (s *SceneRenderer) Prepare(rc *Context) error {
	rc.MustBeCurrent("SceneRenderer.Prepare")
	if len(s.Passes) == 0 {
		return ErrNoRenderPasses
	}

	vertexFn, err := rc.Library.NewFunction(shaders.GeometryVertex)
	if err != nil {
		return fmt.Errorf("geometry pipeline: %w", err)
	}
	fragmentFn, err := rc.Library.NewFunction(shaders.GeometryFragment)
	if err != nil {
		return fmt.Errorf("geometry pipeline: %w", err)
	}

	pipeline, err := rc.Device.NewRenderPipelineState(gpu.RenderPipelineDescriptor{
		Label:            "geometry",
		VertexFunction:   vertexFn,
		FragmentFunction: fragmentFn,
		VertexLayout:     VertexLayout,
		Resources:        gpu.ResourceLayoutUniformSlots,
		ColorFormat:      rc.TargetPixelFormat,
		Blending: &gpu.BlendState{
			Operation:         gpu.BlendOperationAdd,
			SourceFactor:      gpu.BlendFactorSourceAlpha,
			DestinationFactor: gpu.BlendFactorOneMinusSourceAlpha,
		},
		DepthFormat: gpu.PixelFormatDepth32Float,
	})
	if err != nil {
		return fmt.Errorf("geometry pipeline: %w", err)
	}

	depthState, err := rc.Device.NewDepthStencilState(gpu.DepthStencilDescriptor{
		Label:             "geometry depth",
		DepthCompare:      gpu.CompareFunctionLess,
		DepthWriteEnabled: true,
	})
	if err != nil {
		return fmt.Errorf("geometry depth state: %w", err)
	}
	rc.GeometryPipeline = pipeline
	rc.GeometryDepthState = depthState

	if err := s.pool.Allocate(rc.Device); err != nil {
		return err
	}

	for i, pass := range s.Passes {
		if err := pass.Prepare(rc); err != nil {
			return fmt.Errorf("prepare render pass %d: %w", i, err)
		}
	}
	s.prepared = true
	rc.Logger.Debugf("scene renderer prepared: %d passes, %d uniform slots", len(s.Passes), s.pool.Capacity())
	return nil
}

// Resize recreates the depth buffer and forwards size to every pass. Empty
// sizes (a minimised window) are ignored.
//
// The new depth buffer and DrawableSize are only installed once every pass
// has resized. A pass failing after an earlier one succeeded leaves the chain
// at mixed sizes, and Render refuses to draw until a resize succeeds.
func (s *SceneRenderer) Resize(rc *Context, size gpu.Size) error {
	rc.MustBeCurrent("SceneRenderer.Resize")
	if size.Empty() {
		rc.Logger.Debugf("ignoring resize to %dx%d", size.Width, size.Height)
		return nil
	}

	depth, err := rc.Device.NewTexture(gpu.TextureDescriptor{
		Label:  "scene depth",
		Width:  size.Width,
		Height: size.Height,
		Format: gpu.PixelFormatDepth32Float,
		Usage:  gpu.TextureUsageRenderTarget,
	})
	if err != nil {
		return fmt.Errorf("create depth texture: %w", err)
	}

	for i, pass := range s.Passes {
		if err := pass.Resize(rc, size); err != nil {
			depth.Release()
			if i > 0 {
				s.resizeErr = fmt.Errorf("%w: passes 0..%d are %dx%d, drawable is %dx%d",
					ErrTargetMismatch, i-1, size.Width, size.Height, rc.DrawableSize.Width, rc.DrawableSize.Height)
			}
			return fmt.Errorf("resize render pass %d: %w", i, err)
		}
	}

	if s.depth != nil {
		s.depth.Release()
	}
	s.depth = depth
	rc.DrawableSize = size
	s.resizeErr = nil
	return nil
}

// ComputeUniforms returns the record written for node at the given aspect.
func (s *SceneRenderer) ComputeUniforms(node *RenderNode, aspect float32) core.Uniforms {
	return core.ComputeUniforms(node.Transform, node.Color, node.Opacity, s.Camera, aspect)
}

// Render draws one frame. It returns ErrUniformPoolExhausted, before encoding
// anything, when there are more nodes than uniform slots, and ErrTargetMismatch
// after a resize that failed part way.
func (s *SceneRenderer) Render(rc *Context) error {
	rc.MustBeCurrent("SceneRenderer.Render")
	if !s.prepared || s.depth == nil || rc.GeometryPipeline == nil || rc.GeometryDepthState == nil ||
		rc.CurrentRenderPassDescriptor == nil || rc.CurrentDrawable == nil {
		panic(fmt.Errorf("SceneRenderer.Render: %w", ErrNotPrepared))
	}
	if s.resizeErr != nil {
		return s.resizeErr
	}
	if n := s.Nodes.Len(); n > s.pool.Capacity() {
		return fmt.Errorf("%w: %d nodes, capacity %d", ErrUniformPoolExhausted, n, s.pool.Capacity())
	}

	s.profiler.Reset()
	start := s.profiler.now()
	s.profiler.BeginScope("geometry")
	err := s.renderGeometry(rc)
	s.profiler.EndScope("geometry")
	if err == nil {
		s.profiler.BeginScope("passes")
		err = s.renderPasses(rc)
		s.profiler.EndScope("passes")
	}

	// Failed frames are counted too so the timings never go stale.
	s.stats = FrameStats{
		Frame:    s.stats.Frame + 1,
		Nodes:    s.Nodes.Len(),
		Sessions: len(s.Passes) + 1,
		Duration: s.profiler.now().Sub(start),
	}
	s.profiler.SetCount("nodes", s.stats.Nodes)
	s.profiler.SetCount("sessions", s.stats.Sessions)
	if err != nil {
		return err
	}
	if s.StatsInterval > 0 && s.stats.Frame%uint64(s.StatsInterval) == 0 && rc.Logger.DebugEnabled() {
		rc.Logger.Debugf("frame %d %s", s.stats.Frame, s.profiler.StatsString())
	}
	return nil
}

func (s *SceneRenderer) renderGeometry(rc *Context) error {
	cb, err := rc.Queue.NewCommandBuffer()
	if err != nil {
		return fmt.Errorf("geometry command buffer: %w", err)
	}
	enc, err := cb.NewRenderEncoder(&gpu.RenderPassDescriptor{
		Color: gpu.ColorAttachment{
			Texture:     s.Passes[0].InputRenderTarget(),
			LoadAction:  gpu.LoadActionClear,
			StoreAction: gpu.StoreActionStore,
			ClearColor:  gpu.Color{},
		},
		Depth: &gpu.DepthAttachment{
			Texture:     s.depth,
			LoadAction:  gpu.LoadActionClear,
			StoreAction: gpu.StoreActionDontCare,
			ClearDepth:  1,
		},
	})
	if err != nil {
		return fmt.Errorf("geometry encoder: %w", err)
	}

	enc.SetRenderPipelineState(rc.GeometryPipeline)
	enc.SetDepthStencilState(rc.GeometryDepthState)
	enc.SetFrontFacing(gpu.WindingCounterClockwise)
	enc.SetCullMode(gpu.CullModeBack)

	aspect := rc.DrawableSize.Aspect()
	uniforms := s.pool.Buffer()
	s.pool.Reset()
	for i, node := range s.Nodes.Nodes() {
		if err := s.pool.Write(i, s.ComputeUniforms(node, aspect)); err != nil {
			_ = enc.EndEncoding()
			return err
		}
		if i == 0 {
			enc.SetVertexBuffer(uniforms, 0, UniformBufferIndex)
			enc.SetFragmentBuffer(uniforms, 0, UniformBufferIndex)
		} else {
			// Same buffer, only the slot moves.
			offset := s.pool.Offset(i)
			enc.SetVertexBufferOffset(offset, UniformBufferIndex)
			enc.SetFragmentBufferOffset(offset, UniformBufferIndex)
		}
		node.Geometry.Render(node.Transform, enc)
	}

	if err := enc.EndEncoding(); err != nil {
		return fmt.Errorf("geometry encoder: %w", err)
	}
	if err := s.pool.Flush(); err != nil {
		return err
	}
	if err := cb.Commit(); err != nil {
		return fmt.Errorf("commit geometry: %w", err)
	}
	return nil
}

func (s *SceneRenderer) renderPasses(rc *Context) error {
	last := len(s.Passes) - 1
	for i, pass := range s.Passes {
		var target *gpu.RenderPassDescriptor
		if i == last {
			if target = rc.CurrentRenderPassDescriptor(); target == nil {
				return ErrNoDrawable
			}
		} else {
			target = gpu.NewRenderPassDescriptor(s.Passes[i+1].InputRenderTarget())
		}

		cb, err := rc.Queue.NewCommandBuffer()
		if err != nil {
			return fmt.Errorf("render pass %d command buffer: %w", i, err)
		}
		if err := pass.Render(rc, target, cb); err != nil {
			return fmt.Errorf("render pass %d: %w", i, err)
		}
		if i == last {
			cb.Present(rc.CurrentDrawable())
		}
		if err := cb.Commit(); err != nil {
			return fmt.Errorf("commit render pass %d: %w", i, err)
		}
	}
	return nil
}

// Release frees the depth buffer and uniform pool.
func (s *SceneRenderer) Release() {
	if s.depth != nil {
		s.depth.Release()
		s.depth = nil
	}
	s.pool.Release()
	s.prepared = false
}
