package engine

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/gekko3d/linkstart"
	"github.com/gekko3d/linkstart/rt/gpu"
)

var (
	// ErrEnvironment wraps failures to acquire the shader library or the
	// command queue. Callers treat it as fatal.
	ErrEnvironment = errors.New("engine: rendering environment unavailable")

	ErrNoActiveContext      = errors.New("engine: no active render context")
	ErrNotPrepared          = errors.New("engine: scene renderer not prepared")
	ErrNoRenderPasses       = errors.New("engine: scene renderer has no render passes")
	ErrUniformPoolExhausted = errors.New("engine: uniform pool exhausted")
	ErrNoDrawable           = errors.New("engine: no drawable for this frame")

	// ErrTargetMismatch is returned by Render after a resize failed part way
	// through the pass chain, until a later resize succeeds.
	ErrTargetMismatch = errors.New("engine: render targets do not match the drawable size")
)

// Context owns the device handles used by every rendering component and the
// state that is only valid for the frame being drawn.
//
// Resource creation and command submission require the context to be active,
// which only holds inside PerformAsCurrent. Activation is not re-entrant and
// must happen on the rendering thread.
type Context struct {
	Device  gpu.Device
	Library gpu.Library
	Queue   gpu.CommandQueue
	Logger  linkstart.Logger

	DrawableSize      gpu.Size
	TargetPixelFormat gpu.PixelFormat

	// Suppliers for the presentable surface. They are set by the frame driver
	// just before Render and queried lazily, so a frame that never reaches
	// the last pass never acquires a drawable.
	CurrentRenderPassDescriptor func() *gpu.RenderPassDescriptor
	CurrentDrawable             func() gpu.Drawable

	// Geometry stage state, created by SceneRenderer.Prepare.
	GeometryPipeline   gpu.RenderPipelineState
	GeometryDepthState gpu.DepthStencilState

	active atomic.Bool
	shared map[string]gpu.Buffer
}

type ContextOption func(*Context)

func WithLogger(l linkstart.Logger) ContextOption {
	return func(rc *Context) { rc.Logger = linkstart.OrNop(l) }
}

func WithPixelFormat(f gpu.PixelFormat) ContextOption {
	return func(rc *Context) { rc.TargetPixelFormat = f }
}

// NewContext acquires the shader library and command queue from device.
func NewContext(device gpu.Device, opts ...ContextOption) (*Context, error) {
	if device == nil {
		return nil, fmt.Errorf("%w: nil device", ErrEnvironment)
	}
	rc := &Context{
		Device:            device,
		Logger:            linkstart.NewNopLogger(),
		TargetPixelFormat: gpu.PixelFormatBGRA8Unorm,
		shared:            map[string]gpu.Buffer{},
	}
	for _, opt := range opts {
		opt(rc)
	}

	lib, err := device.NewLibrary()
	if err != nil {
		return nil, fmt.Errorf("%w: open shader library: %w", ErrEnvironment, err)
	}
	rc.Library = lib

	queue, err := device.NewCommandQueue()
	if err != nil {
		return nil, fmt.Errorf("%w: create command queue: %w", ErrEnvironment, err)
	}
	rc.Queue = queue

	rc.Logger.Debugf("render context created on %s", device.Name())
	return rc, nil
}

// PerformAsCurrent activates rc for the duration of action. The context is
// deactivated on every exit path, including a panic inside action.
// Activating an already active context panics.
func (rc *Context) PerformAsCurrent(action func(rc *Context)) {
	if !rc.active.CompareAndSwap(false, true) {
		panic("engine: render context is already active")
	}
	defer rc.active.Store(false)
	action(rc)
}

func (rc *Context) IsCurrent() bool {
	return rc != nil && rc.active.Load()
}

// MustBeCurrent panics with ErrNoActiveContext when rc is not active.
func (rc *Context) MustBeCurrent(op string) {
	if !rc.IsCurrent() {
		panic(fmt.Errorf("%s: %w", op, ErrNoActiveContext))
	}
}

// SetFrameSuppliers installs the presentable surface suppliers for one frame.
func (rc *Context) SetFrameSuppliers(desc func() *gpu.RenderPassDescriptor, drawable func() gpu.Drawable) {
	rc.CurrentRenderPassDescriptor = desc
	rc.CurrentDrawable = drawable
}

func (rc *Context) ClearFrameSuppliers() {
	rc.CurrentRenderPassDescriptor = nil
	rc.CurrentDrawable = nil
}

// SharedBuffer returns the buffer registered under label, creating it from
// build on first use. Components that draw the same static geometry share
// one upload per context.
func (rc *Context) SharedBuffer(label string, build func() []byte) (gpu.Buffer, error) {
	rc.MustBeCurrent("SharedBuffer")
	if buf, ok := rc.shared[label]; ok {
		return buf, nil
	}
	buf, err := rc.Device.NewBufferWithBytes(build(), label)
	if err != nil {
		return nil, fmt.Errorf("create shared buffer %s: %w", label, err)
	}
	rc.shared[label] = buf
	return buf, nil
}

// Release frees the shared buffers. The context must not be used afterwards.
func (rc *Context) Release() {
	for label, buf := range rc.shared {
		buf.Release()
		delete(rc.shared, label)
	}
}
