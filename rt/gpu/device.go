// Package gpu is the hardware abstraction the renderer is written against.
//
// The interfaces follow an explicit command model: a Device creates resources,
// a CommandQueue hands out CommandBuffers, and each CommandBuffer opens
// RenderEncoders (one per encoding session) that record state changes and
// draws. Commit submits the buffer; a Drawable scheduled with Present is shown
// only after its buffer has been submitted.
package gpu

import (
	"errors"
)

var (
	// ErrFunctionNotFound is returned when a library has no entry point with the requested name.
	ErrFunctionNotFound = errors.New("gpu: shader function not found")

	// ErrAllocation is returned when a buffer or texture cannot be created.
	ErrAllocation = errors.New("gpu: allocation failed")

	// ErrEncoderEnded is returned when a command is recorded after EndEncoding.
	ErrEncoderEnded = errors.New("gpu: encoder already ended")

	// ErrCommitted is returned when a committed command buffer is reused.
	ErrCommitted = errors.New("gpu: command buffer already committed")
)

type Device interface {
	Name() string
	NewLibrary() (Library, error)
	NewCommandQueue() (CommandQueue, error)
	NewBuffer(length int, label string) (Buffer, error)
	NewBufferWithBytes(data []byte, label string) (Buffer, error)
	NewTexture(desc TextureDescriptor) (Texture, error)
	NewRenderPipelineState(desc RenderPipelineDescriptor) (RenderPipelineState, error)
	NewDepthStencilState(desc DepthStencilDescriptor) (DepthStencilState, error)
}

// Library resolves logical shader entry points.
type Library interface {
	NewFunction(name string) (Function, error)
}

type Function interface {
	Name() string
}

// Buffer is GPU memory. Write copies data at offset; it is visible to every
// command buffer committed afterwards.
type Buffer interface {
	Label() string
	Length() int
	Write(offset int, data []byte) error
	Release()
}

type Texture interface {
	Label() string
	Width() int
	Height() int
	Format() PixelFormat
	Usage() TextureUsage
	Release()
}

type RenderPipelineState interface {
	Label() string
}

type DepthStencilState interface {
	Label() string
}

// Drawable is the presentable surface image for the current frame.
type Drawable interface {
	Texture() Texture
	Present()
}

type CommandQueue interface {
	NewCommandBuffer() (CommandBuffer, error)
}

type CommandBuffer interface {
	NewRenderEncoder(desc *RenderPassDescriptor) (RenderEncoder, error)
	// Present schedules d to be shown once the buffer has been committed.
	Present(d Drawable)
	Commit() error
}

// RenderEncoder records one encoding session. Buffer and texture indices follow
// the shader binding contract: buffer 0 is vertex data, buffer 1 the
// per-instance uniform record, textures 0 and 1 the fragment inputs.
type RenderEncoder interface {
	SetRenderPipelineState(p RenderPipelineState)
	SetDepthStencilState(d DepthStencilState)
	SetFrontFacing(w Winding)
	SetCullMode(m CullMode)

	SetVertexBuffer(b Buffer, offset, index int)
	SetVertexBufferOffset(offset, index int)
	SetFragmentBuffer(b Buffer, offset, index int)
	SetFragmentBufferOffset(offset, index int)
	SetFragmentTexture(t Texture, index int)
	SetFragmentBytes(data []byte, index int)

	Draw(primitive PrimitiveType, vertexStart, vertexCount int)
	EndEncoding() error
}
