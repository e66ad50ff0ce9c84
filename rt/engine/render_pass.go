package engine

import (
	"github.com/gekko3d/linkstart/rt/gpu"
)

// RenderPass is one stage of the post-processing chain. The scene (or the
// previous pass) renders into InputRenderTarget; Render draws into the
// target described by desc using an encoder opened on cb.
type RenderPass interface {
	InputRenderTarget() gpu.Texture
	Prepare(rc *Context) error
	Resize(rc *Context, size gpu.Size) error
	Render(rc *Context, desc *gpu.RenderPassDescriptor, cb gpu.CommandBuffer) error
}
