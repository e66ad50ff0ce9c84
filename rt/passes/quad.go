package passes

import (
	"github.com/gekko3d/linkstart/rt/core"
	"github.com/gekko3d/linkstart/rt/engine"
	"github.com/gekko3d/linkstart/rt/gpu"
)

const (
	quadLabel       = "fullscreen quad"
	quadVertexCount = 4
)

// QuadVertices is a full-screen triangle strip. Texture coordinates have
// their origin at the bottom-left; the shaders flip v when sampling.
func QuadVertices() []core.TextureVertex {
	return []core.TextureVertex{
		{Position: [3]float32{-1, -1, 0}, TexCoords: [2]float32{0, 0}},
		{Position: [3]float32{-1, 1, 0}, TexCoords: [2]float32{0, 1}},
		{Position: [3]float32{1, -1, 0}, TexCoords: [2]float32{1, 0}},
		{Position: [3]float32{1, 1, 0}, TexCoords: [2]float32{1, 1}},
	}
}

// Quad returns the quad vertex buffer shared by every pass on rc.
func Quad(rc *engine.Context) (gpu.Buffer, error) {
	return rc.SharedBuffer(quadLabel, func() []byte {
		return core.TextureVertexBytes(QuadVertices())
	})
}

// newPipeline builds a full-screen pipeline from two logical entry points.
func newPipeline(rc *engine.Context, label, vertex, fragment string, blending *gpu.BlendState) (gpu.RenderPipelineState, error) {
	vertexFn, err := rc.Library.NewFunction(vertex)
	if err != nil {
		return nil, err
	}
	fragmentFn, err := rc.Library.NewFunction(fragment)
	if err != nil {
		return nil, err
	}
	return rc.Device.NewRenderPipelineState(gpu.RenderPipelineDescriptor{
		Label:            label,
		VertexFunction:   vertexFn,
		FragmentFunction: fragmentFn,
		VertexLayout:     engine.TextureVertexLayout,
		Resources:        gpu.ResourceLayoutTextures,
		ColorFormat:      rc.TargetPixelFormat,
		Blending:         blending,
	})
}

func newOffscreenTexture(rc *engine.Context, label string, size gpu.Size) (gpu.Texture, error) {
	return rc.Device.NewTexture(gpu.TextureDescriptor{
		Label:  label,
		Width:  size.Width,
		Height: size.Height,
		Format: rc.TargetPixelFormat,
		Usage:  gpu.TextureUsageRenderTarget | gpu.TextureUsageShaderRead,
	})
}
