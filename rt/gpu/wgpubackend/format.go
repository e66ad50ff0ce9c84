package wgpubackend

import (
	"github.com/cogentcore/webgpu/wgpu"

	"github.com/gekko3d/linkstart/rt/gpu"
)

func textureFormat(f gpu.PixelFormat) wgpu.TextureFormat {
	switch f {
	case gpu.PixelFormatBGRA8Unorm:
		return wgpu.TextureFormatBGRA8Unorm
	case gpu.PixelFormatBGRA8UnormSrgb:
		return wgpu.TextureFormatBGRA8UnormSrgb
	case gpu.PixelFormatRGBA8Unorm:
		return wgpu.TextureFormatRGBA8Unorm
	case gpu.PixelFormatRGBA8UnormSrgb:
		return wgpu.TextureFormatRGBA8UnormSrgb
	case gpu.PixelFormatDepth32Float:
		return wgpu.TextureFormatDepth32Float
	}
	return wgpu.TextureFormatUndefined
}

// PixelFormat maps a surface format back to the abstraction. Unsupported
// formats map to PixelFormatInvalid.
func PixelFormat(f wgpu.TextureFormat) gpu.PixelFormat {
	switch f {
	case wgpu.TextureFormatBGRA8Unorm:
		return gpu.PixelFormatBGRA8Unorm
	case wgpu.TextureFormatBGRA8UnormSrgb:
		return gpu.PixelFormatBGRA8UnormSrgb
	case wgpu.TextureFormatRGBA8Unorm:
		return gpu.PixelFormatRGBA8Unorm
	case wgpu.TextureFormatRGBA8UnormSrgb:
		return gpu.PixelFormatRGBA8UnormSrgb
	case wgpu.TextureFormatDepth32Float:
		return gpu.PixelFormatDepth32Float
	}
	return gpu.PixelFormatInvalid
}

func textureUsage(u gpu.TextureUsage) wgpu.TextureUsage {
	var out wgpu.TextureUsage
	if u&gpu.TextureUsageRenderTarget != 0 {
		out |= wgpu.TextureUsageRenderAttachment
	}
	if u&gpu.TextureUsageShaderRead != 0 {
		out |= wgpu.TextureUsageTextureBinding
	}
	return out
}

// loadOp maps load actions. WebGPU has no "don't care"; clearing is the
// cheapest defined equivalent on tilers.
func loadOp(a gpu.LoadAction) wgpu.LoadOp {
	if a == gpu.LoadActionLoad {
		return wgpu.LoadOpLoad
	}
	return wgpu.LoadOpClear
}

func storeOp(a gpu.StoreAction) wgpu.StoreOp {
	if a == gpu.StoreActionStore {
		return wgpu.StoreOpStore
	}
	return wgpu.StoreOpDiscard
}

func topology(p gpu.PrimitiveType) wgpu.PrimitiveTopology {
	if p == gpu.PrimitiveTypeTriangleStrip {
		return wgpu.PrimitiveTopologyTriangleStrip
	}
	return wgpu.PrimitiveTopologyTriangleList
}

func blendFactor(f gpu.BlendFactor) wgpu.BlendFactor {
	switch f {
	case gpu.BlendFactorZero:
		return wgpu.BlendFactorZero
	case gpu.BlendFactorSourceAlpha:
		return wgpu.BlendFactorSrcAlpha
	case gpu.BlendFactorOneMinusSourceAlpha:
		return wgpu.BlendFactorOneMinusSrcAlpha
	}
	return wgpu.BlendFactorOne
}

func compareFunction(c gpu.CompareFunction) wgpu.CompareFunction {
	switch c {
	case gpu.CompareFunctionLess:
		return wgpu.CompareFunctionLess
	case gpu.CompareFunctionLessEqual:
		return wgpu.CompareFunctionLessEqual
	}
	return wgpu.CompareFunctionAlways
}

func cullMode(m gpu.CullMode) wgpu.CullMode {
	switch m {
	case gpu.CullModeBack:
		return wgpu.CullModeBack
	case gpu.CullModeFront:
		return wgpu.CullModeFront
	}
	return wgpu.CullModeNone
}

func frontFace(w gpu.Winding) wgpu.FrontFace {
	if w == gpu.WindingClockwise {
		return wgpu.FrontFaceCW
	}
	return wgpu.FrontFaceCCW
}

func vertexFormat(f gpu.VertexFormat) wgpu.VertexFormat {
	if f == gpu.VertexFormatFloat2 {
		return wgpu.VertexFormatFloat32x2
	}
	return wgpu.VertexFormatFloat32x3
}

func vertexLayout(l gpu.VertexLayout) wgpu.VertexBufferLayout {
	attrs := make([]wgpu.VertexAttribute, len(l.Attributes))
	for i, a := range l.Attributes {
		attrs[i] = wgpu.VertexAttribute{
			Format:         vertexFormat(a.Format),
			Offset:         uint64(a.Offset),
			ShaderLocation: uint32(i),
		}
	}
	return wgpu.VertexBufferLayout{
		ArrayStride: uint64(l.Stride),
		StepMode:    wgpu.VertexStepModeVertex,
		Attributes:  attrs,
	}
}
