package wgpubackend

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/gekko3d/linkstart/rt/gpu"
)

// variantKey is the encoder state WebGPU needs at pipeline creation.
type variantKey struct {
	topology   gpu.PrimitiveType
	cull       gpu.CullMode
	front      gpu.Winding
	depth      bool
	compare    gpu.CompareFunction
	depthWrite bool
}

// Pipeline is one logical render pipeline. Concrete wgpu pipelines are built
// per variant on first use.
type Pipeline struct {
	dev      *Device
	desc     gpu.RenderPipelineDescriptor
	vertex   *Function
	fragment *Function
	variants map[variantKey]*wgpu.RenderPipeline
}

func newPipeline(d *Device, desc gpu.RenderPipelineDescriptor) (*Pipeline, error) {
	vertex, ok := desc.VertexFunction.(*Function)
	if !ok {
		return nil, fmt.Errorf("pipeline %q: vertex function from another device", desc.Label)
	}
	fragment, ok := desc.FragmentFunction.(*Function)
	if !ok {
		return nil, fmt.Errorf("pipeline %q: fragment function from another device", desc.Label)
	}
	if _, ok := d.pipelineLayouts[desc.Resources]; !ok {
		return nil, fmt.Errorf("pipeline %q: unknown resource layout %d", desc.Label, desc.Resources)
	}
	p := &Pipeline{
		dev:      d,
		desc:     desc,
		vertex:   vertex,
		fragment: fragment,
		variants: map[variantKey]*wgpu.RenderPipeline{},
	}

	// Build the most likely variant now so shader errors surface at prepare
	// time rather than mid-frame.
	key := variantKey{topology: gpu.PrimitiveTypeTriangleStrip}
	if desc.DepthFormat != gpu.PixelFormatInvalid {
		key = variantKey{
			topology:   gpu.PrimitiveTypeTriangleStrip,
			cull:       gpu.CullModeBack,
			depth:      true,
			compare:    gpu.CompareFunctionLess,
			depthWrite: true,
		}
	}
	if _, err := p.variant(key); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Pipeline) Label() string { return p.desc.Label }

func (p *Pipeline) variant(key variantKey) (*wgpu.RenderPipeline, error) {
	if rp, ok := p.variants[key]; ok {
		return rp, nil
	}

	var blend *wgpu.BlendState
	if b := p.desc.Blending; b != nil {
		blend = &wgpu.BlendState{
			Color: wgpu.BlendComponent{
				Operation: wgpu.BlendOperationAdd,
				SrcFactor: blendFactor(b.SourceFactor),
				DstFactor: blendFactor(b.DestinationFactor),
			},
			Alpha: wgpu.BlendComponent{
				Operation: wgpu.BlendOperationAdd,
				SrcFactor: wgpu.BlendFactorOne,
				DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
			},
		}
	}

	var depthStencil *wgpu.DepthStencilState
	if key.depth {
		depthStencil = &wgpu.DepthStencilState{
			Format:            textureFormat(p.desc.DepthFormat),
			DepthWriteEnabled: key.depthWrite,
			DepthCompare:      compareFunction(key.compare),
			StencilFront: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
			StencilBack: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
		}
	}

	rp, err := p.dev.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  p.desc.Label,
		Layout: p.dev.pipelineLayouts[p.desc.Resources],
		Vertex: wgpu.VertexState{
			Module:     p.vertex.module,
			EntryPoint: p.vertex.entryPoint,
			Buffers:    []wgpu.VertexBufferLayout{vertexLayout(p.desc.VertexLayout)},
		},
		Fragment: &wgpu.FragmentState{
			Module:     p.fragment.module,
			EntryPoint: p.fragment.entryPoint,
			Targets: []wgpu.ColorTargetState{
				{
					Format:    textureFormat(p.desc.ColorFormat),
					WriteMask: wgpu.ColorWriteMaskAll,
					Blend:     blend,
				},
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  topology(key.topology),
			FrontFace: frontFace(key.front),
			CullMode:  cullMode(key.cull),
		},
		DepthStencil: depthStencil,
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("pipeline %q: %w", p.desc.Label, err)
	}
	p.variants[key] = rp
	return rp, nil
}

func (p *Pipeline) Release() {
	for key, rp := range p.variants {
		rp.Release()
		delete(p.variants, key)
	}
}
