package passes

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gekko3d/linkstart/rt/engine"
	"github.com/gekko3d/linkstart/rt/gpu"
	"github.com/gekko3d/linkstart/rt/shaders"
)

// BackgroundPass composites its input over a background whose opacity is
// Alpha. Alpha is pushed as fragment bytes, not as a uniform buffer.
type BackgroundPass struct {
	Alpha float32

	input    gpu.Texture
	pipeline gpu.RenderPipelineState
	quad     gpu.Buffer
}

var _ engine.RenderPass = (*BackgroundPass)(nil)

func NewBackgroundPass() *BackgroundPass {
	return &BackgroundPass{Alpha: 1}
}

func (p *BackgroundPass) InputRenderTarget() gpu.Texture { return p.input }

func (p *BackgroundPass) Prepare(rc *engine.Context) error {
	rc.MustBeCurrent("BackgroundPass.Prepare")
	pipeline, err := newPipeline(rc, "background", shaders.BackgroundVertex, shaders.BackgroundFragment, &gpu.BlendState{
		Operation:         gpu.BlendOperationAdd,
		SourceFactor:      gpu.BlendFactorSourceAlpha,
		DestinationFactor: gpu.BlendFactorOneMinusSourceAlpha,
	})
	if err != nil {
		return fmt.Errorf("background pipeline: %w", err)
	}
	quad, err := Quad(rc)
	if err != nil {
		return err
	}
	p.pipeline, p.quad = pipeline, quad
	return nil
}

func (p *BackgroundPass) Resize(rc *engine.Context, size gpu.Size) error {
	rc.MustBeCurrent("BackgroundPass.Resize")
	tex, err := newOffscreenTexture(rc, "background input", size)
	if err != nil {
		return fmt.Errorf("background input: %w", err)
	}
	if p.input != nil {
		p.input.Release()
	}
	p.input = tex
	return nil
}

func (p *BackgroundPass) Render(rc *engine.Context, desc *gpu.RenderPassDescriptor, cb gpu.CommandBuffer) error {
	if p.pipeline == nil || p.input == nil {
		panic(fmt.Errorf("BackgroundPass.Render: %w", engine.ErrNotPrepared))
	}
	desc.Color.LoadAction = gpu.LoadActionClear
	desc.Color.StoreAction = gpu.StoreActionStore
	desc.Color.ClearColor = gpu.Color{}

	enc, err := cb.NewRenderEncoder(desc)
	if err != nil {
		return err
	}
	var alpha [4]byte
	binary.LittleEndian.PutUint32(alpha[:], math.Float32bits(p.Alpha))

	enc.SetRenderPipelineState(p.pipeline)
	enc.SetVertexBuffer(p.quad, 0, engine.VertexBufferIndex)
	enc.SetFragmentTexture(p.input, 0)
	enc.SetFragmentBytes(alpha[:], 0)
	enc.Draw(gpu.PrimitiveTypeTriangleStrip, 0, quadVertexCount)
	return enc.EndEncoding()
}

func (p *BackgroundPass) Release() {
	if p.input != nil {
		p.input.Release()
		p.input = nil
	}
}
