package passes

import (
	"fmt"

	"github.com/gekko3d/linkstart/rt/engine"
	"github.com/gekko3d/linkstart/rt/gpu"
	"github.com/gekko3d/linkstart/rt/shaders"
)

type offscreenTexture struct {
	texture     gpu.Texture
	hasContents bool
}

// PostFXPass keeps two offscreen textures and alternates between them every
// frame, so the shader sees the new input next to the previous frame's.
type PostFXPass struct {
	textures [2]offscreenTexture
	current  int

	pipeline gpu.RenderPipelineState
	quad     gpu.Buffer
}

var _ engine.RenderPass = (*PostFXPass)(nil)

func NewPostFXPass() *PostFXPass {
	return &PostFXPass{}
}

func (p *PostFXPass) InputRenderTarget() gpu.Texture { return p.textures[p.current].texture }

func (p *PostFXPass) CurrentIndex() int { return p.current }

func (p *PostFXPass) HasContents() [2]bool {
	return [2]bool{p.textures[0].hasContents, p.textures[1].hasContents}
}

// Texture returns the physical texture at index i.
func (p *PostFXPass) Texture(i int) gpu.Texture { return p.textures[i].texture }

func (p *PostFXPass) Prepare(rc *engine.Context) error {
	rc.MustBeCurrent("PostFXPass.Prepare")
	pipeline, err := newPipeline(rc, "postfx", shaders.PostFXVertex, shaders.PostFXFragment, nil)
	if err != nil {
		return fmt.Errorf("postfx pipeline: %w", err)
	}
	quad, err := Quad(rc)
	if err != nil {
		return err
	}
	p.pipeline, p.quad = pipeline, quad
	return nil
}

// Resize recreates both textures. Their previous contents are gone, so the
// next frame behaves like the first one.
func (p *PostFXPass) Resize(rc *engine.Context, size gpu.Size) error {
	rc.MustBeCurrent("PostFXPass.Resize")
	var fresh [2]offscreenTexture
	for i := range fresh {
		tex, err := newOffscreenTexture(rc, fmt.Sprintf("postfx %d", i), size)
		if err != nil {
			for _, t := range fresh[:i] {
				t.texture.Release()
			}
			return fmt.Errorf("postfx texture %d: %w", i, err)
		}
		fresh[i] = offscreenTexture{texture: tex}
	}
	p.Release()
	p.textures = fresh
	p.current = 0
	return nil
}

func (p *PostFXPass) Render(rc *engine.Context, desc *gpu.RenderPassDescriptor, cb gpu.CommandBuffer) error {
	if p.pipeline == nil || p.textures[0].texture == nil {
		panic(fmt.Errorf("PostFXPass.Render: %w", engine.ErrNotPrepared))
	}
	desc.Color.LoadAction = gpu.LoadActionDontCare

	enc, err := cb.NewRenderEncoder(desc)
	if err != nil {
		return err
	}

	input := p.textures[p.current]
	previous := p.textures[1-p.current]
	enc.SetRenderPipelineState(p.pipeline)
	enc.SetVertexBuffer(p.quad, 0, engine.VertexBufferIndex)
	enc.SetFragmentTexture(input.texture, 0)
	if previous.hasContents {
		enc.SetFragmentTexture(previous.texture, 1)
	} else {
		// Nothing rendered there yet; sample the input twice.
		enc.SetFragmentTexture(input.texture, 1)
	}
	enc.Draw(gpu.PrimitiveTypeTriangleStrip, 0, quadVertexCount)
	if err := enc.EndEncoding(); err != nil {
		return err
	}

	p.textures[p.current].hasContents = true
	p.current = 1 - p.current
	return nil
}

func (p *PostFXPass) Release() {
	for i := range p.textures {
		if p.textures[i].texture != nil {
			p.textures[i].texture.Release()
		}
		p.textures[i] = offscreenTexture{}
	}
}
