package wgpubackend

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gekko3d/linkstart/rt/core"
	"github.com/gekko3d/linkstart/rt/gpu"
)

func TestPixelFormatRoundTrip(t *testing.T) {
	for _, f := range []gpu.PixelFormat{
		gpu.PixelFormatBGRA8Unorm,
		gpu.PixelFormatBGRA8UnormSrgb,
		gpu.PixelFormatRGBA8Unorm,
		gpu.PixelFormatRGBA8UnormSrgb,
		gpu.PixelFormatDepth32Float,
	} {
		assert.Equal(t, f, PixelFormat(textureFormat(f)), f.String())
	}
	assert.Equal(t, wgpu.TextureFormatUndefined, textureFormat(gpu.PixelFormatInvalid))
	assert.Equal(t, gpu.PixelFormatInvalid, PixelFormat(wgpu.TextureFormatR8Unorm))
}

func TestAttachmentActions(t *testing.T) {
	assert.Equal(t, wgpu.LoadOpLoad, loadOp(gpu.LoadActionLoad))
	assert.Equal(t, wgpu.LoadOpClear, loadOp(gpu.LoadActionClear))
	assert.Equal(t, wgpu.LoadOpClear, loadOp(gpu.LoadActionDontCare))
	assert.Equal(t, wgpu.StoreOpStore, storeOp(gpu.StoreActionStore))
	assert.Equal(t, wgpu.StoreOpDiscard, storeOp(gpu.StoreActionDontCare))
}

func TestTextureUsage(t *testing.T) {
	u := textureUsage(gpu.TextureUsageRenderTarget | gpu.TextureUsageShaderRead)
	assert.Equal(t, wgpu.TextureUsageRenderAttachment|wgpu.TextureUsageTextureBinding, u)
	assert.Equal(t, wgpu.TextureUsageRenderAttachment, textureUsage(gpu.TextureUsageRenderTarget))
}

func TestVertexLayout(t *testing.T) {
	l := vertexLayout(gpu.VertexLayout{
		Stride: core.TextureVertexStride,
		Attributes: []gpu.VertexAttribute{
			{Format: gpu.VertexFormatFloat3, Offset: 0},
			{Format: gpu.VertexFormatFloat2, Offset: 12},
		},
	})
	assert.Equal(t, uint64(core.TextureVertexStride), l.ArrayStride)
	require.Len(t, l.Attributes, 2)
	assert.Equal(t, wgpu.VertexFormatFloat32x3, l.Attributes[0].Format)
	assert.Equal(t, wgpu.VertexFormatFloat32x2, l.Attributes[1].Format)
	assert.Equal(t, uint64(12), l.Attributes[1].Offset)
	assert.Equal(t, uint32(1), l.Attributes[1].ShaderLocation)
}

func TestRasterState(t *testing.T) {
	assert.Equal(t, wgpu.PrimitiveTopologyTriangleStrip, topology(gpu.PrimitiveTypeTriangleStrip))
	assert.Equal(t, wgpu.PrimitiveTopologyTriangleList, topology(gpu.PrimitiveTypeTriangle))
	assert.Equal(t, wgpu.FrontFaceCW, frontFace(gpu.WindingClockwise))
	assert.Equal(t, wgpu.CullModeBack, cullMode(gpu.CullModeBack))
	assert.Equal(t, wgpu.CompareFunctionLess, compareFunction(gpu.CompareFunctionLess))
	assert.Equal(t, wgpu.BlendFactorOneMinusSrcAlpha, blendFactor(gpu.BlendFactorOneMinusSourceAlpha))
}

func newRecordingEncoder() *Encoder {
	cb := &CommandBuffer{}
	e := &Encoder{cb: cb}
	cb.open = e
	return e
}

func TestEncoderSnapshotsStatePerDraw(t *testing.T) {
	e := newRecordingEncoder()
	pipeline := &Pipeline{desc: gpu.RenderPipelineDescriptor{Label: "geometry"}}
	depth := &DepthState{desc: gpu.DepthStencilDescriptor{DepthCompare: gpu.CompareFunctionLess, DepthWriteEnabled: true}}
	vertices := &Buffer{label: "cylinder side", length: 1024}
	uniforms := &Buffer{label: "uniform pool", length: 4096}

	e.SetRenderPipelineState(pipeline)
	e.SetDepthStencilState(depth)
	e.SetFrontFacing(gpu.WindingClockwise)
	e.SetCullMode(gpu.CullModeBack)
	e.SetVertexBuffer(vertices, 0, 0)
	e.SetVertexBuffer(uniforms, 0, uniformIndex)
	e.Draw(gpu.PrimitiveTypeTriangleStrip, 0, 74)

	e.SetVertexBufferOffset(256, uniformIndex)
	e.SetFragmentBufferOffset(256, uniformIndex)
	e.Draw(gpu.PrimitiveTypeTriangleStrip, 0, 74)

	require.Len(t, e.draws, 2)
	assert.Equal(t, 0, e.draws[0].uniforms.offset)
	assert.Equal(t, 256, e.draws[1].uniforms.offset)
	assert.Same(t, vertices, e.draws[1].vertices.buffer)
	assert.Same(t, uniforms, e.draws[1].uniforms.buffer)
	assert.Equal(t, 74, e.draws[1].count)

	key := e.draws[0].variant(true)
	assert.Equal(t, variantKey{
		topology:   gpu.PrimitiveTypeTriangleStrip,
		cull:       gpu.CullModeBack,
		front:      gpu.WindingClockwise,
		depth:      true,
		compare:    gpu.CompareFunctionLess,
		depthWrite: true,
	}, key)
	assert.False(t, e.draws[0].variant(false).depth)
}

func TestEncoderCopiesFragmentBytes(t *testing.T) {
	e := newRecordingEncoder()
	e.SetRenderPipelineState(&Pipeline{})
	alpha := []byte{1, 2, 3, 4}
	e.SetFragmentBytes(alpha, 0)
	e.Draw(gpu.PrimitiveTypeTriangleStrip, 0, 4)
	alpha[0] = 9

	require.Len(t, e.draws, 1)
	assert.Equal(t, []byte{1, 2, 3, 4}, e.draws[0].bytes)
	assert.Panics(t, func() { e.SetFragmentBytes(make([]byte, gpu.MaxFragmentBytes+1), 0) })
}

func TestEncoderFragmentTextures(t *testing.T) {
	e := newRecordingEncoder()
	cur := &Texture{desc: gpu.TextureDescriptor{Label: "a"}}
	prev := &Texture{desc: gpu.TextureDescriptor{Label: "b"}}
	e.SetFragmentTexture(cur, 0)
	e.SetFragmentTexture(prev, 1)
	e.Draw(gpu.PrimitiveTypeTriangleStrip, 0, 4)

	assert.Equal(t, [2]*Texture{cur, prev}, e.draws[0].textures)
	assert.Panics(t, func() { e.SetFragmentTexture(cur, 2) })
}

func TestEncoderRejectsUseAfterEnd(t *testing.T) {
	e := newRecordingEncoder()
	e.ended = true
	assert.PanicsWithValue(t, gpu.ErrEncoderEnded, func() { e.SetCullMode(gpu.CullModeNone) })
	assert.ErrorIs(t, e.EndEncoding(), gpu.ErrEncoderEnded)
}

func TestCommandBufferRejectsSecondEncoder(t *testing.T) {
	cb := &CommandBuffer{}
	tex := &Texture{desc: gpu.TextureDescriptor{Label: "target"}}
	_, err := cb.NewRenderEncoder(gpu.NewRenderPassDescriptor(tex))
	require.NoError(t, err)
	_, err = cb.NewRenderEncoder(gpu.NewRenderPassDescriptor(tex))
	assert.Error(t, err)

	cb.committed = true
	cb.open = nil
	_, err = cb.NewRenderEncoder(gpu.NewRenderPassDescriptor(tex))
	assert.ErrorIs(t, err, gpu.ErrCommitted)
}

func TestScratchRingPerSubmission(t *testing.T) {
	d := &Device{}
	for i := 0; i < scratchSlots; i++ {
		offset, err := d.reserveScratch()
		require.NoError(t, err)
		assert.Equal(t, uint32(i*scratchStride), offset)
	}

	_, err := d.reserveScratch()
	assert.ErrorIs(t, err, ErrScratchExhausted, "a slot still owed to an unsubmitted draw")

	d.scratchSubmitted()
	offset, err := d.reserveScratch()
	require.NoError(t, err)
	assert.Equal(t, uint32(0), offset)
	offset, err = d.reserveScratch()
	require.NoError(t, err)
	assert.Equal(t, uint32(scratchStride), offset)
}
