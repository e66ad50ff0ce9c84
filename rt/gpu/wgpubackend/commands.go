package wgpubackend

import (
	"errors"
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/gekko3d/linkstart/rt/gpu"
)

const uniformIndex = 1

type Queue struct {
	dev *Device
}

func (q *Queue) NewCommandBuffer() (gpu.CommandBuffer, error) {
	enc, err := q.dev.device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, fmt.Errorf("create command encoder: %w", err)
	}
	return &CommandBuffer{dev: q.dev, encoder: enc}, nil
}

type CommandBuffer struct {
	dev       *Device
	encoder   *wgpu.CommandEncoder
	open      *Encoder
	drawables []gpu.Drawable
	committed bool
}

func (cb *CommandBuffer) NewRenderEncoder(desc *gpu.RenderPassDescriptor) (gpu.RenderEncoder, error) {
	if cb.committed {
		return nil, gpu.ErrCommitted
	}
	if cb.open != nil {
		return nil, errors.New("previous render encoder not ended")
	}
	if desc == nil || desc.Color.Texture == nil {
		return nil, errors.New("render pass without a colour target")
	}
	d := *desc
	if desc.Depth != nil {
		depth := *desc.Depth
		d.Depth = &depth
	}
	cb.open = &Encoder{cb: cb, desc: d}
	return cb.open, nil
}

func (cb *CommandBuffer) Present(d gpu.Drawable) {
	cb.drawables = append(cb.drawables, d)
}

// Commit submits the recorded passes, then presents scheduled drawables.
func (cb *CommandBuffer) Commit() error {
	if cb.committed {
		return gpu.ErrCommitted
	}
	if cb.open != nil {
		return errors.New("commit with an open render encoder")
	}
	cb.committed = true
	defer cb.encoder.Release()

	cmd, err := cb.encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("finish command encoder: %w", err)
	}
	defer cmd.Release()
	cb.dev.queue.Submit(cmd)
	cb.dev.scratchSubmitted()

	for _, d := range cb.drawables {
		d.Present()
	}
	return nil
}

// binding is the resource bound at one buffer index.
type binding struct {
	buffer *Buffer
	offset int
}

// drawCall is a draw with the encoder state captured at the time it was
// recorded.
type drawCall struct {
	pipeline  *Pipeline
	depth     *DepthState
	front     gpu.Winding
	cull      gpu.CullMode
	vertices  binding
	uniforms  binding
	textures  [2]*Texture
	bytes     []byte
	primitive gpu.PrimitiveType
	start     int
	count     int
}

func (c drawCall) variant(hasDepth bool) variantKey {
	key := variantKey{topology: c.primitive, cull: c.cull, front: c.front}
	if hasDepth {
		key.depth = true
		key.compare = gpu.CompareFunctionAlways
		if c.depth != nil {
			key.compare = c.depth.desc.DepthCompare
			key.depthWrite = c.depth.desc.DepthWriteEnabled
		}
	}
	return key
}

// Encoder records state and draws and replays them into one wgpu render pass
// when encoding ends.
type Encoder struct {
	cb    *CommandBuffer
	desc  gpu.RenderPassDescriptor
	state drawCall
	draws []drawCall
	ended bool
}

func (e *Encoder) check() {
	if e.ended {
		panic(gpu.ErrEncoderEnded)
	}
}

func (e *Encoder) SetRenderPipelineState(p gpu.RenderPipelineState) {
	e.check()
	e.state.pipeline = p.(*Pipeline)
}

func (e *Encoder) SetDepthStencilState(s gpu.DepthStencilState) {
	e.check()
	e.state.depth = s.(*DepthState)
}

func (e *Encoder) SetFrontFacing(w gpu.Winding) {
	e.check()
	e.state.front = w
}

func (e *Encoder) SetCullMode(m gpu.CullMode) {
	e.check()
	e.state.cull = m
}

func (e *Encoder) SetVertexBuffer(b gpu.Buffer, offset, index int) {
	e.check()
	bind := binding{buffer: b.(*Buffer), offset: offset}
	if index == uniformIndex {
		e.state.uniforms = bind
		return
	}
	e.state.vertices = bind
}

func (e *Encoder) SetVertexBufferOffset(offset, index int) {
	e.check()
	if index == uniformIndex {
		e.state.uniforms.offset = offset
		return
	}
	e.state.vertices.offset = offset
}

// SetFragmentBuffer shares the uniform binding with the vertex stage; the
// uniform bind group is visible to both.
func (e *Encoder) SetFragmentBuffer(b gpu.Buffer, offset, index int) {
	e.check()
	if index == uniformIndex {
		e.state.uniforms = binding{buffer: b.(*Buffer), offset: offset}
	}
}

func (e *Encoder) SetFragmentBufferOffset(offset, index int) {
	e.check()
	if index == uniformIndex {
		e.state.uniforms.offset = offset
	}
}

func (e *Encoder) SetFragmentTexture(t gpu.Texture, index int) {
	e.check()
	if index < 0 || index > 1 {
		panic(fmt.Sprintf("wgpubackend: fragment texture index %d out of range", index))
	}
	e.state.textures[index] = t.(*Texture)
}

func (e *Encoder) SetFragmentBytes(data []byte, index int) {
	e.check()
	if len(data) > gpu.MaxFragmentBytes {
		panic(fmt.Sprintf("wgpubackend: %d fragment bytes exceed %d", len(data), gpu.MaxFragmentBytes))
	}
	e.state.bytes = append([]byte(nil), data...)
}

func (e *Encoder) Draw(primitive gpu.PrimitiveType, vertexStart, vertexCount int) {
	e.check()
	d := e.state
	d.primitive, d.start, d.count = primitive, vertexStart, vertexCount
	e.draws = append(e.draws, d)
}

func (e *Encoder) EndEncoding() error {
	if e.ended {
		return gpu.ErrEncoderEnded
	}
	e.ended = true
	e.cb.open = nil
	return e.replay()
}

func (e *Encoder) passDescriptor() (*wgpu.RenderPassDescriptor, error) {
	color, ok := e.desc.Color.Texture.(*Texture)
	if !ok || color.view == nil {
		return nil, errors.New("colour target is not a live texture of this device")
	}
	c := e.desc.Color.ClearColor
	desc := &wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       color.view,
			LoadOp:     loadOp(e.desc.Color.LoadAction),
			StoreOp:    storeOp(e.desc.Color.StoreAction),
			ClearValue: wgpu.Color{R: c.R, G: c.G, B: c.B, A: c.A},
		}},
	}
	if d := e.desc.Depth; d != nil {
		depth, ok := d.Texture.(*Texture)
		if !ok || depth.view == nil {
			return nil, errors.New("depth target is not a live texture of this device")
		}
		desc.DepthStencilAttachment = &wgpu.RenderPassDepthStencilAttachment{
			View:            depth.view,
			DepthLoadOp:     loadOp(d.LoadAction),
			DepthStoreOp:    storeOp(d.StoreAction),
			DepthClearValue: float32(d.ClearDepth),
		}
	}
	return desc, nil
}

func (e *Encoder) replay() error {
	desc, err := e.passDescriptor()
	if err != nil {
		return err
	}
	dev := e.cb.dev
	hasDepth := e.desc.Depth != nil

	pass := e.cb.encoder.BeginRenderPass(desc)
	defer pass.Release()

	var (
		current  *wgpu.RenderPipeline
		firstErr error
	)
	for _, d := range e.draws {
		if d.pipeline == nil || d.vertices.buffer == nil {
			firstErr = errors.New("draw without pipeline or vertex buffer")
			break
		}
		rp, err := d.pipeline.variant(d.variant(hasDepth))
		if err != nil {
			firstErr = err
			break
		}
		if rp != current {
			pass.SetPipeline(rp)
			current = rp
		}

		switch d.pipeline.desc.Resources {
		case gpu.ResourceLayoutUniformSlots:
			if d.uniforms.buffer == nil {
				firstErr = errors.New("draw without uniform buffer")
				break
			}
			bg, err := dev.uniformGroup(d.uniforms.buffer)
			if err != nil {
				firstErr = err
				break
			}
			pass.SetBindGroup(0, bg, []uint32{uint32(d.uniforms.offset)})
		case gpu.ResourceLayoutTextures:
			t0, t1 := d.textures[0], d.textures[1]
			if t0 == nil {
				firstErr = errors.New("draw without fragment texture 0")
				break
			}
			if t1 == nil {
				t1 = t0
			}
			bg, err := dev.textureGroup(t0, t1)
			if err != nil {
				firstErr = err
				break
			}
			offset, err := dev.writeScratch(d.bytes)
			if err != nil {
				firstErr = err
				break
			}
			pass.SetBindGroup(0, bg, []uint32{offset})
		}
		if firstErr != nil {
			break
		}

		vb := d.vertices
		pass.SetVertexBuffer(0, vb.buffer.buffer, uint64(vb.offset), wgpu.WholeSize)
		pass.Draw(uint32(d.count), 1, uint32(d.start), 0)
	}

	if err := pass.End(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("end render pass: %w", err)
	}
	return firstErr
}
