package gputest

import (
	"fmt"

	"github.com/gekko3d/linkstart/rt/gpu"
)

type Queue struct {
	dev *Device
}

func (q *Queue) NewCommandBuffer() (gpu.CommandBuffer, error) {
	q.dev.mu.Lock()
	defer q.dev.mu.Unlock()
	cb := &CommandBuffer{ID: len(q.dev.CommandBuffers), dev: q.dev}
	q.dev.CommandBuffers = append(q.dev.CommandBuffers, cb)
	return cb, nil
}

type CommandBuffer struct {
	ID        int
	Encoders  []*Encoder
	Drawable  *Drawable
	Committed bool

	dev *Device
}

func (cb *CommandBuffer) NewRenderEncoder(desc *gpu.RenderPassDescriptor) (gpu.RenderEncoder, error) {
	if cb.Committed {
		return nil, gpu.ErrCommitted
	}
	if desc == nil || desc.Color.Texture == nil {
		return nil, fmt.Errorf("gputest: render pass without a colour target")
	}
	for _, e := range cb.Encoders {
		if !e.Ended {
			return nil, fmt.Errorf("gputest: encoder %d still open", e.Index)
		}
	}
	d := *desc
	if desc.Depth != nil {
		depth := *desc.Depth
		d.Depth = &depth
	}
	e := &Encoder{Index: len(cb.Encoders), Descriptor: d}
	cb.Encoders = append(cb.Encoders, e)
	return e, nil
}

func (cb *CommandBuffer) Present(d gpu.Drawable) {
	cb.Drawable = d.(*Drawable)
}

func (cb *CommandBuffer) Commit() error {
	if cb.Committed {
		return gpu.ErrCommitted
	}
	for _, e := range cb.Encoders {
		if !e.Ended {
			return fmt.Errorf("gputest: commit with open encoder %d", e.Index)
		}
	}
	cb.Committed = true
	cb.dev.event("commit", cb.ID)
	if cb.Drawable != nil {
		cb.Drawable.Present()
		cb.dev.event("present", cb.ID)
	}
	return nil
}

// Call is one recorded encoder command. Only the fields relevant to Op are set.
type Call struct {
	Op         string
	Pipeline   *Pipeline
	DepthState *DepthState
	Winding    gpu.Winding
	CullMode   gpu.CullMode
	Buffer     *Buffer
	Texture    *Texture
	Offset     int
	Index      int
	Bytes      []byte
	Primitive  gpu.PrimitiveType
	Start      int
	Count      int
}

type Encoder struct {
	Index      int
	Descriptor gpu.RenderPassDescriptor
	Calls      []Call
	Ended      bool
}

func (e *Encoder) record(c Call) {
	if e.Ended {
		panic(gpu.ErrEncoderEnded)
	}
	e.Calls = append(e.Calls, c)
}

func (e *Encoder) SetRenderPipelineState(p gpu.RenderPipelineState) {
	e.record(Call{Op: "SetRenderPipelineState", Pipeline: p.(*Pipeline)})
}

func (e *Encoder) SetDepthStencilState(s gpu.DepthStencilState) {
	e.record(Call{Op: "SetDepthStencilState", DepthState: s.(*DepthState)})
}

func (e *Encoder) SetFrontFacing(w gpu.Winding) {
	e.record(Call{Op: "SetFrontFacing", Winding: w})
}

func (e *Encoder) SetCullMode(m gpu.CullMode) {
	e.record(Call{Op: "SetCullMode", CullMode: m})
}

func (e *Encoder) SetVertexBuffer(b gpu.Buffer, offset, index int) {
	e.record(Call{Op: "SetVertexBuffer", Buffer: b.(*Buffer), Offset: offset, Index: index})
}

func (e *Encoder) SetVertexBufferOffset(offset, index int) {
	e.record(Call{Op: "SetVertexBufferOffset", Offset: offset, Index: index})
}

func (e *Encoder) SetFragmentBuffer(b gpu.Buffer, offset, index int) {
	e.record(Call{Op: "SetFragmentBuffer", Buffer: b.(*Buffer), Offset: offset, Index: index})
}

func (e *Encoder) SetFragmentBufferOffset(offset, index int) {
	e.record(Call{Op: "SetFragmentBufferOffset", Offset: offset, Index: index})
}

func (e *Encoder) SetFragmentTexture(t gpu.Texture, index int) {
	e.record(Call{Op: "SetFragmentTexture", Texture: t.(*Texture), Index: index})
}

func (e *Encoder) SetFragmentBytes(data []byte, index int) {
	b := make([]byte, len(data))
	copy(b, data)
	e.record(Call{Op: "SetFragmentBytes", Bytes: b, Index: index})
}

func (e *Encoder) Draw(primitive gpu.PrimitiveType, vertexStart, vertexCount int) {
	e.record(Call{Op: "Draw", Primitive: primitive, Start: vertexStart, Count: vertexCount})
}

func (e *Encoder) EndEncoding() error {
	if e.Ended {
		return gpu.ErrEncoderEnded
	}
	e.Ended = true
	return nil
}

// Ops returns the calls with the given op name, in order.
func (e *Encoder) Ops(op string) []Call {
	var out []Call
	for _, c := range e.Calls {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// FragmentTexture returns the last texture bound at index, or nil.
func (e *Encoder) FragmentTexture(index int) *Texture {
	var t *Texture
	for _, c := range e.Calls {
		if c.Op == "SetFragmentTexture" && c.Index == index {
			t = c.Texture
		}
	}
	return t
}

// Draws returns the draw calls.
func (e *Encoder) Draws() []Call { return e.Ops("Draw") }
