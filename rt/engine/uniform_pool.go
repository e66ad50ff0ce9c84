package engine

import (
	"fmt"

	"github.com/gekko3d/linkstart/rt/core"
	"github.com/gekko3d/linkstart/rt/gpu"
)

const (
	DefaultUniformPoolCapacity = 10_000

	// UniformStride is the distance between slots. Dynamic uniform offsets
	// must be multiples of 256.
	UniformStride = 256
)

// UniformPool is a fixed number of per-instance uniform slots in one GPU
// buffer. Slot i belongs to the i-th node of the current frame and is
// rewritten every frame.
type UniformPool struct {
	capacity int
	shadow   []byte
	used     int // slots written this frame
	buffer   gpu.Buffer
}

func NewUniformPool(capacity int) *UniformPool {
	if capacity <= 0 {
		capacity = DefaultUniformPoolCapacity
	}
	return &UniformPool{
		capacity: capacity,
		shadow:   make([]byte, capacity*UniformStride),
	}
}

func (p *UniformPool) Capacity() int { return p.capacity }

func (p *UniformPool) Buffer() gpu.Buffer { return p.buffer }

// Allocate creates the GPU buffer, replacing a previous one.
func (p *UniformPool) Allocate(device gpu.Device) error {
	buf, err := device.NewBuffer(len(p.shadow), "uniform pool")
	if err != nil {
		return fmt.Errorf("create uniform pool buffer: %w", err)
	}
	if p.buffer != nil {
		p.buffer.Release()
	}
	p.buffer = buf
	return nil
}

// Offset is the byte offset of slot.
func (p *UniformPool) Offset(slot int) int { return slot * UniformStride }

// Reset starts a new frame.
func (p *UniformPool) Reset() { p.used = 0 }

func (p *UniformPool) Write(slot int, u core.Uniforms) error {
	if slot < 0 || slot >= p.capacity {
		return fmt.Errorf("%w: slot %d, capacity %d", ErrUniformPoolExhausted, slot, p.capacity)
	}
	off := p.Offset(slot)
	u.Encode(p.shadow[off : off+core.UniformsSize])
	if slot+1 > p.used {
		p.used = slot + 1
	}
	return nil
}

// Read decodes slot from the CPU copy.
func (p *UniformPool) Read(slot int) core.Uniforms {
	off := p.Offset(slot)
	return core.DecodeUniforms(p.shadow[off : off+core.UniformsSize])
}

// Flush uploads the slots written this frame.
func (p *UniformPool) Flush() error {
	if p.used == 0 {
		return nil
	}
	if p.buffer == nil {
		return fmt.Errorf("flush uniform pool: %w", ErrNotPrepared)
	}
	return p.buffer.Write(0, p.shadow[:p.used*UniformStride])
}

func (p *UniformPool) Release() {
	if p.buffer != nil {
		p.buffer.Release()
		p.buffer = nil
	}
}
