// Package gputest provides an in-memory gpu.Device that records every
// resource and command for inspection in tests.
package gputest

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gekko3d/linkstart/rt/gpu"
	"github.com/gekko3d/linkstart/rt/shaders"
)

// ErrInjected is wrapped by every failure a Fail* field causes that has no
// gpu sentinel of its own.
var ErrInjected = errors.New("gputest: injected failure")

// Event is one entry in the device's submission log.
type Event struct {
	Kind          string // "commit" or "present"
	CommandBuffer int
}

func (e Event) String() string { return fmt.Sprintf("%s:%d", e.Kind, e.CommandBuffer) }

// Device records resources and submitted work. The Fail* fields inject errors
// into the matching constructor.
type Device struct {
	mu sync.Mutex

	Buffers        []*Buffer
	Textures       []*Texture
	Pipelines      []*Pipeline
	DepthStates    []*DepthState
	CommandBuffers []*CommandBuffer
	Events         []Event

	FailLibrary  bool
	FailQueue    bool
	FailBuffers  bool
	FailTextures bool
	FailPipeline bool
	// Missing lists function names the library pretends not to have.
	Missing map[string]bool
}

var _ gpu.Device = (*Device)(nil)

func NewDevice() *Device {
	return &Device{Missing: map[string]bool{}}
}

func (d *Device) Name() string { return "recording" }

func (d *Device) NewLibrary() (gpu.Library, error) {
	if d.FailLibrary {
		return nil, fmt.Errorf("%w: library unavailable", ErrInjected)
	}
	return &Library{dev: d}, nil
}

func (d *Device) NewCommandQueue() (gpu.CommandQueue, error) {
	if d.FailQueue {
		return nil, fmt.Errorf("%w: queue unavailable", ErrInjected)
	}
	return &Queue{dev: d}, nil
}

func (d *Device) NewBuffer(length int, label string) (gpu.Buffer, error) {
	if d.FailBuffers || length <= 0 {
		return nil, fmt.Errorf("%w: buffer %q (%d bytes)", gpu.ErrAllocation, label, length)
	}
	b := &Buffer{label: label, data: make([]byte, length)}
	d.mu.Lock()
	d.Buffers = append(d.Buffers, b)
	d.mu.Unlock()
	return b, nil
}

func (d *Device) NewBufferWithBytes(data []byte, label string) (gpu.Buffer, error) {
	buf, err := d.NewBuffer(len(data), label)
	if err != nil {
		return nil, err
	}
	copy(buf.(*Buffer).data, data)
	return buf, nil
}

func (d *Device) NewTexture(desc gpu.TextureDescriptor) (gpu.Texture, error) {
	if d.FailTextures || desc.Width <= 0 || desc.Height <= 0 {
		return nil, fmt.Errorf("%w: texture %q %dx%d", gpu.ErrAllocation, desc.Label, desc.Width, desc.Height)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	t := &Texture{Desc: desc, ID: len(d.Textures) + 1}
	d.Textures = append(d.Textures, t)
	return t, nil
}

func (d *Device) NewRenderPipelineState(desc gpu.RenderPipelineDescriptor) (gpu.RenderPipelineState, error) {
	if d.FailPipeline {
		return nil, fmt.Errorf("%w: pipeline %q rejected", ErrInjected, desc.Label)
	}
	if desc.VertexFunction == nil || desc.FragmentFunction == nil {
		return nil, fmt.Errorf("gputest: pipeline %q is missing a function", desc.Label)
	}
	p := &Pipeline{Desc: desc}
	d.mu.Lock()
	d.Pipelines = append(d.Pipelines, p)
	d.mu.Unlock()
	return p, nil
}

func (d *Device) NewDepthStencilState(desc gpu.DepthStencilDescriptor) (gpu.DepthStencilState, error) {
	s := &DepthState{Desc: desc}
	d.mu.Lock()
	d.DepthStates = append(d.DepthStates, s)
	d.mu.Unlock()
	return s, nil
}

// NewDrawable returns a presentable target of the given size.
func (d *Device) NewDrawable(width, height int) *Drawable {
	tex, err := d.NewTexture(gpu.TextureDescriptor{
		Label:  "drawable",
		Width:  width,
		Height: height,
		Format: gpu.PixelFormatBGRA8Unorm,
		Usage:  gpu.TextureUsageRenderTarget,
	})
	if err != nil {
		panic(err)
	}
	return &Drawable{dev: d, tex: tex.(*Texture)}
}

// Committed returns the committed command buffers in submission order.
func (d *Device) Committed() []*CommandBuffer {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []*CommandBuffer
	for _, cb := range d.CommandBuffers {
		if cb.Committed {
			out = append(out, cb)
		}
	}
	return out
}

// Reset forgets recorded command buffers and events, keeping resources.
func (d *Device) Reset() {
	d.mu.Lock()
	d.CommandBuffers = nil
	d.Events = nil
	d.mu.Unlock()
}

// LiveBuffers returns buffers with the given label that were not released.
func (d *Device) LiveBuffers(label string) []*Buffer {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []*Buffer
	for _, b := range d.Buffers {
		if b.label == label && !b.Released {
			out = append(out, b)
		}
	}
	return out
}

func (d *Device) event(kind string, cb int) {
	d.mu.Lock()
	d.Events = append(d.Events, Event{Kind: kind, CommandBuffer: cb})
	d.mu.Unlock()
}

type Library struct {
	dev *Device
}

func (l *Library) NewFunction(name string) (gpu.Function, error) {
	if _, ok := shaders.Lookup(name); !ok || l.dev.Missing[name] {
		return nil, fmt.Errorf("%w: %s", gpu.ErrFunctionNotFound, name)
	}
	return Function(name), nil
}

type Function string

func (f Function) Name() string { return string(f) }

type Buffer struct {
	label    string
	data     []byte
	Writes   int
	Released bool
}

func (b *Buffer) Label() string { return b.label }
func (b *Buffer) Length() int   { return len(b.data) }

func (b *Buffer) Write(offset int, data []byte) error {
	if offset < 0 || offset+len(data) > len(b.data) {
		return fmt.Errorf("gputest: write [%d,%d) outside buffer %q of %d bytes",
			offset, offset+len(data), b.label, len(b.data))
	}
	copy(b.data[offset:], data)
	b.Writes++
	return nil
}

func (b *Buffer) Release() { b.Released = true }

// Bytes returns a copy of the buffer contents.
func (b *Buffer) Bytes() []byte {
	out := make([]byte, len(b.data))
	copy(out, b.data)
	return out
}

type Texture struct {
	Desc     gpu.TextureDescriptor
	ID       int
	Released bool
}

func (t *Texture) Label() string           { return t.Desc.Label }
func (t *Texture) Width() int              { return t.Desc.Width }
func (t *Texture) Height() int             { return t.Desc.Height }
func (t *Texture) Format() gpu.PixelFormat { return t.Desc.Format }
func (t *Texture) Usage() gpu.TextureUsage { return t.Desc.Usage }
func (t *Texture) Release()                { t.Released = true }

type Pipeline struct {
	Desc gpu.RenderPipelineDescriptor
}

func (p *Pipeline) Label() string { return p.Desc.Label }

type DepthState struct {
	Desc gpu.DepthStencilDescriptor
}

func (s *DepthState) Label() string { return s.Desc.Label }

type Drawable struct {
	dev       *Device
	tex       *Texture
	Presented bool
}

func (d *Drawable) Texture() gpu.Texture { return d.tex }
func (d *Drawable) Present()             { d.Presented = true }
