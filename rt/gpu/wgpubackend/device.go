// Package wgpubackend implements the gpu interfaces on WebGPU.
//
// The gpu interfaces set state on an encoder call by call and
// uniform data is addressed by buffer index and byte offset. WebGPU instead
// bakes topology, culling and depth testing into pipelines and binds resources
// through bind groups, so encoders record their commands and replay them into
// a wgpu render pass on EndEncoding, choosing pipeline variants and bind
// groups as they go.
package wgpubackend

import (
	"errors"
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/gekko3d/linkstart/rt/core"
	"github.com/gekko3d/linkstart/rt/gpu"
)

const (
	// Fragment-bytes payloads live in a ring of 256-byte slots, the dynamic
	// offset alignment. A slot is only reused after the draw reading it has
	// been submitted, so one submission holds at most scratchSlots textured
	// draws.
	scratchStride = 256
	scratchSlots  = 256
	scratchSize   = 16
)

// ErrScratchExhausted is returned by EndEncoding when a command buffer records
// more textured draws than the fragment-bytes ring holds.
var ErrScratchExhausted = errors.New("wgpubackend: fragment bytes ring exhausted")

type Device struct {
	device *wgpu.Device
	queue  *wgpu.Queue
	name   string

	uniformLayout   *wgpu.BindGroupLayout
	textureLayout   *wgpu.BindGroupLayout
	pipelineLayouts map[gpu.ResourceLayout]*wgpu.PipelineLayout
	sampler         *wgpu.Sampler

	scratch     *wgpu.Buffer
	scratchNext int
	scratchUsed int

	uniformGroups map[*Buffer]*wgpu.BindGroup
	textureGroups map[[2]*Texture]*wgpu.BindGroup

	library *Library
}

var _ gpu.Device = (*Device)(nil)

// New wraps an already requested device.
func New(device *wgpu.Device, name string) (*Device, error) {
	d := &Device{
		device:          device,
		queue:           device.GetQueue(),
		name:            name,
		pipelineLayouts: map[gpu.ResourceLayout]*wgpu.PipelineLayout{},
		uniformGroups:   map[*Buffer]*wgpu.BindGroup{},
		textureGroups:   map[[2]*Texture]*wgpu.BindGroup{},
	}
	d.library = &Library{dev: d, modules: map[string]*wgpu.ShaderModule{}}

	var err error
	d.uniformLayout, err = device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "UniformSlotsBGL",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageFragment,
				Buffer: wgpu.BufferBindingLayout{
					Type:             wgpu.BufferBindingTypeUniform,
					HasDynamicOffset: true,
					MinBindingSize:   core.UniformsSize,
				},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("uniform bind group layout: %w", err)
	}

	d.textureLayout, err = device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "TexturesBGL",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageFragment,
				Texture: wgpu.TextureBindingLayout{
					SampleType:    wgpu.TextureSampleTypeFloat,
					ViewDimension: wgpu.TextureViewDimension2D,
				},
			},
			{
				Binding:    1,
				Visibility: wgpu.ShaderStageFragment,
				Texture: wgpu.TextureBindingLayout{
					SampleType:    wgpu.TextureSampleTypeFloat,
					ViewDimension: wgpu.TextureViewDimension2D,
				},
			},
			{
				Binding:    2,
				Visibility: wgpu.ShaderStageFragment,
				Sampler:    wgpu.SamplerBindingLayout{Type: wgpu.SamplerBindingTypeFiltering},
			},
			{
				Binding:    3,
				Visibility: wgpu.ShaderStageFragment,
				Buffer: wgpu.BufferBindingLayout{
					Type:             wgpu.BufferBindingTypeUniform,
					HasDynamicOffset: true,
					MinBindingSize:   scratchSize,
				},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("texture bind group layout: %w", err)
	}

	for layout, bgl := range map[gpu.ResourceLayout]*wgpu.BindGroupLayout{
		gpu.ResourceLayoutUniformSlots: d.uniformLayout,
		gpu.ResourceLayoutTextures:     d.textureLayout,
	} {
		pl, err := device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
			BindGroupLayouts: []*wgpu.BindGroupLayout{bgl},
		})
		if err != nil {
			return nil, fmt.Errorf("pipeline layout: %w", err)
		}
		d.pipelineLayouts[layout] = pl
	}

	d.sampler, err = device.CreateSampler(&wgpu.SamplerDescriptor{
		AddressModeU:  wgpu.AddressModeClampToEdge,
		AddressModeV:  wgpu.AddressModeClampToEdge,
		AddressModeW:  wgpu.AddressModeClampToEdge,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeNearest,
		LodMinClamp:   0,
		LodMaxClamp:   1,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("sampler: %w", err)
	}

	d.scratch, err = device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "FragmentBytes",
		Size:  scratchStride * scratchSlots,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("fragment bytes buffer: %w", err)
	}
	return d, nil
}

func (d *Device) Name() string { return d.name }

func (d *Device) NewLibrary() (gpu.Library, error) { return d.library, nil }

func (d *Device) NewCommandQueue() (gpu.CommandQueue, error) { return &Queue{dev: d}, nil }

func (d *Device) NewBuffer(length int, label string) (gpu.Buffer, error) {
	if length <= 0 {
		return nil, fmt.Errorf("%w: buffer %q of %d bytes", gpu.ErrAllocation, label, length)
	}
	// Copies must be 4-byte aligned.
	size := (length + 3) &^ 3
	buf, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label,
		Size:  uint64(size),
		Usage: wgpu.BufferUsageVertex | wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: buffer %q: %w", gpu.ErrAllocation, label, err)
	}
	return &Buffer{dev: d, buffer: buf, label: label, length: length}, nil
}

func (d *Device) NewBufferWithBytes(data []byte, label string) (gpu.Buffer, error) {
	buf, err := d.NewBuffer(len(data), label)
	if err != nil {
		return nil, err
	}
	if err := buf.Write(0, data); err != nil {
		buf.Release()
		return nil, err
	}
	return buf, nil
}

func (d *Device) NewTexture(desc gpu.TextureDescriptor) (gpu.Texture, error) {
	format := textureFormat(desc.Format)
	if format == wgpu.TextureFormatUndefined || desc.Width <= 0 || desc.Height <= 0 {
		return nil, fmt.Errorf("%w: texture %q %dx%d %s", gpu.ErrAllocation, desc.Label, desc.Width, desc.Height, desc.Format)
	}
	tex, err := d.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: desc.Label,
		Size: wgpu.Extent3D{
			Width:              uint32(desc.Width),
			Height:             uint32(desc.Height),
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        format,
		Usage:         textureUsage(desc.Usage),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: texture %q: %w", gpu.ErrAllocation, desc.Label, err)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, fmt.Errorf("%w: texture view %q: %w", gpu.ErrAllocation, desc.Label, err)
	}
	return &Texture{dev: d, texture: tex, view: view, desc: desc}, nil
}

func (d *Device) NewRenderPipelineState(desc gpu.RenderPipelineDescriptor) (gpu.RenderPipelineState, error) {
	return newPipeline(d, desc)
}

func (d *Device) NewDepthStencilState(desc gpu.DepthStencilDescriptor) (gpu.DepthStencilState, error) {
	return &DepthState{desc: desc}, nil
}

// reserveScratch claims the next ring slot and returns its dynamic offset.
func (d *Device) reserveScratch() (uint32, error) {
	if d.scratchUsed >= scratchSlots {
		return 0, fmt.Errorf("%w: more than %d textured draws before submit", ErrScratchExhausted, scratchSlots)
	}
	offset := uint32(d.scratchNext * scratchStride)
	d.scratchNext = (d.scratchNext + 1) % scratchSlots
	d.scratchUsed++
	return offset, nil
}

// scratchSubmitted frees the slots claimed so far. Queue writes after a
// submit are ordered behind it, so the next submission may overwrite them.
func (d *Device) scratchSubmitted() {
	d.scratchUsed = 0
}

// writeScratch copies a fragment-bytes payload into the next ring slot and
// returns its dynamic offset.
func (d *Device) writeScratch(data []byte) (uint32, error) {
	offset, err := d.reserveScratch()
	if err != nil {
		return 0, err
	}
	var slot [scratchSize]byte
	copy(slot[:], data)
	d.queue.WriteBuffer(d.scratch, uint64(offset), slot[:])
	return offset, nil
}

func (d *Device) uniformGroup(b *Buffer) (*wgpu.BindGroup, error) {
	if bg, ok := d.uniformGroups[b]; ok {
		return bg, nil
	}
	bg, err := d.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  b.label,
		Layout: d.uniformLayout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: b.buffer, Offset: 0, Size: core.UniformsSize},
		},
	})
	if err != nil {
		return nil, err
	}
	d.uniformGroups[b] = bg
	return bg, nil
}

func (d *Device) textureGroup(t0, t1 *Texture) (*wgpu.BindGroup, error) {
	key := [2]*Texture{t0, t1}
	if bg, ok := d.textureGroups[key]; ok {
		return bg, nil
	}
	bg, err := d.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  t0.desc.Label,
		Layout: d.textureLayout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, TextureView: t0.view},
			{Binding: 1, TextureView: t1.view},
			{Binding: 2, Sampler: d.sampler},
			{Binding: 3, Buffer: d.scratch, Offset: 0, Size: scratchSize},
		},
	})
	if err != nil {
		return nil, err
	}
	d.textureGroups[key] = bg
	return bg, nil
}

func (d *Device) forgetBuffer(b *Buffer) {
	if bg, ok := d.uniformGroups[b]; ok {
		bg.Release()
		delete(d.uniformGroups, b)
	}
}

func (d *Device) forgetTexture(t *Texture) {
	for key, bg := range d.textureGroups {
		if key[0] == t || key[1] == t {
			bg.Release()
			delete(d.textureGroups, key)
		}
	}
}

// Release frees the backend's own objects. Buffers and textures handed out
// earlier must be released by their owners.
func (d *Device) Release() {
	for b, bg := range d.uniformGroups {
		bg.Release()
		delete(d.uniformGroups, b)
	}
	for key, bg := range d.textureGroups {
		bg.Release()
		delete(d.textureGroups, key)
	}
	d.library.release()
	for layout, pl := range d.pipelineLayouts {
		pl.Release()
		delete(d.pipelineLayouts, layout)
	}
	d.scratch.Release()
	d.sampler.Release()
	d.uniformLayout.Release()
	d.textureLayout.Release()
}
