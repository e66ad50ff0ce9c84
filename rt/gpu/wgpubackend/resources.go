package wgpubackend

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/gekko3d/linkstart/rt/gpu"
	"github.com/gekko3d/linkstart/rt/shaders"
)

// Library compiles each WGSL module once and resolves logical entry points
// through the shaders package.
type Library struct {
	dev     *Device
	modules map[string]*wgpu.ShaderModule
}

func (l *Library) NewFunction(name string) (gpu.Function, error) {
	ep, ok := shaders.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", gpu.ErrFunctionNotFound, name)
	}
	module, ok := l.modules[ep.Module]
	if !ok {
		var err error
		module, err = l.dev.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
			Label:          ep.Module,
			WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: ep.Source},
		})
		if err != nil {
			return nil, fmt.Errorf("compile %s: %w", ep.Module, err)
		}
		l.modules[ep.Module] = module
	}
	return &Function{name: name, entryPoint: ep.Name, module: module}, nil
}

func (l *Library) release() {
	for name, m := range l.modules {
		m.Release()
		delete(l.modules, name)
	}
}

type Function struct {
	name       string
	entryPoint string
	module     *wgpu.ShaderModule
}

func (f *Function) Name() string { return f.name }

type Buffer struct {
	dev    *Device
	buffer *wgpu.Buffer
	label  string
	length int
}

func (b *Buffer) Label() string { return b.label }
func (b *Buffer) Length() int   { return b.length }

// Write schedules a queue write; it lands before any later submission.
func (b *Buffer) Write(offset int, data []byte) error {
	if offset < 0 || offset+len(data) > b.length {
		return fmt.Errorf("write [%d,%d) outside buffer %q of %d bytes", offset, offset+len(data), b.label, b.length)
	}
	if len(data) == 0 {
		return nil
	}
	b.dev.queue.WriteBuffer(b.buffer, uint64(offset), data)
	return nil
}

func (b *Buffer) Release() {
	if b.buffer == nil {
		return
	}
	b.dev.forgetBuffer(b)
	b.buffer.Release()
	b.buffer = nil
}

type Texture struct {
	dev     *Device
	texture *wgpu.Texture
	view    *wgpu.TextureView
	desc    gpu.TextureDescriptor
}

func (t *Texture) Label() string           { return t.desc.Label }
func (t *Texture) Width() int              { return t.desc.Width }
func (t *Texture) Height() int             { return t.desc.Height }
func (t *Texture) Format() gpu.PixelFormat { return t.desc.Format }
func (t *Texture) Usage() gpu.TextureUsage { return t.desc.Usage }

func (t *Texture) Release() {
	if t.view == nil {
		return
	}
	if t.dev != nil {
		t.dev.forgetTexture(t)
	}
	t.view.Release()
	t.view = nil
	if t.texture != nil {
		t.texture.Release()
		t.texture = nil
	}
}

// DepthState carries depth settings into the pipeline variant that uses it;
// WebGPU bakes depth testing into the pipeline.
type DepthState struct {
	desc gpu.DepthStencilDescriptor
}

func (s *DepthState) Label() string { return s.desc.Label }
