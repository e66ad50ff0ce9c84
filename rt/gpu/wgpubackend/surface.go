package wgpubackend

import (
	"errors"
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/gekko3d/linkstart/rt/gpu"
)

var ErrUnsupportedSurface = errors.New("wgpubackend: surface offers no supported format")

// Surface hands out drawables for a configured window surface.
type Surface struct {
	surface *wgpu.Surface
	adapter *wgpu.Adapter
	device  *wgpu.Device
	config  *wgpu.SurfaceConfiguration
	format  gpu.PixelFormat
}

// NewSurface configures surface for the first of its formats this backend
// understands.
func NewSurface(surface *wgpu.Surface, adapter *wgpu.Adapter, device *wgpu.Device, width, height int) (*Surface, error) {
	caps := surface.GetCapabilities(adapter)

	format := wgpu.TextureFormatUndefined
	for _, f := range caps.Formats {
		if pf := PixelFormat(f); pf != gpu.PixelFormatInvalid && pf != gpu.PixelFormatDepth32Float {
			format = f
			break
		}
	}
	if format == wgpu.TextureFormatUndefined {
		return nil, ErrUnsupportedSurface
	}
	s := &Surface{
		surface: surface,
		adapter: adapter,
		device:  device,
		format:  PixelFormat(format),
		config: &wgpu.SurfaceConfiguration{
			Usage:       wgpu.TextureUsageRenderAttachment,
			Format:      format,
			Width:       uint32(width),
			Height:      uint32(height),
			PresentMode: wgpu.PresentModeFifo,
			AlphaMode:   caps.AlphaModes[0],
		},
	}
	s.surface.Configure(s.adapter, s.device, s.config)
	return s, nil
}

func (s *Surface) Format() gpu.PixelFormat { return s.format }

func (s *Surface) Size() gpu.Size {
	return gpu.Size{Width: int(s.config.Width), Height: int(s.config.Height)}
}

// Configure resizes the swap chain. Zero sizes (minimised windows) are ignored.
func (s *Surface) Configure(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	s.config.Width = uint32(width)
	s.config.Height = uint32(height)
	s.surface.Configure(s.adapter, s.device, s.config)
}

// NextDrawable acquires the surface's current texture.
func (s *Surface) NextDrawable() (gpu.Drawable, error) {
	tex, err := s.surface.GetCurrentTexture()
	if err != nil {
		return nil, fmt.Errorf("get current texture: %w", err)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, fmt.Errorf("create view: %w", err)
	}
	return &Drawable{
		surface: s.surface,
		texture: &Texture{
			texture: tex,
			view:    view,
			desc: gpu.TextureDescriptor{
				Label:  "drawable",
				Width:  int(s.config.Width),
				Height: int(s.config.Height),
				Format: s.format,
				Usage:  gpu.TextureUsageRenderTarget,
			},
		},
	}, nil
}

func (s *Surface) Release() {
	s.surface.Release()
}

type Drawable struct {
	surface   *wgpu.Surface
	texture   *Texture
	presented bool
}

func (d *Drawable) Texture() gpu.Texture { return d.texture }

// Present shows the frame and frees the acquired texture.
func (d *Drawable) Present() {
	if d.presented {
		return
	}
	d.presented = true
	d.surface.Present()
	d.texture.Release()
}

// Discard frees an acquired texture that will not be presented.
func (d *Drawable) Discard() {
	if d.presented {
		return
	}
	d.presented = true
	d.texture.Release()
}
