package app

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/linkstart"
	"github.com/gekko3d/linkstart/rt/core"
	"github.com/gekko3d/linkstart/rt/engine"
	"github.com/gekko3d/linkstart/rt/gpu"
	"github.com/gekko3d/linkstart/rt/gpu/wgpubackend"
	"github.com/gekko3d/linkstart/rt/passes"
)

type App struct {
	Window   *glfw.Window
	Instance *wgpu.Instance
	Adapter  *wgpu.Adapter
	Device   *wgpu.Device
	Surface  *wgpubackend.Surface
	Backend  *wgpubackend.Device

	Context    *engine.Context
	Scene      *engine.SceneRenderer
	Background *passes.BackgroundPass
	PostFX     *passes.PostFXPass
	Cylinder   *engine.OptimizedCylinder
	Emitter    *BeamEmitter

	Config linkstart.Config
	Logger linkstart.Logger

	// frameLog rate-limits the per-frame skip warnings.
	frameLog *linkstart.FrameLogger

	LastRenderTime float64
	FrameCount     int
	FPS            float64
	FPSTime        float64
}

func NewApp(window *glfw.Window, cfg linkstart.Config, logger linkstart.Logger) *App {
	logger = linkstart.OrNop(logger)
	return &App{
		Window:   window,
		Config:   cfg,
		Logger:   logger,
		frameLog: linkstart.NewFrameLogger(logger, time.Second),
	}
}

// SceneCamera builds the fixed viewer described by cfg.
func SceneCamera(cfg linkstart.CameraConfig) core.Camera {
	cam := core.NewCamera()
	cam.FieldOfView = mgl32.DegToRad(cfg.FieldOfViewDegrees)
	cam.Near = cfg.Near
	cam.Far = cfg.Far
	return cam
}

func newRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

func (a *App) Init() error {
	a.Instance = wgpu.CreateInstance(nil)
	surface := a.Instance.CreateSurface(wgpuglfw.GetSurfaceDescriptor(a.Window))

	adapter, err := a.Instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface: surface,
		PowerPreference:   wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		return fmt.Errorf("%w: request adapter: %w", engine.ErrEnvironment, err)
	}
	a.Adapter = adapter

	a.Device, err = adapter.RequestDevice(&wgpu.DeviceDescriptor{Label: "Main Device"})
	if err != nil {
		return fmt.Errorf("%w: request device: %w", engine.ErrEnvironment, err)
	}

	width, height := a.Window.GetFramebufferSize()
	a.Surface, err = wgpubackend.NewSurface(surface, adapter, a.Device, width, height)
	if err != nil {
		return err
	}
	a.Backend, err = wgpubackend.New(a.Device, "webgpu")
	if err != nil {
		return fmt.Errorf("%w: %w", engine.ErrEnvironment, err)
	}

	a.Context, err = engine.NewContext(a.Backend,
		engine.WithLogger(a.Logger),
		engine.WithPixelFormat(a.Surface.Format()),
	)
	if err != nil {
		return err
	}

	a.Background = passes.NewBackgroundPass()
	a.PostFX = passes.NewPostFXPass()
	a.Scene = engine.NewSceneRenderer(a.Config.UniformPoolCapacity)
	a.Scene.Passes = []engine.RenderPass{a.Background, a.PostFX}
	a.Scene.Camera = SceneCamera(a.Config.Camera)
	if !a.Config.Debug {
		a.Scene.StatsInterval = 0
	}

	a.Cylinder = &engine.OptimizedCylinder{
		Radius:   a.Config.Cylinder.Radius,
		Height:   a.Config.Cylinder.Height,
		Segments: a.Config.Cylinder.Segments,
	}

	a.Context.PerformAsCurrent(func(rc *engine.Context) {
		if err = a.Scene.Prepare(rc); err != nil {
			return
		}
		if err = a.Scene.Resize(rc, a.Surface.Size()); err != nil {
			return
		}
		err = a.Cylinder.PrepareResources(rc)
	})
	if err != nil {
		return err
	}

	a.Emitter = NewBeamEmitter(a.Scene.Nodes, a.Cylinder, a.Background, newRand(a.Config.Seed))
	a.Emitter.OnIntro = func() { a.Logger.Infof("link start") }
	a.Emitter.Start(glfw.GetTime())

	a.Logger.Infof("renderer ready on %s (%s, %dx%d)", a.Backend.Name(), a.Surface.Format(), width, height)
	return nil
}

// Resize reconfigures the surface and every offscreen target. An error means
// the targets may no longer agree on a size and the app should stop.
func (a *App) Resize(w, h int) error {
	if w <= 0 || h <= 0 {
		return nil
	}
	a.Surface.Configure(w, h)
	var err error
	a.Context.PerformAsCurrent(func(rc *engine.Context) {
		err = a.Scene.Resize(rc, gpu.Size{Width: w, Height: h})
	})
	if err != nil {
		return fmt.Errorf("resize to %dx%d: %w", w, h, err)
	}
	return nil
}

func (a *App) Update(now float64) {
	a.Context.PerformAsCurrent(func(*engine.Context) {
		a.Emitter.Update(now)
	})
}

// Render draws one frame. The surface texture is acquired only when the last
// pass asks for it. Frames without a drawable or with more beams than uniform
// slots are skipped; any other error is returned and is fatal.
func (a *App) Render() error {
	var (
		drawable   gpu.Drawable
		acquireErr error
	)
	acquire := func() gpu.Drawable {
		if drawable == nil && acquireErr == nil {
			drawable, acquireErr = a.Surface.NextDrawable()
		}
		return drawable
	}
	a.Context.SetFrameSuppliers(
		func() *gpu.RenderPassDescriptor {
			if d := acquire(); d != nil {
				return gpu.NewRenderPassDescriptor(d.Texture())
			}
			return nil
		},
		acquire,
	)
	defer a.Context.ClearFrameSuppliers()

	var err error
	a.Context.PerformAsCurrent(func(rc *engine.Context) {
		err = a.Scene.Render(rc)
	})
	if err != nil {
		if d, ok := drawable.(*wgpubackend.Drawable); ok {
			d.Discard()
		}
		if fatalFrameError(err) {
			return fmt.Errorf("render: %w", err)
		}
		if acquireErr != nil {
			err = acquireErr
		}
		a.frameLog.Warnf("skipping frame: %v", err)
		return nil
	}

	now := glfw.GetTime()
	if a.LastRenderTime > 0 {
		a.FrameCount++
		a.FPSTime += now - a.LastRenderTime
		if a.FPSTime >= 1.0 {
			a.FPS = float64(a.FrameCount) / a.FPSTime
			a.FrameCount = 0
			a.FPSTime = 0
			a.Logger.Debugf("%.1f fps, %d nodes", a.FPS, a.Scene.Nodes.Len())
		}
	}
	a.LastRenderTime = now
	return nil
}

// fatalFrameError reports whether a frame that failed with err leaves the
// renderer unable to continue.
func fatalFrameError(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, engine.ErrNoDrawable), errors.Is(err, engine.ErrUniformPoolExhausted):
		return false
	}
	return true
}

func (a *App) Release() {
	if a.Context != nil {
		a.Context.PerformAsCurrent(func(*engine.Context) {
			a.Scene.Nodes.Clear()
			a.Cylinder.Release()
			a.Background.Release()
			a.PostFX.Release()
			a.Scene.Release()
		})
		a.Context.Release()
	}
	if a.Backend != nil {
		a.Backend.Release()
	}
	if a.Surface != nil {
		a.Surface.Release()
	}
	if a.Device != nil {
		a.Device.Release()
	}
	if a.Adapter != nil {
		a.Adapter.Release()
	}
	if a.Instance != nil {
		a.Instance.Release()
	}
}
