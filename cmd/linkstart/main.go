package main

import (
	"flag"
	"os"
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/gekko3d/linkstart"
	"github.com/gekko3d/linkstart/rt/app"
)

func init() {
	runtime.LockOSThread()
}

func main() {
	configPath := flag.String("config", "", "YAML config file (defaults are used when empty)")
	debug := flag.Bool("debug", false, "Enable debug logging and frame stats")
	flag.Parse()

	cfg := linkstart.DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = linkstart.LoadConfig(*configPath); err != nil {
			linkstart.NewDefaultLogger("linkstart", false).Errorf("%v", err)
			os.Exit(1)
		}
	}
	if *debug {
		cfg.Debug = true
	}
	logger := linkstart.NewDefaultLogger("linkstart", cfg.Debug)

	if err := glfw.Init(); err != nil {
		logger.Errorf("glfw init: %v", err)
		os.Exit(1)
	}
	defer glfw.Terminate()

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	glfw.WindowHint(glfw.TransparentFramebuffer, glfw.True)
	window, err := glfw.CreateWindow(cfg.Window.Width, cfg.Window.Height, cfg.Window.Title, nil, nil)
	if err != nil {
		logger.Errorf("create window: %v", err)
		os.Exit(1)
	}
	defer window.Destroy()

	application := app.NewApp(window, cfg, logger)
	if err := application.Init(); err != nil {
		logger.Errorf("init: %v", err)
		application.Release()
		os.Exit(1)
	}
	defer application.Release()

	var resizeErr error
	window.SetFramebufferSizeCallback(func(w *glfw.Window, width, height int) {
		if resizeErr == nil {
			resizeErr = application.Resize(width, height)
		}
	})
	window.SetKeyCallback(func(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		if key == glfw.KeyEscape && action == glfw.Press {
			w.SetShouldClose(true)
		}
	})

	for !window.ShouldClose() {
		glfw.PollEvents()
		if resizeErr != nil {
			fatal(logger, application, resizeErr)
		}
		application.Update(glfw.GetTime())
		if err := application.Render(); err != nil {
			fatal(logger, application, err)
		}
	}
}

// fatal exits after releasing what the deferred calls would have.
func fatal(logger linkstart.Logger, application *app.App, err error) {
	logger.Errorf("%v", err)
	application.Release()
	glfw.Terminate()
	os.Exit(1)
}
