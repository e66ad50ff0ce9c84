package linkstart

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

var ErrInvalidConfig = errors.New("linkstart: invalid config")

// WindowConfig describes the presentation surface.
type WindowConfig struct {
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	Title  string `yaml:"title"`
}

// CylinderConfig parametrises the shared beam geometry.
type CylinderConfig struct {
	Radius   float32 `yaml:"radius"`
	Height   float32 `yaml:"height"`
	Segments int     `yaml:"segments"`
}

// CameraConfig holds the fixed perspective used for every instance.
type CameraConfig struct {
	FieldOfViewDegrees float32 `yaml:"fov_degrees"`
	Near               float32 `yaml:"near"`
	Far                float32 `yaml:"far"`
}

type Config struct {
	Window   WindowConfig   `yaml:"window"`
	Cylinder CylinderConfig `yaml:"cylinder"`
	Camera   CameraConfig   `yaml:"camera"`

	// UniformPoolCapacity bounds the number of nodes drawn in one frame.
	UniformPoolCapacity int `yaml:"uniform_pool_capacity"`

	// Seed drives the beam emitter; 0 picks a time based seed.
	Seed  int64 `yaml:"seed"`
	Debug bool  `yaml:"debug"`
}

func DefaultConfig() Config {
	return Config{
		Window: WindowConfig{
			Width:  1280,
			Height: 720,
			Title:  "Link Start",
		},
		Cylinder: CylinderConfig{
			Radius:   1,
			Height:   1,
			Segments: 36,
		},
		Camera: CameraConfig{
			FieldOfViewDegrees: 65,
			Near:               0.1,
			Far:                1000,
		},
		UniformPoolCapacity: 10_000,
	}
}

// LoadConfig reads a YAML file on top of DefaultConfig. Keys missing from the
// file keep their default values.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch {
	case c.Window.Width <= 0 || c.Window.Height <= 0:
		return fmt.Errorf("%w: window size %dx%d", ErrInvalidConfig, c.Window.Width, c.Window.Height)
	case c.Cylinder.Segments < 3:
		return fmt.Errorf("%w: cylinder needs at least 3 segments, got %d", ErrInvalidConfig, c.Cylinder.Segments)
	case c.Cylinder.Radius <= 0 || c.Cylinder.Height <= 0:
		return fmt.Errorf("%w: cylinder radius/height must be positive", ErrInvalidConfig)
	case c.Camera.Near <= 0 || c.Camera.Far <= c.Camera.Near:
		return fmt.Errorf("%w: camera clip range %v..%v", ErrInvalidConfig, c.Camera.Near, c.Camera.Far)
	case c.Camera.FieldOfViewDegrees <= 0 || c.Camera.FieldOfViewDegrees >= 180:
		return fmt.Errorf("%w: field of view %v", ErrInvalidConfig, c.Camera.FieldOfViewDegrees)
	case c.UniformPoolCapacity <= 0:
		return fmt.Errorf("%w: uniform pool capacity %d", ErrInvalidConfig, c.UniformPoolCapacity)
	}
	return nil
}
