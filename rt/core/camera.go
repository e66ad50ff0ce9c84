package core

import (
	"github.com/go-gl/mathgl/mgl32"
)

const (
	DefaultFieldOfViewDegrees = 65
	DefaultNear               = 0.1
	DefaultFar                = 1000
)

// Camera is a translation-only viewer with a fixed perspective.
type Camera struct {
	Position    mgl32.Vec3
	FieldOfView float32 // vertical, radians
	Near        float32
	Far         float32
}

func NewCamera() Camera {
	return Camera{
		FieldOfView: mgl32.DegToRad(DefaultFieldOfViewDegrees),
		Near:        DefaultNear,
		Far:         DefaultFar,
	}
}

// ViewMatrix is the inverse of the camera's translation.
func (c Camera) ViewMatrix() mgl32.Mat4 {
	return Translation(c.Position).Inv()
}

func (c Camera) ProjectionMatrix(aspect float32) mgl32.Mat4 {
	if aspect <= 0 {
		aspect = 1
	}
	return Perspective(aspect, c.FieldOfView, c.Near, c.Far)
}
