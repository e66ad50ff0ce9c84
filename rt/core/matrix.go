package core

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Translation returns the matrix moving points by v.
func Translation(v mgl32.Vec3) mgl32.Mat4 {
	return mgl32.Translate3D(v.X(), v.Y(), v.Z())
}

// Scaling returns the matrix scaling each axis by the matching component of s.
func Scaling(s mgl32.Vec3) mgl32.Mat4 {
	return mgl32.Scale3D(s.X(), s.Y(), s.Z())
}

// Rotation builds the axis-angle rotation used by the geometry shaders.
// The axis must be normalized. Columns are laid out so that a positive angle
// about +X carries +Y towards -Z.
func Rotation(axis mgl32.Vec3, angle float32) mgl32.Mat4 {
	c := math32.Cos(angle)
	s := math32.Sin(angle)
	cm := 1 - c
	x, y, z := axis.X(), axis.Y(), axis.Z()

	return mgl32.Mat4{
		x*x + (1-x*x)*c, x*y*cm - z*s, x*z*cm + y*s, 0,
		x*y*cm + z*s, y*y + (1-y*y)*c, y*z*cm - x*s, 0,
		x*z*cm - y*s, y*z*cm + x*s, z*z + (1-z*z)*c, 0,
		0, 0, 0, 1,
	}
}

// RotationX is Rotation about the +X axis.
func RotationX(angle float32) mgl32.Mat4 {
	return Rotation(mgl32.Vec3{1, 0, 0}, angle)
}

// Perspective returns a right-handed projection with clip-space z in [-1, 1].
// fovy is the vertical field of view in radians.
func Perspective(aspect, fovy, near, far float32) mgl32.Mat4 {
	yScale := 1 / math32.Tan(fovy*0.5)
	xScale := yScale / aspect
	zRange := far - near
	zScale := -(far + near) / zRange
	wzScale := -2 * far * near / zRange

	return mgl32.Mat4{
		xScale, 0, 0, 0,
		0, yScale, 0, 0,
		0, 0, zScale, -1,
		0, 0, wzScale, 0,
	}
}
