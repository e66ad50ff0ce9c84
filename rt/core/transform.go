package core

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Transform places one instance in the world. Only Rotation.X() is composed
// into the model matrix; Y and Z are carried but not applied.
type Transform struct {
	Translation mgl32.Vec3
	Scale       mgl32.Vec3
	Rotation    mgl32.Vec3
}

func IdentityTransform() Transform {
	return Transform{
		Scale: mgl32.Vec3{1, 1, 1},
	}
}

// ModelMatrix returns T * (Rx * S).
func (t Transform) ModelMatrix() mgl32.Mat4 {
	translate := Translation(t.Translation)
	rotate := RotationX(t.Rotation.X())
	scale := Scaling(t.Scale)

	return translate.Mul4(rotate.Mul4(scale))
}
