package math

/**
 * @brief Position, rotation and scale of an object in a right-handed z-up world.
 */
type Transform struct {
	Position Vec3
	Rotation Quaternion
	Scale    Vec3
}

func NewTransform() Transform {
	return Transform{
		Rotation: NewQuatIdentity(),
		Scale:    NewVec3One(),
	}
}

func NewTransformFromPosition(position Vec3) Transform {
	t := NewTransform()
	t.Position = position
	return t
}

// Matrix composes translation * rotation * scale.
func (t Transform) Matrix() Mat4 {
	return NewMat4Translation(t.Position).
		Mul(t.Rotation.RotationMatrix()).
		Mul(NewMat4Scale(t.Scale))
}

/**
 * @brief Converts from the right-handed z-up world to the right-handed
 * z-back space the projections expect.
 */
var ZConvert = NewMat4FromRows([16]float32{
	1, 0, 0, 0,
	0, 0, 1, 0,
	0, -1, 0, 0,
	0, 0, 0, 1,
})

const (
	PerspectiveNear  float32 = 0.01
	PerspectiveFar   float32 = 100
	OrthographicNear float32 = 0
	OrthographicFar  float32 = 100
)

// PerspectiveProjection maps view space into Vulkan clip space: depth in
// [0,1] and y pointing down.
func PerspectiveProjection(fovDeg, aspect float32) Mat4 {
	n, f := PerspectiveNear, PerspectiveFar
	ff := 1.0 / Tan(DegToRad(fovDeg)/2.0)
	return NewMat4FromRows([16]float32{
		ff / aspect, 0, 0, 0,
		0, -ff, 0, 0,
		0, 0, f / (n - f), f * n / (n - f),
		0, 0, -1, 0,
	})
}

// OrthographicProjection covers height world units vertically.
func OrthographicProjection(height, aspect float32) Mat4 {
	h2 := height / 2
	w2 := h2 * aspect
	n, f := OrthographicNear, OrthographicFar
	return NewMat4FromRows([16]float32{
		1 / w2, 0, 0, 0,
		0, -1 / h2, 0, 0,
		0, 0, -1 / (f - n), -n / (f - n),
		0, 0, 0, 1,
	})
}
