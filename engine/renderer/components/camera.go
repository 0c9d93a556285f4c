package components

import (
	"github.com/spaghettifunk/anima-forward/engine/math"
)

/**
 * @brief A free-flying camera. It is a Transform in the z-up world; the view
 * matrix is its inverse followed by the basis change into view space.
 */
type SpaceCamera struct {
	Transform math.Transform
	/** @brief Vertical field of view in degrees. */
	FovDeg float32

	/** @brief Internal flag used to determine when the view matrix needs to be rebuilt. */
	isDirty    bool
	viewMatrix math.Mat4
}

const DEFAULT_CAMERA_FOV float32 = 90

func NewSpaceCamera(position math.Vec3) *SpaceCamera {
	return &SpaceCamera{
		Transform: math.NewTransformFromPosition(position),
		FovDeg:    DEFAULT_CAMERA_FOV,
		isDirty:   true,
	}
}

func (c *SpaceCamera) Position() math.Vec3 {
	return c.Transform.Position
}

func (c *SpaceCamera) SetPosition(position math.Vec3) {
	c.Transform.Position = position
	c.isDirty = true
}

// Move translates by a vector given in the camera's own axes.
func (c *SpaceCamera) Move(local math.Vec3) {
	c.Transform.Position = c.Transform.Position.Add(c.Transform.Rotation.Rotate(local))
	c.isDirty = true
}

// RotateX, RotateY and RotateZ turn about the camera's local axes.
func (c *SpaceCamera) RotateX(angle float32) { c.rotate(math.NewVec3(1, 0, 0), angle) }
func (c *SpaceCamera) RotateY(angle float32) { c.rotate(math.NewVec3(0, 1, 0), angle) }
func (c *SpaceCamera) RotateZ(angle float32) { c.rotate(math.NewVec3(0, 0, 1), angle) }

func (c *SpaceCamera) rotate(axis math.Vec3, angle float32) {
	if angle == 0 {
		return
	}
	c.Transform.Rotation = c.Transform.Rotation.Mul(math.NewQuatFromAxisAngle(axis, angle)).Normalized()
	c.isDirty = true
}

// Rotate applies a per-axis rotation vector in X, Y, Z order.
func (c *SpaceCamera) Rotate(angles math.Vec3) {
	c.RotateX(angles.X)
	c.RotateY(angles.Y)
	c.RotateZ(angles.Z)
}

func (c *SpaceCamera) View() math.Mat4 {
	if c.isDirty {
		c.viewMatrix = math.ZConvert.Mul(c.Transform.Matrix().Inverse())
		c.isDirty = false
	}
	return c.viewMatrix
}

func (c *SpaceCamera) Projection(aspect float32) math.Mat4 {
	return math.PerspectiveProjection(c.FovDeg, aspect)
}

// ViewProjection is projection * view, ready to be multiplied by a model matrix.
func (c *SpaceCamera) ViewProjection(aspect float32) math.Mat4 {
	return c.Projection(aspect).Mul(c.View())
}
