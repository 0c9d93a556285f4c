package scene

import (
	"github.com/spaghettifunk/anima-forward/engine/core"
	"github.com/spaghettifunk/anima-forward/engine/math"
)

// KeyDown reports whether a key is held. core.InputIsKeyDown satisfies it.
type KeyDown func(key core.KeyCode) bool

// MoveVector maps WASD, left shift and space to a unit direction: S/W along
// y, A/D along x, shift/space along z. No keys gives the zero vector.
func MoveVector(isDown KeyDown) math.Vec3 {
	v := math.NewVec3Zero()
	if isDown(core.KEY_S) {
		v.Y -= 1
	}
	if isDown(core.KEY_W) {
		v.Y += 1
	}
	if isDown(core.KEY_A) {
		v.X -= 1
	}
	if isDown(core.KEY_D) {
		v.X += 1
	}
	if isDown(core.KEY_LSHIFT) {
		v.Z -= 1
	}
	if isDown(core.KEY_SPACE) {
		v.Z += 1
	}
	if v.IsZero() {
		return v
	}
	return v.Normalized()
}

// RotationVector maps the arrow keys and Q/E to per-axis turn directions:
// up/down about x, right/left about z, Q/E about y. It is not normalized.
func RotationVector(isDown KeyDown) math.Vec3 {
	v := math.NewVec3Zero()
	if isDown(core.KEY_UP) {
		v.X += 1
	}
	if isDown(core.KEY_DOWN) {
		v.X -= 1
	}
	if isDown(core.KEY_RIGHT) {
		v.Z -= 1
	}
	if isDown(core.KEY_LEFT) {
		v.Z += 1
	}
	if isDown(core.KEY_Q) {
		v.Y -= 1
	}
	if isDown(core.KEY_E) {
		v.Y += 1
	}
	return v
}
