package math

func NewQuatIdentity() Quaternion {
	return Quaternion{0, 0, 0, 1}
}

// NewQuatFromAxisAngle builds a rotation of angle radians about axis.
func NewQuatFromAxisAngle(axis Vec3, angle float32) Quaternion {
	a := axis.Normalized()
	s := Sin(angle * 0.5)
	return Quaternion{a.X * s, a.Y * s, a.Z * s, Cos(angle * 0.5)}
}

// NewQuatFromEuler rotates about x, then y, then z.
func NewQuatFromEuler(x, y, z float32) Quaternion {
	qx := NewQuatFromAxisAngle(Vec3{1, 0, 0}, x)
	qy := NewQuatFromAxisAngle(Vec3{0, 1, 0}, y)
	qz := NewQuatFromAxisAngle(Vec3{0, 0, 1}, z)
	return qz.Mul(qy).Mul(qx)
}

// Mul is the Hamilton product q*o: o is applied first.
func (q Quaternion) Mul(o Quaternion) Quaternion {
	return Quaternion{
		X: q.W*o.X + q.X*o.W + q.Y*o.Z - q.Z*o.Y,
		Y: q.W*o.Y - q.X*o.Z + q.Y*o.W + q.Z*o.X,
		Z: q.W*o.Z + q.X*o.Y - q.Y*o.X + q.Z*o.W,
		W: q.W*o.W - q.X*o.X - q.Y*o.Y - q.Z*o.Z,
	}
}

func (q Quaternion) Normalized() Quaternion {
	l := Sqrt(q.X*q.X + q.Y*q.Y + q.Z*q.Z + q.W*q.W)
	if l == 0 {
		return NewQuatIdentity()
	}
	return Quaternion{q.X / l, q.Y / l, q.Z / l, q.W / l}
}

func (q Quaternion) Conjugate() Quaternion {
	return Quaternion{-q.X, -q.Y, -q.Z, q.W}
}

// Rotate applies the rotation to v.
func (q Quaternion) Rotate(v Vec3) Vec3 {
	p := q.Mul(Quaternion{v.X, v.Y, v.Z, 0}).Mul(q.Conjugate())
	return Vec3{p.X, p.Y, p.Z}
}

// RotationMatrix assumes a unit quaternion.
func (q Quaternion) RotationMatrix() Mat4 {
	x, y, z, w := q.X, q.Y, q.Z, q.W
	m := NewMat4Identity()
	m.Set(0, 0, 1-2*(y*y+z*z))
	m.Set(0, 1, 2*(x*y-w*z))
	m.Set(0, 2, 2*(x*z+w*y))
	m.Set(1, 0, 2*(x*y+w*z))
	m.Set(1, 1, 1-2*(x*x+z*z))
	m.Set(1, 2, 2*(y*z-w*x))
	m.Set(2, 0, 2*(x*z-w*y))
	m.Set(2, 1, 2*(y*z+w*x))
	m.Set(2, 2, 1-2*(x*x+y*y))
	return m
}
