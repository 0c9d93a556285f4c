package math

// Vec2 represents a 2D vector
type Vec2 struct {
	X, Y float32
}

// Vec3 represents a 3D vector
type Vec3 struct {
	X, Y, Z float32
}

// Vec4 represents a 4D vector
type Vec4 struct {
	X, Y, Z, W float32
}

/** @brief A quaternion, used to represent rotational orientation. */
type Quaternion Vec4

/**
 * @brief a 4x4 matrix stored column-major, the layout GLSL expects for mat4
 * push constants. Element (row r, column c) lives at Data[c*4+r].
 */
type Mat4 struct {
	/** @brief The matrix elements */
	Data [16]float32
}

/**
 * @brief A single vertex as consumed by the forward pipeline:
 * position followed by texture coordinate, 20 bytes.
 */
type Vertex struct {
	Position Vec3
	Texcoord Vec2
}
