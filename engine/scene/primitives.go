package scene

import (
	gomath "math"

	"github.com/spaghettifunk/anima-forward/engine/math"
)

// PrimitiveMesh is a non-indexed triangle list with per-corner attributes.
type PrimitiveMesh struct {
	Positions []math.Vec3
	Normals   []math.Vec3
	UVs       []math.Vec2
}

// Vertices interleaves positions and uvs in the forward pipeline layout.
func (m *PrimitiveMesh) Vertices() []math.Vertex {
	out := make([]math.Vertex, len(m.Positions))
	for i := range out {
		out[i] = math.Vertex{Position: m.Positions[i], Texcoord: m.UVs[i]}
	}
	return out
}

var cubeSideNormals = [6]math.Vec3{
	{X: 0, Y: 0, Z: +1},
	{X: 0, Y: 0, Z: -1},
	{X: 0, Y: -1, Z: 0},
	{X: 0, Y: +1, Z: 0},
	{X: +1, Y: 0, Z: 0},
	{X: -1, Y: 0, Z: 0},
}

// Rotations taking the +z side onto each of cubeSideNormals.
func cubeSideRotations() [6]math.Quaternion {
	halfPi := float32(gomath.Pi / 2)
	return [6]math.Quaternion{
		math.NewQuatIdentity(),
		math.NewQuatFromAxisAngle(math.NewVec3(0, 1, 0), gomath.Pi),
		math.NewQuatFromAxisAngle(math.NewVec3(1, 0, 0), halfPi),
		math.NewQuatFromAxisAngle(math.NewVec3(-1, 0, 0), halfPi),
		math.NewQuatFromAxisAngle(math.NewVec3(0, 1, 0), halfPi),
		math.NewQuatFromAxisAngle(math.NewVec3(0, -1, 0), halfPi),
	}
}

func sideVertexCount(sub int) int {
	return 6 * sub * sub
}

// GenerateSide tiles the z = 0.5 face of the unit cube with sub×sub quads,
// two counter-clockwise triangles each.
func GenerateSide(sub int) []math.Vec3 {
	out := make([]math.Vec3, 0, sideVertexCount(sub))
	n := float32(sub)
	for i := 0; i < sub; i++ {
		for j := 0; j < sub; j++ {
			x0, y0 := float32(i)/n-0.5, float32(j)/n-0.5
			x1, y1 := float32(i+1)/n-0.5, float32(j+1)/n-0.5
			out = append(out,
				math.NewVec3(x0, y0, 0.5),
				math.NewVec3(x1, y0, 0.5),
				math.NewVec3(x0, y1, 0.5),
				math.NewVec3(x0, y1, 0.5),
				math.NewVec3(x1, y0, 0.5),
				math.NewVec3(x1, y1, 0.5),
			)
		}
	}
	return out
}

func cubePositions(sub int) []math.Vec3 {
	side := GenerateSide(sub)
	out := make([]math.Vec3, 0, 6*len(side))
	for _, q := range cubeSideRotations() {
		for _, v := range side {
			out = append(out, q.Rotate(v))
		}
	}
	return out
}

func CubeNormals(sub int) []math.Vec3 {
	out := make([]math.Vec3, 0, 6*sideVertexCount(sub))
	for _, n := range cubeSideNormals {
		for i := 0; i < sideVertexCount(sub); i++ {
			out = append(out, n)
		}
	}
	return out
}

// CubeUVs maps every side onto the whole texture.
func CubeUVs(sub int) []math.Vec2 {
	side := GenerateSide(sub)
	out := make([]math.Vec2, 0, 6*len(side))
	for s := 0; s < 6; s++ {
		for _, v := range side {
			out = append(out, math.NewVec2(v.X+0.5, v.Y+0.5))
		}
	}
	return out
}

// SphereUVs is an equirectangular mapping of unit-sphere positions.
func SphereUVs(positions []math.Vec3) []math.Vec2 {
	out := make([]math.Vec2, len(positions))
	for i, v := range positions {
		out[i] = math.NewVec2(
			math.Atan2(v.Y, v.X)/gomath.Pi*0.5+0.5,
			math.Asin(math.Clamp(v.Z, -1, 1))/gomath.Pi+0.5,
		)
	}
	return out
}

// Cube is the unit cube centred on the origin, each side split sub×sub.
func Cube(sub int) *PrimitiveMesh {
	return &PrimitiveMesh{
		Positions: cubePositions(sub),
		Normals:   CubeNormals(sub),
		UVs:       CubeUVs(sub),
	}
}

// Sphere is a subdivided cube pushed out onto the unit sphere.
func Sphere(sub int) *PrimitiveMesh {
	positions := cubePositions(sub)
	for i, v := range positions {
		positions[i] = v.Normalized()
	}
	return &PrimitiveMesh{
		Positions: positions,
		Normals:   append([]math.Vec3(nil), positions...),
		UVs:       SphereUVs(positions),
	}
}
