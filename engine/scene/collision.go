package scene

import (
	"cmp"

	"golang.org/x/exp/slices"

	"github.com/spaghettifunk/anima-forward/engine/math"
)

// Half the side of a grid block. Blocks are centred on integer coordinates.
const BLOCK_RADIUS float32 = 0.5

// Pushes resolved bodies just past the surface so they do not re-collide.
const separationBias float32 = 1.000001

type Cell struct {
	X, Y int
}

// Contact describes where a circle touches a block.
type Contact struct {
	// Closest point on the block surface, z = 0.
	Position math.Vec3
	// Unit vector from the surface towards the circle centre.
	Normal  math.Vec3
	Overlap float32
}

// CollisionGrid is a set of unit blocks in the xy plane.
type CollisionGrid struct {
	cells map[Cell]struct{}
}

func NewCollisionGrid() *CollisionGrid {
	return &CollisionGrid{cells: make(map[Cell]struct{})}
}

// Quantize returns the cell whose block contains pos.
func Quantize(pos math.Vec2) Cell {
	return Cell{X: int(math.Round(pos.X)), Y: int(math.Round(pos.Y))}
}

func (g *CollisionGrid) Add(pos math.Vec2) {
	g.cells[Quantize(pos)] = struct{}{}
}

func (g *CollisionGrid) Remove(pos math.Vec2) {
	delete(g.cells, Quantize(pos))
}

func (g *CollisionGrid) Has(pos math.Vec2) bool {
	_, ok := g.cells[Quantize(pos)]
	return ok
}

func (g *CollisionGrid) Len() int {
	return len(g.cells)
}

// Cells lists the occupied cells, row by row from the bottom.
func (g *CollisionGrid) Cells() []Cell {
	out := make([]Cell, 0, len(g.cells))
	for c := range g.cells {
		out = append(out, c)
	}
	sortCells(out)
	return out
}

/**
 * @brief Finds the first block overlapping a circle of radius r centred at
 * the xy part of pos. Blocks are scanned row by row, lowest y first.
 */
func (g *CollisionGrid) CheckCollision(pos3 math.Vec3, r float32) (Contact, bool) {
	pos := math.NewVec2(pos3.X, pos3.Y)
	rr := math.NewVec2(r, r)
	a := Quantize(pos.Sub(rr))
	b := Quantize(pos.Add(rr))
	for j := a.Y; j <= b.Y; j++ {
		for i := a.X; i <= b.X; i++ {
			if _, ok := g.cells[Cell{i, j}]; !ok {
				continue
			}
			if c, hit := blockContact(pos, Cell{i, j}, r); hit {
				return c, true
			}
		}
	}
	return Contact{}, false
}

func blockContact(pos math.Vec2, cell Cell, r float32) (Contact, bool) {
	rel := pos.Sub(math.NewVec2(float32(cell.X), float32(cell.Y)))
	toPos := math.NewVec2(
		max(math.Abs(rel.X)-BLOCK_RADIUS, 0),
		max(math.Abs(rel.Y)-BLOCK_RADIUS, 0),
	)
	dist := math.Sqrt(toPos.X*toPos.X + toPos.Y*toPos.Y)

	if dist == 0 {
		// Centre inside the block: leave along the shallower axis.
		if math.Abs(rel.X) >= math.Abs(rel.Y) {
			n := math.CopySign(1, rel.X)
			return Contact{
				Position: math.NewVec3(float32(cell.X)+n*BLOCK_RADIUS, pos.Y, 0),
				Normal:   math.NewVec3(n, 0, 0),
				Overlap:  r + BLOCK_RADIUS - math.Abs(rel.X),
			}, true
		}
		n := math.CopySign(1, rel.Y)
		return Contact{
			Position: math.NewVec3(pos.X, float32(cell.Y)+n*BLOCK_RADIUS, 0),
			Normal:   math.NewVec3(0, n, 0),
			Overlap:  r + BLOCK_RADIUS - math.Abs(rel.Y),
		}, true
	}

	overlap := r - dist
	if overlap <= 0 {
		return Contact{}, false
	}
	if rel.X < 0 {
		toPos.X = -toPos.X
	}
	if rel.Y < 0 {
		toPos.Y = -toPos.Y
	}
	return Contact{
		Position: math.NewVec3(pos.X-toPos.X, pos.Y-toPos.Y, 0),
		Normal:   math.NewVec3(toPos.X/dist, toPos.Y/dist, 0),
		Overlap:  overlap,
	}, true
}

// ResolveCollision moves pos out along the contact normal and removes the
// velocity component into the surface.
func ResolveCollision(pos, vel math.Vec3, contact Contact) (math.Vec3, math.Vec3) {
	pos = pos.Add(contact.Normal.MulScalar(contact.Overlap * separationBias))
	vel = vel.Sub(contact.Normal.MulScalar(vel.Dot(contact.Normal)))
	return pos, vel
}

func sortCells(cells []Cell) {
	slices.SortFunc(cells, func(a, b Cell) int {
		if a.Y != b.Y {
			return cmp.Compare(a.Y, b.Y)
		}
		return cmp.Compare(a.X, b.X)
	})
}
