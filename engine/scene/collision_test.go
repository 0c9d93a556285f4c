package scene

import (
	"testing"

	"github.com/spaghettifunk/anima-forward/engine/math"
)

const eps = 1e-5

func TestCollisionGridSet(t *testing.T) {
	g := NewCollisionGrid()
	g.Add(math.NewVec2(0.2, -0.3))
	g.Add(math.NewVec2(0, 0))
	g.Add(math.NewVec2(2.6, 1))
	if g.Len() != 2 {
		t.Fatalf("Len = %d, points in one block share a cell", g.Len())
	}
	if !g.Has(math.NewVec2(3, 1)) || g.Has(math.NewVec2(1, 1)) {
		t.Fatalf("Has disagrees with Add")
	}
	cells := g.Cells()
	if cells[0] != (Cell{0, 0}) || cells[1] != (Cell{3, 1}) {
		t.Fatalf("Cells = %v", cells)
	}
	g.Remove(math.NewVec2(3.1, 0.9))
	if g.Has(math.NewVec2(3, 1)) {
		t.Fatalf("Remove left the cell")
	}
}

func TestCheckCollisionFace(t *testing.T) {
	g := NewCollisionGrid()
	g.Add(math.NewVec2(0, 0))

	// Circle resting slightly inside the top face.
	c, hit := g.CheckCollision(math.NewVec3(0, 0.9, 5), 0.5)
	if !hit {
		t.Fatalf("expected a hit")
	}
	if !c.Normal.Compare(math.NewVec3(0, 1, 0), eps) {
		t.Fatalf("normal = %+v", c.Normal)
	}
	if math.Abs(c.Overlap-0.1) > eps {
		t.Fatalf("overlap = %v", c.Overlap)
	}
	if !c.Position.Compare(math.NewVec3(0, 0.5, 0), eps) {
		t.Fatalf("contact point = %+v", c.Position)
	}

	if _, hit := g.CheckCollision(math.NewVec3(0, 1.01, 0), 0.5); hit {
		t.Fatalf("a circle clear of the block must not collide")
	}
}

func TestCheckCollisionCorner(t *testing.T) {
	g := NewCollisionGrid()
	g.Add(math.NewVec2(0, 0))
	c, hit := g.CheckCollision(math.NewVec3(-0.7, -0.7, 0), 0.5)
	if !hit {
		t.Fatalf("expected a corner hit")
	}
	d := float32(0.70710677)
	if !c.Normal.Compare(math.NewVec3(-d, -d, 0), eps) {
		t.Fatalf("corner normal = %+v", c.Normal)
	}
	if !c.Position.Compare(math.NewVec3(-0.5, -0.5, 0), eps) {
		t.Fatalf("corner contact = %+v", c.Position)
	}
}

func TestCheckCollisionCentreInside(t *testing.T) {
	g := NewCollisionGrid()
	g.Add(math.NewVec2(0, 0))
	c, hit := g.CheckCollision(math.NewVec3(0.1, 0.3, 0), 0.25)
	if !hit {
		t.Fatalf("expected a hit")
	}
	if !c.Normal.Compare(math.NewVec3(0, 1, 0), eps) || math.Abs(c.Overlap-0.45) > eps {
		t.Fatalf("contact = %+v", c)
	}
}

func TestResolveCollision(t *testing.T) {
	g := NewCollisionGrid()
	g.Add(math.NewVec2(0, 0))
	pos := math.NewVec3(0.2, 0.9, 0)
	vel := math.NewVec3(1, -3, 0)
	c, _ := g.CheckCollision(pos, 0.5)
	pos, vel = ResolveCollision(pos, vel, c)
	if _, hit := g.CheckCollision(pos, 0.5); hit {
		t.Fatalf("resolved position still collides: %+v", pos)
	}
	if !vel.Compare(math.NewVec3(1, 0, 0), eps) {
		t.Fatalf("velocity into the surface must be removed, got %+v", vel)
	}
}
