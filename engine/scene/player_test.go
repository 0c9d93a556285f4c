package scene

import (
	"testing"

	"github.com/spaghettifunk/anima-forward/engine/math"
)

func floor(width int) *CollisionGrid {
	g := NewCollisionGrid()
	for x := -width; x <= width; x++ {
		g.Add(math.NewVec2(float32(x), 0))
	}
	return g
}

func settle(p *Player, g *CollisionGrid, steps int) {
	for i := 0; i < steps; i++ {
		p.Update(1.0/60, math.NewVec3Zero(), false, g)
	}
}

func TestPlayerFallsOntoFloor(t *testing.T) {
	g := floor(5)
	p := NewPlayer(math.NewVec3(0, 3, 0), DefaultPlayerConfig())
	settle(p, g, 120)
	if !p.OnGround {
		t.Fatalf("player never landed: %+v", p.Position)
	}
	// Resting height: top of the block plus the radius.
	want := BLOCK_RADIUS + p.Config.Radius
	if math.Abs(p.Position.Y-want) > 0.05 {
		t.Fatalf("resting y = %v, want about %v", p.Position.Y, want)
	}
	if _, hit := g.CheckCollision(p.Position, p.Config.Radius*0.99); hit {
		t.Fatalf("player sank into the floor")
	}
}

func TestPlayerJumpsOnlyFromGround(t *testing.T) {
	g := floor(5)
	p := NewPlayer(math.NewVec3(0, 3, 0), DefaultPlayerConfig())

	p.Update(1.0/60, math.NewVec3Zero(), true, g)
	if p.Velocity.Y > 0 {
		t.Fatalf("jumped in mid-air")
	}

	settle(p, g, 120)
	start := p.Position.Y
	p.Update(1.0/60, math.NewVec3Zero(), true, g)
	if p.Velocity.Y <= 0 || p.Position.Y <= start || p.OnGround {
		t.Fatalf("jump from the ground failed: %+v", p)
	}
}

func TestPlayerWalksAndIsBlocked(t *testing.T) {
	g := floor(5)
	g.Add(math.NewVec2(2, 1)) // wall on the right
	p := NewPlayer(math.NewVec3(0, 1, 0), DefaultPlayerConfig())
	settle(p, g, 30)
	for i := 0; i < 120; i++ {
		p.Update(1.0/60, math.NewVec3(1, 0, 0), false, g)
	}
	limit := 2 - BLOCK_RADIUS - p.Config.Radius
	if p.Position.X > limit+0.01 {
		t.Fatalf("walked through the wall: x = %v, limit %v", p.Position.X, limit)
	}
	if p.Position.X < limit-0.1 {
		t.Fatalf("did not reach the wall: x = %v", p.Position.X)
	}
}

func TestPlayerTransform(t *testing.T) {
	p := NewPlayer(math.NewVec3(1, 2, 0), DefaultPlayerConfig())
	tr := p.Transform()
	if tr.Position != p.Position || tr.Scale != math.NewVec3Splat(0.8) {
		t.Fatalf("transform = %+v", tr)
	}
}
