package scene

import (
	"github.com/spaghettifunk/anima-forward/engine/math"
)

type PlayerConfig struct {
	Radius    float32
	Gravity   float32 // units/s², pulls along -y
	MoveSpeed float32 // units/s
	JumpSpeed float32 // units/s
	// Contacts whose normal has at least this much +y count as ground.
	GroundNormalY float32
	// Collision passes per step. Corners can need more than one.
	MaxResolves int
}

func DefaultPlayerConfig() PlayerConfig {
	return PlayerConfig{
		Radius:        0.4,
		Gravity:       20,
		MoveSpeed:     5,
		JumpSpeed:     9,
		GroundNormalY: 0.7,
		MaxResolves:   4,
	}
}

// Player is a circle moving in the xy plane of a CollisionGrid.
type Player struct {
	Config   PlayerConfig
	Position math.Vec3
	Velocity math.Vec3
	OnGround bool
}

func NewPlayer(position math.Vec3, config PlayerConfig) *Player {
	return &Player{Config: config, Position: position}
}

// Update advances the player by dt seconds. move.X steers horizontally and
// jump only takes effect while standing on something.
func (p *Player) Update(dt float32, move math.Vec3, jump bool, grid *CollisionGrid) {
	p.Velocity.X = math.Clamp(move.X, -1, 1) * p.Config.MoveSpeed
	if jump && p.OnGround {
		p.Velocity.Y = p.Config.JumpSpeed
	}
	p.Velocity.Y -= p.Config.Gravity * dt
	p.Position = p.Position.Add(p.Velocity.MulScalar(dt))

	p.OnGround = false
	for i := 0; i < p.Config.MaxResolves; i++ {
		contact, hit := grid.CheckCollision(p.Position, p.Config.Radius)
		if !hit {
			break
		}
		p.Position, p.Velocity = ResolveCollision(p.Position, p.Velocity, contact)
		if contact.Normal.Y >= p.Config.GroundNormalY {
			p.OnGround = true
		}
	}
}

// Transform places a unit model at the player, scaled to its diameter.
func (p *Player) Transform() math.Transform {
	t := math.NewTransformFromPosition(p.Position)
	t.Scale = math.NewVec3Splat(p.Config.Radius * 2)
	return t
}
