package scene

import (
	"fmt"

	"github.com/spaghettifunk/anima-forward/engine/math"
)

const (
	LEVEL_BLOCK = '#'
	LEVEL_SPAWN = '@'
	LEVEL_EMPTY = '.'
)

// Level is a grid parsed from rows of text, top row first.
type Level struct {
	Grid  *CollisionGrid
	Spawn math.Vec3
	// Extent of the layout in blocks.
	Width, Height int
}

// ParseLevel reads '#' as a block, '@' as the spawn point and '.' or ' ' as
// empty. The bottom row sits at y = 0 and the first column at x = 0.
func ParseLevel(rows []string) (*Level, error) {
	level := &Level{Grid: NewCollisionGrid(), Height: len(rows)}
	spawns := 0
	for i, row := range rows {
		y := len(rows) - 1 - i
		for x, c := range row {
			switch c {
			case LEVEL_BLOCK:
				level.Grid.Add(math.NewVec2(float32(x), float32(y)))
			case LEVEL_SPAWN:
				level.Spawn = math.NewVec3(float32(x), float32(y), 0)
				spawns++
			case LEVEL_EMPTY, ' ':
			default:
				return nil, fmt.Errorf("level row %d column %d: unknown tile %q", i, x, c)
			}
			level.Width = max(level.Width, x+1)
		}
	}
	if spawns != 1 {
		return nil, fmt.Errorf("level needs exactly one spawn point, found %d", spawns)
	}
	return level, nil
}

// Centre is the middle of the layout, z = 0.
func (l *Level) Centre() math.Vec3 {
	return math.NewVec3(float32(l.Width-1)/2, float32(l.Height-1)/2, 0)
}
