package scene

import (
	"testing"

	"github.com/spaghettifunk/anima-forward/engine/math"
)

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel([]string{
		"....#",
		".@..#",
		"#####",
	})
	if err != nil {
		t.Fatalf("ParseLevel: %v", err)
	}
	if level.Grid.Len() != 7 {
		t.Fatalf("blocks = %d, want 7", level.Grid.Len())
	}
	if !level.Grid.Has(math.NewVec2(0, 0)) || !level.Grid.Has(math.NewVec2(4, 2)) || level.Grid.Has(math.NewVec2(0, 2)) {
		t.Fatalf("rows are not flipped bottom-up: %v", level.Grid.Cells())
	}
	if level.Spawn != math.NewVec3(1, 1, 0) {
		t.Fatalf("spawn = %+v", level.Spawn)
	}
	if level.Width != 5 || level.Height != 3 || level.Centre() != math.NewVec3(2, 1, 0) {
		t.Fatalf("extent %dx%d centre %+v", level.Width, level.Height, level.Centre())
	}
}

func TestParseLevelErrors(t *testing.T) {
	for name, rows := range map[string][]string{
		"no spawn":   {"###"},
		"two spawns": {"@.@", "###"},
		"bad tile":   {"@x.", "###"},
	} {
		if _, err := ParseLevel(rows); err == nil {
			t.Errorf("%s: expected an error", name)
		}
	}
}

func TestPlayerStandsOnParsedLevel(t *testing.T) {
	level, err := ParseLevel([]string{
		"..@..",
		".....",
		"#####",
	})
	if err != nil {
		t.Fatalf("ParseLevel: %v", err)
	}
	p := NewPlayer(level.Spawn, DefaultPlayerConfig())
	for i := 0; i < 240; i++ {
		p.Update(1.0/60, math.Vec3{}, false, level.Grid)
	}
	if !p.OnGround || math.Abs(p.Position.Y-0.9) > 0.05 {
		t.Fatalf("player at %+v, on ground %v", p.Position, p.OnGround)
	}
}
