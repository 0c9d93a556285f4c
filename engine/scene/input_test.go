package scene

import (
	"testing"

	"github.com/spaghettifunk/anima-forward/engine/core"
	"github.com/spaghettifunk/anima-forward/engine/math"
)

func keys(held ...core.KeyCode) KeyDown {
	set := make(map[core.KeyCode]bool)
	for _, k := range held {
		set[k] = true
	}
	return func(k core.KeyCode) bool { return set[k] }
}

func TestMoveVector(t *testing.T) {
	cases := []struct {
		name string
		held []core.KeyCode
		want math.Vec3
	}{
		{"none", nil, math.NewVec3Zero()},
		{"forward", []core.KeyCode{core.KEY_W}, math.NewVec3(0, 1, 0)},
		{"opposed", []core.KeyCode{core.KEY_W, core.KEY_S}, math.NewVec3Zero()},
		{"up", []core.KeyCode{core.KEY_SPACE}, math.NewVec3(0, 0, 1)},
		{"down", []core.KeyCode{core.KEY_LSHIFT}, math.NewVec3(0, 0, -1)},
		{"diagonal", []core.KeyCode{core.KEY_W, core.KEY_D}, math.NewVec3(0.70710677, 0.70710677, 0)},
	}
	for _, c := range cases {
		got := MoveVector(keys(c.held...))
		if !got.Compare(c.want, 1e-5) {
			t.Errorf("%s: got %+v, want %+v", c.name, got, c.want)
		}
	}
}

func TestRotationVector(t *testing.T) {
	got := RotationVector(keys(core.KEY_UP, core.KEY_LEFT, core.KEY_E))
	if got != math.NewVec3(1, 1, 1) {
		t.Fatalf("got %+v", got)
	}
	got = RotationVector(keys(core.KEY_DOWN, core.KEY_RIGHT, core.KEY_Q))
	if got != math.NewVec3(-1, -1, -1) {
		t.Fatalf("got %+v", got)
	}
}
