package testbed

import (
	"fmt"

	"github.com/spaghettifunk/anima-forward/engine"
	"github.com/spaghettifunk/anima-forward/engine/core"
	"github.com/spaghettifunk/anima-forward/engine/math"
	"github.com/spaghettifunk/anima-forward/engine/renderer"
	"github.com/spaghettifunk/anima-forward/engine/renderer/components"
	"github.com/spaghettifunk/anima-forward/engine/scene"
)

const (
	CUBE_MATERIAL   = "materials/bricks.material.toml"
	BLOCK_MATERIAL  = "materials/stone.material.toml"
	PLAYER_MATERIAL = "materials/player.material.toml"
	BLOCK_MODEL     = "models/block.obj"

	// Distance of the follow camera in front of the level.
	CAMERA_DISTANCE float32 = 9
	// Free camera speed in units and radians per second.
	FLY_SPEED   float32 = 4
	TURN_SPEED  float32 = 1.5
	CUBE_HEIGHT float32 = 3
)

var LEVEL = []string{
	"......................",
	"...............###....",
	"..........##..........",
	"#.....###............#",
	"#..@.................#",
	"######################",
}

type CameraMode int

const (
	CAMERA_MODE_FOLLOW CameraMode = iota
	CAMERA_MODE_FLY
)

type TestGame struct {
	*engine.Game
}

type gameState struct {
	camera     *components.SpaceCamera
	cameraMode CameraMode
	aspect     float32
	time       float32

	level  *scene.Level
	player *scene.Player

	cubeMesh    *renderer.Mesh
	blockMesh   *renderer.Mesh
	playerMesh  *renderer.Mesh
	cubeMat     *renderer.Material
	blockMat    *renderer.Material
	playerMat   *renderer.Material
	cubeSpin    math.Transform
	blockModels []math.Mat4
}

func NewTestGame() (*TestGame, error) {
	level, err := scene.ParseLevel(LEVEL)
	if err != nil {
		return nil, err
	}
	tg := &TestGame{
		Game: &engine.Game{
			State: &gameState{
				level:  level,
				player: scene.NewPlayer(level.Spawn, scene.DefaultPlayerConfig()),
				aspect: 1,
			},
		},
	}
	tg.FnInitialize = tg.Initialize
	tg.FnUpdate = tg.Update
	tg.FnRender = tg.Render
	tg.FnOnResize = tg.OnResize
	tg.FnShutdown = tg.Shutdown
	return tg, nil
}

func (g *TestGame) state() *gameState {
	return g.State.(*gameState)
}

func (g *TestGame) Initialize() error {
	core.LogDebug("TestGame Initialize fn....")
	if g.Systems == nil {
		return fmt.Errorf("the engine is not yet initialized with all the system managers")
	}
	state := g.state()
	sm := g.Systems.SystemManager

	var err error
	if state.cubeMat, err = sm.MaterialSystem.Acquire(CUBE_MATERIAL); err != nil {
		return err
	}
	if state.blockMat, err = sm.MaterialSystem.Acquire(BLOCK_MATERIAL); err != nil {
		return err
	}
	if state.playerMat, err = sm.MaterialSystem.Acquire(PLAYER_MATERIAL); err != nil {
		return err
	}

	if state.cubeMesh, err = sm.MeshSystem.Register("cube", scene.Cube(1).Vertices(), nil); err != nil {
		return err
	}
	if state.playerMesh, err = sm.MeshSystem.Register("sphere", scene.Sphere(8).Vertices(), nil); err != nil {
		return err
	}
	if state.blockMesh, err = sm.MeshSystem.LoadFromResource(BLOCK_MODEL); err != nil {
		return err
	}

	for _, cell := range state.level.Grid.Cells() {
		t := math.NewTransformFromPosition(math.NewVec3(float32(cell.X), float32(cell.Y), 0))
		state.blockModels = append(state.blockModels, t.Matrix())
	}

	centre := state.level.Centre()
	state.cubeSpin = math.NewTransformFromPosition(math.NewVec3(centre.X, float32(state.level.Height)+CUBE_HEIGHT, 0))
	state.cubeSpin.Scale = math.NewVec3Splat(1.5)

	// The camera looks along +y by default; pitch it to look down -z at the level.
	state.camera = components.NewSpaceCamera(state.player.Position.Add(math.NewVec3(0, 0, CAMERA_DISTANCE)))
	state.camera.RotateX(-math.DegToRad(90))

	core.LogInfo("testbed ready: %d blocks, F1 toggles the free camera", len(state.blockModels))
	return nil
}

func (g *TestGame) Update(deltaTime float64) error {
	state := g.state()
	dt := float32(deltaTime)
	state.time += dt

	if core.InputKeyPressedThisFrame(core.KEY_F1) {
		if state.cameraMode == CAMERA_MODE_FOLLOW {
			state.cameraMode = CAMERA_MODE_FLY
		} else {
			state.cameraMode = CAMERA_MODE_FOLLOW
		}
	}

	state.cubeSpin.Rotation = math.NewQuatFromEuler(state.time/3, state.time/2, state.time)

	switch state.cameraMode {
	case CAMERA_MODE_FLY:
		state.camera.Move(scene.MoveVector(core.InputIsKeyDown).MulScalar(FLY_SPEED * dt))
		state.camera.Rotate(scene.RotationVector(core.InputIsKeyDown).MulScalar(TURN_SPEED * dt))
	default:
		move := scene.MoveVector(core.InputIsKeyDown)
		// Long frames would let the player tunnel through blocks.
		step := min(dt, 1.0/30)
		state.player.Update(step, move, core.InputIsKeyDown(core.KEY_SPACE), state.level.Grid)
		pos := state.player.Position
		state.camera.SetPosition(math.NewVec3(pos.X, pos.Y, CAMERA_DISTANCE))
	}
	return nil
}

func (g *TestGame) Render(forward *renderer.ForwardRenderer, deltaTime float64) error {
	state := g.state()
	vp := state.camera.ViewProjection(state.aspect)

	// Grouped by material so the recorder can skip rebinding.
	for _, model := range state.blockModels {
		if err := forward.Draw(state.blockMesh, state.blockMat, vp.Mul(model)); err != nil {
			return err
		}
	}
	player := state.player.Transform()
	if err := forward.Draw(state.playerMesh, state.playerMat, vp.Mul(player.Matrix())); err != nil {
		return err
	}
	return forward.Draw(state.cubeMesh, state.cubeMat, vp.Mul(state.cubeSpin.Matrix()))
}

func (g *TestGame) OnResize(width uint32, height uint32) error {
	if height == 0 {
		return nil
	}
	g.state().aspect = float32(width) / float32(height)
	core.LogDebug("testbed aspect %.3f", g.state().aspect)
	return nil
}

func (g *TestGame) Shutdown() error {
	core.LogInfo("testbed shutting down")
	return nil
}
