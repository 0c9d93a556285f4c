package engine

import (
	"github.com/spaghettifunk/anima-forward/engine/assets"
	"github.com/spaghettifunk/anima-forward/engine/renderer"
	"github.com/spaghettifunk/anima-forward/engine/renderer/vulkan"
	"github.com/spaghettifunk/anima-forward/engine/systems"
)

// Game is the application the engine drives. The engine fills Config and
// Systems before FnInitialize runs.
type Game struct {
	Config  *EngineConfig
	Systems *Systems
	State   interface{}

	FnInitialize Initialize
	FnUpdate     Update
	FnRender     Render
	FnOnResize   OnResize
	FnShutdown   Shutdown
}

// Systems is what a game may use to create and draw things.
type Systems struct {
	Context       *vulkan.VulkanContext
	Pool          *vulkan.AssetPool
	Renderer      *renderer.ForwardRenderer
	AssetManager  *assets.AssetManager
	SystemManager *systems.SystemManager
}

type Initialize func() error
type Update func(deltaTime float64) error

// Render records the draws of one frame. It is only called between a
// successful StartFrame and EndFrame.
type Render func(forward *renderer.ForwardRenderer, deltaTime float64) error
type OnResize func(width uint32, height uint32) error
type Shutdown func() error
