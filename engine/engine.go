package engine

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spaghettifunk/anima-forward/engine/assets"
	"github.com/spaghettifunk/anima-forward/engine/core"
	"github.com/spaghettifunk/anima-forward/engine/platform"
	"github.com/spaghettifunk/anima-forward/engine/renderer"
	"github.com/spaghettifunk/anima-forward/engine/renderer/vulkan"
	"github.com/spaghettifunk/anima-forward/engine/systems"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently booting up
	EngineStageBooting
	// Engine completed boot process and is ready to be initialized
	EngineStageBootComplete
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
)

// FPS and frame times are logged this often, in seconds.
const FRAME_REPORT_INTERVAL = 1.0

type Engine struct {
	currentStage Stage
	gameInstance *Game
	config       *EngineConfig
	isRunning    bool
	isSuspended  bool

	platform      *platform.Platform
	assetManager  *assets.AssetManager
	context       *vulkan.VulkanContext
	target        *vulkan.WindowRenderTarget
	forward       *renderer.ForwardRenderer
	pool          *vulkan.AssetPool
	systemManager *systems.SystemManager

	width  uint32
	height uint32

	clock        *core.Clock
	frames       *core.FrameCounter
	lastTime     float64
	lastReport   float64
	shadersDirty bool
}

func New(g *Game, config *EngineConfig) (*Engine, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	level, err := core.ParseLogLevel(config.Application.LogLevel)
	if err != nil {
		return nil, err
	}
	core.SetLogLevel(level)

	p, err := platform.New()
	if err != nil {
		return nil, err
	}
	g.Config = config
	return &Engine{
		currentStage: EngineStageBootComplete,
		gameInstance: g,
		config:       config,
		platform:     p,
		clock:        core.NewClock(),
		frames:       core.NewFrameCounter(),
		width:        config.Application.StartWidth,
		height:       config.Application.StartHeight,
	}, nil
}

// Initialize opens the window and brings up the device, the render target,
// the forward renderer and the game, in that order.
func (e *Engine) Initialize() error {
	e.currentStage = EngineStageInitializing
	core.InputReset()

	core.EventRegister(core.EVENT_CODE_APPLICATION_QUIT, e, e.onEvent)
	core.EventRegister(core.EVENT_CODE_KEY_PRESSED, e, e.onKey)
	core.EventRegister(core.EVENT_CODE_RESIZED, e, e.onResized)
	core.EventRegister(core.EVENT_CODE_ASSET_CHANGED, e, e.onAssetChanged)

	app := e.config.Application
	if err := e.platform.Startup(app.Name, app.StartPosX, app.StartPosY, app.StartWidth, app.StartHeight); err != nil {
		return err
	}

	am, err := assets.NewAssetManager(e.config.Assets.Root, e.config.Assets.Watch)
	if err != nil {
		return fmt.Errorf("asset root %s: %w", e.config.Assets.Root, err)
	}
	e.assetManager = am

	e.context, err = vulkan.NewContext(vulkan.ContextConfig{
		ApplicationName: app.Name,
		Validation:      e.config.Renderer.Validation,
	}, e.platform)
	if err != nil {
		return err
	}

	modes, err := vulkan.ParsePresentModes(e.config.Renderer.PresentModes)
	if err != nil {
		return err
	}
	e.target, err = vulkan.NewWindowRenderTarget(e.context, e.platform, vulkan.RenderTargetConfig{
		FramesInFlight: e.config.Renderer.FramesInFlight,
		PresentModes:   modes,
	})
	if err != nil {
		return err
	}

	shaders, err := e.loadShaders()
	if err != nil {
		return err
	}
	e.forward, err = renderer.NewForwardRenderer(e.context, e.target, shaders)
	if err != nil {
		return err
	}
	e.pool = vulkan.NewAssetPool()

	e.systemManager, err = systems.NewSystemManager(systems.DefaultSystemManagerConfig(), e.context, e.pool, e.forward, e.assetManager)
	if err != nil {
		return err
	}

	e.gameInstance.Systems = &Systems{
		Context:       e.context,
		Pool:          e.pool,
		Renderer:      e.forward,
		AssetManager:  e.assetManager,
		SystemManager: e.systemManager,
	}
	if err := e.gameInstance.FnInitialize(); err != nil {
		return err
	}
	extent := e.forward.Extent()
	if err := e.gameInstance.FnOnResize(extent.Width, extent.Height); err != nil {
		return err
	}
	e.currentStage = EngineStageInitialized
	return nil
}

func (e *Engine) shaderPath(file string) string {
	return filepath.Join(e.config.Renderer.ShaderDir, file)
}

func (e *Engine) loadShaders() (renderer.ShaderCode, error) {
	vert, err := e.assetManager.LoadShader(e.shaderPath(VERTEX_SHADER_FILE))
	if err != nil {
		return renderer.ShaderCode{}, err
	}
	frag, err := e.assetManager.LoadShader(e.shaderPath(FRAGMENT_SHADER_FILE))
	if err != nil {
		return renderer.ShaderCode{}, err
	}
	return renderer.ShaderCode{Vertex: vert, Fragment: frag}, nil
}

func (e *Engine) Run() error {
	e.begin()
	for e.isRunning {
		if err := e.Step(); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) begin() {
	if e.currentStage == EngineStageRunning {
		return
	}
	e.currentStage = EngineStageRunning
	e.isRunning = true
	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Elapsed()
}

// Step pumps window events and, unless minimized, runs one update and one
// frame. It clears the running flag when the window asks to close.
func (e *Engine) Step() error {
	e.begin()
	if !e.platform.PumpMessages() {
		e.isRunning = false
		return nil
	}
	if e.isSuspended {
		e.platform.WaitEvents()
		return nil
	}

	e.clock.Update()
	currentTime := e.clock.Elapsed()
	delta := currentTime - e.lastTime

	e.assetManager.DispatchChanges()
	e.reloadShadersIfDirty()

	if err := e.gameInstance.FnUpdate(delta); err != nil {
		return fmt.Errorf("game update: %w", err)
	}
	if err := e.drawFrame(delta); err != nil {
		return err
	}

	e.frames.Tick()
	if currentTime-e.lastReport >= FRAME_REPORT_INTERVAL {
		e.lastReport = currentTime
		core.LogInfo("%.1f fps, %.2f ms/frame (last %d frames: %.2f ms)",
			e.frames.FPSAvg(), e.frames.FrameTimeAvg(), core.AVG_COUNT, e.frames.RecentFrameTime())
	}

	// Input state is copied last so this frame's presses were visible to the game.
	core.InputUpdate()
	e.lastTime = currentTime
	return nil
}

// Frames is the counter behind the periodic FPS log.
func (e *Engine) Frames() *core.FrameCounter { return e.frames }

func (e *Engine) drawFrame(delta float64) error {
	ok, err := e.forward.StartFrame()
	if err != nil {
		return fmt.Errorf("start frame: %w", err)
	}
	if !ok {
		// The surface was rebuilt. The next frame draws at the new size.
		extent := e.forward.Extent()
		if err := e.gameInstance.FnOnResize(extent.Width, extent.Height); err != nil {
			return err
		}
		return nil
	}
	if err := e.gameInstance.FnRender(e.forward, delta); err != nil {
		return fmt.Errorf("game render: %w", err)
	}
	if err := e.forward.EndFrame(); err != nil {
		return fmt.Errorf("end frame: %w", err)
	}
	return nil
}

func (e *Engine) reloadShadersIfDirty() {
	if !e.shadersDirty {
		return
	}
	e.shadersDirty = false
	shaders, err := e.loadShaders()
	if err == nil {
		err = e.forward.ReloadShaders(shaders)
	}
	if err != nil {
		core.LogError("shader reload failed, keeping the previous pipelines: %s", err)
	}
}

// Shutdown tears down in reverse creation order. It is safe after a failed
// Initialize.
func (e *Engine) Shutdown() error {
	e.currentStage = EngineStageShuttingDown
	if e.context != nil {
		if err := e.context.WaitIdle(); err != nil {
			core.LogWarn("wait idle on shutdown: %s", err)
		}
	}
	if e.gameInstance.FnShutdown != nil && e.gameInstance.Systems != nil {
		if err := e.gameInstance.FnShutdown(); err != nil {
			core.LogError("game shutdown: %s", err)
		}
	}
	if e.systemManager != nil {
		if err := e.systemManager.Shutdown(); err != nil {
			core.LogError("systems shutdown: %s", err)
		}
	}
	if e.forward != nil {
		e.forward.Destroy()
	}
	if e.pool != nil {
		e.pool.Destroy(e.context)
	}
	if e.target != nil {
		e.target.Destroy()
	}
	if e.context != nil {
		e.context.Destroy()
	}
	if e.assetManager != nil {
		if err := e.assetManager.Close(); err != nil {
			core.LogError("asset manager: %s", err)
		}
	}
	core.EventShutdown()
	e.currentStage = EngineStageUninitialized
	return e.platform.Shutdown()
}

func (e *Engine) Stage() Stage { return e.currentStage }

func (e *Engine) IsRunning() bool { return e.isRunning }

// RequestQuit asks the loop to stop after the current frame. Safe from any
// goroutine.
func (e *Engine) RequestQuit() {
	e.platform.RequestClose()
}

// GetFramebufferSize returns the last size reported by the window.
func (e *Engine) GetFramebufferSize() (uint32, uint32) {
	return e.width, e.height
}

func (e *Engine) onEvent(context core.EventContext, listener interface{}) bool {
	if context.Type == core.EVENT_CODE_APPLICATION_QUIT {
		core.LogInfo("EVENT_CODE_APPLICATION_QUIT received, shutting down.")
		e.isRunning = false
		return true
	}
	return false
}

func (e *Engine) onKey(context core.EventContext, listener interface{}) bool {
	ke, ok := context.Data.(*core.KeyEvent)
	if !ok {
		core.LogError("wrong event associated with the event type `%d`", context.Type)
		return false
	}
	if ke.KeyCode == core.KEY_ESCAPE {
		// NOTE: Technically firing an event to itself, but there may be other listeners.
		core.EventFire(core.EventContext{Type: core.EVENT_CODE_APPLICATION_QUIT})
		return true
	}
	return false
}

func (e *Engine) onResized(context core.EventContext, listener interface{}) bool {
	re, ok := context.Data.(*core.ResizeEvent)
	if !ok {
		core.LogError("wrong event associated with the event type `%d`", context.Type)
		return false
	}
	if re.Width == e.width && re.Height == e.height {
		return false
	}
	e.width, e.height = re.Width, re.Height
	core.LogDebug("Window resize: %d, %d", re.Width, re.Height)

	// Handle minimization
	if re.Width == 0 || re.Height == 0 {
		core.LogInfo("Window minimized, suspending application.")
		e.isSuspended = true
		return false
	}
	if e.isSuspended {
		core.LogInfo("Window restored, resuming application.")
		e.isSuspended = false
	}
	if e.forward != nil {
		e.forward.OnResize()
	}
	return false
}

func (e *Engine) onAssetChanged(context core.EventContext, listener interface{}) bool {
	ae, ok := context.Data.(*core.AssetEvent)
	if !ok {
		core.LogError("wrong event associated with the event type `%d`", context.Type)
		return false
	}
	if e.isShaderFile(ae.Path) {
		core.LogInfo("shader %s changed", ae.Path)
		e.shadersDirty = true
	}
	return false
}

func (e *Engine) isShaderFile(path string) bool {
	if !strings.EqualFold(filepath.Ext(path), ".spv") {
		return false
	}
	dir, err := filepath.Abs(filepath.Join(e.config.Assets.Root, e.config.Renderer.ShaderDir))
	if err != nil {
		return false
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(dir, abs)
	return err == nil && !strings.HasPrefix(rel, "..")
}
