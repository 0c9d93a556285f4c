package engine

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/spaghettifunk/anima-forward/engine/core"
	"github.com/spaghettifunk/anima-forward/engine/renderer/vulkan"
)

const (
	DEFAULT_CONFIG_PATH = "anima.toml"

	VERTEX_SHADER_FILE   = "forward.vert.spv"
	FRAGMENT_SHADER_FILE = "forward.frag.spv"
)

type RendererConfig struct {
	FramesInFlight uint32 `toml:"frames_in_flight"`
	// Preferred present modes, most wanted first. fifo is always available.
	PresentModes []string `toml:"present_modes"`
	Validation   bool     `toml:"validation"`
	// Relative to the asset root.
	ShaderDir string `toml:"shader_dir"`
}

type AssetsConfig struct {
	Root  string `toml:"root"`
	Watch bool   `toml:"watch"`
}

/**
 * @brief Everything the engine reads at startup.
 *
 *	[application]
 *	name = "Anima"
 *	width = 1280
 *	height = 720
 *	log_level = "info"
 *
 *	[renderer]
 *	frames_in_flight = 1
 *	present_modes = ["mailbox", "fifo"]
 *	validation = false
 *	shader_dir = "shaders"
 *
 *	[assets]
 *	root = "assets"
 *	watch = true
 */
type EngineConfig struct {
	Application ApplicationConfig `toml:"application"`
	Renderer    RendererConfig    `toml:"renderer"`
	Assets      AssetsConfig      `toml:"assets"`
}

func DefaultConfig() *EngineConfig {
	return &EngineConfig{
		Application: ApplicationConfig{
			Name:        "Anima Forward",
			StartPosX:   100,
			StartPosY:   100,
			StartWidth:  1280,
			StartHeight: 720,
			LogLevel:    string(core.LogLevelInfo),
		},
		Renderer: RendererConfig{
			FramesInFlight: vulkan.DEFAULT_MAX_FRAMES_IN_FLIGHT,
			PresentModes:   []string{"fifo"},
			ShaderDir:      "shaders",
		},
		Assets: AssetsConfig{
			Root:  "assets",
			Watch: true,
		},
	}
}

// LoadConfig overlays the file at path on DefaultConfig. A missing file
// leaves the defaults in place.
func LoadConfig(path string) (*EngineConfig, error) {
	config := DefaultConfig()
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		core.LogInfo("no configuration at %s, using defaults", path)
		return config, config.Validate()
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if err := toml.NewDecoder(f).DisallowUnknownFields().Decode(config); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return nil, fmt.Errorf("config %s: unknown keys:\n%s", path, strict.String())
		}
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return config, nil
}

func (c *EngineConfig) Validate() error {
	if err := c.Application.validate(); err != nil {
		return err
	}
	if c.Renderer.FramesInFlight < 1 {
		return fmt.Errorf("renderer: frames_in_flight must be at least 1")
	}
	if len(c.Renderer.PresentModes) == 0 {
		return fmt.Errorf("renderer: present_modes is empty")
	}
	if _, err := vulkan.ParsePresentModes(c.Renderer.PresentModes); err != nil {
		return fmt.Errorf("renderer: %w", err)
	}
	if c.Assets.Root == "" {
		return fmt.Errorf("assets: root is empty")
	}
	return nil
}
