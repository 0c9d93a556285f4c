package systems

import (
	"fmt"

	"golang.org/x/exp/slices"

	"github.com/spaghettifunk/anima-forward/engine/assets"
	"github.com/spaghettifunk/anima-forward/engine/assets/loaders"
	"github.com/spaghettifunk/anima-forward/engine/core"
	"github.com/spaghettifunk/anima-forward/engine/renderer"
)

type TextureSystemConfig struct {
	/** @brief The maximum number of textures that can be loaded at once. */
	MaxTextureCount uint32
}

type textureKey struct {
	name   string
	format renderer.TextureFormat
}

// TextureSystem loads each image once per format.
type TextureSystem struct {
	Config *TextureSystemConfig
	// Hashtable for texture lookups.
	RegisteredTextureTable map[textureKey]*renderer.Texture

	backend      backend
	assetManager *assets.AssetManager
	jobSystem    *JobSystem
}

func NewTextureSystem(config *TextureSystemConfig, b backend, am *assets.AssetManager, js *JobSystem) (*TextureSystem, error) {
	if config.MaxTextureCount == 0 {
		err := fmt.Errorf("func NewTextureSystem - config.MaxTextureCount must be > 0")
		core.LogError(err.Error())
		return nil, err
	}
	return &TextureSystem{
		Config:                 config,
		RegisteredTextureTable: make(map[textureKey]*renderer.Texture),
		backend:                b,
		assetManager:           am,
		jobSystem:              js,
	}, nil
}

// Acquire returns the texture for an image under the asset root, loading
// and uploading it on first use.
func (ts *TextureSystem) Acquire(name string, format renderer.TextureFormat) (*renderer.Texture, error) {
	key := textureKey{name: name, format: format}
	if t, ok := ts.RegisteredTextureTable[key]; ok {
		return t, nil
	}
	if uint32(len(ts.RegisteredTextureTable)) >= ts.Config.MaxTextureCount {
		return nil, fmt.Errorf("texture %s: all %d texture slots in use: %w", name, ts.Config.MaxTextureCount, core.ErrResourceCreationFailed)
	}
	img, err := ts.assetManager.LoadImage(name, format.Channels())
	if err != nil {
		return nil, fmt.Errorf("texture %s: %w", name, err)
	}
	t, err := ts.backend.createTexture(img, format)
	if err != nil {
		return nil, fmt.Errorf("texture %s: %w", name, err)
	}
	ts.RegisteredTextureTable[key] = t
	core.LogDebug("texture %s loaded: %dx%d, %d mips", name, t.Width, t.Height, t.MipLevels)
	return t, nil
}

// AcquireAll is Acquire for several images. Images not yet loaded are
// decoded on the job system; uploads happen on the calling goroutine.
func (ts *TextureSystem) AcquireAll(names []string, format renderer.TextureFormat) ([]*renderer.Texture, error) {
	var missing []string
	for _, name := range names {
		if _, ok := ts.RegisteredTextureTable[textureKey{name: name, format: format}]; !ok && !slices.Contains(missing, name) {
			missing = append(missing, name)
		}
	}
	if free := int(ts.Config.MaxTextureCount) - len(ts.RegisteredTextureTable); len(missing) > free {
		return nil, fmt.Errorf("%d new textures with %d slots free: %w", len(missing), free, core.ErrResourceCreationFailed)
	}

	images, err := RunAll(ts.jobSystem, len(missing), func(i int) (*loaders.Image, error) {
		return ts.assetManager.LoadImage(missing[i], format.Channels())
	})
	if err != nil {
		return nil, fmt.Errorf("texture: %w", err)
	}
	for i, img := range images {
		t, err := ts.backend.createTexture(img, format)
		if err != nil {
			return nil, fmt.Errorf("texture %s: %w", missing[i], err)
		}
		ts.RegisteredTextureTable[textureKey{name: missing[i], format: format}] = t
	}

	out := make([]*renderer.Texture, len(names))
	for i, name := range names {
		out[i] = ts.RegisteredTextureTable[textureKey{name: name, format: format}]
	}
	return out, nil
}

// Shutdown forgets every texture. Their objects belong to the asset pool.
func (ts *TextureSystem) Shutdown() {
	clear(ts.RegisteredTextureTable)
}
