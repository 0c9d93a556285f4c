package systems

import (
	"runtime"

	"github.com/spaghettifunk/anima-forward/engine/assets"
	"github.com/spaghettifunk/anima-forward/engine/assets/loaders"
	"github.com/spaghettifunk/anima-forward/engine/core"
	"github.com/spaghettifunk/anima-forward/engine/math"
	"github.com/spaghettifunk/anima-forward/engine/renderer"
	"github.com/spaghettifunk/anima-forward/engine/renderer/vulkan"
)

// backend creates the GPU side of what the systems cache.
type backend interface {
	createTexture(img *loaders.Image, format renderer.TextureFormat) (*renderer.Texture, error)
	createMaterialType(name string, textureCount int, capacity uint32) (*renderer.MaterialType, error)
	growMaterialType(mt *renderer.MaterialType, capacity uint32) error
	registerMaterialType(mt *renderer.MaterialType) error
	makeMaterial(mt *renderer.MaterialType, textures []*renderer.Texture) (*renderer.Material, error)
	destroyMaterialType(mt *renderer.MaterialType)
	createMesh(vertices []math.Vertex, indices []uint32) (*renderer.Mesh, error)
}

type SystemManagerConfig struct {
	// Workers decoding images.
	JobWorkers       int
	MaxTextureCount  uint32
	MaxMaterialCount uint32
	MaxMeshCount     uint32
}

func DefaultSystemManagerConfig() SystemManagerConfig {
	return SystemManagerConfig{
		JobWorkers:       runtime.NumCPU(),
		MaxTextureCount:  256,
		MaxMaterialCount: 64,
		MaxMeshCount:     256,
	}
}

type SystemManager struct {
	JobSystem      *JobSystem
	TextureSystem  *TextureSystem
	MaterialSystem *MaterialSystem
	MeshSystem     *MeshSystem
}

// NewSystemManager wires the caches to the device. GPU objects land in pool
// and live until the pool is destroyed.
func NewSystemManager(config SystemManagerConfig, context *vulkan.VulkanContext, pool *vulkan.AssetPool,
	forward *renderer.ForwardRenderer, am *assets.AssetManager) (*SystemManager, error) {
	b := &vulkanBackend{context: context, pool: pool, forward: forward}
	return newSystemManager(config, b, am)
}

func newSystemManager(config SystemManagerConfig, b backend, am *assets.AssetManager) (*SystemManager, error) {
	js, err := NewJobSystem(config.JobWorkers, 0)
	if err != nil {
		return nil, err
	}
	ts, err := NewTextureSystem(&TextureSystemConfig{MaxTextureCount: config.MaxTextureCount}, b, am, js)
	if err != nil {
		js.Shutdown()
		return nil, err
	}
	ms, err := NewMaterialSystem(&MaterialSystemConfig{MaxMaterialCount: config.MaxMaterialCount}, b, am, ts)
	if err != nil {
		js.Shutdown()
		return nil, err
	}
	mls, err := NewMeshSystem(&MeshSystemConfig{MaxMeshCount: config.MaxMeshCount}, b, am)
	if err != nil {
		js.Shutdown()
		return nil, err
	}
	return &SystemManager{
		JobSystem:      js,
		TextureSystem:  ts,
		MaterialSystem: ms,
		MeshSystem:     mls,
	}, nil
}

// Shutdown releases what the pool does not own. Call it before the
// renderer and the pool are destroyed.
func (sm *SystemManager) Shutdown() error {
	sm.MaterialSystem.Shutdown()
	sm.MeshSystem.Shutdown()
	sm.TextureSystem.Shutdown()
	if err := sm.JobSystem.Shutdown(); err != nil {
		return err
	}
	core.LogDebug("systems shut down")
	return nil
}

type vulkanBackend struct {
	context *vulkan.VulkanContext
	pool    *vulkan.AssetPool
	forward *renderer.ForwardRenderer
}

func (b *vulkanBackend) createTexture(img *loaders.Image, format renderer.TextureFormat) (*renderer.Texture, error) {
	return renderer.NewTexture(b.context, b.pool, img.Pixels, img.Width, img.Height, format)
}

func (b *vulkanBackend) createMaterialType(name string, textureCount int, capacity uint32) (*renderer.MaterialType, error) {
	return renderer.NewMaterialType(b.context, name, textureCount, capacity)
}

func (b *vulkanBackend) growMaterialType(mt *renderer.MaterialType, capacity uint32) error {
	return mt.Grow(b.context, capacity)
}

func (b *vulkanBackend) registerMaterialType(mt *renderer.MaterialType) error {
	return b.forward.RegisterMaterialType(mt.Layout())
}

func (b *vulkanBackend) makeMaterial(mt *renderer.MaterialType, textures []*renderer.Texture) (*renderer.Material, error) {
	return mt.MakeMaterial(b.context, textures...)
}

func (b *vulkanBackend) destroyMaterialType(mt *renderer.MaterialType) {
	mt.Destroy(b.context)
}

func (b *vulkanBackend) createMesh(vertices []math.Vertex, indices []uint32) (*renderer.Mesh, error) {
	return renderer.NewMesh(b.context, b.pool, vertices, indices)
}
