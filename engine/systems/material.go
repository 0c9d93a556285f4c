package systems

import (
	"fmt"

	"github.com/spaghettifunk/anima-forward/engine/assets"
	"github.com/spaghettifunk/anima-forward/engine/core"
	"github.com/spaghettifunk/anima-forward/engine/renderer"
)

type MaterialSystemConfig struct {
	/** @brief The maximum number of materials that can be loaded at once. */
	MaxMaterialCount uint32
}

// materialReference is one material description and the material built for it.
type materialReference struct {
	materialType *renderer.MaterialType
	material     *renderer.Material
}

/**
 * @brief Builds materials from *.material.toml descriptions. Descriptions
 * with the same binding schema (texture count) share one material type, so
 * they share its descriptor-set layout and the pipeline registered for it.
 * Each description adds its instance count to the type's capacity. Acquire
 * hands out the first material of a description; Instantiate allocates
 * further ones with the same textures.
 */
type MaterialSystem struct {
	Config *MaterialSystemConfig
	// Hashtable for material lookups.
	RegisteredMaterialTable map[string]*materialReference
	// Material types by texture count.
	types map[int]*renderer.MaterialType

	backend       backend
	assetManager  *assets.AssetManager
	textureSystem *TextureSystem
}

func NewMaterialSystem(config *MaterialSystemConfig, b backend, am *assets.AssetManager, ts *TextureSystem) (*MaterialSystem, error) {
	if config.MaxMaterialCount == 0 {
		err := fmt.Errorf("func NewMaterialSystem - config.MaxMaterialCount must be > 0")
		core.LogError(err.Error())
		return nil, err
	}
	return &MaterialSystem{
		Config:                  config,
		RegisteredMaterialTable: make(map[string]*materialReference),
		types:                   make(map[int]*renderer.MaterialType),
		backend:                 b,
		assetManager:            am,
		textureSystem:           ts,
	}, nil
}

func schemaName(textureCount int) string {
	return fmt.Sprintf("textured%d", textureCount)
}

// materialType returns the type for textureCount with room for instances
// more materials, creating and registering it on first use.
func (ms *MaterialSystem) materialType(textureCount int, instances uint32) (mt *renderer.MaterialType, created bool, err error) {
	if mt, ok := ms.types[textureCount]; ok {
		if err := ms.backend.growMaterialType(mt, instances); err != nil {
			return nil, false, err
		}
		return mt, false, nil
	}
	mt, err = ms.backend.createMaterialType(schemaName(textureCount), textureCount, instances)
	if err != nil {
		return nil, false, err
	}
	if err := ms.backend.registerMaterialType(mt); err != nil {
		ms.backend.destroyMaterialType(mt)
		return nil, false, err
	}
	ms.types[textureCount] = mt
	return mt, true, nil
}

func (ms *MaterialSystem) Acquire(name string) (*renderer.Material, error) {
	if ref, ok := ms.RegisteredMaterialTable[name]; ok {
		return ref.material, nil
	}
	if uint32(len(ms.RegisteredMaterialTable)) >= ms.Config.MaxMaterialCount {
		return nil, fmt.Errorf("material %s: all %d material slots in use: %w", name, ms.Config.MaxMaterialCount, core.ErrResourceCreationFailed)
	}

	desc, err := ms.assetManager.LoadMaterial(name)
	if err != nil {
		return nil, err
	}
	format, err := renderer.ParseTextureFormat(desc.Format)
	if err != nil {
		return nil, fmt.Errorf("material %s: %w", name, err)
	}
	textures, err := ms.textureSystem.AcquireAll(desc.Textures, format)
	if err != nil {
		return nil, fmt.Errorf("material %s: %w", name, err)
	}

	mt, created, err := ms.materialType(len(textures), desc.Instances)
	if err != nil {
		return nil, fmt.Errorf("material %s: %w", name, err)
	}
	material, err := ms.backend.makeMaterial(mt, textures)
	if err != nil {
		if created {
			ms.backend.destroyMaterialType(mt)
			delete(ms.types, len(textures))
		}
		return nil, err
	}
	ms.RegisteredMaterialTable[name] = &materialReference{materialType: mt, material: material}
	core.LogInfo("material %s loaded from %s as %s", desc.Name, name, mt.Name)
	return material, nil
}

// Instantiate allocates another material of an acquired material's type.
func (ms *MaterialSystem) Instantiate(name string) (*renderer.Material, error) {
	if _, err := ms.Acquire(name); err != nil {
		return nil, err
	}
	ref := ms.RegisteredMaterialTable[name]
	return ms.backend.makeMaterial(ref.materialType, ref.material.Textures)
}

func (ms *MaterialSystem) Shutdown() {
	for n, mt := range ms.types {
		ms.backend.destroyMaterialType(mt)
		delete(ms.types, n)
	}
	for name := range ms.RegisteredMaterialTable {
		delete(ms.RegisteredMaterialTable, name)
	}
}
