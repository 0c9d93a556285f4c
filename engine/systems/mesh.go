package systems

import (
	"fmt"

	"github.com/spaghettifunk/anima-forward/engine/assets"
	"github.com/spaghettifunk/anima-forward/engine/core"
	"github.com/spaghettifunk/anima-forward/engine/math"
	"github.com/spaghettifunk/anima-forward/engine/renderer"
)

type MeshSystemConfig struct {
	MaxMeshCount uint32
}

// MeshSystem uploads OBJ models and generated geometry once per name.
type MeshSystem struct {
	Config *MeshSystemConfig
	// Hashtable for mesh lookups.
	RegisteredMeshTable map[string]*renderer.Mesh

	backend      backend
	assetManager *assets.AssetManager
}

func NewMeshSystem(config *MeshSystemConfig, b backend, am *assets.AssetManager) (*MeshSystem, error) {
	if config.MaxMeshCount == 0 {
		err := fmt.Errorf("func NewMeshSystem - config.MaxMeshCount must be > 0")
		core.LogError(err.Error())
		return nil, err
	}
	return &MeshSystem{
		Config:              config,
		RegisteredMeshTable: make(map[string]*renderer.Mesh),
		backend:             b,
		assetManager:        am,
	}, nil
}

// LoadFromResource returns the mesh of an OBJ file under the asset root.
func (mls *MeshSystem) LoadFromResource(name string) (*renderer.Mesh, error) {
	if m, ok := mls.RegisteredMeshTable[name]; ok {
		return m, nil
	}
	vertices, indices, err := mls.assetManager.LoadOBJ(name)
	if err != nil {
		return nil, fmt.Errorf("mesh %s: %w", name, err)
	}
	return mls.Register(name, vertices, indices)
}

// Register uploads generated geometry under name. Nil indices make a
// non-indexed mesh. A name already registered returns the existing mesh.
func (mls *MeshSystem) Register(name string, vertices []math.Vertex, indices []uint32) (*renderer.Mesh, error) {
	if m, ok := mls.RegisteredMeshTable[name]; ok {
		return m, nil
	}
	if uint32(len(mls.RegisteredMeshTable)) >= mls.Config.MaxMeshCount {
		return nil, fmt.Errorf("mesh %s: all %d mesh slots in use: %w", name, mls.Config.MaxMeshCount, core.ErrResourceCreationFailed)
	}
	m, err := mls.backend.createMesh(vertices, indices)
	if err != nil {
		return nil, fmt.Errorf("mesh %s: %w", name, err)
	}
	mls.RegisteredMeshTable[name] = m
	core.LogDebug("mesh %s uploaded: %d vertices, %d indices", name, len(vertices), len(indices))
	return m, nil
}

func (mls *MeshSystem) Shutdown() {
	clear(mls.RegisteredMeshTable)
}
