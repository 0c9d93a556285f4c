package loaders

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

const MATERIAL_FILE_SUFFIX = ".material.toml"

const DEFAULT_MATERIAL_INSTANCES uint32 = 16

// MaterialDescription names the textures of a material, in binding order.
//
//	name = "brick"
//	textures = ["textures/brick.png"]
//	format = "rgba8_srgb"
type MaterialDescription struct {
	Name     string   `toml:"name"`
	Textures []string `toml:"textures"`
	Format   string   `toml:"format"`
	// How many materials of this type may exist at once.
	Instances uint32 `toml:"instances"`
}

func LoadMaterialDescription(path string) (*MaterialDescription, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	desc := &MaterialDescription{}
	if err := toml.NewDecoder(file).DisallowUnknownFields().Decode(desc); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return nil, fmt.Errorf("%s: unknown keys:\n%s", path, strict.String())
		}
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if desc.Name == "" {
		desc.Name = strings.TrimSuffix(filepath.Base(path), MATERIAL_FILE_SUFFIX)
	}
	if desc.Format == "" {
		desc.Format = "rgba8_srgb"
	}
	if desc.Instances == 0 {
		desc.Instances = DEFAULT_MATERIAL_INSTANCES
	}
	if err := validateMaterial(desc); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return desc, nil
}

func validateMaterial(material *MaterialDescription) error {
	if len(material.Textures) == 0 {
		return fmt.Errorf("material %q has no textures", material.Name)
	}
	for i, name := range material.Textures {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("material %q: texture %d has an empty path", material.Name, i)
		}
	}
	return nil
}

// TexturePaths resolves texture paths relative to root.
func (md *MaterialDescription) TexturePaths(root string) []string {
	paths := make([]string, len(md.Textures))
	for i, t := range md.Textures {
		if filepath.IsAbs(t) {
			paths[i] = t
		} else {
			paths[i] = filepath.Join(root, t)
		}
	}
	return paths
}
