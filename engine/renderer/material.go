package renderer

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/google/uuid"

	"github.com/spaghettifunk/anima-forward/engine/core"
	"github.com/spaghettifunk/anima-forward/engine/renderer/vulkan"
)

// MaterialType is the binding schema shared by every material of one kind.
// Its descriptor-set layout is what the forward renderer keys pipelines on.
type MaterialType struct {
	ID       uuid.UUID
	Name     string
	Bindings []vk.DescriptorSetLayoutBinding
	Pool     *vulkan.TypedDescriptorPool
}

// Material is one descriptor set of its type's layout, filled with textures.
type Material struct {
	Type          *MaterialType
	DescriptorSet vk.DescriptorSet
	Textures      []*Texture
}

// TextureBindings lays out count fragment-stage samplers at bindings 0..count-1.
func TextureBindings(count int) []vk.DescriptorSetLayoutBinding {
	bindings := make([]vk.DescriptorSetLayoutBinding, count)
	for i := range bindings {
		bindings[i] = vk.DescriptorSetLayoutBinding{
			Binding:         uint32(i),
			DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
		}
	}
	return bindings
}

// NewMaterialType creates the layout and a pool for up to capacity materials.
func NewMaterialType(context *vulkan.VulkanContext, name string, textureCount int, capacity uint32) (*MaterialType, error) {
	bindings := TextureBindings(textureCount)
	pool, err := vulkan.NewTypedDescriptorPool(context, bindings, capacity)
	if err != nil {
		return nil, fmt.Errorf("material type %q: %w", name, err)
	}
	mt := &MaterialType{
		ID:       uuid.New(),
		Name:     name,
		Bindings: bindings,
		Pool:     pool,
	}
	core.LogDebug("material type %s (%s) created: %d textures, %d instances", name, mt.ID, textureCount, capacity)
	return mt, nil
}

// Grow makes room for n more materials without changing the layout, so the
// pipeline registered for it stays valid.
func (mt *MaterialType) Grow(context *vulkan.VulkanContext, n uint32) error {
	if err := mt.Pool.Grow(context, n); err != nil {
		return fmt.Errorf("material type %q: %w", mt.Name, err)
	}
	core.LogDebug("material type %s grown by %d instances", mt.Name, n)
	return nil
}

func (mt *MaterialType) Layout() vk.DescriptorSetLayout {
	return mt.Pool.Layout
}

// MakeMaterial allocates a set from the type's pool and points binding i at textures[i].
func (mt *MaterialType) MakeMaterial(context *vulkan.VulkanContext, textures ...*Texture) (*Material, error) {
	if len(textures) != len(mt.Bindings) {
		return nil, fmt.Errorf("material type %q takes %d textures, got %d: %w",
			mt.Name, len(mt.Bindings), len(textures), core.ErrResourceCreationFailed)
	}
	resources := make([]vulkan.CombinedImageSampler, len(textures))
	for i, tex := range textures {
		if tex == nil {
			return nil, fmt.Errorf("material type %q: texture %d is nil: %w", mt.Name, i, core.ErrResourceCreationFailed)
		}
		resources[i] = vulkan.CombinedImageSampler{View: tex.View, Sampler: tex.Sampler}
	}
	set, err := mt.Pool.Alloc(context)
	if err != nil {
		return nil, fmt.Errorf("material type %q: %w", mt.Name, err)
	}
	if err := vulkan.UpdateDescriptorSet(context, set, mt.Bindings, resources); err != nil {
		return nil, err
	}
	return &Material{Type: mt, DescriptorSet: set, Textures: textures}, nil
}

func (mt *MaterialType) Destroy(context *vulkan.VulkanContext) {
	if mt.Pool != nil {
		mt.Pool.Destroy(context)
	}
}
