package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"golang.org/x/exp/slices"

	"github.com/spaghettifunk/anima-forward/engine/core"
)

// TypedDescriptorPool hands out descriptor sets of exactly one layout. Its
// capacity is the sum of the blocks it was created and grown with, and
// allocation never goes past it.
type TypedDescriptorPool struct {
	Layout   vk.DescriptorSetLayout
	Bindings []vk.DescriptorSetLayoutBinding

	blocks []*descriptorBlock
}

// descriptorBlock is one VkDescriptorPool. A set is never split across blocks.
type descriptorBlock struct {
	pool      vk.DescriptorPool
	capacity  uint32
	allocated uint32
}

// descriptorPoolSizes counts descriptors per type across bindings and scales
// each count by the number of sets the pool must hold. Types come out sorted.
func descriptorPoolSizes(bindings []vk.DescriptorSetLayoutBinding, sets uint32) []vk.DescriptorPoolSize {
	histogram := make(map[vk.DescriptorType]uint32)
	for _, b := range bindings {
		n := b.DescriptorCount
		if n == 0 {
			n = 1
		}
		histogram[b.DescriptorType] += n
	}
	types := make([]vk.DescriptorType, 0, len(histogram))
	for t := range histogram {
		types = append(types, t)
	}
	slices.Sort(types)
	sizes := make([]vk.DescriptorPoolSize, 0, len(types))
	for _, t := range types {
		sizes = append(sizes, vk.DescriptorPoolSize{Type: t, DescriptorCount: histogram[t] * sets})
	}
	return sizes
}

func CreateDescriptorSetLayout(context *VulkanContext, bindings []vk.DescriptorSetLayoutBinding) (vk.DescriptorSetLayout, error) {
	layoutInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(bindings)),
		PBindings:    bindings,
	}
	var layout vk.DescriptorSetLayout
	if res := vk.CreateDescriptorSetLayout(context.Device.LogicalDevice, &layoutInfo, context.Allocator, &layout); res != vk.Success {
		return vk.NullDescriptorSetLayout, check(res, "vkCreateDescriptorSetLayout", core.ErrResourceCreationFailed)
	}
	return layout, nil
}

func NewTypedDescriptorPool(context *VulkanContext, bindings []vk.DescriptorSetLayoutBinding, capacity uint32) (*TypedDescriptorPool, error) {
	if capacity == 0 {
		return nil, fmt.Errorf("descriptor pool with zero capacity: %w", core.ErrResourceCreationFailed)
	}
	layout, err := CreateDescriptorSetLayout(context, bindings)
	if err != nil {
		return nil, err
	}
	tp := &TypedDescriptorPool{
		Layout:   layout,
		Bindings: append([]vk.DescriptorSetLayoutBinding(nil), bindings...),
	}
	if err := tp.Grow(context, capacity); err != nil {
		vk.DestroyDescriptorSetLayout(context.Device.LogicalDevice, layout, context.Allocator)
		return nil, err
	}
	return tp, nil
}

// Grow adds room for n more sets of the same layout.
func (tp *TypedDescriptorPool) Grow(context *VulkanContext, n uint32) error {
	if n == 0 {
		return nil
	}
	poolSizes := descriptorPoolSizes(tp.Bindings, n)
	poolInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       n,
		PoolSizeCount: uint32(len(poolSizes)),
		PPoolSizes:    poolSizes,
	}
	var pool vk.DescriptorPool
	if res := vk.CreateDescriptorPool(context.Device.LogicalDevice, &poolInfo, context.Allocator, &pool); res != vk.Success {
		return check(res, "vkCreateDescriptorPool", core.ErrResourceCreationFailed)
	}
	tp.addBlock(pool, n)
	return nil
}

func (tp *TypedDescriptorPool) addBlock(pool vk.DescriptorPool, capacity uint32) {
	tp.blocks = append(tp.blocks, &descriptorBlock{pool: pool, capacity: capacity})
}

func (tp *TypedDescriptorPool) Capacity() uint32 {
	var n uint32
	for _, b := range tp.blocks {
		n += b.capacity
	}
	return n
}

func (tp *TypedDescriptorPool) Remaining() uint32 {
	var n uint32
	for _, b := range tp.blocks {
		n += b.capacity - b.allocated
	}
	return n
}

// reserve claims n sets from the first block that can hold all of them.
func (tp *TypedDescriptorPool) reserve(n uint32) (*descriptorBlock, error) {
	for _, b := range tp.blocks {
		if n <= b.capacity-b.allocated {
			b.allocated += n
			return b, nil
		}
	}
	return nil, fmt.Errorf("requested %d sets, %d of %d left: %w", n, tp.Remaining(), tp.Capacity(), core.ErrDescriptorPoolExhausted)
}

func (tp *TypedDescriptorPool) Alloc(context *VulkanContext) (vk.DescriptorSet, error) {
	sets, err := tp.AllocN(context, 1)
	if err != nil {
		return nil, err
	}
	return sets[0], nil
}

func (tp *TypedDescriptorPool) AllocN(context *VulkanContext, n uint32) ([]vk.DescriptorSet, error) {
	if n == 0 {
		return nil, nil
	}
	block, err := tp.reserve(n)
	if err != nil {
		return nil, err
	}
	layouts := make([]vk.DescriptorSetLayout, n)
	for i := range layouts {
		layouts[i] = tp.Layout
	}
	allocInfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     block.pool,
		DescriptorSetCount: n,
		PSetLayouts:        layouts,
	}
	sets := make([]vk.DescriptorSet, n)
	if res := vk.AllocateDescriptorSets(context.Device.LogicalDevice, &allocInfo, &sets[0]); res != vk.Success {
		block.allocated -= n
		if res == vk.ErrorOutOfPoolMemory || res == vk.ErrorFragmentedPool {
			return nil, check(res, "vkAllocateDescriptorSets", core.ErrDescriptorPoolExhausted)
		}
		return nil, check(res, "vkAllocateDescriptorSets", core.ErrResourceCreationFailed)
	}
	return sets, nil
}

// Destroy frees every set allocated from the pool along with the layout.
func (tp *TypedDescriptorPool) Destroy(context *VulkanContext) {
	for _, b := range tp.blocks {
		vk.DestroyDescriptorPool(context.Device.LogicalDevice, b.pool, context.Allocator)
	}
	tp.blocks = nil
	if tp.Layout != vk.NullDescriptorSetLayout {
		vk.DestroyDescriptorSetLayout(context.Device.LogicalDevice, tp.Layout, context.Allocator)
		tp.Layout = vk.NullDescriptorSetLayout
	}
}

// CombinedImageSampler is what a sampled-texture binding points at.
type CombinedImageSampler struct {
	View    vk.ImageView
	Sampler vk.Sampler
}

// UpdateDescriptorSet writes one resource per binding, in binding order. Only
// combined image samplers are supported.
func UpdateDescriptorSet(context *VulkanContext, set vk.DescriptorSet, bindings []vk.DescriptorSetLayoutBinding, resources []CombinedImageSampler) error {
	if len(resources) != len(bindings) {
		return fmt.Errorf("descriptor set has %d bindings, got %d resources: %w", len(bindings), len(resources), core.ErrResourceCreationFailed)
	}
	writes := make([]vk.WriteDescriptorSet, 0, len(bindings))
	for i, b := range bindings {
		if b.DescriptorType != vk.DescriptorTypeCombinedImageSampler {
			return fmt.Errorf("binding %d: unsupported descriptor type %d: %w", b.Binding, b.DescriptorType, core.ErrResourceCreationFailed)
		}
		count := b.DescriptorCount
		if count == 0 {
			count = 1
		}
		infos := make([]vk.DescriptorImageInfo, count)
		for j := range infos {
			infos[j] = vk.DescriptorImageInfo{
				Sampler:     resources[i].Sampler,
				ImageView:   resources[i].View,
				ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal,
			}
		}
		writes = append(writes, vk.WriteDescriptorSet{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          set,
			DstBinding:      b.Binding,
			DstArrayElement: 0,
			DescriptorCount: count,
			DescriptorType:  b.DescriptorType,
			PImageInfo:      infos,
		})
	}
	vk.UpdateDescriptorSets(context.Device.LogicalDevice, uint32(len(writes)), writes, 0, nil)
	return nil
}
