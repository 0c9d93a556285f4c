package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/anima-forward/engine/core"
)

// MappedBuffer is a host-coherent buffer that stays mapped for its lifetime.
type MappedBuffer struct {
	Buffer  vk.Buffer
	Memory  vk.DeviceMemory
	Size    vk.DeviceSize
	mapping unsafe.Pointer
}

func NewMappedBuffer(context *VulkanContext, size vk.DeviceSize, usage vk.BufferUsageFlags) (*MappedBuffer, error) {
	buffer, memory, err := context.CreateBuffer(size, usage,
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit))
	if err != nil {
		return nil, err
	}
	var mapping unsafe.Pointer
	if res := vk.MapMemory(context.Device.LogicalDevice, memory, 0, size, 0, &mapping); res != vk.Success {
		context.destroyBuffer(buffer, memory)
		return nil, check(res, "vkMapMemory", core.ErrResourceCreationFailed)
	}
	return &MappedBuffer{Buffer: buffer, Memory: memory, Size: size, mapping: mapping}, nil
}

// Write copies data at offset. Coherent memory needs no flush.
func (mb *MappedBuffer) Write(offset vk.DeviceSize, data []byte) error {
	if offset+vk.DeviceSize(len(data)) > mb.Size {
		return fmt.Errorf("write of %d bytes at %d overflows %d-byte buffer", len(data), offset, mb.Size)
	}
	dst := unsafe.Slice((*byte)(unsafe.Add(mb.mapping, uintptr(offset))), len(data))
	copy(dst, data)
	return nil
}

// Store hands the buffer and memory to pool, which then outlives the mapping.
func (mb *MappedBuffer) Store(pool *AssetPool) {
	pool.StoreBufferWithMemory(mb.Buffer, mb.Memory)
}

func (mb *MappedBuffer) Destroy(context *VulkanContext) {
	if mb.Memory != nil {
		vk.UnmapMemory(context.Device.LogicalDevice, mb.Memory)
	}
	context.destroyBuffer(mb.Buffer, mb.Memory)
	mb.Buffer, mb.Memory, mb.mapping = nil, nil, nil
}
