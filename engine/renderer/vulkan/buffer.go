package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/anima-forward/engine/core"
)

// CreateBuffer creates a buffer and binds it to freshly allocated memory with
// the requested properties. The caller owns both handles.
func (vc *VulkanContext) CreateBuffer(size vk.DeviceSize, usage vk.BufferUsageFlags, memFlags vk.MemoryPropertyFlags) (vk.Buffer, vk.DeviceMemory, error) {
	device := vc.Device.LogicalDevice
	bufferInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        size,
		Usage:       usage,
		SharingMode: vk.SharingModeExclusive,
	}
	var buffer vk.Buffer
	if res := vk.CreateBuffer(device, &bufferInfo, vc.Allocator, &buffer); res != vk.Success {
		return nil, nil, check(res, "vkCreateBuffer", core.ErrResourceCreationFailed)
	}

	var requirements vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(device, buffer, &requirements)
	requirements.Deref()

	memory, err := vc.allocate(requirements, memFlags)
	if err != nil {
		vk.DestroyBuffer(device, buffer, vc.Allocator)
		return nil, nil, err
	}
	if res := vk.BindBufferMemory(device, buffer, memory, 0); res != vk.Success {
		vk.FreeMemory(device, memory, vc.Allocator)
		vk.DestroyBuffer(device, buffer, vc.Allocator)
		return nil, nil, check(res, "vkBindBufferMemory", core.ErrResourceCreationFailed)
	}
	return buffer, memory, nil
}

func (vc *VulkanContext) allocate(requirements vk.MemoryRequirements, memFlags vk.MemoryPropertyFlags) (vk.DeviceMemory, error) {
	typeIndex, err := vc.FindMemoryType(requirements.MemoryTypeBits, memFlags)
	if err != nil {
		return nil, err
	}
	allocInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  requirements.Size,
		MemoryTypeIndex: typeIndex,
	}
	var memory vk.DeviceMemory
	if res := vk.AllocateMemory(vc.Device.LogicalDevice, &allocInfo, vc.Allocator, &memory); res != vk.Success {
		return nil, check(res, "vkAllocateMemory", core.ErrResourceCreationFailed)
	}
	return memory, nil
}

// createStagingBuffer returns a mapped transfer source filled with data.
func (vc *VulkanContext) createStagingBuffer(data []byte) (*MappedBuffer, error) {
	staging, err := NewMappedBuffer(vc, vk.DeviceSize(len(data)), vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit))
	if err != nil {
		return nil, fmt.Errorf("staging buffer: %w", err)
	}
	if err := staging.Write(0, data); err != nil {
		staging.Destroy(vc)
		return nil, err
	}
	return staging, nil
}

func (vc *VulkanContext) destroyBuffer(buffer vk.Buffer, memory vk.DeviceMemory) {
	vk.DestroyBuffer(vc.Device.LogicalDevice, buffer, vc.Allocator)
	vk.FreeMemory(vc.Device.LogicalDevice, memory, vc.Allocator)
}

// CreateDeviceLocalBuffer uploads data through a staging buffer and blocks
// until the copy has completed. TransferDst is added to usage.
func (vc *VulkanContext) CreateDeviceLocalBuffer(usage vk.BufferUsageFlags, data []byte) (vk.Buffer, vk.DeviceMemory, error) {
	size := vk.DeviceSize(len(data))
	if size == 0 {
		return nil, nil, fmt.Errorf("empty buffer upload: %w", core.ErrResourceCreationFailed)
	}
	staging, err := vc.createStagingBuffer(data)
	if err != nil {
		return nil, nil, err
	}
	defer staging.Destroy(vc)

	buffer, memory, err := vc.CreateBuffer(
		size,
		usage|vk.BufferUsageFlags(vk.BufferUsageTransferDstBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
	)
	if err != nil {
		return nil, nil, err
	}

	cmd, err := vc.TempCommandBuffer()
	if err != nil {
		vc.destroyBuffer(buffer, memory)
		return nil, nil, err
	}
	region := vk.BufferCopy{SrcOffset: 0, DstOffset: 0, Size: size}
	vk.CmdCopyBuffer(cmd.Handle(), staging.Buffer, buffer, 1, []vk.BufferCopy{region})
	if err := cmd.End(); err != nil {
		vc.destroyBuffer(buffer, memory)
		return nil, nil, err
	}
	return buffer, memory, nil
}
