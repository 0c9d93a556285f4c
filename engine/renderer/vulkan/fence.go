package vulkan

import (
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/anima-forward/engine/core"
)

type VulkanFence struct {
	Handle     vk.Fence
	IsSignaled bool
}

func NewFence(context *VulkanContext, createSignaled bool) (*VulkanFence, error) {
	fence := &VulkanFence{
		// A frame slot starts signaled so the first wait returns immediately.
		IsSignaled: createSignaled,
	}

	fenceCreateInfo := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}
	if fence.IsSignaled {
		fenceCreateInfo.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}

	var pFence vk.Fence
	if res := vk.CreateFence(context.Device.LogicalDevice, &fenceCreateInfo, context.Allocator, &pFence); res != vk.Success {
		return nil, check(res, "vkCreateFence", core.ErrResourceCreationFailed)
	}
	fence.Handle = pFence
	return fence, nil
}

func (vf *VulkanFence) FenceDestroy(context *VulkanContext) {
	if vf.Handle != vk.NullFence {
		vk.DestroyFence(context.Device.LogicalDevice, vf.Handle, context.Allocator)
		vf.Handle = vk.NullFence
	}
	vf.IsSignaled = false
}

// FenceWait blocks until the fence is signaled or timeoutNs has passed.
func (vf *VulkanFence) FenceWait(context *VulkanContext, timeoutNs uint64) error {
	if vf.IsSignaled {
		return nil
	}
	result := vk.WaitForFences(context.Device.LogicalDevice, 1, []vk.Fence{vf.Handle}, vk.True, timeoutNs)
	if err := fenceWaitError(result); err != nil {
		core.LogError("vk_fence_wait - %s", VulkanResultString(result, false))
		return err
	}
	vf.IsSignaled = true
	return nil
}

func fenceWaitError(result vk.Result) error {
	switch result {
	case vk.Success:
		return nil
	case vk.Timeout:
		return check(result, "vkWaitForFences", core.ErrFenceTimeout)
	default:
		return check(result, "vkWaitForFences", core.ErrResourceCreationFailed)
	}
}

// FenceMarkSubmitted records that a submission will signal the fence.
func (vf *VulkanFence) FenceMarkSubmitted() {
	vf.IsSignaled = false
}

func (vf *VulkanFence) FenceReset(context *VulkanContext) error {
	if !vf.IsSignaled {
		return nil
	}
	if res := vk.ResetFences(context.Device.LogicalDevice, 1, []vk.Fence{vf.Handle}); res != vk.Success {
		return check(res, "vkResetFences", core.ErrResourceCreationFailed)
	}
	vf.IsSignaled = false
	return nil
}
