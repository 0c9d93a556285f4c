package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/anima-forward/engine/core"
)

type VulkanCommandBufferState int

const (
	COMMAND_BUFFER_STATE_READY VulkanCommandBufferState = iota
	COMMAND_BUFFER_STATE_RECORDING
	COMMAND_BUFFER_STATE_IN_RENDER_PASS
	COMMAND_BUFFER_STATE_RECORDING_ENDED
	COMMAND_BUFFER_STATE_SUBMITTED
	COMMAND_BUFFER_STATE_NOT_ALLOCATED
)

type VulkanCommandBuffer struct {
	Handle vk.CommandBuffer
	// Command buffer state.
	State VulkanCommandBufferState
}

func NewVulkanCommandBuffer(context *VulkanContext, pool vk.CommandPool, isPrimary bool) (*VulkanCommandBuffer, error) {
	level := vk.CommandBufferLevelPrimary
	if !isPrimary {
		level = vk.CommandBufferLevelSecondary
	}
	allocateInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        pool,
		CommandBufferCount: 1,
		Level:              level,
	}
	handles := make([]vk.CommandBuffer, 1)
	if res := vk.AllocateCommandBuffers(context.Device.LogicalDevice, &allocateInfo, handles); res != vk.Success {
		return nil, check(res, "vkAllocateCommandBuffers", core.ErrResourceCreationFailed)
	}
	return &VulkanCommandBuffer{
		Handle: handles[0],
		State:  COMMAND_BUFFER_STATE_READY,
	}, nil
}

func (v *VulkanCommandBuffer) Free(context *VulkanContext, pool vk.CommandPool) {
	if v.Handle == nil {
		return
	}
	vk.FreeCommandBuffers(context.Device.LogicalDevice, pool, 1, []vk.CommandBuffer{v.Handle})
	v.Handle = nil
	v.State = COMMAND_BUFFER_STATE_NOT_ALLOCATED
}

// Begin implicitly resets a buffer allocated from a reset-capable pool.
func (v *VulkanCommandBuffer) Begin(isSingleUse, isRenderpassContinue, isSimultaneousUse bool) error {
	beginInfo := &vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
	}
	if isSingleUse {
		beginInfo.Flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit)
	}
	if isRenderpassContinue {
		beginInfo.Flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageRenderPassContinueBit)
	}
	if isSimultaneousUse {
		beginInfo.Flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageSimultaneousUseBit)
	}
	if res := vk.BeginCommandBuffer(v.Handle, beginInfo); res != vk.Success {
		return check(res, "vkBeginCommandBuffer", core.ErrResourceCreationFailed)
	}
	v.State = COMMAND_BUFFER_STATE_RECORDING
	return nil
}

func (v *VulkanCommandBuffer) End() error {
	if res := vk.EndCommandBuffer(v.Handle); res != vk.Success {
		return check(res, "vkEndCommandBuffer", core.ErrResourceCreationFailed)
	}
	v.State = COMMAND_BUFFER_STATE_RECORDING_ENDED
	return nil
}

func (v *VulkanCommandBuffer) UpdateSubmitted() {
	v.State = COMMAND_BUFFER_STATE_SUBMITTED
}

/**
 * @brief A one-shot command buffer from the transient pool. End submits it to
 * the graphics queue, blocks until the queue is idle and frees the buffer.
 * Exactly one holder may perform that release: Take hands the obligation to a
 * new value and disarms the old one, and End on a disarmed value does nothing.
 */
type TempCommandBuffer struct {
	Buffer  *VulkanCommandBuffer
	release func() error
	armed   bool
}

// TempCommandBuffer allocates and begins a one-time-submit command buffer.
func (vc *VulkanContext) TempCommandBuffer() (*TempCommandBuffer, error) {
	pool := vc.Device.TransientCommandPool
	cb, err := NewVulkanCommandBuffer(vc, pool, true)
	if err != nil {
		return nil, err
	}
	if err := cb.Begin(true, false, false); err != nil {
		cb.Free(vc, pool)
		return nil, err
	}
	return &TempCommandBuffer{
		Buffer: cb,
		armed:  true,
		release: func() error {
			defer cb.Free(vc, pool)
			return cb.submitAndWait(vc.Device.GraphicsQueue)
		},
	}, nil
}

func (t *TempCommandBuffer) Handle() vk.CommandBuffer {
	return t.Buffer.Handle
}

// Take moves the release obligation into the returned value.
func (t *TempCommandBuffer) Take() *TempCommandBuffer {
	moved := &TempCommandBuffer{Buffer: t.Buffer, release: t.release, armed: t.armed}
	t.armed = false
	return moved
}

func (t *TempCommandBuffer) Armed() bool { return t.armed }

// Disarm drops the release obligation. The caller takes over submission.
func (t *TempCommandBuffer) Disarm() {
	t.armed = false
}

func (t *TempCommandBuffer) End() error {
	if !t.armed {
		return nil
	}
	t.armed = false
	if err := t.release(); err != nil {
		return fmt.Errorf("one-shot command buffer: %w", err)
	}
	return nil
}

func (v *VulkanCommandBuffer) submitAndWait(queue vk.Queue) error {
	if err := v.End(); err != nil {
		return err
	}
	submitInfo := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{v.Handle},
	}
	if res := vk.QueueSubmit(queue, 1, []vk.SubmitInfo{submitInfo}, vk.NullFence); res != vk.Success {
		return check(res, "vkQueueSubmit", core.ErrResourceCreationFailed)
	}
	v.UpdateSubmitted()
	if res := vk.QueueWaitIdle(queue); res != vk.Success {
		return check(res, "vkQueueWaitIdle", core.ErrResourceCreationFailed)
	}
	return nil
}
