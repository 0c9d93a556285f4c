package vulkan

import (
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/anima-forward/engine/core"
)

type VulkanFramebuffer struct {
	Handle      vk.Framebuffer
	Attachments []vk.ImageView
	Renderpass  *VulkanRenderpass
}

func FramebufferCreate(context *VulkanContext, renderpass *VulkanRenderpass, width uint32, height uint32, attachments []vk.ImageView) (*VulkanFramebuffer, error) {
	outFramebuffer := &VulkanFramebuffer{
		Attachments: append([]vk.ImageView(nil), attachments...),
		Renderpass:  renderpass,
	}

	framebufferCreateInfo := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      renderpass.Handle,
		AttachmentCount: uint32(len(outFramebuffer.Attachments)),
		PAttachments:    outFramebuffer.Attachments,
		Width:           width,
		Height:          height,
		Layers:          1,
	}

	var pFramebuffer vk.Framebuffer
	if res := vk.CreateFramebuffer(context.Device.LogicalDevice, &framebufferCreateInfo, context.Allocator, &pFramebuffer); res != vk.Success {
		return nil, check(res, "vkCreateFramebuffer", core.ErrResourceCreationFailed)
	}
	outFramebuffer.Handle = pFramebuffer
	return outFramebuffer, nil
}

// ForwardFramebuffers creates one framebuffer per presentable view, sharing
// the multisampled colour and depth attachments.
func ForwardFramebuffers(context *VulkanContext, renderpass *VulkanRenderpass, extent vk.Extent2D, color, depth *ImageAttachment, resolveViews []vk.ImageView) ([]*VulkanFramebuffer, error) {
	framebuffers := make([]*VulkanFramebuffer, 0, len(resolveViews))
	for _, view := range resolveViews {
		attachments := make([]vk.ImageView, ATTACHMENT_COUNT)
		attachments[ATTACHMENT_COLOR] = color.View
		attachments[ATTACHMENT_DEPTH] = depth.View
		attachments[ATTACHMENT_RESOLVE] = view
		fb, err := FramebufferCreate(context, renderpass, extent.Width, extent.Height, attachments)
		if err != nil {
			for _, created := range framebuffers {
				created.Destroy(context)
			}
			return nil, err
		}
		framebuffers = append(framebuffers, fb)
	}
	return framebuffers, nil
}

func (vfb *VulkanFramebuffer) Destroy(context *VulkanContext) {
	if vfb.Handle != nil {
		vk.DestroyFramebuffer(context.Device.LogicalDevice, vfb.Handle, context.Allocator)
	}
	vfb.Attachments = nil
	vfb.Handle = nil
	vfb.Renderpass = nil
}
