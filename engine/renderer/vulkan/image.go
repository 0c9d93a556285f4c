package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/anima-forward/engine/core"
)

// ImageAttachment is an image, its memory and a view created and freed together.
type ImageAttachment struct {
	Image  vk.Image
	Memory vk.DeviceMemory
	View   vk.ImageView
	Width  uint32
	Height uint32
}

// MipLevels is floor(log2(max(w, h))) + 1.
func MipLevels(width, height uint32) uint32 {
	largest := width
	if height > largest {
		largest = height
	}
	levels := uint32(1)
	for largest > 1 {
		largest >>= 1
		levels++
	}
	return levels
}

// MipExtents lists the size of every level, halving each axis and never
// dropping below one.
func MipExtents(width, height uint32) []vk.Extent2D {
	levels := MipLevels(width, height)
	extents := make([]vk.Extent2D, levels)
	for i := range extents {
		extents[i] = vk.Extent2D{Width: width, Height: height}
		if width > 1 {
			width /= 2
		}
		if height > 1 {
			height /= 2
		}
	}
	return extents
}

func (vc *VulkanContext) CreateImage(info *vk.ImageCreateInfo, memFlags vk.MemoryPropertyFlags) (vk.Image, vk.DeviceMemory, error) {
	device := vc.Device.LogicalDevice
	var image vk.Image
	if res := vk.CreateImage(device, info, vc.Allocator, &image); res != vk.Success {
		return nil, nil, check(res, "vkCreateImage", core.ErrResourceCreationFailed)
	}

	var requirements vk.MemoryRequirements
	vk.GetImageMemoryRequirements(device, image, &requirements)
	requirements.Deref()

	memory, err := vc.allocate(requirements, memFlags)
	if err != nil {
		vk.DestroyImage(device, image, vc.Allocator)
		return nil, nil, err
	}
	if res := vk.BindImageMemory(device, image, memory, 0); res != vk.Success {
		vk.FreeMemory(device, memory, vc.Allocator)
		vk.DestroyImage(device, image, vc.Allocator)
		return nil, nil, check(res, "vkBindImageMemory", core.ErrResourceCreationFailed)
	}
	return image, memory, nil
}

func (vc *VulkanContext) CreateImageView(image vk.Image, format vk.Format, aspect vk.ImageAspectFlags, mipLevels uint32) (vk.ImageView, error) {
	viewInfo := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    image,
		ViewType: vk.ImageViewType2d,
		Format:   format,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     aspect,
			BaseMipLevel:   0,
			LevelCount:     mipLevels,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}
	var view vk.ImageView
	if res := vk.CreateImageView(vc.Device.LogicalDevice, &viewInfo, vc.Allocator, &view); res != vk.Success {
		return nil, check(res, "vkCreateImageView", core.ErrResourceCreationFailed)
	}
	return view, nil
}

// NewImageAttachment creates a single-mip, device local 2D attachment.
func NewImageAttachment(context *VulkanContext, width, height uint32, format vk.Format, usage vk.ImageUsageFlags, aspect vk.ImageAspectFlags, samples vk.SampleCountFlagBits) (*ImageAttachment, error) {
	info := vk.ImageCreateInfo{
		SType:         vk.StructureTypeImageCreateInfo,
		ImageType:     vk.ImageType2d,
		Format:        format,
		Extent:        vk.Extent3D{Width: width, Height: height, Depth: 1},
		MipLevels:     1,
		ArrayLayers:   1,
		Samples:       samples,
		Tiling:        vk.ImageTilingOptimal,
		Usage:         usage,
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}
	image, memory, err := context.CreateImage(&info, vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
	if err != nil {
		return nil, err
	}
	view, err := context.CreateImageView(image, format, aspect, 1)
	if err != nil {
		vk.DestroyImage(context.Device.LogicalDevice, image, context.Allocator)
		vk.FreeMemory(context.Device.LogicalDevice, memory, context.Allocator)
		return nil, err
	}
	return &ImageAttachment{Image: image, Memory: memory, View: view, Width: width, Height: height}, nil
}

func (a *ImageAttachment) Destroy(context *VulkanContext) {
	device := context.Device.LogicalDevice
	if a.View != nil {
		vk.DestroyImageView(device, a.View, context.Allocator)
		a.View = nil
	}
	if a.Image != nil {
		vk.DestroyImage(device, a.Image, context.Allocator)
		a.Image = nil
	}
	if a.Memory != nil {
		vk.FreeMemory(device, a.Memory, context.Allocator)
		a.Memory = nil
	}
}

// FormatBytesPerPixel covers the 8-bit colour formats textures are uploaded in.
func FormatBytesPerPixel(format vk.Format) (uint32, bool) {
	switch format {
	case vk.FormatR8Srgb, vk.FormatR8Unorm:
		return 1, true
	case vk.FormatR8g8Srgb, vk.FormatR8g8Unorm:
		return 2, true
	case vk.FormatR8g8b8Srgb, vk.FormatR8g8b8Unorm:
		return 3, true
	case vk.FormatR8g8b8a8Srgb, vk.FormatR8g8b8a8Unorm, vk.FormatB8g8r8a8Srgb, vk.FormatB8g8r8a8Unorm:
		return 4, true
	}
	return 0, false
}

// validateImageUpload checks the pixel buffer and mip count before any
// device object is created.
func validateImageUpload(pixelBytes int, width, height uint32, format vk.Format, mipLevels uint32) error {
	if width == 0 || height == 0 {
		return fmt.Errorf("image of %dx%d: %w", width, height, core.ErrResourceCreationFailed)
	}
	if levels := MipLevels(width, height); mipLevels > levels {
		return fmt.Errorf("%d mip levels requested, a %dx%d image has %d: %w", mipLevels, width, height, levels, core.ErrResourceCreationFailed)
	}
	bpp, ok := FormatBytesPerPixel(format)
	if !ok {
		return fmt.Errorf("upload of format %d: %w", format, core.ErrFormatNotSupported)
	}
	if want := uint64(width) * uint64(height) * uint64(bpp); uint64(pixelBytes) < want {
		return fmt.Errorf("%dx%d image needs %d bytes, got %d: %w", width, height, want, pixelBytes, core.ErrResourceCreationFailed)
	}
	return nil
}

// CreateDeviceLocalImage uploads tightly packed pixels into level 0 and fills
// the remaining levels with a linear blit chain. Every level ends in
// ShaderReadOnlyOptimal.
func (vc *VulkanContext) CreateDeviceLocalImage(pixels []byte, width, height uint32, format vk.Format, mipLevels uint32) (vk.Image, vk.DeviceMemory, error) {
	if mipLevels == 0 {
		mipLevels = 1
	}
	if err := validateImageUpload(len(pixels), width, height, format, mipLevels); err != nil {
		return nil, nil, err
	}
	if mipLevels > 1 {
		var props vk.FormatProperties
		vk.GetPhysicalDeviceFormatProperties(vc.Device.PhysicalDevice, format, &props)
		props.Deref()
		if props.OptimalTilingFeatures&vk.FormatFeatureFlags(vk.FormatFeatureSampledImageFilterLinearBit) == 0 {
			return nil, nil, fmt.Errorf("format %d does not support linear blitting: %w", format, core.ErrFormatNotSupported)
		}
	}

	staging, err := vc.createStagingBuffer(pixels)
	if err != nil {
		return nil, nil, err
	}
	defer staging.Destroy(vc)

	info := vk.ImageCreateInfo{
		SType:         vk.StructureTypeImageCreateInfo,
		ImageType:     vk.ImageType2d,
		Format:        format,
		Extent:        vk.Extent3D{Width: width, Height: height, Depth: 1},
		MipLevels:     mipLevels,
		ArrayLayers:   1,
		Samples:       vk.SampleCount1Bit,
		Tiling:        vk.ImageTilingOptimal,
		Usage:         vk.ImageUsageFlags(vk.ImageUsageTransferSrcBit | vk.ImageUsageTransferDstBit | vk.ImageUsageSampledBit),
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}
	image, memory, err := vc.CreateImage(&info, vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
	if err != nil {
		return nil, nil, err
	}

	cmd, err := vc.TempCommandBuffer()
	if err != nil {
		vk.DestroyImage(vc.Device.LogicalDevice, image, vc.Allocator)
		vk.FreeMemory(vc.Device.LogicalDevice, memory, vc.Allocator)
		return nil, nil, err
	}
	cb := cmd.Handle()

	imageBarrier(cb, image, 0, mipLevels,
		vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal,
		0, vk.AccessFlags(vk.AccessTransferWriteBit),
		vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit), vk.PipelineStageFlags(vk.PipelineStageTransferBit))

	region := vk.BufferImageCopy{
		ImageSubresource: colorLayers(0),
		ImageOffset:      vk.Offset3D{X: 0, Y: 0, Z: 0},
		ImageExtent:      vk.Extent3D{Width: width, Height: height, Depth: 1},
	}
	vk.CmdCopyBufferToImage(cb, staging.Buffer, image, vk.ImageLayoutTransferDstOptimal, 1, []vk.BufferImageCopy{region})

	recordMipChain(cb, image, MipExtents(width, height)[:mipLevels])

	if err := cmd.End(); err != nil {
		vk.DestroyImage(vc.Device.LogicalDevice, image, vc.Allocator)
		vk.FreeMemory(vc.Device.LogicalDevice, memory, vc.Allocator)
		return nil, nil, err
	}
	return image, memory, nil
}

// recordMipChain blits level i-1 into level i. A source level moves to
// ShaderReadOnly once it has been read; the last level goes there straight
// from TransferDst.
func recordMipChain(cb vk.CommandBuffer, image vk.Image, extents []vk.Extent2D) {
	levels := uint32(len(extents))
	for i := uint32(1); i < levels; i++ {
		src, dst := extents[i-1], extents[i]
		imageBarrier(cb, image, i-1, 1,
			vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutTransferSrcOptimal,
			vk.AccessFlags(vk.AccessTransferWriteBit), vk.AccessFlags(vk.AccessTransferReadBit),
			vk.PipelineStageFlags(vk.PipelineStageTransferBit), vk.PipelineStageFlags(vk.PipelineStageTransferBit))

		blit := vk.ImageBlit{
			SrcSubresource: colorLayers(i - 1),
			SrcOffsets:     [2]vk.Offset3D{{X: 0, Y: 0, Z: 0}, {X: int32(src.Width), Y: int32(src.Height), Z: 1}},
			DstSubresource: colorLayers(i),
			DstOffsets:     [2]vk.Offset3D{{X: 0, Y: 0, Z: 0}, {X: int32(dst.Width), Y: int32(dst.Height), Z: 1}},
		}
		vk.CmdBlitImage(cb, image, vk.ImageLayoutTransferSrcOptimal, image, vk.ImageLayoutTransferDstOptimal, 1, []vk.ImageBlit{blit}, vk.FilterLinear)

		imageBarrier(cb, image, i-1, 1,
			vk.ImageLayoutTransferSrcOptimal, vk.ImageLayoutShaderReadOnlyOptimal,
			vk.AccessFlags(vk.AccessTransferReadBit), vk.AccessFlags(vk.AccessShaderReadBit),
			vk.PipelineStageFlags(vk.PipelineStageTransferBit), vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit))
	}
	imageBarrier(cb, image, levels-1, 1,
		vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutShaderReadOnlyOptimal,
		vk.AccessFlags(vk.AccessTransferWriteBit), vk.AccessFlags(vk.AccessShaderReadBit),
		vk.PipelineStageFlags(vk.PipelineStageTransferBit), vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit))
}

func colorLayers(mip uint32) vk.ImageSubresourceLayers {
	return vk.ImageSubresourceLayers{
		AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
		MipLevel:       mip,
		BaseArrayLayer: 0,
		LayerCount:     1,
	}
}

func imageBarrier(cb vk.CommandBuffer, image vk.Image, baseMip, mipCount uint32,
	oldLayout, newLayout vk.ImageLayout,
	srcAccess, dstAccess vk.AccessFlags,
	srcStage, dstStage vk.PipelineStageFlags) {
	barrier := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		OldLayout:           oldLayout,
		NewLayout:           newLayout,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               image,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
			BaseMipLevel:   baseMip,
			LevelCount:     mipCount,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
		SrcAccessMask: srcAccess,
		DstAccessMask: dstAccess,
	}
	vk.CmdPipelineBarrier(cb, srcStage, dstStage, 0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{barrier})
}
