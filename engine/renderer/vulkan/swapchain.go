package vulkan

import (
	"fmt"
	"strings"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/anima-forward/engine/core"
)

type VulkanSwapchain struct {
	Handle      vk.Swapchain
	ImageFormat vk.SurfaceFormat
	PresentMode vk.PresentMode
	Extent      vk.Extent2D
	Images      []vk.Image
	Views       []vk.ImageView
}

var presentModeNames = map[string]vk.PresentMode{
	"immediate":    vk.PresentModeImmediate,
	"mailbox":      vk.PresentModeMailbox,
	"fifo":         vk.PresentModeFifo,
	"fifo_relaxed": vk.PresentModeFifoRelaxed,
}

// DefaultPresentModes is the preference list used when none is configured.
var DefaultPresentModes = []vk.PresentMode{vk.PresentModeFifo}

func ParsePresentMode(name string) (vk.PresentMode, error) {
	mode, ok := presentModeNames[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, fmt.Errorf("unknown present mode %q: %w", name, core.ErrPresentModeUnavailable)
	}
	return mode, nil
}

func ParsePresentModes(names []string) ([]vk.PresentMode, error) {
	if len(names) == 0 {
		return DefaultPresentModes, nil
	}
	modes := make([]vk.PresentMode, 0, len(names))
	for _, name := range names {
		mode, err := ParsePresentMode(name)
		if err != nil {
			return nil, err
		}
		modes = append(modes, mode)
	}
	return modes, nil
}

func presentModeName(mode vk.PresentMode) string {
	for name, m := range presentModeNames {
		if m == mode {
			return name
		}
	}
	return fmt.Sprintf("PresentMode(%d)", mode)
}

// chooseSurfaceFormat prefers 8-bit sRGB BGRA in the sRGB colour space and
// falls back to whatever the surface lists first.
func chooseSurfaceFormat(formats []vk.SurfaceFormat) vk.SurfaceFormat {
	for _, f := range formats {
		if f.Format == vk.FormatB8g8r8a8Srgb && f.ColorSpace == vk.ColorSpaceSrgbNonlinear {
			return f
		}
	}
	core.LogWarn("Preferred surface format unavailable, using format %d.", formats[0].Format)
	return formats[0]
}

// choosePresentMode returns the first preference the surface supports.
func choosePresentMode(preferences, available []vk.PresentMode) (vk.PresentMode, error) {
	if len(preferences) == 0 {
		preferences = DefaultPresentModes
	}
	for _, want := range preferences {
		for _, have := range available {
			if want == have {
				return want, nil
			}
		}
	}
	names := make([]string, len(preferences))
	for i, p := range preferences {
		names[i] = presentModeName(p)
	}
	return 0, fmt.Errorf("none of [%s] supported: %w", strings.Join(names, ", "), core.ErrPresentModeUnavailable)
}

// chooseExtent uses the surface extent unless it is the undefined sentinel,
// in which case the framebuffer size is clamped into the allowed range.
func chooseExtent(caps vk.SurfaceCapabilities, fbWidth, fbHeight uint32) vk.Extent2D {
	if caps.CurrentExtent.Width != UNDEFINED_EXTENT {
		return caps.CurrentExtent
	}
	return vk.Extent2D{
		Width:  clampU32(fbWidth, caps.MinImageExtent.Width, caps.MaxImageExtent.Width),
		Height: clampU32(fbHeight, caps.MinImageExtent.Height, caps.MaxImageExtent.Height),
	}
}

// chooseImageCount asks for one more than the minimum. A maximum of zero
// means unbounded.
func chooseImageCount(caps vk.SurfaceCapabilities) uint32 {
	count := caps.MinImageCount + 1
	if caps.MaxImageCount > 0 && count > caps.MaxImageCount {
		count = caps.MaxImageCount
	}
	return count
}

func clampU32(v, lo, hi uint32) uint32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// SwapchainCreate builds a swapchain for the surface. A non-nil old swapchain
// is handed to the driver for resource reuse; the caller still destroys it.
func SwapchainCreate(context *VulkanContext, fbWidth, fbHeight uint32, preferences []vk.PresentMode, old *VulkanSwapchain) (*VulkanSwapchain, error) {
	support, err := DeviceQuerySwapchainSupport(context.Device.PhysicalDevice, context.Surface)
	if err != nil {
		return nil, err
	}
	if len(support.Formats) == 0 {
		return nil, fmt.Errorf("surface reports no formats: %w", core.ErrResourceCreationFailed)
	}
	presentMode, err := choosePresentMode(preferences, support.PresentModes)
	if err != nil {
		return nil, err
	}
	caps := support.Capabilities
	swapchain := &VulkanSwapchain{
		ImageFormat: chooseSurfaceFormat(support.Formats),
		PresentMode: presentMode,
		Extent:      chooseExtent(caps, fbWidth, fbHeight),
	}

	swapchainCreateInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          context.Surface,
		MinImageCount:    chooseImageCount(caps),
		ImageFormat:      swapchain.ImageFormat.Format,
		ImageColorSpace:  swapchain.ImageFormat.ColorSpace,
		ImageExtent:      swapchain.Extent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		PreTransform:     caps.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      presentMode,
		Clipped:          vk.True,
	}
	if old != nil {
		swapchainCreateInfo.OldSwapchain = old.Handle
	}

	if context.Device.GraphicsQueueIndex != context.Device.PresentQueueIndex {
		swapchainCreateInfo.ImageSharingMode = vk.SharingModeConcurrent
		swapchainCreateInfo.QueueFamilyIndexCount = 2
		swapchainCreateInfo.PQueueFamilyIndices = []uint32{
			context.Device.GraphicsQueueIndex,
			context.Device.PresentQueueIndex,
		}
	} else {
		swapchainCreateInfo.ImageSharingMode = vk.SharingModeExclusive
	}

	var swapchainHandle vk.Swapchain
	if res := vk.CreateSwapchain(context.Device.LogicalDevice, &swapchainCreateInfo, context.Allocator, &swapchainHandle); res != vk.Success {
		return nil, check(res, "vkCreateSwapchainKHR", core.ErrResourceCreationFailed)
	}
	swapchain.Handle = swapchainHandle

	var imageCount uint32
	if res := vk.GetSwapchainImages(context.Device.LogicalDevice, swapchain.Handle, &imageCount, nil); res != vk.Success {
		swapchain.Destroy(context)
		return nil, check(res, "vkGetSwapchainImagesKHR", core.ErrResourceCreationFailed)
	}
	swapchain.Images = make([]vk.Image, imageCount)
	if res := vk.GetSwapchainImages(context.Device.LogicalDevice, swapchain.Handle, &imageCount, swapchain.Images); res != vk.Success {
		swapchain.Destroy(context)
		return nil, check(res, "vkGetSwapchainImagesKHR", core.ErrResourceCreationFailed)
	}

	swapchain.Views = make([]vk.ImageView, 0, imageCount)
	for _, image := range swapchain.Images {
		view, err := context.CreateImageView(image, swapchain.ImageFormat.Format, vk.ImageAspectFlags(vk.ImageAspectColorBit), 1)
		if err != nil {
			swapchain.Destroy(context)
			return nil, err
		}
		swapchain.Views = append(swapchain.Views, view)
	}

	core.LogInfo("Swapchain created: %dx%d, %d images, present mode %s.",
		swapchain.Extent.Width, swapchain.Extent.Height, imageCount, presentModeName(presentMode))
	return swapchain, nil
}

// Destroy releases the views and the swapchain. The images belong to the
// swapchain and go with it.
func (vs *VulkanSwapchain) Destroy(context *VulkanContext) {
	for _, view := range vs.Views {
		vk.DestroyImageView(context.Device.LogicalDevice, view, context.Allocator)
	}
	vs.Views = nil
	vs.Images = nil
	if vs.Handle != nil {
		vk.DestroySwapchain(context.Device.LogicalDevice, vs.Handle, context.Allocator)
		vs.Handle = nil
	}
}
