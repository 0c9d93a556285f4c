package vulkan

import (
	"fmt"
	"sort"

	vk "github.com/goki/vulkan"
	"golang.org/x/exp/slices"

	"github.com/spaghettifunk/anima-forward/engine/core"
)

type VulkanDevice struct {
	PhysicalDevice     vk.PhysicalDevice
	LogicalDevice      vk.Device
	GraphicsQueueIndex uint32
	PresentQueueIndex  uint32

	GraphicsQueue vk.Queue
	PresentQueue  vk.Queue

	// Per-frame command buffers are reset individually.
	GraphicsCommandPool vk.CommandPool
	// Short-lived upload command buffers.
	TransientCommandPool vk.CommandPool

	Properties vk.PhysicalDeviceProperties
	Features   vk.PhysicalDeviceFeatures
	Memory     vk.PhysicalDeviceMemoryProperties

	// Highest sample count usable for both colour and depth framebuffer attachments.
	MaxSampleCount vk.SampleCountFlagBits
	// Zero when sampler anisotropy is unsupported.
	MaxAnisotropy float32
	// Graphics and present families, deduplicated and sorted.
	UniqueQueueFamilies []uint32
}

type VulkanSwapchainSupportInfo struct {
	Capabilities vk.SurfaceCapabilities
	Formats      []vk.SurfaceFormat
	PresentModes []vk.PresentMode
}

type VulkanPhysicalDeviceRequirements struct {
	DeviceExtensionNames []string
	SamplerAnisotropy    bool
}

type VulkanPhysicalDeviceQueueFamilyInfo struct {
	GraphicsFamilyIndex uint32
	PresentFamilyIndex  uint32
}

// physicalDeviceCandidate is a device that passed the requirement checks.
type physicalDeviceCandidate struct {
	device     vk.PhysicalDevice
	properties vk.PhysicalDeviceProperties
	features   vk.PhysicalDeviceFeatures
	memory     vk.PhysicalDeviceMemoryProperties
	queues     VulkanPhysicalDeviceQueueFamilyInfo
	rank       deviceRank
}

type deviceRank struct {
	deviceType vk.PhysicalDeviceType
	heapSize   vk.DeviceSize
}

func deviceTypePriority(t vk.PhysicalDeviceType) int {
	switch t {
	case vk.PhysicalDeviceTypeDiscreteGpu:
		return 0
	case vk.PhysicalDeviceTypeOther:
		return 1
	case vk.PhysicalDeviceTypeIntegratedGpu:
		return 2
	case vk.PhysicalDeviceTypeVirtualGpu:
		return 3
	default:
		return 4
	}
}

// betterDevice orders by device type first, then by the size of heap 0.
func betterDevice(a, b deviceRank) bool {
	pa, pb := deviceTypePriority(a.deviceType), deviceTypePriority(b.deviceType)
	if pa != pb {
		return pa < pb
	}
	return a.heapSize > b.heapSize
}

// maxUsableSampleCount keeps only the highest bit of counts.
func maxUsableSampleCount(counts vk.SampleCountFlags) vk.SampleCountFlagBits {
	for bit := vk.SampleCount64Bit; bit > vk.SampleCount1Bit; bit >>= 1 {
		if counts&vk.SampleCountFlags(bit) != 0 {
			return bit
		}
	}
	return vk.SampleCount1Bit
}

func uniqueQueueFamilies(families ...uint32) []uint32 {
	out := slices.Clone(families)
	slices.Sort(out)
	return slices.Compact(out)
}

func DeviceCreate(context *VulkanContext) (*VulkanDevice, error) {
	candidate, err := SelectPhysicalDevice(context)
	if err != nil {
		return nil, err
	}

	core.LogInfo("Creating logical device...")
	device := &VulkanDevice{
		PhysicalDevice:     candidate.device,
		GraphicsQueueIndex: candidate.queues.GraphicsFamilyIndex,
		PresentQueueIndex:  candidate.queues.PresentFamilyIndex,
		Properties:         candidate.properties,
		Features:           candidate.features,
		Memory:             candidate.memory,
	}
	device.UniqueQueueFamilies = uniqueQueueFamilies(device.GraphicsQueueIndex, device.PresentQueueIndex)

	limits := candidate.properties.Limits
	device.MaxSampleCount = maxUsableSampleCount(limits.FramebufferColorSampleCounts & limits.FramebufferDepthSampleCounts)
	if candidate.features.SamplerAnisotropy == vk.True {
		device.MaxAnisotropy = limits.MaxSamplerAnisotropy
	}
	core.LogDebug("Max MSAA samples: %d, max anisotropy: %.1f", device.MaxSampleCount, device.MaxAnisotropy)

	// NOTE: Do not create additional queues for shared indices.
	queueCreateInfos := make([]vk.DeviceQueueCreateInfo, len(device.UniqueQueueFamilies))
	for i, family := range device.UniqueQueueFamilies {
		queueCreateInfos[i] = vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: family,
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		}
	}

	deviceFeatures := vk.PhysicalDeviceFeatures{
		SamplerAnisotropy: candidate.features.SamplerAnisotropy,
	}

	extensionNames := []string{vk.KhrSwapchainExtensionName}
	available, err := deviceExtensionNames(candidate.device)
	if err != nil {
		return nil, err
	}
	if slices.Contains(available, PORTABILITY_SUBSET) {
		core.LogInfo("Adding required extension '%s'.", PORTABILITY_SUBSET)
		extensionNames = append(extensionNames, PORTABILITY_SUBSET)
	}

	deviceCreateInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueCreateInfos)),
		PQueueCreateInfos:       queueCreateInfos,
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{deviceFeatures},
		EnabledExtensionCount:   uint32(len(extensionNames)),
		PpEnabledExtensionNames: VulkanSafeStrings(extensionNames),
	}

	var logical vk.Device
	if res := vk.CreateDevice(device.PhysicalDevice, &deviceCreateInfo, context.Allocator, &logical); res != vk.Success {
		return nil, check(res, "vkCreateDevice", core.ErrResourceCreationFailed)
	}
	device.LogicalDevice = logical
	core.LogInfo("Logical device created.")

	var graphicsQueue, presentQueue vk.Queue
	vk.GetDeviceQueue(device.LogicalDevice, device.GraphicsQueueIndex, 0, &graphicsQueue)
	vk.GetDeviceQueue(device.LogicalDevice, device.PresentQueueIndex, 0, &presentQueue)
	device.GraphicsQueue = graphicsQueue
	device.PresentQueue = presentQueue
	core.LogInfo("Queues obtained.")

	pool, err := createCommandPool(context, device, vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit))
	if err != nil {
		DeviceDestroy(context, device)
		return nil, err
	}
	device.GraphicsCommandPool = pool

	transient, err := createCommandPool(context, device, vk.CommandPoolCreateFlags(vk.CommandPoolCreateTransientBit))
	if err != nil {
		DeviceDestroy(context, device)
		return nil, err
	}
	device.TransientCommandPool = transient
	core.LogInfo("Graphics command pools created.")

	return device, nil
}

func createCommandPool(context *VulkanContext, device *VulkanDevice, flags vk.CommandPoolCreateFlags) (vk.CommandPool, error) {
	poolCreateInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: device.GraphicsQueueIndex,
		Flags:            flags,
	}
	var pool vk.CommandPool
	if res := vk.CreateCommandPool(device.LogicalDevice, &poolCreateInfo, context.Allocator, &pool); res != vk.Success {
		return nil, check(res, "vkCreateCommandPool", core.ErrResourceCreationFailed)
	}
	return pool, nil
}

func DeviceDestroy(context *VulkanContext, device *VulkanDevice) {
	if device.LogicalDevice == nil {
		return
	}
	core.LogInfo("Destroying command pools...")
	if device.TransientCommandPool != nil {
		vk.DestroyCommandPool(device.LogicalDevice, device.TransientCommandPool, context.Allocator)
		device.TransientCommandPool = nil
	}
	if device.GraphicsCommandPool != nil {
		vk.DestroyCommandPool(device.LogicalDevice, device.GraphicsCommandPool, context.Allocator)
		device.GraphicsCommandPool = nil
	}

	core.LogInfo("Destroying logical device...")
	device.GraphicsQueue = nil
	device.PresentQueue = nil
	vk.DestroyDevice(device.LogicalDevice, context.Allocator)
	device.LogicalDevice = nil
}

func DeviceQuerySwapchainSupport(physicalDevice vk.PhysicalDevice, surface vk.Surface) (VulkanSwapchainSupportInfo, error) {
	var info VulkanSwapchainSupportInfo
	if res := vk.GetPhysicalDeviceSurfaceCapabilities(physicalDevice, surface, &info.Capabilities); res != vk.Success {
		return info, check(res, "vkGetPhysicalDeviceSurfaceCapabilitiesKHR", core.ErrResourceCreationFailed)
	}
	info.Capabilities.Deref()
	info.Capabilities.CurrentExtent.Deref()
	info.Capabilities.MinImageExtent.Deref()
	info.Capabilities.MaxImageExtent.Deref()

	var formatCount uint32
	if res := vk.GetPhysicalDeviceSurfaceFormats(physicalDevice, surface, &formatCount, nil); res != vk.Success {
		return info, check(res, "vkGetPhysicalDeviceSurfaceFormatsKHR", core.ErrResourceCreationFailed)
	}
	if formatCount != 0 {
		info.Formats = make([]vk.SurfaceFormat, formatCount)
		if res := vk.GetPhysicalDeviceSurfaceFormats(physicalDevice, surface, &formatCount, info.Formats); res != vk.Success {
			return info, check(res, "vkGetPhysicalDeviceSurfaceFormatsKHR", core.ErrResourceCreationFailed)
		}
		for i := range info.Formats {
			info.Formats[i].Deref()
		}
	}

	var modeCount uint32
	if res := vk.GetPhysicalDeviceSurfacePresentModes(physicalDevice, surface, &modeCount, nil); res != vk.Success {
		return info, check(res, "vkGetPhysicalDeviceSurfacePresentModesKHR", core.ErrResourceCreationFailed)
	}
	if modeCount != 0 {
		info.PresentModes = make([]vk.PresentMode, modeCount)
		if res := vk.GetPhysicalDeviceSurfacePresentModes(physicalDevice, surface, &modeCount, info.PresentModes); res != vk.Success {
			return info, check(res, "vkGetPhysicalDeviceSurfacePresentModesKHR", core.ErrResourceCreationFailed)
		}
	}
	return info, nil
}

func deviceExtensionNames(device vk.PhysicalDevice) ([]string, error) {
	var count uint32
	if res := vk.EnumerateDeviceExtensionProperties(device, "", &count, nil); res != vk.Success {
		return nil, check(res, "vkEnumerateDeviceExtensionProperties", core.ErrMissingExtension)
	}
	props := make([]vk.ExtensionProperties, count)
	if count != 0 {
		if res := vk.EnumerateDeviceExtensionProperties(device, "", &count, props); res != vk.Success {
			return nil, check(res, "vkEnumerateDeviceExtensionProperties", core.ErrMissingExtension)
		}
	}
	names := make([]string, 0, count)
	for i := range props {
		props[i].Deref()
		names = append(names, cString(props[i].ExtensionName[:]))
	}
	return names, nil
}

func deviceTypeName(t vk.PhysicalDeviceType) string {
	switch t {
	case vk.PhysicalDeviceTypeIntegratedGpu:
		return "Integrated"
	case vk.PhysicalDeviceTypeDiscreteGpu:
		return "Discrete"
	case vk.PhysicalDeviceTypeVirtualGpu:
		return "Virtual"
	case vk.PhysicalDeviceTypeCpu:
		return "CPU"
	default:
		return "Unknown"
	}
}

func SelectPhysicalDevice(context *VulkanContext) (*physicalDeviceCandidate, error) {
	var physicalDeviceCount uint32
	if res := vk.EnumeratePhysicalDevices(context.Instance, &physicalDeviceCount, nil); res != vk.Success {
		return nil, check(res, "vkEnumeratePhysicalDevices", core.ErrNoSuitableDevice)
	}
	if physicalDeviceCount == 0 {
		return nil, fmt.Errorf("no devices which support Vulkan were found: %w", core.ErrNoSuitableDevice)
	}
	physicalDevices := make([]vk.PhysicalDevice, physicalDeviceCount)
	if res := vk.EnumeratePhysicalDevices(context.Instance, &physicalDeviceCount, physicalDevices); res != vk.Success {
		return nil, check(res, "vkEnumeratePhysicalDevices", core.ErrNoSuitableDevice)
	}

	requirements := VulkanPhysicalDeviceRequirements{
		DeviceExtensionNames: []string{vk.KhrSwapchainExtensionName},
		SamplerAnisotropy:    true,
	}

	var candidates []*physicalDeviceCandidate
	for _, pd := range physicalDevices {
		c := &physicalDeviceCandidate{device: pd}
		vk.GetPhysicalDeviceProperties(pd, &c.properties)
		c.properties.Deref()
		c.properties.Limits.Deref()
		vk.GetPhysicalDeviceFeatures(pd, &c.features)
		c.features.Deref()
		vk.GetPhysicalDeviceMemoryProperties(pd, &c.memory)
		c.memory.Deref()

		name := cString(c.properties.DeviceName[:])
		queues, ok := PhysicalDeviceMeetsRequirements(pd, context.Surface, &c.features, &requirements)
		if !ok {
			core.LogInfo("Device '%s' does not meet the requirements, skipping.", name)
			continue
		}
		c.queues = queues
		c.rank.deviceType = c.properties.DeviceType
		if c.memory.MemoryHeapCount > 0 {
			c.memory.MemoryHeaps[0].Deref()
			c.rank.heapSize = c.memory.MemoryHeaps[0].Size
		}
		candidates = append(candidates, c)
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("no physical devices meet the requirements: %w", core.ErrNoSuitableDevice)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return betterDevice(candidates[i].rank, candidates[j].rank)
	})
	best := candidates[0]
	logSelectedDevice(best)
	return best, nil
}

func logSelectedDevice(c *physicalDeviceCandidate) {
	core.LogInfo("Selected device: '%s'.", cString(c.properties.DeviceName[:]))
	core.LogInfo("GPU type is %s.", deviceTypeName(c.properties.DeviceType))
	core.LogInfo(
		"GPU Driver version: %d.%d.%d",
		vk.Version.Major(vk.Version(c.properties.DriverVersion)),
		vk.Version.Minor(vk.Version(c.properties.DriverVersion)),
		vk.Version.Patch(vk.Version(c.properties.DriverVersion)),
	)
	core.LogInfo(
		"Vulkan API version: %d.%d.%d",
		vk.Version.Major(vk.Version(c.properties.ApiVersion)),
		vk.Version.Minor(vk.Version(c.properties.ApiVersion)),
		vk.Version.Patch(vk.Version(c.properties.ApiVersion)),
	)
	for j := uint32(0); j < c.memory.MemoryHeapCount; j++ {
		heap := c.memory.MemoryHeaps[j]
		heap.Deref()
		memorySizeGib := float64(heap.Size) / 1024.0 / 1024.0 / 1024.0
		if vk.MemoryHeapFlagBits(heap.Flags)&vk.MemoryHeapDeviceLocalBit != 0 {
			core.LogInfo("Local GPU memory: %.2f GiB", memorySizeGib)
		} else {
			core.LogInfo("Shared System memory: %.2f GiB", memorySizeGib)
		}
	}
}

func PhysicalDeviceMeetsRequirements(device vk.PhysicalDevice, surface vk.Surface, features *vk.PhysicalDeviceFeatures, requirements *VulkanPhysicalDeviceRequirements) (VulkanPhysicalDeviceQueueFamilyInfo, bool) {
	var info VulkanPhysicalDeviceQueueFamilyInfo

	var queueFamilyCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &queueFamilyCount, nil)
	queueFamilies := make([]vk.QueueFamilyProperties, queueFamilyCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &queueFamilyCount, queueFamilies)

	graphicsFound, presentFound := false, false
	for i := uint32(0); i < queueFamilyCount; i++ {
		queueFamilies[i].Deref()
		isGraphics := queueFamilies[i].QueueFlags&vk.QueueFlags(vk.QueueGraphicsBit) != 0
		if isGraphics && !graphicsFound {
			info.GraphicsFamilyIndex = i
			graphicsFound = true
		}

		var supportsPresent vk.Bool32
		if res := vk.GetPhysicalDeviceSurfaceSupport(device, i, surface, &supportsPresent); res != vk.Success {
			return info, false
		}
		// Prefer presenting from the graphics family so the swapchain stays exclusive.
		if supportsPresent.B() && (!presentFound || (isGraphics && info.GraphicsFamilyIndex == i)) {
			info.PresentFamilyIndex = i
			presentFound = true
		}
	}
	if !graphicsFound || !presentFound {
		return info, false
	}
	core.LogDebug("Graphics Family Index: %d", info.GraphicsFamilyIndex)
	core.LogDebug("Present Family Index:  %d", info.PresentFamilyIndex)

	support, err := DeviceQuerySwapchainSupport(device, surface)
	if err != nil || len(support.Formats) == 0 || len(support.PresentModes) == 0 {
		core.LogInfo("Required swapchain support not present, skipping device.")
		return info, false
	}

	available, err := deviceExtensionNames(device)
	if err != nil {
		return info, false
	}
	for _, required := range requirements.DeviceExtensionNames {
		if !slices.Contains(available, cString([]byte(required))) {
			core.LogInfo("Required extension not found: '%s', skipping device.", required)
			return info, false
		}
	}

	if requirements.SamplerAnisotropy && features.SamplerAnisotropy != vk.True {
		core.LogInfo("Device does not support samplerAnisotropy, skipping.")
		return info, false
	}
	return info, true
}
