package vulkan

import (
	"fmt"
	"runtime"
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/anima-forward/engine/core"
)

// SurfaceProvider is the window side of context creation.
type SurfaceProvider interface {
	RequiredInstanceExtensions() []string
	InstanceProcAddress() unsafe.Pointer
	CreateSurface(instance vk.Instance) (vk.Surface, error)
}

type ContextConfig struct {
	ApplicationName string
	// Enables VK_LAYER_KHRONOS_validation and routes its reports to the logger.
	Validation bool
}

// VulkanContext owns the instance, the surface and the device. Everything
// else in the renderer borrows from it, so it is destroyed last.
type VulkanContext struct {
	Instance  vk.Instance
	Allocator *vk.AllocationCallbacks
	Surface   vk.Surface

	debugCallback vk.DebugReportCallback

	Device *VulkanDevice
}

func NewContext(config ContextConfig, provider SurfaceProvider) (*VulkanContext, error) {
	procAddr := provider.InstanceProcAddress()
	if procAddr == nil {
		return nil, fmt.Errorf("GetInstanceProcAddress is nil: %w", core.ErrMissingExtension)
	}
	vk.SetGetInstanceProcAddr(procAddr)
	if err := vk.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize vk: %w", err)
	}

	vc := &VulkanContext{}
	if err := vc.createInstance(config, provider.RequiredInstanceExtensions()); err != nil {
		return nil, err
	}

	surface, err := provider.CreateSurface(vc.Instance)
	if err != nil {
		vc.Destroy()
		return nil, err
	}
	vc.Surface = surface
	core.LogDebug("Vulkan surface created.")

	device, err := DeviceCreate(vc)
	if err != nil {
		vc.Destroy()
		return nil, err
	}
	vc.Device = device

	core.LogInfo("Vulkan context initialized successfully.")
	return vc, nil
}

func (vc *VulkanContext) createInstance(config ContextConfig, windowExtensions []string) error {
	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 0, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(config.ApplicationName),
		PEngineName:        VulkanSafeString("Anima Forward"),
	}
	createInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}

	requiredExtensions := append([]string{}, windowExtensions...)
	if runtime.GOOS == "darwin" {
		requiredExtensions = append(requiredExtensions,
			"VK_KHR_portability_enumeration",
			"VK_KHR_get_physical_device_properties2",
		)
		// VK_INSTANCE_CREATE_ENUMERATE_PORTABILITY_BIT_KHR
		createInfo.Flags |= 1
	}
	if config.Validation {
		requiredExtensions = append(requiredExtensions, vk.ExtDebugReportExtensionName)
	}
	if err := checkInstanceExtensions(requiredExtensions); err != nil {
		return err
	}
	createInfo.EnabledExtensionCount = uint32(len(requiredExtensions))
	createInfo.PpEnabledExtensionNames = VulkanSafeStrings(requiredExtensions)

	var layers []string
	if config.Validation {
		layers = []string{VALIDATION_LAYER_NAME}
		if err := checkInstanceLayers(layers); err != nil {
			return err
		}
		core.LogInfo("All required validation layers are present.")
	}
	createInfo.EnabledLayerCount = uint32(len(layers))
	createInfo.PpEnabledLayerNames = VulkanSafeStrings(layers)

	var instance vk.Instance
	if res := vk.CreateInstance(&createInfo, vc.Allocator, &instance); res != vk.Success {
		return check(res, "vkCreateInstance", core.ErrResourceCreationFailed)
	}
	vc.Instance = instance
	if err := vk.InitInstance(vc.Instance); err != nil {
		return err
	}
	core.LogInfo("Vulkan Instance created.")

	if config.Validation {
		debugCreateInfo := vk.DebugReportCallbackCreateInfo{
			SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
			Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
			PfnCallback: dbgCallbackFunc,
		}
		var dbg vk.DebugReportCallback
		if err := vk.Error(vk.CreateDebugReportCallback(vc.Instance, &debugCreateInfo, nil, &dbg)); err != nil {
			core.LogWarn("vk.CreateDebugReportCallback failed with %s, continuing without it", err)
		} else {
			vc.debugCallback = dbg
			core.LogDebug("Vulkan debugger created.")
		}
	}
	return nil
}

func checkInstanceLayers(required []string) error {
	var count uint32
	if res := vk.EnumerateInstanceLayerProperties(&count, nil); res != vk.Success {
		return check(res, "vkEnumerateInstanceLayerProperties", core.ErrMissingLayer)
	}
	available := make([]vk.LayerProperties, count)
	if res := vk.EnumerateInstanceLayerProperties(&count, available); res != vk.Success {
		return check(res, "vkEnumerateInstanceLayerProperties", core.ErrMissingLayer)
	}
	names := make([]string, 0, count)
	for i := range available {
		available[i].Deref()
		names = append(names, cString(available[i].LayerName[:]))
	}
	if missing := missingNames(required, names); len(missing) > 0 {
		return fmt.Errorf("layer %q: %w", missing[0], core.ErrMissingLayer)
	}
	return nil
}

func checkInstanceExtensions(required []string) error {
	var count uint32
	if res := vk.EnumerateInstanceExtensionProperties("", &count, nil); res != vk.Success {
		return check(res, "vkEnumerateInstanceExtensionProperties", core.ErrMissingExtension)
	}
	available := make([]vk.ExtensionProperties, count)
	if res := vk.EnumerateInstanceExtensionProperties("", &count, available); res != vk.Success {
		return check(res, "vkEnumerateInstanceExtensionProperties", core.ErrMissingExtension)
	}
	names := make([]string, 0, count)
	for i := range available {
		available[i].Deref()
		names = append(names, cString(available[i].ExtensionName[:]))
	}
	if missing := missingNames(required, names); len(missing) > 0 {
		return fmt.Errorf("instance extension %q: %w", missing[0], core.ErrMissingExtension)
	}
	return nil
}

// missingNames returns the entries of required absent from available.
func missingNames(required, available []string) []string {
	have := make(map[string]struct{}, len(available))
	for _, n := range available {
		have[n] = struct{}{}
	}
	var missing []string
	for _, n := range required {
		if _, ok := have[cString([]byte(n))]; !ok {
			missing = append(missing, n)
		}
	}
	return missing
}

// Destroy tears down in reverse creation order. Every dependent object must
// already be gone.
func (vc *VulkanContext) Destroy() {
	if vc.Device != nil {
		core.LogDebug("Destroying Vulkan device...")
		DeviceDestroy(vc, vc.Device)
		vc.Device = nil
	}
	if vc.Surface != vk.NullSurface {
		core.LogDebug("Destroying Vulkan surface...")
		vk.DestroySurface(vc.Instance, vc.Surface, vc.Allocator)
		vc.Surface = vk.NullSurface
	}
	if vc.debugCallback != vk.NullDebugReportCallback {
		vk.DestroyDebugReportCallback(vc.Instance, vc.debugCallback, vc.Allocator)
		vc.debugCallback = vk.NullDebugReportCallback
	}
	if vc.Instance != nil {
		core.LogDebug("Destroying Vulkan instance...")
		vk.DestroyInstance(vc.Instance, vc.Allocator)
		vc.Instance = nil
	}
}

// FindMemoryType scans the device memory types for one allowed by typeBits
// that carries every flag in properties.
func (vc *VulkanContext) FindMemoryType(typeBits uint32, properties vk.MemoryPropertyFlags) (uint32, error) {
	memory := vc.Device.Memory
	for i := uint32(0); i < memory.MemoryTypeCount; i++ {
		memory.MemoryTypes[i].Deref()
		if typeBits&(1<<i) != 0 && memory.MemoryTypes[i].PropertyFlags&properties == properties {
			return i, nil
		}
	}
	return 0, fmt.Errorf("type bits %#x, flags %#x: %w", typeBits, uint32(properties), core.ErrNoSuitableMemoryType)
}

func (vc *VulkanContext) WaitIdle() error {
	return check(vk.DeviceWaitIdle(vc.Device.LogicalDevice), "vkDeviceWaitIdle", core.ErrResourceCreationFailed)
}

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		core.LogError("ERROR: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		core.LogWarn("WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		core.LogWarn("PERFORMANCE WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	default:
		core.LogDebug("[%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	}
	return vk.Bool32(vk.False)
}
